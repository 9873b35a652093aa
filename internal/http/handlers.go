package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"finflow/internal/core"
	"finflow/internal/ingest"
	"finflow/internal/log"
	"finflow/internal/services"
	"finflow/internal/session"
)

const importTimeout = 30 * time.Second

type appMetrics struct {
	uploads        int64
	uploadFailures int64
	imports        int64
	remaps         int64
	dashboards     int64
	exports        int64
	uptime         time.Time
}

func newAppMetrics() *appMetrics {
	return &appMetrics{uptime: time.Now()}
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports whether the server can render pages.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	checks["sessions"] = map[string]any{
		"active": s.svc.Sessions(),
		"status": "ok",
	}
	if s.svc.ImportEnabled() {
		checks["sheets_import"] = "configured"
	} else {
		checks["sheets_import"] = "disabled"
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	NewResponse().Status(httpStatus).JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()
	m := s.appMetrics

	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %v\n\n", name, value)
	}

	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_client_errors_total", "counter", "Responses with a 4xx status", traceMetrics.ClientErrors)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_request_duration_ms_avg", "gauge", "Average request duration in milliseconds", fmt.Sprintf("%.2f", traceMetrics.AverageLatencyMs()))
	metric("uploads_total", "counter", "Spreadsheets loaded successfully", atomic.LoadInt64(&m.uploads))
	metric("upload_failures_total", "counter", "Spreadsheets rejected", atomic.LoadInt64(&m.uploadFailures))
	metric("sheets_imports_total", "counter", "Google Sheets imports", atomic.LoadInt64(&m.imports))
	metric("remaps_total", "counter", "Manual column mappings applied", atomic.LoadInt64(&m.remaps))
	metric("dashboards_total", "counter", "Dashboards rendered", atomic.LoadInt64(&m.dashboards))
	metric("exports_total", "counter", "Workbook exports", atomic.LoadInt64(&m.exports))
	metric("active_sessions", "gauge", "Sessions held in memory", s.svc.Sessions())
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("blocked_requests_total", "counter", "Requests rejected by method", securityMetrics.BlockedRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(m.uptime).Seconds()))
}

func (s *Server) indexView(msg string) indexView {
	return indexView{
		Title:         "FinFlow Pro",
		Error:         msg,
		ImportEnabled: s.svc.ImportEnabled(),
		MaxUploadMB:   s.opts.MaxUploadBytes >> 20,
		Extensions:    ingest.Extensions(),
		TemplateFile:  ingest.TemplateFileName,
		SheetsRange:   s.opts.SheetsRange,
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.renderError(w, r, http.StatusNotFound, "Página não encontrada.")
		return
	}
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	if sess, err := s.svc.Session(sessionID(r)); err == nil {
		if sess.Ready() {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		} else {
			http.Redirect(w, r, "/mapping", http.StatusSeeOther)
		}
		return
	}
	s.render(w, r, http.StatusOK, "index.html", s.indexView(""))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	tooLarge := func() {
		atomic.AddInt64(&s.appMetrics.uploadFailures, 1)
		s.render(w, r, http.StatusRequestEntityTooLarge, "index.html",
			s.indexView(fmt.Sprintf("Arquivo muito grande. O limite é %d MB.", s.opts.MaxUploadBytes>>20)))
	}
	if r.ContentLength > s.opts.MaxUploadBytes {
		tooLarge()
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			tooLarge()
			return
		}
		atomic.AddInt64(&s.appMetrics.uploadFailures, 1)
		s.render(w, r, http.StatusBadRequest, "index.html", s.indexView("Selecione um arquivo .xlsx, .xls ou .csv."))
		return
	}
	defer file.Close()

	sess, err := s.svc.Upload(r.Context(), sessionID(r), header.Filename, file)
	s.afterLoad(w, r, sess, err)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if !s.svc.ImportEnabled() {
		s.renderError(w, r, http.StatusNotFound, userMessage(services.ErrImportDisabled))
		return
	}
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "index.html", s.indexView("Formato de requisição inválido."))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), importTimeout)
	defer cancel()
	sess, err := s.svc.Import(ctx,
		sessionID(r),
		sanitizeInput(r.PostForm.Get("spreadsheet_id")),
		sanitizeInput(r.PostForm.Get("range")))
	if err == nil {
		atomic.AddInt64(&s.appMetrics.imports, 1)
	}
	s.afterLoad(w, r, sess, err)
}

// afterLoad finishes an upload or import: a loaded table goes to the
// dashboard, one with unresolved columns to the mapping form, and any other
// failure back to the landing page with the error.
func (s *Server) afterLoad(w http.ResponseWriter, r *http.Request, sess *session.Session, err error) {
	if sess != nil {
		setSessionCookie(w, r, sess.ID)
	}
	switch {
	case err == nil:
		atomic.AddInt64(&s.appMetrics.uploads, 1)
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	case sess != nil && errors.Is(err, core.ErrUnresolvedColumn):
		atomic.AddInt64(&s.appMetrics.uploads, 1)
		http.Redirect(w, r, "/mapping", http.StatusSeeOther)
	default:
		atomic.AddInt64(&s.appMetrics.uploadFailures, 1)
		s.render(w, r, statusFor(err), "index.html", s.indexView(userMessage(err)))
	}
}

func (s *Server) handleMapping(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}
	sess, err := s.svc.Session(sessionID(r))
	if err != nil {
		s.lostSession(w, r)
		return
	}
	if r.Method != http.MethodPost {
		s.render(w, r, http.StatusOK, "mapping.html", newMappingView(sess, nil, ""))
		return
	}

	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "mapping.html", newMappingView(sess, nil, "Formato de requisição inválido."))
		return
	}
	selections := ParseSelections(r.PostForm)
	if _, err := s.svc.Remap(r.Context(), sess.ID, selections); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.lostSession(w, r)
			return
		}
		s.render(w, r, statusFor(err), "mapping.html", newMappingView(sess, selections, userMessage(err)))
		return
	}
	atomic.AddInt64(&s.appMetrics.remaps, 1)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if id := sessionID(r); id != "" {
		s.svc.Reset(r.Context(), id)
	}
	clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	var buf bytes.Buffer
	if err := ingest.WriteTemplate(&buf); err != nil {
		s.events.LogError(r.Context(), "Template workbook failed", err, log.ComponentHTTP, log.OpExport, nil)
		s.renderError(w, r, http.StatusInternalServerError, "Não foi possível gerar o modelo.")
		return
	}
	NewResponse().Attachment(ingest.TemplateFileName, ingest.ContentTypeXLSX, buf.Bytes()).Write(w)
}

// lostSession sends a browser whose session expired back to the landing page.
func (s *Server) lostSession(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		s.logger.WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.events.LogError(r.Context(), "Template execution failed", err, log.ComponentTemplate, log.OpRender,
			log.NewFields().With("template", name))
		http.Error(w, "Erro ao renderizar a página", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type errorView struct {
	Title   string
	Status  int
	Message string
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if s.templates == nil {
		http.Error(w, msg, status)
		return
	}
	s.render(w, r, status, "error.html", errorView{Title: http.StatusText(status), Status: status, Message: msg})
}
