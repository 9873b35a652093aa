package http

import (
	"bytes"
	"errors"
	"net/http"
	"sync/atomic"

	"finflow/internal/columns"
	"finflow/internal/core"
	"finflow/internal/ingest"
	"finflow/internal/log"
	"finflow/internal/services"
	"finflow/internal/session"
)

const exportFileName = "finflow_transacoes.xlsx"

// buildDashboard runs the pipeline for the request's session and filters.
func (s *Server) buildDashboard(r *http.Request) (*session.Session, services.Dashboard, DashboardQuery, error) {
	q := ParseDashboardQuery(r.URL.Query())
	sess, err := s.svc.Session(sessionID(r))
	if err != nil {
		return nil, services.Dashboard{}, q, err
	}
	req, err := q.Request(s.opts.DefaultPeriod, s.opts.TopCategories)
	if err != nil {
		return sess, services.Dashboard{}, q, err
	}
	d, err := s.svc.Build(r.Context(), sess.ID, req)
	return sess, d, q, err
}

// handleDashboard renders metric cards, charts and the detail table.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	sess, d, q, err := s.buildDashboard(r)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrNotFound):
		s.lostSession(w, r)
		return
	case errors.Is(err, core.ErrUnresolvedColumn):
		http.Redirect(w, r, "/mapping", http.StatusSeeOther)
		return
	default:
		if statusFor(err) >= http.StatusInternalServerError {
			s.events.LogError(r.Context(), "Dashboard build failed", err, log.ComponentDashboard, log.OpBuild, nil)
		}
		s.renderError(w, r, statusFor(err), userMessage(err))
		return
	}

	atomic.AddInt64(&s.appMetrics.dashboards, 1)
	s.render(w, r, http.StatusOK, "dashboard.html", newDashboardView(sess, d, q))
}

// handleAPIDashboard returns the same dashboard as JSON.
func (s *Server) handleAPIDashboard(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	sess, d, _, err := s.buildDashboard(r)
	if err != nil {
		resp := JSONError(statusFor(err), userMessage(err))
		if errors.Is(err, core.ErrUnresolvedColumn) && sess != nil {
			resp = NewResponse().Status(http.StatusUnprocessableEntity).JSON(apiError{
				Error:   userMessage(err),
				Missing: missingFields(sess),
			})
		}
		resp.Write(w)
		return
	}
	NewResponse().JSON(newAPIDashboard(d)).Write(w)
}

// handleExport downloads the filtered detail table as a workbook.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	sess, d, _, err := s.buildDashboard(r)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrNotFound):
		s.lostSession(w, r)
		return
	case errors.Is(err, core.ErrUnresolvedColumn):
		http.Redirect(w, r, "/mapping", http.StatusSeeOther)
		return
	default:
		s.renderError(w, r, statusFor(err), userMessage(err))
		return
	}

	var buf bytes.Buffer
	if err := ingest.WriteTransactions(&buf, d.Detail); err != nil {
		s.events.LogError(r.Context(), "Export failed", err, log.ComponentDashboard, log.OpExport,
			log.NewFields().WithSession(sess.ID))
		s.renderError(w, r, http.StatusInternalServerError, "Não foi possível gerar a planilha.")
		return
	}
	atomic.AddInt64(&s.appMetrics.exports, 1)
	s.logger.InfoContext(r.Context(), "Detail exported",
		log.FieldOperation, log.OpExport,
		log.FieldFiltered, len(d.Detail))
	NewResponse().Attachment(exportFileName, ingest.ContentTypeXLSX, buf.Bytes()).Write(w)
}

func missingFields(sess *session.Session) []string {
	var out []string
	for _, f := range sess.Mapping.Missing(columns.Required()) {
		out = append(out, string(f))
	}
	return out
}
