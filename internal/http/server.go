package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"finflow/internal/analytics"
	"finflow/internal/log"
	"finflow/internal/middleware/ratelimit"
	"finflow/internal/middleware/security"
	"finflow/internal/middleware/trace"
	"finflow/internal/services"
	appweb "finflow/web"
)

// Options configures the HTTP layer.
type Options struct {
	Currency       string
	MaxUploadBytes int64
	DefaultPeriod  analytics.Granularity
	TopCategories  int
	// RateLimit is the number of POST requests a client may send per minute.
	RateLimit   int
	SheetsRange string
	// TrustedProxies extend the proxy networks whose forwarding headers
	// identify the client.
	TrustedProxies []string
}

func (o Options) withDefaults() Options {
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = 10 << 20
	}
	if o.DefaultPeriod == "" {
		o.DefaultPeriod = analytics.Month
	}
	if o.TopCategories <= 0 {
		o.TopCategories = services.DefaultTopCategories
	}
	return o
}

type Server struct {
	http.Server
	templates *template.Template
	svc       *services.DashboardService
	opts      Options
	logger    *log.Logger
	events    *log.StructuredLogger

	rateLimiter     *ratelimit.Limiter
	detector        *security.Detector
	traceMiddleware *trace.Middleware
	appMetrics      *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, svc *services.DashboardService, opts Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	opts = opts.withDefaults()

	s := &Server{
		svc:        svc,
		opts:       opts,
		logger:     logger,
		events:     log.NewStructuredLogger(logger),
		detector:   security.NewDetector(),
		appMetrics: newAppMetrics(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimit,
			Methods:           []string{http.MethodPost},
		}),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.WithComponent(log.ComponentSecurity).Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s.traceMiddleware = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	t, err := template.New("").Funcs(templateFuncs(opts.Currency)).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.WithComponent(log.ComponentTemplate).Warn("Failed parsing templates", log.FieldError, err)
		t = nil
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/template.xlsx", s.handleTemplate)

	pages := http.NewServeMux()
	pages.HandleFunc("/", s.handleIndex)
	pages.HandleFunc("/upload", s.handleUpload)
	pages.HandleFunc("/mapping", s.handleMapping)
	pages.HandleFunc("/import/sheets", s.handleImport)
	pages.HandleFunc("/reset", s.handleReset)
	pages.HandleFunc("/dashboard", s.handleDashboard)
	pages.HandleFunc("/api/dashboard", s.handleAPIDashboard)
	pages.HandleFunc("/export.xlsx", s.handleExport)
	mux.Handle("/", security.NoStore(pages))

	var h http.Handler = mux
	h = s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)(h)
	h = s.detector.Middleware(logger)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.RequestIDMiddleware(func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(h)
	h = s.traceMiddleware.Middleware(h)
	h = log.Middleware(logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	s.renderError(w, r, http.StatusTooManyRequests, "Muitas requisições. Aguarde um minuto e tente novamente.")
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
