package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"hse/internal/auth"
	"hse/internal/importer"
	applog "hse/internal/log"
	"hse/internal/middleware/ratelimit"
	"hse/internal/middleware/security"
	"hse/internal/middleware/trace"
	"hse/internal/records"
	"hse/internal/sqlimport"
	"hse/internal/storage"
	appweb "hse/web"
)

// Store is what the handlers need from the data layer.
type Store interface {
	records.Store
	ResolveContractor(ctx context.Context, ref string) (string, error)
}

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	Dialect            storage.Dialect
	SessionSecret      string
	SecureCookie       bool
	SessionMaxAge      time.Duration
	SQLImportEnabled   bool
	MaxUploadBytes     int64
	RequestTimeout     time.Duration
	ImportTimeout      time.Duration
	RateLimitPerMinute int
	TrustedProxies     []string
	Logger             *applog.Logger
}

const (
	defaultRequestTimeout = 7 * time.Second
	defaultImportTimeout  = 30 * time.Second
	defaultMaxUpload      = 10 << 20
	staticMaxAge          = 3600
)

func (o Options) withDefaults() Options {
	if o.Dialect == "" {
		o.Dialect = storage.SQLite
	}
	if o.SessionMaxAge <= 0 {
		o.SessionMaxAge = auth.DefaultSessionMaxAge
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = defaultMaxUpload
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = defaultRequestTimeout
	}
	if o.ImportTimeout <= 0 {
		o.ImportTimeout = defaultImportTimeout
	}
	if o.Logger == nil {
		o.Logger = applog.New(applog.DefaultConfig())
	}
	return o
}

// Server is the dashboard HTTP server.
type Server struct {
	http.Server
	templates *template.Template
	store     Store
	accounts  *auth.Accounts
	sessions  *auth.Sessions
	importer  *importer.Importer
	guard     *sqlimport.Guard
	opts      Options
	logger    *applog.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	started        time.Time
	recordsCreated atomic.Int64
	importsRun     atomic.Int64
	shutdownOnce   sync.Once
}

// NewServer parses the templates, builds the middleware chain and
// registers the routes.
func NewServer(addr string, store Store, opts Options) (*Server, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if len(opts.SessionSecret) == 0 {
		return nil, errors.New("session secret is required")
	}
	opts = opts.withDefaults()

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	logger := opts.Logger.WithComponent(applog.ComponentHTTP)
	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, fmt.Errorf("trusted proxies: %w", err)
		}
	}

	s := &Server{
		templates: t,
		store:     store,
		accounts:  auth.NewAccounts(store),
		sessions:  auth.NewSessions(opts.SessionSecret, opts.SecureCookie, opts.SessionMaxAge),
		importer:  importer.New(store, store),
		guard:     sqlimport.NewGuard(),
		opts:      opts,
		logger:    logger,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		detector: detector,
		tracer:   trace.NewMiddleware(opts.Logger.WithComponent(applog.ComponentTrace), detector.ExtractClientIP),
		started:  time.Now(),
	}

	mux := http.NewServeMux()
	if err := s.routes(mux); err != nil {
		s.limiter.Stop()
		return nil, err
	}

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = mux
	handler = s.limiter.Middleware(detector.ExtractClientIP, s.rateLimited)(handler)
	handler = s.tracer.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = detector.Middleware(handler)

	s.Addr = addr
	s.Handler = handler
	s.ReadHeaderTimeout = 10 * time.Second
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) error {
	private := func(h http.HandlerFunc) http.Handler {
		return security.NoStore(s.sessions.RequireAuth(h))
	}

	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("mount static assets: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("/static/", security.StaticAssetMiddleware(staticMaxAge)(static))

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/login", security.NoStore(http.HandlerFunc(s.handleLogin)))
	mux.Handle("/logout", private(s.handleLogout))
	mux.Handle("/metrics", private(s.handleMetrics))

	mux.Handle("/dashboard", private(s.handleDashboard))
	mux.Handle("/ui/summary", private(s.handleSummaryPartial))
	mux.Handle("/ui/tables", private(s.handleTablesPartial))
	mux.Handle("/ui/charts", private(s.handleChartsPartial))
	mux.Handle("/api/charts", private(s.handleChartsJSON))

	mux.Handle("/reports", private(s.handleReports))
	mux.Handle("/reports/incidents", private(s.handleCreateIncident))
	mux.Handle("/reports/inspections", private(s.handleCreateInspection))
	mux.Handle("/reports/trainings", private(s.handleCreateTraining))

	mux.Handle("/import/spreadsheet", private(s.handleImportSpreadsheet))
	mux.Handle("/import/sample-sql", private(s.handleImportSampleSQL))
	return nil
}

// rateLimited answers a throttled POST in a way HTMX can show.
func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again in a minute.").
		Header("Retry-After", "60").
		TriggerErrorNotification("Too many requests. Please try again in a minute.").
		Write(w)
}

// Shutdown stops the background goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// render executes a named template into a buffer first so a template
// error never leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			applog.FieldComponent, applog.ComponentTemplate,
			applog.FieldOperation, applog.OpRender,
			"template", name,
			applog.FieldError, err)
		InternalServerError("Could not render the page").Write(w)
		return
	}
	b.BodyHTML(buf.String()).Write(w)
}

// requestContext bounds a backend call.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.opts.RequestTimeout)
}
