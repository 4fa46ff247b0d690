package web

import (
	"context"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vbonduro/propertydesk/internal/admin"
	"github.com/vbonduro/propertydesk/internal/auth"
	"github.com/vbonduro/propertydesk/internal/catalog"
	"github.com/vbonduro/propertydesk/internal/domain"
	"github.com/vbonduro/propertydesk/internal/enquiry"
	"github.com/vbonduro/propertydesk/internal/metrics"
)

// Listings is the listing repository as the HTTP layer uses it.
type Listings interface {
	admin.Listings
	Get(ctx context.Context, id string) (*domain.Listing, error)
	SweepOrphans(ctx context.Context, limit int) (int, error)
}

// MediaStore serves stored blobs by key. Only the local blob store has one.
type MediaStore interface {
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
}

type Options struct {
	Listings   Listings
	Catalog    *catalog.Catalog
	Auth       *auth.Authenticator
	Workspaces *admin.Workspaces
	Enquiries  *enquiry.Service
	// Media may be nil when blobs are served from elsewhere.
	Media     MediaStore
	Metrics   *metrics.Metrics
	Templates fs.FS
	// Site is the static site root. It must contain index.html and, when
	// AdminEnabled, admin/login.html and admin/dashboard.html.
	Site          fs.FS
	AdminEnabled  bool
	SecureCookies bool
	// ImageOrigin is an extra img-src allowed by the CSP, e.g. a public
	// bucket URL.
	ImageOrigin string
	Logger      *slog.Logger
}

type Server struct {
	listings   Listings
	catalog    *catalog.Catalog
	auth       *auth.Authenticator
	guard      *auth.Guard
	workspaces *admin.Workspaces
	enquiries  *enquiry.Service
	media      MediaStore
	metrics    *metrics.Metrics
	templates  fs.FS
	site       fs.FS
	admin      bool
	secure     bool
	csp        string
	router     chi.Router
	tmplFuncs  template.FuncMap
	logger     *slog.Logger
}

func NewServer(opts Options) *Server {
	s := &Server{
		listings:   opts.Listings,
		catalog:    opts.Catalog,
		auth:       opts.Auth,
		guard:      auth.NewGuard(opts.Logger),
		workspaces: opts.Workspaces,
		enquiries:  opts.Enquiries,
		media:      opts.Media,
		metrics:    opts.Metrics,
		templates:  opts.Templates,
		site:       opts.Site,
		admin:      opts.AdminEnabled,
		secure:     opts.SecureCookies,
		csp:        contentSecurityPolicy(opts.ImageOrigin),
		router:     chi.NewRouter(),
		logger:     opts.Logger,
		tmplFuncs: template.FuncMap{
			"inc": func(i int) int { return i + 1 },
		},
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(requestLogger(s.logger), s.securityHeaders, s.observe)

	r.Get("/api/properties", s.handleCatalog)
	r.Get("/api/properties/{id}", s.handleDetail)
	r.Get("/partials/properties", s.handleCatalogPartial)
	r.Get("/partials/properties/{id}", s.handleDetailPartial)
	r.Post("/api/enquiries", s.handleEnquiry)
	r.Get("/media/*", s.handleMedia)
	r.Handle("/metrics", s.metrics.Handler())

	if s.admin {
		r.Get("/admin", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, loginPage, http.StatusFound)
		})
		r.Get(loginPage, s.handleLoginPage)
		r.Post("/admin/api/session", s.handleSignIn)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Get(dashboardPage, s.handleDashboardPage)
			r.Get("/admin/api/session", s.handleWhoAmI)
			r.Delete("/admin/api/session", s.handleSignOut)
			r.Get("/admin/api/session/events", s.handleSessionEvents)
			r.Get("/admin/api/properties", s.handleAdminList)
			r.Post("/admin/api/properties", s.handleAdminCreate)
			r.Put("/admin/api/properties/{id}", s.handleAdminUpdate)
			r.Delete("/admin/api/properties/{id}", s.handleAdminDelete)
			r.Post("/admin/api/orphans/sweep", s.handleSweepOrphans)
		})

		r.Get("/admin/*", s.handleAdminStatic)
	}

	r.Get("/*", s.handleStatic)
}

func contentSecurityPolicy(imageOrigin string) string {
	img := "'self' data:"
	if imageOrigin != "" {
		img += " " + imageOrigin
	}
	return "default-src 'self'; " +
		"script-src 'self' 'unsafe-inline'; " +
		"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com https://cdnjs.cloudflare.com; " +
		"font-src https://fonts.gstatic.com https://cdnjs.cloudflare.com; " +
		"img-src " + img + "; " +
		"connect-src 'self'"
}

// securityHeaders sets the security response headers, CSP included.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", s.csp)
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer for
// flushing and deadlines.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// observe records request metrics under the matched route pattern so that
// IDs in paths do not explode label cardinality.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		s.metrics.ObserveRequest(r.Method, route, rec.status, time.Since(start))
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// renderPartial parses and executes a single named partial template.
// The file must contain exactly one {{define "name"}}...{{end}} block.
func (s *Server) renderPartial(w http.ResponseWriter, file string, data any) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, file)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	// ParseFS registers both the file-basename template and any {{define}} blocks.
	// Find the {{define}} template: it is the one whose name is neither "" nor
	// the file basename.
	basename := file
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		basename = file[idx+1:]
	}
	for _, t := range tmpl.Templates() {
		if n := t.Name(); n != "" && n != basename {
			return t.Execute(w, data)
		}
	}
	return tmpl.ExecuteTemplate(w, basename, data)
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
