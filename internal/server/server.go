package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Niamh518/Dandi-curser-project/internal/handler"
	"github.com/Niamh518/Dandi-curser-project/internal/openapi"
	"github.com/Niamh518/Dandi-curser-project/internal/server/middleware"
	"github.com/Niamh518/Dandi-curser-project/internal/service"
	"github.com/Niamh518/Dandi-curser-project/internal/ui"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	EnableUI        bool
	MaxBodySize     int64 // bytes

	// APIKeyHeader is the header checked for API keys on the validation
	// and summarizer routes.
	APIKeyHeader string
	// RequireSession guards the key and profile routes with a dashboard
	// session.
	RequireSession bool
	// RateLimit is the per-client request budget per minute for the API key
	// routes. Zero disables limiting.
	RateLimit    int
	SecureCookie bool
	Version      string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		EnableUI:        true,
		MaxBodySize:     1 << 20, // 1MB
		APIKeyHeader:    handler.DefaultAPIKeyHeader,
		RateLimit:       60,
	}
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the server routes to. Identity and MCP are
// optional; their routes are only mounted when set.
type Deps struct {
	Store      Pinger
	Keys       *service.KeyService
	Auth       *service.AuthService
	Summarizer *service.Summarizer
	Profiles   *service.ProfileService
	Sessions   *service.SessionService
	Identity   handler.IdentityProvider
	MCP        http.Handler

	// OnShutdown runs in order after in-flight requests have drained.
	OnShutdown []func() error
}

// Server is the top-level HTTP server for Dandi. It owns the Chi router and
// the services behind it.
type Server struct {
	cfg        Config
	deps       Deps
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", s.apiKeyHeader(), "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))
	if s.cfg.MaxBodySize > 0 {
		r.Use(chimw.RequestSize(s.cfg.MaxBodySize))
	}
	if s.deps.Sessions != nil {
		r.Use(middleware.LoadSession(s.deps.Sessions))
	}

	// --- Health checks (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	// --- OpenAPI spec (no auth required) ---
	doc := openapi.Generate(openapi.Options{
		Version:         s.cfg.Version,
		APIKeyHeader:    s.apiKeyHeader(),
		SessionRequired: s.cfg.RequireSession,
	})
	r.Get("/openapi.json", handler.NewOpenAPIHandler(doc).ServeSpec)

	// --- Sign-in flow ---
	if s.deps.Identity != nil {
		authHandler := handler.NewAuthHandler(s.deps.Identity, s.deps.Profiles, s.deps.Sessions, s.cfg.SecureCookie)
		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", authHandler.Login)
			r.Get("/callback", authHandler.Callback)
			r.Get("/auth-code-error", authHandler.AuthCodeError)
			r.Post("/logout", authHandler.Logout)
		})
	}

	// --- API routes ---
	r.Route("/api", func(r chi.Router) {

		// Dashboard routes: key management and the user's profile.
		r.Group(func(r chi.Router) {
			if s.cfg.RequireSession {
				r.Use(middleware.RequireSession())
			}

			keyHandler := handler.NewKeyHandler(s.deps.Keys)
			r.Get("/keys", keyHandler.List)
			r.Post("/keys", keyHandler.Create)
			r.Put("/keys", keyHandler.Update)
			r.Delete("/keys", keyHandler.Delete)

			if s.deps.Profiles != nil {
				profileHandler := handler.NewProfileHandler(s.deps.Profiles)
				r.Get("/profile", profileHandler.Get)
				r.Post("/profile", profileHandler.Ensure)
				r.Put("/profile", profileHandler.Update)
			}
		})

		// API key routes authenticate every request by key.
		r.Group(func(r chi.Router) {
			if s.cfg.RateLimit > 0 {
				r.Use(middleware.RateLimit(s.cfg.RateLimit, s.apiKeyHeader()))
			}

			validateHandler := handler.NewValidateHandler(s.deps.Auth, s.apiKeyHeader())
			r.Post("/protected", validateHandler.Validate)

			if s.deps.Summarizer != nil {
				summarizeHandler := handler.NewSummarizeHandler(s.deps.Auth, s.deps.Summarizer, s.apiKeyHeader())
				r.Post("/summarize", summarizeHandler.Summarize)
				r.Post("/github-summarizer", summarizeHandler.Summarize)
			}
		})
	})

	// --- MCP over Streamable HTTP ---
	if s.deps.MCP != nil {
		r.Group(func(r chi.Router) {
			if s.cfg.RequireSession {
				r.Use(middleware.RequireSession())
			}
			r.Handle("/mcp", s.deps.MCP)
		})
	}

	// --- Embedded dashboard ---
	if s.cfg.EnableUI {
		distFS, err := fs.Sub(ui.Dist, "dist")
		if err != nil {
			s.logger.Error("failed to create sub filesystem for UI", "error", err)
		} else {
			spaHandler := func(w http.ResponseWriter, r *http.Request) {
				f, err := distFS.Open("index.html")
				if err != nil {
					http.Error(w, "UI not available", http.StatusNotFound)
					return
				}
				defer f.Close()
				stat, _ := f.Stat()
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				http.ServeContent(w, r, "index.html", stat.ModTime(), f.(io.ReadSeeker))
			}
			r.Get("/", spaHandler)
			r.Get("/dashboard", spaHandler)
			r.Get("/dashboard/*", spaHandler)
		}
	}

	s.router = r
}

func (s *Server) apiKeyHeader() string {
	if s.cfg.APIKeyHeader == "" {
		return handler.DefaultAPIKeyHeader
	}
	return s.cfg.APIKeyHeader
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the store answers a
// ping, or 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := map[string]string{"store": "ok"}

	if s.deps.Store == nil {
		checks["store"] = "not configured"
		status = "degraded"
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Store.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", "error", err)
			checks["store"] = "unreachable"
			status = "degraded"
		}
	}

	if status != "ok" {
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before running the shutdown hooks.
func (s *Server) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second, // summaries wait on the model
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.runShutdownHooks()
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.runShutdownHooks()
	if err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) runShutdownHooks() {
	for _, fn := range s.deps.OnShutdown {
		if err := fn(); err != nil {
			s.logger.Error("shutdown hook failed", "error", err)
		}
	}
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
