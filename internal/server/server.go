package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hongminglow/deepsea-be/internal/auth"
	"github.com/hongminglow/deepsea-be/internal/config"
	"github.com/hongminglow/deepsea-be/internal/directory"
	"github.com/hongminglow/deepsea-be/internal/http/handlers"
	"github.com/hongminglow/deepsea-be/internal/http/respond"
	"github.com/hongminglow/deepsea-be/internal/metrics"
	"github.com/hongminglow/deepsea-be/internal/middleware"
	"github.com/hongminglow/deepsea-be/internal/service"
	"github.com/hongminglow/deepsea-be/internal/storage"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner   *http.Server
	handler http.Handler
}

// New wires up middleware, routes, and returns a ready server.
func New(ctx context.Context, cfg *config.Config, store storage.Store, logger *slog.Logger) (*Server, error) {
	errs := respond.NewResponder(cfg.IsDevelopment(), logger)

	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.ExpiresIn.Std())
	names := directory.NewNames(store.Departments(), store.JobTitles(), cfg.NameCache.Size, cfg.NameCache.TTL.Std())
	authLogger := logger.With(slog.String("component", "auth"))

	authSvc := auth.NewService(tokens, store.Users(), store.Sessions(),
		auth.WithLogger(authLogger), auth.WithRefreshTTL(cfg.JWT.RefreshExpiresIn.Std()))
	authenticator := auth.NewAuthenticator(tokens, store.Users(), store.Sessions(), store.Permissions(), names,
		auth.WithLogger(authLogger))
	gate := auth.NewGate(store.Permissions(), authLogger)
	guard := middleware.RequireAuth(authenticator, errs)

	svcLogger := logger.With(slog.String("component", "service"))
	users := handlers.NewUsersHandler(service.NewUsers(gate, store.Users(), store.Sessions(), svcLogger), errs)
	departments := handlers.NewDepartmentsHandler(service.NewDepartments(gate, store.Departments(), names, svcLogger), errs)
	jobTitles := handlers.NewJobTitlesHandler(service.NewJobTitles(gate, store.JobTitles(), names, svcLogger), errs)
	authHandler := handlers.NewAuthHandler(authSvc, errs, guard)

	doc, err := handlers.LoadOpenAPI(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := handlers.NewDocsHandler(doc)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(
		middleware.Logging(logger),
		middleware.Metrics,
		middleware.Recover(errs),
		middleware.CORS(cfg.CORSOrigins),
	)
	r.NotFound(errs.NotFound)
	r.MethodNotAllowed(errs.MethodNotAllowed)

	handlers.NewHealthHandler(time.Now(), store, errs).Register(r)
	docs.Register(r)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	api := func(r chi.Router) {
		authHandler.Register(r)
		r.Group(func(r chi.Router) {
			r.Use(guard)
			users.Register(r)
			departments.Register(r)
			jobTitles.Register(r)
		})
	}
	r.Group(api)
	r.Route("/api", func(r chi.Router) {
		r.NotFound(errs.NotFound)
		api(r)
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return &Server{inner: httpServer, handler: r}, nil
}

// Handler exposes the routed handler, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.handler }

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	if err := s.inner.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}

// Addr is the configured listen address.
func (s *Server) Addr() string { return s.inner.Addr }
