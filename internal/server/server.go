// Package server wires the store, services, handlers and routes together
// and runs the HTTP server.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → sqlstore.DB ─┐
//	              → tmdb.Client ─┼→ services → handlers → route table
//	              → auth tokens ─┘
//
// Everything is assembled in New; nothing below this package reaches for
// globals except the Prometheus collectors.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/movieku/internal/auth"
	"github.com/sakif/movieku/internal/config"
	"github.com/sakif/movieku/internal/handler"
	"github.com/sakif/movieku/internal/middleware"
	"github.com/sakif/movieku/internal/provider/tmdb"
	"github.com/sakif/movieku/internal/repository/sqlstore"
	"github.com/sakif/movieku/internal/service"
)

// setupTimeout bounds migrations and the admin bootstrap.
const setupTimeout = 30 * time.Second

// Server owns the router and the database pool. The pool is closed when
// Start returns or Close is called.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqlstore.DB

	authSvc *service.AuthService

	authHandler    *handler.AuthHandler
	movieHandler   *handler.MovieHandler
	historyHandler *handler.HistoryHandler
	userHandler    *handler.UserHandler
	statsHandler   *handler.StatsHandler
	healthHandler  *handler.HealthHandler
}

// New opens the database, runs migrations, builds every service and
// registers the routes.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	db, err := sqlstore.New(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.wire(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s.setupRoutes()

	return s, nil
}

func (s *Server) wire(ctx context.Context) error {
	cfg := s.config

	if err := cfg.ProviderCredentials(); err != nil {
		s.logger.Warn("tmdb credentials missing, provider endpoints will fail",
			slog.String("error", err.Error()),
		)
	}
	provider, err := tmdb.New(tmdb.Config{
		BaseURL:         cfg.TMDB.BaseURL,
		APIKey:          cfg.TMDB.APIKey,
		ReadAccessToken: cfg.TMDB.ReadAccessToken,
		Timeout:         cfg.TMDB.Timeout,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("creating tmdb client: %w", err)
	}

	tokens, err := auth.NewTokenServiceWithTTL(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords, err := auth.NewPasswordServiceWithCost(cfg.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("creating password service: %w", err)
	}

	users := s.db.Users()
	movies := s.db.Movies()

	s.authSvc = service.NewAuthService(users, tokens, passwords, s.logger)
	catalogSvc := service.NewCatalogService(movies, s.logger)
	syncSvc := service.NewSyncService(movies, provider, s.logger)
	historySvc := service.NewHistoryService(s.db.History(), s.logger)
	userSvc := service.NewUserService(users, passwords, s.logger)
	statsSvc := service.NewStatsService(s.db.Stats())

	if cfg.AdminBootstrap() {
		admin, err := s.authSvc.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Name, cfg.Admin.Password)
		if err != nil {
			return fmt.Errorf("bootstrapping admin: %w", err)
		}
		s.logger.Info("admin account ready", slog.String("email", admin.Email))
	}

	s.authHandler = handler.NewAuthHandler(s.authSvc, s.logger)
	s.movieHandler = handler.NewMovieHandler(catalogSvc, syncSvc, s.logger)
	s.historyHandler = handler.NewHistoryHandler(historySvc, s.logger)
	s.userHandler = handler.NewUserHandler(userSvc, s.logger)
	s.statsHandler = handler.NewStatsHandler(statsSvc)
	s.healthHandler = handler.NewHealthHandler(s.db)
	return nil
}

// route is one row of the API table. Every access decision lives here.
type route struct {
	method  string
	pattern string
	access  auth.Access
	handler http.HandlerFunc
	// limited routes share one per-IP attempt counter.
	limited bool
}

func (s *Server) routes() []route {
	m := s.movieHandler
	return []route{
		{http.MethodPost, "/auth/register", auth.Public, s.authHandler.HandleRegister, true},
		{http.MethodPost, "/auth/login", auth.Public, s.authHandler.HandleLogin, true},
		{http.MethodGet, "/auth/me", auth.Authenticated, s.authHandler.HandleMe, false},

		{http.MethodGet, "/movies", auth.Public, m.HandleList, false},
		{http.MethodPost, "/movies", auth.Admin, m.HandleCreate, false},
		{http.MethodPost, "/movies/sync-tmdb", auth.Admin, m.HandleSyncPopular, false},
		{http.MethodGet, "/movies/tmdb/search", auth.Admin, m.HandleSearchExternal, false},
		{http.MethodGet, "/movies/tmdb/list", auth.Admin, m.HandleListExternal, false},
		{http.MethodGet, "/movies/tmdb/credits/{externalId}", auth.Public, m.HandleCredits, false},
		{http.MethodGet, "/movies/tmdb/media/{externalId}", auth.Public, m.HandleMedia, false},
		{http.MethodGet, "/movies/{id}", auth.Public, m.HandleGet, false},
		{http.MethodPut, "/movies/{id}", auth.Admin, m.HandleUpdate, false},
		{http.MethodDelete, "/movies/{id}", auth.Admin, m.HandleDelete, false},

		{http.MethodGet, "/history", auth.Authenticated, s.historyHandler.HandleList, false},
		{http.MethodPost, "/history", auth.Authenticated, s.historyHandler.HandleRecord, false},

		{http.MethodGet, "/users", auth.Admin, s.userHandler.HandleList, false},
		{http.MethodPost, "/users", auth.Admin, s.userHandler.HandleCreate, false},
		{http.MethodPut, "/users/{id}", auth.Admin, s.userHandler.HandleUpdate, false},
		{http.MethodDelete, "/users/{id}", auth.Admin, s.userHandler.HandleDelete, false},

		{http.MethodGet, "/stats/dashboard", auth.Admin, s.statsHandler.HandleDashboard, false},
	}
}

// setupRoutes installs the middleware chain and the route table.
//
// MIDDLEWARE ORDER:
//  1. RequestID, RealIP: identify the request and the client
//  2. Recoverer: a panic becomes a 500 instead of a dropped connection
//  3. Metrics, Logger: see the final status of every request
//  4. CORS: answers preflights before any guard runs
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Metrics)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	s.router.Get("/health", s.healthHandler.HandleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	limiter := httprate.Limit(
		s.config.Auth.AuthRateLimit,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			handler.WriteJSON(w, http.StatusTooManyRequests, handler.ErrorResponse{
				Error:   "rate_limited",
				Message: "too many attempts, try again later",
			})
		}),
	)

	s.router.Route("/api", func(r chi.Router) {
		for _, rt := range s.routes() {
			var h http.Handler = rt.handler
			h = auth.Guard(s.authSvc, rt.access, handler.WriteError)(h)
			if rt.limited {
				h = limiter(h)
			}
			r.Method(rt.method, rt.pattern, h)
		}
	})
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database pool.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to the configured shutdown timeout and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	cfg := s.config.Server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", cfg.Port),
			slog.String("driver", s.config.Database.Driver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
