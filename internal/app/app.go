package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"playlistpulse/internal/auth"
	"playlistpulse/internal/config"
	"playlistpulse/internal/dataprocessing"
	apierrors "playlistpulse/internal/errors"
	"playlistpulse/internal/infrastructure"
	customMiddleware "playlistpulse/internal/middleware"
	"playlistpulse/internal/services"
	"playlistpulse/internal/session"
	handlers "playlistpulse/internal/transport/http"
	ws "playlistpulse/internal/websocket"
	"playlistpulse/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config           *config.Config
	Router           *chi.Mux
	Server           *http.Server
	Logger           *slog.Logger
	OTelProviders    *infrastructure.OTelProviders
	Metrics          *infrastructure.DashboardMetrics
	DatasetCache     *session.DatasetCache
	DashboardService *services.DashboardService
	HealthService    *services.HealthService
	WebSocketHub     *ws.Hub
	Sessions         *auth.SessionManager
	Authenticator    *auth.Authenticator
	FrontendFS       fs.FS // Optional browser front end served at /

	errorHandler *apierrors.ErrorHandler
	validation   *customMiddleware.ValidationMiddleware
}

// NewApplication loads configuration, sets up logging and telemetry and
// wires the application. frontendFS may be nil; Server.StaticDir is used
// then.
func NewApplication(frontendFS fs.FS) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", cfg.Server.Port))

	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	if frontendFS == nil && cfg.Server.StaticDir != "" {
		frontendFS = os.DirFS(cfg.Server.StaticDir)
		logger.Info("serving front end from directory", slog.String("dir", cfg.Server.StaticDir))
	}

	return New(cfg, logger, otelProviders, frontendFS)
}

// New wires an application from already initialized infrastructure.
func New(cfg *config.Config, logger *slog.Logger, otelProviders *infrastructure.OTelProviders, frontendFS fs.FS) (*Application, error) {
	if otelProviders == nil {
		otelProviders = infrastructure.NewNoopProviders(logger)
	}

	metrics, err := infrastructure.NewDashboardMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		FrontendFS:    frontendFS,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	a.errorHandler = apierrors.NewErrorHandler(a.Logger, a.isDevelopmentMode())
	a.validation = customMiddleware.NewValidationMiddleware(a.Logger, a.errorHandler)

	authenticator, err := auth.NewAuthenticator(a.Config.Security, a.Logger, a.Metrics)
	if err != nil {
		return fmt.Errorf("failed to initialize authenticator: %w", err)
	}
	a.Authenticator = authenticator
	a.Sessions = auth.NewSessionManager(a.Config.Security, a.Logger)

	dash := a.Config.Dashboard
	a.DatasetCache = session.NewDatasetCache(dash.CacheTTL, dash.MaxSessions, dash.CacheCleanup)
	pipeline := dataprocessing.NewPipeline(dash.DateLayouts, a.Logger, a.OTelProviders.Tracer, a.Metrics)
	a.DashboardService = services.NewDashboardService(dash, pipeline, a.DatasetCache, a.Logger, a.Metrics)

	a.WebSocketHub = ws.NewHub(a.Logger, a.Metrics)
	a.HealthService = services.NewHealthService(contracts.GetVersionInfo(),
		a.DashboardService, a.WebSocketHub, a.Logger)

	return nil
}

// setupRouter builds the router. Middleware order:
// RequestID → RealIP → OTel → Logger → Recoverer → SecureHeaders → CORS → RateLimit → Timeout
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.errorHandler))
	r.Use(customMiddleware.DefaultSecureHeaders().Handler)
	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(a.getCORSConfig()))
	}
	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
			a.errorHandler,
		).Handler)
	}

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	// Long lived, so outside the request timeout
	wsHandler := ws.NewHandler(a.WebSocketHub, a.DashboardService, a.validation,
		a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.errorHandler, a.Logger)
	r.With(a.Sessions.RequireAuth(a.errorHandler)).Handle("/ws", wsHandler)

	metricsHandler := handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, func() map[string]interface{} {
		return a.HealthService.Stats(context.Background())
	})
	r.Mount("/metrics", metricsHandler.Routes())

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))
		a.setupAPIRoutes(r)
	})

	if a.FrontendFS != nil {
		r.Handle("/*", http.FileServerFS(a.FrontendFS))
	}

	a.Router = r
}

// setupAPIRoutes sets up all API routes
func (a *Application) setupAPIRoutes(r chi.Router) {
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	r.Get("/healthz", healthHandler.LivenessCheck)
	r.Mount("/api/health", healthHandler.Routes())

	authHandler := handlers.NewAuthHandler(a.Authenticator, a.Sessions, a.DashboardService,
		a.validation, a.Logger, a.errorHandler)
	r.Mount("/api/auth", authHandler.Routes())

	r.Group(func(r chi.Router) {
		r.Use(a.Sessions.RequireAuth(a.errorHandler))

		dashboardHandler := handlers.NewDashboardHandler(a.DashboardService, a.WebSocketHub, a.validation,
			a.Config.Server.MaxUploadBytes, a.Logger, a.errorHandler)
		r.Mount("/api/dashboard", dashboardHandler.Routes())

		clientLogHandler := handlers.NewClientLogHandler(a.Logger, a.errorHandler)
		r.Post("/api/client-log", clientLogHandler.Handle)
	})
}

// getCORSConfig returns CORS configuration
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins:   a.Config.Security.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", customMiddleware.RequestIDHeader},
		ExposedHeaders:   []string{customMiddleware.RequestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		Logger:           a.Logger,
	}
}

// isDevelopmentMode reports whether stack traces may be included in errors
func (a *Application) isDevelopmentMode() bool {
	return a.Config.Telemetry.Environment == "development"
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.WebSocketHub.Run()
		return nil
	})

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "HTTP server listening",
			slog.String("address", a.Server.Addr),
			slog.String("version", contracts.GetVersionString()))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.performStartupHealthCheck(gctx)
		<-gctx.Done()
		a.Logger.Info("Shutdown requested")
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	a.WebSocketHub.Stop()
	a.DatasetCache.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("close log file: %w", err))
	}
	return errors.Join(errs...)
}

// performStartupHealthCheck logs components that are not ready
func (a *Application) performStartupHealthCheck(ctx context.Context) {
	status := a.HealthService.ReadinessCheck(ctx)
	if status.Status != "ready" {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.Any("services", status.Services))
		return
	}
	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
}
