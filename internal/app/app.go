package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"sheetlens/internal/config"
	apierrors "sheetlens/internal/errors"
	"sheetlens/internal/infrastructure"
	customMiddleware "sheetlens/internal/middleware"
	"sheetlens/internal/services"
	handlers "sheetlens/internal/transport/http"
	ws "sheetlens/internal/websocket"
	"sheetlens/pkg/contracts"
)

// AppName is the display name of the service
const AppName = "SheetLens"

// compressedTypes are the response types worth compressing. PNG and xlsx
// are already compressed.
var compressedTypes = []string{
	"text/html",
	"text/csv",
	"application/json",
	"application/problem+json",
	"image/svg+xml",
}

// Application wires configuration, services and transport together
type Application struct {
	Config          *config.Config
	Router          *chi.Mux
	Server          *http.Server
	Logger          *slog.Logger
	OTelProviders   *infrastructure.OTelProviders
	Metrics         *infrastructure.Metrics
	ErrorHandler    *apierrors.ErrorHandler
	Validator       *customMiddleware.Validator
	AnalysisService *services.AnalysisService
	HealthService   *services.HealthService
	WebSocketHub    *ws.Hub

	logFile interface{ Close() error }
}

// NewApplication creates the application from cfg. Nothing listens until
// Start is called.
func NewApplication(cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("build_time", contracts.BuildTime),
		slog.String("git_commit", contracts.GitCommit))

	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, contracts.Version, logger.Logger)
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.NewMetrics(otelProviders.Meter)
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger.Logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		logFile:       logger,
	}

	if err := app.initializeServices(); err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.setupRouter(); err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("failed to set up routes: %w", err)
	}
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	a.ErrorHandler = apierrors.NewErrorHandler(a.Logger, a.Config.Telemetry.Environment == "development")
	a.Validator = customMiddleware.NewValidator(a.Logger)
	a.AnalysisService = services.NewAnalysisService(a.Config.Analysis, a.Metrics, a.Logger)
	a.WebSocketHub = ws.NewHub(a.Metrics, a.Logger)

	a.HealthService = services.NewHealthService(contracts.Version, contracts.BuildTime, a.Logger)
	a.HealthService.Register("analysis", a.AnalysisService.Health)
	a.HealthService.Register("websocket", a.WebSocketHub.Health)

	a.Logger.Info("Services initialized")
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() error {
	r := chi.NewRouter()
	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	// These do not wrap the ResponseWriter, so the upgrade can still hijack
	// the connection.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	wsHandler := ws.NewHandler(a.WebSocketHub, a.AnalysisService, a.Validator, a.ErrorHandler,
		a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Config.Server.MaxUploadBytes, a.Logger)
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).Handle("/ws/analyze", wsHandler)

	htmlHandler, err := handlers.NewHTMLHandler(a.AnalysisService, a.Validator, a.ErrorHandler,
		a.Config.Server.MaxUploadBytes, contracts.Version, a.Logger)
	if err != nil {
		return err
	}
	analysisHandler := handlers.NewAnalysisHandler(a.AnalysisService, a.Validator, a.ErrorHandler,
		a.Config.Server.MaxUploadBytes, a.Logger)
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)

	// Ordering: RequestID → RealIP → OTel → Logger → Recoverer → security → Timeout
	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(apierrors.RecoveryMiddleware(a.ErrorHandler))
		r.Use(customMiddleware.DefaultSecureHeaders().Handler)
		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.corsConfig()))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.ErrorHandler,
				a.Logger,
			).Handler)
		}
		r.Use(customMiddleware.Compress(5, compressedTypes...))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.ErrorHandler))

		r.Route("/api", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			healthHandler.Register(r)
			r.Group(func(r chi.Router) {
				r.Use(customMiddleware.ContentTypeValidator(a.ErrorHandler, "multipart/form-data"))
				analysisHandler.Register(r)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.ContentTypeValidator(a.ErrorHandler, "multipart/form-data"))
			htmlHandler.Register(r)
		})
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
	return nil
}

func (a *Application) corsConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition", "Retry-After"},
		MaxAge:         300,
		Logger:         a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(a.Logger.Handler(), slog.LevelWarn),
	}
}

// Start starts the hub and begins serving on ln, or on the configured
// address when ln is nil. A serve failure cancels ctx through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc, ln net.Listener) error {
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", a.Server.Addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", a.Server.Addr, err)
		}
	}

	a.WebSocketHub.Start()

	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.performStartupHealthCheck(ctx)
	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", ln.Addr().String()))
	return nil
}

// Stop shuts the server down, closes every WebSocket session and flushes
// telemetry.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	// hijacked connections are not tracked by Shutdown
	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close log file: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully
func (a *Application) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Start(ctx, cancel, nil); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.InfoContext(ctx, "Received shutdown signal")
	return a.Stop(ctx)
}

// performStartupHealthCheck logs components that are not ready yet. It never
// fails startup.
func (a *Application) performStartupHealthCheck(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status := a.HealthService.ReadinessCheck(checkCtx)
	if status.Status != "ready" {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.Any("services", status.Services))
		return
	}
	a.Logger.InfoContext(ctx, "Startup health check passed")
}
