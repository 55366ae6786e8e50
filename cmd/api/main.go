package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	_ "github.com/ghuser/bookcatalog/docs/swagger"
	catalogmigrations "github.com/ghuser/bookcatalog/migrations/catalog"
	"github.com/ghuser/bookcatalog/pkg/app"
	"github.com/ghuser/bookcatalog/pkg/cache"
	"github.com/ghuser/bookcatalog/pkg/config"
	"github.com/ghuser/bookcatalog/pkg/database"
	"github.com/ghuser/bookcatalog/pkg/events"
	"github.com/ghuser/bookcatalog/pkg/httpx"
	"github.com/ghuser/bookcatalog/pkg/logger"
	"github.com/ghuser/bookcatalog/pkg/migrator"
	"github.com/ghuser/bookcatalog/pkg/telemetry"
	catalogApi "github.com/ghuser/bookcatalog/services/catalog/application/api"
)

// @title			Book Catalog API
// @version		1.0
// @description	Authors and books with referential consistency between them.
// @license.name	MIT
// @license.url	https://opensource.org/licenses/MIT
// @host			localhost:8080
// @BasePath		/api
// @schemes		http https
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := config.ValidateForProduction(cfg); err != nil {
		slog.Error("production config validation failed", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg)
	slog.SetDefault(log.ToSlog())

	// Telemetry: OTel tracing + metrics
	ctx := context.Background()
	otelShutdown, metricsHandler, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Error("failed to setup otel", "error", err)
		os.Exit(1)
	}
	defer otelShutdown(ctx) //nolint:errcheck

	// Crash reporting: Sentry (optional, log and continue on failure)
	if err := telemetry.SetupSentry(cfg); err != nil {
		log.Warn("failed to setup sentry, continuing without crash reporting", "error", err)
	}
	defer telemetry.SentryFlush()

	appConfig := &app.Application{Config: cfg, Logger: log}
	health := httpx.HealthChecks{Storage: cfg.StorageDriver}

	if cfg.UsesPostgres() {
		pool, err := database.NewPool(ctx, cfg, log)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1) //nolint:gocritic // intentional: startup failure, deferred flushes are best-effort
		}
		defer pool.Close()
		log.Info("database pool connected")

		if cfg.AutoMigrate {
			if err := migrator.RunMigrations(ctx, pool.DB(), catalogmigrations.FS, log); err != nil {
				log.Error("migrations failed", "error", err)
				os.Exit(1) //nolint:gocritic
			}
		}

		eventBus, err := events.New(cfg, log, events.WithOutbox())
		if err != nil {
			log.Error("failed to setup event bus", "error", err)
			os.Exit(1) //nolint:gocritic
		}
		defer eventBus.Close() //nolint:errcheck

		if err := eventBus.StartForwarder(ctx); err != nil {
			log.Error("failed to start event forwarder", "error", err)
			os.Exit(1) //nolint:gocritic
		}

		appConfig.Db, appConfig.EventBus = pool, eventBus
		health.Database, health.EventBus = pool, eventBus
	} else {
		log.Warn("using in-memory storage, data is lost on restart")
	}

	redisClient, err := cache.Connect(ctx, cfg)
	switch {
	case errors.Is(err, cache.ErrDisabled):
		log.Info("redis not configured, books-by-author cache disabled")
	case err != nil:
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1) //nolint:gocritic // intentional: startup failure
	default:
		defer redisClient.Close() //nolint:errcheck
		appConfig.Redis = redisClient
		health.Redis = redisClient
		log.Info("redis connected")
	}

	r := httpx.NewRouter(
		httpx.ServerConfig{
			ServiceName:        cfg.ServiceName,
			IsDevelopment:      cfg.Environment == config.EnvDevelopment,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
			RateLimit:          cfg.HTTPRateLimit,
			MaxBodyBytes:       cfg.HTTPMaxBodyBytes,
			HandlerTimeout:     cfg.HTTPHandlerTimeout,
		},
		httpx.Instrumentation{
			Recovery: logger.Recovery(log),
			Sentry:   telemetry.SentryMiddleware(),
			Tracing:  otelhttp.NewMiddleware(cfg.ServiceName),
			Logger:   logger.Middleware(log),
		},
	)

	r.Get("/health", httpx.HealthHandler(health))
	r.Get("/metrics", metricsHandler.ServeHTTP)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	var routeErr error
	r.Route("/api", func(r chi.Router) {
		routeErr = registerRoutes(r, appConfig)
	})
	if routeErr != nil {
		log.Error("failed to register routes", "error", routeErr)
		os.Exit(1) //nolint:gocritic
	}

	srv := httpx.NewServer(cfg.HTTPAddr, r, cfg.HTTPHandlerTimeout)

	go func() {
		log.Info("server listening", "addr", srv.Addr, "env", cfg.Environment, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// registerRoutes mounts all service routes under /api.
// Add each new service's route function here.
func registerRoutes(r chi.Router, a *app.Application) error {
	return catalogApi.CatalogRoutes(r, a)
}
