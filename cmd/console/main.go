package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/valhalla/console/internal/app"
	"github.com/valhalla/console/internal/auth"
	"github.com/valhalla/console/internal/observability"
	"github.com/valhalla/console/internal/platform/cache"
	"github.com/valhalla/console/internal/platform/db"
	"github.com/valhalla/console/internal/platform/valhalla"
	"github.com/valhalla/console/internal/rbac"
	rbachttp "github.com/valhalla/console/internal/rbac/http"
	"github.com/valhalla/console/internal/resources"
	"github.com/valhalla/console/internal/shared"
	"github.com/valhalla/console/internal/view"
	"github.com/valhalla/console/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()
	if applied, err := db.Migrate(ctx, dbpool, auth.AuditMigrations()); err != nil {
		logger.Error("migrate", slog.Any("error", err))
		os.Exit(1)
	} else if applied > 0 {
		logger.Info("applied migrations", slog.Int("count", applied))
	}

	redisOpts := cfg.RedisOptions()
	redisClient, err := cache.New(ctx, redisOpts)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	registry := rbac.DefaultRegistry()
	for _, warning := range registry.Warnings() {
		logger.Warn("feature registry", slog.String("warning", warning))
	}

	client := valhalla.NewClient(cfg.ValhallaAPIURL, cfg.ValhallaAPITimeout,
		valhalla.WithTokenSource(auth.OutgoingToken),
		valhalla.WithObserver(metrics),
	)
	pingCtx, cancelPing := context.WithTimeout(ctx, cfg.ValhallaAPITimeout)
	if err := client.Ping(pingCtx); err != nil {
		logger.Warn("valhalla api unreachable", slog.String("url", cfg.ValhallaAPIURL), slog.Any("error", err))
	}
	cancelPing()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}
	templates.SetLayout(app.LayoutFor(registry))

	guards := rbac.Middleware{
		Registry: registry,
		Subject:  auth.SubjectFromRequest,
		Logger:   logger,
		Recorder: metrics,
	}

	authService := auth.NewService(auth.ServiceConfig{
		Logger:     logger,
		Backend:    client,
		Cache:      auth.NewValidationCache(redisClient, cfg.SessionRevalidateInterval),
		Audit:      auth.NewAuditRepository(dbpool),
		Events:     metrics,
		SessionTTL: cfg.SessionTTL,
	})
	authHandler := auth.NewHandler(logger, templates, sessionManager, csrfManager, registry, guards, client)

	resourceService := resources.NewService(client, logger)
	resourcesHandler := resources.NewHandler(logger, resourceService, templates, csrfManager, registry, guards, resources.DefaultDefinitions())
	rbacHandler := rbachttp.NewHandler(logger, registry, templates, csrfManager, guards)

	inspector := asynq.NewInspector(redisOpts.AsynqOpts())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Templates:        templates,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		Registry:         registry,
		AuthService:      authService,
		AuthHandler:      authHandler,
		ResourcesHandler: resourcesHandler,
		RBACHandler:      rbacHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
