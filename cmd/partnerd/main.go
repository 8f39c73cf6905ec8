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

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/partnerdesk/internal/app"
	"github.com/odyssey-erp/partnerdesk/internal/collection"
	"github.com/odyssey-erp/partnerdesk/internal/observability"
	"github.com/odyssey-erp/partnerdesk/internal/partners"
	"github.com/odyssey-erp/partnerdesk/internal/platform/cache"
	"github.com/odyssey-erp/partnerdesk/jobs"
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
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("partnerd", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	repos, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer repos.close()

	metrics := observability.NewMetrics()

	var (
		publisher  collection.Publisher
		caches     = make(map[partners.Kind]collection.ListCache)
		jobHandler = jobs.NewHandler(nil, logger)
	)
	if cfg.RedisAddr != "" {
		redisClient, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		for _, schema := range partners.Schemas() {
			caches[schema.Kind] = cache.NewVersioned(redisClient, "partners:"+string(schema.Kind), cfg.CacheTTL)
		}

		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		jobsClient, err := jobs.NewClient(redisOpts)
		if err != nil {
			return err
		}
		defer func() {
			if err := jobsClient.Close(); err != nil {
				logger.Warn("jobs client close", slog.Any("error", err))
			}
		}()
		publisher = jobsClient

		inspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	} else {
		logger.Info("REDIS_ADDR empty, list cache and change events disabled")
	}

	handlers := make([]*collection.Handler, 0, len(partners.Schemas()))
	for _, schema := range partners.Schemas() {
		svcCfg := collection.ServiceConfig{
			Schema:  schema,
			Repo:    repos.byKind[schema.Kind],
			Metrics: metrics,
			Logger:  logger,
		}
		if c, ok := caches[schema.Kind]; ok {
			svcCfg.Cache = c
		}
		if publisher != nil {
			svcCfg.Publisher = publisher
		}
		svc, err := collection.NewService(svcCfg)
		if err != nil {
			return err
		}
		handlers = append(handlers, collection.NewHandler(svc, logger))
	}

	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		Metrics:     metrics,
		Collections: handlers,
		JobHandler:  jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
