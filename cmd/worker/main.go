package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/odyssey-erp/partnerdesk/internal/app"
	jobmetrics "github.com/odyssey-erp/partnerdesk/internal/jobs"
	"github.com/odyssey-erp/partnerdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
	if cfg.RedisAddr == "" {
		logger.Error("REDIS_ADDR must be set for the worker")
		os.Exit(1)
	}
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}

	if len(os.Args) > 1 && os.Args[1] == "stats" {
		if err := printQueueStats(ctx, redisOpts, os.Stdout); err != nil {
			logger.Error("queue stats", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	worker, err := newWorker(redisOpts, logger, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func newWorker(redisOpts asynq.RedisClientOpt, logger *slog.Logger, registerer prometheus.Registerer) (*jobs.Worker, error) {
	changes := jobs.NewRecordChangedJob(logger, jobmetrics.NewMetrics(registerer))
	return jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRecordChanged, Handler: changes.Handle},
		},
	})
}
