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

	"github.com/odyssey-erp/odyssey-reports/internal/accounting"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/ledger"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/runs"
	"github.com/odyssey-erp/odyssey-reports/internal/app"
	jobmetrics "github.com/odyssey-erp/odyssey-reports/internal/jobs"
	"github.com/odyssey-erp/odyssey-reports/internal/observability"
	"github.com/odyssey-erp/odyssey-reports/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-reports/internal/platform/db"
	"github.com/odyssey-erp/odyssey-reports/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN, 0)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	policy, err := cfg.OutstandingPolicy()
	if err != nil {
		logger.Error("outstanding policy", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	store := runs.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("ensure report run schema", slog.Any("error", err))
		os.Exit(1)
	}
	reportService := accounting.NewService(ledger.NewPostgresSource(pool), accounting.Options{
		Policy:             policy,
		Store:              store,
		Cache:              accounting.NewCache(redisClient, cfg.ReportCacheTTL),
		Locker:             accounting.NewLocker(redisClient, cfg.ReportLockTTL),
		Metrics:            accounting.NewMetrics(metrics.Registerer()),
		Logger:             logger,
		StrictTrialBalance: cfg.ReportStrictTrialBalance,
	})

	regenerateJob := jobs.NewRegenerateJob(reportService, cfg.ReportCompanies, logger, jobmetrics.NewMetrics(metrics.Registerer()))

	var cron []jobs.CronRegistration
	if cfg.ReportRegenerateCron != "" && len(cfg.ReportCompanies) > 0 {
		task, err := jobs.NewRegenerateTask(jobs.RegeneratePayload{})
		if err != nil {
			logger.Error("build regenerate task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{Spec: cfg.ReportRegenerateCron, Task: task})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReportsRegenerate, Handler: regenerateJob.Handle},
			{Type: jobs.TaskReportsInvalidate, Handler: regenerateJob.HandleInvalidate},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
		defer func() {
			_ = metricsServer.Close()
		}()
	}

	logger.Info("starting worker", slog.Int("companies", len(cfg.ReportCompanies)), slog.String("cron", cfg.ReportRegenerateCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
