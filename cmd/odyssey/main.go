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
	"github.com/odyssey-erp/odyssey-reports/internal/observability"
	"github.com/odyssey-erp/odyssey-reports/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-reports/internal/platform/db"
	"github.com/odyssey-erp/odyssey-reports/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN, 0)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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
	reportCache := accounting.NewCache(redisClient, cfg.ReportCacheTTL)
	opts := accounting.Options{
		Policy:             policy,
		Cache:              reportCache,
		Locker:             accounting.NewLocker(redisClient, cfg.ReportLockTTL),
		Metrics:            accounting.NewMetrics(metrics.Registerer()),
		Logger:             logger,
		StrictTrialBalance: cfg.ReportStrictTrialBalance,
	}
	if cfg.ReportPersistRuns {
		store := runs.NewStore(dbpool)
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Error("ensure report run schema", slog.Any("error", err))
			os.Exit(1)
		}
		opts.Store = store
	}
	reportService := accounting.NewService(ledger.NewPostgresSource(dbpool), opts)
	reportHandler := accounting.NewHandler(logger, reportService, cfg.ReportExportRate)

	go reportCache.ListenForInvalidation(ctx)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		ReportsHandler: reportHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
		Dependencies: map[string]app.Pinger{
			"postgres": app.PingFunc(dbpool.Ping),
			"redis":    app.PingFunc(cache.Pinger(redisClient)),
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("policy", string(policy)))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
