package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/farmlinker/farmlinker-backend/internal/cron"
	"github.com/farmlinker/farmlinker-backend/internal/orders"
	"github.com/farmlinker/farmlinker-backend/internal/store/gormstore"
	"github.com/farmlinker/farmlinker-backend/pkg/config"
	"github.com/farmlinker/farmlinker-backend/pkg/db"
	"github.com/farmlinker/farmlinker-backend/pkg/logger"
	"github.com/farmlinker/farmlinker-backend/pkg/metrics"
	"github.com/farmlinker/farmlinker-backend/pkg/migrate"
	"github.com/farmlinker/farmlinker-backend/pkg/redis"
)

const metricsAddrEnv = "FARMLINKER_CRON_METRICS_ADDR"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	if cfg.FeatureFlags.UseMemoryStore {
		logg.Error(context.Background(), "cron worker needs a database", errors.New("in-memory store is per process; use FARMLINKER_CRON_IN_PROCESS on the api instead"))
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	var redisClient *redis.Client
	defer func() {
		closeErr := dbClient.Close()
		if redisClient != nil {
			closeErr = multierr.Append(closeErr, redisClient.Close())
		}
		err = multierr.Append(err, closeErr)
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}
	if cfg.Redis.Enabled() {
		if redisClient, err = redis.New(ctx, cfg.Redis, logg); err != nil {
			return err
		}
	} else {
		logg.Warn(ctx, "redis disabled; run a single cron worker")
	}

	st, err := gormstore.New(dbClient)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	orderService, err := orders.NewService(orders.ServiceParams{
		Store:   st,
		Metrics: metrics.NewOrderMetrics(reg),
	})
	if err != nil {
		return err
	}
	scheduler, err := cron.NewScheduler(cron.SchedulerParams{
		Config:  cfg,
		Logger:  logg,
		Orders:  orderService,
		Redis:   redisClient,
		Metrics: metrics.NewCronJobMetrics(reg),
	})
	if err != nil {
		return err
	}

	if addr := os.Getenv(metricsAddrEnv); addr != "" {
		serveMetrics(ctx, logg, addr, reg)
	}

	logg.Info(ctx, "starting cron worker")
	return scheduler.Run(ctx)
}

// serveMetrics exposes the worker registry until ctx ends.
func serveMetrics(ctx context.Context, logg *logger.Logger, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}
