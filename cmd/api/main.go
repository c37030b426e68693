package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/farmlinker/farmlinker-backend/api/routes"
	"github.com/farmlinker/farmlinker-backend/internal/cron"
	"github.com/farmlinker/farmlinker-backend/internal/seed"
	"github.com/farmlinker/farmlinker-backend/internal/store"
	"github.com/farmlinker/farmlinker-backend/internal/store/gormstore"
	"github.com/farmlinker/farmlinker-backend/internal/store/memstore"
	"github.com/farmlinker/farmlinker-backend/pkg/config"
	"github.com/farmlinker/farmlinker-backend/pkg/db"
	"github.com/farmlinker/farmlinker-backend/pkg/logger"
	"github.com/farmlinker/farmlinker-backend/pkg/metrics"
	"github.com/farmlinker/farmlinker-backend/pkg/migrate"
	"github.com/farmlinker/farmlinker-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap store", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			_ = st.Close()
			os.Exit(1)
		}
	} else {
		logg.Warn(ctx, "redis disabled; auth rate limiting and idempotency keys are off")
	}

	defer func() {
		if err := closeAll(st, redisClient); err != nil {
			logg.Error(context.Background(), "error closing resources", err)
		}
	}()

	if cfg.FeatureFlags.SeedSampleData {
		result, err := seed.Run(ctx, st, cfg.Password)
		if err != nil {
			logg.Error(ctx, "failed to seed sample data", err)
			return
		}
		logg.Info(logg.WithFields(ctx, map[string]any{
			"users":    result.Users,
			"products": result.Products,
			"skipped":  result.Skipped,
		}), "sample data seeded")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	services, err := routes.BuildServices(cfg, st, metrics.NewOrderMetrics(reg))
	if err != nil {
		logg.Error(ctx, "failed to create services", err)
		return
	}

	if cfg.Cron.InProcess {
		scheduler, err := cron.NewScheduler(cron.SchedulerParams{
			Config:  cfg,
			Logger:  logg,
			Orders:  services.Orders,
			Redis:   redisClient,
			Metrics: metrics.NewCronJobMetrics(reg),
		})
		if err != nil {
			logg.Error(ctx, "failed to create scheduler", err)
			return
		}
		go func() {
			if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "scheduler stopped unexpectedly", err)
			}
		}()
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(serverCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:      cfg,
			Logger:      logg,
			Store:       st,
			Redis:       redisClient,
			Registry:    reg,
			HTTPMetrics: metrics.NewHTTPMetrics(reg),
			Services:    services,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
		}
		return
	case <-ctx.Done():
	}

	logg.Info(serverCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(serverCtx, "graceful shutdown failed", err)
	}
}

// openStore picks the in-memory store or the database-backed one.
func openStore(ctx context.Context, cfg *config.Config, logg *logger.Logger) (store.Store, error) {
	if cfg.FeatureFlags.UseMemoryStore {
		logg.Warn(ctx, "using in-memory store; data is lost on restart")
		return memstore.New(), nil
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, err
	}
	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return nil, multierr.Append(err, dbClient.Close())
	}
	st, err := gormstore.New(dbClient)
	if err != nil {
		return nil, multierr.Append(err, dbClient.Close())
	}
	return st, nil
}

func closeAll(st store.Store, redisClient *redis.Client) error {
	err := st.Close()
	if redisClient != nil {
		err = multierr.Append(err, redisClient.Close())
	}
	return err
}
