package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wattly/wattly-backend/internal/cron"
	"github.com/wattly/wattly-backend/internal/invoices"
	"github.com/wattly/wattly-backend/internal/orgs"
	"github.com/wattly/wattly-backend/internal/platformbilling"
	"github.com/wattly/wattly-backend/pkg/config"
	"github.com/wattly/wattly-backend/pkg/db"
	"github.com/wattly/wattly-backend/pkg/logger"
	"github.com/wattly/wattly-backend/pkg/metrics"
	"github.com/wattly/wattly-backend/pkg/migrate"
	"github.com/wattly/wattly-backend/pkg/outbox"
	"github.com/wattly/wattly-backend/pkg/redis"
)

const lockKeyFormat = "wattly:cron-worker:lock:%s"

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

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	orgsRepo := orgs.NewRepository(dbClient.DB())
	invoicesRepo := invoices.NewRepository(dbClient.DB())

	platformRates, err := platformbilling.RatesFromConfig(cfg.Billing)
	if err != nil {
		logg.Error(context.Background(), "invalid platform billing rates", err)
		os.Exit(1)
	}
	platformService, err := platformbilling.NewService(platformbilling.ServiceParams{
		Repo:   platformbilling.NewRepository(dbClient.DB()),
		Orgs:   orgsRepo,
		Tx:     dbClient,
		Outbox: outboxService,
		Logger: logg,
		Rates:  platformRates,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create platform billing service", err)
		os.Exit(1)
	}

	platformBillingJob, err := cron.NewPlatformBillingJob(cron.PlatformBillingJobParams{
		Logger:  logg,
		Billing: platformService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create platform billing job", err)
		os.Exit(1)
	}

	overdueJob, err := cron.NewOverdueJob(cron.OverdueJobParams{
		Logger:   logg,
		Invoices: invoicesRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create overdue job", err)
		os.Exit(1)
	}

	outboxRetentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()
	registry.Register(platformBillingJob)
	registry.Register(overdueJob)
	registry.Register(outboxRetentionJob)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
