package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/wattly/wattly-backend/api/routes"
	"github.com/wattly/wattly-backend/internal/allocation"
	"github.com/wattly/wattly-backend/internal/auth"
	"github.com/wattly/wattly-backend/internal/ingest"
	"github.com/wattly/wattly-backend/internal/invoices"
	"github.com/wattly/wattly-backend/internal/orgs"
	"github.com/wattly/wattly-backend/internal/platformbilling"
	"github.com/wattly/wattly-backend/internal/tariffs"
	"github.com/wattly/wattly-backend/internal/users"
	"github.com/wattly/wattly-backend/pkg/auth/session"
	"github.com/wattly/wattly-backend/pkg/config"
	"github.com/wattly/wattly-backend/pkg/db"
	"github.com/wattly/wattly-backend/pkg/logger"
	"github.com/wattly/wattly-backend/pkg/migrate"
	"github.com/wattly/wattly-backend/pkg/outbox"
	"github.com/wattly/wattly-backend/pkg/redis"
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	orgsRepo := orgs.NewRepository(dbClient.DB())
	orgsService, err := orgs.NewService(orgsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create orgs service", err)
		os.Exit(1)
	}

	allocationService, err := allocation.NewService(allocation.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create allocation service", err)
		os.Exit(1)
	}

	ingestService, err := ingest.NewService(ingest.ServiceParams{
		Repo:      ingest.NewRepository(dbClient.DB()),
		OrgsRepo:  orgsRepo,
		Tx:        dbClient,
		Allocator: allocationService,
		Outbox:    outboxService,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ingest service", err)
		os.Exit(1)
	}

	tariffsService, err := tariffs.NewService(tariffs.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create tariffs service", err)
		os.Exit(1)
	}

	invoicesService, err := invoices.NewService(invoices.ServiceParams{
		Repo:       invoices.NewRepository(dbClient.DB()),
		Tariffs:    tariffsService,
		Aggregates: allocation.NewRepository(dbClient.DB()),
		Orgs:       orgsRepo,
		Tx:         dbClient,
		Outbox:     outboxService,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create invoices service", err)
		os.Exit(1)
	}

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

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, routes.Services{
			Auth:            authService,
			Orgs:            orgsService,
			Ingest:          ingestService,
			Allocation:      allocationService,
			Tariffs:         tariffsService,
			Invoices:        invoicesService,
			PlatformBilling: platformService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
