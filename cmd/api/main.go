package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pumplink/pumplink-backend/api/routes"
	"github.com/pumplink/pumplink-backend/internal/deliveries"
	"github.com/pumplink/pumplink-backend/internal/ledger"
	"github.com/pumplink/pumplink-backend/internal/notifications"
	"github.com/pumplink/pumplink-backend/internal/pumps"
	"github.com/pumplink/pumplink-backend/internal/returns"
	"github.com/pumplink/pumplink-backend/internal/users"
	"github.com/pumplink/pumplink-backend/pkg/config"
	"github.com/pumplink/pumplink-backend/pkg/db"
	"github.com/pumplink/pumplink-backend/pkg/logger"
	"github.com/pumplink/pumplink-backend/pkg/metrics"
	"github.com/pumplink/pumplink-backend/pkg/migrate"
	"github.com/pumplink/pumplink-backend/pkg/outbox"
	"github.com/pumplink/pumplink-backend/pkg/redis"
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

	custodyMetrics := metrics.NewCustodyMetrics(prometheus.DefaultRegisterer)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	usersService, err := users.NewService(
		users.NewRepository(dbClient.DB()),
		dbClient,
		outboxService,
		redisClient,
		cfg.JWT,
		cfg.PIN,
		cfg.AuthRateLimit,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	pumpsService, err := pumps.NewService(pumps.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create pumps service", err)
		os.Exit(1)
	}

	deliveriesService, err := deliveries.NewService(
		deliveries.NewRepository(dbClient.DB()),
		dbClient,
		outboxService,
		custodyMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create deliveries service", err)
		os.Exit(1)
	}

	returnsService, err := returns.NewService(
		returns.NewRepository(dbClient.DB()),
		dbClient,
		outboxService,
		custodyMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create returns service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
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
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			usersService,
			pumpsService,
			deliveriesService,
			returnsService,
			ledgerService,
			notificationsService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
