package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/fastbag-backend/internal/broker"
	"github.com/angelmondragon/fastbag-backend/internal/commissions"
	"github.com/angelmondragon/fastbag-backend/internal/delivery"
	"github.com/angelmondragon/fastbag-backend/internal/dispatch"
	"github.com/angelmondragon/fastbag-backend/internal/notifications"
	"github.com/angelmondragon/fastbag-backend/pkg/config"
	"github.com/angelmondragon/fastbag-backend/pkg/db"
	"github.com/angelmondragon/fastbag-backend/pkg/instance"
	"github.com/angelmondragon/fastbag-backend/pkg/logger"
	"github.com/angelmondragon/fastbag-backend/pkg/metrics"
	"github.com/angelmondragon/fastbag-backend/pkg/outbox"
	"github.com/angelmondragon/fastbag-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/fastbag-backend/pkg/outbox/registry"
	"github.com/angelmondragon/fastbag-backend/pkg/push"
	"github.com/angelmondragon/fastbag-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	brokerClient, err := broker.Open(ctx, cfg, logg)
	requireResource(ctx, logg, "broker", err)
	defer func() {
		if err := brokerClient.Close(); err != nil {
			logg.Error(ctx, "error closing broker client", err)
		}
	}()

	eventRegistry, err := registry.NewEventRegistry(broker.Topic(cfg))
	requireResource(ctx, logg, "event registry", err)

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	marketMetrics := metrics.NewMarketplaceMetrics(prometheus.DefaultRegisterer)
	gormDB := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	deliverySvc, err := delivery.NewService(dbClient, delivery.NewRepository(gormDB), outboxSvc,
		delivery.WithMetrics(marketMetrics), delivery.WithLogger(logg))
	requireResource(ctx, logg, "delivery service", err)

	commissionSvc, err := commissions.NewService(dbClient, commissions.NewRepository(gormDB), marketMetrics, logg)
	requireResource(ctx, logg, "commission service", err)

	var sender push.Sender = push.NoopSender{}
	if cfg.FeatureFlags.PushEnabled {
		fcmSender, err := push.NewFCMSender(ctx, cfg.GCP, cfg.Push)
		requireResource(ctx, logg, "fcm sender", err)
		sender = fcmSender
	} else {
		logg.Warn(ctx, "push notifications disabled")
	}

	notifyListener, err := notifications.NewListener(notifications.NewRepository(gormDB), sender, logg)
	requireResource(ctx, logg, "notification listener", err)
	broadcastListener, err := dispatch.NewBroadcastListener(deliverySvc, logg)
	requireResource(ctx, logg, "broadcast listener", err)
	settlementListener, err := dispatch.NewSettlementListener(commissionSvc, logg)
	requireResource(ctx, logg, "settlement listener", err)

	dispatcher, err := dispatch.NewDispatcher(eventRegistry, manager, marketMetrics, logg,
		notifyListener, broadcastListener, settlementListener)
	requireResource(ctx, logg, "event dispatcher", err)

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Redis:      redisClient,
		Broker:     brokerClient,
		Dispatcher: dispatcher,
	})
	requireResource(ctx, logg, "worker service", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.ID(cfg.Service.Kind),
		"broker":      cfg.Eventing.BrokerName(),
	})
	logg.Info(runCtx, "starting worker")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
