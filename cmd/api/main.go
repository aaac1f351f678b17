package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/fastbag-backend/api/routes"
	"github.com/angelmondragon/fastbag-backend/internal/cart"
	"github.com/angelmondragon/fastbag-backend/internal/catalog"
	"github.com/angelmondragon/fastbag-backend/internal/checkout"
	"github.com/angelmondragon/fastbag-backend/internal/commissions"
	"github.com/angelmondragon/fastbag-backend/internal/coupons"
	"github.com/angelmondragon/fastbag-backend/internal/delivery"
	"github.com/angelmondragon/fastbag-backend/internal/notifications"
	"github.com/angelmondragon/fastbag-backend/internal/orders"
	"github.com/angelmondragon/fastbag-backend/internal/payments"
	"github.com/angelmondragon/fastbag-backend/pkg/config"
	"github.com/angelmondragon/fastbag-backend/pkg/db"
	"github.com/angelmondragon/fastbag-backend/pkg/gateway"
	"github.com/angelmondragon/fastbag-backend/pkg/geocode"
	"github.com/angelmondragon/fastbag-backend/pkg/logger"
	"github.com/angelmondragon/fastbag-backend/pkg/maps"
	"github.com/angelmondragon/fastbag-backend/pkg/metrics"
	"github.com/angelmondragon/fastbag-backend/pkg/migrate"
	"github.com/angelmondragon/fastbag-backend/pkg/outbox"
	"github.com/angelmondragon/fastbag-backend/pkg/redis"
)

func fatal(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(logg, "failed to load config", err)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		fatal(logg, "failed to bootstrap database", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		fatal(logg, "failed to run dev migrations", err)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		fatal(logg, "failed to bootstrap redis", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	marketMetrics := metrics.NewMarketplaceMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	gormDB := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)
	resolver := catalog.NewResolver()

	cartRepo := cart.NewRepository(gormDB)
	cartSvc, err := cart.NewService(dbClient, cartRepo, resolver)
	if err != nil {
		fatal(logg, "failed to create cart service", err)
	}

	couponSvc, err := coupons.NewService(coupons.NewRepository(gormDB))
	if err != nil {
		fatal(logg, "failed to create coupon service", err)
	}

	deliveryRepo := delivery.NewRepository(gormDB)
	deliveryOpts := []delivery.Option{delivery.WithMetrics(marketMetrics), delivery.WithLogger(logg)}
	if cfg.Geocode.APIKey != "" {
		mapsClient, err := maps.NewClient(cfg.Geocode.APIKey, maps.WithBaseURL(cfg.Geocode.BaseURL), maps.WithTimeout(cfg.Geocode.Timeout))
		if err != nil {
			fatal(logg, "failed to create maps client", err)
		}
		places, err := geocode.NewCachedResolver(mapsClient, redisClient, cfg.Geocode.CacheTTL, logg)
		if err != nil {
			fatal(logg, "failed to create geocode resolver", err)
		}
		deliveryOpts = append(deliveryOpts, delivery.WithPlaceNamer(places))
	} else {
		logg.Warn(context.Background(), "geocoding disabled: no maps api key")
	}
	deliverySvc, err := delivery.NewService(dbClient, deliveryRepo, outboxSvc, deliveryOpts...)
	if err != nil {
		fatal(logg, "failed to create delivery service", err)
	}

	checkoutOpts := []checkout.Option{
		checkout.WithMetrics(marketMetrics),
		checkout.WithLogger(logg),
		checkout.WithPinLength(cfg.Checkout.DeliveryPinLength),
	}
	if cfg.FeatureFlags.QuoteDeliveryCharge {
		quoter, err := delivery.NewChargeQuoter(deliveryRepo)
		if err != nil {
			fatal(logg, "failed to create charge quoter", err)
		}
		checkoutOpts = append(checkoutOpts, checkout.WithChargeQuoter(quoter))
	}
	if cfg.Payment.KeyID != "" {
		gw, err := gateway.NewClient(cfg.Payment)
		if err != nil {
			fatal(logg, "failed to create payment gateway", err)
		}
		checkoutOpts = append(checkoutOpts, checkout.WithGateway(gw))
	} else {
		logg.Warn(context.Background(), "payment gateway disabled: online checkouts will report a payment error")
	}
	checkoutSvc, err := checkout.NewService(
		dbClient,
		checkout.NewRepository(gormDB),
		cartRepo,
		couponSvc,
		resolver,
		outboxSvc,
		checkoutOpts...,
	)
	if err != nil {
		fatal(logg, "failed to create checkout service", err)
	}

	paymentSvc, err := payments.NewService(dbClient, payments.NewRepository(gormDB), cfg.Payment.KeySecret, outboxSvc, marketMetrics, logg)
	if err != nil {
		fatal(logg, "failed to create payment service", err)
	}

	ordersSvc, err := orders.NewService(orders.NewRepository(gormDB), dbClient, outboxSvc, resolver)
	if err != nil {
		fatal(logg, "failed to create orders service", err)
	}

	commissionSvc, err := commissions.NewService(dbClient, commissions.NewRepository(gormDB), marketMetrics, logg)
	if err != nil {
		fatal(logg, "failed to create commission service", err)
	}

	notificationsSvc, err := notifications.NewService(notifications.NewRepository(gormDB))
	if err != nil {
		fatal(logg, "failed to create notifications service", err)
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
			httpMetrics,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			cartSvc,
			checkoutSvc,
			couponSvc,
			paymentSvc,
			ordersSvc,
			deliverySvc,
			commissionSvc,
			notificationsSvc,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
