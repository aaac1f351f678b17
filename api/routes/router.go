package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/fastbag-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/fastbag-backend/api/controllers/cart"
	checkoutcontrollers "github.com/angelmondragon/fastbag-backend/api/controllers/checkout"
	commissioncontrollers "github.com/angelmondragon/fastbag-backend/api/controllers/commissions"
	deliverycontrollers "github.com/angelmondragon/fastbag-backend/api/controllers/delivery"
	notificationcontrollers "github.com/angelmondragon/fastbag-backend/api/controllers/notifications"
	ordercontrollers "github.com/angelmondragon/fastbag-backend/api/controllers/orders"
	paymentcontrollers "github.com/angelmondragon/fastbag-backend/api/controllers/payments"
	"github.com/angelmondragon/fastbag-backend/api/middleware"
	"github.com/angelmondragon/fastbag-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/fastbag-backend/internal/checkout"
	"github.com/angelmondragon/fastbag-backend/internal/commissions"
	"github.com/angelmondragon/fastbag-backend/internal/coupons"
	"github.com/angelmondragon/fastbag-backend/internal/delivery"
	"github.com/angelmondragon/fastbag-backend/internal/notifications"
	"github.com/angelmondragon/fastbag-backend/internal/orders"
	"github.com/angelmondragon/fastbag-backend/internal/payments"
	"github.com/angelmondragon/fastbag-backend/pkg/config"
	"github.com/angelmondragon/fastbag-backend/pkg/db"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	"github.com/angelmondragon/fastbag-backend/pkg/logger"
	"github.com/angelmondragon/fastbag-backend/pkg/metrics"
	"github.com/angelmondragon/fastbag-backend/pkg/redis"
)

type counterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	couponService coupons.Service,
	paymentService payments.Service,
	ordersService orders.Service,
	deliveryService delivery.Service,
	commissionService commissions.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	var (
		idemStore redis.IdempotencyStore
		counters  counterStore
	)
	readiness := map[string]controllers.Pinger{}
	if dbP != nil {
		readiness["db"] = dbP
	}
	if redisClient != nil {
		idemStore = redisClient
		counters = redisClient
		readiness["redis"] = redisClient
	}

	// Idempotency is attached per route so the full route pattern is known.
	idempotent := middleware.Idempotency(idemStore, middleware.IdempotencyPolicy{CriticalTTL: cfg.Checkout.IdempotencyTTL}, logg)
	checkoutLimit := middleware.RateLimit(
		middleware.NewRateLimitPolicy("checkout", cfg.RateLimit.Window, cfg.RateLimit.IPLimit, cfg.RateLimit.UserLimit),
		counters,
		logg,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleCustomer))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.Get(cartService, logg))
				r.With(idempotent).Post("/add", cartcontrollers.AddLine(cartService, logg))
				r.Get("/vendors", cartcontrollers.Vendors(cartService, logg))
				r.Get("/vendor/{vendor_id}", cartcontrollers.VendorLines(cartService, logg))
				r.Patch("/lines/{line_id}", cartcontrollers.UpdateLine(cartService, logg))
				r.Delete("/lines/{line_id}", cartcontrollers.RemoveLine(cartService, logg))
				r.With(checkoutLimit, idempotent).Post("/checkout", checkoutcontrollers.Checkout(checkoutService, logg))
				r.With(checkoutLimit, idempotent).Post("/vendor/{vendor_id}/checkout", checkoutcontrollers.VendorCheckout(checkoutService, logg))
			})
			r.With(checkoutLimit).Post("/coupons/apply", checkoutcontrollers.ApplyCoupon(couponService, logg))
			r.With(checkoutLimit, idempotent).Post("/order-verify-payment", paymentcontrollers.Verify(paymentService, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(ordersService, logg))
				r.Get("/{order_id}", ordercontrollers.Detail(ordersService, logg))
				r.With(idempotent).Post("/{order_id}/cancel", ordercontrollers.Cancel(ordersService, logg))
				r.With(idempotent).Post("/{order_id}/items/{item_id}/cancel", ordercontrollers.CancelItem(ordersService, logg))
				r.With(idempotent).Post("/{order_id}/items/{item_id}/return", ordercontrollers.ReturnItem(ordersService, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleCustomer, enums.RoleVendor))
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationcontrollers.List(notificationsService, logg))
				r.Post("/read-all", notificationcontrollers.MarkAllRead(notificationsService, logg))
				r.Post("/{notification_id}/read", notificationcontrollers.MarkRead(notificationsService, logg))
			})
		})

		r.Route("/vendor/orders", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleVendor))
			r.Get("/", ordercontrollers.VendorList(ordersService, logg))
			r.Get("/{order_id}", ordercontrollers.Detail(ordersService, logg))
			r.Patch("/{order_id}/status", ordercontrollers.VendorAdvance(ordersService, logg))
			r.Patch("/{order_id}/items/{item_id}/status", ordercontrollers.VendorItemStatus(ordersService, logg))
			r.With(idempotent).Post("/{order_id}/broadcast", ordercontrollers.VendorBroadcast(ordersService, deliveryService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleDeliveryPartner))
			r.With(idempotent).Post("/accept_order/{delivery_boy_id}/{order_id}", deliverycontrollers.Accept(deliveryService, logg))
			r.With(idempotent).Post("/reject_order/{delivery_boy_id}/{order_id}", deliverycontrollers.Reject(deliveryService, logg))
			r.Route("/delivery/{delivery_boy_id}", func(r chi.Router) {
				r.Patch("/orders/{order_id}/status", deliverycontrollers.UpdateStatus(deliveryService, logg))
				r.Get("/assigned", deliverycontrollers.ListAssigned(deliveryService, logg))
				r.Get("/accepted", deliverycontrollers.ListAccepted(deliveryService, logg))
				r.Get("/rejected", deliverycontrollers.ListRejected(deliveryService, logg))
				r.Get("/notifications", deliverycontrollers.Notifications(deliveryService, logg))
				r.Post("/notifications/{notification_id}/read", deliverycontrollers.MarkNotificationRead(deliveryService, logg))
			})
		})

		// any authenticated role may price a delivery
		r.Get("/delivery/charges/quote", deliverycontrollers.ChargeQuote(deliveryService, logg))

		r.Route("/admin/commissions", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
			r.Get("/", commissioncontrollers.List(commissionService, logg))
			r.With(idempotent).Post("/settle", commissioncontrollers.Settle(commissionService, cfg.Cron.SettlementLookback, logg))
			r.Patch("/{commission_id}", commissioncontrollers.UpdateStatus(commissionService, logg))
		})
	})

	return r
}
