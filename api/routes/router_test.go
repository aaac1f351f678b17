package routes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/fastbag-backend/internal/cart"
	"github.com/angelmondragon/fastbag-backend/internal/commissions"
	"github.com/angelmondragon/fastbag-backend/internal/delivery"
	"github.com/angelmondragon/fastbag-backend/pkg/auth"
	"github.com/angelmondragon/fastbag-backend/pkg/config"
	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	"github.com/angelmondragon/fastbag-backend/pkg/logger"
	"github.com/angelmondragon/fastbag-backend/pkg/metrics"
	"github.com/angelmondragon/fastbag-backend/pkg/pagination"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubCartService struct{}

func (stubCartService) Add(context.Context, uuid.UUID, cart.AddLineInput) (*models.CartLine, error) {
	return nil, errors.New("not implemented")
}

func (stubCartService) SetQuantity(context.Context, uuid.UUID, uuid.UUID, int) (*models.CartLine, error) {
	return nil, errors.New("not implemented")
}

func (stubCartService) Remove(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

func (stubCartService) ListByUser(context.Context, uuid.UUID) ([]models.CartLine, error) {
	return []models.CartLine{}, nil
}

func (stubCartService) ListByVendor(context.Context, uuid.UUID, uuid.UUID) ([]models.CartLine, error) {
	return []models.CartLine{}, nil
}

func (stubCartService) GroupByVendor(context.Context, uuid.UUID) ([]cart.VendorBundle, error) {
	return []cart.VendorBundle{}, nil
}

type stubCommissionService struct{}

func (stubCommissionService) SettleOrder(context.Context, uuid.UUID) (*commissions.Settlement, error) {
	return &commissions.Settlement{}, nil
}

func (stubCommissionService) SettleDelivered(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (stubCommissionService) List(context.Context, commissions.ListFilter) ([]commissions.CommissionView, error) {
	return nil, nil
}

func (stubCommissionService) MarkPaid(context.Context, uuid.UUID, enums.CommissionStatus) (*commissions.CommissionView, error) {
	return nil, nil
}

type stubDeliveryService struct {
	delivery.Service
	authorized bool
}

func (s *stubDeliveryService) Authorize(context.Context, uuid.UUID, uuid.UUID) error {
	s.authorized = true
	return nil
}

func (s *stubDeliveryService) ListAssigned(context.Context, uuid.UUID, int) ([]delivery.AssignmentView, error) {
	return nil, nil
}

func (s *stubDeliveryService) ListNotifications(context.Context, uuid.UUID, pagination.Params) (*pagination.Page[delivery.NotificationView], error) {
	return &pagination.Page[delivery.NotificationView]{Items: []delivery.NotificationView{}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
		Cron: config.CronConfig{SettlementLookback: time.Hour},
	}
}

type routerDeps struct {
	ready    stubPinger
	delivery *stubDeliveryService
	registry *prometheus.Registry
}

func newTestRouter(cfg *config.Config, deps routerDeps) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	if deps.delivery == nil {
		deps.delivery = &stubDeliveryService{}
	}
	if deps.registry == nil {
		deps.registry = prometheus.NewRegistry()
	}
	return NewRouter(
		cfg,
		logg,
		deps.ready,
		nil, // *redis.Client
		metrics.NewHTTPMetrics(deps.registry),
		promhttp.HandlerFor(deps.registry, promhttp.HandlerOpts{}),
		stubCartService{},
		nil, // checkout
		nil, // coupons
		nil, // payments
		nil, // orders
		deps.delivery,
		stubCommissionService{},
		nil, // notifications
	)
}

func buildToken(t *testing.T, cfg *config.Config, payload auth.AccessTokenPayload) string {
	t.Helper()
	if payload.UserID == uuid.Nil {
		payload.UserID = uuid.New()
	}
	payload.JTI = ulid.Make().String()
	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), payload)
	require.NoError(t, err)
	return token
}

func do(t *testing.T, h http.Handler, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	cfg := testConfig()
	h := newTestRouter(cfg, routerDeps{})

	live := do(t, h, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, live.Code)
	assert.Equal(t, "test", live.Header().Get("X-FastBag-Env"))

	ready := do(t, h, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, ready.Code)
}

func TestReadinessFailsWhenDatabaseDown(t *testing.T) {
	h := newTestRouter(testConfig(), routerDeps{ready: stubPinger{err: errors.New("connection refused")}})

	rec := do(t, h, http.MethodGet, "/health/ready", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsExposeRoutePatterns(t *testing.T) {
	cfg := testConfig()
	h := newTestRouter(cfg, routerDeps{})
	partnerID := uuid.New()
	token := buildToken(t, cfg, auth.AccessTokenPayload{Role: enums.RoleDeliveryPartner, DeliveryBoyID: &partnerID})

	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/delivery/"+partnerID.String()+"/assigned", token).Code)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `route="/api/v1/delivery/{delivery_boy_id}/assigned"`)
	assert.NotContains(t, body, partnerID.String())
}

func TestAPIRejectsMissingJWT(t *testing.T) {
	h := newTestRouter(testConfig(), routerDeps{})

	for _, target := range []string{"/api/v1/cart", "/api/v1/orders", "/api/v1/vendor/orders", "/api/v1/admin/commissions", "/api/v1/delivery/charges/quote?km=1"} {
		rec := do(t, h, http.MethodGet, target, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
}

func TestCustomerRoutesRequireCustomerRole(t *testing.T) {
	cfg := testConfig()
	h := newTestRouter(cfg, routerDeps{})
	vendorID := uuid.New()
	vendorToken := buildToken(t, cfg, auth.AccessTokenPayload{Role: enums.RoleVendor, VendorID: &vendorID})
	customerToken := buildToken(t, cfg, auth.AccessTokenPayload{Role: enums.RoleCustomer})

	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodGet, "/api/v1/cart", vendorToken).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/cart", customerToken).Code)
}

func TestVendorRoutesRequireVendorRole(t *testing.T) {
	cfg := testConfig()
	h := newTestRouter(cfg, routerDeps{})
	customerToken := buildToken(t, cfg, auth.AccessTokenPayload{Role: enums.RoleCustomer})

	rec := do(t, h, http.MethodGet, "/api/v1/vendor/orders", customerToken)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	cfg := testConfig()
	h := newTestRouter(cfg, routerDeps{})
	customerToken := buildToken(t, cfg, auth.AccessTokenPayload{Role: enums.RoleCustomer})
	adminToken := buildToken(t, cfg, auth.AccessTokenPayload{Role: enums.RoleAdmin})

	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodGet, "/api/v1/admin/commissions", customerToken).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/admin/commissions", adminToken).Code)
}

func TestDeliveryRoutesRequirePartner(t *testing.T) {
	cfg := testConfig()
	deliverySvc := &stubDeliveryService{}
	h := newTestRouter(cfg, routerDeps{delivery: deliverySvc})
	partnerID := uuid.New()
	partnerToken := buildToken(t, cfg, auth.AccessTokenPayload{Role: enums.RoleDeliveryPartner, DeliveryBoyID: &partnerID})
	customerToken := buildToken(t, cfg, auth.AccessTokenPayload{Role: enums.RoleCustomer})
	target := "/api/v1/delivery/" + partnerID.String() + "/assigned"

	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodGet, target, customerToken).Code)
	assert.False(t, deliverySvc.authorized)

	rec := do(t, h, http.MethodGet, target, partnerToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, deliverySvc.authorized)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestPartnerNotificationsRoute(t *testing.T) {
	cfg := testConfig()
	h := newTestRouter(cfg, routerDeps{})
	partnerID := uuid.New()
	token := buildToken(t, cfg, auth.AccessTokenPayload{Role: enums.RoleDeliveryPartner, DeliveryBoyID: &partnerID})

	rec := do(t, h, http.MethodGet, "/api/v1/delivery/"+partnerID.String()+"/notifications", token)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnwiredServiceReturnsInternalError(t *testing.T) {
	cfg := testConfig()
	h := newTestRouter(cfg, routerDeps{})
	token := buildToken(t, cfg, auth.AccessTokenPayload{Role: enums.RoleCustomer})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/checkout", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestRouter(testConfig(), routerDeps{})
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/cart/checkout", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Idempotency-Key")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
