package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/fastbag-backend/api/middleware"
	checkoutsvc "github.com/angelmondragon/fastbag-backend/internal/checkout"
	couponsvc "github.com/angelmondragon/fastbag-backend/internal/coupons"
	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
	"github.com/angelmondragon/fastbag-backend/pkg/gateway"
)

type stubCheckout struct {
	result *checkoutsvc.Result
	err    error
	input  checkoutsvc.Input
	calls  int
}

func (s *stubCheckout) Execute(_ context.Context, _ uuid.UUID, input checkoutsvc.Input) (*checkoutsvc.Result, error) {
	s.calls++
	s.input = input
	return s.result, s.err
}

type stubCoupons struct {
	eval  *couponsvc.Evaluation
	err   error
	input couponsvc.EvaluateInput
}

func (s *stubCoupons) Evaluate(context.Context, *gorm.DB, couponsvc.EvaluateInput) (*couponsvc.Evaluation, error) {
	return s.eval, s.err
}

func (s *stubCoupons) Preview(_ context.Context, input couponsvc.EvaluateInput) (*couponsvc.Evaluation, error) {
	s.input = input
	return s.eval, s.err
}

func (s *stubCoupons) RecordUsage(context.Context, *gorm.DB, uuid.UUID, uuid.UUID, uuid.UUID) error {
	return nil
}

func request(target, body string, params map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	ctx := middleware.WithIdentity(req.Context(), middleware.Identity{UserID: uuid.NewString(), Role: string(enums.RoleCustomer)})
	rc := chi.NewRouteContext()
	for k, v := range params {
		rc.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(ctx, chi.RouteCtxKey, rc))
}

func placedResult(method enums.PaymentMethod) *checkoutsvc.Result {
	order := &models.Order{
		ID:            uuid.New(),
		OrderID:       "FB-01J0000000",
		PaymentMethod: method,
		PaymentStatus: enums.PaymentStatusPending,
		OrderStatus:   enums.OrderStatusPending,
		FinalAmount:   decimal.RequireFromString("540.00"),
		DeliveryPin:   "123456",
		Items: []models.OrderItem{
			{ID: uuid.New(), Quantity: 2, PricePerUnit: decimal.RequireFromString("250"), Subtotal: decimal.RequireFromString("500")},
		},
	}
	return &checkoutsvc.Result{
		Checkout: &models.Checkout{ID: uuid.New(), OrderID: order.OrderID},
		Order:    order,
	}
}

func TestCheckoutCreatesOrder(t *testing.T) {
	addressID := uuid.New()
	svc := &stubCheckout{result: placedResult(enums.PaymentMethodCOD)}

	body := `{"address_id":"` + addressID.String() + `","payment_method":"COD","coupon_code":" SAVE10 ","delivery_charge":"40.00"}`
	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, request("/api/v1/cart/checkout", body, nil))

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, addressID, svc.input.AddressID)
	assert.Equal(t, enums.PaymentMethodCOD, svc.input.PaymentMethod)
	assert.Equal(t, "SAVE10", svc.input.CouponCode)
	require.NotNil(t, svc.input.DeliveryCharge)
	assert.True(t, svc.input.DeliveryCharge.Equal(decimal.RequireFromString("40")))
	assert.Nil(t, svc.input.VendorID)

	var envelope struct {
		Data Response `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "FB-01J0000000", envelope.Data.OrderID)
	require.NotNil(t, envelope.Data.Order)
	assert.Equal(t, "123456", envelope.Data.Order.DeliveryPin)
	assert.Equal(t, 2, envelope.Data.Order.ItemCount)
}

func TestVendorCheckoutScopesToVendor(t *testing.T) {
	vendorID := uuid.New()
	result := placedResult(enums.PaymentMethodOnline)
	result.Payment = &gateway.RemoteOrder{Ref: "order_abc", AmountMinor: 54000, Currency: "INR", KeyID: "key"}
	svc := &stubCheckout{result: result}

	body := `{"address_id":"` + uuid.NewString() + `","payment_method":"online"}`
	resp := httptest.NewRecorder()
	VendorCheckout(svc, nil).ServeHTTP(resp, request("/api/v1/cart/vendor/"+vendorID.String()+"/checkout", body, map[string]string{"vendor_id": vendorID.String()}))

	require.Equal(t, http.StatusCreated, resp.Code)
	require.NotNil(t, svc.input.VendorID)
	assert.Equal(t, vendorID, *svc.input.VendorID)
	assert.Nil(t, svc.input.DeliveryCharge)
	assert.Contains(t, resp.Body.String(), `"gateway_order_ref":"order_abc"`)
}

func TestCheckoutRejectsBadPayload(t *testing.T) {
	cases := map[string]string{
		"missing address": `{"payment_method":"cod"}`,
		"bad method":      `{"address_id":"` + uuid.NewString() + `","payment_method":"barter"}`,
		"negative charge": `{"address_id":"` + uuid.NewString() + `","payment_method":"cod","delivery_charge":-5}`,
	}
	for name, body := range cases {
		svc := &stubCheckout{}
		resp := httptest.NewRecorder()
		Checkout(svc, nil).ServeHTTP(resp, request("/api/v1/cart/checkout", body, nil))
		assert.Equal(t, http.StatusBadRequest, resp.Code, name)
		assert.Zero(t, svc.calls, name)
	}
}

func TestCheckoutSurfacesEmptyCart(t *testing.T) {
	svc := &stubCheckout{err: pkgerrors.Reject(pkgerrors.ReasonCartEmpty, "Your cart is empty")}
	body := `{"address_id":"` + uuid.NewString() + `","payment_method":"cod"}`
	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, request("/api/v1/cart/checkout", body, nil))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), `"reason":"cart_empty"`)
}

func TestApplyCouponPreview(t *testing.T) {
	vendorID := uuid.New()
	svc := &stubCoupons{eval: &couponsvc.Evaluation{
		Coupon:   &models.Coupon{ID: uuid.New(), Code: "SAVE10", DiscountType: enums.DiscountTypePercentage},
		Discount: decimal.RequireFromString("50"),
	}}

	body := `{"code":"SAVE10","amount":"500","vendor_id":"` + vendorID.String() + `"}`
	resp := httptest.NewRecorder()
	ApplyCoupon(svc, nil).ServeHTTP(resp, request("/api/v1/coupons/apply", body, nil))

	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, svc.input.VendorID)
	assert.Equal(t, vendorID, *svc.input.VendorID)

	var envelope struct {
		Data CouponPreview `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.True(t, envelope.Data.FinalAmount.Equal(decimal.RequireFromString("450")))
}

func TestApplyCouponRejection(t *testing.T) {
	svc := &stubCoupons{err: pkgerrors.Reject(pkgerrors.ReasonCouponMinOrder, "Minimum order amount is 999")}
	resp := httptest.NewRecorder()
	ApplyCoupon(svc, nil).ServeHTTP(resp, request("/api/v1/coupons/apply", `{"code":"BIG","amount":"100"}`, nil))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), `"reason":"coupon_min_order"`)
}
