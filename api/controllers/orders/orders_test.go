package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/fastbag-backend/api/middleware"
	deliverysvc "github.com/angelmondragon/fastbag-backend/internal/delivery"
	ordersvc "github.com/angelmondragon/fastbag-backend/internal/orders"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
	"github.com/angelmondragon/fastbag-backend/pkg/pagination"
)

type stubOrders struct {
	view     *ordersvc.OrderView
	page     *pagination.Page[ordersvc.OrderView]
	err      error
	actor    ordersvc.Actor
	itemID   uuid.UUID
	reason   string
	status   enums.ItemStatus
	params   pagination.Params
	filters  ordersvc.Filters
	vendorID uuid.UUID
	called   string
}

func (s *stubOrders) Get(_ context.Context, actor ordersvc.Actor, _ uuid.UUID) (*ordersvc.OrderView, error) {
	s.called, s.actor = "get", actor
	return s.view, s.err
}

func (s *stubOrders) ListForUser(_ context.Context, _ uuid.UUID, params pagination.Params, filters ordersvc.Filters) (*pagination.Page[ordersvc.OrderView], error) {
	s.called, s.params, s.filters = "list_user", params, filters
	return s.page, s.err
}

func (s *stubOrders) ListForVendor(_ context.Context, vendorID uuid.UUID, params pagination.Params, filters ordersvc.Filters) (*pagination.Page[ordersvc.OrderView], error) {
	s.called, s.vendorID, s.params, s.filters = "list_vendor", vendorID, params, filters
	return s.page, s.err
}

func (s *stubOrders) CancelItem(_ context.Context, actor ordersvc.Actor, _, itemID uuid.UUID, reason string) (*ordersvc.OrderView, error) {
	s.called, s.actor, s.itemID, s.reason = "cancel_item", actor, itemID, reason
	return s.view, s.err
}

func (s *stubOrders) CancelOrder(_ context.Context, actor ordersvc.Actor, _ uuid.UUID, reason string) (*ordersvc.OrderView, error) {
	s.called, s.actor, s.reason = "cancel_order", actor, reason
	return s.view, s.err
}

func (s *stubOrders) ReturnItem(_ context.Context, actor ordersvc.Actor, _, itemID uuid.UUID, reason string) (*ordersvc.OrderView, error) {
	s.called, s.actor, s.itemID, s.reason = "return_item", actor, itemID, reason
	return s.view, s.err
}

func (s *stubOrders) UpdateItemStatus(_ context.Context, actor ordersvc.Actor, _, itemID uuid.UUID, status enums.ItemStatus, reason string) (*ordersvc.OrderView, error) {
	s.called, s.actor, s.itemID, s.status, s.reason = "item_status", actor, itemID, status, reason
	return s.view, s.err
}

func (s *stubOrders) AdvanceOrder(_ context.Context, actor ordersvc.Actor, _ uuid.UUID, status enums.ItemStatus, reason string) (*ordersvc.OrderView, error) {
	s.called, s.actor, s.status, s.reason = "advance", actor, status, reason
	return s.view, s.err
}

func (s *stubOrders) ExpireUnpaid(context.Context, time.Time, int) (int, error) {
	return 0, nil
}

type stubBroadcaster struct {
	deliverysvc.Service
	result *deliverysvc.BroadcastResult
	err    error
	calls  int
}

func (s *stubBroadcaster) Broadcast(_ context.Context, orderID uuid.UUID) (*deliverysvc.BroadcastResult, error) {
	s.calls++
	if s.result != nil {
		s.result.OrderID = orderID
	}
	return s.result, s.err
}

func newRequest(method, target, body string, id middleware.Identity, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := middleware.WithIdentity(req.Context(), id)
	rc := chi.NewRouteContext()
	for k, v := range params {
		rc.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(ctx, chi.RouteCtxKey, rc))
}

func customer() middleware.Identity {
	return middleware.Identity{UserID: uuid.NewString(), Role: string(enums.RoleCustomer)}
}

func vendor() middleware.Identity {
	return middleware.Identity{UserID: uuid.NewString(), Role: string(enums.RoleVendor), VendorID: uuid.NewString()}
}

func sampleView() *ordersvc.OrderView {
	return &ordersvc.OrderView{ID: uuid.New(), OrderID: "FB-01J0000001", OrderStatus: enums.OrderStatusConfirmed}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body struct {
		Error map[string]any `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestListParsesFilters(t *testing.T) {
	svc := &stubOrders{page: &pagination.Page[ordersvc.OrderView]{Items: []ordersvc.OrderView{*sampleView()}}}
	req := newRequest(http.MethodGet, "/api/v1/orders?limit=10&order_status=CONFIRMED&payment_status=paid&date_from=2026-01-01&date_to=2026-01-31", "", customer(), nil)
	rec := httptest.NewRecorder()

	List(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "list_user", svc.called)
	assert.Equal(t, 10, svc.params.Limit)
	require.NotNil(t, svc.filters.OrderStatus)
	assert.Equal(t, enums.OrderStatusConfirmed, *svc.filters.OrderStatus)
	require.NotNil(t, svc.filters.PaymentStatus)
	assert.Equal(t, enums.PaymentStatusPaid, *svc.filters.PaymentStatus)
	require.NotNil(t, svc.filters.DateTo)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), *svc.filters.DateTo)
}

func TestListRejectsBadFilters(t *testing.T) {
	cases := map[string]string{
		"status":   "/api/v1/orders?order_status=lost",
		"date":     "/api/v1/orders?date_from=01-01-2026",
		"reversed": "/api/v1/orders?date_from=2026-02-01&date_to=2026-01-01",
		"limit":    "/api/v1/orders?limit=1000",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubOrders{}
			rec := httptest.NewRecorder()
			List(svc, nil).ServeHTTP(rec, newRequest(http.MethodGet, target, "", customer(), nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, svc.called)
		})
	}
}

func TestListRequiresUser(t *testing.T) {
	rec := httptest.NewRecorder()
	List(&stubOrders{}, nil).ServeHTTP(rec, newRequest(http.MethodGet, "/api/v1/orders", "", middleware.Identity{}, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDetailMapsNotFound(t *testing.T) {
	svc := &stubOrders{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	req := newRequest(http.MethodGet, "/api/v1/orders/x", "", customer(), map[string]string{"order_id": uuid.NewString()})
	rec := httptest.NewRecorder()

	Detail(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDetailRejectsBadID(t *testing.T) {
	svc := &stubOrders{}
	req := newRequest(http.MethodGet, "/api/v1/orders/x", "", customer(), map[string]string{"order_id": "nope"})
	rec := httptest.NewRecorder()

	Detail(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.called)
}

func TestCancelRequiresReason(t *testing.T) {
	bodies := map[string]string{
		"no body":      "",
		"blank reason": `{"reason":"   "}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			svc := &stubOrders{view: sampleView()}
			params := map[string]string{"order_id": uuid.NewString(), "item_id": uuid.NewString()}

			rec := httptest.NewRecorder()
			Cancel(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/orders/x/cancel", body, customer(), params))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Cancellation reason is required", decodeError(t, rec)["message"])

			rec = httptest.NewRecorder()
			CancelItem(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/orders/x/items/y/cancel", body, customer(), params))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, svc.called)
		})
	}
}

func TestReturnReasonIsOptional(t *testing.T) {
	svc := &stubOrders{view: sampleView()}
	req := newRequest(http.MethodPost, "/api/v1/orders/x/items/y/return", "", customer(),
		map[string]string{"order_id": uuid.NewString(), "item_id": uuid.NewString()})
	rec := httptest.NewRecorder()

	ReturnItem(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "return_item", svc.called)
	assert.Empty(t, svc.reason)
}

func TestCancelItemPassesReason(t *testing.T) {
	svc := &stubOrders{view: sampleView()}
	itemID := uuid.New()
	req := newRequest(http.MethodPost, "/api/v1/orders/x/items/y/cancel", `{"reason":"  changed my mind "}`, customer(),
		map[string]string{"order_id": uuid.NewString(), "item_id": itemID.String()})
	rec := httptest.NewRecorder()

	CancelItem(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancel_item", svc.called)
	assert.Equal(t, itemID, svc.itemID)
	assert.Equal(t, "changed my mind", svc.reason)
	assert.Equal(t, enums.RoleCustomer, svc.actor.Role)
}

func TestReturnItemStateConflict(t *testing.T) {
	svc := &stubOrders{err: pkgerrors.New(pkgerrors.CodeStateConflict, "item is not delivered")}
	req := newRequest(http.MethodPost, "/api/v1/orders/x/items/y/return", `{"reason":"damaged"}`, customer(),
		map[string]string{"order_id": uuid.NewString(), "item_id": uuid.NewString()})
	rec := httptest.NewRecorder()

	ReturnItem(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "return_item", svc.called)
}

func TestItemActionNilService(t *testing.T) {
	req := newRequest(http.MethodPost, "/api/v1/orders/x/items/y/cancel", "", customer(), nil)
	rec := httptest.NewRecorder()

	CancelItem(nil, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestVendorListUsesVendorContext(t *testing.T) {
	svc := &stubOrders{page: &pagination.Page[ordersvc.OrderView]{}}
	id := vendor()
	rec := httptest.NewRecorder()

	VendorList(svc, nil).ServeHTTP(rec, newRequest(http.MethodGet, "/api/v1/vendor/orders", "", id, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "list_vendor", svc.called)
	assert.Equal(t, id.VendorID, svc.vendorID.String())
	assert.Equal(t, pagination.DefaultLimit, svc.params.Limit)
}

func TestVendorListWithoutVendor(t *testing.T) {
	rec := httptest.NewRecorder()
	VendorList(&stubOrders{}, nil).ServeHTTP(rec, newRequest(http.MethodGet, "/api/v1/vendor/orders", "", customer(), nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestVendorAdvanceParsesStatus(t *testing.T) {
	svc := &stubOrders{view: sampleView()}
	id := vendor()
	req := newRequest(http.MethodPatch, "/api/v1/vendor/orders/x/status", `{"status":"PROCESSING"}`, id,
		map[string]string{"order_id": uuid.NewString()})
	rec := httptest.NewRecorder()

	VendorAdvance(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, enums.ItemStatusProcessing, svc.status)
	require.NotNil(t, svc.actor.VendorID)
	assert.Equal(t, id.VendorID, svc.actor.VendorID.String())
}

func TestVendorCancelStatusNeedsReason(t *testing.T) {
	params := map[string]string{"order_id": uuid.NewString(), "item_id": uuid.NewString()}

	svc := &stubOrders{view: sampleView()}
	rec := httptest.NewRecorder()
	VendorItemStatus(svc, nil).ServeHTTP(rec, newRequest(http.MethodPatch, "/api/v1/vendor/orders/x/items/y/status",
		`{"status":"cancelled"}`, vendor(), params))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = httptest.NewRecorder()
	VendorAdvance(svc, nil).ServeHTTP(rec, newRequest(http.MethodPatch, "/api/v1/vendor/orders/x/status",
		`{"status":"cancelled","reason":""}`, vendor(), params))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.called)

	rec = httptest.NewRecorder()
	VendorItemStatus(svc, nil).ServeHTTP(rec, newRequest(http.MethodPatch, "/api/v1/vendor/orders/x/items/y/status",
		`{"status":"cancelled","reason":" out of stock "}`, vendor(), params))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, enums.ItemStatusCancelled, svc.status)
	assert.Equal(t, "out of stock", svc.reason)
}

func TestVendorItemStatusRejectsUnknownStatus(t *testing.T) {
	svc := &stubOrders{}
	req := newRequest(http.MethodPatch, "/api/v1/vendor/orders/x/items/y/status", `{"status":"teleported"}`, vendor(),
		map[string]string{"order_id": uuid.NewString(), "item_id": uuid.NewString()})
	rec := httptest.NewRecorder()

	VendorItemStatus(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.called)
}

func TestVendorBroadcastChecksOwnership(t *testing.T) {
	orders := &stubOrders{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	delivery := &stubBroadcaster{result: &deliverysvc.BroadcastResult{}}
	req := newRequest(http.MethodPost, "/api/v1/vendor/orders/x/broadcast", "", vendor(), map[string]string{"order_id": uuid.NewString()})
	rec := httptest.NewRecorder()

	VendorBroadcast(orders, delivery, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, delivery.calls)
}

func TestVendorBroadcastReturnsCandidates(t *testing.T) {
	orders := &stubOrders{view: sampleView()}
	partner := uuid.New()
	delivery := &stubBroadcaster{result: &deliverysvc.BroadcastResult{Candidates: []uuid.UUID{partner}}}
	orderID := uuid.New()
	req := newRequest(http.MethodPost, "/api/v1/vendor/orders/x/broadcast", "", vendor(), map[string]string{"order_id": orderID.String()})
	rec := httptest.NewRecorder()

	VendorBroadcast(orders, delivery, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data deliverysvc.BroadcastResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, orderID, body.Data.OrderID)
	assert.Equal(t, []uuid.UUID{partner}, body.Data.Candidates)
}

func TestVendorBroadcastAlreadyTaken(t *testing.T) {
	orders := &stubOrders{view: sampleView()}
	delivery := &stubBroadcaster{err: pkgerrors.Reject(pkgerrors.ReasonAlreadyTaken, "order already accepted")}
	req := newRequest(http.MethodPost, "/api/v1/vendor/orders/x/broadcast", "", vendor(), map[string]string{"order_id": uuid.NewString()})
	rec := httptest.NewRecorder()

	VendorBroadcast(orders, delivery, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decodeError(t, rec)
	details, _ := errBody["details"].(map[string]any)
	assert.Equal(t, string(pkgerrors.ReasonAlreadyTaken), details["reason"])
}
