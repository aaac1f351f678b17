package cart

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

	"github.com/angelmondragon/fastbag-backend/api/middleware"
	cartsvc "github.com/angelmondragon/fastbag-backend/internal/cart"
	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
)

type stubCartService struct {
	line      *models.CartLine
	lines     []models.CartLine
	bundles   []cartsvc.VendorBundle
	err       error
	lastAdd   cartsvc.AddLineInput
	lastQty   int
	lastUser  uuid.UUID
	removedID uuid.UUID
}

func (s *stubCartService) Add(_ context.Context, userID uuid.UUID, input cartsvc.AddLineInput) (*models.CartLine, error) {
	s.lastUser = userID
	s.lastAdd = input
	return s.line, s.err
}

func (s *stubCartService) SetQuantity(_ context.Context, userID, lineID uuid.UUID, qty int) (*models.CartLine, error) {
	s.lastQty = qty
	return s.line, s.err
}

func (s *stubCartService) Remove(_ context.Context, userID, lineID uuid.UUID) error {
	s.removedID = lineID
	return s.err
}

func (s *stubCartService) ListByUser(context.Context, uuid.UUID) ([]models.CartLine, error) {
	return s.lines, s.err
}

func (s *stubCartService) ListByVendor(context.Context, uuid.UUID, uuid.UUID) ([]models.CartLine, error) {
	return s.lines, s.err
}

func (s *stubCartService) GroupByVendor(context.Context, uuid.UUID) ([]cartsvc.VendorBundle, error) {
	return s.bundles, s.err
}

func customerRequest(method, target, body string, userID uuid.UUID, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := middleware.WithIdentity(req.Context(), middleware.Identity{UserID: userID.String(), Role: string(enums.RoleCustomer)})
	rc := chi.NewRouteContext()
	for k, v := range params {
		rc.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(ctx, chi.RouteCtxKey, rc))
}

func TestAddLineCreatesLine(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	svc := &stubCartService{line: &models.CartLine{
		ID:          uuid.New(),
		ProductType: enums.ProductTypeFashion,
		ProductID:   productID,
		Quantity:    2,
		UnitPrice:   decimal.RequireFromString("250.00"),
	}}

	body := `{"product_type":"clothing","product_id":"` + productID.String() + `","quantity":2,"color":" Red ","size":"M"}`
	resp := httptest.NewRecorder()
	AddLine(svc, nil).ServeHTTP(resp, customerRequest(http.MethodPost, "/api/v1/cart/add", body, userID, nil))

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, userID, svc.lastUser)
	assert.Equal(t, enums.ProductTypeFashion, svc.lastAdd.ProductType)
	assert.Equal(t, "Red", svc.lastAdd.Color)

	var envelope struct {
		Data Line `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.True(t, envelope.Data.Subtotal.Equal(decimal.RequireFromString("500")))
}

func TestAddLineRejectsUnknownProductType(t *testing.T) {
	svc := &stubCartService{}
	body := `{"product_type":"furniture","product_id":"` + uuid.NewString() + `","quantity":1}`
	resp := httptest.NewRecorder()
	AddLine(svc, nil).ServeHTTP(resp, customerRequest(http.MethodPost, "/api/v1/cart/add", body, uuid.New(), nil))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, uuid.Nil, svc.lastUser)
}

func TestAddLineSurfacesStockRejection(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.Reject(pkgerrors.ReasonInsufficientStock, "only 1 left")}
	body := `{"product_type":"grocery","product_id":"` + uuid.NewString() + `","quantity":3}`
	resp := httptest.NewRecorder()
	AddLine(svc, nil).ServeHTTP(resp, customerRequest(http.MethodPost, "/api/v1/cart/add", body, uuid.New(), nil))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), `"reason":"insufficient_stock"`)
	assert.Contains(t, resp.Body.String(), "only 1 left")
}

func TestAddLineRequiresUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/add", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	AddLine(&stubCartService{}, nil).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestGetSummarizesCart(t *testing.T) {
	svc := &stubCartService{lines: []models.CartLine{
		{ID: uuid.New(), Quantity: 2, UnitPrice: decimal.RequireFromString("10.50")},
		{ID: uuid.New(), Quantity: 1, UnitPrice: decimal.RequireFromString("4.00")},
	}}
	resp := httptest.NewRecorder()
	Get(svc, nil).ServeHTTP(resp, customerRequest(http.MethodGet, "/api/v1/cart", "", uuid.New(), nil))

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data Summary `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, 3, envelope.Data.ItemCount)
	assert.True(t, envelope.Data.Subtotal.Equal(decimal.RequireFromString("25")))
}

func TestVendorsRendersBundles(t *testing.T) {
	vendorID := uuid.New()
	svc := &stubCartService{bundles: []cartsvc.VendorBundle{{
		VendorID:   vendorID,
		VendorName: "Spice Hub",
		ItemCount:  1,
		Subtotal:   decimal.RequireFromString("120"),
		Lines:      []models.CartLine{{ID: uuid.New(), VendorID: vendorID, Quantity: 1, UnitPrice: decimal.RequireFromString("120")}},
	}}}
	resp := httptest.NewRecorder()
	Vendors(svc, nil).ServeHTTP(resp, customerRequest(http.MethodGet, "/api/v1/cart/vendors", "", uuid.New(), nil))

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data []Bundle `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "Spice Hub", envelope.Data[0].VendorName)
	require.Len(t, envelope.Data[0].Lines, 1)
}

func TestVendorLinesValidatesVendorID(t *testing.T) {
	resp := httptest.NewRecorder()
	VendorLines(&stubCartService{}, nil).ServeHTTP(resp, customerRequest(http.MethodGet, "/api/v1/cart/vendor/x", "", uuid.New(), map[string]string{"vendor_id": "x"}))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUpdateAndRemoveLine(t *testing.T) {
	lineID := uuid.New()
	svc := &stubCartService{line: &models.CartLine{ID: lineID, Quantity: 4, UnitPrice: decimal.RequireFromString("1")}}
	params := map[string]string{"line_id": lineID.String()}

	resp := httptest.NewRecorder()
	UpdateLine(svc, nil).ServeHTTP(resp, customerRequest(http.MethodPatch, "/api/v1/cart/lines/"+lineID.String(), `{"quantity":4}`, uuid.New(), params))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 4, svc.lastQty)

	resp = httptest.NewRecorder()
	RemoveLine(svc, nil).ServeHTTP(resp, customerRequest(http.MethodDelete, "/api/v1/cart/lines/"+lineID.String(), "", uuid.New(), params))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, lineID, svc.removedID)
}

func TestUpdateLineNotFound(t *testing.T) {
	lineID := uuid.New()
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")}
	resp := httptest.NewRecorder()
	UpdateLine(svc, nil).ServeHTTP(resp, customerRequest(http.MethodPatch, "/", `{"quantity":1}`, uuid.New(), map[string]string{"line_id": lineID.String()}))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
