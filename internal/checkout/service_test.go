package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/fastbag-backend/internal/cart"
	"github.com/angelmondragon/fastbag-backend/internal/catalog"
	"github.com/angelmondragon/fastbag-backend/internal/coupons"
	"github.com/angelmondragon/fastbag-backend/pkg/db"
	"github.com/angelmondragon/fastbag-backend/pkg/db/dbtest"
	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
	"github.com/angelmondragon/fastbag-backend/pkg/gateway"
	"github.com/angelmondragon/fastbag-backend/pkg/outbox"
	"github.com/angelmondragon/fastbag-backend/pkg/types"
)

type stubGateway struct {
	createFn func(ctx context.Context, input gateway.RemoteOrderInput) (*gateway.RemoteOrder, error)
}

func (s stubGateway) CreateRemoteOrder(ctx context.Context, input gateway.RemoteOrderInput) (*gateway.RemoteOrder, error) {
	return s.createFn(ctx, input)
}

type stubQuoter struct {
	charge   decimal.Decimal
	err      error
	distance float64
}

func (s *stubQuoter) QuoteCharge(_ context.Context, distanceKm float64, _ time.Time) (decimal.Decimal, error) {
	s.distance = distanceKm
	return s.charge, s.err
}

type countingMetrics struct {
	placed map[string]int
}

func (m *countingMetrics) OrderPlaced(method string) {
	if m.placed == nil {
		m.placed = map[string]int{}
	}
	m.placed[method]++
}

type fixture struct {
	client  *db.Client
	conn    *gorm.DB
	carts   cart.Service
	user    *models.User
	address *models.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return fixtureOn(t, dbtest.Open(t))
}

func fixtureOn(t *testing.T, client *db.Client) *fixture {
	t.Helper()
	conn := client.DB()
	carts, err := cart.NewService(client, cart.NewRepository(conn), catalog.NewResolver())
	require.NoError(t, err)
	user := dbtest.User(t, conn)
	return &fixture{
		client:  client,
		conn:    conn,
		carts:   carts,
		user:    user,
		address: dbtest.Address(t, conn, user.ID, dbtest.Float(12.9716), dbtest.Float(77.5946)),
	}
}

func (f *fixture) service(t *testing.T, opts ...Option) Service {
	t.Helper()
	couponSvc, err := coupons.NewService(coupons.NewRepository(f.conn))
	require.NoError(t, err)
	svc, err := NewService(
		f.client,
		NewRepository(f.conn),
		cart.NewRepository(f.conn),
		couponSvc,
		catalog.NewResolver(),
		outbox.NewService(outbox.NewRepository(f.conn), nil),
		opts...,
	)
	require.NoError(t, err)
	return svc
}

func (f *fixture) add(t *testing.T, input cart.AddLineInput) {
	t.Helper()
	_, err := f.carts.Add(context.Background(), f.user.ID, input)
	require.NoError(t, err)
}

func countRows(t *testing.T, conn *gorm.DB, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	q := conn.Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func TestExecuteMultiVendorWithCoupon(t *testing.T) {
	f := newFixture(t)
	vendorA := dbtest.Vendor(t, f.conn, "Threads", "10")
	vendorB := dbtest.Vendor(t, f.conn, "Loom", "10")
	shirt, shirtSize := dbtest.FashionSize(t, f.conn, vendorA.ID, "Red", "M", "500", 5)
	jeans, jeansSize := dbtest.FashionSize(t, f.conn, vendorB.ID, "Blue", "32", "1000", 3)
	dbtest.Create(t, f.conn, &models.Coupon{
		Code:           "FEST20",
		DiscountType:   enums.DiscountTypePercentage,
		DiscountValue:  dbtest.Money(t, "20"),
		MinOrderAmount: dbtest.Money(t, "500"),
		MaxDiscount:    func() *decimal.Decimal { d := dbtest.Money(t, "300"); return &d }(),
		ValidFrom:      time.Now().Add(-time.Hour),
		ValidTo:        time.Now().Add(time.Hour),
		UsageLimit:     1,
		IsActive:       true,
	})

	f.add(t, cart.AddLineInput{ProductType: enums.ProductTypeFashion, ProductID: shirt.ID, Quantity: 2, Variant: "Red-M"})
	f.add(t, cart.AddLineInput{ProductType: enums.ProductTypeFashion, ProductID: jeans.ID, Quantity: 1, Variant: "Blue-32"})

	metrics := &countingMetrics{}
	charge := dbtest.Money(t, "40")
	res, err := f.service(t, WithMetrics(metrics)).Execute(context.Background(), f.user.ID, Input{
		AddressID:      f.address.ID,
		PaymentMethod:  enums.PaymentMethodCOD,
		CouponCode:     "fest20",
		DeliveryCharge: &charge,
	})
	require.NoError(t, err)

	order := res.Order
	assert.True(t, strings.HasPrefix(order.OrderID, "ORD"))
	assert.Equal(t, order.OrderID, res.Checkout.OrderID)
	assert.True(t, res.Checkout.TotalAmount.Equal(dbtest.Money(t, "2000")))
	assert.True(t, res.Checkout.DiscountAmount.Equal(dbtest.Money(t, "300")))
	assert.True(t, res.Checkout.FinalAmount.Equal(dbtest.Money(t, "1740")))
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPending, order.OrderStatus)
	assert.Len(t, order.DeliveryPin, 6)
	require.Len(t, order.Items, 2)
	for _, item := range order.Items {
		assert.Equal(t, enums.ItemStatusPending, item.Status)
	}
	assert.Nil(t, res.Payment)
	assert.Equal(t, 1, metrics.placed["cod"])

	var size models.FashionSize
	require.NoError(t, f.conn.First(&size, "id = ?", shirtSize.ID).Error)
	assert.Equal(t, 3, size.Stock)
	require.NoError(t, f.conn.First(&size, "id = ?", jeansSize.ID).Error)
	assert.Equal(t, 2, size.Stock)

	assert.Zero(t, countRows(t, f.conn, &models.CartLine{}, "user_id = ?", f.user.ID))
	assert.EqualValues(t, 1, countRows(t, f.conn, &models.CouponUsage{}, "checkout_id = ?", res.Checkout.ID))
	assert.EqualValues(t, 2, countRows(t, f.conn, &models.CheckoutItem{}, "checkout_id = ?", res.Checkout.ID))
	assert.EqualValues(t, 1, countRows(t, f.conn, &models.OutboxEvent{}, "event_type = ? AND aggregate_id = ?", enums.EventOrderPlaced, order.ID))
}

func TestExecuteOversellRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	vendor := dbtest.Vendor(t, f.conn, "Threads", "10")
	shirt, size := dbtest.FashionSize(t, f.conn, vendor.ID, "Red", "M", "500", 2)
	// the line passed the stock check when added; stock dropped afterwards
	dbtest.Create(t, f.conn, &models.CartLine{
		UserID:      f.user.ID,
		VendorID:    vendor.ID,
		ProductType: enums.ProductTypeFashion,
		ProductID:   shirt.ID,
		ProductName: shirt.Name,
		Color:       "Red",
		Size:        "M",
		Variant:     "Red-M",
		Quantity:    3,
		UnitPrice:   dbtest.Money(t, "500"),
	})

	_, err := f.service(t).Execute(context.Background(), f.user.ID, Input{
		AddressID:     f.address.ID,
		PaymentMethod: enums.PaymentMethodCOD,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsRejected(err, pkgerrors.ReasonInsufficientStock))
	assert.Equal(t, "Insufficient stock for size M, available: 2", pkgerrors.As(err).Message())

	var after models.FashionSize
	require.NoError(t, f.conn.First(&after, "id = ?", size.ID).Error)
	assert.Equal(t, 2, after.Stock)
	assert.Zero(t, countRows(t, f.conn, &models.Checkout{}, ""))
	assert.Zero(t, countRows(t, f.conn, &models.Order{}, ""))
	assert.Zero(t, countRows(t, f.conn, &models.OutboxEvent{}, ""))
	assert.EqualValues(t, 1, countRows(t, f.conn, &models.CartLine{}, "user_id = ?", f.user.ID))
}

func TestConcurrentCheckoutsCannotOversell(t *testing.T) {
	f := fixtureOn(t, dbtest.OpenFile(t))
	vendor := dbtest.Vendor(t, f.conn, "FreshMart", "8")
	rice := dbtest.Grocery(t, f.conn, vendor.ID, types.NewListWeightTable(
		types.WeightOption{Label: "1kg", Price: dbtest.Money(t, "120"), Quantity: dbtest.Int(3)},
	))
	ctx := context.Background()

	shoppers := []*models.User{f.user, dbtest.User(t, f.conn)}
	addresses := []uuid.UUID{f.address.ID, dbtest.Address(t, f.conn, shoppers[1].ID, dbtest.Float(12.97), dbtest.Float(77.59)).ID}
	for _, u := range shoppers {
		_, err := f.carts.Add(ctx, u.ID, cart.AddLineInput{ProductType: enums.ProductTypeGrocery, ProductID: rice.ID, Quantity: 2, Variant: "1kg"})
		require.NoError(t, err)
	}

	svc := f.service(t)
	charge := decimal.Zero
	errs := make([]error, len(shoppers))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range shoppers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.Execute(ctx, shoppers[i].ID, Input{
				AddressID:      addresses[i],
				PaymentMethod:  enums.PaymentMethodCOD,
				DeliveryCharge: &charge,
			})
		}(i)
	}
	close(start)
	wg.Wait()

	placed, short := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			placed++
		case pkgerrors.IsRejected(err, pkgerrors.ReasonInsufficientStock):
			short++
		default:
			t.Fatalf("unexpected checkout error: %v", err)
		}
	}
	assert.Equal(t, 1, placed)
	assert.Equal(t, 1, short)

	var after models.GroceryProduct
	require.NoError(t, f.conn.First(&after, "id = ?", rice.ID).Error)
	require.Len(t, after.Weights.Options, 1)
	require.NotNil(t, after.Weights.Options[0].Quantity)
	assert.Equal(t, 1, *after.Weights.Options[0].Quantity)
	assert.EqualValues(t, 1, countRows(t, f.conn, &models.Order{}, ""))
	assert.EqualValues(t, 1, countRows(t, f.conn, &models.CartLine{}, ""))
}

func TestExecuteEmptyCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.service(t).Execute(context.Background(), f.user.ID, Input{
		AddressID:     f.address.ID,
		PaymentMethod: enums.PaymentMethodCOD,
	})
	assert.True(t, pkgerrors.IsRejected(err, pkgerrors.ReasonCartEmpty))
}

func TestExecuteValidatesInput(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)

	_, err := svc.Execute(context.Background(), f.user.ID, Input{AddressID: f.address.ID, PaymentMethod: "card"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Execute(context.Background(), f.user.ID, Input{AddressID: uuid.New(), PaymentMethod: enums.PaymentMethodCOD})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestExecuteVendorSliceQuotesDelivery(t *testing.T) {
	f := newFixture(t)
	kitchen := dbtest.Vendor(t, f.conn, "Spice Hub", "12")
	require.NoError(t, f.conn.Model(kitchen).Updates(map[string]any{"latitude": 12.9352, "longitude": 77.6245}).Error)
	other := dbtest.Vendor(t, f.conn, "Threads", "10")
	dish := dbtest.Dish(t, f.conn, kitchen.ID, "250")
	shirt, _ := dbtest.FashionSize(t, f.conn, other.ID, "Red", "M", "500", 5)
	f.add(t, cart.AddLineInput{ProductType: enums.ProductTypeDish, ProductID: dish.ID, Quantity: 2})
	f.add(t, cart.AddLineInput{ProductType: enums.ProductTypeFashion, ProductID: shirt.ID, Quantity: 1, Variant: "Red-M"})

	quoter := &stubQuoter{charge: dbtest.Money(t, "35")}
	res, err := f.service(t, WithChargeQuoter(quoter)).Execute(context.Background(), f.user.ID, Input{
		VendorID:      &kitchen.ID,
		AddressID:     f.address.ID,
		PaymentMethod: enums.PaymentMethodCOD,
	})
	require.NoError(t, err)
	assert.True(t, res.Order.DeliveryCharge.Equal(dbtest.Money(t, "35")))
	assert.True(t, res.Order.FinalAmount.Equal(dbtest.Money(t, "535")))
	assert.InDelta(t, 5.2, quoter.distance, 0.3)

	lines, err := f.carts.ListByUser(context.Background(), f.user.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, other.ID, lines[0].VendorID)
}

func TestExecuteOnlinePersistsGatewayRef(t *testing.T) {
	f := newFixture(t)
	vendor := dbtest.Vendor(t, f.conn, "Spice Hub", "12")
	dish := dbtest.Dish(t, f.conn, vendor.ID, "199.99")
	f.add(t, cart.AddLineInput{ProductType: enums.ProductTypeDish, ProductID: dish.ID, Quantity: 1})

	var seen gateway.RemoteOrderInput
	gw := stubGateway{createFn: func(_ context.Context, input gateway.RemoteOrderInput) (*gateway.RemoteOrder, error) {
		seen = input
		return &gateway.RemoteOrder{Ref: "order_Nx1", AmountMinor: gateway.ToMinorUnits(input.Amount), Currency: "INR"}, nil
	}}
	res, err := f.service(t, WithGateway(gw)).Execute(context.Background(), f.user.ID, Input{
		AddressID:     f.address.ID,
		PaymentMethod: enums.PaymentMethodOnline,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Payment)
	assert.Empty(t, res.PaymentError)
	assert.EqualValues(t, 19999, res.Payment.AmountMinor)
	assert.Equal(t, res.Order.OrderID, seen.Receipt)

	var stored models.Checkout
	require.NoError(t, f.conn.First(&stored, "id = ?", res.Checkout.ID).Error)
	require.NotNil(t, stored.GatewayOrderRef)
	assert.Equal(t, "order_Nx1", *stored.GatewayOrderRef)
}

func TestExecuteOnlineGatewayFailureKeepsOrder(t *testing.T) {
	f := newFixture(t)
	vendor := dbtest.Vendor(t, f.conn, "Spice Hub", "12")
	dish := dbtest.Dish(t, f.conn, vendor.ID, "150")
	f.add(t, cart.AddLineInput{ProductType: enums.ProductTypeDish, ProductID: dish.ID, Quantity: 1})

	gw := stubGateway{createFn: func(context.Context, gateway.RemoteOrderInput) (*gateway.RemoteOrder, error) {
		return nil, errors.New("gateway timeout")
	}}
	res, err := f.service(t, WithGateway(gw)).Execute(context.Background(), f.user.ID, Input{
		AddressID:     f.address.ID,
		PaymentMethod: enums.PaymentMethodOnline,
	})
	require.NoError(t, err)
	assert.Contains(t, res.PaymentError, "gateway timeout")
	assert.Nil(t, res.Payment)

	var stored models.Order
	require.NoError(t, f.conn.First(&stored, "id = ?", res.Order.ID).Error)
	assert.Equal(t, enums.PaymentStatusPending, stored.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPending, stored.OrderStatus)
}

func TestNewDeliveryPin(t *testing.T) {
	pin, err := newDeliveryPin(6)
	require.NoError(t, err)
	assert.Len(t, pin, 6)
	for _, r := range pin {
		assert.True(t, r >= '0' && r <= '9')
	}
}
