package payments

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/fastbag-backend/pkg/db/dbtest"
	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
	"github.com/angelmondragon/fastbag-backend/pkg/metrics"
	"github.com/angelmondragon/fastbag-backend/pkg/outbox"
)

const testSecret = "s3cr3t"

type recordingMetrics struct {
	results []string
}

func (m *recordingMetrics) PaymentVerified(result string) {
	m.results = append(m.results, result)
}

func seedOnlineOrder(t *testing.T, conn *gorm.DB, ref string) (*models.Checkout, *models.Order) {
	t.Helper()
	user := dbtest.User(t, conn)
	vendor := dbtest.Vendor(t, conn, "Spice Hub", "12")
	checkout := &models.Checkout{
		OrderID:         "ORD01PAYTEST",
		UserID:          user.ID,
		TotalAmount:     dbtest.Money(t, "400"),
		FinalAmount:     dbtest.Money(t, "400"),
		PaymentMethod:   enums.PaymentMethodOnline,
		PaymentStatus:   enums.PaymentStatusPending,
		AddressID:       uuid.New(),
		ShippingAddress: "12 MG Road",
		GatewayOrderRef: &ref,
	}
	dbtest.Create(t, conn, checkout)
	order := &models.Order{
		OrderID:         checkout.OrderID,
		CheckoutID:      checkout.ID,
		UserID:          user.ID,
		TotalAmount:     checkout.TotalAmount,
		FinalAmount:     checkout.FinalAmount,
		PaymentMethod:   enums.PaymentMethodOnline,
		PaymentStatus:   enums.PaymentStatusPending,
		OrderStatus:     enums.OrderStatusPending,
		ShippingAddress: checkout.ShippingAddress,
		DeliveryPin:     "482913",
		Items: []models.OrderItem{{
			VendorID:     vendor.ID,
			ProductType:  enums.ProductTypeDish,
			ProductID:    uuid.New(),
			ProductName:  "Biryani",
			Quantity:     2,
			PricePerUnit: dbtest.Money(t, "200"),
			Subtotal:     dbtest.Money(t, "400"),
			Status:       enums.ItemStatusPending,
		}},
	}
	dbtest.Create(t, conn, order)
	return checkout, order
}

func newTestService(t *testing.T) (Service, *gorm.DB, *recordingMetrics) {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()
	m := &recordingMetrics{}
	svc, err := NewService(client, NewRepository(conn), testSecret, outbox.NewService(outbox.NewRepository(conn), nil), m, nil)
	require.NoError(t, err)
	return svc, conn, m
}

func TestVerifyMatchMarksPaidAndConfirmed(t *testing.T) {
	svc, conn, m := newTestService(t)
	checkout, order := seedOnlineOrder(t, conn, "order_ABC")

	res, err := svc.Verify(context.Background(), VerifyInput{
		GatewayOrderRef:   "order_ABC",
		GatewayPaymentRef: "pay_123",
		Signature:         Sign(testSecret, "order_ABC", "pay_123"),
	})
	require.NoError(t, err)
	assert.False(t, res.AlreadyPaid)
	assert.Equal(t, enums.OrderStatusConfirmed, res.Order.OrderStatus)

	var storedCheckout models.Checkout
	require.NoError(t, conn.First(&storedCheckout, "id = ?", checkout.ID).Error)
	assert.Equal(t, enums.PaymentStatusPaid, storedCheckout.PaymentStatus)
	require.NotNil(t, storedCheckout.GatewayPaymentRef)
	assert.Equal(t, "pay_123", *storedCheckout.GatewayPaymentRef)

	var storedOrder models.Order
	require.NoError(t, conn.First(&storedOrder, "id = ?", order.ID).Error)
	assert.Equal(t, enums.PaymentStatusPaid, storedOrder.PaymentStatus)
	assert.Equal(t, enums.OrderStatusConfirmed, storedOrder.OrderStatus)

	var events int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventPaymentVerified).Count(&events).Error)
	assert.EqualValues(t, 1, events)

	again, err := svc.Verify(context.Background(), VerifyInput{
		GatewayOrderRef:   "order_ABC",
		GatewayPaymentRef: "pay_123",
		Signature:         Sign(testSecret, "order_ABC", "pay_123"),
	})
	require.NoError(t, err)
	assert.True(t, again.AlreadyPaid)
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventPaymentVerified).Count(&events).Error)
	assert.EqualValues(t, 1, events)
	assert.Equal(t, []string{metrics.OutcomeMatched, metrics.OutcomeMatched}, m.results)
}

func TestVerifyMismatchMarksFailedWithoutRestock(t *testing.T) {
	svc, conn, m := newTestService(t)
	checkout, order := seedOnlineOrder(t, conn, "order_XYZ")

	_, err := svc.Verify(context.Background(), VerifyInput{
		GatewayOrderRef:   "order_XYZ",
		GatewayPaymentRef: "pay_999",
		Signature:         "deadbeef",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsRejected(err, pkgerrors.ReasonSignatureMismatch))

	var storedOrder models.Order
	require.NoError(t, conn.First(&storedOrder, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPaymentFailed, storedOrder.OrderStatus)
	assert.Equal(t, enums.PaymentStatusFailed, storedOrder.PaymentStatus)

	var storedCheckout models.Checkout
	require.NoError(t, conn.First(&storedCheckout, "id = ?", checkout.ID).Error)
	assert.Equal(t, enums.PaymentStatusFailed, storedCheckout.PaymentStatus)
	assert.Equal(t, []string{metrics.OutcomeMismatch}, m.results)

	// a later valid callback still settles the order
	res, err := svc.Verify(context.Background(), VerifyInput{
		GatewayOrderRef:   "order_XYZ",
		GatewayPaymentRef: "pay_1000",
		Signature:         Sign(testSecret, "order_XYZ", "pay_1000"),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, res.Order.PaymentStatus)
}

func TestVerifyUnknownRef(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Verify(context.Background(), VerifyInput{
		GatewayOrderRef:   "order_missing",
		GatewayPaymentRef: "pay_1",
		Signature:         Sign(testSecret, "order_missing", "pay_1"),
	})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = svc.Verify(context.Background(), VerifyInput{GatewayOrderRef: "order_missing"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestVerifyScopedToOwner(t *testing.T) {
	svc, conn, _ := newTestService(t)
	_, order := seedOnlineOrder(t, conn, "order_OWN")
	stranger := uuid.New()

	_, err := svc.Verify(context.Background(), VerifyInput{
		GatewayOrderRef:   "order_OWN",
		GatewayPaymentRef: "pay_1",
		Signature:         "bogus",
		UserID:            &stranger,
	})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	var storedOrder models.Order
	require.NoError(t, conn.First(&storedOrder, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPending, storedOrder.OrderStatus)

	res, err := svc.Verify(context.Background(), VerifyInput{
		GatewayOrderRef:   "order_OWN",
		GatewayPaymentRef: "pay_1",
		Signature:         Sign(testSecret, "order_OWN", "pay_1"),
		UserID:            &order.UserID,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, res.Order.PaymentStatus)
}

func TestValidSignatureIgnoresHexCase(t *testing.T) {
	sig := Sign(testSecret, "order_1", "pay_1")
	assert.True(t, ValidSignature(testSecret, "order_1", "pay_1", sig))
	assert.True(t, ValidSignature(testSecret, "order_1", "pay_1", strings.ToUpper(sig)))
	assert.False(t, ValidSignature(testSecret, "order_1", "pay_2", sig))
	assert.False(t, ValidSignature("other", "order_1", "pay_1", sig))
}
