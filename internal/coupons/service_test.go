package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/fastbag-backend/pkg/db/dbtest"
	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
)

var fixedNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t).DB()
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return fixedNow }
	return impl, conn
}

func seedCoupon(t *testing.T, conn *gorm.DB, mutate func(c *models.Coupon)) *models.Coupon {
	t.Helper()
	c := &models.Coupon{
		Code:           "SAVE10",
		DiscountType:   enums.DiscountTypePercentage,
		DiscountValue:  dbtest.Money(t, "10"),
		MinOrderAmount: dbtest.Money(t, "100"),
		ValidFrom:      fixedNow.Add(-24 * time.Hour),
		ValidTo:        fixedNow.Add(24 * time.Hour),
		UsageLimit:     1,
		IsActive:       true,
	}
	if mutate != nil {
		mutate(c)
	}
	dbtest.Create(t, conn, c)
	return c
}

func TestEvaluatePercentageCappedAtMaxDiscount(t *testing.T) {
	svc, conn := newTestService(t)
	maxDiscount := dbtest.Money(t, "50")
	seedCoupon(t, conn, func(c *models.Coupon) { c.MaxDiscount = &maxDiscount })

	eval, err := svc.Preview(context.Background(), EvaluateInput{Code: "save10", Amount: dbtest.Money(t, "1000"), UserID: uuid.New()})
	require.NoError(t, err)
	assert.True(t, eval.Discount.Equal(maxDiscount), eval.Discount.String())

	eval, err = svc.Preview(context.Background(), EvaluateInput{Code: "SAVE10", Amount: dbtest.Money(t, "250"), UserID: uuid.New()})
	require.NoError(t, err)
	assert.True(t, eval.Discount.Equal(dbtest.Money(t, "25")))
}

func TestDiscountFixedNeverExceedsAmount(t *testing.T) {
	coupon := models.Coupon{DiscountType: enums.DiscountTypeFixed, DiscountValue: decimal.NewFromInt(150)}
	assert.True(t, Discount(coupon, decimal.NewFromInt(100)).Equal(decimal.NewFromInt(100)))
	assert.True(t, Discount(coupon, decimal.NewFromInt(400)).Equal(decimal.NewFromInt(150)))
}

func TestEvaluateRulesInOrder(t *testing.T) {
	ctx := context.Background()
	vendorID := uuid.New()

	cases := []struct {
		name   string
		mutate func(c *models.Coupon)
		input  EvaluateInput
		reason pkgerrors.Reason
	}{
		{
			name:   "unknown code",
			input:  EvaluateInput{Code: "NOPE", Amount: decimal.NewFromInt(500)},
			reason: pkgerrors.ReasonCouponInvalid,
		},
		{
			name:   "inactive",
			mutate: func(c *models.Coupon) { c.IsActive = false },
			input:  EvaluateInput{Code: "SAVE10", Amount: decimal.NewFromInt(500)},
			reason: pkgerrors.ReasonCouponInvalid,
		},
		{
			name:   "expired",
			mutate: func(c *models.Coupon) { c.ValidTo = fixedNow.Add(-time.Minute) },
			input:  EvaluateInput{Code: "SAVE10", Amount: decimal.NewFromInt(500)},
			reason: pkgerrors.ReasonCouponExpired,
		},
		{
			name:   "vendor mismatch beats min order",
			mutate: func(c *models.Coupon) { c.VendorID = &vendorID },
			input:  EvaluateInput{Code: "SAVE10", Amount: decimal.NewFromInt(10)},
			reason: pkgerrors.ReasonCouponVendorMismatch,
		},
		{
			name:   "below minimum",
			input:  EvaluateInput{Code: "SAVE10", Amount: decimal.NewFromInt(99)},
			reason: pkgerrors.ReasonCouponMinOrder,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, conn := newTestService(t)
			if tc.name != "unknown code" {
				seedCoupon(t, conn, tc.mutate)
			}
			tc.input.UserID = uuid.New()
			_, err := svc.Evaluate(ctx, nil, tc.input)
			require.Error(t, err)
			assert.Equal(t, tc.reason, pkgerrors.ReasonOf(err))
		})
	}
}

func TestEvaluateUsageLimits(t *testing.T) {
	svc, conn := newTestService(t)
	total := 2
	coupon := seedCoupon(t, conn, func(c *models.Coupon) { c.TotalUsageLimit = &total })
	ctx := context.Background()
	first, second, third := uuid.New(), uuid.New(), uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		eval, err := svc.Evaluate(ctx, tx, EvaluateInput{Code: "SAVE10", Amount: decimal.NewFromInt(200), UserID: first})
		if err != nil {
			return err
		}
		return svc.RecordUsage(ctx, tx, eval.Coupon.ID, first, uuid.New())
	})
	require.NoError(t, err)

	_, err = svc.Preview(ctx, EvaluateInput{Code: "SAVE10", Amount: decimal.NewFromInt(200), UserID: first})
	assert.True(t, pkgerrors.IsRejected(err, pkgerrors.ReasonCouponUsageExhausted))

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return svc.RecordUsage(ctx, tx, coupon.ID, second, uuid.New())
	}))

	_, err = svc.Preview(ctx, EvaluateInput{Code: "SAVE10", Amount: decimal.NewFromInt(200), UserID: third})
	assert.True(t, pkgerrors.IsRejected(err, pkgerrors.ReasonCouponUsageExhausted))
}

func TestEvaluateNewCustomerOnly(t *testing.T) {
	svc, conn := newTestService(t)
	seedCoupon(t, conn, func(c *models.Coupon) { c.IsNewCustomer = true })
	user := dbtest.User(t, conn)
	ctx := context.Background()

	_, err := svc.Preview(ctx, EvaluateInput{Code: "SAVE10", Amount: decimal.NewFromInt(300), UserID: user.ID})
	require.NoError(t, err)

	dbtest.Create(t, conn, &models.Order{
		OrderID:         "ORD01TEST",
		CheckoutID:      uuid.New(),
		UserID:          user.ID,
		PaymentMethod:   enums.PaymentMethodCOD,
		PaymentStatus:   enums.PaymentStatusPending,
		OrderStatus:     enums.OrderStatusPending,
		ShippingAddress: "12 MG Road",
		DeliveryPin:     "123456",
	})

	_, err = svc.Preview(ctx, EvaluateInput{Code: "SAVE10", Amount: decimal.NewFromInt(300), UserID: user.ID})
	assert.True(t, pkgerrors.IsRejected(err, pkgerrors.ReasonCouponNewCustomerOnly))
}

func TestRecordUsageRequiresTransaction(t *testing.T) {
	svc, _ := newTestService(t)
	assert.Error(t, svc.RecordUsage(context.Background(), nil, uuid.New(), uuid.New(), uuid.New()))
}
