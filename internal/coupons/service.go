package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// Service validates coupon codes and records redemptions.
type Service interface {
	// Evaluate checks a code against an order amount. With a non-nil tx the
	// coupon row is locked until the transaction ends.
	Evaluate(ctx context.Context, tx *gorm.DB, input EvaluateInput) (*Evaluation, error)
	// Preview evaluates outside of any checkout.
	Preview(ctx context.Context, input EvaluateInput) (*Evaluation, error)
	RecordUsage(ctx context.Context, tx *gorm.DB, couponID, userID, checkoutID uuid.UUID) error
}

type EvaluateInput struct {
	Code     string
	Amount   decimal.Decimal
	UserID   uuid.UUID
	VendorID *uuid.UUID
}

type Evaluation struct {
	Coupon   *models.Coupon
	Discount decimal.Decimal
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Preview(ctx context.Context, input EvaluateInput) (*Evaluation, error) {
	return s.Evaluate(ctx, nil, input)
}

func (s *service) Evaluate(ctx context.Context, tx *gorm.DB, input EvaluateInput) (*Evaluation, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	if input.Amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	repo := s.repo.WithTx(tx)

	coupon, err := repo.FindByCode(ctx, code, tx != nil)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Reject(pkgerrors.ReasonCouponInvalid, "Invalid coupon code")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
	}
	if !coupon.IsActive {
		return nil, pkgerrors.Reject(pkgerrors.ReasonCouponInvalid, "Invalid coupon code")
	}
	now := s.now().UTC()
	if now.Before(coupon.ValidFrom) || now.After(coupon.ValidTo) {
		return nil, pkgerrors.Reject(pkgerrors.ReasonCouponExpired, "Coupon is expired or not yet valid")
	}

	if coupon.VendorID != nil && (input.VendorID == nil || *input.VendorID != *coupon.VendorID) {
		return nil, pkgerrors.Reject(pkgerrors.ReasonCouponVendorMismatch, "Coupon is not valid for this vendor")
	}

	if input.Amount.LessThan(coupon.MinOrderAmount) {
		return nil, pkgerrors.Reject(pkgerrors.ReasonCouponMinOrder,
			fmt.Sprintf("Minimum order amount for this coupon is %s", coupon.MinOrderAmount.StringFixed(2)))
	}

	if coupon.UsageLimit > 0 {
		used, err := repo.CountUsage(ctx, coupon.ID, &input.UserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count coupon usage")
		}
		if used >= int64(coupon.UsageLimit) {
			return nil, pkgerrors.Reject(pkgerrors.ReasonCouponUsageExhausted, "You have already used this coupon")
		}
	}
	if coupon.TotalUsageLimit != nil {
		used, err := repo.CountUsage(ctx, coupon.ID, nil)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count coupon usage")
		}
		if used >= int64(*coupon.TotalUsageLimit) {
			return nil, pkgerrors.Reject(pkgerrors.ReasonCouponUsageExhausted, "Coupon usage limit reached")
		}
	}

	if coupon.IsNewCustomer {
		orders, err := repo.CountOrders(ctx, input.UserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count orders")
		}
		if orders > 0 {
			return nil, pkgerrors.Reject(pkgerrors.ReasonCouponNewCustomerOnly, "Coupon is only valid on your first order")
		}
	}

	return &Evaluation{Coupon: coupon, Discount: Discount(*coupon, input.Amount)}, nil
}

func (s *service) RecordUsage(ctx context.Context, tx *gorm.DB, couponID, userID, checkoutID uuid.UUID) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	usage := &models.CouponUsage{CouponID: couponID, UserID: userID, CheckoutID: checkoutID}
	if err := s.repo.WithTx(tx).CreateUsage(ctx, usage); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record coupon usage")
	}
	return nil
}

// Discount computes the reduction a coupon gives on amount, clamped to
// [0, amount].
func Discount(coupon models.Coupon, amount decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch coupon.DiscountType {
	case enums.DiscountTypePercentage:
		discount = amount.Mul(coupon.DiscountValue).Div(hundred).Round(2)
		if coupon.MaxDiscount != nil && coupon.MaxDiscount.IsPositive() && discount.GreaterThan(*coupon.MaxDiscount) {
			discount = *coupon.MaxDiscount
		}
	case enums.DiscountTypeFixed:
		discount = decimal.Min(coupon.DiscountValue, amount)
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	if discount.GreaterThan(amount) {
		return amount
	}
	return discount
}
