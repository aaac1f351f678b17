package coupons

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
)

// Repository reads coupons and their redemption ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string, lock bool) (*models.Coupon, error)
	CountUsage(ctx context.Context, couponID uuid.UUID, userID *uuid.UUID) (int64, error)
	CountOrders(ctx context.Context, userID uuid.UUID) (int64, error)
	CreateUsage(ctx context.Context, usage *models.CouponUsage) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByCode(ctx context.Context, code string, lock bool) (*models.Coupon, error) {
	q := r.db.WithContext(ctx).Where("UPPER(code) = ?", strings.ToUpper(strings.TrimSpace(code)))
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var coupon models.Coupon
	if err := q.Take(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

// CountUsage counts redemptions of a coupon, for one user when userID is set.
func (r *repository) CountUsage(ctx context.Context, couponID uuid.UUID, userID *uuid.UUID) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.CouponUsage{}).Where("coupon_id = ?", couponID)
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

func (r *repository) CountOrders(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func (r *repository) CreateUsage(ctx context.Context, usage *models.CouponUsage) error {
	return r.db.WithContext(ctx).Create(usage).Error
}
