package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fastbag-backend/pkg/enums"
)

// Coupon is a discount code. A nil VendorID makes it platform-wide.
// UsageLimit applies per user; TotalUsageLimit, when set, caps all users.
type Coupon struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Code            string             `gorm:"column:code;not null;uniqueIndex"`
	DiscountType    enums.DiscountType `gorm:"column:discount_type;type:text;not null"`
	DiscountValue   decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null"`
	MinOrderAmount  decimal.Decimal    `gorm:"column:min_order_amount;type:numeric(12,2);not null"`
	MaxDiscount     *decimal.Decimal   `gorm:"column:max_discount;type:numeric(12,2)"`
	ValidFrom       time.Time          `gorm:"column:valid_from;not null"`
	ValidTo         time.Time          `gorm:"column:valid_to;not null"`
	UsageLimit      int                `gorm:"column:usage_limit;not null"`
	TotalUsageLimit *int               `gorm:"column:total_usage_limit"`
	VendorID        *uuid.UUID         `gorm:"column:vendor_id;type:uuid;index"`
	IsNewCustomer   bool               `gorm:"column:is_new_customer;not null"`
	IsActive        bool               `gorm:"column:is_active;not null"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (c *Coupon) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CouponUsage records one redemption; unique per coupon, user and checkout.
type CouponUsage struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CouponID   uuid.UUID `gorm:"column:coupon_id;type:uuid;not null;uniqueIndex:ux_coupon_usage"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_coupon_usage"`
	CheckoutID uuid.UUID `gorm:"column:checkout_id;type:uuid;not null;uniqueIndex:ux_coupon_usage"`
	UsedAt     time.Time `gorm:"column:used_at;autoCreateTime"`
}

func (u *CouponUsage) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
