package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fastbag-backend/pkg/enums"
)

// Checkout is the immutable purchase snapshot created with each order.
type Checkout struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           string              `gorm:"column:order_id;not null;uniqueIndex"`
	UserID            uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	TotalAmount       decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	DiscountAmount    decimal.Decimal     `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	DeliveryCharge    decimal.Decimal     `gorm:"column:delivery_charge;type:numeric(12,2);not null"`
	FinalAmount       decimal.Decimal     `gorm:"column:final_amount;type:numeric(12,2);not null"`
	PaymentMethod     enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus     enums.PaymentStatus `gorm:"column:payment_status;type:text;not null"`
	CouponID          *uuid.UUID          `gorm:"column:coupon_id;type:uuid"`
	CouponCode        *string             `gorm:"column:coupon_code"`
	CouponDiscount    decimal.Decimal     `gorm:"column:coupon_discount;type:numeric(12,2);not null"`
	AddressID         uuid.UUID           `gorm:"column:address_id;type:uuid;not null"`
	ShippingAddress   string              `gorm:"column:shipping_address;not null"`
	ContactNumber     string              `gorm:"column:contact_number"`
	GatewayOrderRef   *string             `gorm:"column:gateway_order_ref;uniqueIndex"`
	GatewayPaymentRef *string             `gorm:"column:gateway_payment_ref"`
	Items             []CheckoutItem      `gorm:"foreignKey:CheckoutID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Checkout) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CheckoutItem freezes one cart line at purchase time.
type CheckoutItem struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	CheckoutID  uuid.UUID         `gorm:"column:checkout_id;type:uuid;not null;index"`
	VendorID    uuid.UUID         `gorm:"column:vendor_id;type:uuid;not null"`
	ProductType enums.ProductType `gorm:"column:product_type;type:text;not null"`
	ProductID   uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	ProductName string            `gorm:"column:product_name;not null"`
	Color       string            `gorm:"column:color"`
	Size        string            `gorm:"column:size"`
	Variant     string            `gorm:"column:variant"`
	Quantity    int               `gorm:"column:quantity;not null"`
	Price       decimal.Decimal   `gorm:"column:price;type:numeric(12,2);not null"`
	Subtotal    decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
}

func (i *CheckoutItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
