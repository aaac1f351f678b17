package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fastbag-backend/pkg/enums"
)

// Order is the fulfillment record created alongside a checkout.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         string              `gorm:"column:order_id;not null;uniqueIndex"`
	CheckoutID      uuid.UUID           `gorm:"column:checkout_id;type:uuid;not null;uniqueIndex"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	TotalAmount     decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	DiscountAmount  decimal.Decimal     `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	DeliveryCharge  decimal.Decimal     `gorm:"column:delivery_charge;type:numeric(12,2);not null"`
	FinalAmount     decimal.Decimal     `gorm:"column:final_amount;type:numeric(12,2);not null"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:text;not null"`
	OrderStatus     enums.OrderStatus   `gorm:"column:order_status;type:text;not null;index"`
	ShippingAddress string              `gorm:"column:shipping_address;not null"`
	Latitude        *float64            `gorm:"column:latitude"`
	Longitude       *float64            `gorm:"column:longitude"`
	ContactNumber   string              `gorm:"column:contact_number"`
	DeliveryPin     string              `gorm:"column:delivery_pin;not null"`
	UsedCoupon      *string             `gorm:"column:used_coupon"`
	Reason          *string             `gorm:"column:reason"`
	Items           []OrderItem         `gorm:"foreignKey:OrderID;references:ID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem is a per-vendor line of an order with its own lifecycle.
type OrderItem struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	VendorID     uuid.UUID         `gorm:"column:vendor_id;type:uuid;not null;index"`
	ProductType  enums.ProductType `gorm:"column:product_type;type:text;not null"`
	ProductID    uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	ProductName  string            `gorm:"column:product_name;not null"`
	ImageURL     *string           `gorm:"column:image_url"`
	Color        string            `gorm:"column:color"`
	Size         string            `gorm:"column:size"`
	Variant      string            `gorm:"column:variant"`
	Quantity     int               `gorm:"column:quantity;not null"`
	PricePerUnit decimal.Decimal   `gorm:"column:price_per_unit;type:numeric(12,2);not null"`
	Subtotal     decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Status       enums.ItemStatus  `gorm:"column:status;type:text;not null"`
	CancelReason *string           `gorm:"column:cancel_reason"`
	CancelledAt  *time.Time        `gorm:"column:cancelled_at"`
	ReturnReason *string           `gorm:"column:return_reason"`
	ReturnedAt   *time.Time        `gorm:"column:returned_at"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
