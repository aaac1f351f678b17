package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fastbag-backend/pkg/enums"
)

// CartLine is one product selection in a user's cart. UnitPrice is the price
// resolved when the line was added and is what checkout charges.
type CartLine struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	VendorID    uuid.UUID         `gorm:"column:vendor_id;type:uuid;not null;index"`
	ProductType enums.ProductType `gorm:"column:product_type;type:text;not null"`
	ProductID   uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	ProductName string            `gorm:"column:product_name;not null"`
	ImageURL    *string           `gorm:"column:image_url"`
	Color       string            `gorm:"column:color"`
	Size        string            `gorm:"column:size"`
	Variant     string            `gorm:"column:variant"`
	Quantity    int               `gorm:"column:quantity;not null;check:quantity >= 1"`
	UnitPrice   decimal.Decimal   `gorm:"column:unit_price;type:numeric(12,2);not null"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *CartLine) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

// Subtotal is unit price times quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
