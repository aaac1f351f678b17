package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fastbag-backend/pkg/enums"
)

// OrderAssign is one delivery partner's offer for an order. At most one row
// per order may have IsAccepted set; a partial unique index enforces it.
type OrderAssign struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	DeliveryBoyID  uuid.UUID          `gorm:"column:delivery_boy_id;type:uuid;not null;index"`
	Status         enums.AssignStatus `gorm:"column:status;type:text;not null"`
	IsAccepted     bool               `gorm:"column:is_accepted;not null"`
	IsRejected     bool               `gorm:"column:is_rejected;not null"`
	AcceptedBy     *uuid.UUID         `gorm:"column:accepted_by;type:uuid"`
	DeliveryCharge decimal.Decimal    `gorm:"column:delivery_charge;type:numeric(12,2);not null"`
	DistanceKm     *float64           `gorm:"column:distance_km"`
	AssignedAt     time.Time          `gorm:"column:assigned_at;autoCreateTime"`
	AcceptedAt     *time.Time         `gorm:"column:accepted_at"`
	DeliveredAt    *time.Time         `gorm:"column:delivered_at"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderAssign) TableName() string {
	return "order_assignments"
}

func (a *OrderAssign) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// DeliveryNotification is the offer message shown to a delivery partner.
type DeliveryNotification struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	DeliveryBoyID uuid.UUID  `gorm:"column:delivery_boy_id;type:uuid;not null;index"`
	OrderID       uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	VendorID      *uuid.UUID `gorm:"column:vendor_id;type:uuid"`
	Message       string     `gorm:"column:message;not null"`
	IsRead        bool       `gorm:"column:is_read;not null"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (n *DeliveryNotification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
