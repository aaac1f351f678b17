package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fastbag-backend/pkg/enums"
)

// VendorCommission aggregates one vendor's sales for a settlement day.
type VendorCommission struct {
	ID                   uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	VendorID             uuid.UUID              `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex:ux_vendor_commission_day"`
	SettlementDate       time.Time              `gorm:"column:settlement_date;type:date;not null;uniqueIndex:ux_vendor_commission_day"`
	TotalSales           decimal.Decimal        `gorm:"column:total_sales;type:numeric(12,2);not null"`
	CommissionPercentage decimal.Decimal        `gorm:"column:commission_percentage;type:numeric(5,2);not null"`
	CommissionAmount     decimal.Decimal        `gorm:"column:commission_amount;type:numeric(12,2);not null"`
	PaymentStatus        enums.CommissionStatus `gorm:"column:payment_status;type:text;not null"`
	PaidAt               *time.Time             `gorm:"column:paid_at"`
	CreatedAt            time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *VendorCommission) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CommissionSettlement marks an order's share as already counted for a vendor.
type CommissionSettlement struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID            uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_commission_settlement"`
	VendorID           uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex:ux_commission_settlement"`
	VendorCommissionID uuid.UUID       `gorm:"column:vendor_commission_id;type:uuid;not null"`
	SalesAmount        decimal.Decimal `gorm:"column:sales_amount;type:numeric(12,2);not null"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (s *CommissionSettlement) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
