package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DeliveryChargeRule prices a distance band. NightStart and NightEnd are
// "HH:MM" clock times; a window may wrap midnight.
type DeliveryChargeRule struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	DistanceFrom decimal.Decimal `gorm:"column:distance_from;type:numeric(6,2);not null"`
	DistanceTo   decimal.Decimal `gorm:"column:distance_to;type:numeric(6,2);not null"`
	DayCharge    decimal.Decimal `gorm:"column:day_charge;type:numeric(12,2);not null"`
	NightCharge  decimal.Decimal `gorm:"column:night_charge;type:numeric(12,2);not null"`
	NightStart   string          `gorm:"column:night_start;not null"`
	NightEnd     string          `gorm:"column:night_end;not null"`
	IsActive     bool            `gorm:"column:is_active;not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (r *DeliveryChargeRule) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
