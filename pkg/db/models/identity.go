package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User is a customer account. Only the fields the order flow reads are mapped.
type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Email     string    `gorm:"column:email"`
	Phone     string    `gorm:"column:phone"`
	FCMToken  *string   `gorm:"column:fcm_token"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// Address is a saved delivery address of a user.
type Address struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Name          string    `gorm:"column:name"`
	Line          string    `gorm:"column:line;not null"`
	City          string    `gorm:"column:city"`
	State         string    `gorm:"column:state"`
	Pincode       string    `gorm:"column:pincode"`
	ContactNumber string    `gorm:"column:contact_number"`
	Latitude      *float64  `gorm:"column:latitude"`
	Longitude     *float64  `gorm:"column:longitude"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (a *Address) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// Snapshot renders the address as the single line frozen onto checkouts.
func (a Address) Snapshot() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Name, a.Line, a.City, a.State} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	out := strings.Join(parts, ", ")
	if a.Pincode != "" {
		out = fmt.Sprintf("%s - %s", out, a.Pincode)
	}
	return out
}

// HasCoordinates reports whether both latitude and longitude are present.
func (a Address) HasCoordinates() bool {
	return a.Latitude != nil && a.Longitude != nil
}

// Vendor is a seller on the marketplace.
type Vendor struct {
	ID                   uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID               *uuid.UUID      `gorm:"column:user_id;type:uuid"`
	Name                 string          `gorm:"column:name;not null"`
	CommissionPercentage decimal.Decimal `gorm:"column:commission_percentage;type:numeric(5,2);not null"`
	Latitude             *float64        `gorm:"column:latitude"`
	Longitude            *float64        `gorm:"column:longitude"`
	FCMToken             *string         `gorm:"column:fcm_token"`
	IsActive             bool            `gorm:"column:is_active;not null"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (v *Vendor) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

// DeliveryBoy is a delivery partner who can be offered orders near them.
type DeliveryBoy struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID    *uuid.UUID `gorm:"column:user_id;type:uuid"`
	Name      string     `gorm:"column:name;not null"`
	Phone     string     `gorm:"column:phone"`
	Latitude  *float64   `gorm:"column:latitude"`
	Longitude *float64   `gorm:"column:longitude"`
	RadiusKm  float64    `gorm:"column:radius_km;not null"`
	IsActive  bool       `gorm:"column:is_active;not null"`
	FCMToken  *string    `gorm:"column:fcm_token"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (d *DeliveryBoy) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
