package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fastbag-backend/pkg/types"
)

type FashionProduct struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	VendorID  uuid.UUID      `gorm:"column:vendor_id;type:uuid;not null;index"`
	Name      string         `gorm:"column:name;not null"`
	ImageURL  *string        `gorm:"column:image_url"`
	IsActive  bool           `gorm:"column:is_active;not null"`
	Colors    []FashionColor `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (p *FashionProduct) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

type FashionColor struct {
	ID        uuid.UUID     `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID     `gorm:"column:product_id;type:uuid;not null;index"`
	Name      string        `gorm:"column:name;not null"`
	ImageURL  *string       `gorm:"column:image_url"`
	Sizes     []FashionSize `gorm:"foreignKey:ColorID;constraint:OnDelete:CASCADE"`
}

func (c *FashionColor) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// FashionSize carries price and stock for one color/size combination.
type FashionSize struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	ColorID    uuid.UUID        `gorm:"column:color_id;type:uuid;not null;index"`
	Size       string           `gorm:"column:size;not null"`
	Price      decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	OfferPrice *decimal.Decimal `gorm:"column:offer_price;type:numeric(12,2)"`
	Stock      int              `gorm:"column:stock;not null;check:stock >= 0"`
}

func (s *FashionSize) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// EffectivePrice returns the offer price when set, else the list price.
func (s FashionSize) EffectivePrice() decimal.Decimal {
	if s.OfferPrice != nil && s.OfferPrice.IsPositive() {
		return *s.OfferPrice
	}
	return s.Price
}

type Dish struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	VendorID    uuid.UUID          `gorm:"column:vendor_id;type:uuid;not null;index"`
	Name        string             `gorm:"column:name;not null"`
	ImageURL    *string            `gorm:"column:image_url"`
	Price       decimal.Decimal    `gorm:"column:price;type:numeric(12,2);not null"`
	OfferPrice  *decimal.Decimal   `gorm:"column:offer_price;type:numeric(12,2)"`
	IsAvailable bool               `gorm:"column:is_available;not null"`
	Variants    types.DishVariants `gorm:"column:variants;type:jsonb"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (d *Dish) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

type GroceryProduct struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	VendorID  uuid.UUID         `gorm:"column:vendor_id;type:uuid;not null;index"`
	Name      string            `gorm:"column:name;not null"`
	ImageURL  *string           `gorm:"column:image_url"`
	Price     decimal.Decimal   `gorm:"column:price;type:numeric(12,2);not null"`
	Weights   types.WeightTable `gorm:"column:weights;type:jsonb"`
	IsInStock bool              `gorm:"column:is_in_stock;not null"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (g *GroceryProduct) BeforeCreate(*gorm.DB) error {
	ensureID(&g.ID)
	return nil
}
