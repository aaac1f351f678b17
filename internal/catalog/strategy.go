package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
)

// Selector identifies one purchasable variant of a product.
type Selector struct {
	ProductType enums.ProductType
	ProductID   uuid.UUID
	Color       string
	Size        string
	Variant     string
}

// Resolution is the priced, normalized view of a Selector.
type Resolution struct {
	VendorID    uuid.UUID
	ProductName string
	ImageURL    *string
	UnitPrice   decimal.Decimal
	// Stock is nil for products that do not track inventory.
	Stock   *int
	Color   string
	Size    string
	Variant string
}

// HasStock reports whether qty units can be sold.
func (r Resolution) HasStock(qty int) bool {
	return r.Stock == nil || *r.Stock >= qty
}

// StockError builds the rejection returned when qty exceeds what is left.
func (r Resolution) StockError() error {
	available := 0
	if r.Stock != nil {
		available = *r.Stock
	}
	switch {
	case r.Size != "":
		return insufficientStock("size", r.Size, available)
	case r.Variant != "":
		return insufficientStock("weight", r.Variant, available)
	default:
		return insufficientStock("product", r.ProductName, available)
	}
}

// ProductPricingStrategy prices and moves stock for one product type. All
// calls take the caller's transaction so stock changes commit with the order.
type ProductPricingStrategy interface {
	Resolve(ctx context.Context, tx *gorm.DB, sel Selector) (*Resolution, error)
	Deduct(ctx context.Context, tx *gorm.DB, sel Selector, qty int) error
	Restock(ctx context.Context, tx *gorm.DB, sel Selector, qty int) error
}

// Resolver picks the strategy for a product type.
type Resolver struct {
	strategies map[enums.ProductType]ProductPricingStrategy
}

func NewResolver() *Resolver {
	return &Resolver{strategies: map[enums.ProductType]ProductPricingStrategy{
		enums.ProductTypeFashion: fashionStrategy{},
		enums.ProductTypeDish:    dishStrategy{},
		enums.ProductTypeGrocery: groceryStrategy{},
	}}
}

func (r *Resolver) For(productType enums.ProductType) (ProductPricingStrategy, error) {
	strategy, ok := r.strategies[productType]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported product type %q", productType))
	}
	return strategy, nil
}

func (r *Resolver) Resolve(ctx context.Context, tx *gorm.DB, sel Selector) (*Resolution, error) {
	strategy, err := r.For(sel.ProductType)
	if err != nil {
		return nil, err
	}
	return strategy.Resolve(ctx, tx, sel)
}

func (r *Resolver) Deduct(ctx context.Context, tx *gorm.DB, sel Selector, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	strategy, err := r.For(sel.ProductType)
	if err != nil {
		return err
	}
	return strategy.Deduct(ctx, tx, sel, qty)
}

func (r *Resolver) Restock(ctx context.Context, tx *gorm.DB, sel Selector, qty int) error {
	if qty <= 0 {
		return nil
	}
	strategy, err := r.For(sel.ProductType)
	if err != nil {
		return err
	}
	return strategy.Restock(ctx, tx, sel, qty)
}

func productNotFound(sel Selector) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s product %s not found", sel.ProductType, sel.ProductID))
}

func variantUnavailable(message string) error {
	return pkgerrors.Reject(pkgerrors.ReasonVariantUnavailable, message)
}

func insufficientStock(kind, label string, available int) error {
	return pkgerrors.Reject(pkgerrors.ReasonInsufficientStock,
		fmt.Sprintf("Insufficient stock for %s %s, available: %d", kind, label, available))
}

func intPtr(v int) *int {
	return &v
}

// splitFashionVariant accepts "color-size". The size is the segment after the
// last dash so colors may contain dashes.
func splitFashionVariant(sel Selector) (color, size string) {
	color = strings.TrimSpace(sel.Color)
	size = strings.TrimSpace(sel.Size)
	if color != "" && size != "" {
		return color, size
	}
	variant := strings.TrimSpace(sel.Variant)
	if idx := strings.LastIndex(variant, "-"); idx > 0 && idx < len(variant)-1 {
		return strings.TrimSpace(variant[:idx]), strings.TrimSpace(variant[idx+1:])
	}
	return color, size
}
