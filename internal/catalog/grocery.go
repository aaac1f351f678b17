package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/types"
)

// groceryStrategy prices weight options and keeps per-weight quantities
// inside the product's weights document.
type groceryStrategy struct{}

func (groceryStrategy) Resolve(ctx context.Context, tx *gorm.DB, sel Selector) (*Resolution, error) {
	product, err := loadGrocery(ctx, tx, sel, false)
	if err != nil {
		return nil, err
	}

	out := &Resolution{
		VendorID:    product.VendorID,
		ProductName: product.Name,
		ImageURL:    product.ImageURL,
		UnitPrice:   product.Price,
	}

	label := strings.TrimSpace(sel.Variant)
	if label == "" {
		if len(product.Weights.Options) > 0 {
			return nil, variantUnavailable(fmt.Sprintf("choose a weight for %s", product.Name))
		}
		if !product.IsInStock {
			out.Stock = intPtr(0)
		}
		return out, nil
	}

	option, ok := product.Weights.Find(label)
	if !ok {
		return nil, variantUnavailable(fmt.Sprintf("weight %s of %s is not available", label, product.Name))
	}
	out.UnitPrice = option.EffectivePrice()
	out.Variant = option.Label
	out.Stock = weightStock(option)
	return out, nil
}

func (groceryStrategy) Deduct(ctx context.Context, tx *gorm.DB, sel Selector, qty int) error {
	product, err := loadGrocery(ctx, tx, sel, true)
	if err != nil {
		return err
	}
	label := strings.TrimSpace(sel.Variant)
	if label == "" {
		if !product.IsInStock {
			return insufficientStock("product", product.Name, 0)
		}
		return nil
	}

	option, ok := product.Weights.Find(label)
	if !ok {
		return variantUnavailable(fmt.Sprintf("weight %s of %s is not available", label, product.Name))
	}
	if option.Quantity == nil {
		if option.IsInStock != nil && !*option.IsInStock {
			return insufficientStock("weight", option.Label, 0)
		}
		return nil
	}
	if *option.Quantity < qty {
		return insufficientStock("weight", option.Label, *option.Quantity)
	}
	setQuantity(option, *option.Quantity-qty)
	return saveWeights(ctx, tx, product)
}

func (groceryStrategy) Restock(ctx context.Context, tx *gorm.DB, sel Selector, qty int) error {
	product, err := loadGrocery(ctx, tx, sel, true)
	if err != nil {
		return err
	}
	option, ok := product.Weights.Find(sel.Variant)
	if !ok || option.Quantity == nil {
		return nil
	}
	setQuantity(option, *option.Quantity+qty)
	return saveWeights(ctx, tx, product)
}

func loadGrocery(ctx context.Context, tx *gorm.DB, sel Selector, lock bool) (*models.GroceryProduct, error) {
	q := tx.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var product models.GroceryProduct
	err := q.Where("id = ?", sel.ProductID).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, productNotFound(sel)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func weightStock(option *types.WeightOption) *int {
	if option.Quantity != nil {
		return intPtr(*option.Quantity)
	}
	if option.IsInStock != nil && !*option.IsInStock {
		return intPtr(0)
	}
	return nil
}

func setQuantity(option *types.WeightOption, qty int) {
	inStock := qty > 0
	option.Quantity = &qty
	option.IsInStock = &inStock
}

// saveWeights persists the weights document and flips the product flag once
// no weight has stock left.
func saveWeights(ctx context.Context, tx *gorm.DB, product *models.GroceryProduct) error {
	anyInStock := false
	for _, opt := range product.Weights.Options {
		if stock := weightStock(&opt); stock == nil || *stock > 0 {
			anyInStock = true
			break
		}
	}
	return tx.WithContext(ctx).
		Model(&models.GroceryProduct{}).
		Where("id = ?", product.ID).
		Updates(map[string]any{
			"weights":     product.Weights,
			"is_in_stock": anyInStock,
		}).Error
}
