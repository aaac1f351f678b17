package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
)

// dishStrategy prices dishes by variant. Dishes carry no stock counter.
type dishStrategy struct{}

func (dishStrategy) Resolve(ctx context.Context, tx *gorm.DB, sel Selector) (*Resolution, error) {
	var dish models.Dish
	err := tx.WithContext(ctx).Where("id = ?", sel.ProductID).First(&dish).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, productNotFound(sel)
	}
	if err != nil {
		return nil, err
	}
	if !dish.IsAvailable {
		return nil, variantUnavailable(fmt.Sprintf("%s is not available right now", dish.Name))
	}

	out := &Resolution{
		VendorID:    dish.VendorID,
		ProductName: dish.Name,
		ImageURL:    dish.ImageURL,
		UnitPrice:   dish.Price,
	}
	if dish.OfferPrice != nil && dish.OfferPrice.IsPositive() {
		out.UnitPrice = *dish.OfferPrice
	}

	if name := strings.TrimSpace(sel.Variant); name != "" {
		variant, ok := dish.Variants.Find(name)
		if !ok {
			return nil, variantUnavailable(fmt.Sprintf("variant %s of %s is not available", name, dish.Name))
		}
		out.UnitPrice = variant.Price
		out.Variant = variant.Name
	}
	return out, nil
}

func (dishStrategy) Deduct(context.Context, *gorm.DB, Selector, int) error {
	return nil
}

func (dishStrategy) Restock(context.Context, *gorm.DB, Selector, int) error {
	return nil
}
