package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
)

// fashionStrategy prices a color/size and keeps stock on the size row.
type fashionStrategy struct{}

type fashionRow struct {
	models.FashionSize
	ColorName string
}

func (fashionStrategy) Resolve(ctx context.Context, tx *gorm.DB, sel Selector) (*Resolution, error) {
	var product models.FashionProduct
	err := tx.WithContext(ctx).Where("id = ? AND is_active = ?", sel.ProductID, true).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, productNotFound(sel)
	}
	if err != nil {
		return nil, err
	}

	row, err := findSize(ctx, tx, sel, false)
	if err != nil {
		return nil, err
	}
	return &Resolution{
		VendorID:    product.VendorID,
		ProductName: product.Name,
		ImageURL:    product.ImageURL,
		UnitPrice:   row.EffectivePrice(),
		Stock:       intPtr(row.Stock),
		Color:       row.ColorName,
		Size:        row.Size,
		Variant:     fmt.Sprintf("%s-%s", row.ColorName, row.Size),
	}, nil
}

func (fashionStrategy) Deduct(ctx context.Context, tx *gorm.DB, sel Selector, qty int) error {
	row, err := findSize(ctx, tx, sel, true)
	if err != nil {
		return err
	}
	res := tx.WithContext(ctx).
		Model(&models.FashionSize{}).
		Where("id = ? AND stock >= ?", row.ID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return insufficientStock("size", row.Size, row.Stock)
	}
	return nil
}

func (fashionStrategy) Restock(ctx context.Context, tx *gorm.DB, sel Selector, qty int) error {
	row, err := findSize(ctx, tx, sel, true)
	if err != nil {
		return err
	}
	return tx.WithContext(ctx).
		Model(&models.FashionSize{}).
		Where("id = ?", row.ID).
		Update("stock", gorm.Expr("stock + ?", qty)).Error
}

func findSize(ctx context.Context, tx *gorm.DB, sel Selector, lock bool) (*fashionRow, error) {
	color, size := splitFashionVariant(sel)
	if color == "" || size == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fashion items require color and size")
	}

	q := tx.WithContext(ctx).
		Table("fashion_sizes").
		Select("fashion_sizes.*, fashion_colors.name AS color_name").
		Joins("JOIN fashion_colors ON fashion_colors.id = fashion_sizes.color_id").
		Where("fashion_colors.product_id = ?", sel.ProductID).
		Where("LOWER(fashion_colors.name) = LOWER(?)", color).
		Where("UPPER(fashion_sizes.size) = UPPER(?)", size)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "fashion_sizes"}})
	}

	var row fashionRow
	err := q.Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, variantUnavailable(fmt.Sprintf("size %s in %s is not available", size, color))
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
