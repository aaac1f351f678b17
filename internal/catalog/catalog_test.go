package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/fastbag-backend/pkg/db/dbtest"
	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
	"github.com/angelmondragon/fastbag-backend/pkg/types"
)

func TestFashionResolveUsesOfferPriceAndStock(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	vendor := dbtest.Vendor(t, conn, "Threads", "10")
	product, size := dbtest.FashionSize(t, conn, vendor.ID, "Navy-Blue", "M", "999.00", 5)
	offer := dbtest.Money(t, "799.00")
	require.NoError(t, conn.Model(size).Update("offer_price", offer).Error)

	res, err := NewResolver().Resolve(context.Background(), conn, Selector{
		ProductType: enums.ProductTypeFashion,
		ProductID:   product.ID,
		Variant:     "navy-blue-m",
	})
	require.NoError(t, err)
	assert.Equal(t, vendor.ID, res.VendorID)
	assert.True(t, res.UnitPrice.Equal(offer), res.UnitPrice.String())
	require.NotNil(t, res.Stock)
	assert.Equal(t, 5, *res.Stock)
	assert.Equal(t, "Navy-Blue", res.Color)
	assert.Equal(t, "M", res.Size)
}

func TestFashionDeductRejectsOversell(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	vendor := dbtest.Vendor(t, conn, "Threads", "10")
	product, size := dbtest.FashionSize(t, conn, vendor.ID, "Red", "M", "500", 2)
	sel := Selector{ProductType: enums.ProductTypeFashion, ProductID: product.ID, Color: "Red", Size: "M"}
	resolver := NewResolver()

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return resolver.Deduct(context.Background(), tx, sel, 3)
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsRejected(err, pkgerrors.ReasonInsufficientStock))
	assert.Equal(t, "Insufficient stock for size M, available: 2", pkgerrors.As(err).Message())

	require.NoError(t, client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return resolver.Deduct(context.Background(), tx, sel, 2)
	}))
	var reloaded models.FashionSize
	require.NoError(t, conn.First(&reloaded, "id = ?", size.ID).Error)
	assert.Equal(t, 0, reloaded.Stock)

	require.NoError(t, client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return resolver.Restock(context.Background(), tx, sel, 1)
	}))
	require.NoError(t, conn.First(&reloaded, "id = ?", size.ID).Error)
	assert.Equal(t, 1, reloaded.Stock)
}

func TestFashionUnknownSizeIsUnavailable(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	vendor := dbtest.Vendor(t, conn, "Threads", "10")
	product, _ := dbtest.FashionSize(t, conn, vendor.ID, "Red", "M", "500", 2)

	_, err := NewResolver().Resolve(context.Background(), conn, Selector{
		ProductType: enums.ProductTypeFashion, ProductID: product.ID, Color: "Red", Size: "XL",
	})
	assert.True(t, pkgerrors.IsRejected(err, pkgerrors.ReasonVariantUnavailable))
}

func TestDishPricing(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	vendor := dbtest.Vendor(t, conn, "Spice Hub", "12")
	dish := dbtest.Dish(t, conn, vendor.ID, "250",
		types.DishVariant{Name: "Half", Price: dbtest.Money(t, "150")},
		types.DishVariant{Name: "Full", Price: dbtest.Money(t, "250")},
	)
	resolver := NewResolver()

	res, err := resolver.Resolve(context.Background(), conn, Selector{ProductType: enums.ProductTypeDish, ProductID: dish.ID, Variant: "half"})
	require.NoError(t, err)
	assert.True(t, res.UnitPrice.Equal(dbtest.Money(t, "150")))
	assert.Equal(t, "Half", res.Variant)
	assert.Nil(t, res.Stock)

	res, err = resolver.Resolve(context.Background(), conn, Selector{ProductType: enums.ProductTypeDish, ProductID: dish.ID})
	require.NoError(t, err)
	assert.True(t, res.UnitPrice.Equal(dbtest.Money(t, "250")))

	_, err = resolver.Resolve(context.Background(), conn, Selector{ProductType: enums.ProductTypeDish, ProductID: dish.ID, Variant: "Quarter"})
	assert.True(t, pkgerrors.IsRejected(err, pkgerrors.ReasonVariantUnavailable))

	require.NoError(t, conn.Model(dish).Update("is_available", false).Error)
	_, err = resolver.Resolve(context.Background(), conn, Selector{ProductType: enums.ProductTypeDish, ProductID: dish.ID})
	assert.True(t, pkgerrors.IsRejected(err, pkgerrors.ReasonVariantUnavailable))
}

func TestGroceryDeductFlipsStockFlag(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	vendor := dbtest.Vendor(t, conn, "FreshMart", "8")
	product := dbtest.Grocery(t, conn, vendor.ID, types.NewKeyedWeightTable(
		types.WeightOption{Label: "1kg", Price: dbtest.Money(t, "120"), Quantity: dbtest.Int(2), IsInStock: dbtest.Bool(true)},
	))
	sel := Selector{ProductType: enums.ProductTypeGrocery, ProductID: product.ID, Variant: "1 KG"}
	resolver := NewResolver()

	res, err := resolver.Resolve(context.Background(), conn, sel)
	require.NoError(t, err)
	assert.True(t, res.UnitPrice.Equal(dbtest.Money(t, "120")))
	require.NotNil(t, res.Stock)
	assert.Equal(t, 2, *res.Stock)

	require.NoError(t, client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return resolver.Deduct(context.Background(), tx, sel, 2)
	}))

	var reloaded models.GroceryProduct
	require.NoError(t, conn.First(&reloaded, "id = ?", product.ID).Error)
	assert.False(t, reloaded.IsInStock)
	assert.True(t, reloaded.Weights.Keyed())
	option, ok := reloaded.Weights.Find("1kg")
	require.True(t, ok)
	assert.Equal(t, 0, *option.Quantity)

	err = client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return resolver.Deduct(context.Background(), tx, sel, 1)
	})
	assert.True(t, pkgerrors.IsRejected(err, pkgerrors.ReasonInsufficientStock))

	require.NoError(t, client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return resolver.Restock(context.Background(), tx, sel, 1)
	}))
	require.NoError(t, conn.First(&reloaded, "id = ?", product.ID).Error)
	assert.True(t, reloaded.IsInStock)
}

func TestResolverRejectsUnknownType(t *testing.T) {
	_, err := NewResolver().For(enums.ProductType("toys"))
	require.Error(t, err)
}

func TestSplitFashionVariant(t *testing.T) {
	c, s := splitFashionVariant(Selector{Variant: "Navy-Blue-XL"})
	assert.Equal(t, "Navy-Blue", c)
	assert.Equal(t, "XL", s)

	c, s = splitFashionVariant(Selector{Color: "Red", Size: "S", Variant: "ignored-M"})
	assert.Equal(t, "Red", c)
	assert.Equal(t, "S", s)

	c, s = splitFashionVariant(Selector{Variant: "plain"})
	assert.Empty(t, c)
	assert.Empty(t, s)
}
