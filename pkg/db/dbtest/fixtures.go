package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/types"
)

// Money parses a fixed-point literal and fails the test on bad input.
func Money(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	require.NoError(t, err)
	return d
}

func Float(v float64) *float64 {
	return &v
}

func Int(v int) *int {
	return &v
}

func Bool(v bool) *bool {
	return &v
}

func Create(t *testing.T, conn *gorm.DB, rows ...any) {
	t.Helper()
	for _, row := range rows {
		require.NoError(t, conn.Create(row).Error)
	}
}

func User(t *testing.T, conn *gorm.DB) *models.User {
	t.Helper()
	u := &models.User{Name: "Asha", Email: uuid.NewString() + "@example.com"}
	Create(t, conn, u)
	return u
}

// Address places the address at lat/lng when both are non-nil.
func Address(t *testing.T, conn *gorm.DB, userID uuid.UUID, lat, lng *float64) *models.Address {
	t.Helper()
	a := &models.Address{
		UserID:        userID,
		Name:          "Home",
		Line:          "12 MG Road",
		City:          "Bengaluru",
		State:         "KA",
		Pincode:       "560001",
		ContactNumber: "9999999999",
		Latitude:      lat,
		Longitude:     lng,
	}
	Create(t, conn, a)
	return a
}

func Vendor(t *testing.T, conn *gorm.DB, name, commissionPct string) *models.Vendor {
	t.Helper()
	v := &models.Vendor{
		Name:                 name,
		CommissionPercentage: Money(t, commissionPct),
		IsActive:             true,
	}
	Create(t, conn, v)
	return v
}

// FashionSize seeds a product with one color and one size.
func FashionSize(t *testing.T, conn *gorm.DB, vendorID uuid.UUID, color, size, price string, stock int) (*models.FashionProduct, *models.FashionSize) {
	t.Helper()
	p := &models.FashionProduct{VendorID: vendorID, Name: "Linen Shirt", IsActive: true}
	Create(t, conn, p)
	c := &models.FashionColor{ProductID: p.ID, Name: color}
	Create(t, conn, c)
	s := &models.FashionSize{ColorID: c.ID, Size: size, Price: Money(t, price), Stock: stock}
	Create(t, conn, s)
	return p, s
}

func Dish(t *testing.T, conn *gorm.DB, vendorID uuid.UUID, price string, variants ...types.DishVariant) *models.Dish {
	t.Helper()
	d := &models.Dish{
		VendorID:    vendorID,
		Name:        "Paneer Tikka",
		Price:       Money(t, price),
		IsAvailable: true,
		Variants:    types.DishVariants(variants),
	}
	Create(t, conn, d)
	return d
}

func Grocery(t *testing.T, conn *gorm.DB, vendorID uuid.UUID, weights types.WeightTable) *models.GroceryProduct {
	t.Helper()
	g := &models.GroceryProduct{
		VendorID:  vendorID,
		Name:      "Basmati Rice",
		Price:     Money(t, "0"),
		Weights:   weights,
		IsInStock: true,
	}
	Create(t, conn, g)
	return g
}

func DeliveryBoy(t *testing.T, conn *gorm.DB, lat, lng *float64, radiusKm float64) *models.DeliveryBoy {
	t.Helper()
	d := &models.DeliveryBoy{
		Name:      "Ravi",
		Phone:     "8888888888",
		Latitude:  lat,
		Longitude: lng,
		RadiusKm:  radiusKm,
		IsActive:  true,
	}
	Create(t, conn, d)
	return d
}
