package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/fastbag-backend/internal/catalog"
	"github.com/angelmondragon/fastbag-backend/pkg/db"
	"github.com/angelmondragon/fastbag-backend/pkg/db/dbtest"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
	"github.com/angelmondragon/fastbag-backend/pkg/types"
)

func newTestService(t *testing.T) (Service, *db.Client) {
	t.Helper()
	client := dbtest.Open(t)
	svc, err := NewService(client, NewRepository(client.DB()), catalog.NewResolver())
	require.NoError(t, err)
	return svc, client
}

func TestAddMergesIdenticalLines(t *testing.T) {
	svc, client := newTestService(t)
	conn := client.DB()
	user := dbtest.User(t, conn)
	vendor := dbtest.Vendor(t, conn, "Threads", "10")
	product, _ := dbtest.FashionSize(t, conn, vendor.ID, "Red", "M", "499.50", 5)
	ctx := context.Background()

	input := AddLineInput{ProductType: enums.ProductTypeFashion, ProductID: product.ID, Quantity: 2, Variant: "Red-M"}
	first, err := svc.Add(ctx, user.ID, input)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Quantity)
	assert.True(t, first.UnitPrice.Equal(dbtest.Money(t, "499.50")))

	second, err := svc.Add(ctx, user.ID, AddLineInput{ProductType: enums.ProductTypeFashion, ProductID: product.ID, Quantity: 1, Color: "red", Size: "m"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, second.Quantity)

	lines, err := svc.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	_, err = svc.Add(ctx, user.ID, AddLineInput{ProductType: enums.ProductTypeFashion, ProductID: product.ID, Quantity: 3, Variant: "Red-M"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsRejected(err, pkgerrors.ReasonInsufficientStock))
	assert.Equal(t, "Insufficient stock for size M, available: 5", pkgerrors.As(err).Message())
}

func TestAddEnforcesSingleVendorForDishes(t *testing.T) {
	svc, client := newTestService(t)
	conn := client.DB()
	user := dbtest.User(t, conn)
	vendorA := dbtest.Vendor(t, conn, "Spice Hub", "12")
	vendorB := dbtest.Vendor(t, conn, "Curry House", "12")
	dishA := dbtest.Dish(t, conn, vendorA.ID, "200")
	dishB := dbtest.Dish(t, conn, vendorB.ID, "180")
	ctx := context.Background()

	_, err := svc.Add(ctx, user.ID, AddLineInput{ProductType: enums.ProductTypeDish, ProductID: dishA.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = svc.Add(ctx, user.ID, AddLineInput{ProductType: enums.ProductTypeDish, ProductID: dishB.ID, Quantity: 1})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsRejected(err, pkgerrors.ReasonVendorMismatchInCart))

	// fashion lines from other vendors are unrestricted
	product, _ := dbtest.FashionSize(t, conn, vendorB.ID, "Blue", "L", "899", 3)
	_, err = svc.Add(ctx, user.ID, AddLineInput{ProductType: enums.ProductTypeFashion, ProductID: product.ID, Quantity: 1, Variant: "Blue-L"})
	require.NoError(t, err)
}

func TestSetQuantityAndRemove(t *testing.T) {
	svc, client := newTestService(t)
	conn := client.DB()
	user := dbtest.User(t, conn)
	vendor := dbtest.Vendor(t, conn, "FreshMart", "8")
	rice := dbtest.Grocery(t, conn, vendor.ID, types.NewListWeightTable(
		types.WeightOption{Label: "5kg", Price: dbtest.Money(t, "540"), Quantity: dbtest.Int(4)},
	))
	ctx := context.Background()

	line, err := svc.Add(ctx, user.ID, AddLineInput{ProductType: enums.ProductTypeGrocery, ProductID: rice.ID, Quantity: 1, Variant: "5kg"})
	require.NoError(t, err)

	_, err = svc.SetQuantity(ctx, user.ID, line.ID, 0)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.SetQuantity(ctx, user.ID, line.ID, 9)
	assert.True(t, pkgerrors.IsRejected(err, pkgerrors.ReasonInsufficientStock))

	updated, err := svc.SetQuantity(ctx, user.ID, line.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity)

	_, err = svc.SetQuantity(ctx, uuid.New(), line.ID, 2)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	require.NoError(t, svc.Remove(ctx, user.ID, line.ID))
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(svc.Remove(ctx, user.ID, line.ID)).Code())
}

func TestGroupByVendor(t *testing.T) {
	svc, client := newTestService(t)
	conn := client.DB()
	user := dbtest.User(t, conn)
	zed := dbtest.Vendor(t, conn, "Zed Apparel", "10")
	abc := dbtest.Vendor(t, conn, "Abc Fashion", "10")
	p1, _ := dbtest.FashionSize(t, conn, zed.ID, "Red", "M", "100", 10)
	p2, _ := dbtest.FashionSize(t, conn, abc.ID, "Black", "S", "250", 10)
	ctx := context.Background()

	_, err := svc.Add(ctx, user.ID, AddLineInput{ProductType: enums.ProductTypeFashion, ProductID: p1.ID, Quantity: 3, Variant: "Red-M"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, user.ID, AddLineInput{ProductType: enums.ProductTypeFashion, ProductID: p2.ID, Quantity: 2, Variant: "Black-S"})
	require.NoError(t, err)

	bundles, err := svc.GroupByVendor(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, bundles, 2)
	assert.Equal(t, "Abc Fashion", bundles[0].VendorName)
	assert.Equal(t, 2, bundles[0].ItemCount)
	assert.True(t, bundles[0].Subtotal.Equal(dbtest.Money(t, "500")))
	assert.Equal(t, "Zed Apparel", bundles[1].VendorName)
	assert.True(t, bundles[1].Subtotal.Equal(dbtest.Money(t, "300")))

	vendorLines, err := svc.ListByVendor(ctx, user.ID, zed.ID)
	require.NoError(t, err)
	assert.Len(t, vendorLines, 1)
}

func TestAddValidatesInput(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Add(context.Background(), uuid.New(), AddLineInput{ProductType: "toys", ProductID: uuid.New(), Quantity: 1})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Add(context.Background(), uuid.New(), AddLineInput{ProductType: enums.ProductTypeDish, ProductID: uuid.New(), Quantity: 0})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
