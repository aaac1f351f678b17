package checkout

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
)

// Repository persists checkout snapshots and the orders created from them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error)
	FindVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error)
	CreateCheckout(ctx context.Context, checkout *models.Checkout) error
	CreateOrder(ctx context.Context, order *models.Order) error
	SetGatewayOrderRef(ctx context.Context, checkoutID uuid.UUID, ref string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a checkout repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	var address models.Address
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", addressID, userID).Take(&address).Error; err != nil {
		return nil, err
	}
	return &address, nil
}

func (r *repository) FindVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Where("id = ?", vendorID).Take(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

// CreateCheckout inserts the checkout together with its items.
func (r *repository) CreateCheckout(ctx context.Context, checkout *models.Checkout) error {
	return r.db.WithContext(ctx).Create(checkout).Error
}

// CreateOrder inserts the order together with its items.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) SetGatewayOrderRef(ctx context.Context, checkoutID uuid.UUID, ref string) error {
	return r.db.WithContext(ctx).
		Model(&models.Checkout{}).
		Where("id = ?", checkoutID).
		Update("gateway_order_ref", ref).Error
}
