package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	"github.com/angelmondragon/fastbag-backend/pkg/pagination"
)

// Repository persists orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	LockOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	// LockItems locks every item of the order in id order.
	LockItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	UpdateItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	UpdateCheckoutPayment(ctx context.Context, checkoutID uuid.UUID, status enums.PaymentStatus) error
	ListForUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int, filters Filters) ([]models.Order, error)
	ListForVendor(ctx context.Context, vendorID uuid.UUID, cursor *pagination.Cursor, limit int, filters Filters) ([]models.Order, error)
	// ListUnpaidOnline returns ids of online orders still awaiting payment
	// that were placed before cutoff.
	ListUnpaidOnline(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}
