package commissions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
)

// ListFilter narrows the commission ledger.
type ListFilter struct {
	Date     *time.Time
	VendorID *uuid.UUID
	Status   *enums.CommissionStatus
}

// Repository persists vendor commission days and the per-order settlement ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ActiveItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	SettledVendors(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error)
	FindVendors(ctx context.Context, ids []uuid.UUID) ([]models.Vendor, error)
	LockDay(ctx context.Context, vendorID uuid.UUID, day time.Time) (*models.VendorCommission, error)
	CreateDay(ctx context.Context, row *models.VendorCommission) error
	UpdateCommission(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CreateSettlement(ctx context.Context, row *models.CommissionSettlement) error
	// ListUnsettled returns delivered, paid orders touched since the given
	// time that have no settlement ledger rows yet.
	ListUnsettled(ctx context.Context, since time.Time, limit int) ([]uuid.UUID, error)
	List(ctx context.Context, filter ListFilter) ([]models.VendorCommission, error)
	FindCommission(ctx context.Context, id uuid.UUID) (*models.VendorCommission, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) LockOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ActiveItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status <> ?", orderID, enums.ItemStatusCancelled).
		Order("id").
		Find(&items).Error
	return items, err
}

func (r *repository) SettledVendors(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.CommissionSettlement{}).
		Where("order_id = ?", orderID).
		Pluck("vendor_id", &ids).Error
	return ids, err
}

func (r *repository) FindVendors(ctx context.Context, ids []uuid.UUID) ([]models.Vendor, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var vendors []models.Vendor
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&vendors).Error
	return vendors, err
}

func (r *repository) LockDay(ctx context.Context, vendorID uuid.UUID, day time.Time) (*models.VendorCommission, error) {
	var row models.VendorCommission
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("vendor_id = ? AND settlement_date = ?", vendorID, day).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) CreateDay(ctx context.Context, row *models.VendorCommission) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) UpdateCommission(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.VendorCommission{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CreateSettlement(ctx context.Context, row *models.CommissionSettlement) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) ListUnsettled(ctx context.Context, since time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_status = ? AND payment_status = ?", enums.OrderStatusDelivered, enums.PaymentStatusPaid).
		Where("updated_at >= ?", since.UTC()).
		Where("NOT EXISTS (SELECT 1 FROM commission_settlements cs WHERE cs.order_id = orders.id)").
		Order("updated_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.VendorCommission, error) {
	q := r.db.WithContext(ctx)
	if filter.Date != nil {
		q = q.Where("settlement_date = ?", *filter.Date)
	}
	if filter.VendorID != nil {
		q = q.Where("vendor_id = ?", *filter.VendorID)
	}
	if filter.Status != nil {
		q = q.Where("payment_status = ?", *filter.Status)
	}
	var rows []models.VendorCommission
	err := q.Order("settlement_date DESC").Order("vendor_id").Find(&rows).Error
	return rows, err
}

func (r *repository) FindCommission(ctx context.Context, id uuid.UUID) (*models.VendorCommission, error) {
	var row models.VendorCommission
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
