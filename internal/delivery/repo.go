package delivery

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	"github.com/angelmondragon/fastbag-backend/pkg/pagination"
)

// AssignmentFilter narrows a partner's assignment list.
type AssignmentFilter struct {
	Statuses     []enums.AssignStatus
	AcceptedOnly bool
	Limit        int
}

// Repository persists delivery offers, notifications and charge rules.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	LockOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrders(ctx context.Context, ids []uuid.UUID) ([]models.Order, error)
	OrderVendorIDs(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error)
	FindPartner(ctx context.Context, id uuid.UUID) (*models.DeliveryBoy, error)
	// ListCandidates returns active partners with coordinates and a positive radius.
	ListCandidates(ctx context.Context) ([]models.DeliveryBoy, error)
	// LockAssignments locks every offer of the order in id order.
	LockAssignments(ctx context.Context, orderID uuid.UUID) ([]models.OrderAssign, error)
	CreateAssignments(ctx context.Context, rows []models.OrderAssign) error
	CreateNotifications(ctx context.Context, rows []models.DeliveryNotification) error
	UpdateAssignment(ctx context.Context, id uuid.UUID, updates map[string]any) error
	RejectOthers(ctx context.Context, orderID, winnerID uuid.UUID) error
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	// UpdateOpenItems moves every item that is not cancelled or returned.
	UpdateOpenItems(ctx context.Context, orderID uuid.UUID, status enums.ItemStatus) error
	UpdateCheckoutPayment(ctx context.Context, checkoutID uuid.UUID, status enums.PaymentStatus) error
	MarkOrderNotificationsRead(ctx context.Context, orderID, partnerID uuid.UUID) error
	ListAssignments(ctx context.Context, partnerID uuid.UUID, filter AssignmentFilter) ([]models.OrderAssign, error)
	ListNotifications(ctx context.Context, partnerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.DeliveryNotification, error)
	MarkNotificationRead(ctx context.Context, partnerID, notificationID uuid.UUID) (int64, error)
	// MatchChargeRule returns the active band covering distanceKm with the lowest lower bound.
	MatchChargeRule(ctx context.Context, distanceKm float64) (*models.DeliveryChargeRule, error)
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

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
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

func (r *repository) FindOrders(ctx context.Context, ids []uuid.UUID) ([]models.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var orders []models.Order
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&orders).Error
	return orders, err
}

func (r *repository) OrderVendorIDs(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Distinct("vendor_id").
		Where("order_id = ? AND status <> ?", orderID, enums.ItemStatusCancelled).
		Order("vendor_id").
		Pluck("vendor_id", &ids).Error
	return ids, err
}

func (r *repository) FindPartner(ctx context.Context, id uuid.UUID) (*models.DeliveryBoy, error) {
	var boy models.DeliveryBoy
	if err := r.db.WithContext(ctx).First(&boy, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &boy, nil
}

func (r *repository) ListCandidates(ctx context.Context) ([]models.DeliveryBoy, error) {
	var boys []models.DeliveryBoy
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Where("radius_km > 0").
		Order("id").
		Find(&boys).Error
	return boys, err
}

func (r *repository) LockAssignments(ctx context.Context, orderID uuid.UUID) ([]models.OrderAssign, error) {
	var rows []models.OrderAssign
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		Order("id").
		Find(&rows).Error
	return rows, err
}

func (r *repository) CreateAssignments(ctx context.Context, rows []models.OrderAssign) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *repository) CreateNotifications(ctx context.Context, rows []models.DeliveryNotification) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *repository) UpdateAssignment(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderAssign{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) RejectOthers(ctx context.Context, orderID, winnerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderAssign{}).
		Where("order_id = ? AND id <> ?", orderID, winnerID).
		Updates(map[string]any{
			"status":      enums.AssignStatusRejected,
			"is_rejected": true,
		}).Error
}

func (r *repository) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) UpdateOpenItems(ctx context.Context, orderID uuid.UUID, status enums.ItemStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("order_id = ?", orderID).
		Where("status NOT IN ?", []enums.ItemStatus{enums.ItemStatusCancelled, enums.ItemStatusReturn, status}).
		Update("status", status).Error
}

func (r *repository) UpdateCheckoutPayment(ctx context.Context, checkoutID uuid.UUID, status enums.PaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Checkout{}).
		Where("id = ?", checkoutID).
		Update("payment_status", status).Error
}

func (r *repository) MarkOrderNotificationsRead(ctx context.Context, orderID, partnerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.DeliveryNotification{}).
		Where("order_id = ? AND delivery_boy_id = ? AND is_read = ?", orderID, partnerID, false).
		Update("is_read", true).Error
}

func (r *repository) ListAssignments(ctx context.Context, partnerID uuid.UUID, filter AssignmentFilter) ([]models.OrderAssign, error) {
	q := r.db.WithContext(ctx).Where("delivery_boy_id = ?", partnerID)
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if filter.AcceptedOnly {
		q = q.Where("is_accepted = ?", true)
	}
	var rows []models.OrderAssign
	err := q.Order("assigned_at DESC").
		Order("id DESC").
		Limit(pagination.NormalizeLimit(filter.Limit)).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListNotifications(ctx context.Context, partnerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.DeliveryNotification, error) {
	q := r.db.WithContext(ctx).
		Model(&models.DeliveryNotification{}).
		Where("delivery_notifications.delivery_boy_id = ?", partnerID)
	var rows []models.DeliveryNotification
	err := pagination.Apply(q, "delivery_notifications", cursor, limit).Find(&rows).Error
	return rows, err
}

func (r *repository) MarkNotificationRead(ctx context.Context, partnerID, notificationID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DeliveryNotification{}).
		Where("id = ? AND delivery_boy_id = ?", notificationID, partnerID).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *repository) MatchChargeRule(ctx context.Context, distanceKm float64) (*models.DeliveryChargeRule, error) {
	var rule models.DeliveryChargeRule
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("distance_from <= ? AND distance_to >= ?", distanceKm, distanceKm).
		Order("distance_from ASC").
		First(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}
