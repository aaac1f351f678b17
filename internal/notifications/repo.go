package notifications

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/pagination"
)

// Repository exposes persistence helpers for notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateMany(ctx context.Context, rows []models.Notification) error
	List(ctx context.Context, params listNotificationsParams) ([]models.Notification, error)
	MarkRead(ctx context.Context, owner Recipient, notificationID uuid.UUID) (notificationMarkResult, error)
	MarkAllRead(ctx context.Context, owner Recipient) (int64, error)
	DeviceTokens(ctx context.Context, audience Audience) ([]string, error)
	ForgetToken(ctx context.Context, token string) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listNotificationsParams struct {
	Owner      Recipient
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

type notificationMarkResult struct {
	Updated bool
	Found   bool
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) CreateMany(ctx context.Context, rows []models.Notification) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *repositoryImpl) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, error) {
	query := owned(r.db.WithContext(ctx).Model(&models.Notification{}), params.Owner)
	if params.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var rows []models.Notification
	err := pagination.Apply(query, "notifications", params.Cursor, params.Limit).Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) MarkRead(ctx context.Context, owner Recipient, notificationID uuid.UUID) (notificationMarkResult, error) {
	result := owned(r.db.WithContext(ctx).Model(&models.Notification{}), owner).
		Where("id = ? AND is_read = ?", notificationID, false).
		UpdateColumn("is_read", true)
	if result.Error != nil {
		return notificationMarkResult{}, result.Error
	}

	mark := notificationMarkResult{Updated: result.RowsAffected > 0}
	if mark.Updated {
		mark.Found = true
		return mark, nil
	}

	var count int64
	if err := owned(r.db.WithContext(ctx).Model(&models.Notification{}), owner).
		Where("id = ?", notificationID).
		Count(&count).Error; err != nil {
		return notificationMarkResult{}, err
	}
	mark.Found = count > 0
	return mark, nil
}

func (r *repositoryImpl) MarkAllRead(ctx context.Context, owner Recipient) (int64, error) {
	result := owned(r.db.WithContext(ctx).Model(&models.Notification{}), owner).
		Where("is_read = ?", false).
		UpdateColumn("is_read", true)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeviceTokens returns the distinct non-empty push tokens of everyone in the audience.
func (r *repositoryImpl) DeviceTokens(ctx context.Context, audience Audience) ([]string, error) {
	var tokens []string
	collect := func(model any, ids []uuid.UUID) error {
		if len(ids) == 0 {
			return nil
		}
		var found []string
		if err := r.db.WithContext(ctx).Model(model).
			Where("id IN ? AND fcm_token IS NOT NULL AND fcm_token <> ''", ids).
			Pluck("fcm_token", &found).Error; err != nil {
			return err
		}
		tokens = append(tokens, found...)
		return nil
	}
	if err := collect(&models.User{}, audience.UserIDs); err != nil {
		return nil, err
	}
	if err := collect(&models.Vendor{}, audience.VendorIDs); err != nil {
		return nil, err
	}
	if err := collect(&models.DeliveryBoy{}, audience.PartnerIDs); err != nil {
		return nil, err
	}
	return dedupe(tokens), nil
}

// ForgetToken clears a token the push provider reported as unregistered.
func (r *repositoryImpl) ForgetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	for _, model := range []any{&models.User{}, &models.Vendor{}, &models.DeliveryBoy{}} {
		if err := r.db.WithContext(ctx).Model(model).
			Where("fcm_token = ?", token).
			UpdateColumn("fcm_token", nil).Error; err != nil {
			return err
		}
	}
	return nil
}

func owned(q *gorm.DB, owner Recipient) *gorm.DB {
	if owner.UserID != nil {
		q = q.Where("user_id = ?", *owner.UserID)
	}
	if owner.VendorID != nil {
		q = q.Where("vendor_id = ?", *owner.VendorID)
	}
	return q
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
