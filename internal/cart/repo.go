package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
)

// Repository is the persistence surface of the cart.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error)
	ListByVendor(ctx context.Context, userID, vendorID uuid.UUID) ([]models.CartLine, error)
	// LockForCheckout locks the user's lines (optionally one vendor's) in id order.
	LockForCheckout(ctx context.Context, userID uuid.UUID, vendorID *uuid.UUID) ([]models.CartLine, error)
	FindByID(ctx context.Context, userID, lineID uuid.UUID) (*models.CartLine, error)
	FindMatching(ctx context.Context, line models.CartLine) (*models.CartLine, error)
	OtherVendorsForType(ctx context.Context, userID uuid.UUID, productType enums.ProductType, vendorID uuid.UUID) (int64, error)
	Create(ctx context.Context, line *models.CartLine) error
	UpdateLine(ctx context.Context, line *models.CartLine) error
	Delete(ctx context.Context, userID, lineID uuid.UUID) (int64, error)
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) error
	VendorNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
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

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").Order("id ASC").
		Find(&lines).Error
	return lines, err
}

func (r *repository) ListByVendor(ctx context.Context, userID, vendorID uuid.UUID) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND vendor_id = ?", userID, vendorID).
		Order("created_at ASC").Order("id ASC").
		Find(&lines).Error
	return lines, err
}

func (r *repository) LockForCheckout(ctx context.Context, userID uuid.UUID, vendorID *uuid.UUID) ([]models.CartLine, error) {
	q := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID)
	if vendorID != nil {
		q = q.Where("vendor_id = ?", *vendorID)
	}
	var lines []models.CartLine
	err := q.Order("id ASC").Find(&lines).Error
	return lines, err
}

func (r *repository) FindByID(ctx context.Context, userID, lineID uuid.UUID) (*models.CartLine, error) {
	var line models.CartLine
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", lineID, userID).First(&line).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *repository) FindMatching(ctx context.Context, line models.CartLine) (*models.CartLine, error) {
	var existing models.CartLine
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_type = ? AND product_id = ?", line.UserID, line.ProductType, line.ProductID).
		Where("color = ? AND size = ? AND variant = ?", line.Color, line.Size, line.Variant).
		First(&existing).Error
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

func (r *repository) OtherVendorsForType(ctx context.Context, userID uuid.UUID, productType enums.ProductType, vendorID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("user_id = ? AND product_type = ? AND vendor_id <> ?", userID, productType, vendorID).
		Count(&count).Error
	return count, err
}

func (r *repository) Create(ctx context.Context, line *models.CartLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

func (r *repository) UpdateLine(ctx context.Context, line *models.CartLine) error {
	return r.db.WithContext(ctx).
		Model(line).
		Select("quantity", "unit_price", "product_name", "image_url", "updated_at").
		Updates(line).Error
}

func (r *repository) Delete(ctx context.Context, userID, lineID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", lineID, userID).Delete(&models.CartLine{})
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.CartLine{}).Error
}

func (r *repository) VendorNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var vendors []models.Vendor
	if err := r.db.WithContext(ctx).Select("id", "name").Where("id IN ?", ids).Find(&vendors).Error; err != nil {
		return nil, err
	}
	for _, v := range vendors {
		out[v.ID] = v.Name
	}
	return out, nil
}
