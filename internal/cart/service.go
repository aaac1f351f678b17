package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fastbag-backend/internal/catalog"
	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type priceResolver interface {
	Resolve(ctx context.Context, tx *gorm.DB, sel catalog.Selector) (*catalog.Resolution, error)
}

// Service manages a user's cart lines.
type Service interface {
	Add(ctx context.Context, userID uuid.UUID, input AddLineInput) (*models.CartLine, error)
	SetQuantity(ctx context.Context, userID, lineID uuid.UUID, qty int) (*models.CartLine, error)
	Remove(ctx context.Context, userID, lineID uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error)
	ListByVendor(ctx context.Context, userID, vendorID uuid.UUID) ([]models.CartLine, error)
	GroupByVendor(ctx context.Context, userID uuid.UUID) ([]VendorBundle, error)
}

// AddLineInput selects a product variant to put in the cart.
type AddLineInput struct {
	ProductType enums.ProductType
	ProductID   uuid.UUID
	Quantity    int
	Color       string
	Size        string
	Variant     string
}

// VendorBundle is the cart slice belonging to one vendor.
type VendorBundle struct {
	VendorID   uuid.UUID         `json:"vendor_id"`
	VendorName string            `json:"vendor_name"`
	ItemCount  int               `json:"item_count"`
	Subtotal   decimal.Decimal   `json:"subtotal"`
	Lines      []models.CartLine `json:"lines"`
}

type service struct {
	tx      txRunner
	repo    Repository
	catalog priceResolver
}

func NewService(tx txRunner, repo Repository, resolver priceResolver) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("price resolver required")
	}
	return &service{tx: tx, repo: repo, catalog: resolver}, nil
}

func (s *service) Add(ctx context.Context, userID uuid.UUID, input AddLineInput) (*models.CartLine, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	if !input.ProductType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid product type %q", input.ProductType))
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	var saved *models.CartLine
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		res, err := s.catalog.Resolve(ctx, tx, catalog.Selector{
			ProductType: input.ProductType,
			ProductID:   input.ProductID,
			Color:       input.Color,
			Size:        input.Size,
			Variant:     input.Variant,
		})
		if err != nil {
			return err
		}

		if input.ProductType.SingleVendorPerCart() {
			others, err := repo.OtherVendorsForType(ctx, userID, input.ProductType, res.VendorID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check cart vendors")
			}
			if others > 0 {
				return pkgerrors.Reject(pkgerrors.ReasonVendorMismatchInCart,
					fmt.Sprintf("Your cart already has %s items from another vendor. Clear them to add items from this vendor.", input.ProductType))
			}
		}

		line := models.CartLine{
			UserID:      userID,
			VendorID:    res.VendorID,
			ProductType: input.ProductType,
			ProductID:   input.ProductID,
			ProductName: res.ProductName,
			ImageURL:    res.ImageURL,
			Color:       res.Color,
			Size:        res.Size,
			Variant:     res.Variant,
			Quantity:    input.Quantity,
			UnitPrice:   res.UnitPrice,
		}

		existing, err := repo.FindMatching(ctx, line)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if !res.HasStock(line.Quantity) {
				return res.StockError()
			}
			if err := repo.Create(ctx, &line); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart line")
			}
			saved = &line
			return nil
		case err != nil:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find cart line")
		}

		existing.Quantity += input.Quantity
		if !res.HasStock(existing.Quantity) {
			return res.StockError()
		}
		existing.UnitPrice = res.UnitPrice
		existing.ProductName = res.ProductName
		existing.ImageURL = res.ImageURL
		if err := repo.UpdateLine(ctx, existing); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
		}
		saved = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *service) SetQuantity(ctx context.Context, userID, lineID uuid.UUID, qty int) (*models.CartLine, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	var saved *models.CartLine
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		line, err := repo.FindByID(ctx, userID, lineID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
		}

		res, err := s.catalog.Resolve(ctx, tx, selectorFor(*line))
		if err != nil {
			return err
		}
		if !res.HasStock(qty) {
			return res.StockError()
		}
		line.Quantity = qty
		line.UnitPrice = res.UnitPrice
		if err := repo.UpdateLine(ctx, line); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
		}
		saved = line
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *service) Remove(ctx context.Context, userID, lineID uuid.UUID) error {
	n, err := s.repo.Delete(ctx, userID, lineID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart line")
	}
	if n == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	return nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error) {
	lines, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart")
	}
	return lines, nil
}

func (s *service) ListByVendor(ctx context.Context, userID, vendorID uuid.UUID) ([]models.CartLine, error) {
	lines, err := s.repo.ListByVendor(ctx, userID, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list vendor cart")
	}
	return lines, nil
}

func (s *service) GroupByVendor(ctx context.Context, userID uuid.UUID) ([]VendorBundle, error) {
	lines, err := s.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	byVendor := map[uuid.UUID]*VendorBundle{}
	ids := make([]uuid.UUID, 0)
	for _, line := range lines {
		bundle, ok := byVendor[line.VendorID]
		if !ok {
			bundle = &VendorBundle{VendorID: line.VendorID, Subtotal: decimal.Zero}
			byVendor[line.VendorID] = bundle
			ids = append(ids, line.VendorID)
		}
		bundle.Lines = append(bundle.Lines, line)
		bundle.ItemCount += line.Quantity
		bundle.Subtotal = bundle.Subtotal.Add(line.Subtotal())
	}

	names, err := s.repo.VendorNames(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load vendor names")
	}

	out := make([]VendorBundle, 0, len(ids))
	for _, id := range ids {
		bundle := byVendor[id]
		bundle.VendorName = names[id]
		out = append(out, *bundle)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].VendorName) < strings.ToLower(out[j].VendorName)
	})
	return out, nil
}

// selectorFor rebuilds the catalog selector stored on a cart line.
func selectorFor(line models.CartLine) catalog.Selector {
	return catalog.Selector{
		ProductType: line.ProductType,
		ProductID:   line.ProductID,
		Color:       line.Color,
		Size:        line.Size,
		Variant:     line.Variant,
	}
}
