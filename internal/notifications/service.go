package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
	"github.com/angelmondragon/fastbag-backend/pkg/pagination"
)

// Service defines notification list/read operations.
type Service interface {
	List(ctx context.Context, params ListParams) (*pagination.Page[View], error)
	MarkRead(ctx context.Context, owner Recipient, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, owner Recipient) (int64, error)
}

type service struct {
	repo Repository
}

// Recipient scopes notifications to exactly one customer or one vendor.
type Recipient struct {
	UserID   *uuid.UUID
	VendorID *uuid.UUID
}

// ForUser scopes to a customer inbox.
func ForUser(id uuid.UUID) Recipient { return Recipient{UserID: &id} }

// ForVendor scopes to a vendor inbox.
func ForVendor(id uuid.UUID) Recipient { return Recipient{VendorID: &id} }

func (r Recipient) validate() error {
	switch {
	case r.UserID != nil && r.VendorID != nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "notification owner must be a user or a vendor, not both")
	case r.UserID != nil && *r.UserID != uuid.Nil:
		return nil
	case r.VendorID != nil && *r.VendorID != uuid.Nil:
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "notification owner required")
	}
}

// ListParams configures pagination for notifications.
type ListParams struct {
	Owner      Recipient
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// View is the API shape of a notification.
type View struct {
	ID        uuid.UUID              `json:"id"`
	OrderID   *uuid.UUID             `json:"order_id,omitempty"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	IsRead    bool                   `json:"is_read"`
	CreatedAt time.Time              `json:"created_at"`
}

func newView(n models.Notification) View {
	return View{
		ID:        n.ID,
		OrderID:   n.OrderID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

// NewService wires notifications dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*pagination.Page[View], error) {
	if err := params.Owner.validate(); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, listNotificationsParams{
		Owner:      params.Owner,
		Limit:      params.Limit,
		Cursor:     cursor,
		UnreadOnly: params.UnreadOnly,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	page := pagination.Trim(rows, params.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	views := make([]View, len(page.Items))
	for i, n := range page.Items {
		views[i] = newView(n)
	}
	return &pagination.Page[View]{Items: views, NextCursor: page.NextCursor}, nil
}

func (s *service) MarkRead(ctx context.Context, owner Recipient, notificationID uuid.UUID) error {
	if err := owner.validate(); err != nil {
		return err
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, owner, notificationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, owner Recipient) (int64, error) {
	if err := owner.validate(); err != nil {
		return 0, err
	}

	count, err := s.repo.MarkAllRead(ctx, owner)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}
