package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fastbag-backend/internal/catalog"
	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
	"github.com/angelmondragon/fastbag-backend/pkg/outbox"
	"github.com/angelmondragon/fastbag-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/fastbag-backend/pkg/pagination"
)

// ReasonPaymentNotCompleted is recorded on orders released by the expiry sweep.
const ReasonPaymentNotCompleted = "payment not completed"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// StockRestocker returns cancelled quantities to the catalog.
type StockRestocker interface {
	Restock(ctx context.Context, tx *gorm.DB, sel catalog.Selector, qty int) error
}

// Service drives the order and order item lifecycle.
type Service interface {
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderView, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters Filters) (*pagination.Page[OrderView], error)
	ListForVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params, filters Filters) (*pagination.Page[OrderView], error)
	CancelItem(ctx context.Context, actor Actor, orderID, itemID uuid.UUID, reason string) (*OrderView, error)
	CancelOrder(ctx context.Context, actor Actor, orderID uuid.UUID, reason string) (*OrderView, error)
	ReturnItem(ctx context.Context, actor Actor, orderID, itemID uuid.UUID, reason string) (*OrderView, error)
	// UpdateItemStatus moves one item; reason is required when status is cancelled.
	UpdateItemStatus(ctx context.Context, actor Actor, orderID, itemID uuid.UUID, status enums.ItemStatus, reason string) (*OrderView, error)
	// AdvanceOrder moves every active item of the acting vendor to status.
	AdvanceOrder(ctx context.Context, actor Actor, orderID uuid.UUID, status enums.ItemStatus, reason string) (*OrderView, error)
	// ExpireUnpaid cancels online orders left unpaid since before cutoff and
	// restocks their items. It returns how many orders were released.
	ExpireUnpaid(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	inventory StockRestocker
	now       func() time.Time
}

// NewService wires the order lifecycle service.
func NewService(repo Repository, tx txRunner, publisher outboxPublisher, inventory StockRestocker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("stock restocker required")
	}
	return &service{repo: repo, tx: tx, outbox: publisher, inventory: inventory, now: time.Now}, nil
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderView, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	items, err := visibleItems(actor, order, order.Items)
	if err != nil {
		return nil, err
	}
	view := NewOrderView(*order, items, actor.Role == enums.RoleCustomer)
	return &view, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters Filters) (*pagination.Page[OrderView], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListForUser(ctx, userID, cursor, params.Limit, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return pageOf(rows, params.Limit, true), nil
}

func (s *service) ListForVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params, filters Filters) (*pagination.Page[OrderView], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListForVendor(ctx, vendorID, cursor, params.Limit, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list vendor orders")
	}
	return pageOf(rows, params.Limit, false), nil
}

func pageOf(rows []models.Order, limit int, withPin bool) *pagination.Page[OrderView] {
	page := pagination.Trim(rows, limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	views := make([]OrderView, len(page.Items))
	for i, order := range page.Items {
		views[i] = NewOrderView(order, order.Items, withPin)
	}
	return &pagination.Page[OrderView]{Items: views, NextCursor: page.NextCursor}
}

func (s *service) CancelItem(ctx context.Context, actor Actor, orderID, itemID uuid.UUID, reason string) (*OrderView, error) {
	if err := requireReason(reason); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, orderID, func(m *mutation) error {
		item, err := m.item(itemID)
		if err != nil {
			return err
		}
		return m.cancel(item, reason)
	})
}

func (s *service) CancelOrder(ctx context.Context, actor Actor, orderID uuid.UUID, reason string) (*OrderView, error) {
	if err := requireReason(reason); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, orderID, func(m *mutation) error {
		targets := m.owned()
		if allCancelled(targets) {
			return pkgerrors.Reject(pkgerrors.ReasonAlreadyCancelled, "Order is already cancelled")
		}
		for _, item := range targets {
			if item.Status == enums.ItemStatusCancelled {
				continue
			}
			if !item.Status.CanTransitionTo(enums.ItemStatusCancelled) {
				return invalidTransition(item.Status, enums.ItemStatusCancelled)
			}
		}
		for _, item := range targets {
			if item.Status == enums.ItemStatusCancelled {
				continue
			}
			if err := m.cancel(item, reason); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *service) ReturnItem(ctx context.Context, actor Actor, orderID, itemID uuid.UUID, reason string) (*OrderView, error) {
	if actor.Role != enums.RoleCustomer && actor.Role != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the customer can return items")
	}
	return s.mutate(ctx, actor, orderID, func(m *mutation) error {
		item, err := m.item(itemID)
		if err != nil {
			return err
		}
		if item.Status == enums.ItemStatusCancelled {
			return alreadyCancelled()
		}
		if item.Status != enums.ItemStatusDelivered {
			return pkgerrors.Reject(pkgerrors.ReasonNotDelivered,
				fmt.Sprintf("Only delivered items can be returned. Current status: %s", item.Status))
		}
		now := s.now().UTC()
		item.Status = enums.ItemStatusReturn
		item.ReturnedAt = &now
		m.recompute = true
		if r := strings.TrimSpace(reason); r != "" {
			item.ReturnReason = &r
		}
		return m.save(item, map[string]any{
			"status":        item.Status,
			"return_reason": item.ReturnReason,
			"returned_at":   item.ReturnedAt,
		})
	})
}

func (s *service) UpdateItemStatus(ctx context.Context, actor Actor, orderID, itemID uuid.UUID, status enums.ItemStatus, reason string) (*OrderView, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid item status %q", status))
	}
	if status == enums.ItemStatusReturn {
		return s.ReturnItem(ctx, actor, orderID, itemID, reason)
	}
	if status == enums.ItemStatusCancelled {
		return s.CancelItem(ctx, actor, orderID, itemID, reason)
	}
	return s.mutate(ctx, actor, orderID, func(m *mutation) error {
		item, err := m.item(itemID)
		if err != nil {
			return err
		}
		if item.Status == enums.ItemStatusCancelled {
			return alreadyCancelled()
		}
		if item.Status == status {
			return nil
		}
		if err := m.requireSettledPayment(); err != nil {
			return err
		}
		if !item.Status.CanTransitionTo(status) {
			return invalidTransition(item.Status, status)
		}
		item.Status = status
		return m.save(item, map[string]any{"status": status})
	})
}

func (s *service) AdvanceOrder(ctx context.Context, actor Actor, orderID uuid.UUID, status enums.ItemStatus, reason string) (*OrderView, error) {
	if !status.IsValid() || status == enums.ItemStatusPending || status == enums.ItemStatusReturn {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid target status %q", status))
	}
	if status == enums.ItemStatusCancelled {
		return s.CancelOrder(ctx, actor, orderID, reason)
	}
	return s.mutate(ctx, actor, orderID, func(m *mutation) error {
		if allCancelled(m.owned()) {
			return pkgerrors.Reject(pkgerrors.ReasonAlreadyCancelled, "Order is already cancelled")
		}
		if err := m.requireSettledPayment(); err != nil {
			return err
		}
		for _, item := range m.owned() {
			if item.Status == enums.ItemStatusCancelled || item.Status == status {
				continue
			}
			if !item.Status.CanTransitionTo(status) {
				return invalidTransition(item.Status, status)
			}
			item.Status = status
			if err := m.save(item, map[string]any{"status": status}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *service) ExpireUnpaid(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = pagination.MaxLimit
	}
	ids, err := s.repo.ListUnpaidOnline(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list unpaid orders")
	}
	system := Actor{Role: enums.RoleAdmin}
	released := 0
	for _, id := range ids {
		_, err := s.mutate(ctx, system, id, func(m *mutation) error {
			// re-check under lock; the customer may have paid meanwhile
			if m.order.PaymentStatus == enums.PaymentStatusPaid || m.order.OrderStatus.IsClosed() {
				return errSkip
			}
			for _, item := range m.items {
				if item.Status == enums.ItemStatusCancelled {
					continue
				}
				if err := m.cancel(item, ReasonPaymentNotCompleted); err != nil {
					return err
				}
			}
			reason := ReasonPaymentNotCompleted
			m.orderUpdates["reason"] = &reason
			m.order.Reason = &reason
			m.order.PaymentStatus = enums.PaymentStatusFailed
			m.paymentChanged = true
			return nil
		})
		if errors.Is(err, errSkip) {
			continue
		}
		if err != nil {
			return released, err
		}
		released++
	}
	return released, nil
}

var errSkip = errors.New("skip")

// mutation is the locked working set of one order change.
type mutation struct {
	ctx            context.Context
	tx             *gorm.DB
	repo           Repository
	svc            *service
	actor          Actor
	order          *models.Order
	items          []*models.OrderItem
	orderUpdates   map[string]any
	paymentChanged bool

	// set by cancellations and returns; plain status moves keep the amount
	recompute bool
	cancelled []payloads.OrderItemCancelledEvent
}

func (s *service) mutate(ctx context.Context, actor Actor, orderID uuid.UUID, apply func(m *mutation) error) (*OrderView, error) {
	var view OrderView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, orderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}
		rows, err := repo.LockItems(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order items")
		}
		if _, err := visibleItems(actor, order, rows); err != nil {
			return err
		}

		m := &mutation{
			ctx:          ctx,
			tx:           tx,
			repo:         repo,
			svc:          s,
			actor:        actor,
			order:        order,
			orderUpdates: map[string]any{},
		}
		for i := range rows {
			m.items = append(m.items, &rows[i])
		}
		if err := apply(m); err != nil {
			return err
		}
		if err := m.finish(); err != nil {
			return err
		}

		final := make([]models.OrderItem, len(m.items))
		for i, item := range m.items {
			final[i] = *item
		}
		visible, _ := visibleItems(actor, order, final)
		view = NewOrderView(*order, visible, actor.Role == enums.RoleCustomer)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (m *mutation) item(itemID uuid.UUID) (*models.OrderItem, error) {
	for _, item := range m.items {
		if item.ID == itemID {
			if m.actor.Role == enums.RoleVendor && (m.actor.VendorID == nil || item.VendorID != *m.actor.VendorID) {
				return nil, pkgerrors.New(pkgerrors.CodeForbidden, "item does not belong to vendor")
			}
			return item, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
}

// owned returns the items the actor may change: a vendor's own items, or all.
func (m *mutation) owned() []*models.OrderItem {
	if m.actor.Role != enums.RoleVendor {
		return m.items
	}
	out := make([]*models.OrderItem, 0, len(m.items))
	for _, item := range m.items {
		if m.actor.VendorID != nil && item.VendorID == *m.actor.VendorID {
			out = append(out, item)
		}
	}
	return out
}

func (m *mutation) requireSettledPayment() error {
	if m.order.PaymentMethod == enums.PaymentMethodOnline && m.order.PaymentStatus != enums.PaymentStatusPaid {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order payment is not complete")
	}
	return nil
}

func (m *mutation) cancel(item *models.OrderItem, reason string) error {
	if item.Status == enums.ItemStatusCancelled {
		return alreadyCancelled()
	}
	if !item.Status.CanTransitionTo(enums.ItemStatusCancelled) {
		return invalidTransition(item.Status, enums.ItemStatusCancelled)
	}
	if item.ProductType.TracksStock() {
		if err := m.svc.inventory.Restock(m.ctx, m.tx, catalog.Selector{
			ProductType: item.ProductType,
			ProductID:   item.ProductID,
			Color:       item.Color,
			Size:        item.Size,
			Variant:     item.Variant,
		}, item.Quantity); err != nil {
			return err
		}
	}

	now := m.svc.now().UTC()
	item.Status = enums.ItemStatusCancelled
	item.CancelledAt = &now
	if r := strings.TrimSpace(reason); r != "" {
		item.CancelReason = &r
	}
	if err := m.save(item, map[string]any{
		"status":        item.Status,
		"cancel_reason": item.CancelReason,
		"cancelled_at":  item.CancelledAt,
	}); err != nil {
		return err
	}

	m.recompute = true
	m.cancelled = append(m.cancelled, payloads.OrderItemCancelledEvent{
		OrderID:  m.order.ID,
		OrderRef: m.order.OrderID,
		ItemID:   item.ID,
		UserID:   m.order.UserID,
		VendorID: item.VendorID,
		Reason:   strings.TrimSpace(reason),
	})
	return nil
}

func (m *mutation) save(item *models.OrderItem, updates map[string]any) error {
	if err := m.repo.UpdateItem(m.ctx, item.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order item")
	}
	return nil
}

// finish recalculates the order from its items and persists what changed.
func (m *mutation) finish() error {
	items := make([]models.OrderItem, len(m.items))
	for i, item := range m.items {
		items[i] = *item
	}
	totals := Recalculate(*m.order, items)
	from := m.order.OrderStatus

	if m.recompute && !totals.FinalAmount.Equal(m.order.FinalAmount) {
		m.orderUpdates["final_amount"] = totals.FinalAmount
		m.order.FinalAmount = totals.FinalAmount
	}
	if totals.OrderStatus != from {
		m.orderUpdates["order_status"] = totals.OrderStatus
		m.order.OrderStatus = totals.OrderStatus
	}
	if totals.PaymentStatus != m.order.PaymentStatus && !m.paymentChanged {
		m.order.PaymentStatus = totals.PaymentStatus
		m.paymentChanged = true
	}
	if m.paymentChanged {
		m.orderUpdates["payment_status"] = m.order.PaymentStatus
		if err := m.repo.UpdateCheckoutPayment(m.ctx, m.order.CheckoutID, m.order.PaymentStatus); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update checkout payment")
		}
	}
	if len(m.orderUpdates) > 0 {
		if err := m.repo.UpdateOrder(m.ctx, m.order.ID, m.orderUpdates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order")
		}
	}

	for _, event := range m.cancelled {
		event.OrderStatus = m.order.OrderStatus
		if err := m.emit(enums.EventOrderItemCancelled, event); err != nil {
			return err
		}
	}
	if totals.OrderStatus == from {
		return nil
	}
	return m.emit(enums.EventOrderStatusChanged, payloads.OrderStatusChangedEvent{
		OrderID:  m.order.ID,
		OrderRef: m.order.OrderID,
		UserID:   m.order.UserID,
		VendorID: m.actor.VendorID,
		From:     from,
		To:       totals.OrderStatus,
	})
}

func (m *mutation) emit(eventType enums.OutboxEventType, data any) error {
	var actor *outbox.ActorRef
	if m.actor.UserID != uuid.Nil {
		actor = &outbox.ActorRef{UserID: m.actor.UserID, Role: m.actor.Role}
	}
	err := m.svc.outbox.Emit(m.ctx, m.tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   m.order.ID,
		Actor:         actor,
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("emit %s", eventType))
	}
	return nil
}

// visibleItems enforces access: customers see their own orders, vendors see
// their own items, admins see everything.
func visibleItems(actor Actor, order *models.Order, items []models.OrderItem) ([]models.OrderItem, error) {
	switch actor.Role {
	case enums.RoleAdmin:
		return items, nil
	case enums.RoleCustomer:
		if order.UserID != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return items, nil
	case enums.RoleVendor:
		if actor.VendorID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing")
		}
		out := make([]models.OrderItem, 0, len(items))
		for _, item := range items {
			if item.VendorID == *actor.VendorID {
				out = append(out, item)
			}
		}
		if len(out) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return out, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "access denied")
	}
}

func allCancelled(items []*models.OrderItem) bool {
	for _, item := range items {
		if item.Status != enums.ItemStatusCancelled {
			return false
		}
	}
	return true
}

func requireReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "Cancellation reason is required")
	}
	return nil
}

func alreadyCancelled() error {
	return pkgerrors.Reject(pkgerrors.ReasonAlreadyCancelled, "Item is already cancelled")
}

func invalidTransition(from, to enums.ItemStatus) error {
	return pkgerrors.Reject(pkgerrors.ReasonInvalidTransition, fmt.Sprintf("Cannot move item from %s to %s", from, to))
}
