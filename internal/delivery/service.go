package delivery

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fastbag-backend/pkg/db"
	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
	"github.com/angelmondragon/fastbag-backend/pkg/geo"
	"github.com/angelmondragon/fastbag-backend/pkg/logger"
	"github.com/angelmondragon/fastbag-backend/pkg/metrics"
	"github.com/angelmondragon/fastbag-backend/pkg/outbox"
	"github.com/angelmondragon/fastbag-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/fastbag-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type placeNamer interface {
	PlaceName(ctx context.Context, lat, lng *float64) string
}

type acceptMetrics interface {
	DeliveryAccept(outcome string)
}

// Service runs the delivery offer workflow: broadcast to partners in range,
// a single-winner accept, and the partner's progress through handoff.
type Service interface {
	Broadcast(ctx context.Context, orderID uuid.UUID) (*BroadcastResult, error)
	Accept(ctx context.Context, partnerID, orderID uuid.UUID) (*AssignmentView, error)
	Reject(ctx context.Context, partnerID, orderID uuid.UUID) (*AssignmentView, error)
	UpdateStatus(ctx context.Context, partnerID, orderID uuid.UUID, input StatusInput) (*AssignmentView, error)
	// Authorize checks that userID operates partnerID.
	Authorize(ctx context.Context, partnerID, userID uuid.UUID) error
	ListAssigned(ctx context.Context, partnerID uuid.UUID, limit int) ([]AssignmentView, error)
	ListAccepted(ctx context.Context, partnerID uuid.UUID, limit int) ([]AssignmentView, error)
	ListRejected(ctx context.Context, partnerID uuid.UUID, limit int) ([]AssignmentView, error)
	ListNotifications(ctx context.Context, partnerID uuid.UUID, params pagination.Params) (*pagination.Page[NotificationView], error)
	MarkNotificationRead(ctx context.Context, partnerID, notificationID uuid.UUID) error
	Quote(ctx context.Context, distanceKm float64, at time.Time) (*Quote, error)
}

type service struct {
	tx      txRunner
	repo    Repository
	outbox  outboxPublisher
	quoter  *ChargeQuoter
	places  placeNamer
	metrics acceptMetrics
	logg    *logger.Logger
	now     func() time.Time
}

type Option func(*service)

func WithPlaceNamer(p placeNamer) Option {
	return func(s *service) { s.places = p }
}

func WithMetrics(m acceptMetrics) Option {
	return func(s *service) { s.metrics = m }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *service) { s.logg = l }
}

func NewService(tx txRunner, repo Repository, publisher outboxPublisher, opts ...Option) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("delivery repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	quoter, err := NewChargeQuoter(repo)
	if err != nil {
		return nil, err
	}
	s := &service{tx: tx, repo: repo, outbox: publisher, quoter: quoter, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) Quote(ctx context.Context, distanceKm float64, at time.Time) (*Quote, error) {
	return s.quoter.Quote(ctx, distanceKm, at)
}

func (s *service) Broadcast(ctx context.Context, orderID uuid.UUID) (*BroadcastResult, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	place := ""
	if s.places != nil {
		place = s.places.PlaceName(ctx, order.Latitude, order.Longitude)
	}

	result := &BroadcastResult{OrderID: orderID, Candidates: []uuid.UUID{}}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock order")
		}
		if order.OrderStatus.IsClosed() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is %s", order.OrderStatus))
		}
		drop, ok := geo.PointFrom(order.Latitude, order.Longitude)
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no delivery coordinates")
		}

		existing, err := repo.LockAssignments(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load assignments")
		}
		offered := make(map[uuid.UUID]struct{}, len(existing))
		for _, row := range existing {
			if row.IsAccepted {
				return pkgerrors.Reject(pkgerrors.ReasonAlreadyTaken, "This order has already been accepted by a delivery partner")
			}
			offered[row.DeliveryBoyID] = struct{}{}
		}

		boys, err := repo.ListCandidates(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list delivery partners")
		}
		vendorIDs, err := repo.OrderVendorIDs(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order vendors")
		}
		var vendorID *uuid.UUID
		if len(vendorIDs) == 1 {
			vendorID = &vendorIDs[0]
		}

		message := fmt.Sprintf("A new order (Order ID: %s) is ready for pickup.", order.OrderID)
		if place != "" {
			message = fmt.Sprintf("A new order (Order ID: %s) is ready for delivery to %s.", order.OrderID, place)
		}

		var assignments []models.OrderAssign
		var notes []models.DeliveryNotification
		for _, boy := range boys {
			if _, seen := offered[boy.ID]; seen {
				continue
			}
			at, ok := geo.PointFrom(boy.Latitude, boy.Longitude)
			if !ok || !geo.WithinRadius(at, drop, boy.RadiusKm) {
				continue
			}
			distance := geo.DistanceKm(at, drop)
			assignments = append(assignments, models.OrderAssign{
				OrderID:        orderID,
				DeliveryBoyID:  boy.ID,
				Status:         enums.AssignStatusAssigned,
				DeliveryCharge: order.DeliveryCharge,
				DistanceKm:     &distance,
			})
			notes = append(notes, models.DeliveryNotification{
				DeliveryBoyID: boy.ID,
				OrderID:       orderID,
				VendorID:      vendorID,
				Message:       message,
			})
			result.Candidates = append(result.Candidates, boy.ID)
		}
		if len(assignments) == 0 {
			return nil
		}
		if err := repo.CreateAssignments(ctx, assignments); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create assignments")
		}
		if err := repo.CreateNotifications(ctx, notes); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create delivery notifications")
		}
		return s.emit(ctx, tx, enums.EventDeliveryOffered, enums.AggregateOrder, orderID, payloads.DeliveryOfferedEvent{
			OrderID:        orderID,
			OrderRef:       order.OrderID,
			DeliveryBoyIDs: result.Candidates,
		})
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.OrderID)
		logCtx = s.logg.WithField(logCtx, "candidates", len(result.Candidates))
		s.logg.Info(logCtx, "delivery offer broadcast")
	}
	return result, nil
}

func (s *service) Accept(ctx context.Context, partnerID, orderID uuid.UUID) (*AssignmentView, error) {
	var view AssignmentView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, orderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock order")
		}
		rows, err := repo.LockAssignments(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock assignments")
		}

		var mine *models.OrderAssign
		for i := range rows {
			row := &rows[i]
			if row.IsAccepted {
				if row.DeliveryBoyID == partnerID {
					return pkgerrors.Reject(pkgerrors.ReasonAlreadyAccepted, "You have already accepted this order")
				}
				return pkgerrors.Reject(pkgerrors.ReasonAlreadyTaken, "This order has already been accepted by another delivery partner")
			}
			if row.DeliveryBoyID == partnerID {
				mine = row
			}
		}
		if mine == nil || mine.IsRejected {
			return pkgerrors.Reject(pkgerrors.ReasonNotAssigned, "Order is not assigned to this delivery partner")
		}
		if order.OrderStatus.IsClosed() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is %s", order.OrderStatus))
		}

		now := s.now().UTC()
		updates := map[string]any{
			"status":      enums.AssignStatusAccepted,
			"is_accepted": true,
			"accepted_by": partnerID,
			"accepted_at": now,
		}
		if err := repo.UpdateAssignment(ctx, mine.ID, updates); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Reject(pkgerrors.ReasonAlreadyTaken, "This order has already been accepted by another delivery partner")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "accept assignment")
		}
		if err := repo.RejectOthers(ctx, orderID, mine.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reject other assignments")
		}
		if err := repo.UpdateOrder(ctx, orderID, map[string]any{"order_status": enums.OrderStatusAccepted}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order")
		}
		if err := repo.MarkOrderNotificationsRead(ctx, orderID, partnerID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark notifications read")
		}

		mine.Status = enums.AssignStatusAccepted
		mine.IsAccepted = true
		mine.AcceptedBy = &partnerID
		mine.AcceptedAt = &now
		order.OrderStatus = enums.OrderStatusAccepted
		view = newAssignmentView(*mine, order, "")

		return s.emit(ctx, tx, enums.EventDeliveryAccepted, enums.AggregateAssignment, mine.ID, payloads.DeliveryAcceptedEvent{
			OrderID:       orderID,
			OrderRef:      order.OrderID,
			UserID:        order.UserID,
			DeliveryBoyID: partnerID,
		})
	})
	s.recordAccept(err)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *service) recordAccept(err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case err == nil:
		s.metrics.DeliveryAccept(metrics.OutcomeAccepted)
	case pkgerrors.ReasonOf(err) == pkgerrors.ReasonAlreadyTaken:
		s.metrics.DeliveryAccept(metrics.OutcomeLost)
	default:
		s.metrics.DeliveryAccept(metrics.OutcomeError)
	}
}

func (s *service) Reject(ctx context.Context, partnerID, orderID uuid.UUID) (*AssignmentView, error) {
	var view AssignmentView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, orderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock order")
		}
		if _, err := repo.FindPartner(ctx, partnerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "delivery partner not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load delivery partner")
		}
		rows, err := repo.LockAssignments(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock assignments")
		}

		var mine *models.OrderAssign
		for i := range rows {
			row := &rows[i]
			if row.IsAccepted {
				if row.DeliveryBoyID == partnerID {
					return pkgerrors.Reject(pkgerrors.ReasonAlreadyAccepted, "You have already accepted this order")
				}
				return pkgerrors.Reject(pkgerrors.ReasonAlreadyTaken, "This order has already been accepted by another delivery partner")
			}
			if row.DeliveryBoyID == partnerID {
				mine = row
			}
		}

		if mine == nil {
			row := models.OrderAssign{
				OrderID:        orderID,
				DeliveryBoyID:  partnerID,
				Status:         enums.AssignStatusRejected,
				IsRejected:     true,
				DeliveryCharge: order.DeliveryCharge,
			}
			if err := repo.CreateAssignments(ctx, []models.OrderAssign{row}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record rejection")
			}
			mine = &row
		} else if !mine.IsRejected {
			if err := repo.UpdateAssignment(ctx, mine.ID, map[string]any{
				"status":      enums.AssignStatusRejected,
				"is_rejected": true,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reject assignment")
			}
			mine.Status = enums.AssignStatusRejected
			mine.IsRejected = true
		}
		view = newAssignmentView(*mine, order, "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *service) UpdateStatus(ctx context.Context, partnerID, orderID uuid.UUID, input StatusInput) (*AssignmentView, error) {
	next := input.Status
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid assignment status %q", next))
	}
	if next == enums.AssignStatusAccepted || next == enums.AssignStatusRejected || next == enums.AssignStatusAssigned {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "use the accept or reject endpoints")
	}

	var view AssignmentView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, orderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock order")
		}
		// cancelled items never travel; a fully cancelled order is terminal
		if order.OrderStatus == enums.OrderStatusCancelled {
			return pkgerrors.Reject(pkgerrors.ReasonAlreadyCancelled, "Order is cancelled")
		}
		rows, err := repo.LockAssignments(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock assignments")
		}
		var mine *models.OrderAssign
		for i := range rows {
			if rows[i].DeliveryBoyID == partnerID && rows[i].IsAccepted {
				mine = &rows[i]
			}
		}
		if mine == nil {
			return pkgerrors.Reject(pkgerrors.ReasonNotAssigned, "Order is not assigned to this delivery partner")
		}
		if mine.Status == next {
			view = newAssignmentView(*mine, order, "")
			return nil
		}
		if !mine.Status.CanTransitionTo(next) {
			return pkgerrors.Reject(pkgerrors.ReasonInvalidTransition, fmt.Sprintf("Cannot move assignment from %s to %s", mine.Status, next))
		}

		now := s.now().UTC()
		updates := map[string]any{"status": next}
		from := order.OrderStatus
		switch next {
		case enums.AssignStatusPicked:
			order.OrderStatus = enums.OrderStatusPicked
		case enums.AssignStatusOnTheWay:
			order.OrderStatus = enums.OrderStatusOutForDelivery
			if err := repo.UpdateOpenItems(ctx, orderID, enums.ItemStatusOutForDelivery); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order items")
			}
		case enums.AssignStatusDelivered:
			pin := strings.TrimSpace(input.Pin)
			if pin == "" || subtle.ConstantTimeCompare([]byte(pin), []byte(order.DeliveryPin)) != 1 {
				return pkgerrors.Reject(pkgerrors.ReasonInvalidPin, "Invalid delivery pin")
			}
			order.OrderStatus = enums.OrderStatusDelivered
			updates["delivered_at"] = now
			mine.DeliveredAt = &now
			if err := repo.UpdateOpenItems(ctx, orderID, enums.ItemStatusDelivered); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order items")
			}
		case enums.AssignStatusReturned:
			order.OrderStatus = enums.OrderStatusRejected
		}

		if err := repo.UpdateAssignment(ctx, mine.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update assignment")
		}
		orderUpdates := map[string]any{"order_status": order.OrderStatus}
		if next == enums.AssignStatusDelivered && order.PaymentMethod == enums.PaymentMethodCOD && order.PaymentStatus == enums.PaymentStatusPending {
			order.PaymentStatus = enums.PaymentStatusPaid
			orderUpdates["payment_status"] = order.PaymentStatus
			if err := repo.UpdateCheckoutPayment(ctx, order.CheckoutID, order.PaymentStatus); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update checkout payment")
			}
		}
		if err := repo.UpdateOrder(ctx, orderID, orderUpdates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order")
		}

		mine.Status = next
		view = newAssignmentView(*mine, order, "")

		if next == enums.AssignStatusDelivered {
			vendorIDs, err := repo.OrderVendorIDs(ctx, orderID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order vendors")
			}
			return s.emit(ctx, tx, enums.EventOrderDelivered, enums.AggregateOrder, orderID, payloads.OrderDeliveredEvent{
				OrderID:       orderID,
				OrderRef:      order.OrderID,
				UserID:        order.UserID,
				DeliveryBoyID: partnerID,
				VendorIDs:     vendorIDs,
			})
		}
		if from == order.OrderStatus {
			return nil
		}
		return s.emit(ctx, tx, enums.EventOrderStatusChanged, enums.AggregateOrder, orderID, payloads.OrderStatusChangedEvent{
			OrderID:  orderID,
			OrderRef: order.OrderID,
			UserID:   order.UserID,
			From:     from,
			To:       order.OrderStatus,
		})
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *service) Authorize(ctx context.Context, partnerID, userID uuid.UUID) error {
	boy, err := s.repo.FindPartner(ctx, partnerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "delivery partner not found")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load delivery partner")
	}
	if boy.UserID == nil || *boy.UserID != userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "delivery partner does not belong to user")
	}
	if !boy.IsActive {
		return pkgerrors.New(pkgerrors.CodeForbidden, "delivery partner is inactive")
	}
	return nil
}

func (s *service) ListAssigned(ctx context.Context, partnerID uuid.UUID, limit int) ([]AssignmentView, error) {
	return s.list(ctx, partnerID, AssignmentFilter{Statuses: []enums.AssignStatus{enums.AssignStatusAssigned}, Limit: limit})
}

func (s *service) ListAccepted(ctx context.Context, partnerID uuid.UUID, limit int) ([]AssignmentView, error) {
	return s.list(ctx, partnerID, AssignmentFilter{AcceptedOnly: true, Limit: limit})
}

func (s *service) ListRejected(ctx context.Context, partnerID uuid.UUID, limit int) ([]AssignmentView, error) {
	return s.list(ctx, partnerID, AssignmentFilter{Statuses: []enums.AssignStatus{enums.AssignStatusRejected}, Limit: limit})
}

func (s *service) list(ctx context.Context, partnerID uuid.UUID, filter AssignmentFilter) ([]AssignmentView, error) {
	rows, err := s.repo.ListAssignments(ctx, partnerID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list assignments")
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.OrderID)
	}
	orders, err := s.repo.FindOrders(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load orders")
	}
	byID := make(map[uuid.UUID]*models.Order, len(orders))
	for i := range orders {
		byID[orders[i].ID] = &orders[i]
	}

	views := make([]AssignmentView, 0, len(rows))
	for _, row := range rows {
		order := byID[row.OrderID]
		place := ""
		if s.places != nil && order != nil {
			place = s.places.PlaceName(ctx, order.Latitude, order.Longitude)
		}
		views = append(views, newAssignmentView(row, order, place))
	}
	return views, nil
}

func (s *service) ListNotifications(ctx context.Context, partnerID uuid.UUID, params pagination.Params) (*pagination.Page[NotificationView], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListNotifications(ctx, partnerID, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list delivery notifications")
	}
	page := pagination.Trim(rows, params.Limit, func(n models.DeliveryNotification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	views := make([]NotificationView, len(page.Items))
	for i, n := range page.Items {
		views[i] = NotificationView{
			ID:        n.ID,
			OrderID:   n.OrderID,
			VendorID:  n.VendorID,
			Message:   n.Message,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		}
	}
	return &pagination.Page[NotificationView]{Items: views, NextCursor: page.NextCursor}, nil
}

func (s *service) MarkNotificationRead(ctx context.Context, partnerID, notificationID uuid.UUID) error {
	n, err := s.repo.MarkNotificationRead(ctx, partnerID, notificationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark notification read")
	}
	if n == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, aggregateID uuid.UUID, data any) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: aggregate,
		AggregateID:   aggregateID,
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("emit %s", eventType))
	}
	return nil
}
