package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	"github.com/angelmondragon/fastbag-backend/pkg/logger"
	"github.com/angelmondragon/fastbag-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/fastbag-backend/pkg/outbox/registry"
	"github.com/angelmondragon/fastbag-backend/pkg/push"
)

const listenerName = "notifications"

// Audience is the set of accounts a push goes to.
type Audience struct {
	UserIDs    []uuid.UUID
	VendorIDs  []uuid.UUID
	PartnerIDs []uuid.UUID
}

func (a Audience) empty() bool {
	return len(a.UserIDs)+len(a.VendorIDs)+len(a.PartnerIDs) == 0
}

type pushNote struct {
	audience Audience
	title    string
	body     string
}

// plan is what one event produces: inbox rows plus device pushes.
type plan struct {
	rows   []models.Notification
	pushes []pushNote
}

func (p *plan) notifyUser(userID uuid.UUID, orderID uuid.UUID, kind enums.NotificationType, title, message string) {
	if userID == uuid.Nil {
		return
	}
	p.rows = append(p.rows, models.Notification{
		UserID:  &userID,
		OrderID: &orderID,
		Type:    kind,
		Title:   title,
		Message: message,
	})
	p.pushes = append(p.pushes, pushNote{audience: Audience{UserIDs: []uuid.UUID{userID}}, title: title, body: message})
}

func (p *plan) notifyVendors(vendorIDs []uuid.UUID, orderID uuid.UUID, kind enums.NotificationType, title, message string) {
	ids := make([]uuid.UUID, 0, len(vendorIDs))
	for _, id := range vendorIDs {
		if id == uuid.Nil {
			continue
		}
		vendorID := id
		p.rows = append(p.rows, models.Notification{
			VendorID: &vendorID,
			OrderID:  &orderID,
			Type:     kind,
			Title:    title,
			Message:  message,
		})
		ids = append(ids, id)
	}
	if len(ids) > 0 {
		p.pushes = append(p.pushes, pushNote{audience: Audience{VendorIDs: ids}, title: title, body: message})
	}
}

// Listener turns domain events into inbox notifications and best effort
// device pushes. Only the inbox write can fail the event.
type Listener struct {
	repo   Repository
	sender push.Sender
	logg   *logger.Logger
}

// NewListener builds the notification listener.
func NewListener(repo Repository, sender push.Sender, logg *logger.Logger) (*Listener, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if sender == nil {
		sender = push.NoopSender{}
	}
	return &Listener{repo: repo, sender: sender, logg: logg}, nil
}

func (l *Listener) Name() string { return listenerName }

func (l *Listener) Handles(eventType enums.OutboxEventType) bool {
	switch eventType {
	case enums.EventOrderPlaced,
		enums.EventOrderStatusChanged,
		enums.EventOrderItemCancelled,
		enums.EventPaymentVerified,
		enums.EventPaymentFailed,
		enums.EventDeliveryOffered,
		enums.EventDeliveryAccepted,
		enums.EventOrderDelivered:
		return true
	default:
		return false
	}
}

func (l *Listener) Handle(ctx context.Context, event *registry.ResolvedEvent) error {
	p, err := planFor(event)
	if err != nil {
		return err
	}
	if len(p.rows) == 0 && len(p.pushes) == 0 {
		l.logg.Debug(ctx, "event produced no notifications")
		return nil
	}
	if err := l.repo.CreateMany(ctx, p.rows); err != nil {
		return fmt.Errorf("create notifications: %w", err)
	}
	for _, note := range p.pushes {
		l.push(ctx, note, event)
	}
	return nil
}

func (l *Listener) push(ctx context.Context, note pushNote, event *registry.ResolvedEvent) {
	if note.audience.empty() {
		return
	}
	tokens, err := l.repo.DeviceTokens(ctx, note.audience)
	if err != nil {
		l.logg.Warn(l.logg.WithField(ctx, "error", err.Error()), "push token lookup failed")
		return
	}
	data := map[string]string{
		"event_type": string(event.Descriptor.EventType),
		"event_id":   event.Envelope.EventID,
	}
	for _, token := range tokens {
		err := l.sender.Send(ctx, push.Message{Token: token, Title: note.title, Body: note.body, Data: data})
		switch {
		case err == nil:
		case errors.Is(err, push.ErrUnregistered):
			if ferr := l.repo.ForgetToken(ctx, token); ferr != nil {
				l.logg.Warn(l.logg.WithField(ctx, "error", ferr.Error()), "failed to clear unregistered push token")
			}
		default:
			l.logg.Warn(l.logg.WithField(ctx, "error", err.Error()), "push delivery failed")
		}
	}
}

func planFor(event *registry.ResolvedEvent) (*plan, error) {
	p := &plan{}
	switch payload := event.Payload.(type) {
	case *payloads.OrderPlacedEvent:
		p.notifyUser(payload.UserID, payload.OrderID, enums.NotificationTypeOrderPlaced,
			"Order placed", fmt.Sprintf("Your order %s has been placed.", payload.OrderRef))
		p.notifyVendors(payload.VendorIDs, payload.OrderID, enums.NotificationTypeNewOrder,
			"New order", fmt.Sprintf("You have a new order %s.", payload.OrderRef))

	case *payloads.OrderStatusChangedEvent:
		kind, title, message := statusCopy(payload.OrderRef, payload.To)
		p.notifyUser(payload.UserID, payload.OrderID, kind, title, message)

	case *payloads.OrderItemCancelledEvent:
		message := fmt.Sprintf("An item in order %s was cancelled.", payload.OrderRef)
		if reason := strings.TrimSpace(payload.Reason); reason != "" {
			message = fmt.Sprintf("An item in order %s was cancelled. Reason: %s", payload.OrderRef, reason)
		}
		p.notifyVendors([]uuid.UUID{payload.VendorID}, payload.OrderID, enums.NotificationTypeOrderCancelled,
			"Item cancelled", message)

	case *payloads.PaymentVerifiedEvent:
		p.notifyUser(payload.UserID, payload.OrderID, enums.NotificationTypePaymentReceived,
			"Payment received", fmt.Sprintf("Payment for order %s was confirmed.", payload.OrderRef))
		p.notifyVendors(payload.VendorIDs, payload.OrderID, enums.NotificationTypePaymentReceived,
			"Payment received", fmt.Sprintf("Order %s has been paid.", payload.OrderRef))

	case *payloads.PaymentFailedEvent:
		p.notifyUser(payload.UserID, payload.OrderID, enums.NotificationTypePaymentFailed,
			"Payment failed", fmt.Sprintf("Payment for order %s could not be verified.", payload.OrderRef))

	case *payloads.DeliveryOfferedEvent:
		// partners already get a delivery notification row from the broadcast
		p.pushes = append(p.pushes, pushNote{
			audience: Audience{PartnerIDs: payload.DeliveryBoyIDs},
			title:    "New delivery request",
			body:     fmt.Sprintf("Order %s is ready for delivery.", payload.OrderRef),
		})

	case *payloads.DeliveryAcceptedEvent:
		p.notifyUser(payload.UserID, payload.OrderID, enums.NotificationTypeOrderStatus,
			"Delivery partner assigned", fmt.Sprintf("A delivery partner accepted your order %s.", payload.OrderRef))

	case *payloads.OrderDeliveredEvent:
		p.notifyUser(payload.UserID, payload.OrderID, enums.NotificationTypeOrderStatus,
			"Order delivered", fmt.Sprintf("Your order %s has been delivered.", payload.OrderRef))
		p.notifyVendors(payload.VendorIDs, payload.OrderID, enums.NotificationTypeOrderStatus,
			"Order delivered", fmt.Sprintf("Order %s was delivered to the customer.", payload.OrderRef))

	default:
		return nil, registry.NewNonRetryableError(fmt.Errorf("unexpected payload %T", event.Payload))
	}
	return p, nil
}

func statusCopy(ref string, to enums.OrderStatus) (enums.NotificationType, string, string) {
	switch to {
	case enums.OrderStatusOutForDelivery:
		return enums.NotificationTypeOutForDelivery, "Out for delivery", fmt.Sprintf("Your order %s is out for delivery.", ref)
	case enums.OrderStatusCancelled:
		return enums.NotificationTypeOrderCancelled, "Order cancelled", fmt.Sprintf("Your order %s was cancelled.", ref)
	case enums.OrderStatusPartialCancelled:
		return enums.NotificationTypeOrderCancelled, "Order updated", fmt.Sprintf("Part of your order %s was cancelled.", ref)
	case enums.OrderStatusPaymentFailed:
		return enums.NotificationTypePaymentFailed, "Payment failed", fmt.Sprintf("Payment for order %s failed.", ref)
	default:
		label := strings.ReplaceAll(string(to), "_", " ")
		return enums.NotificationTypeOrderStatus, "Order update", fmt.Sprintf("Your order %s is now %s.", ref, label)
	}
}
