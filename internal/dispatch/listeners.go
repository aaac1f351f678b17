package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/fastbag-backend/internal/commissions"
	"github.com/angelmondragon/fastbag-backend/internal/delivery"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
	"github.com/angelmondragon/fastbag-backend/pkg/logger"
	"github.com/angelmondragon/fastbag-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/fastbag-backend/pkg/outbox/registry"
)

type broadcaster interface {
	Broadcast(ctx context.Context, orderID uuid.UUID) (*delivery.BroadcastResult, error)
}

type settler interface {
	SettleOrder(ctx context.Context, orderID uuid.UUID) (*commissions.Settlement, error)
}

// BroadcastListener offers an order to nearby partners once a vendor moves
// it to processing.
type BroadcastListener struct {
	svc  broadcaster
	logg *logger.Logger
}

func NewBroadcastListener(svc broadcaster, logg *logger.Logger) (*BroadcastListener, error) {
	if svc == nil {
		return nil, fmt.Errorf("delivery service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &BroadcastListener{svc: svc, logg: logg}, nil
}

func (l *BroadcastListener) Name() string { return "delivery-broadcast" }

func (l *BroadcastListener) Handles(eventType enums.OutboxEventType) bool {
	return eventType == enums.EventOrderStatusChanged
}

func (l *BroadcastListener) Handle(ctx context.Context, event *registry.ResolvedEvent) error {
	payload, ok := event.Payload.(*payloads.OrderStatusChangedEvent)
	if !ok {
		return registry.NewNonRetryableError(fmt.Errorf("unexpected payload %T", event.Payload))
	}
	if payload.To != enums.OrderStatusProcessing {
		return nil
	}
	ctx = l.logg.WithOrderID(ctx, payload.OrderID.String())
	result, err := l.svc.Broadcast(ctx, payload.OrderID)
	if err != nil {
		return settle(ctx, l.logg, err, "broadcast skipped")
	}
	l.logg.Info(l.logg.WithField(ctx, "candidates", len(result.Candidates)), "order broadcast to delivery partners")
	return nil
}

// SettlementListener records vendor commissions when an order is delivered.
type SettlementListener struct {
	svc  settler
	logg *logger.Logger
}

func NewSettlementListener(svc settler, logg *logger.Logger) (*SettlementListener, error) {
	if svc == nil {
		return nil, fmt.Errorf("commission service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &SettlementListener{svc: svc, logg: logg}, nil
}

func (l *SettlementListener) Name() string { return "commission-settlement" }

func (l *SettlementListener) Handles(eventType enums.OutboxEventType) bool {
	return eventType == enums.EventOrderDelivered
}

func (l *SettlementListener) Handle(ctx context.Context, event *registry.ResolvedEvent) error {
	payload, ok := event.Payload.(*payloads.OrderDeliveredEvent)
	if !ok {
		return registry.NewNonRetryableError(fmt.Errorf("unexpected payload %T", event.Payload))
	}
	ctx = l.logg.WithOrderID(ctx, payload.OrderID.String())
	settlement, err := l.svc.SettleOrder(ctx, payload.OrderID)
	if err != nil {
		return settle(ctx, l.logg, err, "settlement skipped")
	}
	if settlement.AlreadySettled {
		l.logg.Debug(ctx, "order already settled")
		return nil
	}
	l.logg.Info(l.logg.WithField(ctx, "vendors", len(settlement.Shares)), "commission settled")
	return nil
}

// settle keeps retryable failures for redelivery and swallows business
// outcomes that will not change on a retry.
func settle(ctx context.Context, logg *logger.Logger, err error, msg string) error {
	typed := pkgerrors.As(err)
	if typed == nil || pkgerrors.MetadataFor(typed.Code()).Retryable {
		return err
	}
	logg.Warn(logg.WithField(ctx, "reason", err.Error()), msg)
	return nil
}
