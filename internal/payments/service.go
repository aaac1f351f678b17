package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
	"github.com/angelmondragon/fastbag-backend/pkg/logger"
	"github.com/angelmondragon/fastbag-backend/pkg/metrics"
	"github.com/angelmondragon/fastbag-backend/pkg/outbox"
	"github.com/angelmondragon/fastbag-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type verificationMetrics interface {
	PaymentVerified(result string)
}

// Service reconciles gateway payment callbacks with orders.
type Service interface {
	Verify(ctx context.Context, input VerifyInput) (*VerifyResult, error)
}

// VerifyInput carries the gateway callback. When UserID is set the order must
// belong to that customer.
type VerifyInput struct {
	GatewayOrderRef   string
	GatewayPaymentRef string
	Signature         string
	UserID            *uuid.UUID
}

type VerifyResult struct {
	Order       *models.Order
	AlreadyPaid bool
}

type service struct {
	tx      txRunner
	repo    Repository
	secret  string
	outbox  outboxPublisher
	metrics verificationMetrics
	logg    *logger.Logger
}

func NewService(tx txRunner, repo Repository, secret string, publisher outboxPublisher, m verificationMetrics, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("payment secret required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{tx: tx, repo: repo, secret: secret, outbox: publisher, metrics: m, logg: logg}, nil
}

func (s *service) Verify(ctx context.Context, input VerifyInput) (*VerifyResult, error) {
	orderRef := strings.TrimSpace(input.GatewayOrderRef)
	paymentRef := strings.TrimSpace(input.GatewayPaymentRef)
	if orderRef == "" || paymentRef == "" || strings.TrimSpace(input.Signature) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order ref, payment ref and signature are required")
	}
	valid := ValidSignature(s.secret, orderRef, paymentRef, input.Signature)

	result := &VerifyResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		checkout, err := repo.LockCheckoutByGatewayRef(ctx, orderRef)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found for payment")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load checkout")
		}
		if input.UserID != nil && checkout.UserID != *input.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found for payment")
		}
		order, err := repo.LockOrderByCheckout(ctx, checkout.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found for payment")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}
		result.Order = order

		if checkout.PaymentStatus == enums.PaymentStatusPaid {
			result.AlreadyPaid = true
			return nil
		}
		if order.OrderStatus == enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was cancelled before payment was verified")
		}

		if !valid {
			return s.markFailed(ctx, tx, repo, checkout, order)
		}
		return s.markPaid(ctx, tx, repo, checkout, order, paymentRef)
	})
	if err != nil {
		s.observe(metrics.OutcomeError)
		return nil, err
	}
	if !valid {
		s.observe(metrics.OutcomeMismatch)
		if s.logg != nil {
			s.logg.Warn(s.logg.WithOrderID(ctx, result.Order.OrderID), "payment signature mismatch")
		}
		return nil, pkgerrors.Reject(pkgerrors.ReasonSignatureMismatch, "Payment verification failed")
	}
	s.observe(metrics.OutcomeMatched)
	return result, nil
}

func (s *service) markPaid(ctx context.Context, tx *gorm.DB, repo Repository, checkout *models.Checkout, order *models.Order, paymentRef string) error {
	if err := repo.UpdateCheckout(ctx, checkout.ID, map[string]any{
		"payment_status":      enums.PaymentStatusPaid,
		"gateway_payment_ref": paymentRef,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update checkout payment")
	}
	if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
		"payment_status": enums.PaymentStatusPaid,
		"order_status":   enums.OrderStatusConfirmed,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order payment")
	}
	order.PaymentStatus = enums.PaymentStatusPaid
	order.OrderStatus = enums.OrderStatusConfirmed

	vendorIDs, err := repo.OrderVendorIDs(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order vendors")
	}
	return s.emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentVerified,
		AggregateType: enums.AggregateCheckout,
		AggregateID:   checkout.ID,
		Actor:         &outbox.ActorRef{UserID: order.UserID, Role: enums.RoleCustomer},
		Data: payloads.PaymentVerifiedEvent{
			OrderID:           order.ID,
			OrderRef:          order.OrderID,
			UserID:            order.UserID,
			VendorIDs:         vendorIDs,
			Amount:            order.FinalAmount,
			GatewayPaymentRef: paymentRef,
		},
	})
}

// markFailed records the failure. Stock stays reserved so the customer can
// retry; unpaid orders are released by the expiry sweep.
func (s *service) markFailed(ctx context.Context, tx *gorm.DB, repo Repository, checkout *models.Checkout, order *models.Order) error {
	if err := repo.UpdateCheckout(ctx, checkout.ID, map[string]any{"payment_status": enums.PaymentStatusFailed}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update checkout payment")
	}
	if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
		"payment_status": enums.PaymentStatusFailed,
		"order_status":   enums.OrderStatusPaymentFailed,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order payment")
	}
	order.PaymentStatus = enums.PaymentStatusFailed
	order.OrderStatus = enums.OrderStatusPaymentFailed

	return s.emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentFailed,
		AggregateType: enums.AggregateCheckout,
		AggregateID:   checkout.ID,
		Actor:         &outbox.ActorRef{UserID: order.UserID, Role: enums.RoleCustomer},
		Data: payloads.PaymentFailedEvent{
			OrderID:  order.ID,
			OrderRef: order.OrderID,
			UserID:   order.UserID,
			Reason:   string(pkgerrors.ReasonSignatureMismatch),
		},
	})
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("emit %s", event.EventType))
	}
	return nil
}

func (s *service) observe(result string) {
	if s.metrics != nil {
		s.metrics.PaymentVerified(result)
	}
}
