// Package dispatch fans domain events received from the broker out to the
// in-process listeners that react to them.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	"github.com/angelmondragon/fastbag-backend/pkg/logger"
	"github.com/angelmondragon/fastbag-backend/pkg/outbox"
	"github.com/angelmondragon/fastbag-backend/pkg/outbox/registry"
)

// Result labels recorded per listener invocation.
const (
	resultHandled = "handled"
	resultSkipped = "duplicate"
	resultDropped = "dropped"
	resultFailed  = "failed"
)

// Listener reacts to one or more domain event types. Its Name scopes the
// idempotency marks, so renaming a listener replays retained events.
type Listener interface {
	Name() string
	Handles(eventType enums.OutboxEventType) bool
	Handle(ctx context.Context, event *registry.ResolvedEvent) error
}

type onceRunner interface {
	Run(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) (bool, error)
}

type eventMetrics interface {
	EventHandled(eventType, result string)
}

// Dispatcher decodes broker deliveries and runs every interested listener
// at most once per event.
type Dispatcher struct {
	registry  *registry.EventRegistry
	once      onceRunner
	listeners []Listener
	metrics   eventMetrics
	logg      *logger.Logger
}

// NewDispatcher wires the dispatcher. metrics may be nil.
func NewDispatcher(reg *registry.EventRegistry, once onceRunner, metrics eventMetrics, logg *logger.Logger, listeners ...Listener) (*Dispatcher, error) {
	if reg == nil {
		return nil, fmt.Errorf("event registry required")
	}
	if once == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if len(listeners) == 0 {
		return nil, fmt.Errorf("at least one listener required")
	}
	return &Dispatcher{
		registry:  reg,
		once:      once,
		listeners: listeners,
		metrics:   metrics,
		logg:      logg,
	}, nil
}

// Run consumes the source until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, source outbox.Source) error {
	if source == nil {
		return fmt.Errorf("event source required")
	}
	return source.Receive(ctx, d.Handle)
}

// Handle processes one delivery. A returned error asks the broker to
// redeliver; listeners that already succeeded are skipped on the retry.
func (d *Dispatcher) Handle(ctx context.Context, delivery outbox.Delivery) error {
	eventType := enums.OutboxEventType(strings.TrimSpace(delivery.Attributes[outbox.AttrEventType]))
	ctx = d.logg.WithFields(ctx, map[string]any{
		"message_id": delivery.ID,
		"event_type": string(eventType),
	})

	if !d.wanted(eventType) {
		d.logg.Debug(ctx, "no listener for event")
		return nil
	}

	event, err := d.registry.DecodeEnvelope(eventType, delivery.Data)
	if err != nil {
		d.logg.Error(ctx, "dropping undecodable event", err)
		d.record(eventType, resultDropped)
		return nil
	}

	eventID, err := eventIDOf(event, delivery)
	if err != nil {
		d.logg.Error(ctx, "dropping event without id", err)
		d.record(eventType, resultDropped)
		return nil
	}
	ctx = d.logg.WithField(ctx, "event_id", eventID.String())

	var combined error
	for _, l := range d.listeners {
		if !l.Handles(eventType) {
			continue
		}
		listener := l
		lctx := d.logg.WithField(ctx, "listener", listener.Name())
		skipped, err := d.once.Run(lctx, listener.Name(), eventID, func(ctx context.Context) error {
			herr := listener.Handle(ctx, event)
			var final registry.NonRetryableError
			if errors.As(herr, &final) {
				d.logg.Error(ctx, "listener rejected event", herr)
				return nil
			}
			return herr
		})
		switch {
		case err != nil:
			d.logg.Error(lctx, "listener failed", err)
			d.record(eventType, resultFailed)
			combined = multierr.Append(combined, fmt.Errorf("%s: %w", listener.Name(), err))
		case skipped:
			d.logg.Debug(lctx, "event already handled by listener")
			d.record(eventType, resultSkipped)
		default:
			d.record(eventType, resultHandled)
		}
	}
	return combined
}

func (d *Dispatcher) wanted(eventType enums.OutboxEventType) bool {
	for _, l := range d.listeners {
		if l.Handles(eventType) {
			return true
		}
	}
	return false
}

func (d *Dispatcher) record(eventType enums.OutboxEventType, result string) {
	if d.metrics == nil {
		return
	}
	d.metrics.EventHandled(string(eventType), result)
}

func eventIDOf(event *registry.ResolvedEvent, delivery outbox.Delivery) (uuid.UUID, error) {
	raw := strings.TrimSpace(event.Envelope.EventID)
	if raw == "" {
		raw = strings.TrimSpace(delivery.Attributes[outbox.AttrEventID])
	}
	if raw == "" {
		return uuid.Nil, fmt.Errorf("event id missing")
	}
	return uuid.Parse(raw)
}
