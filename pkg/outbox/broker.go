package outbox

import "context"

// Message is a published outbox row as handed to a broker.
type Message struct {
	Topic      string
	Key        string
	Data       []byte
	Attributes map[string]string
}

// Sink publishes messages to a broker and blocks until the broker confirms.
type Sink interface {
	Publish(ctx context.Context, msg Message) error
	Ping(ctx context.Context) error
	Close() error
}

// Delivery is one message received from a broker.
type Delivery struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a delivery; a non-nil error asks the broker to redeliver.
type Handler func(ctx context.Context, d Delivery) error

// Source streams deliveries into a handler until ctx is cancelled.
type Source interface {
	Receive(ctx context.Context, handle Handler) error
}

// Attribute keys shared by every broker binding.
const (
	AttrEventID       = "event_id"
	AttrEventType     = "event_type"
	AttrAggregateType = "aggregate_type"
	AttrAggregateID   = "aggregate_id"
	AttrCreatedAt     = "created_at"
)
