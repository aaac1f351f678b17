package enums

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder      OutboxAggregateType = "order"
	AggregateCheckout   OutboxAggregateType = "checkout"
	AggregateAssignment OutboxAggregateType = "order_assignment"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateCheckout,
	AggregateAssignment,
}

func (a OutboxAggregateType) IsValid() bool {
	return contains(validAggregateTypes, a)
}

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(validAggregateTypes, value, "aggregate type")
}

// OutboxEventType names a domain event.
type OutboxEventType string

const (
	EventOrderPlaced        OutboxEventType = "order.placed"
	EventOrderStatusChanged OutboxEventType = "order.status_changed"
	EventOrderItemCancelled OutboxEventType = "order.item_cancelled"
	EventPaymentVerified    OutboxEventType = "payment.verified"
	EventPaymentFailed      OutboxEventType = "payment.failed"
	EventDeliveryOffered    OutboxEventType = "delivery.offered"
	EventDeliveryAccepted   OutboxEventType = "delivery.accepted"
	EventOrderDelivered     OutboxEventType = "order.delivered"
)

var validEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventOrderStatusChanged,
	EventOrderItemCancelled,
	EventPaymentVerified,
	EventPaymentFailed,
	EventDeliveryOffered,
	EventDeliveryAccepted,
	EventOrderDelivered,
}

func (e OutboxEventType) String() string {
	return string(e)
}

func (e OutboxEventType) IsValid() bool {
	return contains(validEventTypes, e)
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(validEventTypes, value, "event type")
}

// OutboxDLQErrorReason classifies terminal publish failures.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
