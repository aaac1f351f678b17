package enums

// OrderStatus is the aggregate, customer/delivery-facing status of an order.
type OrderStatus string

const (
	OrderStatusPending          OrderStatus = "pending"
	OrderStatusConfirmed        OrderStatus = "confirmed"
	OrderStatusPaymentFailed    OrderStatus = "payment_failed"
	OrderStatusProcessing       OrderStatus = "processing"
	OrderStatusAccepted         OrderStatus = "accepted"
	OrderStatusPicked           OrderStatus = "picked"
	OrderStatusOutForDelivery   OrderStatus = "out_for_delivery"
	OrderStatusShipped          OrderStatus = "shipped"
	OrderStatusDelivered        OrderStatus = "delivered"
	OrderStatusRejected         OrderStatus = "rejected"
	OrderStatusCancelled        OrderStatus = "cancelled"
	OrderStatusPartialCancelled OrderStatus = "partial_cancelled"
	OrderStatusReturn           OrderStatus = "return"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPaymentFailed,
	OrderStatusProcessing,
	OrderStatusAccepted,
	OrderStatusPicked,
	OrderStatusOutForDelivery,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusRejected,
	OrderStatusCancelled,
	OrderStatusPartialCancelled,
	OrderStatusReturn,
}

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) IsValid() bool {
	return contains(validOrderStatuses, s)
}

// IsClosed reports whether the order no longer moves through fulfillment.
func (s OrderStatus) IsClosed() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusRejected, OrderStatusReturn:
		return true
	}
	return false
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	return parse(validOrderStatuses, value, "order status")
}
