package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fastbag-backend/pkg/enums"
)

// OrderPlacedEvent is emitted when checkout commits an order.
type OrderPlacedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderRef      string              `json:"order_ref"`
	UserID        uuid.UUID           `json:"user_id"`
	VendorIDs     []uuid.UUID         `json:"vendor_ids"`
	FinalAmount   decimal.Decimal     `json:"final_amount"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
}

// OrderStatusChangedEvent reports an aggregate order status move.
type OrderStatusChangedEvent struct {
	OrderID  uuid.UUID         `json:"order_id"`
	OrderRef string            `json:"order_ref"`
	UserID   uuid.UUID         `json:"user_id"`
	VendorID *uuid.UUID        `json:"vendor_id,omitempty"`
	From     enums.OrderStatus `json:"from"`
	To       enums.OrderStatus `json:"to"`
}

// OrderItemCancelledEvent is emitted per cancelled order line.
type OrderItemCancelledEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderRef    string            `json:"order_ref"`
	ItemID      uuid.UUID         `json:"item_id"`
	UserID      uuid.UUID         `json:"user_id"`
	VendorID    uuid.UUID         `json:"vendor_id"`
	Reason      string            `json:"reason,omitempty"`
	OrderStatus enums.OrderStatus `json:"order_status"`
}

// PaymentVerifiedEvent follows a successful signature check.
type PaymentVerifiedEvent struct {
	OrderID           uuid.UUID       `json:"order_id"`
	OrderRef          string          `json:"order_ref"`
	UserID            uuid.UUID       `json:"user_id"`
	VendorIDs         []uuid.UUID     `json:"vendor_ids"`
	Amount            decimal.Decimal `json:"amount"`
	GatewayPaymentRef string          `json:"gateway_payment_ref"`
}

// PaymentFailedEvent follows a rejected signature.
type PaymentFailedEvent struct {
	OrderID  uuid.UUID `json:"order_id"`
	OrderRef string    `json:"order_ref"`
	UserID   uuid.UUID `json:"user_id"`
	Reason   string    `json:"reason"`
}

// DeliveryOfferedEvent lists the partners an order was broadcast to.
type DeliveryOfferedEvent struct {
	OrderID        uuid.UUID   `json:"order_id"`
	OrderRef       string      `json:"order_ref"`
	DeliveryBoyIDs []uuid.UUID `json:"delivery_boy_ids"`
}

// DeliveryAcceptedEvent names the partner who won the order.
type DeliveryAcceptedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	OrderRef      string    `json:"order_ref"`
	UserID        uuid.UUID `json:"user_id"`
	DeliveryBoyID uuid.UUID `json:"delivery_boy_id"`
}

// OrderDeliveredEvent closes fulfillment and drives commission settlement.
type OrderDeliveredEvent struct {
	OrderID       uuid.UUID   `json:"order_id"`
	OrderRef      string      `json:"order_ref"`
	UserID        uuid.UUID   `json:"user_id"`
	DeliveryBoyID uuid.UUID   `json:"delivery_boy_id"`
	VendorIDs     []uuid.UUID `json:"vendor_ids"`
}
