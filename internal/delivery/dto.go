package delivery

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
)

// AssignmentView is an offer as shown to the delivery partner.
type AssignmentView struct {
	AssignmentID    uuid.UUID           `json:"assignment_id"`
	OrderID         uuid.UUID           `json:"order_id"`
	OrderRef        string              `json:"order_number"`
	Status          enums.AssignStatus  `json:"status"`
	IsAccepted      bool                `json:"is_accepted"`
	DeliveryCharge  decimal.Decimal     `json:"delivery_charge"`
	DistanceKm      *float64            `json:"distance_km,omitempty"`
	FinalAmount     decimal.Decimal     `json:"final_amount"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	OrderStatus     enums.OrderStatus   `json:"order_status"`
	ShippingAddress string              `json:"shipping_address"`
	ContactNumber   string              `json:"contact_number,omitempty"`
	PlaceName       string              `json:"place_name,omitempty"`
	AssignedAt      time.Time           `json:"assigned_at"`
	AcceptedAt      *time.Time          `json:"accepted_at,omitempty"`
	DeliveredAt     *time.Time          `json:"delivered_at,omitempty"`
}

func newAssignmentView(row models.OrderAssign, order *models.Order, place string) AssignmentView {
	view := AssignmentView{
		AssignmentID:   row.ID,
		OrderID:        row.OrderID,
		Status:         row.Status,
		IsAccepted:     row.IsAccepted,
		DeliveryCharge: row.DeliveryCharge,
		DistanceKm:     row.DistanceKm,
		PlaceName:      place,
		AssignedAt:     row.AssignedAt,
		AcceptedAt:     row.AcceptedAt,
		DeliveredAt:    row.DeliveredAt,
	}
	if order != nil {
		view.OrderRef = order.OrderID
		view.FinalAmount = order.FinalAmount
		view.PaymentMethod = order.PaymentMethod
		view.OrderStatus = order.OrderStatus
		view.ShippingAddress = order.ShippingAddress
		view.ContactNumber = order.ContactNumber
	}
	return view
}

// NotificationView is one offer message.
type NotificationView struct {
	ID        uuid.UUID  `json:"id"`
	OrderID   uuid.UUID  `json:"order_id"`
	VendorID  *uuid.UUID `json:"vendor_id,omitempty"`
	Message   string     `json:"message"`
	IsRead    bool       `json:"is_read"`
	CreatedAt time.Time  `json:"created_at"`
}

// BroadcastResult lists the partners an order was offered to.
type BroadcastResult struct {
	OrderID    uuid.UUID   `json:"order_id"`
	Candidates []uuid.UUID `json:"delivery_boy_ids"`
}

// StatusInput is a delivery partner's progress report.
type StatusInput struct {
	Status enums.AssignStatus `json:"status" validate:"required"`
	Pin    string             `json:"delivery_pin"`
}
