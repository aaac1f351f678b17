package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
)

// Actor is the authenticated principal acting on an order.
type Actor struct {
	UserID   uuid.UUID
	Role     enums.Role
	VendorID *uuid.UUID
}

// Filters narrow order lists.
type Filters struct {
	OrderStatus   *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	DateFrom      *time.Time
	DateTo        *time.Time
}

// ProductDetail is the per-line view built from order items at read time.
type ProductDetail struct {
	ItemID       uuid.UUID         `json:"item_id"`
	VendorID     uuid.UUID         `json:"vendor_id"`
	ProductID    uuid.UUID         `json:"product_id"`
	ProductType  enums.ProductType `json:"product_type"`
	Name         string            `json:"product_name"`
	ImageURL     *string           `json:"image_url,omitempty"`
	Color        string            `json:"color,omitempty"`
	Size         string            `json:"size,omitempty"`
	Variant      string            `json:"variant,omitempty"`
	Quantity     int               `json:"quantity"`
	PricePerUnit decimal.Decimal   `json:"price_per_unit"`
	Subtotal     decimal.Decimal   `json:"subtotal"`
	Status       enums.ItemStatus  `json:"status"`
	CancelReason *string           `json:"cancel_reason,omitempty"`
	ReturnReason *string           `json:"return_reason,omitempty"`
}

// OrderView is the order as returned to customers, vendors and admins.
// DeliveryPin is only filled for the customer who placed the order.
type OrderView struct {
	ID              uuid.UUID           `json:"id"`
	OrderID         string              `json:"order_id"`
	UserID          uuid.UUID           `json:"user_id"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	DiscountAmount  decimal.Decimal     `json:"discount_amount"`
	DeliveryCharge  decimal.Decimal     `json:"delivery_charge"`
	FinalAmount     decimal.Decimal     `json:"final_amount"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	PaymentStatus   enums.PaymentStatus `json:"payment_status"`
	OrderStatus     enums.OrderStatus   `json:"order_status"`
	ShippingAddress string              `json:"shipping_address"`
	ContactNumber   string              `json:"contact_number,omitempty"`
	UsedCoupon      *string             `json:"used_coupon,omitempty"`
	Reason          *string             `json:"reason,omitempty"`
	DeliveryPin     string              `json:"delivery_pin,omitempty"`
	ItemCount       int                 `json:"item_count"`
	ProductDetails  []ProductDetail     `json:"product_details"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// NewOrderView renders an order and the given items. Pass only the items the
// viewer may see.
func NewOrderView(order models.Order, items []models.OrderItem, withPin bool) OrderView {
	view := OrderView{
		ID:              order.ID,
		OrderID:         order.OrderID,
		UserID:          order.UserID,
		TotalAmount:     order.TotalAmount,
		DiscountAmount:  order.DiscountAmount,
		DeliveryCharge:  order.DeliveryCharge,
		FinalAmount:     order.FinalAmount,
		PaymentMethod:   order.PaymentMethod,
		PaymentStatus:   order.PaymentStatus,
		OrderStatus:     order.OrderStatus,
		ShippingAddress: order.ShippingAddress,
		ContactNumber:   order.ContactNumber,
		UsedCoupon:      order.UsedCoupon,
		Reason:          order.Reason,
		ProductDetails:  make([]ProductDetail, 0, len(items)),
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	if withPin {
		view.DeliveryPin = order.DeliveryPin
	}
	for _, item := range items {
		view.ItemCount += item.Quantity
		view.ProductDetails = append(view.ProductDetails, ProductDetail{
			ItemID:       item.ID,
			VendorID:     item.VendorID,
			ProductID:    item.ProductID,
			ProductType:  item.ProductType,
			Name:         item.ProductName,
			ImageURL:     item.ImageURL,
			Color:        item.Color,
			Size:         item.Size,
			Variant:      item.Variant,
			Quantity:     item.Quantity,
			PricePerUnit: item.PricePerUnit,
			Subtotal:     item.Subtotal,
			Status:       item.Status,
			CancelReason: item.CancelReason,
			ReturnReason: item.ReturnReason,
		})
	}
	return view
}
