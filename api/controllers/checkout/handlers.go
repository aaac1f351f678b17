package checkout

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fastbag-backend/api/middleware"
	"github.com/angelmondragon/fastbag-backend/api/responses"
	"github.com/angelmondragon/fastbag-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/fastbag-backend/internal/checkout"
	couponsvc "github.com/angelmondragon/fastbag-backend/internal/coupons"
	"github.com/angelmondragon/fastbag-backend/internal/orders"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
	"github.com/angelmondragon/fastbag-backend/pkg/gateway"
	"github.com/angelmondragon/fastbag-backend/pkg/logger"
)

type checkoutRequest struct {
	AddressID      string           `json:"address_id" validate:"required,uuid"`
	PaymentMethod  string           `json:"payment_method" validate:"required,oneof=cod online COD ONLINE"`
	CouponCode     string           `json:"coupon_code"`
	DeliveryCharge *decimal.Decimal `json:"delivery_charge"`
	ContactNumber  string           `json:"contact_number"`
}

// Response is the committed checkout. Payment carries the gateway order the
// client app opens for online payments.
type Response struct {
	CheckoutID   uuid.UUID            `json:"checkout_id"`
	OrderID      string               `json:"order_id"`
	Order        *orders.OrderView    `json:"order,omitempty"`
	Payment      *gateway.RemoteOrder `json:"payment,omitempty"`
	PaymentError string               `json:"payment_error,omitempty"`
}

type applyCouponRequest struct {
	Code     string          `json:"code" validate:"required"`
	Amount   decimal.Decimal `json:"amount"`
	VendorID string          `json:"vendor_id" validate:"omitempty,uuid"`
}

// CouponPreview is the discount a code would grant on amount.
type CouponPreview struct {
	CouponID     uuid.UUID          `json:"coupon_id"`
	Code         string             `json:"code"`
	DiscountType enums.DiscountType `json:"discount_type"`
	Amount       decimal.Decimal    `json:"amount"`
	Discount     decimal.Decimal    `json:"discount"`
	FinalAmount  decimal.Decimal    `json:"final_amount"`
}

// Checkout converts the whole cart into an order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(svc, logg, false)
}

// VendorCheckout converts one vendor's slice of the cart into an order.
func VendorCheckout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(svc, logg, true)
}

func handle(svc checkoutsvc.Service, logg *logger.Logger, perVendor bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		userID, ok := middleware.UserUUIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if perVendor {
			vendorID, err := validators.ParseUUIDParam(r, "vendor_id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.VendorID = &vendorID
		}

		result, err := svc.Execute(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if result.PaymentError != "" && result.Order != nil && logg != nil {
			ctx := logg.WithOrderID(r.Context(), result.Order.OrderID)
			logg.Warn(logg.WithField(ctx, "payment_error", result.PaymentError), "checkout.gateway_order_failed")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newResponse(result))
	}
}

func (p checkoutRequest) toInput() (checkoutsvc.Input, error) {
	addressID, err := uuid.Parse(p.AddressID)
	if err != nil {
		return checkoutsvc.Input{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid address_id")
	}
	method, err := enums.ParsePaymentMethod(strings.ToLower(strings.TrimSpace(p.PaymentMethod)))
	if err != nil {
		return checkoutsvc.Input{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_method")
	}
	if p.DeliveryCharge != nil && p.DeliveryCharge.IsNegative() {
		return checkoutsvc.Input{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery_charge must not be negative")
	}
	return checkoutsvc.Input{
		AddressID:      addressID,
		PaymentMethod:  method,
		CouponCode:     strings.TrimSpace(p.CouponCode),
		DeliveryCharge: p.DeliveryCharge,
		ContactNumber:  validators.SanitizeString(p.ContactNumber, 20),
	}, nil
}

func newResponse(result *checkoutsvc.Result) Response {
	resp := Response{
		Payment:      result.Payment,
		PaymentError: result.PaymentError,
	}
	if result.Checkout != nil {
		resp.CheckoutID = result.Checkout.ID
		resp.OrderID = result.Checkout.OrderID
	}
	if result.Order != nil {
		view := orders.NewOrderView(*result.Order, result.Order.Items, true)
		resp.Order = &view
		resp.OrderID = result.Order.OrderID
	}
	return resp
}

// ApplyCoupon previews a coupon without consuming it.
func ApplyCoupon(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		userID, ok := middleware.UserUUIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload applyCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := couponsvc.EvaluateInput{
			Code:   strings.TrimSpace(payload.Code),
			Amount: payload.Amount,
			UserID: userID,
		}
		if payload.VendorID != "" {
			vendorID, err := uuid.Parse(payload.VendorID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vendor_id"))
				return
			}
			input.VendorID = &vendorID
		}

		eval, err := svc.Preview(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, CouponPreview{
			CouponID:     eval.Coupon.ID,
			Code:         eval.Coupon.Code,
			DiscountType: eval.Coupon.DiscountType,
			Amount:       payload.Amount,
			Discount:     eval.Discount,
			FinalAmount:  payload.Amount.Sub(eval.Discount),
		})
	}
}
