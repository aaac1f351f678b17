package payments

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/fastbag-backend/api/middleware"
	"github.com/angelmondragon/fastbag-backend/api/responses"
	"github.com/angelmondragon/fastbag-backend/api/validators"
	paymentsvc "github.com/angelmondragon/fastbag-backend/internal/payments"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
	"github.com/angelmondragon/fastbag-backend/pkg/logger"
)

type verifyRequest struct {
	GatewayOrderRef   string `json:"gateway_order_id" validate:"required"`
	GatewayPaymentRef string `json:"gateway_payment_id" validate:"required"`
	Signature         string `json:"signature" validate:"required"`
}

// VerifyResponse reports the order after reconciliation.
type VerifyResponse struct {
	OrderID       string              `json:"order_id"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	OrderStatus   enums.OrderStatus   `json:"order_status"`
	AlreadyPaid   bool                `json:"already_paid"`
}

// Verify checks the gateway signature for a customer's online payment.
func Verify(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		userID, ok := middleware.UserUUIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload verifyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Verify(r.Context(), paymentsvc.VerifyInput{
			GatewayOrderRef:   strings.TrimSpace(payload.GatewayOrderRef),
			GatewayPaymentRef: strings.TrimSpace(payload.GatewayPaymentRef),
			Signature:         strings.TrimSpace(payload.Signature),
			UserID:            &userID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, VerifyResponse{
			OrderID:       result.Order.OrderID,
			PaymentStatus: result.Order.PaymentStatus,
			OrderStatus:   result.Order.OrderStatus,
			AlreadyPaid:   result.AlreadyPaid,
		})
	}
}
