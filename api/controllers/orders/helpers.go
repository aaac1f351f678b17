package orders

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/fastbag-backend/api/middleware"
	"github.com/angelmondragon/fastbag-backend/api/validators"
	ordersvc "github.com/angelmondragon/fastbag-backend/internal/orders"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
	"github.com/angelmondragon/fastbag-backend/pkg/pagination"
)

type reasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

func actorFromRequest(r *http.Request) (ordersvc.Actor, error) {
	userID, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return ordersvc.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	actor := ordersvc.Actor{
		UserID: userID,
		Role:   enums.Role(middleware.RoleFromContext(r.Context())),
	}
	if vendorID, ok := middleware.VendorUUIDFromContext(r.Context()); ok {
		actor.VendorID = &vendorID
	}
	return actor, nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

func buildFilters(r *http.Request) (ordersvc.Filters, error) {
	var filters ordersvc.Filters
	q := r.URL.Query()

	if raw := strings.TrimSpace(q.Get("order_status")); raw != "" {
		status, err := enums.ParseOrderStatus(strings.ToLower(raw))
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order_status")
		}
		filters.OrderStatus = &status
	}
	if raw := strings.TrimSpace(q.Get("payment_status")); raw != "" {
		status, err := enums.ParsePaymentStatus(strings.ToLower(raw))
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_status")
		}
		filters.PaymentStatus = &status
	}

	from, err := validators.ParseQueryDate(r, "date_from")
	if err != nil {
		return filters, err
	}
	to, err := validators.ParseQueryDate(r, "date_to")
	if err != nil {
		return filters, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return filters, pkgerrors.New(pkgerrors.CodeValidation, "date_to must not be before date_from")
	}
	filters.DateFrom = from
	if to != nil {
		// date_to names a whole day
		end := to.AddDate(0, 0, 1)
		filters.DateTo = &end
	}
	return filters, nil
}

// decodeReason reads the optional reason body; cancellations must carry one.
func decodeReason(r *http.Request, required bool) (string, error) {
	var reason string
	if r.ContentLength != 0 {
		var payload reasonRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return "", err
		}
		reason = validators.SanitizeString(payload.Reason, 500)
	}
	if required && reason == "" {
		return "", reasonRequired()
	}
	return reason, nil
}

func reasonRequired() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "Cancellation reason is required")
}

func decodeItemStatus(r *http.Request) (enums.ItemStatus, string, error) {
	var payload statusRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		return "", "", err
	}
	status, err := enums.ParseItemStatus(strings.ToLower(strings.TrimSpace(payload.Status)))
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	reason := validators.SanitizeString(payload.Reason, 500)
	if status == enums.ItemStatusCancelled && reason == "" {
		return "", "", reasonRequired()
	}
	return status, reason, nil
}
