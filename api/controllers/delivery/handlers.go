package delivery

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/fastbag-backend/api/middleware"
	"github.com/angelmondragon/fastbag-backend/api/responses"
	"github.com/angelmondragon/fastbag-backend/api/validators"
	deliverysvc "github.com/angelmondragon/fastbag-backend/internal/delivery"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
	"github.com/angelmondragon/fastbag-backend/pkg/logger"
	"github.com/angelmondragon/fastbag-backend/pkg/pagination"
)

const defaultListLimit = 50

type statusRequest struct {
	Status string `json:"status" validate:"required"`
	Pin    string `json:"delivery_pin" validate:"omitempty,numeric,max=12"`
}

// partnerFromRequest resolves {delivery_boy_id} and checks that the caller
// operates that partner.
func partnerFromRequest(r *http.Request, svc deliverysvc.Service) (uuid.UUID, error) {
	partnerID, err := validators.ParseUUIDParam(r, "delivery_boy_id")
	if err != nil {
		return uuid.Nil, err
	}
	userID, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	if claimed, ok := middleware.DeliveryBoyUUIDFromContext(r.Context()); ok && claimed != partnerID {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "delivery partner mismatch")
	}
	if err := svc.Authorize(r.Context(), partnerID, userID); err != nil {
		return uuid.Nil, err
	}
	return partnerID, nil
}

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
}

// Accept claims an offered order. Exactly one partner wins.
func Accept(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return decide(svc, logg, true)
}

// Reject declines an offered order.
func Reject(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return decide(svc, logg, false)
}

func decide(svc deliverysvc.Service, logg *logger.Logger, accept bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		partnerID, err := partnerFromRequest(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var view *deliverysvc.AssignmentView
		if accept {
			view, err = svc.Accept(r.Context(), partnerID, orderID)
		} else {
			view, err = svc.Reject(r.Context(), partnerID, orderID)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			ctx := logg.WithOrderID(r.Context(), orderID.String())
			logg.Info(logg.WithField(ctx, "delivery_boy_id", partnerID.String()), "delivery.decision."+strings.ToLower(string(view.Status)))
		}
		responses.WriteSuccess(w, view)
	}
}

// UpdateStatus records pickup, delivery or return progress for an accepted order.
func UpdateStatus(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		partnerID, err := partnerFromRequest(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload statusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseAssignStatus(strings.ToUpper(strings.TrimSpace(payload.Status)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		view, err := svc.UpdateStatus(r.Context(), partnerID, orderID, deliverysvc.StatusInput{
			Status: status,
			Pin:    strings.TrimSpace(payload.Pin),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type listFunc func(svc deliverysvc.Service, r *http.Request, partnerID uuid.UUID, limit int) ([]deliverysvc.AssignmentView, error)

// ListAssigned returns offers the partner has not answered yet.
func ListAssigned(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return listAssignments(svc, logg, func(s deliverysvc.Service, r *http.Request, id uuid.UUID, limit int) ([]deliverysvc.AssignmentView, error) {
		return s.ListAssigned(r.Context(), id, limit)
	})
}

func ListAccepted(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return listAssignments(svc, logg, func(s deliverysvc.Service, r *http.Request, id uuid.UUID, limit int) ([]deliverysvc.AssignmentView, error) {
		return s.ListAccepted(r.Context(), id, limit)
	})
}

func ListRejected(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return listAssignments(svc, logg, func(s deliverysvc.Service, r *http.Request, id uuid.UUID, limit int) ([]deliverysvc.AssignmentView, error) {
		return s.ListRejected(r.Context(), id, limit)
	})
}

func listAssignments(svc deliverysvc.Service, logg *logger.Logger, fn listFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		partnerID, err := partnerFromRequest(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultListLimit, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views, err := fn(svc, r, partnerID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if views == nil {
			views = []deliverysvc.AssignmentView{}
		}
		responses.WriteSuccess(w, views)
	}
}

// Notifications pages through the partner's offer inbox.
func Notifications(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		partnerID, err := partnerFromRequest(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListNotifications(r.Context(), partnerID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func MarkNotificationRead(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		partnerID, err := partnerFromRequest(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		notificationID, err := validators.ParseUUIDParam(r, "notification_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.MarkNotificationRead(r.Context(), partnerID, notificationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": notificationID, "is_read": true})
	}
}

// ChargeQuote prices a delivery of ?km= kilometres at ?at= (RFC 3339, default now).
func ChargeQuote(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		km, err := validators.ParseQueryFloat(r, "km")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		at := time.Now()
		if raw := strings.TrimSpace(r.URL.Query().Get("at")); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "at must be RFC 3339").WithDetails(map[string]any{"field": "at"}))
				return
			}
			at = parsed
		}

		quote, err := svc.Quote(r.Context(), km, at)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}
