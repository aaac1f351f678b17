package commissions

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/fastbag-backend/api/responses"
	"github.com/angelmondragon/fastbag-backend/api/validators"
	commissionsvc "github.com/angelmondragon/fastbag-backend/internal/commissions"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
	"github.com/angelmondragon/fastbag-backend/pkg/logger"
)

type settleRequest struct {
	OrderID *uuid.UUID `json:"order_id"`
	Since   *time.Time `json:"since"`
}

type statusRequest struct {
	Status string `json:"payment_status" validate:"required"`
}

// SettleResponse reports either a single settlement or a batch count.
type SettleResponse struct {
	Settlement *commissionsvc.Settlement `json:"settlement,omitempty"`
	Settled    *int                      `json:"settled,omitempty"`
}

// List returns commission ledger days filtered by ?date=, ?vendor_id= and ?status=.
func List(svc commissionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}
		var filter commissionsvc.ListFilter
		date, err := validators.ParseQueryDate(r, "date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.Date = date
		vendorID, err := validators.ParseQueryUUID(r, "vendor_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.VendorID = vendorID
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseCommissionStatus(strings.ToLower(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filter.Status = &status
		}

		views, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if views == nil {
			views = []commissionsvc.CommissionView{}
		}
		responses.WriteSuccess(w, views)
	}
}

// Settle settles one order when order_id is given, otherwise every delivered
// order updated since `since` (default now minus lookback).
func Settle(svc commissionsvc.Service, lookback time.Duration, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}
		var payload settleRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		if payload.OrderID != nil {
			settlement, err := svc.SettleOrder(r.Context(), *payload.OrderID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, SettleResponse{Settlement: settlement})
			return
		}

		since := time.Now().Add(-lookback)
		if payload.Since != nil {
			since = *payload.Since
		}
		count, err := svc.SettleDelivered(r.Context(), since)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{"since": since.UTC().Format(time.RFC3339), "settled": count})
			logg.Info(ctx, "commissions.settle.batch")
		}
		responses.WriteSuccess(w, SettleResponse{Settled: &count})
	}
}

// UpdateStatus flips a ledger day between pending and paid.
func UpdateStatus(svc commissionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "commission_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload statusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseCommissionStatus(strings.ToLower(strings.TrimSpace(payload.Status)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_status"))
			return
		}

		view, err := svc.MarkPaid(r.Context(), id, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
