package notifications

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/fastbag-backend/api/middleware"
	"github.com/angelmondragon/fastbag-backend/api/responses"
	"github.com/angelmondragon/fastbag-backend/api/validators"
	notificationsvc "github.com/angelmondragon/fastbag-backend/internal/notifications"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
	"github.com/angelmondragon/fastbag-backend/pkg/logger"
	"github.com/angelmondragon/fastbag-backend/pkg/pagination"
)

// ownerFromRequest picks the vendor inbox for vendor tokens and the user
// inbox for everyone else.
func ownerFromRequest(r *http.Request) (notificationsvc.Recipient, error) {
	if enums.Role(middleware.RoleFromContext(r.Context())) == enums.RoleVendor {
		vendorID, ok := middleware.VendorUUIDFromContext(r.Context())
		if !ok {
			return notificationsvc.Recipient{}, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing")
		}
		return notificationsvc.ForVendor(vendorID), nil
	}
	userID, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return notificationsvc.Recipient{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return notificationsvc.ForUser(userID), nil
}

func List(svc notificationsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		owner, err := ownerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unread := false
		if raw := strings.TrimSpace(r.URL.Query().Get("unread")); raw != "" {
			unread, err = strconv.ParseBool(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unread must be a boolean").WithDetails(map[string]any{"field": "unread"}))
				return
			}
		}

		page, err := svc.List(r.Context(), notificationsvc.ListParams{
			Owner:      owner,
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
			UnreadOnly: unread,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func MarkRead(svc notificationsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		owner, err := ownerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "notification_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.MarkRead(r.Context(), owner, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "is_read": true})
	}
}

func MarkAllRead(svc notificationsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		owner, err := ownerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.MarkAllRead(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"updated": updated})
	}
}
