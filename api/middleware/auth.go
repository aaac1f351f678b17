package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/fastbag-backend/api/responses"
	pkgAuth "github.com/angelmondragon/fastbag-backend/pkg/auth"
	"github.com/angelmondragon/fastbag-backend/pkg/config"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
	"github.com/angelmondragon/fastbag-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			identity := Identity{
				UserID: claims.UserID.String(),
				Role:   string(claims.Role),
			}
			switch claims.Role {
			case enums.RoleVendor:
				if claims.VendorID == nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "vendor token missing vendor id"))
					return
				}
				identity.VendorID = claims.VendorID.String()
			case enums.RoleDeliveryPartner:
				if claims.DeliveryBoyID == nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "partner token missing delivery boy id"))
					return
				}
				identity.DeliveryBoyID = claims.DeliveryBoyID.String()
			}

			ctx := WithIdentity(r.Context(), identity)
			if logg != nil {
				fields := map[string]any{
					"user_id":    identity.UserID,
					"actor_role": identity.Role,
				}
				if identity.VendorID != "" {
					fields["vendor_id"] = identity.VendorID
				}
				if identity.DeliveryBoyID != "" {
					fields["delivery_boy_id"] = identity.DeliveryBoyID
				}
				ctx = logg.WithFields(ctx, fields)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
