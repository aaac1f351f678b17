package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ctxUserID        contextKey = "user_id"
	ctxRole          contextKey = "actor_role"
	ctxVendorID      contextKey = "vendor_id"
	ctxDeliveryBoyID contextKey = "delivery_boy_id"
)

// Identity is the authenticated principal attached to a request.
type Identity struct {
	UserID        string
	Role          string
	VendorID      string
	DeliveryBoyID string
}

func UserIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxUserID)
}

func RoleFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxRole)
}

func VendorIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxVendorID)
}

func DeliveryBoyIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxDeliveryBoyID)
}

// UserUUIDFromContext parses the authenticated user id.
func UserUUIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	return uuidValue(ctx, ctxUserID)
}

// VendorUUIDFromContext parses the vendor id claimed by a vendor token.
func VendorUUIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	return uuidValue(ctx, ctxVendorID)
}

// DeliveryBoyUUIDFromContext parses the partner id claimed by a delivery token.
func DeliveryBoyUUIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	return uuidValue(ctx, ctxDeliveryBoyID)
}

// WithIdentity injects the principal into the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, id.UserID)
	ctx = context.WithValue(ctx, ctxRole, id.Role)
	if id.VendorID != "" {
		ctx = context.WithValue(ctx, ctxVendorID, id.VendorID)
	}
	if id.DeliveryBoyID != "" {
		ctx = context.WithValue(ctx, ctxDeliveryBoyID, id.DeliveryBoyID)
	}
	return ctx
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

func uuidValue(ctx context.Context, key contextKey) (uuid.UUID, bool) {
	raw := stringValue(ctx, key)
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
