package auth

import (
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID        uuid.UUID
	Role          enums.Role
	VendorID      *uuid.UUID
	DeliveryBoyID *uuid.UUID
	JTI           string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID        uuid.UUID  `json:"user_id"`
	Role          enums.Role `json:"role"`
	VendorID      *uuid.UUID `json:"vendor_id,omitempty"`
	DeliveryBoyID *uuid.UUID `json:"delivery_boy_id,omitempty"`
	jwt.RegisteredClaims
}
