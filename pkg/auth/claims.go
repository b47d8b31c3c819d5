package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sevalabs/gramseva-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	Role     enums.StakeholderRole
	District *string
	Taluk    *string
	Pincode  *string
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID   uuid.UUID             `json:"user_id"`
	Role     enums.StakeholderRole `json:"role"`
	District *string               `json:"district,omitempty"`
	Taluk    *string               `json:"taluk,omitempty"`
	Pincode  *string               `json:"pincode,omitempty"`
	jwt.RegisteredClaims
}
