package auth

import (
	"github.com/sevalabs/gramseva-backend/internal/users"
	"github.com/sevalabs/gramseva-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the token and user profile produced by a successful login.
type LoginResponse struct {
	AccessToken string         `json:"access_token"`
	User        *users.UserDTO `json:"user"`
}

// RegisterRequest contains the payload required for onboarding a new account.
// Stakeholder roles must carry the location column matching their tier:
// service agents a pincode, taluk managers a taluk, branch managers a district.
type RegisterRequest struct {
	Name     string                `json:"name" validate:"required"`
	Email    string                `json:"email" validate:"required,email"`
	Password string                `json:"password" validate:"required,min=8"`
	Phone    *string               `json:"phone,omitempty"`
	Role     enums.StakeholderRole `json:"role" validate:"required"`
	District *string               `json:"district,omitempty"`
	Taluk    *string               `json:"taluk,omitempty"`
	Pincode  *string               `json:"pincode,omitempty"`
}

// RegisterResponse exposes the created user.
type RegisterResponse struct {
	User *users.UserDTO `json:"user"`
}
