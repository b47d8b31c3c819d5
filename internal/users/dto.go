package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/sevalabs/gramseva-backend/pkg/db/models"
	"github.com/sevalabs/gramseva-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID             `json:"id"`
	Name        string                `json:"name"`
	Email       string                `json:"email"`
	Phone       *string               `json:"phone,omitempty"`
	Role        enums.StakeholderRole `json:"role"`
	District    *string               `json:"district,omitempty"`
	Taluk       *string               `json:"taluk,omitempty"`
	Pincode     *string               `json:"pincode,omitempty"`
	IsActive    bool                  `json:"is_active"`
	LastLoginAt *time.Time            `json:"last_login_at,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Name         string
	Email        string
	PasswordHash string
	Phone        *string
	Role         enums.StakeholderRole
	District     *string
	Taluk        *string
	Pincode      *string
	IsActive     *bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Phone:       u.Phone,
		Role:        u.Role,
		District:    u.District,
		Taluk:       u.Taluk,
		Pincode:     u.Pincode,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}

	role := c.Role
	if role == "" {
		role = enums.RoleCustomer
	}

	return &models.User{
		Name:         c.Name,
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		Phone:        c.Phone,
		Role:         role,
		District:     c.District,
		Taluk:        c.Taluk,
		Pincode:      c.Pincode,
		IsActive:     isActive,
	}
}
