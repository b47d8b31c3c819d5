package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sevalabs/gramseva-backend/pkg/enums"
)

// User is a login account: a customer or a stakeholder in the approval chain.
// The district/taluk/pincode columns scope stakeholders to the location unit
// they are responsible for; customers leave them empty.
type User struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string                `gorm:"column:name;not null"`
	Email        string                `gorm:"column:email;not null;uniqueIndex"`
	Phone        *string               `gorm:"column:phone"`
	PasswordHash string                `gorm:"column:password_hash;not null"`
	Role         enums.StakeholderRole `gorm:"column:role;type:stakeholder_role;not null;default:'customer'"`
	District     *string               `gorm:"column:district"`
	Taluk        *string               `gorm:"column:taluk"`
	Pincode      *string               `gorm:"column:pincode"`
	IsActive     bool                  `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time            `gorm:"column:last_login_at"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
