package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sevalabs/gramseva-backend/pkg/enums"
)

// CommissionPolicy configures the percentage owed to each role for a service
// type. Edits never mutate an active policy in place: the old row is
// deactivated and a fresh one inserted so historical distributions stay
// explainable.
type CommissionPolicy struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ServiceType     enums.ServiceType `gorm:"column:service_type;type:service_type;not null;index"`
	AdminRate       decimal.Decimal   `gorm:"column:admin_rate;type:numeric(5,2);not null"`
	BranchRate      decimal.Decimal   `gorm:"column:branch_rate;type:numeric(5,2);not null"`
	TalukRate       decimal.Decimal   `gorm:"column:taluk_rate;type:numeric(5,2);not null"`
	AgentRate       decimal.Decimal   `gorm:"column:agent_rate;type:numeric(5,2);not null"`
	CustomerRate    decimal.Decimal   `gorm:"column:customer_rate;type:numeric(5,2);not null"`
	TotalCommission decimal.Decimal   `gorm:"column:total_commission;type:numeric(5,2);not null"`
	IsActive        bool              `gorm:"column:is_active;not null;default:true"`
	CreatedBy       *uuid.UUID        `gorm:"column:created_by;type:uuid"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// RateFor returns the percentage configured for the given role.
func (p *CommissionPolicy) RateFor(role enums.StakeholderRole) decimal.Decimal {
	switch role {
	case enums.RoleAdmin:
		return p.AdminRate
	case enums.RoleBranchManager:
		return p.BranchRate
	case enums.RoleTalukManager:
		return p.TalukRate
	case enums.RoleServiceAgent:
		return p.AgentRate
	case enums.RoleCustomer:
		return p.CustomerRate
	default:
		return decimal.Zero
	}
}
