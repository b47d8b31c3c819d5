package policies

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sevalabs/gramseva-backend/pkg/db/models"
	"github.com/sevalabs/gramseva-backend/pkg/enums"
)

// PolicyDTO is the transport shape for a commission policy.
type PolicyDTO struct {
	ID              uuid.UUID         `json:"id"`
	ServiceType     enums.ServiceType `json:"service_type"`
	AdminRate       decimal.Decimal   `json:"admin_rate"`
	BranchRate      decimal.Decimal   `json:"branch_rate"`
	TalukRate       decimal.Decimal   `json:"taluk_rate"`
	AgentRate       decimal.Decimal   `json:"agent_rate"`
	CustomerRate    decimal.Decimal   `json:"customer_rate"`
	TotalCommission decimal.Decimal   `json:"total_commission"`
	IsActive        bool              `json:"is_active"`
	CreatedAt       time.Time         `json:"created_at"`
}

// UpsertPolicyRequest carries the per-role rates for a vertical. Rates are
// percentages of the transaction amount.
type UpsertPolicyRequest struct {
	ServiceType  enums.ServiceType `json:"service_type" validate:"required"`
	AdminRate    decimal.Decimal   `json:"admin_rate"`
	BranchRate   decimal.Decimal   `json:"branch_rate"`
	TalukRate    decimal.Decimal   `json:"taluk_rate"`
	AgentRate    decimal.Decimal   `json:"agent_rate"`
	CustomerRate decimal.Decimal   `json:"customer_rate"`
	CreatedBy    *uuid.UUID        `json:"-"`
}

func fromModel(p *models.CommissionPolicy) *PolicyDTO {
	if p == nil {
		return nil
	}
	return &PolicyDTO{
		ID:              p.ID,
		ServiceType:     p.ServiceType,
		AdminRate:       p.AdminRate,
		BranchRate:      p.BranchRate,
		TalukRate:       p.TalukRate,
		AgentRate:       p.AgentRate,
		CustomerRate:    p.CustomerRate,
		TotalCommission: p.TotalCommission,
		IsActive:        p.IsActive,
		CreatedAt:       p.CreatedAt,
	}
}
