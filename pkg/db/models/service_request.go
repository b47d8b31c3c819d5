package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sevalabs/gramseva-backend/pkg/enums"
)

// ServiceRequest is one customer-originated request flowing through the
// stakeholder approval chain. Location columns are frozen at creation; the
// stakeholder ids are filled by the resolver or by an admin override and carry
// the commission once the request completes.
type ServiceRequest struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RequestNumber     string               `gorm:"column:request_number;not null;uniqueIndex:ux_service_requests_request_number"`
	CustomerID        uuid.UUID            `gorm:"column:customer_id;type:uuid;not null"`
	ServiceType       enums.ServiceType    `gorm:"column:service_type;type:service_type;not null"`
	Amount            decimal.Decimal      `gorm:"column:amount;type:numeric(12,2);not null"`
	PaymentStatus     enums.PaymentStatus  `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	PaymentReference  *string              `gorm:"column:payment_reference"`
	Status            enums.RequestStatus  `gorm:"column:status;type:request_status;not null;default:'new'"`
	District          string               `gorm:"column:district;not null"`
	Taluk             string               `gorm:"column:taluk;not null"`
	Pincode           string               `gorm:"column:pincode;not null"`
	AssignedAgentID   *uuid.UUID           `gorm:"column:assigned_agent_id;type:uuid"`
	TalukManagerID    *uuid.UUID           `gorm:"column:taluk_manager_id;type:uuid"`
	BranchManagerID   *uuid.UUID           `gorm:"column:branch_manager_id;type:uuid"`
	ServiceData       json.RawMessage      `gorm:"column:service_data;type:jsonb"`
	History           []StatusHistoryEntry `gorm:"foreignKey:ServiceRequestID;constraint:OnDelete:CASCADE"`
	CommissionEntries []CommissionEntry    `gorm:"foreignKey:ServiceRequestID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// StakeholderFor returns the stakeholder id filling the given role slot, or nil.
func (s *ServiceRequest) StakeholderFor(role enums.StakeholderRole) *uuid.UUID {
	switch role {
	case enums.RoleServiceAgent:
		return s.AssignedAgentID
	case enums.RoleTalukManager:
		return s.TalukManagerID
	case enums.RoleBranchManager:
		return s.BranchManagerID
	case enums.RoleCustomer:
		id := s.CustomerID
		return &id
	default:
		return nil
	}
}
