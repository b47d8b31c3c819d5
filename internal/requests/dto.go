package requests

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sevalabs/gramseva-backend/pkg/db/models"
	"github.com/sevalabs/gramseva-backend/pkg/enums"
)

// Actor identifies who is performing an operation, as established by the
// authentication layer. Internal system moves use SystemActor.
type Actor struct {
	UserID uuid.UUID
	Role   enums.StakeholderRole
}

// SystemActor marks platform-originated mutations like the payment-capture
// auto-advance.
var SystemActor = Actor{Role: enums.RoleSystem}

// CreateRequestInput carries everything needed to accept a new request.
type CreateRequestInput struct {
	CustomerID  uuid.UUID         `json:"-"`
	ServiceType enums.ServiceType `json:"service_type" validate:"required"`
	Amount      decimal.Decimal   `json:"amount" validate:"required"`
	District    string            `json:"district" validate:"required"`
	Taluk       string            `json:"taluk" validate:"required"`
	Pincode     string            `json:"pincode" validate:"required"`
	ServiceData json.RawMessage   `json:"service_data,omitempty"`
}

// TransitionInput describes one state-machine move.
type TransitionInput struct {
	RequestID uuid.UUID
	Target    enums.RequestStatus
	Actor     Actor
	Reason    string
}

// AssignStakeholderInput is the admin override filling or replacing a chain slot.
type AssignStakeholderInput struct {
	RequestID     uuid.UUID
	Role          enums.StakeholderRole
	StakeholderID uuid.UUID
	Actor         Actor
}

// HistoryEntryDTO is one audit line of a request.
type HistoryEntryDTO struct {
	ID         uuid.UUID             `json:"id"`
	FromStatus enums.RequestStatus   `json:"from_status"`
	ToStatus   enums.RequestStatus   `json:"to_status"`
	ActorRole  enums.StakeholderRole `json:"actor_role"`
	ChangedBy  *uuid.UUID            `json:"changed_by,omitempty"`
	Notes      *string               `json:"notes,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
}

// CommissionEntryDTO is one stakeholder share attached to a request detail.
type CommissionEntryDTO struct {
	ID              uuid.UUID                   `json:"id"`
	StakeholderRole enums.StakeholderRole       `json:"stakeholder_role"`
	StakeholderID   *uuid.UUID                  `json:"stakeholder_id,omitempty"`
	Amount          decimal.Decimal             `json:"amount"`
	Rate            decimal.Decimal             `json:"rate"`
	Status          enums.CommissionEntryStatus `json:"status"`
	CreditedAt      *time.Time                  `json:"credited_at,omitempty"`
}

// RequestDTO is the transport shape of a service request.
type RequestDTO struct {
	ID               uuid.UUID            `json:"id"`
	RequestNumber    string               `json:"request_number"`
	CustomerID       uuid.UUID            `json:"customer_id"`
	ServiceType      enums.ServiceType    `json:"service_type"`
	Amount           decimal.Decimal      `json:"amount"`
	PaymentStatus    enums.PaymentStatus  `json:"payment_status"`
	PaymentReference *string              `json:"payment_reference,omitempty"`
	Status           enums.RequestStatus  `json:"status"`
	District         string               `json:"district"`
	Taluk            string               `json:"taluk"`
	Pincode          string               `json:"pincode"`
	AssignedAgentID  *uuid.UUID           `json:"assigned_agent_id,omitempty"`
	TalukManagerID   *uuid.UUID           `json:"taluk_manager_id,omitempty"`
	BranchManagerID  *uuid.UUID           `json:"branch_manager_id,omitempty"`
	ServiceData      json.RawMessage      `json:"service_data,omitempty"`
	History          []HistoryEntryDTO    `json:"history,omitempty"`
	Commission       []CommissionEntryDTO `json:"commission_entries,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// FromModel converts a request row, including any preloaded associations.
func FromModel(m *models.ServiceRequest) *RequestDTO {
	if m == nil {
		return nil
	}
	dto := &RequestDTO{
		ID:               m.ID,
		RequestNumber:    m.RequestNumber,
		CustomerID:       m.CustomerID,
		ServiceType:      m.ServiceType,
		Amount:           m.Amount,
		PaymentStatus:    m.PaymentStatus,
		PaymentReference: m.PaymentReference,
		Status:           m.Status,
		District:         m.District,
		Taluk:            m.Taluk,
		Pincode:          m.Pincode,
		AssignedAgentID:  m.AssignedAgentID,
		TalukManagerID:   m.TalukManagerID,
		BranchManagerID:  m.BranchManagerID,
		ServiceData:      m.ServiceData,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	for _, h := range m.History {
		dto.History = append(dto.History, HistoryEntryDTO{
			ID:         h.ID,
			FromStatus: h.FromStatus,
			ToStatus:   h.ToStatus,
			ActorRole:  h.ActorRole,
			ChangedBy:  h.ChangedBy,
			Notes:      h.Notes,
			CreatedAt:  h.CreatedAt,
		})
	}
	for _, e := range m.CommissionEntries {
		dto.Commission = append(dto.Commission, CommissionEntryDTO{
			ID:              e.ID,
			StakeholderRole: e.StakeholderRole,
			StakeholderID:   e.StakeholderID,
			Amount:          e.Amount,
			Rate:            e.Rate,
			Status:          e.Status,
			CreditedAt:      e.CreditedAt,
		})
	}
	return dto
}
