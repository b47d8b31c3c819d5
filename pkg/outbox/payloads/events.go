package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sevalabs/gramseva-backend/pkg/enums"
)

// RequestCreatedEvent signals a new service request accepted into the pipeline.
type RequestCreatedEvent struct {
	ServiceRequestID uuid.UUID         `json:"service_request_id"`
	RequestNumber    string            `json:"request_number"`
	ServiceType      enums.ServiceType `json:"service_type"`
	CustomerID       uuid.UUID         `json:"customer_id"`
	Pincode          string            `json:"pincode"`
	Amount           decimal.Decimal   `json:"amount"`
}

// PaymentCapturedEvent is emitted when a request's payment settles.
type PaymentCapturedEvent struct {
	ServiceRequestID uuid.UUID       `json:"service_request_id"`
	RequestNumber    string          `json:"request_number"`
	PaymentReference string          `json:"payment_reference"`
	Amount           decimal.Decimal `json:"amount"`
	CapturedAt       time.Time       `json:"captured_at"`
}

// RequestStateChangedEvent records a single lifecycle transition.
type RequestStateChangedEvent struct {
	ServiceRequestID uuid.UUID             `json:"service_request_id"`
	RequestNumber    string                `json:"request_number"`
	FromStatus       enums.RequestStatus   `json:"from_status"`
	ToStatus         enums.RequestStatus   `json:"to_status"`
	ActorRole        enums.StakeholderRole `json:"actor_role"`
	ChangedBy        *uuid.UUID            `json:"changed_by,omitempty"`
	Notes            string                `json:"notes,omitempty"`
}

// StakeholderAssignedEvent tells downstream systems to alert the assignee.
type StakeholderAssignedEvent struct {
	ServiceRequestID uuid.UUID             `json:"service_request_id"`
	RequestNumber    string                `json:"request_number"`
	Role             enums.StakeholderRole `json:"role"`
	StakeholderID    uuid.UUID             `json:"stakeholder_id"`
}

// RequestCompletedEvent is emitted on the single commission-triggering transition.
type RequestCompletedEvent struct {
	ServiceRequestID uuid.UUID         `json:"service_request_id"`
	RequestNumber    string            `json:"request_number"`
	ServiceType      enums.ServiceType `json:"service_type"`
	CustomerID       uuid.UUID         `json:"customer_id"`
	Amount           decimal.Decimal   `json:"amount"`
	CompletedAt      time.Time         `json:"completed_at"`
}

// RequestRejectedEvent is emitted whenever an approver rejects a request.
type RequestRejectedEvent struct {
	ServiceRequestID uuid.UUID             `json:"service_request_id"`
	RequestNumber    string                `json:"request_number"`
	ActorRole        enums.StakeholderRole `json:"actor_role"`
	Reason           string                `json:"reason,omitempty"`
	RejectedAt       time.Time             `json:"rejected_at"`
}

// CommissionDistributedEvent summarizes a completed ledger write.
type CommissionDistributedEvent struct {
	ServiceRequestID uuid.UUID         `json:"service_request_id"`
	RequestNumber    string            `json:"request_number"`
	ServiceType      enums.ServiceType `json:"service_type"`
	TotalCommission  decimal.Decimal   `json:"total_commission"`
	EntryCount       int               `json:"entry_count"`
}

// CommissionCreditedEvent is emitted per stakeholder wallet credit.
type CommissionCreditedEvent struct {
	CommissionEntryID uuid.UUID             `json:"commission_entry_id"`
	ServiceRequestID  uuid.UUID             `json:"service_request_id"`
	StakeholderID     uuid.UUID             `json:"stakeholder_id"`
	Role              enums.StakeholderRole `json:"role"`
	Amount            decimal.Decimal       `json:"amount"`
	CreditedAt        time.Time             `json:"credited_at"`
}

// CommissionCreditStuckEvent flags a pending_credit entry that keeps failing.
type CommissionCreditStuckEvent struct {
	CommissionEntryID uuid.UUID             `json:"commission_entry_id"`
	ServiceRequestID  uuid.UUID             `json:"service_request_id"`
	Role              enums.StakeholderRole `json:"role"`
	Amount            decimal.Decimal       `json:"amount"`
	LastError         string                `json:"last_error,omitempty"`
}
