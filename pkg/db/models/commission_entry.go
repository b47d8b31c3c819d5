package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sevalabs/gramseva-backend/pkg/enums"
)

// CommissionEntry is one stakeholder's share of a completed request. Rows are
// immutable once written except for the credit-status flip performed by the
// wallet reconciliation; monetary corrections happen as new compensating rows.
// The (service_request_id, stakeholder_role) unique index is the at-most-once
// boundary for distribution.
type CommissionEntry struct {
	ID               uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ServiceRequestID uuid.UUID                   `gorm:"column:service_request_id;type:uuid;not null;uniqueIndex:ux_commission_entries_request_role"`
	StakeholderRole  enums.StakeholderRole       `gorm:"column:stakeholder_role;type:stakeholder_role;not null;uniqueIndex:ux_commission_entries_request_role"`
	StakeholderID    *uuid.UUID                  `gorm:"column:stakeholder_id;type:uuid"`
	Amount           decimal.Decimal             `gorm:"column:amount;type:numeric(12,2);not null"`
	Rate             decimal.Decimal             `gorm:"column:rate;type:numeric(5,2);not null"`
	Status           enums.CommissionEntryStatus `gorm:"column:status;type:commission_entry_status;not null"`
	CreditedAt       *time.Time                  `gorm:"column:credited_at"`
	CreatedAt        time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
