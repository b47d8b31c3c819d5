package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sevalabs/gramseva-backend/pkg/enums"
)

// StatusHistoryEntry is the append-only audit trail of a service request.
// Rows are never updated or deleted.
type StatusHistoryEntry struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ServiceRequestID uuid.UUID             `gorm:"column:service_request_id;type:uuid;not null;index"`
	FromStatus       enums.RequestStatus   `gorm:"column:from_status;type:request_status;not null"`
	ToStatus         enums.RequestStatus   `gorm:"column:to_status;type:request_status;not null"`
	ChangedBy        *uuid.UUID            `gorm:"column:changed_by;type:uuid"`
	ActorRole        enums.StakeholderRole `gorm:"column:actor_role;type:stakeholder_role;not null"`
	Notes            *string               `gorm:"column:notes"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
}
