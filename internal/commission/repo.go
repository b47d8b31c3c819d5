package commission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sevalabs/gramseva-backend/pkg/db/models"
	"github.com/sevalabs/gramseva-backend/pkg/enums"
)

// Repository manages persistence for commission entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.CommissionEntry) error
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.CommissionEntry, error)
	MarkCredited(ctx context.Context, entryID uuid.UUID, at time.Time) (bool, error)
	ClaimUnassigned(ctx context.Context, entryID, stakeholderID uuid.UUID) (bool, error)
	ListPendingCredit(ctx context.Context, limit int) ([]models.CommissionEntry, error)
	ListPendingCreditOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.CommissionEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a commission repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.CommissionEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.CommissionEntry, error) {
	var entries []models.CommissionEntry
	err := r.db.WithContext(ctx).
		Where("service_request_id = ?", requestID).
		Order("created_at ASC, stakeholder_role ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkCredited flips a pending_credit entry to credited. The status predicate
// makes the flip a compare-and-set so concurrent retries credit at most once.
func (r *repository) MarkCredited(ctx context.Context, entryID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CommissionEntry{}).
		Where("id = ? AND status = ?", entryID, enums.CommissionEntryPendingCredit).
		Updates(map[string]interface{}{
			"status":      enums.CommissionEntryCredited,
			"credited_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ClaimUnassigned binds a stakeholder to an unassigned share and moves it to
// pending_credit, guarded the same way as MarkCredited.
func (r *repository) ClaimUnassigned(ctx context.Context, entryID, stakeholderID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CommissionEntry{}).
		Where("id = ? AND status = ?", entryID, enums.CommissionEntryUnassigned).
		Updates(map[string]interface{}{
			"stakeholder_id": stakeholderID,
			"status":         enums.CommissionEntryPendingCredit,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ListPendingCredit(ctx context.Context, limit int) ([]models.CommissionEntry, error) {
	var entries []models.CommissionEntry
	err := r.db.WithContext(ctx).
		Where("status = ? AND stakeholder_id IS NOT NULL", enums.CommissionEntryPendingCredit).
		Order("created_at ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListPendingCreditOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.CommissionEntry, error) {
	var entries []models.CommissionEntry
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.CommissionEntryPendingCredit, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
