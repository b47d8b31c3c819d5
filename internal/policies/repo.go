package policies

import (
	"context"

	"gorm.io/gorm"

	"github.com/sevalabs/gramseva-backend/pkg/db/models"
	"github.com/sevalabs/gramseva-backend/pkg/enums"
)

// Repository exposes commission policy persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a policies repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindActiveByServiceType loads the single live policy for a vertical.
func (r *Repository) FindActiveByServiceType(ctx context.Context, serviceType enums.ServiceType) (*models.CommissionPolicy, error) {
	var policy models.CommissionPolicy
	err := r.db.WithContext(ctx).
		Where("service_type = ? AND is_active = ?", serviceType, true).
		First(&policy).Error
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

// ListByServiceType returns all policies for a vertical, newest first, so
// admins can audit the configuration history.
func (r *Repository) ListByServiceType(ctx context.Context, serviceType enums.ServiceType) ([]models.CommissionPolicy, error) {
	var rows []models.CommissionPolicy
	err := r.db.WithContext(ctx).
		Where("service_type = ?", serviceType).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DeactivateActive retires the current live policy for a vertical. Retired
// rows are kept for audit, never deleted.
func (r *Repository) DeactivateActive(ctx context.Context, serviceType enums.ServiceType) error {
	return r.db.WithContext(ctx).
		Model(&models.CommissionPolicy{}).
		Where("service_type = ? AND is_active = ?", serviceType, true).
		UpdateColumn("is_active", false).Error
}

// Create inserts a new policy row.
func (r *Repository) Create(ctx context.Context, policy *models.CommissionPolicy) error {
	return r.db.WithContext(ctx).Create(policy).Error
}
