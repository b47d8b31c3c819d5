package requests

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sevalabs/gramseva-backend/pkg/db/models"
	"github.com/sevalabs/gramseva-backend/pkg/enums"
)

// ListScope narrows a request listing to one stakeholder column. A nil scope
// means no restriction (admin view).
type ListScope struct {
	Column string
	UserID uuid.UUID
}

// Repository manages persistence for service requests and their audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.ServiceRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error)
	FindByIDFull(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error)
	UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to enums.RequestStatus, updates map[string]interface{}) (bool, error)
	CapturePaymentCAS(ctx context.Context, id uuid.UUID, reference string) (bool, error)
	AppendHistory(ctx context.Context, entry *models.StatusHistoryEntry) error
	SetStakeholder(ctx context.Context, id uuid.UUID, column string, stakeholderID uuid.UUID) error
	List(ctx context.Context, scope *ListScope, limit int, before *uuid.UUID) ([]models.ServiceRequest, error)
	ListStuckBefore(ctx context.Context, statuses []enums.RequestStatus, cutoff time.Time, limit int) ([]models.ServiceRequest, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a request repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.ServiceRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error) {
	var request models.ServiceRequest
	if err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// FindByIDFull loads the request together with its status history and
// commission entries.
func (r *repository) FindByIDFull(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error) {
	var request models.ServiceRequest
	err := r.db.WithContext(ctx).
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("CommissionEntries").
		First(&request, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// UpdateStatusCAS moves the request from one status to another only if the
// stored status still matches. The extra updates ride along in the same
// statement (e.g. binding the accepting agent).
func (r *repository) UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to enums.RequestStatus, updates map[string]interface{}) (bool, error) {
	values := map[string]interface{}{"status": to}
	for column, value := range updates {
		values[column] = value
	}
	result := r.db.WithContext(ctx).
		Model(&models.ServiceRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CapturePaymentCAS flips payment_status from pending to completed exactly once.
func (r *repository) CapturePaymentCAS(ctx context.Context, id uuid.UUID, reference string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ServiceRequest{}).
		Where("id = ? AND payment_status = ?", id, enums.PaymentStatusPending).
		Updates(map[string]interface{}{
			"payment_status":    enums.PaymentStatusCompleted,
			"payment_reference": reference,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) AppendHistory(ctx context.Context, entry *models.StatusHistoryEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) SetStakeholder(ctx context.Context, id uuid.UUID, column string, stakeholderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ServiceRequest{}).
		Where("id = ?", id).
		UpdateColumn(column, stakeholderID).Error
}

func (r *repository) List(ctx context.Context, scope *ListScope, limit int, before *uuid.UUID) ([]models.ServiceRequest, error) {
	query := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if scope != nil {
		query = query.Where(scope.Column+" = ?", scope.UserID)
	}
	if before != nil {
		query = query.Where(
			"(created_at, id) < (SELECT created_at, id FROM service_requests WHERE id = ?)",
			*before,
		)
	}

	var rows []models.ServiceRequest
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListStuckBefore finds requests sitting in the given statuses since before
// the cutoff, oldest first. Used by the stuck-request sweep.
func (r *repository) ListStuckBefore(ctx context.Context, statuses []enums.RequestStatus, cutoff time.Time, limit int) ([]models.ServiceRequest, error) {
	var rows []models.ServiceRequest
	err := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", statuses, cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
