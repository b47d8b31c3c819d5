package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sevalabs/gramseva-backend/pkg/db/models"
	"github.com/sevalabs/gramseva-backend/pkg/enums"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// FindActiveByRolePincode returns the oldest active user holding the role in
// the given pincode. Resolution prefers the earliest-registered stakeholder so
// repeat requests land with the same person.
func (r *Repository) FindActiveByRolePincode(ctx context.Context, role enums.StakeholderRole, pincode string) (*models.User, error) {
	return r.findActiveByScope(ctx, role, "pincode", pincode)
}

// FindActiveByRoleTaluk returns the oldest active user holding the role in the taluk.
func (r *Repository) FindActiveByRoleTaluk(ctx context.Context, role enums.StakeholderRole, taluk string) (*models.User, error) {
	return r.findActiveByScope(ctx, role, "taluk", taluk)
}

// FindActiveByRoleDistrict returns the oldest active user holding the role in the district.
func (r *Repository) FindActiveByRoleDistrict(ctx context.Context, role enums.StakeholderRole, district string) (*models.User, error) {
	return r.findActiveByScope(ctx, role, "district", district)
}

// FindActiveAdmin returns the oldest active admin user.
func (r *Repository) FindActiveAdmin(ctx context.Context) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", enums.RoleAdmin, true).
		Order("created_at ASC").
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) findActiveByScope(ctx context.Context, role enums.StakeholderRole, column, value string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND is_active = ? AND "+column+" = ?", role, true, value).
		Order("created_at ASC").
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
