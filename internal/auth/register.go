package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/sevalabs/gramseva-backend/internal/users"
	"github.com/sevalabs/gramseva-backend/pkg/config"
	"github.com/sevalabs/gramseva-backend/pkg/db/models"
	"github.com/sevalabs/gramseva-backend/pkg/enums"
	pkgerrors "github.com/sevalabs/gramseva-backend/pkg/errors"
	"github.com/sevalabs/gramseva-backend/pkg/security"
)

// RegisterService handles account onboarding. Register is the public customer
// flow; CreateStakeholder is reserved for admins and EnsureBootstrapAdmin
// seeds the very first admin from configuration.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	CreateStakeholder(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	EnsureBootstrapAdmin(ctx context.Context, cfg config.BootstrapConfig) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type registerUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindActiveAdmin(ctx context.Context) (*models.User, error)
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
// UserRepoFactory defaults to the GORM-backed users repository.
type RegisterServiceParams struct {
	TxRunner        txRunner
	UserRepoFactory func(tx *gorm.DB) registerUserRepository
	PasswordConfig  config.PasswordConfig
}

type registerService struct {
	tx          txRunner
	userRepo    func(tx *gorm.DB) registerUserRepository
	passwordCfg config.PasswordConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	userRepo := params.UserRepoFactory
	if userRepo == nil {
		userRepo = func(tx *gorm.DB) registerUserRepository {
			return users.NewRepository(tx)
		}
	}
	return &registerService{
		tx:          params.TxRunner,
		userRepo:    userRepo,
		passwordCfg: params.PasswordConfig,
	}, nil
}

// Register is the unauthenticated endpoint behind POST /auth/register. It only
// ever mints customer accounts; stakeholder roles come from CreateStakeholder.
func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	if !req.Role.IsUserRole() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if req.Role != enums.RoleCustomer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "stakeholder accounts are provisioned by an admin")
	}
	return s.create(ctx, req)
}

// CreateStakeholder provisions agent, manager and admin accounts. The caller
// is role-gated at the router; this layer validates the role and its scope.
func (s *registerService) CreateStakeholder(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	if !req.Role.IsUserRole() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if req.Role == enums.RoleCustomer {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customers register through the public endpoint")
	}
	return s.create(ctx, req)
}

// EnsureBootstrapAdmin creates the first admin account from configuration so
// CreateStakeholder has a caller on a fresh install. It is a no-op when the
// bootstrap credentials are unset or an active admin already exists.
func (s *registerService) EnsureBootstrapAdmin(ctx context.Context, cfg config.BootstrapConfig) error {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" || cfg.AdminPassword == "" {
		return nil
	}

	adminExists := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.userRepo(tx).FindActiveAdmin(ctx); err == nil {
			adminExists = true
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check for existing admin")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if adminExists {
		return nil
	}

	name := strings.TrimSpace(cfg.AdminName)
	if name == "" {
		name = "Platform Admin"
	}
	_, err = s.create(ctx, RegisterRequest{
		Name:     name,
		Email:    email,
		Password: cfg.AdminPassword,
		Role:     enums.RoleAdmin,
	})
	if err != nil {
		// Another instance won the race to seed the same account.
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			return nil
		}
		return err
	}
	return nil
}

func (s *registerService) create(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if err := validateLocationScope(req); err != nil {
		return nil, err
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *users.UserDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.userRepo(tx)

		if _, err := repo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		user, err := repo.Create(ctx, users.CreateUserDTO{
			Name:         strings.TrimSpace(req.Name),
			Email:        email,
			PasswordHash: passwordHash,
			Phone:        req.Phone,
			Role:         req.Role,
			District:     normalizeLocation(req.District),
			Taluk:        normalizeLocation(req.Taluk),
			Pincode:      normalizeLocation(req.Pincode),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		created = users.FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &RegisterResponse{User: created}, nil
}

// validateLocationScope enforces that each stakeholder tier registers with the
// location unit it is responsible for. Customers carry no scope columns.
func validateLocationScope(req RegisterRequest) error {
	switch req.Role {
	case enums.RoleServiceAgent:
		if emptyLocation(req.Pincode) {
			return pkgerrors.New(pkgerrors.CodeValidation, "pincode is required for service agents")
		}
	case enums.RoleTalukManager:
		if emptyLocation(req.Taluk) {
			return pkgerrors.New(pkgerrors.CodeValidation, "taluk is required for taluk managers")
		}
	case enums.RoleBranchManager:
		if emptyLocation(req.District) {
			return pkgerrors.New(pkgerrors.CodeValidation, "district is required for branch managers")
		}
	}
	return nil
}

func emptyLocation(value *string) bool {
	return value == nil || strings.TrimSpace(*value) == ""
}

func normalizeLocation(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
