package locations

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sevalabs/gramseva-backend/pkg/db/models"
	"github.com/sevalabs/gramseva-backend/pkg/enums"
	pkgerrors "github.com/sevalabs/gramseva-backend/pkg/errors"
)

// ResolvedChain holds the stakeholder assignments for a location. Any slot may
// be nil when no active stakeholder is registered for that location unit;
// absent slots are filled later through manual assignment.
type ResolvedChain struct {
	AgentID         *uuid.UUID `json:"agent_id,omitempty"`
	TalukManagerID  *uuid.UUID `json:"taluk_manager_id,omitempty"`
	BranchManagerID *uuid.UUID `json:"branch_manager_id,omitempty"`
}

// Service resolves the stakeholder chain for a request's location.
type Service interface {
	Resolve(ctx context.Context, district, taluk, pincode string) (ResolvedChain, error)
}

type service struct {
	users stakeholderRepository
}

type stakeholderRepository interface {
	FindActiveByRolePincode(ctx context.Context, role enums.StakeholderRole, pincode string) (*models.User, error)
	FindActiveByRoleTaluk(ctx context.Context, role enums.StakeholderRole, taluk string) (*models.User, error)
	FindActiveByRoleDistrict(ctx context.Context, role enums.StakeholderRole, district string) (*models.User, error)
}

// ServiceParams bundles the dependencies for the location resolver.
type ServiceParams struct {
	UserRepo stakeholderRepository
}

// NewService constructs a resolver backed by the users repository.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	return &service{users: params.UserRepo}, nil
}

// Resolve looks up the three chain slots independently. A missing stakeholder
// leaves its slot nil rather than failing the lookup.
func (s *service) Resolve(ctx context.Context, district, taluk, pincode string) (ResolvedChain, error) {
	chain := ResolvedChain{}

	agent, err := s.users.FindActiveByRolePincode(ctx, enums.RoleServiceAgent, pincode)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return ResolvedChain{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve pincode agent")
	}
	if agent != nil {
		id := agent.ID
		chain.AgentID = &id
	}

	talukManager, err := s.users.FindActiveByRoleTaluk(ctx, enums.RoleTalukManager, taluk)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return ResolvedChain{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve taluk manager")
	}
	if talukManager != nil {
		id := talukManager.ID
		chain.TalukManagerID = &id
	}

	branchManager, err := s.users.FindActiveByRoleDistrict(ctx, enums.RoleBranchManager, district)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return ResolvedChain{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve branch manager")
	}
	if branchManager != nil {
		id := branchManager.ID
		chain.BranchManagerID = &id
	}

	return chain, nil
}
