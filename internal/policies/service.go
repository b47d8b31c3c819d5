package policies

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sevalabs/gramseva-backend/pkg/db/models"
	"github.com/sevalabs/gramseva-backend/pkg/enums"
	pkgerrors "github.com/sevalabs/gramseva-backend/pkg/errors"
)

var maxTotalCommission = decimal.NewFromInt(100)

// Service exposes commission policy configuration to admin callers and the
// distribution ledger.
type Service interface {
	GetActivePolicy(ctx context.Context, serviceType enums.ServiceType) (*PolicyDTO, error)
	ListPolicies(ctx context.Context, serviceType enums.ServiceType) ([]PolicyDTO, error)
	UpsertPolicy(ctx context.Context, req UpsertPolicyRequest) (*PolicyDTO, error)
}

type service struct {
	tx          txRunner
	repoFactory func(tx *gorm.DB) policyRepository
	repo        policyRepository
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type policyRepository interface {
	FindActiveByServiceType(ctx context.Context, serviceType enums.ServiceType) (*models.CommissionPolicy, error)
	ListByServiceType(ctx context.Context, serviceType enums.ServiceType) ([]models.CommissionPolicy, error)
	DeactivateActive(ctx context.Context, serviceType enums.ServiceType) error
	Create(ctx context.Context, policy *models.CommissionPolicy) error
}

// ServiceParams bundles the dependencies for the policy store. RepoFactory
// defaults to the GORM-backed repository.
type ServiceParams struct {
	TxRunner    txRunner
	Repo        policyRepository
	RepoFactory func(tx *gorm.DB) policyRepository
}

// NewService constructs the commission policy store.
func NewService(params ServiceParams) (Service, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("policy repository is required")
	}
	repoFactory := params.RepoFactory
	if repoFactory == nil {
		repoFactory = func(tx *gorm.DB) policyRepository {
			return NewRepository(tx)
		}
	}
	return &service{
		tx:          params.TxRunner,
		repoFactory: repoFactory,
		repo:        params.Repo,
	}, nil
}

func (s *service) GetActivePolicy(ctx context.Context, serviceType enums.ServiceType) (*PolicyDTO, error) {
	if !serviceType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid service type")
	}
	policy, err := s.repo.FindActiveByServiceType(ctx, serviceType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active commission policy for service type")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load active policy")
	}
	return fromModel(policy), nil
}

func (s *service) ListPolicies(ctx context.Context, serviceType enums.ServiceType) ([]PolicyDTO, error) {
	if !serviceType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid service type")
	}
	rows, err := s.repo.ListByServiceType(ctx, serviceType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list policies")
	}
	out := make([]PolicyDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *fromModel(&rows[i]))
	}
	return out, nil
}

// UpsertPolicy activates a new policy for the vertical, retiring the previous
// one in the same transaction so the partial unique index never sees two live
// rows.
func (s *service) UpsertPolicy(ctx context.Context, req UpsertPolicyRequest) (*PolicyDTO, error) {
	if !req.ServiceType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid service type")
	}
	total, err := validateRates(req)
	if err != nil {
		return nil, err
	}

	policy := &models.CommissionPolicy{
		ServiceType:     req.ServiceType,
		AdminRate:       req.AdminRate,
		BranchRate:      req.BranchRate,
		TalukRate:       req.TalukRate,
		AgentRate:       req.AgentRate,
		CustomerRate:    req.CustomerRate,
		TotalCommission: total,
		IsActive:        true,
		CreatedBy:       req.CreatedBy,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repoFactory(tx)
		if err := repo.DeactivateActive(ctx, req.ServiceType); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate previous policy")
		}
		if err := repo.Create(ctx, policy); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create policy")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return fromModel(policy), nil
}

func validateRates(req UpsertPolicyRequest) (decimal.Decimal, error) {
	rates := []struct {
		name string
		rate decimal.Decimal
	}{
		{"admin_rate", req.AdminRate},
		{"branch_rate", req.BranchRate},
		{"taluk_rate", req.TalukRate},
		{"agent_rate", req.AgentRate},
		{"customer_rate", req.CustomerRate},
	}

	total := decimal.Zero
	for _, r := range rates {
		if r.rate.IsNegative() {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, r.name+" must not be negative")
		}
		total = total.Add(r.rate)
	}
	if total.GreaterThan(maxTotalCommission) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "total commission exceeds 100 percent")
	}
	return total, nil
}
