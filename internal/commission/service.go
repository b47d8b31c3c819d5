package commission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/sevalabs/gramseva-backend/pkg/db"
	"github.com/sevalabs/gramseva-backend/pkg/db/models"
	"github.com/sevalabs/gramseva-backend/pkg/enums"
	pkgerrors "github.com/sevalabs/gramseva-backend/pkg/errors"
	"github.com/sevalabs/gramseva-backend/pkg/logger"
	"github.com/sevalabs/gramseva-backend/pkg/metrics"
	"github.com/sevalabs/gramseva-backend/pkg/outbox"
	"github.com/sevalabs/gramseva-backend/pkg/outbox/payloads"
)

var oneHundred = decimal.NewFromInt(100)

// distributionOrder fixes the role sequence for share computation. Admin sits
// last among stakeholders so the rounding remainder lands on the platform.
var distributionOrder = []enums.StakeholderRole{
	enums.RoleServiceAgent,
	enums.RoleTalukManager,
	enums.RoleBranchManager,
	enums.RoleAdmin,
	enums.RoleCustomer,
}

// Service is the commission distribution ledger. Distribute runs at most once
// successfully per request; the unique (service_request_id, stakeholder_role)
// index is the atomic guard, not a prior read.
type Service interface {
	Distribute(ctx context.Context, requestID uuid.UUID) ([]models.CommissionEntry, error)
	RedistributeUnassigned(ctx context.Context, requestID uuid.UUID) ([]models.CommissionEntry, error)
	RetryPendingCredits(ctx context.Context, limit int) (int, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.CommissionEntry, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type requestRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error)
}

type policyRepository interface {
	FindActiveByServiceType(ctx context.Context, serviceType enums.ServiceType) (*models.CommissionPolicy, error)
}

type adminRepository interface {
	FindActiveAdmin(ctx context.Context) (*models.User, error)
}

type walletCreditor interface {
	CreditTx(ctx context.Context, tx *gorm.DB, input WalletCredit) (*models.WalletTransaction, error)
}

// WalletCredit mirrors the wallet service's movement input so this package
// does not import it directly.
type WalletCredit struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	ServiceType *enums.ServiceType
	Description string
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	tx       txRunner
	repo     Repository
	requests requestRepository
	policies policyRepository
	admins   adminRepository
	wallet   walletCreditor
	outbox   outboxEmitter
	metrics  *metrics.LifecycleMetrics
	logg     *logger.Logger
}

// ServiceParams bundles the distribution ledger dependencies. Metrics and
// Outbox are optional.
type ServiceParams struct {
	TxRunner txRunner
	Repo     Repository
	Requests requestRepository
	Policies policyRepository
	Admins   adminRepository
	Wallet   walletCreditor
	Outbox   outboxEmitter
	Metrics  *metrics.LifecycleMetrics
	Logger   *logger.Logger
}

// NewService constructs the commission distribution ledger.
func NewService(params ServiceParams) (Service, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("commission repository is required")
	}
	if params.Requests == nil {
		return nil, fmt.Errorf("request repository is required")
	}
	if params.Policies == nil {
		return nil, fmt.Errorf("policy repository is required")
	}
	if params.Admins == nil {
		return nil, fmt.Errorf("admin repository is required")
	}
	if params.Wallet == nil {
		return nil, fmt.Errorf("wallet creditor is required")
	}
	return &service{
		tx:       params.TxRunner,
		repo:     params.Repo,
		requests: params.Requests,
		policies: params.Policies,
		admins:   params.Admins,
		wallet:   params.Wallet,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// share pairs a role with its computed cut before persistence.
type share struct {
	role          enums.StakeholderRole
	rate          decimal.Decimal
	amount        decimal.Decimal
	stakeholderID *uuid.UUID
}

func (s *service) Distribute(ctx context.Context, requestID uuid.UUID) ([]models.CommissionEntry, error) {
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != enums.RequestStatusCompleted && request.PaymentStatus != enums.PaymentStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "request is not eligible for commission distribution")
	}

	existing, err := s.repo.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list commission entries")
	}
	if len(existing) > 0 {
		return existing, nil
	}

	policy, err := s.policies.FindActiveByServiceType(ctx, request.ServiceType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active commission policy for service type")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load commission policy")
	}

	adminID, err := s.resolveAdmin(ctx)
	if err != nil {
		return nil, err
	}

	shares := computeShares(policy, request, adminID)
	entries := make([]*models.CommissionEntry, 0, len(shares))
	for _, sh := range shares {
		status := enums.CommissionEntryPendingCredit
		if sh.stakeholderID == nil {
			status = enums.CommissionEntryUnassigned
		}
		entries = append(entries, &models.CommissionEntry{
			ServiceRequestID: request.ID,
			StakeholderRole:  sh.role,
			StakeholderID:    sh.stakeholderID,
			Amount:           sh.amount,
			Rate:             sh.rate,
			Status:           status,
		})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, entry := range entries {
			if err := repo.Create(ctx, entry); err != nil {
				return err
			}
		}
		return s.emitDistributed(ctx, tx, request, policy, len(entries))
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_commission_entries_request_role") {
			// A concurrent distribute won the insert race; its entries are ours.
			if s.metrics != nil {
				s.metrics.IncDistribution("duplicate")
			}
			return s.repo.ListByRequest(ctx, requestID)
		}
		if s.metrics != nil {
			s.metrics.IncDistribution("error")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist commission entries")
	}
	if s.metrics != nil {
		s.metrics.IncDistribution("distributed")
	}

	s.creditEntries(ctx, request, entries)

	final, err := s.repo.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload commission entries")
	}
	return final, nil
}

// RedistributeUnassigned re-resolves unassigned shares after a manual
// stakeholder assignment and credits the newly bound stakeholders.
func (s *service) RedistributeUnassigned(ctx context.Context, requestID uuid.UUID) ([]models.CommissionEntry, error) {
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list commission entries")
	}

	adminID, err := s.resolveAdmin(ctx)
	if err != nil {
		return nil, err
	}

	var claimed []*models.CommissionEntry
	for i := range entries {
		entry := &entries[i]
		if entry.Status != enums.CommissionEntryUnassigned {
			continue
		}
		stakeholderID := resolveStakeholder(request, entry.StakeholderRole, adminID)
		if stakeholderID == nil {
			continue
		}
		ok, err := s.repo.ClaimUnassigned(ctx, entry.ID, *stakeholderID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "claim unassigned entry")
		}
		if ok {
			entry.StakeholderID = stakeholderID
			entry.Status = enums.CommissionEntryPendingCredit
			claimed = append(claimed, entry)
		}
	}

	s.creditEntries(ctx, request, claimed)

	final, err := s.repo.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload commission entries")
	}
	return final, nil
}

// RetryPendingCredits re-attempts wallet credits for entries stranded in
// pending_credit, returning how many were credited this pass.
func (s *service) RetryPendingCredits(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}
	entries, err := s.repo.ListPendingCredit(ctx, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list pending credits")
	}

	credited := 0
	for i := range entries {
		entry := &entries[i]
		request, err := s.requests.FindByID(ctx, entry.ServiceRequestID)
		if err != nil {
			s.logError(ctx, "load request for pending credit", err)
			continue
		}
		if s.creditEntry(ctx, request, entry) {
			credited++
		}
	}
	return credited, nil
}

func (s *service) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.CommissionEntry, error) {
	entries, err := s.repo.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list commission entries")
	}
	return entries, nil
}

func (s *service) loadRequest(ctx context.Context, requestID uuid.UUID) (*models.ServiceRequest, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load service request")
	}
	return request, nil
}

func (s *service) resolveAdmin(ctx context.Context) (*uuid.UUID, error) {
	admin, err := s.admins.FindActiveAdmin(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve admin")
	}
	id := admin.ID
	return &id, nil
}

// creditEntries posts wallet credits for entries in pending_credit. Failures
// leave the entry pending for the reconciliation sweep; they never unwind the
// distribution.
func (s *service) creditEntries(ctx context.Context, request *models.ServiceRequest, entries []*models.CommissionEntry) {
	for _, entry := range entries {
		if entry.Status != enums.CommissionEntryPendingCredit || entry.StakeholderID == nil {
			continue
		}
		s.creditEntry(ctx, request, entry)
	}
}

func (s *service) creditEntry(ctx context.Context, request *models.ServiceRequest, entry *models.CommissionEntry) bool {
	if entry.StakeholderID == nil {
		return false
	}
	now := time.Now().UTC()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		// Claim first: a no-op claim means another worker already credited.
		claimed, err := s.repo.WithTx(tx).MarkCredited(ctx, entry.ID, now)
		if err != nil {
			return err
		}
		if !claimed {
			return nil
		}

		serviceType := request.ServiceType
		if _, err := s.wallet.CreditTx(ctx, tx, WalletCredit{
			UserID:      *entry.StakeholderID,
			Amount:      entry.Amount,
			ServiceType: &serviceType,
			Description: fmt.Sprintf("commission for request %s (%s)", request.RequestNumber, entry.StakeholderRole),
		}); err != nil {
			return err
		}

		if s.outbox != nil {
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventCommissionCredited,
				AggregateType: enums.AggregateCommissionEntry,
				AggregateID:   entry.ID,
				Data: payloads.CommissionCreditedEvent{
					CommissionEntryID: entry.ID,
					ServiceRequestID:  request.ID,
					StakeholderID:     *entry.StakeholderID,
					Role:              entry.StakeholderRole,
					Amount:            entry.Amount,
					CreditedAt:        now,
				},
				Version: 1,
			})
		}
		return nil
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncCreditFailure()
		}
		s.logError(ctx, "wallet credit failed, entry left pending", err)
		return false
	}
	entry.Status = enums.CommissionEntryCredited
	entry.CreditedAt = &now
	return true
}

func (s *service) emitDistributed(ctx context.Context, tx *gorm.DB, request *models.ServiceRequest, policy *models.CommissionPolicy, entryCount int) error {
	if s.outbox == nil {
		return nil
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventCommissionDistributed,
		AggregateType: enums.AggregateServiceRequest,
		AggregateID:   request.ID,
		Data: payloads.CommissionDistributedEvent{
			ServiceRequestID: request.ID,
			RequestNumber:    request.RequestNumber,
			ServiceType:      request.ServiceType,
			TotalCommission:  policy.TotalCommission,
			EntryCount:       entryCount,
		},
		Version: 1,
	})
}

func (s *service) logError(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}

// computeShares rounds each role's cut to the minor unit half-up and pins the
// rounding remainder on the admin share so the entry total always equals the
// rounded policy total.
func computeShares(policy *models.CommissionPolicy, request *models.ServiceRequest, adminID *uuid.UUID) []share {
	shares := make([]share, 0, len(distributionOrder))
	distributed := decimal.Zero
	adminIdx := -1

	for _, role := range distributionOrder {
		rate := policy.RateFor(role)
		if rate.IsZero() {
			continue
		}
		amount := request.Amount.Mul(rate).Div(oneHundred).Round(2)
		distributed = distributed.Add(amount)

		stakeholderID := resolveStakeholder(request, role, adminID)
		if role == enums.RoleAdmin {
			adminIdx = len(shares)
		}
		shares = append(shares, share{
			role:          role,
			rate:          rate,
			amount:        amount,
			stakeholderID: stakeholderID,
		})
	}

	expected := request.Amount.Mul(policy.TotalCommission).Div(oneHundred).Round(2)
	remainder := expected.Sub(distributed)
	if !remainder.IsZero() && len(shares) > 0 {
		target := adminIdx
		if target < 0 {
			target = len(shares) - 1
		}
		shares[target].amount = shares[target].amount.Add(remainder)
	}

	return shares
}

func resolveStakeholder(request *models.ServiceRequest, role enums.StakeholderRole, adminID *uuid.UUID) *uuid.UUID {
	if role == enums.RoleAdmin {
		return adminID
	}
	return request.StakeholderFor(role)
}
