package requests

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sevalabs/gramseva-backend/internal/locations"
	"github.com/sevalabs/gramseva-backend/pkg/db/models"
	"github.com/sevalabs/gramseva-backend/pkg/enums"
	pkgerrors "github.com/sevalabs/gramseva-backend/pkg/errors"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRequestRepo struct {
	requests map[uuid.UUID]*models.ServiceRequest
	history  []models.StatusHistoryEntry
	casFail  bool
}

func newStubRequestRepo() *stubRequestRepo {
	return &stubRequestRepo{requests: map[uuid.UUID]*models.ServiceRequest{}}
}

func (r *stubRequestRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubRequestRepo) Create(ctx context.Context, request *models.ServiceRequest) error {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	clone := *request
	r.requests[request.ID] = &clone
	return nil
}

func (r *stubRequestRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error) {
	request, ok := r.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *request
	return &clone, nil
}

func (r *stubRequestRepo) FindByIDFull(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error) {
	request, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, entry := range r.history {
		if entry.ServiceRequestID == id {
			request.History = append(request.History, entry)
		}
	}
	return request, nil
}

func (r *stubRequestRepo) UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to enums.RequestStatus, updates map[string]interface{}) (bool, error) {
	if r.casFail {
		return false, nil
	}
	request, ok := r.requests[id]
	if !ok || request.Status != from {
		return false, nil
	}
	request.Status = to
	if raw, ok := updates["assigned_agent_id"]; ok {
		agentID := raw.(uuid.UUID)
		request.AssignedAgentID = &agentID
	}
	request.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *stubRequestRepo) CapturePaymentCAS(ctx context.Context, id uuid.UUID, reference string) (bool, error) {
	request, ok := r.requests[id]
	if !ok || request.PaymentStatus != enums.PaymentStatusPending {
		return false, nil
	}
	request.PaymentStatus = enums.PaymentStatusCompleted
	request.PaymentReference = &reference
	return true, nil
}

func (r *stubRequestRepo) AppendHistory(ctx context.Context, entry *models.StatusHistoryEntry) error {
	clone := *entry
	if clone.ID == uuid.Nil {
		clone.ID = uuid.New()
	}
	r.history = append(r.history, clone)
	return nil
}

func (r *stubRequestRepo) SetStakeholder(ctx context.Context, id uuid.UUID, column string, stakeholderID uuid.UUID) error {
	request, ok := r.requests[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	target := stakeholderID
	switch column {
	case "assigned_agent_id":
		request.AssignedAgentID = &target
	case "taluk_manager_id":
		request.TalukManagerID = &target
	case "branch_manager_id":
		request.BranchManagerID = &target
	}
	return nil
}

func (r *stubRequestRepo) List(ctx context.Context, scope *ListScope, limit int, before *uuid.UUID) ([]models.ServiceRequest, error) {
	var out []models.ServiceRequest
	for _, request := range r.requests {
		if scope != nil {
			slot := request.StakeholderFor(scopeRole(scope.Column))
			if scope.Column == "customer_id" {
				if request.CustomerID != scope.UserID {
					continue
				}
			} else if slot == nil || *slot != scope.UserID {
				continue
			}
		}
		out = append(out, *request)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func scopeRole(column string) enums.StakeholderRole {
	switch column {
	case "assigned_agent_id":
		return enums.RoleServiceAgent
	case "taluk_manager_id":
		return enums.RoleTalukManager
	case "branch_manager_id":
		return enums.RoleBranchManager
	default:
		return enums.RoleCustomer
	}
}

func (r *stubRequestRepo) ListStuckBefore(ctx context.Context, statuses []enums.RequestStatus, cutoff time.Time, limit int) ([]models.ServiceRequest, error) {
	return nil, nil
}

type stubResolver struct {
	chain locations.ResolvedChain
	err   error
}

func (s *stubResolver) Resolve(ctx context.Context, district, taluk, pincode string) (locations.ResolvedChain, error) {
	return s.chain, s.err
}

type stubUserLookup struct {
	users map[uuid.UUID]*models.User
}

func (s *stubUserLookup) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

type stubDistributor struct {
	distributed   []uuid.UUID
	redistributed []uuid.UUID
}

func (s *stubDistributor) Distribute(ctx context.Context, requestID uuid.UUID) ([]models.CommissionEntry, error) {
	s.distributed = append(s.distributed, requestID)
	return nil, nil
}

func (s *stubDistributor) RedistributeUnassigned(ctx context.Context, requestID uuid.UUID) ([]models.CommissionEntry, error) {
	s.redistributed = append(s.redistributed, requestID)
	return nil, nil
}

type lifecycleFixture struct {
	repo        *stubRequestRepo
	distributor *stubDistributor
	users       *stubUserLookup
	svc         Service

	customerID uuid.UUID
	agentID    uuid.UUID
	talukID    uuid.UUID
	branchID   uuid.UUID
	adminID    uuid.UUID
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	f := &lifecycleFixture{
		repo:        newStubRequestRepo(),
		distributor: &stubDistributor{},
		customerID:  uuid.New(),
		agentID:     uuid.New(),
		talukID:     uuid.New(),
		branchID:    uuid.New(),
		adminID:     uuid.New(),
	}
	f.users = &stubUserLookup{users: map[uuid.UUID]*models.User{
		f.agentID:  {ID: f.agentID, Role: enums.RoleServiceAgent, IsActive: true},
		f.talukID:  {ID: f.talukID, Role: enums.RoleTalukManager, IsActive: true},
		f.branchID: {ID: f.branchID, Role: enums.RoleBranchManager, IsActive: true},
	}}
	svc, err := NewService(ServiceParams{
		TxRunner: stubTxRunner{},
		Repo:     f.repo,
		Resolver: &stubResolver{chain: locations.ResolvedChain{
			AgentID:         &f.agentID,
			TalukManagerID:  &f.talukID,
			BranchManagerID: &f.branchID,
		}},
		Users:       f.users,
		Distributor: f.distributor,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *lifecycleFixture) createPaid(t *testing.T) *RequestDTO {
	t.Helper()
	created, err := f.svc.Create(context.Background(), CreateRequestInput{
		CustomerID:  f.customerID,
		ServiceType: enums.ServiceTypeRecharge,
		Amount:      decimal.NewFromInt(500),
		District:    "Bengaluru Urban",
		Taluk:       "Bengaluru North",
		Pincode:     "560001",
	})
	require.NoError(t, err)
	paid, err := f.svc.CapturePayment(context.Background(), created.ID, "pay_9Kx4T", Actor{UserID: f.customerID, Role: enums.RoleCustomer})
	require.NoError(t, err)
	return paid
}

func (f *lifecycleFixture) transition(t *testing.T, id uuid.UUID, target enums.RequestStatus, actor Actor, reason string) *RequestDTO {
	t.Helper()
	dto, err := f.svc.Transition(context.Background(), TransitionInput{
		RequestID: id,
		Target:    target,
		Actor:     actor,
		Reason:    reason,
	})
	require.NoError(t, err)
	return dto
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr, "expected an application error, got %v", err)
	assert.Equal(t, code, appErr.Code())
}

func TestCreateResolvesChainAndNumbersRequest(t *testing.T) {
	f := newLifecycleFixture(t)

	dto, err := f.svc.Create(context.Background(), CreateRequestInput{
		CustomerID:  f.customerID,
		ServiceType: enums.ServiceTypeBooking,
		Amount:      decimal.NewFromFloat(249.50),
		District:    "  Bengaluru Urban ",
		Taluk:       "Bengaluru North",
		Pincode:     "560001",
	})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^GS-\d{8}-[A-Z2-9]{6}$`), dto.RequestNumber)
	assert.Equal(t, enums.RequestStatusNew, dto.Status)
	assert.Equal(t, enums.PaymentStatusPending, dto.PaymentStatus)
	assert.Equal(t, "Bengaluru Urban", dto.District)
	require.NotNil(t, dto.AssignedAgentID)
	assert.Equal(t, f.agentID, *dto.AssignedAgentID)
	require.NotNil(t, dto.TalukManagerID)
	require.NotNil(t, dto.BranchManagerID)
}

func TestCreateSurvivesMissingStakeholders(t *testing.T) {
	f := newLifecycleFixture(t)
	svc, err := NewService(ServiceParams{
		TxRunner: stubTxRunner{},
		Repo:     f.repo,
		Resolver: &stubResolver{},
		Users:    f.users,
	})
	require.NoError(t, err)

	dto, err := svc.Create(context.Background(), CreateRequestInput{
		CustomerID:  f.customerID,
		ServiceType: enums.ServiceTypeDelivery,
		Amount:      decimal.NewFromInt(120),
		District:    "Mandya",
		Taluk:       "Maddur",
		Pincode:     "571428",
	})
	require.NoError(t, err)
	assert.Nil(t, dto.AssignedAgentID)
	assert.Nil(t, dto.TalukManagerID)
	assert.Nil(t, dto.BranchManagerID)
}

func TestCreateValidation(t *testing.T) {
	f := newLifecycleFixture(t)
	base := CreateRequestInput{
		CustomerID:  f.customerID,
		ServiceType: enums.ServiceTypeRecharge,
		Amount:      decimal.NewFromInt(100),
		District:    "Mysuru",
		Taluk:       "Mysuru",
		Pincode:     "570001",
	}

	negative := base
	negative.Amount = decimal.NewFromInt(-5)
	_, err := f.svc.Create(context.Background(), negative)
	requireCode(t, err, pkgerrors.CodeValidation)

	badType := base
	badType.ServiceType = enums.ServiceType("astrology")
	_, err = f.svc.Create(context.Background(), badType)
	requireCode(t, err, pkgerrors.CodeValidation)

	noPincode := base
	noPincode.Pincode = "  "
	_, err = f.svc.Create(context.Background(), noPincode)
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestCapturePaymentAdvancesToInProgress(t *testing.T) {
	f := newLifecycleFixture(t)
	dto := f.createPaid(t)

	assert.Equal(t, enums.PaymentStatusCompleted, dto.PaymentStatus)
	require.NotNil(t, dto.PaymentReference)
	assert.Equal(t, "pay_9Kx4T", *dto.PaymentReference)
	assert.Equal(t, enums.RequestStatusInProgress, dto.Status)

	// The system's own move is audited like any other transition.
	require.Len(t, f.repo.history, 1)
	assert.Equal(t, enums.RequestStatusNew, f.repo.history[0].FromStatus)
	assert.Equal(t, enums.RequestStatusInProgress, f.repo.history[0].ToStatus)
	assert.Equal(t, enums.RoleSystem, f.repo.history[0].ActorRole)
}

func TestCapturePaymentDuplicateReferenceIsNoOp(t *testing.T) {
	f := newLifecycleFixture(t)
	dto := f.createPaid(t)

	owner := Actor{UserID: f.customerID, Role: enums.RoleCustomer}
	again, err := f.svc.CapturePayment(context.Background(), dto.ID, "pay_9Kx4T", owner)
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusInProgress, again.Status)
	require.Len(t, f.repo.history, 1)

	_, err = f.svc.CapturePayment(context.Background(), dto.ID, "pay_other", owner)
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestCapturePaymentLimitedToOwningCustomer(t *testing.T) {
	f := newLifecycleFixture(t)
	created, err := f.svc.Create(context.Background(), CreateRequestInput{
		CustomerID:  f.customerID,
		ServiceType: enums.ServiceTypeRecharge,
		Amount:      decimal.NewFromInt(500),
		District:    "Bengaluru Urban",
		Taluk:       "Bengaluru North",
		Pincode:     "560001",
	})
	require.NoError(t, err)

	// A different customer cannot settle payment on someone else's request.
	_, err = f.svc.CapturePayment(context.Background(), created.ID, "pay_hijack", Actor{UserID: uuid.New(), Role: enums.RoleCustomer})
	requireCode(t, err, pkgerrors.CodeForbidden)

	// Nor can a stakeholder holding a slot on the request.
	_, err = f.svc.CapturePayment(context.Background(), created.ID, "pay_hijack", Actor{UserID: f.agentID, Role: enums.RoleServiceAgent})
	requireCode(t, err, pkgerrors.CodeForbidden)

	stored := f.repo.requests[created.ID]
	assert.Equal(t, enums.PaymentStatusPending, stored.PaymentStatus)
	assert.Nil(t, stored.PaymentReference)

	// An admin may capture on the customer's behalf.
	dto, err := f.svc.CapturePayment(context.Background(), created.ID, "pay_admin", Actor{UserID: f.adminID, Role: enums.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCompleted, dto.PaymentStatus)
}

func TestTransitionBlockedUntilPaymentCompletes(t *testing.T) {
	f := newLifecycleFixture(t)
	created, err := f.svc.Create(context.Background(), CreateRequestInput{
		CustomerID:  f.customerID,
		ServiceType: enums.ServiceTypeRecharge,
		Amount:      decimal.NewFromInt(500),
		District:    "Bengaluru Urban",
		Taluk:       "Bengaluru North",
		Pincode:     "560001",
	})
	require.NoError(t, err)

	_, err = f.svc.Transition(context.Background(), TransitionInput{
		RequestID: created.ID,
		Target:    enums.RequestStatusInProgress,
		Actor:     SystemActor,
	})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	stored := f.repo.requests[created.ID]
	assert.Equal(t, enums.RequestStatusNew, stored.Status)
	assert.Empty(t, f.repo.history)
}

func TestHappyPathThroughApproval(t *testing.T) {
	f := newLifecycleFixture(t)
	dto := f.createPaid(t)

	dto = f.transition(t, dto.ID, enums.RequestStatusAssigned, Actor{UserID: f.agentID, Role: enums.RoleServiceAgent}, "")
	dto = f.transition(t, dto.ID, enums.RequestStatusApproved, Actor{UserID: f.talukID, Role: enums.RoleTalukManager}, "")
	dto = f.transition(t, dto.ID, enums.RequestStatusCompleted, Actor{UserID: f.talukID, Role: enums.RoleTalukManager}, "")

	assert.Equal(t, enums.RequestStatusCompleted, dto.Status)
	// One commission run per completion, one audit row per step.
	assert.Equal(t, []uuid.UUID{dto.ID}, f.distributor.distributed)
	require.Len(t, f.repo.history, 4)
}

func TestEscalationPath(t *testing.T) {
	f := newLifecycleFixture(t)
	dto := f.createPaid(t)

	dto = f.transition(t, dto.ID, enums.RequestStatusAssigned, Actor{UserID: f.agentID, Role: enums.RoleServiceAgent}, "")
	dto = f.transition(t, dto.ID, enums.RequestStatusApproved, Actor{UserID: f.talukID, Role: enums.RoleTalukManager}, "")
	dto = f.transition(t, dto.ID, enums.RequestStatusEscalated, Actor{UserID: f.talukID, Role: enums.RoleTalukManager}, "high value")
	dto = f.transition(t, dto.ID, enums.RequestStatusFinalApproved, Actor{UserID: f.branchID, Role: enums.RoleBranchManager}, "")
	dto = f.transition(t, dto.ID, enums.RequestStatusCompleted, Actor{UserID: f.branchID, Role: enums.RoleBranchManager}, "")

	assert.Equal(t, enums.RequestStatusCompleted, dto.Status)
	assert.Len(t, f.distributor.distributed, 1)
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	f := newLifecycleFixture(t)
	dto := f.createPaid(t)

	// in_progress -> approved skips the agent tier.
	_, err := f.svc.Transition(context.Background(), TransitionInput{
		RequestID: dto.ID,
		Target:    enums.RequestStatusApproved,
		Actor:     Actor{UserID: f.talukID, Role: enums.RoleTalukManager},
	})
	requireCode(t, err, pkgerrors.CodeForbidden)

	stored := f.repo.requests[dto.ID]
	assert.Equal(t, enums.RequestStatusInProgress, stored.Status)
	require.Len(t, f.repo.history, 1) // only the payment auto-advance
}

func TestTransitionRejectsWrongRole(t *testing.T) {
	f := newLifecycleFixture(t)
	dto := f.createPaid(t)

	_, err := f.svc.Transition(context.Background(), TransitionInput{
		RequestID: dto.ID,
		Target:    enums.RequestStatusAssigned,
		Actor:     Actor{UserID: f.customerID, Role: enums.RoleCustomer},
	})
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestTransitionRejectsForeignAgent(t *testing.T) {
	f := newLifecycleFixture(t)
	dto := f.createPaid(t)

	_, err := f.svc.Transition(context.Background(), TransitionInput{
		RequestID: dto.ID,
		Target:    enums.RequestStatusAssigned,
		Actor:     Actor{UserID: uuid.New(), Role: enums.RoleServiceAgent},
	})
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestAcceptingUnassignedRequestBindsAgent(t *testing.T) {
	f := newLifecycleFixture(t)
	svc, err := NewService(ServiceParams{
		TxRunner:    stubTxRunner{},
		Repo:        f.repo,
		Resolver:    &stubResolver{}, // nothing resolves
		Users:       f.users,
		Distributor: f.distributor,
	})
	require.NoError(t, err)

	created, err := svc.Create(context.Background(), CreateRequestInput{
		CustomerID:  f.customerID,
		ServiceType: enums.ServiceTypeTaxi,
		Amount:      decimal.NewFromInt(350),
		District:    "Mysuru",
		Taluk:       "Mysuru",
		Pincode:     "570001",
	})
	require.NoError(t, err)
	_, err = svc.CapturePayment(context.Background(), created.ID, "pay_unassigned", Actor{UserID: f.customerID, Role: enums.RoleCustomer})
	require.NoError(t, err)

	walkIn := uuid.New()
	dto, err := svc.Transition(context.Background(), TransitionInput{
		RequestID: created.ID,
		Target:    enums.RequestStatusAssigned,
		Actor:     Actor{UserID: walkIn, Role: enums.RoleServiceAgent},
	})
	require.NoError(t, err)
	require.NotNil(t, dto.AssignedAgentID)
	assert.Equal(t, walkIn, *dto.AssignedAgentID)
}

func TestRejectionRequiresReasonAndBypassesPaymentGate(t *testing.T) {
	f := newLifecycleFixture(t)
	created, err := f.svc.Create(context.Background(), CreateRequestInput{
		CustomerID:  f.customerID,
		ServiceType: enums.ServiceTypeRecharge,
		Amount:      decimal.NewFromInt(500),
		District:    "Bengaluru Urban",
		Taluk:       "Bengaluru North",
		Pincode:     "560001",
	})
	require.NoError(t, err)

	_, err = f.svc.Transition(context.Background(), TransitionInput{
		RequestID: created.ID,
		Target:    enums.RequestStatusRejected,
		Actor:     Actor{UserID: f.customerID, Role: enums.RoleCustomer},
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	dto, err := f.svc.Transition(context.Background(), TransitionInput{
		RequestID: created.ID,
		Target:    enums.RequestStatusRejected,
		Actor:     Actor{UserID: f.customerID, Role: enums.RoleCustomer},
		Reason:    "cancelled before payment",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusRejected, dto.Status)
	require.Len(t, f.repo.history, 1)
	require.NotNil(t, f.repo.history[0].Notes)
	assert.Equal(t, "cancelled before payment", *f.repo.history[0].Notes)
}

func TestTerminalRequestsFreeze(t *testing.T) {
	f := newLifecycleFixture(t)
	dto := f.createPaid(t)
	dto = f.transition(t, dto.ID, enums.RequestStatusAssigned, Actor{UserID: f.agentID, Role: enums.RoleServiceAgent}, "")
	dto = f.transition(t, dto.ID, enums.RequestStatusApproved, Actor{UserID: f.talukID, Role: enums.RoleTalukManager}, "")
	dto = f.transition(t, dto.ID, enums.RequestStatusCompleted, Actor{UserID: f.talukID, Role: enums.RoleTalukManager}, "")

	_, err := f.svc.Transition(context.Background(), TransitionInput{
		RequestID: dto.ID,
		Target:    enums.RequestStatusRejected,
		Actor:     Actor{UserID: f.adminID, Role: enums.RoleAdmin},
		Reason:    "changed my mind",
	})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestTransitionConcurrentLoserGetsConflict(t *testing.T) {
	f := newLifecycleFixture(t)
	dto := f.createPaid(t)

	f.repo.casFail = true
	_, err := f.svc.Transition(context.Background(), TransitionInput{
		RequestID: dto.ID,
		Target:    enums.RequestStatusAssigned,
		Actor:     Actor{UserID: f.agentID, Role: enums.RoleServiceAgent},
	})
	requireCode(t, err, pkgerrors.CodeConflict)
	require.Len(t, f.repo.history, 1) // no audit row for the losing attempt
}

func TestAssignStakeholderIsAdminOnly(t *testing.T) {
	f := newLifecycleFixture(t)
	dto := f.createPaid(t)

	_, err := f.svc.AssignStakeholder(context.Background(), AssignStakeholderInput{
		RequestID:     dto.ID,
		Role:          enums.RoleServiceAgent,
		StakeholderID: f.agentID,
		Actor:         Actor{UserID: f.talukID, Role: enums.RoleTalukManager},
	})
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestAssignStakeholderValidatesRole(t *testing.T) {
	f := newLifecycleFixture(t)
	dto := f.createPaid(t)
	admin := Actor{UserID: f.adminID, Role: enums.RoleAdmin}

	// Taluk manager offered for the agent slot.
	_, err := f.svc.AssignStakeholder(context.Background(), AssignStakeholderInput{
		RequestID:     dto.ID,
		Role:          enums.RoleServiceAgent,
		StakeholderID: f.talukID,
		Actor:         admin,
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.AssignStakeholder(context.Background(), AssignStakeholderInput{
		RequestID:     dto.ID,
		Role:          enums.RoleServiceAgent,
		StakeholderID: uuid.New(),
		Actor:         admin,
	})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestAssignStakeholderReassignmentWindow(t *testing.T) {
	f := newLifecycleFixture(t)
	dto := f.createPaid(t)
	dto = f.transition(t, dto.ID, enums.RequestStatusAssigned, Actor{UserID: f.agentID, Role: enums.RoleServiceAgent}, "")
	admin := Actor{UserID: f.adminID, Role: enums.RoleAdmin}

	// The agent already accepted; their slot is locked.
	replacement := uuid.New()
	f.users.users[replacement] = &models.User{ID: replacement, Role: enums.RoleServiceAgent, IsActive: true}
	_, err := f.svc.AssignStakeholder(context.Background(), AssignStakeholderInput{
		RequestID:     dto.ID,
		Role:          enums.RoleServiceAgent,
		StakeholderID: replacement,
		Actor:         admin,
	})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	// The taluk manager has not acted yet; that slot can still change hands.
	newManager := uuid.New()
	f.users.users[newManager] = &models.User{ID: newManager, Role: enums.RoleTalukManager, IsActive: true}
	updated, err := f.svc.AssignStakeholder(context.Background(), AssignStakeholderInput{
		RequestID:     dto.ID,
		Role:          enums.RoleTalukManager,
		StakeholderID: newManager,
		Actor:         admin,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.TalukManagerID)
	assert.Equal(t, newManager, *updated.TalukManagerID)
}

func TestFillingEmptySlotAfterCompletionRedistributes(t *testing.T) {
	f := newLifecycleFixture(t)
	svc, err := NewService(ServiceParams{
		TxRunner: stubTxRunner{},
		Repo:     f.repo,
		Resolver: &stubResolver{chain: locations.ResolvedChain{
			AgentID:         &f.agentID,
			BranchManagerID: &f.branchID,
			// no taluk manager resolves for this pincode
		}},
		Users:       f.users,
		Distributor: f.distributor,
	})
	require.NoError(t, err)

	adminActor := Actor{UserID: f.adminID, Role: enums.RoleAdmin}
	second, err := svc.Create(context.Background(), CreateRequestInput{
		CustomerID:  f.customerID,
		ServiceType: enums.ServiceTypeRecharge,
		Amount:      decimal.NewFromInt(500),
		District:    "Bengaluru Urban",
		Taluk:       "Bengaluru North",
		Pincode:     "560001",
	})
	require.NoError(t, err)
	_, err = svc.CapturePayment(context.Background(), second.ID, "pay_second", Actor{UserID: f.customerID, Role: enums.RoleCustomer})
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), TransitionInput{
		RequestID: second.ID,
		Target:    enums.RequestStatusAssigned,
		Actor:     Actor{UserID: f.agentID, Role: enums.RoleServiceAgent},
	})
	require.NoError(t, err)
	stored := f.repo.requests[second.ID]
	stored.Status = enums.RequestStatusApproved // admin pushed it past the vacant tier
	_, err = svc.Transition(context.Background(), TransitionInput{
		RequestID: second.ID,
		Target:    enums.RequestStatusCompleted,
		Actor:     adminActor,
	})
	require.NoError(t, err)
	require.Len(t, f.distributor.distributed, 1)

	// Filling the vacant slot retroactively unlocks the held share.
	updated, err := svc.AssignStakeholder(context.Background(), AssignStakeholderInput{
		RequestID:     second.ID,
		Role:          enums.RoleTalukManager,
		StakeholderID: f.talukID,
		Actor:         adminActor,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.TalukManagerID)
	assert.Equal(t, []uuid.UUID{second.ID}, f.distributor.redistributed)
}

func TestGetEnforcesViewerScope(t *testing.T) {
	f := newLifecycleFixture(t)
	dto := f.createPaid(t)

	_, err := f.svc.Get(context.Background(), dto.ID, Actor{UserID: f.customerID, Role: enums.RoleCustomer})
	require.NoError(t, err)
	_, err = f.svc.Get(context.Background(), dto.ID, Actor{UserID: f.agentID, Role: enums.RoleServiceAgent})
	require.NoError(t, err)
	_, err = f.svc.Get(context.Background(), dto.ID, Actor{UserID: f.adminID, Role: enums.RoleAdmin})
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), dto.ID, Actor{UserID: uuid.New(), Role: enums.RoleCustomer})
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.Get(context.Background(), uuid.New(), Actor{UserID: f.adminID, Role: enums.RoleAdmin})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestGetIncludesHistory(t *testing.T) {
	f := newLifecycleFixture(t)
	dto := f.createPaid(t)
	f.transition(t, dto.ID, enums.RequestStatusAssigned, Actor{UserID: f.agentID, Role: enums.RoleServiceAgent}, "")

	full, err := f.svc.Get(context.Background(), dto.ID, Actor{UserID: f.adminID, Role: enums.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, full.History, 2)
	assert.Equal(t, enums.RequestStatusInProgress, full.History[1].FromStatus)
	assert.Equal(t, enums.RequestStatusAssigned, full.History[1].ToStatus)
}
