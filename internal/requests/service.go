package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sevalabs/gramseva-backend/internal/locations"
	dbpkg "github.com/sevalabs/gramseva-backend/pkg/db"
	"github.com/sevalabs/gramseva-backend/pkg/db/models"
	"github.com/sevalabs/gramseva-backend/pkg/enums"
	pkgerrors "github.com/sevalabs/gramseva-backend/pkg/errors"
	"github.com/sevalabs/gramseva-backend/pkg/logger"
	"github.com/sevalabs/gramseva-backend/pkg/metrics"
	"github.com/sevalabs/gramseva-backend/pkg/outbox"
	"github.com/sevalabs/gramseva-backend/pkg/outbox/payloads"
	"github.com/sevalabs/gramseva-backend/pkg/pagination"
)

const numberAttempts = 3

// Service is the request lifecycle state machine. Every mutation of a request
// row goes through a compare-and-set on (id, status) so concurrent actors
// resolve to exactly one winner.
type Service interface {
	Create(ctx context.Context, input CreateRequestInput) (*RequestDTO, error)
	CapturePayment(ctx context.Context, requestID uuid.UUID, paymentReference string, actor Actor) (*RequestDTO, error)
	Transition(ctx context.Context, input TransitionInput) (*RequestDTO, error)
	AssignStakeholder(ctx context.Context, input AssignStakeholderInput) (*RequestDTO, error)
	Get(ctx context.Context, requestID uuid.UUID, viewer Actor) (*RequestDTO, error)
	ListFor(ctx context.Context, viewer Actor, params pagination.Params) ([]RequestDTO, bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type chainResolver interface {
	Resolve(ctx context.Context, district, taluk, pincode string) (locations.ResolvedChain, error)
}

type stakeholderLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type distributor interface {
	Distribute(ctx context.Context, requestID uuid.UUID) ([]models.CommissionEntry, error)
	RedistributeUnassigned(ctx context.Context, requestID uuid.UUID) ([]models.CommissionEntry, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	tx          txRunner
	repo        Repository
	resolver    chainResolver
	users       stakeholderLookup
	distributor distributor
	outbox      outboxEmitter
	metrics     *metrics.LifecycleMetrics
	logg        *logger.Logger
}

// ServiceParams bundles the state machine dependencies. Distributor, Outbox,
// Metrics and Logger are optional.
type ServiceParams struct {
	TxRunner    txRunner
	Repo        Repository
	Resolver    chainResolver
	Users       stakeholderLookup
	Distributor distributor
	Outbox      outboxEmitter
	Metrics     *metrics.LifecycleMetrics
	Logger      *logger.Logger
}

// NewService constructs the request lifecycle service.
func NewService(params ServiceParams) (Service, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("request repository is required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("location resolver is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user lookup is required")
	}
	return &service{
		tx:          params.TxRunner,
		repo:        params.Repo,
		resolver:    params.Resolver,
		users:       params.Users,
		distributor: params.Distributor,
		outbox:      params.Outbox,
		metrics:     params.Metrics,
		logg:        params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateRequestInput) (*RequestDTO, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if !input.ServiceType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid service type")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	district := strings.TrimSpace(input.District)
	taluk := strings.TrimSpace(input.Taluk)
	pincode := strings.TrimSpace(input.Pincode)
	if district == "" || taluk == "" || pincode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "district, taluk and pincode are required")
	}

	// A missing stakeholder never blocks creation; the slot stays empty for
	// manual assignment.
	chain, err := s.resolver.Resolve(ctx, district, taluk, pincode)
	if err != nil {
		return nil, err
	}

	request := &models.ServiceRequest{
		CustomerID:      input.CustomerID,
		ServiceType:     input.ServiceType,
		Amount:          input.Amount,
		PaymentStatus:   enums.PaymentStatusPending,
		Status:          enums.RequestStatusNew,
		District:        district,
		Taluk:           taluk,
		Pincode:         pincode,
		AssignedAgentID: chain.AgentID,
		TalukManagerID:  chain.TalukManagerID,
		BranchManagerID: chain.BranchManagerID,
		ServiceData:     input.ServiceData,
	}

	for attempt := 0; attempt < numberAttempts; attempt++ {
		number, err := newRequestNumber(time.Now())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate request number")
		}
		request.RequestNumber = number

		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if err := repo.Create(ctx, request); err != nil {
				return err
			}
			return s.emitCreated(ctx, tx, request)
		})
		if err == nil {
			return FromModel(request), nil
		}
		if !dbpkg.IsUniqueViolation(err, "ux_service_requests_request_number") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create service request")
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "could not allocate a unique request number")
}

func (s *service) CapturePayment(ctx context.Context, requestID uuid.UUID, paymentReference string, actor Actor) (*RequestDTO, error) {
	reference := strings.TrimSpace(paymentReference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}

	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	// Only the owning customer (or admin/system) settles payment.
	switch actor.Role {
	case enums.RoleAdmin, enums.RoleSystem:
	case enums.RoleCustomer:
		if request.CustomerID != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "request belongs to a different customer")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the owning customer may capture payment")
	}
	if request.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "request is in a terminal state")
	}
	if request.PaymentStatus == enums.PaymentStatusCompleted {
		if request.PaymentReference != nil && *request.PaymentReference == reference {
			// Duplicate capture with the same reference is a no-op.
			return FromModel(request), nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment already captured with a different reference")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		captured, err := repo.CapturePaymentCAS(ctx, request.ID, reference)
		if err != nil {
			return err
		}
		if !captured {
			return pkgerrors.New(pkgerrors.CodeConflict, "payment state changed concurrently")
		}
		return s.emitPaymentCaptured(ctx, tx, request, reference)
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "capture payment")
	}

	// Payment settles the gate for the system's own first move.
	if request.Status == enums.RequestStatusNew {
		if _, err := s.Transition(ctx, TransitionInput{
			RequestID: request.ID,
			Target:    enums.RequestStatusInProgress,
			Actor:     SystemActor,
		}); err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			return nil, err
		}
	}

	updated, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*RequestDTO, error) {
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}

	request, err := s.loadRequest(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}
	if request.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "request is in a terminal state")
	}

	roles := allowedRoles(request.Status, input.Target)
	if roles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden,
			fmt.Sprintf("transition %s -> %s is not permitted", request.Status, input.Target))
	}
	if !roleAllowed(roles, input.Actor.Role) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden,
			fmt.Sprintf("role %s may not perform transition %s -> %s", input.Actor.Role, request.Status, input.Target))
	}
	if err := authorizeActor(request, input.Actor); err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(input.Reason)
	isRejection := input.Target == enums.RequestStatusRejected || input.Target == enums.RequestStatusFailed
	if isRejection && reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a reason is required to reject or fail a request")
	}
	if !isRejection && request.PaymentStatus != enums.PaymentStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment must be completed before the request can progress")
	}

	updates := map[string]interface{}{}
	var boundAgent *uuid.UUID
	if request.Status == enums.RequestStatusInProgress &&
		input.Target == enums.RequestStatusAssigned &&
		request.AssignedAgentID == nil {
		id := input.Actor.UserID
		updates["assigned_agent_id"] = id
		boundAgent = &id
	}

	from := request.Status
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		moved, err := repo.UpdateStatusCAS(ctx, request.ID, from, input.Target, updates)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeConflict, "request status changed concurrently, re-read and retry")
		}

		history := &models.StatusHistoryEntry{
			ServiceRequestID: request.ID,
			FromStatus:       from,
			ToStatus:         input.Target,
			ActorRole:        input.Actor.Role,
		}
		if input.Actor.UserID != uuid.Nil {
			id := input.Actor.UserID
			history.ChangedBy = &id
		}
		if reason != "" {
			history.Notes = &reason
		}
		if err := repo.AppendHistory(ctx, history); err != nil {
			return err
		}

		return s.emitTransition(ctx, tx, request, from, input, boundAgent, reason)
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			if s.metrics != nil {
				s.metrics.IncConflict(string(input.Target))
			}
			return nil, err
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply transition")
	}
	if s.metrics != nil {
		s.metrics.IncTransition(string(from), string(input.Target))
	}

	// completed is the single commission trigger; distribution is best-effort
	// and never unwinds the transition.
	if input.Target == enums.RequestStatusCompleted && s.distributor != nil {
		if _, err := s.distributor.Distribute(ctx, request.ID); err != nil {
			s.logError(ctx, "commission distribution failed, sweep will retry", err)
		}
	}

	updated, err := s.loadRequest(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func (s *service) AssignStakeholder(ctx context.Context, input AssignStakeholderInput) (*RequestDTO, error) {
	if input.Actor.Role != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins may assign stakeholders")
	}
	column, ok := stakeholderColumn(input.Role)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role is not an assignable chain slot")
	}

	assignee, err := s.users.FindByID(ctx, input.StakeholderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stakeholder not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load stakeholder")
	}
	if assignee.Role != input.Role || !assignee.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user does not hold the required role")
	}

	request, err := s.loadRequest(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}
	if request.Status == enums.RequestStatusRejected || request.Status == enums.RequestStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "request is in a terminal failure state")
	}

	current := request.StakeholderFor(input.Role)
	if current != nil {
		// Replacing an existing stakeholder is only allowed while the tier
		// has not yet acted. Filling an empty slot has no such window: it is
		// how unresolved chains (and retroactive commission) are repaired.
		if !reassignmentAllowed(input.Role, request.Status) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("%s can no longer be replaced at status %s", input.Role, request.Status))
		}
	}

	notes := fmt.Sprintf("admin assigned %s %s", input.Role, input.StakeholderID)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.SetStakeholder(ctx, request.ID, column, input.StakeholderID); err != nil {
			return err
		}
		history := &models.StatusHistoryEntry{
			ServiceRequestID: request.ID,
			FromStatus:       request.Status,
			ToStatus:         request.Status,
			ActorRole:        input.Actor.Role,
			Notes:            &notes,
		}
		if input.Actor.UserID != uuid.Nil {
			id := input.Actor.UserID
			history.ChangedBy = &id
		}
		if err := repo.AppendHistory(ctx, history); err != nil {
			return err
		}
		return s.emitAssigned(ctx, tx, request, input.Role, input.StakeholderID, &input.Actor)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assign stakeholder")
	}

	// A slot filled after completion unlocks its unassigned commission share.
	if request.Status == enums.RequestStatusCompleted && s.distributor != nil {
		if _, err := s.distributor.RedistributeUnassigned(ctx, request.ID); err != nil {
			s.logError(ctx, "retroactive commission distribution failed", err)
		}
	}

	updated, err := s.loadRequest(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func (s *service) Get(ctx context.Context, requestID uuid.UUID, viewer Actor) (*RequestDTO, error) {
	request, err := s.repo.FindByIDFull(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load service request")
	}
	if !canView(request, viewer) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not authorized to view this request")
	}
	return FromModel(request), nil
}

func (s *service) ListFor(ctx context.Context, viewer Actor, params pagination.Params) ([]RequestDTO, bool, error) {
	scope, err := listScopeFor(viewer)
	if err != nil {
		return nil, false, err
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var before *uuid.UUID
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		if cursor != nil {
			before = &cursor.ID
		}
	}

	rows, err := s.repo.List(ctx, scope, pagination.LimitWithBuffer(limit), before)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list service requests")
	}

	page, hasMore := pagination.TrimPage(rows, limit)
	out := make([]RequestDTO, 0, len(page))
	for i := range page {
		out = append(out, *FromModel(&page[i]))
	}
	return out, hasMore, nil
}

func (s *service) loadRequest(ctx context.Context, requestID uuid.UUID) (*models.ServiceRequest, error) {
	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load service request")
	}
	return request, nil
}

func (s *service) logError(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}

// authorizeActor verifies the acting user actually holds the request's slot
// for their role. Admin and system actors act on any request.
func authorizeActor(request *models.ServiceRequest, actor Actor) error {
	switch actor.Role {
	case enums.RoleAdmin, enums.RoleSystem:
		return nil
	case enums.RoleServiceAgent:
		if request.AssignedAgentID == nil {
			// Accepting an unassigned request binds the agent.
			return nil
		}
		if *request.AssignedAgentID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "request is assigned to a different agent")
		}
	case enums.RoleTalukManager:
		if request.TalukManagerID == nil || *request.TalukManagerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "request is not assigned to this taluk manager")
		}
	case enums.RoleBranchManager:
		if request.BranchManagerID == nil || *request.BranchManagerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "request is not assigned to this branch manager")
		}
	case enums.RoleCustomer:
		if request.CustomerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "request belongs to a different customer")
		}
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "role may not act on requests")
	}
	return nil
}

func stakeholderColumn(role enums.StakeholderRole) (string, bool) {
	switch role {
	case enums.RoleServiceAgent:
		return "assigned_agent_id", true
	case enums.RoleTalukManager:
		return "taluk_manager_id", true
	case enums.RoleBranchManager:
		return "branch_manager_id", true
	default:
		return "", false
	}
}

// reassignmentAllowed bounds when an already-filled slot may be handed to a
// different stakeholder: only before that tier has acted.
func reassignmentAllowed(role enums.StakeholderRole, status enums.RequestStatus) bool {
	switch role {
	case enums.RoleServiceAgent:
		return status == enums.RequestStatusNew || status == enums.RequestStatusInProgress
	case enums.RoleTalukManager:
		return status == enums.RequestStatusAssigned
	case enums.RoleBranchManager:
		return status == enums.RequestStatusApproved || status == enums.RequestStatusEscalated
	default:
		return false
	}
}

func canView(request *models.ServiceRequest, viewer Actor) bool {
	switch viewer.Role {
	case enums.RoleAdmin, enums.RoleSystem:
		return true
	case enums.RoleCustomer:
		return request.CustomerID == viewer.UserID
	case enums.RoleServiceAgent:
		return request.AssignedAgentID != nil && *request.AssignedAgentID == viewer.UserID
	case enums.RoleTalukManager:
		return request.TalukManagerID != nil && *request.TalukManagerID == viewer.UserID
	case enums.RoleBranchManager:
		return request.BranchManagerID != nil && *request.BranchManagerID == viewer.UserID
	default:
		return false
	}
}

func listScopeFor(viewer Actor) (*ListScope, error) {
	switch viewer.Role {
	case enums.RoleAdmin, enums.RoleSystem:
		return nil, nil
	case enums.RoleCustomer:
		return &ListScope{Column: "customer_id", UserID: viewer.UserID}, nil
	case enums.RoleServiceAgent:
		return &ListScope{Column: "assigned_agent_id", UserID: viewer.UserID}, nil
	case enums.RoleTalukManager:
		return &ListScope{Column: "taluk_manager_id", UserID: viewer.UserID}, nil
	case enums.RoleBranchManager:
		return &ListScope{Column: "branch_manager_id", UserID: viewer.UserID}, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not list requests")
	}
}

func (s *service) emitCreated(ctx context.Context, tx *gorm.DB, request *models.ServiceRequest) error {
	if s.outbox == nil {
		return nil
	}
	if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventRequestCreated,
		AggregateType: enums.AggregateServiceRequest,
		AggregateID:   request.ID,
		Actor:         &outbox.ActorRef{UserID: request.CustomerID, Role: string(enums.RoleCustomer)},
		Data: payloads.RequestCreatedEvent{
			ServiceRequestID: request.ID,
			RequestNumber:    request.RequestNumber,
			ServiceType:      request.ServiceType,
			CustomerID:       request.CustomerID,
			Pincode:          request.Pincode,
			Amount:           request.Amount,
		},
		Version: 1,
	}); err != nil {
		return err
	}

	// Resolved slots are announced so assignees learn about new work.
	for _, slot := range []struct {
		role enums.StakeholderRole
		id   *uuid.UUID
	}{
		{enums.RoleServiceAgent, request.AssignedAgentID},
		{enums.RoleTalukManager, request.TalukManagerID},
		{enums.RoleBranchManager, request.BranchManagerID},
	} {
		if slot.id == nil {
			continue
		}
		if err := s.emitAssigned(ctx, tx, request, slot.role, *slot.id, nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) emitPaymentCaptured(ctx context.Context, tx *gorm.DB, request *models.ServiceRequest, reference string) error {
	if s.outbox == nil {
		return nil
	}
	return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentCaptured,
		AggregateType: enums.AggregateServiceRequest,
		AggregateID:   request.ID,
		Data: payloads.PaymentCapturedEvent{
			ServiceRequestID: request.ID,
			RequestNumber:    request.RequestNumber,
			PaymentReference: reference,
			Amount:           request.Amount,
			CapturedAt:       time.Now().UTC(),
		},
		Version: 1,
	})
}

func (s *service) emitTransition(ctx context.Context, tx *gorm.DB, request *models.ServiceRequest, from enums.RequestStatus, input TransitionInput, boundAgent *uuid.UUID, reason string) error {
	if s.outbox == nil {
		return nil
	}

	var actorRef *outbox.ActorRef
	if input.Actor.UserID != uuid.Nil {
		actorRef = &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)}
	}

	var changedBy *uuid.UUID
	if input.Actor.UserID != uuid.Nil {
		id := input.Actor.UserID
		changedBy = &id
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventRequestStateChanged,
		AggregateType: enums.AggregateServiceRequest,
		AggregateID:   request.ID,
		Actor:         actorRef,
		Data: payloads.RequestStateChangedEvent{
			ServiceRequestID: request.ID,
			RequestNumber:    request.RequestNumber,
			FromStatus:       from,
			ToStatus:         input.Target,
			ActorRole:        input.Actor.Role,
			ChangedBy:        changedBy,
			Notes:            reason,
		},
		Version: 1,
	}); err != nil {
		return err
	}

	if boundAgent != nil {
		if err := s.emitAssigned(ctx, tx, request, enums.RoleServiceAgent, *boundAgent, &input.Actor); err != nil {
			return err
		}
	}

	switch input.Target {
	case enums.RequestStatusCompleted:
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRequestCompleted,
			AggregateType: enums.AggregateServiceRequest,
			AggregateID:   request.ID,
			Actor:         actorRef,
			Data: payloads.RequestCompletedEvent{
				ServiceRequestID: request.ID,
				RequestNumber:    request.RequestNumber,
				ServiceType:      request.ServiceType,
				CustomerID:       request.CustomerID,
				Amount:           request.Amount,
				CompletedAt:      time.Now().UTC(),
			},
			Version: 1,
		})
	case enums.RequestStatusRejected, enums.RequestStatusFailed:
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRequestRejected,
			AggregateType: enums.AggregateServiceRequest,
			AggregateID:   request.ID,
			Actor:         actorRef,
			Data: payloads.RequestRejectedEvent{
				ServiceRequestID: request.ID,
				RequestNumber:    request.RequestNumber,
				ActorRole:        input.Actor.Role,
				Reason:           reason,
				RejectedAt:       time.Now().UTC(),
			},
			Version: 1,
		})
	}
	return nil
}

func (s *service) emitAssigned(ctx context.Context, tx *gorm.DB, request *models.ServiceRequest, role enums.StakeholderRole, stakeholderID uuid.UUID, actor *Actor) error {
	if s.outbox == nil {
		return nil
	}
	var actorRef *outbox.ActorRef
	if actor != nil && actor.UserID != uuid.Nil {
		actorRef = &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventStakeholderAssigned,
		AggregateType: enums.AggregateServiceRequest,
		AggregateID:   request.ID,
		Actor:         actorRef,
		Data: payloads.StakeholderAssignedEvent{
			ServiceRequestID: request.ID,
			RequestNumber:    request.RequestNumber,
			Role:             role,
			StakeholderID:    stakeholderID,
		},
		Version: 1,
	})
}
