package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sevalabs/gramseva-backend/api/middleware"
	"github.com/sevalabs/gramseva-backend/internal/requests"
	"github.com/sevalabs/gramseva-backend/pkg/enums"
	pkgerrors "github.com/sevalabs/gramseva-backend/pkg/errors"
	"github.com/sevalabs/gramseva-backend/pkg/logger"
	"github.com/sevalabs/gramseva-backend/pkg/pagination"
)

type testRequestsService struct {
	createFn     func(ctx context.Context, input requests.CreateRequestInput) (*requests.RequestDTO, error)
	captureFn    func(ctx context.Context, requestID uuid.UUID, reference string, actor requests.Actor) (*requests.RequestDTO, error)
	transitionFn func(ctx context.Context, input requests.TransitionInput) (*requests.RequestDTO, error)
	assignFn     func(ctx context.Context, input requests.AssignStakeholderInput) (*requests.RequestDTO, error)
	getFn        func(ctx context.Context, requestID uuid.UUID, viewer requests.Actor) (*requests.RequestDTO, error)
	listFn       func(ctx context.Context, viewer requests.Actor, params pagination.Params) ([]requests.RequestDTO, bool, error)
}

func (s *testRequestsService) Create(ctx context.Context, input requests.CreateRequestInput) (*requests.RequestDTO, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return nil, nil
}

func (s *testRequestsService) CapturePayment(ctx context.Context, requestID uuid.UUID, reference string, actor requests.Actor) (*requests.RequestDTO, error) {
	if s.captureFn != nil {
		return s.captureFn(ctx, requestID, reference, actor)
	}
	return nil, nil
}

func (s *testRequestsService) Transition(ctx context.Context, input requests.TransitionInput) (*requests.RequestDTO, error) {
	if s.transitionFn != nil {
		return s.transitionFn(ctx, input)
	}
	return nil, nil
}

func (s *testRequestsService) AssignStakeholder(ctx context.Context, input requests.AssignStakeholderInput) (*requests.RequestDTO, error) {
	if s.assignFn != nil {
		return s.assignFn(ctx, input)
	}
	return nil, nil
}

func (s *testRequestsService) Get(ctx context.Context, requestID uuid.UUID, viewer requests.Actor) (*requests.RequestDTO, error) {
	if s.getFn != nil {
		return s.getFn(ctx, requestID, viewer)
	}
	return nil, nil
}

func (s *testRequestsService) ListFor(ctx context.Context, viewer requests.Actor, params pagination.Params) ([]requests.RequestDTO, bool, error) {
	if s.listFn != nil {
		return s.listFn(ctx, viewer, params)
	}
	return nil, false, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func asActor(r *http.Request, userID uuid.UUID, role enums.StakeholderRole) *http.Request {
	ctx := middleware.WithUserID(r.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(role))
	return r.WithContext(ctx)
}

func addRouteParam(r *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, routeCtx))
}

func TestCreateRequestBindsCustomerFromToken(t *testing.T) {
	customerID := uuid.New()
	var got requests.CreateRequestInput
	svc := &testRequestsService{
		createFn: func(ctx context.Context, input requests.CreateRequestInput) (*requests.RequestDTO, error) {
			got = input
			return &requests.RequestDTO{ID: uuid.New(), CustomerID: input.CustomerID}, nil
		},
	}

	body := `{"service_type":"recharge","amount":"500.00","district":"Thrissur","taluk":"Chalakudy","pincode":"680307"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = asActor(req, customerID, enums.RoleCustomer)

	resp := httptest.NewRecorder()
	CreateRequest(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.CustomerID != customerID {
		t.Fatalf("customer id should come from the token, got %s", got.CustomerID)
	}
	if got.ServiceType != enums.ServiceTypeRecharge {
		t.Fatalf("unexpected service type %s", got.ServiceType)
	}
	if !got.Amount.Equal(decimal.RequireFromString("500.00")) {
		t.Fatalf("unexpected amount %s", got.Amount)
	}
}

func TestCreateRequestWithoutIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	CreateRequest(&testRequestsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCreateRequestRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests",
		strings.NewReader(`{"service_type":"recharge","amount":"1","district":"a","taluk":"b","pincode":"c","bogus":true}`))
	req = asActor(req, uuid.New(), enums.RoleCustomer)
	resp := httptest.NewRecorder()
	CreateRequest(&testRequestsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCapturePaymentWithoutIdentity(t *testing.T) {
	requestID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests/"+requestID.String()+"/payment",
		strings.NewReader(`{"payment_reference":"pay_abc"}`))
	req = addRouteParam(req, "requestId", requestID.String())

	resp := httptest.NewRecorder()
	CapturePayment(&testRequestsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCapturePaymentPassesActor(t *testing.T) {
	requestID := uuid.New()
	customerID := uuid.New()
	var gotActor requests.Actor
	var gotReference string
	svc := &testRequestsService{
		captureFn: func(ctx context.Context, id uuid.UUID, reference string, actor requests.Actor) (*requests.RequestDTO, error) {
			gotActor = actor
			gotReference = reference
			return &requests.RequestDTO{ID: id}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests/"+requestID.String()+"/payment",
		strings.NewReader(`{"payment_reference":"pay_abc"}`))
	req = asActor(req, customerID, enums.RoleCustomer)
	req = addRouteParam(req, "requestId", requestID.String())

	resp := httptest.NewRecorder()
	CapturePayment(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if gotActor.UserID != customerID || gotActor.Role != enums.RoleCustomer {
		t.Fatal("capture should carry the token actor")
	}
	if gotReference != "pay_abc" {
		t.Fatalf("unexpected reference %q", gotReference)
	}
}

func TestTransitionRequestInvalidTarget(t *testing.T) {
	requestID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests/"+requestID.String()+"/transition",
		strings.NewReader(`{"target":"warp"}`))
	req = asActor(req, uuid.New(), enums.RoleServiceAgent)
	req = addRouteParam(req, "requestId", requestID.String())

	resp := httptest.NewRecorder()
	TransitionRequest(&testRequestsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestTransitionRequestPassesActorAndReason(t *testing.T) {
	requestID := uuid.New()
	agentID := uuid.New()
	var got requests.TransitionInput
	svc := &testRequestsService{
		transitionFn: func(ctx context.Context, input requests.TransitionInput) (*requests.RequestDTO, error) {
			got = input
			return &requests.RequestDTO{ID: input.RequestID, Status: input.Target}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests/"+requestID.String()+"/transition",
		strings.NewReader(`{"target":"rejected","reason":"  customer cancelled  "}`))
	req = asActor(req, agentID, enums.RoleServiceAgent)
	req = addRouteParam(req, "requestId", requestID.String())

	resp := httptest.NewRecorder()
	TransitionRequest(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.RequestID != requestID || got.Actor.UserID != agentID || got.Actor.Role != enums.RoleServiceAgent {
		t.Fatal("transition input should carry the route id and token actor")
	}
	if got.Target != enums.RequestStatusRejected || got.Reason != "customer cancelled" {
		t.Fatalf("unexpected target %s / reason %q", got.Target, got.Reason)
	}
}

func TestGetRequestStateConflictPassthrough(t *testing.T) {
	requestID := uuid.New()
	svc := &testRequestsService{
		getFn: func(ctx context.Context, id uuid.UUID, viewer requests.Actor) (*requests.RequestDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service request not found")
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests/"+requestID.String(), nil)
	req = asActor(req, uuid.New(), enums.RoleCustomer)
	req = addRouteParam(req, "requestId", requestID.String())

	resp := httptest.NewRecorder()
	GetRequest(svc, testLogger())(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Error.Message != "service request not found" {
		t.Fatalf("typed message should pass through, got %q", envelope.Error.Message)
	}
}

func TestListRequestsCursorPayload(t *testing.T) {
	viewerID := uuid.New()
	rows := []requests.RequestDTO{
		{ID: uuid.New(), RequestNumber: "GS-20260831-AAAAAA"},
		{ID: uuid.New(), RequestNumber: "GS-20260831-BBBBBB"},
	}
	svc := &testRequestsService{
		listFn: func(ctx context.Context, viewer requests.Actor, params pagination.Params) ([]requests.RequestDTO, bool, error) {
			if viewer.UserID != viewerID {
				t.Fatalf("unexpected viewer %s", viewer.UserID)
			}
			if params.Limit != 2 {
				t.Fatalf("unexpected limit %d", params.Limit)
			}
			return rows, true, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests?limit=2", nil)
	req = asActor(req, viewerID, enums.RoleCustomer)

	resp := httptest.NewRecorder()
	ListRequests(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			Items   []json.RawMessage `json:"items"`
			HasMore bool              `json:"has_more"`
			Cursor  string            `json:"cursor"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(envelope.Data.Items) != 2 || !envelope.Data.HasMore {
		t.Fatalf("unexpected page shape: %s", resp.Body.String())
	}
	if envelope.Data.Cursor == "" {
		t.Fatal("expected a cursor when more rows remain")
	}
}
