package requests

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sevalabs/gramseva-backend/pkg/db/models"
	"github.com/sevalabs/gramseva-backend/pkg/enums"
)

func setupRequestsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	serviceRequests := `
CREATE TABLE IF NOT EXISTS service_requests (
  id TEXT PRIMARY KEY,
  request_number TEXT NOT NULL UNIQUE,
  customer_id TEXT NOT NULL,
  service_type TEXT NOT NULL,
  amount TEXT NOT NULL,
  payment_status TEXT NOT NULL DEFAULT 'pending',
  payment_reference TEXT,
  status TEXT NOT NULL DEFAULT 'new',
  district TEXT NOT NULL,
  taluk TEXT NOT NULL,
  pincode TEXT NOT NULL,
  assigned_agent_id TEXT,
  taluk_manager_id TEXT,
  branch_manager_id TEXT,
  service_data TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	statusHistory := `
CREATE TABLE IF NOT EXISTS status_history_entries (
  id TEXT PRIMARY KEY,
  service_request_id TEXT NOT NULL,
  from_status TEXT NOT NULL,
  to_status TEXT NOT NULL,
  changed_by TEXT,
  actor_role TEXT NOT NULL,
  notes TEXT,
  created_at DATETIME
);`
	commissionEntries := `
CREATE TABLE IF NOT EXISTS commission_entries (
  id TEXT PRIMARY KEY,
  service_request_id TEXT NOT NULL,
  stakeholder_role TEXT NOT NULL,
  stakeholder_id TEXT,
  amount TEXT NOT NULL,
  rate TEXT NOT NULL,
  status TEXT NOT NULL,
  credited_at DATETIME,
  created_at DATETIME,
  UNIQUE (service_request_id, stakeholder_role)
);`
	require.NoError(t, db.Exec(serviceRequests).Error)
	require.NoError(t, db.Exec(statusHistory).Error)
	require.NoError(t, db.Exec(commissionEntries).Error)
	return db
}

func testRequestNumber(t *testing.T) string {
	t.Helper()

	number, err := newRequestNumber(time.Now())
	require.NoError(t, err)
	return number
}

func createRequest(t *testing.T, db *gorm.DB, customerID uuid.UUID, status enums.RequestStatus, created time.Time) *models.ServiceRequest {
	t.Helper()

	request := &models.ServiceRequest{
		ID:            uuid.New(),
		RequestNumber: testRequestNumber(t),
		CustomerID:    customerID,
		ServiceType:   enums.ServiceTypeRecharge,
		Amount:        decimal.NewFromInt(500),
		PaymentStatus: enums.PaymentStatusPending,
		Status:        status,
		District:      "Thrissur",
		Taluk:         "Chalakudy",
		Pincode:       "680307",
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	require.NoError(t, db.Create(request).Error)
	return request
}

func TestRepositoryUpdateStatusCAS(t *testing.T) {
	db := setupRequestsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	agentID := uuid.New()
	request := createRequest(t, db, uuid.New(), enums.RequestStatusNew, time.Now().UTC())

	moved, err := repo.UpdateStatusCAS(ctx, request.ID, enums.RequestStatusNew, enums.RequestStatusInProgress, map[string]interface{}{
		"assigned_agent_id": agentID,
	})
	require.NoError(t, err)
	assert.True(t, moved)

	// stale precondition loses the race
	moved, err = repo.UpdateStatusCAS(ctx, request.ID, enums.RequestStatusNew, enums.RequestStatusInProgress, nil)
	require.NoError(t, err)
	assert.False(t, moved)

	reloaded, err := repo.FindByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusInProgress, reloaded.Status)
	require.NotNil(t, reloaded.AssignedAgentID)
	assert.Equal(t, agentID, *reloaded.AssignedAgentID)
}

func TestRepositoryCapturePaymentCAS(t *testing.T) {
	db := setupRequestsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	request := createRequest(t, db, uuid.New(), enums.RequestStatusNew, time.Now().UTC())

	captured, err := repo.CapturePaymentCAS(ctx, request.ID, "UPI-123456")
	require.NoError(t, err)
	assert.True(t, captured)

	captured, err = repo.CapturePaymentCAS(ctx, request.ID, "UPI-999999")
	require.NoError(t, err)
	assert.False(t, captured, "second capture must be a no-op")

	reloaded, err := repo.FindByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCompleted, reloaded.PaymentStatus)
	require.NotNil(t, reloaded.PaymentReference)
	assert.Equal(t, "UPI-123456", *reloaded.PaymentReference)
}

func TestRepositoryList_pagination(t *testing.T) {
	db := setupRequestsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	customerID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	first := createRequest(t, db, customerID, enums.RequestStatusNew, base)
	second := createRequest(t, db, customerID, enums.RequestStatusNew, base.Add(time.Minute))
	third := createRequest(t, db, customerID, enums.RequestStatusNew, base.Add(2*time.Minute))
	// another customer's request must not leak into the scoped listing
	createRequest(t, db, uuid.New(), enums.RequestStatusNew, base.Add(3*time.Minute))

	scope := &ListScope{Column: "customer_id", UserID: customerID}

	page, err := repo.List(ctx, scope, 2, nil)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, third.ID, page[0].ID)
	assert.Equal(t, second.ID, page[1].ID)

	cursor := page[1].ID
	page, err = repo.List(ctx, scope, 2, &cursor)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)
}

func TestRepositoryListStuckBefore(t *testing.T) {
	db := setupRequestsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	customerID := uuid.New()
	now := time.Now().UTC()
	stale := createRequest(t, db, customerID, enums.RequestStatusEscalated, now.Add(-96*time.Hour))
	createRequest(t, db, customerID, enums.RequestStatusEscalated, now.Add(-time.Hour))
	createRequest(t, db, customerID, enums.RequestStatusCompleted, now.Add(-96*time.Hour))

	rows, err := repo.ListStuckBefore(ctx, []enums.RequestStatus{
		enums.RequestStatusNew,
		enums.RequestStatusEscalated,
	}, now.Add(-72*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, stale.ID, rows[0].ID)
}

func TestRepositoryFindByIDFull(t *testing.T) {
	db := setupRequestsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	request := createRequest(t, db, uuid.New(), enums.RequestStatusCompleted, time.Now().UTC().Add(-time.Hour))

	actor := request.CustomerID
	entries := []models.StatusHistoryEntry{
		{FromStatus: enums.RequestStatusNew, ToStatus: enums.RequestStatusInProgress},
		{FromStatus: enums.RequestStatusInProgress, ToStatus: enums.RequestStatusAssigned},
	}
	for i, entry := range entries {
		entry.ID = uuid.New()
		entry.ServiceRequestID = request.ID
		entry.ChangedBy = &actor
		entry.ActorRole = enums.RoleServiceAgent
		entry.CreatedAt = request.CreatedAt.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.AppendHistory(ctx, &entry))
	}

	commission := &models.CommissionEntry{
		ID:               uuid.New(),
		ServiceRequestID: request.ID,
		StakeholderRole:  enums.RoleServiceAgent,
		StakeholderID:    &actor,
		Amount:           decimal.NewFromInt(150),
		Rate:             decimal.NewFromInt(30),
		Status:           enums.CommissionEntryCredited,
	}
	require.NoError(t, db.Create(commission).Error)

	full, err := repo.FindByIDFull(ctx, request.ID)
	require.NoError(t, err)
	require.Len(t, full.History, 2)
	assert.Equal(t, enums.RequestStatusInProgress, full.History[0].ToStatus)
	assert.Equal(t, enums.RequestStatusAssigned, full.History[1].ToStatus)
	require.Len(t, full.CommissionEntries, 1)
	assert.Equal(t, commission.ID, full.CommissionEntries[0].ID)
}
