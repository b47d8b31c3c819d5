package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sevalabs/gramseva-backend/pkg/db/models"
	"github.com/sevalabs/gramseva-backend/pkg/enums"
	"github.com/sevalabs/gramseva-backend/pkg/logger"
	"github.com/sevalabs/gramseva-backend/pkg/outbox"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeEntryLister struct {
	cutoff  time.Time
	entries []models.CommissionEntry
}

func (f *fakeEntryLister) ListPendingCreditOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.CommissionEntry, error) {
	f.cutoff = cutoff
	return f.entries, nil
}

type fakeEmitter struct {
	events []outbox.DomainEvent
}

func (f *fakeEmitter) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func TestStuckCreditJobFlagsEachEntry(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	lister := &fakeEntryLister{entries: []models.CommissionEntry{
		{ID: first, ServiceRequestID: uuid.New(), StakeholderRole: enums.RoleServiceAgent, Amount: decimal.RequireFromString("10.00")},
		{ID: second, ServiceRequestID: uuid.New(), StakeholderRole: enums.RoleTalukManager, Amount: decimal.RequireFromString("7.50")},
	}}
	emitter := &fakeEmitter{}

	job, err := NewStuckCreditJob(StuckCreditJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "cron-test"}),
		DB:      fakeTxRunner{},
		Entries: lister,
		Outbox:  emitter,
		Age:     48 * time.Hour,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(emitter.events) != 2 {
		t.Fatalf("expected 2 stuck events, got %d", len(emitter.events))
	}
	if emitter.events[0].EventType != enums.EventCommissionCreditStuck {
		t.Fatalf("unexpected event type %s", emitter.events[0].EventType)
	}
	if emitter.events[0].AggregateID != first || emitter.events[1].AggregateID != second {
		t.Fatal("stuck events should target the commission entries")
	}
	if time.Since(lister.cutoff) < 48*time.Hour {
		t.Fatalf("cutoff %s should be at least the configured age in the past", lister.cutoff)
	}
}

type failingEmitter struct {
	failFor uuid.UUID
	events  []outbox.DomainEvent
}

func (f *failingEmitter) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if event.AggregateID == f.failFor {
		return errors.New("emit refused")
	}
	f.events = append(f.events, event)
	return nil
}

func TestStuckCreditJobCombinesPerEntryErrors(t *testing.T) {
	bad := uuid.New()
	good := uuid.New()
	lister := &fakeEntryLister{entries: []models.CommissionEntry{
		{ID: bad, ServiceRequestID: uuid.New(), StakeholderRole: enums.RoleServiceAgent, Amount: decimal.RequireFromString("10.00")},
		{ID: good, ServiceRequestID: uuid.New(), StakeholderRole: enums.RoleBranchManager, Amount: decimal.RequireFromString("5.00")},
	}}
	emitter := &failingEmitter{failFor: bad}

	job, err := NewStuckCreditJob(StuckCreditJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "cron-test"}),
		DB:      fakeTxRunner{},
		Entries: lister,
		Outbox:  emitter,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	runErr := job.Run(context.Background())
	if runErr == nil {
		t.Fatal("expected combined error when an entry fails to flag")
	}
	if len(emitter.events) != 1 || emitter.events[0].AggregateID != good {
		t.Fatal("remaining entries should still be flagged")
	}
}

func TestStuckCreditJobNoEntriesEmitsNothing(t *testing.T) {
	emitter := &fakeEmitter{}
	job, err := NewStuckCreditJob(StuckCreditJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "cron-test"}),
		DB:      fakeTxRunner{},
		Entries: &fakeEntryLister{},
		Outbox:  emitter,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(emitter.events) != 0 {
		t.Fatalf("expected no events, got %d", len(emitter.events))
	}
}
