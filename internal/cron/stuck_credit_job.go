package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/sevalabs/gramseva-backend/pkg/db/models"
	"github.com/sevalabs/gramseva-backend/pkg/enums"
	"github.com/sevalabs/gramseva-backend/pkg/logger"
	"github.com/sevalabs/gramseva-backend/pkg/outbox"
	"github.com/sevalabs/gramseva-backend/pkg/outbox/payloads"
)

const (
	defaultStuckCreditAge   = 72 * time.Hour
	defaultStuckCreditBatch = 100
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stuckEntryLister interface {
	ListPendingCreditOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.CommissionEntry, error)
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// StuckCreditJobParams configures the stuck-credit alerting job.
type StuckCreditJobParams struct {
	Logger  *logger.Logger
	DB      txRunner
	Entries stuckEntryLister
	Outbox  outboxEmitter
	Age     time.Duration
	Batch   int
}

// NewStuckCreditJob builds the job that flags commission entries stuck in
// pending_credit longer than the configured age. One stuck event is emitted
// per entry; EmitIfNotExists keeps repeat sweeps quiet.
func NewStuckCreditJob(params StuckCreditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Entries == nil {
		return nil, fmt.Errorf("commission entry lister required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	age := params.Age
	if age <= 0 {
		age = defaultStuckCreditAge
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultStuckCreditBatch
	}
	return &stuckCreditJob{
		logg:    params.Logger,
		db:      params.DB,
		entries: params.Entries,
		outbox:  params.Outbox,
		age:     age,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type stuckCreditJob struct {
	logg    *logger.Logger
	db      txRunner
	entries stuckEntryLister
	outbox  outboxEmitter
	age     time.Duration
	batch   int
	now     func() time.Time
}

func (j *stuckCreditJob) Name() string { return "stuck-credit-alert" }

func (j *stuckCreditJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.age)
	stuck, err := j.entries.ListPendingCreditOlderThan(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("list stuck credits: %w", err)
	}
	if len(stuck) == 0 {
		return nil
	}

	var errs []error
	flagged := 0
	for i := range stuck {
		entry := stuck[i]
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			return j.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventCommissionCreditStuck,
				AggregateType: enums.AggregateCommissionEntry,
				AggregateID:   entry.ID,
				Data: payloads.CommissionCreditStuckEvent{
					CommissionEntryID: entry.ID,
					ServiceRequestID:  entry.ServiceRequestID,
					Role:              entry.StakeholderRole,
					Amount:            entry.Amount,
				},
				Version: 1,
			})
		})
		if err != nil {
			j.logg.Error(j.logg.WithField(ctx, "commission_entry_id", entry.ID.String()),
				"failed to flag stuck credit", err)
			errs = append(errs, fmt.Errorf("flag entry %s: %w", entry.ID, err))
			continue
		}
		flagged++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"stuck":   len(stuck),
		"flagged": flagged,
	})
	j.logg.Warn(logCtx, "commission credits stuck in pending_credit")
	return multierr.Combine(errs...)
}
