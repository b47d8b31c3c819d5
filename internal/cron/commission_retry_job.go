package cron

import (
	"context"
	"fmt"

	"github.com/sevalabs/gramseva-backend/pkg/logger"
)

const defaultPendingCreditBatch = 100

type pendingCreditRetrier interface {
	RetryPendingCredits(ctx context.Context, limit int) (int, error)
}

// CommissionRetryJobParams configures the pending-credit reconciliation job.
type CommissionRetryJobParams struct {
	Logger  *logger.Logger
	Retrier pendingCreditRetrier
	Batch   int
}

// NewCommissionRetryJob builds the job that re-credits commission entries left
// in pending_credit by failed wallet writes.
func NewCommissionRetryJob(params CommissionRetryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Retrier == nil {
		return nil, fmt.Errorf("commission retrier required")
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultPendingCreditBatch
	}
	return &commissionRetryJob{
		logg:    params.Logger,
		retrier: params.Retrier,
		batch:   batch,
	}, nil
}

type commissionRetryJob struct {
	logg    *logger.Logger
	retrier pendingCreditRetrier
	batch   int
}

func (j *commissionRetryJob) Name() string { return "pending-credit-retry" }

func (j *commissionRetryJob) Run(ctx context.Context) error {
	credited, err := j.retrier.RetryPendingCredits(ctx, j.batch)
	if err != nil {
		return fmt.Errorf("retry pending credits: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"batch":    j.batch,
		"credited": credited,
	})
	j.logg.Info(logCtx, "pending credit sweep complete")
	return nil
}
