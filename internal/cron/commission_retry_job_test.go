package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/sevalabs/gramseva-backend/pkg/logger"
)

type fakeRetrier struct {
	limit    int
	credited int
	err      error
}

func (f *fakeRetrier) RetryPendingCredits(ctx context.Context, limit int) (int, error) {
	f.limit = limit
	return f.credited, f.err
}

func TestCommissionRetryJobUsesConfiguredBatch(t *testing.T) {
	retrier := &fakeRetrier{credited: 3}
	job, err := NewCommissionRetryJob(CommissionRetryJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "cron-test"}),
		Retrier: retrier,
		Batch:   25,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if retrier.limit != 25 {
		t.Fatalf("expected batch 25, got %d", retrier.limit)
	}
}

func TestCommissionRetryJobDefaultsBatch(t *testing.T) {
	retrier := &fakeRetrier{}
	job, err := NewCommissionRetryJob(CommissionRetryJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "cron-test"}),
		Retrier: retrier,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if retrier.limit != defaultPendingCreditBatch {
		t.Fatalf("expected default batch, got %d", retrier.limit)
	}
}

func TestCommissionRetryJobPropagatesError(t *testing.T) {
	job, err := NewCommissionRetryJob(CommissionRetryJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "cron-test"}),
		Retrier: &fakeRetrier{err: errors.New("db down")},
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
