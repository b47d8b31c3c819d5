package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/sevalabs/gramseva-backend/pkg/db/models"
	"github.com/sevalabs/gramseva-backend/pkg/enums"
	"github.com/sevalabs/gramseva-backend/pkg/logger"
)

const (
	defaultStuckRequestAge   = 72 * time.Hour
	defaultStuckRequestBatch = 100
)

// Statuses where a request waits on a human actor.
var stuckCandidateStatuses = []enums.RequestStatus{
	enums.RequestStatusNew,
	enums.RequestStatusInProgress,
	enums.RequestStatusAssigned,
	enums.RequestStatusApproved,
	enums.RequestStatusEscalated,
	enums.RequestStatusFinalApproved,
}

type stuckRequestLister interface {
	ListStuckBefore(ctx context.Context, statuses []enums.RequestStatus, cutoff time.Time, limit int) ([]models.ServiceRequest, error)
}

// StuckRequestJobParams configures the stale-request detection job.
type StuckRequestJobParams struct {
	Logger   *logger.Logger
	Requests stuckRequestLister
	Age      time.Duration
	Batch    int
}

// NewStuckRequestJob builds the job that surfaces requests idling in a
// non-terminal status past the configured age.
func NewStuckRequestJob(params StuckRequestJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Requests == nil {
		return nil, fmt.Errorf("request lister required")
	}
	age := params.Age
	if age <= 0 {
		age = defaultStuckRequestAge
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultStuckRequestBatch
	}
	return &stuckRequestJob{
		logg:     params.Logger,
		requests: params.Requests,
		age:      age,
		batch:    batch,
		now:      time.Now,
	}, nil
}

type stuckRequestJob struct {
	logg     *logger.Logger
	requests stuckRequestLister
	age      time.Duration
	batch    int
	now      func() time.Time
}

func (j *stuckRequestJob) Name() string { return "stuck-request-detect" }

func (j *stuckRequestJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.age)
	stuck, err := j.requests.ListStuckBefore(ctx, stuckCandidateStatuses, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("list stuck requests: %w", err)
	}
	if len(stuck) == 0 {
		return nil
	}

	for i := range stuck {
		request := stuck[i]
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"request_number": request.RequestNumber,
			"status":         string(request.Status),
			"updated_at":     request.UpdatedAt,
		})
		j.logg.Warn(logCtx, "request has not progressed past cutoff")
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff": cutoff,
		"stuck":  len(stuck),
	})
	j.logg.Warn(logCtx, "stale request sweep found idle requests")
	return nil
}
