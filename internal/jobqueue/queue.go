package jobqueue

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/kgraph/kgraph/internal/apperr"
	"github.com/kgraph/kgraph/internal/config"
	"github.com/kgraph/kgraph/internal/model"
)

// CostEstimator prices a job before it is queued, so cheap jobs can
// auto-approve and expensive ones wait for a human (spec §4.7).
type CostEstimator interface {
	Estimate(ctx context.Context, params model.JobParams) (float64, error)
}

// Queue owns job submission and the approval gate. The Scheduler owns
// execution once a job reaches JobApproved.
type Queue struct {
	store     Store
	estimator CostEstimator
	cfg       config.JobQueueConfig
}

func New(store Store, estimator CostEstimator, cfg config.JobQueueConfig) *Queue {
	return &Queue{store: store, estimator: estimator, cfg: cfg}
}

// Submit prices the job and places it in JobSubmitted->JobAwaitingApproval,
// or straight into JobApproved if the estimate is below the auto-approve
// threshold or the caller requested AutoApprove (spec §4.7).
func (q *Queue) Submit(ctx context.Context, jobType model.JobType, owner, ontology string, params model.JobParams) (model.Job, error) {
	cost, err := q.estimator.Estimate(ctx, params)
	if err != nil {
		return model.Job{}, err
	}

	now := time.Now()
	job := model.Job{
		ID:           newJobID(),
		Type:         jobType,
		Status:       model.JobSubmitted,
		Owner:        owner,
		Ontology:     ontology,
		Params:       params,
		CostEstimate: cost,
		SubmittedAt:  now,
	}

	if params.AutoApprove || cost < q.cfg.AutoApproveBelowCost {
		job.Status = model.JobApproved
		approvedAt := now
		job.ApprovedAt = &approvedAt
	} else {
		job.Status = model.JobAwaitingApproval
		deadline := now.Add(time.Duration(q.cfg.ApprovalTimeoutHours) * time.Hour)
		job.ExpiresAt = &deadline
	}

	if err := q.store.Create(ctx, job); err != nil {
		return model.Job{}, err
	}
	return job, nil
}

// Approve moves a job from JobAwaitingApproval to JobApproved.
func (q *Queue) Approve(ctx context.Context, id string) (model.Job, error) {
	job, ok, err := q.store.Get(ctx, id)
	if err != nil {
		return model.Job{}, err
	}
	if !ok {
		return model.Job{}, apperr.NotFound("job %s not found", id)
	}
	if job.Status != model.JobAwaitingApproval {
		return model.Job{}, apperr.Conflict("job %s is %s, not awaiting approval", id, job.Status)
	}
	now := time.Now()
	job.Status = model.JobApproved
	job.ApprovedAt = &now
	job.ExpiresAt = nil
	if err := q.store.Update(ctx, job); err != nil {
		return model.Job{}, err
	}
	return job, nil
}

// Reject cancels a job awaiting approval.
func (q *Queue) Reject(ctx context.Context, id, reason string) (model.Job, error) {
	job, ok, err := q.store.Get(ctx, id)
	if err != nil {
		return model.Job{}, err
	}
	if !ok {
		return model.Job{}, apperr.NotFound("job %s not found", id)
	}
	if job.Status != model.JobAwaitingApproval {
		return model.Job{}, apperr.Conflict("job %s is %s, not awaiting approval", id, job.Status)
	}
	now := time.Now()
	job.Status = model.JobCancelled
	job.FailureReason = reason
	job.FinishedAt = &now
	if err := q.store.Update(ctx, job); err != nil {
		return model.Job{}, err
	}
	return job, nil
}

// Cancel requests cooperative cancellation of a running job, or cancels
// outright if the job hasn't started running yet (spec §4.7, §5).
func (q *Queue) Cancel(ctx context.Context, id string) (model.Job, error) {
	job, ok, err := q.store.Get(ctx, id)
	if err != nil {
		return model.Job{}, err
	}
	if !ok {
		return model.Job{}, apperr.NotFound("job %s not found", id)
	}
	switch job.Status {
	case model.JobCompleted, model.JobFailed, model.JobCancelled, model.JobExpired:
		return model.Job{}, apperr.Conflict("job %s is already terminal (%s)", id, job.Status)
	case model.JobRunning:
		job.CancelRequested = true
	default:
		now := time.Now()
		job.Status = model.JobCancelled
		job.FinishedAt = &now
	}
	if err := q.store.Update(ctx, job); err != nil {
		return model.Job{}, err
	}
	return job, nil
}

func (q *Queue) Get(ctx context.Context, id string) (model.Job, bool, error) {
	return q.store.Get(ctx, id)
}

// List returns jobs matching the given filters, either of which may be
// empty to mean "any" (spec §6 `GET /jobs`).
func (q *Queue) List(ctx context.Context, ownerFilter, ontologyFilter string) ([]model.Job, error) {
	return q.store.List(ctx, ownerFilter, ontologyFilter)
}

// Delete removes a terminal job's record outright (spec §6 `DELETE
// /jobs/{id}`); non-terminal jobs must be cancelled first.
func (q *Queue) Delete(ctx context.Context, id string) error {
	job, ok, err := q.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("job %s not found", id)
	}
	switch job.Status {
	case model.JobCompleted, model.JobFailed, model.JobCancelled, model.JobExpired:
		return q.store.Delete(ctx, id)
	default:
		return apperr.Conflict("job %s is %s, not terminal; cancel it first", id, job.Status)
	}
}

func newJobID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return "job_" + hex.EncodeToString(b[:])
}
