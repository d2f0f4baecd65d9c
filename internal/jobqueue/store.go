// Package jobqueue implements the job state machine and scheduler of spec
// §4.7/§4.8: submit, approve/reject, a bounded worker pool, an
// approval-expiry sweep, a retention sweep, and stale-running recovery.
package jobqueue

import (
	"context"

	"github.com/kgraph/kgraph/internal/model"
)

// Store persists jobs. Only the Queue and the Scheduler transition a job's
// Status.
type Store interface {
	Create(ctx context.Context, job model.Job) error
	Get(ctx context.Context, id string) (model.Job, bool, error)
	Update(ctx context.Context, job model.Job) error
	Delete(ctx context.Context, id string) error
	ListByStatus(ctx context.Context, status model.JobStatus) ([]model.Job, error)

	// List returns jobs matching ownerFilter/ontologyFilter, either of
	// which may be empty to mean "any", for the GET /jobs listing endpoint.
	List(ctx context.Context, ownerFilter, ontologyFilter string) ([]model.Job, error)
}
