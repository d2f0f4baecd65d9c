package jobqueue

import (
	"context"
	"testing"
	"time"

	"github.com/kgraph/kgraph/internal/model"
)

type stubRunner struct {
	resultStatus model.JobStatus
	err          error
}

func (r stubRunner) Run(_ context.Context, job model.Job, progress ProgressFunc) (model.Job, error) {
	job.Progress.ChunksDone = job.Progress.TotalChunks
	return job, r.err
}

func TestExpirationSweep_ExpiresPastDeadline(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	past := time.Now().Add(-time.Hour)
	job := model.Job{ID: "j1", Status: model.JobAwaitingApproval, ExpiresAt: &past}
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("create: %v", err)
	}

	sched := NewScheduler(store, stubRunner{}, testQueueCfg())
	if err := sched.expirationSweep(ctx); err != nil {
		t.Fatalf("expirationSweep: %v", err)
	}

	got, _, err := store.Get(ctx, "j1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.JobExpired {
		t.Fatalf("status = %s, want expired", got.Status)
	}
}

func TestExpirationSweep_LeavesFutureDeadlineAlone(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	future := time.Now().Add(time.Hour)
	job := model.Job{ID: "j1", Status: model.JobAwaitingApproval, ExpiresAt: &future}
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("create: %v", err)
	}

	sched := NewScheduler(store, stubRunner{}, testQueueCfg())
	if err := sched.expirationSweep(ctx); err != nil {
		t.Fatalf("expirationSweep: %v", err)
	}

	got, _, err := store.Get(ctx, "j1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.JobAwaitingApproval {
		t.Fatalf("status = %s, want unchanged", got.Status)
	}
}

func TestRetentionSweep_DeletesOldTerminalJobsUnlessProtected(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	old := time.Now().AddDate(0, 0, -31)

	jobs := []model.Job{
		{ID: "old", Status: model.JobCompleted, FinishedAt: &old},
		{ID: "old-protected", Status: model.JobCompleted, FinishedAt: &old, Protected: true},
	}
	for _, j := range jobs {
		if err := store.Create(ctx, j); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	sched := NewScheduler(store, stubRunner{}, testQueueCfg())
	if err := sched.retentionSweep(ctx); err != nil {
		t.Fatalf("retentionSweep: %v", err)
	}

	if _, ok, _ := store.Get(ctx, "old"); ok {
		t.Fatal("expected old terminal job to be deleted")
	}
	if _, ok, _ := store.Get(ctx, "old-protected"); !ok {
		t.Fatal("expected protected job to survive retention sweep")
	}
}

func TestRecoverStaleRunning_ResetsToApproved(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Create(ctx, model.Job{ID: "stuck", Status: model.JobRunning, RunnerID: "gone"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	sched := NewScheduler(store, stubRunner{}, testQueueCfg())
	if err := sched.recoverStaleRunning(ctx); err != nil {
		t.Fatalf("recoverStaleRunning: %v", err)
	}

	got, _, err := store.Get(ctx, "stuck")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.JobApproved || got.RunnerID != "" {
		t.Fatalf("got %+v, want approved with cleared runner id", got)
	}
}

func TestRunOne_CompletesSuccessfulJob(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	job := model.Job{ID: "j1", Status: model.JobApproved, Progress: model.JobProgress{TotalChunks: 3}}
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("create: %v", err)
	}

	sched := NewScheduler(store, stubRunner{}, testQueueCfg())
	sched.runOne(ctx, job)

	got, _, err := store.Get(ctx, "j1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.JobCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if got.Progress.ChunksDone != 3 {
		t.Fatalf("ChunksDone = %d, want 3", got.Progress.ChunksDone)
	}
}
