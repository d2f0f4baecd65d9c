package jobqueue

import (
	"context"
	"testing"

	"github.com/kgraph/kgraph/internal/config"
	"github.com/kgraph/kgraph/internal/model"
)

type fixedEstimator struct{ cost float64 }

func (f fixedEstimator) Estimate(context.Context, model.JobParams) (float64, error) {
	return f.cost, nil
}

func testQueueCfg() config.JobQueueConfig {
	return config.JobQueueConfig{
		MaxWorkers:            4,
		ApprovalTimeoutHours:  24,
		RetentionDays:         30,
		AutoApproveBelowCost:  0.10,
		StaleRunningAfterMins: 30,
	}
}

func TestSubmit_AutoApprovesCheapJob(t *testing.T) {
	q := New(NewMemoryStore(), fixedEstimator{cost: 0.01}, testQueueCfg())
	job, err := q.Submit(context.Background(), model.JobTypeIngestText, "alice", "physics", model.JobParams{Text: "hi"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != model.JobApproved {
		t.Fatalf("status = %s, want approved", job.Status)
	}
}

func TestSubmit_AwaitsApprovalForExpensiveJob(t *testing.T) {
	q := New(NewMemoryStore(), fixedEstimator{cost: 5.0}, testQueueCfg())
	job, err := q.Submit(context.Background(), model.JobTypeIngestText, "alice", "physics", model.JobParams{Text: "hi"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != model.JobAwaitingApproval {
		t.Fatalf("status = %s, want awaiting_approval", job.Status)
	}
	if job.ExpiresAt == nil {
		t.Fatal("expected an ExpiresAt deadline")
	}
}

func TestApprove_TransitionsAwaitingToApproved(t *testing.T) {
	ctx := context.Background()
	q := New(NewMemoryStore(), fixedEstimator{cost: 5.0}, testQueueCfg())
	job, err := q.Submit(ctx, model.JobTypeIngestText, "alice", "physics", model.JobParams{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	approved, err := q.Approve(ctx, job.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != model.JobApproved {
		t.Fatalf("status = %s, want approved", approved.Status)
	}
}

func TestApprove_RejectsWrongState(t *testing.T) {
	ctx := context.Background()
	q := New(NewMemoryStore(), fixedEstimator{cost: 0.01}, testQueueCfg())
	job, err := q.Submit(ctx, model.JobTypeIngestText, "alice", "physics", model.JobParams{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := q.Approve(ctx, job.ID); err == nil {
		t.Fatal("expected an error approving an already-approved job")
	}
}

func TestCancel_RunningJobSetsCancelRequested(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	q := New(store, fixedEstimator{cost: 0.01}, testQueueCfg())
	job, err := q.Submit(ctx, model.JobTypeIngestText, "alice", "physics", model.JobParams{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	job.Status = model.JobRunning
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	cancelled, err := q.Cancel(ctx, job.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !cancelled.CancelRequested || cancelled.Status != model.JobRunning {
		t.Fatalf("got %+v, want CancelRequested=true and status unchanged", cancelled)
	}
}

func TestList_FiltersByOwnerAndOntology(t *testing.T) {
	ctx := context.Background()
	q := New(NewMemoryStore(), fixedEstimator{cost: 0.01}, testQueueCfg())
	if _, err := q.Submit(ctx, model.JobTypeIngestText, "alice", "physics", model.JobParams{}); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Submit(ctx, model.JobTypeIngestText, "bob", "physics", model.JobParams{}); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Submit(ctx, model.JobTypeIngestText, "alice", "biology", model.JobParams{}); err != nil {
		t.Fatal(err)
	}

	jobs, err := q.List(ctx, "alice", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs owned by alice, got %d", len(jobs))
	}

	jobs, err = q.List(ctx, "alice", "physics")
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job owned by alice in physics, got %d", len(jobs))
	}
}

func TestDelete_RejectsNonTerminalJob(t *testing.T) {
	ctx := context.Background()
	q := New(NewMemoryStore(), fixedEstimator{cost: 0.01}, testQueueCfg())
	job, err := q.Submit(ctx, model.JobTypeIngestText, "alice", "physics", model.JobParams{})
	if err != nil {
		t.Fatal(err)
	}
	if err := q.Delete(ctx, job.ID); err == nil {
		t.Fatal("expected an error deleting a non-terminal job")
	}
}

func TestDelete_RemovesTerminalJob(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	q := New(store, fixedEstimator{cost: 0.01}, testQueueCfg())
	job, err := q.Submit(ctx, model.JobTypeIngestText, "alice", "physics", model.JobParams{})
	if err != nil {
		t.Fatal(err)
	}
	job.Status = model.JobCompleted
	if err := store.Update(ctx, job); err != nil {
		t.Fatal(err)
	}

	if err := q.Delete(ctx, job.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, err := q.Get(ctx, job.ID); err != nil || ok {
		t.Fatalf("expected job to be gone, ok=%v err=%v", ok, err)
	}
}
