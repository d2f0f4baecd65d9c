package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/kgraph/kgraph/internal/config"
	"github.com/kgraph/kgraph/internal/model"
	"github.com/kgraph/kgraph/internal/observability"
)

// ProgressFunc persists incremental job progress as a Runner works through
// a job's chunks, so status is visible mid-run and survives a crash.
type ProgressFunc func(ctx context.Context, job model.Job) error

// Runner executes one approved job to completion or failure. It must poll
// job.CancelRequested (refreshed via successive ProgressFunc round-trips in
// practice, but the initial job value is what's passed in) and stop
// between chunks when set (spec §4.7, §5 cooperative cancellation).
type Runner interface {
	Run(ctx context.Context, job model.Job, progress ProgressFunc) (model.Job, error)
}

// Scheduler runs a bounded worker pool over approved jobs (spec §4.8),
// grounded on the same channel-of-work/sync.WaitGroup pool shape used by
// the teacher's document ingestion pipeline.
type Scheduler struct {
	store   Store
	runner  Runner
	cfg     config.JobQueueConfig
	metrics *observability.Metrics

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

func NewScheduler(store Store, runner Runner, cfg config.JobQueueConfig) *Scheduler {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	return &Scheduler{
		store: store, runner: runner, cfg: cfg,
		metrics: observability.NewMetrics(),
		running: make(map[string]context.CancelFunc),
	}
}

// Run recovers stale running jobs once, then starts the worker pool and the
// two periodic maintenance sweeps (approval expiry and retention), blocking
// until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.recoverStaleRunning(ctx); err != nil {
		observability.Component("jobqueue").Warn().Err(err).Msg("stale-running recovery failed")
	}

	var wg sync.WaitGroup
	jobs := make(chan model.Job)

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.dispatchLoop(ctx, jobs)
	}()

	for i := 0; i < s.cfg.MaxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				s.runOne(ctx, job)
			}
		}()
	}

	wg.Add(2)
	go func() { defer wg.Done(); s.sweepLoop(ctx, s.expirationSweep, time.Minute) }()
	go func() { defer wg.Done(); s.sweepLoop(ctx, s.retentionSweep, time.Hour) }()

	wg.Wait()
	return ctx.Err()
}

// dispatchLoop polls for approved jobs and feeds them to the worker pool.
// Polling (rather than a push notification) keeps the scheduler independent
// of whatever Store backend is configured.
func (s *Scheduler) dispatchLoop(ctx context.Context, out chan<- model.Job) {
	defer close(out)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			approved, err := s.store.ListByStatus(ctx, model.JobApproved)
			if err != nil {
				observability.Component("jobqueue").Error().Err(err).Msg("list approved jobs")
				continue
			}
			for _, j := range approved {
				select {
				case out <- j:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (s *Scheduler) runOne(ctx context.Context, job model.Job) {
	jobCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.running[job.ID] = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.running, job.ID)
		s.mu.Unlock()
		cancel()
	}()

	now := time.Now()
	job.Status = model.JobRunning
	job.StartedAt = &now
	if err := s.store.Update(jobCtx, job); err != nil {
		observability.Component("jobqueue").Error().Err(err).Str("job_id", job.ID).Msg("mark job running")
		return
	}

	progress := func(ctx context.Context, j model.Job) error { return s.store.Update(ctx, j) }
	finished, err := s.runner.Run(jobCtx, job, progress)
	finishedAt := time.Now()
	finished.FinishedAt = &finishedAt
	if err != nil {
		finished.Status = model.JobFailed
		finished.FailureReason = err.Error()
	} else if finished.CancelRequested {
		finished.Status = model.JobCancelled
	} else {
		finished.Status = model.JobCompleted
	}
	if uerr := s.store.Update(ctx, finished); uerr != nil {
		observability.Component("jobqueue").Error().Err(uerr).Str("job_id", job.ID).Msg("persist final job status")
	}

	labels := map[string]string{"type": string(finished.Type), "status": string(finished.Status), "ontology": finished.Ontology}
	s.metrics.IncCounter("kgraph_jobs_finished_total", labels)
	if finished.StartedAt != nil {
		s.metrics.ObserveHistogram("kgraph_job_duration_seconds", finishedAt.Sub(*finished.StartedAt).Seconds(), labels)
	}
}

func (s *Scheduler) sweepLoop(ctx context.Context, sweep func(context.Context) error, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sweep(ctx); err != nil {
				observability.Component("jobqueue").Error().Err(err).Msg("sweep failed")
			}
		}
	}
}

// expirationSweep expires awaiting-approval jobs past their pending
// deadline (spec §4.8).
func (s *Scheduler) expirationSweep(ctx context.Context) error {
	pending, err := s.store.ListByStatus(ctx, model.JobAwaitingApproval)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, j := range pending {
		if j.ExpiresAt == nil || now.Before(*j.ExpiresAt) {
			continue
		}
		j.Status = model.JobExpired
		j.FinishedAt = &now
		if err := s.store.Update(ctx, j); err != nil {
			return err
		}
	}
	return nil
}

// retentionSweep deletes terminal jobs older than the retention window
// unless marked Protected (spec §4.8).
func (s *Scheduler) retentionSweep(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -s.cfg.RetentionDays)
	for _, status := range []model.JobStatus{model.JobCompleted, model.JobFailed, model.JobCancelled, model.JobExpired} {
		terminal, err := s.store.ListByStatus(ctx, status)
		if err != nil {
			return err
		}
		for _, j := range terminal {
			if j.Protected || j.FinishedAt == nil || j.FinishedAt.After(cutoff) {
				continue
			}
			if err := s.store.Delete(ctx, j.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// recoverStaleRunning resets any job left JobRunning by a crashed previous
// process back to JobApproved so the scheduler picks it back up (spec §4.8).
func (s *Scheduler) recoverStaleRunning(ctx context.Context) error {
	stale, err := s.store.ListByStatus(ctx, model.JobRunning)
	if err != nil {
		return err
	}
	for _, j := range stale {
		j.Status = model.JobApproved
		j.RunnerID = ""
		if err := s.store.Update(ctx, j); err != nil {
			return err
		}
	}
	return nil
}
