package jobqueue

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kgraph/kgraph/internal/apperr"
	"github.com/kgraph/kgraph/internal/model"
)

// PostgresStore persists jobs as one row per job, with the params/progress/
// errors sub-structures stored as JSONB rather than mapped column-by-column
// — grounded on the teacher's persistence layer's JSONB-blob-for-nested-
// structure idiom (`mcp_store.go`), since a job's shape is read and
// rewritten wholesale on every progress tick rather than queried by field.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			status TEXT NOT NULL,
			owner TEXT NOT NULL DEFAULT '',
			ontology TEXT NOT NULL,
			params JSONB NOT NULL,
			cost_estimate DOUBLE PRECISION NOT NULL DEFAULT 0,
			actual_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
			progress JSONB NOT NULL,
			errors JSONB NOT NULL DEFAULT '[]',
			result_summary TEXT NOT NULL DEFAULT '',
			failure_reason TEXT NOT NULL DEFAULT '',
			protected BOOLEAN NOT NULL DEFAULT false,
			runner_id TEXT NOT NULL DEFAULT '',
			cancel_requested BOOLEAN NOT NULL DEFAULT false,
			partial_writes BOOLEAN NOT NULL DEFAULT false,
			submitted_at TIMESTAMPTZ NOT NULL,
			approved_at TIMESTAMPTZ,
			started_at TIMESTAMPTZ,
			finished_at TIMESTAMPTZ,
			expires_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS jobs_status_idx ON jobs(status)`,
		`CREATE INDEX IF NOT EXISTS jobs_owner_ontology_idx ON jobs(owner, ontology)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return nil, err
		}
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Create(ctx context.Context, job model.Job) error {
	params, progress, errs, err := marshalJob(job)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO jobs (id, type, status, owner, ontology, params, cost_estimate, actual_cost, progress,
	errors, result_summary, failure_reason, protected, runner_id, cancel_requested, partial_writes,
	submitted_at, approved_at, started_at, finished_at, expires_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
`, job.ID, job.Type, job.Status, job.Owner, job.Ontology, params, job.CostEstimate, job.ActualCost, progress,
		errs, job.ResultSummary, job.FailureReason, job.Protected, job.RunnerID, job.CancelRequested, job.PartialWrites,
		job.SubmittedAt, job.ApprovedAt, job.StartedAt, job.FinishedAt, job.ExpiresAt)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (model.Job, bool, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, type, status, owner, ontology, params, cost_estimate, actual_cost, progress,
	errors, result_summary, failure_reason, protected, runner_id, cancel_requested, partial_writes,
	submitted_at, approved_at, started_at, finished_at, expires_at
FROM jobs WHERE id = $1
`, id)
	job, err := scanJob(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.Job{}, false, nil
		}
		return model.Job{}, false, err
	}
	return job, true, nil
}

func (s *PostgresStore) Update(ctx context.Context, job model.Job) error {
	params, progress, errs, err := marshalJob(job)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE jobs SET type=$2, status=$3, owner=$4, ontology=$5, params=$6, cost_estimate=$7, actual_cost=$8,
	progress=$9, errors=$10, result_summary=$11, failure_reason=$12, protected=$13, runner_id=$14,
	cancel_requested=$15, partial_writes=$16, submitted_at=$17, approved_at=$18, started_at=$19,
	finished_at=$20, expires_at=$21
WHERE id=$1
`, job.ID, job.Type, job.Status, job.Owner, job.Ontology, params, job.CostEstimate, job.ActualCost, progress,
		errs, job.ResultSummary, job.FailureReason, job.Protected, job.RunnerID, job.CancelRequested, job.PartialWrites,
		job.SubmittedAt, job.ApprovedAt, job.StartedAt, job.FinishedAt, job.ExpiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("job %s not found", job.ID)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status model.JobStatus) ([]model.Job, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, type, status, owner, ontology, params, cost_estimate, actual_cost, progress,
	errors, result_summary, failure_reason, protected, runner_id, cancel_requested, partial_writes,
	submitted_at, approved_at, started_at, finished_at, expires_at
FROM jobs WHERE status = $1
`, status)
	if err != nil {
		return nil, err
	}
	return scanJobs(rows)
}

func (s *PostgresStore) List(ctx context.Context, ownerFilter, ontologyFilter string) ([]model.Job, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, type, status, owner, ontology, params, cost_estimate, actual_cost, progress,
	errors, result_summary, failure_reason, protected, runner_id, cancel_requested, partial_writes,
	submitted_at, approved_at, started_at, finished_at, expires_at
FROM jobs
WHERE ($1 = '' OR owner = $1) AND ($2 = '' OR ontology = $2)
`, ownerFilter, ontologyFilter)
	if err != nil {
		return nil, err
	}
	return scanJobs(rows)
}

func marshalJob(job model.Job) (params, progress, errs []byte, err error) {
	if params, err = json.Marshal(job.Params); err != nil {
		return nil, nil, nil, err
	}
	if progress, err = json.Marshal(job.Progress); err != nil {
		return nil, nil, nil, err
	}
	if errs, err = json.Marshal(job.Errors); err != nil {
		return nil, nil, nil, err
	}
	return params, progress, errs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (model.Job, error) {
	var job model.Job
	var params, progress, errs []byte
	if err := row.Scan(&job.ID, &job.Type, &job.Status, &job.Owner, &job.Ontology, &params, &job.CostEstimate,
		&job.ActualCost, &progress, &errs, &job.ResultSummary, &job.FailureReason, &job.Protected, &job.RunnerID,
		&job.CancelRequested, &job.PartialWrites, &job.SubmittedAt, &job.ApprovedAt, &job.StartedAt, &job.FinishedAt,
		&job.ExpiresAt); err != nil {
		return model.Job{}, err
	}
	if err := json.Unmarshal(params, &job.Params); err != nil {
		return model.Job{}, err
	}
	if err := json.Unmarshal(progress, &job.Progress); err != nil {
		return model.Job{}, err
	}
	if err := json.Unmarshal(errs, &job.Errors); err != nil {
		return model.Job{}, err
	}
	return job, nil
}

func scanJobs(rows pgx.Rows) ([]model.Job, error) {
	defer rows.Close()
	var out []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}
