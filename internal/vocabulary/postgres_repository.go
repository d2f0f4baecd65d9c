package vocabulary

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/kgraph/kgraph/internal/model"
)

// PostgresRepository persists vocabulary types and their history trail,
// grounded on the same pgvector-backed embedding column as
// `vectorindex.PgvectorIndex`, since a type's embedding is the same shape
// of value (a fixed-dims float32 vector ranked by cosine distance) even
// though it is never itself the target of an ANN search.
type PostgresRepository struct {
	pool *pgxpool.Pool
	dims int
}

// NewPostgresRepository ensures the schema exists and returns a Repository
// over it. dims must match the embedding client's output dimensionality.
func NewPostgresRepository(ctx context.Context, pool *pgxpool.Pool, dims int) (*PostgresRepository, error) {
	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return nil, fmt.Errorf("create vector extension: %w", err)
	}
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS vocabulary_types (
			name TEXT PRIMARY KEY,
			active BOOLEAN NOT NULL DEFAULT true,
			builtin BOOLEAN NOT NULL DEFAULT false,
			category TEXT NOT NULL DEFAULT '',
			ambiguous BOOLEAN NOT NULL DEFAULT false,
			embedding vector(%d),
			usage_count INT NOT NULL DEFAULT 0,
			merged_into TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, dims),
		`CREATE TABLE IF NOT EXISTS vocabulary_type_history (
			id BIGSERIAL PRIMARY KEY,
			type_name TEXT NOT NULL,
			action TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			occurred_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS vocabulary_type_history_type_idx ON vocabulary_type_history(type_name, occurred_at)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return nil, err
		}
	}
	return &PostgresRepository{pool: pool, dims: dims}, nil
}

func (r *PostgresRepository) LoadAll(ctx context.Context) ([]model.VocabularyType, error) {
	rows, err := r.pool.Query(ctx, `
SELECT name, active, builtin, category, ambiguous, embedding, usage_count, merged_into, created_at
FROM vocabulary_types
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.VocabularyType
	for rows.Next() {
		var t model.VocabularyType
		var embedding *pgvector.Vector
		if err := rows.Scan(&t.Name, &t.Active, &t.Builtin, &t.Category, &t.Ambiguous, &embedding,
			&t.UsageCount, &t.MergedInto, &t.CreatedAt); err != nil {
			return nil, err
		}
		if embedding != nil {
			t.Embedding = embedding.Slice()
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Save(ctx context.Context, t model.VocabularyType) error {
	var embedding any
	if len(t.Embedding) > 0 {
		embedding = pgvector.NewVector(t.Embedding)
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO vocabulary_types (name, active, builtin, category, ambiguous, embedding, usage_count, merged_into, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (name) DO UPDATE SET
	active = EXCLUDED.active, category = EXCLUDED.category, ambiguous = EXCLUDED.ambiguous,
	embedding = EXCLUDED.embedding, usage_count = EXCLUDED.usage_count, merged_into = EXCLUDED.merged_into
`, t.Name, t.Active, t.Builtin, t.Category, t.Ambiguous, embedding, t.UsageCount, t.MergedInto, t.CreatedAt)
	return err
}

func (r *PostgresRepository) AppendHistory(ctx context.Context, e model.VocabularyHistoryEntry) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO vocabulary_type_history (type_name, action, detail, occurred_at) VALUES ($1,$2,$3,$4)
`, e.TypeName, e.Action, e.Detail, e.OccurredAt)
	return err
}

func (r *PostgresRepository) History(ctx context.Context, typeName string) ([]model.VocabularyHistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
SELECT type_name, action, detail, occurred_at FROM vocabulary_type_history
WHERE type_name = $1 ORDER BY occurred_at ASC
`, typeName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.VocabularyHistoryEntry
	for rows.Next() {
		var e model.VocabularyHistoryEntry
		if err := rows.Scan(&e.TypeName, &e.Action, &e.Detail, &e.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
