package vectorindex

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgvectorIndex is an Index backed by Postgres + the pgvector extension,
// for deployments that keep graph and vector data in one database rather
// than running a separate Qdrant instance.
type PgvectorIndex struct {
	pool  *pgxpool.Pool
	table string
	dims  int
}

// NewPgvector ensures the pgvector extension and a concept-embedding table
// exist, then returns an Index backed by them.
func NewPgvector(ctx context.Context, pool *pgxpool.Pool, table string, dims int) (*PgvectorIndex, error) {
	if table == "" {
		table = "concept_embeddings"
	}
	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return nil, fmt.Errorf("create vector extension: %w", err)
	}
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  id TEXT PRIMARY KEY,
  ontology TEXT NOT NULL DEFAULT '',
  embedding vector(%d) NOT NULL
)`, table, dims)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return nil, fmt.Errorf("create embedding table: %w", err)
	}
	idxDDL := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_ontology_idx ON %s(ontology)`, table, table)
	if _, err := pool.Exec(ctx, idxDDL); err != nil {
		return nil, fmt.Errorf("create ontology index: %w", err)
	}
	return &PgvectorIndex{pool: pool, table: table, dims: dims}, nil
}

func (p *PgvectorIndex) Dimensions() int { return p.dims }

func (p *PgvectorIndex) Upsert(ctx context.Context, id, ontology string, vector []float32) error {
	_, err := p.pool.Exec(ctx, fmt.Sprintf(`
INSERT INTO %s (id, ontology, embedding) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET ontology = EXCLUDED.ontology, embedding = EXCLUDED.embedding
`, p.table), id, ontology, pgvector.NewVector(vector))
	return err
}

func (p *PgvectorIndex) Delete(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, p.table), id)
	return err
}

// Search ranks by cosine distance (pgvector's <=> operator); similarity is
// reported as 1 - distance to match the Index contract's "higher is closer".
func (p *PgvectorIndex) Search(ctx context.Context, vector []float32, ontology string, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 10
	}
	query := fmt.Sprintf(`
SELECT id, ontology, 1 - (embedding <=> $1) AS similarity
FROM %s
WHERE ($2 = '' OR ontology = $2)
ORDER BY embedding <=> $1
LIMIT $3
`, p.table)
	rows, err := p.pool.Query(ctx, query, pgvector.NewVector(vector), ontology, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Ontology, &m.Similarity); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *PgvectorIndex) Close() error { return nil }
