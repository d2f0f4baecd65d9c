package graphstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kgraph/kgraph/internal/apperr"
	"github.com/kgraph/kgraph/internal/model"
	"github.com/kgraph/kgraph/internal/vectorindex"
)

// PostgresStore is a Store backed by Postgres, grounded on the teacher's
// pgGraph (CREATE TABLE IF NOT EXISTS ... ON CONFLICT DO UPDATE idiom),
// generalized from a generic nodes/edges pair to the concept/source/
// instance/relationship schema.
type PostgresStore struct {
	pool *pgxpool.Pool
	idx  vectorindex.Index
}

// NewPostgres ensures the schema exists and returns a Store over it.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool, idx vectorindex.Index) (*PostgresStore, error) {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS concepts (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			search_terms TEXT[] NOT NULL DEFAULT '{}',
			ontology TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS concepts_ontology_idx ON concepts(ontology)`,
		`CREATE TABLE IF NOT EXISTS sources (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			ordinal INT NOT NULL,
			document_id TEXT NOT NULL,
			image_object_key TEXT NOT NULL DEFAULT '',
			ontology TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS instances (
			concept_id TEXT NOT NULL,
			source_id TEXT NOT NULL,
			quote TEXT NOT NULL,
			PRIMARY KEY (concept_id, source_id)
		)`,
		`CREATE TABLE IF NOT EXISTS relationships (
			id BIGSERIAL PRIMARY KEY,
			from_id TEXT NOT NULL,
			to_id TEXT NOT NULL,
			type TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			evidence TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (from_id, to_id, type)
		)`,
		`CREATE INDEX IF NOT EXISTS relationships_from_type_idx ON relationships(from_id, type)`,
		`CREATE INDEX IF NOT EXISTS relationships_to_type_idx ON relationships(to_id, type)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			content_hash TEXT NOT NULL,
			filename TEXT NOT NULL DEFAULT '',
			ontology TEXT NOT NULL,
			content_type TEXT NOT NULL,
			mime TEXT NOT NULL DEFAULT '',
			size BIGINT NOT NULL DEFAULT 0,
			object_key TEXT NOT NULL DEFAULT '',
			ingested_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (ontology, content_hash)
		)`,
		`CREATE INDEX IF NOT EXISTS sources_document_idx ON sources(document_id)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("ensure graph schema: %w", err)
		}
	}
	return &PostgresStore{pool: pool, idx: idx}, nil
}

func (s *PostgresStore) CreateConcept(ctx context.Context, c model.Concept) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO concepts (id, label, description, search_terms, ontology, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET label = EXCLUDED.label, description = EXCLUDED.description,
	search_terms = EXCLUDED.search_terms
`, c.ID, c.Label, c.Description, c.SearchTerms, c.Ontology, c.CreatedAt)
	return err
}

func (s *PostgresStore) GetConcept(ctx context.Context, id string) (model.Concept, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, label, description, search_terms, ontology, created_at FROM concepts WHERE id = $1`, id)
	var c model.Concept
	if err := row.Scan(&c.ID, &c.Label, &c.Description, &c.SearchTerms, &c.Ontology, &c.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return model.Concept{}, false, nil
		}
		return model.Concept{}, false, err
	}
	return c, true, nil
}

// AppendSearchTerms merges terms into the concept's existing search_terms,
// de-duplicated by Postgres' array_agg(DISTINCT ...), without touching
// label or description.
func (s *PostgresStore) AppendSearchTerms(ctx context.Context, conceptID string, terms []string) error {
	if len(terms) == 0 {
		return nil
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE concepts SET search_terms = (
	SELECT array_agg(DISTINCT t) FROM unnest(array_cat(search_terms, $2::text[])) AS t
) WHERE id = $1
`, conceptID, terms)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("concept %s not found", conceptID)
	}
	return nil
}

func (s *PostgresStore) CreateSource(ctx context.Context, src model.Source) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO sources (id, text, ordinal, document_id, image_object_key, ontology)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING
`, src.ID, src.Text, src.Ordinal, src.DocumentID, src.ImageObjectKey, src.Ontology)
	return err
}

func (s *PostgresStore) GetSource(ctx context.Context, id string) (model.Source, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, text, ordinal, document_id, image_object_key, ontology FROM sources WHERE id = $1`, id)
	var src model.Source
	if err := row.Scan(&src.ID, &src.Text, &src.Ordinal, &src.DocumentID, &src.ImageObjectKey, &src.Ontology); err != nil {
		if err == pgx.ErrNoRows {
			return model.Source{}, false, nil
		}
		return model.Source{}, false, err
	}
	return src, true, nil
}

func (s *PostgresStore) SourcesByDocument(ctx context.Context, documentID string) ([]model.Source, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, text, ordinal, document_id, image_object_key, ontology FROM sources
WHERE document_id = $1 ORDER BY ordinal ASC
`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Source
	for rows.Next() {
		var src model.Source
		if err := rows.Scan(&src.ID, &src.Text, &src.Ordinal, &src.DocumentID, &src.ImageObjectKey, &src.Ontology); err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateDocument(ctx context.Context, d model.Document) (model.Document, bool, error) {
	row := s.pool.QueryRow(ctx, `
INSERT INTO documents (id, content_hash, filename, ontology, content_type, mime, size, object_key, ingested_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (ontology, content_hash) DO UPDATE SET ontology = EXCLUDED.ontology
RETURNING id, content_hash, filename, ontology, content_type, mime, size, object_key, ingested_at, (xmax = 0)
`, d.ID, d.ContentHash, d.Filename, d.Ontology, d.ContentType, d.MIME, d.Size, d.ObjectKey, d.IngestedAt)

	var out model.Document
	var created bool
	if err := row.Scan(&out.ID, &out.ContentHash, &out.Filename, &out.Ontology, &out.ContentType, &out.MIME, &out.Size, &out.ObjectKey, &out.IngestedAt, &created); err != nil {
		return model.Document{}, false, err
	}
	return out, created, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (model.Document, bool, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, content_hash, filename, ontology, content_type, mime, size, object_key, ingested_at FROM documents WHERE id = $1
`, id)
	var d model.Document
	if err := row.Scan(&d.ID, &d.ContentHash, &d.Filename, &d.Ontology, &d.ContentType, &d.MIME, &d.Size, &d.ObjectKey, &d.IngestedAt); err != nil {
		if err == pgx.ErrNoRows {
			return model.Document{}, false, nil
		}
		return model.Document{}, false, err
	}
	return d, true, nil
}

func (s *PostgresStore) GetDocumentByContentHash(ctx context.Context, ontology, contentHash string) (model.Document, bool, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, content_hash, filename, ontology, content_type, mime, size, object_key, ingested_at FROM documents
WHERE ontology = $1 AND content_hash = $2
`, ontology, contentHash)
	var d model.Document
	if err := row.Scan(&d.ID, &d.ContentHash, &d.Filename, &d.Ontology, &d.ContentType, &d.MIME, &d.Size, &d.ObjectKey, &d.IngestedAt); err != nil {
		if err == pgx.ErrNoRows {
			return model.Document{}, false, nil
		}
		return model.Document{}, false, err
	}
	return d, true, nil
}

func (s *PostgresStore) RetagOntology(ctx context.Context, oldOntology, newOntology string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	stmts := []string{
		`UPDATE concepts SET ontology = $2 WHERE ontology = $1`,
		`UPDATE sources SET ontology = $2 WHERE ontology = $1`,
		`UPDATE documents SET ontology = $2 WHERE ontology = $1`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt, oldOntology, newOntology); err != nil {
			return fmt.Errorf("retag ontology: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) ListOntologies(ctx context.Context) ([]model.Ontology, error) {
	rows, err := s.pool.Query(ctx, `
SELECT ontology, min(created_at) FROM (
	SELECT ontology, created_at FROM concepts
	UNION ALL
	SELECT ontology, ingested_at FROM documents
) t
GROUP BY ontology
ORDER BY ontology
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Ontology
	for rows.Next() {
		var o model.Ontology
		if err := rows.Scan(&o.Name, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DocumentsByOntology(ctx context.Context, ontology string) ([]model.Document, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, content_hash, filename, ontology, content_type, mime, size, object_key, ingested_at FROM documents
WHERE ontology = $1 ORDER BY ingested_at ASC
`, ontology)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Document
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.ContentHash, &d.Filename, &d.Ontology, &d.ContentType, &d.MIME, &d.Size, &d.ObjectKey, &d.IngestedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteOntology(ctx context.Context, ontology string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	stmts := []string{
		`DELETE FROM instances WHERE source_id IN (SELECT id FROM sources WHERE ontology = $1)`,
		`DELETE FROM relationships WHERE from_id IN (SELECT id FROM concepts WHERE ontology = $1)
			OR to_id IN (SELECT id FROM concepts WHERE ontology = $1)`,
		`DELETE FROM sources WHERE ontology = $1`,
		`DELETE FROM documents WHERE ontology = $1`,
		`DELETE FROM concepts WHERE ontology = $1`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt, ontology); err != nil {
			return fmt.Errorf("delete ontology %s: %w", ontology, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM instances WHERE source_id IN (SELECT id FROM sources WHERE document_id = $1)`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM sources WHERE document_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) CreateInstance(ctx context.Context, inst model.Instance) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO instances (concept_id, source_id, quote) VALUES ($1, $2, $3)
ON CONFLICT (concept_id, source_id) DO NOTHING
`, inst.ConceptID, inst.SourceID, inst.Quote)
	return err
}

func (s *PostgresStore) UpsertRelationship(ctx context.Context, fromID, toID, relType string, confidence float64, evidenceSourceID string) (model.Relationship, error) {
	if err := validateEvidence(evidenceSourceID); err != nil {
		return model.Relationship{}, err
	}
	row := s.pool.QueryRow(ctx, `
INSERT INTO relationships (from_id, to_id, type, confidence, evidence)
VALUES ($1, $2, $3, $4, ARRAY[$5::text])
ON CONFLICT (from_id, to_id, type) DO UPDATE SET
	confidence = GREATEST(relationships.confidence, EXCLUDED.confidence),
	evidence = CASE WHEN $5 = ANY(relationships.evidence) THEN relationships.evidence
	                 ELSE array_append(relationships.evidence, $5::text) END
RETURNING id, from_id, to_id, type, confidence, evidence, created_at
`, fromID, toID, relType, confidence, evidenceSourceID)

	var r model.Relationship
	var id int64
	if err := row.Scan(&id, &r.FromID, &r.ToID, &r.Type, &r.Confidence, &r.Evidence, &r.CreatedAt); err != nil {
		return model.Relationship{}, err
	}
	r.ID = fmt.Sprintf("rel_%d", id)
	return r, nil
}

func (s *PostgresStore) RetypeEdges(ctx context.Context, from, to string) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var moved int
	if err := tx.QueryRow(ctx, `
WITH moved AS (
	UPDATE relationships SET type = $2
	WHERE type = $1
	AND NOT EXISTS (
		SELECT 1 FROM relationships r2
		WHERE r2.from_id = relationships.from_id AND r2.to_id = relationships.to_id AND r2.type = $2
	)
	RETURNING id
)
SELECT count(*) FROM moved
`, from, to).Scan(&moved); err != nil {
		return 0, err
	}
	// Any (from,to) pair that already has a `to`-typed edge is merged by
	// folding the `from`-typed edge's evidence in, then deleting it.
	if _, err := tx.Exec(ctx, `
UPDATE relationships dst SET
	evidence = (SELECT array_agg(DISTINCT e) FROM unnest(dst.evidence || src.evidence) e),
	confidence = GREATEST(dst.confidence, src.confidence)
FROM relationships src
WHERE src.type = $1 AND dst.type = $2 AND src.from_id = dst.from_id AND src.to_id = dst.to_id
`, from, to); err != nil {
		return 0, err
	}
	merged, err := tx.Exec(ctx, `DELETE FROM relationships WHERE type = $1`, from)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return moved + int(merged.RowsAffected()), nil
}

func (s *PostgresStore) EdgesByType(ctx context.Context, relType string) ([]model.Relationship, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, from_id, to_id, type, confidence, evidence, created_at FROM relationships
WHERE type = $1
`, relType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Relationship
	for rows.Next() {
		var r model.Relationship
		if err := rows.Scan(&r.ID, &r.FromID, &r.ToID, &r.Type, &r.Confidence, &r.Evidence, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Neighbors(ctx context.Context, conceptIDs []string, edgeTypeFilter []string, direction Direction) (map[string][]NeighborEdge, error) {
	if err := validateNeighborBatch(conceptIDs); err != nil {
		return nil, err
	}
	out := make(map[string][]NeighborEdge, len(conceptIDs))

	if direction == DirectionOut || direction == DirectionBoth {
		rows, err := s.pool.Query(ctx, `
SELECT from_id, to_id, type, confidence, array_length(evidence, 1) FROM relationships
WHERE from_id = ANY($1) AND ($2::text[] IS NULL OR type = ANY($2))
`, conceptIDs, nullableFilter(edgeTypeFilter))
		if err != nil {
			return nil, err
		}
		if err := scanNeighbors(rows, out, true); err != nil {
			return nil, err
		}
	}
	if direction == DirectionIn || direction == DirectionBoth {
		rows, err := s.pool.Query(ctx, `
SELECT to_id, from_id, type, confidence, array_length(evidence, 1) FROM relationships
WHERE to_id = ANY($1) AND ($2::text[] IS NULL OR type = ANY($2))
`, conceptIDs, nullableFilter(edgeTypeFilter))
		if err != nil {
			return nil, err
		}
		if err := scanNeighbors(rows, out, false); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scanNeighbors(rows pgx.Rows, out map[string][]NeighborEdge, outgoing bool) error {
	defer rows.Close()
	for rows.Next() {
		var queriedID, otherID, relType string
		var confidence float64
		var evidenceCount *int
		if err := rows.Scan(&queriedID, &otherID, &relType, &confidence, &evidenceCount); err != nil {
			return err
		}
		count := 0
		if evidenceCount != nil {
			count = *evidenceCount
		}
		out[queriedID] = append(out[queriedID], NeighborEdge{OtherConceptID: otherID, Type: relType, Confidence: confidence, EvidenceCount: count, Outgoing: outgoing})
	}
	return rows.Err()
}

func nullableFilter(filter []string) []string {
	if len(filter) == 0 {
		return nil
	}
	return filter
}

func (s *PostgresStore) VectorSearch(ctx context.Context, embedding []float32, ontology string, topK int, threshold float64) ([]SearchHit, error) {
	matches, err := s.idx.Search(ctx, embedding, ontology, topK)
	if err != nil {
		return nil, err
	}
	return hydrateSearch(ctx, s, matches, threshold)
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	row := s.pool.QueryRow(ctx, `SELECT
		(SELECT count(*) FROM concepts),
		(SELECT count(*) FROM relationships),
		(SELECT count(*) FROM sources)
	`)
	if err := row.Scan(&st.ConceptCount, &st.RelationshipCount, &st.SourceCount); err != nil {
		return Stats{}, err
	}
	return st, nil
}
