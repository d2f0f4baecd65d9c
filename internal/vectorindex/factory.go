package vectorindex

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kgraph/kgraph/internal/config"
)

// New resolves the configured vector-index backend.
func New(ctx context.Context, cfg config.VectorIndexConfig, pool *pgxpool.Pool) (Index, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(cfg.Dimensions), nil
	case "qdrant":
		return NewQdrant(ctx, cfg.QdrantHost, cfg.QdrantPort, cfg.QdrantAPIKey, cfg.QdrantUseTLS, cfg.QdrantCollection, cfg.Dimensions)
	case "pgvector":
		if pool == nil {
			return nil, fmt.Errorf("pgvector backend requires a database pool")
		}
		return NewPgvector(ctx, pool, "concept_embeddings", cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown vector index backend %q", cfg.Backend)
	}
}
