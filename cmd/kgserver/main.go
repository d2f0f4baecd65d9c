// Command kgserver runs the knowledge-graph HTTP API and its background
// job scheduler: ingestion, semantic search, pathfinding, polarity
// projection, and vocabulary management over a graph store.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/kgraph/kgraph/internal/api"
	"github.com/kgraph/kgraph/internal/authn"
	"github.com/kgraph/kgraph/internal/conceptmatch"
	"github.com/kgraph/kgraph/internal/config"
	"github.com/kgraph/kgraph/internal/embedclient"
	"github.com/kgraph/kgraph/internal/graphstore"
	"github.com/kgraph/kgraph/internal/ingestworker"
	"github.com/kgraph/kgraph/internal/jobqueue"
	"github.com/kgraph/kgraph/internal/llmclient"
	"github.com/kgraph/kgraph/internal/objectstore"
	"github.com/kgraph/kgraph/internal/observability"
	"github.com/kgraph/kgraph/internal/queryengine"
	"github.com/kgraph/kgraph/internal/vectorindex"
	"github.com/kgraph/kgraph/internal/vocabulary"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogPath, cfg.LogLevel)

	shutdownOTel, err := observability.InitOTel(context.Background(), cfg.OTel)
	if err != nil {
		log.Warn().Err(err).Msg("otel init failed, continuing without telemetry")
		shutdownOTel = nil
	}
	if shutdownOTel != nil {
		defer func() { _ = shutdownOTel(context.Background()) }()
	}

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("kgserver exited with error")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if cfg.Database.DSN != "" {
		p, err := newPgPool(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer p.Close()
		pool = p
	}

	idx, err := vectorindex.New(ctx, cfg.VectorIndex, pool)
	if err != nil {
		return fmt.Errorf("init vector index: %w", err)
	}

	store, err := newGraphStore(ctx, pool, idx)
	if err != nil {
		return fmt.Errorf("init graph store: %w", err)
	}

	httpClient := observability.NewHTTPClient(nil)
	embedder := embedclient.New(cfg.Embedding, httpClient)
	extractor, err := llmclient.New(cfg.LLM, httpClient)
	if err != nil {
		return fmt.Errorf("init llm provider: %w", err)
	}

	objects, err := newObjectStore(ctx, cfg.ObjectStore)
	if err != nil {
		return fmt.Errorf("init object store: %w", err)
	}

	vocabRepo, err := newVocabularyRepository(ctx, pool, cfg.Embedding.Dimensions)
	if err != nil {
		return fmt.Errorf("init vocabulary repository: %w", err)
	}
	vocabMgr, err := vocabulary.New(ctx, cfg.Vocabulary, embedder, vocabRepo)
	if err != nil {
		return fmt.Errorf("init vocabulary manager: %w", err)
	}

	matcher := conceptmatch.New(embedder, idx, store, cfg.ConceptMatch)

	jobStore, err := newJobStore(ctx, pool)
	if err != nil {
		return fmt.Errorf("init job store: %w", err)
	}
	estimator := jobqueue.NewChunkEstimator(cfg.Chunker)
	queue := jobqueue.New(jobStore, estimator, cfg.Jobs)

	worker := ingestworker.New(cfg.Chunker, extractor, embedder, vocabMgr, matcher, store, objects)
	scheduler := jobqueue.NewScheduler(jobStore, worker, cfg.Jobs)

	grounding := queryengine.NewGroundingCalculator(store)
	pathf := queryengine.NewPathfinder(store)
	search := queryengine.NewSearch(embedder, store, grounding)
	polarity := queryengine.NewPolarity(store, grounding, pathf)

	verifier := newVerifier(cfg.Auth)

	var adjudicator vocabulary.Adjudicator
	if asker, ok := extractor.(llmclient.Asker); ok {
		adjudicator = vocabulary.NewLLMAdjudicator(asker)
	}

	srv := api.NewServer(api.Deps{
		Queue:       queue,
		Store:       store,
		Objects:     objects,
		Search:      search,
		Pathfinder:  pathf,
		Polarity:    polarity,
		Grounding:   grounding,
		Vocabulary:  vocabMgr,
		Adjudicator: adjudicator,
		EdgeRetyper: store,
		Verifier:    verifier,
	})

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: srv,
	}

	schedErrCh := make(chan error, 1)
	go func() { schedErrCh <- scheduler.Run(ctx) }()

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpSrv.Addr).Msg("kgserver listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErrCh <- err
			return
		}
		serveErrCh <- nil
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErrCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown did not complete cleanly")
	}

	<-schedErrCh
	return nil
}

func newPgPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func newGraphStore(ctx context.Context, pool *pgxpool.Pool, idx vectorindex.Index) (graphstore.Store, error) {
	if pool == nil {
		return graphstore.NewMemory(idx), nil
	}
	return graphstore.NewPostgres(ctx, pool, idx)
}

func newJobStore(ctx context.Context, pool *pgxpool.Pool) (jobqueue.Store, error) {
	if pool == nil {
		return jobqueue.NewMemoryStore(), nil
	}
	return jobqueue.NewPostgresStore(ctx, pool)
}

func newVocabularyRepository(ctx context.Context, pool *pgxpool.Pool, dims int) (vocabulary.Repository, error) {
	if pool == nil {
		return vocabulary.NewMemoryRepository(), nil
	}
	return vocabulary.NewPostgresRepository(ctx, pool, dims)
}

func newObjectStore(ctx context.Context, cfg config.ObjectStoreConfig) (objectstore.ObjectStore, error) {
	if cfg.Bucket == "" {
		return objectstore.NewMemoryStore(), nil
	}
	return objectstore.NewS3Store(ctx, cfg)
}

func newVerifier(cfg config.AuthConfig) authn.Verifier {
	if cfg.OIDCIssuer != "" {
		v, err := authn.NewOIDCVerifier(context.Background(), cfg.OIDCIssuer, cfg.OIDCClientID)
		if err == nil {
			return v
		}
		log.Warn().Err(err).Msg("oidc verifier init failed, falling back to HMAC")
	}
	return authn.NewHMACVerifier(cfg.SecretKey)
}
