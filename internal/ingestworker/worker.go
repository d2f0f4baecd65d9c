// Package ingestworker drives a single approved job through the ingestion
// pipeline's per-chunk step sequence (spec §4.7): chunk → extract → embed →
// match-or-create concepts → submit instances → resolve relationship types
// → upsert edges, updating job progress after each chunk.
package ingestworker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kgraph/kgraph/internal/apperr"
	"github.com/kgraph/kgraph/internal/chunker"
	"github.com/kgraph/kgraph/internal/conceptmatch"
	"github.com/kgraph/kgraph/internal/config"
	"github.com/kgraph/kgraph/internal/embedclient"
	"github.com/kgraph/kgraph/internal/graphstore"
	"github.com/kgraph/kgraph/internal/jobqueue"
	"github.com/kgraph/kgraph/internal/llmclient"
	"github.com/kgraph/kgraph/internal/model"
	"github.com/kgraph/kgraph/internal/objectstore"
	"github.com/kgraph/kgraph/internal/observability"
	"github.com/kgraph/kgraph/internal/vocabulary"
)

const maxChunkAttempts = 3

// errChunkExtraction marks a chunk whose extraction failed on every attempt.
var errChunkExtraction = errors.New("extract chunk")

// Worker implements jobqueue.Runner, wiring together every pipeline stage
// behind one job.
type Worker struct {
	chunkerCfg config.ChunkerConfig
	extractor  llmclient.Provider
	embedder   embedclient.Client
	vocab      *vocabulary.Manager
	matcher    *conceptmatch.Matcher
	store      graphstore.Store
	objects    objectstore.ObjectStore
}

func New(chunkerCfg config.ChunkerConfig, extractor llmclient.Provider, embedder embedclient.Client, vocab *vocabulary.Manager, matcher *conceptmatch.Matcher, store graphstore.Store, objects objectstore.ObjectStore) *Worker {
	return &Worker{chunkerCfg: chunkerCfg, extractor: extractor, embedder: embedder, vocab: vocab, matcher: matcher, store: store, objects: objects}
}

var _ jobqueue.Runner = (*Worker)(nil)

// Run implements jobqueue.Runner. It is safe to call from any of the
// scheduler's worker goroutines; all shared state it touches (vocabulary
// manager, concept matcher, graph store) is itself concurrency-safe.
func (w *Worker) Run(ctx context.Context, job model.Job, progress jobqueue.ProgressFunc) (model.Job, error) {
	log := observability.Component("ingestworker")

	// Image-as-document (spec §4.1, §1 "PDFs-as-images") never has text to
	// chunk; it goes straight to embed_image and a single image-backed
	// Source/Concept instead of the text pipeline below.
	if job.Type == model.JobTypeIngestImage {
		return w.runImage(ctx, job, progress)
	}

	// /ingest/file stages raw bytes in the object store and submits the job
	// with ObjectKey set and Text empty (spec §6); fetch and decode them as
	// text before chunking.
	if job.Params.Text == "" && job.Params.ObjectKey != "" {
		text, err := w.fetchObjectText(ctx, job.Params.ObjectKey)
		if err != nil {
			return job, fmt.Errorf("fetch staged object: %w", err)
		}
		job.Params.Text = text
	}

	doc, isNew, err := w.ensureDocument(ctx, job)
	if err != nil {
		return job, fmt.Errorf("ensure document: %w", err)
	}
	if !isNew && !job.Params.ForceReingest {
		job.ResultSummary = fmt.Sprintf("document %s already ingested; no-op (force_reingest not set)", doc.ID)
		return job, nil
	}

	opt := chunker.Options{TargetWords: w.chunkerCfg.TargetWords, OverlapWords: w.chunkerCfg.OverlapWords}
	if job.Params.TargetWords > 0 {
		opt.TargetWords = job.Params.TargetWords
	}
	if job.Params.OverlapWords > 0 {
		opt.OverlapWords = job.Params.OverlapWords
	}
	chunks := chunker.Split(job.Params.Text, opt)
	job.Progress.TotalChunks = len(chunks)
	if err := progress(ctx, job); err != nil {
		return job, fmt.Errorf("persist initial progress: %w", err)
	}

	// Serial by default (spec §4.7): later chunks observe concepts created by
	// earlier ones, improving reuse. Parallel mode is a deployment choice left
	// to a future fan-out runner; the content-hash-keyed matcher already
	// makes concurrent chunk processing collision-safe if one is added.
	labelToConceptID := make(map[string]string)
	for _, c := range chunks {
		if job.CancelRequested {
			job.PartialWrites = job.Progress.ChunksDone > 0
			return job, nil
		}

		src := model.Source{
			ID:         sourceID(doc.ID, c.Index),
			Text:       c.Text,
			Ordinal:    c.Index,
			DocumentID: doc.ID,
			Ontology:   job.Ontology,
		}
		if err := w.store.CreateSource(ctx, src); err != nil {
			return job, fmt.Errorf("create source for chunk %d: %w", c.Index, err)
		}

		if err := w.processChunk(ctx, job.Ontology, src, labelToConceptID, &job.Progress); err != nil {
			if !errors.Is(err, errChunkExtraction) {
				return job, fmt.Errorf("chunk %d: %w", c.Index, err)
			}
			job.Errors = append(job.Errors, model.JobError{ChunkIndex: c.Index, Message: err.Error(), OccurredAt: time.Now()})
			log.Warn().Err(err).Int("chunk_index", c.Index).Str("job_id", job.ID).Msg("chunk extraction failed after retries; skipping")
			job.Progress.ChunksDone++
			if perr := progress(ctx, job); perr != nil {
				return job, fmt.Errorf("persist progress after chunk %d failure: %w", c.Index, perr)
			}
			continue
		}

		job.Progress.ChunksDone++
		if err := progress(ctx, job); err != nil {
			return job, fmt.Errorf("persist progress after chunk %d: %w", c.Index, err)
		}
	}

	job.ActualCost = job.Progress.Cost
	return job, nil
}

// processChunk runs steps 2-6 of the per-chunk sequence for one chunk,
// retrying the Extract call (the part that can fail transiently on a
// provider call) up to maxChunkAttempts times before giving up on the chunk
// with an errChunkExtraction error. Errors from the later steps are
// returned without retry.
func (w *Worker) processChunk(ctx context.Context, ontology string, src model.Source, labelToConceptID map[string]string, prog *model.JobProgress) error {
	var result llmclient.ExtractionResult
	var usage llmclient.Usage
	var err error
	for attempt := 1; attempt <= maxChunkAttempts; attempt++ {
		result, usage, err = w.extractor.Extract(ctx, llmclient.Request{
			ChunkText:        src.Text,
			ActiveVocabulary: w.vocab.ActiveNames(),
			Ontology:         ontology,
		})
		if err == nil {
			break
		}
		if attempt == maxChunkAttempts {
			return fmt.Errorf("%w after %d attempts: %w", errChunkExtraction, maxChunkAttempts, err)
		}
	}
	prog.TokensIn += usage.InputTokens
	prog.TokensOut += usage.OutputTokens
	prog.Cost += estimateUsageCost(usage)

	for _, ec := range result.Concepts {
		if _, exists := labelToConceptID[ec.Label]; exists {
			continue
		}
		res, err := w.matcher.MatchOrCreate(ctx, conceptmatch.Candidate{
			Label:       ec.Label,
			Description: ec.Description,
			SearchTerms: ec.SearchTerms,
		}, ontology)
		if err != nil {
			return fmt.Errorf("match_or_create concept %q: %w", ec.Label, err)
		}
		labelToConceptID[ec.Label] = res.ConceptID
		if res.Reused {
			prog.ConceptsReused++
		} else {
			prog.ConceptsCreated++
		}
	}

	for _, inst := range result.Instances {
		conceptID, ok := labelToConceptID[inst.ConceptLabel]
		if !ok {
			continue // defensive: ParseExtractionResult already enforces this invariant upstream
		}
		if err := w.store.CreateInstance(ctx, model.Instance{ConceptID: conceptID, SourceID: src.ID, Quote: inst.Quote}); err != nil {
			return fmt.Errorf("create instance for %q: %w", inst.ConceptLabel, err)
		}
		prog.InstancesCreated++
	}

	for _, rel := range result.Relationships {
		fromID, okFrom := labelToConceptID[rel.FromLabel]
		toID, okTo := labelToConceptID[rel.ToLabel]
		if !okFrom || !okTo {
			continue
		}
		resolvedType, created, err := w.vocab.ResolveType(ctx, rel.Type, fmt.Sprintf("%s -> %s", rel.FromLabel, rel.ToLabel))
		if err != nil {
			return fmt.Errorf("resolve relationship type %q: %w", rel.Type, err)
		}
		if created {
			prog.NewTypesCreated++
		}
		confidence := rel.Confidence
		if confidence <= 0 {
			confidence = 1
		}
		if _, err := w.store.UpsertRelationship(ctx, fromID, toID, resolvedType, confidence, src.ID); err != nil {
			return fmt.Errorf("upsert relationship %s->%s: %w", rel.FromLabel, rel.ToLabel, err)
		}
		prog.EdgesCreated++
	}

	return nil
}

// fetchObjectText reads a staged object's full content and decodes it as
// text, for /ingest/file jobs (spec §6) whose bytes were staged ahead of
// the job rather than submitted inline.
func (w *Worker) fetchObjectText(ctx context.Context, key string) (string, error) {
	r, _, err := w.objects.Get(ctx, key)
	if err != nil {
		return "", err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// runImage ingests an image-as-document job (spec §4.1, §1): the staged
// object is embedded directly via the Embedding Client's embed_image
// contract (spec §4.3) and resolved to a single concept by visual
// similarity, rather than chunked and run through the text extractor.
func (w *Worker) runImage(ctx context.Context, job model.Job, progress jobqueue.ProgressFunc) (model.Job, error) {
	if job.Params.ObjectKey == "" {
		return job, apperr.Validation("image ingestion job %s has no staged object", job.ID)
	}

	r, attrs, err := w.objects.Get(ctx, job.Params.ObjectKey)
	if err != nil {
		return job, fmt.Errorf("fetch staged image: %w", err)
	}
	data, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		return job, fmt.Errorf("read staged image: %w", err)
	}

	hash := contentHashBytes(data)
	doc, isNew, err := w.store.CreateDocument(ctx, model.Document{
		ID:          documentID(job.Ontology, hash),
		ContentHash: hash,
		Filename:    job.Params.Filename,
		Ontology:    job.Ontology,
		ContentType: model.ContentTypeImage,
		MIME:        job.Params.MIME,
		Size:        attrs.Size,
		ObjectKey:   job.Params.ObjectKey,
		IngestedAt:  time.Now(),
	})
	if err != nil {
		return job, fmt.Errorf("create document: %w", err)
	}
	if !isNew && !job.Params.ForceReingest {
		job.ResultSummary = fmt.Sprintf("document %s already ingested; no-op (force_reingest not set)", doc.ID)
		return job, nil
	}

	job.Progress.TotalChunks = 1
	if err := progress(ctx, job); err != nil {
		return job, fmt.Errorf("persist initial progress: %w", err)
	}

	vec, err := w.embedder.EmbedImage(ctx, data, job.Params.MIME)
	if err != nil {
		return job, fmt.Errorf("embed image: %w", err)
	}

	src := model.Source{
		ID:             sourceID(doc.ID, 0),
		Ordinal:        0,
		DocumentID:     doc.ID,
		ImageObjectKey: job.Params.ObjectKey,
		Ontology:       job.Ontology,
	}
	if err := w.store.CreateSource(ctx, src); err != nil {
		return job, fmt.Errorf("create image source: %w", err)
	}

	label := job.Params.Filename
	if label == "" {
		label = doc.ID
	}
	res, err := w.matcher.MatchOrCreateWithImage(ctx, conceptmatch.Candidate{Label: label}, vec, job.Ontology)
	if err != nil {
		return job, fmt.Errorf("match_or_create image concept: %w", err)
	}
	if res.Reused {
		job.Progress.ConceptsReused++
	} else {
		job.Progress.ConceptsCreated++
	}
	if err := w.store.CreateInstance(ctx, model.Instance{ConceptID: res.ConceptID, SourceID: src.ID, Quote: label}); err != nil {
		return job, fmt.Errorf("create image instance: %w", err)
	}
	job.Progress.InstancesCreated++
	job.Progress.ChunksDone = 1
	if err := progress(ctx, job); err != nil {
		return job, fmt.Errorf("persist final progress: %w", err)
	}

	job.ActualCost = job.Progress.Cost
	return job, nil
}

// ensureDocument creates the Document record for this job's content,
// returning the existing record (isNew=false) if the same (ontology,
// content hash) pair has already been ingested — the content-hash dedup
// invariant of spec §4.
func (w *Worker) ensureDocument(ctx context.Context, job model.Job) (model.Document, bool, error) {
	if job.Params.Text == "" {
		return model.Document{}, false, apperr.Validation("ingestion job %s has no text to chunk", job.ID)
	}
	hash := contentHash(job.Params.Text)
	doc := model.Document{
		ID:          documentID(job.Ontology, hash),
		ContentHash: hash,
		Filename:    job.Params.Filename,
		Ontology:    job.Ontology,
		ContentType: model.ContentTypeText,
		MIME:        job.Params.MIME,
		Size:        int64(len(job.Params.Text)),
		ObjectKey:   job.Params.ObjectKey,
		IngestedAt:  time.Now(),
	}
	return w.store.CreateDocument(ctx, doc)
}

func contentHash(text string) string {
	return contentHashBytes([]byte(text))
}

func contentHashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func documentID(ontology, hash string) string {
	return "doc_" + ontology + "_" + hash[:24]
}

func sourceID(documentID string, ordinal int) string {
	return fmt.Sprintf("%s_src_%d", documentID, ordinal)
}

// estimateUsageCost prices actual reported token usage at the same rates
// jobqueue.ChunkEstimator uses for its pre-flight estimate, keeping
// estimated and actual cost comparable.
func estimateUsageCost(u llmclient.Usage) float64 {
	const (
		costPerInputToken  = 0.000003
		costPerOutputToken = 0.000015
	)
	return float64(u.InputTokens)*costPerInputToken + float64(u.OutputTokens)*costPerOutputToken
}
