package ingestworker

import (
	"context"
	"strings"
	"testing"

	"github.com/kgraph/kgraph/internal/config"
	"github.com/kgraph/kgraph/internal/conceptmatch"
	"github.com/kgraph/kgraph/internal/embedclient"
	"github.com/kgraph/kgraph/internal/graphstore"
	"github.com/kgraph/kgraph/internal/jobqueue"
	"github.com/kgraph/kgraph/internal/llmclient"
	"github.com/kgraph/kgraph/internal/model"
	"github.com/kgraph/kgraph/internal/objectstore"
	"github.com/kgraph/kgraph/internal/vectorindex"
	"github.com/kgraph/kgraph/internal/vocabulary"
)

// scriptedExtractor returns one canned ExtractionResult per call, in order,
// regardless of the chunk text it's handed.
type scriptedExtractor struct {
	results []llmclient.ExtractionResult
	calls   int
}

func (e *scriptedExtractor) Extract(_ context.Context, _ llmclient.Request) (llmclient.ExtractionResult, llmclient.Usage, error) {
	i := e.calls
	e.calls++
	if i >= len(e.results) {
		return llmclient.ExtractionResult{}, llmclient.Usage{}, nil
	}
	return e.results[i], llmclient.Usage{InputTokens: 100, OutputTokens: 50}, nil
}

func newTestWorker(t *testing.T, extractor llmclient.Provider) (*Worker, graphstore.Store) {
	t.Helper()
	w, store, _ := newTestWorkerWithObjects(t, extractor)
	return w, store
}

func newTestWorkerWithObjects(t *testing.T, extractor llmclient.Provider) (*Worker, graphstore.Store, objectstore.ObjectStore) {
	t.Helper()
	ctx := context.Background()
	emb := embedclient.NewDeterministic(8)

	vocabCfg := config.VocabularyConfig{ConsolidationThreshold: 0.9, ZoneOptimalMax: 90, ZoneMixedMax: 150, ZoneTooLargeMax: 300}
	vocab, err := vocabulary.New(ctx, vocabCfg, emb, nil)
	if err != nil {
		t.Fatalf("vocabulary.New: %v", err)
	}

	idx := vectorindex.NewMemory(8)
	store := graphstore.NewMemory(idx)
	matcher := conceptmatch.New(emb, idx, store, config.ConceptMatchConfig{DefaultThreshold: 0.8})

	chunkerCfg := config.ChunkerConfig{TargetWords: 50, OverlapWords: 5}
	objects := objectstore.NewMemoryStore()
	return New(chunkerCfg, extractor, emb, vocab, matcher, store, objects), store, objects
}

func noopProgress(context.Context, model.Job) error { return nil }

func oneConceptResult(label, quote string) llmclient.ExtractionResult {
	return llmclient.ExtractionResult{
		Concepts:  []llmclient.ExtractedConcept{{Label: label, Description: label + " description", SearchTerms: []string{label}}},
		Instances: []llmclient.ExtractedInstance{{ConceptLabel: label, Quote: quote}},
	}
}

func TestRun_IngestsSingleChunkJob(t *testing.T) {
	ctx := context.Background()
	text := "Water boils at one hundred degrees Celsius at sea level pressure."
	extractor := &scriptedExtractor{results: []llmclient.ExtractionResult{oneConceptResult("boiling point", "one hundred degrees Celsius")}}
	w, store := newTestWorker(t, extractor)

	job := model.Job{
		ID:       "job1",
		Type:     model.JobTypeIngestText,
		Ontology: "physics",
		Params:   model.JobParams{Text: text},
	}

	finished, err := w.Run(ctx, job, noopProgress)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if finished.Progress.ChunksDone != finished.Progress.TotalChunks {
		t.Fatalf("ChunksDone=%d TotalChunks=%d, want equal", finished.Progress.ChunksDone, finished.Progress.TotalChunks)
	}
	if finished.Progress.ConceptsCreated != 1 {
		t.Fatalf("ConceptsCreated=%d, want 1", finished.Progress.ConceptsCreated)
	}
	if finished.Progress.InstancesCreated != 1 {
		t.Fatalf("InstancesCreated=%d, want 1", finished.Progress.InstancesCreated)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ConceptCount != 1 {
		t.Fatalf("ConceptCount=%d, want 1", stats.ConceptCount)
	}
}

func TestRun_ReingestingSameContentIsNoOp(t *testing.T) {
	ctx := context.Background()
	text := "Gravity pulls objects toward the center of the earth."
	extractor := &scriptedExtractor{results: []llmclient.ExtractionResult{oneConceptResult("gravity", "Gravity pulls objects")}}
	w, store := newTestWorker(t, extractor)

	job := model.Job{ID: "job1", Ontology: "physics", Params: model.JobParams{Text: text}}
	if _, err := w.Run(ctx, job, noopProgress); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	job2 := model.Job{ID: "job2", Ontology: "physics", Params: model.JobParams{Text: text}}
	second, err := w.Run(ctx, job2, noopProgress)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.Progress.ConceptsCreated != 0 {
		t.Fatalf("expected no-op re-ingestion to create no concepts, got %d", second.Progress.ConceptsCreated)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ConceptCount != 1 {
		t.Fatalf("ConceptCount=%d, want 1 (no duplicate document ingested)", stats.ConceptCount)
	}
}

func TestRun_ForceReingestReprocesses(t *testing.T) {
	ctx := context.Background()
	text := "Photosynthesis converts light energy into chemical energy."
	extractor := &scriptedExtractor{results: []llmclient.ExtractionResult{
		oneConceptResult("photosynthesis", "Photosynthesis converts light energy"),
		oneConceptResult("photosynthesis", "Photosynthesis converts light energy"),
	}}
	w, _ := newTestWorker(t, extractor)

	job := model.Job{ID: "job1", Ontology: "biology", Params: model.JobParams{Text: text}}
	if _, err := w.Run(ctx, job, noopProgress); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	job2 := model.Job{ID: "job2", Ontology: "biology", Params: model.JobParams{Text: text, ForceReingest: true}}
	second, err := w.Run(ctx, job2, noopProgress)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.Progress.ConceptsReused != 1 {
		t.Fatalf("expected the re-ingested chunk to reuse the existing concept, got %d reused", second.Progress.ConceptsReused)
	}
}

func TestRun_CancelRequestedStopsBetweenChunks(t *testing.T) {
	ctx := context.Background()
	longText := ""
	for i := 0; i < 400; i++ {
		longText += "word "
	}
	extractor := &scriptedExtractor{}
	w, _ := newTestWorker(t, extractor)

	job := model.Job{
		ID:              "job1",
		Ontology:        "physics",
		Params:          model.JobParams{Text: longText},
		CancelRequested: true,
	}
	finished, err := w.Run(ctx, job, noopProgress)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if finished.Progress.ChunksDone != 0 {
		t.Fatalf("expected cancellation before any chunk processed, got ChunksDone=%d", finished.Progress.ChunksDone)
	}
}

func TestRun_FileJobFetchesStagedObjectAsText(t *testing.T) {
	ctx := context.Background()
	text := "Mitochondria are the powerhouse of the cell."
	extractor := &scriptedExtractor{results: []llmclient.ExtractionResult{oneConceptResult("mitochondria", "powerhouse of the cell")}}
	w, store, objects := newTestWorkerWithObjects(t, extractor)

	if _, err := objects.Put(ctx, "uploads/bio/notes.txt", strings.NewReader(text), objectstore.PutOptions{ContentType: "text/plain"}); err != nil {
		t.Fatalf("stage object: %v", err)
	}

	job := model.Job{
		ID:       "job1",
		Type:     model.JobTypeIngestFile,
		Ontology: "biology",
		Params:   model.JobParams{ObjectKey: "uploads/bio/notes.txt", Filename: "notes.txt", MIME: "text/plain"},
	}

	finished, err := w.Run(ctx, job, noopProgress)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if finished.Progress.ConceptsCreated != 1 {
		t.Fatalf("ConceptsCreated=%d, want 1", finished.Progress.ConceptsCreated)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ConceptCount != 1 {
		t.Fatalf("ConceptCount=%d, want 1", stats.ConceptCount)
	}
}

func TestRun_ImageJobEmbedsStagedObjectDirectly(t *testing.T) {
	ctx := context.Background()
	w, store, objects := newTestWorkerWithObjects(t, &scriptedExtractor{})

	if _, err := objects.Put(ctx, "uploads/diagram.png", strings.NewReader("fake-png-bytes"), objectstore.PutOptions{ContentType: "image/png"}); err != nil {
		t.Fatalf("stage object: %v", err)
	}

	job := model.Job{
		ID:       "job1",
		Type:     model.JobTypeIngestImage,
		Ontology: "diagrams",
		Params:   model.JobParams{ObjectKey: "uploads/diagram.png", Filename: "diagram.png", MIME: "image/png"},
	}

	finished, err := w.Run(ctx, job, noopProgress)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if finished.Progress.ConceptsCreated != 1 {
		t.Fatalf("ConceptsCreated=%d, want 1", finished.Progress.ConceptsCreated)
	}
	if finished.Progress.InstancesCreated != 1 {
		t.Fatalf("InstancesCreated=%d, want 1", finished.Progress.InstancesCreated)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ConceptCount != 1 {
		t.Fatalf("ConceptCount=%d, want 1", stats.ConceptCount)
	}
	if stats.SourceCount != 1 {
		t.Fatalf("SourceCount=%d, want 1", stats.SourceCount)
	}
}

var _ jobqueue.Runner = (*Worker)(nil)
