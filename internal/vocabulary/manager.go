// Package vocabulary owns the dynamic, auto-expanding relationship-type
// vocabulary: builtin seed types, fuzzy-matched auto-expansion, zone-based
// growth tracking, and an LLM-adjudicated consolidation engine (spec §4.4).
package vocabulary

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/antzucaro/matchr"

	"github.com/kgraph/kgraph/internal/config"
	"github.com/kgraph/kgraph/internal/embedclient"
	"github.com/kgraph/kgraph/internal/model"
	"github.com/kgraph/kgraph/internal/vecmath"
)

// Repository persists vocabulary state across process restarts. The
// in-process Manager is the sole read/write path; Repository is its
// durability layer.
type Repository interface {
	LoadAll(ctx context.Context) ([]model.VocabularyType, error)
	Save(ctx context.Context, t model.VocabularyType) error
	AppendHistory(ctx context.Context, e model.VocabularyHistoryEntry) error
	// History returns a type's append-only history trail, oldest first
	// (spec §6 supplemented `GET /vocabulary/{name}/history`).
	History(ctx context.Context, typeName string) ([]model.VocabularyHistoryEntry, error)
}

const (
	fuzzyEditDistanceMax  = 2
	fuzzyCosineSimilarity = 0.92
	ambiguousRatio        = 0.8
)

// Manager is the process-wide vocabulary state. Reads (type lookups during
// edge creation) take a read-lock; mutations (new type, consolidation) take
// the write-lock, per spec §5's reader/writer lock requirement.
type Manager struct {
	mu   sync.RWMutex
	repo Repository
	emb  embedclient.Client
	cfg  config.VocabularyConfig

	types         map[string]*model.VocabularyType // name -> type, includes inactive
	categorySeeds map[Category][]float32
	rejectedPairs map[string]bool // process-lifetime consolidation rejections
}

// New builds a Manager and embeds the builtin seed types and category seed
// phrases. Call LoadRepository afterward to layer in any previously created
// non-builtin types from storage.
func New(ctx context.Context, cfg config.VocabularyConfig, emb embedclient.Client, repo Repository) (*Manager, error) {
	m := &Manager{
		repo:          repo,
		emb:           emb,
		cfg:           cfg,
		types:         make(map[string]*model.VocabularyType),
		categorySeeds: make(map[Category][]float32),
		rejectedPairs: make(map[string]bool),
	}

	for cat, phrase := range categorySeedPhrases {
		vec, err := emb.EmbedText(ctx, phrase)
		if err != nil {
			return nil, fmt.Errorf("embed category seed %q: %w", cat, err)
		}
		m.categorySeeds[cat] = vec
	}

	now := time.Now()
	for _, s := range BuiltinTypes {
		vec, err := emb.EmbedText(ctx, s.name+": "+s.phrase)
		if err != nil {
			return nil, fmt.Errorf("embed builtin type %q: %w", s.name, err)
		}
		m.types[s.name] = &model.VocabularyType{
			Name: s.name, Active: true, Builtin: true,
			Category: string(s.category), Embedding: vec, CreatedAt: now,
		}
	}

	if repo != nil {
		stored, err := repo.LoadAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("load vocabulary: %w", err)
		}
		for i := range stored {
			t := stored[i]
			if t.Builtin {
				continue // builtins come from the seed above, never storage
			}
			m.types[t.Name] = &t
		}
	}
	return m, nil
}

var nameNormalizeRe = regexp.MustCompile(`[^A-Z0-9]+`)

// NormalizeName uppercases and snake-cases a raw type name emitted by the
// extractor.
func NormalizeName(raw string) string {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	snaked := nameNormalizeRe.ReplaceAllString(upper, "_")
	return strings.Trim(snaked, "_")
}

// ActiveCount returns the number of active types (builtin + non-builtin).
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeCountLocked()
}

func (m *Manager) activeCountLocked() int {
	n := 0
	for _, t := range m.types {
		if t.Active {
			n++
		}
	}
	return n
}

// Zone reports the current growth zone.
func (m *Manager) Zone() Zone {
	return zoneFor(m.ActiveCount(), m.cfg)
}

// ActiveNames returns a snapshot of all active type names, used by the
// ingestion worker to pass the current vocabulary to the LLM Extractor.
func (m *Manager) ActiveNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.types))
	for name, t := range m.types {
		if t.Active {
			out = append(out, name)
		}
	}
	return out
}

// Get returns a copy of the named type, if present.
func (m *Manager) Get(name string) (model.VocabularyType, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.types[name]
	if !ok {
		return model.VocabularyType{}, false
	}
	return *t, true
}

// List returns a snapshot of every known type, active or merged-away, for
// spec §6's `GET /vocabulary/list`.
func (m *Manager) List() []model.VocabularyType {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.VocabularyType, 0, len(m.types))
	for _, t := range m.types {
		out = append(out, *t)
	}
	return out
}

// History returns the named type's append-only history trail, or an empty
// slice if the Manager has no Repository configured.
func (m *Manager) History(ctx context.Context, name string) ([]model.VocabularyHistoryEntry, error) {
	if m.repo == nil {
		return nil, nil
	}
	return m.repo.History(ctx, name)
}

// GenerateEmbeddings backfills the embedding of every type currently
// missing one (spec §6 `POST /vocabulary/generate-embeddings`), which can
// happen when a type is seeded from storage ahead of an embedding-provider
// migration. Returns the number of types updated.
func (m *Manager) GenerateEmbeddings(ctx context.Context) (int, error) {
	m.mu.RLock()
	var pending []string
	for name, t := range m.types {
		if len(t.Embedding) == 0 {
			pending = append(pending, name)
		}
	}
	m.mu.RUnlock()

	updated := 0
	for _, name := range pending {
		m.mu.RLock()
		t, ok := m.types[name]
		m.mu.RUnlock()
		if !ok {
			continue
		}
		vec, err := m.emb.EmbedText(ctx, t.Name)
		if err != nil {
			return updated, fmt.Errorf("embed type %s: %w", t.Name, err)
		}
		m.mu.Lock()
		t.Embedding = vec
		snapshot := *t
		m.mu.Unlock()
		m.persistLocked(ctx, snapshot, "embedded", "embedding backfilled")
		updated++
	}
	return updated, nil
}

// ResolveType implements the auto-expansion algorithm of spec §4.4: routes
// a raw extractor-emitted type name to an existing active type by fuzzy
// match, or creates a new one. descriptivePhrase may be empty.
func (m *Manager) ResolveType(ctx context.Context, rawName, descriptivePhrase string) (resolvedName string, created bool, err error) {
	name := NormalizeName(rawName)
	if name == "" {
		return "", false, fmt.Errorf("empty type name after normalization")
	}

	m.mu.RLock()
	if t, ok := m.types[name]; ok && t.Active {
		m.mu.RUnlock()
		return name, false, nil
	}
	candidateText := name
	if descriptivePhrase != "" {
		candidateText = name + ": " + descriptivePhrase
	}
	m.mu.RUnlock()

	vec, err := m.emb.EmbedText(ctx, candidateText)
	if err != nil {
		return "", false, fmt.Errorf("embed candidate type: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Re-check under the write lock: another goroutine may have resolved
	// this exact name while we were embedding.
	if t, ok := m.types[name]; ok && t.Active {
		return name, false, nil
	}

	if match := m.fuzzyMatchLocked(name, vec); match != "" {
		return match, false, nil
	}

	cat, ambiguous := m.classifyLocked(vec)
	nt := &model.VocabularyType{
		Name: name, Active: true, Builtin: false,
		Category: string(cat), Ambiguous: ambiguous,
		Embedding: vec, CreatedAt: time.Now(),
	}
	m.types[name] = nt
	m.persistLocked(ctx, *nt, "created", "")
	return name, true, nil
}

// fuzzyMatchLocked returns the name of an existing active type matching
// candidate by edit distance <= 2 or embedding cosine similarity >= 0.92.
// Caller holds at least the read lock.
func (m *Manager) fuzzyMatchLocked(candidateName string, candidateVec []float32) string {
	for name, t := range m.types {
		if !t.Active {
			continue
		}
		if dist, err := matchr.Levenshtein(candidateName, name); err == nil && dist <= fuzzyEditDistanceMax {
			return name
		}
		if vecmath.Cosine(candidateVec, t.Embedding) >= fuzzyCosineSimilarity {
			return name
		}
	}
	return ""
}

// classifyLocked auto-categorizes a new type by argmax cosine similarity
// against the pre-embedded category seed vectors, marking it ambiguous if
// the runner-up scores >= 0.8x the winner.
func (m *Manager) classifyLocked(vec []float32) (Category, bool) {
	var best, runnerUp Category
	var bestScore, runnerUpScore float64 = -1, -1
	for cat, seed := range m.categorySeeds {
		score := vecmath.Cosine(vec, seed)
		if score > bestScore {
			runnerUp, runnerUpScore = best, bestScore
			best, bestScore = cat, score
		} else if score > runnerUpScore {
			runnerUp, runnerUpScore = cat, score
		}
	}
	_ = runnerUp
	ambiguous := bestScore > 0 && runnerUpScore >= ambiguousRatio*bestScore
	return best, ambiguous
}

func (m *Manager) persistLocked(ctx context.Context, t model.VocabularyType, action, detail string) {
	if m.repo == nil {
		return
	}
	_ = m.repo.Save(ctx, t)
	_ = m.repo.AppendHistory(ctx, model.VocabularyHistoryEntry{
		TypeName: t.Name, Action: action, Detail: detail, OccurredAt: time.Now(),
	})
}
