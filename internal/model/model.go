// Package model defines the data model shared by the ingestion pipeline,
// the query engine, and the vocabulary manager: Concept, Source, Instance,
// Relationship, Document, Ontology, VocabularyType, and Job.
package model

import "time"

// Concept is the semantic unit of the graph.
type Concept struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
	SearchTerms []string  `json:"search_terms"`
	Embedding   []float32 `json:"embedding,omitempty"`
	Ontology    string    `json:"ontology"`
	CreatedAt   time.Time `json:"created_at"`
}

// Source is an immutable evidence chunk belonging to a Document.
type Source struct {
	ID             string    `json:"id"`
	Text           string    `json:"text"`
	Ordinal        int       `json:"ordinal"`
	DocumentID     string    `json:"document_id"`
	ImageObjectKey string    `json:"image_object_key,omitempty"`
	Ontology       string    `json:"ontology"`
}

// Instance is an appearance of a Concept in a Source.
type Instance struct {
	ConceptID string `json:"concept_id"`
	SourceID  string `json:"source_id"`
	Quote     string `json:"quote"`
}

// Relationship is a directed, typed, confidence-weighted edge between two Concepts.
type Relationship struct {
	ID         string    `json:"id"`
	FromID     string    `json:"from_id"`
	ToID       string    `json:"to_id"`
	Type       string    `json:"type"`
	Confidence float64   `json:"confidence"`
	Evidence   []string  `json:"evidence"` // source ids
	CreatedAt  time.Time `json:"created_at"`
}

// ContentType distinguishes text documents from image-as-document ingestion.
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
)

// Document is a logical unit of ingested content, unique by (Ontology,
// ContentHash).
type Document struct {
	ID            string      `json:"id"`
	ContentHash   string      `json:"content_hash"`
	Filename      string      `json:"filename"`
	Ontology      string      `json:"ontology"`
	ContentType   ContentType `json:"content_type"`
	MIME          string      `json:"mime"`
	Size          int64       `json:"size"`
	ObjectKey     string      `json:"object_key,omitempty"`
	IngestedAt    time.Time   `json:"ingested_at"`
}

// VocabularyType is a named relationship kind owned by the Vocabulary Manager.
type VocabularyType struct {
	Name       string    `json:"name"`
	Active     bool      `json:"active"`
	Builtin    bool      `json:"builtin"`
	Category   string    `json:"category"`
	Ambiguous  bool      `json:"ambiguous"`
	Embedding  []float32 `json:"embedding,omitempty"`
	UsageCount int       `json:"usage_count"`
	MergedInto string    `json:"merged_into,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// VocabularyHistoryEntry is one append-only row of a type's history trail.
type VocabularyHistoryEntry struct {
	TypeName   string    `json:"type_name"`
	Action     string    `json:"action"` // created|merged|rejected|reactivated
	Detail     string    `json:"detail"`
	OccurredAt time.Time `json:"occurred_at"`
}

// JobStatus is a node in the job state machine of spec §4.7.
type JobStatus string

const (
	JobSubmitted        JobStatus = "submitted"
	JobAwaitingApproval JobStatus = "awaiting_approval"
	JobApproved         JobStatus = "approved"
	JobRunning          JobStatus = "running"
	JobCompleted        JobStatus = "completed"
	JobFailed           JobStatus = "failed"
	JobCancelled        JobStatus = "cancelled"
	JobExpired          JobStatus = "expired"
)

// JobType enumerates the kinds of work the queue dispatches.
type JobType string

const (
	JobTypeIngestText  JobType = "ingest_text"
	JobTypeIngestFile  JobType = "ingest_file"
	JobTypeIngestImage JobType = "ingest_image"
)

// JobError records a single failed chunk within a job.
type JobError struct {
	ChunkIndex int       `json:"chunk_index"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// JobProgress holds the running counters updated at each ingestion step (§4.7.7).
type JobProgress struct {
	ChunksDone       int     `json:"chunks_done"`
	TotalChunks      int     `json:"total_chunks"`
	ConceptsCreated  int     `json:"concepts_created"`
	ConceptsReused   int     `json:"concepts_reused"`
	InstancesCreated int     `json:"instances_created"`
	EdgesCreated     int     `json:"edges_created"`
	NewTypesCreated  int     `json:"new_types_created"`
	TokensIn         int64   `json:"tokens_in"`
	TokensOut        int64   `json:"tokens_out"`
	Cost             float64 `json:"cost"`
}

// Job is the persistent record of an ingestion or maintenance task.
type Job struct {
	ID             string      `json:"id"`
	Type           JobType     `json:"type"`
	Status         JobStatus   `json:"status"`
	Owner          string      `json:"owner"`
	Ontology       string      `json:"ontology"`
	Params         JobParams   `json:"params"`
	CostEstimate   float64     `json:"cost_estimate"`
	ActualCost     float64     `json:"actual_cost"`
	Progress       JobProgress `json:"progress"`
	Errors         []JobError  `json:"errors"`
	ResultSummary  string      `json:"result_summary,omitempty"`
	FailureReason  string      `json:"failure_reason,omitempty"`
	Protected      bool        `json:"protected"`
	RunnerID       string      `json:"runner_id,omitempty"`
	CancelRequested bool       `json:"cancel_requested"`
	PartialWrites  bool        `json:"partial_writes"`

	SubmittedAt time.Time  `json:"submitted_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"` // pending-approval deadline
}

// JobParams carries the caller-supplied ingestion parameters (spec §6).
type JobParams struct {
	Text          string `json:"text,omitempty"`
	Filename      string `json:"filename,omitempty"`
	ObjectKey     string `json:"object_key,omitempty"`
	MIME          string `json:"mime,omitempty"`
	ForceReingest bool   `json:"force_reingest"`
	AutoApprove   bool   `json:"auto_approve"`
	TargetWords   int    `json:"target_words,omitempty"`
	OverlapWords  int    `json:"overlap_words,omitempty"`
	Parallel      bool   `json:"parallel,omitempty"`
}

// Ontology is a non-hierarchical named container tag.
type Ontology struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
