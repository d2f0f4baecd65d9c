// Package config loads the runtime configuration for the ingestion and
// query engine: server bindings, storage backends, LLM and embedding
// provider selection, job-queue policy, and vocabulary-manager defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kgraph/kgraph/internal/observability"
)

// ServerConfig controls the HTTP API listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig is the Postgres connection used by the graph store.
type DatabaseConfig struct {
	DSN         string `yaml:"dsn"`
	MaxConns    int32  `yaml:"max_conns"`
}

// VectorIndexConfig selects and configures the similarity-search backend.
type VectorIndexConfig struct {
	Backend    string `yaml:"backend"` // "qdrant" | "pgvector" | "memory"
	Dimensions int    `yaml:"dimensions"`

	QdrantHost       string `yaml:"qdrant_host"`
	QdrantPort       int    `yaml:"qdrant_port"`
	QdrantAPIKey     string `yaml:"qdrant_api_key,omitempty"`
	QdrantCollection string `yaml:"qdrant_collection"`
	QdrantUseTLS     bool   `yaml:"qdrant_use_tls"`
}

// S3SSEConfig configures server-side encryption for objects written to the store.
type S3SSEConfig struct {
	Mode     string `yaml:"mode,omitempty"` // "sse-s3" | "sse-kms"
	KMSKeyID string `yaml:"kms_key_id,omitempty"`
}

// ObjectStoreConfig is the S3-compatible bucket used for source documents
// and images referenced by Source.ImageObjectKey / Document.ObjectKey.
type ObjectStoreConfig struct {
	Bucket                string      `yaml:"bucket"`
	Region                string      `yaml:"region"`
	Endpoint              string      `yaml:"endpoint,omitempty"`
	AccessKey             string      `yaml:"access_key,omitempty"`
	SecretKey             string      `yaml:"secret_key,omitempty"`
	Prefix                string      `yaml:"prefix,omitempty"`
	UsePathStyle          bool        `yaml:"use_path_style"`
	TLSInsecureSkipVerify bool        `yaml:"tls_insecure_skip_verify,omitempty"`
	SSE                   S3SSEConfig `yaml:"sse,omitempty"`
}

// LLMConfig selects the extraction-provider used by the ingestion worker.
type LLMConfig struct {
	Provider string `yaml:"provider"` // "anthropic" | "openai"

	AnthropicAPIKey string `yaml:"anthropic_api_key,omitempty"`
	AnthropicModel  string `yaml:"anthropic_model,omitempty"`

	OpenAIAPIKey  string `yaml:"openai_api_key,omitempty"`
	OpenAIModel   string `yaml:"openai_model,omitempty"`
	OpenAIBaseURL string `yaml:"openai_base_url,omitempty"`
}

// EmbeddingConfig selects the embedding provider used by concept dedup,
// vocabulary matching, and the polarity axis projector.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	Host       string `yaml:"host"`
	APIKey     string `yaml:"api_key,omitempty"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// AuthConfig controls decode-only JWT/OIDC verification for the API.
type AuthConfig struct {
	SecretKey     string `yaml:"secret_key"`
	TokenExpiry   int    `yaml:"token_expiry_hours"`
	OIDCIssuer    string `yaml:"oidc_issuer,omitempty"`
	OIDCClientID  string `yaml:"oidc_client_id,omitempty"`
}

// JobQueueConfig tunes the scheduler of spec §4.7/§4.8.
type JobQueueConfig struct {
	MaxWorkers            int     `yaml:"max_workers"`
	ApprovalTimeoutHours  int     `yaml:"approval_timeout_hours"`
	RetentionDays         int     `yaml:"retention_days"`
	AutoApproveBelowCost  float64 `yaml:"auto_approve_below_cost"`
	StaleRunningAfterMins int     `yaml:"stale_running_after_minutes"`
}

// ChunkerConfig is the default chunking policy (spec §4.1), overridable
// per job via JobParams.
type ChunkerConfig struct {
	TargetWords  int `yaml:"target_words"`
	OverlapWords int `yaml:"overlap_words"`
}

// VocabularyConfig tunes the auto-expanding vocabulary manager (spec §4.4).
type VocabularyConfig struct {
	ConsolidationThreshold float64 `yaml:"consolidation_threshold"`
	ZoneOptimalMax         int     `yaml:"zone_optimal_max"`
	ZoneMixedMax           int     `yaml:"zone_mixed_max"`
	ZoneTooLargeMax        int     `yaml:"zone_too_large_max"`
}

// ConceptMatchConfig tunes concept dedup (spec §4.5).
type ConceptMatchConfig struct {
	DefaultThreshold float64 `yaml:"default_threshold"`
}

// Config is the top-level configuration for both cmd/kgserver and cmd/kg.
type Config struct {
	LogPath  string `yaml:"log_path,omitempty"`
	LogLevel string `yaml:"log_level"`

	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	VectorIndex  VectorIndexConfig  `yaml:"vector_index"`
	ObjectStore  ObjectStoreConfig  `yaml:"object_store"`
	LLM          LLMConfig          `yaml:"llm"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	Auth         AuthConfig         `yaml:"auth"`
	Jobs         JobQueueConfig     `yaml:"jobs"`
	Chunker      ChunkerConfig      `yaml:"chunker"`
	Vocabulary   VocabularyConfig   `yaml:"vocabulary"`
	ConceptMatch ConceptMatchConfig `yaml:"concept_match"`
	OTel         observability.TelemetryConfig `yaml:"otel"`
}

// applyDefaults fills in zero-valued fields that must never be the empty
// value at runtime. Values explicitly set in the YAML file or by an
// environment override (see Load) win over these.
func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8085
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.VectorIndex.Backend == "" {
		cfg.VectorIndex.Backend = "qdrant"
	}
	if cfg.VectorIndex.Dimensions == 0 {
		cfg.VectorIndex.Dimensions = 1536
	}
	if cfg.VectorIndex.QdrantCollection == "" {
		cfg.VectorIndex.QdrantCollection = "concepts"
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "anthropic"
	}
	if cfg.LLM.AnthropicModel == "" {
		cfg.LLM.AnthropicModel = "claude-sonnet-4-5"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = cfg.VectorIndex.Dimensions
	}
	if cfg.Auth.SecretKey == "" {
		cfg.Auth.SecretKey = "insecure-development-secret"
	}
	if cfg.Auth.TokenExpiry <= 0 {
		cfg.Auth.TokenExpiry = 72
	}
	if cfg.Jobs.MaxWorkers <= 0 {
		cfg.Jobs.MaxWorkers = 4
	}
	if cfg.Jobs.ApprovalTimeoutHours <= 0 {
		cfg.Jobs.ApprovalTimeoutHours = 24
	}
	if cfg.Jobs.RetentionDays <= 0 {
		cfg.Jobs.RetentionDays = 30
	}
	if cfg.Jobs.StaleRunningAfterMins <= 0 {
		cfg.Jobs.StaleRunningAfterMins = 30
	}
	if cfg.Chunker.TargetWords <= 0 {
		cfg.Chunker.TargetWords = 1000
	}
	if cfg.Chunker.OverlapWords <= 0 {
		cfg.Chunker.OverlapWords = 200
	}
	if cfg.Vocabulary.ConsolidationThreshold == 0 {
		cfg.Vocabulary.ConsolidationThreshold = 0.85
	}
	if cfg.Vocabulary.ZoneOptimalMax == 0 {
		cfg.Vocabulary.ZoneOptimalMax = 90
	}
	if cfg.Vocabulary.ZoneMixedMax == 0 {
		cfg.Vocabulary.ZoneMixedMax = 120
	}
	if cfg.Vocabulary.ZoneTooLargeMax == 0 {
		cfg.Vocabulary.ZoneTooLargeMax = 200
	}
	if cfg.ConceptMatch.DefaultThreshold == 0 {
		cfg.ConceptMatch.DefaultThreshold = 0.80
	}
	if cfg.OTel.ServiceName == "" {
		cfg.OTel.ServiceName = "kgraph"
	}
}

// LoadConfig reads the configuration from a YAML file and fills in any
// unset fields with the module's defaults.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}
