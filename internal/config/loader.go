package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Load builds the configuration from (in order of increasing precedence) the
// module defaults, a YAML file at path (if non-empty and present), and
// environment variables (optionally supplied via a .env file). Environment
// variables always win, matching the override model the rest of the pack
// uses for container deployments.
func Load(path string) (*Config, error) {
	_ = godotenv.Overload()

	var cfg *Config
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			cfg = loaded
		}
	}
	if cfg == nil {
		cfg = &Config{}
		applyDefaults(cfg)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_PATH")); v != "" {
		cfg.LogPath = v
	}
	if v := strings.TrimSpace(os.Getenv("SERVER_HOST")); v != "" {
		cfg.Server.Host = v
	}
	if n := intFromEnv("SERVER_PORT", 0); n != 0 {
		cfg.Server.Port = n
	}

	if v := strings.TrimSpace(os.Getenv("DATABASE_DSN")); v != "" {
		cfg.Database.DSN = v
	}
	if n := intFromEnv("DATABASE_MAX_CONNS", 0); n != 0 {
		cfg.Database.MaxConns = int32(n)
	}

	if v := strings.TrimSpace(os.Getenv("VECTOR_INDEX_BACKEND")); v != "" {
		cfg.VectorIndex.Backend = v
	}
	if n := intFromEnv("VECTOR_INDEX_DIMENSIONS", 0); n != 0 {
		cfg.VectorIndex.Dimensions = n
	}
	if v := strings.TrimSpace(os.Getenv("QDRANT_HOST")); v != "" {
		cfg.VectorIndex.QdrantHost = v
	}
	if n := intFromEnv("QDRANT_PORT", 0); n != 0 {
		cfg.VectorIndex.QdrantPort = n
	}
	if v := strings.TrimSpace(os.Getenv("QDRANT_API_KEY")); v != "" {
		cfg.VectorIndex.QdrantAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("QDRANT_COLLECTION")); v != "" {
		cfg.VectorIndex.QdrantCollection = v
	}

	if v := strings.TrimSpace(os.Getenv("OBJECT_STORE_BUCKET")); v != "" {
		cfg.ObjectStore.Bucket = v
	}
	if v := strings.TrimSpace(os.Getenv("OBJECT_STORE_REGION")); v != "" {
		cfg.ObjectStore.Region = v
	}
	if v := firstNonEmpty(strings.TrimSpace(os.Getenv("OBJECT_STORE_ENDPOINT")), strings.TrimSpace(os.Getenv("AWS_ENDPOINT_URL_S3"))); v != "" {
		cfg.ObjectStore.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("OBJECT_STORE_ACCESS_KEY")); v != "" {
		cfg.ObjectStore.AccessKey = v
	}
	if v := strings.TrimSpace(os.Getenv("OBJECT_STORE_SECRET_KEY")); v != "" {
		cfg.ObjectStore.SecretKey = v
	}

	if v := strings.TrimSpace(os.Getenv("LLM_PROVIDER")); v != "" {
		cfg.LLM.Provider = v
	}
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); v != "" {
		cfg.LLM.AnthropicAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_MODEL")); v != "" {
		cfg.LLM.AnthropicModel = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		cfg.LLM.OpenAIAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_MODEL")); v != "" {
		cfg.LLM.OpenAIModel = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")); v != "" {
		cfg.LLM.OpenAIBaseURL = v
	}

	if v := strings.TrimSpace(os.Getenv("EMBEDDING_PROVIDER")); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := strings.TrimSpace(os.Getenv("EMBEDDING_HOST")); v != "" {
		cfg.Embedding.Host = v
	}
	if v := strings.TrimSpace(os.Getenv("EMBEDDING_API_KEY")); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("EMBEDDING_MODEL")); v != "" {
		cfg.Embedding.Model = v
	}
	if n := intFromEnv("EMBEDDING_DIMENSIONS", 0); n != 0 {
		cfg.Embedding.Dimensions = n
	}

	if v := strings.TrimSpace(os.Getenv("AUTH_SECRET_KEY")); v != "" {
		cfg.Auth.SecretKey = v
	}
	if n := intFromEnv("AUTH_TOKEN_EXPIRY_HOURS", 0); n != 0 {
		cfg.Auth.TokenExpiry = n
	}
	if v := strings.TrimSpace(os.Getenv("AUTH_OIDC_ISSUER")); v != "" {
		cfg.Auth.OIDCIssuer = v
	}
	if v := strings.TrimSpace(os.Getenv("AUTH_OIDC_CLIENT_ID")); v != "" {
		cfg.Auth.OIDCClientID = v
	}

	if n := intFromEnv("JOBS_MAX_WORKERS", 0); n != 0 {
		cfg.Jobs.MaxWorkers = n
	}
	if n := intFromEnv("JOBS_APPROVAL_TIMEOUT_HOURS", 0); n != 0 {
		cfg.Jobs.ApprovalTimeoutHours = n
	}
	if n := intFromEnv("JOBS_RETENTION_DAYS", 0); n != 0 {
		cfg.Jobs.RetentionDays = n
	}
	if v := strings.TrimSpace(os.Getenv("JOBS_AUTO_APPROVE_BELOW_COST")); v != "" {
		if f, err := parseFloat(v); err == nil {
			cfg.Jobs.AutoApproveBelowCost = f
		}
	}

	if v := strings.TrimSpace(os.Getenv("OTEL_ENABLED")); v != "" {
		cfg.OTel.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); v != "" {
		cfg.OTel.OTLPEndpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("OTEL_SERVICE_NAME")); v != "" {
		cfg.OTel.ServiceName = v
	}
	if v := strings.TrimSpace(os.Getenv("OTEL_ENVIRONMENT")); v != "" {
		cfg.OTel.Environment = v
	}

	applyDefaults(cfg)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func intFromEnv(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
