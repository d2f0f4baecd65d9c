package config

import (
	"os"
	"testing"
)

func TestLoad_NoFile_AppliesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8085 {
		t.Errorf("expected default port 8085, got %d", cfg.Server.Port)
	}
	if cfg.VectorIndex.Backend != "qdrant" {
		t.Errorf("expected default backend qdrant, got %q", cfg.VectorIndex.Backend)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	tmp := t.TempDir() + "/config.yaml"
	if err := os.WriteFile(tmp, []byte("server:\n  port: 9090\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := Load(tmp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected env override 7070, got %d", cfg.Server.Port)
	}
}

func TestIntFromEnv(t *testing.T) {
	t.Setenv("KG_TEST_INT", "42")
	if v := intFromEnv("KG_TEST_INT", 0); v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
	if v := intFromEnv("KG_TEST_INT_MISSING", 7); v != 7 {
		t.Fatalf("expected fallback 7, got %d", v)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if v := firstNonEmpty("", "foo", "bar"); v != "foo" {
		t.Fatalf("expected 'foo', got %q", v)
	}
	if v := firstNonEmpty(); v != "" {
		t.Fatalf("expected empty, got %q", v)
	}
}
