package config

import (
	"os"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()

	if cfg.Storage.KeyPrefix != "scout:" {
		t.Errorf("unexpected key prefix: %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Provider.EmbeddingModel != "text-embedding-3-small" || cfg.Provider.EmbeddingDims != 1536 {
		t.Errorf("unexpected embedding defaults: %+v", cfg.Provider)
	}
	if cfg.Pipeline.MergeAlpha != 0.6 {
		t.Errorf("expected merge alpha 0.6, got %g", cfg.Pipeline.MergeAlpha)
	}
	if cfg.Pipeline.RelevanceThreshold != 0.4 {
		t.Errorf("expected relevance threshold 0.4, got %g", cfg.Pipeline.RelevanceThreshold)
	}
	if cfg.Pipeline.AdjudicationWidth != 8 {
		t.Errorf("expected adjudication width 8, got %d", cfg.Pipeline.AdjudicationWidth)
	}
	if cfg.Pipeline.DefaultMaxResults != 10 {
		t.Errorf("expected default max results 10, got %d", cfg.Pipeline.DefaultMaxResults)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Pipeline: PipelineConfig{MergeAlpha: 0.8, RelevanceThreshold: 0.6},
	}
	cfg.ApplyDefaults()

	if cfg.Pipeline.MergeAlpha != 0.8 || cfg.Pipeline.RelevanceThreshold != 0.6 {
		t.Errorf("explicit values must survive defaulting: %+v", cfg.Pipeline)
	}
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for port 0")
	}

	cfg.HTTP.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for port above range")
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing database addrs")
	}
}

func TestValidate_AlphaOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Pipeline.MergeAlpha = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for merge alpha above 1")
	}
}

func TestValidate_ThresholdOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Pipeline.RelevanceThreshold = 1.2
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for relevance threshold above 1")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("SCOUT_TEST_KEY", "sk-abc123")

	got := string(expandEnvVars([]byte("api_key: ${SCOUT_TEST_KEY}")))
	if got != "api_key: sk-abc123" {
		t.Errorf("unexpected expansion: %q", got)
	}
}

func TestExpandEnvVars_Default(t *testing.T) {
	os.Unsetenv("SCOUT_TEST_MISSING")

	got := string(expandEnvVars([]byte("addr: ${SCOUT_TEST_MISSING:-localhost:6379}")))
	if got != "addr: localhost:6379" {
		t.Errorf("unexpected expansion: %q", got)
	}

	t.Setenv("SCOUT_TEST_MISSING", "remote:6379")
	got = string(expandEnvVars([]byte("addr: ${SCOUT_TEST_MISSING:-localhost:6379}")))
	if got != "addr: remote:6379" {
		t.Errorf("env value must win over the default: %q", got)
	}
}

func TestGetEnv(t *testing.T) {
	os.Unsetenv("ENV")
	if got := GetEnv(); got != "local" {
		t.Errorf("expected local default, got %q", got)
	}

	t.Setenv("ENV", "prod")
	if got := GetEnv(); got != "prod" {
		t.Errorf("expected prod, got %q", got)
	}
}
