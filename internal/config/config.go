package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the scout API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Provider ProviderConfig `yaml:"provider"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port           int `yaml:"port"`
	ReadTimeoutSec int `yaml:"read_timeout_sec"`
	// WriteTimeoutSec must exceed the longest expected workflow: the search
	// response is a stream that stays open while synthesis runs.
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds record store connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds record key settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// ProviderConfig holds the OpenAI-compatible provider settings shared by
// embedding, scoring, and synthesis.
type ProviderConfig struct {
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	EmbeddingModel    string  `yaml:"embedding_model"`
	EmbeddingDims     int     `yaml:"embedding_dimensions"`
	ScoringModel      string  `yaml:"scoring_model"`
	SynthesisModel    string  `yaml:"synthesis_model"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
	Burst             int     `yaml:"burst"`
}

// PipelineConfig holds the pipeline tunables. Thresholds live here rather
// than in code so deployments can adjust them without a rebuild.
type PipelineConfig struct {
	BranchTimeoutSec    int     `yaml:"branch_timeout_sec"`
	MergeAlpha          float64 `yaml:"merge_alpha"`
	OverFetch           int     `yaml:"over_fetch"`
	AdjudicationWidth   int     `yaml:"adjudication_width"`
	AdjudicationTimeout int     `yaml:"adjudication_timeout_sec"`
	RelevanceThreshold  float64 `yaml:"relevance_threshold"`
	RetryBackoffMs      int     `yaml:"retry_backoff_ms"`
	SynthesisTimeoutSec int     `yaml:"synthesis_timeout_sec"`
	DefaultMaxResults   int     `yaml:"default_max_results"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "scout:"
	}
	if c.Provider.EmbeddingModel == "" {
		c.Provider.EmbeddingModel = "text-embedding-3-small"
	}
	if c.Provider.EmbeddingDims <= 0 {
		c.Provider.EmbeddingDims = 1536
	}
	if c.Provider.ScoringModel == "" {
		c.Provider.ScoringModel = "gpt-4o-mini"
	}
	if c.Provider.SynthesisModel == "" {
		c.Provider.SynthesisModel = "gpt-4o-mini"
	}
	if c.Pipeline.BranchTimeoutSec <= 0 {
		c.Pipeline.BranchTimeoutSec = 5
	}
	if c.Pipeline.MergeAlpha <= 0 {
		c.Pipeline.MergeAlpha = 0.6
	}
	if c.Pipeline.OverFetch <= 0 {
		c.Pipeline.OverFetch = 3
	}
	if c.Pipeline.AdjudicationWidth <= 0 {
		c.Pipeline.AdjudicationWidth = 8
	}
	if c.Pipeline.AdjudicationTimeout <= 0 {
		c.Pipeline.AdjudicationTimeout = 8
	}
	if c.Pipeline.RelevanceThreshold <= 0 {
		c.Pipeline.RelevanceThreshold = 0.4
	}
	if c.Pipeline.RetryBackoffMs <= 0 {
		c.Pipeline.RetryBackoffMs = 200
	}
	if c.Pipeline.SynthesisTimeoutSec <= 0 {
		c.Pipeline.SynthesisTimeoutSec = 10
	}
	if c.Pipeline.DefaultMaxResults <= 0 {
		c.Pipeline.DefaultMaxResults = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Pipeline.MergeAlpha > 1 {
		return fmt.Errorf("pipeline.merge_alpha must be in (0,1], got %g", c.Pipeline.MergeAlpha)
	}
	if c.Pipeline.RelevanceThreshold > 1 {
		return fmt.Errorf("pipeline.relevance_threshold must be in (0,1], got %g", c.Pipeline.RelevanceThreshold)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
