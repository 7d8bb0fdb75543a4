// Package config loads trustaid configuration from YAML with environment
// overrides. A missing config file is not an error: defaults apply, and the
// core degrades per its usual rules when credentials are absent.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all trustaid configuration.
type Config struct {
	// Generative + embedding provider
	Provider ProviderConfig `yaml:"provider"`

	// Retrieval engine settings
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// SQLite store paths
	Store StoreConfig `yaml:"store"`

	// Audit event sink
	Audit AuditConfig `yaml:"audit"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Demo disables SQL generation via the provider; canned queries only.
	Demo bool `yaml:"demo"`
}

// ProviderConfig configures the Gemini provider used for completion and
// embeddings. An empty APIKey disables both capabilities (the retrieval
// engine starts lexical, synthesis uses the template path).
type ProviderConfig struct {
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	EmbedModel string `yaml:"embed_model"`
	BaseURL    string `yaml:"base_url"`
	Timeout    string `yaml:"timeout"`
}

// RetrievalConfig configures backend selection and ranking.
type RetrievalConfig struct {
	// Backend is "auto" (vector when the provider is configured, else
	// lexical) or "lexical" to force the TF-IDF backend.
	Backend string `yaml:"backend"`
	TopK    int    `yaml:"top_k"`
	// CorpusPath optionally points at a YAML document list replacing the
	// built-in seed corpus.
	CorpusPath string `yaml:"corpus_path"`
}

// StoreConfig configures the SQLite databases.
type StoreConfig struct {
	DataPath   string `yaml:"data_path"`
	VectorPath string `yaml:"vector_path"`
}

// AuditConfig configures the audit event sink.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures categorized logging. An empty Dir disables
// file logging entirely.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	Dir   string `yaml:"dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Model:      "gemini-3-flash-preview",
			EmbedModel: "gemini-embedding-001",
			BaseURL:    "https://generativelanguage.googleapis.com/v1beta",
			Timeout:    "120s",
		},
		Retrieval: RetrievalConfig{
			Backend: "auto",
			TopK:    5,
		},
		Store: StoreConfig{
			DataPath:   "data/trustaid.db",
			VectorPath: "data/vectors.db",
		},
		Audit: AuditConfig{
			Path: "data/audit.jsonl",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Provider.APIKey = key
	}
	if backend := os.Getenv("TRUSTAID_BACKEND"); backend != "" {
		c.Retrieval.Backend = backend
	}
	if path := os.Getenv("TRUSTAID_DB_PATH"); path != "" {
		c.Store.DataPath = path
	}
	if path := os.Getenv("TRUSTAID_VECTOR_DB_PATH"); path != "" {
		c.Store.VectorPath = path
	}
	if demo := os.Getenv("TRUSTAID_DEMO"); demo == "1" || demo == "true" {
		c.Demo = true
	}
	if level := os.Getenv("TRUSTAID_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// GetProviderTimeout returns the provider timeout as a duration.
func (c *Config) GetProviderTimeout() time.Duration {
	d, err := time.ParseDuration(c.Provider.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// Validate checks the fields the core cannot degrade around.
func (c *Config) Validate() error {
	switch c.Retrieval.Backend {
	case "auto", "lexical", "vector":
	default:
		return fmt.Errorf("invalid retrieval backend: %s (valid: auto, lexical, vector)", c.Retrieval.Backend)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval top_k must be positive, got %d", c.Retrieval.TopK)
	}
	return nil
}
