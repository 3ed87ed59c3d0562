// Package config handles Munin configuration.
//
// Configuration is resolved in three layers, later layers winning:
//
//  1. Built-in defaults (DefaultConfig)
//  2. An optional munin.yaml file (ApplyFile)
//  3. MUNIN_* environment variables (ApplyEnv)
//
// Environment variables:
//
//	MUNIN_DATA_DIR              - persisted graph directory (default ./data)
//	MUNIN_SOURCES_DIR           - root of the file-backed sources (default ./sources)
//	MUNIN_CHUNK_STORE_DIR       - badger chunk store (default <data>/chunks)
//	MUNIN_EMBEDDING_PROVIDER    - "ollama", "openai", or "none"
//	MUNIN_EMBEDDING_URL         - embedding API base URL
//	MUNIN_EMBEDDING_API_KEY     - API key (openai)
//	MUNIN_EMBEDDING_MODEL       - model name
//	MUNIN_EMBEDDING_DIMENSIONS  - expected vector size
//	MUNIN_SUPPORT_THRESHOLD     - SUPPORTED_BY similarity threshold (default 0.75)
//	MUNIN_MENTION_THRESHOLD     - MENTIONED_IN similarity threshold (default 0.65)
//	MUNIN_OVERRIDE_THRESHOLD    - OVERRIDES similarity threshold (default 0.70)
//	MUNIN_RETRIEVAL_MODE        - "keyword" or "embedding" (default keyword)
//	MUNIN_RETRIEVAL_TOP_K       - per-category result cap (default 5)
//	MUNIN_RETRIEVAL_MIN_SCORE   - embedding matcher floor (default 0.5)
//	MUNIN_TRAVERSAL_MAX_HOPS    - traversal hop budget (default 2)
//	MUNIN_LOG_LEVEL             - debug, info, warn, error (default info)
//
// Example Usage:
//
//	cfg, err := config.Load("munin.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all Munin configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Inference InferenceConfig `yaml:"inference"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StorageConfig locates the persisted graph and the external sources.
type StorageConfig struct {
	// DataDir holds graph.json and the per-kind index files.
	DataDir string `yaml:"data_dir"`
	// SourcesDir is the root of the file-backed sources (roadmap,
	// questions, decisions, assessments).
	SourcesDir string `yaml:"sources_dir"`
	// ChunkStoreDir is the badger chunk store directory. Empty means
	// <DataDir>/chunks.
	ChunkStoreDir string `yaml:"chunk_store_dir"`
}

// EmbeddingConfig configures the external embedding service client.
type EmbeddingConfig struct {
	// Provider is "ollama", "openai", or "none" to sync without embeddings.
	Provider   string `yaml:"provider"`
	APIURL     string `yaml:"api_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// InferenceConfig holds the semantic edge thresholds.
type InferenceConfig struct {
	SupportThreshold  float64 `yaml:"support_threshold"`
	MentionThreshold  float64 `yaml:"mention_threshold"`
	OverrideThreshold float64 `yaml:"override_threshold"`
}

// RetrievalConfig selects the matcher and its limits.
type RetrievalConfig struct {
	// Mode is "keyword" (deterministic) or "embedding".
	Mode     string  `yaml:"mode"`
	TopK     int     `yaml:"top_k"`
	MinScore float64 `yaml:"min_score"`
	MaxHops  int     `yaml:"max_hops"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			DataDir:    "./data",
			SourcesDir: "./sources",
		},
		Embedding: EmbeddingConfig{
			Provider:   "ollama",
			APIURL:     "http://localhost:11434",
			Model:      "mxbai-embed-large",
			Dimensions: 1024,
		},
		Inference: InferenceConfig{
			SupportThreshold:  0.75,
			MentionThreshold:  0.65,
			OverrideThreshold: 0.70,
		},
		Retrieval: RetrievalConfig{
			Mode:     "keyword",
			TopK:     5,
			MinScore: 0.5,
			MaxHops:  2,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load resolves configuration from defaults, an optional YAML file, and the
// environment, in that order. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.ApplyFile(path); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyFile overlays settings from a YAML file. Missing files are ignored;
// malformed files are an error.
func (c *Config) ApplyFile(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays MUNIN_* environment variables.
func (c *Config) ApplyEnv() {
	setString(&c.Storage.DataDir, "MUNIN_DATA_DIR")
	setString(&c.Storage.SourcesDir, "MUNIN_SOURCES_DIR")
	setString(&c.Storage.ChunkStoreDir, "MUNIN_CHUNK_STORE_DIR")

	setString(&c.Embedding.Provider, "MUNIN_EMBEDDING_PROVIDER")
	setString(&c.Embedding.APIURL, "MUNIN_EMBEDDING_URL")
	setString(&c.Embedding.APIKey, "MUNIN_EMBEDDING_API_KEY")
	setString(&c.Embedding.Model, "MUNIN_EMBEDDING_MODEL")
	setInt(&c.Embedding.Dimensions, "MUNIN_EMBEDDING_DIMENSIONS")

	setFloat(&c.Inference.SupportThreshold, "MUNIN_SUPPORT_THRESHOLD")
	setFloat(&c.Inference.MentionThreshold, "MUNIN_MENTION_THRESHOLD")
	setFloat(&c.Inference.OverrideThreshold, "MUNIN_OVERRIDE_THRESHOLD")

	setString(&c.Retrieval.Mode, "MUNIN_RETRIEVAL_MODE")
	setInt(&c.Retrieval.TopK, "MUNIN_RETRIEVAL_TOP_K")
	setFloat(&c.Retrieval.MinScore, "MUNIN_RETRIEVAL_MIN_SCORE")
	setInt(&c.Retrieval.MaxHops, "MUNIN_TRAVERSAL_MAX_HOPS")

	setString(&c.Logging.Level, "MUNIN_LOG_LEVEL")
}

// ChunkStoreDir returns the effective chunk store directory.
func (c *Config) ChunkStoreDir() string {
	if c.Storage.ChunkStoreDir != "" {
		return c.Storage.ChunkStoreDir
	}
	return filepath.Join(c.Storage.DataDir, "chunks")
}

// Validate checks the resolved configuration.
func (c *Config) Validate() error {
	if c.Storage.DataDir == "" {
		return fmt.Errorf("data dir must not be empty")
	}

	switch c.Embedding.Provider {
	case "ollama", "none":
	case "openai":
		if c.Embedding.APIKey == "" {
			return fmt.Errorf("openai embedding provider requires MUNIN_EMBEDDING_API_KEY")
		}
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}

	switch c.Retrieval.Mode {
	case "keyword", "embedding":
	default:
		return fmt.Errorf("unknown retrieval mode %q", c.Retrieval.Mode)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.MaxHops < 0 {
		return fmt.Errorf("traversal max_hops must not be negative, got %d", c.Retrieval.MaxHops)
	}

	if c.Inference.MentionThreshold > c.Inference.SupportThreshold {
		return fmt.Errorf("mention threshold %.2f above support threshold %.2f",
			c.Inference.MentionThreshold, c.Inference.SupportThreshold)
	}

	if _, err := c.SlogLevel(); err != nil {
		return err
	}

	return nil
}

// SlogLevel parses the configured log level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
