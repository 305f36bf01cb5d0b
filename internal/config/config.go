// Package config provides configuration loading and structs for tansaku.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Storage  StorageConfig  `yaml:"storage"`
	Chunking ChunkingConfig `yaml:"chunking"`
	Encoder  EncoderConfig  `yaml:"encoder"`
	Search   SearchConfig   `yaml:"search"`
	Gate     GateConfig     `yaml:"gate"`
	Watch    WatchConfig    `yaml:"watch"`
}

// StorageConfig holds paths for the document corpus, the snapshot
// directory, and the ingestion catalog database.
type StorageConfig struct {
	DocumentsDir string `yaml:"documents_dir"`
	IndexDir     string `yaml:"index_dir"`
	CatalogPath  string `yaml:"catalog_path"`
}

// ChunkingConfig holds token budgets for the chunker.
type ChunkingConfig struct {
	ChunkSize   int `yaml:"chunk_size"`
	OverlapSize int `yaml:"overlap_size"`
}

// EncoderConfig holds vocabulary settings for the TF-IDF encoder.
type EncoderConfig struct {
	MaxFeatures int `yaml:"max_features"`
}

// SearchConfig holds retrieval defaults.
type SearchConfig struct {
	DefaultK int     `yaml:"default_k"`
	MaxK     int     `yaml:"max_k"`
	MinScore float64 `yaml:"min_score"`
}

// GateConfig holds the relevance gate keyword and pattern lists.
// These are versioned configuration data: overriding any list in the
// config file replaces the built-in default for that list wholesale.
type GateConfig struct {
	DomainKeywords    []string `yaml:"domain_keywords"`
	ExclusionKeywords []string `yaml:"exclusion_keywords"`
	QuestionPatterns  []string `yaml:"question_patterns"`
}

// WatchConfig holds rebuild-on-change settings.
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms"`
}

// Load reads and parses the config file at path, applies defaults, and
// resolves relative storage paths. Returns an error if the file cannot
// be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DocumentsDir = expandPath(cfg.Storage.DocumentsDir, configDir)
	cfg.Storage.IndexDir = expandPath(cfg.Storage.IndexDir, configDir)
	cfg.Storage.CatalogPath = expandPath(cfg.Storage.CatalogPath, configDir)

	return &cfg, nil
}

// Default returns a config with all defaults applied and no file loaded.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
