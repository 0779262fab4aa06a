// Package config provides configuration loading and structs for the Tonearm server.
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
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Encoder   EncoderConfig   `yaml:"encoder"`
	Recommend RecommendConfig `yaml:"recommend"`
	Enrich    EnrichConfig    `yaml:"enrich"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the database and the catalog search index.
type StorageConfig struct {
	DatabasePath     string `yaml:"database_path"`
	CatalogIndexPath string `yaml:"catalog_index_path"`
}

// EncoderConfig holds the feature encoder settings. The category map is a
// data artifact loaded from its own yaml file so new categories do not
// require a code change.
type EncoderConfig struct {
	CategoryMapPath string `yaml:"category_map_path"`
}

// RecommendConfig holds scoring, tiering, and pagination settings.
type RecommendConfig struct {
	DefaultLimit     int `yaml:"default_limit"`
	MaxLimit         int `yaml:"max_limit"`
	EnrichedPageSize int `yaml:"enriched_page_size"`

	SimilarityWeight float64 `yaml:"similarity_weight"`
	BoostWeight      float64 `yaml:"boost_weight"`

	HighTierThreshold     float64 `yaml:"high_tier_threshold"`
	ModerateTierThreshold float64 `yaml:"moderate_tier_threshold"`

	// JitterAmplitude bounds the presentation-variety noise added to
	// scores. 0 disables jitter entirely. Jitter never moves a score
	// across a tier boundary.
	JitterAmplitude float64 `yaml:"jitter_amplitude"`
}

// EnrichConfig holds settings for the external media lookup and generative
// explanation collaborators.
type EnrichConfig struct {
	LookupBaseURL  string `yaml:"lookup_base_url"`
	ExplainBaseURL string `yaml:"explain_base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
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
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.CatalogIndexPath = expandPath(cfg.Storage.CatalogIndexPath, configDir)
	cfg.Encoder.CategoryMapPath = expandPath(cfg.Encoder.CategoryMapPath, configDir)

	return &cfg, nil
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
