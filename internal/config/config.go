// Package config loads the optional trailguard configuration file. Every
// value has a flag counterpart; flags win when both are set.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration, loaded from
// ~/.config/trailguard/config.yaml.
type Config struct {
	AWS      AWSConfig      `yaml:"aws"`
	Analysis AnalysisConfig `yaml:"analysis"`
}

// AWSConfig holds AWS defaults used when flags are not provided.
type AWSConfig struct {
	// DefaultProfile is used when no --profile flag is provided.
	DefaultProfile string `yaml:"default_profile"`

	// DefaultRegion is used when no --region flag is provided.
	DefaultRegion string `yaml:"default_region"`
}

// AnalysisConfig holds detection defaults.
type AnalysisConfig struct {
	// TenantTagKey overrides the instance tag identifying the owning
	// tenant.
	TenantTagKey string `yaml:"tenant_tag_key"`

	// MatchMode selects "substring" or "exact-segment" matching.
	MatchMode string `yaml:"match_mode"`

	// SnapshotDir is the default snapshot directory.
	SnapshotDir string `yaml:"snapshot_dir"`

	// Days is the default CloudTrail lookback window.
	Days int `yaml:"days"`
}

// Loader is the interface for reading Config from disk.
type Loader interface {
	// Load reads and parses the configuration file. A missing file is not
	// an error; it yields a zero Config so every value falls back to flag
	// or built-in defaults.
	Load() (*Config, error)

	// ConfigPath returns the absolute path to the configuration file.
	ConfigPath() string
}

// FileLoader is the default Loader, reading from a fixed path.
type FileLoader struct {
	path string
}

// NewFileLoader returns a loader for path. An empty path selects
// ~/.config/trailguard/config.yaml.
func NewFileLoader(path string) *FileLoader {
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".config", "trailguard", "config.yaml")
		}
	}
	return &FileLoader{path: path}
}

// ConfigPath implements Loader.
func (l *FileLoader) ConfigPath() string {
	return l.path
}

// Load implements Loader.
func (l *FileLoader) Load() (*Config, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config %q: %w", l.path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", l.path, err)
	}
	return &cfg, nil
}
