// Package config holds the specdb configuration.
//
// The configuration is loaded once by the top-level application and passed
// into every component's constructor; no component re-reads it per call.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the complete specdb configuration.
type Config struct {
	// Database is the path of the dataset container file.
	Database string `yaml:"database"`

	// DataFolder is the directory where downloaded and user-supplied input
	// data (filter profiles, model grids, isochrone tables) are located.
	DataFolder string `yaml:"data_folder"`
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database:   "specdb.db",
		DataFolder: "data",
	}
}

// Validate checks the configuration for missing fields.
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database path is required")
	}
	if c.DataFolder == "" {
		return fmt.Errorf("data folder is required")
	}
	return nil
}

// EnsureDirectories creates the data folder and the parent directory of the
// database file if they do not exist.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.DataFolder, 0755); err != nil {
		return fmt.Errorf("create data folder: %w", err)
	}
	if dir := filepath.Dir(c.Database); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}
	return nil
}
