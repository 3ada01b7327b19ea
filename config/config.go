// Package config provides loading and validation of the target's JSON
// configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/saeedzareian/target-parquet/errors"
)

// Config represents the complete target configuration. All fields are
// optional; zero values select the documented defaults.
type Config struct {
	// DestinationPath is the directory parquet files are written under.
	DestinationPath string `json:"destination_path"`

	// CompressionMethod names the parquet codec (SNAPPY, GZIP, BROTLI, ZSTD,
	// LZ4, case-insensitive). Empty means no compression. An unsupported
	// name degrades to no compression with a warning.
	CompressionMethod string `json:"compression_method"`

	// StreamsInSeparateFolder writes each stream under its own subdirectory
	// instead of prefixing file names with the stream name.
	StreamsInSeparateFolder bool `json:"streams_in_separate_folder"`

	// FileSize is the per-stream row threshold that triggers an intra-run
	// flush. Zero or negative disables threshold flushing.
	FileSize int `json:"file_size"`

	// DisableCollection suppresses the anonymous usage ping.
	DisableCollection bool `json:"disable_collection"`

	// LoggingLevel overrides the CLI log level when set (debug, info, warn,
	// error).
	LoggingLevel string `json:"logging_level"`
}

// DefaultConfig returns the configuration used when no config file is given
func DefaultConfig() *Config {
	return &Config{
		DestinationPath: ".",
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.DestinationPath == "" {
		return errors.WrapConfig(errors.ErrMissingConfig, "Config", "Validate", "destination_path is required")
	}
	if c.LoggingLevel != "" {
		switch c.LoggingLevel {
		case "debug", "info", "warn", "error":
		default:
			return errors.WrapConfig(errors.ErrInvalidConfig, "Config", "Validate",
				fmt.Sprintf("logging_level must be one of debug, info, warn, error (got %q)", c.LoggingLevel))
		}
	}
	return nil
}

// Loader loads configuration from disk
type Loader struct{}

// NewLoader creates a configuration loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadFile reads and decodes a JSON configuration file, applying defaults
// for absent fields.
func (l *Loader) LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.WrapConfig(err, "Loader", "LoadFile", "read config file")
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapConfig(err, "Loader", "LoadFile", "decode config file")
	}
	if cfg.DestinationPath == "" {
		cfg.DestinationPath = "."
	}
	return cfg, nil
}
