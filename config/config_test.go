package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saeedzareian/target-parquet/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ".", cfg.DestinationPath)
	assert.Empty(t, cfg.CompressionMethod)
	assert.False(t, cfg.StreamsInSeparateFolder)
	assert.Zero(t, cfg.FileSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `{
		"destination_path": "/tmp/out",
		"compression_method": "gzip",
		"streams_in_separate_folder": true,
		"file_size": 2000,
		"disable_collection": true,
		"logging_level": "debug"
	}`)

	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/out", cfg.DestinationPath)
	assert.Equal(t, "gzip", cfg.CompressionMethod)
	assert.True(t, cfg.StreamsInSeparateFolder)
	assert.Equal(t, 2000, cfg.FileSize)
	assert.True(t, cfg.DisableCollection)
	assert.Equal(t, "debug", cfg.LoggingLevel)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"compression_method": "snappy"}`)

	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.DestinationPath)
	assert.Equal(t, "snappy", cfg.CompressionMethod)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := NewLoader().LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

func TestLoadFileMalformed(t *testing.T) {
	path := writeConfig(t, `{"destination_path": `)

	_, err := NewLoader().LoadFile(path)
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

func TestValidateRejectsBadLoggingLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LoggingLevel = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}
