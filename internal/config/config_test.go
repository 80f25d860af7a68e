package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Run from an empty directory so no stray config file is picked up.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer func() { _ = os.Chdir(wd) }()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 4326, cfg.Enrich.StorageSRID)
	assert.Equal(t, 27700, cfg.Enrich.MeasureSRID)
	assert.Equal(t, 4, cfg.Enrich.Workers)
	assert.Equal(t, 3, cfg.Fetch.Retries)
	assert.Equal(t, "data", cfg.Output.DataDir)
	assert.Equal(t, "data/routes.db", cfg.Output.SQLitePath)
}

func TestLoad_ConfigFileOverridesDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/config.yaml", []byte(`
enrich:
  min_length_m: 100
  min_share: 0.05
  workers: 8
server:
  port: 9090
`), 0o644))
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100.0, cfg.Enrich.MinLengthM)
	assert.Equal(t, 0.05, cfg.Enrich.MinShare)
	assert.Equal(t, 8, cfg.Enrich.Workers)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still fill in the rest.
	assert.Equal(t, 4326, cfg.Enrich.StorageSRID)
}

func TestLoad_InvalidThresholdsRejected(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/config.yaml", []byte(`
enrich:
  min_share: 1.5
`), 0o644))
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_share")
}

func TestEnrichConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     EnrichConfig
		wantErr bool
	}{
		{"valid", EnrichConfig{MinLengthM: 100, MinShare: 0.05, StorageSRID: 4326, MeasureSRID: 27700}, false},
		{"zero thresholds", EnrichConfig{StorageSRID: 4326, MeasureSRID: 27700}, false},
		{"negative floor", EnrichConfig{MinLengthM: -1, StorageSRID: 4326, MeasureSRID: 27700}, true},
		{"share above one", EnrichConfig{MinShare: 1.1, StorageSRID: 4326, MeasureSRID: 27700}, true},
		{"missing SRID", EnrichConfig{MinShare: 0.05, StorageSRID: 4326}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInitLogger_InvalidLevel(t *testing.T) {
	require.Error(t, InitLogger(LogConfig{Level: "chatty", Format: "json"}))
}

func TestInitLogger_ConsoleFormat(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
}
