package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marikina-frc/floodcore/internal/config"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "floodsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FillsDefaults(t *testing.T) {
	path := writeTemp(t, `
raster:
  center_lat: 14.6456
  center_lon: 121.10305
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 4, cfg.Raster.ReturnPeriods)
	assert.Equal(t, 18, cfg.Raster.TimeSteps)
	assert.Equal(t, "balanced", cfg.Router.DefaultRouteType)
	assert.Equal(t, "medium", cfg.Scenario.Mode)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := writeTemp(t, "not_a_real_field: true\n")
	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
