package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "data/processed", cfg.Paths.ProcessedDir)
	assert.Equal(t, 28, cfg.Train.ForecastHorizon)
	assert.Equal(t, []int{1, 7, 14}, cfg.Features.Lags)
	assert.Equal(t, []string{"mean", "max", "std"}, cfg.Features.WindowFns)
	assert.Equal(t, []string{"store_nbr", "family"}, cfg.Dataset.GroupBy)
}

func TestLoadFromFile(t *testing.T) {
	content := `
dataset:
  filter_families: ["GROCERY I"]
  fill_method: ffill
  group_by: ["store_nbr", "family"]
  exclusions:
    - families: ["GROCERY I"]
      before_date: "2014-01-01"
features:
  lags: [1, 7]
  windows: [7]
  window_fns: ["mean"]
  statistical:
    mean:
      enabled: true
    quantile:
      params: [0.25, 0.75]
train:
  forecast_horizon: 42
  target_lags: [1, 7]
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 42, cfg.Train.ForecastHorizon)
	assert.Equal(t, []int{1, 7}, cfg.Features.Lags)
	require.Len(t, cfg.Dataset.Exclusions, 1)
	assert.Equal(t, "2014-01-01", cfg.Dataset.Exclusions[0].BeforeDate)
	assert.True(t, cfg.Features.Statistical["mean"].Enabled)
	assert.Equal(t, []float64{0.25, 0.75}, cfg.Features.Statistical["quantile"].Params)
	// Defaults survive for sections the file does not mention.
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"zero horizon", func(c *Config) { c.Train.ForecastHorizon = 0 }, true},
		{"negative horizon", func(c *Config) { c.Train.ForecastHorizon = -28 }, true},
		{"empty group_by column", func(c *Config) { c.Dataset.GroupBy = []string{"store_nbr", ""} }, true},
		{"no lags", func(c *Config) { c.Features.Lags = nil }, true},
		{"unknown window fn", func(c *Config) { c.Features.WindowFns = []string{"sum"} }, true},
		{"bad exclusion date", func(c *Config) {
			c.Dataset.Exclusions = []ExclusionRule{{Families: []string{"X"}, BeforeDate: "01/01/2014"}}
		}, true},
		{"dead statistical setting", func(c *Config) {
			c.Features.Statistical = map[string]StatSetting{"mean": {}}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
