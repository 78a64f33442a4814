package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.InDelta(t, 0.065, cfg.RiskFreeRate, 1e-12)
	assert.Equal(t, 252, cfg.LookbackDays)
	assert.InDelta(t, 0.95, cfg.VarConfidence, 1e-12)
	assert.Equal(t, 2000, cfg.Optimizer.MaxIterations)
	assert.Equal(t, 40, cfg.Optimizer.FrontierPoints)
	assert.InDelta(t, 0.005, cfg.Trades.MaterialityPct, 1e-12)
	require.NoError(t, cfg.Validate())
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeFile(t, "wealthkin.yaml", `
risk_free_rate: 0.07
lookback_days: 126
optimizer:
  frontier_points: 15
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.InDelta(t, 0.07, cfg.RiskFreeRate, 1e-12)
	assert.Equal(t, 126, cfg.LookbackDays)
	assert.Equal(t, 15, cfg.Optimizer.FrontierPoints)
	// Untouched keys keep their defaults.
	assert.InDelta(t, 0.95, cfg.VarConfidence, 1e-12)
	assert.Equal(t, 2000, cfg.Optimizer.MaxIterations)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"short lookback", "lookback_days: 1"},
		{"confidence above one", "var_confidence: 1.5"},
		{"negative materiality", "trades:\n  materiality_pct: -0.01"},
		{"zero iterations", "optimizer:\n  max_iterations: 0"},
		{"single frontier point", "optimizer:\n  frontier_points: 1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "bad.yaml", tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadScenarios(t *testing.T) {
	path := writeFile(t, "scenarios.yaml", `
scenarios:
  - name: "Oil Shock"
    default_change_pct: -8
  - name: "IT Rebound"
    changes:
      TCS: 10
      INFY: 12
`)

	scenarios, err := LoadScenarios(path)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "Oil Shock", scenarios[0].Name)
	assert.InDelta(t, -8, scenarios[0].DefaultChangePct, 1e-12)
	assert.InDelta(t, 12, scenarios[1].Changes["INFY"], 1e-12)
}

func TestLoadScenarios_RejectsInvalidPreset(t *testing.T) {
	path := writeFile(t, "scenarios.yaml", `
scenarios:
  - name: ""
    default_change_pct: -10
`)

	_, err := LoadScenarios(path)
	assert.Error(t, err)
}

func TestDefaultScenarios(t *testing.T) {
	presets := DefaultScenarios()
	require.Len(t, presets, 4)
	names := make(map[string]bool, len(presets))
	for _, sc := range presets {
		names[sc.Name] = true
	}
	assert.True(t, names["Market Crash (-20%)"])
	assert.True(t, names["Banking Rally"])
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
