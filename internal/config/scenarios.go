package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wealthkin/wealthkin/internal/domain"
	"github.com/wealthkin/wealthkin/internal/risk"
)

type scenarioFile struct {
	Scenarios []domain.Scenario `yaml:"scenarios"`
}

// LoadScenarios reads scenario presets from YAML. Presets are pure data so
// new ones ship without engine changes.
func LoadScenarios(path string) ([]domain.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios: %w", err)
	}
	var file scenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse scenarios YAML: %w", err)
	}
	for _, sc := range file.Scenarios {
		if err := risk.ValidateScenario(sc); err != nil {
			return nil, err
		}
	}
	return file.Scenarios, nil
}

// DefaultScenarios returns the built-in presets used when no scenario file
// is configured: broad market moves plus sector-specific shocks.
func DefaultScenarios() []domain.Scenario {
	return []domain.Scenario{
		{Name: "Market Crash (-20%)", DefaultChangePct: -20},
		{Name: "Market Rally (+15%)", DefaultChangePct: 15},
		{Name: "Tech Selloff", Changes: map[string]float64{
			"TCS": -15, "INFY": -15, "WIPRO": -15, "HCLTECH": -15,
		}},
		{Name: "Banking Rally", Changes: map[string]float64{
			"HDFCBANK": 20, "ICICIBANK": 18, "AXISBANK": 22, "SBIN": 25,
		}},
	}
}
