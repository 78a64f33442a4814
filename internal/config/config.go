// Package config loads engine configuration and scenario presets from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config carries all tunable parameters of the analytics engine.
type Config struct {
	RiskFreeRate  float64         `yaml:"risk_free_rate"`
	LookbackDays  int             `yaml:"lookback_days"`
	VarConfidence float64         `yaml:"var_confidence"`
	Optimizer     OptimizerConfig `yaml:"optimizer"`
	Trades        TradesConfig    `yaml:"trades"`
	ScenarioFile  string          `yaml:"scenario_file"`
}

// OptimizerConfig bounds the numeric solves.
type OptimizerConfig struct {
	MaxIterations  int `yaml:"max_iterations"`
	FrontierPoints int `yaml:"frontier_points"`
}

// TradesConfig controls rebalancing trade synthesis.
type TradesConfig struct {
	MaterialityPct float64 `yaml:"materiality_pct"` // fraction of portfolio value
}

// Default returns the engine defaults: 6.5% risk-free rate, 252-day
// lookback, 95% VaR confidence, 0.5% trade materiality.
func Default() *Config {
	return &Config{
		RiskFreeRate:  0.065,
		LookbackDays:  252,
		VarConfidence: 0.95,
		Optimizer: OptimizerConfig{
			MaxIterations:  2000,
			FrontierPoints: 40,
		},
		Trades: TradesConfig{
			MaterialityPct: 0.005,
		},
		ScenarioFile: "config/scenarios.yaml",
	}
}

// Load reads a YAML config file over the defaults. A missing path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges that would otherwise surface as nonsense output.
func (c *Config) Validate() error {
	if c.LookbackDays < 2 {
		return fmt.Errorf("lookback_days must be at least 2, got %d", c.LookbackDays)
	}
	if c.VarConfidence <= 0 || c.VarConfidence >= 1 {
		return fmt.Errorf("var_confidence must be in (0,1), got %g", c.VarConfidence)
	}
	if c.Trades.MaterialityPct < 0 || c.Trades.MaterialityPct >= 1 {
		return fmt.Errorf("trades.materiality_pct must be in [0,1), got %g", c.Trades.MaterialityPct)
	}
	if c.Optimizer.MaxIterations <= 0 {
		return fmt.Errorf("optimizer.max_iterations must be positive, got %d", c.Optimizer.MaxIterations)
	}
	if c.Optimizer.FrontierPoints < 2 {
		return fmt.Errorf("optimizer.frontier_points must be at least 2, got %d", c.Optimizer.FrontierPoints)
	}
	return nil
}
