package risk

import (
	"fmt"
	"math"
	"sort"

	"github.com/wealthkin/wealthkin/internal/domain"
)

// ValidateScenario rejects scenarios that specify no change at all.
func ValidateScenario(sc domain.Scenario) error {
	if sc.Name == "" {
		return fmt.Errorf("scenario without a name")
	}
	if len(sc.Changes) == 0 && sc.DefaultChangePct == 0 {
		return fmt.Errorf("scenario %q specifies no symbol changes", sc.Name)
	}
	return nil
}

// Simulate applies a scenario's percentage shocks to per-symbol market
// values. Symbols not named by the scenario move by DefaultChangePct
// (zero unless the scenario sets a broad move). Per-holding impacts are
// sorted by |impact| descending.
func Simulate(sc domain.Scenario, values map[string]float64) *domain.ScenarioResult {
	symbols := make([]string, 0, len(values))
	for s := range values {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	result := &domain.ScenarioResult{Scenario: sc.Name}
	for _, sym := range symbols {
		current := values[sym]
		change, named := sc.Changes[sym]
		if !named {
			change = sc.DefaultChangePct
		}
		projected := current * (1 + change/100)
		result.PerHolding = append(result.PerHolding, domain.HoldingImpact{
			Symbol:         sym,
			CurrentValue:   current,
			ProjectedValue: projected,
			Impact:         projected - current,
			PctChange:      change,
		})
		result.CurrentValue += current
		result.ProjectedValue += projected
	}

	result.ValueChange = result.ProjectedValue - result.CurrentValue
	if result.CurrentValue > 0 {
		result.PctImpact = result.ValueChange / result.CurrentValue * 100
	}

	sort.SliceStable(result.PerHolding, func(i, j int) bool {
		return math.Abs(result.PerHolding[i].Impact) > math.Abs(result.PerHolding[j].Impact)
	})
	return result
}

// SimulateAll runs every scenario against the same value table, keeping
// the input order.
func SimulateAll(scenarios []domain.Scenario, values map[string]float64) []domain.ScenarioResult {
	out := make([]domain.ScenarioResult, 0, len(scenarios))
	for _, sc := range scenarios {
		out = append(out, *Simulate(sc, values))
	}
	return out
}
