package risk

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wealthkin/wealthkin/internal/analytics"
	"github.com/wealthkin/wealthkin/internal/domain"
)

func syntheticSeries(symbol string, seed int64, n int, drift, vol float64) domain.PriceSeries {
	r := rand.New(rand.NewSource(seed))
	s := domain.PriceSeries{Symbol: symbol}
	price := 100.0
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		price *= 1 + drift + vol*r.NormFloat64()
		s.Closes = append(s.Closes, price)
		s.Dates = append(s.Dates, day)
		day = day.AddDate(0, 0, 1)
	}
	return s
}

func fourAssetModel(t *testing.T) *analytics.ReturnModel {
	t.Helper()
	series := map[string]domain.PriceSeries{
		"AAA": syntheticSeries("AAA", 11, 253, 0.0006, 0.014),
		"BBB": syntheticSeries("BBB", 12, 253, 0.0004, 0.011),
		"CCC": syntheticSeries("CCC", 13, 253, 0.0008, 0.019),
		"DDD": syntheticSeries("DDD", 14, 253, 0.0003, 0.016),
	}
	model, err := analytics.BuildReturnModel([]string{"AAA", "BBB", "CCC", "DDD"}, series)
	require.NoError(t, err)
	return model
}

func equalWeights4() map[string]float64 {
	return map[string]float64{"AAA": 0.25, "BBB": 0.25, "CCC": 0.25, "DDD": 0.25}
}

func TestAnalyze_CVaRLossAtLeastVaRLoss(t *testing.T) {
	model := fourAssetModel(t)
	a := NewAnalyzer(0.95, zerolog.Nop())

	report, err := a.Analyze(model, equalWeights4(), 1_000_000)
	require.NoError(t, err)

	assert.Less(t, report.VaR.Daily, 0.0, "VaR should be a loss for a risky portfolio")
	assert.LessOrEqual(t, report.CVaR.Daily, report.VaR.Daily,
		"expected shortfall must be at least as severe as VaR")
	assert.InDelta(t, report.VaR.Daily*math.Sqrt(252), report.VaR.Annualized, 1e-12)
	assert.InDelta(t, report.VaR.Daily*1_000_000, report.VaR.CurrencyLoss, 1e-6)
}

func TestAnalyze_RiskContributionsSumToVolatility(t *testing.T) {
	model := fourAssetModel(t)
	a := NewAnalyzer(0.95, zerolog.Nop())

	weights := map[string]float64{"AAA": 0.4, "BBB": 0.1, "CCC": 0.3, "DDD": 0.2}
	report, err := a.Analyze(model, weights, 500_000)
	require.NoError(t, err)

	w := model.AlignWeights(weights)
	vol := math.Sqrt(model.Variance(w))
	sum := 0.0
	for _, rc := range report.Contributions {
		sum += rc.Contribution
	}
	assert.InEpsilon(t, vol, sum, 1e-6)
}

func TestAnalyze_ContributionsSortedByMagnitude(t *testing.T) {
	model := fourAssetModel(t)
	a := NewAnalyzer(0.95, zerolog.Nop())

	report, err := a.Analyze(model, equalWeights4(), 100_000)
	require.NoError(t, err)

	for i := 1; i < len(report.Contributions); i++ {
		assert.GreaterOrEqual(t,
			math.Abs(report.Contributions[i-1].Contribution),
			math.Abs(report.Contributions[i].Contribution))
	}
}

func TestAnalyze_HHIBounds(t *testing.T) {
	model := fourAssetModel(t)
	a := NewAnalyzer(0.95, zerolog.Nop())

	report, err := a.Analyze(model, equalWeights4(), 100_000)
	require.NoError(t, err)

	c := report.Concentration
	assert.InDelta(t, 0.25, c.HHI, 1e-12) // 4 equal holdings
	assert.InDelta(t, 4.0, c.EffectiveHoldings, 1e-9)
	assert.InDelta(t, 0.25, c.Top1, 1e-12)
	assert.InDelta(t, 0.75, c.Top3, 1e-12)
	assert.InDelta(t, 1.0, c.Top5, 1e-12)
}

func TestAnalyze_SingleHoldingHHIIsOne(t *testing.T) {
	series := map[string]domain.PriceSeries{
		"ONLY": syntheticSeries("ONLY", 21, 100, 0.0005, 0.012),
	}
	model, err := analytics.BuildReturnModel([]string{"ONLY"}, series)
	require.NoError(t, err)

	a := NewAnalyzer(0.95, zerolog.Nop())
	report, err := a.Analyze(model, map[string]float64{"ONLY": 1}, 100_000)
	require.NoError(t, err)

	assert.Equal(t, 1.0, report.Concentration.HHI)
	assert.Contains(t, report.Flags, domain.FlagSingleHolding)
}

func TestAnalyze_CorrelationMatrixContract(t *testing.T) {
	model := fourAssetModel(t)
	a := NewAnalyzer(0.95, zerolog.Nop())

	report, err := a.Analyze(model, equalWeights4(), 100_000)
	require.NoError(t, err)

	corr := report.Correlation
	n := len(corr.Symbols)
	for i := 0; i < n; i++ {
		assert.Equal(t, 1.0, corr.Values[i][i])
		for j := 0; j < n; j++ {
			assert.InDelta(t, corr.Values[j][i], corr.Values[i][j], 1e-12)
			assert.LessOrEqual(t, math.Abs(corr.Values[i][j]), 1.0)
		}
	}
}

func TestAnalyze_TooShortHistoryYieldsZeroVaR(t *testing.T) {
	series := map[string]domain.PriceSeries{
		"AAA": {Symbol: "AAA", Closes: []float64{100, 101}},
	}
	model, err := analytics.BuildReturnModel([]string{"AAA"}, series)
	require.NoError(t, err)

	a := NewAnalyzer(0.95, zerolog.Nop())
	report, err := a.Analyze(model, map[string]float64{"AAA": 1}, 100_000)
	require.NoError(t, err)

	assert.Equal(t, 0.0, report.VaR.Daily)
	assert.Equal(t, 0.0, report.CVaR.Daily)
}
