package engine

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wealthkin/wealthkin/internal/config"
	"github.com/wealthkin/wealthkin/internal/domain"
	"github.com/wealthkin/wealthkin/internal/marketdata"
	"github.com/wealthkin/wealthkin/internal/optimize"
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

// singhFamily is the reference case: three members, seven symbols, two of
// them held by more than one member.
func singhFamily() domain.FamilyInput {
	return domain.FamilyInput{
		Email: "singh.family@example.com",
		Investors: []domain.Investor{
			{
				ID: "INV001", Name: "Arjun Singh",
				Holdings: []domain.Holding{
					{Symbol: "RELIANCE", Quantity: 120, CostBasis: 2300},
					{Symbol: "TCS", Quantity: 40, CostBasis: 3400},
					{Symbol: "ITC", Quantity: 500, CostBasis: 420},
				},
			},
			{
				ID: "INV002", Name: "Priya Singh",
				Holdings: []domain.Holding{
					{Symbol: "TCS", Quantity: 25, CostBasis: 3700},
					{Symbol: "HDFCBANK", Quantity: 150, CostBasis: 1450},
					{Symbol: "INFY", Quantity: 90, CostBasis: 1400},
				},
			},
			{
				ID: "INV003", Name: "Rohan Singh",
				Holdings: []domain.Holding{
					{Symbol: "HDFCBANK", Quantity: 60, CostBasis: 1520},
					{Symbol: "SBIN", Quantity: 300, CostBasis: 560},
					{Symbol: "AXISBANK", Quantity: 110, CostBasis: 980},
				},
			},
		},
	}
}

func marketFixture() marketdata.Snapshot {
	symbols := []string{"RELIANCE", "TCS", "ITC", "HDFCBANK", "INFY", "SBIN", "AXISBANK"}
	drifts := []float64{0.0008, 0.0010, 0.0001, 0.0009, 0.0007, 0.0003, 0.0002}
	vols := []float64{0.013, 0.011, 0.024, 0.012, 0.014, 0.021, 0.022}

	snap := marketdata.Snapshot{
		Series:    make(map[string]domain.PriceSeries),
		Benchmark: syntheticSeries("NIFTY50", 99, 253, 0.0005, 0.009),
		Current:   make(map[string]float64),
	}
	snap.Benchmark.Benchmark = true
	for i, sym := range symbols {
		s := syntheticSeries(sym, int64(i+1), 253, drifts[i], vols[i])
		snap.Series[sym] = s
		snap.Current[sym] = s.Closes[len(s.Closes)-1]
	}
	return snap
}

func newTestEngine() *Engine {
	return New(
		config.Default(),
		marketdata.NewStaticProvider(marketFixture()),
		config.DefaultScenarios(),
		nil,
		zerolog.Nop(),
	)
}

func TestAnalyze_EndToEnd(t *testing.T) {
	eng := newTestEngine()

	analysis, err := eng.Analyze(context.Background(), singhFamily(), optimize.MethodMaxSharpe)
	require.NoError(t, err)

	require.NotEmpty(t, analysis.RequestID)
	require.Len(t, analysis.Family.Holdings, 7)
	require.Len(t, analysis.Members, 3)
	require.Len(t, analysis.Family.Overlaps, 2)
	assert.Equal(t, "HDFCBANK", analysis.Family.Overlaps[0].Symbol)
	assert.Equal(t, "TCS", analysis.Family.Overlaps[1].Symbol)

	require.NotNil(t, analysis.Metrics)
	assert.Greater(t, analysis.Valuation.TotalValue, 0.0)

	// Max-Sharpe either strictly improves on the current allocation or
	// surfaces the typed failure. Never both, never neither.
	if analysis.Optimization != nil {
		assert.Nil(t, analysis.OptimizationFailure)
		assert.Greater(t,
			analysis.Optimization.OptimizedMetrics.Sharpe,
			analysis.Optimization.CurrentMetrics.Sharpe)

		sum := 0.0
		for _, w := range analysis.Optimization.OptimizedWeights {
			assert.GreaterOrEqual(t, w, -1e-9)
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-6)
	} else {
		require.NotNil(t, analysis.OptimizationFailure)
	}

	require.NotNil(t, analysis.Risk)
	assert.LessOrEqual(t, analysis.Risk.CVaR.Daily, analysis.Risk.VaR.Daily)
	assert.Len(t, analysis.Scenarios, len(config.DefaultScenarios()))
}

func TestAnalyze_MinVolatilityReducesVolatility(t *testing.T) {
	eng := newTestEngine()

	analysis, err := eng.Analyze(context.Background(), singhFamily(), optimize.MethodMinVolatility)
	require.NoError(t, err)

	require.NotNil(t, analysis.Optimization)
	assert.LessOrEqual(t,
		analysis.Optimization.OptimizedMetrics.Volatility,
		analysis.Optimization.CurrentMetrics.Volatility+1e-9)
}

func TestAnalyze_EmptyFamilyAborts(t *testing.T) {
	eng := newTestEngine()

	_, err := eng.Analyze(context.Background(), domain.FamilyInput{Email: "x@example.com"}, optimize.MethodEqualWeight)
	var aggErr *domain.AggregationError
	require.ErrorAs(t, err, &aggErr)
}

func TestAnalyze_MissingSymbolDegradesNotAborts(t *testing.T) {
	snap := marketFixture()
	delete(snap.Series, "ITC")
	delete(snap.Current, "ITC")

	eng := New(config.Default(), marketdata.NewStaticProvider(snap), config.DefaultScenarios(), nil, zerolog.Nop())
	analysis, err := eng.Analyze(context.Background(), singhFamily(), optimize.MethodEqualWeight)
	require.NoError(t, err)

	assert.True(t, analysis.Metrics.Flagged(domain.FlagDataUnavailable+":ITC"))
}

func TestAnalyze_SingleHoldingSingleDayDegradesNotAborts(t *testing.T) {
	snap := marketdata.Snapshot{
		Series: map[string]domain.PriceSeries{
			"ONLY": {Symbol: "ONLY", Closes: []float64{100}},
		},
		Benchmark: domain.PriceSeries{Symbol: "NIFTY50", Closes: []float64{100}, Benchmark: true},
		Current:   map[string]float64{"ONLY": 100},
	}
	input := domain.FamilyInput{
		Email: "x@example.com",
		Investors: []domain.Investor{
			{ID: "INV001", Name: "Solo", Holdings: []domain.Holding{
				{Symbol: "ONLY", Quantity: 10, CostBasis: 90},
			}},
		},
	}

	eng := New(config.Default(), marketdata.NewStaticProvider(snap), config.DefaultScenarios(), nil, zerolog.Nop())
	analysis, err := eng.Analyze(context.Background(), input, optimize.MethodEqualWeight)
	require.NoError(t, err)

	assert.Equal(t, 0.0, analysis.Metrics.Volatility)
	assert.False(t, analysis.Metrics.SharpeDefined)
	assert.True(t, analysis.Metrics.Flagged(domain.FlagSharpeUndefined))
	assert.Equal(t, 0.0, analysis.Metrics.DiversificationScore)
	assert.True(t, analysis.Metrics.Flagged(domain.FlagSingleHolding))
	require.NotNil(t, analysis.Risk)
	assert.Equal(t, 0.0, analysis.Risk.VaR.Daily)
}

func TestAnalyze_ScenarioIdentityPreservesValue(t *testing.T) {
	identity := []domain.Scenario{{
		Name:    "Identity",
		Changes: map[string]float64{"RELIANCE": 0},
	}}
	eng := New(config.Default(), marketdata.NewStaticProvider(marketFixture()), identity, nil, zerolog.Nop())

	analysis, err := eng.Analyze(context.Background(), singhFamily(), optimize.MethodEqualWeight)
	require.NoError(t, err)

	require.Len(t, analysis.Scenarios, 1)
	sc := analysis.Scenarios[0]
	assert.InDelta(t, analysis.Valuation.TotalValue, sc.ProjectedValue, math.Max(1e-6*sc.ProjectedValue, 1e-6))
}

func TestAnalyze_ReentrantAcrossConcurrentRequests(t *testing.T) {
	eng := newTestEngine()
	const n = 4

	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := eng.Analyze(context.Background(), singhFamily(), optimize.MethodEqualWeight)
			results <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-results)
	}
}
