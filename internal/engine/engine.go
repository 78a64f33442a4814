// Package engine wires the analytics pipeline: aggregation, metric
// computation, optimization, and risk analysis over one price snapshot.
// The engine is stateless and reentrant; every call owns its own working
// data, so callers may run analyses concurrently.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wealthkin/wealthkin/internal/aggregate"
	"github.com/wealthkin/wealthkin/internal/analytics"
	"github.com/wealthkin/wealthkin/internal/config"
	"github.com/wealthkin/wealthkin/internal/domain"
	"github.com/wealthkin/wealthkin/internal/marketdata"
	"github.com/wealthkin/wealthkin/internal/optimize"
	"github.com/wealthkin/wealthkin/internal/risk"
	"github.com/wealthkin/wealthkin/internal/telemetry"
)

// MemberReport is one investor's valuation and metrics.
type MemberReport struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Valuation *domain.Valuation `json:"valuation"`
	Metrics   *domain.MetricSet `json:"metrics"`
}

// Analysis is the full output of one engine run. Optimization and
// OptimizationFailure are mutually exclusive: a non-converging optimizer
// surfaces as the typed failure, never as a silently substituted result.
type Analysis struct {
	RequestID string `json:"request_id"`

	Family    *domain.FamilyPortfolio `json:"family"`
	Valuation *domain.Valuation       `json:"valuation"`
	Metrics   *domain.MetricSet       `json:"metrics"`
	Members   []MemberReport          `json:"members"`

	Optimization        *domain.OptimizationResult      `json:"optimization,omitempty"`
	OptimizationFailure *domain.OptimizationFailedError `json:"optimization_failure,omitempty"`

	Risk      *domain.RiskReport      `json:"risk"`
	Scenarios []domain.ScenarioResult `json:"scenarios"`
}

// Engine runs analyses. All collaborators are injected; the provider is
// the only component that touches the outside world.
type Engine struct {
	cfg       *config.Config
	provider  marketdata.Provider
	calc      *analytics.Calculator
	solver    *optimize.Solver
	risk      *risk.Analyzer
	scenarios []domain.Scenario
	metrics   *telemetry.Registry
	log       zerolog.Logger
}

// New builds an engine from configuration. metrics may be nil.
func New(cfg *config.Config, provider marketdata.Provider, scenarios []domain.Scenario, metrics *telemetry.Registry, logger zerolog.Logger) *Engine {
	budget := optimize.Budget{
		MaxIterations:  cfg.Optimizer.MaxIterations,
		FrontierPoints: cfg.Optimizer.FrontierPoints,
	}
	return &Engine{
		cfg:       cfg,
		provider:  provider,
		calc:      analytics.NewCalculator(cfg.RiskFreeRate, logger),
		solver:    optimize.NewSolver(cfg.RiskFreeRate, budget, cfg.Trades.MaterialityPct, logger),
		risk:      risk.NewAnalyzer(cfg.VarConfidence, logger),
		scenarios: scenarios,
		metrics:   metrics,
		log:       logger.With().Str("component", "engine").Logger(),
	}
}

// Analyze runs the full pipeline for one family portfolio. Structural
// errors (empty portfolio, no usable price data) abort; per-symbol data
// gaps and optimizer non-convergence degrade the result instead.
func (e *Engine) Analyze(ctx context.Context, input domain.FamilyInput, method optimize.Method) (*Analysis, error) {
	requestID := uuid.NewString()
	log := e.log.With().Str("request_id", requestID).Logger()
	done := e.metrics.TrackActive()
	defer done()

	family, err := aggregate.Aggregate(input)
	if err != nil {
		e.metrics.CountAnalysis("aggregation_error")
		return nil, err
	}
	symbols := family.Symbols()
	log.Info().Int("investors", len(family.Investors)).Int("symbols", len(symbols)).Msg("portfolio aggregated")

	fetchStart := time.Now()
	snap, err := e.provider.History(ctx, symbols, e.cfg.LookbackDays)
	if err != nil {
		e.metrics.CountAnalysis("provider_error")
		return nil, err
	}
	e.metrics.ObserveStep("fetch", fetchStart)

	model, err := analytics.BuildReturnModel(symbols, snap.Series)
	if err != nil {
		e.metrics.CountAnalysis("data_unavailable")
		return nil, err
	}
	if len(model.Missing) > 0 {
		log.Warn().Strs("symbols", model.Missing).Msg("symbols excluded for missing price history")
	}

	valuation := aggregate.Value(family, snap.Current)
	analysis := &Analysis{
		RequestID: requestID,
		Family:    family,
		Valuation: valuation,
	}

	metricsStart := time.Now()
	analysis.Metrics = e.calc.Compute(model, valuation.Weights(), snap.Benchmark, len(family.Holdings), len(family.Overlaps))
	for _, inv := range family.Investors {
		mv := aggregate.ValueMember(inv, snap.Current)
		analysis.Members = append(analysis.Members, MemberReport{
			ID:        inv.ID,
			Name:      inv.Name,
			Valuation: mv,
			Metrics:   e.calc.Compute(model, mv.Weights(), snap.Benchmark, len(inv.Holdings), 0),
		})
	}
	e.metrics.ObserveStep("metrics", metricsStart)

	optStart := time.Now()
	result, err := e.solver.Optimize(model, valuation, method)
	switch {
	case err == nil:
		analysis.Optimization = result
	default:
		var failed *domain.OptimizationFailedError
		if !errors.As(err, &failed) {
			e.metrics.CountAnalysis("optimizer_error")
			return nil, err
		}
		analysis.OptimizationFailure = failed
		e.metrics.CountOptimizerFailure(failed.Method)
		log.Warn().Int("attempts", failed.Attempts).Str("reason", failed.Reason).Msg("optimizer did not converge")
	}
	e.metrics.ObserveStep("optimize", optStart)

	riskStart := time.Now()
	analysis.Risk, err = e.risk.Analyze(model, valuation.Weights(), valuation.TotalValue)
	if err != nil {
		e.metrics.CountAnalysis("risk_error")
		return nil, err
	}
	analysis.Scenarios = risk.SimulateAll(e.scenarios, valuation.Values())
	e.metrics.ObserveStep("risk", riskStart)

	e.metrics.CountAnalysis("ok")
	log.Info().
		Float64("total_value", valuation.TotalValue).
		Float64("risk_score", analysis.Metrics.RiskScore).
		Bool("optimized", analysis.Optimization != nil).
		Msg("analysis complete")

	return analysis, nil
}
