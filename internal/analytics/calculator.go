package analytics

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/wealthkin/wealthkin/internal/domain"
)

// Calculator computes MetricSets for portfolios and members. It is
// stateless and safe for concurrent use.
type Calculator struct {
	riskFree float64
	log      zerolog.Logger
}

// NewCalculator creates a metrics calculator with the given annual
// risk-free rate (decimal).
func NewCalculator(riskFree float64, logger zerolog.Logger) *Calculator {
	return &Calculator{
		riskFree: riskFree,
		log:      logger.With().Str("component", "analytics").Logger(),
	}
}

// Compute produces the MetricSet for one weight table against the return
// model and benchmark series. holdingsCount and overlapCount feed the
// diversification and risk scores (overlapCount is zero for a single
// member's view). Degenerate inputs flag the result, they never error.
func (c *Calculator) Compute(model *ReturnModel, weights map[string]float64, benchmark domain.PriceSeries, holdingsCount, overlapCount int) *domain.MetricSet {
	w := model.AlignWeights(weights)
	daily := model.PortfolioDailyReturns(w)

	out := &domain.MetricSet{}
	for _, s := range model.Missing {
		out.Flags = append(out.Flags, fmt.Sprintf("%s:%s", domain.FlagDataUnavailable, s))
	}

	out.ExpectedReturn = annualizedReturn(daily)
	out.Volatility = annualizedVolatility(daily)

	if out.Volatility > 0 {
		out.Sharpe = (out.ExpectedReturn - c.riskFree) / out.Volatility
		out.SharpeDefined = true
	} else {
		out.Flags = append(out.Flags, domain.FlagSharpeUndefined)
	}

	beta, betaOK := betaAgainst(daily, benchmark)
	out.Beta = beta
	if !betaOK {
		out.Flags = append(out.Flags, domain.FlagBetaUndefined)
	}

	out.DiversificationScore = c.diversificationScore(model, weights, holdingsCount)
	if holdingsCount <= 1 {
		out.Flags = append(out.Flags, domain.FlagSingleHolding)
	}

	out.RiskScore = riskScore(out.Volatility, out.Beta, out.DiversificationScore, overlapCount, holdingsCount)

	c.log.Debug().
		Int("holdings", holdingsCount).
		Float64("expected_return", out.ExpectedReturn).
		Float64("volatility", out.Volatility).
		Float64("risk_score", out.RiskScore).
		Msg("metrics computed")

	return out
}

// diversificationScore is a 0-10 composite: half from a saturating holding
// count (saturates at 20 holdings), half from inverse average pairwise
// correlation over the symbols actually held, so a member's score never
// borrows correlation structure from positions they don't own.
func (c *Calculator) diversificationScore(model *ReturnModel, weights map[string]float64, holdingsCount int) float64 {
	if holdingsCount <= 1 {
		return 0
	}
	held := make([]string, 0, len(weights))
	for s, w := range weights {
		if w > 0 {
			held = append(held, s)
		}
	}
	countScore := math.Min(float64(holdingsCount)/20, 1) * 5
	corrScore := clip(1-model.AveragePairwiseCorrelationAmong(held), 0, 1) * 5
	return clip(countScore+corrScore, 0, 10)
}

// riskScore is the 0-10 composite: volatility 0-3, beta deviation 0-2,
// inverted diversification 0-3, overlap penalty 0-2.
func riskScore(volatility, beta, diversification float64, overlapCount, holdingsCount int) float64 {
	volScore := math.Min(volatility*10, 3)
	betaScore := math.Min(math.Abs(beta-1)*2, 2)
	divScore := math.Max(0, 3-diversification/10*3)
	overlapScore := 0.0
	if holdingsCount > 0 {
		overlapScore = math.Min(float64(overlapCount)/float64(holdingsCount)*2, 2)
	}
	return clip(volScore+betaScore+divScore+overlapScore, 0, 10)
}

// betaAgainst regresses portfolio daily returns on benchmark daily
// returns. Both series are truncated to their common tail. A zero-variance
// or too-short benchmark yields (0, false).
func betaAgainst(portfolio []float64, benchmark domain.PriceSeries) (float64, bool) {
	bench := benchmark.DailyReturns()
	n := len(portfolio)
	if len(bench) < n {
		n = len(bench)
	}
	if n < 2 {
		return 0, false
	}
	p := portfolio[len(portfolio)-n:]
	b := bench[len(bench)-n:]

	benchVar := stat.Variance(b, nil)
	if benchVar == 0 {
		return 0, false
	}
	return stat.Covariance(p, b, nil) / benchVar, true
}

func annualizedReturn(daily []float64) float64 {
	if len(daily) == 0 {
		return 0
	}
	return stat.Mean(daily, nil) * TradingDays
}

func annualizedVolatility(daily []float64) float64 {
	if len(daily) < 2 {
		return 0
	}
	return stat.StdDev(daily, nil) * math.Sqrt(TradingDays)
}
