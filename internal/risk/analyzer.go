// Package risk produces the downside-risk view of a portfolio: correlation
// structure, historical VaR/CVaR, concentration indices, marginal risk
// contributions, and scenario simulation.
package risk

import (
	"math"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/wealthkin/wealthkin/internal/analytics"
	"github.com/wealthkin/wealthkin/internal/domain"
)

// Analyzer computes risk reports at a fixed confidence level. Stateless,
// safe for concurrent use.
type Analyzer struct {
	confidence float64
	log        zerolog.Logger
}

// NewAnalyzer creates a risk analyzer. confidence is the VaR confidence
// level, e.g. 0.95.
func NewAnalyzer(confidence float64, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		confidence: confidence,
		log:        logger.With().Str("component", "risk").Logger(),
	}
}

// Analyze builds the risk report for current weights. weights is the full
// symbol→weight table (concentration uses it as-is); return-based figures
// use the model's available symbols with weights renormalized over them.
func (a *Analyzer) Analyze(model *analytics.ReturnModel, weights map[string]float64, totalValue float64) (*domain.RiskReport, error) {
	w := model.AlignWeights(weights)
	daily := model.PortfolioDailyReturns(w)

	report := &domain.RiskReport{
		Correlation:   model.Correlation(),
		Concentration: concentration(weights),
	}
	for _, s := range model.Missing {
		report.Flags = append(report.Flags, domain.FlagDataUnavailable+":"+s)
	}
	if len(model.Symbols) == 1 {
		report.Flags = append(report.Flags, domain.FlagSingleHolding)
	}

	report.VaR, report.CVaR = a.valueAtRisk(daily, totalValue)
	report.Contributions = a.riskContributions(model, w)

	a.log.Debug().
		Float64("var_daily", report.VaR.Daily).
		Float64("cvar_daily", report.CVaR.Daily).
		Float64("hhi", report.Concentration.HHI).
		Msg("risk report computed")

	return report, nil
}

// valueAtRisk computes historical VaR and CVaR from simulated daily
// portfolio returns. CVaR is the mean of returns at or below the VaR
// percentile, so its loss magnitude is always ≥ VaR's.
func (a *Analyzer) valueAtRisk(daily []float64, totalValue float64) (domain.ValueAtRisk, domain.ValueAtRisk) {
	v := domain.ValueAtRisk{Confidence: a.confidence}
	c := domain.ValueAtRisk{Confidence: a.confidence}
	if len(daily) < 2 {
		return v, c
	}

	sorted := append([]float64(nil), daily...)
	sort.Float64s(sorted)
	varDaily := stat.Quantile(1-a.confidence, stat.Empirical, sorted, nil)

	tailSum, tailN := 0.0, 0
	for _, r := range sorted {
		if r <= varDaily {
			tailSum += r
			tailN++
		}
	}
	cvarDaily := varDaily
	if tailN > 0 {
		cvarDaily = tailSum / float64(tailN)
	}

	annual := math.Sqrt(analytics.TradingDays)
	v.Daily, v.Annualized, v.CurrencyLoss = varDaily, varDaily*annual, varDaily*totalValue
	c.Daily, c.Annualized, c.CurrencyLoss = cvarDaily, cvarDaily*annual, cvarDaily*totalValue
	return v, c
}

// riskContributions decomposes portfolio volatility: contribution_i =
// w_i·(Σw)_i/σp. The contributions sum to total portfolio volatility.
func (a *Analyzer) riskContributions(model *analytics.ReturnModel, w []float64) []domain.RiskContribution {
	variance := model.Variance(w)
	vol := math.Sqrt(variance)
	out := make([]domain.RiskContribution, 0, len(w))
	for i, sym := range model.Symbols {
		rc := domain.RiskContribution{Symbol: sym, Weight: w[i]}
		if vol > 0 {
			sigmaW := 0.0
			for j := range w {
				sigmaW += model.Sigma.At(i, j) * w[j]
			}
			rc.Marginal = sigmaW / vol
			rc.Contribution = w[i] * rc.Marginal
			rc.Pct = rc.Contribution / vol * 100
		}
		out = append(out, rc)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Contribution) > math.Abs(out[j].Contribution)
	})
	return out
}

// concentration computes HHI, top-N sums, and the effective holding count
// over the full weight table.
func concentration(weights map[string]float64) domain.Concentration {
	sorted := make([]float64, 0, len(weights))
	hhi := 0.0
	for _, w := range weights {
		sorted = append(sorted, w)
		hhi += w * w
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	topN := func(n int) float64 {
		sum := 0.0
		for i := 0; i < n && i < len(sorted); i++ {
			sum += sorted[i]
		}
		return sum
	}

	c := domain.Concentration{
		HHI:  hhi,
		Top1: topN(1),
		Top3: topN(3),
		Top5: topN(5),
	}
	if hhi > 0 {
		c.EffectiveHoldings = 1 / hhi
	}

	switch {
	case c.Top3 > 0.75:
		c.Level, c.Rating = "very_high", "high_risk"
	case c.Top3 > 0.50:
		c.Level, c.Rating = "high", "moderate_high_risk"
	case c.Top3 > 0.30:
		c.Level, c.Rating = "moderate", "moderate_risk"
	default:
		c.Level, c.Rating = "low", "low_risk"
	}
	return c
}
