package domain

// Flags attached to results when inputs are degenerate but recoverable.
const (
	FlagSharpeUndefined = "sharpe_undefined"
	FlagBetaUndefined   = "beta_undefined"
	FlagSingleHolding   = "single_holding"
	FlagApproximate     = "approximate"
	FlagDataUnavailable = "data_unavailable"
	FlagPartialFrontier = "partial_frontier"
)

// MetricSet is the computed return/risk statistics for a portfolio or member.
type MetricSet struct {
	ExpectedReturn       float64  `json:"expected_return"`
	Volatility           float64  `json:"volatility"`
	Beta                 float64  `json:"beta"`
	Sharpe               float64  `json:"sharpe"`
	SharpeDefined        bool     `json:"sharpe_defined"`
	DiversificationScore float64  `json:"diversification_score"`
	RiskScore            float64  `json:"risk_score"`
	Flags                []string `json:"flags,omitempty"`
}

// Flagged reports whether the metric set carries the given flag.
func (m *MetricSet) Flagged(flag string) bool {
	for _, f := range m.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// PortfolioPoint is one (return, volatility, sharpe) triple for a weight vector.
type PortfolioPoint struct {
	ExpectedReturn float64 `json:"expected_return"`
	Volatility     float64 `json:"volatility"`
	Sharpe         float64 `json:"sharpe"`
}

// FrontierPoint is one efficient-frontier sample.
type FrontierPoint struct {
	TargetReturn   float64 `json:"target_return"`
	ExpectedReturn float64 `json:"expected_return"`
	Volatility     float64 `json:"volatility"`
	Sharpe         float64 `json:"sharpe"`
}

// TradeAction classifies a rebalancing trade.
type TradeAction string

const (
	TradeBuy  TradeAction = "buy"
	TradeSell TradeAction = "sell"
)

// Trade is one rebalancing action. QuantityDelta and ValueDelta are signed
// and their sign matches the action.
type Trade struct {
	Symbol        string      `json:"symbol"`
	Action        TradeAction `json:"action"`
	QuantityDelta float64     `json:"quantity_delta"`
	ValueDelta    float64     `json:"value_delta"`
	CurrentWeight float64     `json:"current_weight"`
	TargetWeight  float64     `json:"target_weight"`
}

// Improvement captures metric deltas between current and optimized weights.
type Improvement struct {
	ReturnChange     float64 `json:"return_change"`
	VolatilityChange float64 `json:"volatility_change"`
	SharpeChange     float64 `json:"sharpe_change"`
}

// OptimizationResult is the output of one optimizer run.
type OptimizationResult struct {
	Method           string             `json:"method"`
	CurrentWeights   map[string]float64 `json:"current_weights"`
	OptimizedWeights map[string]float64 `json:"optimized_weights"`
	CurrentMetrics   PortfolioPoint     `json:"current_metrics"`
	OptimizedMetrics PortfolioPoint     `json:"optimized_metrics"`
	Improvement      Improvement        `json:"improvement"`
	Trades           []Trade            `json:"trade_list"`
	Frontier         []FrontierPoint    `json:"frontier_points,omitempty"`
	Flags            []string           `json:"flags,omitempty"`
}

// CorrelationMatrix is a symmetric Pearson correlation matrix with unit
// diagonal, ordered by Symbols.
type CorrelationMatrix struct {
	Symbols []string    `json:"symbols"`
	Values  [][]float64 `json:"values"`
}

// At returns the correlation between two symbols by name.
func (c *CorrelationMatrix) At(a, b string) (float64, bool) {
	ia, ib := -1, -1
	for i, s := range c.Symbols {
		if s == a {
			ia = i
		}
		if s == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return 0, false
	}
	return c.Values[ia][ib], true
}

// ValueAtRisk is a historical VaR estimate at one confidence level.
type ValueAtRisk struct {
	Confidence   float64 `json:"confidence"`
	Daily        float64 `json:"daily"`
	Annualized   float64 `json:"annualized"`
	CurrencyLoss float64 `json:"currency_loss"`
}

// Concentration summarizes weight concentration of the portfolio.
type Concentration struct {
	HHI               float64 `json:"hhi"`
	Top1              float64 `json:"top_1_concentration"`
	Top3              float64 `json:"top_3_concentration"`
	Top5              float64 `json:"top_5_concentration"`
	EffectiveHoldings float64 `json:"effective_holdings"`
	Level             string  `json:"concentration_level"`
	Rating            string  `json:"risk_rating"`
}

// RiskContribution is one holding's share of total portfolio volatility.
type RiskContribution struct {
	Symbol       string  `json:"symbol"`
	Weight       float64 `json:"weight"`
	Marginal     float64 `json:"marginal_risk"`
	Contribution float64 `json:"risk_contribution"`
	Pct          float64 `json:"risk_contribution_pct"`
}

// RiskReport is the output of risk analysis on current weights.
type RiskReport struct {
	Correlation   *CorrelationMatrix `json:"correlation_matrix"`
	VaR           ValueAtRisk        `json:"var"`
	CVaR          ValueAtRisk        `json:"cvar"`
	Concentration Concentration      `json:"concentration"`
	Contributions []RiskContribution `json:"risk_contribution_per_holding"`
	Flags         []string           `json:"flags,omitempty"`
}

// Scenario is a named hypothetical market shock. Changes maps symbols to
// percentage moves; DefaultChangePct applies to every symbol not named.
type Scenario struct {
	Name             string             `json:"name" yaml:"name"`
	DefaultChangePct float64            `json:"default_change_pct" yaml:"default_change_pct"`
	Changes          map[string]float64 `json:"changes" yaml:"changes"`
}

// HoldingImpact is one symbol's projected move under a scenario.
type HoldingImpact struct {
	Symbol         string  `json:"symbol"`
	CurrentValue   float64 `json:"current_value"`
	ProjectedValue float64 `json:"projected_value"`
	Impact         float64 `json:"impact"`
	PctChange      float64 `json:"pct_change"`
}

// ScenarioResult is the projected portfolio outcome under one scenario.
type ScenarioResult struct {
	Scenario       string          `json:"scenario"`
	CurrentValue   float64         `json:"current_value"`
	ProjectedValue float64         `json:"projected_value"`
	ValueChange    float64         `json:"value_change"`
	PctImpact      float64         `json:"pct_impact"`
	PerHolding     []HoldingImpact `json:"per_holding_impact"`
}
