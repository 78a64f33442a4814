// Package analytics computes return/risk statistics from aligned daily
// price series: expected returns, covariance, correlation, beta, and the
// composite diversification and risk scores.
package analytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/wealthkin/wealthkin/internal/domain"
)

// TradingDays is the annualization constant. Returns scale by TradingDays,
// volatilities by its square root, everywhere annualized figures appear.
const TradingDays = 252

// ReturnModel is the shared numerical input for the optimizer and the risk
// analyzer: aligned daily returns plus annualized moments for the symbols
// that have usable price history.
type ReturnModel struct {
	Symbols []string // sorted symbols with usable history
	Missing []string // symbols excluded for missing/degenerate history

	Daily *mat.Dense    // observations × len(Symbols) daily returns
	Mu    []float64     // annualized expected return per symbol
	Sigma *mat.SymDense // annualized covariance matrix
}

// BuildReturnModel assembles the return model for the requested symbols.
// Symbols with no prices at all are excluded and reported in Missing; the
// build only fails (DataUnavailableError) when no symbol has a price. A
// symbol priced on a single day stays in the model with zero moments, so
// downstream metrics degrade by flag instead of erroring.
func BuildReturnModel(symbols []string, series map[string]domain.PriceSeries) (*ReturnModel, error) {
	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)

	m := &ReturnModel{}
	returns := make([][]float64, 0, len(sorted))
	obs := math.MaxInt32
	for _, s := range sorted {
		ps, ok := series[s]
		if !ok || ps.Len() == 0 {
			m.Missing = append(m.Missing, s)
			continue
		}
		r := ps.DailyReturns()
		m.Symbols = append(m.Symbols, s)
		returns = append(returns, r)
		if len(r) < obs {
			obs = len(r)
		}
	}
	if len(m.Symbols) == 0 {
		return nil, &domain.DataUnavailableError{Symbols: sorted}
	}

	n := len(m.Symbols)
	m.Mu = make([]float64, n)
	m.Sigma = mat.NewSymDense(n, nil)
	if obs == 0 {
		// Some symbol has a price but not a single computable return.
		// Daily stays nil; moments stay zero.
		return m, nil
	}

	m.Daily = mat.NewDense(obs, n, nil)
	for j, r := range returns {
		tail := r[len(r)-obs:] // most recent observations win on misalignment
		for i, v := range tail {
			m.Daily.Set(i, j, v)
		}
	}

	for j := 0; j < n; j++ {
		m.Mu[j] = stat.Mean(m.column(j), nil) * TradingDays
	}

	if obs >= 2 {
		stat.CovarianceMatrix(m.Sigma, m.Daily, nil)
		m.Sigma.ScaleSym(TradingDays, m.Sigma)
	}

	return m, nil
}

// Index returns the column index of a symbol, or -1.
func (m *ReturnModel) Index(symbol string) int {
	for i, s := range m.Symbols {
		if s == symbol {
			return i
		}
	}
	return -1
}

// Observations returns the number of aligned daily return rows.
func (m *ReturnModel) Observations() int {
	if m.Daily == nil {
		return 0
	}
	r, _ := m.Daily.Dims()
	return r
}

// AlignWeights maps a symbol→weight table onto the model's symbol order,
// renormalizing over the symbols that have data. Weights for missing
// symbols are dropped.
func (m *ReturnModel) AlignWeights(weights map[string]float64) []float64 {
	w := make([]float64, len(m.Symbols))
	sum := 0.0
	for i, s := range m.Symbols {
		w[i] = weights[s]
		sum += w[i]
	}
	if sum > 0 {
		for i := range w {
			w[i] /= sum
		}
	}
	return w
}

// WeightMap converts an ordered weight vector back to a symbol-keyed map.
func (m *ReturnModel) WeightMap(w []float64) map[string]float64 {
	out := make(map[string]float64, len(w))
	for i, s := range m.Symbols {
		out[s] = w[i]
	}
	return out
}

// PortfolioDailyReturns applies a weight vector to the historical daily
// return rows, simulating the portfolio's daily return distribution.
func (m *ReturnModel) PortfolioDailyReturns(w []float64) []float64 {
	if m.Daily == nil {
		return nil
	}
	rows, _ := m.Daily.Dims()
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		v := 0.0
		for j := range w {
			v += m.Daily.At(i, j) * w[j]
		}
		out[i] = v
	}
	return out
}

// Point evaluates annualized expected return and volatility for a weight
// vector against the model's moments.
func (m *ReturnModel) Point(w []float64) (ret, vol float64) {
	for i := range w {
		ret += w[i] * m.Mu[i]
	}
	vol = math.Sqrt(m.Variance(w))
	return ret, vol
}

// Variance computes wᵀΣw against the annualized covariance.
func (m *ReturnModel) Variance(w []float64) float64 {
	n := len(w)
	v := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v += w[i] * m.Sigma.At(i, j) * w[j]
		}
	}
	if v < 0 { // round-off on near-singular Σ
		v = 0
	}
	return v
}

// Correlation computes the Pearson correlation matrix of daily returns.
// Values are clipped to [-1,1] and the diagonal is exactly 1; a single
// symbol degenerates to a 1×1 identity.
func (m *ReturnModel) Correlation() *domain.CorrelationMatrix {
	n := len(m.Symbols)
	out := &domain.CorrelationMatrix{
		Symbols: append([]string(nil), m.Symbols...),
		Values:  make([][]float64, n),
	}
	for i := range out.Values {
		out.Values[i] = make([]float64, n)
		out.Values[i][i] = 1
	}
	if n < 2 || m.Observations() < 2 {
		return out
	}

	corr := mat.NewSymDense(n, nil)
	stat.CorrelationMatrix(corr, m.Daily, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := corr.At(i, j)
			if math.IsNaN(v) { // zero-variance column
				v = 0
			}
			out.Values[i][j] = clip(v, -1, 1)
		}
		out.Values[i][i] = 1
	}
	return out
}

// AveragePairwiseCorrelation returns the mean of the upper triangle of the
// correlation matrix, excluding the diagonal. Returns 0 for fewer than two
// symbols.
func (m *ReturnModel) AveragePairwiseCorrelation() float64 {
	return m.AveragePairwiseCorrelationAmong(m.Symbols)
}

// AveragePairwiseCorrelationAmong restricts the average to pairs within the
// given symbol subset, so a single member's diversification reflects only
// the assets that member actually holds. Symbols not in the model are
// ignored; fewer than two resolvable symbols yield 0.
func (m *ReturnModel) AveragePairwiseCorrelationAmong(symbols []string) float64 {
	idx := make([]int, 0, len(symbols))
	for _, s := range symbols {
		if i := m.Index(s); i >= 0 {
			idx = append(idx, i)
		}
	}
	if len(idx) < 2 {
		return 0
	}
	corr := m.Correlation()
	sum, count := 0.0, 0
	for a := 0; a < len(idx); a++ {
		for b := a + 1; b < len(idx); b++ {
			sum += corr.Values[idx[a]][idx[b]]
			count++
		}
	}
	return sum / float64(count)
}

func (m *ReturnModel) column(j int) []float64 {
	rows, _ := m.Daily.Dims()
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = m.Daily.At(i, j)
	}
	return out
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
