// Package optimize solves constrained mean-variance portfolio allocation:
// max-Sharpe via penalized nonlinear minimization, min-volatility via an
// exact active-set solve, the equal-weight baseline, the efficient-frontier
// sweep, and discrete trade synthesis from weight deltas.
package optimize

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/wealthkin/wealthkin/internal/analytics"
	"github.com/wealthkin/wealthkin/internal/domain"
)

// Method selects the optimization objective.
type Method string

const (
	MethodMaxSharpe     Method = "max_sharpe"
	MethodMinVolatility Method = "min_volatility"
	MethodEqualWeight   Method = "equal_weight"
)

// Budget bounds the solver's work so callers get a degraded result instead
// of a hang.
type Budget struct {
	MaxIterations  int // per nonlinear solve
	FrontierPoints int // target-return samples in the frontier sweep
}

// DefaultBudget mirrors the engine's configuration defaults.
var DefaultBudget = Budget{MaxIterations: 2000, FrontierPoints: 40}

const (
	penaltyWeight = 1000.0
	weightFloor   = 1e-9
	sumTolerance  = 1e-6
)

// Solver runs portfolio optimizations against a return model. It holds no
// per-request state and is safe for concurrent use.
type Solver struct {
	riskFree       float64
	budget         Budget
	materialityPct float64
	log            zerolog.Logger
}

// NewSolver creates a solver. materialityPct is the trade materiality
// threshold as a fraction of portfolio value (e.g. 0.005).
func NewSolver(riskFree float64, budget Budget, materialityPct float64, logger zerolog.Logger) *Solver {
	if budget.MaxIterations <= 0 {
		budget.MaxIterations = DefaultBudget.MaxIterations
	}
	// A single-point sweep has no step between anchors.
	if budget.FrontierPoints < 2 {
		budget.FrontierPoints = DefaultBudget.FrontierPoints
	}
	return &Solver{
		riskFree:       riskFree,
		budget:         budget,
		materialityPct: materialityPct,
		log:            logger.With().Str("component", "optimizer").Logger(),
	}
}

// Optimize produces target weights under the selected method, the
// efficient frontier, and the trade list transforming the valuation's
// current weights into the target. Non-convergence surfaces as
// OptimizationFailedError carrying the last attempted weights; it is never
// silently replaced with another method's result.
func (s *Solver) Optimize(model *analytics.ReturnModel, valuation *domain.Valuation, method Method) (*domain.OptimizationResult, error) {
	current := model.AlignWeights(valuation.Weights())

	var (
		target []float64
		flags  []string
		err    error
	)
	switch method {
	case MethodEqualWeight:
		target = equalWeights(len(model.Symbols))
	case MethodMinVolatility:
		var approx bool
		target, approx, err = s.minVariance(model)
		if approx {
			flags = append(flags, domain.FlagApproximate)
		}
	case MethodMaxSharpe:
		target, err = s.maxSharpe(model, current)
	default:
		return nil, fmt.Errorf("unknown optimization method %q", method)
	}
	if err != nil {
		return nil, err
	}

	curRet, curVol := model.Point(current)
	tgtRet, tgtVol := model.Point(target)
	curPoint := domain.PortfolioPoint{ExpectedReturn: curRet, Volatility: curVol, Sharpe: s.sharpe(curRet, curVol)}
	tgtPoint := domain.PortfolioPoint{ExpectedReturn: tgtRet, Volatility: tgtVol, Sharpe: s.sharpe(tgtRet, tgtVol)}

	result := &domain.OptimizationResult{
		Method:           string(method),
		CurrentWeights:   model.WeightMap(current),
		OptimizedWeights: model.WeightMap(target),
		CurrentMetrics:   curPoint,
		OptimizedMetrics: tgtPoint,
		Improvement: domain.Improvement{
			ReturnChange:     tgtPoint.ExpectedReturn - curPoint.ExpectedReturn,
			VolatilityChange: tgtPoint.Volatility - curPoint.Volatility,
			SharpeChange:     tgtPoint.Sharpe - curPoint.Sharpe,
		},
		Flags: flags,
	}

	result.Frontier = s.Frontier(model)
	if len(model.Symbols) >= 2 && len(result.Frontier) < s.budget.FrontierPoints {
		result.Flags = append(result.Flags, domain.FlagPartialFrontier)
	}
	result.Trades = GenerateTrades(result.CurrentWeights, result.OptimizedWeights, valuation, s.materialityPct)

	s.log.Info().
		Str("method", string(method)).
		Float64("sharpe_current", curPoint.Sharpe).
		Float64("sharpe_optimized", tgtPoint.Sharpe).
		Int("trades", len(result.Trades)).
		Msg("optimization complete")

	return result, nil
}

func (s *Solver) sharpe(ret, vol float64) float64 {
	if vol <= 0 {
		return 0
	}
	return (ret - s.riskFree) / vol
}

// maxSharpe maximizes (wμ − rf)/√(wΣw) subject to Σw=1, w≥0. There is no
// closed form under the long-only constraint, so the objective is solved
// as a penalized nonlinear minimization. A solution must strictly beat the
// current allocation's Sharpe ratio; one that merely converges counts as a
// failed attempt. The retry control flow is an explicit state machine:
// attemptNeutral (equal weights) → attemptWarm (current weights) →
// attemptFailed.
func (s *Solver) maxSharpe(model *analytics.ReturnModel, current []float64) ([]float64, error) {
	type attemptState int
	const (
		attemptNeutral attemptState = iota
		attemptWarm
		attemptFailed
	)

	curRet, curVol := model.Point(current)
	curSharpe := s.sharpe(curRet, curVol)

	state := attemptNeutral
	attempts := 0
	var last []float64
	var lastErr error

	for state != attemptFailed {
		var start []float64
		switch state {
		case attemptNeutral:
			start = equalWeights(len(model.Symbols))
		case attemptWarm:
			start = append([]float64(nil), current...)
		}

		attempts++
		w, err := s.solveSharpe(model, start)
		if err == nil {
			ret, vol := model.Point(w)
			if s.sharpe(ret, vol) > curSharpe {
				if state == attemptWarm {
					s.log.Debug().Msg("max-sharpe converged on warm restart")
				}
				return w, nil
			}
			err = fmt.Errorf("converged without improving sharpe ratio (%.6f vs current %.6f)", s.sharpe(ret, vol), curSharpe)
		}
		lastErr = err
		if w != nil {
			last = w
		}
		s.log.Warn().Err(err).Int("attempt", attempts).Msg("max-sharpe attempt did not converge")

		switch state {
		case attemptNeutral:
			state = attemptWarm
		case attemptWarm:
			state = attemptFailed
		}
	}

	return nil, &domain.OptimizationFailedError{
		Method:      string(MethodMaxSharpe),
		Attempts:    attempts,
		Reason:      lastErr.Error(),
		LastWeights: model.WeightMap(last),
	}
}

// solveSharpe runs one penalized Nelder-Mead minimization of the negative
// Sharpe ratio from the given start point, then projects the solution back
// onto the simplex. The returned weights (valid or not) accompany any
// error for diagnostics.
func (s *Solver) solveSharpe(model *analytics.ReturnModel, start []float64) ([]float64, error) {
	objective := func(w []float64) float64 {
		ret, vol := model.Point(w)
		penalty := 0.0
		sum := 0.0
		for _, v := range w {
			sum += v
			if v < 0 {
				penalty += v * v
			}
		}
		d := sum - 1
		penalty += d * d
		if vol <= 0 {
			return penaltyWeight * (1 + penalty)
		}
		return -(ret-s.riskFree)/vol + penaltyWeight*penalty
	}

	problem := optimize.Problem{Func: objective}
	settings := &optimize.Settings{
		MajorIterations: s.budget.MaxIterations,
		FuncEvaluations: s.budget.MaxIterations * 10,
	}

	res, err := optimize.Minimize(problem, start, settings, &optimize.NelderMead{})
	if err != nil {
		if res != nil {
			return project(res.X), fmt.Errorf("nelder-mead: %w", err)
		}
		return nil, fmt.Errorf("nelder-mead: %w", err)
	}

	w := project(res.X)
	if err := validateWeights(w); err != nil {
		return w, err
	}
	_, vol := model.Point(w)
	if vol <= 0 {
		return w, fmt.Errorf("projected solution has zero volatility")
	}
	return w, nil
}

// minVariance minimizes √(wᵀΣw) subject to Σw=1, w≥0. This is a convex
// quadratic program solved exactly by iterating the closed-form
// equality-constrained solution and eliminating negative-weight assets.
// A singular Σ gets a small ridge and the result is reported approximate.
func (s *Solver) minVariance(model *analytics.ReturnModel) ([]float64, bool, error) {
	n := len(model.Symbols)
	if n == 1 {
		return []float64{1}, false, nil
	}

	active := make([]int, n)
	for i := range active {
		active[i] = i
	}
	approx := false

	for len(active) > 1 {
		sub, ridged := s.factorableSub(model.Sigma, active)
		if ridged {
			approx = true
		}

		ones := mat.NewVecDense(len(active), nil)
		for i := 0; i < len(active); i++ {
			ones.SetVec(i, 1)
		}
		var chol mat.Cholesky
		if !chol.Factorize(sub) {
			return nil, approx, fmt.Errorf("covariance not factorable even after regularization")
		}
		var x mat.VecDense
		if err := chol.SolveVecTo(&x, ones); err != nil {
			return nil, approx, fmt.Errorf("min-variance solve: %w", err)
		}
		denom := mat.Dot(ones, &x)
		if denom == 0 {
			return nil, approx, fmt.Errorf("degenerate min-variance system")
		}

		worst, worstVal := -1, 0.0
		w := make([]float64, len(active))
		for i := range active {
			w[i] = x.AtVec(i) / denom
			if w[i] < worstVal {
				worst, worstVal = i, w[i]
			}
		}

		if worst < 0 || worstVal > -weightFloor {
			full := make([]float64, n)
			for i, idx := range active {
				full[idx] = math.Max(w[i], 0)
			}
			return project(full), approx, nil
		}
		active = append(active[:worst], active[worst+1:]...)
	}

	full := make([]float64, n)
	full[active[0]] = 1
	return full, approx, nil
}

// factorableSub extracts the active submatrix of Σ, adding an escalating
// ridge until Cholesky factorization succeeds.
func (s *Solver) factorableSub(sigma *mat.SymDense, active []int) (*mat.SymDense, bool) {
	k := len(active)
	sub := mat.NewSymDense(k, nil)
	trace := 0.0
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			sub.SetSym(i, j, sigma.At(active[i], active[j]))
		}
		trace += sub.At(i, i)
	}

	var chol mat.Cholesky
	if chol.Factorize(sub) {
		return sub, false
	}

	ridge := 1e-8 * math.Max(trace/float64(k), 1e-8)
	for iter := 0; iter < 8; iter++ {
		for i := 0; i < k; i++ {
			sub.SetSym(i, i, sub.At(i, i)+ridge)
		}
		if chol.Factorize(sub) {
			s.log.Warn().Float64("ridge", ridge).Msg("singular covariance regularized")
			return sub, true
		}
		ridge *= 10
	}
	return sub, true
}

func equalWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return w
}

// project clips negative weights to zero and renormalizes onto the simplex.
func project(w []float64) []float64 {
	out := make([]float64, len(w))
	sum := 0.0
	for i, v := range w {
		if v > 0 {
			out[i] = v
			sum += v
		}
	}
	if sum == 0 {
		return equalWeights(len(w))
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func validateWeights(w []float64) error {
	sum := 0.0
	for _, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite weight in solution")
		}
		if v < -weightFloor {
			return fmt.Errorf("negative weight %.6g in solution", v)
		}
		sum += v
	}
	if math.Abs(sum-1) > sumTolerance {
		return fmt.Errorf("weights sum to %.8f, want 1", sum)
	}
	return nil
}
