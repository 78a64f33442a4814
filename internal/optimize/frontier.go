package optimize

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/wealthkin/wealthkin/internal/analytics"
	"github.com/wealthkin/wealthkin/internal/domain"
)

// Frontier sweeps target returns between the minimum-variance portfolio's
// return and the maximum single-asset return, minimizing volatility at
// each point subject to Σw=1, w≥0, wᵀμ=target. Infeasible targets are
// skipped rather than failing the sweep, so the curve may be partial.
func (s *Solver) Frontier(model *analytics.ReturnModel) []domain.FrontierPoint {
	n := len(model.Symbols)
	if n < 2 {
		return nil
	}

	minW, _, err := s.minVariance(model)
	if err != nil {
		s.log.Warn().Err(err).Msg("frontier sweep skipped: min-variance anchor unavailable")
		return nil
	}
	low, _ := model.Point(minW)
	high := model.Mu[0]
	for _, m := range model.Mu {
		if m > high {
			high = m
		}
	}
	if high <= low {
		return nil
	}

	points := s.budget.FrontierPoints
	out := make([]domain.FrontierPoint, 0, points)
	step := (high - low) / float64(points-1)
	for i := 0; i < points; i++ {
		target := low + step*float64(i)
		w, ok := s.solveTargetReturn(model, target)
		if !ok {
			continue
		}
		ret, vol := model.Point(w)
		out = append(out, domain.FrontierPoint{
			TargetReturn:   target,
			ExpectedReturn: ret,
			Volatility:     vol,
			Sharpe:         s.sharpe(ret, vol),
		})
	}
	return out
}

// solveTargetReturn minimizes wᵀΣw subject to 1ᵀw=1 and μᵀw=target via the
// KKT system, eliminating negative-weight assets until the long-only
// solution is found or the target proves infeasible on the remaining set.
func (s *Solver) solveTargetReturn(model *analytics.ReturnModel, target float64) ([]float64, bool) {
	n := len(model.Symbols)
	active := make([]int, n)
	for i := range active {
		active[i] = i
	}

	for len(active) >= 2 {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, idx := range active {
			lo = math.Min(lo, model.Mu[idx])
			hi = math.Max(hi, model.Mu[idx])
		}
		if target < lo-sumTolerance || target > hi+sumTolerance {
			return nil, false
		}

		w, ok := solveKKT(model, active, target)
		if !ok {
			return nil, false
		}

		worst, worstVal := -1, 0.0
		for i, v := range w {
			if v < worstVal {
				worst, worstVal = i, v
			}
		}
		if worst < 0 || worstVal > -weightFloor {
			full := make([]float64, n)
			for i, idx := range active {
				full[idx] = math.Max(w[i], 0)
			}
			return project(full), true
		}
		active = append(active[:worst], active[worst+1:]...)
	}

	// A single remaining asset only matches an exact target.
	if len(active) == 1 && math.Abs(model.Mu[active[0]]-target) <= sumTolerance {
		full := make([]float64, n)
		full[active[0]] = 1
		return full, true
	}
	return nil, false
}

// solveKKT solves the equality-constrained quadratic program on the active
// set: rows are [2Σ 1 μ; 1ᵀ 0 0; μᵀ 0 0] with right-hand side [0; 1; t].
func solveKKT(model *analytics.ReturnModel, active []int, target float64) ([]float64, bool) {
	k := len(active)
	dim := k + 2
	a := mat.NewDense(dim, dim, nil)
	b := mat.NewVecDense(dim, nil)

	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			a.Set(i, j, 2*model.Sigma.At(active[i], active[j]))
		}
		a.Set(i, k, 1)
		a.Set(i, k+1, model.Mu[active[i]])
		a.Set(k, i, 1)
		a.Set(k+1, i, model.Mu[active[i]])
	}
	b.SetVec(k, 1)
	b.SetVec(k+1, target)

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return nil, false
	}

	w := make([]float64, k)
	for i := 0; i < k; i++ {
		v := x.AtVec(i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
		w[i] = v
	}
	return w, true
}
