// Package aggregate merges per-investor holdings into a family-level view
// and detects positions held by more than one member.
package aggregate

import (
	"fmt"
	"sort"

	"github.com/wealthkin/wealthkin/internal/domain"
)

// Aggregate builds the family portfolio from a validated investor list.
// It returns an AggregationError when the family has no investors or any
// investor carries zero holdings. The result is a pure function of its
// input: family holdings sum member quantities per symbol, cost basis is
// the value-weighted average across owners, and overlaps list every symbol
// held by at least two distinct investors, sorted by symbol.
func Aggregate(input domain.FamilyInput) (*domain.FamilyPortfolio, error) {
	if len(input.Investors) == 0 {
		return nil, &domain.AggregationError{Reason: "family has no investors"}
	}

	seen := make(map[string]bool, len(input.Investors))
	for _, inv := range input.Investors {
		if inv.ID == "" {
			return nil, &domain.AggregationError{Reason: "investor with empty id"}
		}
		if seen[inv.ID] {
			return nil, &domain.AggregationError{Reason: fmt.Sprintf("duplicate investor id %s", inv.ID)}
		}
		seen[inv.ID] = true
		if len(inv.Holdings) == 0 {
			return nil, &domain.AggregationError{Reason: fmt.Sprintf("investor %s has no holdings", inv.ID)}
		}
	}

	type accum struct {
		quantity  float64
		costValue float64 // Σ quantity×cost_basis over owners that reported one
		costQty   float64 // Σ quantity over owners that reported a cost basis
		owners    []domain.OwnerShare
		investors map[string]bool
	}
	bySymbol := make(map[string]*accum)

	for _, inv := range input.Investors {
		for _, h := range inv.Holdings {
			if h.Quantity <= 0 {
				return nil, &domain.AggregationError{
					Reason: fmt.Sprintf("investor %s holds non-positive quantity of %s", inv.ID, h.Symbol),
				}
			}
			a := bySymbol[h.Symbol]
			if a == nil {
				a = &accum{investors: make(map[string]bool)}
				bySymbol[h.Symbol] = a
			}
			a.quantity += h.Quantity
			if h.CostBasis > 0 {
				a.costValue += h.Quantity * h.CostBasis
				a.costQty += h.Quantity
			}
			a.owners = append(a.owners, domain.OwnerShare{
				InvestorID: inv.ID,
				Name:       inv.Name,
				Quantity:   h.Quantity,
			})
			a.investors[inv.ID] = true
		}
	}

	symbols := make([]string, 0, len(bySymbol))
	for s := range bySymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	out := &domain.FamilyPortfolio{
		Email:     input.Email,
		Investors: input.Investors,
	}
	for _, s := range symbols {
		a := bySymbol[s]
		fh := domain.FamilyHolding{
			Symbol:   s,
			Quantity: a.quantity,
			Owners:   a.owners,
		}
		if a.costQty > 0 {
			fh.CostBasis = a.costValue / a.costQty
		}
		out.Holdings = append(out.Holdings, fh)

		if len(a.investors) >= 2 {
			out.Overlaps = append(out.Overlaps, domain.Overlap{
				Symbol:  s,
				Holders: a.owners,
			})
		}
	}

	return out, nil
}

// Value prices family holdings with current market prices. Symbols without a
// price are valued at zero so they still appear in the position table.
func Value(p *domain.FamilyPortfolio, prices map[string]float64) *domain.Valuation {
	return valuePositions(familyPositions(p), prices)
}

// ValueMember prices a single investor's holdings.
func ValueMember(inv domain.Investor, prices map[string]float64) *domain.Valuation {
	positions := make([]position, 0, len(inv.Holdings))
	for _, h := range inv.Holdings {
		positions = append(positions, position{symbol: h.Symbol, quantity: h.Quantity, costBasis: h.CostBasis})
	}
	return valuePositions(positions, prices)
}

type position struct {
	symbol    string
	quantity  float64
	costBasis float64
}

func familyPositions(p *domain.FamilyPortfolio) []position {
	out := make([]position, 0, len(p.Holdings))
	for _, h := range p.Holdings {
		out = append(out, position{symbol: h.Symbol, quantity: h.Quantity, costBasis: h.CostBasis})
	}
	return out
}

func valuePositions(positions []position, prices map[string]float64) *domain.Valuation {
	v := &domain.Valuation{}
	for _, pos := range positions {
		price := prices[pos.symbol]
		value := pos.quantity * price
		cost := 0.0
		if pos.costBasis > 0 {
			cost = pos.quantity * pos.costBasis
		}
		pv := domain.PositionValue{
			Symbol:       pos.symbol,
			Quantity:     pos.quantity,
			CurrentPrice: price,
			Value:        value,
			Cost:         cost,
		}
		if cost > 0 {
			pv.Gain = value - cost
			pv.GainPct = pv.Gain / cost * 100
		}
		v.Positions = append(v.Positions, pv)
		v.TotalValue += value
		v.TotalCost += cost
	}
	if v.TotalValue > 0 {
		for i := range v.Positions {
			v.Positions[i].Weight = v.Positions[i].Value / v.TotalValue
		}
	}
	v.TotalGain = v.TotalValue - v.TotalCost
	if v.TotalCost > 0 {
		v.GainPct = v.TotalGain / v.TotalCost * 100
	}
	return v
}
