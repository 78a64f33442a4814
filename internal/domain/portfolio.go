package domain

// Holding is one position in one symbol owned by a single investor.
type Holding struct {
	Symbol    string  `json:"symbol"`
	Quantity  float64 `json:"quantity"`
	CostBasis float64 `json:"cost_basis,omitempty"`
}

// Investor is one family member and their positions.
type Investor struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Holdings []Holding `json:"holdings"`
}

// FamilyInput is the raw, schema-validated portfolio supplied by the caller.
type FamilyInput struct {
	Email     string     `json:"email"`
	Investors []Investor `json:"investors"`
}

// OwnerShare records one investor's stake in a symbol.
type OwnerShare struct {
	InvestorID string  `json:"investor_id"`
	Name       string  `json:"name"`
	Quantity   float64 `json:"quantity"`
}

// FamilyHolding is the family-level aggregate for one symbol.
type FamilyHolding struct {
	Symbol    string       `json:"symbol"`
	Quantity  float64      `json:"quantity"`
	CostBasis float64      `json:"cost_basis"` // value-weighted average across owners
	Owners    []OwnerShare `json:"owners"`
}

// Overlap is a symbol held by two or more distinct investors.
type Overlap struct {
	Symbol  string       `json:"symbol"`
	Holders []OwnerShare `json:"holders"`
}

// FamilyPortfolio is the aggregated view of all investors in a family.
// Holdings and Overlaps are sorted by symbol for stable output.
type FamilyPortfolio struct {
	Email     string          `json:"email"`
	Investors []Investor      `json:"investors"`
	Holdings  []FamilyHolding `json:"holdings"`
	Overlaps  []Overlap       `json:"overlaps"`
}

// Holding returns the aggregated family holding for a symbol, if present.
func (p *FamilyPortfolio) Holding(symbol string) (FamilyHolding, bool) {
	for _, h := range p.Holdings {
		if h.Symbol == symbol {
			return h, true
		}
	}
	return FamilyHolding{}, false
}

// Symbols returns all family symbols in sorted order.
func (p *FamilyPortfolio) Symbols() []string {
	out := make([]string, 0, len(p.Holdings))
	for _, h := range p.Holdings {
		out = append(out, h.Symbol)
	}
	return out
}

// PositionValue is one symbol's valuation within a priced portfolio.
type PositionValue struct {
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	CurrentPrice float64 `json:"current_price"`
	Value        float64 `json:"value"`
	Cost         float64 `json:"cost"`
	Gain         float64 `json:"gain"`
	GainPct      float64 `json:"gain_pct"`
	Weight       float64 `json:"weight"`
}

// Valuation prices a set of holdings with current market prices.
type Valuation struct {
	TotalValue float64         `json:"total_value"`
	TotalCost  float64         `json:"total_cost"`
	TotalGain  float64         `json:"total_gain"`
	GainPct    float64         `json:"gain_pct"`
	Positions  []PositionValue `json:"positions"`
}

// Weights returns the symbol→weight map of the valuation.
func (v *Valuation) Weights() map[string]float64 {
	out := make(map[string]float64, len(v.Positions))
	for _, p := range v.Positions {
		out[p.Symbol] = p.Weight
	}
	return out
}

// Values returns the symbol→market value map of the valuation.
func (v *Valuation) Values() map[string]float64 {
	out := make(map[string]float64, len(v.Positions))
	for _, p := range v.Positions {
		out[p.Symbol] = p.Value
	}
	return out
}
