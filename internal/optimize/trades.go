package optimize

import (
	"math"
	"sort"

	"github.com/wealthkin/wealthkin/internal/domain"
)

// GenerateTrades converts the current→target weight delta into discrete
// buy/sell actions. Deltas below materialityPct of portfolio value are
// dropped as noise. The returned list is sorted by |value delta|
// descending; downstream reporting relies on that ordering.
func GenerateTrades(current, target map[string]float64, valuation *domain.Valuation, materialityPct float64) []domain.Trade {
	totalValue := valuation.TotalValue
	if totalValue <= 0 {
		return nil
	}
	prices := make(map[string]float64, len(valuation.Positions))
	for _, p := range valuation.Positions {
		prices[p.Symbol] = p.CurrentPrice
	}

	symbols := make([]string, 0, len(target))
	for s := range target {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	threshold := materialityPct * totalValue
	trades := make([]domain.Trade, 0, len(symbols))
	for _, sym := range symbols {
		delta := (target[sym] - current[sym]) * totalValue
		if math.Abs(delta) < threshold || delta == 0 {
			continue
		}
		price := prices[sym]
		if price <= 0 {
			continue // cannot size a trade without a live price
		}
		action := domain.TradeBuy
		if delta < 0 {
			action = domain.TradeSell
		}
		trades = append(trades, domain.Trade{
			Symbol:        sym,
			Action:        action,
			QuantityDelta: delta / price,
			ValueDelta:    delta,
			CurrentWeight: current[sym],
			TargetWeight:  target[sym],
		})
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return math.Abs(trades[i].ValueDelta) > math.Abs(trades[j].ValueDelta)
	})
	return trades
}
