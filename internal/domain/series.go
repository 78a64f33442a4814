package domain

import "time"

// PriceSeries holds aligned daily closing prices for one symbol.
// All series within one analysis share the same date index.
type PriceSeries struct {
	Symbol    string      `json:"symbol"`
	Dates     []time.Time `json:"dates"`
	Closes    []float64   `json:"closes"`
	Benchmark bool        `json:"benchmark,omitempty"`
}

// Len returns the number of observations in the series.
func (s PriceSeries) Len() int { return len(s.Closes) }

// Empty reports whether the series carries no usable observations.
// A single close yields no returns, so it counts as empty for analytics.
func (s PriceSeries) Empty() bool { return len(s.Closes) < 2 }

// DailyReturns computes arithmetic daily percentage changes.
func (s PriceSeries) DailyReturns() []float64 {
	if s.Empty() {
		return nil
	}
	out := make([]float64, len(s.Closes)-1)
	for i := 1; i < len(s.Closes); i++ {
		out[i-1] = (s.Closes[i] - s.Closes[i-1]) / s.Closes[i-1]
	}
	return out
}
