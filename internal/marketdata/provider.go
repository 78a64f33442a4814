// Package marketdata supplies aligned daily price history to the engine.
// The engine itself never blocks on I/O: a Provider is called once up
// front and the resulting Snapshot feeds all computation.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/wealthkin/wealthkin/internal/domain"
)

// Snapshot is one analysis request's frozen view of the market: aligned
// close series per symbol, the benchmark index series, and current prices.
type Snapshot struct {
	Series    map[string]domain.PriceSeries `json:"series"`
	Benchmark domain.PriceSeries            `json:"benchmark"`
	Current   map[string]float64            `json:"current"`
}

// Provider returns price history for a symbol set over a lookback window.
// Missing symbols are simply absent from the snapshot; downstream code
// flags them rather than failing the analysis.
type Provider interface {
	History(ctx context.Context, symbols []string, lookbackDays int) (*Snapshot, error)
}

// StaticProvider serves a pre-loaded snapshot, filtered per request. Used
// by the CLI file input and by tests.
type StaticProvider struct {
	snapshot Snapshot
}

// NewStaticProvider wraps an in-memory snapshot.
func NewStaticProvider(snapshot Snapshot) *StaticProvider {
	return &StaticProvider{snapshot: snapshot}
}

// History filters the static snapshot down to the requested symbols and
// trims each series to the lookback window's most recent closes.
func (p *StaticProvider) History(_ context.Context, symbols []string, lookbackDays int) (*Snapshot, error) {
	out := &Snapshot{
		Series:    make(map[string]domain.PriceSeries, len(symbols)),
		Benchmark: trim(p.snapshot.Benchmark, lookbackDays),
		Current:   make(map[string]float64, len(symbols)),
	}
	for _, sym := range symbols {
		if s, ok := p.snapshot.Series[sym]; ok {
			out.Series[sym] = trim(s, lookbackDays)
		}
		if px, ok := p.snapshot.Current[sym]; ok {
			out.Current[sym] = px
		}
	}
	return out, nil
}

// LoadSnapshot reads a snapshot from a JSON file (the CLI's price input).
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read price snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse price snapshot: %w", err)
	}
	return &snap, nil
}

func trim(s domain.PriceSeries, lookbackDays int) domain.PriceSeries {
	// lookbackDays trading days of history yields lookbackDays closes;
	// keep one extra so the first day still has a return.
	keep := lookbackDays + 1
	if keep <= 0 || len(s.Closes) <= keep {
		return s
	}
	cut := len(s.Closes) - keep
	out := s
	out.Closes = s.Closes[cut:]
	if len(s.Dates) >= len(s.Closes) {
		out.Dates = s.Dates[cut:]
	}
	return out
}
