package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/wealthkin/wealthkin/internal/domain"
)

// HTTPFetcher pulls daily bars from a REST price service. Calls are rate
// limited and wrapped in a circuit breaker so a misbehaving upstream trips
// open instead of stalling every analysis.
type HTTPFetcher struct {
	baseURL   string
	benchmark string
	client    *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	log       zerolog.Logger
}

// NewHTTPFetcher creates a fetcher against baseURL. rps bounds requests
// per second across all symbols.
func NewHTTPFetcher(baseURL, benchmark string, rps float64, logger zerolog.Logger) *HTTPFetcher {
	log := logger.With().Str("component", "price_fetcher").Logger()
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "price-service",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("price service breaker state change")
		},
	})
	return &HTTPFetcher{
		baseURL:   baseURL,
		benchmark: benchmark,
		client:    &http.Client{Timeout: 10 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		breaker:   breaker,
		log:       log,
	}
}

type barResponse struct {
	Symbol string  `json:"symbol"`
	Bars   []bar   `json:"bars"`
	Last   float64 `json:"last"`
}

type bar struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// History fetches each requested symbol plus the benchmark. A symbol whose
// fetch fails is logged and omitted; only a failed benchmark fetch or a
// tripped breaker on every symbol aborts.
func (f *HTTPFetcher) History(ctx context.Context, symbols []string, lookbackDays int) (*Snapshot, error) {
	snap := &Snapshot{
		Series:  make(map[string]domain.PriceSeries, len(symbols)),
		Current: make(map[string]float64, len(symbols)),
	}

	bench, err := f.fetch(ctx, f.benchmark, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch benchmark %s: %w", f.benchmark, err)
	}
	benchSeries := toSeries(f.benchmark, bench)
	benchSeries.Benchmark = true
	snap.Benchmark = benchSeries

	for _, sym := range symbols {
		resp, err := f.fetch(ctx, sym, lookbackDays)
		if err != nil {
			f.log.Warn().Err(err).Str("symbol", sym).Msg("symbol fetch failed, excluding")
			continue
		}
		snap.Series[sym] = toSeries(sym, resp)
		snap.Current[sym] = resp.Last
	}
	return snap, nil
}

func (f *HTTPFetcher) fetch(ctx context.Context, symbol string, lookbackDays int) (*barResponse, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := f.breaker.Execute(func() (interface{}, error) {
		url := fmt.Sprintf("%s/v1/daily/%s?days=%d", f.baseURL, symbol, lookbackDays+1)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("price service returned %d for %s", resp.StatusCode, symbol)
		}
		var out barResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("failed to decode bars for %s: %w", symbol, err)
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*barResponse), nil
}

func toSeries(symbol string, resp *barResponse) domain.PriceSeries {
	s := domain.PriceSeries{Symbol: symbol}
	for _, b := range resp.Bars {
		s.Dates = append(s.Dates, b.Date)
		s.Closes = append(s.Closes, b.Close)
	}
	return s
}
