package marketdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// barService fakes the daily-price REST endpoint. Symbols in failing get a
// 500; symbolHits counts non-benchmark requests that reach the server.
func barService(t *testing.T, benchmark string, failing map[string]bool, symbolHits *int32) *httptest.Server {
	t.Helper()
	day := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sym := strings.TrimPrefix(r.URL.Path, "/v1/daily/")
		if sym != benchmark && symbolHits != nil {
			atomic.AddInt32(symbolHits, 1)
		}
		if failing[sym] {
			http.Error(w, "upstream unavailable", http.StatusInternalServerError)
			return
		}
		resp := barResponse{
			Symbol: sym,
			Bars: []bar{
				{Date: day, Close: 100},
				{Date: day.AddDate(0, 0, 1), Close: 101},
				{Date: day.AddDate(0, 0, 2), Close: 102},
			},
			Last: 102,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestHTTPFetcher_History(t *testing.T) {
	srv := barService(t, "NIFTY50", nil, nil)
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL, "NIFTY50", 1000, zerolog.Nop())
	snap, err := f.History(context.Background(), []string{"TCS", "INFY"}, 10)
	require.NoError(t, err)

	assert.True(t, snap.Benchmark.Benchmark)
	assert.Equal(t, "NIFTY50", snap.Benchmark.Symbol)
	require.Contains(t, snap.Series, "TCS")
	assert.Equal(t, []float64{100, 101, 102}, snap.Series["TCS"].Closes)
	assert.Equal(t, 102.0, snap.Current["INFY"])
}

func TestHTTPFetcher_FailedSymbolIsExcluded(t *testing.T) {
	srv := barService(t, "NIFTY50", map[string]bool{"INFY": true}, nil)
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL, "NIFTY50", 1000, zerolog.Nop())
	snap, err := f.History(context.Background(), []string{"TCS", "INFY"}, 10)
	require.NoError(t, err)

	assert.Contains(t, snap.Series, "TCS")
	assert.NotContains(t, snap.Series, "INFY")
	assert.NotContains(t, snap.Current, "INFY")
}

func TestHTTPFetcher_BenchmarkFailureAborts(t *testing.T) {
	srv := barService(t, "NIFTY50", map[string]bool{"NIFTY50": true}, nil)
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL, "NIFTY50", 1000, zerolog.Nop())
	_, err := f.History(context.Background(), []string{"TCS"}, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch benchmark")
}

func TestHTTPFetcher_BreakerTripsAfterConsecutiveFailures(t *testing.T) {
	failing := map[string]bool{}
	symbols := []string{"S1", "S2", "S3", "S4", "S5", "S6", "S7"}
	for _, s := range symbols {
		failing[s] = true
	}
	var hits int32
	srv := barService(t, "NIFTY50", failing, &hits)
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL, "NIFTY50", 1000, zerolog.Nop())
	snap, err := f.History(context.Background(), symbols, 10)
	require.NoError(t, err)

	// The breaker opens after the fifth consecutive failure, so the last
	// two symbols never reach the server. Every symbol is still excluded
	// rather than failing the snapshot.
	assert.Equal(t, int32(5), atomic.LoadInt32(&hits))
	assert.Empty(t, snap.Series)
}
