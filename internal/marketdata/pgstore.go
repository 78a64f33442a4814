package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/wealthkin/wealthkin/internal/domain"
)

// PGStore serves price history from a PostgreSQL daily_prices table:
// (symbol text, trade_date date, close double precision).
type PGStore struct {
	db        *sqlx.DB
	timeout   time.Duration
	benchmark string
	log       zerolog.Logger
}

// NewPGStore creates a PostgreSQL-backed provider. benchmark names the
// index symbol fetched alongside every request.
func NewPGStore(db *sqlx.DB, timeout time.Duration, benchmark string, logger zerolog.Logger) *PGStore {
	return &PGStore{
		db:        db,
		timeout:   timeout,
		benchmark: benchmark,
		log:       logger.With().Str("component", "pgstore").Logger(),
	}
}

type priceRow struct {
	Symbol    string    `db:"symbol"`
	TradeDate time.Time `db:"trade_date"`
	Close     float64   `db:"close"`
}

// History loads the lookback window for the requested symbols plus the
// benchmark. Current prices are the latest close per symbol.
func (s *PGStore) History(ctx context.Context, symbols []string, lookbackDays int) (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	all := append(append([]string(nil), symbols...), s.benchmark)

	const query = `
		SELECT symbol, trade_date, close
		FROM daily_prices
		WHERE symbol = ANY($1)
		  AND trade_date >= CURRENT_DATE - ($2 * interval '1 day')
		ORDER BY symbol, trade_date`

	// Calendar window padded so lookbackDays trading days survive weekends
	// and holidays.
	calendarDays := lookbackDays*3/2 + 10

	var rows []priceRow
	if err := s.db.SelectContext(ctx, &rows, query, pq.Array(all), calendarDays); err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}

	series := make(map[string]domain.PriceSeries)
	for _, r := range rows {
		ps := series[r.Symbol]
		ps.Symbol = r.Symbol
		ps.Dates = append(ps.Dates, r.TradeDate)
		ps.Closes = append(ps.Closes, r.Close)
		series[r.Symbol] = ps
	}

	snap := &Snapshot{
		Series:  make(map[string]domain.PriceSeries, len(symbols)),
		Current: make(map[string]float64, len(symbols)),
	}
	if bench, ok := series[s.benchmark]; ok {
		bench.Benchmark = true
		snap.Benchmark = trim(bench, lookbackDays)
	} else {
		s.log.Warn().Str("symbol", s.benchmark).Msg("benchmark series missing")
	}
	for _, sym := range symbols {
		ps, ok := series[sym]
		if !ok {
			s.log.Warn().Str("symbol", sym).Msg("no price history for symbol")
			continue
		}
		snap.Series[sym] = trim(ps, lookbackDays)
		snap.Current[sym] = ps.Closes[len(ps.Closes)-1]
	}

	s.log.Debug().
		Int("symbols_requested", len(symbols)).
		Int("symbols_found", len(snap.Series)).
		Msg("price history loaded")

	return snap, nil
}
