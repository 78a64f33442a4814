package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// CachedProvider is a read-through Redis cache over another Provider.
// Snapshot keys include the symbol set and lookback so different requests
// never collide. Cache errors degrade to the inner provider, they never
// fail the analysis.
type CachedProvider struct {
	inner Provider
	rdb   *redis.Client
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCachedProvider wraps inner with a Redis snapshot cache.
func NewCachedProvider(inner Provider, rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		rdb:   rdb,
		ttl:   ttl,
		log:   logger.With().Str("component", "price_cache").Logger(),
	}
}

// History serves from cache when possible, otherwise delegates and stores
// the result.
func (c *CachedProvider) History(ctx context.Context, symbols []string, lookbackDays int) (*Snapshot, error) {
	key := snapshotKey(symbols, lookbackDays)

	raw, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		var snap Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err == nil {
			c.log.Debug().Str("key", key).Msg("snapshot cache hit")
			return &snap, nil
		}
		c.log.Warn().Str("key", key).Msg("corrupt cached snapshot, refetching")
	case err != redis.Nil:
		c.log.Warn().Err(err).Msg("snapshot cache read failed")
	}

	snap, err := c.inner.History(ctx, symbols, lookbackDays)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(snap); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.Warn().Err(err).Msg("snapshot cache write failed")
		}
	}
	return snap, nil
}

func snapshotKey(symbols []string, lookbackDays int) string {
	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)
	return fmt.Sprintf("wealthkin:prices:%s:%d", strings.Join(sorted, ","), lookbackDays)
}
