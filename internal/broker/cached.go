package broker

import (
	"context"
	"log/slog"
	"time"

	"github.com/krispyensign/mutantstopbot/internal/series"
	"github.com/krispyensign/mutantstopbot/internal/store"
)

// Compile-time interface check.
var _ CandleSource = (*CachedSource)(nil)

// CachedSource is a read-through cache in front of a CandleSource. Windows
// anchored at a historical start date are served from the store when fully
// present; everything fetched upstream is persisted.
type CachedSource struct {
	source CandleSource
	store  store.CandleStore
	log    *slog.Logger
}

// NewCachedSource wraps source with the given candle store.
func NewCachedSource(source CandleSource, cs store.CandleStore) *CachedSource {
	return &CachedSource{
		source: source,
		store:  cs,
		log:    slog.Default().With("source", "cached"),
	}
}

// GetCandles serves from the store when the requested historical window is
// fully cached. A zero from means "latest", which always goes upstream.
func (c *CachedSource) GetCandles(ctx context.Context, instrument, granularity string, count int, from time.Time) ([]series.Candle, error) {
	if !from.IsZero() && count > 0 {
		cached, err := c.store.ReadCandles(ctx, instrument, granularity, from, count)
		if err != nil {
			return nil, err
		}
		if len(cached) == count {
			c.log.Debug("cache hit", "instrument", instrument, "count", count)
			return cached, nil
		}
	}

	candles, err := c.source.GetCandles(ctx, instrument, granularity, count, from)
	if err != nil {
		return nil, err
	}
	if len(candles) > 0 {
		if err := c.store.WriteCandles(ctx, instrument, granularity, candles); err != nil {
			c.log.Warn("persisting candles failed", "instrument", instrument, "err", err)
		}
	}
	return candles, nil
}
