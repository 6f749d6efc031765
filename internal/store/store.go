// Package store persists candle history and solver results: candles in
// Parquet files on disk, results in a SQLite database.
package store

import (
	"context"
	"time"

	"github.com/krispyensign/mutantstopbot/internal/series"
	"github.com/krispyensign/mutantstopbot/internal/solver"
)

// CandleStore persists and retrieves bid/ask candle history.
type CandleStore interface {
	// WriteCandles persists a batch of candles for the instrument and
	// granularity, merged with any existing history.
	WriteCandles(ctx context.Context, instrument, granularity string, candles []series.Candle) error

	// ReadCandles returns up to count candles at or after from, in time
	// order. A zero from means from the beginning of history.
	ReadCandles(ctx context.Context, instrument, granularity string, from time.Time, count int) ([]series.Candle, error)
}

// ResultStore persists solver runs.
type ResultStore interface {
	// SaveResult inserts the winning result of one solver run together
	// with its segmented triad.
	SaveResult(ctx context.Context, result *solver.BacktestResult, triad solver.Triad) error

	// LatestResult returns the most recent saved result for the
	// instrument, or (nil, zero triad, nil) when none exists.
	LatestResult(ctx context.Context, instrument string) (*solver.BacktestResult, solver.Triad, error)

	// ListResults returns up to limit saved results for the instrument,
	// newest first. A non-positive limit returns all of them.
	ListResults(ctx context.Context, instrument string, limit int) ([]solver.BacktestResult, error)
}
