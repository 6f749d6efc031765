// Package broker defines the CandleSource and Broker interfaces and provides
// implementations for fetching market data and executing orders.
package broker

import (
	"context"
	"time"

	"github.com/krispyensign/mutantstopbot/internal/series"
)

// Trade is an open position held at the brokerage.
type Trade struct {
	// ID is the broker-assigned identifier of the entry order.
	ID string

	// Instrument is the traded symbol.
	Instrument string

	// Units is the position size. Positive means long.
	Units float64

	// EntryPrice is the average fill price of the entry.
	EntryPrice float64

	// OpenedAt is when the position was established.
	OpenedAt time.Time
}

// Account is a snapshot of the account's financial state.
type Account struct {
	ID      string
	Cash    float64
	Equity  float64
	Balance float64
}

// CandleSource fetches bar history for an instrument.
type CandleSource interface {
	// GetCandles returns up to count candles for the instrument at the
	// given granularity, starting at or after from. A zero from means
	// "the most recent count candles".
	GetCandles(ctx context.Context, instrument, granularity string, count int, from time.Time) ([]series.Candle, error)
}

// Broker abstracts order execution and position management.
type Broker interface {
	// Name returns the broker identifier (e.g. "alpaca", "simulator").
	Name() string

	// OpenTrade submits a market buy for units of the instrument. When
	// takeProfit > 0 a take-profit exit is attached at that price; when
	// stopLoss > 0 a protective stop is attached at that price; when
	// trailingStop > 0 a trailing stop follows the position at that
	// distance.
	OpenTrade(ctx context.Context, instrument string, units, takeProfit, stopLoss, trailingStop float64) (*Trade, error)

	// CloseTrade liquidates the open position on the instrument and
	// cancels any protective orders attached to it.
	CloseTrade(ctx context.Context, instrument string) error

	// GetTrade returns the open position on the instrument, or nil when
	// there is none.
	GetTrade(ctx context.Context, instrument string) (*Trade, error)

	// GetAccount returns a snapshot of the account's financial metrics.
	GetAccount(ctx context.Context) (*Account, error)
}
