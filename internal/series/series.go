// Package series provides the time-indexed table of named price and
// indicator columns consumed by the signal kernel and the solver. All
// columns in a table share one index and length; window views never
// reorder a column independently.
package series

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrEmpty is returned when an operation requires a non-empty table.
var ErrEmpty = errors.New("series: empty table")

// Candle is one bar of mid, ask, and bid OHLC prices.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	AskOpen   float64
	AskHigh   float64
	AskLow    float64
	AskClose  float64
	BidOpen   float64
	BidHigh   float64
	BidLow    float64
	BidClose  float64
	Volume    int64
}

// Table is an ordered collection of named float64 columns sharing one time
// index. Tables are built once per run window and read-only afterwards;
// Head and Tail return views over the same backing arrays.
type Table struct {
	times []time.Time
	cols  map[string][]float64
}

// New creates an empty table over the given time index.
func New(times []time.Time) (*Table, error) {
	if len(times) == 0 {
		return nil, ErrEmpty
	}
	return &Table{
		times: times,
		cols:  make(map[string][]float64),
	}, nil
}

// FromCandles builds a table holding the mid, ask, and bid OHLC price
// columns of the given candles.
func FromCandles(candles []Candle) (*Table, error) {
	if len(candles) == 0 {
		return nil, ErrEmpty
	}

	n := len(candles)
	times := make([]time.Time, n)
	cols := map[string][]float64{
		"open": make([]float64, n), "high": make([]float64, n),
		"low": make([]float64, n), "close": make([]float64, n),
		"ask_open": make([]float64, n), "ask_high": make([]float64, n),
		"ask_low": make([]float64, n), "ask_close": make([]float64, n),
		"bid_open": make([]float64, n), "bid_high": make([]float64, n),
		"bid_low": make([]float64, n), "bid_close": make([]float64, n),
	}
	for i, c := range candles {
		times[i] = c.Timestamp
		cols["open"][i] = c.Open
		cols["high"][i] = c.High
		cols["low"][i] = c.Low
		cols["close"][i] = c.Close
		cols["ask_open"][i] = c.AskOpen
		cols["ask_high"][i] = c.AskHigh
		cols["ask_low"][i] = c.AskLow
		cols["ask_close"][i] = c.AskClose
		cols["bid_open"][i] = c.BidOpen
		cols["bid_high"][i] = c.BidHigh
		cols["bid_low"][i] = c.BidLow
		cols["bid_close"][i] = c.BidClose
	}

	return &Table{times: times, cols: cols}, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.times)
}

// Times returns the shared time index.
func (t *Table) Times() []time.Time {
	return t.times
}

// SetColumn adds or replaces a named column. The column must match the
// table length exactly.
func (t *Table) SetColumn(name string, vals []float64) error {
	if len(vals) != len(t.times) {
		return fmt.Errorf("series: column %q has %d rows, table has %d", name, len(vals), len(t.times))
	}
	t.cols[name] = vals
	return nil
}

// Column returns the named column, or an error if it is absent. A missing
// column is never silently substituted with a default array.
func (t *Table) Column(name string) ([]float64, error) {
	col, ok := t.cols[name]
	if !ok {
		return nil, fmt.Errorf("series: column %q not found", name)
	}
	return col, nil
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// ColumnNames returns all column names, sorted.
func (t *Table) ColumnNames() []string {
	names := make([]string, 0, len(t.cols))
	for name := range t.cols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Head returns a view of the first n rows. n is clamped to the table length.
func (t *Table) Head(n int) *Table {
	return t.slice(0, n)
}

// Tail returns a view of the last n rows. n is clamped to the table length.
func (t *Table) Tail(n int) *Table {
	if n > len(t.times) {
		n = len(t.times)
	}
	return t.slice(len(t.times)-n, len(t.times))
}

// slice returns a window view [i0, i1) over the backing arrays.
func (t *Table) slice(i0, i1 int) *Table {
	if i0 < 0 {
		i0 = 0
	}
	if i1 > len(t.times) {
		i1 = len(t.times)
	}
	if i0 >= i1 {
		return &Table{times: nil, cols: make(map[string][]float64)}
	}

	cols := make(map[string][]float64, len(t.cols))
	for name, col := range t.cols {
		cols[name] = col[i0:i1]
	}
	return &Table{times: t.times[i0:i1], cols: cols}
}
