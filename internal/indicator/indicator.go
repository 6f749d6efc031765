// Package indicator computes the technical indicator columns the signal
// kernel consumes: Wilder's average true range, linearly weighted moving
// averages of every price channel, and Heikin-Ashi synthetic candles for
// the mid, ask, and bid channels. Bars inside the warm-up window are NaN;
// the kernel treats NaN comparisons as "no signal".
package indicator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/krispyensign/mutantstopbot/internal/series"
)

// WMA returns the linearly weighted moving average of vals over the given
// period. The first period-1 entries are NaN.
func WMA(vals []float64, period int) []float64 {
	out := make([]float64, len(vals))
	if period <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	weights := make([]float64, period)
	for i := range weights {
		weights[i] = float64(i + 1)
	}
	norm := float64(period*(period+1)) / 2

	for i := range vals {
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = floats.Dot(weights, vals[i-period+1:i+1]) / norm
	}
	return out
}

// ATR returns Wilder's average true range over the given period. The first
// period entries are NaN; the value at index period is the simple mean of
// the true range, smoothed thereafter.
func ATR(high, low, close []float64, period int) []float64 {
	n := len(close)
	out := make([]float64, n)
	if period <= 0 || n <= period {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	tr := make([]float64, n)
	tr[0] = high[0] - low[0]
	for i := 1; i < n; i++ {
		hl := high[i] - low[i]
		hc := math.Abs(high[i] - close[i-1])
		lc := math.Abs(low[i] - close[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	for i := 0; i < period; i++ {
		out[i] = math.NaN()
	}
	out[period] = floats.Sum(tr[1:period+1]) / float64(period)
	for i := period + 1; i < n; i++ {
		out[i] = (out[i-1]*float64(period-1) + tr[i]) / float64(period)
	}
	return out
}

// HeikinAshi returns the smoothed synthetic candle channels for the given
// OHLC arrays.
func HeikinAshi(open, high, low, close []float64) (haOpen, haHigh, haLow, haClose []float64) {
	n := len(close)
	haOpen = make([]float64, n)
	haHigh = make([]float64, n)
	haLow = make([]float64, n)
	haClose = make([]float64, n)

	for i := 0; i < n; i++ {
		haClose[i] = (open[i] + high[i] + low[i] + close[i]) / 4
		if i == 0 {
			haOpen[i] = (open[i] + close[i]) / 2
		} else {
			haOpen[i] = (haOpen[i-1] + haClose[i-1]) / 2
		}
		haHigh[i] = math.Max(high[i], math.Max(haOpen[i], haClose[i]))
		haLow[i] = math.Min(low[i], math.Min(haOpen[i], haClose[i]))
	}
	return haOpen, haHigh, haLow, haClose
}

// channelPrefixes are the price channel groups enriched by Enrich: mid,
// ask, and bid.
var channelPrefixes = []string{"", "ask_", "bid_"}

var ohlcNames = []string{"open", "high", "low", "close"}

// Enrich adds the full indicator column set to the table: "atr" from the
// mid channel, Heikin-Ashi candles per channel ("ha_open", "ha_ask_open",
// "ha_bid_open", ...), and a weighted moving average of every raw and
// synthetic channel ("wma_close", "wma_ha_bid_low", ...). It fails fast if
// a required price column is absent.
func Enrich(t *series.Table, wmaPeriod int) error {
	if t.Len() == 0 {
		return series.ErrEmpty
	}

	high, err := t.Column("high")
	if err != nil {
		return fmt.Errorf("enriching table: %w", err)
	}
	low, err := t.Column("low")
	if err != nil {
		return fmt.Errorf("enriching table: %w", err)
	}
	closeCol, err := t.Column("close")
	if err != nil {
		return fmt.Errorf("enriching table: %w", err)
	}
	if err := t.SetColumn("atr", ATR(high, low, closeCol, wmaPeriod)); err != nil {
		return err
	}

	for _, prefix := range channelPrefixes {
		ohlc := make([][]float64, 4)
		for j, name := range ohlcNames {
			col, err := t.Column(prefix + name)
			if err != nil {
				return fmt.Errorf("enriching table: %w", err)
			}
			ohlc[j] = col
		}

		haOpen, haHigh, haLow, haClose := HeikinAshi(ohlc[0], ohlc[1], ohlc[2], ohlc[3])
		ha := [][]float64{haOpen, haHigh, haLow, haClose}
		for j, name := range ohlcNames {
			if err := t.SetColumn("ha_"+prefix+name, ha[j]); err != nil {
				return err
			}
		}

		for j, name := range ohlcNames {
			if err := t.SetColumn("wma_"+prefix+name, WMA(ohlc[j], wmaPeriod)); err != nil {
				return err
			}
			if err := t.SetColumn("wma_ha_"+prefix+name, WMA(ha[j], wmaPeriod)); err != nil {
				return err
			}
		}
	}
	return nil
}
