package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/krispyensign/mutantstopbot/internal/series"
)

func TestWMA(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5}
	out := WMA(vals, 3)

	if !math.IsNaN(out[0]) || !math.IsNaN(out[1]) {
		t.Error("WMA warm-up entries should be NaN")
	}

	// (1*1 + 2*2 + 3*3) / 6 = 14/6
	want := 14.0 / 6.0
	if math.Abs(out[2]-want) > 1e-12 {
		t.Errorf("WMA[2] = %v, want %v", out[2], want)
	}
	// (3*1 + 4*2 + 5*3) / 6 = 26/6
	want = 26.0 / 6.0
	if math.Abs(out[4]-want) > 1e-12 {
		t.Errorf("WMA[4] = %v, want %v", out[4], want)
	}
}

func TestWMAPeriodOne(t *testing.T) {
	vals := []float64{1, 2, 3}
	out := WMA(vals, 1)
	for i := range vals {
		if out[i] != vals[i] {
			t.Errorf("WMA period 1 should equal the input: out[%d] = %v", i, out[i])
		}
	}
}

func TestATR(t *testing.T) {
	high := []float64{2, 3, 4, 5, 6, 7}
	low := []float64{1, 2, 3, 4, 5, 6}
	closeCol := []float64{1.5, 2.5, 3.5, 4.5, 5.5, 6.5}
	out := ATR(high, low, closeCol, 2)

	for i := 0; i <= 1; i++ {
		if !math.IsNaN(out[i]) {
			t.Errorf("ATR[%d] should be NaN during warm-up", i)
		}
	}
	// True range is constant: max(1, |h-prevC|=0.5+1, |l-prevC|=0.5) = 1.5.
	for i := 2; i < len(out); i++ {
		if math.Abs(out[i]-1.5) > 1e-12 {
			t.Errorf("ATR[%d] = %v, want 1.5", i, out[i])
		}
	}
}

func TestHeikinAshi(t *testing.T) {
	open := []float64{10, 11}
	high := []float64{12, 13}
	low := []float64{9, 10}
	closeCol := []float64{11, 12}

	haOpen, haHigh, haLow, haClose := HeikinAshi(open, high, low, closeCol)

	if haClose[0] != (10+12+9+11)/4.0 {
		t.Errorf("haClose[0] = %v", haClose[0])
	}
	if haOpen[0] != (10+11)/2.0 {
		t.Errorf("haOpen[0] = %v", haOpen[0])
	}
	if haOpen[1] != (haOpen[0]+haClose[0])/2 {
		t.Errorf("haOpen[1] = %v, want midpoint of previous candle", haOpen[1])
	}
	if haHigh[0] < haOpen[0] || haHigh[0] < haClose[0] {
		t.Error("haHigh should dominate haOpen and haClose")
	}
	if haLow[0] > haOpen[0] || haLow[0] > haClose[0] {
		t.Error("haLow should be dominated by haOpen and haClose")
	}
}

func TestEnrich(t *testing.T) {
	candles := make([]series.Candle, 30)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		px := 1.0 + 0.01*float64(i)
		candles[i] = series.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      px, High: px + 0.01, Low: px - 0.01, Close: px,
			AskOpen: px, AskHigh: px + 0.01, AskLow: px - 0.01, AskClose: px,
			BidOpen: px, BidHigh: px + 0.01, BidLow: px - 0.01, BidClose: px,
		}
	}
	tbl, err := series.FromCandles(candles)
	if err != nil {
		t.Fatal(err)
	}

	if err := Enrich(tbl, 10); err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}

	for _, name := range []string{
		"atr",
		"wma_open", "wma_ask_close", "wma_bid_low",
		"ha_open", "ha_ask_close", "ha_bid_high",
		"wma_ha_open", "wma_ha_ask_close", "wma_ha_bid_low",
	} {
		if !tbl.Has(name) {
			t.Errorf("Enrich did not add column %q", name)
		}
	}

	wma, _ := tbl.Column("wma_close")
	if !math.IsNaN(wma[0]) {
		t.Error("wma_close warm-up should be NaN")
	}
	if math.IsNaN(wma[len(wma)-1]) {
		t.Error("wma_close should be valid after warm-up")
	}
}
