package broker

import (
	"context"
	"testing"
	"time"

	"github.com/krispyensign/mutantstopbot/internal/series"
	"github.com/krispyensign/mutantstopbot/internal/store"
)

func TestSimulatorOpenCloseRoundTrip(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulatorBroker(10000)
	sim.MarkPrice("EUR_USD", 1.10)

	trade, err := sim.OpenTrade(ctx, "EUR_USD", 100, 1.25, 1.02, 0.05)
	if err != nil {
		t.Fatalf("OpenTrade: %v", err)
	}
	if trade.EntryPrice != 1.10 || trade.Units != 100 {
		t.Errorf("trade = %+v, want entry 1.10 units 100", trade)
	}

	open, err := sim.GetTrade(ctx, "EUR_USD")
	if err != nil {
		t.Fatalf("GetTrade: %v", err)
	}
	if open == nil || open.ID != trade.ID {
		t.Fatalf("GetTrade = %+v, want %+v", open, trade)
	}

	sim.MarkPrice("EUR_USD", 1.20)
	if err := sim.CloseTrade(ctx, "EUR_USD"); err != nil {
		t.Fatalf("CloseTrade: %v", err)
	}

	acct, err := sim.GetAccount(ctx)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	// 10000 - 110 + 120 = 10010
	if acct.Cash != 10010 {
		t.Errorf("Cash = %v, want 10010", acct.Cash)
	}
	if acct.Equity != acct.Cash {
		t.Errorf("Equity = %v with no open positions, want %v", acct.Equity, acct.Cash)
	}

	open, err = sim.GetTrade(ctx, "EUR_USD")
	if err != nil {
		t.Fatalf("GetTrade after close: %v", err)
	}
	if open != nil {
		t.Errorf("GetTrade after close = %+v, want nil", open)
	}
}

func TestSimulatorRejections(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulatorBroker(100)

	if _, err := sim.OpenTrade(ctx, "EUR_USD", 10, 0, 0, 0); err == nil {
		t.Error("OpenTrade with no marked price succeeded")
	}

	sim.MarkPrice("EUR_USD", 50)
	if _, err := sim.OpenTrade(ctx, "EUR_USD", 10, 0, 0, 0); err == nil {
		t.Error("OpenTrade beyond available cash succeeded")
	}

	if _, err := sim.OpenTrade(ctx, "EUR_USD", 1, 0, 0, 0); err != nil {
		t.Fatalf("OpenTrade: %v", err)
	}
	if _, err := sim.OpenTrade(ctx, "EUR_USD", 1, 0, 0, 0); err == nil {
		t.Error("second OpenTrade on same instrument succeeded")
	}

	if err := sim.CloseTrade(ctx, "GBP_USD"); err == nil {
		t.Error("CloseTrade with no position succeeded")
	}
}

func TestSimulatorEquityMarksOpenPositions(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulatorBroker(1000)
	sim.MarkPrice("EUR_USD", 10)

	if _, err := sim.OpenTrade(ctx, "EUR_USD", 20, 0, 0, 0); err != nil {
		t.Fatalf("OpenTrade: %v", err)
	}
	sim.MarkPrice("EUR_USD", 12)

	acct, err := sim.GetAccount(ctx)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	// cash 800 + 20*12 = 1040
	if acct.Equity != 1040 {
		t.Errorf("Equity = %v, want 1040", acct.Equity)
	}
}

func TestStaticSourceFromAndCount(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]series.Candle, 10)
	for i := range candles {
		candles[i] = series.Candle{Timestamp: start.Add(time.Duration(i) * time.Minute), Close: float64(i)}
	}
	src := &StaticSource{Candles: candles}

	got, err := src.GetCandles(context.Background(), "EUR_USD", "M1", 3, start.Add(4*time.Minute))
	if err != nil {
		t.Fatalf("GetCandles: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d candles, want 3", len(got))
	}
	if got[0].Close != 4 || got[2].Close != 6 {
		t.Errorf("window = [%v..%v], want [4..6]", got[0].Close, got[2].Close)
	}

	all, err := src.GetCandles(context.Background(), "EUR_USD", "M1", 0, time.Time{})
	if err != nil {
		t.Fatalf("GetCandles all: %v", err)
	}
	if len(all) != 10 {
		t.Errorf("got %d candles with zero count, want 10", len(all))
	}
}

func TestCachedSourceReadThrough(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]series.Candle, 5)
	for i := range candles {
		candles[i] = series.Candle{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Close:     float64(i),
		}
	}

	cs := store.NewParquetStore(t.TempDir())
	cached := NewCachedSource(&StaticSource{Candles: candles}, cs)

	got, err := cached.GetCandles(ctx, "EUR_USD", "M1", 5, start)
	if err != nil {
		t.Fatalf("GetCandles: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d candles, want 5", len(got))
	}

	// Same window again, through an upstream that would return nothing:
	// must be served from the store.
	cached = NewCachedSource(&StaticSource{}, cs)
	got, err = cached.GetCandles(ctx, "EUR_USD", "M1", 5, start)
	if err != nil {
		t.Fatalf("GetCandles from cache: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("cache served %d candles, want 5", len(got))
	}
	if got[4].Close != 4 {
		t.Errorf("cached candle Close = %v, want 4", got[4].Close)
	}

	// A latest-window request bypasses the cache and hits the empty
	// upstream.
	got, err = cached.GetCandles(ctx, "EUR_USD", "M1", 5, time.Time{})
	if err != nil {
		t.Fatalf("GetCandles latest: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("latest request served %d candles from cache, want 0", len(got))
	}
}

func TestTimeFrameMapping(t *testing.T) {
	for _, g := range []string{"M1", "M5", "M15", "M30", "H1", "H4", "D"} {
		if _, err := timeFrame(g); err != nil {
			t.Errorf("timeFrame(%q): %v", g, err)
		}
	}
	if _, err := timeFrame("W"); err == nil {
		t.Error("timeFrame(W) succeeded, want error")
	}
}
