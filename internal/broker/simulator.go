package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/krispyensign/mutantstopbot/internal/series"
)

// Compile-time interface checks.
var _ Broker = (*SimulatorBroker)(nil)
var _ CandleSource = (*StaticSource)(nil)

// SimulatorBroker implements the Broker interface for paper trading. It
// tracks positions in memory without making external API calls; fills happen
// immediately at the price set via MarkPrice.
type SimulatorBroker struct {
	mu     sync.Mutex
	trades map[string]*Trade
	prices map[string]float64
	cash   float64
	nextID int
}

// NewSimulatorBroker creates a SimulatorBroker with the given starting cash.
func NewSimulatorBroker(cash float64) *SimulatorBroker {
	return &SimulatorBroker{
		trades: make(map[string]*Trade),
		prices: make(map[string]float64),
		cash:   cash,
	}
}

// Name returns "simulator".
func (b *SimulatorBroker) Name() string {
	return "simulator"
}

// MarkPrice sets the current price used to fill and value positions on the
// instrument.
func (b *SimulatorBroker) MarkPrice(instrument string, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prices[instrument] = price
}

// OpenTrade fills a market buy at the marked price. The take-profit,
// stop-loss, and trailing-stop levels are recorded but not enforced; exits
// are driven by the caller.
func (b *SimulatorBroker) OpenTrade(_ context.Context, instrument string, units, _, _, _ float64) (*Trade, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, open := b.trades[instrument]; open {
		return nil, fmt.Errorf("simulator: position already open on %s", instrument)
	}
	price, ok := b.prices[instrument]
	if !ok {
		return nil, fmt.Errorf("simulator: no price marked for %s", instrument)
	}
	cost := units * price
	if cost > b.cash {
		return nil, fmt.Errorf("simulator: insufficient cash for %s: need %.2f have %.2f", instrument, cost, b.cash)
	}

	b.nextID++
	trade := &Trade{
		ID:         fmt.Sprintf("sim-%d", b.nextID),
		Instrument: instrument,
		Units:      units,
		EntryPrice: price,
		OpenedAt:   time.Now(),
	}
	b.trades[instrument] = trade
	b.cash -= cost

	out := *trade
	return &out, nil
}

// CloseTrade liquidates the position at the marked price.
func (b *SimulatorBroker) CloseTrade(_ context.Context, instrument string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	trade, open := b.trades[instrument]
	if !open {
		return fmt.Errorf("simulator: no open position on %s", instrument)
	}
	price, ok := b.prices[instrument]
	if !ok {
		price = trade.EntryPrice
	}
	b.cash += trade.Units * price
	delete(b.trades, instrument)
	return nil
}

// GetTrade returns the open position on the instrument, or nil when none
// exists.
func (b *SimulatorBroker) GetTrade(_ context.Context, instrument string) (*Trade, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	trade, open := b.trades[instrument]
	if !open {
		return nil, nil
	}
	out := *trade
	return &out, nil
}

// GetAccount returns the simulated account state. Equity marks open
// positions at their current price.
func (b *SimulatorBroker) GetAccount(_ context.Context) (*Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	equity := b.cash
	for instrument, trade := range b.trades {
		price, ok := b.prices[instrument]
		if !ok {
			price = trade.EntryPrice
		}
		equity += trade.Units * price
	}
	return &Account{
		ID:      "simulator",
		Cash:    b.cash,
		Equity:  equity,
		Balance: equity,
	}, nil
}

// StaticSource serves candles from a fixed in-memory slice. Used for
// backtests and tests.
type StaticSource struct {
	Candles []series.Candle
}

// GetCandles returns up to count candles at or after from, ignoring the
// granularity.
func (s *StaticSource) GetCandles(_ context.Context, _, _ string, count int, from time.Time) ([]series.Candle, error) {
	out := make([]series.Candle, 0, len(s.Candles))
	for _, c := range s.Candles {
		if !from.IsZero() && c.Timestamp.Before(from) {
			continue
		}
		out = append(out, c)
		if count > 0 && len(out) == count {
			break
		}
	}
	return out, nil
}
