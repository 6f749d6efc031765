// Package kernel implements the per-bar signal state machine and the
// backtest statistics reducer. Run is a pure function of its configuration
// and table: identical inputs produce identical arrays, and no state is
// shared across calls.
package kernel

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/krispyensign/mutantstopbot/internal/series"
)

// EdgeCategory selects the execution-price convention and whether exposure
// rolls onto the next bar's open.
type EdgeCategory int

const (
	// EdgeDeterministic fills entries and exits on the signal bar's
	// close-side prices with no roll.
	EdgeDeterministic EdgeCategory = iota

	// EdgeQuasi fills on open-side prices; when the source channel is not
	// open-based the fill rolls to the next bar's open.
	EdgeQuasi
)

// String returns the category name used in configuration files.
func (e EdgeCategory) String() string {
	switch e {
	case EdgeDeterministic:
		return "Deterministic"
	case EdgeQuasi:
		return "Quasi"
	default:
		return fmt.Sprintf("EdgeCategory(%d)", int(e))
	}
}

// ParseEdge converts a configuration string to an EdgeCategory.
func ParseEdge(s string) (EdgeCategory, error) {
	switch s {
	case "Deterministic":
		return EdgeDeterministic, nil
	case "Quasi":
		return EdgeQuasi, nil
	default:
		return 0, fmt.Errorf("unknown edge category %q", s)
	}
}

// Config is an immutable kernel parameter set. Two configurations are equal
// iff every field matches, so Config is directly comparable.
type Config struct {
	// WMAPeriod is the moving-average period the indicator columns were
	// derived with.
	WMAPeriod int `yaml:"wma_period"`

	// SignalBuyColumn supplies the entry-side channel compared against the
	// source WMA.
	SignalBuyColumn string `yaml:"signal_buy_column"`

	// SignalExitColumn supplies the exit-side channel; it may equal
	// SignalBuyColumn, or name a more conservative channel.
	SignalExitColumn string `yaml:"signal_exit_column"`

	// SourceColumn is the price channel whose WMA drives the crossover.
	SourceColumn string `yaml:"source_column"`

	// ExecColumn is the bid-side channel exits are marked against.
	ExecColumn string `yaml:"exec_column"`

	// TakeProfit and StopLoss are ATR multipliers; zero disables the
	// corresponding override.
	TakeProfit float64 `yaml:"take_profit"`
	StopLoss   float64 `yaml:"stop_loss"`

	Edge EdgeCategory `yaml:"-"`
}

// shouldRoll reports whether exposure rolls onto the next bar's open: the
// source channel is not open-based and the edge is not deterministic.
func (c Config) shouldRoll() bool {
	return c.Edge != EdgeDeterministic && !strings.Contains(c.SourceColumn, "open")
}

// entryColumn is the ask-side channel entries fill against.
func (c Config) entryColumn() string {
	if c.Edge == EdgeQuasi {
		return "ask_open"
	}
	return "ask_close"
}

// execColumn is the channel exits fill against under the configured edge.
func (c Config) execColumn() string {
	if c.Edge == EdgeQuasi {
		return openVariant(c.ExecColumn)
	}
	return c.ExecColumn
}

// openVariant rewrites a channel name to its open-side sibling, e.g.
// "bid_low" -> "bid_open", "ha_bid_close" -> "ha_bid_open".
func openVariant(name string) string {
	i := strings.LastIndex(name, "_")
	if i < 0 {
		return "open"
	}
	return name[:i+1] + "open"
}

// Output holds the per-bar arrays produced by Run, all aligned to the input
// table's index.
type Output struct {
	// Signal is the directional bias per bar: 1 long exposure, 0 flat.
	Signal []int

	// Trigger is the first difference of Signal: +1 entry, -1 exit, 0 hold.
	// Trigger[0] is 0 by convention.
	Trigger []int

	// PositionValue marks the open position to the exec price, zero where
	// neither Signal nor Trigger is active.
	PositionValue []float64

	// EntryPrice carries the most recent entry fill forward across bars;
	// NaN before the first entry.
	EntryPrice []float64

	// ExitValue realizes PositionValue at exit events, zero elsewhere.
	ExitValue []float64

	// ExitTotal is the running cumulative sum of ExitValue.
	ExitTotal []float64

	// RunningTotal is ExitTotal plus the open position's mark-to-market.
	RunningTotal []float64
}

// Run evaluates the signal kernel for one configuration over the table.
//
// The raw signal is a crossover test of the buy and exit channels against
// the source WMA; the take-profit override is applied first and the
// stop-loss override second, each recomputing the trigger. Both overrides
// force the signal to zero, so stop-loss dominates regardless of order.
// A zero multiplier leaves the corresponding override off entirely: a zero
// threshold would close out any bar marked away from its entry, and the
// entry bar always marks at minus the spread. NaN comparisons (indicator
// warm-up) produce no signal.
func Run(cfg Config, t *series.Table) (*Output, error) {
	if t == nil || t.Len() == 0 {
		return nil, series.ErrEmpty
	}

	buy, err := t.Column(cfg.SignalBuyColumn)
	if err != nil {
		return nil, fmt.Errorf("kernel: %w", err)
	}
	exitSig, err := t.Column(cfg.SignalExitColumn)
	if err != nil {
		return nil, fmt.Errorf("kernel: %w", err)
	}
	wma, err := t.Column("wma_" + cfg.SourceColumn)
	if err != nil {
		return nil, fmt.Errorf("kernel: %w", err)
	}
	atr, err := t.Column("atr")
	if err != nil {
		return nil, fmt.Errorf("kernel: %w", err)
	}
	entryPx, err := t.Column(cfg.entryColumn())
	if err != nil {
		return nil, fmt.Errorf("kernel: %w", err)
	}
	execPx, err := t.Column(cfg.execColumn())
	if err != nil {
		return nil, fmt.Errorf("kernel: %w", err)
	}

	if cfg.shouldRoll() {
		entryPx = rollForward(entryPx)
		execPx = rollForward(execPx)
	}

	n := t.Len()

	// 1. Raw crossover signal. A bar is long iff the buy channel is above
	// the source WMA and the exit channel has not dropped below it. NaN on
	// either side yields no signal.
	signal := make([]int, n)
	for i := 0; i < n; i++ {
		if buy[i] > wma[i] && exitSig[i] >= wma[i] {
			signal[i] = 1
		}
	}
	trigger := diff(signal)

	// 2. Take-profit override: close out wherever the marked position
	// exceeds (strictly) the ATR multiple, except on entry bars.
	if cfg.TakeProfit > 0 {
		pv, _ := positionValue(signal, trigger, entryPx, execPx)
		for i := 0; i < n; i++ {
			if pv[i] > cfg.TakeProfit*atr[i] && trigger[i] != 1 {
				signal[i] = 0
			}
		}
		trigger = diff(signal)
	}

	// 3. Stop-loss override: close out wherever the marked position falls
	// below the negative ATR multiple, regardless of other state.
	if cfg.StopLoss > 0 {
		pv, _ := positionValue(signal, trigger, entryPx, execPx)
		for i := 0; i < n; i++ {
			if pv[i] < -cfg.StopLoss*atr[i] {
				signal[i] = 0
			}
		}
		trigger = diff(signal)
	}

	// 4-6. Final position value and the P&L path.
	pv, entry := positionValue(signal, trigger, entryPx, execPx)

	exitValue := make([]float64, n)
	for i := 0; i < n; i++ {
		if trigger[i] == -1 {
			exitValue[i] = pv[i]
		}
	}

	exitTotal := make([]float64, n)
	floats.CumSum(exitTotal, exitValue)

	runningTotal := make([]float64, n)
	for i := 0; i < n; i++ {
		runningTotal[i] = exitTotal[i] + pv[i]*float64(signal[i])
	}

	return &Output{
		Signal:        signal,
		Trigger:       trigger,
		PositionValue: pv,
		EntryPrice:    entry,
		ExitValue:     exitValue,
		ExitTotal:     exitTotal,
		RunningTotal:  runningTotal,
	}, nil
}

// diff returns the first difference of the signal with a leading zero.
func diff(signal []int) []int {
	trigger := make([]int, len(signal))
	for i := 1; i < len(signal); i++ {
		trigger[i] = signal[i] - signal[i-1]
	}
	return trigger
}

// positionValue marks the open position to the exec price. The entry price
// captured at the most recent entry event is carried forward unchanged
// until the next entry event (a single left-to-right scan); it is NaN
// before the first entry. Bars with no exposure and no event are zero.
func positionValue(signal, trigger []int, entryPx, execPx []float64) (pv, entry []float64) {
	pv = make([]float64, len(signal))
	entry = make([]float64, len(signal))
	cur := math.NaN()
	for i := range signal {
		if trigger[i] == 1 {
			cur = entryPx[i]
		}
		entry[i] = cur
		if signal[i] != 0 || trigger[i] != 0 {
			pv[i] = execPx[i] - cur
		}
	}
	return pv, entry
}

// rollForward shifts fills to the next bar's price; the final bar falls
// back to its own.
func rollForward(px []float64) []float64 {
	out := make([]float64, len(px))
	for i := 0; i < len(px)-1; i++ {
		out[i] = px[i+1]
	}
	if len(px) > 0 {
		out[len(px)-1] = px[len(px)-1]
	}
	return out
}
