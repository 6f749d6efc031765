// Package solver enumerates the kernel configuration space, selects the
// best backtest result under the dominance rule, and runs the segmented
// train/refine/sample evaluation protocol.
package solver

import (
	"iter"

	"github.com/krispyensign/mutantstopbot/internal/kernel"
)

// Default candidate grids, used for any axis the configuration leaves
// empty. Channel names refer to columns produced by the indicator stage.
var (
	DefaultSourceColumns = []string{
		"close", "low", "ha_close", "ha_low",
		"bid_close", "ha_bid_close",
	}

	DefaultSignalColumns = []string{
		"close", "low", "open",
		"ha_close", "ha_low", "ha_open",
		"bid_close", "bid_low", "ha_bid_close", "ha_bid_low",
	}

	DefaultExecColumns = []string{
		"bid_close", "bid_low", "ha_bid_close",
	}

	edgeCategories = []kernel.EdgeCategory{kernel.EdgeDeterministic, kernel.EdgeQuasi}
)

// Config holds the solver's window sizes and candidate grids. Axes left nil
// fall back to the base kernel configuration's value or the package
// defaults.
type Config struct {
	// TrainSize and SampleSize are the training window and holdout sample
	// lengths, in bars.
	TrainSize  int `yaml:"train_size"`
	SampleSize int `yaml:"sample_size"`

	// Dates optionally lists historical start dates (RFC 3339 dates) for
	// multi-segment repetition.
	Dates []string `yaml:"dates"`

	// ForceEdge restricts the search to one edge category when non-empty
	// ("Deterministic" or "Quasi").
	ForceEdge string `yaml:"force_edge"`

	// Workers sets the parallel candidate evaluators; values below 2 run
	// the search sequentially.
	Workers int `yaml:"workers"`

	SourceColumns     []string  `yaml:"source_columns"`
	SignalBuyColumns  []string  `yaml:"signal_buy_columns"`
	SignalExitColumns []string  `yaml:"signal_exit_columns"`
	ExecColumns       []string  `yaml:"exec_columns"`
	TakeProfits       []float64 `yaml:"take_profits"`
	StopLosses        []float64 `yaml:"stop_losses"`
}

// axes resolves the candidate grids against a base configuration.
func (c Config) axes(base kernel.Config) (sources, buys, exits, execs []string, tps, sls []float64) {
	sources = c.SourceColumns
	if len(sources) == 0 {
		sources = DefaultSourceColumns
	}
	buys = c.SignalBuyColumns
	if len(buys) == 0 {
		buys = DefaultSignalColumns
	}
	exits = c.SignalExitColumns
	if len(exits) == 0 {
		exits = buys
	}
	execs = c.ExecColumns
	if len(execs) == 0 {
		execs = DefaultExecColumns
	}
	tps = c.TakeProfits
	if len(tps) == 0 {
		tps = []float64{base.TakeProfit}
	}
	sls = c.StopLosses
	if len(sls) == 0 {
		sls = []float64{base.StopLoss}
	}
	return
}

// Candidates returns a lazy, finite sequence of every kernel configuration
// in the combinatorial space, together with the total count. The base
// configuration supplies the values of unvaried fields (the WMA period and
// any axis left empty). Enumeration order is fixed: edge, source, buy,
// exit, exec, take-profit, stop-loss — nested, slowest axis first — so a
// search over the sequence is deterministic.
func (c Config) Candidates(base kernel.Config) (iter.Seq2[int, kernel.Config], int) {
	sources, buys, exits, execs, tps, sls := c.axes(base)

	total := len(edgeCategories) * len(sources) * len(buys) * len(exits) *
		len(execs) * len(tps) * len(sls)

	seq := func(yield func(int, kernel.Config) bool) {
		i := 0
		for _, edge := range edgeCategories {
			for _, source := range sources {
				for _, buy := range buys {
					for _, exit := range exits {
						for _, exec := range execs {
							for _, tp := range tps {
								for _, sl := range sls {
									cand := kernel.Config{
										WMAPeriod:        base.WMAPeriod,
										SignalBuyColumn:  buy,
										SignalExitColumn: exit,
										SourceColumn:     source,
										ExecColumn:       exec,
										TakeProfit:       tp,
										StopLoss:         sl,
										Edge:             edge,
									}
									if !yield(i, cand) {
										return
									}
									i++
								}
							}
						}
					}
				}
			}
		}
	}

	return seq, total
}
