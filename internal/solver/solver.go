package solver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/krispyensign/mutantstopbot/internal/kernel"
	"github.com/krispyensign/mutantstopbot/internal/series"
)

// progressInterval is the fixed candidate interval between telemetry lines.
// It is a variable so tests can tighten it.
var progressInterval = 10000

// BacktestResult is the best candidate found by one search run. It is
// immutable once constructed; the search replaces it monotonically under
// the dominance rule.
type BacktestResult struct {
	Instrument string
	Config     kernel.Config
	ExitTotal  float64
	Ratio      float64
	Wins       int
	Losses     int
}

// dominates reports whether the candidate statistics replace the incumbent:
// both the win ratio and the final total must be non-decreasing. A
// candidate improving only one metric keeps the incumbent.
func (r *BacktestResult) dominates(s kernel.Stats) bool {
	return s.Ratio >= r.Ratio && s.FinalTotal >= r.ExitTotal
}

// Search enumerates every candidate kernel configuration over the table and
// returns the single best result, or (nil, nil) when no candidate passed
// the statistics filter. The base configuration seeds unvaried fields.
// Progress telemetry is emitted through the logger and has no effect on
// selection. The context is checked between candidates, so a caller may
// impose a timeout by cancelling it.
func Search(ctx context.Context, cfg Config, base kernel.Config, instrument string, tbl *series.Table, log *slog.Logger) (*BacktestResult, error) {
	if tbl == nil || tbl.Len() == 0 {
		return nil, series.ErrEmpty
	}

	forceEdge, haveForce, err := parseForceEdge(cfg.ForceEdge)
	if err != nil {
		return nil, err
	}

	candidates, total := cfg.Candidates(base)
	log.Info("starting pass", "total_combinations", total)

	if cfg.Workers > 1 {
		return searchParallel(ctx, cfg, instrument, tbl, candidates, total, forceEdge, haveForce, log)
	}

	var best *BacktestResult
	found := 0
	count := 0
	start := time.Now()

	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		count++
		logProgress(log, start, count, total, found)

		if haveForce && cand.Edge != forceEdge {
			continue
		}

		stats, ok, err := evaluate(cand, tbl)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		found++
		if best == nil || best.dominates(stats) {
			best = newResult(instrument, cand, stats)
			log.Debug("new best",
				"exit_total", best.ExitTotal, "ratio", best.Ratio,
				"wins", best.Wins, "losses", best.Losses)
		}
	}

	log.Info("pass complete", "total_found", found)
	if found == 0 {
		log.Warn("no viable configuration")
		return nil, nil
	}
	return best, nil
}

// evaluate runs the kernel for one candidate and reduces its P&L path.
// The boolean is false when the candidate was statistically rejected;
// errors are reserved for malformed input and abort the whole search.
func evaluate(cand kernel.Config, tbl *series.Table) (kernel.Stats, bool, error) {
	out, err := kernel.Run(cand, tbl)
	if err != nil {
		return kernel.Stats{}, false, fmt.Errorf("evaluating candidate: %w", err)
	}
	stats, ok, err := kernel.Reduce(out.ExitValue, out.ExitTotal)
	if err != nil {
		return kernel.Stats{}, false, fmt.Errorf("evaluating candidate: %w", err)
	}
	return stats, ok, nil
}

func newResult(instrument string, cand kernel.Config, stats kernel.Stats) *BacktestResult {
	return &BacktestResult{
		Instrument: instrument,
		Config:     cand,
		ExitTotal:  stats.FinalTotal,
		Ratio:      stats.Ratio,
		Wins:       stats.Wins,
		Losses:     stats.Losses,
	}
}

func parseForceEdge(s string) (kernel.EdgeCategory, bool, error) {
	if s == "" {
		return 0, false, nil
	}
	edge, err := kernel.ParseEdge(s)
	if err != nil {
		return 0, false, fmt.Errorf("solver force_edge: %w", err)
	}
	return edge, true, nil
}

// logProgress emits a heartbeat every progressInterval candidates with a
// linear-extrapolation estimate of the remaining time.
func logProgress(log *slog.Logger, start time.Time, count, total, found int) {
	if count%progressInterval != 0 {
		return
	}
	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 {
		return
	}
	throughput := float64(count) / elapsed
	remaining := time.Duration(float64(total-count) / throughput * float64(time.Second))
	log.Debug("heartbeat",
		"found", found,
		"pct", fmt.Sprintf("%.2f", 100*float64(count)/float64(total)),
		"count", count,
		"total", total,
		"per_sec", fmt.Sprintf("%.2f", throughput),
		"remaining", remaining.Round(time.Second),
	)
}
