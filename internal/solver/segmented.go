package solver

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/krispyensign/mutantstopbot/internal/kernel"
	"github.com/krispyensign/mutantstopbot/internal/series"
)

// Triad holds the three holdout performance estimates produced by the
// segmented protocol. Raw and Refined were optimized without seeing the
// holdout sample (zero-knowledge); Perfect searched the sample itself and
// bounds them from above. Missing results are 0.
type Triad struct {
	Raw     float64
	Refined float64
	Perfect float64
}

// SegmentedSearch partitions the table into a training window (oldest
// TrainSize bars) and a holdout sample window (most recent SampleSize
// bars), with a refine window equal to the tail of the training window.
//
//  1. Search the training window; re-apply the winner to the sample for
//     the raw zero-knowledge estimate.
//  2. Search the refine window seeded with the raw winner; re-apply to the
//     sample for the refined estimate.
//  3. Search the sample itself for the perfect-knowledge upper bound.
//
// Returns the triad together with the raw training winner; the winner is
// nil when the training window yields nothing viable. Absent search results
// contribute 0 to the triad; only malformed input is an error.
func SegmentedSearch(ctx context.Context, cfg Config, base kernel.Config, instrument string, tbl *series.Table, log *slog.Logger) (Triad, *BacktestResult, error) {
	if tbl == nil || tbl.Len() == 0 {
		return Triad{}, nil, series.ErrEmpty
	}
	if cfg.TrainSize <= 0 || cfg.SampleSize <= 0 {
		return Triad{}, nil, fmt.Errorf("solver: train_size and sample_size must be positive")
	}

	train := tbl.Head(cfg.TrainSize)
	refine := train.Tail(cfg.SampleSize)
	sample := tbl.Tail(cfg.SampleSize)

	raw, err := Search(ctx, cfg, base, instrument, train, log)
	if err != nil {
		return Triad{}, nil, err
	}
	if raw == nil {
		log.Warn("no viable configuration on training window")
		return Triad{}, nil, nil
	}
	log.Info("raw zero-knowledge result",
		"exit_total", raw.ExitTotal, "ratio", raw.Ratio,
		"wins", raw.Wins, "losses", raw.Losses)

	var triad Triad
	triad.Raw, err = holdoutTotal(raw.Config, sample)
	if err != nil {
		return Triad{}, nil, err
	}

	refined, err := Search(ctx, cfg, raw.Config, instrument, refine, log)
	if err != nil {
		return Triad{}, nil, err
	}
	if refined != nil {
		log.Info("refined zero-knowledge result",
			"exit_total", refined.ExitTotal, "ratio", refined.Ratio)
		triad.Refined, err = holdoutTotal(refined.Config, sample)
		if err != nil {
			return Triad{}, nil, err
		}
	} else {
		log.Warn("no viable refined configuration")
	}

	perfect, err := Search(ctx, cfg, raw.Config, instrument, sample, log)
	if err != nil {
		return Triad{}, nil, err
	}
	if perfect != nil {
		log.Info("perfect-knowledge result",
			"exit_total", perfect.ExitTotal, "ratio", perfect.Ratio)
		triad.Perfect, err = holdoutTotal(perfect.Config, sample)
		if err != nil {
			return Triad{}, nil, err
		}
	} else {
		log.Warn("no viable perfect-knowledge configuration")
	}

	log.Info("segmented result",
		"raw", triad.Raw, "refined", triad.Refined, "perfect", triad.Perfect)
	return triad, raw, nil
}

// holdoutTotal re-applies a configuration to the holdout window, with no
// further search, and returns the final cumulative total. An indeterminate
// total is 0, never an error.
func holdoutTotal(cand kernel.Config, sample *series.Table) (float64, error) {
	out, err := kernel.Run(cand, sample)
	if err != nil {
		return 0, fmt.Errorf("holdout evaluation: %w", err)
	}
	total := out.ExitTotal[len(out.ExitTotal)-1]
	if math.IsNaN(total) {
		return 0, nil
	}
	return total, nil
}
