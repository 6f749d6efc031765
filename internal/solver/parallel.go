package solver

import (
	"container/heap"
	"context"
	"iter"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/krispyensign/mutantstopbot/internal/kernel"
	"github.com/krispyensign/mutantstopbot/internal/series"
)

type job struct {
	idx  int
	cand kernel.Config
}

type outcome struct {
	idx   int
	cand  kernel.Config
	stats kernel.Stats
	ok    bool
}

// searchParallel evaluates candidates on cfg.Workers goroutines and folds
// the outcomes back in candidate-enumeration order, so the result is
// identical to the sequential search: the first viable candidate still
// seeds the best, and on non-dominating pairs the earlier-enumerated
// candidate wins. Out-of-order outcomes wait in a reorder buffer bounded by
// the worker count. Every enumerated candidate flows through the fold —
// edge-filtered ones skip evaluation but still count, so the progress
// telemetry matches the sequential path.
func searchParallel(
	ctx context.Context,
	cfg Config,
	instrument string,
	tbl *series.Table,
	candidates iter.Seq2[int, kernel.Config],
	total int,
	forceEdge kernel.EdgeCategory,
	haveForce bool,
	log *slog.Logger,
) (*BacktestResult, error) {
	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan job, cfg.Workers)
	outcomes := make(chan outcome, cfg.Workers)

	// Dispatcher: enumerate and hand out jobs under their enumeration index.
	g.Go(func() error {
		defer close(jobs)
		for i, cand := range candidates {
			select {
			case jobs <- job{idx: i, cand: cand}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var workerWG sync.WaitGroup
	workerWG.Add(cfg.Workers)
	for w := 0; w < cfg.Workers; w++ {
		g.Go(func() error {
			defer workerWG.Done()
			for j := range jobs {
				oc := outcome{idx: j.idx, cand: j.cand}
				if !haveForce || j.cand.Edge == forceEdge {
					stats, ok, err := evaluate(j.cand, tbl)
					if err != nil {
						return err
					}
					oc.stats, oc.ok = stats, ok
				}
				select {
				case outcomes <- oc:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		workerWG.Wait()
		close(outcomes)
	}()

	var best *BacktestResult
	found := 0
	count := 0
	next := 0
	start := time.Now()
	pending := &outcomeHeap{}

	for oc := range outcomes {
		heap.Push(pending, oc)
		for pending.Len() > 0 && (*pending)[0].idx == next {
			oc := heap.Pop(pending).(outcome)
			next++
			count++
			logProgress(log, start, count, total, found)
			if !oc.ok {
				continue
			}
			found++
			if best == nil || best.dominates(oc.stats) {
				best = newResult(instrument, oc.cand, oc.stats)
			}
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("pass complete", "total_found", found)
	if found == 0 {
		log.Warn("no viable configuration")
		return nil, nil
	}
	return best, nil
}

// outcomeHeap orders outcomes by candidate index.
type outcomeHeap []outcome

func (h outcomeHeap) Len() int           { return len(h) }
func (h outcomeHeap) Less(i, j int) bool { return h[i].idx < h[j].idx }
func (h outcomeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *outcomeHeap) Push(x any)        { *h = append(*h, x.(outcome)) }
func (h *outcomeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
