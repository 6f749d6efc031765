// Command solver grid-searches kernel configurations over historical
// candles and reports the segmented holdout estimates per date.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/krispyensign/mutantstopbot/internal/broker"
	"github.com/krispyensign/mutantstopbot/internal/config"
	"github.com/krispyensign/mutantstopbot/internal/indicator"
	"github.com/krispyensign/mutantstopbot/internal/report"
	"github.com/krispyensign/mutantstopbot/internal/series"
	"github.com/krispyensign/mutantstopbot/internal/solver"
	"github.com/krispyensign/mutantstopbot/internal/store"
	"github.com/krispyensign/mutantstopbot/internal/util"
)

func main() {
	cfgPath := flag.String("config", "config/solver.yaml", "path to the yaml configuration")
	flag.Parse()
	if p := os.Getenv("MUTANTSTOPBOT_CONFIG"); p != "" {
		*cfgPath = p
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("solver failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	appStart := time.Now()

	ver := util.ReadVersion()
	logger.Info("starting solve", "revision", ver.Revision, "dirty", ver.Dirty)

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	source := broker.NewCachedSource(
		broker.NewAlpacaSource(cfg.Broker.APIKey, cfg.Broker.APISecret, cfg.Broker.DataURL, cfg.Broker.RateLimitPerMin),
		pstore,
	)

	results, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer results.Close()

	dates := cfg.Solver.Dates
	if len(dates) == 0 {
		dates = []string{cfg.Chart.DateFrom}
	}

	timer := util.NewPerfTimer(appStart, logger)
	defer timer.Stop()

	triads := make([]solver.Triad, len(dates))
	winners := make([]*solver.BacktestResult, len(dates))

	g, gctx := errgroup.WithContext(ctx)
	for i, date := range dates {
		g.Go(func() error {
			tbl, err := fetchWindow(gctx, source, cfg, date)
			if err != nil {
				return fmt.Errorf("date %q: %w", date, err)
			}
			triad, winner, err := solver.SegmentedSearch(gctx, cfg.Solver, cfg.Kernel,
				cfg.Chart.Instrument, tbl, logger.With("date", date))
			if err != nil {
				return fmt.Errorf("date %q: %w", date, err)
			}
			triads[i] = triad
			winners[i] = winner
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Persist the winner of the most recent segment that produced one.
	for i := len(winners) - 1; i >= 0; i-- {
		if winners[i] == nil {
			continue
		}
		if err := results.SaveResult(ctx, winners[i], triads[i]); err != nil {
			return err
		}
		fmt.Print(report.Result(winners[i]))
		break
	}
	fmt.Print(report.Summary(dates, triads))
	return nil
}

// fetchWindow retrieves and enriches one evaluation window. An empty date
// anchors the window at "now minus count bars".
func fetchWindow(ctx context.Context, source broker.CandleSource, cfg *config.Config, date string) (*series.Table, error) {
	from, err := parseDate(date)
	if err != nil {
		return nil, err
	}

	candles, err := source.GetCandles(ctx, cfg.Chart.Instrument, cfg.Chart.Granularity, cfg.Chart.CandleCount, from)
	if err != nil {
		return nil, err
	}
	tbl, err := series.FromCandles(candles)
	if err != nil {
		return nil, err
	}
	if err := indicator.Enrich(tbl, cfg.Kernel.WMAPeriod); err != nil {
		return nil, err
	}
	return tbl, nil
}

func parseDate(date string) (time.Time, error) {
	if date == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", date); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, date)
}
