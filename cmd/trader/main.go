// Command trader solves for the best kernel configuration and then runs
// the live trading loop with it.
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

	"github.com/krispyensign/mutantstopbot/internal/bot"
	"github.com/krispyensign/mutantstopbot/internal/broker"
	"github.com/krispyensign/mutantstopbot/internal/config"
	"github.com/krispyensign/mutantstopbot/internal/indicator"
	"github.com/krispyensign/mutantstopbot/internal/kernel"
	"github.com/krispyensign/mutantstopbot/internal/report"
	"github.com/krispyensign/mutantstopbot/internal/series"
	"github.com/krispyensign/mutantstopbot/internal/solver"
	"github.com/krispyensign/mutantstopbot/internal/store"
	"github.com/krispyensign/mutantstopbot/internal/util"
)

const usage = `usage: trader [-config path] [-resolve] [-backtest]

Solves for the best kernel configuration over the configured training
window, then polls the market and reconciles the broker position with the
signal. With -resolve the saved result in the database is ignored and a
fresh search runs first. With -backtest orders go to the in-memory
simulator regardless of the configured mode.`

func main() {
	cfgPath := flag.String("config", "config/trader.yaml", "path to the yaml configuration")
	resolve := flag.Bool("resolve", false, "ignore the saved result and search again")
	backtest := flag.Bool("backtest", false, "simulate orders instead of sending them to the broker")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, usage)
	}
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

	if *backtest {
		cfg.Trading.PaperMode = true
	}

	if err := run(ctx, cfg, *resolve, logger); err != nil && ctx.Err() == nil {
		logger.Error("trader failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, resolve bool, logger *slog.Logger) error {
	ver := util.ReadVersion()
	logger.Info("starting trader", "revision", ver.Revision, "dirty", ver.Dirty)

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

	best, err := bestConfig(ctx, cfg, source, results, resolve, logger)
	if err != nil {
		return err
	}

	var b broker.Broker
	if cfg.Trading.PaperMode {
		acct := 100000.0
		logger.Info("paper mode", "cash", acct)
		b = broker.NewSimulatorBroker(acct)
	} else {
		b = broker.NewAlpacaBroker(cfg.Broker.APIKey, cfg.Broker.APISecret, cfg.Broker.BaseURL)
	}

	tradingBot := bot.New(bot.Config{
		Instrument:  cfg.Chart.Instrument,
		Granularity: cfg.Chart.Granularity,
		CandleCount: cfg.Chart.CandleCount,
		Units:       cfg.Trading.Units,
		Refresh:     time.Duration(cfg.Trading.RefreshSeconds) * time.Second,
		Kernel:      best,
	}, source, b, bot.NewRiskManager(cfg.Trading.MaxUnits, 0), logger)

	return tradingBot.Run(ctx)
}

// bestConfig returns the kernel configuration to trade with: the most
// recently saved solver result unless resolve forces a fresh search.
func bestConfig(ctx context.Context, cfg *config.Config, source broker.CandleSource, results store.ResultStore, resolve bool, logger *slog.Logger) (kernel.Config, error) {
	if !resolve {
		saved, _, err := results.LatestResult(ctx, cfg.Chart.Instrument)
		if err != nil {
			return kernel.Config{}, err
		}
		if saved != nil {
			logger.Info("using saved result",
				"exit_total", saved.ExitTotal, "ratio", saved.Ratio)
			return saved.Config, nil
		}
	}

	candles, err := source.GetCandles(ctx, cfg.Chart.Instrument, cfg.Chart.Granularity, cfg.Chart.CandleCount, time.Time{})
	if err != nil {
		return kernel.Config{}, err
	}
	tbl, err := series.FromCandles(candles)
	if err != nil {
		return kernel.Config{}, err
	}
	if err := indicator.Enrich(tbl, cfg.Kernel.WMAPeriod); err != nil {
		return kernel.Config{}, err
	}

	triad, winner, err := solver.SegmentedSearch(ctx, cfg.Solver, cfg.Kernel, cfg.Chart.Instrument, tbl, logger)
	if err != nil {
		return kernel.Config{}, err
	}
	if winner == nil {
		return kernel.Config{}, fmt.Errorf("no viable configuration for %s", cfg.Chart.Instrument)
	}
	if err := results.SaveResult(ctx, winner, triad); err != nil {
		return kernel.Config{}, err
	}
	fmt.Print(report.Result(winner))
	fmt.Print(report.Triad(triad))
	return winner.Config, nil
}
