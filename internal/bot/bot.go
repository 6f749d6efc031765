// Package bot runs the live trading loop: fetch candles, evaluate the
// signal kernel, and reconcile the broker position with the latest trigger.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/krispyensign/mutantstopbot/internal/broker"
	"github.com/krispyensign/mutantstopbot/internal/indicator"
	"github.com/krispyensign/mutantstopbot/internal/kernel"
	"github.com/krispyensign/mutantstopbot/internal/series"
	"github.com/krispyensign/mutantstopbot/internal/util"
)

// errorBackoff is how long the loop sleeps after a failed iteration before
// trying again.
const errorBackoff = 5 * time.Second

// Record is the last bar of a kernel evaluation, the state the trading
// decision is made from.
type Record struct {
	// ATR is the average true range at the last bar, used as the
	// trailing-stop distance.
	ATR float64

	// TakeProfit is the absolute exit level: entry price plus the ATR
	// multiple. Zero when no position was ever entered.
	TakeProfit float64

	// WMA is the source moving average at the last bar, used as the
	// protective stop level.
	WMA float64

	Signal  int
	Trigger int
}

// NewRecord extracts the decision state from the last bar of a kernel run.
func NewRecord(cfg kernel.Config, t *series.Table, out *kernel.Output) (Record, error) {
	n := t.Len()
	if n == 0 {
		return Record{}, series.ErrEmpty
	}
	atr, err := t.Column("atr")
	if err != nil {
		return Record{}, err
	}
	wma, err := t.Column("wma_" + cfg.SourceColumn)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		ATR:     atr[n-1],
		WMA:     wma[n-1],
		Signal:  out.Signal[n-1],
		Trigger: out.Trigger[n-1],
	}
	if entry := out.EntryPrice[n-1]; !math.IsNaN(entry) {
		rec.TakeProfit = entry + atr[n-1]*cfg.TakeProfit
	}
	return rec, nil
}

// Config holds the bot's runtime parameters.
type Config struct {
	Instrument  string
	Granularity string
	CandleCount int
	Units       float64
	Refresh     time.Duration
	Kernel      kernel.Config
}

// Bot ties a candle source, a broker, and a kernel configuration into a
// polling trade loop.
type Bot struct {
	cfg    Config
	source broker.CandleSource
	broker broker.Broker
	risk   *RiskManager
	log    *slog.Logger
}

// New creates a Bot. risk may be nil to disable pre-trade checks.
func New(cfg Config, source broker.CandleSource, b broker.Broker, risk *RiskManager, log *slog.Logger) *Bot {
	if log == nil {
		log = slog.Default()
	}
	return &Bot{
		cfg:    cfg,
		source: source,
		broker: b,
		risk:   risk,
		log:    log.With("bot", cfg.Instrument),
	}
}

// RunOnce performs a single iteration: fetch the latest window, evaluate
// the kernel, and reconcile the open position with the trigger.
//
// Decision table, in order:
//   - trigger +1 with no open trade: open, with take-profit at the ATR
//     multiple, protective stop at the WMA, trailing stop at one ATR.
//   - trigger -1 with an open trade: close.
//   - trigger 0 and signal 0 with an open trade: the position got orphaned
//     by a stale signal; close.
func (b *Bot) RunOnce(ctx context.Context) error {
	trade, err := b.broker.GetTrade(ctx, b.cfg.Instrument)
	if err != nil {
		return fmt.Errorf("looking up open trade: %w", err)
	}

	candles, err := b.source.GetCandles(ctx, b.cfg.Instrument, b.cfg.Granularity, b.cfg.CandleCount, time.Time{})
	if err != nil {
		return fmt.Errorf("fetching candles: %w", err)
	}
	tbl, err := series.FromCandles(candles)
	if err != nil {
		return err
	}
	if err := indicator.Enrich(tbl, b.cfg.Kernel.WMAPeriod); err != nil {
		return err
	}
	out, err := kernel.Run(b.cfg.Kernel, tbl)
	if err != nil {
		return err
	}
	rec, err := NewRecord(b.cfg.Kernel, tbl, out)
	if err != nil {
		return err
	}

	switch {
	case rec.Trigger == 1 && trade == nil:
		if b.risk != nil {
			acct, err := b.broker.GetAccount(ctx)
			if err != nil {
				return fmt.Errorf("fetching account: %w", err)
			}
			if err := b.risk.CheckOrder(b.cfg.Units, acct); err != nil {
				b.log.Warn("entry rejected by risk check", "err", err)
				break
			}
		}
		opened, err := b.broker.OpenTrade(ctx, b.cfg.Instrument, b.cfg.Units, rec.TakeProfit, rec.WMA, rec.ATR)
		if err != nil {
			return fmt.Errorf("opening trade: %w", err)
		}
		b.log.Info("opened trade",
			"id", opened.ID, "units", opened.Units, "entry", opened.EntryPrice,
			"take_profit", rec.TakeProfit, "stop_loss", rec.WMA, "trailing", rec.ATR)

	case rec.Trigger == -1 && trade != nil:
		if err := b.broker.CloseTrade(ctx, b.cfg.Instrument); err != nil {
			return fmt.Errorf("closing trade: %w", err)
		}
		b.log.Info("closed trade on exit trigger", "id", trade.ID)

	case rec.Trigger == 0 && rec.Signal == 0 && trade != nil:
		if err := b.broker.CloseTrade(ctx, b.cfg.Instrument); err != nil {
			return fmt.Errorf("closing orphaned trade: %w", err)
		}
		b.log.Info("closed orphaned trade", "id", trade.ID)
	}

	b.log.Info("iteration",
		"signal", rec.Signal, "trigger", rec.Trigger,
		"wma", rec.WMA, "atr", rec.ATR)
	return nil
}

// Run polls until ctx is cancelled. Failed iterations log the error, back
// off briefly, and continue.
func (b *Bot) Run(ctx context.Context) error {
	appStart := time.Now()
	b.log.Info("starting bot",
		"granularity", b.cfg.Granularity,
		"refresh", b.cfg.Refresh,
		"units", b.cfg.Units)

	for {
		timer := util.NewPerfTimer(appStart, b.log)
		err := b.RunOnce(ctx)
		timer.Stop()

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.log.Error("iteration failed", "err", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(errorBackoff):
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.cfg.Refresh):
		}
	}
}
