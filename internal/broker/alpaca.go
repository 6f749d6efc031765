package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"github.com/krispyensign/mutantstopbot/internal/series"
	"github.com/krispyensign/mutantstopbot/internal/util"
)

// Compile-time interface checks.
var _ CandleSource = (*AlpacaSource)(nil)
var _ Broker = (*AlpacaBroker)(nil)

// fetchBurst is the rate-limiter bucket size for market-data requests.
const fetchBurst = 4

// ---------------------------------------------------------------------------
// AlpacaSource — bar history from the Alpaca market-data API.
// ---------------------------------------------------------------------------

// AlpacaSource fetches candles from the Alpaca market-data API.
type AlpacaSource struct {
	client  *marketdata.Client
	limiter *util.RateLimiter
	log     *slog.Logger
}

// NewAlpacaSource creates an AlpacaSource configured with the given
// credentials and data endpoint. rateLimitPerMin caps outgoing requests;
// zero disables the limiter.
func NewAlpacaSource(apiKey, apiSecret, dataURL string, rateLimitPerMin int) *AlpacaSource {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	var limiter *util.RateLimiter
	if rateLimitPerMin > 0 {
		// Burst covers the solver fanning one fetch out per evaluation date.
		limiter = util.NewRateLimiter(rateLimitPerMin, fetchBurst)
	}

	return &AlpacaSource{
		client:  marketdata.NewClient(opts),
		limiter: limiter,
		log:     slog.Default().With("source", "alpaca"),
	}
}

// timeFrame maps a granularity code to the Alpaca bar timeframe.
func timeFrame(granularity string) (marketdata.TimeFrame, error) {
	switch granularity {
	case "M1":
		return marketdata.OneMin, nil
	case "M5":
		return marketdata.NewTimeFrame(5, marketdata.Min), nil
	case "M15":
		return marketdata.NewTimeFrame(15, marketdata.Min), nil
	case "M30":
		return marketdata.NewTimeFrame(30, marketdata.Min), nil
	case "H1":
		return marketdata.OneHour, nil
	case "H4":
		return marketdata.NewTimeFrame(4, marketdata.Hour), nil
	case "D":
		return marketdata.OneDay, nil
	}
	return marketdata.TimeFrame{}, fmt.Errorf("unsupported granularity %q", granularity)
}

// GetCandles returns up to count candles at the given granularity. Fetches
// retry on transient errors with exponential backoff.
func (s *AlpacaSource) GetCandles(ctx context.Context, instrument, granularity string, count int, from time.Time) ([]series.Candle, error) {
	tf, err := timeFrame(granularity)
	if err != nil {
		return nil, err
	}

	req := marketdata.GetBarsRequest{
		TimeFrame:  tf,
		TotalLimit: count,
	}
	if from.IsZero() {
		// Most recent window: walk back far enough to cover count bars
		// plus weekend and holiday gaps.
		step, err := util.GranularityDuration(granularity)
		if err != nil {
			return nil, err
		}
		req.Start = time.Now().Add(-time.Duration(count) * step * 3)
	} else {
		req.Start = from
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var bars []marketdata.Bar
	err = util.Retry(ctx, 3, time.Second, func() error {
		var ferr error
		bars, ferr = s.client.GetBars(instrument, req)
		return ferr
	})
	if err != nil {
		return nil, fmt.Errorf("fetching bars for %s: %w", instrument, err)
	}

	// Trade bars carry no quote sides; the ask and bid channels mirror
	// the trade prices.
	candles := make([]series.Candle, len(bars))
	for i, b := range bars {
		candles[i] = series.Candle{
			Timestamp: b.Timestamp,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			AskOpen:   b.Open,
			AskHigh:   b.High,
			AskLow:    b.Low,
			AskClose:  b.Close,
			BidOpen:   b.Open,
			BidHigh:   b.High,
			BidLow:    b.Low,
			BidClose:  b.Close,
			Volume:    int64(b.Volume),
		}
	}
	s.log.Debug("fetched bars", "instrument", instrument, "granularity", granularity, "count", len(candles))
	return candles, nil
}

// ---------------------------------------------------------------------------
// AlpacaBroker — order execution through the Alpaca trading API.
// ---------------------------------------------------------------------------

// AlpacaBroker implements the Broker interface using the Alpaca trading API.
type AlpacaBroker struct {
	client *alpaca.Client
	log    *slog.Logger
}

// NewAlpacaBroker creates an AlpacaBroker configured with the given
// credentials and API endpoint.
func NewAlpacaBroker(apiKey, apiSecret, baseURL string) *AlpacaBroker {
	opts := alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if baseURL != "" {
		opts.BaseURL = baseURL
	}
	return &AlpacaBroker{
		client: alpaca.NewClient(opts),
		log:    slog.Default().With("broker", "alpaca"),
	}
}

// Name returns "alpaca".
func (b *AlpacaBroker) Name() string {
	return "alpaca"
}

// OpenTrade submits a market buy. Take-profit and stop-loss levels ride as
// bracket legs on the entry. Alpaca order legs cannot express a trailing
// stop, so when trailingStop > 0 a separate trailing-stop sell is submitted
// after the entry.
func (b *AlpacaBroker) OpenTrade(_ context.Context, instrument string, units, takeProfit, stopLoss, trailingStop float64) (*Trade, error) {
	qty := decimal.NewFromFloat(units)
	req := alpaca.PlaceOrderRequest{
		Symbol:      instrument,
		Qty:         &qty,
		Side:        alpaca.Buy,
		Type:        alpaca.Market,
		TimeInForce: alpaca.GTC,
	}
	switch {
	case takeProfit > 0 && stopLoss > 0:
		limit := decimal.NewFromFloat(takeProfit)
		stop := decimal.NewFromFloat(stopLoss)
		req.OrderClass = alpaca.Bracket
		req.TakeProfit = &alpaca.TakeProfit{LimitPrice: &limit}
		req.StopLoss = &alpaca.StopLoss{StopPrice: &stop}
	case takeProfit > 0:
		limit := decimal.NewFromFloat(takeProfit)
		req.OrderClass = alpaca.OTO
		req.TakeProfit = &alpaca.TakeProfit{LimitPrice: &limit}
	case stopLoss > 0:
		stop := decimal.NewFromFloat(stopLoss)
		req.OrderClass = alpaca.OTO
		req.StopLoss = &alpaca.StopLoss{StopPrice: &stop}
	}

	order, err := b.client.PlaceOrder(req)
	if err != nil {
		return nil, fmt.Errorf("placing entry order for %s: %w", instrument, err)
	}
	b.log.Info("entry order placed",
		"instrument", instrument, "units", units,
		"take_profit", takeProfit, "stop_loss", stopLoss,
		"order_id", order.ID)

	if trailingStop > 0 {
		trail := decimal.NewFromFloat(trailingStop)
		_, err := b.client.PlaceOrder(alpaca.PlaceOrderRequest{
			Symbol:      instrument,
			Qty:         &qty,
			Side:        alpaca.Sell,
			Type:        alpaca.TrailingStop,
			TimeInForce: alpaca.GTC,
			TrailPrice:  &trail,
		})
		if err != nil {
			b.log.Warn("trailing stop rejected", "instrument", instrument, "err", err)
		}
	}

	entry := 0.0
	if order.FilledAvgPrice != nil {
		entry = order.FilledAvgPrice.InexactFloat64()
	}
	return &Trade{
		ID:         order.ID,
		Instrument: instrument,
		Units:      units,
		EntryPrice: entry,
		OpenedAt:   order.CreatedAt,
	}, nil
}

// CloseTrade cancels open orders on the instrument and liquidates the
// position.
func (b *AlpacaBroker) CloseTrade(_ context.Context, instrument string) error {
	orders, err := b.client.GetOrders(alpaca.GetOrdersRequest{
		Status:  "open",
		Symbols: []string{instrument},
	})
	if err != nil {
		return fmt.Errorf("listing open orders for %s: %w", instrument, err)
	}
	for _, o := range orders {
		if err := b.client.CancelOrder(o.ID); err != nil {
			return fmt.Errorf("cancelling order %s: %w", o.ID, err)
		}
	}

	if _, err := b.client.ClosePosition(instrument, alpaca.ClosePositionRequest{}); err != nil {
		return fmt.Errorf("closing position %s: %w", instrument, err)
	}
	b.log.Info("position closed", "instrument", instrument)
	return nil
}

// GetTrade returns the open position on the instrument, or nil when none
// exists.
func (b *AlpacaBroker) GetTrade(_ context.Context, instrument string) (*Trade, error) {
	pos, err := b.client.GetPosition(instrument)
	if err != nil {
		var apiErr *alpaca.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("looking up position %s: %w", instrument, err)
	}
	return &Trade{
		ID:         pos.AssetID,
		Instrument: pos.Symbol,
		Units:      pos.Qty.InexactFloat64(),
		EntryPrice: pos.AvgEntryPrice.InexactFloat64(),
	}, nil
}

// GetAccount returns the current account snapshot.
func (b *AlpacaBroker) GetAccount(_ context.Context) (*Account, error) {
	acct, err := b.client.GetAccount()
	if err != nil {
		return nil, fmt.Errorf("fetching account: %w", err)
	}
	return &Account{
		ID:      acct.ID,
		Cash:    acct.Cash.InexactFloat64(),
		Equity:  acct.Equity.InexactFloat64(),
		Balance: acct.PortfolioValue.InexactFloat64(),
	}, nil
}
