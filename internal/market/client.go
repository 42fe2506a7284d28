package market

import (
	"context"
	"fmt"
	"strings"

	"phemex-trade-client/internal/dispatch"
	"phemex-trade-client/internal/gateway"
	"phemex-trade-client/internal/metrics"

	"go.uber.org/zap"
)

// Client is the read-only public surface: prices, orderbooks, candles and
// instrument listings. It owns its own dispatch worker, so it can be used in
// parallel with a trading client without sharing a queue.
type Client struct {
	gw      gateway.Gateway
	worker  *dispatch.Worker
	catalog *Catalog
	feed    *Feed
	log     *zap.Logger
}

func NewClient(gw gateway.Gateway, log *zap.Logger, meter *metrics.Metrics) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	catalog := NewCatalog()
	worker := dispatch.New(ReloadFunc(gw, catalog), log, meter)
	return &Client{
		gw:      gw,
		worker:  worker,
		catalog: catalog,
		log:     log,
	}
}

// ReloadFunc builds the per-task market refresh used by dispatch workers:
// reload gateway metadata and fold it into the catalog.
func ReloadFunc(gw gateway.Gateway, catalog *Catalog) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		markets, err := gw.LoadMarkets(ctx, true)
		if err != nil {
			return err
		}
		catalog.Update(markets)
		return nil
	}
}

// AttachFeed wires a live price feed. When attached, Price answers from the
// feed cache and only falls back to a REST ticker fetch on a miss.
func (c *Client) AttachFeed(feed *Feed) {
	c.feed = feed
}

func (c *Client) Catalog() *Catalog {
	return c.catalog
}

func (c *Client) Close() {
	c.worker.Stop()
}

// Price returns the last traded price for symbol.
func (c *Client) Price(ctx context.Context, symbol string) (float64, error) {
	if c.feed != nil {
		if price, ok := c.feed.Last(symbol); ok {
			return price, nil
		}
	}
	var ticker gateway.Ticker
	err := c.worker.Do(ctx, "fetch_ticker", func(ctx context.Context) error {
		var err error
		ticker, err = c.gw.FetchTicker(ctx, symbol)
		return err
	})
	if err != nil {
		return 0, err
	}
	return ticker.Last, nil
}

// Ask returns the best ask, preferring the orderbook top level.
func (c *Client) Ask(ctx context.Context, symbol string) (float64, error) {
	var book gateway.OrderBook
	err := c.worker.Do(ctx, "fetch_order_book", func(ctx context.Context) error {
		var err error
		book, err = c.gw.FetchOrderBook(ctx, symbol)
		return err
	})
	if err != nil {
		return 0, err
	}
	if len(book.Asks) > 0 {
		return book.Asks[0].Price, nil
	}
	return c.Price(ctx, symbol)
}

func (c *Client) OrderBook(ctx context.Context, symbol string) (gateway.OrderBook, error) {
	var book gateway.OrderBook
	err := c.worker.Do(ctx, "fetch_order_book", func(ctx context.Context) error {
		var err error
		book, err = c.gw.FetchOrderBook(ctx, symbol)
		return err
	})
	return book, err
}

func (c *Client) OHLCV(ctx context.Context, symbol, timeframe string, since int64, limit int) ([]gateway.Candle, error) {
	var candles []gateway.Candle
	err := c.worker.Do(ctx, "fetch_ohlcv", func(ctx context.Context) error {
		var err error
		candles, err = c.gw.FetchOHLCV(ctx, symbol, timeframe, since, limit)
		return err
	})
	return candles, err
}

// Currencies lists every currency in the loaded markets. The dispatched
// no-op rides on the reload that precedes it, which is what fills the
// catalog.
func (c *Client) Currencies(ctx context.Context) ([]string, error) {
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	return c.catalog.Currencies(), nil
}

// Symbols lists the instruments available on one segment.
func (c *Client) Symbols(ctx context.Context, segment gateway.Segment) ([]string, error) {
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	return c.catalog.Symbols(segment), nil
}

func (c *Client) refresh(ctx context.Context) error {
	return c.worker.Do(ctx, "load_markets", func(ctx context.Context) error {
		return nil
	})
}

// Timeframes lists the candle resolutions the exchange serves.
func (c *Client) Timeframes() []string {
	return []string{"1m", "3m", "5m", "15m", "30m", "1h", "2h", "3h", "4h", "6h", "12h", "1d", "1w", "1M"}
}

// FormatSymbol builds the exchange-native symbol for a currency pair on the
// given segment: spot pairs are s-prefixed concatenations, future pairs use
// the BASE/QUOTE:QUOTE form.
func FormatSymbol(base, quote string, segment gateway.Segment) string {
	base = strings.ToUpper(strings.TrimSpace(base))
	quote = strings.ToUpper(strings.TrimSpace(quote))
	switch segment {
	case gateway.Future:
		return fmt.Sprintf("%s/%s:%s", base, quote, quote)
	default:
		return "s" + base + quote
	}
}

// UsdtToCrypto converts a share of a USDT balance into a base-currency
// amount at the given price, rounded to five decimals.
func UsdtToCrypto(usdtBalance, price float64, percent float64) float64 {
	if price <= 0 {
		return 0
	}
	amount := (usdtBalance / price) * (percent / 100)
	return float64(int64(amount*1e5+0.5)) / 1e5
}
