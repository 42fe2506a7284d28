package proxy

import (
	"context"
	"fmt"

	"phemex-trade-client/internal/gateway"
	"phemex-trade-client/internal/market"
	"phemex-trade-client/internal/trade"

	"go.uber.org/zap"
)

// Proxy is the one-stop surface over the public market client and the
// private trading client. It takes segments as wire codes, prefixes every
// failure with the local operation name so operators can line errors up with
// exchange-side logs, and keeps the underlying classification intact for
// errors.As callers.
type Proxy struct {
	market  *market.Client
	trade   *trade.Client
	log     *zap.Logger
	verbose bool
}

func New(marketClient *market.Client, tradeClient *trade.Client, log *zap.Logger, verbose bool) *Proxy {
	if log == nil {
		log = zap.NewNop()
	}
	return &Proxy{
		market:  marketClient,
		trade:   tradeClient,
		log:     log,
		verbose: verbose,
	}
}

func (p *Proxy) Close() {
	p.market.Close()
	p.trade.Close()
}

// Public market data.

func (p *Proxy) Price(ctx context.Context, symbol string) (float64, error) {
	p.debug("price", zap.String("symbol", symbol))
	price, err := p.market.Price(ctx, symbol)
	return price, wrap("price", err)
}

func (p *Proxy) Ask(ctx context.Context, symbol string) (float64, error) {
	p.debug("ask", zap.String("symbol", symbol))
	ask, err := p.market.Ask(ctx, symbol)
	return ask, wrap("ask", err)
}

func (p *Proxy) OrderBook(ctx context.Context, symbol string) (gateway.OrderBook, error) {
	p.debug("orderbook", zap.String("symbol", symbol))
	book, err := p.market.OrderBook(ctx, symbol)
	return book, wrap("orderbook", err)
}

func (p *Proxy) OHLCV(ctx context.Context, symbol, timeframe string, since int64, limit int) ([]gateway.Candle, error) {
	p.debug("ohlcv", zap.String("symbol", symbol), zap.String("timeframe", timeframe))
	candles, err := p.market.OHLCV(ctx, symbol, timeframe, since, limit)
	return candles, wrap("ohlcv", err)
}

func (p *Proxy) Currencies(ctx context.Context) ([]string, error) {
	currencies, err := p.market.Currencies(ctx)
	return currencies, wrap("currencies", err)
}

func (p *Proxy) Symbols(ctx context.Context, segmentCode string) ([]string, error) {
	segment, err := gateway.ParseSegment(segmentCode)
	if err != nil {
		return nil, wrap("symbols", err)
	}
	symbols, err := p.market.Symbols(ctx, segment)
	return symbols, wrap("symbols", err)
}

func (p *Proxy) Timeframes() []string {
	return p.market.Timeframes()
}

// Private trading.

func (p *Proxy) Balance(ctx context.Context, currency, segmentCode string) (gateway.Balance, error) {
	segment, err := gateway.ParseSegment(segmentCode)
	if err != nil {
		return gateway.Balance{}, wrap("balance", err)
	}
	p.debug("balance", zap.String("currency", currency), zap.String("segment", segmentCode))
	balance, err := p.trade.Balance(ctx, currency, segment)
	return balance, wrap("balance", err)
}

func (p *Proxy) Buy(ctx context.Context, segmentCode, symbol, orderType string, amount, price float64) (*trade.Order, error) {
	segment, err := gateway.ParseSegment(segmentCode)
	if err != nil {
		return nil, wrap("buy", err)
	}
	p.debug("buy", zap.String("symbol", symbol), zap.Float64("amount", amount), zap.Float64("price", price))
	order, err := p.trade.Buy(ctx, segment, symbol, orderType, amount, price, nil)
	return order, wrap("buy", err)
}

func (p *Proxy) Sell(ctx context.Context, segmentCode, symbol, orderType string, amount, price float64) (*trade.Order, error) {
	segment, err := gateway.ParseSegment(segmentCode)
	if err != nil {
		return nil, wrap("sell", err)
	}
	p.debug("sell", zap.String("symbol", symbol), zap.Float64("amount", amount), zap.Float64("price", price))
	order, err := p.trade.Sell(ctx, segment, symbol, orderType, amount, price, nil)
	return order, wrap("sell", err)
}

func (p *Proxy) Long(ctx context.Context, symbol, orderType string, amount, price, stopLossPct, takeProfitPct float64) (*trade.Order, error) {
	p.debug("long", zap.String("symbol", symbol), zap.Float64("amount", amount), zap.Float64("price", price))
	order, err := p.trade.Long(ctx, symbol, orderType, amount, price, stopLossPct, takeProfitPct, nil)
	return order, wrap("long", err)
}

func (p *Proxy) Short(ctx context.Context, symbol, orderType string, amount, price, stopLossPct, takeProfitPct float64) (*trade.Order, error) {
	p.debug("short", zap.String("symbol", symbol), zap.Float64("amount", amount), zap.Float64("price", price))
	order, err := p.trade.Short(ctx, symbol, orderType, amount, price, stopLossPct, takeProfitPct, nil)
	return order, wrap("short", err)
}

func (p *Proxy) Leverage(ctx context.Context, amount int, symbol string) (bool, error) {
	p.debug("leverage", zap.String("symbol", symbol), zap.Int("amount", amount))
	ok, err := p.trade.Leverage(ctx, amount, symbol)
	return ok, wrap("leverage", err)
}

func (p *Proxy) Position(ctx context.Context, symbol string) (*trade.Position, error) {
	pos, err := p.trade.Position(ctx, symbol)
	return pos, wrap("position", err)
}

func (p *Proxy) Orders(ctx context.Context, symbol string) ([]gateway.OrderRecord, error) {
	orders, err := p.trade.Orders(ctx, symbol)
	return orders, wrap("orders", err)
}

func (p *Proxy) Cancel(ctx context.Context, id, symbol string) (gateway.OrderRecord, error) {
	p.debug("cancel", zap.String("id", id), zap.String("symbol", symbol))
	record, err := p.trade.Cancel(ctx, id, symbol)
	return record, wrap("cancel", err)
}

func (p *Proxy) debug(op string, fields ...zap.Field) {
	if p.verbose {
		p.log.Debug(op, fields...)
	}
}

// wrap prefixes the local operation name while keeping the wrapped error
// chain, so network/exchange classification survives.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
