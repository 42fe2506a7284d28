package trade

import (
	"context"

	"phemex-trade-client/internal/dispatch"
	"phemex-trade-client/internal/gateway"
	"phemex-trade-client/internal/journal"
	"phemex-trade-client/internal/market"
	"phemex-trade-client/internal/metrics"
	"phemex-trade-client/internal/state"

	"go.uber.org/zap"
)

// Client is the private trading surface. It owns one dispatch worker, so all
// order and position mutations issued through it are totally ordered. Order
// and Position handles keep a back-reference to the client that created them
// and must not outlive it.
type Client struct {
	gw      gateway.Gateway
	worker  *dispatch.Worker
	catalog *market.Catalog
	log     *zap.Logger
	meter   *metrics.Metrics

	snapshots *state.OrderSnapshots
	journal   *journal.Writer
}

func NewClient(gw gateway.Gateway, log *zap.Logger, meter *metrics.Metrics) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if meter == nil {
		meter = metrics.NewNoop()
	}
	catalog := market.NewCatalog()
	worker := dispatch.New(market.ReloadFunc(gw, catalog), log, meter)
	return &Client{
		gw:      gw,
		worker:  worker,
		catalog: catalog,
		log:     log,
		meter:   meter,
	}
}

// AttachSnapshots wires the persistent order snapshot store. Without it the
// client still works, it just cannot re-attach to resting orders after a
// restart.
func (c *Client) AttachSnapshots(snapshots *state.OrderSnapshots) {
	c.snapshots = snapshots
}

// AttachJournal wires the order event journal.
func (c *Client) AttachJournal(writer *journal.Writer) {
	c.journal = writer
}

func (c *Client) Catalog() *market.Catalog {
	return c.catalog
}

func (c *Client) Close() {
	c.worker.Stop()
}

// Balance returns the account balance for one currency on the given segment.
// A currency the account never touched comes back as a zero balance, not an
// error.
func (c *Client) Balance(ctx context.Context, currency string, segment gateway.Segment) (gateway.Balance, error) {
	params := gateway.Params{}
	if segment == gateway.Future {
		params["type"] = "swap"
		params["code"] = currency
	}
	var balances map[string]gateway.Balance
	err := c.worker.Do(ctx, "fetch_balance", func(ctx context.Context) error {
		var err error
		balances, err = c.gw.FetchBalance(ctx, params)
		return err
	})
	if err != nil {
		return gateway.Balance{}, err
	}
	return balances[currency], nil
}

// Buy submits a buy order on the given segment and returns its handle.
func (c *Client) Buy(ctx context.Context, segment gateway.Segment, symbol, orderType string, amount, price float64, params gateway.Params) (*Order, error) {
	return c.submit(ctx, segment, symbol, orderType, "buy", amount, price, params)
}

// Sell submits a sell order on the given segment and returns its handle.
func (c *Client) Sell(ctx context.Context, segment gateway.Segment, symbol, orderType string, amount, price float64, params gateway.Params) (*Order, error) {
	return c.submit(ctx, segment, symbol, orderType, "sell", amount, price, params)
}

// Long opens or extends long exposure on the derivatives segment. Stop-loss
// and take-profit percentages are converted to absolute last-price triggers
// relative to the submitted price, then the order delegates to Buy; there is
// one order-construction path, parameterized by segment.
func (c *Client) Long(ctx context.Context, symbol, orderType string, amount, price, stopLossPct, takeProfitPct float64, params gateway.Params) (*Order, error) {
	p, err := swapParams(Long, price, stopLossPct, takeProfitPct, params)
	if err != nil {
		return nil, err
	}
	return c.Buy(ctx, gateway.Future, symbol, orderType, amount, price, p)
}

// Short mirrors Long on the sell side.
func (c *Client) Short(ctx context.Context, symbol, orderType string, amount, price, stopLossPct, takeProfitPct float64, params gateway.Params) (*Order, error) {
	p, err := swapParams(Short, price, stopLossPct, takeProfitPct, params)
	if err != nil {
		return nil, err
	}
	return c.Sell(ctx, gateway.Future, symbol, orderType, amount, price, p)
}

// Leverage sets the leverage for a derivatives symbol and reports whether the
// exchange acknowledged it.
func (c *Client) Leverage(ctx context.Context, amount int, symbol string) (bool, error) {
	var result gateway.LeverageResult
	err := c.worker.Do(ctx, "set_leverage", func(ctx context.Context) error {
		var err error
		result, err = c.gw.SetLeverage(ctx, amount, symbol)
		return err
	})
	if err != nil {
		return false, err
	}
	return result.OK(), nil
}

// Position returns a handle on the open derivatives position for symbol, or
// nil when the account is flat on it.
func (c *Client) Position(ctx context.Context, symbol string) (*Position, error) {
	var records []gateway.PositionRecord
	err := c.worker.Do(ctx, "fetch_positions", func(ctx context.Context) error {
		var err error
		records, err = c.gw.FetchPositions(ctx, []string{symbol})
		return err
	})
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.Symbol == symbol && rec.Contracts > 0 {
			return newPosition(c, rec), nil
		}
	}
	return nil, nil
}

// Orders lists the open orders for symbol, normalized: the exchange-native
// symbol is folded out of the request echo and the raw echo and exchange
// status are dropped.
func (c *Client) Orders(ctx context.Context, symbol string) ([]gateway.OrderRecord, error) {
	records, err := c.openOrders(ctx, symbol)
	if err != nil {
		return nil, err
	}
	out := make([]gateway.OrderRecord, len(records))
	for i, rec := range records {
		out[i] = normalizeRecord(rec)
	}
	return out, nil
}

// Cancel cancels an order by id. An exchange rejection is reported as a
// CancellationError; on this exchange a rejected cancel almost always means
// the order is no longer resting.
func (c *Client) Cancel(ctx context.Context, id, symbol string) (gateway.OrderRecord, error) {
	var record gateway.OrderRecord
	err := c.worker.Do(ctx, "cancel_order", func(ctx context.Context) error {
		var err error
		record, err = c.gw.CancelOrder(ctx, id, symbol)
		return err
	})
	if err != nil {
		if gateway.IsExchange(err) {
			return gateway.OrderRecord{}, &CancellationError{ID: id, Symbol: symbol, Err: err}
		}
		return gateway.OrderRecord{}, err
	}
	c.meter.OrdersCanceled.Inc()
	return normalizeRecord(record), nil
}

func (c *Client) submit(ctx context.Context, segment gateway.Segment, symbol, orderType, side string, amount, price float64, params gateway.Params) (*Order, error) {
	req := gateway.OrderRequest{
		Symbol: symbol,
		Type:   orderType,
		Side:   side,
		Amount: amount,
		Price:  price,
		Params: withPostOnly(orderType, params),
	}
	var record gateway.OrderRecord
	err := c.worker.Do(ctx, "create_order", func(ctx context.Context) error {
		var err error
		record, err = c.gw.CreateOrder(ctx, req)
		return err
	})
	if err != nil {
		c.meter.OrdersFailed.Inc()
		return nil, err
	}
	c.meter.OrdersPlaced.Inc()
	order := newOrder(c, segment, record)
	order.persist(ctx)
	return order, nil
}

func (c *Client) openOrders(ctx context.Context, symbol string) ([]gateway.OrderRecord, error) {
	var records []gateway.OrderRecord
	err := c.worker.Do(ctx, "fetch_open_orders", func(ctx context.Context) error {
		var err error
		records, err = c.gw.FetchOpenOrders(ctx, symbol)
		return err
	})
	return records, err
}

// ask is the repricing source for retries: best ask off the book, last trade
// as a fallback on an empty side.
func (c *Client) ask(ctx context.Context, symbol string) (float64, error) {
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
	var ticker gateway.Ticker
	err = c.worker.Do(ctx, "fetch_ticker", func(ctx context.Context) error {
		var err error
		ticker, err = c.gw.FetchTicker(ctx, symbol)
		return err
	})
	if err != nil {
		return 0, err
	}
	return ticker.Last, nil
}

// swapParams builds the derivatives order parameters: USD-settled swap
// account, last-price triggers for the optional stop-loss/take-profit, on top
// of whatever the caller passed through.
func swapParams(dir Direction, price, stopLossPct, takeProfitPct float64, extra gateway.Params) (gateway.Params, error) {
	p := gateway.Params{"type": "swap", "code": "USD"}
	for k, v := range extra {
		p[k] = v
	}
	if stopLossPct > 0 && price > 0 {
		sl, err := StopLoss(price, stopLossPct, dir)
		if err != nil {
			return nil, err
		}
		p["stopLossPrice"] = sl
		p["slTrigger"] = "ByLastPrice"
	}
	if takeProfitPct > 0 && price > 0 {
		tp, err := TakeProfit(price, takeProfitPct, dir)
		if err != nil {
			return nil, err
		}
		p["takeProfitPrice"] = tp
		p["tpTrigger"] = "ByLastPrice"
	}
	return p, nil
}

// withPostOnly defaults limit orders to post-only time in force so a reprice
// never crosses the book by accident. Callers can override it explicitly.
func withPostOnly(orderType string, params gateway.Params) gateway.Params {
	p := gateway.Params{}
	for k, v := range params {
		p[k] = v
	}
	if orderType == "limit" {
		if _, ok := p["timeInForce"]; !ok {
			p["timeInForce"] = "PostOnly"
		}
	}
	return p
}

// normalizeRecord flattens an exchange order record: the true exchange
// symbol comes out of the request echo, and the echo plus the exchange-native
// status are dropped. Lifecycle state is tracked locally instead.
func normalizeRecord(rec gateway.OrderRecord) gateway.OrderRecord {
	if s, ok := rec.Info["symbol"].(string); ok && s != "" {
		rec.Symbol = s
	}
	rec.Info = nil
	rec.Status = ""
	return rec
}
