package gateway

import "context"

// Gateway is the exchange boundary. It is the only layer that talks to the
// network; everything above it works on the records returned here.
type Gateway interface {
	// LoadMarkets refreshes instrument metadata. Callers that are about to
	// place or reprice an order must call it with reload=true first, since
	// tick size and lot size can change between calls.
	LoadMarkets(ctx context.Context, reload bool) ([]Market, error)

	FetchBalance(ctx context.Context, params Params) (map[string]Balance, error)
	FetchTicker(ctx context.Context, symbol string) (Ticker, error)
	FetchOrderBook(ctx context.Context, symbol string) (OrderBook, error)
	FetchOHLCV(ctx context.Context, symbol, timeframe string, since int64, limit int) ([]Candle, error)

	CreateOrder(ctx context.Context, req OrderRequest) (OrderRecord, error)
	CancelOrder(ctx context.Context, id, symbol string) (OrderRecord, error)
	FetchOpenOrders(ctx context.Context, symbol string) ([]OrderRecord, error)
	FetchPositions(ctx context.Context, symbols []string) ([]PositionRecord, error)
	SetLeverage(ctx context.Context, amount int, symbol string) (LeverageResult, error)
}

// Params carries exchange-specific request parameters that are passed through
// verbatim (margin type, trigger basis, time in force, ...).
type Params map[string]any

// Market describes one tradable instrument.
type Market struct {
	Symbol         string
	Base           string
	Quote          string
	TickSize       float64
	LotSize        float64
	PricePrecision int
	Swap           bool
}

type Balance struct {
	Free  float64
	Used  float64
	Total float64
}

type Ticker struct {
	Symbol string
	Bid    float64
	Ask    float64
	Last   float64
}

// BookLevel is one price level: [price, size].
type BookLevel struct {
	Price float64
	Size  float64
}

type OrderBook struct {
	Symbol string
	Bids   []BookLevel
	Asks   []BookLevel
}

type Candle struct {
	Timestamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

type OrderRequest struct {
	Symbol string
	Type   string // "market" or "limit"
	Side   string // "buy" or "sell"
	Amount float64
	Price  float64 // ignored for market orders
	Params Params
}

// OrderRecord is the raw order payload as reported by the exchange. Info
// echoes the original request; the trading layer strips it after extracting
// the exchange-native symbol, and tracks lifecycle state locally instead of
// trusting Status.
type OrderRecord struct {
	ID     string
	Symbol string
	Type   string
	Side   string
	Amount float64
	Price  float64
	Status string
	Info   map[string]any
}

type PositionRecord struct {
	Symbol    string
	Side      string // "long" or "short"
	Contracts float64
	Info      map[string]any
}

type LeverageResult struct {
	Data string
}

// OK reports whether the exchange acknowledged the leverage change.
func (r LeverageResult) OK() bool {
	return r.Data == "OK"
}
