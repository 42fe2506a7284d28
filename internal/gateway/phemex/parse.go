package phemex

import (
	"encoding/json"
	"strconv"
	"strings"

	"phemex-trade-client/internal/gateway"
)

func parseMarkets(raw json.RawMessage) ([]gateway.Market, error) {
	var data struct {
		Products []map[string]any `json:"products"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, &gateway.ExchangeError{Op: "load_markets", Message: "unreadable products payload"}
	}
	markets := make([]gateway.Market, 0, len(data.Products))
	for _, entry := range data.Products {
		symbol := stringFromMap(entry, "symbol")
		if symbol == "" {
			continue
		}
		markets = append(markets, gateway.Market{
			Symbol:         symbol,
			Base:           stringFromMap(entry, "baseCurrency"),
			Quote:          stringFromMap(entry, "quoteCurrency", "settleCurrency"),
			TickSize:       floatFromMap(entry, "tickSize"),
			LotSize:        floatFromMap(entry, "lotSize", "qtyStepSize"),
			PricePrecision: intFromMap(entry, "pricePrecision"),
			Swap:           strings.EqualFold(stringFromMap(entry, "type"), "perpetual") || strings.Contains(symbol, ":"),
		})
	}
	return markets, nil
}

func parseBalances(raw json.RawMessage) (map[string]gateway.Balance, error) {
	var data struct {
		Accounts []map[string]any `json:"accounts"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, &gateway.ExchangeError{Op: "fetch_balance", Message: "unreadable balance payload"}
	}
	balances := make(map[string]gateway.Balance, len(data.Accounts))
	for _, entry := range data.Accounts {
		currency := stringFromMap(entry, "currency")
		if currency == "" {
			continue
		}
		free := floatFromMap(entry, "free", "availableBalance")
		used := floatFromMap(entry, "used", "lockedBalance")
		balances[currency] = gateway.Balance{
			Free:  free,
			Used:  used,
			Total: free + used,
		}
	}
	return balances, nil
}

func parseTicker(symbol string, raw json.RawMessage) (gateway.Ticker, error) {
	var entry map[string]any
	if err := json.Unmarshal(raw, &entry); err != nil {
		return gateway.Ticker{}, &gateway.ExchangeError{Op: "fetch_ticker", Message: "unreadable ticker payload"}
	}
	return gateway.Ticker{
		Symbol: symbol,
		Bid:    floatFromMap(entry, "bid", "bidPrice"),
		Ask:    floatFromMap(entry, "ask", "askPrice"),
		Last:   floatFromMap(entry, "last", "lastPrice", "close"),
	}, nil
}

func parseOrderBook(symbol string, raw json.RawMessage) (gateway.OrderBook, error) {
	var data struct {
		Book struct {
			Bids [][]any `json:"bids"`
			Asks [][]any `json:"asks"`
		} `json:"book"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return gateway.OrderBook{}, &gateway.ExchangeError{Op: "fetch_order_book", Message: "unreadable orderbook payload"}
	}
	book := gateway.OrderBook{
		Symbol: symbol,
		Bids:   make([]gateway.BookLevel, 0, len(data.Book.Bids)),
		Asks:   make([]gateway.BookLevel, 0, len(data.Book.Asks)),
	}
	for _, level := range data.Book.Bids {
		if lv, ok := parseLevel(level); ok {
			book.Bids = append(book.Bids, lv)
		}
	}
	for _, level := range data.Book.Asks {
		if lv, ok := parseLevel(level); ok {
			book.Asks = append(book.Asks, lv)
		}
	}
	return book, nil
}

func parseLevel(level []any) (gateway.BookLevel, bool) {
	if len(level) < 2 {
		return gateway.BookLevel{}, false
	}
	price, ok1 := floatFromAny(level[0])
	size, ok2 := floatFromAny(level[1])
	if !ok1 || !ok2 {
		return gateway.BookLevel{}, false
	}
	return gateway.BookLevel{Price: price, Size: size}, true
}

func parseCandles(raw json.RawMessage) ([]gateway.Candle, error) {
	var data struct {
		Rows [][]any `json:"rows"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, &gateway.ExchangeError{Op: "fetch_ohlcv", Message: "unreadable kline payload"}
	}
	candles := make([]gateway.Candle, 0, len(data.Rows))
	for _, row := range data.Rows {
		// Row format: [ts, o, h, l, c, v].
		if len(row) < 6 {
			continue
		}
		ts, ok := floatFromAny(row[0])
		if !ok {
			continue
		}
		open, _ := floatFromAny(row[1])
		high, _ := floatFromAny(row[2])
		low, _ := floatFromAny(row[3])
		closePx, _ := floatFromAny(row[4])
		volume, _ := floatFromAny(row[5])
		candles = append(candles, gateway.Candle{
			Timestamp: int64(ts),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePx,
			Volume:    volume,
		})
	}
	return candles, nil
}

func parseOrders(raw json.RawMessage) ([]gateway.OrderRecord, error) {
	var data struct {
		Rows []map[string]any `json:"rows"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, &gateway.ExchangeError{Op: "fetch_open_orders", Message: "unreadable orders payload"}
	}
	orders := make([]gateway.OrderRecord, 0, len(data.Rows))
	for _, entry := range data.Rows {
		orders = append(orders, orderFromMap(entry))
	}
	return orders, nil
}

func parseOrder(raw json.RawMessage) (gateway.OrderRecord, error) {
	var entry map[string]any
	if err := json.Unmarshal(raw, &entry); err != nil {
		return gateway.OrderRecord{}, &gateway.ExchangeError{Op: "create_order", Message: "unreadable order payload"}
	}
	return orderFromMap(entry), nil
}

func orderFromMap(entry map[string]any) gateway.OrderRecord {
	info, _ := entry["info"].(map[string]any)
	if info == nil {
		info = entry
	}
	return gateway.OrderRecord{
		ID:     stringFromMap(entry, "id", "orderID"),
		Symbol: stringFromMap(entry, "symbol"),
		Type:   strings.ToLower(stringFromMap(entry, "type", "ordType")),
		Side:   strings.ToLower(stringFromMap(entry, "side")),
		Amount: floatFromMap(entry, "amount", "orderQty"),
		Price:  floatFromMap(entry, "price", "priceEp"),
		Status: stringFromMap(entry, "status", "ordStatus"),
		Info:   info,
	}
}

func parsePositions(raw json.RawMessage) ([]gateway.PositionRecord, error) {
	var data struct {
		Positions []map[string]any `json:"positions"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, &gateway.ExchangeError{Op: "fetch_positions", Message: "unreadable positions payload"}
	}
	positions := make([]gateway.PositionRecord, 0, len(data.Positions))
	for _, entry := range data.Positions {
		info, _ := entry["info"].(map[string]any)
		if info == nil {
			info = entry
		}
		side := strings.ToLower(stringFromMap(entry, "side", "posSide"))
		switch side {
		case "buy":
			side = "long"
		case "sell":
			side = "short"
		}
		positions = append(positions, gateway.PositionRecord{
			Symbol:    stringFromMap(entry, "symbol"),
			Side:      side,
			Contracts: floatFromMap(entry, "contracts", "size"),
			Info:      info,
		})
	}
	return positions, nil
}

func stringFromMap(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			switch val := v.(type) {
			case string:
				return val
			case float64:
				return strconv.FormatFloat(val, 'f', -1, 64)
			}
		}
	}
	return ""
}

func floatFromMap(m map[string]any, keys ...string) float64 {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if f, ok := floatFromAny(v); ok {
				return f
			}
		}
	}
	return 0
}

func intFromMap(m map[string]any, keys ...string) int {
	return int(floatFromMap(m, keys...))
}

func floatFromAny(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
