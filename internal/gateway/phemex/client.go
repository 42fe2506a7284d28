package phemex

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"phemex-trade-client/internal/gateway"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.phemex.com"

	// Exchange error codes that mean the account cannot cover the order.
	codeInsufficientBalance = 11001
	codeInsufficientMargin  = 11082
)

// Client implements gateway.Gateway against the exchange REST API.
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	http      *http.Client
	log       *zap.Logger
}

func New(baseURL, apiKey, apiSecret string, timeout time.Duration, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		http: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

type envelope struct {
	Code int64           `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) LoadMarkets(ctx context.Context, reload bool) ([]gateway.Market, error) {
	_ = reload // the REST adapter has no metadata cache of its own
	raw, err := c.request(ctx, "load_markets", http.MethodGet, "/public/products", nil, nil)
	if err != nil {
		return nil, err
	}
	return parseMarkets(raw)
}

func (c *Client) FetchBalance(ctx context.Context, params gateway.Params) (map[string]gateway.Balance, error) {
	query := url.Values{}
	if code, ok := params["code"].(string); ok {
		query.Set("currency", code)
	}
	if typ, ok := params["type"].(string); ok {
		query.Set("type", typ)
	}
	raw, err := c.request(ctx, "fetch_balance", http.MethodGet, "/accounts/accountPositions", query, nil)
	if err != nil {
		return nil, err
	}
	return parseBalances(raw)
}

func (c *Client) FetchTicker(ctx context.Context, symbol string) (gateway.Ticker, error) {
	query := url.Values{"symbol": {symbol}}
	raw, err := c.request(ctx, "fetch_ticker", http.MethodGet, "/md/ticker/24hr", query, nil)
	if err != nil {
		return gateway.Ticker{}, err
	}
	return parseTicker(symbol, raw)
}

func (c *Client) FetchOrderBook(ctx context.Context, symbol string) (gateway.OrderBook, error) {
	query := url.Values{"symbol": {symbol}}
	raw, err := c.request(ctx, "fetch_order_book", http.MethodGet, "/md/orderbook", query, nil)
	if err != nil {
		return gateway.OrderBook{}, err
	}
	return parseOrderBook(symbol, raw)
}

func (c *Client) FetchOHLCV(ctx context.Context, symbol, timeframe string, since int64, limit int) ([]gateway.Candle, error) {
	query := url.Values{
		"symbol":     {symbol},
		"resolution": {timeframe},
	}
	if since > 0 {
		query.Set("from", strconv.FormatInt(since, 10))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	raw, err := c.request(ctx, "fetch_ohlcv", http.MethodGet, "/exchange/public/md/kline", query, nil)
	if err != nil {
		return nil, err
	}
	return parseCandles(raw)
}

func (c *Client) CreateOrder(ctx context.Context, req gateway.OrderRequest) (gateway.OrderRecord, error) {
	body := map[string]any{
		"symbol":  req.Symbol,
		"ordType": req.Type,
		"side":    req.Side,
		"orderQty": req.Amount,
	}
	if req.Type == "limit" {
		body["priceEp"] = req.Price
	}
	for k, v := range req.Params {
		if v == nil {
			continue
		}
		body[k] = v
	}
	raw, err := c.request(ctx, "create_order", http.MethodPost, "/orders", nil, body)
	if err != nil {
		return gateway.OrderRecord{}, err
	}
	return parseOrder(raw)
}

func (c *Client) CancelOrder(ctx context.Context, id, symbol string) (gateway.OrderRecord, error) {
	query := url.Values{
		"orderID": {id},
		"symbol":  {symbol},
	}
	raw, err := c.request(ctx, "cancel_order", http.MethodDelete, "/orders/cancel", query, nil)
	if err != nil {
		return gateway.OrderRecord{}, err
	}
	return parseOrder(raw)
}

func (c *Client) FetchOpenOrders(ctx context.Context, symbol string) ([]gateway.OrderRecord, error) {
	query := url.Values{"symbol": {symbol}}
	raw, err := c.request(ctx, "fetch_open_orders", http.MethodGet, "/orders/activeList", query, nil)
	if err != nil {
		return nil, err
	}
	return parseOrders(raw)
}

func (c *Client) FetchPositions(ctx context.Context, symbols []string) ([]gateway.PositionRecord, error) {
	query := url.Values{}
	if len(symbols) > 0 {
		query.Set("symbols", strings.Join(symbols, ","))
	}
	raw, err := c.request(ctx, "fetch_positions", http.MethodGet, "/accounts/positions", query, nil)
	if err != nil {
		return nil, err
	}
	return parsePositions(raw)
}

func (c *Client) SetLeverage(ctx context.Context, amount int, symbol string) (gateway.LeverageResult, error) {
	query := url.Values{
		"symbol":   {symbol},
		"leverage": {strconv.Itoa(amount)},
	}
	raw, err := c.request(ctx, "set_leverage", http.MethodPut, "/positions/leverage", query, nil)
	if err != nil {
		return gateway.LeverageResult{}, err
	}
	var data string
	if err := json.Unmarshal(raw, &data); err != nil {
		// Some deployments answer with an object instead of a bare string.
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil {
			return gateway.LeverageResult{}, &gateway.ExchangeError{Op: "set_leverage", Message: "unreadable leverage response"}
		}
		if s, ok := obj["data"].(string); ok {
			data = s
		}
	}
	return gateway.LeverageResult{Data: data}, nil
}

func (c *Client) request(ctx context.Context, op, method, path string, query url.Values, body map[string]any) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
	}

	reqURL := c.baseURL + path
	rawQuery := ""
	if len(query) > 0 {
		rawQuery = query.Encode()
		reqURL += "?" + rawQuery
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.sign(httpReq, path, rawQuery, payload)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &gateway.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &gateway.NetworkError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &gateway.ExchangeError{Op: op, Code: int64(resp.StatusCode), Message: strings.TrimSpace(string(raw))}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &gateway.ExchangeError{Op: op, Message: fmt.Sprintf("unreadable response: %v", err)}
	}
	if env.Code != 0 {
		return nil, classify(op, env.Code, env.Msg)
	}
	if c.log != nil {
		c.log.Debug("gateway call ok", zap.String("op", op), zap.String("path", path))
	}
	return env.Data, nil
}

func classify(op string, code int64, msg string) error {
	if code == codeInsufficientBalance || code == codeInsufficientMargin ||
		strings.Contains(strings.ToLower(msg), "insufficient") {
		return &gateway.InsufficientFundsError{Op: op, Message: msg}
	}
	return &gateway.ExchangeError{Op: op, Code: code, Message: msg}
}

// sign sets the HMAC request headers. Signature input is path + query +
// expiry + body per the exchange's REST auth scheme.
func (c *Client) sign(req *http.Request, path, rawQuery string, body []byte) {
	if c.apiKey == "" {
		return
	}
	expiry := strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10)
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(path + rawQuery + expiry))
	mac.Write(body)
	req.Header.Set("x-phemex-access-token", c.apiKey)
	req.Header.Set("x-phemex-request-expiry", expiry)
	req.Header.Set("x-phemex-request-signature", hex.EncodeToString(mac.Sum(nil)))
}
