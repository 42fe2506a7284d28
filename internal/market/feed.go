package market

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// Feed keeps a live last-price cache from the public tick stream. It is
// read-only market data; order and position state never comes from here.
type Feed struct {
	url            string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *zap.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	symbols []string

	priceMu sync.RWMutex
	last    map[string]float64
}

func NewFeed(url string, reconnectDelay, pingInterval time.Duration, log *zap.Logger) *Feed {
	if log == nil {
		log = zap.NewNop()
	}
	return &Feed{
		url:            url,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
		last:           make(map[string]float64),
	}
}

// Last returns the most recent streamed price for symbol.
func (f *Feed) Last(symbol string) (float64, bool) {
	f.priceMu.RLock()
	defer f.priceMu.RUnlock()
	price, ok := f.last[symbol]
	return price, ok
}

func (f *Feed) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		return nil
	}
	conn, _, err := websocket.Dial(ctx, f.url, nil)
	if err != nil {
		return err
	}
	f.conn = conn
	return nil
}

// Subscribe registers symbols for tick updates. Subscriptions are replayed
// after every reconnect.
func (f *Feed) Subscribe(ctx context.Context, symbols ...string) error {
	f.mu.Lock()
	f.symbols = append(f.symbols, symbols...)
	conn := f.conn
	f.mu.Unlock()
	if conn == nil {
		return errors.New("feed not connected")
	}
	return writeJSON(ctx, conn, subscribeMessage(symbols))
}

// Run consumes the stream until ctx is done, reconnecting on read errors.
func (f *Feed) Run(ctx context.Context) error {
	for {
		if err := f.ensureConnected(ctx); err != nil {
			return err
		}
		pingCtx, cancel := context.WithCancel(ctx)
		pingDone := make(chan struct{})
		go func() {
			defer close(pingDone)
			f.pingLoop(pingCtx)
		}()
		err := f.readLoop(ctx)
		cancel()
		<-pingDone
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn("feed read loop ended", zap.Error(err))
			f.resetConn()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(f.reconnectDelay):
			}
			continue
		}
	}
}

func (f *Feed) ensureConnected(ctx context.Context) error {
	if err := f.Connect(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	conn := f.conn
	symbols := append([]string(nil), f.symbols...)
	f.mu.Unlock()
	if len(symbols) == 0 {
		return nil
	}
	return writeJSON(ctx, conn, subscribeMessage(symbols))
}

func (f *Feed) readLoop(ctx context.Context) error {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	if conn == nil {
		return errors.New("feed not connected")
	}
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		f.handleMessage(data)
	}
}

func (f *Feed) handleMessage(data []byte) {
	var payload struct {
		Tick struct {
			Symbol string `json:"symbol"`
			Last   any    `json:"last"`
		} `json:"tick"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		f.log.Debug("feed decode error", zap.Error(err))
		return
	}
	if payload.Tick.Symbol == "" {
		return
	}
	price, ok := feedFloat(payload.Tick.Last)
	if !ok || price <= 0 {
		return
	}
	f.priceMu.Lock()
	f.last[payload.Tick.Symbol] = price
	f.priceMu.Unlock()
}

func (f *Feed) pingLoop(ctx context.Context) {
	f.mu.Lock()
	conn := f.conn
	interval := f.pingInterval
	f.mu.Unlock()
	if conn == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := writeJSON(ctx, conn, pingMessage); err != nil {
				return
			}
		}
	}
}

func (f *Feed) resetConn() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		_ = f.conn.Close(websocket.StatusNormalClosure, "reset")
		f.conn = nil
	}
}

func subscribeMessage(symbols []string) map[string]any {
	return map[string]any{
		"method": "tick.subscribe",
		"params": symbols,
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func feedFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

var pingMessage = map[string]any{"method": "server.ping"}
