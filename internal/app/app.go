package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"phemex-trade-client/internal/config"
	"phemex-trade-client/internal/gateway/phemex"
	"phemex-trade-client/internal/journal"
	"phemex-trade-client/internal/market"
	"phemex-trade-client/internal/metrics"
	"phemex-trade-client/internal/proxy"
	"phemex-trade-client/internal/state"
	"phemex-trade-client/internal/state/sqlite"
	"phemex-trade-client/internal/trade"

	"go.uber.org/zap"
)

// App wires the REST gateway, the market and trading clients, the price
// feed, persistence and metrics into one runnable unit. Embedders that only
// want the client surface take Proxy() and drive it themselves.
type App struct {
	cfg *config.Config
	log *zap.Logger

	proxy     *proxy.Proxy
	feed      *market.Feed
	store     *sqlite.Store
	snapshots *state.OrderSnapshots
	journal   *journal.Writer
	prom      *metrics.Prometheus
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	apiKey := strings.TrimSpace(os.Getenv("PHEMEX_API_KEY"))
	apiSecret := strings.TrimSpace(os.Getenv("PHEMEX_API_SECRET"))
	if apiKey == "" || apiSecret == "" {
		return nil, errors.New("PHEMEX_API_KEY and PHEMEX_API_SECRET are required")
	}

	gw := phemex.New(cfg.REST.BaseURL, apiKey, apiSecret, cfg.REST.Timeout, log)
	prom := metrics.NewPrometheus()

	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return nil, err
	}
	snapshots := state.NewOrderSnapshots(store)

	writer, err := journal.New(cfg.Journal, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	feed := market.NewFeed(cfg.Feed.URL, cfg.Feed.ReconnectDelay, cfg.Feed.PingInterval, log)

	marketClient := market.NewClient(gw, log, prom.Metrics)
	marketClient.AttachFeed(feed)

	tradeClient := trade.NewClient(gw, log, prom.Metrics)
	tradeClient.AttachSnapshots(snapshots)
	tradeClient.AttachJournal(writer)

	return &App{
		cfg:       cfg,
		log:       log,
		proxy:     proxy.New(marketClient, tradeClient, log, cfg.Log.Level == "debug"),
		feed:      feed,
		store:     store,
		snapshots: snapshots,
		journal:   writer,
		prom:      prom,
	}, nil
}

// Proxy returns the combined market/trading surface.
func (a *App) Proxy() *proxy.Proxy {
	return a.proxy
}

// Run starts the background pieces (journal, metrics endpoint, price feed),
// reports any order snapshots left pending by a previous run, then blocks
// until ctx is done and tears everything down.
func (a *App) Run(ctx context.Context) error {
	a.journal.Start(ctx)

	var metricsServer *http.Server
	if a.cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.prom.Handler())
		metricsServer = &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux}
		go func() {
			a.log.Info("metrics listening", zap.String("addr", a.cfg.Metrics.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		if err := a.feed.Connect(ctx); err != nil {
			a.log.Warn("feed connect failed", zap.Error(err))
			return
		}
		if len(a.cfg.Feed.Symbols) > 0 {
			if err := a.feed.Subscribe(ctx, a.cfg.Feed.Symbols...); err != nil {
				a.log.Warn("feed subscribe failed", zap.Error(err))
			}
		}
		if err := a.feed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("feed stopped", zap.Error(err))
		}
	}()

	a.reportPending(ctx)

	<-ctx.Done()

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsServer.Shutdown(shutdownCtx)
		cancel()
	}
	<-feedDone
	a.proxy.Close()
	if err := a.journal.Close(); err != nil {
		a.log.Warn("journal close failed", zap.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("state store close failed", zap.Error(err))
	}
	return ctx.Err()
}

// reportPending surfaces resting orders persisted by a previous process so an
// operator knows what is still working on the exchange.
func (a *App) reportPending(ctx context.Context) {
	pending, err := a.snapshots.Pending(ctx)
	if err != nil {
		a.log.Warn("pending snapshot scan failed", zap.Error(err))
		return
	}
	for _, snap := range pending {
		a.log.Info("resting order from previous run",
			zap.String("id", snap.ID),
			zap.String("symbol", snap.Symbol),
			zap.String("side", snap.Side),
			zap.Float64("amount", snap.Amount),
			zap.Float64("price", snap.Price),
		)
	}
}
