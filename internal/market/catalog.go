package market

import (
	"sort"
	"sync"
	"time"

	"phemex-trade-client/internal/gateway"
)

// defaultTickSize backstops symbols whose metadata omits a tick size, so a
// repricing nudge is never zero.
const defaultTickSize = 0.01

// Catalog is the shared instrument metadata cache. The dispatch worker
// refreshes it before every gateway call; clients read tick sizes and
// symbol listings from it without touching the network.
type Catalog struct {
	mu          sync.RWMutex
	markets     map[string]gateway.Market
	lastRefresh time.Time
}

func NewCatalog() *Catalog {
	return &Catalog{markets: make(map[string]gateway.Market)}
}

func (c *Catalog) Update(markets []gateway.Market) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range markets {
		c.markets[m.Symbol] = m
	}
	c.lastRefresh = time.Now().UTC()
}

func (c *Catalog) Get(symbol string) (gateway.Market, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.markets[symbol]
	return m, ok
}

// TickSize returns the price increment for symbol, falling back to a safe
// default when the instrument is unknown or reports no tick size.
func (c *Catalog) TickSize(symbol string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if m, ok := c.markets[symbol]; ok && m.TickSize > 0 {
		return m.TickSize
	}
	return defaultTickSize
}

// Symbols lists the known instruments for one segment, sorted.
func (c *Catalog) Symbols(segment gateway.Segment) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	for symbol, m := range c.markets {
		if m.Swap == (segment == gateway.Future) {
			out = append(out, symbol)
		}
	}
	sort.Strings(out)
	return out
}

// Currencies lists every base and quote currency seen in the loaded markets.
func (c *Catalog) Currencies() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, m := range c.markets {
		if m.Base != "" {
			seen[m.Base] = struct{}{}
		}
		if m.Quote != "" {
			seen[m.Quote] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for currency := range seen {
		out = append(out, currency)
	}
	sort.Strings(out)
	return out
}

func (c *Catalog) LastRefresh() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefresh
}
