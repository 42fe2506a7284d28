package trade

import (
	"context"
	"errors"
	"testing"

	"phemex-trade-client/internal/gateway"
)

func TestPartialCloseUntilFlat(t *testing.T) {
	fake := &fakeGateway{
		markets:         futureMarkets(),
		reducePositions: true,
		positions: []gateway.PositionRecord{
			{Symbol: "BTCUSD", Side: "long", Contracts: 2, Info: map[string]any{"symbol": "BTCUSD"}},
		},
	}
	client := newTestClient(fake)
	defer client.Close()
	ctx := context.Background()

	pos, err := client.Position(ctx, "BTCUSD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos == nil {
		t.Fatalf("expected open position")
	}
	if pos.Side() != Long || pos.Contracts() != 2 {
		t.Fatalf("unexpected position: %s %v", pos.Side(), pos.Contracts())
	}

	if err := pos.Close(ctx, 1, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos.Closed() {
		t.Fatalf("position with contracts remaining must stay open")
	}
	if pos.Contracts() != 1 {
		t.Fatalf("expected reconciled contracts 1, got %v", pos.Contracts())
	}

	if err := pos.Close(ctx, 1, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pos.Closed() {
		t.Fatalf("expected closed after contracts reached zero")
	}

	// A long closes through offsetting market sells.
	for _, req := range fake.requests {
		if req.Side != "sell" || req.Type != "market" {
			t.Fatalf("expected market sell offsets, got %+v", req)
		}
	}
}

func TestCloseAllOverridesAmount(t *testing.T) {
	fake := &fakeGateway{
		markets:         futureMarkets(),
		reducePositions: true,
		positions: []gateway.PositionRecord{
			{Symbol: "BTCUSD", Side: "short", Contracts: 3, Info: map[string]any{"symbol": "BTCUSD"}},
		},
	}
	client := newTestClient(fake)
	defer client.Close()
	ctx := context.Background()

	pos, err := client.Position(ctx, "BTCUSD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := pos.Close(ctx, 1, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pos.Closed() {
		t.Fatalf("expected closed")
	}

	req := fake.lastRequest()
	if req.Side != "buy" || req.Amount != 3 {
		t.Fatalf("short close(all) must buy back the full size, got %+v", req)
	}
}

func TestClosedIsPureRead(t *testing.T) {
	fake := &fakeGateway{
		markets:         futureMarkets(),
		reducePositions: true,
		positions: []gateway.PositionRecord{
			{Symbol: "BTCUSD", Side: "long", Contracts: 1, Info: map[string]any{"symbol": "BTCUSD"}},
		},
	}
	client := newTestClient(fake)
	defer client.Close()
	ctx := context.Background()

	pos, err := client.Position(ctx, "BTCUSD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := pos.Close(ctx, 1, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fake.mu.Lock()
	fetches := fake.positionFetches
	fake.mu.Unlock()
	_ = pos.Closed()
	_ = pos.Closed()
	fake.mu.Lock()
	after := fake.positionFetches
	fake.mu.Unlock()
	if fetches != after {
		t.Fatalf("Closed must not hit the gateway, fetches went %d -> %d", fetches, after)
	}
}

func TestPositionQueryUnknownField(t *testing.T) {
	fake := &fakeGateway{
		markets: futureMarkets(),
		positions: []gateway.PositionRecord{
			{Symbol: "BTCUSD", Side: "long", Contracts: 1, Info: map[string]any{"symbol": "BTCUSD"}},
		},
	}
	client := newTestClient(fake)
	defer client.Close()

	pos, err := client.Position(context.Background(), "BTCUSD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, err := pos.Query("contracts"); err != nil || got != 1.0 {
		t.Fatalf("query contracts: got %v err %v", got, err)
	}
	_, err = pos.Query("entryPrice")
	var reqErr *InvalidRequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected InvalidRequestError, got %v", err)
	}
}
