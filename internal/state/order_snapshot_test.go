package state

import (
	"context"
	"sync"
	"testing"
	"time"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte)}
}

func (m *memoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	return val, ok, nil
}

func (m *memoryStore) Set(ctx context.Context, key string, value []byte) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryStore) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]byte)
	for k, v := range m.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out[k] = v
		}
	}
	return out, nil
}

func (m *memoryStore) Close() error { return nil }

func TestOrderSnapshotRoundTrip(t *testing.T) {
	snapshots := NewOrderSnapshots(newMemoryStore())
	ctx := context.Background()

	snap := OrderSnapshot{
		ID:        "ord-1",
		Symbol:    "BTCUSD",
		Type:      "limit",
		Side:      "buy",
		Amount:    2,
		Price:     9000,
		Segment:   "future",
		State:     "pending",
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := snapshots.Save(ctx, snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, ok, err := snapshots.Load(ctx, "ord-1")
	if err != nil || !ok {
		t.Fatalf("load failed: %v %v", ok, err)
	}
	if !loaded.UpdatedAt.Equal(snap.UpdatedAt) {
		t.Fatalf("timestamp mismatch: got %v want %v", loaded.UpdatedAt, snap.UpdatedAt)
	}
	loaded.UpdatedAt = snap.UpdatedAt
	if loaded != snap {
		t.Fatalf("round trip mismatch: got %+v want %+v", loaded, snap)
	}

	if err := snapshots.Delete(ctx, "ord-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := snapshots.Load(ctx, "ord-1"); ok {
		t.Fatalf("snapshot survived delete")
	}
}

func TestPendingFiltersTerminalStates(t *testing.T) {
	snapshots := NewOrderSnapshots(newMemoryStore())
	ctx := context.Background()

	for _, snap := range []OrderSnapshot{
		{ID: "ord-1", Symbol: "BTCUSD", State: "pending"},
		{ID: "ord-2", Symbol: "BTCUSD", State: "closed"},
		{ID: "ord-3", Symbol: "ETHUSD", State: "canceled"},
		{ID: "ord-4", Symbol: "ETHUSD", State: "pending"},
	} {
		if err := snapshots.Save(ctx, snap); err != nil {
			t.Fatalf("save %s: %v", snap.ID, err)
		}
	}

	pending, err := snapshots.Pending(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending snapshots, got %d", len(pending))
	}
	for _, snap := range pending {
		if snap.State != "pending" {
			t.Fatalf("terminal snapshot leaked: %+v", snap)
		}
	}
}

func TestNilSnapshotsAreSafe(t *testing.T) {
	var snapshots *OrderSnapshots
	ctx := context.Background()

	if err := snapshots.Save(ctx, OrderSnapshot{ID: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, err := snapshots.Load(ctx, "x"); ok || err != nil {
		t.Fatalf("nil store must report absence, got %v %v", ok, err)
	}
	if err := snapshots.Delete(ctx, "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pending, err := snapshots.Pending(ctx); pending != nil || err != nil {
		t.Fatalf("nil store must report nothing pending, got %v %v", pending, err)
	}
}
