package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "order:1"); ok || err != nil {
		t.Fatalf("empty store must miss, got %v %v", ok, err)
	}

	if err := store.Set(ctx, "order:1", []byte("payload")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	val, ok, err := store.Get(ctx, "order:1")
	if err != nil || !ok {
		t.Fatalf("get failed: %v %v", ok, err)
	}
	if string(val) != "payload" {
		t.Fatalf("got %q", val)
	}

	// Upsert overwrites.
	if err := store.Set(ctx, "order:1", []byte("updated")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	val, _, _ = store.Get(ctx, "order:1")
	if string(val) != "updated" {
		t.Fatalf("got %q after upsert", val)
	}

	if err := store.Delete(ctx, "order:1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "order:1"); ok {
		t.Fatalf("key survived delete")
	}
}

func TestStoreListByPrefix(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	entries := map[string]string{
		"order:1": "a",
		"order:2": "b",
		"other:1": "c",
	}
	for k, v := range entries {
		if err := store.Set(ctx, k, []byte(v)); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}

	listed, err := store.List(ctx, "order:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 entries, got %v", listed)
	}
	if string(listed["order:1"]) != "a" || string(listed["order:2"]) != "b" {
		t.Fatalf("unexpected listing: %v", listed)
	}
}
