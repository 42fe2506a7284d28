package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"phemex-trade-client/internal/gateway"
)

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func TestWorkerReloadPrecedesEveryTask(t *testing.T) {
	log := &callLog{}
	worker := New(func(ctx context.Context) error {
		log.add("reload")
		return nil
	}, nil, nil)
	defer worker.Stop()
	ctx := context.Background()

	for _, name := range []string{"A", "B"} {
		name := name
		if err := worker.Do(ctx, name, func(ctx context.Context) error {
			log.add(name)
			return nil
		}); err != nil {
			t.Fatalf("task %s: %v", name, err)
		}
	}

	want := []string{"reload", "A", "reload", "B"}
	got := log.snapshot()
	if len(got) != len(want) {
		t.Fatalf("got calls %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("call %d: got %q want %q (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestWorkerReloadFailureSkipsTask(t *testing.T) {
	reloadErr := &gateway.NetworkError{Op: "load_markets", Err: errors.New("dial timeout")}
	worker := New(func(ctx context.Context) error {
		return reloadErr
	}, nil, nil)
	defer worker.Stop()

	ran := false
	err := worker.Do(context.Background(), "task", func(ctx context.Context) error {
		ran = true
		return nil
	})
	if !errors.Is(err, reloadErr) {
		t.Fatalf("expected reload error, got %v", err)
	}
	if ran {
		t.Fatalf("task must not run when the reload fails")
	}
}

func TestWorkerPreservesErrorClassification(t *testing.T) {
	worker := New(nil, nil, nil)
	defer worker.Stop()
	ctx := context.Background()

	exchangeErr := &gateway.ExchangeError{Op: "create_order", Code: 10003, Message: "rejected"}
	err := worker.Do(ctx, "create_order", func(ctx context.Context) error {
		return exchangeErr
	})
	var ee *gateway.ExchangeError
	if !errors.As(err, &ee) || ee.Code != 10003 {
		t.Fatalf("exchange classification lost: %v", err)
	}

	networkErr := &gateway.NetworkError{Op: "fetch_ticker", Err: errors.New("conn reset")}
	err = worker.Do(ctx, "fetch_ticker", func(ctx context.Context) error {
		return networkErr
	})
	if !gateway.IsNetwork(err) {
		t.Fatalf("network classification lost: %v", err)
	}
}

func TestWorkerStopped(t *testing.T) {
	worker := New(nil, nil, nil)
	worker.Start()
	worker.Stop()

	err := worker.Do(context.Background(), "task", func(ctx context.Context) error {
		return nil
	})
	if !errors.Is(err, ErrWorkerStopped) {
		t.Fatalf("expected ErrWorkerStopped, got %v", err)
	}
}
