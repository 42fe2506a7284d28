package journal

import (
	"context"
	"testing"
	"time"

	"phemex-trade-client/internal/config"
)

func TestDisabledJournalIsNil(t *testing.T) {
	writer, err := New(config.JournalConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if writer != nil {
		t.Fatalf("disabled journal must be nil")
	}
}

func TestEnabledJournalRequiresDSN(t *testing.T) {
	if _, err := New(config.JournalConfig{Enabled: true}, nil); err == nil {
		t.Fatalf("expected error for missing dsn")
	}
}

func TestNilWriterIsSafe(t *testing.T) {
	var writer *Writer
	writer.Start(context.Background())
	writer.Enqueue(Event{Time: time.Now(), OrderID: "ord-1"})
	if err := writer.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
