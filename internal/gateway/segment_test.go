package gateway

import (
	"errors"
	"strings"
	"testing"
)

func TestParseSegment(t *testing.T) {
	for code, want := range map[string]Segment{"spot": Spot, "future": Future} {
		got, err := ParseSegment(code)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", code, err)
		}
		if got != want {
			t.Fatalf("%s: got %v want %v", code, got, want)
		}
		if got.String() != code {
			t.Fatalf("round trip: %v -> %q", got, got.String())
		}
	}
}

func TestParseSegmentInvalid(t *testing.T) {
	_, err := ParseSegment("margin")
	var segErr *InvalidSegmentError
	if !errors.As(err, &segErr) {
		t.Fatalf("expected InvalidSegmentError, got %v", err)
	}
	if segErr.Code != "margin" {
		t.Fatalf("expected offending code in error, got %q", segErr.Code)
	}
	// Operators are expected to consult the valid set from the message.
	for _, code := range SegmentCodes {
		if !strings.Contains(err.Error(), code) {
			t.Fatalf("error %q does not name valid code %q", err.Error(), code)
		}
	}
}
