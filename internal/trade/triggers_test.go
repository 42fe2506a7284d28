package trade

import (
	"errors"
	"testing"
)

func TestTriggerPrices(t *testing.T) {
	cases := []struct {
		name    string
		fn      func(price, percent float64, pos Direction) (float64, error)
		price   float64
		percent float64
		pos     Direction
		want    float64
	}{
		{"stop loss long", StopLoss, 9000, 1, Long, 8910},
		{"stop loss short", StopLoss, 9000, 1, Short, 9090},
		{"take profit long", TakeProfit, 9000, 2, Long, 9180},
		{"take profit short", TakeProfit, 9000, 2, Short, 8820},
	}
	for _, tc := range cases {
		got, err := tc.fn(tc.price, tc.percent, tc.pos)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestTriggerInvalidPosition(t *testing.T) {
	var posErr *InvalidPositionError
	if _, err := StopLoss(9000, 1, "sideways"); !errors.As(err, &posErr) {
		t.Fatalf("expected InvalidPositionError, got %v", err)
	}
	if _, err := TakeProfit(9000, 1, ""); !errors.As(err, &posErr) {
		t.Fatalf("expected InvalidPositionError, got %v", err)
	}
}
