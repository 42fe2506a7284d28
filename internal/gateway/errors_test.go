package gateway

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassificationPredicates(t *testing.T) {
	netErr := &NetworkError{Op: "fetch_ticker", Err: errors.New("timeout")}
	if !IsNetwork(netErr) || IsExchange(netErr) {
		t.Fatalf("network error misclassified")
	}

	exErr := &ExchangeError{Op: "create_order", Code: 10003, Message: "rejected"}
	if !IsExchange(exErr) || IsNetwork(exErr) {
		t.Fatalf("exchange error misclassified")
	}

	fundsErr := &InsufficientFundsError{Op: "create_order", Message: "insufficient balance"}
	if !IsExchange(fundsErr) {
		t.Fatalf("insufficient funds is an exchange rejection")
	}
	if !errors.Is(fundsErr, ErrInsufficientFunds) {
		t.Fatalf("sentinel not reachable through Unwrap")
	}
}

func TestClassificationSurvivesWrapping(t *testing.T) {
	inner := &ExchangeError{Op: "cancel_order", Code: 10002, Message: "not found"}
	wrapped := fmt.Errorf("cancel: %w", inner)
	if !IsExchange(wrapped) {
		t.Fatalf("classification lost through wrapping: %v", wrapped)
	}

	funds := fmt.Errorf("retry: %w", &InsufficientFundsError{Op: "create_order", Message: "x"})
	if !errors.Is(funds, ErrInsufficientFunds) {
		t.Fatalf("sentinel lost through wrapping: %v", funds)
	}
}
