package trade

import (
	"fmt"
	"sort"
	"strings"
)

// InvalidRequestError reports a Query for a field the snapshot never
// carried. It names the populated fields to aid debugging.
type InvalidRequestError struct {
	Field string
	Valid []string
}

func (e *InvalidRequestError) Error() string {
	valid := append([]string(nil), e.Valid...)
	sort.Strings(valid)
	return fmt.Sprintf("invalid request %q (populated fields: %s)", e.Field, strings.Join(valid, ", "))
}

// OrderTypeError reports a mutating operation on a market order. Market
// orders are terminal immediately after creation; only limit orders can be
// edited, canceled, retried or waited on.
type OrderTypeError struct {
	Op   string
	Type string
}

func (e *OrderTypeError) Error() string {
	return fmt.Sprintf("%s: wrong order type %q (only limit orders can be mutated)", e.Op, e.Type)
}

// CancellationError reports a cancel that found no matching order on the
// exchange.
type CancellationError struct {
	ID     string
	Symbol string
	Err    error
}

func (e *CancellationError) Error() string {
	return fmt.Sprintf("cancel %s %s: no matching order: %v", e.Symbol, e.ID, e.Err)
}

func (e *CancellationError) Unwrap() error { return e.Err }

// InvalidPositionError reports an unknown position direction.
type InvalidPositionError struct {
	Pos string
}

func (e *InvalidPositionError) Error() string {
	return fmt.Sprintf("invalid position %q (valid: long, short)", e.Pos)
}
