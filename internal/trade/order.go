package trade

import (
	"context"
	"errors"
	"time"

	"phemex-trade-client/internal/gateway"
	"phemex-trade-client/internal/journal"
	"phemex-trade-client/internal/state"

	"go.uber.org/zap"
)

// OrderState is the locally tracked lifecycle of one submitted order. It can
// diverge from exchange-side truth between reconciliation reads; Pending and
// Closed are the reads that bring it back in line.
type OrderState int

const (
	OrderUninitialized OrderState = iota
	OrderPending
	OrderCanceled
	OrderClosed
)

func (s OrderState) String() string {
	switch s {
	case OrderPending:
		return "pending"
	case OrderCanceled:
		return "canceled"
	case OrderClosed:
		return "closed"
	default:
		return "uninitialized"
	}
}

// AttemptResult is the outcome of one Retry pass. Expected races (the order
// filled while we were repricing) are results, not errors.
type AttemptResult int

const (
	// AttemptFilled: the order is gone from the book, or a resubmission was
	// rejected for insufficient funds, which on a post-only flow means the
	// original fill already consumed the balance.
	AttemptFilled AttemptResult = iota
	// AttemptPlaced: the order is resting on the book.
	AttemptPlaced
	// AttemptRejected: a failure that is not one of the expected races.
	AttemptRejected
)

// Snapshot is a point-in-time copy of an order's (or position's) normalized
// attributes. Reconciliation reads return it so that the refresh a boolean
// check performs is visible in the interface instead of hidden in the handle.
type Snapshot map[string]any

// Order tracks the lifecycle of one submitted order: pending until it fills,
// is canceled, or is replaced through Edit. Market orders are terminal the
// moment they are created; every mutating operation on them fails with
// OrderTypeError.
type Order struct {
	client   *Client
	segment  gateway.Segment
	state    OrderState
	snapshot map[string]any
}

func newOrder(client *Client, segment gateway.Segment, rec gateway.OrderRecord) *Order {
	o := &Order{client: client, segment: segment, state: OrderPending, snapshot: map[string]any{}}
	o.adopt(rec)
	return o
}

func (o *Order) ID() string               { s, _ := o.snapshot["id"].(string); return s }
func (o *Order) Symbol() string           { s, _ := o.snapshot["symbol"].(string); return s }
func (o *Order) Type() string             { s, _ := o.snapshot["type"].(string); return s }
func (o *Order) Side() string             { s, _ := o.snapshot["side"].(string); return s }
func (o *Order) Amount() float64          { f, _ := o.snapshot["amount"].(float64); return f }
func (o *Order) Price() float64           { f, _ := o.snapshot["price"].(float64); return f }
func (o *Order) Segment() gateway.Segment { return o.segment }
func (o *Order) State() OrderState        { return o.state }

// Query returns one stored attribute by name. Asking for an attribute the
// snapshot never carried is a caller bug; the error names the populated set.
func (o *Order) Query(field string) (any, error) {
	if v, ok := o.snapshot[field]; ok {
		return v, nil
	}
	return nil, &InvalidRequestError{Field: field, Valid: snapshotFields(o.snapshot)}
}

// Pending re-fetches the open orders for the symbol. If the order is still
// resting its snapshot is refreshed from the live record, which is the only
// way local data learns about exchange-side corrections short of Edit.
func (o *Order) Pending(ctx context.Context) (bool, Snapshot, error) {
	if o.state == OrderCanceled || o.state == OrderClosed {
		return false, o.view(), nil
	}
	open, err := o.client.openOrders(ctx, o.Symbol())
	if err != nil {
		o.client.log.Warn("pending check failed", zap.String("id", o.ID()), zap.Error(err))
		return false, o.view(), err
	}
	if rec, ok := findOrder(open, o.ID()); ok {
		o.adopt(rec)
		o.state = OrderPending
		o.persist(ctx)
		return true, o.view(), nil
	}
	return false, o.view(), nil
}

// Closed re-fetches the open orders and reports whether this order is gone
// from the book. Gone means filled or externally canceled; the exchange does
// not let this read tell the two apart, so both land in the closed state.
// A handle already canceled locally stays canceled.
func (o *Order) Closed(ctx context.Context) (bool, Snapshot, error) {
	switch o.state {
	case OrderCanceled:
		return false, o.view(), nil
	case OrderClosed:
		return true, o.view(), nil
	}
	open, err := o.client.openOrders(ctx, o.Symbol())
	if err != nil {
		o.client.log.Warn("closed check failed", zap.String("id", o.ID()), zap.Error(err))
		return false, o.view(), err
	}
	if _, ok := findOrder(open, o.ID()); ok {
		return false, o.view(), nil
	}
	o.state = OrderClosed
	o.persist(ctx)
	return true, o.view(), nil
}

// Cancel cancels the resting order. On failure the handle keeps its previous
// state so the caller can inspect and retry or abandon.
func (o *Order) Cancel(ctx context.Context) error {
	if o.Type() == "market" {
		return &OrderTypeError{Op: "cancel", Type: o.Type()}
	}
	rec, err := o.client.Cancel(ctx, o.ID(), o.Symbol())
	if err != nil {
		return err
	}
	if rec.ID != "" {
		o.adopt(rec)
	}
	o.state = OrderCanceled
	o.persist(ctx)
	return nil
}

// Edit replaces the order: cancel the resting one if it is still pending,
// then resubmit at the new amount and price. The new price is nudged one tick
// against the order's own side so a post-only resubmission is not rejected
// for crossing. Stop-loss/take-profit percentages are recomputed against the
// new price. On success the snapshot is swapped for the new order's, so the
// identifier changes; on failure the pre-edit snapshot is kept, stale.
func (o *Order) Edit(ctx context.Context, amount, price, stopLossPct, takeProfitPct float64) error {
	if o.Type() == "market" {
		return &OrderTypeError{Op: "edit", Type: o.Type()}
	}
	if amount <= 0 {
		amount = o.Amount()
	}
	tick := o.client.catalog.TickSize(o.Symbol())
	switch o.Side() {
	case "buy":
		price -= tick
	case "sell":
		price += tick
	}

	pending, _, err := o.Pending(ctx)
	if err != nil {
		return err
	}
	oldID := o.ID()
	if pending {
		if _, err := o.client.Cancel(ctx, oldID, o.Symbol()); err != nil {
			return err
		}
	}

	replacement, err := o.resubmit(ctx, amount, price, stopLossPct, takeProfitPct)
	if err != nil {
		return err
	}
	if oldID != "" && oldID != replacement.ID() {
		if err := o.client.snapshots.Delete(ctx, oldID); err != nil {
			o.client.log.Warn("order snapshot delete failed", zap.String("id", oldID), zap.Error(err))
		}
	}
	o.snapshot = replacement.snapshot
	o.state = replacement.state
	return nil
}

func (o *Order) resubmit(ctx context.Context, amount, price, stopLossPct, takeProfitPct float64) (*Order, error) {
	switch {
	case o.segment == gateway.Future && o.Side() == "buy":
		return o.client.Long(ctx, o.Symbol(), "limit", amount, price, stopLossPct, takeProfitPct, nil)
	case o.segment == gateway.Future:
		return o.client.Short(ctx, o.Symbol(), "limit", amount, price, stopLossPct, takeProfitPct, nil)
	case o.Side() == "buy":
		return o.client.Buy(ctx, gateway.Spot, o.Symbol(), "limit", amount, price, nil)
	default:
		return o.client.Sell(ctx, gateway.Spot, o.Symbol(), "limit", amount, price, nil)
	}
}

// Retry drives the order back onto the book until it is resting or gone.
// While the order is neither pending nor closed it is replaced at the given
// price, or at the current best ask when price is zero. An insufficient-funds
// rejection is the expected race with a fill elsewhere and counts as filled;
// every other failure propagates.
func (o *Order) Retry(ctx context.Context, price, stopLossPct, takeProfitPct float64) (AttemptResult, error) {
	if o.Type() == "market" {
		return AttemptRejected, &OrderTypeError{Op: "retry", Type: o.Type()}
	}
	for {
		pending, _, err := o.Pending(ctx)
		if err != nil {
			return AttemptRejected, err
		}
		if pending {
			return AttemptPlaced, nil
		}
		closed, _, err := o.Closed(ctx)
		if err != nil {
			return AttemptRejected, err
		}
		if closed {
			return AttemptFilled, nil
		}

		target := price
		if target == 0 {
			target, err = o.client.ask(ctx, o.Symbol())
			if err != nil {
				return AttemptRejected, err
			}
		}
		o.client.meter.OrderRetries.Inc()
		err = o.Edit(ctx, o.Amount(), target, stopLossPct, takeProfitPct)
		switch {
		case err == nil:
			// Resting again; the next pass confirms via Pending.
		case errors.Is(err, gateway.ErrInsufficientFunds):
			o.state = OrderClosed
			o.persist(ctx)
			return AttemptFilled, nil
		default:
			return AttemptRejected, err
		}
	}
}

// CloseOptions bounds the Close convergence loop.
type CloseOptions struct {
	// Retry replaces the order at Price (or the live ask) on every pass where
	// it has fallen off the book without filling.
	Retry bool
	// Wait is the fixed sleep between passes.
	Wait time.Duration
	// Tries is the number of passes; the loop costs at most Tries*Wait.
	Tries int
	// Price is the retry price; zero means reprice at the live ask.
	Price         float64
	StopLossPct   float64
	TakeProfitPct float64
}

// Close blocks until the order fills or the attempt budget runs out, then
// force-cancels whatever is still resting. It trades wall-clock time for
// fill certainty and reports whether the order ended closed.
func (o *Order) Close(ctx context.Context, opts CloseOptions) (bool, error) {
	if o.Type() == "market" {
		return false, &OrderTypeError{Op: "close", Type: o.Type()}
	}
	tries := opts.Tries
	if tries < 1 {
		tries = 1
	}
	for i := 0; i < tries; i++ {
		closed, _, err := o.Closed(ctx)
		if err != nil {
			return false, err
		}
		if closed {
			return true, nil
		}
		if opts.Retry {
			result, err := o.Retry(ctx, opts.Price, opts.StopLossPct, opts.TakeProfitPct)
			if err != nil {
				return false, err
			}
			if result == AttemptFilled {
				return true, nil
			}
		}
		if err := sleepCtx(ctx, opts.Wait); err != nil {
			return false, err
		}
	}
	closed, _, err := o.Closed(ctx)
	if err != nil {
		return false, err
	}
	if closed {
		return true, nil
	}
	if o.state == OrderPending {
		if err := o.Cancel(ctx); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (o *Order) adopt(rec gateway.OrderRecord) {
	rec = normalizeRecord(rec)
	o.snapshot["id"] = rec.ID
	o.snapshot["symbol"] = rec.Symbol
	o.snapshot["type"] = rec.Type
	o.snapshot["side"] = rec.Side
	o.snapshot["amount"] = rec.Amount
	o.snapshot["price"] = rec.Price
}

func (o *Order) view() Snapshot {
	out := make(Snapshot, len(o.snapshot))
	for k, v := range o.snapshot {
		out[k] = v
	}
	return out
}

// persist writes the current snapshot to the state store and journals the
// transition. Both sinks are optional and best-effort.
func (o *Order) persist(ctx context.Context) {
	now := time.Now().UTC()
	err := o.client.snapshots.Save(ctx, state.OrderSnapshot{
		ID:        o.ID(),
		Symbol:    o.Symbol(),
		Type:      o.Type(),
		Side:      o.Side(),
		Amount:    o.Amount(),
		Price:     o.Price(),
		Segment:   o.segment.String(),
		State:     o.state.String(),
		UpdatedAt: now,
	})
	if err != nil {
		o.client.log.Warn("order snapshot save failed", zap.String("id", o.ID()), zap.Error(err))
	}
	o.client.journal.Enqueue(journal.Event{
		Time:    now,
		OrderID: o.ID(),
		Symbol:  o.Symbol(),
		Side:    o.Side(),
		Type:    o.Type(),
		Segment: o.segment.String(),
		State:   o.state.String(),
		Amount:  o.Amount(),
		Price:   o.Price(),
	})
}

func findOrder(records []gateway.OrderRecord, id string) (gateway.OrderRecord, bool) {
	for _, rec := range records {
		if rec.ID == id {
			return rec, true
		}
	}
	return gateway.OrderRecord{}, false
}

func snapshotFields(snapshot map[string]any) []string {
	fields := make([]string, 0, len(snapshot))
	for k := range snapshot {
		fields = append(fields, k)
	}
	return fields
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
