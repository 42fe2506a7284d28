package trade

import (
	"context"
	"time"

	"phemex-trade-client/internal/gateway"
	"phemex-trade-client/internal/journal"

	"go.uber.org/zap"
)

// PositionState is one-way: a position that reconciles to zero contracts is
// closed and stays closed.
type PositionState int

const (
	PositionOpen PositionState = iota
	PositionClosed
)

func (s PositionState) String() string {
	if s == PositionClosed {
		return "closed"
	}
	return "open"
}

// Position tracks aggregate open exposure on one derivatives symbol. Every
// mutating action re-reads the true position from the exchange instead of
// subtracting locally, so repeated partial closes cannot compound rounding
// drift.
type Position struct {
	client   *Client
	state    PositionState
	snapshot map[string]any
}

func newPosition(client *Client, rec gateway.PositionRecord) *Position {
	p := &Position{client: client, snapshot: map[string]any{}}
	p.adopt(rec)
	if p.Contracts() <= 0 {
		p.state = PositionClosed
	}
	return p
}

func (p *Position) Symbol() string { s, _ := p.snapshot["symbol"].(string); return s }

func (p *Position) Side() Direction {
	s, _ := p.snapshot["side"].(string)
	return Direction(s)
}

func (p *Position) Contracts() float64 {
	f, _ := p.snapshot["contracts"].(float64)
	return f
}

func (p *Position) State() PositionState { return p.state }

// Query returns one stored attribute by name, same contract as Order.Query.
func (p *Position) Query(field string) (any, error) {
	if v, ok := p.snapshot[field]; ok {
		return v, nil
	}
	return nil, &InvalidRequestError{Field: field, Valid: snapshotFields(p.snapshot)}
}

// Close reduces the position by amount contracts with an offsetting market
// order; all overrides amount with the full current contract count. The true
// position is re-fetched afterward regardless of how the offsetting order
// went, and the state flips to closed only when the exchange reports zero
// contracts. A partial close leaves the position open for another call.
func (p *Position) Close(ctx context.Context, amount float64, all bool) error {
	if p.state == PositionClosed {
		return nil
	}
	if all {
		amount = p.Contracts()
	}

	var submitErr error
	switch p.Side() {
	case Long:
		_, submitErr = p.client.Short(ctx, p.Symbol(), "market", amount, 0, 0, 0, nil)
	case Short:
		_, submitErr = p.client.Long(ctx, p.Symbol(), "market", amount, 0, 0, 0, nil)
	default:
		return &InvalidPositionError{Pos: string(p.Side())}
	}

	checkErr := p.checkClosed(ctx)
	if submitErr != nil {
		return submitErr
	}
	return checkErr
}

// Closed is a pure read of the cached state; it relies on Close having
// reconciled.
func (p *Position) Closed() bool {
	return p.state == PositionClosed
}

// checkClosed re-reads the position from the exchange and overwrites the
// local snapshot with whatever it reports, absorbing any slippage between
// the requested and filled offset amount.
func (p *Position) checkClosed(ctx context.Context) error {
	symbol := p.Symbol()
	var records []gateway.PositionRecord
	err := p.client.worker.Do(ctx, "fetch_positions", func(ctx context.Context) error {
		var err error
		records, err = p.client.gw.FetchPositions(ctx, []string{symbol})
		return err
	})
	if err != nil {
		p.client.log.Warn("position reconcile failed", zap.String("symbol", symbol), zap.Error(err))
		return err
	}
	for _, rec := range records {
		if rec.Symbol == symbol && rec.Contracts > 0 {
			p.adopt(rec)
			p.state = PositionOpen
			return nil
		}
	}
	p.snapshot["contracts"] = float64(0)
	if p.state != PositionClosed {
		p.state = PositionClosed
		p.client.meter.PositionsClosed.Inc()
		p.client.journal.Enqueue(journal.Event{
			Time:    time.Now().UTC(),
			Symbol:  symbol,
			Side:    string(p.Side()),
			Type:    "position",
			Segment: gateway.Future.String(),
			State:   p.state.String(),
		})
	}
	return nil
}

func (p *Position) adopt(rec gateway.PositionRecord) {
	symbol := rec.Symbol
	if s, ok := rec.Info["symbol"].(string); ok && s != "" {
		symbol = s
	}
	p.snapshot["symbol"] = symbol
	p.snapshot["side"] = rec.Side
	p.snapshot["contracts"] = rec.Contracts
}
