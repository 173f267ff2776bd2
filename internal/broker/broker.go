package broker

import (
	"context"
	"time"

	"optbot/internal/market"
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Opposite returns the flattening side for a signed position quantity.
func Opposite(qty int) Side {
	if qty > 0 {
		return Sell
	}
	return Buy
}

// OrderRef identifies a working order at the broker.
type OrderRef struct {
	ID     string
	Symbol string
	Status string
}

// Position is an open holding; Qty is signed (negative means short).
type Position struct {
	Symbol string
	Qty    int
}

// BracketOrder is a linked exit pair: a partial take-profit and a full-size
// stop-loss. The take-profit quantity is linked one-cancels-other with the
// same quantity of the stop-loss, so at most one of the paired quantities
// executes; any stop-loss quantity above the pair rides as a separate
// protective order until it fills or the end-of-day sweep clears it.
type BracketOrder struct {
	GroupID         string
	TakeProfitQty   int
	TakeProfitPrice float64
	StopLossQty     int
	StopLossPrice   float64
}

// Broker bundles the market-data and order capabilities the strategy
// consumes. Symbols passed to order methods are tradable symbols (OCC
// symbology for options).
type Broker interface {
	// SessionBars returns the symbol's bars for the last trading session.
	SessionBars(ctx context.Context, symbol string) (market.Series, error)

	// SubmitMarketOrder places a market order and blocks until the average
	// fill price is known.
	SubmitMarketOrder(ctx context.Context, symbol string, side Side, qty int) (float64, error)

	// SubmitBracket places both exit legs in one submission so the
	// one-cancels-other linkage holds at the venue.
	SubmitBracket(ctx context.Context, symbol string, bracket BracketOrder) error

	OpenOrders(ctx context.Context) ([]OrderRef, error)
	CancelOrder(ctx context.Context, ref OrderRef) error
	OpenPositions(ctx context.Context) ([]Position, error)

	// Disconnect releases the session. Safe to call more than once.
	Disconnect() error
}

// WaitForContext sleeps for delay unless the context ends first.
func WaitForContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
