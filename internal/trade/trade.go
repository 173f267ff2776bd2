package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"optbot/internal/broker"
	"optbot/internal/options"
)

// State tracks a contract through its lifecycle:
//
//	pending-entry -> filled -> bracket-placed -> closed-by-tp | closed-by-sl | closed-by-eod
//
// A quantity below one contract short-circuits to skipped. Which of
// closed-by-tp and closed-by-sl resolves is decided at the venue by the OCA
// linkage; closed-by-eod is forced by the sweep.
type State string

const (
	StateSkipped       State = "skipped"
	StatePendingEntry  State = "pending-entry"
	StateFilled        State = "filled"
	StateBracketPlaced State = "bracket-placed"
	StateClosedTP      State = "closed-by-tp"
	StateClosedSL      State = "closed-by-sl"
	StateClosedEOD     State = "closed-by-eod"
)

func (s State) Terminal() bool {
	switch s {
	case StateClosedTP, StateClosedSL, StateClosedEOD:
		return true
	}
	return false
}

// Params are the bracket economics and the end-of-day cutoff.
type Params struct {
	TakeProfitPct  float64
	StopLossPct    float64
	PartialSellPct float64
	EODHour        int
	EODMinute      int
	Loc            *time.Location
}

// Execution records one contract's lifecycle within a run.
type Execution struct {
	State     State
	Contract  options.Contract
	Qty       int
	FillPrice float64
	Bracket   broker.BracketOrder
}

// Manager drives entries, bracket placement and the end-of-day sweep against
// a broker session it does not own.
type Manager struct {
	broker broker.Broker
	params Params
}

func NewManager(b broker.Broker, params Params) *Manager {
	return &Manager{broker: b, params: params}
}

// Enter buys the contract at market, waits for the fill, and places the
// take-profit/stop-loss pair. A quantity below one contract is an expected
// skip, not an error.
func (m *Manager) Enter(ctx context.Context, contract options.Contract, qty int) (Execution, error) {
	exec := Execution{State: StatePendingEntry, Contract: contract, Qty: qty}

	if qty < 1 {
		exec.State = StateSkipped
		log.WithFields(log.Fields{"contract": contract.String(), "qty": qty}).Info("quantity below one contract, skipping")
		return exec, nil
	}

	symbol := contract.OCCSymbol()
	fill, err := m.broker.SubmitMarketOrder(ctx, symbol, broker.Buy, qty)
	if err != nil {
		return exec, fmt.Errorf("entry order: %w", err)
	}
	exec.State = StateFilled
	exec.FillPrice = fill
	log.WithFields(log.Fields{"contract": contract.String(), "qty": qty, "fill": fill}).Info("entered")

	bracket := buildBracket(fill, qty, m.params)
	if err := m.broker.SubmitBracket(ctx, symbol, bracket); err != nil {
		return exec, fmt.Errorf("bracket: %w", err)
	}
	exec.State = StateBracketPlaced
	exec.Bracket = bracket
	log.WithFields(log.Fields{
		"contract": contract.String(),
		"tp":       bracket.TakeProfitPrice,
		"tp_qty":   bracket.TakeProfitQty,
		"sl":       bracket.StopLossPrice,
		"sl_qty":   bracket.StopLossQty,
		"group":    bracket.GroupID,
	}).Info("bracket placed")
	return exec, nil
}

// buildBracket derives the exit pair from the entry fill: take-profit at
// fill*(1+tp) for the partial quantity, stop-loss at fill*(1-sl) for the full
// quantity.
func buildBracket(fill float64, qty int, p Params) broker.BracketOrder {
	f := decimal.NewFromFloat(fill)
	one := decimal.NewFromInt(1)
	tp := f.Mul(one.Add(decimal.NewFromFloat(p.TakeProfitPct)))
	sl := f.Mul(one.Sub(decimal.NewFromFloat(p.StopLossPct)))
	tpQty := decimal.NewFromInt(int64(qty)).Mul(decimal.NewFromFloat(p.PartialSellPct)).IntPart()

	return broker.BracketOrder{
		GroupID:         uuid.NewString(),
		TakeProfitPrice: tp.InexactFloat64(),
		TakeProfitQty:   int(tpQty),
		StopLossPrice:   sl.InexactFloat64(),
		StopLossQty:     qty,
	}
}
