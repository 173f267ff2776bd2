package engine

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"optbot/internal/broker"
	"optbot/internal/config"
	"optbot/internal/options"
	"optbot/internal/risk"
	"optbot/internal/signal"
	"optbot/internal/trade"
)

type Outcome string

const (
	OutcomeTraded    Outcome = "traded"
	OutcomeNoTrigger Outcome = "no_trigger"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Result is one symbol's outcome within a pass. Failures are values here,
// never process-terminating.
type Result struct {
	Symbol      string
	Outcome     Outcome
	Reason      string
	TriggerTime time.Time
	Direction   signal.Direction
	Execution   trade.Execution
}

// Report summarizes a full orchestration pass.
type Report struct {
	RunID   string
	Results []Result
}

func (r Report) Failures() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == OutcomeFailed {
			n++
		}
	}
	return n
}

// Engine runs one pass: each configured symbol in order, then the end-of-day
// sweep exactly once, whatever the per-symbol outcomes were.
type Engine struct {
	cfg     config.Config
	broker  broker.Broker
	manager *trade.Manager
	journal *Journal
	now     func() time.Time
}

func New(cfg config.Config, b broker.Broker, manager *trade.Manager, journal *Journal) *Engine {
	return &Engine{
		cfg:     cfg,
		broker:  b,
		manager: manager,
		journal: journal,
		now:     time.Now,
	}
}

func (e *Engine) Run(ctx context.Context) Report {
	report := Report{RunID: e.journal.RunID()}
	log.WithFields(log.Fields{"run_id": report.RunID, "symbols": e.cfg.Symbols, "mode": e.cfg.Mode}).Info("strategy pass started")

	for _, symbol := range e.cfg.Symbols {
		result := e.processSymbol(ctx, symbol)
		report.Results = append(report.Results, result)
		e.journal.Append(rowFrom(result, e.now()))

		fields := log.Fields{"symbol": symbol, "outcome": result.Outcome}
		if result.Reason != "" {
			fields["reason"] = result.Reason
		}
		if result.Outcome == OutcomeFailed {
			log.WithFields(fields).Error("symbol failed")
		} else {
			log.WithFields(fields).Info("symbol processed")
		}
	}

	if err := e.manager.SweepEOD(ctx, e.now()); err != nil {
		log.WithFields(log.Fields{"error": err}).Error("EOD sweep failed")
	}

	log.WithFields(log.Fields{"run_id": report.RunID, "failures": report.Failures()}).Info("strategy pass complete")
	return report
}

func (e *Engine) processSymbol(ctx context.Context, symbol string) Result {
	result := Result{Symbol: symbol}

	series, err := e.broker.SessionBars(ctx, symbol)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Reason = "bars_fetch_failed: " + err.Error()
		return result
	}
	if err := series.Validate(); err != nil {
		result.Outcome = OutcomeFailed
		result.Reason = "malformed_series: " + err.Error()
		return result
	}

	trigger, ok := signal.Detect(series, e.cfg.IgnoreWindow)
	if !ok {
		result.Outcome = OutcomeNoTrigger
		result.Reason = "no_trigger"
		return result
	}
	result.TriggerTime = trigger.Time
	result.Direction = trigger.Direction
	log.WithFields(log.Fields{
		"symbol":    symbol,
		"time":      trigger.Time.In(e.cfg.Loc).Format("15:04:05 MST"),
		"direction": trigger.Direction,
	}).Info("trigger")

	price := series.LastClose()
	qty := risk.Sizer{BudgetUSD: e.cfg.PositionUSD}.ContractQty(price)
	contract := options.Select(symbol, trigger.Direction, price, e.now(), options.Params{
		OTMThreshold: e.cfg.OTMThreshold,
		DaysAhead:    e.cfg.ExpDaysAhead,
		Loc:          e.cfg.Loc,
	})

	execution, err := e.manager.Enter(ctx, contract, qty)
	result.Execution = execution
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Reason = "order_failed: " + err.Error()
		return result
	}
	if execution.State == trade.StateSkipped {
		result.Outcome = OutcomeSkipped
		result.Reason = "quantity_below_minimum"
		return result
	}

	result.Outcome = OutcomeTraded
	return result
}

func rowFrom(result Result, now time.Time) Row {
	row := Row{
		Time:      now.UTC().Format(time.RFC3339),
		Symbol:    result.Symbol,
		Outcome:   string(result.Outcome),
		Reason:    result.Reason,
		Direction: string(result.Direction),
	}
	if !result.TriggerTime.IsZero() {
		row.TriggerTime = result.TriggerTime.UTC().Format(time.RFC3339)
	}
	if result.Outcome == OutcomeTraded {
		row.Contract = result.Execution.Contract.String()
		row.Qty = result.Execution.Qty
		row.FillPrice = result.Execution.FillPrice
		row.TakeProfit = result.Execution.Bracket.TakeProfitPrice
		row.StopLoss = result.Execution.Bracket.StopLossPrice
	}
	return row
}
