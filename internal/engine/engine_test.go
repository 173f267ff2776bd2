package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"optbot/internal/broker"
	"optbot/internal/config"
	"optbot/internal/market"
	"optbot/internal/trade"
)

type scriptedBroker struct {
	series     map[string]market.Series
	barsErr    map[string]error
	fill       float64
	markets    int
	brackets   int
	sweepPolls int
}

func (s *scriptedBroker) SessionBars(ctx context.Context, symbol string) (market.Series, error) {
	if err := s.barsErr[symbol]; err != nil {
		return market.Series{}, err
	}
	return s.series[symbol], nil
}

func (s *scriptedBroker) SubmitMarketOrder(ctx context.Context, symbol string, side broker.Side, qty int) (float64, error) {
	s.markets++
	return s.fill, nil
}

func (s *scriptedBroker) SubmitBracket(ctx context.Context, symbol string, bracket broker.BracketOrder) error {
	s.brackets++
	return nil
}

func (s *scriptedBroker) OpenOrders(ctx context.Context) ([]broker.OrderRef, error) {
	s.sweepPolls++
	return nil, nil
}

func (s *scriptedBroker) CancelOrder(ctx context.Context, ref broker.OrderRef) error { return nil }

func (s *scriptedBroker) OpenPositions(ctx context.Context) ([]broker.Position, error) {
	return nil, nil
}

func (s *scriptedBroker) Disconnect() error { return nil }

func testConfig(symbols ...string) config.Config {
	return config.Config{
		Symbols:        symbols,
		PositionUSD:    100000,
		IgnoreWindow:   0,
		OTMThreshold:   1.0,
		ExpDaysAhead:   1,
		Loc:            time.UTC,
		Mode:           config.ModeSim,
		TakeProfitPct:  0.10,
		PartialSellPct: 0.90,
		StopLossPct:    0.10,
		EODHour:        15,
		EODMinute:      50,
	}
}

func breakoutSeries(symbol string) market.Series {
	base := time.Date(2026, 9, 1, 13, 30, 0, 0, time.UTC)
	return market.Series{Symbol: symbol, Bars: []market.Bar{
		{Timestamp: base, Open: 400, High: 400.8, Low: 399.9, Close: 400.5},
		{Timestamp: base.Add(5 * time.Minute), Open: 400.5, High: 401.2, Low: 400.4, Close: 401.5},
	}}
}

func quietSeries(symbol string) market.Series {
	base := time.Date(2026, 9, 1, 13, 30, 0, 0, time.UTC)
	return market.Series{Symbol: symbol, Bars: []market.Bar{
		{Timestamp: base, Open: 400, High: 401.5, Low: 399.5, Close: 401},
		{Timestamp: base.Add(5 * time.Minute), Open: 401, High: 401.2, Low: 398.8, Close: 399},
	}}
}

func newTestEngine(t *testing.T, cfg config.Config, b broker.Broker) *Engine {
	t.Helper()
	journal, err := NewJournal(filepath.Join(t.TempDir(), "journal.csv"), "test-run")
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}
	t.Cleanup(func() { _ = journal.Close() })

	manager := trade.NewManager(b, trade.Params{
		TakeProfitPct:  cfg.TakeProfitPct,
		StopLossPct:    cfg.StopLossPct,
		PartialSellPct: cfg.PartialSellPct,
		EODHour:        cfg.EODHour,
		EODMinute:      cfg.EODMinute,
		Loc:            cfg.Loc,
	})
	eng := New(cfg, b, manager, journal)
	eng.now = func() time.Time { return time.Date(2026, 9, 1, 16, 0, 0, 0, time.UTC) }
	return eng
}

func TestRunIsolatesSymbolFailures(t *testing.T) {
	b := &scriptedBroker{
		series:  map[string]market.Series{"QQQ": breakoutSeries("QQQ")},
		barsErr: map[string]error{"SPY": errors.New("feed down")},
		fill:    401.5,
	}
	eng := newTestEngine(t, testConfig("SPY", "QQQ"), b)

	report := eng.Run(context.Background())
	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Results))
	}
	if report.Results[0].Outcome != OutcomeFailed {
		t.Fatalf("expected SPY to fail, got %s", report.Results[0].Outcome)
	}
	if report.Results[1].Outcome != OutcomeTraded {
		t.Fatalf("expected QQQ to trade, got %s (%s)", report.Results[1].Outcome, report.Results[1].Reason)
	}
	if report.Failures() != 1 {
		t.Fatalf("expected 1 failure, got %d", report.Failures())
	}
}

func TestRunNoTriggerSubmitsNothing(t *testing.T) {
	b := &scriptedBroker{series: map[string]market.Series{"SPY": quietSeries("SPY")}}
	eng := newTestEngine(t, testConfig("SPY"), b)

	report := eng.Run(context.Background())
	if report.Results[0].Outcome != OutcomeNoTrigger {
		t.Fatalf("expected no_trigger, got %s", report.Results[0].Outcome)
	}
	if b.markets != 0 || b.brackets != 0 {
		t.Fatalf("expected no orders without a trigger")
	}
}

func TestRunSkipsWhenBudgetTooSmall(t *testing.T) {
	b := &scriptedBroker{series: map[string]market.Series{"SPY": breakoutSeries("SPY")}, fill: 401.5}
	cfg := testConfig("SPY")
	cfg.PositionUSD = 500 // one contract at ~401.5 x 100 is far beyond this
	eng := newTestEngine(t, cfg, b)

	report := eng.Run(context.Background())
	if report.Results[0].Outcome != OutcomeSkipped {
		t.Fatalf("expected skipped, got %s", report.Results[0].Outcome)
	}
	if b.markets != 0 {
		t.Fatalf("expected no entry order for zero quantity")
	}
}

func TestRunSweepsOnceEvenWhenAllSymbolsFail(t *testing.T) {
	b := &scriptedBroker{
		barsErr: map[string]error{"SPY": errors.New("feed down"), "QQQ": errors.New("feed down")},
	}
	eng := newTestEngine(t, testConfig("SPY", "QQQ"), b)

	eng.Run(context.Background())
	if b.sweepPolls != 1 {
		t.Fatalf("expected exactly one EOD sweep, got %d", b.sweepPolls)
	}
}

func TestRunTradedPlacesBracket(t *testing.T) {
	b := &scriptedBroker{series: map[string]market.Series{"SPY": breakoutSeries("SPY")}, fill: 401.5}
	eng := newTestEngine(t, testConfig("SPY"), b)

	report := eng.Run(context.Background())
	res := report.Results[0]
	if res.Outcome != OutcomeTraded {
		t.Fatalf("expected traded, got %s (%s)", res.Outcome, res.Reason)
	}
	if res.Execution.State != trade.StateBracketPlaced {
		t.Fatalf("expected bracket-placed, got %s", res.Execution.State)
	}
	if b.markets != 1 || b.brackets != 1 {
		t.Fatalf("expected entry plus one linked bracket, got %d market %d bracket", b.markets, b.brackets)
	}
}

func TestJournalWritesHeaderOnceAndOneRowPerSymbol(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.csv")
	journal, err := NewJournal(path, "run-1")
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}
	journal.Append(Row{Symbol: "SPY", Outcome: string(OutcomeNoTrigger)})
	journal.Append(Row{Symbol: "QQQ", Outcome: string(OutcomeTraded), Qty: 2})
	if err := journal.Close(); err != nil {
		t.Fatalf("close journal: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "run_id,") {
		t.Fatalf("expected header line, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "run-1") || !strings.Contains(lines[1], "SPY") {
		t.Fatalf("unexpected first row %q", lines[1])
	}
}
