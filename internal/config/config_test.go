package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	loc, _ := time.LoadLocation("US/Mountain")
	return Config{
		Symbols:        []string{"SPY"},
		PositionUSD:    10000,
		IgnoreWindow:   15 * time.Minute,
		OTMThreshold:   1.0,
		ExpDaysAhead:   1,
		Timezone:       "US/Mountain",
		Loc:            loc,
		Mode:           ModeSim,
		TakeProfitPct:  0.10,
		PartialSellPct: 0.90,
		StopLossPct:    0.10,
		EODHour:        15,
		EODMinute:      50,
		DataFeed:       "iex",
		FillPoll:       time.Second,
		FillTimeout:    30 * time.Second,
		LogFile:        "strategy.log",
		JournalPath:    "journal.csv",
	}
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	if err := validate(validConfig()); err != nil {
		t.Fatalf("expected config to be valid, got %v", err)
	}
}

func TestValidateRejectsNonPositiveBudget(t *testing.T) {
	cfg := validConfig()
	cfg.PositionUSD = 0
	if err := validate(cfg); err == nil {
		t.Fatalf("expected validation error for position-usd")
	}
}

func TestValidateRejectsEmptySymbols(t *testing.T) {
	cfg := validConfig()
	cfg.Symbols = nil
	if err := validate(cfg); err == nil {
		t.Fatalf("expected validation error for symbols")
	}
}

func TestValidateRejectsInvalidMode(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "paper"
	if err := validate(cfg); err == nil {
		t.Fatalf("expected validation error for mode")
	}
}

func TestValidateRequiresKeysInLiveMode(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = ModeLive
	if err := validate(cfg); err == nil {
		t.Fatalf("expected validation error for missing keys")
	}
	cfg.APIKey = "key"
	cfg.APISecret = "secret"
	if err := validate(cfg); err != nil {
		t.Fatalf("expected live config with keys to be valid, got %v", err)
	}
}

func TestValidateRequiresPolygonKeyForPolygonFeed(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = ModeLive
	cfg.APIKey = "key"
	cfg.APISecret = "secret"
	cfg.DataFeed = "polygon"
	if err := validate(cfg); err == nil {
		t.Fatalf("expected validation error for missing polygon key")
	}
	cfg.PolygonAPIKey = "pk"
	if err := validate(cfg); err != nil {
		t.Fatalf("expected polygon config with key to be valid, got %v", err)
	}
}

func TestValidateRejectsStopLossOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.StopLossPct = 1.5
	if err := validate(cfg); err == nil {
		t.Fatalf("expected validation error for stop-loss-pct")
	}
}

func TestSplitSymbols(t *testing.T) {
	got := splitSymbols("spy, QQQ ,,iwm")
	want := []string{"SPY", "QQQ", "IWM"}
	if len(got) != len(want) {
		t.Fatalf("expected %d symbols, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestParseClock(t *testing.T) {
	hour, minute, err := parseClock("15:50")
	if err != nil {
		t.Fatalf("parse clock: %v", err)
	}
	if hour != 15 || minute != 50 {
		t.Fatalf("expected 15:50, got %02d:%02d", hour, minute)
	}
	if _, _, err := parseClock("25:00"); err == nil {
		t.Fatalf("expected error for invalid clock")
	}
}
