package options

import (
	"testing"
	"time"

	"optbot/internal/signal"
)

var selectParams = Params{OTMThreshold: 1.0, DaysAhead: 1, Loc: time.UTC}

func TestSelectCeilingStrikeWithinThreshold(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	c := Select("SPY", signal.Up, 401.20, now, selectParams)
	if c.Strike != 402 {
		t.Fatalf("expected strike 402, got %d", c.Strike)
	}
	if c.Right != Call {
		t.Fatalf("expected call, got %s", c.Right)
	}
	if c.Venue != DefaultVenue {
		t.Fatalf("expected venue %s, got %s", DefaultVenue, c.Venue)
	}
}

func TestSelectFloorStrikeForDown(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	c := Select("SPY", signal.Down, 401.20, now, selectParams)
	if c.Strike != 401 {
		t.Fatalf("expected strike 401, got %d", c.Strike)
	}
	if c.Right != Put {
		t.Fatalf("expected put, got %s", c.Right)
	}
}

// The candidate floor strike sits 0.8 away, past the 0.5 threshold, so the
// fallback floor-1 strike is taken even though it is farther from the money.
func TestSelectFallbackStrikeDown(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	params := Params{OTMThreshold: 0.5, DaysAhead: 1, Loc: time.UTC}
	c := Select("SPY", signal.Down, 400.80, now, params)
	if c.Strike != 399 {
		t.Fatalf("expected fallback strike 399, got %d", c.Strike)
	}
}

func TestSelectFallbackStrikeUp(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	params := Params{OTMThreshold: 0.1, DaysAhead: 1, Loc: time.UTC}
	c := Select("SPY", signal.Up, 400.20, now, params)
	if c.Strike != 401 {
		t.Fatalf("expected fallback strike 401, got %d", c.Strike)
	}
}

func TestSelectExpiryDaysAheadInLocalDate(t *testing.T) {
	loc, err := time.LoadLocation("America/Denver")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// 01:30 UTC on Sep 2 is still Sep 1 in Denver.
	now := time.Date(2026, 9, 2, 1, 30, 0, 0, time.UTC)
	c := Select("SPY", signal.Up, 401.20, now, Params{OTMThreshold: 1.0, DaysAhead: 1, Loc: loc})
	want := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	if !c.Expiry.Equal(want) {
		t.Fatalf("expected expiry %s, got %s", want, c.Expiry)
	}
}

func TestOCCSymbol(t *testing.T) {
	c := Contract{
		Symbol: "SPY",
		Expiry: time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC),
		Strike: 402,
		Right:  Call,
	}
	if got := c.OCCSymbol(); got != "SPY260902C00402000" {
		t.Fatalf("unexpected OCC symbol %q", got)
	}
	c.Right = Put
	c.Strike = 399
	if got := c.OCCSymbol(); got != "SPY260902P00399000" {
		t.Fatalf("unexpected OCC symbol %q", got)
	}
}
