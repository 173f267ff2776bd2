package signal

import (
	"time"

	"optbot/internal/market"
)

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Trigger marks the first two-candle breakout found in a session.
type Trigger struct {
	Time      time.Time
	Direction Direction
}

// Detect scans a session for a breakout: two consecutive candles with the
// same direction where the second closes beyond the first's extreme (above
// its high going up, below its low going down). Bars within ignore of the
// session's first bar are discarded as open-of-session noise. At most one
// trigger is reported; the comparison window slides one candle at a time.
func Detect(series market.Series, ignore time.Duration) (Trigger, bool) {
	if len(series.Bars) == 0 {
		return Trigger{}, false
	}

	cutoff := series.Bars[0].Timestamp.Add(ignore)
	bars := make([]market.Bar, 0, len(series.Bars))
	for _, b := range series.Bars {
		if !b.Timestamp.Before(cutoff) {
			bars = append(bars, b)
		}
	}

	for i := 1; i < len(bars); i++ {
		prev, curr := bars[i-1], bars[i]
		dir := candleDirection(prev)
		if candleDirection(curr) != dir {
			continue
		}
		if (dir == Up && curr.Close > prev.High) || (dir == Down && curr.Close < prev.Low) {
			return Trigger{Time: curr.Timestamp, Direction: dir}, true
		}
	}
	return Trigger{}, false
}

// A candle that closes exactly at its open counts as down, which can never
// fire the up branch against the previous high.
func candleDirection(b market.Bar) Direction {
	if b.Close > b.Open {
		return Up
	}
	return Down
}
