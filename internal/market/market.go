package market

import (
	"context"
	"fmt"
	"time"
)

// Bar is one OHLC candle at a fixed interval.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
}

// Series holds one symbol's bars for a single session, ordered by timestamp.
// It is immutable once fetched.
type Series struct {
	Symbol string
	Bars   []Bar
}

// Source supplies session bars for a symbol.
type Source interface {
	SessionBars(ctx context.Context, symbol string) (Series, error)
}

// LastClose returns the close of the most recent bar, or 0 for an empty series.
func (s Series) LastClose() float64 {
	if len(s.Bars) == 0 {
		return 0
	}
	return s.Bars[len(s.Bars)-1].Close
}

// Validate checks the series invariants: strictly increasing timestamps and
// positive prices on every bar.
func (s Series) Validate() error {
	for i, b := range s.Bars {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return fmt.Errorf("%s bar %d has non-positive price", s.Symbol, i)
		}
		if i > 0 && !s.Bars[i-1].Timestamp.Before(b.Timestamp) {
			return fmt.Errorf("%s bar %d timestamp %s not after previous", s.Symbol, i, b.Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}
