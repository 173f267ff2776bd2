package market

import (
	"context"
	"math/rand"
	"time"
)

const (
	syntheticBars     = 72
	syntheticInterval = 5 * time.Minute
	syntheticBase     = 400.0
)

// SyntheticSource generates a random-walk session of five-minute bars for use
// in simulation mode. A fixed seed reproduces the same session.
type SyntheticSource struct {
	rng *rand.Rand
}

func NewSyntheticSource(seed int64) *SyntheticSource {
	return &SyntheticSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *SyntheticSource) SessionBars(ctx context.Context, symbol string) (Series, error) {
	start := time.Now().UTC().Add(-time.Duration(syntheticBars) * syntheticInterval).Truncate(syntheticInterval)

	series := Series{Symbol: symbol, Bars: make([]Bar, 0, syntheticBars)}
	price := syntheticBase
	for i := 0; i < syntheticBars; i++ {
		next := price + s.rng.NormFloat64()
		high := price
		if next > high {
			high = next
		}
		low := price
		if next < low {
			low = next
		}
		series.Bars = append(series.Bars, Bar{
			Timestamp: start.Add(time.Duration(i) * syntheticInterval),
			Open:      price,
			High:      high + 1,
			Low:       low - 1,
			Close:     next,
		})
		price = next
	}
	return series, nil
}
