package market

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

// AlpacaSource fetches five-minute session bars from the alpaca data API.
type AlpacaSource struct {
	client *marketdata.Client
	feed   marketdata.Feed
}

func NewAlpacaSource(apiKey, apiSecret, feed string) *AlpacaSource {
	return &AlpacaSource{
		client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
		}),
		feed: parseFeed(feed),
	}
}

func (s *AlpacaSource) SessionBars(ctx context.Context, symbol string) (Series, error) {
	end := time.Now().UTC()
	start := end.Add(-24 * time.Hour)

	bars, err := s.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.NewTimeFrame(5, marketdata.Min),
		Start:     start,
		End:       end,
		Feed:      s.feed,
	})
	if err != nil {
		return Series{}, fmt.Errorf("fetch bars for %s: %w", symbol, err)
	}

	series := Series{Symbol: symbol, Bars: make([]Bar, 0, len(bars))}
	for _, b := range bars {
		series.Bars = append(series.Bars, Bar{
			Timestamp: b.Timestamp.UTC(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
		})
	}
	return series, nil
}

func parseFeed(feed string) marketdata.Feed {
	switch feed {
	case "sip":
		return marketdata.SIP
	default:
		return marketdata.IEX
	}
}
