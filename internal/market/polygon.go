package market

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
)

// PolygonSource fetches five-minute session bars from polygon aggregates.
type PolygonSource struct {
	client *polygon.Client
}

func NewPolygonSource(apiKey string) *PolygonSource {
	return &PolygonSource{client: polygon.New(apiKey)}
}

func (s *PolygonSource) SessionBars(ctx context.Context, symbol string) (Series, error) {
	to := time.Now().UTC()
	from := to.Add(-24 * time.Hour)

	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: 5,
		Timespan:   models.Minute,
		From:       models.Millis(from),
		To:         models.Millis(to),
	}.WithOrder(models.Asc).WithAdjusted(true)

	iter := s.client.ListAggs(ctx, params)

	series := Series{Symbol: symbol}
	for iter.Next() {
		item := iter.Item()
		series.Bars = append(series.Bars, Bar{
			Timestamp: time.Time(item.Timestamp).UTC(),
			Open:      item.Open,
			High:      item.High,
			Low:       item.Low,
			Close:     item.Close,
		})
	}
	if err := iter.Err(); err != nil {
		return Series{}, fmt.Errorf("fetch aggs for %s: %w", symbol, err)
	}
	return series, nil
}
