package trade

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"optbot/internal/broker"
)

// SweepEOD forces the book flat once the end-of-day cutoff has passed: every
// open order is cancelled and every nonzero position is closed with an
// opposing market order. Before the cutoff it is a no-op. After a clean
// sweep a second call finds nothing to act on.
func (m *Manager) SweepEOD(ctx context.Context, now time.Time) error {
	local := now.In(m.params.Loc)
	cutoff := time.Date(local.Year(), local.Month(), local.Day(), m.params.EODHour, m.params.EODMinute, 0, 0, m.params.Loc)
	if local.Before(cutoff) {
		log.WithFields(log.Fields{"cutoff": cutoff.Format("15:04")}).Info("before EOD cutoff, nothing to sweep")
		return nil
	}

	orders, err := m.broker.OpenOrders(ctx)
	if err != nil {
		return fmt.Errorf("list open orders: %w", err)
	}
	for _, ref := range orders {
		if err := m.broker.CancelOrder(ctx, ref); err != nil {
			log.WithFields(log.Fields{"order_id": ref.ID, "error": err}).Error("EOD cancel failed")
		}
	}

	positions, err := m.broker.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("list open positions: %w", err)
	}
	flattened := 0
	for _, pos := range positions {
		if pos.Qty == 0 {
			continue
		}
		qty := pos.Qty
		if qty < 0 {
			qty = -qty
		}
		if _, err := m.broker.SubmitMarketOrder(ctx, pos.Symbol, broker.Opposite(pos.Qty), qty); err != nil {
			log.WithFields(log.Fields{"symbol": pos.Symbol, "qty": pos.Qty, "error": err}).Error("EOD flatten failed")
			continue
		}
		flattened++
		log.WithFields(log.Fields{"symbol": pos.Symbol, "qty": pos.Qty, "state": StateClosedEOD}).Info("position flattened")
	}

	log.WithFields(log.Fields{"cancelled": len(orders), "flattened": flattened}).Info("EOD sweep complete")
	return nil
}
