package broker

import (
	"context"
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"optbot/internal/market"
)

// Sim is the simulation broker: bars come from a synthetic source and order
// submissions are logged instead of routed. It keeps an in-memory book of
// orders and positions so the end-of-day sweep behaves like a live venue.
type Sim struct {
	data market.Source

	mu        sync.Mutex
	seq       int
	lastClose map[string]float64
	orders    map[string]OrderRef
	positions map[string]int
}

func NewSim(data market.Source) *Sim {
	return &Sim{
		data:      data,
		lastClose: map[string]float64{},
		orders:    map[string]OrderRef{},
		positions: map[string]int{},
	}
}

func (s *Sim) SessionBars(ctx context.Context, symbol string) (market.Series, error) {
	series, err := s.data.SessionBars(ctx, symbol)
	if err != nil {
		return market.Series{}, err
	}
	s.mu.Lock()
	s.lastClose[symbol] = series.LastClose()
	s.mu.Unlock()
	return series, nil
}

func (s *Sim) SubmitMarketOrder(ctx context.Context, symbol string, side Side, qty int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The underlying's last close stands in for a real fill price.
	fill := s.syntheticFill(symbol)
	signed := qty
	if side == Sell {
		signed = -qty
	}
	s.positions[symbol] += signed
	if s.positions[symbol] == 0 {
		delete(s.positions, symbol)
	}

	log.WithFields(log.Fields{
		"symbol": symbol,
		"side":   side,
		"qty":    qty,
		"fill":   fill,
	}).Info("[SIM] market order")
	return fill, nil
}

func (s *Sim) SubmitBracket(ctx context.Context, symbol string, bracket BracketOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	id := fmt.Sprintf("sim-%d", s.seq)
	s.orders[id] = OrderRef{ID: id, Symbol: symbol, Status: "open"}

	log.WithFields(log.Fields{
		"order_id": id,
		"symbol":   symbol,
		"tp":       bracket.TakeProfitPrice,
		"tp_qty":   bracket.TakeProfitQty,
		"sl":       bracket.StopLossPrice,
		"sl_qty":   bracket.StopLossQty,
		"group":    bracket.GroupID,
	}).Info("[SIM] bracket")
	return nil
}

func (s *Sim) OpenOrders(ctx context.Context) ([]OrderRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := make([]OrderRef, 0, len(s.orders))
	for _, ref := range s.orders {
		refs = append(refs, ref)
	}
	return refs, nil
}

func (s *Sim) CancelOrder(ctx context.Context, ref OrderRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[ref.ID]; !ok {
		return fmt.Errorf("unknown order %s", ref.ID)
	}
	delete(s.orders, ref.ID)
	log.WithFields(log.Fields{"order_id": ref.ID, "symbol": ref.Symbol}).Info("[SIM] order cancelled")
	return nil
}

func (s *Sim) OpenPositions(ctx context.Context) ([]Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	positions := make([]Position, 0, len(s.positions))
	for symbol, qty := range s.positions {
		positions = append(positions, Position{Symbol: symbol, Qty: qty})
	}
	return positions, nil
}

func (s *Sim) Disconnect() error {
	log.Info("[SIM] session released")
	return nil
}

// syntheticFill resolves an option symbol back to its underlying's last
// close; an unseen symbol fills at 1.
func (s *Sim) syntheticFill(symbol string) float64 {
	if px, ok := s.lastClose[symbol]; ok {
		return px
	}
	for underlying, px := range s.lastClose {
		if strings.HasPrefix(symbol, underlying) {
			return px
		}
	}
	return 1
}
