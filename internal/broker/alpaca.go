package broker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"optbot/internal/market"
)

// Alpaca is the live broker. Orders are routed through the alpaca trading
// API; bars come from the configured market data source. Alpaca has no
// arbitrary OCA groups, so a bracket maps to a native OCO order for the
// take-profit quantity plus a separate stop for the remainder; the remainder
// stop either fills or is cleared by the end-of-day sweep.
type Alpaca struct {
	trading     *alpaca.Client
	data        market.Source
	fillPoll    time.Duration
	fillTimeout time.Duration
	orderSeq    uint64
}

func NewAlpaca(apiKey, apiSecret, baseURL string, data market.Source, fillPoll, fillTimeout time.Duration) *Alpaca {
	return &Alpaca{
		trading: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
		data:        data,
		fillPoll:    fillPoll,
		fillTimeout: fillTimeout,
	}
}

// Connect probes the account so a dead session fails the run up front.
func (a *Alpaca) Connect(ctx context.Context) error {
	acct, err := a.trading.GetAccount()
	if err != nil {
		return fmt.Errorf("establish broker session: %w", err)
	}
	equity, _ := acct.Equity.Float64()
	log.WithFields(log.Fields{"account": acct.AccountNumber, "equity": equity}).Info("broker session established")
	return nil
}

func (a *Alpaca) SessionBars(ctx context.Context, symbol string) (market.Series, error) {
	return a.data.SessionBars(ctx, symbol)
}

func (a *Alpaca) SubmitMarketOrder(ctx context.Context, symbol string, side Side, qty int) (float64, error) {
	q := decimal.NewFromInt(int64(qty))
	order, err := a.trading.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:        symbol,
		Qty:           &q,
		Side:          alpacaSide(side),
		Type:          alpaca.Market,
		TimeInForce:   alpaca.Day,
		ClientOrderID: a.nextClientOrderID("mkt"),
	})
	if err != nil {
		return 0, fmt.Errorf("submit market order %s %s: %w", side, symbol, err)
	}
	log.WithFields(log.Fields{"order_id": order.ID, "symbol": symbol, "side": side, "qty": qty}).Info("market order submitted")
	return a.waitForFill(ctx, order.ID)
}

func (a *Alpaca) SubmitBracket(ctx context.Context, symbol string, bracket BracketOrder) error {
	if bracket.TakeProfitQty > 0 {
		pairQty := decimal.NewFromInt(int64(bracket.TakeProfitQty))
		limitPrice := decimal.NewFromFloat(bracket.TakeProfitPrice)
		stopPrice := decimal.NewFromFloat(bracket.StopLossPrice)
		order, err := a.trading.PlaceOrder(alpaca.PlaceOrderRequest{
			Symbol:        symbol,
			Qty:           &pairQty,
			Side:          alpaca.Sell,
			Type:          alpaca.Limit,
			TimeInForce:   alpaca.Day,
			LimitPrice:    &limitPrice,
			OrderClass:    alpaca.OCO,
			StopLoss:      &alpaca.StopLoss{StopPrice: &stopPrice},
			ClientOrderID: a.nextClientOrderID(bracket.GroupID),
		})
		if err != nil {
			return fmt.Errorf("submit oco pair %s: %w", symbol, err)
		}
		log.WithFields(log.Fields{
			"order_id": order.ID,
			"symbol":   symbol,
			"qty":      bracket.TakeProfitQty,
			"tp":       bracket.TakeProfitPrice,
			"sl":       bracket.StopLossPrice,
			"group":    bracket.GroupID,
		}).Info("oco pair submitted")
	}

	if rem := bracket.StopLossQty - bracket.TakeProfitQty; rem > 0 {
		remQty := decimal.NewFromInt(int64(rem))
		stopPrice := decimal.NewFromFloat(bracket.StopLossPrice)
		order, err := a.trading.PlaceOrder(alpaca.PlaceOrderRequest{
			Symbol:        symbol,
			Qty:           &remQty,
			Side:          alpaca.Sell,
			Type:          alpaca.Stop,
			TimeInForce:   alpaca.Day,
			StopPrice:     &stopPrice,
			ClientOrderID: a.nextClientOrderID(bracket.GroupID),
		})
		if err != nil {
			return fmt.Errorf("submit remainder stop %s: %w", symbol, err)
		}
		log.WithFields(log.Fields{
			"order_id": order.ID,
			"symbol":   symbol,
			"qty":      rem,
			"sl":       bracket.StopLossPrice,
			"group":    bracket.GroupID,
		}).Info("remainder stop submitted")
	}
	return nil
}

func (a *Alpaca) OpenOrders(ctx context.Context) ([]OrderRef, error) {
	orders, err := a.trading.GetOrders(alpaca.GetOrdersRequest{Status: "open"})
	if err != nil {
		return nil, fmt.Errorf("fetch open orders: %w", err)
	}
	refs := make([]OrderRef, 0, len(orders))
	for _, order := range orders {
		refs = append(refs, OrderRef{
			ID:     order.ID,
			Symbol: order.Symbol,
			Status: string(order.Status),
		})
	}
	return refs, nil
}

func (a *Alpaca) CancelOrder(ctx context.Context, ref OrderRef) error {
	if err := a.trading.CancelOrder(ref.ID); err != nil {
		return fmt.Errorf("cancel order %s: %w", ref.ID, err)
	}
	log.WithFields(log.Fields{"order_id": ref.ID, "symbol": ref.Symbol}).Info("order cancelled")
	return nil
}

func (a *Alpaca) OpenPositions(ctx context.Context) ([]Position, error) {
	positions, err := a.trading.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("fetch open positions: %w", err)
	}
	result := make([]Position, 0, len(positions))
	for _, pos := range positions {
		result = append(result, Position{
			Symbol: pos.Symbol,
			Qty:    int(pos.Qty.IntPart()),
		})
	}
	return result, nil
}

// Disconnect is a no-op for the stateless REST session.
func (a *Alpaca) Disconnect() error {
	log.Info("broker session released")
	return nil
}

// waitForFill polls the order until it is fully filled or the timeout
// elapses. A partial fill at the deadline is an error, not a fill.
func (a *Alpaca) waitForFill(ctx context.Context, orderID string) (float64, error) {
	deadline := time.Now().Add(a.fillTimeout)
	for {
		order, err := a.trading.GetOrder(orderID)
		if err != nil {
			return 0, fmt.Errorf("poll order %s: %w", orderID, err)
		}
		if fill, ok := fillPrice(order); ok {
			return fill, nil
		}
		if time.Now().After(deadline) {
			return 0, fmt.Errorf("order %s not filled within %s (status %s)", orderID, a.fillTimeout, order.Status)
		}
		if err := WaitForContext(ctx, a.fillPoll); err != nil {
			return 0, err
		}
	}
}

// fillPrice reports the average fill price once the order has fully filled.
// A non-nil FilledAvgPrice alone is not enough: a partially filled order
// carries one too, and a bracket sized off it would oversell.
func fillPrice(order *alpaca.Order) (float64, bool) {
	if order == nil || order.Status != "filled" || order.FilledAvgPrice == nil {
		return 0, false
	}
	fill, _ := order.FilledAvgPrice.Float64()
	return fill, true
}

func (a *Alpaca) nextClientOrderID(prefix string) string {
	seq := atomic.AddUint64(&a.orderSeq, 1)
	return fmt.Sprintf("%s-%d", prefix, seq)
}

func alpacaSide(side Side) alpaca.Side {
	if side == Sell {
		return alpaca.Sell
	}
	return alpaca.Buy
}
