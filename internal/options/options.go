package options

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"optbot/internal/signal"
)

type Right string

const (
	Call Right = "CALL"
	Put  Right = "PUT"
)

// DefaultVenue routes orders to the broker's smart router.
const DefaultVenue = "SMART"

// Contract identifies a single listed option.
type Contract struct {
	Symbol string
	Expiry time.Time // calendar date, zero time-of-day
	Strike int
	Right  Right
	Venue  string
}

// Params controls strike and expiry selection.
type Params struct {
	OTMThreshold float64
	DaysAhead    int
	Loc          *time.Location
}

// Select maps a breakout direction and reference price to a slightly
// out-of-the-money contract: the nearest whole strike beyond the price, or
// the floor(price)±1 fallback when that candidate sits farther from the
// price than the OTM threshold. Up buys a call, down buys a put.
func Select(symbol string, dir signal.Direction, price float64, now time.Time, p Params) Contract {
	var strike int
	if dir == signal.Up {
		strike = int(math.Ceil(price))
	} else {
		strike = int(math.Floor(price))
	}

	distance := decimal.NewFromInt(int64(strike)).Sub(decimal.NewFromFloat(price)).Abs()
	if distance.GreaterThan(decimal.NewFromFloat(p.OTMThreshold)) {
		if dir == signal.Up {
			strike = int(math.Floor(price)) + 1
		} else {
			strike = int(math.Floor(price)) - 1
		}
	}

	right := Put
	if dir == signal.Up {
		right = Call
	}

	local := now.In(p.Loc)
	expiry := time.Date(local.Year(), local.Month(), local.Day()+p.DaysAhead, 0, 0, 0, 0, time.UTC)

	return Contract{
		Symbol: symbol,
		Expiry: expiry,
		Strike: strike,
		Right:  right,
		Venue:  DefaultVenue,
	}
}

// OCCSymbol renders the contract in OCC symbology, e.g. SPY260902C00402000.
func (c Contract) OCCSymbol() string {
	return fmt.Sprintf("%s%s%s%08d", c.Symbol, c.Expiry.Format("060102"), string(c.Right[0]), c.Strike*1000)
}

func (c Contract) String() string {
	return fmt.Sprintf("%s %s %d %s", c.Symbol, c.Expiry.Format("2006-01-02"), c.Strike, c.Right)
}
