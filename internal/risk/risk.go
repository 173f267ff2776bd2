package risk

import (
	"github.com/shopspring/decimal"
)

// ContractMultiplier is the standard US option deliverable size.
const ContractMultiplier = 100

// Sizer converts a fixed notional budget into a whole contract quantity.
type Sizer struct {
	BudgetUSD float64
}

// ContractQty floors the budget over the contract notional at the reference
// price. A non-positive price sizes to 0; callers treat 0 as "skip this
// symbol", not an error.
func (s Sizer) ContractQty(price float64) int {
	if price <= 0 {
		return 0
	}
	notional := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(ContractMultiplier))
	qty := decimal.NewFromFloat(s.BudgetUSD).Div(notional).IntPart()
	if qty < 0 {
		return 0
	}
	return int(qty)
}
