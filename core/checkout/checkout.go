// Package checkout derives the amount charged for a cart.
package checkout

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/irsalhamdi/e-commerce-storefront/core/money"
)

var ErrInvalidAmount = errors.New("invalid order amount")

// Item is a priced line. Price is expressed in minor units and may carry a
// fractional part; rounding happens once, on the sum.
type Item struct {
	ProductID string          `json:"productId"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type Amount struct {
	Total int64 `json:"total"`
	Fee   int64 `json:"fee"`
}

func CalculateOrderAmount(items []Item, rate decimal.Decimal) (Amount, error) {
	if err := money.CheckRate(rate); err != nil {
		return Amount{}, ErrInvalidAmount
	}

	sum := decimal.Zero
	for _, it := range items {
		if it.Price.IsNegative() || it.Quantity < 0 {
			return Amount{}, ErrInvalidAmount
		}
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	total := sum.RoundBank(0)
	if !total.IsPositive() {
		return Amount{}, ErrInvalidAmount
	}
	if !total.BigInt().IsInt64() {
		return Amount{}, ErrInvalidAmount
	}

	t := total.IntPart()
	return Amount{Total: t, Fee: money.Fee(t, rate)}, nil
}
