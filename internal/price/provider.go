// Package price looks up the fiat value of SOL for reporting.
package price

import (
	"context"

	"github.com/shopspring/decimal"
)

type Price struct {
	Currency string          // e.g., USD
	Value    decimal.Decimal // price of 1 SOL in currency
}

// Convert values an amount of SOL in the price's currency, rounded to cents.
func (p Price) Convert(sol decimal.Decimal) decimal.Decimal {
	return sol.Mul(p.Value).Round(2)
}

type PriceProvider interface {
	GetSOLPrice(ctx context.Context, currency string) (Price, error)
	Name() string
}
