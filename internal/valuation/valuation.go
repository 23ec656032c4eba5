package valuation

import "github.com/shopspring/decimal"

// Strategy converts a unit price and a share quantity into a monetary
// total. Implementations are pure and use exact decimal arithmetic.
type Strategy interface {
	Calculate(price decimal.Decimal, quantity int64) decimal.Decimal
}

// Plain values a trade at price * quantity. Sell proceeds use it.
type Plain struct{}

func (Plain) Calculate(price decimal.Decimal, quantity int64) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(quantity))
}

// Fee adds a fixed percentage surcharge on top of the plain total.
// Buy costs use it; the fee is charged to the buyer, never deducted
// from a seller.
type Fee struct {
	Rate decimal.Decimal
}

func (f Fee) Calculate(price decimal.Decimal, quantity int64) decimal.Decimal {
	base := price.Mul(decimal.NewFromInt(quantity))
	return base.Add(base.Mul(f.Rate))
}
