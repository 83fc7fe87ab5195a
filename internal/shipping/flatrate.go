package shipping

import (
	"context"
	"fmt"

	"github.com/lightbikeshop/storefront-backend/pkg/money"
)

// Quoter supplies the shipping total that checkout adds on top of the
// goods total. Shipping is never distributed across order lines.
type Quoter interface {
	Quote(ctx context.Context) (money.Money, error)
}

// FlatRate quotes one configured amount for every order.
type FlatRate struct {
	rate money.Money
}

// NewFlatRate builds a quoter for the configured rate.
func NewFlatRate(rate money.Money) (*FlatRate, error) {
	if rate.IsNegative() {
		return nil, fmt.Errorf("shipping rate cannot be negative")
	}
	return &FlatRate{rate: rate}, nil
}

func (f *FlatRate) Quote(ctx context.Context) (money.Money, error) {
	return f.rate, nil
}
