package pricing

import (
	"context"

	"github.com/lightbikeshop/storefront-backend/internal/cart"
	"github.com/lightbikeshop/storefront-backend/pkg/money"
)

// Quote is the customer-facing totals snapshot for a cart.
type Quote struct {
	Subtotal money.Money `json:"subtotal"`
	Discount money.Money `json:"discount"`
	Total    money.Money `json:"total"`
}

// GoodsTotal is the amount the allocator distributes across lines:
// subtotal minus discount, excluding shipping.
func (q Quote) GoodsTotal() money.Money {
	return q.Subtotal.Sub(q.Discount)
}

// Compute produces the cart's totals. Thin orchestration: all rounding
// already happened inside the cart and the promo evaluator.
func Compute(ctx context.Context, c cart.Cart) (Quote, error) {
	subtotal, err := c.Subtotal(ctx)
	if err != nil {
		return Quote{}, err
	}
	discount, err := c.Discount(ctx)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Subtotal: subtotal,
		Discount: discount,
		Total:    money.Max(money.Zero, subtotal.Sub(discount)),
	}, nil
}
