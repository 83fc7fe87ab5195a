package pricing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightbikeshop/storefront-backend/internal/cart"
	"github.com/lightbikeshop/storefront-backend/pkg/db/models"
	"github.com/lightbikeshop/storefront-backend/pkg/money"
)

// cartStub satisfies cart.Cart with fixed totals.
type cartStub struct {
	subtotal money.Money
	discount money.Money
}

func (s *cartStub) Lines(ctx context.Context) ([]cart.Line, error) { return nil, nil }
func (s *cartStub) LineQuantity(ctx context.Context, variantID uuid.UUID) (int, error) {
	return 0, nil
}
func (s *cartStub) AddLine(ctx context.Context, variantID uuid.UUID, qty int) error    { return nil }
func (s *cartStub) RemoveLine(ctx context.Context, variantID uuid.UUID, qty int) error { return nil }
func (s *cartStub) Subtotal(ctx context.Context) (money.Money, error) {
	return s.subtotal, nil
}
func (s *cartStub) Discount(ctx context.Context) (money.Money, error) {
	return s.discount, nil
}
func (s *cartStub) Total(ctx context.Context) (money.Money, error) {
	return money.Max(money.Zero, s.subtotal.Sub(s.discount)), nil
}
func (s *cartStub) Promo(ctx context.Context) (*models.PromoCode, error)  { return nil, nil }
func (s *cartStub) ApplyPromo(ctx context.Context, p *models.PromoCode) error { return nil }
func (s *cartStub) RemovePromo(ctx context.Context) error                 { return nil }
func (s *cartStub) Clear(ctx context.Context) error                       { return nil }

func TestComputeQuote(t *testing.T) {
	t.Parallel()

	quote, err := Compute(context.Background(), &cartStub{
		subtotal: money.MustFromString("63.33"),
		discount: money.MustFromString("6.33"),
	})
	require.NoError(t, err)

	assert.Equal(t, "63.33", quote.Subtotal.String())
	assert.Equal(t, "6.33", quote.Discount.String())
	assert.Equal(t, "57.00", quote.Total.String())
	assert.Equal(t, "57.00", quote.GoodsTotal().String())
}

func TestComputeQuoteNeverNegative(t *testing.T) {
	t.Parallel()

	quote, err := Compute(context.Background(), &cartStub{
		subtotal: money.MustFromString("10.00"),
		discount: money.MustFromString("10.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "0.00", quote.Total.String())
}
