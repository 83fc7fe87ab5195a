package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lightbikeshop/storefront-backend/internal/promo"
	"github.com/lightbikeshop/storefront-backend/pkg/db/models"
	"github.com/lightbikeshop/storefront-backend/pkg/money"
)

// Line is one cart position priced at the current catalog price.
type Line struct {
	VariantID uuid.UUID
	SKU       string
	Title     string
	UnitPrice money.Money
	Quantity  int
}

// Cart is the single contract both implementations satisfy. The
// persistent variant is keyed by user, the session variant by an
// anonymous session id; selection happens at the API boundary.
//
// A cart may keep referencing a promo that is no longer applicable.
// Discount re-evaluates applicability against the current subtotal on
// every call and returns zero when the promo fails, without detaching
// the reference.
type Cart interface {
	Lines(ctx context.Context) ([]Line, error)
	LineQuantity(ctx context.Context, variantID uuid.UUID) (int, error)
	AddLine(ctx context.Context, variantID uuid.UUID, qty int) error
	RemoveLine(ctx context.Context, variantID uuid.UUID, qty int) error
	Subtotal(ctx context.Context) (money.Money, error)
	Discount(ctx context.Context) (money.Money, error)
	Total(ctx context.Context) (money.Money, error)
	Promo(ctx context.Context) (*models.PromoCode, error)
	ApplyPromo(ctx context.Context, p *models.PromoCode) error
	RemovePromo(ctx context.Context) error
	Clear(ctx context.Context) error
}

// VariantSource is the read-only catalog lookup both carts depend on.
type VariantSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ProductVariant, error)
}

// PromoUsageCounter reports a user's historical order count with a promo.
type PromoUsageCounter interface {
	CountOrdersByUserAndPromo(ctx context.Context, userID, promoID uuid.UUID) (int, error)
}

// PromoInapplicableError is the soft rejection returned by ApplyPromo.
// The cart's promo reference is left unchanged when it occurs.
type PromoInapplicableError struct {
	Reason promo.Reason
}

func (e *PromoInapplicableError) Error() string {
	return fmt.Sprintf("promo not applicable: %s", e.Reason)
}

func subtotalOf(lines []Line) money.Money {
	sum := money.Zero
	for _, line := range lines {
		sum = sum.Add(line.UnitPrice.MulInt(line.Quantity))
	}
	return sum
}

// evaluatePromo runs the policy check against the current subtotal. The
// per-user count is fetched only when both a user and a per-user limit
// are present; anonymous carts pass userID == nil and are exempt.
func evaluatePromo(ctx context.Context, p *models.PromoCode, subtotal money.Money, userID *uuid.UUID, usage PromoUsageCounter, now time.Time) (bool, promo.Reason, error) {
	var userUses *int
	if p != nil && p.PerUserLimit != nil && userID != nil && usage != nil {
		n, err := usage.CountOrdersByUserAndPromo(ctx, *userID, p.ID)
		if err != nil {
			return false, "", fmt.Errorf("counting promo usage: %w", err)
		}
		userUses = &n
	}
	ok, reason := promo.CanApply(p, subtotal, now, userUses)
	return ok, reason, nil
}

// discountFor computes the lazy, read-time discount: zero when no promo
// is attached or when the promo no longer applies.
func discountFor(ctx context.Context, p *models.PromoCode, subtotal money.Money, userID *uuid.UUID, usage PromoUsageCounter, now time.Time) (money.Money, error) {
	if p == nil {
		return money.Zero, nil
	}
	ok, _, err := evaluatePromo(ctx, p, subtotal, userID, usage, now)
	if err != nil {
		return money.Zero, err
	}
	if !ok {
		return money.Zero, nil
	}
	return promo.CalculateDiscount(p, subtotal), nil
}

func totalOf(subtotal, discount money.Money) money.Money {
	return money.Max(money.Zero, subtotal.Sub(discount))
}
