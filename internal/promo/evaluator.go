package promo

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lightbikeshop/storefront-backend/pkg/db/models"
	"github.com/lightbikeshop/storefront-backend/pkg/enums"
	"github.com/lightbikeshop/storefront-backend/pkg/money"
)

// Reason identifies why a promo code cannot be applied.
type Reason string

const (
	ReasonInactive            Reason = "inactive"
	ReasonOutOfWindow         Reason = "out_of_window"
	ReasonUsageLimitReached   Reason = "usage_limit_reached"
	ReasonBelowMinimum        Reason = "below_minimum"
	ReasonPerUserLimitReached Reason = "per_user_limit_reached"
)

// CanApply evaluates promo applicability against the current subtotal.
// It has no side effects; used_count moves only at successful checkout.
// userUses is the number of prior orders the user placed with this promo;
// pass nil for anonymous sessions, which are exempt from per-user limits.
func CanApply(p *models.PromoCode, subtotal money.Money, now time.Time, userUses *int) (bool, Reason) {
	if p == nil {
		return false, ReasonInactive
	}
	if !p.IsActive {
		return false, ReasonInactive
	}
	if !withinWindow(p, now) {
		return false, ReasonOutOfWindow
	}
	if p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit {
		return false, ReasonUsageLimitReached
	}
	if p.MinOrderTotal != nil && !p.MinOrderTotal.IsZero() && subtotal.LessThan(*p.MinOrderTotal) {
		return false, ReasonBelowMinimum
	}
	if p.PerUserLimit != nil && *p.PerUserLimit > 0 && userUses != nil && *userUses >= *p.PerUserLimit {
		return false, ReasonPerUserLimitReached
	}
	return true, ""
}

// CalculateDiscount computes the discount for the subtotal, rounded
// half-up to 2 places. The result is never negative and never exceeds
// the subtotal.
func CalculateDiscount(p *models.PromoCode, subtotal money.Money) money.Money {
	if subtotal.IsNegative() {
		subtotal = money.Zero
	}
	if p.DiscountType == enums.DiscountTypePercent {
		pct := money.Min(money.Max(p.Amount, money.Zero), hundred)
		raw := subtotal.Decimal().Mul(pct.Decimal()).Div(decimal.NewFromInt(100))
		return money.New(raw).Round2()
	}
	// fixed amount, capped at the subtotal
	return money.Max(money.Zero, money.Min(p.Amount, subtotal)).Round2()
}

var hundred = money.MustFromString("100")

func withinWindow(p *models.PromoCode, now time.Time) bool {
	if p.StartsAt != nil && now.Before(*p.StartsAt) {
		return false
	}
	if p.EndsAt != nil && now.After(*p.EndsAt) {
		return false
	}
	return true
}
