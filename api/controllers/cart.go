package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lightbikeshop/storefront-backend/api/middleware"
	"github.com/lightbikeshop/storefront-backend/api/responses"
	"github.com/lightbikeshop/storefront-backend/api/validators"
	cartsvc "github.com/lightbikeshop/storefront-backend/internal/cart"
	"github.com/lightbikeshop/storefront-backend/pkg/db"
	"github.com/lightbikeshop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/lightbikeshop/storefront-backend/pkg/errors"
	"github.com/lightbikeshop/storefront-backend/pkg/logger"
	"github.com/lightbikeshop/storefront-backend/pkg/metrics"
	"github.com/lightbikeshop/storefront-backend/pkg/redis"
)

// CartResolver picks the cart implementation for a request: signed-in
// shoppers get the database-backed cart, guests get the Redis session
// cart keyed by their session id.
type CartResolver struct {
	DB         *db.Client
	Carts      cartsvc.Repository
	Variants   cartsvc.VariantSource
	Usage      cartsvc.PromoUsageCounter
	Promos     cartsvc.PromoSource
	Redis      *redis.Client
	SessionTTL time.Duration
}

// Resolve returns the cart bound to the request's identity, plus the
// checkout source label used for metrics.
func (cr *CartResolver) Resolve(r *http.Request) (cartsvc.Cart, string, error) {
	if userID := middleware.UserIDFromContext(r.Context()); userID != nil {
		c, err := cartsvc.NewPersistentCart(cr.DB, cr.Carts, cr.Variants, cr.Usage, *userID)
		if err != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build persistent cart")
		}
		return c, "persistent", nil
	}

	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	c, err := cartsvc.NewSessionCart(cr.Redis, cr.Variants, cr.Promos, sessionID, cr.SessionTTL)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build session cart")
	}
	return c, "session", nil
}

// CartLineDTO is the priced view of one cart position.
type CartLineDTO struct {
	VariantID uuid.UUID `json:"variant_id"`
	SKU       string    `json:"sku"`
	Title     string    `json:"title"`
	UnitPrice string    `json:"unit_price"`
	Quantity  int       `json:"quantity"`
	LineTotal string    `json:"line_total"`
}

// CartDTO carries the lines together with the lazily evaluated totals.
type CartDTO struct {
	Lines     []CartLineDTO `json:"lines"`
	PromoCode *string       `json:"promo_code"`
	Subtotal  string        `json:"subtotal"`
	Discount  string        `json:"discount"`
	Total     string        `json:"total"`
}

func newCartDTO(ctx context.Context, c cartsvc.Cart) (*CartDTO, error) {
	lines, err := c.Lines(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart lines")
	}
	subtotal, err := c.Subtotal(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "compute subtotal")
	}
	discount, err := c.Discount(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "compute discount")
	}
	total, err := c.Total(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "compute total")
	}

	dto := &CartDTO{
		Lines:    make([]CartLineDTO, len(lines)),
		Subtotal: subtotal.String(),
		Discount: discount.String(),
		Total:    total.String(),
	}
	for i, line := range lines {
		dto.Lines[i] = CartLineDTO{
			VariantID: line.VariantID,
			SKU:       line.SKU,
			Title:     line.Title,
			UnitPrice: line.UnitPrice.String(),
			Quantity:  line.Quantity,
			LineTotal: line.UnitPrice.MulInt(line.Quantity).String(),
		}
	}

	if p, err := c.Promo(ctx); err == nil && p != nil {
		code := p.Code
		dto.PromoCode = &code
	}
	return dto, nil
}

// CartFetch returns the cart with its current totals.
func CartFetch(resolver *CartResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, _, err := resolver.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := newCartDTO(r.Context(), c)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// CartLineRequest mutates a single cart position by delta quantity.
type CartLineRequest struct {
	VariantID uuid.UUID `json:"variant_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// mutateLine runs a cart line mutation, retrying once when the write
// lost a row-lock race (rapid double-click on "add to cart"). A second
// loss surfaces as a retryable conflict for the client.
func mutateLine(fn func() error) error {
	err := fn()
	if err != nil && db.IsLockConflict(err) {
		err = fn()
	}
	if err != nil && db.IsLockConflict(err) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart is busy, please retry")
	}
	return err
}

// CartAddLine increases the quantity of a variant in the cart.
func CartAddLine(resolver *CartResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, _, err := resolver.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body CartLineRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := mutateLine(func() error {
			return c.AddLine(r.Context(), body.VariantID, body.Quantity)
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := newCartDTO(r.Context(), c)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// CartRemoveLine decreases the quantity of a variant, removing the line
// when it reaches zero. Removing an absent variant is a no-op.
func CartRemoveLine(resolver *CartResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, _, err := resolver.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body CartLineRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := mutateLine(func() error {
			return c.RemoveLine(r.Context(), body.VariantID, body.Quantity)
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := newCartDTO(r.Context(), c)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// CartPromoRequest names the promo code to attach.
type CartPromoRequest struct {
	Code string `json:"code" validate:"required,min=1,max=64"`
}

// CartApplyPromo looks up the code and attaches it when the policy
// allows. Rejections keep whatever promo was already on the cart.
func CartApplyPromo(resolver *CartResolver, promos promoFinder, m *metrics.CheckoutMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, _, err := resolver.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body CartPromoRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		p, err := promos.FindByCode(r.Context(), body.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "promo code not found"))
			return
		}

		if err := c.ApplyPromo(r.Context(), p); err != nil {
			var inapplicable *cartsvc.PromoInapplicableError
			if errors.As(err, &inapplicable) {
				m.IncPromoRejection(string(inapplicable.Reason))
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeStateConflict, "promo not applicable").
						WithDetails(map[string]string{"reason": string(inapplicable.Reason)}))
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := newCartDTO(r.Context(), c)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// CartRemovePromo detaches the promo reference, if any.
func CartRemovePromo(resolver *CartResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, _, err := resolver.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := c.RemovePromo(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := newCartDTO(r.Context(), c)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

type promoFinder interface {
	FindByCode(ctx context.Context, code string) (*models.PromoCode, error)
}
