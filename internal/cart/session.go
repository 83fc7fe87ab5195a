package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lightbikeshop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/lightbikeshop/storefront-backend/pkg/errors"
	"github.com/lightbikeshop/storefront-backend/pkg/money"
	"github.com/lightbikeshop/storefront-backend/pkg/redis"
)

// sessionStore is the slice of the redis client the session cart needs.
type sessionStore interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGet(ctx context.Context, key, field string) (string, error)
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
	HDel(ctx context.Context, key string, fields ...string) error
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	SessionCartKey(sessionID string) string
	SessionPromoKey(sessionID string) string
}

// PromoSource resolves the promo id stored in the session.
type PromoSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.PromoCode, error)
}

// SessionCart is the anonymous cart stored in a redis hash of
// variant id -> quantity plus a promo id key, both on the session TTL.
// Each session is single-owner so no cross-request locking is needed.
type SessionCart struct {
	sessionID string
	store     sessionStore
	variants  VariantSource
	promos    PromoSource
	ttl       time.Duration
	now       func() time.Time
}

// NewSessionCart builds a cart bound to the anonymous session.
func NewSessionCart(store sessionStore, variants VariantSource, promos PromoSource, sessionID string, ttl time.Duration) (*SessionCart, error) {
	if store == nil {
		return nil, fmt.Errorf("session store required")
	}
	if variants == nil {
		return nil, fmt.Errorf("variant source required")
	}
	if promos == nil {
		return nil, fmt.Errorf("promo source required")
	}
	if sessionID == "" {
		return nil, fmt.Errorf("session id required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("ttl must be positive")
	}
	return &SessionCart{
		sessionID: sessionID,
		store:     store,
		variants:  variants,
		promos:    promos,
		ttl:       ttl,
		now:       time.Now,
	}, nil
}

func (c *SessionCart) AddLine(ctx context.Context, variantID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	variant, err := c.variants.FindByID(ctx, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return fmt.Errorf("loading variant: %w", err)
	}
	if !variant.IsActive {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant is not available")
	}

	key := c.store.SessionCartKey(c.sessionID)
	if _, err := c.store.HIncrBy(ctx, key, variantID.String(), int64(qty)); err != nil {
		return fmt.Errorf("incrementing cart line: %w", err)
	}
	return c.touch(ctx)
}

func (c *SessionCart) RemoveLine(ctx context.Context, variantID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	key := c.store.SessionCartKey(c.sessionID)
	current, err := c.lineQuantity(ctx, variantID)
	if err != nil {
		return err
	}
	if current == 0 {
		return nil
	}

	if current-qty <= 0 {
		if err := c.store.HDel(ctx, key, variantID.String()); err != nil {
			return fmt.Errorf("deleting cart line: %w", err)
		}
		return c.touch(ctx)
	}

	if _, err := c.store.HIncrBy(ctx, key, variantID.String(), int64(-qty)); err != nil {
		return fmt.Errorf("decrementing cart line: %w", err)
	}
	return c.touch(ctx)
}

func (c *SessionCart) Lines(ctx context.Context) ([]Line, error) {
	raw, err := c.store.HGetAll(ctx, c.store.SessionCartKey(c.sessionID))
	if err != nil {
		return nil, fmt.Errorf("reading session cart: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	quantities := make(map[uuid.UUID]int, len(raw))
	ids := make([]uuid.UUID, 0, len(raw))
	for field, value := range raw {
		variantID, err := uuid.Parse(field)
		if err != nil {
			continue
		}
		qty, err := strconv.Atoi(value)
		if err != nil || qty <= 0 {
			continue
		}
		quantities[variantID] = qty
		ids = append(ids, variantID)
	}

	variants, err := c.variants.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading variants: %w", err)
	}

	lines := make([]Line, 0, len(variants))
	for _, variant := range variants {
		qty := quantities[variant.ID]
		if qty == 0 {
			continue
		}
		lines = append(lines, Line{
			VariantID: variant.ID,
			SKU:       variant.SKU,
			Title:     variant.Title,
			UnitPrice: variant.Price,
			Quantity:  qty,
		})
	}
	return lines, nil
}

func (c *SessionCart) LineQuantity(ctx context.Context, variantID uuid.UUID) (int, error) {
	return c.lineQuantity(ctx, variantID)
}

func (c *SessionCart) Subtotal(ctx context.Context) (money.Money, error) {
	lines, err := c.Lines(ctx)
	if err != nil {
		return money.Zero, err
	}
	return subtotalOf(lines), nil
}

func (c *SessionCart) Discount(ctx context.Context) (money.Money, error) {
	p, err := c.Promo(ctx)
	if err != nil {
		return money.Zero, err
	}
	subtotal, err := c.Subtotal(ctx)
	if err != nil {
		return money.Zero, err
	}
	// anonymous: no user identity, per-user limits are exempt
	return discountFor(ctx, p, subtotal, nil, nil, c.now())
}

func (c *SessionCart) Total(ctx context.Context) (money.Money, error) {
	subtotal, err := c.Subtotal(ctx)
	if err != nil {
		return money.Zero, err
	}
	discount, err := c.Discount(ctx)
	if err != nil {
		return money.Zero, err
	}
	return totalOf(subtotal, discount), nil
}

func (c *SessionCart) Promo(ctx context.Context) (*models.PromoCode, error) {
	raw, err := c.store.Get(ctx, c.store.SessionPromoKey(c.sessionID))
	if err != nil {
		if errors.Is(err, redis.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session promo: %w", err)
	}

	promoID, err := uuid.Parse(raw)
	if err != nil {
		return nil, nil
	}

	p, err := c.promos.FindByID(ctx, promoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading promo: %w", err)
	}
	return p, nil
}

func (c *SessionCart) ApplyPromo(ctx context.Context, p *models.PromoCode) error {
	if p == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "promo code required")
	}

	subtotal, err := c.Subtotal(ctx)
	if err != nil {
		return err
	}

	ok, reason, err := evaluatePromo(ctx, p, subtotal, nil, nil, c.now())
	if err != nil {
		return err
	}
	if !ok {
		return &PromoInapplicableError{Reason: reason}
	}

	return c.store.Set(ctx, c.store.SessionPromoKey(c.sessionID), p.ID.String(), c.ttl)
}

func (c *SessionCart) RemovePromo(ctx context.Context) error {
	return c.store.Del(ctx, c.store.SessionPromoKey(c.sessionID))
}

// Clear drops both the line hash and the promo key.
func (c *SessionCart) Clear(ctx context.Context) error {
	return c.store.Del(ctx,
		c.store.SessionCartKey(c.sessionID),
		c.store.SessionPromoKey(c.sessionID),
	)
}

// SessionID reports the owning session.
func (c *SessionCart) SessionID() string {
	return c.sessionID
}

func (c *SessionCart) lineQuantity(ctx context.Context, variantID uuid.UUID) (int, error) {
	raw, err := c.store.HGet(ctx, c.store.SessionCartKey(c.sessionID), variantID.String())
	if err != nil {
		if errors.Is(err, redis.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading cart line: %w", err)
	}
	qty, err := strconv.Atoi(raw)
	if err != nil {
		return 0, nil
	}
	return qty, nil
}

// touch refreshes the cart TTL after a mutation.
func (c *SessionCart) touch(ctx context.Context) error {
	if err := c.store.Expire(ctx, c.store.SessionCartKey(c.sessionID), c.ttl); err != nil {
		return fmt.Errorf("refreshing cart ttl: %w", err)
	}
	return nil
}
