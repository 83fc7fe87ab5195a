package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lightbikeshop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/lightbikeshop/storefront-backend/pkg/errors"
	"github.com/lightbikeshop/storefront-backend/pkg/money"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PersistentCart is the per-user cart backed by Postgres. Line mutation
// runs in a transaction holding a row lock on the touched line.
type PersistentCart struct {
	userID   uuid.UUID
	tx       txRunner
	repo     Repository
	variants VariantSource
	usage    PromoUsageCounter
	now      func() time.Time
}

// NewPersistentCart builds a cart bound to the authenticated user.
func NewPersistentCart(tx txRunner, repo Repository, variants VariantSource, usage PromoUsageCounter, userID uuid.UUID) (*PersistentCart, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if variants == nil {
		return nil, fmt.Errorf("variant source required")
	}
	if usage == nil {
		return nil, fmt.Errorf("promo usage counter required")
	}
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id required")
	}
	return &PersistentCart{
		userID:   userID,
		tx:       tx,
		repo:     repo,
		variants: variants,
		usage:    usage,
		now:      time.Now,
	}, nil
}

func (c *PersistentCart) AddLine(ctx context.Context, variantID uuid.UUID, qty int) error {
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

	return c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := c.repo.WithTx(tx)
		record, err := repo.GetOrCreateByUser(ctx, c.userID)
		if err != nil {
			return fmt.Errorf("loading cart: %w", err)
		}

		item, err := repo.FindItemForUpdate(ctx, record.ID, variantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repo.CreateItem(ctx, &models.CartItem{
					ID:        uuid.New(),
					CartID:    record.ID,
					VariantID: variantID,
					Quantity:  qty,
				})
			}
			return fmt.Errorf("locking cart line: %w", err)
		}
		return repo.UpdateItemQuantity(ctx, item.ID, item.Quantity+qty)
	})
}

// RemoveLine decrements the line by qty and deletes it at zero or below.
// A missing cart or line is a no-op.
func (c *PersistentCart) RemoveLine(ctx context.Context, variantID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	return c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := c.repo.WithTx(tx)
		record, err := repo.FindByUser(ctx, c.userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("loading cart: %w", err)
		}

		item, err := repo.FindItemForUpdate(ctx, record.ID, variantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("locking cart line: %w", err)
		}

		remaining := item.Quantity - qty
		if remaining <= 0 {
			return repo.DeleteItem(ctx, item.ID)
		}
		return repo.UpdateItemQuantity(ctx, item.ID, remaining)
	})
}

func (c *PersistentCart) Lines(ctx context.Context) ([]Line, error) {
	record, err := c.record(ctx)
	if err != nil || record == nil {
		return nil, err
	}

	lines := make([]Line, 0, len(record.Items))
	for _, item := range record.Items {
		if item.Variant == nil {
			// variant removed from the catalog since it was added
			continue
		}
		lines = append(lines, Line{
			VariantID: item.VariantID,
			SKU:       item.Variant.SKU,
			Title:     item.Variant.Title,
			UnitPrice: item.Variant.Price,
			Quantity:  item.Quantity,
		})
	}
	return lines, nil
}

func (c *PersistentCart) LineQuantity(ctx context.Context, variantID uuid.UUID) (int, error) {
	record, err := c.record(ctx)
	if err != nil || record == nil {
		return 0, err
	}
	for _, item := range record.Items {
		if item.VariantID == variantID {
			return item.Quantity, nil
		}
	}
	return 0, nil
}

func (c *PersistentCart) Subtotal(ctx context.Context) (money.Money, error) {
	lines, err := c.Lines(ctx)
	if err != nil {
		return money.Zero, err
	}
	return subtotalOf(lines), nil
}

func (c *PersistentCart) Discount(ctx context.Context) (money.Money, error) {
	record, err := c.record(ctx)
	if err != nil || record == nil {
		return money.Zero, err
	}

	lines, err := c.Lines(ctx)
	if err != nil {
		return money.Zero, err
	}
	return discountFor(ctx, record.PromoCode, subtotalOf(lines), &c.userID, c.usage, c.now())
}

func (c *PersistentCart) Total(ctx context.Context) (money.Money, error) {
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

func (c *PersistentCart) Promo(ctx context.Context) (*models.PromoCode, error) {
	record, err := c.record(ctx)
	if err != nil || record == nil {
		return nil, err
	}
	return record.PromoCode, nil
}

// ApplyPromo validates the promo against the current subtotal and stores
// the reference. On rejection the existing reference stays as-is and a
// PromoInapplicableError is returned.
func (c *PersistentCart) ApplyPromo(ctx context.Context, p *models.PromoCode) error {
	if p == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "promo code required")
	}

	subtotal, err := c.Subtotal(ctx)
	if err != nil {
		return err
	}

	ok, reason, err := evaluatePromo(ctx, p, subtotal, &c.userID, c.usage, c.now())
	if err != nil {
		return err
	}
	if !ok {
		return &PromoInapplicableError{Reason: reason}
	}

	return c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := c.repo.WithTx(tx)
		record, err := repo.GetOrCreateByUser(ctx, c.userID)
		if err != nil {
			return fmt.Errorf("loading cart: %w", err)
		}
		return repo.SetPromo(ctx, record.ID, &p.ID)
	})
}

func (c *PersistentCart) RemovePromo(ctx context.Context) error {
	record, err := c.record(ctx)
	if err != nil || record == nil {
		return err
	}
	return c.repo.SetPromo(ctx, record.ID, nil)
}

// Clear wipes lines and the promo reference together; checkout only.
func (c *PersistentCart) Clear(ctx context.Context) error {
	return c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := c.repo.WithTx(tx)
		record, err := repo.FindByUser(ctx, c.userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("loading cart: %w", err)
		}
		if err := repo.ClearItems(ctx, record.ID); err != nil {
			return err
		}
		return repo.SetPromo(ctx, record.ID, nil)
	})
}

// ClearWithin wipes the cart inside an already-open transaction; used by
// checkout so the wipe commits or rolls back with the order.
func (c *PersistentCart) ClearWithin(ctx context.Context, tx *gorm.DB) error {
	repo := c.repo.WithTx(tx)
	record, err := repo.FindByUser(ctx, c.userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("loading cart: %w", err)
	}
	if err := repo.ClearItems(ctx, record.ID); err != nil {
		return err
	}
	return repo.SetPromo(ctx, record.ID, nil)
}

// UserID reports the owning user.
func (c *PersistentCart) UserID() uuid.UUID {
	return c.userID
}

func (c *PersistentCart) record(ctx context.Context) (*models.Cart, error) {
	record, err := c.repo.FindByUser(ctx, c.userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading cart: %w", err)
	}
	return record, nil
}
