package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lightbikeshop/storefront-backend/internal/cart"
	"github.com/lightbikeshop/storefront-backend/internal/checkout/allocation"
	"github.com/lightbikeshop/storefront-backend/internal/orders"
	"github.com/lightbikeshop/storefront-backend/internal/pricing"
	"github.com/lightbikeshop/storefront-backend/internal/promo"
	"github.com/lightbikeshop/storefront-backend/internal/shipping"
	"github.com/lightbikeshop/storefront-backend/pkg/db/models"
	"github.com/lightbikeshop/storefront-backend/pkg/enums"
	pkgerrors "github.com/lightbikeshop/storefront-backend/pkg/errors"
	"github.com/lightbikeshop/storefront-backend/pkg/logger"
	"github.com/lightbikeshop/storefront-backend/pkg/metrics"
	"github.com/lightbikeshop/storefront-backend/pkg/money"
)

// attempts at drawing an unused order code before giving up
const maxCodeAttempts = 5

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// txClearer is implemented by carts whose wipe must join the checkout
// transaction. Session carts clear after commit instead.
type txClearer interface {
	ClearWithin(ctx context.Context, tx *gorm.DB) error
}

// Input carries the identity and provenance of a checkout attempt.
type Input struct {
	UserID *uuid.UUID
	Source string // "persistent" or "session", for metrics
}

// Service turns a cart into an immutable order in one transaction.
type Service interface {
	Checkout(ctx context.Context, c cart.Cart, input Input) (*models.Order, error)
}

type service struct {
	tx       txRunner
	orders   orders.Repository
	promos   promo.Repository
	shipping shipping.Quoter
	minTotal money.Money
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the checkout service.
func NewService(tx txRunner, orderRepo orders.Repository, promoRepo promo.Repository, quoter shipping.Quoter, minTotal money.Money, m *metrics.CheckoutMetrics, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if promoRepo == nil {
		return nil, fmt.Errorf("promo repository required")
	}
	if quoter == nil {
		return nil, fmt.Errorf("shipping quoter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:       tx,
		orders:   orderRepo,
		promos:   promoRepo,
		shipping: quoter,
		minTotal: minTotal,
		metrics:  m,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Checkout validates the cart, allocates line amounts, persists the
// order and clears the cart inside one transaction. Any failure,
// including an impossible allocation, leaves no partial order behind.
func (s *service) Checkout(ctx context.Context, c cart.Cart, input Input) (*models.Order, error) {
	started := s.now()
	defer func() {
		s.metrics.ObserveDuration(input.Source, time.Since(started))
	}()

	order, err := s.checkout(ctx, c, input)
	if err != nil {
		s.metrics.IncFailure(input.Source, failureReason(err))
		return nil, err
	}

	s.metrics.IncSuccess(input.Source)
	ctx = s.logg.WithOrderCode(ctx, order.Code)
	s.logg.Info(ctx, "checkout completed")
	return order, nil
}

func (s *service) checkout(ctx context.Context, c cart.Cart, input Input) (*models.Order, error) {
	lines, err := c.Lines(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading cart lines: %w", err)
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	quote, err := pricing.Compute(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("computing totals: %w", err)
	}

	shippingTotal, err := s.shipping.Quote(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "quoting shipping")
	}

	total := quote.GoodsTotal().Add(shippingTotal)
	if total.LessThan(s.minTotal) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total is below the payable minimum")
	}

	attachedPromo, err := c.Promo(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading promo: %w", err)
	}
	// the promo is consumed only when it actually discounted the order
	promoApplied := attachedPromo != nil && !quote.Discount.IsZero()

	allocationLines := make([]allocation.Line, len(lines))
	for i, line := range lines {
		allocationLines[i] = allocation.Line{
			VariantID: line.VariantID,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
		}
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)

		code, err := s.drawOrderCode(ctx, orderRepo)
		if err != nil {
			return err
		}
		accessKey, err := orders.GenerateAccessKey()
		if err != nil {
			return err
		}

		allocated, err := allocation.AllocateLines(allocationLines, quote.Subtotal, quote.GoodsTotal())
		if err != nil {
			if errors.Is(err, allocation.ErrAllocationImpossible) {
				s.metrics.IncAllocationFailure()
				return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "order amount cannot be split across items")
			}
			return fmt.Errorf("allocating lines: %w", err)
		}

		record := &models.Order{
			ID:            uuid.New(),
			Code:          code,
			AccessKey:     accessKey,
			UserID:        input.UserID,
			Status:        enums.OrderStatusCreated,
			Currency:      enums.DefaultCurrency,
			Subtotal:      quote.Subtotal.Round2(),
			DiscountTotal: quote.Discount.Round2(),
			ShippingTotal: shippingTotal.Round2(),
			Total:         total.Round2(),
		}
		if promoApplied {
			record.PromoCodeID = &attachedPromo.ID
		}

		created, err := orderRepo.Create(ctx, record)
		if err != nil {
			return fmt.Errorf("creating order: %w", err)
		}

		items := make([]models.OrderItem, len(allocated))
		for i, a := range allocated {
			items[i] = models.OrderItem{
				ID:        uuid.New(),
				OrderID:   created.ID,
				VariantID: a.VariantID,
				Price:     a.Price,
				Quantity:  a.Quantity,
				Amount:    a.Amount,
			}
		}
		if err := orderRepo.CreateItems(ctx, items); err != nil {
			return fmt.Errorf("creating order items: %w", err)
		}
		created.Items = items

		if promoApplied {
			if err := s.promos.WithTx(tx).IncrementUsage(ctx, attachedPromo.ID); err != nil {
				if errors.Is(err, promo.ErrUsageExhausted) {
					return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "promo code is no longer available")
				}
				return fmt.Errorf("incrementing promo usage: %w", err)
			}
		}

		if clearer, ok := c.(txClearer); ok {
			if err := clearer.ClearWithin(ctx, tx); err != nil {
				return fmt.Errorf("clearing cart: %w", err)
			}
		}

		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	// session carts are single-owner; clearing after commit cannot race
	// another request into a partial order
	if _, ok := c.(txClearer); !ok {
		if err := c.Clear(ctx); err != nil {
			s.logg.Error(ctx, "clearing session cart after checkout", err)
		}
	}

	return order, nil
}

func (s *service) drawOrderCode(ctx context.Context, repo orders.Repository) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := orders.GenerateOrderCode()
		if err != nil {
			return "", err
		}
		exists, err := repo.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("checking order code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeInternal, "could not generate a unique order code")
}

func failureReason(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeValidation:
			return "validation"
		case pkgerrors.CodeStateConflict:
			return "state_conflict"
		case pkgerrors.CodeDependency:
			return "dependency"
		}
	}
	return "internal"
}
