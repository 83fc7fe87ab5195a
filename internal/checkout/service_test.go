package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lightbikeshop/storefront-backend/internal/cart"
	"github.com/lightbikeshop/storefront-backend/internal/catalog"
	"github.com/lightbikeshop/storefront-backend/internal/orders"
	"github.com/lightbikeshop/storefront-backend/internal/promo"
	"github.com/lightbikeshop/storefront-backend/internal/shipping"
	"github.com/lightbikeshop/storefront-backend/pkg/db/models"
	"github.com/lightbikeshop/storefront-backend/pkg/enums"
	pkgerrors "github.com/lightbikeshop/storefront-backend/pkg/errors"
	"github.com/lightbikeshop/storefront-backend/pkg/logger"
	"github.com/lightbikeshop/storefront-backend/pkg/money"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r *testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL,
  price TEXT NOT NULL,
  inventory INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS promo_codes (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  discount_type TEXT NOT NULL DEFAULT 'percent',
  amount TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  starts_at DATETIME,
  ends_at DATETIME,
  usage_limit INTEGER,
  used_count INTEGER NOT NULL DEFAULT 0,
  per_user_limit INTEGER,
  min_order_total TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  promo_code_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (cart_id, variant_id)
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  access_key TEXT NOT NULL UNIQUE,
  user_id TEXT,
  promo_code_id TEXT,
  status TEXT NOT NULL DEFAULT 'created',
  currency TEXT NOT NULL DEFAULT 'RUB',
  subtotal TEXT NOT NULL,
  discount_total TEXT NOT NULL,
  shipping_total TEXT NOT NULL,
  total TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  price TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  amount TEXT NOT NULL,
  created_at DATETIME
);`,
	}
	for _, ddl := range statements {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

type fixture struct {
	db       *gorm.DB
	userID   uuid.UUID
	cart     *cart.PersistentCart
	service  Service
	orders   orders.Repository
	promos   promo.Repository
	shipping money.Money
	minTotal money.Money
}

func newFixture(t *testing.T, shippingRate, minTotal string) *fixture {
	t.Helper()

	db := setupCheckoutTestDB(t)
	userID := uuid.New()

	persistent, err := cart.NewPersistentCart(
		&testTxRunner{db: db},
		cart.NewRepository(db),
		catalog.NewRepository(db),
		promo.NewRepository(db),
		userID,
	)
	require.NoError(t, err)

	quoter, err := shipping.NewFlatRate(money.MustFromString(shippingRate))
	require.NoError(t, err)

	orderRepo := orders.NewRepository(db)
	promoRepo := promo.NewRepository(db)

	svc, err := NewService(
		&testTxRunner{db: db},
		orderRepo,
		promoRepo,
		quoter,
		money.MustFromString(minTotal),
		nil,
		logger.New(logger.Options{ServiceName: "checkout-test"}),
	)
	require.NoError(t, err)

	return &fixture{
		db:       db,
		userID:   userID,
		cart:     persistent,
		service:  svc,
		orders:   orderRepo,
		promos:   promoRepo,
		shipping: money.MustFromString(shippingRate),
		minTotal: money.MustFromString(minTotal),
	}
}

func (f *fixture) seedVariant(t *testing.T, price string) *models.ProductVariant {
	t.Helper()

	variant := &models.ProductVariant{
		ID:       uuid.New(),
		SKU:      "SKU-" + uuid.NewString()[:8],
		Title:    "Variant",
		Price:    money.MustFromString(price),
		IsActive: true,
	}
	require.NoError(t, f.db.Create(variant).Error)
	return variant
}

func (f *fixture) seedPromo(t *testing.T, p *models.PromoCode) *models.PromoCode {
	t.Helper()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	require.NoError(t, f.db.Create(p).Error)
	return p
}

func TestCheckoutWithPercentPromo(t *testing.T) {
	f := newFixture(t, "5.00", "0.00")
	ctx := context.Background()

	cheap := f.seedVariant(t, "10.00")
	odd := f.seedVariant(t, "33.33")
	require.NoError(t, f.cart.AddLine(ctx, cheap.ID, 3))
	require.NoError(t, f.cart.AddLine(ctx, odd.ID, 1))

	p := f.seedPromo(t, &models.PromoCode{
		Code:         "TEN",
		DiscountType: enums.DiscountTypePercent,
		Amount:       money.MustFromString("10"),
		IsActive:     true,
	})
	require.NoError(t, f.cart.ApplyPromo(ctx, p))

	order, err := f.service.Checkout(ctx, f.cart, Input{UserID: &f.userID, Source: "persistent"})
	require.NoError(t, err)

	assert.Equal(t, "63.33", order.Subtotal.String())
	assert.Equal(t, "6.33", order.DiscountTotal.String())
	assert.Equal(t, "5.00", order.ShippingTotal.String())
	assert.Equal(t, "62.00", order.Total.String())
	assert.Len(t, order.Code, 10)
	assert.NotEmpty(t, order.AccessKey)
	require.NotNil(t, order.PromoCodeID)
	assert.Equal(t, p.ID, *order.PromoCodeID)

	// item amounts carry the discount, shipping never does
	require.Len(t, order.Items, 2)
	sum := int64(0)
	for _, item := range order.Items {
		assert.GreaterOrEqual(t, item.Amount.MinorUnits(), int64(item.Quantity))
		sum += item.Amount.MinorUnits()
	}
	assert.Equal(t, int64(5700), sum)

	// promo usage consumed exactly once
	reloaded, err := f.promos.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.UsedCount)

	// cart wiped: lines and promo together
	lines, err := f.cart.Lines(ctx)
	require.NoError(t, err)
	assert.Empty(t, lines)
	attached, err := f.cart.Promo(ctx)
	require.NoError(t, err)
	assert.Nil(t, attached)
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t, "0.00", "0.00")
	ctx := context.Background()

	_, err := f.service.Checkout(ctx, f.cart, Input{UserID: &f.userID, Source: "persistent"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCheckoutAllocationImpossibleRollsBack(t *testing.T) {
	f := newFixture(t, "0.00", "0.00")
	ctx := context.Background()

	variant := f.seedVariant(t, "25.00")
	require.NoError(t, f.cart.AddLine(ctx, variant.ID, 2))

	// fixed promo eats the whole subtotal, goods total drops to zero
	p := f.seedPromo(t, &models.PromoCode{
		Code:         "EATALL",
		DiscountType: enums.DiscountTypeFixed,
		Amount:       money.MustFromString("100.00"),
		IsActive:     true,
	})
	require.NoError(t, f.cart.ApplyPromo(ctx, p))

	_, err := f.service.Checkout(ctx, f.cart, Input{UserID: &f.userID, Source: "persistent"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	// nothing persisted, nothing cleared
	var orderCount int64
	require.NoError(t, f.db.Model(&models.Order{}).Where("user_id = ?", f.userID).Count(&orderCount).Error)
	assert.Zero(t, orderCount)

	lines, err := f.cart.Lines(ctx)
	require.NoError(t, err)
	assert.Len(t, lines, 1)

	reloaded, err := f.promos.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, reloaded.UsedCount)
}

func TestCheckoutBelowMinimumPayableTotal(t *testing.T) {
	f := newFixture(t, "0.00", "1.00")
	ctx := context.Background()

	variant := f.seedVariant(t, "0.50")
	require.NoError(t, f.cart.AddLine(ctx, variant.ID, 1))

	_, err := f.service.Checkout(ctx, f.cart, Input{UserID: &f.userID, Source: "persistent"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCheckoutWithoutPromoSkipsUsage(t *testing.T) {
	f := newFixture(t, "0.00", "0.00")
	ctx := context.Background()

	variant := f.seedVariant(t, "19.90")
	require.NoError(t, f.cart.AddLine(ctx, variant.ID, 2))

	order, err := f.service.Checkout(ctx, f.cart, Input{UserID: &f.userID, Source: "persistent"})
	require.NoError(t, err)

	assert.Nil(t, order.PromoCodeID)
	assert.Equal(t, "39.80", order.Total.String())
	require.Len(t, order.Items, 1)
	assert.Equal(t, "39.80", order.Items[0].Amount.String())
	assert.Equal(t, "19.90", order.Items[0].Price.String())
}

func TestCheckoutLapsedPromoNotCharged(t *testing.T) {
	f := newFixture(t, "0.00", "0.00")
	ctx := context.Background()

	variant := f.seedVariant(t, "100.00")
	require.NoError(t, f.cart.AddLine(ctx, variant.ID, 2))

	// applies at 200.00, then the cart shrinks below the minimum
	minTotal := money.MustFromString("150.00")
	p := f.seedPromo(t, &models.PromoCode{
		Code:          "BIGONLY",
		DiscountType:  enums.DiscountTypePercent,
		Amount:        money.MustFromString("10"),
		IsActive:      true,
		MinOrderTotal: &minTotal,
	})
	require.NoError(t, f.cart.ApplyPromo(ctx, p))
	require.NoError(t, f.cart.RemoveLine(ctx, variant.ID, 1))

	order, err := f.service.Checkout(ctx, f.cart, Input{UserID: &f.userID, Source: "persistent"})
	require.NoError(t, err)

	// lazy re-validation: no discount, promo not recorded or consumed
	assert.Equal(t, "0.00", order.DiscountTotal.String())
	assert.Equal(t, "100.00", order.Total.String())
	assert.Nil(t, order.PromoCodeID)

	reloaded, err := f.promos.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, reloaded.UsedCount)
}
