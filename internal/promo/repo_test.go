package promo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lightbikeshop/storefront-backend/pkg/db/models"
	"github.com/lightbikeshop/storefront-backend/pkg/money"
)

func setupPromoTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	promoCodes := `
CREATE TABLE IF NOT EXISTS promo_codes (
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
);`
	orders := `
CREATE TABLE IF NOT EXISTS orders (
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
);`
	require.NoError(t, db.Exec(promoCodes).Error)
	require.NoError(t, db.Exec(orders).Error)
	return db
}

func seedPromo(t *testing.T, db *gorm.DB, code string, usageLimit *int, usedCount int) *models.PromoCode {
	t.Helper()

	promo := &models.PromoCode{
		ID:         uuid.New(),
		Code:       code,
		Amount:     money.MustFromString("10"),
		IsActive:   true,
		UsageLimit: usageLimit,
		UsedCount:  usedCount,
	}
	require.NoError(t, db.Create(promo).Error)
	return promo
}

func TestFindByCodeCaseInsensitive(t *testing.T) {
	db := setupPromoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seeded := seedPromo(t, db, "WELCOME10", nil, 0)

	for _, input := range []string{"WELCOME10", "welcome10", "  Welcome10  "} {
		found, err := repo.FindByCode(ctx, input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, seeded.ID, found.ID)
	}

	_, err := repo.FindByCode(ctx, "NOPE")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestIncrementUsageGuarded(t *testing.T) {
	db := setupPromoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	promo := seedPromo(t, db, "LASTSLOT", intPtr(2), 1)

	require.NoError(t, repo.IncrementUsage(ctx, promo.ID))

	reloaded, err := repo.FindByID(ctx, promo.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.UsedCount)

	// limit reached now, the guard must refuse
	err = repo.IncrementUsage(ctx, promo.ID)
	assert.ErrorIs(t, err, ErrUsageExhausted)
}

func TestIncrementUsageUnlimited(t *testing.T) {
	db := setupPromoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	promo := seedPromo(t, db, "FOREVER", nil, 99)
	require.NoError(t, repo.IncrementUsage(ctx, promo.ID))

	reloaded, err := repo.FindByID(ctx, promo.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, reloaded.UsedCount)
}

func TestCountOrdersByUserAndPromo(t *testing.T) {
	db := setupPromoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	promo := seedPromo(t, db, "PERUSER", nil, 0)
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		order := &models.Order{
			ID:            uuid.New(),
			Code:          uuid.NewString(),
			AccessKey:     uuid.NewString(),
			UserID:        &userID,
			PromoCodeID:   &promo.ID,
			Subtotal:      money.MustFromString("100"),
			DiscountTotal: money.MustFromString("10"),
			ShippingTotal: money.Zero,
			Total:         money.MustFromString("90"),
		}
		require.NoError(t, db.Create(order).Error)
	}

	count, err := repo.CountOrdersByUserAndPromo(ctx, userID, promo.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = repo.CountOrdersByUserAndPromo(ctx, uuid.New(), promo.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
