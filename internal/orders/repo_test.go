package orders

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
	"github.com/lightbikeshop/storefront-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

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
	orderItems := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  price TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  amount TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(orderItems).Error)
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, userID *uuid.UUID) *models.Order {
	t.Helper()

	repo := NewRepository(db)
	code, err := GenerateOrderCode()
	require.NoError(t, err)
	accessKey, err := GenerateAccessKey()
	require.NoError(t, err)

	order, err := repo.Create(context.Background(), &models.Order{
		ID:            uuid.New(),
		Code:          code,
		AccessKey:     accessKey,
		UserID:        userID,
		Subtotal:      money.MustFromString("63.33"),
		DiscountTotal: money.MustFromString("6.33"),
		ShippingTotal: money.MustFromString("5.00"),
		Total:         money.MustFromString("62.00"),
	})
	require.NoError(t, err)
	return order
}

func TestCreateAndFindByCode(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, nil)
	require.NoError(t, repo.CreateItems(ctx, []models.OrderItem{
		{
			ID:        uuid.New(),
			OrderID:   order.ID,
			VariantID: uuid.New(),
			Price:     money.MustFromString("9.50"),
			Quantity:  3,
			Amount:    money.MustFromString("28.50"),
		},
		{
			ID:        uuid.New(),
			OrderID:   order.ID,
			VariantID: uuid.New(),
			Price:     money.MustFromString("28.50"),
			Quantity:  1,
			Amount:    money.MustFromString("28.50"),
		},
	}))

	found, err := repo.FindByCode(ctx, order.Code)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
	assert.Equal(t, "62.00", found.Total.String())
	assert.Len(t, found.Items, 2)

	exists, err := repo.CodeExists(ctx, order.Code)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.CodeExists(ctx, "NOPE123456")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestListByUser(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	seedOrder(t, db, &userID)
	seedOrder(t, db, &userID)
	seedOrder(t, db, nil)

	orders, err := repo.ListByUser(ctx, userID, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestListByUserPaged(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	for i := 0; i < 3; i++ {
		seedOrder(t, db, &userID)
	}

	// limit 2 fetches one buffer row so the caller can see there is more
	rows, err := repo.ListByUser(ctx, userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	cursor := pagination.EncodeCursor(pagination.Cursor{
		CreatedAt: rows[1].CreatedAt,
		ID:        rows[1].ID,
	})
	rest, err := repo.ListByUser(ctx, userID, pagination.Params{Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, rows[2].ID, rest[0].ID)
}

func TestGenerateOrderCodeShape(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code, err := GenerateOrderCode()
		require.NoError(t, err)
		assert.Len(t, code, 10)
		assert.Regexp(t, "^[A-Z2-7]+$", code)
		assert.False(t, seen[code], "codes must not repeat in practice")
		seen[code] = true
	}
}

func TestGenerateAccessKeyShape(t *testing.T) {
	t.Parallel()

	key, err := GenerateAccessKey()
	require.NoError(t, err)
	assert.Len(t, key, 32)
	other, err := GenerateAccessKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}
