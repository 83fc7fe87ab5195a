package allocation

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightbikeshop/storefront-backend/pkg/money"
)

func TestAllocateDiscountedMixedCart(t *testing.T) {
	t.Parallel()

	// subtotal 63.33, 10% promo -> goods total 57.00 over 4 units
	lines := []Line{
		{VariantID: uuid.New(), UnitPrice: money.MustFromString("10.00"), Quantity: 3},
		{VariantID: uuid.New(), UnitPrice: money.MustFromString("33.33"), Quantity: 1},
	}
	subtotal := money.MustFromString("63.33")
	goodsTotal := money.MustFromString("57.00")

	allocated, err := AllocateLines(lines, subtotal, goodsTotal)
	require.NoError(t, err)
	require.Len(t, allocated, 2)

	sum := int64(0)
	for i, a := range allocated {
		assert.Equal(t, lines[i].VariantID, a.VariantID)
		assert.Equal(t, lines[i].Quantity, a.Quantity)
		minor := a.Amount.MinorUnits()
		assert.GreaterOrEqual(t, minor, int64(a.Quantity), "every unit needs at least one minor unit")
		sum += minor
	}
	assert.Equal(t, int64(5700), sum)
}

func TestAllocateRejectsTargetBelowUnitCount(t *testing.T) {
	t.Parallel()

	// fixed promo ate the whole subtotal: goods total 0 over 2 units
	lines := []Line{
		{VariantID: uuid.New(), UnitPrice: money.MustFromString("25.00"), Quantity: 2},
	}
	_, err := AllocateLines(lines, money.MustFromString("50.00"), money.Zero)
	assert.ErrorIs(t, err, ErrAllocationImpossible)

	// one kopeck short of one per unit
	lines = []Line{
		{VariantID: uuid.New(), UnitPrice: money.MustFromString("1.00"), Quantity: 3},
	}
	_, err = AllocateLines(lines, money.MustFromString("3.00"), money.MustFromString("0.02"))
	assert.ErrorIs(t, err, ErrAllocationImpossible)
}

func TestAllocateExactlyOneMinorUnitPerItem(t *testing.T) {
	t.Parallel()

	lines := []Line{
		{VariantID: uuid.New(), UnitPrice: money.MustFromString("10.00"), Quantity: 2},
		{VariantID: uuid.New(), UnitPrice: money.MustFromString("90.00"), Quantity: 1},
	}
	allocated, err := AllocateLines(lines, money.MustFromString("110.00"), money.MustFromString("0.03"))
	require.NoError(t, err)

	sum := int64(0)
	for _, a := range allocated {
		sum += a.Amount.MinorUnits()
	}
	assert.Equal(t, int64(3), sum)
	assert.Equal(t, int64(2), allocated[0].Amount.MinorUnits())
	assert.Equal(t, int64(1), allocated[1].Amount.MinorUnits())
}

func TestAllocateNoDiscountKeepsPrices(t *testing.T) {
	t.Parallel()

	lines := []Line{
		{VariantID: uuid.New(), UnitPrice: money.MustFromString("19.90"), Quantity: 2},
		{VariantID: uuid.New(), UnitPrice: money.MustFromString("5.10"), Quantity: 1},
	}
	subtotal := money.MustFromString("44.90")

	allocated, err := AllocateLines(lines, subtotal, subtotal)
	require.NoError(t, err)
	assert.Equal(t, "39.80", allocated[0].Amount.String())
	assert.Equal(t, "19.90", allocated[0].Price.String())
	assert.Equal(t, "5.10", allocated[1].Amount.String())
}

func TestAllocateRejectsMalformedLines(t *testing.T) {
	t.Parallel()

	_, err := AllocateLines(nil, money.MustFromString("1"), money.MustFromString("1"))
	require.Error(t, err)

	_, err = AllocateLines([]Line{
		{VariantID: uuid.New(), UnitPrice: money.MustFromString("1.00"), Quantity: 0},
	}, money.MustFromString("1"), money.MustFromString("1"))
	require.Error(t, err)

	_, err = AllocateLines([]Line{
		{VariantID: uuid.New(), UnitPrice: money.MustFromString("-1.00"), Quantity: 1},
	}, money.MustFromString("1"), money.MustFromString("1"))
	require.Error(t, err)
}

func TestAllocateDeterministic(t *testing.T) {
	t.Parallel()

	lines := []Line{
		{VariantID: uuid.MustParse("33333333-3333-3333-3333-333333333333"), UnitPrice: money.MustFromString("17.77"), Quantity: 3},
		{VariantID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), UnitPrice: money.MustFromString("9.99"), Quantity: 2},
		{VariantID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), UnitPrice: money.MustFromString("41.05"), Quantity: 1},
	}
	subtotal := money.MustFromString("114.36")
	goodsTotal := money.MustFromString("97.21")

	first, err := AllocateLines(lines, subtotal, goodsTotal)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := AllocateLines(lines, subtotal, goodsTotal)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestAllocateEqualRemainderTieBreaksOnVariantID(t *testing.T) {
	t.Parallel()

	low := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	high := uuid.MustParse("ffffffff-ffff-ffff-ffff-fffffffffff0")

	// identical prices produce identical remainders (999.5 each); the
	// single missing minor unit must land on the lower variant id even
	// when it appears later in the input
	lines := []Line{
		{VariantID: high, UnitPrice: money.MustFromString("10.00"), Quantity: 1},
		{VariantID: low, UnitPrice: money.MustFromString("10.00"), Quantity: 1},
	}
	allocated, err := AllocateLines(lines, money.MustFromString("20.00"), money.MustFromString("19.99"))
	require.NoError(t, err)

	assert.Equal(t, int64(999), allocated[0].Amount.MinorUnits(), "higher variant id stays floored")
	assert.Equal(t, int64(1000), allocated[1].Amount.MinorUnits(), "lower variant id receives the extra unit")
}

func TestAllocateRandomizedProperties(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))

	for iteration := 0; iteration < 500; iteration++ {
		lineCount := 1 + rng.Intn(5)
		lines := make([]Line, 0, lineCount)
		atomCount := int64(0)
		subtotal := money.Zero
		for i := 0; i < lineCount; i++ {
			priceMinor := int64(1 + rng.Intn(10_000))
			qty := 1 + rng.Intn(5)
			price := money.FromMinorUnits(priceMinor)
			lines = append(lines, Line{VariantID: uuid.New(), UnitPrice: price, Quantity: qty})
			subtotal = subtotal.Add(price.MulInt(qty))
			atomCount += int64(qty)
		}

		// random discount between 0 and 100 percent of the subtotal
		discountMinor := rng.Int63n(subtotal.MinorUnits() + 1)
		goodsTotal := subtotal.Sub(money.FromMinorUnits(discountMinor))
		target := goodsTotal.MinorUnits()

		allocated, err := AllocateLines(lines, subtotal, goodsTotal)
		label := fmt.Sprintf("iteration %d: subtotal=%s goods=%s atoms=%d", iteration, subtotal, goodsTotal, atomCount)

		if target < atomCount {
			assert.ErrorIs(t, err, ErrAllocationImpossible, label)
			continue
		}
		require.NoError(t, err, label)

		sum := int64(0)
		for _, a := range allocated {
			minor := a.Amount.MinorUnits()
			assert.GreaterOrEqual(t, minor, int64(a.Quantity), label)
			sum += minor
		}
		assert.Equal(t, target, sum, label)
	}
}
