package allocation

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lightbikeshop/storefront-backend/pkg/money"
)

// ErrAllocationImpossible means the payable total is smaller than one
// minor unit per physical unit sold, so no valid receipt exists.
var ErrAllocationImpossible = errors.New("allocation impossible: total below one minor unit per item")

// Line is one cart position entering allocation.
type Line struct {
	VariantID uuid.UUID
	UnitPrice money.Money
	Quantity  int
}

// Allocated is the immutable receipt row for one line. Amount is the
// authoritative line total; Price is derived as round(amount/qty, 2)
// and must never be recomputed downstream.
type Allocated struct {
	VariantID uuid.UUID
	Price     money.Money
	Quantity  int
	Amount    money.Money
}

// atom is one physical unit of a line, the indivisible allocation grain.
type atom struct {
	line  int
	order int
	minor int64
	frac  decimal.Decimal
}

// AllocateLines distributes goodsTotal across cart lines by
// largest-remainder apportionment at minor-unit granularity, with a
// positivity floor of one minor unit per physical unit. The returned
// amounts sum to round(goodsTotal*100) minor units exactly.
//
// Pure and deterministic: equal fractional remainders break ties by
// lower variant id, then input order.
func AllocateLines(lines []Line, subtotal, goodsTotal money.Money) ([]Allocated, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("no lines to allocate")
	}

	atomCount := int64(0)
	for i, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("line %d: quantity must be positive", i)
		}
		if line.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("line %d: negative unit price", i)
		}
		atomCount += int64(line.Quantity)
	}

	target := goodsTotal.MinorUnits()
	if target < atomCount {
		return nil, ErrAllocationImpossible
	}
	if subtotal.IsZero() {
		// non-zero target over a zero subtotal cannot be proportional
		return nil, ErrAllocationImpossible
	}

	ratio := goodsTotal.Decimal().Div(subtotal.Decimal())
	hundredD := decimal.NewFromInt(100)

	atoms := make([]*atom, 0, atomCount)
	current := int64(0)
	for i, line := range lines {
		raw := line.UnitPrice.Decimal().Mul(ratio).Mul(hundredD)
		floored := raw.Floor()
		frac := raw.Sub(floored)
		minor := floored.IntPart()
		if minor < 1 {
			// every physical unit must carry a non-zero receipt price
			minor = 1
		}
		for unit := 0; unit < line.Quantity; unit++ {
			atoms = append(atoms, &atom{
				line:  i,
				order: len(atoms),
				minor: minor,
				frac:  frac,
			})
			current += minor
		}
	}

	// stable redistribution order: largest remainder first, ties by
	// lower variant id, then input order
	ranked := make([]*atom, len(atoms))
	copy(ranked, atoms)
	sort.SliceStable(ranked, func(a, b int) bool {
		cmp := ranked[a].frac.Cmp(ranked[b].frac)
		if cmp != 0 {
			return cmp > 0
		}
		idA := lines[ranked[a].line].VariantID
		idB := lines[ranked[b].line].VariantID
		if byID := bytes.Compare(idA[:], idB[:]); byID != 0 {
			return byID < 0
		}
		return ranked[a].order < ranked[b].order
	})

	for current > target {
		var pick *atom
		for _, a := range ranked {
			if a.minor > 1 {
				pick = a
				break
			}
		}
		if pick == nil {
			return nil, ErrAllocationImpossible
		}
		pick.minor--
		current--
	}
	for current < target {
		for _, a := range ranked {
			if current == target {
				break
			}
			a.minor++
			current++
		}
	}

	result := make([]Allocated, len(lines))
	for i, line := range lines {
		result[i] = Allocated{VariantID: line.VariantID, Quantity: line.Quantity}
	}
	for _, a := range atoms {
		result[a.line].Amount = result[a.line].Amount.Add(money.FromMinorUnits(a.minor))
	}

	sum := int64(0)
	for i := range result {
		amountMinor := result[i].Amount.MinorUnits()
		if result[i].Quantity > 0 && amountMinor < int64(result[i].Quantity) {
			return nil, ErrAllocationImpossible
		}
		sum += amountMinor
		price := result[i].Amount.Decimal().Div(decimal.NewFromInt(int64(result[i].Quantity)))
		result[i].Price = money.New(price).Round2()
	}
	if sum != target {
		return nil, fmt.Errorf("allocation drifted: got %d minor units, want %d", sum, target)
	}

	return result, nil
}
