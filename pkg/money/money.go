package money

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a fixed-point decimal amount used for every customer-facing
// value. Amounts are stored at two decimal places at rest; arithmetic on
// intermediate values keeps full precision and callers round explicitly
// via Round2. Minor-unit (kopeck) conversion is reserved for the order
// line allocator.
type Money struct {
	dec decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// New builds a Money from a raw decimal.
func New(d decimal.Decimal) Money {
	return Money{dec: d}
}

// FromString parses a decimal string such as "1999.90".
func FromString(value string) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, fmt.Errorf("parsing money %q: %w", value, err)
	}
	return Money{dec: d}, nil
}

// MustFromString parses a decimal string and panics on failure. Test and
// seed data only.
func MustFromString(value string) Money {
	m, err := FromString(value)
	if err != nil {
		panic(err)
	}
	return m
}

// FromMinorUnits converts an integer number of minor units (kopecks,
// cents) back into a two-decimal amount.
func FromMinorUnits(units int64) Money {
	return Money{dec: decimal.NewFromInt(units).Div(decimal.NewFromInt(100))}
}

// Decimal exposes the underlying decimal value.
func (m Money) Decimal() decimal.Decimal {
	return m.dec
}

// Add returns m + other at full precision.
func (m Money) Add(other Money) Money {
	return Money{dec: m.dec.Add(other.dec)}
}

// Sub returns m - other at full precision.
func (m Money) Sub(other Money) Money {
	return Money{dec: m.dec.Sub(other.dec)}
}

// MulInt returns m multiplied by a quantity.
func (m Money) MulInt(qty int) Money {
	return Money{dec: m.dec.Mul(decimal.NewFromInt(int64(qty)))}
}

// Round2 rounds half-up to two decimal places.
func (m Money) Round2() Money {
	return Money{dec: m.dec.Round(2)}
}

// MinorUnits returns the amount as whole minor units, rounding half-up.
func (m Money) MinorUnits() int64 {
	return m.dec.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Cmp compares two amounts: -1 if m < other, 0 if equal, +1 if greater.
func (m Money) Cmp(other Money) int {
	return m.dec.Cmp(other.dec)
}

// LessThan reports m < other.
func (m Money) LessThan(other Money) bool {
	return m.dec.Cmp(other.dec) < 0
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.dec.IsZero()
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.dec.IsNegative()
}

// Max returns the larger of a and b.
func Max(a, b Money) Money {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// Min returns the smaller of a and b.
func Min(a, b Money) Money {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// String renders the amount with two decimal places.
func (m Money) String() string {
	return m.dec.StringFixed(2)
}

// MarshalJSON emits the amount as a decimal string. Money never crosses
// the API boundary as binary floating point.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts either a decimal string or a bare JSON number.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		raw = raw[1 : len(raw)-1]
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("parsing money %q: %w", raw, err)
	}
	m.dec = d
	return nil
}

// Value implements driver.Valuer so Money maps onto numeric columns.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan implements sql.Scanner for numeric/text columns.
func (m *Money) Scan(value any) error {
	if value == nil {
		m.dec = decimal.Decimal{}
		return nil
	}
	switch v := value.(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return err
		}
		m.dec = d
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return err
		}
		m.dec = d
	case int64:
		m.dec = decimal.NewFromInt(v)
	case float64:
		m.dec = decimal.NewFromFloat(v)
	default:
		return fmt.Errorf("unsupported money column type %T", value)
	}
	return nil
}
