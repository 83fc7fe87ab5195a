package enums

import "fmt"

// Currency denominates order totals. The store trades in rubles; the
// USD entry exists for price imports and is never the order currency.
type Currency string

const (
	CurrencyRUB Currency = "RUB"
	CurrencyUSD Currency = "USD"
)

// DefaultCurrency is stamped on every order at checkout.
const DefaultCurrency = CurrencyRUB

func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the currency is one the store recognizes.
func (c Currency) IsValid() bool {
	switch c {
	case CurrencyRUB, CurrencyUSD:
		return true
	}
	return false
}

// ParseCurrency converts a raw string into a Currency.
func ParseCurrency(value string) (Currency, error) {
	c := Currency(value)
	if !c.IsValid() {
		return "", fmt.Errorf("invalid currency %q", value)
	}
	return c, nil
}
