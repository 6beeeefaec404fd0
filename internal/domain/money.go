package domain

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a monetary value as transported by the backend, which serializes
// amounts either as JSON numbers or as strings ("61000.00"). Anything that
// does not parse coerces to zero.
type Money struct {
	Amount decimal.Decimal
	// Set reports whether the field was present and non-null in the payload.
	Set bool
}

// NewMoney builds a present Money from a float.
func NewMoney(v float64) Money {
	return Money{Amount: decimal.NewFromFloat(v), Set: true}
}

// UnmarshalJSON accepts numbers, numeric strings and null.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = Money{}
		return nil
	}

	raw := string(b)
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*m = Money{Set: true}
			return nil
		}
		raw = strings.TrimSpace(s)
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		d = decimal.Zero
	}
	*m = Money{Amount: d, Set: true}
	return nil
}

// MarshalJSON writes the amount as a plain JSON number, or null when absent.
func (m Money) MarshalJSON() ([]byte, error) {
	if !m.Set {
		return []byte("null"), nil
	}
	return []byte(m.Amount.String()), nil
}

// IsZero reports whether the amount is absent or zero.
func (m Money) IsZero() bool {
	return !m.Set || m.Amount.IsZero()
}

// Float returns the amount as float64 for display state.
func (m Money) Float() float64 {
	return m.Amount.InexactFloat64()
}

// TaxFallback returns round(subtotal * rate) to the nearest integer.
func TaxFallback(subtotal, rate decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(rate).Round(0)
}
