// Package pricing computes line and order totals for the storefront.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Money is an amount in major currency units, kept at two decimal places.
type Money struct {
	amount decimal.Decimal
}

// Zero is the empty amount.
var Zero = Money{}

func NewMoney(d decimal.Decimal) Money {
	return Money{amount: d.Round(2)}
}

// ParseMoney parses a decimal string such as "300" or "49.50".
func ParseMoney(raw string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return Zero, err
	}
	return NewMoney(d), nil
}

// FromMinor converts minor units (paise, cents) back to Money.
func FromMinor(minor int64) Money {
	return Money{amount: decimal.New(minor, -2)}
}

func (m Money) Add(other Money) Money {
	return NewMoney(m.amount.Add(other.amount))
}

func (m Money) Sub(other Money) Money {
	return NewMoney(m.amount.Sub(other.amount))
}

func (m Money) Times(qty int) Money {
	return NewMoney(m.amount.Mul(decimal.NewFromInt(int64(qty))))
}

// Percent returns pct% of m.
func (m Money) Percent(pct int) Money {
	return NewMoney(m.amount.Mul(decimal.NewFromInt(int64(pct))).Div(hundred))
}

func (m Money) IsNegative() bool { return m.amount.IsNegative() }

func (m Money) Equal(other Money) bool { return m.amount.Equal(other.amount) }

func (m Money) Decimal() decimal.Decimal { return m.amount }

// MinorUnits is the gateway amount: total × 100 as an integer.
func (m Money) MinorUnits() int64 {
	return m.amount.Mul(hundred).Round(0).IntPart()
}

// String formats with exactly two decimals.
func (m Money) String() string {
	return m.amount.StringFixed(2)
}

// MarshalJSON renders the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// PriceComponent is an optional price input. Absent and non-numeric values
// contribute zero.
type PriceComponent struct {
	value   Money
	present bool
}

// Price builds a present component.
func Price(m Money) PriceComponent {
	return PriceComponent{value: m, present: true}
}

// ParsePriceComponent reads a catalog price column. nil, blank, negative and
// unparsable input all yield an absent component.
func ParsePriceComponent(raw *string) PriceComponent {
	if raw == nil {
		return PriceComponent{}
	}
	m, err := ParseMoney(*raw)
	if err != nil || m.IsNegative() {
		return PriceComponent{}
	}
	return Price(m)
}

func (p PriceComponent) Present() bool { return p.present }

// Value returns the amount or Zero when absent.
func (p PriceComponent) Value() Money {
	if !p.present {
		return Zero
	}
	return p.value
}
