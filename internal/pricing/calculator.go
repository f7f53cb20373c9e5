package pricing

import (
	"fmt"
)

const (
	DefaultShippingFee = "300"
	DefaultTax         = "50"
)

// Line is the priced view of one cart item.
type Line struct {
	Base     PriceComponent
	Frame    PriceComponent
	SubFrame PriceComponent
	Size     PriceComponent
	Quantity int
	IsCustom bool
}

// UnitPrice is base + frame + sub-frame + size. Custom items never carry a base price.
func (l Line) UnitPrice() Money {
	unit := l.Frame.Value().Add(l.SubFrame.Value()).Add(l.Size.Value())
	if !l.IsCustom {
		unit = unit.Add(l.Base.Value())
	}
	return unit
}

// ItemTotal is the unit price times quantity. Non-positive quantities price as zero.
func ItemTotal(l Line) Money {
	if l.Quantity <= 0 {
		return Zero
	}
	return l.UnitPrice().Times(l.Quantity)
}

// Totals is the breakdown shown at checkout and charged by the gateway.
type Totals struct {
	Subtotal        Money `json:"subtotal"`
	Shipping        Money `json:"shipping"`
	Tax             Money `json:"tax"`
	DiscountPercent int   `json:"discount_percent"`
	Discount        Money `json:"discount"`
	Total           Money `json:"total"`
}

// Calculator applies the flat shipping fee and tax to order subtotals.
type Calculator struct {
	shipping Money
	tax      Money
}

// NewCalculator parses the configured shipping fee and tax. Blank values use
// the defaults.
func NewCalculator(shippingFee, tax string) (*Calculator, error) {
	if shippingFee == "" {
		shippingFee = DefaultShippingFee
	}
	if tax == "" {
		tax = DefaultTax
	}
	shipping, err := ParseMoney(shippingFee)
	if err != nil || shipping.IsNegative() {
		return nil, fmt.Errorf("invalid shipping fee %q", shippingFee)
	}
	taxAmount, err := ParseMoney(tax)
	if err != nil || taxAmount.IsNegative() {
		return nil, fmt.Errorf("invalid tax %q", tax)
	}
	return &Calculator{shipping: shipping, tax: taxAmount}, nil
}

// DefaultCalculator uses shipping 300 and tax 50.
func DefaultCalculator() *Calculator {
	c, _ := NewCalculator(DefaultShippingFee, DefaultTax)
	return c
}

// OrderTotals sums item totals and applies shipping, tax and the coupon
// percentage. The percentage is clamped to [0, 100].
func (c *Calculator) OrderTotals(lines []Line, discountPercent int) Totals {
	subtotal := Zero
	for _, l := range lines {
		subtotal = subtotal.Add(ItemTotal(l))
	}
	return c.TotalsForSubtotal(subtotal, discountPercent)
}

// TotalsForSubtotal applies shipping, tax and discount to a known subtotal.
func (c *Calculator) TotalsForSubtotal(subtotal Money, discountPercent int) Totals {
	if discountPercent < 0 {
		discountPercent = 0
	}
	if discountPercent > 100 {
		discountPercent = 100
	}
	discount := Zero
	if discountPercent > 0 {
		discount = subtotal.Percent(discountPercent)
	}
	total := subtotal.Add(c.shipping).Add(c.tax).Sub(discount)
	return Totals{
		Subtotal:        subtotal,
		Shipping:        c.shipping,
		Tax:             c.tax,
		DiscountPercent: discountPercent,
		Discount:        discount,
		Total:           total,
	}
}
