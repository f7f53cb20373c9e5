// Package checkout holds the shipping-details rules shared by the checkout
// API and service.
package checkout

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/wallcraft/storefront-backend/pkg/errors"
)

// DefaultCountry is used when the shopper leaves country blank.
const DefaultCountry = "India"

// ShippingDetails is the delivery and contact information collected before
// payment. Rules live under the checkout tag so request decoding does not
// apply them before Normalize runs.
type ShippingDetails struct {
	Name            string `json:"name" checkout:"required"`
	Email           string `json:"email" checkout:"required,email"`
	Phone           string `json:"phone" checkout:"required"`
	ShippingAddress string `json:"shippingAddress" checkout:"required"`
	BillingAddress  string `json:"billingAddress" checkout:"required_if=SameAsShipping false"`
	SameAsShipping  bool   `json:"sameAsShipping"`
	City            string `json:"city" checkout:"required"`
	State           string `json:"state" checkout:"required"`
	Pincode         string `json:"pincode" checkout:"required"`
	Country         string `json:"country"`
}

// FieldViolation names one rejected field.
type FieldViolation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

var rules = newRules()

func newRules() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("checkout")
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return v
}

// Normalize trims every field, copies the shipping address into billing when
// SameAsShipping is set and defaults the country.
func (d ShippingDetails) Normalize() ShippingDetails {
	for _, field := range []*string{
		&d.Name, &d.Email, &d.Phone, &d.ShippingAddress, &d.BillingAddress,
		&d.City, &d.State, &d.Pincode, &d.Country,
	} {
		*field = strings.TrimSpace(*field)
	}
	if d.SameAsShipping {
		d.BillingAddress = d.ShippingAddress
	}
	if d.Country == "" {
		d.Country = DefaultCountry
	}
	return d
}

// ValidateShippingDetails normalizes d and rejects it when a mandatory field
// is empty. Billing address is mandatory only when SameAsShipping is false.
func ValidateShippingDetails(d ShippingDetails) (ShippingDetails, error) {
	d = d.Normalize()

	err := rules.Struct(d)
	var fieldErrs validator.ValidationErrors
	if err == nil {
		return d, nil
	}
	if !errors.As(err, &fieldErrs) {
		return d, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "validate shipping details")
	}

	violations := make([]FieldViolation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		reason := "required"
		if fe.Tag() == "email" {
			reason = "invalid"
		}
		violations = append(violations, FieldViolation{Field: fe.Field(), Reason: reason})
	}
	return d, pkgerrors.New(pkgerrors.CodeValidation, "shipping details are incomplete").WithDetails(map[string]any{
		"violations": violations,
	})
}
