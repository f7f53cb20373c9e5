package payments

import (
	"context"
	"fmt"

	"github.com/wallcraft/storefront-backend/pkg/config"
	pkgstripe "github.com/wallcraft/storefront-backend/pkg/stripe"
)

// CreateOrderInput describes a payable order. Amount is in minor units.
type CreateOrderInput struct {
	Amount   int64
	Currency string
	Receipt  string
	OrderID  string
}

// GatewayOrder is the provider order handed to the payment widget.
type GatewayOrder struct {
	ID           string `json:"id"`
	Entity       string `json:"entity,omitempty"`
	Amount       int64  `json:"amount"`
	AmountPaid   int64  `json:"amount_paid"`
	AmountDue    int64  `json:"amount_due"`
	Currency     string `json:"currency"`
	Receipt      string `json:"receipt"`
	Status       string `json:"status,omitempty"`
	CreatedAt    int64  `json:"created_at,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	Provider     string `json:"provider"`
}

// Confirmation is what the widget reports after a successful payment.
type Confirmation struct {
	GatewayOrderID string
	PaymentID      string
	Signature      string
}

// Gateway creates payable orders and verifies completed payments.
type Gateway interface {
	Provider() string
	PublicKey() string
	CreateOrder(ctx context.Context, input CreateOrderInput) (*GatewayOrder, error)
	VerifyPayment(ctx context.Context, confirmation Confirmation) error
}

// NewGateway builds the gateway selected by configuration. The stripe client
// is only consulted for the stripe provider.
func NewGateway(settings config.PaymentSettings, stripeClient *pkgstripe.Client) (Gateway, error) {
	switch settings.Provider {
	case config.PaymentProviderRazorpay:
		return NewRazorpayGateway(settings.Razorpay)
	case config.PaymentProviderStripe:
		if stripeClient == nil {
			return nil, fmt.Errorf("stripe client required for stripe payments")
		}
		return NewStripeGateway(stripeClient, nil), nil
	default:
		return nil, fmt.Errorf("unsupported payment provider %q", settings.Provider)
	}
}
