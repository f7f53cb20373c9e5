package payments

import (
	"context"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"

	"github.com/wallcraft/storefront-backend/pkg/config"
	pkgerrors "github.com/wallcraft/storefront-backend/pkg/errors"
	pkgstripe "github.com/wallcraft/storefront-backend/pkg/stripe"
)

// PaymentIntentAPI is the slice of the Stripe API the gateway uses.
type PaymentIntentAPI interface {
	Create(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(ctx context.Context, id string) (*stripe.PaymentIntent, error)
}

// intentClient adapts the SDK's param-carried context to PaymentIntentAPI.
type intentClient struct {
	sdk *paymentintent.Client
}

func (c intentClient) Create(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	params.Context = ctx
	return c.sdk.New(params)
}

func (c intentClient) Get(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	return c.sdk.Get(id, params)
}

// StripeGateway maps gateway orders onto payment intents. The intent id acts
// as both gateway order id and payment id.
type StripeGateway struct {
	client  *pkgstripe.Client
	intents PaymentIntentAPI
}

// NewStripeGateway talks to client's account when intents is nil.
func NewStripeGateway(client *pkgstripe.Client, intents PaymentIntentAPI) *StripeGateway {
	if intents == nil {
		intents = intentClient{sdk: client.PaymentIntents()}
	}
	return &StripeGateway{client: client, intents: intents}
}

func (g *StripeGateway) Provider() string { return config.PaymentProviderStripe }

func (g *StripeGateway) PublicKey() string { return g.client.PublishableKey() }

func (g *StripeGateway) CreateOrder(ctx context.Context, input CreateOrderInput) (*GatewayOrder, error) {
	if err := validateOrderInput(input); err != nil {
		return nil, err
	}
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(input.Amount),
		Currency:    stripe.String(strings.ToLower(input.Currency)),
		Description: stripe.String(input.Receipt),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("receipt", input.Receipt)
	if input.OrderID != "" {
		params.AddMetadata("order_id", input.OrderID)
	}

	intent, err := g.intents.Create(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "create payment intent")
	}
	return &GatewayOrder{
		ID:           intent.ID,
		Entity:       "payment_intent",
		Amount:       intent.Amount,
		AmountDue:    intent.Amount - intent.AmountReceived,
		AmountPaid:   intent.AmountReceived,
		Currency:     strings.ToUpper(string(intent.Currency)),
		Receipt:      input.Receipt,
		Status:       string(intent.Status),
		CreatedAt:    intent.Created,
		ClientSecret: intent.ClientSecret,
		Provider:     g.Provider(),
	}, nil
}

// VerifyPayment fetches the intent and requires it to have succeeded.
func (g *StripeGateway) VerifyPayment(ctx context.Context, confirmation Confirmation) error {
	if confirmation.GatewayOrderID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "gateway_order_id is required")
	}
	if confirmation.PaymentID != "" && confirmation.PaymentID != confirmation.GatewayOrderID {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment_id does not match payment intent")
	}
	intent, err := g.intents.Get(ctx, confirmation.GatewayOrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "fetch payment intent")
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment intent has not succeeded").
			WithDetails(map[string]any{"status": string(intent.Status)})
	}
	return nil
}
