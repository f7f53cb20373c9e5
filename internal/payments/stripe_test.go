package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/wallcraft/storefront-backend/pkg/config"
	pkgerrors "github.com/wallcraft/storefront-backend/pkg/errors"
	pkgstripe "github.com/wallcraft/storefront-backend/pkg/stripe"
)

type stubIntents struct {
	created *stripe.PaymentIntentParams
	intent  *stripe.PaymentIntent
	err     error
}

func (s *stubIntents) Create(_ context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	s.created = params
	return s.intent, s.err
}

func (s *stubIntents) Get(_ context.Context, id string) (*stripe.PaymentIntent, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := *s.intent
	out.ID = id
	return &out, nil
}

func newTestStripeClient(t *testing.T) *pkgstripe.Client {
	t.Helper()
	client, err := pkgstripe.NewClient(context.Background(), config.StripeConfig{
		APIKey:         "sk_test_123",
		WebhookSecret:  "whsec_123",
		PublishableKey: "pk_test_123",
	}, nil)
	require.NoError(t, err)
	return client
}

func TestStripeCreateOrder(t *testing.T) {
	intents := &stubIntents{intent: &stripe.PaymentIntent{
		ID:           "pi_1",
		Amount:       205000,
		Currency:     stripe.CurrencyINR,
		Status:       stripe.PaymentIntentStatusRequiresPaymentMethod,
		ClientSecret: "pi_1_secret",
	}}
	gw := NewStripeGateway(newTestStripeClient(t), intents)

	out, err := gw.CreateOrder(context.Background(), CreateOrderInput{Amount: 205000, Currency: "INR", Receipt: "WC-1", OrderID: "o-1"})
	require.NoError(t, err)
	assert.Equal(t, "pi_1", out.ID)
	assert.Equal(t, "INR", out.Currency)
	assert.Equal(t, "pi_1_secret", out.ClientSecret)
	assert.Equal(t, "pk_test_123", gw.PublicKey())

	require.NotNil(t, intents.created)
	assert.Equal(t, int64(205000), *intents.created.Amount)
	assert.Equal(t, "inr", *intents.created.Currency)
	assert.Equal(t, "o-1", intents.created.Metadata["order_id"])
}

func TestStripeCreateOrderWrapsErrors(t *testing.T) {
	gw := NewStripeGateway(newTestStripeClient(t), &stubIntents{err: errors.New("card network down")})
	_, err := gw.CreateOrder(context.Background(), CreateOrderInput{Amount: 100, Currency: "INR", Receipt: "r"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUpstream, typed.Code())
}

func TestStripeVerifyPayment(t *testing.T) {
	succeeded := &stubIntents{intent: &stripe.PaymentIntent{Status: stripe.PaymentIntentStatusSucceeded}}
	gw := NewStripeGateway(newTestStripeClient(t), succeeded)
	require.NoError(t, gw.VerifyPayment(context.Background(), Confirmation{GatewayOrderID: "pi_1", PaymentID: "pi_1"}))

	pending := &stubIntents{intent: &stripe.PaymentIntent{Status: stripe.PaymentIntentStatusProcessing}}
	gw = NewStripeGateway(newTestStripeClient(t), pending)
	err := gw.VerifyPayment(context.Background(), Confirmation{GatewayOrderID: "pi_1"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	err = gw.VerifyPayment(context.Background(), Confirmation{GatewayOrderID: "pi_1", PaymentID: "pi_2"})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
