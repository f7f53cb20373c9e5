// Package stripe configures the Stripe SDK for one account: payment intents
// for checkout and signature checks for webhook deliveries.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/wallcraft/storefront-backend/pkg/config"
	"github.com/wallcraft/storefront-backend/pkg/logger"
)

// keyPrefixes lists the secret key prefixes accepted per environment.
var keyPrefixes = map[string][]string{
	"test": {"sk_test_", "rk_test_"},
	"live": {"sk_live_", "rk_live_"},
}

// Client holds the per-account SDK clients. Nothing here touches the
// package-level stripe.Key.
type Client struct {
	intents        *paymentintent.Client
	env            string
	signingSecret  string
	publishableKey string
}

func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env := cfg.Environment()
	prefixes, ok := keyPrefixes[env]
	if !ok {
		return nil, fmt.Errorf("stripe: environment must be test or live, got %q", cfg.Env)
	}

	key := strings.TrimSpace(cfg.APIKey)
	secret := strings.TrimSpace(cfg.WebhookSecret)
	switch {
	case key == "":
		return nil, errors.New("stripe: api key is required")
	case secret == "":
		return nil, errors.New("stripe: webhook secret is required")
	case !hasAnyPrefix(key, prefixes):
		return nil, fmt.Errorf("stripe: %s environment needs a %s key", env, strings.Join(prefixes, " or "))
	}

	c := &Client{
		intents:        &paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: key},
		env:            env,
		signingSecret:  secret,
		publishableKey: strings.TrimSpace(cfg.PublishableKey),
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "stripe_env", env), "stripe.configured")
	}
	return c, nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// PaymentIntents is bound to this account's secret key.
func (c *Client) PaymentIntents() *paymentintent.Client {
	if c == nil {
		return nil
	}
	return c.intents
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.env
}

// PublishableKey is handed to the browser alongside an intent's client secret.
func (c *Client) PublishableKey() string {
	if c == nil {
		return ""
	}
	return c.publishableKey
}

// VerifyEvent checks the Stripe-Signature header against payload and decodes
// the event. Events rendered with a different API version than the SDK's are
// accepted; only payment intent fields the storefront reads are used.
func (c *Client) VerifyEvent(payload []byte, signature string) (stripe.Event, error) {
	if c == nil || c.signingSecret == "" {
		return stripe.Event{}, errors.New("stripe: webhook secret not configured")
	}
	return webhook.ConstructEventWithOptions(payload, signature, c.signingSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}
