package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/wallcraft/storefront-backend/pkg/config"
	pkgerrors "github.com/wallcraft/storefront-backend/pkg/errors"
)

type razorpayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// RazorpayGateway talks to the Razorpay orders API.
type RazorpayGateway struct {
	http      *resty.Client
	keyID     string
	keySecret string
}

func NewRazorpayGateway(cfg config.RazorpayConfig) (*RazorpayGateway, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keyID == "" || keySecret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "razorpay key id and secret are required")
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetBasicAuth(keyID, keySecret).
		SetHeader("Accept", "application/json")
	return &RazorpayGateway{http: client, keyID: keyID, keySecret: keySecret}, nil
}

func (g *RazorpayGateway) Provider() string { return config.PaymentProviderRazorpay }

// PublicKey is the key id the checkout widget needs.
func (g *RazorpayGateway) PublicKey() string { return g.keyID }

func (g *RazorpayGateway) CreateOrder(ctx context.Context, input CreateOrderInput) (*GatewayOrder, error) {
	if err := validateOrderInput(input); err != nil {
		return nil, err
	}
	body := razorpayOrderRequest{
		Amount:   input.Amount,
		Currency: strings.ToUpper(input.Currency),
		Receipt:  input.Receipt,
	}
	if input.OrderID != "" {
		body.Notes = map[string]string{"order_id": input.OrderID}
	}

	var out GatewayOrder
	var apiErr razorpayError
	resp, err := g.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post("/orders")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "create payment order")
	}
	if resp.IsError() {
		return nil, pkgerrors.New(pkgerrors.CodeUpstream, "payment gateway rejected order").
			WithDetails(map[string]any{
				"status":      resp.StatusCode(),
				"code":        apiErr.Error.Code,
				"description": apiErr.Error.Description,
			})
	}
	if out.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUpstream, "payment gateway returned no order id")
	}
	out.Provider = g.Provider()
	return &out, nil
}

// VerifyPayment checks the widget signature, an HMAC-SHA256 over
// "order_id|payment_id" keyed by the secret.
func (g *RazorpayGateway) VerifyPayment(_ context.Context, confirmation Confirmation) error {
	if confirmation.GatewayOrderID == "" || confirmation.PaymentID == "" || confirmation.Signature == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "gateway_order_id, payment_id and signature are required")
	}
	expected := Sign(g.keySecret, confirmation.GatewayOrderID, confirmation.PaymentID)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(confirmation.Signature))) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "payment signature mismatch")
	}
	return nil
}

// Sign computes the hex signature Razorpay attaches to a successful payment.
func Sign(secret, gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func validateOrderInput(input CreateOrderInput) error {
	var missing []string
	if input.Amount <= 0 {
		missing = append(missing, "amount")
	}
	if strings.TrimSpace(input.Currency) == "" {
		missing = append(missing, "currency")
	}
	if strings.TrimSpace(input.Receipt) == "" {
		missing = append(missing, "receipt")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment order: %s", strings.Join(missing, ", "))).
			WithDetails(map[string]any{"fields": missing})
	}
	return nil
}
