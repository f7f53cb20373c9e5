package shipment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/wallcraft/storefront-backend/pkg/config"
	pkgerrors "github.com/wallcraft/storefront-backend/pkg/errors"
)

// requiredOrderFields must be non-blank on every create-order payload.
var requiredOrderFields = []string{
	"billing_address",
	"billing_city",
	"billing_pincode",
	"billing_email",
	"billing_phone",
}

// Client is the Shiprocket adapter.
type Client struct {
	http *resty.Client
	cfg  config.ShiprocketConfig
}

func NewClient(cfg config.ShiprocketConfig) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: client, cfg: cfg}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Authenticate exchanges credentials for a bearer token. Blank arguments fall
// back to the configured account.
func (c *Client) Authenticate(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)
	if email == "" {
		email = strings.TrimSpace(c.cfg.Email)
	}
	if password == "" {
		password = strings.TrimSpace(c.cfg.Password)
	}
	if email == "" || password == "" {
		return "", pkgerrors.New(pkgerrors.CodeConfiguration, "shiprocket credentials are not configured")
	}

	var out loginResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(loginRequest{Email: email, Password: password}).
		SetResult(&out).
		Post("/auth/login")
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "shiprocket authentication")
	}
	if resp.IsError() || out.Token == "" {
		return "", upstreamError("shiprocket authentication failed", resp)
	}
	return out.Token, nil
}

// CreateOrder validates the payload and posts it as an adhoc order. An empty
// token triggers a fresh login with the configured account.
func (c *Client) CreateOrder(ctx context.Context, token string, payload map[string]any) (json.RawMessage, error) {
	if err := ValidateOrderPayload(payload); err != nil {
		return nil, err
	}
	if strings.TrimSpace(token) == "" {
		fresh, err := c.Authenticate(ctx, "", "")
		if err != nil {
			return nil, err
		}
		token = fresh
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post("/orders/create/adhoc")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "shiprocket create order")
	}
	if resp.IsError() {
		return nil, upstreamError("shiprocket rejected order", resp)
	}
	return json.RawMessage(resp.Body()), nil
}

// TrackOrder fetches an order with the statically configured token.
func (c *Client) TrackOrder(ctx context.Context, orderID string) (json.RawMessage, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order_id is required")
	}
	token := strings.TrimSpace(c.cfg.Token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "SHIPROCKET_TOKEN is not configured")
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		Get("/orders/show/" + url.PathEscape(orderID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "shiprocket track order")
	}
	if resp.IsError() {
		return nil, upstreamError("shiprocket track order failed", resp)
	}
	return json.RawMessage(resp.Body()), nil
}

// ValidateOrderPayload checks the minimal billing fields Shiprocket needs.
func ValidateOrderPayload(payload map[string]any) error {
	var missing []string
	for _, field := range requiredOrderFields {
		if blank(payload[field]) {
			missing = append(missing, field)
		}
	}
	if blank(payload["customer_name"]) && blank(payload["billing_customer_name"]) {
		missing = append(missing, "customer_name")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing required fields").
			WithDetails(map[string]any{"fields": missing})
	}
	return nil
}

func blank(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(value) == ""
	default:
		return false
	}
}

func upstreamError(msg string, resp *resty.Response) error {
	details := map[string]any{"upstream_status": resp.StatusCode()}
	if body := strings.TrimSpace(string(resp.Body())); body != "" {
		details["upstream_body"] = body
	}
	return pkgerrors.New(pkgerrors.CodeUpstream, fmt.Sprintf("%s (status %d)", msg, resp.StatusCode())).WithDetails(details)
}
