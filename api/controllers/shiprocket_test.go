package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wallcraft/storefront-backend/internal/payments"
	"github.com/wallcraft/storefront-backend/internal/shipment"
	pkgerrors "github.com/wallcraft/storefront-backend/pkg/errors"
)

type stubShipmentGateway struct {
	email    string
	token    string
	payload  map[string]any
	tracking json.RawMessage
	err      error
}

func (s *stubShipmentGateway) Authenticate(ctx context.Context, email, password string) (string, error) {
	s.email = email
	if s.err != nil {
		return "", s.err
	}
	return "carrier-token", nil
}

func (s *stubShipmentGateway) CreateOrder(ctx context.Context, token string, payload map[string]any) (json.RawMessage, error) {
	s.token = token
	s.payload = payload
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(`{"order_id":101,"shipment_id":202}`), nil
}

func (s *stubShipmentGateway) TrackOrder(ctx context.Context, orderID string) (json.RawMessage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.tracking, nil
}

type recordingNotifier struct {
	tracked []*shipment.Tracking
}

func (n *recordingNotifier) TrackingConfirmed(ctx context.Context, tracking *shipment.Tracking) {
	n.tracked = append(n.tracked, tracking)
}

type stubPaymentGateway struct {
	input *payments.CreateOrderInput
}

func (g *stubPaymentGateway) Provider() string  { return "razorpay" }
func (g *stubPaymentGateway) PublicKey() string { return "rzp_test_key" }

func (g *stubPaymentGateway) CreateOrder(ctx context.Context, input payments.CreateOrderInput) (*payments.GatewayOrder, error) {
	g.input = &input
	return &payments.GatewayOrder{ID: "order_gw_1", Amount: input.Amount, Currency: input.Currency, Receipt: input.Receipt, Provider: "razorpay"}, nil
}

func (g *stubPaymentGateway) VerifyPayment(ctx context.Context, confirmation payments.Confirmation) error {
	return nil
}

func TestShiprocketAuthReturnsToken(t *testing.T) {
	gw := &stubShipmentGateway{}
	req := httptest.NewRequest(http.MethodPost, "/api/shiprocket/auth", bytes.NewReader([]byte(`{"email":"ops@example.com","password":"pw"}`)))

	resp := httptest.NewRecorder()
	ShiprocketAuth(gw, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["token"] != "carrier-token" || gw.email != "ops@example.com" {
		t.Fatalf("unexpected response %v (email %q)", body, gw.email)
	}
}

func TestShiprocketCreateOrderWrapsCarrierResponse(t *testing.T) {
	gw := &stubShipmentGateway{}
	body := []byte(`{"token":"tok","orderData":{"billing_customer_name":"Asha","billing_address":"12 MG Road"}}`)

	resp := httptest.NewRecorder()
	ShiprocketCreateOrder(gw, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/shiprocket/create-order", bytes.NewReader(body)))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var out struct {
		Success       bool           `json:"success"`
		OrderResponse map[string]int `json:"orderResponse"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Success || out.OrderResponse["shipment_id"] != 202 {
		t.Fatalf("unexpected response %+v", out)
	}
	if gw.token != "tok" || gw.payload["billing_customer_name"] != "Asha" {
		t.Fatalf("unexpected forwarded call %q %v", gw.token, gw.payload)
	}
}

func TestShiprocketCreateOrderMissingFields(t *testing.T) {
	gw := &stubShipmentGateway{err: pkgerrors.New(pkgerrors.CodeValidation, "missing required order fields")}
	body := []byte(`{"orderData":{"billing_address":"12 MG Road"}}`)

	resp := httptest.NewRecorder()
	ShiprocketCreateOrder(gw, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestShiprocketCreateOrderUpstreamFailure(t *testing.T) {
	gw := &stubShipmentGateway{err: pkgerrors.New(pkgerrors.CodeUpstream, "shiprocket create order failed")}
	body := []byte(`{"orderData":{"billing_address":"12 MG Road"}}`)

	resp := httptest.NewRecorder()
	ShiprocketCreateOrder(gw, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

func TestShiprocketTrackOrderRequiresID(t *testing.T) {
	resp := httptest.NewRecorder()
	ShiprocketTrackOrder(&stubShipmentGateway{}, nil, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/shiprocket/track-order", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestShiprocketTrackOrderNotifiesWhenConfirmed(t *testing.T) {
	gw := &stubShipmentGateway{tracking: json.RawMessage(`{"data":{"id":101,"status":"CONFIRMED","customer_name":"Asha","customer_email":"asha@example.com","customer_phone":""}}`)}
	notifier := &recordingNotifier{}

	resp := httptest.NewRecorder()
	ShiprocketTrackOrder(gw, notifier, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/shiprocket/track-order?order_id=101", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(notifier.tracked) != 1 || notifier.tracked[0].OrderID != "101" {
		t.Fatalf("expected one tracking notification, got %+v", notifier.tracked)
	}
}

func TestShiprocketTrackOrderSkipsNotificationOtherwise(t *testing.T) {
	gw := &stubShipmentGateway{tracking: json.RawMessage(`{"data":{"id":101,"status":"NEW"}}`)}
	notifier := &recordingNotifier{}

	resp := httptest.NewRecorder()
	ShiprocketTrackOrder(gw, notifier, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/?order_id=101", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(notifier.tracked) != 0 {
		t.Fatalf("expected no notification, got %d", len(notifier.tracked))
	}
}

func TestShiprocketTrackOrderWithoutToken(t *testing.T) {
	gw := &stubShipmentGateway{err: pkgerrors.New(pkgerrors.CodeConfiguration, "SHIPROCKET_TOKEN is not configured")}

	resp := httptest.NewRecorder()
	ShiprocketTrackOrder(gw, nil, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/?order_id=101", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

func TestPaymentCreateOrderDefaultsCurrency(t *testing.T) {
	gw := &stubPaymentGateway{}
	body := []byte(`{"amount":205000,"receipt":"rcpt_1"}`)

	resp := httptest.NewRecorder()
	PaymentCreateOrder(gw, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/payment/create-order", bytes.NewReader(body)))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if gw.input == nil || gw.input.Currency != "INR" || gw.input.Amount != 205000 {
		t.Fatalf("unexpected input %+v", gw.input)
	}
	var order payments.GatewayOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if order.ID != "order_gw_1" {
		t.Fatalf("expected raw gateway order, got %+v", order)
	}
}

func TestPaymentCreateOrderRejectsNonPositiveAmount(t *testing.T) {
	gw := &stubPaymentGateway{}

	resp := httptest.NewRecorder()
	PaymentCreateOrder(gw, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{"amount":0}`))))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if gw.input != nil {
		t.Fatalf("gateway should not be called")
	}
}
