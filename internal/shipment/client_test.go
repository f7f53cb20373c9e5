package shipment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallcraft/storefront-backend/pkg/config"
	pkgerrors "github.com/wallcraft/storefront-backend/pkg/errors"
)

func testConfig(baseURL string) config.ShiprocketConfig {
	return config.ShiprocketConfig{
		Email:          "ops@example.com",
		Password:       "secret",
		Token:          "static-token",
		BaseURL:        baseURL,
		PickupLocation: "Primary",
		Timeout:        2 * time.Second,
	}
}

func validPayload() map[string]any {
	return map[string]any{
		"order_id":              "WC-1",
		"billing_customer_name": "Asha",
		"billing_address":       "12 MG Road",
		"billing_city":          "Pune",
		"billing_pincode":       "411001",
		"billing_email":         "asha@example.com",
		"billing_phone":         "9999999999",
	}
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
}

func TestAuthenticateFallsBackToConfiguredAccount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		var body loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ops@example.com", body.Email)
		assert.Equal(t, "secret", body.Password)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"fresh"}`))
	}))
	defer server.Close()

	token, err := NewClient(testConfig(server.URL)).Authenticate(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
}

func TestAuthenticateRejectedCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid email and password combination"}`))
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL)).Authenticate(context.Background(), "x@example.com", "bad")
	assertCode(t, err, pkgerrors.CodeUpstream)
}

func TestAuthenticateWithoutAnyCredentials(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Email, cfg.Password = "", ""
	_, err := NewClient(cfg).Authenticate(context.Background(), "", "")
	assertCode(t, err, pkgerrors.CodeConfiguration)
}

func TestCreateOrderValidatesBeforeCalling(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { calls++ }))
	defer server.Close()
	client := NewClient(testConfig(server.URL))

	payload := validPayload()
	delete(payload, "billing_customer_name")
	payload["billing_pincode"] = "  "
	_, err := client.CreateOrder(context.Background(), "tok", payload)
	assertCode(t, err, pkgerrors.CodeValidation)
	details := pkgerrors.As(err).Details().(map[string]any)
	assert.ElementsMatch(t, []string{"billing_pincode", "customer_name"}, details["fields"])
	assert.Zero(t, calls)

	payload = validPayload()
	delete(payload, "billing_customer_name")
	payload["customer_name"] = "Asha"
	require.NoError(t, ValidateOrderPayload(payload))
}

func TestCreateOrderPostsWithBearer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"token":"fresh"}`))
		case "/orders/create/adhoc":
			assert.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"order_id":101,"shipment_id":202,"status":"NEW","awb_code":""}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	raw, err := NewClient(testConfig(server.URL)).CreateOrder(context.Background(), "", validPayload())
	require.NoError(t, err)
	created, err := ParseCreated(raw)
	require.NoError(t, err)
	assert.Equal(t, "101", created.OrderID)
	assert.Equal(t, "202", created.ShipmentID)
}

func TestCreateOrderUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"pickup location invalid"}`))
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL)).CreateOrder(context.Background(), "tok", validPayload())
	assertCode(t, err, pkgerrors.CodeUpstream)
	details := pkgerrors.As(err).Details().(map[string]any)
	assert.Contains(t, details["upstream_body"], "pickup location invalid")
	assert.Equal(t, http.StatusUnprocessableEntity, details["upstream_status"])
}

func TestTrackOrderRequiresToken(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Token = ""
	_, err := NewClient(cfg).TrackOrder(context.Background(), "101")
	assertCode(t, err, pkgerrors.CodeConfiguration)
	assert.Contains(t, err.Error(), "SHIPROCKET_TOKEN")

	_, err = NewClient(testConfig("http://127.0.0.1:1")).TrackOrder(context.Background(), " ")
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestTrackOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/show/101", r.URL.Path)
		assert.Equal(t, "Bearer static-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":101,"status":"CONFIRMED","customer_name":"Asha","customer_email":"asha@example.com","customer_phone":"9999999999"}}`))
	}))
	defer server.Close()

	raw, err := NewClient(testConfig(server.URL)).TrackOrder(context.Background(), "101")
	require.NoError(t, err)
	tracking, err := ParseTracking(raw)
	require.NoError(t, err)
	assert.True(t, tracking.Confirmed())
	assert.Equal(t, "101", tracking.OrderID)
	assert.Equal(t, "9999999999", tracking.Phone)
}

func TestParseCreatedRequiresOrderID(t *testing.T) {
	_, err := ParseCreated(json.RawMessage(`{"message":"Wrong Pickup location entered"}`))
	require.Error(t, err)
}
