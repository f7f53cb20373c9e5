package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/wallcraft/storefront-backend/pkg/errors"
	"github.com/wallcraft/storefront-backend/pkg/logger"
)

func decodeFailure(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body Failure
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

func TestWriteSuccessWrapsData(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"order_id": "o-1"})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var body Success
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.(map[string]any)["order_id"] != "o-1" {
		t.Fatalf("unexpected payload %v", body.Data)
	}
}

func TestWriteJSONSkipsEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusOK, map[string]any{"awb": "123"})

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["awb"] != "123" || body["data"] != nil {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestWriteErrorExposesValidationDetails(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
		WithDetails(map[string]string{"field": "quantity"})
	WriteError(context.Background(), nil, w, err)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	body := decodeFailure(t, w)
	if body.Code != string(pkgerrors.CodeValidation) || body.Message != "quantity must be positive" {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.Details == nil {
		t.Fatalf("expected details in public payload")
	}
}

func TestWriteErrorSurfacesConfigurationMessage(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodeConfiguration, "SHIPROCKET_TOKEN is not configured"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if msg := decodeFailure(t, w).Message; msg != "SHIPROCKET_TOKEN is not configured" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestWriteErrorHidesDependencyMessage(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("dial tcp"), "load cart"))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if msg := decodeFailure(t, w).Message; msg != "dependency unavailable" {
		t.Fatalf("dependency failures must use the public message, got %q", msg)
	}
}

func TestWriteErrorTreatsUntypedAsInternal(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})
	ctx := logg.WithRequestID(context.Background(), "req-42")

	w := httptest.NewRecorder()
	WriteError(ctx, logg, w, errors.New("boom"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	body := decodeFailure(t, w)
	if body.Code != string(pkgerrors.CodeInternal) || body.Message != "internal server error" {
		t.Fatalf("internal errors must not leak, got %+v", body)
	}
	if body.Details != nil {
		t.Fatalf("details should be omitted for internal errors")
	}
	if body.RequestID != "req-42" {
		t.Fatalf("expected request id echoed, got %q", body.RequestID)
	}
	if !bytes.Contains(buf.Bytes(), []byte("request.error")) || !bytes.Contains(buf.Bytes(), []byte(`"error_chain"`)) {
		t.Fatalf("expected diagnostic log entry, got %s", buf.String())
	}
}
