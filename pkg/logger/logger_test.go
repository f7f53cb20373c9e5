package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLast(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestErrorCarriesScopedFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithOrderID(ctx, "order-9")
	log.Error(ctx, "checkout.failed", errors.New("boom"))

	entry := decodeLast(t, buf)
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "order-9", entry["order_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "api", entry["service"])
	assert.Contains(t, entry, "stack")
}

func TestScopedFieldsDoNotLeakToParent(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Output: buf})

	parent := log.WithGuestSession(context.Background(), "g-1")
	_ = log.WithPaymentID(parent, "pay_1")
	log.Info(parent, "cart.merged")

	entry := decodeLast(t, buf)
	assert.Equal(t, "g-1", entry["guest_session_id"])
	assert.NotContains(t, entry, "payment_id")
}

func TestRequestIDSurvivesLaterFields(t *testing.T) {
	log := New(Options{ServiceName: "api", Output: &bytes.Buffer{}})

	ctx := log.WithRequestID(context.Background(), "req-7")
	ctx = log.WithFields(ctx, map[string]any{"path": "/api/v1/cart"})

	assert.Equal(t, "req-7", RequestID(ctx))
	assert.Empty(t, RequestID(context.Background()))
}

func TestWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "worker", Output: buf, WarnStack: true}).Warn(context.Background(), "slow")
	assert.Contains(t, decodeLast(t, buf), "stack")

	buf.Reset()
	New(Options{ServiceName: "worker", Output: buf}).Warn(context.Background(), "slow")
	assert.NotContains(t, decodeLast(t, buf), "stack")
}

func TestDebugRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "worker", Output: buf}).Debug(context.Background(), "tick")
	assert.Zero(t, buf.Len())

	New(Options{ServiceName: "worker", Output: buf, Level: zerolog.DebugLevel}).Debug(context.Background(), "tick")
	assert.Equal(t, "tick", decodeLast(t, buf)["message"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG "))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
}
