package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallcraft/storefront-backend/pkg/config"
	"github.com/wallcraft/storefront-backend/pkg/db/models"
	"github.com/wallcraft/storefront-backend/pkg/enums"
	"github.com/wallcraft/storefront-backend/pkg/outbox"
	"github.com/wallcraft/storefront-backend/pkg/outbox/payloads"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := New(config.PubSubConfig{OrdersTopic: "storefront-orders"})
	require.NoError(t, err)
	return reg
}

func row(t *testing.T, eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, data string) models.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Data:       json.RawMessage(data),
	})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: aggregate,
		AggregateID:   uuid.New(),
		Payload:       payload,
	}
}

func TestResolveOrderPaid(t *testing.T) {
	orderID := uuid.New()
	data, err := json.Marshal(payloads.OrderPaidEvent{
		OrderID:         orderID,
		PaymentID:       "pay_123",
		PaymentProvider: "razorpay",
		TotalMinor:      145000,
		Currency:        "INR",
	})
	require.NoError(t, err)

	resolved, err := testRegistry(t).Resolve(row(t, enums.EventOrderPaid, enums.AggregateOrder, string(data)))
	require.NoError(t, err)

	assert.Equal(t, "storefront-orders", resolved.Route.Topic)
	assert.NotEmpty(t, resolved.Envelope.EventID)
	paid, ok := resolved.Payload.(*payloads.OrderPaidEvent)
	require.True(t, ok, "payload type %T", resolved.Payload)
	assert.Equal(t, orderID, paid.OrderID)
	assert.Equal(t, int64(145000), paid.TotalMinor)
}

func TestResolveShipmentFailed(t *testing.T) {
	resolved, err := testRegistry(t).Resolve(row(t, enums.EventShipmentFailed, enums.AggregateFulfillment,
		`{"paymentId":"pay_1","attempts":3,"error":"timeout"}`))
	require.NoError(t, err)

	failed := resolved.Payload.(*payloads.ShipmentFailedEvent)
	assert.Equal(t, 3, failed.Attempts)
	assert.Equal(t, "timeout", failed.Error)
}

func TestResolveRejectsBadRowsPermanently(t *testing.T) {
	reg := testRegistry(t)

	noAggregate := row(t, enums.EventOrderPaid, enums.AggregateOrder, `{}`)
	noAggregate.AggregateID = uuid.Nil

	garbled := row(t, enums.EventOrderPaid, enums.AggregateOrder, `{}`)
	garbled.Payload = json.RawMessage(`{"data":`)

	cases := map[string]models.OutboxEvent{
		"unknown type":       row(t, enums.OutboxEventType("coupon_redeemed"), enums.AggregateOrder, `{"code":"SAVE10"}`),
		"aggregate mismatch": row(t, enums.EventOrderPaid, enums.AggregateFulfillment, `{}`),
		"missing aggregate":  noAggregate,
		"null data":          row(t, enums.EventOrderStatusChanged, enums.AggregateOrder, `null`),
		"garbled envelope":   garbled,
		"wrong data shape":   row(t, enums.EventOrderPaid, enums.AggregateOrder, `{"totalMinor":"lots"}`),
	}
	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(r)
			require.Error(t, err)
			assert.True(t, IsPermanent(err), "got %v", err)
		})
	}
}

func TestPermanent(t *testing.T) {
	assert.Nil(t, Permanent(nil))
	assert.False(t, IsPermanent(errors.New("timeout")))

	cause := errors.New("bad topic")
	err := Permanent(cause)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, cause)
}

func TestNewRequiresTopic(t *testing.T) {
	_, err := New(config.PubSubConfig{})
	assert.Error(t, err)
}
