// Package registry routes outbox rows to a Pub/Sub topic and decodes their
// typed payloads before publishing.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/wallcraft/storefront-backend/pkg/config"
	"github.com/wallcraft/storefront-backend/pkg/db/models"
	"github.com/wallcraft/storefront-backend/pkg/enums"
	"github.com/wallcraft/storefront-backend/pkg/outbox"
	"github.com/wallcraft/storefront-backend/pkg/outbox/payloads"
)

// Route says where an event type is published and what its data decodes to.
type Route struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	newPayload    func() any
}

// Resolved is a row that passed routing and payload checks.
type Resolved struct {
	Route    Route
	Envelope outbox.PayloadEnvelope
	Payload  any
}

type Registry struct {
	routes map[enums.OutboxEventType]Route
}

// PermanentError marks a row that will never publish no matter how often it
// is retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}

// New builds the routing table. Every storefront event goes to the orders
// topic today; the table keeps per-type topics possible.
func New(cfg config.PubSubConfig) (*Registry, error) {
	if cfg.OrdersTopic == "" {
		return nil, errors.New("orders topic is required")
	}
	topic := cfg.OrdersTopic

	routes := []Route{
		{enums.EventOrderPaid, enums.AggregateOrder, topic, func() any { return &payloads.OrderPaidEvent{} }},
		{enums.EventOrderStatusChanged, enums.AggregateOrder, topic, func() any { return &payloads.OrderStatusChangedEvent{} }},
		{enums.EventOrderPaymentCancelled, enums.AggregateOrder, topic, func() any { return &payloads.PaymentCancelledEvent{} }},
		{enums.EventShipmentCreated, enums.AggregateFulfillment, topic, func() any { return &payloads.ShipmentCreatedEvent{} }},
		{enums.EventShipmentFailed, enums.AggregateFulfillment, topic, func() any { return &payloads.ShipmentFailedEvent{} }},
	}

	reg := &Registry{routes: make(map[enums.OutboxEventType]Route, len(routes))}
	for _, r := range routes {
		reg.routes[r.EventType] = r
	}
	return reg, nil
}

// Resolve checks row against its route and decodes the envelope data. Every
// failure is permanent.
func (r *Registry) Resolve(row models.OutboxEvent) (*Resolved, error) {
	route, ok := r.routes[row.EventType]
	switch {
	case !ok:
		return nil, Permanent(fmt.Errorf("no route for event type %q", row.EventType))
	case route.AggregateType != row.AggregateType:
		return nil, Permanent(fmt.Errorf("%s belongs to %s aggregates, row has %s", row.EventType, route.AggregateType, row.AggregateType))
	case row.AggregateID == uuid.Nil:
		return nil, Permanent(errors.New("row has no aggregate id"))
	}

	env, err := outbox.DecodeEnvelope(row)
	if err != nil {
		return nil, Permanent(err)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, Permanent(fmt.Errorf("%s envelope has no data", row.EventType))
	}

	payload := route.newPayload()
	if err := json.Unmarshal(env.Data, payload); err != nil {
		return nil, Permanent(fmt.Errorf("decode %s data: %w", row.EventType, err))
	}
	return &Resolved{Route: route, Envelope: env, Payload: payload}, nil
}
