package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wallcraft/storefront-backend/pkg/config"
	"github.com/wallcraft/storefront-backend/pkg/db/models"
	"github.com/wallcraft/storefront-backend/pkg/enums"
	"github.com/wallcraft/storefront-backend/pkg/logger"
	"github.com/wallcraft/storefront-backend/pkg/outbox"
	"github.com/wallcraft/storefront-backend/pkg/outbox/registry"
)

type deadLetter struct {
	id     uuid.UUID
	reason enums.OutboxDLQErrorReason
}

type fakeRows struct {
	batch     []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	dead      []deadLetter
}

func (f *fakeRows) Claim(*gorm.DB, int, int) ([]models.OutboxEvent, error) { return f.batch, nil }

func (f *fakeRows) MarkPublished(_ *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRows) MarkFailed(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRows) DeadLetter(_ *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, _ error, _ int) error {
	f.dead = append(f.dead, deadLetter{id: row.ID, reason: reason})
	return nil
}

type fakeStore struct{}

func (fakeStore) Ping(context.Context) error { return nil }

func (fakeStore) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type fakeBroker struct{}

func (fakeBroker) Ping(context.Context) error { return nil }

func (fakeBroker) Publisher(string) *gcppubsub.Publisher { return nil }

type ack struct{ err error }

func (a ack) Get(context.Context) (string, error) { return "msg-1", a.err }

// fakeSender answers publishes from a queue of acks.
type fakeSender struct {
	acks []ackResult
	sent []*gcppubsub.Message
}

func (f *fakeSender) Publish(_ context.Context, msg *gcppubsub.Message) ackResult {
	f.sent = append(f.sent, msg)
	if len(f.acks) == 0 {
		return ack{}
	}
	next := f.acks[0]
	f.acks = f.acks[1:]
	return next
}

type fixedResolver struct{ err error }

func (f fixedResolver) Resolve(row models.OutboxEvent) (*registry.Resolved, error) {
	if f.err != nil {
		return nil, f.err
	}
	env, err := outbox.DecodeEnvelope(row)
	if err != nil {
		return nil, err
	}
	return &registry.Resolved{
		Route:    registry.Route{EventType: row.EventType, AggregateType: row.AggregateType, Topic: "storefront-orders"},
		Envelope: env,
	}, nil
}

func paidRow(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"paymentId":"pay_1"}`),
	})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       payload,
		AttemptCount:  attempts,
		CreatedAt:     time.Now().UTC(),
	}
}

func newTestRelay(t *testing.T, rows *fakeRows, res resolver, s *fakeSender, maxAttempts int) *Relay {
	t.Helper()
	relay, err := NewRelay(RelayParams{
		Outbox:   config.OutboxConfig{BatchSize: 10, PollIntervalMS: 10, MaxAttempts: maxAttempts},
		Logger:   logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:       fakeStore{},
		PubSub:   fakeBroker{},
		Rows:     rows,
		Registry: res,
		Sender:   func(string) sender { return s },
	})
	require.NoError(t, err)
	return relay
}

func TestDrainPublishesAndCarriesAttributes(t *testing.T) {
	row := paidRow(t, 0)
	rows := &fakeRows{batch: []models.OutboxEvent{row}}
	s := &fakeSender{}

	n, err := newTestRelay(t, rows, fixedResolver{}, s, 5).drainOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.Equal(t, []uuid.UUID{row.ID}, rows.published)
	require.Len(t, s.sent, 1)
	assert.Equal(t, []byte(row.Payload), s.sent[0].Data)
	assert.Equal(t, string(enums.EventOrderPaid), s.sent[0].Attributes["event_type"])
	assert.Equal(t, row.AggregateID.String(), s.sent[0].Attributes["aggregate_id"])
}

func TestDrainKeepsGoingAfterTransientFailure(t *testing.T) {
	first, second := paidRow(t, 0), paidRow(t, 0)
	rows := &fakeRows{batch: []models.OutboxEvent{first, second}}
	s := &fakeSender{acks: []ackResult{ack{err: errors.New("unavailable")}, ack{}}}

	_, err := newTestRelay(t, rows, fixedResolver{}, s, 5).drainOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{first.ID}, rows.failed)
	assert.Equal(t, []uuid.UUID{second.ID}, rows.published)
	assert.Empty(t, rows.dead)
}

func TestDrainEmptyBatch(t *testing.T) {
	n, err := newTestRelay(t, &fakeRows{}, fixedResolver{}, &fakeSender{}, 5).drainOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUnresolvableRowIsDeadLettered(t *testing.T) {
	row := paidRow(t, 0)
	rows := &fakeRows{batch: []models.OutboxEvent{row}}
	s := &fakeSender{}
	res := fixedResolver{err: registry.Permanent(errors.New("no route"))}

	_, err := newTestRelay(t, rows, res, s, 5).drainOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []deadLetter{{id: row.ID, reason: enums.OutboxDLQReasonNonRetryable}}, rows.dead)
	assert.Empty(t, s.sent)
	assert.Empty(t, rows.failed)
}

func TestLastAttemptIsDeadLettered(t *testing.T) {
	row := paidRow(t, 1)
	rows := &fakeRows{batch: []models.OutboxEvent{row}}
	s := &fakeSender{acks: []ackResult{ack{err: errors.New("deadline exceeded")}}}

	_, err := newTestRelay(t, rows, fixedResolver{}, s, 2).drainOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []deadLetter{{id: row.ID, reason: enums.OutboxDLQReasonMaxAttempts}}, rows.dead)
	assert.Empty(t, rows.failed, "a dead-lettered row is not also marked failed")
}

func TestMissingSenderIsPermanent(t *testing.T) {
	row := paidRow(t, 0)
	rows := &fakeRows{batch: []models.OutboxEvent{row}}
	relay := newTestRelay(t, rows, fixedResolver{}, nil, 5)
	relay.sender = func(string) sender { return nil }

	_, err := relay.drainOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, rows.dead, 1)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, rows.dead[0].reason)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := newTestRelay(t, &fakeRows{}, fixedResolver{}, &fakeSender{}, 5).Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewRelayRequiresDependencies(t *testing.T) {
	_, err := NewRelay(RelayParams{})
	assert.Error(t, err)
}
