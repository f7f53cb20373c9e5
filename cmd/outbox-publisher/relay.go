package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wallcraft/storefront-backend/pkg/config"
	"github.com/wallcraft/storefront-backend/pkg/db/models"
	"github.com/wallcraft/storefront-backend/pkg/enums"
	"github.com/wallcraft/storefront-backend/pkg/logger"
	"github.com/wallcraft/storefront-backend/pkg/outbox"
	"github.com/wallcraft/storefront-backend/pkg/outbox/registry"
)

const (
	publishTimeout = 15 * time.Second
	maxIdleWait    = 10 * time.Second
	jitterWindow   = 250 * time.Millisecond
)

type store interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type broker interface {
	Ping(context.Context) error
	Publisher(topic string) *gcppubsub.Publisher
}

type outboxRows interface {
	Claim(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(tx *gorm.DB, id uuid.UUID) error
	MarkFailed(tx *gorm.DB, id uuid.UUID, cause error) error
	DeadLetter(tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, terminalAttempts int) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.Resolved, error)
}

// sender is the slice of *gcppubsub.Publisher the relay needs.
type sender interface {
	Publish(context.Context, *gcppubsub.Message) ackResult
}

type ackResult interface {
	Get(context.Context) (string, error)
}

type RelayParams struct {
	Outbox   config.OutboxConfig
	Logger   *logger.Logger
	DB       store
	PubSub   broker
	Rows     outboxRows
	Registry resolver
	// Sender overrides the Pub/Sub publisher lookup; tests use it.
	Sender func(topic string) sender
}

// Relay moves committed outbox rows onto Pub/Sub. Each batch is claimed with
// FOR UPDATE SKIP LOCKED inside one transaction, so several relays can run
// against the same table.
type Relay struct {
	logg        *logger.Logger
	db          store
	pubsub      broker
	rows        outboxRows
	registry    resolver
	sender      func(topic string) sender
	batchSize   int
	maxAttempts int
	interval    time.Duration
}

func NewRelay(p RelayParams) (*Relay, error) {
	if p.Logger == nil || p.DB == nil || p.PubSub == nil || p.Rows == nil || p.Registry == nil {
		return nil, errors.New("relay: logger, db, pubsub, rows and registry are required")
	}

	r := &Relay{
		logg:        p.Logger,
		db:          p.DB,
		pubsub:      p.PubSub,
		rows:        p.Rows,
		registry:    p.Registry,
		sender:      p.Sender,
		batchSize:   orDefault(p.Outbox.BatchSize, 50),
		maxAttempts: orDefault(p.Outbox.MaxAttempts, 10),
		interval:    time.Duration(orDefault(p.Outbox.PollIntervalMS, 500)) * time.Millisecond,
	}
	if r.sender == nil {
		r.sender = func(topic string) sender {
			pub := p.PubSub.Publisher(topic)
			if pub == nil {
				return nil
			}
			return gcpSender{pub}
		}
	}
	return r, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Run drains the outbox until ctx is cancelled. A non-empty batch is
// followed straight away by the next one; an empty batch waits one poll
// interval and a failed batch doubles the wait up to maxIdleWait.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if err := r.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping: %w", err)
	}

	wait := r.interval
	for {
		n, err := r.drainOnce(ctx)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			r.logg.Error(ctx, "outbox.batch_failed", err)
			wait = min(wait*2, maxIdleWait)
		case n > 0:
			wait = r.interval
			continue
		default:
			wait = r.interval
		}

		timer := time.NewTimer(wait + rand.N(jitterWindow))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// drainOnce claims and handles one batch, returning how many rows it saw.
func (r *Relay) drainOnce(ctx context.Context) (int, error) {
	var n int
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		batch, err := r.rows.Claim(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim: %w", err)
		}
		n = len(batch)
		for _, row := range batch {
			if err := r.handle(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	return n, err
}

// handle publishes row and records the outcome on it. Publish failures are
// bookkept, not returned; only bookkeeping failures abort the batch.
func (r *Relay) handle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	ctx = r.logg.WithFields(ctx, map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"aggregate_id":  row.AggregateID.String(),
		"attempt_count": row.AttemptCount,
	})

	resolved, err := r.registry.Resolve(row)
	if err == nil {
		ctx = r.logg.WithField(ctx, "event_id", resolved.Envelope.EventID)
		err = r.publish(ctx, row, resolved)
	}

	switch {
	case err == nil:
		if err := r.rows.MarkPublished(tx, row.ID); err != nil {
			return fmt.Errorf("mark %s published: %w", row.ID, err)
		}
		r.logg.Info(ctx, "outbox.published")
		return nil
	case registry.IsPermanent(err):
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, err)
	case row.AttemptCount+1 >= r.maxAttempts:
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonMaxAttempts, err)
	}

	r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "outbox.publish_failed")
	if err := r.rows.MarkFailed(tx, row.ID, err); err != nil {
		return fmt.Errorf("mark %s failed: %w", row.ID, err)
	}
	return nil
}

func (r *Relay) deadLetter(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
		"error":        cause.Error(),
		"error_reason": reason,
	}), "outbox.dead_lettered")
	if err := r.rows.DeadLetter(tx, row, reason, cause, r.maxAttempts); err != nil {
		return fmt.Errorf("dead letter %s: %w", row.ID, err)
	}
	return nil
}

func (r *Relay) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.Resolved) error {
	topic := resolved.Route.Topic
	s := r.sender(topic)
	if s == nil {
		return registry.Permanent(fmt.Errorf("no publisher for topic %s", topic))
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	res := s.Publish(ctx, &gcppubsub.Message{
		Data:       row.Payload,
		Attributes: outbox.Attributes(row, resolved.Envelope),
	})
	if res == nil {
		return registry.Permanent(fmt.Errorf("publisher for %s returned no result", topic))
	}
	_, err := res.Get(ctx)
	return err
}

type gcpSender struct {
	pub *gcppubsub.Publisher
}

func (g gcpSender) Publish(ctx context.Context, msg *gcppubsub.Message) ackResult {
	return g.pub.Publish(ctx, msg)
}
