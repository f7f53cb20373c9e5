package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/wallcraft/storefront-backend/internal/orders"
	"github.com/wallcraft/storefront-backend/pkg/db/models"
	"github.com/wallcraft/storefront-backend/pkg/enums"
	"github.com/wallcraft/storefront-backend/pkg/logger"
	"github.com/wallcraft/storefront-backend/pkg/metrics"
	"github.com/wallcraft/storefront-backend/pkg/outbox"
	"github.com/wallcraft/storefront-backend/pkg/outbox/payloads"
)

const (
	defaultPaymentWindow = 2 * time.Hour
	expiryBatchSize      = 100
	expiryReason         = "payment window elapsed"
)

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type staleOrderRepo interface {
	StaleInState(ctx context.Context, state enums.CheckoutState, cutoff time.Time, limit int) ([]models.Order, error)
	TransitionCheckout(ctx context.Context, id uuid.UUID, from []enums.CheckoutState, updates map[string]any) (bool, error)
}

type staleOrderRepoFactory func(tx *gorm.DB) staleOrderRepo

type CheckoutExpiryJobParams struct {
	Logger  *logger.Logger
	DB      txRunner
	Orders  *orders.Repository
	Outbox  outboxEmitter
	Metrics *metrics.CheckoutMetrics
	// Window is how long an order may sit in AwaitingUserPayment.
	Window time.Duration
}

// NewCheckoutExpiryJob cancels orders whose shopper never completed payment.
// The cart is left untouched, matching a manual cancel.
func NewCheckoutExpiryJob(params CheckoutExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	window := params.Window
	if window <= 0 {
		window = defaultPaymentWindow
	}
	repo := params.Orders
	return &checkoutExpiryJob{
		logg:    params.Logger,
		db:      params.DB,
		reader:  repo,
		repoFor: func(tx *gorm.DB) staleOrderRepo { return repo.WithTx(tx) },
		outbox:  params.Outbox,
		metrics: params.Metrics,
		window:  window,
		now:     time.Now,
	}, nil
}

type checkoutExpiryJob struct {
	logg    *logger.Logger
	db      txRunner
	reader  staleOrderRepo
	repoFor staleOrderRepoFactory
	outbox  outboxEmitter
	metrics *metrics.CheckoutMetrics
	window  time.Duration
	now     func() time.Time
}

func (j *checkoutExpiryJob) Name() string { return "checkout-expiry" }

func (j *checkoutExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.window)
	stale, err := j.reader.StaleInState(ctx, enums.CheckoutStateAwaitingUserPayment, cutoff, expiryBatchSize)
	if err != nil {
		return fmt.Errorf("query stale checkouts: %w", err)
	}

	var errs error
	expired := 0
	for _, order := range stale {
		ok, err := j.expire(ctx, order)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		if ok {
			expired++
			j.metrics.PaymentResult(order.PaymentProvider, "cancelled")
		}
	}
	if expired > 0 {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"expired": expired,
			"cutoff":  cutoff,
		}), "expired abandoned checkouts")
	}
	return errs
}

func (j *checkoutExpiryJob) expire(ctx context.Context, order models.Order) (bool, error) {
	now := j.now().UTC()
	changed := false
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := j.repoFor(tx).TransitionCheckout(ctx, order.ID,
			[]enums.CheckoutState{enums.CheckoutStateAwaitingUserPayment},
			map[string]any{
				"checkout_state": enums.CheckoutStatePaymentCancelled,
				"payment_status": enums.PaymentStatusFailed,
				"last_error":     expiryReason,
			},
		)
		if err != nil || !ok {
			return err
		}
		changed = true
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaymentCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.PaymentCancelledEvent{
				OrderID:     order.ID,
				Reason:      expiryReason,
				CancelledAt: now,
			},
		})
	})
	return changed && err == nil, err
}
