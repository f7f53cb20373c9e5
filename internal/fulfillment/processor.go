package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wallcraft/storefront-backend/internal/cart"
	"github.com/wallcraft/storefront-backend/internal/orders"
	"github.com/wallcraft/storefront-backend/internal/shipment"
	"github.com/wallcraft/storefront-backend/pkg/config"
	"github.com/wallcraft/storefront-backend/pkg/db/models"
	"github.com/wallcraft/storefront-backend/pkg/enums"
	pkgerrors "github.com/wallcraft/storefront-backend/pkg/errors"
	"github.com/wallcraft/storefront-backend/pkg/logger"
	"github.com/wallcraft/storefront-backend/pkg/metrics"
	"github.com/wallcraft/storefront-backend/pkg/outbox"
	"github.com/wallcraft/storefront-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type shipmentCreator interface {
	CreateOrder(ctx context.Context, token string, payload map[string]any) (json.RawMessage, error)
}

type orderNotifier interface {
	OrderCreated(ctx context.Context, order *models.Order, created *shipment.Created)
}

type cartClearer interface {
	ClearUserTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
	Clear(ctx context.Context, owner cart.Owner) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Outcome is what a single processing attempt did.
type Outcome string

const (
	OutcomeSkipped Outcome = "skipped"
	OutcomeCreated Outcome = "created"
	OutcomeFailed  Outcome = "failed"
)

// Summary counts the outcomes of one RunDue pass.
type Summary struct {
	Due     int
	Created int
	Failed  int
	Skipped int
}

type ProcessorParams struct {
	Repo           *Repository
	Orders         *orders.Repository
	Tx             txRunner
	Shipments      shipmentCreator
	Notifier       orderNotifier
	Cart           cartClearer
	Outbox         outboxPublisher
	Config         config.FulfillmentConfig
	PickupLocation string
	Metrics        *metrics.CheckoutMetrics
	Logger         *logger.Logger
	Now            func() time.Time
}

// Processor turns captured payments into carrier shipments. A fulfillment is
// claimed before the carrier is called, so one payment yields at most one
// shipment attempt at a time and at most one created shipment.
type Processor struct {
	repo      *Repository
	orders    *orders.Repository
	tx        txRunner
	shipments shipmentCreator
	notifier  orderNotifier
	cart      cartClearer
	outbox    outboxPublisher
	cfg       config.FulfillmentConfig
	pickup    string
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
	now       func() time.Time
}

func NewProcessor(params ProcessorParams) (*Processor, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("fulfillment repository required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Shipments == nil:
		return nil, fmt.Errorf("shipment client required")
	case params.Cart == nil:
		return nil, fmt.Errorf("cart service required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	cfg := params.Config
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 30 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Minute
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = 2 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Processor{
		repo:      params.Repo,
		orders:    params.Orders,
		tx:        params.Tx,
		shipments: params.Shipments,
		notifier:  params.Notifier,
		cart:      params.Cart,
		outbox:    params.Outbox,
		cfg:       cfg,
		pickup:    params.PickupLocation,
		metrics:   params.Metrics,
		logg:      params.Logger,
		now:       now,
	}, nil
}

// Enqueue records a captured payment inside the caller's transaction. A
// repeated call for the same payment returns the existing row and false.
func (p *Processor) Enqueue(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, paymentID string) (*models.Fulfillment, bool, error) {
	repo := p.repo.WithTx(tx)
	row := &models.Fulfillment{
		OrderID:   orderID,
		PaymentID: paymentID,
		Status:    enums.FulfillmentStatusPaymentCaptured,
	}
	created, err := repo.CreateIfAbsent(ctx, row)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create fulfillment")
	}
	if created {
		return row, true, nil
	}
	existing, err := repo.FindByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fulfillment")
	}
	if existing.OrderID != orderID {
		return nil, false, pkgerrors.New(pkgerrors.CodeConflict, "payment already used for another order")
	}
	return existing, false, nil
}

// RunDue processes every fulfillment that is currently due.
func (p *Processor) RunDue(ctx context.Context) (Summary, error) {
	ids, err := p.repo.DueIDs(ctx, p.now().UTC(), p.cfg.BatchSize, p.cfg.MaxAttempts)
	if err != nil {
		return Summary{}, fmt.Errorf("list due fulfillments: %w", err)
	}
	summary := Summary{Due: len(ids)}
	for _, id := range ids {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		outcome, _ := p.Process(ctx, id)
		switch outcome {
		case OutcomeCreated:
			summary.Created++
		case OutcomeFailed:
			summary.Failed++
		default:
			summary.Skipped++
		}
	}
	return summary, nil
}

// Process makes one shipment attempt for the fulfillment if it can be claimed.
func (p *Processor) Process(ctx context.Context, id uuid.UUID) (Outcome, error) {
	now := p.now().UTC()
	claimed, err := p.repo.Claim(ctx, id, now, p.cfg.ClaimTTL)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("claim fulfillment: %w", err)
	}
	if !claimed {
		return OutcomeSkipped, nil
	}

	row, err := p.repo.FindByID(ctx, id)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("load fulfillment: %w", err)
	}
	ctx = p.logg.WithFields(ctx, map[string]any{
		"fulfillment_id": row.ID.String(),
		"attempt":        row.Attempts,
	})
	ctx = p.logg.WithOrderID(ctx, row.OrderID.String())
	ctx = p.logg.WithPaymentID(ctx, row.PaymentID)

	order, err := p.orders.FindByID(ctx, row.OrderID)
	if err != nil {
		return OutcomeFailed, p.fail(ctx, row, nil, fmt.Errorf("load order: %w", err), now)
	}
	if _, err := p.orders.TransitionCheckout(ctx, order.ID,
		[]enums.CheckoutState{enums.CheckoutStatePaymentConfirmed, enums.CheckoutStateShipmentCreationFailed},
		map[string]any{"checkout_state": enums.CheckoutStateCreatingShipment},
	); err != nil {
		return OutcomeFailed, p.fail(ctx, row, order, fmt.Errorf("mark creating shipment: %w", err), now)
	}

	created, err := p.createShipment(ctx, order, now)
	if err != nil {
		return OutcomeFailed, p.fail(ctx, row, order, err, now)
	}
	if err := p.complete(ctx, row, order, created, now); err != nil {
		return OutcomeFailed, err
	}
	return OutcomeCreated, nil
}

// Retry re-arms a failed fulfillment and runs it immediately.
func (p *Processor) Retry(ctx context.Context, paymentID string) (*models.Fulfillment, error) {
	row, err := p.repo.FindByPaymentID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "fulfillment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fulfillment")
	}
	switch row.Status {
	case enums.FulfillmentStatusShipmentFailed:
		ok, err := p.repo.ResetForRetry(ctx, row.ID, p.now().UTC())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset fulfillment")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "fulfillment changed concurrently")
		}
	case enums.FulfillmentStatusPaymentCaptured:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "fulfillment is not retryable").
			WithDetails(map[string]any{"status": row.Status})
	}

	if _, err := p.Process(ctx, row.ID); err != nil {
		p.logg.Warn(ctx, fmt.Sprintf("manual fulfillment retry failed: %v", err))
	}
	refreshed, err := p.repo.FindByID(ctx, row.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload fulfillment")
	}
	return refreshed, nil
}

func (p *Processor) createShipment(ctx context.Context, order *models.Order, now time.Time) (*shipment.Created, error) {
	payload, err := shipment.BuildOrderRequest(order, p.pickup, now).Payload()
	if err != nil {
		return nil, fmt.Errorf("encode shipment request: %w", err)
	}
	raw, err := p.shipments.CreateOrder(ctx, "", payload)
	if err != nil {
		return nil, err
	}
	return shipment.ParseCreated(raw)
}

func (p *Processor) fail(ctx context.Context, row *models.Fulfillment, order *models.Order, cause error, now time.Time) error {
	reason := cause.Error()
	var next *time.Time
	// carrier rejections and missing credentials wait for a manual retry
	if row.Attempts < p.cfg.MaxAttempts && pkgerrors.IsRetryable(cause) {
		at := now.Add(Backoff(p.cfg.BaseBackoff, p.cfg.MaxBackoff, row.Attempts))
		next = &at
	}

	err := p.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := p.repo.WithTx(tx).MarkFailed(ctx, row.ID, reason, next); err != nil {
			return err
		}
		if order != nil {
			if _, err := p.orders.WithTx(tx).TransitionCheckout(ctx, order.ID,
				[]enums.CheckoutState{enums.CheckoutStateCreatingShipment, enums.CheckoutStatePaymentConfirmed},
				map[string]any{"checkout_state": enums.CheckoutStateShipmentCreationFailed, "last_error": reason},
			); err != nil {
				return err
			}
		}
		return p.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventShipmentFailed,
			AggregateType: enums.AggregateFulfillment,
			AggregateID:   row.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.ShipmentFailedEvent{
				OrderID:       row.OrderID,
				FulfillmentID: row.ID,
				PaymentID:     row.PaymentID,
				Attempts:      row.Attempts,
				Error:         reason,
				NextAttemptAt: next,
				FailedAt:      now,
			},
		})
	})
	if err != nil {
		p.logg.Error(ctx, "failed to record shipment failure", err)
	}
	p.metrics.ShipmentResult(string(OutcomeFailed))
	if next == nil {
		p.logg.Error(ctx, "shipment creation failed, attempts exhausted", cause)
	} else {
		p.logg.Warn(p.logg.WithField(ctx, "next_attempt_at", next.Format(time.RFC3339)), fmt.Sprintf("shipment creation failed: %s", reason))
	}
	return cause
}

func (p *Processor) complete(ctx context.Context, row *models.Fulfillment, order *models.Order, created *shipment.Created, now time.Time) error {
	guestToClear := ""
	err := p.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := p.repo.WithTx(tx)
		ok, err := repo.MarkCreated(ctx, row.ID, created.OrderID, created.ShipmentID)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "fulfillment claim lost before completion")
		}
		if _, err := p.orders.WithTx(tx).TransitionCheckout(ctx, order.ID,
			[]enums.CheckoutState{
				enums.CheckoutStateCreatingShipment,
				enums.CheckoutStateShipmentCreationFailed,
				enums.CheckoutStatePaymentConfirmed,
			},
			map[string]any{
				"checkout_state":    enums.CheckoutStateCompleted,
				"shipment_order_id": created.OrderID,
				"shipment_id":       created.ShipmentID,
				"last_error":        nil,
			},
		); err != nil {
			return err
		}

		cleared, err := repo.MarkCartCleared(ctx, row.ID)
		if err != nil {
			return err
		}
		if cleared {
			switch {
			case order.UserID != nil:
				if err := p.cart.ClearUserTx(ctx, tx, *order.UserID); err != nil {
					return err
				}
			case order.GuestSessionID != nil:
				guestToClear = *order.GuestSessionID
			}
		}

		return p.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventShipmentCreated,
			AggregateType: enums.AggregateFulfillment,
			AggregateID:   row.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.ShipmentCreatedEvent{
				OrderID:         order.ID,
				FulfillmentID:   row.ID,
				PaymentID:       row.PaymentID,
				ShipmentOrderID: created.OrderID,
				ShipmentID:      created.ShipmentID,
				CreatedAt:       now,
			},
		})
	})
	if err != nil {
		// the carrier order exists; an operator must reconcile before retrying
		p.logg.Error(ctx, "shipment created but completion could not be recorded", err)
		return err
	}
	p.metrics.ShipmentResult(string(OutcomeCreated))
	p.logg.Info(p.logg.WithField(ctx, "shipment_order_id", created.OrderID), "shipment created")

	if guestToClear != "" {
		if err := p.cart.Clear(ctx, cart.Owner{GuestSessionID: guestToClear}); err != nil {
			p.logg.Error(ctx, "failed to clear guest cart", err)
		}
	}
	p.notify(ctx, row.ID, order.ID, created, now)
	return nil
}

func (p *Processor) notify(ctx context.Context, fulfillmentID, orderID uuid.UUID, created *shipment.Created, now time.Time) {
	if p.notifier == nil {
		return
	}
	first, err := p.repo.MarkNotified(ctx, fulfillmentID, now)
	if err != nil {
		p.logg.Error(ctx, "failed to record notification", err)
		return
	}
	if !first {
		return
	}
	order, err := p.orders.FindByID(ctx, orderID)
	if err != nil {
		p.logg.Error(ctx, "failed to reload order for notification", err)
		return
	}
	p.notifier.OrderCreated(ctx, order, created)
}

// Backoff doubles base per prior attempt and caps at max.
func Backoff(base, max time.Duration, attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := base
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
