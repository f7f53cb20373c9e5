package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wallcraft/storefront-backend/pkg/redis"
)

const (
	// GuardScope namespaces delivered Stripe event ids in Redis.
	GuardScope = "stripe_webhook"
	// DefaultGuardTTL outlives Stripe's three-day redelivery window.
	DefaultGuardTTL = 72 * time.Hour
)

// EventGuard remembers which Stripe events were already handled so
// redeliveries are acknowledged without confirming an order twice.
type EventGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewEventGuard(store redis.IdempotencyStore, ttl time.Duration) (*EventGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if ttl == 0 {
		ttl = DefaultGuardTTL
	}
	return &EventGuard{store: store, ttl: ttl, scope: GuardScope}, nil
}

// CheckAndMark reports true when the event was seen before. Otherwise it
// records the event and returns false.
func (g *EventGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	key, err := g.key(eventID)
	if err != nil {
		return false, err
	}
	set, err := g.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.ttl)
	if err != nil {
		return false, fmt.Errorf("mark stripe event %s: %w", eventID, err)
	}
	return !set, nil
}

// Delete forgets the event so Stripe's next redelivery is handled again.
func (g *EventGuard) Delete(ctx context.Context, eventID string) error {
	key, err := g.key(eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *EventGuard) key(eventID string) (string, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey(g.scope, eventID), nil
}
