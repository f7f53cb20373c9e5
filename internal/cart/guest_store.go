package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wallcraft/storefront-backend/pkg/redis"
)

type guestSessionStore interface {
	SaveGuestSession(ctx context.Context, sessionID, payload string, ttl time.Duration) error
	LoadGuestSession(ctx context.Context, sessionID string) (string, error)
	DeleteGuestSession(ctx context.Context, sessionID string) error
}

// GuestSession is the Redis document backing an anonymous cart.
type GuestSession struct {
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GuestStore keeps guest carts in Redis with a sliding TTL.
type GuestStore struct {
	store guestSessionStore
	ttl   time.Duration
}

func NewGuestStore(store guestSessionStore, ttl time.Duration) (*GuestStore, error) {
	if store == nil {
		return nil, errors.New("guest session store required")
	}
	if ttl <= 0 {
		return nil, errors.New("guest session ttl must be positive")
	}
	return &GuestStore{store: store, ttl: ttl}, nil
}

// Load returns the session's items; an unknown session is an empty cart.
func (g *GuestStore) Load(ctx context.Context, sessionID string) ([]Item, error) {
	raw, err := g.store.LoadGuestSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Item{}, nil
		}
		return nil, fmt.Errorf("load guest session: %w", err)
	}
	var session GuestSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("decode guest session: %w", err)
	}
	if session.Items == nil {
		session.Items = []Item{}
	}
	return session.Items, nil
}

func (g *GuestStore) Save(ctx context.Context, sessionID string, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	payload, err := json.Marshal(GuestSession{Items: items, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode guest session: %w", err)
	}
	return g.store.SaveGuestSession(ctx, sessionID, string(payload), g.ttl)
}

func (g *GuestStore) Delete(ctx context.Context, sessionID string) error {
	return g.store.DeleteGuestSession(ctx, sessionID)
}
