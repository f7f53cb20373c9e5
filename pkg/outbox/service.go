// Package outbox records domain events inside business transactions and
// gives the publisher the row-level operations it needs to drain them.
package outbox

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	dbpkg "github.com/wallcraft/storefront-backend/pkg/db"
	"github.com/wallcraft/storefront-backend/pkg/logger"
)

const onceConstraint = "ux_outbox_events_event_aggregate"

var errNoTx = errors.New("outbox: transaction required")

type Service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

// Emit queues event on tx. It becomes visible to the publisher only if tx commits.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errNoTx
	}
	row, env, err := newRow(event, s.now())
	if err != nil {
		return err
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"event_id":       env.EventID,
			"event_type":     event.EventType,
			"aggregate_type": event.AggregateType,
			"aggregate_id":   event.AggregateID.String(),
		}), "outbox event queued")
	}
	return nil
}

// EmitIfNotExists queues event unless one of the same type was already
// queued for the aggregate. A concurrent insert that trips the unique index
// counts as already queued.
func (s *Service) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errNoTx
	}
	exists, err := s.repo.Exists(tx, event.EventType, event.AggregateType, event.AggregateID)
	if err != nil || exists {
		return err
	}
	if err := s.Emit(ctx, tx, event); err != nil && !dbpkg.IsUniqueViolation(err, onceConstraint) {
		return err
	}
	return nil
}
