package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wallcraft/storefront-backend/pkg/db/models"
	"github.com/wallcraft/storefront-backend/pkg/enums"
)

// Repository persists fulfillments. Every state change is a conditional
// update so concurrent workers cannot both act on one row.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// CreateIfAbsent inserts the row unless one already exists for the payment.
// It reports whether this call created it.
func (r *Repository) CreateIfAbsent(ctx context.Context, f *models.Fulfillment) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "payment_id"}}, DoNothing: true}).
		Create(f)
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Fulfillment, error) {
	var f models.Fulfillment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *Repository) FindByPaymentID(ctx context.Context, paymentID string) (*models.Fulfillment, error) {
	var f models.Fulfillment
	if err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *Repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Fulfillment, error) {
	var f models.Fulfillment
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

// DueIDs lists fulfillments a worker may claim now: captured rows, failed
// rows whose backoff elapsed, and pending rows whose claim expired. Failed
// rows without a next attempt wait for ResetForRetry.
func (r *Repository) DueIDs(ctx context.Context, now time.Time, limit, maxAttempts int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.Fulfillment{}).
		Where(claimableScope(r.db, now)).
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", now).
		Where("attempts < ?", maxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// Claim marks the row ShipmentPending for ttl and counts the attempt.
func (r *Repository) Claim(ctx context.Context, id uuid.UUID, now time.Time, ttl time.Duration) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Fulfillment{}).
		Where("id = ?", id).
		Where(claimableScope(r.db, now)).
		Updates(map[string]any{
			"status":        enums.FulfillmentStatusShipmentPending,
			"claimed_until": now.Add(ttl),
			"attempts":      gorm.Expr("attempts + 1"),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) MarkCreated(ctx context.Context, id uuid.UUID, shipmentOrderID, shipmentID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Fulfillment{}).
		Where("id = ? AND status = ?", id, enums.FulfillmentStatusShipmentPending).
		Updates(map[string]any{
			"status":            enums.FulfillmentStatusShipmentCreated,
			"shipment_order_id": shipmentOrderID,
			"shipment_id":       shipmentID,
			"claimed_until":     nil,
			"next_attempt_at":   nil,
			"last_error":        nil,
		})
	return res.RowsAffected > 0, res.Error
}

// MarkFailed parks the row in ShipmentFailed. A nil nextAttemptAt leaves it
// for manual retry.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string, nextAttemptAt *time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Fulfillment{}).
		Where("id = ? AND status = ?", id, enums.FulfillmentStatusShipmentPending).
		Updates(map[string]any{
			"status":          enums.FulfillmentStatusShipmentFailed,
			"last_error":      reason,
			"next_attempt_at": nextAttemptAt,
			"claimed_until":   nil,
		})
	return res.RowsAffected > 0, res.Error
}

// MarkCartCleared flips cart_cleared once. Only the caller that gets true
// may clear the cart.
func (r *Repository) MarkCartCleared(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Fulfillment{}).
		Where("id = ? AND cart_cleared = ?", id, false).
		Update("cart_cleared", true)
	return res.RowsAffected > 0, res.Error
}

// MarkNotified records the first notification; later calls return false.
func (r *Repository) MarkNotified(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Fulfillment{}).
		Where("id = ? AND notified_at IS NULL", id).
		Update("notified_at", now)
	return res.RowsAffected > 0, res.Error
}

// ResetForRetry makes a failed fulfillment due immediately with a fresh
// attempt budget.
func (r *Repository) ResetForRetry(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Fulfillment{}).
		Where("id = ? AND status = ?", id, enums.FulfillmentStatusShipmentFailed).
		Updates(map[string]any{
			"attempts":        0,
			"next_attempt_at": now,
		})
	return res.RowsAffected > 0, res.Error
}

func claimableScope(db *gorm.DB, now time.Time) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Where("status = ?", enums.FulfillmentStatusPaymentCaptured).
		Or("status = ? AND next_attempt_at IS NOT NULL", enums.FulfillmentStatusShipmentFailed).
		Or("status = ? AND claimed_until < ?", enums.FulfillmentStatusShipmentPending, now)
}
