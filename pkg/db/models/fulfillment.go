package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/wallcraft/storefront-backend/pkg/enums"
)

// Fulfillment drives shipment creation for a captured payment. PaymentID is
// unique so a payment can never produce two shipments.
type Fulfillment struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID               `gorm:"column:order_id;type:uuid;not null;uniqueIndex:fulfillments_order_id_key"`
	PaymentID       string                  `gorm:"column:payment_id;not null;uniqueIndex:fulfillments_payment_id_key"`
	Status          enums.FulfillmentStatus `gorm:"column:status;not null"`
	Attempts        int                     `gorm:"column:attempts;not null;default:0"`
	NextAttemptAt   *time.Time              `gorm:"column:next_attempt_at"`
	ClaimedUntil    *time.Time              `gorm:"column:claimed_until"`
	LastError       *string                 `gorm:"column:last_error"`
	ShipmentOrderID *string                 `gorm:"column:shipment_order_id"`
	ShipmentID      *string                 `gorm:"column:shipment_id"`
	CartCleared     bool                    `gorm:"column:cart_cleared;not null;default:false"`
	NotifiedAt      *time.Time              `gorm:"column:notified_at"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
