package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/wallcraft/storefront-backend/pkg/enums"
)

// OrderPaidEvent is emitted once a payment is confirmed and fulfillment is queued.
type OrderPaidEvent struct {
	OrderID         uuid.UUID  `json:"orderId"`
	UserID          *uuid.UUID `json:"userId,omitempty"`
	PaymentID       string     `json:"paymentId"`
	PaymentProvider string     `json:"paymentProvider"`
	TotalMinor      int64      `json:"totalMinor"`
	Currency        string     `json:"currency"`
	PaidAt          time.Time  `json:"paidAt"`
}

// OrderStatusChangedEvent records an admin or system driven status change.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"orderId"`
	FromStatus enums.OrderStatus `json:"fromStatus"`
	ToStatus   enums.OrderStatus `json:"toStatus"`
	ChangedAt  time.Time         `json:"changedAt"`
}

// PaymentCancelledEvent is emitted when a shopper abandons an open payment.
type PaymentCancelledEvent struct {
	OrderID     uuid.UUID `json:"orderId"`
	Reason      string    `json:"reason,omitempty"`
	CancelledAt time.Time `json:"cancelledAt"`
}

type ShipmentCreatedEvent struct {
	OrderID         uuid.UUID `json:"orderId"`
	FulfillmentID   uuid.UUID `json:"fulfillmentId"`
	PaymentID       string    `json:"paymentId"`
	ShipmentOrderID string    `json:"shipmentOrderId"`
	ShipmentID      string    `json:"shipmentId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

type ShipmentFailedEvent struct {
	OrderID       uuid.UUID  `json:"orderId"`
	FulfillmentID uuid.UUID  `json:"fulfillmentId"`
	PaymentID     string     `json:"paymentId"`
	Attempts      int        `json:"attempts"`
	Error         string     `json:"error"`
	NextAttemptAt *time.Time `json:"nextAttemptAt,omitempty"`
	FailedAt      time.Time  `json:"failedAt"`
}
