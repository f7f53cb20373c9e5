package checkout

import (
	"time"

	"github.com/google/uuid"

	"github.com/wallcraft/storefront-backend/internal/orders"
	"github.com/wallcraft/storefront-backend/internal/pricing"
	"github.com/wallcraft/storefront-backend/pkg/checkout"
	"github.com/wallcraft/storefront-backend/pkg/db/models"
	"github.com/wallcraft/storefront-backend/pkg/enums"
)

// StartInput is the checkout form. Client-side totals are never accepted.
type StartInput struct {
	Details    checkout.ShippingDetails
	CouponCode string
}

// StartResult is what the payment widget needs to collect payment.
type StartResult struct {
	OrderID        uuid.UUID      `json:"order_id"`
	OrderNumber    string         `json:"order_number"`
	GatewayOrderID string         `json:"gateway_order_id"`
	Provider       string         `json:"provider"`
	Amount         int64          `json:"amount"`
	Currency       string         `json:"currency"`
	KeyID          string         `json:"key_id"`
	ClientSecret   string         `json:"client_secret,omitempty"`
	Totals         pricing.Totals `json:"totals"`
}

// ConfirmInput is the payment widget's success callback.
type ConfirmInput struct {
	GatewayOrderID string
	PaymentID      string
	Signature      string
}

// FulfillmentSummary exposes shipment progress to the shopper.
type FulfillmentSummary struct {
	Status          enums.FulfillmentStatus `json:"status"`
	Attempts        int                     `json:"attempts"`
	NextAttemptAt   *time.Time              `json:"next_attempt_at,omitempty"`
	LastError       *string                 `json:"last_error,omitempty"`
	ShipmentOrderID *string                 `json:"shipment_order_id,omitempty"`
	ShipmentID      *string                 `json:"shipment_id,omitempty"`
}

// StatusView is the checkout progress of one order.
type StatusView struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	CheckoutState enums.CheckoutState `json:"checkout_state"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Order         *orders.OrderView   `json:"order"`
	Fulfillment   *FulfillmentSummary `json:"fulfillment,omitempty"`
}

func summarize(f *models.Fulfillment) *FulfillmentSummary {
	if f == nil {
		return nil
	}
	return &FulfillmentSummary{
		Status:          f.Status,
		Attempts:        f.Attempts,
		NextAttemptAt:   f.NextAttemptAt,
		LastError:       f.LastError,
		ShipmentOrderID: f.ShipmentOrderID,
		ShipmentID:      f.ShipmentID,
	}
}
