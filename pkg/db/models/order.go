package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/wallcraft/storefront-backend/pkg/enums"
	"github.com/wallcraft/storefront-backend/pkg/types"
)

// Order is the authoritative record of a checkout attempt. Money columns are
// minor currency units.
type Order struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber    string     `gorm:"column:order_number;not null;uniqueIndex:orders_order_number_key"`
	UserID         *uuid.UUID `gorm:"column:user_id;type:uuid;index:orders_user_id_idx"`
	GuestSessionID *string    `gorm:"column:guest_session_id"`

	CustomerName    string `gorm:"column:customer_name;not null"`
	Email           string `gorm:"column:email;not null"`
	Phone           string `gorm:"column:phone;not null"`
	ShippingAddress string `gorm:"column:shipping_address;not null"`
	BillingAddress  string `gorm:"column:billing_address;not null"`
	City            string `gorm:"column:city;not null"`
	State           string `gorm:"column:state;not null"`
	Pincode         string `gorm:"column:pincode;not null"`
	Country         string `gorm:"column:country;not null"`

	Items           types.OrderLines `gorm:"column:items;type:jsonb;serializer:json;not null"`
	SubtotalMinor   int64            `gorm:"column:subtotal_minor;not null"`
	ShippingMinor   int64            `gorm:"column:shipping_minor;not null"`
	TaxMinor        int64            `gorm:"column:tax_minor;not null"`
	DiscountMinor   int64            `gorm:"column:discount_minor;not null"`
	TotalMinor      int64            `gorm:"column:total_minor;not null"`
	CouponCode      *string          `gorm:"column:coupon_code"`
	DiscountPercent int              `gorm:"column:discount_percent;not null;default:0"`
	Currency        string           `gorm:"column:currency;not null"`

	CheckoutState   enums.CheckoutState `gorm:"column:checkout_state;not null"`
	Status          enums.OrderStatus   `gorm:"column:status;not null"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;not null"`
	PaymentProvider string              `gorm:"column:payment_provider;not null"`
	GatewayOrderID  *string             `gorm:"column:gateway_order_id;index:orders_gateway_order_id_idx"`
	PaymentID       *string             `gorm:"column:payment_id"`
	ShipmentOrderID *string             `gorm:"column:shipment_order_id;index:orders_shipment_order_id_idx"`
	ShipmentID      *string             `gorm:"column:shipment_id"`
	LastError       *string             `gorm:"column:last_error"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// OwnerMatches reports whether the order belongs to the given user or guest.
func (o *Order) OwnerMatches(userID *uuid.UUID, guestSessionID string) bool {
	if o == nil {
		return false
	}
	if userID != nil && o.UserID != nil {
		return *o.UserID == *userID
	}
	if guestSessionID != "" && o.GuestSessionID != nil {
		return *o.GuestSessionID == guestSessionID
	}
	return false
}
