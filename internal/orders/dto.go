package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/wallcraft/storefront-backend/internal/pricing"
	"github.com/wallcraft/storefront-backend/pkg/db/models"
	"github.com/wallcraft/storefront-backend/pkg/enums"
	"github.com/wallcraft/storefront-backend/pkg/types"
)

// ListFilters narrows an order listing. Nil fields are ignored.
type ListFilters struct {
	UserID        *uuid.UUID
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	CheckoutState *enums.CheckoutState
}

// OrderList is one page of orders.
type OrderList struct {
	Orders     []models.Order
	NextCursor string
}

// StatusUpdateInput is an admin status change. At least one of Status and
// PaymentStatus must be set.
type StatusUpdateInput struct {
	OrderID       uuid.UUID
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	ActorUserID   *uuid.UUID
	ActorRole     string
}

// OrderView is the API representation of an order.
type OrderView struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	UserID          *uuid.UUID          `json:"user_id,omitempty"`
	CustomerName    string              `json:"customer_name"`
	Email           string              `json:"email"`
	Phone           string              `json:"phone"`
	ShippingAddress string              `json:"shipping_address"`
	BillingAddress  string              `json:"billing_address"`
	City            string              `json:"city"`
	State           string              `json:"state"`
	Pincode         string              `json:"pincode"`
	Country         string              `json:"country"`
	Items           types.OrderLines    `json:"items"`
	Subtotal        pricing.Money       `json:"subtotal"`
	Shipping        pricing.Money       `json:"shipping"`
	Tax             pricing.Money       `json:"tax"`
	Discount        pricing.Money       `json:"discount"`
	Total           pricing.Money       `json:"total"`
	CouponCode      *string             `json:"coupon_code,omitempty"`
	DiscountPercent int                 `json:"discount_percent"`
	Currency        string              `json:"currency"`
	CheckoutState   enums.CheckoutState `json:"checkout_state"`
	Status          enums.OrderStatus   `json:"status"`
	PaymentStatus   enums.PaymentStatus `json:"payment_status"`
	PaymentProvider string              `json:"payment_provider"`
	GatewayOrderID  *string             `json:"gateway_order_id,omitempty"`
	PaymentID       *string             `json:"payment_id,omitempty"`
	ShipmentOrderID *string             `json:"shipment_order_id,omitempty"`
	ShipmentID      *string             `json:"shipment_id,omitempty"`
	LastError       *string             `json:"last_error,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func NewOrderView(o *models.Order) *OrderView {
	if o == nil {
		return nil
	}
	return &OrderView{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		CustomerName:    o.CustomerName,
		Email:           o.Email,
		Phone:           o.Phone,
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		City:            o.City,
		State:           o.State,
		Pincode:         o.Pincode,
		Country:         o.Country,
		Items:           o.Items,
		Subtotal:        pricing.FromMinor(o.SubtotalMinor),
		Shipping:        pricing.FromMinor(o.ShippingMinor),
		Tax:             pricing.FromMinor(o.TaxMinor),
		Discount:        pricing.FromMinor(o.DiscountMinor),
		Total:           pricing.FromMinor(o.TotalMinor),
		CouponCode:      o.CouponCode,
		DiscountPercent: o.DiscountPercent,
		Currency:        o.Currency,
		CheckoutState:   o.CheckoutState,
		Status:          o.Status,
		PaymentStatus:   o.PaymentStatus,
		PaymentProvider: o.PaymentProvider,
		GatewayOrderID:  o.GatewayOrderID,
		PaymentID:       o.PaymentID,
		ShipmentOrderID: o.ShipmentOrderID,
		ShipmentID:      o.ShipmentID,
		LastError:       o.LastError,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// ListView is the API page of orders.
type ListView struct {
	Orders     []OrderView `json:"orders"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

func NewListView(list *OrderList) ListView {
	view := ListView{Orders: make([]OrderView, 0)}
	if list == nil {
		return view
	}
	for i := range list.Orders {
		view.Orders = append(view.Orders, *NewOrderView(&list.Orders[i]))
	}
	view.NextCursor = list.NextCursor
	return view
}
