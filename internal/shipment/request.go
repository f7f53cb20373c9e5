package shipment

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wallcraft/storefront-backend/pkg/db/models"
	"github.com/wallcraft/storefront-backend/pkg/types"
)

const (
	notProvided   = "Not Provided"
	paymentMethod = "Prepaid"

	packageLengthCM  = 30
	packageBreadthCM = 30
	packageHeightCM  = 5
	packageWeightKG  = 1.5

	orderDateLayout = "2006-01-02 15:04"
)

// Descriptor is a named variant on a shipment line.
type Descriptor struct {
	Name string `json:"name"`
}

// OrderItem is one line of an adhoc order.
type OrderItem struct {
	Name         string     `json:"name"`
	SKU          string     `json:"sku"`
	Units        int        `json:"units"`
	SellingPrice float64    `json:"selling_price"`
	Discount     float64    `json:"discount"`
	Tax          float64    `json:"tax"`
	Frame        Descriptor `json:"frame"`
	SubFrame     Descriptor `json:"sub_frame"`
	Size         Descriptor `json:"size"`
	Image        string     `json:"image,omitempty"`
}

// OrderRequest is the Shiprocket adhoc order payload.
type OrderRequest struct {
	OrderID             string      `json:"order_id"`
	OrderDate           string      `json:"order_date"`
	PickupLocation      string      `json:"pickup_location"`
	BillingCustomerName string      `json:"billing_customer_name"`
	BillingLastName     string      `json:"billing_last_name"`
	BillingAddress      string      `json:"billing_address"`
	BillingCity         string      `json:"billing_city"`
	BillingPincode      string      `json:"billing_pincode"`
	BillingState        string      `json:"billing_state"`
	BillingCountry      string      `json:"billing_country"`
	BillingEmail        string      `json:"billing_email"`
	BillingPhone        string      `json:"billing_phone"`
	ShippingIsBilling   bool        `json:"shipping_is_billing"`
	ShippingName        string      `json:"shipping_customer_name,omitempty"`
	ShippingAddress     string      `json:"shipping_address,omitempty"`
	ShippingCity        string      `json:"shipping_city,omitempty"`
	ShippingPincode     string      `json:"shipping_pincode,omitempty"`
	ShippingState       string      `json:"shipping_state,omitempty"`
	ShippingCountry     string      `json:"shipping_country,omitempty"`
	ShippingEmail       string      `json:"shipping_email,omitempty"`
	ShippingPhone       string      `json:"shipping_phone,omitempty"`
	OrderItems          []OrderItem `json:"order_items"`
	PaymentMethod       string      `json:"payment_method"`
	ShippingCharges     float64     `json:"shipping_charges"`
	TotalDiscount       float64     `json:"total_discount"`
	SubTotal            float64     `json:"sub_total"`
	Length              int         `json:"length"`
	Breadth             int         `json:"breadth"`
	Height              int         `json:"height"`
	Weight              float64     `json:"weight"`
}

// SKU synthesizes the shipment sku for the line at index.
func SKU(productID *uuid.UUID, isCustom bool, index int) string {
	if isCustom || productID == nil {
		return fmt.Sprintf("CUSTOM-%d", index)
	}
	return fmt.Sprintf("%s-%d", productID.String(), index)
}

// BuildOrderRequest maps a paid order onto an adhoc shipment request. One
// order item is produced per order line and sub_total is the order subtotal.
func BuildOrderRequest(order *models.Order, pickupLocation string, now time.Time) OrderRequest {
	req := OrderRequest{
		OrderID:             order.OrderNumber,
		OrderDate:           now.UTC().Format(orderDateLayout),
		PickupLocation:      pickupLocation,
		BillingCustomerName: order.CustomerName,
		BillingAddress:      order.BillingAddress,
		BillingCity:         order.City,
		BillingPincode:      order.Pincode,
		BillingState:        order.State,
		BillingCountry:      order.Country,
		BillingEmail:        order.Email,
		BillingPhone:        order.Phone,
		ShippingIsBilling:   strings.TrimSpace(order.BillingAddress) == strings.TrimSpace(order.ShippingAddress),
		OrderItems:          make([]OrderItem, 0, len(order.Items)),
		PaymentMethod:       paymentMethod,
		ShippingCharges:     minor(order.ShippingMinor),
		TotalDiscount:       minor(order.DiscountMinor),
		SubTotal:            minor(order.SubtotalMinor),
		Length:              packageLengthCM,
		Breadth:             packageBreadthCM,
		Height:              packageHeightCM,
		Weight:              packageWeightKG,
	}
	if !req.ShippingIsBilling {
		req.ShippingName = order.CustomerName
		req.ShippingAddress = order.ShippingAddress
		req.ShippingCity = order.City
		req.ShippingPincode = order.Pincode
		req.ShippingState = order.State
		req.ShippingCountry = order.Country
		req.ShippingEmail = order.Email
		req.ShippingPhone = order.Phone
	}

	for i, line := range order.Items {
		sku := line.SKU
		if sku == "" {
			sku = SKU(line.ProductID, line.IsCustom, i)
		}
		req.OrderItems = append(req.OrderItems, OrderItem{
			Name:         line.Name,
			SKU:          sku,
			Units:        line.Quantity,
			SellingPrice: minor(line.UnitPriceMinor),
			Frame:        describe(line.Frame),
			SubFrame:     describe(line.SubFrame),
			Size:         describe(line.Size),
			Image:        line.Image,
		})
	}
	return req
}

// Payload converts the request into the generic form CreateOrder accepts.
func (r OrderRequest) Payload() (map[string]any, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func describe(d types.VariantDescriptor) Descriptor {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		name = notProvided
	}
	return Descriptor{Name: name}
}

// minor converts minor units to the major-unit numbers Shiprocket expects.
func minor(v int64) float64 {
	return decimal.New(v, -2).InexactFloat64()
}
