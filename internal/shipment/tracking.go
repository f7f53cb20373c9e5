package shipment

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Created is the part of an adhoc order response the fulfillment flow keeps.
type Created struct {
	OrderID    string
	ShipmentID string
	Status     string
	AWBCode    string
}

type createResponse struct {
	OrderID    json.Number `json:"order_id"`
	ShipmentID json.Number `json:"shipment_id"`
	Status     string      `json:"status"`
	AWBCode    string      `json:"awb_code"`
}

// ParseCreated extracts carrier ids from a create-order response.
func ParseCreated(raw json.RawMessage) (*Created, error) {
	var resp createResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode shipment response: %w", err)
	}
	if resp.OrderID.String() == "" {
		return nil, fmt.Errorf("shipment response missing order_id")
	}
	return &Created{
		OrderID:    resp.OrderID.String(),
		ShipmentID: resp.ShipmentID.String(),
		Status:     resp.Status,
		AWBCode:    resp.AWBCode,
	}, nil
}

// Tracking is the customer-facing view of a carrier order.
type Tracking struct {
	OrderID      string `json:"order_id"`
	Status       string `json:"status"`
	CustomerName string `json:"customer_name"`
	Email        string `json:"customer_email"`
	Phone        string `json:"customer_phone"`
}

type trackResponse struct {
	Data struct {
		ID           json.Number `json:"id"`
		Status       string      `json:"status"`
		CustomerName string      `json:"customer_name"`
		Email        string      `json:"customer_email"`
		Phone        string      `json:"customer_phone"`
	} `json:"data"`
}

// ParseTracking reads the order summary out of a show-order response.
func ParseTracking(raw json.RawMessage) (*Tracking, error) {
	var resp trackResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode tracking response: %w", err)
	}
	return &Tracking{
		OrderID:      resp.Data.ID.String(),
		Status:       resp.Data.Status,
		CustomerName: resp.Data.CustomerName,
		Email:        resp.Data.Email,
		Phone:        resp.Data.Phone,
	}, nil
}

// Confirmed reports whether the carrier has confirmed the order.
func (t *Tracking) Confirmed() bool {
	return t != nil && strings.EqualFold(strings.TrimSpace(t.Status), "confirmed")
}
