package types

import "github.com/google/uuid"

// VariantDescriptor snapshots one selected variant at order time.
type VariantDescriptor struct {
	ID         *uuid.UUID `json:"id,omitempty"`
	Name       string     `json:"name"`
	PriceMinor int64      `json:"price_minor"`
}

// OrderLine is the priced snapshot of a cart line stored on an order.
type OrderLine struct {
	SKU            string            `json:"sku"`
	ProductID      *uuid.UUID        `json:"product_id,omitempty"`
	Name           string            `json:"name"`
	Image          string            `json:"image,omitempty"`
	IsCustom       bool              `json:"is_custom"`
	Quantity       int               `json:"quantity"`
	UnitPriceMinor int64             `json:"unit_price_minor"`
	LineTotalMinor int64             `json:"line_total_minor"`
	Frame          VariantDescriptor `json:"frame"`
	SubFrame       VariantDescriptor `json:"sub_frame"`
	Size           VariantDescriptor `json:"size"`
}

// OrderLines is stored as a JSON document on the order row.
type OrderLines []OrderLine
