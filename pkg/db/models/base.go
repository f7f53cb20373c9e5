package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ensureID assigns a client-side UUID so inserts work on drivers without
// gen_random_uuid().
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (m *CartItem) BeforeCreate(*gorm.DB) error     { ensureID(&m.ID); return nil }
func (m *WishlistItem) BeforeCreate(*gorm.DB) error { ensureID(&m.ID); return nil }
func (m *Coupon) BeforeCreate(*gorm.DB) error       { ensureID(&m.ID); return nil }
func (m *Order) BeforeCreate(*gorm.DB) error        { ensureID(&m.ID); return nil }
func (m *Fulfillment) BeforeCreate(*gorm.DB) error  { ensureID(&m.ID); return nil }
func (m *OutboxEvent) BeforeCreate(*gorm.DB) error  { ensureID(&m.ID); return nil }
func (m *OutboxDLQ) BeforeCreate(*gorm.DB) error    { ensureID(&m.ID); return nil }
func (m *Product) BeforeCreate(*gorm.DB) error      { ensureID(&m.ID); return nil }
func (m *FrameType) BeforeCreate(*gorm.DB) error    { ensureID(&m.ID); return nil }
func (m *SubFrameType) BeforeCreate(*gorm.DB) error { ensureID(&m.ID); return nil }
func (m *Size) BeforeCreate(*gorm.DB) error         { ensureID(&m.ID); return nil }

func (OutboxDLQ) TableName() string { return "outbox_dlq" }

// All lists every persisted model, in dependency order, for schema bootstrapping
// on drivers the SQL migrations do not target.
func All() []any {
	return []any{
		&Product{},
		&FrameType{},
		&SubFrameType{},
		&Size{},
		&CartItem{},
		&WishlistItem{},
		&Coupon{},
		&Order{},
		&Fulfillment{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
