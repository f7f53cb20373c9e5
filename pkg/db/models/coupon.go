package models

import (
	"time"

	"github.com/google/uuid"
)

// Coupon is a percentage discount valid until ExpirationDate plus the
// ExpirationTime offset ("HH:MM:SS"), both read as UTC.
type Coupon struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Code            string    `gorm:"column:code;not null;uniqueIndex:coupons_code_key"`
	DiscountPercent int       `gorm:"column:discount_percent;not null"`
	ExpirationDate  time.Time `gorm:"column:expiration_date;not null"`
	ExpirationTime  string    `gorm:"column:expiration_time;not null;default:'00:00:00'"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}
