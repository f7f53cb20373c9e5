package models

import (
	"time"

	"github.com/google/uuid"
)

// Catalog prices are stored as text: rows imported from the legacy catalog
// carry blanks and non-numeric values, which price as zero.

type Product struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	ImageURL  string    `gorm:"column:image_url"`
	BasePrice *string   `gorm:"column:base_price"`
	Active    bool      `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

type FrameType struct {
	ID    uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name  string    `gorm:"column:name;not null"`
	Price *string   `gorm:"column:price"`
}

type SubFrameType struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	FrameTypeID uuid.UUID `gorm:"column:frame_type_id;type:uuid;not null"`
	Name        string    `gorm:"column:name;not null"`
	Price       *string   `gorm:"column:price"`
}

type Size struct {
	ID    uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Label string    `gorm:"column:label;not null"`
	Price *string   `gorm:"column:price"`
}
