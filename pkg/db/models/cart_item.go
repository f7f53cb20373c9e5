package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one line of a registered user's cart. Guest carts live in Redis.
type CartItem struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index:cart_items_user_id_idx"`
	ProductID      *uuid.UUID `gorm:"column:product_id;type:uuid"`
	FrameTypeID    *uuid.UUID `gorm:"column:frame_type_id;type:uuid"`
	SubFrameTypeID *uuid.UUID `gorm:"column:sub_frame_type_id;type:uuid"`
	SizeID         *uuid.UUID `gorm:"column:size_id;type:uuid"`
	Quantity       int        `gorm:"column:quantity;not null"`
	IsCustom       bool       `gorm:"column:is_custom;not null;default:false"`
	CustomImageURL *string    `gorm:"column:custom_image_url"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
