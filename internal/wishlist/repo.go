package wishlist

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wallcraft/storefront-backend/pkg/db/models"
	"github.com/wallcraft/storefront-backend/pkg/pagination"
)

// Repository encapsulates wishlist persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AddItem inserts a wishlist entry and ignores duplicates. It reports whether
// a row was created.
func (r *Repository) AddItem(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	if userID == uuid.Nil || productID == uuid.Nil {
		return false, gorm.ErrInvalidValue
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Create(&models.WishlistItem{UserID: userID, ProductID: productID})
	return res.RowsAffected > 0, res.Error
}

// RemoveItem deletes the like if it exists.
func (r *Repository) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.WishlistItem{})
	return res.RowsAffected, res.Error
}

// ListItems returns the user's likes newest first, joined with the product.
func (r *Repository) ListItems(ctx context.Context, userID uuid.UUID, params pagination.Params) (Page, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return Page{}, err
	}

	query := r.db.WithContext(ctx).
		Table("wishlist_items wi").
		Select(strings.Join([]string{
			"wi.id AS wishlist_id",
			"wi.created_at AS wishlist_created_at",
			"p.id AS product_id",
			"p.name",
			"p.image_url",
			"p.active",
		}, ", ")).
		Joins("JOIN products p ON p.id = wi.product_id").
		Where("wi.user_id = ?", userID)

	var records []itemRecord
	if err := pagination.Keyset(query, "wi", cursor, params.Limit).Scan(&records).Error; err != nil {
		return Page{}, err
	}

	records, next := pagination.Trim(records, params.Limit, func(rec itemRecord) pagination.Cursor {
		return pagination.Cursor{CreatedAt: rec.WishlistCreatedAt, ID: rec.WishlistID}
	})
	page := Page{Items: make([]Item, 0, len(records)), NextCursor: next}
	for _, record := range records {
		page.Items = append(page.Items, record.toItem())
	}
	return page, nil
}
