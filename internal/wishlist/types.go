package wishlist

import (
	"time"

	"github.com/google/uuid"
)

// Item is a liked product as shown in the wishlist.
type Item struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	ImageURL  string    `json:"image_url,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Page is a cursor-paginated wishlist view.
type Page struct {
	Items      []Item `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

type itemRecord struct {
	WishlistID        uuid.UUID
	WishlistCreatedAt time.Time
	ProductID         uuid.UUID
	Name              string
	ImageURL          string
	Active            bool
}

func (r itemRecord) toItem() Item {
	return Item{
		ProductID: r.ProductID,
		Name:      r.Name,
		ImageURL:  r.ImageURL,
		Active:    r.Active,
		CreatedAt: r.WishlistCreatedAt,
	}
}
