package cart

import (
	"strings"

	"github.com/google/uuid"

	"github.com/wallcraft/storefront-backend/internal/catalog"
	"github.com/wallcraft/storefront-backend/pkg/db/models"
)

// Owner identifies whose cart is being read or mutated. Exactly one of
// UserID and GuestSessionID is set.
type Owner struct {
	UserID         *uuid.UUID
	GuestSessionID string
}

// IsGuest reports whether the owner is an anonymous session.
func (o Owner) IsGuest() bool {
	return o.UserID == nil
}

// Valid reports whether the owner carries an identity.
func (o Owner) Valid() bool {
	if o.UserID != nil {
		return *o.UserID != uuid.Nil
	}
	return strings.TrimSpace(o.GuestSessionID) != ""
}

// Item is one cart line. Guest sessions store items in this shape.
type Item struct {
	ID             *uuid.UUID `json:"id,omitempty"`
	ProductID      *uuid.UUID `json:"productId,omitempty"`
	FrameType      *uuid.UUID `json:"frameType,omitempty"`
	SubFrameType   *uuid.UUID `json:"subFrameType,omitempty"`
	Size           *uuid.UUID `json:"size,omitempty"`
	Quantity       int        `json:"quantity"`
	IsCustom       bool       `json:"isCustom"`
	CustomImageURL string     `json:"customImageUrl,omitempty"`
}

// Key is the compound identity used to address registered cart lines and to
// detect collisions when merging.
type Key struct {
	ProductID      *uuid.UUID
	FrameType      *uuid.UUID
	SubFrameType   *uuid.UUID
	Size           *uuid.UUID
	CustomImageURL string
}

func (i Item) Key() Key {
	return Key{
		ProductID:      i.ProductID,
		FrameType:      i.FrameType,
		SubFrameType:   i.SubFrameType,
		Size:           i.Size,
		CustomImageURL: i.CustomImageURL,
	}
}

// Matches compares keys treating nil and uuid.Nil as equal.
func (k Key) Matches(other Key) bool {
	return sameID(k.ProductID, other.ProductID) &&
		sameID(k.FrameType, other.FrameType) &&
		sameID(k.SubFrameType, other.SubFrameType) &&
		sameID(k.Size, other.Size) &&
		k.CustomImageURL == other.CustomImageURL
}

func sameID(a, b *uuid.UUID) bool {
	av, bv := uuid.Nil, uuid.Nil
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// Locator addresses a line: by array index for guests, by compound key for
// registered users. A guest request without an index falls back to the key.
type Locator struct {
	Index *int
	Key   Key
}

// MissingVariants lists the fields an item still needs before checkout.
func (i Item) MissingVariants() []string {
	var missing []string
	if i.IsCustom {
		if strings.TrimSpace(i.CustomImageURL) == "" {
			missing = append(missing, "customImageUrl")
		}
		return missing
	}
	if i.ProductID == nil || *i.ProductID == uuid.Nil {
		missing = append(missing, "productId")
	}
	if i.FrameType == nil || *i.FrameType == uuid.Nil {
		missing = append(missing, "frameType")
	}
	if i.SubFrameType == nil || *i.SubFrameType == uuid.Nil {
		missing = append(missing, "subFrameType")
	}
	if i.Size == nil || *i.Size == uuid.Nil {
		missing = append(missing, "size")
	}
	return missing
}

// Selection converts the item into a catalog pricing input.
func (i Item) Selection() catalog.Selection {
	return catalog.Selection{
		ProductID:      i.ProductID,
		FrameTypeID:    i.FrameType,
		SubFrameTypeID: i.SubFrameType,
		SizeID:         i.Size,
		Quantity:       i.Quantity,
		IsCustom:       i.IsCustom,
		CustomImageURL: i.CustomImageURL,
	}
}

// Selections converts a cart into pricing inputs.
func Selections(items []Item) []catalog.Selection {
	out := make([]catalog.Selection, len(items))
	for idx, item := range items {
		out[idx] = item.Selection()
	}
	return out
}

func itemFromModel(m models.CartItem) Item {
	id := m.ID
	item := Item{
		ID:           &id,
		ProductID:    m.ProductID,
		FrameType:    m.FrameTypeID,
		SubFrameType: m.SubFrameTypeID,
		Size:         m.SizeID,
		Quantity:     m.Quantity,
		IsCustom:     m.IsCustom,
	}
	if m.CustomImageURL != nil {
		item.CustomImageURL = *m.CustomImageURL
	}
	return item
}

func modelFromItem(userID uuid.UUID, item Item) models.CartItem {
	row := models.CartItem{
		UserID:         userID,
		ProductID:      item.ProductID,
		FrameTypeID:    item.FrameType,
		SubFrameTypeID: item.SubFrameType,
		SizeID:         item.Size,
		Quantity:       item.Quantity,
		IsCustom:       item.IsCustom,
	}
	if url := strings.TrimSpace(item.CustomImageURL); url != "" {
		row.CustomImageURL = &url
	}
	return row
}
