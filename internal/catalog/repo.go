package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wallcraft/storefront-backend/pkg/db/models"
)

// Repository reads catalog rows used to price cart lines.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Snapshot holds the catalog rows referenced by a set of selections.
type Snapshot struct {
	Products      map[uuid.UUID]models.Product
	FrameTypes    map[uuid.UUID]models.FrameType
	SubFrameTypes map[uuid.UUID]models.SubFrameType
	Sizes         map[uuid.UUID]models.Size
}

// Load fetches every referenced row in four queries.
func (r *Repository) Load(ctx context.Context, refs Refs) (*Snapshot, error) {
	snap := &Snapshot{
		Products:      map[uuid.UUID]models.Product{},
		FrameTypes:    map[uuid.UUID]models.FrameType{},
		SubFrameTypes: map[uuid.UUID]models.SubFrameType{},
		Sizes:         map[uuid.UUID]models.Size{},
	}
	conn := r.db.WithContext(ctx)

	if ids := refs.Products.list(); len(ids) > 0 {
		var rows []models.Product
		if err := conn.Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			snap.Products[row.ID] = row
		}
	}
	if ids := refs.FrameTypes.list(); len(ids) > 0 {
		var rows []models.FrameType
		if err := conn.Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			snap.FrameTypes[row.ID] = row
		}
	}
	if ids := refs.SubFrameTypes.list(); len(ids) > 0 {
		var rows []models.SubFrameType
		if err := conn.Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			snap.SubFrameTypes[row.ID] = row
		}
	}
	if ids := refs.Sizes.list(); len(ids) > 0 {
		var rows []models.Size
		if err := conn.Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			snap.Sizes[row.ID] = row
		}
	}
	return snap, nil
}

// ProductExists reports whether an active product exists.
func (r *Repository) ProductExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND active = ?", id, true).
		Count(&count).Error
	return count > 0, err
}

type idSet map[uuid.UUID]struct{}

func (s idSet) add(id *uuid.UUID) {
	if id != nil && *id != uuid.Nil {
		s[*id] = struct{}{}
	}
}

func (s idSet) list() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

// Refs collects catalog ids referenced by selections.
type Refs struct {
	Products      idSet
	FrameTypes    idSet
	SubFrameTypes idSet
	Sizes         idSet
}

func refsFor(selections []Selection) Refs {
	refs := Refs{Products: idSet{}, FrameTypes: idSet{}, SubFrameTypes: idSet{}, Sizes: idSet{}}
	for _, sel := range selections {
		if !sel.IsCustom {
			refs.Products.add(sel.ProductID)
		}
		refs.FrameTypes.add(sel.FrameTypeID)
		refs.SubFrameTypes.add(sel.SubFrameTypeID)
		refs.Sizes.add(sel.SizeID)
	}
	return refs
}
