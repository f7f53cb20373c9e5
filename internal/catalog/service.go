package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wallcraft/storefront-backend/internal/pricing"
	"github.com/wallcraft/storefront-backend/pkg/db/models"
	pkgerrors "github.com/wallcraft/storefront-backend/pkg/errors"
	"github.com/wallcraft/storefront-backend/pkg/types"
)

// NotProvided names a variant that was not selected or no longer exists.
const NotProvided = "Not Provided"

// Selection is a cart line as chosen by the shopper.
type Selection struct {
	ProductID      *uuid.UUID
	FrameTypeID    *uuid.UUID
	SubFrameTypeID *uuid.UUID
	SizeID         *uuid.UUID
	Quantity       int
	IsCustom       bool
	CustomImageURL string
}

// PricedLine is a selection with catalog names and server-side prices.
type PricedLine struct {
	Selection Selection
	Name      string
	Image     string
	Frame     types.VariantDescriptor
	SubFrame  types.VariantDescriptor
	Size      types.VariantDescriptor
	Line      pricing.Line
	UnitPrice pricing.Money
	Total     pricing.Money
	// Unknown lists references that did not resolve to a catalog row.
	Unknown []string
}

type loader interface {
	Load(ctx context.Context, refs Refs) (*Snapshot, error)
}

// Service prices cart selections from the catalog.
type Service struct {
	repo loader
}

func NewService(repo loader) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &Service{repo: repo}, nil
}

// Price resolves every selection. Missing rows and unparsable prices degrade
// to zero and are reported through PricedLine.Unknown rather than as errors.
func (s *Service) Price(ctx context.Context, selections []Selection) ([]PricedLine, error) {
	if len(selections) == 0 {
		return nil, nil
	}
	snap, err := s.repo.Load(ctx, refsFor(selections))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog prices")
	}

	out := make([]PricedLine, 0, len(selections))
	for _, sel := range selections {
		out = append(out, priceSelection(snap, sel))
	}
	return out, nil
}

func priceSelection(snap *Snapshot, sel Selection) PricedLine {
	priced := PricedLine{Selection: sel}
	line := pricing.Line{Quantity: sel.Quantity, IsCustom: sel.IsCustom}

	if sel.IsCustom {
		priced.Name = "Custom Art"
		priced.Image = sel.CustomImageURL
	} else if sel.ProductID != nil {
		if product, ok := snap.Products[*sel.ProductID]; ok && product.Active {
			priced.Name = product.Name
			priced.Image = product.ImageURL
			line.Base = pricing.ParsePriceComponent(product.BasePrice)
		} else {
			priced.Unknown = append(priced.Unknown, "product")
		}
	}

	var frame *models.FrameType
	if sel.FrameTypeID != nil {
		if row, ok := snap.FrameTypes[*sel.FrameTypeID]; ok {
			frame = &row
		} else {
			priced.Unknown = append(priced.Unknown, "frame_type")
		}
	}
	var subFrame *models.SubFrameType
	if sel.SubFrameTypeID != nil {
		if row, ok := snap.SubFrameTypes[*sel.SubFrameTypeID]; ok {
			subFrame = &row
		} else {
			priced.Unknown = append(priced.Unknown, "sub_frame_type")
		}
	}
	var size *models.Size
	if sel.SizeID != nil {
		if row, ok := snap.Sizes[*sel.SizeID]; ok {
			size = &row
		} else {
			priced.Unknown = append(priced.Unknown, "size")
		}
	}

	if frame != nil {
		line.Frame = pricing.ParsePriceComponent(frame.Price)
		priced.Frame = descriptor(&frame.ID, frame.Name, line.Frame)
	} else {
		priced.Frame = descriptor(nil, NotProvided, line.Frame)
	}
	if subFrame != nil {
		line.SubFrame = pricing.ParsePriceComponent(subFrame.Price)
		priced.SubFrame = descriptor(&subFrame.ID, subFrame.Name, line.SubFrame)
	} else {
		priced.SubFrame = descriptor(nil, NotProvided, line.SubFrame)
	}
	if size != nil {
		line.Size = pricing.ParsePriceComponent(size.Price)
		priced.Size = descriptor(&size.ID, size.Label, line.Size)
	} else {
		priced.Size = descriptor(nil, NotProvided, line.Size)
	}

	priced.Line = line
	priced.UnitPrice = line.UnitPrice()
	priced.Total = pricing.ItemTotal(line)
	return priced
}

func descriptor(id *uuid.UUID, name string, price pricing.PriceComponent) types.VariantDescriptor {
	var ref *uuid.UUID
	if id != nil {
		copied := *id
		ref = &copied
	}
	return types.VariantDescriptor{ID: ref, Name: name, PriceMinor: price.Value().MinorUnits()}
}

// Lines returns the pricing inputs of a priced cart.
func Lines(priced []PricedLine) []pricing.Line {
	out := make([]pricing.Line, len(priced))
	for i, p := range priced {
		out[i] = p.Line
	}
	return out
}
