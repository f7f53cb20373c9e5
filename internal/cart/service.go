package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wallcraft/storefront-backend/internal/catalog"
	"github.com/wallcraft/storefront-backend/internal/pricing"
	"github.com/wallcraft/storefront-backend/pkg/db/models"
	pkgerrors "github.com/wallcraft/storefront-backend/pkg/errors"
)

// ItemRepository defines the persistence surface for registered carts.
type ItemRepository interface {
	WithTx(tx *gorm.DB) ItemRepository
	List(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	Insert(ctx context.Context, row *models.CartItem) error
	SetQuantity(ctx context.Context, id uuid.UUID, quantity int) error
	Delete(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error)
	Clear(ctx context.Context, userID uuid.UUID) (int64, error)
}

type guestCarts interface {
	Load(ctx context.Context, sessionID string) ([]Item, error)
	Save(ctx context.Context, sessionID string, items []Item) error
	Delete(ctx context.Context, sessionID string) error
}

type pricer interface {
	Price(ctx context.Context, selections []catalog.Selection) ([]catalog.PricedLine, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes cart operations for both registered users and guests.
type Service interface {
	Add(ctx context.Context, owner Owner, item Item) (*View, error)
	UpdateQuantity(ctx context.Context, owner Owner, loc Locator, quantity int) (*View, error)
	Remove(ctx context.Context, owner Owner, loc Locator) (*View, error)
	Clear(ctx context.Context, owner Owner) error
	ClearUserTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
	List(ctx context.Context, owner Owner) (*View, error)
	Items(ctx context.Context, owner Owner) ([]Item, error)
	MergeGuest(ctx context.Context, userID uuid.UUID, guestSessionID string) (*MergeResult, error)
}

// ViewItem is a cart line with its current catalog price.
type ViewItem struct {
	Index int `json:"index"`
	Item
	Name      string        `json:"name"`
	Image     string        `json:"image,omitempty"`
	UnitPrice pricing.Money `json:"unitPrice"`
	LineTotal pricing.Money `json:"lineTotal"`
}

// View is the priced cart returned to clients. Totals exclude coupons.
type View struct {
	Items  []ViewItem     `json:"items"`
	Totals pricing.Totals `json:"totals"`
}

// MergeResult reports what a guest merge did.
type MergeResult struct {
	Inserted int `json:"inserted"`
	Summed   int `json:"summed"`
}

type ServiceParams struct {
	Repo       ItemRepository
	Guests     guestCarts
	Pricer     pricer
	Calculator *pricing.Calculator
	Tx         txRunner
}

type service struct {
	repo   ItemRepository
	guests guestCarts
	pricer pricer
	calc   *pricing.Calculator
	tx     txRunner
}

// NewService builds a cart service backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Guests == nil {
		return nil, fmt.Errorf("guest cart store required")
	}
	if params.Pricer == nil {
		return nil, fmt.Errorf("catalog pricer required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	calc := params.Calculator
	if calc == nil {
		calc = pricing.DefaultCalculator()
	}
	return &service{
		repo:   params.Repo,
		guests: params.Guests,
		pricer: params.Pricer,
		calc:   calc,
		tx:     params.Tx,
	}, nil
}

func (s *service) Add(ctx context.Context, owner Owner, item Item) (*View, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	item = normalizeItem(item)
	if err := validateNewItem(item); err != nil {
		return nil, err
	}

	if owner.IsGuest() {
		items, err := s.guests.Load(ctx, owner.GuestSessionID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest cart")
		}
		item.ID = nil
		items = append(items, item)
		if err := s.guests.Save(ctx, owner.GuestSessionID, items); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save guest cart")
		}
		return s.view(ctx, items)
	}

	row := modelFromItem(*owner.UserID, item)
	if err := s.repo.Insert(ctx, &row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert cart item")
	}
	return s.List(ctx, owner)
}

// UpdateQuantity ignores quantities below one and leaves the cart untouched.
func (s *service) UpdateQuantity(ctx context.Context, owner Owner, loc Locator, quantity int) (*View, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return s.List(ctx, owner)
	}

	if owner.IsGuest() {
		items, err := s.guests.Load(ctx, owner.GuestSessionID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest cart")
		}
		idx, err := locateGuest(items, loc)
		if err != nil {
			return nil, err
		}
		items[idx].Quantity = quantity
		if err := s.guests.Save(ctx, owner.GuestSessionID, items); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save guest cart")
		}
		return s.view(ctx, items)
	}

	rows, err := s.repo.List(ctx, *owner.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}
	matches := matchingRows(rows, loc.Key)
	if len(matches) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	// duplicates are not merged; the oldest matching line carries the quantity
	if err := s.repo.SetQuantity(ctx, matches[0], quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	return s.List(ctx, owner)
}

func (s *service) Remove(ctx context.Context, owner Owner, loc Locator) (*View, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}

	if owner.IsGuest() {
		items, err := s.guests.Load(ctx, owner.GuestSessionID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest cart")
		}
		idx, err := locateGuest(items, loc)
		if err != nil {
			return nil, err
		}
		items = append(items[:idx], items[idx+1:]...)
		if err := s.guests.Save(ctx, owner.GuestSessionID, items); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save guest cart")
		}
		return s.view(ctx, items)
	}

	rows, err := s.repo.List(ctx, *owner.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}
	matches := matchingRows(rows, loc.Key)
	if len(matches) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	if _, err := s.repo.Delete(ctx, *owner.UserID, matches); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
	}
	return s.List(ctx, owner)
}

func (s *service) Clear(ctx context.Context, owner Owner) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	if owner.IsGuest() {
		if err := s.guests.Delete(ctx, owner.GuestSessionID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear guest cart")
		}
		return nil
	}
	if _, err := s.repo.Clear(ctx, *owner.UserID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// ClearUserTx empties a registered cart inside the caller's transaction.
func (s *service) ClearUserTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	if _, err := s.repo.WithTx(tx).Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) List(ctx context.Context, owner Owner) (*View, error) {
	items, err := s.Items(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, items)
}

func (s *service) Items(ctx context.Context, owner Owner) ([]Item, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if owner.IsGuest() {
		items, err := s.guests.Load(ctx, owner.GuestSessionID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest cart")
		}
		return items, nil
	}
	rows, err := s.repo.List(ctx, *owner.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}
	items := make([]Item, len(rows))
	for i, row := range rows {
		items[i] = itemFromModel(row)
	}
	return items, nil
}

// MergeGuest folds a guest cart into the user's cart. Lines that collide on
// the compound key have their quantities summed. The guest session is deleted
// once the database transaction commits.
func (s *service) MergeGuest(ctx context.Context, userID uuid.UUID, guestSessionID string) (*MergeResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	result := &MergeResult{}
	if strings.TrimSpace(guestSessionID) == "" {
		return result, nil
	}

	guestItems, err := s.guests.Load(ctx, guestSessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest cart")
	}
	if len(guestItems) == 0 {
		return result, nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.List(ctx, userID)
		if err != nil {
			return err
		}
		for _, guest := range guestItems {
			guest = normalizeItem(guest)
			if guest.Quantity < 1 {
				continue
			}
			merged := false
			for i := range rows {
				if itemFromModel(rows[i]).Key().Matches(guest.Key()) {
					rows[i].Quantity += guest.Quantity
					if err := repo.SetQuantity(ctx, rows[i].ID, rows[i].Quantity); err != nil {
						return err
					}
					result.Summed++
					merged = true
					break
				}
			}
			if merged {
				continue
			}
			row := modelFromItem(userID, guest)
			if err := repo.Insert(ctx, &row); err != nil {
				return err
			}
			rows = append(rows, row)
			result.Inserted++
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge guest cart")
	}

	if err := s.guests.Delete(ctx, guestSessionID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete guest cart")
	}
	return result, nil
}

func (s *service) view(ctx context.Context, items []Item) (*View, error) {
	priced, err := s.pricer.Price(ctx, Selections(items))
	if err != nil {
		return nil, err
	}
	view := &View{Items: make([]ViewItem, len(items))}
	for i, item := range items {
		vi := ViewItem{Index: i, Item: item}
		if i < len(priced) {
			vi.Name = priced[i].Name
			vi.Image = priced[i].Image
			vi.UnitPrice = priced[i].UnitPrice
			vi.LineTotal = priced[i].Total
		}
		view.Items[i] = vi
	}
	view.Totals = s.calc.OrderTotals(catalog.Lines(priced), 0)
	return view, nil
}

func requireOwner(owner Owner) error {
	if !owner.Valid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "cart owner required")
	}
	return nil
}

func normalizeItem(item Item) Item {
	item.CustomImageURL = strings.TrimSpace(item.CustomImageURL)
	if item.Quantity == 0 {
		item.Quantity = 1
	}
	return item
}

func validateNewItem(item Item) error {
	if item.Quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
			WithDetails(map[string]any{"quantity": item.Quantity})
	}
	if item.IsCustom && item.ProductID != nil && *item.ProductID != uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "custom items cannot reference a product")
	}
	if missing := item.MissingVariants(); len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "please select all options before adding to cart").
			WithDetails(map[string]any{"missing": missing})
	}
	return nil
}

func locateGuest(items []Item, loc Locator) (int, error) {
	if loc.Index != nil {
		idx := *loc.Index
		if idx < 0 || idx >= len(items) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found").
				WithDetails(map[string]any{"index": idx})
		}
		return idx, nil
	}
	for i, item := range items {
		if item.Key().Matches(loc.Key) {
			return i, nil
		}
	}
	return 0, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
}

func matchingRows(rows []models.CartItem, key Key) []uuid.UUID {
	var ids []uuid.UUID
	for _, row := range rows {
		if itemFromModel(row).Key().Matches(key) {
			ids = append(ids, row.ID)
		}
	}
	return ids
}
