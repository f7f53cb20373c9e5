package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallcraft/storefront-backend/internal/catalog"
	"github.com/wallcraft/storefront-backend/pkg/db"
	"github.com/wallcraft/storefront-backend/pkg/db/dbtest"
	"github.com/wallcraft/storefront-backend/pkg/db/models"
	pkgerrors "github.com/wallcraft/storefront-backend/pkg/errors"
	"github.com/wallcraft/storefront-backend/pkg/redis"
)

type memorySessions struct {
	data map[string]string
}

func newMemorySessions() *memorySessions { return &memorySessions{data: map[string]string{}} }

func (m *memorySessions) SaveGuestSession(_ context.Context, id, payload string, _ time.Duration) error {
	m.data[id] = payload
	return nil
}

func (m *memorySessions) LoadGuestSession(_ context.Context, id string) (string, error) {
	v, ok := m.data[id]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memorySessions) DeleteGuestSession(_ context.Context, id string) error {
	delete(m.data, id)
	return nil
}

type cartFixture struct {
	svc      Service
	sessions *memorySessions
	product  models.Product
	frame    models.FrameType
	subFrame models.SubFrameType
	size     models.Size
}

func strPtr(s string) *string { return &s }

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()
	conn := dbtest.Open(t, &models.Product{}, &models.FrameType{}, &models.SubFrameType{}, &models.Size{}, &models.CartItem{})

	fx := &cartFixture{
		sessions: newMemorySessions(),
		product:  models.Product{Name: "Dunes", BasePrice: strPtr("500"), Active: true},
		frame:    models.FrameType{Name: "Walnut", Price: strPtr("100")},
		size:     models.Size{Label: "A2", Price: strPtr("200")},
	}
	require.NoError(t, conn.Create(&fx.product).Error)
	require.NoError(t, conn.Create(&fx.frame).Error)
	fx.subFrame = models.SubFrameType{FrameTypeID: fx.frame.ID, Name: "Gloss", Price: strPtr("50")}
	require.NoError(t, conn.Create(&fx.subFrame).Error)
	require.NoError(t, conn.Create(&fx.size).Error)

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn))
	require.NoError(t, err)
	guests, err := NewGuestStore(fx.sessions, time.Hour)
	require.NoError(t, err)

	fx.svc, err = NewService(ServiceParams{
		Repo:   NewRepository(conn),
		Guests: guests,
		Pricer: catalogSvc,
		Tx:     db.NewFromGorm(conn),
	})
	require.NoError(t, err)
	return fx
}

func (fx *cartFixture) variant(qty int) Item {
	return Item{
		ProductID:    &fx.product.ID,
		FrameType:    &fx.frame.ID,
		SubFrameType: &fx.subFrame.ID,
		Size:         &fx.size.ID,
		Quantity:     qty,
	}
}

func userOwner() Owner {
	id := uuid.New()
	return Owner{UserID: &id}
}

func TestAddRejectsMissingVariants(t *testing.T) {
	t.Parallel()
	fx := newCartFixture(t)
	ctx := context.Background()
	owner := userOwner()

	item := fx.variant(1)
	item.Size = nil
	_, err := fx.svc.Add(ctx, owner, item)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = fx.svc.Add(ctx, owner, Item{IsCustom: true, Quantity: 1})
	require.Error(t, err)

	view, err := fx.svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, view.Items, "rejected adds must not mutate the cart")
}

func TestRegisteredCartLifecycle(t *testing.T) {
	t.Parallel()
	fx := newCartFixture(t)
	ctx := context.Background()
	owner := userOwner()

	view, err := fx.svc.Add(ctx, owner, fx.variant(2))
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "1700.00", view.Items[0].LineTotal.String())
	assert.Equal(t, "2050.00", view.Totals.Total.String())

	view, err = fx.svc.Add(ctx, owner, Item{IsCustom: true, CustomImageURL: "https://cdn.example/mine.png", FrameType: &fx.frame.ID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, view.Items, 2)

	key := fx.variant(0).Key()
	view, err = fx.svc.UpdateQuantity(ctx, owner, Locator{Key: key}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Items[0].Quantity, "quantity below one is ignored")

	view, err = fx.svc.UpdateQuantity(ctx, owner, Locator{Key: key}, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, view.Items[0].Quantity)

	view, err = fx.svc.Remove(ctx, owner, Locator{Key: key})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.True(t, view.Items[0].IsCustom)

	_, err = fx.svc.Remove(ctx, owner, Locator{Key: key})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	require.NoError(t, fx.svc.Clear(ctx, owner))
	items, err := fx.svc.Items(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAddDoesNotMergeIdenticalVariants(t *testing.T) {
	t.Parallel()
	fx := newCartFixture(t)
	ctx := context.Background()
	owner := Owner{GuestSessionID: "guest-1"}

	_, err := fx.svc.Add(ctx, owner, fx.variant(1))
	require.NoError(t, err)
	view, err := fx.svc.Add(ctx, owner, fx.variant(1))
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
}

func TestGuestCartByIndex(t *testing.T) {
	t.Parallel()
	fx := newCartFixture(t)
	ctx := context.Background()
	owner := Owner{GuestSessionID: "guest-2"}

	_, err := fx.svc.Add(ctx, owner, fx.variant(1))
	require.NoError(t, err)
	_, err = fx.svc.Add(ctx, owner, Item{IsCustom: true, CustomImageURL: "https://cdn.example/a.png", Quantity: 1})
	require.NoError(t, err)

	idx := 1
	view, err := fx.svc.UpdateQuantity(ctx, owner, Locator{Index: &idx}, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, view.Items[1].Quantity)

	zero := 0
	view, err = fx.svc.Remove(ctx, owner, Locator{Index: &zero})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.True(t, view.Items[0].IsCustom)

	outOfRange := 5
	_, err = fx.svc.Remove(ctx, owner, Locator{Index: &outOfRange})
	require.Error(t, err)

	require.NoError(t, fx.svc.Clear(ctx, owner))
	_, ok := fx.sessions.data["guest-2"]
	assert.False(t, ok)
}

func TestMergeGuestSumsQuantities(t *testing.T) {
	t.Parallel()
	fx := newCartFixture(t)
	ctx := context.Background()
	user := userOwner()
	guest := Owner{GuestSessionID: "guest-3"}

	_, err := fx.svc.Add(ctx, user, fx.variant(2))
	require.NoError(t, err)
	_, err = fx.svc.Add(ctx, guest, fx.variant(3))
	require.NoError(t, err)
	_, err = fx.svc.Add(ctx, guest, Item{IsCustom: true, CustomImageURL: "https://cdn.example/b.png", Quantity: 1})
	require.NoError(t, err)

	result, err := fx.svc.MergeGuest(ctx, *user.UserID, guest.GuestSessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Summed)
	assert.Equal(t, 1, result.Inserted)

	items, err := fx.svc.Items(ctx, user)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 5, items[0].Quantity)
	assert.True(t, items[1].IsCustom)

	_, ok := fx.sessions.data[guest.GuestSessionID]
	assert.False(t, ok, "guest session is deleted after merge")

	result, err = fx.svc.MergeGuest(ctx, *user.UserID, guest.GuestSessionID)
	require.NoError(t, err)
	assert.Zero(t, result.Inserted+result.Summed)
}

func TestOperationsRequireOwner(t *testing.T) {
	t.Parallel()
	fx := newCartFixture(t)
	_, err := fx.svc.List(context.Background(), Owner{})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}
