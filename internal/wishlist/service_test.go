package wishlist

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wallcraft/storefront-backend/internal/catalog"
	"github.com/wallcraft/storefront-backend/pkg/db/dbtest"
	"github.com/wallcraft/storefront-backend/pkg/db/models"
	pkgerrors "github.com/wallcraft/storefront-backend/pkg/errors"
	"github.com/wallcraft/storefront-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t, &models.Product{}, &models.WishlistItem{})
	svc, err := NewService(NewRepository(conn), catalog.NewRepository(conn))
	require.NoError(t, err)
	return svc, conn
}

func seedProduct(t *testing.T, conn *gorm.DB, name string) uuid.UUID {
	t.Helper()
	p := &models.Product{Name: name, ImageURL: "https://cdn.example.com/" + name + ".jpg", Active: true}
	require.NoError(t, conn.Create(p).Error)
	return p.ID
}

func TestAddIsIdempotent(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	productID := seedProduct(t, conn, "monsoon")

	require.NoError(t, svc.Add(ctx, userID, productID))
	require.NoError(t, svc.Add(ctx, userID, productID))

	page, err := svc.List(ctx, userID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "monsoon", page.Items[0].Name)
	assert.Empty(t, page.NextCursor)
}

func TestAddRejectsUnknownProductAndGuests(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.Add(ctx, uuid.New(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	err = svc.Add(ctx, uuid.Nil, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestListPaginatesNewestFirst(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	for i, name := range []string{"first", "second", "third"} {
		productID := seedProduct(t, conn, name)
		row := &models.WishlistItem{UserID: userID, ProductID: productID, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, conn.Create(row).Error)
	}
	other := seedProduct(t, conn, "other")
	require.NoError(t, svc.Add(ctx, uuid.New(), other))

	page, err := svc.List(ctx, userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "third", page.Items[0].Name)
	assert.Equal(t, "second", page.Items[1].Name)
	require.NotEmpty(t, page.NextCursor)

	page, err = svc.List(ctx, userID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "first", page.Items[0].Name)
	assert.Empty(t, page.NextCursor)
}

func TestRemove(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	productID := seedProduct(t, conn, "monsoon")

	require.NoError(t, svc.Add(ctx, userID, productID))
	require.NoError(t, svc.Remove(ctx, userID, productID))
	require.NoError(t, svc.Remove(ctx, userID, productID))

	page, err := svc.List(ctx, userID, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}
