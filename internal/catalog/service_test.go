package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallcraft/storefront-backend/pkg/db/dbtest"
	"github.com/wallcraft/storefront-backend/pkg/db/models"
)

func strPtr(s string) *string { return &s }

type fixture struct {
	product  models.Product
	frame    models.FrameType
	subFrame models.SubFrameType
	size     models.Size
}

func seedCatalog(t *testing.T) (*Service, fixture) {
	t.Helper()
	conn := dbtest.Open(t, &models.Product{}, &models.FrameType{}, &models.SubFrameType{}, &models.Size{})

	fx := fixture{
		product: models.Product{Name: "Monsoon Print", ImageURL: "https://cdn.example/monsoon.jpg", BasePrice: strPtr("500"), Active: true},
		frame:   models.FrameType{Name: "Oak", Price: strPtr("100")},
		size:    models.Size{Label: "A3", Price: strPtr("200")},
	}
	require.NoError(t, conn.Create(&fx.product).Error)
	require.NoError(t, conn.Create(&fx.frame).Error)
	fx.subFrame = models.SubFrameType{FrameTypeID: fx.frame.ID, Name: "Matte", Price: strPtr("50")}
	require.NoError(t, conn.Create(&fx.subFrame).Error)
	require.NoError(t, conn.Create(&fx.size).Error)

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc, fx
}

func TestPriceFullVariant(t *testing.T) {
	t.Parallel()
	svc, fx := seedCatalog(t)

	priced, err := svc.Price(context.Background(), []Selection{{
		ProductID:      &fx.product.ID,
		FrameTypeID:    &fx.frame.ID,
		SubFrameTypeID: &fx.subFrame.ID,
		SizeID:         &fx.size.ID,
		Quantity:       2,
	}})
	require.NoError(t, err)
	require.Len(t, priced, 1)

	line := priced[0]
	assert.Empty(t, line.Unknown)
	assert.Equal(t, "Monsoon Print", line.Name)
	assert.Equal(t, "850.00", line.UnitPrice.String())
	assert.Equal(t, "1700.00", line.Total.String())
	assert.Equal(t, "Oak", line.Frame.Name)
	assert.EqualValues(t, 5000, line.SubFrame.PriceMinor)
	assert.Equal(t, "A3", line.Size.Name)
}

func TestPriceDegradesMissingRows(t *testing.T) {
	t.Parallel()
	svc, fx := seedCatalog(t)
	missing := uuid.New()

	priced, err := svc.Price(context.Background(), []Selection{{
		ProductID:   &fx.product.ID,
		FrameTypeID: &missing,
		SizeID:      &fx.size.ID,
		Quantity:    1,
	}})
	require.NoError(t, err)
	line := priced[0]
	assert.Equal(t, []string{"frame_type"}, line.Unknown)
	assert.Equal(t, NotProvided, line.Frame.Name)
	assert.Equal(t, NotProvided, line.SubFrame.Name)
	assert.Equal(t, "700.00", line.Total.String())
}

func TestPriceCustomItem(t *testing.T) {
	t.Parallel()
	svc, fx := seedCatalog(t)

	priced, err := svc.Price(context.Background(), []Selection{{
		FrameTypeID:    &fx.frame.ID,
		SubFrameTypeID: &fx.subFrame.ID,
		SizeID:         &fx.size.ID,
		Quantity:       1,
		IsCustom:       true,
		CustomImageURL: "https://cdn.example/custom.png",
	}})
	require.NoError(t, err)
	line := priced[0]
	assert.Empty(t, line.Unknown)
	assert.Equal(t, "https://cdn.example/custom.png", line.Image)
	assert.Equal(t, "350.00", line.Total.String())
}

func TestPriceNonNumericCatalogPrice(t *testing.T) {
	t.Parallel()
	conn := dbtest.Open(t, &models.Product{}, &models.FrameType{}, &models.SubFrameType{}, &models.Size{})
	product := models.Product{Name: "Legacy", BasePrice: strPtr("call us"), Active: true}
	require.NoError(t, conn.Create(&product).Error)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	priced, err := svc.Price(context.Background(), []Selection{{ProductID: &product.ID, Quantity: 4}})
	require.NoError(t, err)
	assert.Equal(t, "0.00", priced[0].Total.String())
	assert.Empty(t, priced[0].Unknown)
}
