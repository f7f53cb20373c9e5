package orders

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wallcraft/storefront-backend/pkg/db"
	"github.com/wallcraft/storefront-backend/pkg/db/dbtest"
	"github.com/wallcraft/storefront-backend/pkg/db/models"
	"github.com/wallcraft/storefront-backend/pkg/enums"
	pkgerrors "github.com/wallcraft/storefront-backend/pkg/errors"
	"github.com/wallcraft/storefront-backend/pkg/outbox"
	"github.com/wallcraft/storefront-backend/pkg/outbox/payloads"
	"github.com/wallcraft/storefront-backend/pkg/pagination"
	"github.com/wallcraft/storefront-backend/pkg/types"
)

func setupOrders(t *testing.T) (*gorm.DB, Service) {
	t.Helper()
	conn := dbtest.Open(t, &models.Order{}, &models.OutboxEvent{})
	svc, err := NewService(NewRepository(conn), db.NewFromGorm(conn), outbox.NewService(outbox.NewRepository(conn), nil))
	require.NoError(t, err)
	return conn, svc
}

func createOrder(t *testing.T, conn *gorm.DB, userID *uuid.UUID, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber:     NewOrderNumber(createdAt),
		UserID:          userID,
		CustomerName:    "Asha",
		Email:           "asha@example.com",
		Phone:           "9999999999",
		ShippingAddress: "12 MG Road",
		BillingAddress:  "12 MG Road",
		City:            "Pune",
		State:           "MH",
		Pincode:         "411001",
		Country:         "India",
		Items:           types.OrderLines{{Name: "Print", Quantity: 1, UnitPriceMinor: 50000, LineTotalMinor: 50000}},
		SubtotalMinor:   50000,
		ShippingMinor:   30000,
		TaxMinor:        5000,
		TotalMinor:      85000,
		Currency:        "INR",
		CheckoutState:   enums.CheckoutStateCompleted,
		Status:          enums.OrderStatusProcessing,
		PaymentStatus:   enums.PaymentStatusPaid,
		PaymentProvider: "razorpay",
		CreatedAt:       createdAt,
	}
	require.NoError(t, NewRepository(conn).Create(context.Background(), order))
	return order
}

func TestListPaginatesNewestFirst(t *testing.T) {
	t.Parallel()
	conn, svc := setupOrders(t)
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	oldest := createOrder(t, conn, nil, base)
	middle := createOrder(t, conn, nil, base.Add(time.Hour))
	newest := createOrder(t, conn, nil, base.Add(2*time.Hour))

	first, err := svc.List(context.Background(), pagination.Params{Limit: 2}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, first.Orders, 2)
	assert.Equal(t, newest.ID, first.Orders[0].ID)
	assert.Equal(t, middle.ID, first.Orders[1].ID)
	require.NotEmpty(t, first.NextCursor)
	assert.Len(t, first.Orders[0].Items, 1)

	second, err := svc.List(context.Background(), pagination.Params{Limit: 2, Cursor: first.NextCursor}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, second.Orders, 1)
	assert.Equal(t, oldest.ID, second.Orders[0].ID)
	assert.Empty(t, second.NextCursor)
}

func TestListFilters(t *testing.T) {
	t.Parallel()
	conn, svc := setupOrders(t)
	user := uuid.New()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	mine := createOrder(t, conn, &user, base)
	createOrder(t, conn, nil, base.Add(time.Minute))

	list, err := svc.List(context.Background(), pagination.Params{}, ListFilters{UserID: &user})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, mine.ID, list.Orders[0].ID)

	shipped := enums.OrderStatusShipped
	list, err = svc.List(context.Background(), pagination.Params{}, ListFilters{Status: &shipped})
	require.NoError(t, err)
	assert.Empty(t, list.Orders)
}

func TestListRejectsBadCursor(t *testing.T) {
	t.Parallel()
	_, svc := setupOrders(t)
	_, err := svc.List(context.Background(), pagination.Params{Cursor: "not-base64!"}, ListFilters{})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestUpdateStatusTransitions(t *testing.T) {
	t.Parallel()
	conn, svc := setupOrders(t)
	order := createOrder(t, conn, nil, time.Now().UTC())
	admin := uuid.New()

	shipped := enums.OrderStatusShipped
	updated, err := svc.UpdateStatus(context.Background(), StatusUpdateInput{OrderID: order.ID, Status: &shipped, ActorUserID: &admin, ActorRole: "admin"})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, updated.Status)

	var events []models.OutboxEvent
	require.NoError(t, conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderStatusChanged, events[0].EventType)
	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &envelope))
	var data payloads.OrderStatusChangedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, enums.OrderStatusProcessing, data.FromStatus)
	assert.Equal(t, enums.OrderStatusShipped, data.ToStatus)

	processing := enums.OrderStatusProcessing
	_, err = svc.UpdateStatus(context.Background(), StatusUpdateInput{OrderID: order.ID, Status: &processing})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestUpdatePaymentStatusOnly(t *testing.T) {
	t.Parallel()
	conn, svc := setupOrders(t)
	order := createOrder(t, conn, nil, time.Now().UTC())

	failed := enums.PaymentStatusFailed
	updated, err := svc.UpdateStatus(context.Background(), StatusUpdateInput{OrderID: order.ID, PaymentStatus: &failed})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusFailed, updated.PaymentStatus)
	assert.Equal(t, enums.OrderStatusProcessing, updated.Status)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count, "payment-only changes do not emit status events")
}

func TestUpdateStatusValidation(t *testing.T) {
	t.Parallel()
	_, svc := setupOrders(t)

	_, err := svc.UpdateStatus(context.Background(), StatusUpdateInput{OrderID: uuid.New()})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	shipped := enums.OrderStatusShipped
	_, err = svc.UpdateStatus(context.Background(), StatusUpdateInput{OrderID: uuid.New(), Status: &shipped})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestNewOrderNumber(t *testing.T) {
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	a := NewOrderNumber(now)
	b := NewOrderNumber(now)
	assert.Regexp(t, `^WC-20261016-[0-9A-F]{8}$`, a)
	assert.NotEqual(t, a, b)
}
