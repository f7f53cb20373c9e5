package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wallcraft/storefront-backend/api/middleware"
	"github.com/wallcraft/storefront-backend/internal/orders"
	"github.com/wallcraft/storefront-backend/pkg/db/models"
	"github.com/wallcraft/storefront-backend/pkg/enums"
	pkgerrors "github.com/wallcraft/storefront-backend/pkg/errors"
	"github.com/wallcraft/storefront-backend/pkg/pagination"
)

type stubOrderService struct {
	params  pagination.Params
	filters orders.ListFilters
	update  *orders.StatusUpdateInput
}

func (s *stubOrderService) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: id}, nil
}

func (s *stubOrderService) List(ctx context.Context, params pagination.Params, filters orders.ListFilters) (*orders.OrderList, error) {
	s.params = params
	s.filters = filters
	return &orders.OrderList{
		Orders:     []models.Order{{ID: uuid.New(), OrderNumber: "WC-1"}},
		NextCursor: "next",
	}, nil
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, input orders.StatusUpdateInput) (*models.Order, error) {
	s.update = &input
	order := &models.Order{ID: input.OrderID}
	if input.Status != nil {
		order.Status = *input.Status
	}
	return order, nil
}

type stubRetrier struct {
	paymentID string
	err       error
}

func (s *stubRetrier) Retry(ctx context.Context, paymentID string) (*models.Fulfillment, error) {
	s.paymentID = paymentID
	if s.err != nil {
		return nil, s.err
	}
	return &models.Fulfillment{ID: uuid.New(), PaymentID: paymentID, Status: enums.FulfillmentStatusShipmentCreated}, nil
}

func TestAdminOrderListAppliesFilters(t *testing.T) {
	svc := &stubOrderService{}
	req := httptest.NewRequest(http.MethodGet, "/api/admin/orders?limit=5&status="+string(enums.OrderStatusProcessing), nil)

	resp := httptest.NewRecorder()
	AdminOrderList(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.params.Limit != 5 {
		t.Fatalf("unexpected limit %d", svc.params.Limit)
	}
	if svc.filters.Status == nil || *svc.filters.Status != enums.OrderStatusProcessing {
		t.Fatalf("expected status filter, got %+v", svc.filters)
	}

	var envelope struct {
		Data struct {
			Orders []struct {
				ID          uuid.UUID `json:"id"`
				OrderNumber string    `json:"order_number"`
			} `json:"orders"`
			NextCursor string `json:"next_cursor"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Orders) != 1 || envelope.Data.Orders[0].OrderNumber != "WC-1" || envelope.Data.NextCursor != "next" {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestAdminOrderListRejectsUnknownStatus(t *testing.T) {
	resp := httptest.NewRecorder()
	AdminOrderList(&stubOrderService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/?status=lost", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminOrderStatusRecordsActor(t *testing.T) {
	svc := &stubOrderService{}
	orderID := uuid.New()
	adminID := uuid.New()
	body := []byte(`{"status":"` + string(enums.OrderStatusShipped) + `"}`)
	req := withOrderParam(httptest.NewRequest(http.MethodPatch, "/", bytes.NewReader(body)), orderID.String())
	ctx := middleware.WithUserID(req.Context(), adminID.String())
	ctx = middleware.WithRole(ctx, string(enums.UserRoleAdmin))
	req = req.WithContext(ctx)

	resp := httptest.NewRecorder()
	AdminOrderStatus(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.update == nil || svc.update.OrderID != orderID || svc.update.Status == nil || *svc.update.Status != enums.OrderStatusShipped {
		t.Fatalf("unexpected update %+v", svc.update)
	}
	if svc.update.ActorUserID == nil || *svc.update.ActorUserID != adminID || svc.update.ActorRole != string(enums.UserRoleAdmin) {
		t.Fatalf("unexpected actor %+v", svc.update)
	}
}

func TestAdminOrderStatusRejectsUnknownPaymentStatus(t *testing.T) {
	orderID := uuid.New()
	req := withOrderParam(httptest.NewRequest(http.MethodPatch, "/", bytes.NewReader([]byte(`{"payment_status":"maybe"}`))), orderID.String())

	resp := httptest.NewRecorder()
	AdminOrderStatus(&stubOrderService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminFulfillmentRetry(t *testing.T) {
	retrier := &stubRetrier{}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("paymentId", "pay_1")
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	resp := httptest.NewRecorder()
	AdminFulfillmentRetry(retrier, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if retrier.paymentID != "pay_1" {
		t.Fatalf("unexpected payment id %q", retrier.paymentID)
	}
}

func TestAdminFulfillmentRetryNotRetryable(t *testing.T) {
	retrier := &stubRetrier{err: pkgerrors.New(pkgerrors.CodeStateConflict, "fulfillment is not retryable")}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("paymentId", "pay_1")
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	resp := httptest.NewRecorder()
	AdminFulfillmentRetry(retrier, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}
