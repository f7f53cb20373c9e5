package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wallcraft/storefront-backend/internal/coupons"
	"github.com/wallcraft/storefront-backend/pkg/db/models"
	pkgerrors "github.com/wallcraft/storefront-backend/pkg/errors"
)

type stubCouponService struct {
	code    string
	created *coupons.CreateInput
	deleted string
}

func (s *stubCouponService) Validate(ctx context.Context, code string, now time.Time) (coupons.Result, error) {
	s.code = code
	if code == "DIWALI10" {
		return coupons.Result{Code: code, Valid: true, DiscountPercent: 10}, nil
	}
	return coupons.Result{Code: code}, nil
}

func (s *stubCouponService) Create(ctx context.Context, input coupons.CreateInput) (*models.Coupon, error) {
	s.created = &input
	return &models.Coupon{
		ID:              uuid.New(),
		Code:            input.Code,
		DiscountPercent: input.DiscountPercent,
		ExpirationDate:  time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
		ExpirationTime:  "23:59:59",
	}, nil
}

func (s *stubCouponService) List(ctx context.Context) ([]models.Coupon, error) {
	return []models.Coupon{{Code: "DIWALI10", DiscountPercent: 10, ExpirationTime: "00:00:00"}}, nil
}

func (s *stubCouponService) Delete(ctx context.Context, code string) error {
	if code == "MISSING" {
		return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	s.deleted = code
	return nil
}

func TestCouponValidate(t *testing.T) {
	svc := &stubCouponService{}

	resp := httptest.NewRecorder()
	CouponValidate(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/coupons/validate?code=DIWALI10", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data coupons.Result `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !envelope.Data.Valid || envelope.Data.DiscountPercent != 10 {
		t.Fatalf("unexpected result %+v", envelope.Data)
	}
}

func TestCouponValidateUnknownIsNotAnError(t *testing.T) {
	resp := httptest.NewRecorder()
	CouponValidate(&stubCouponService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/?code=NOPE", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAdminCouponCreate(t *testing.T) {
	svc := &stubCouponService{}
	body := []byte(`{"code":"FESTIVE15","discountPercent":15,"expirationDate":"2026-11-01","expirationTime":"23:59:59"}`)

	resp := httptest.NewRecorder()
	AdminCouponCreate(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/admin/coupons", bytes.NewReader(body)))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.created == nil || svc.created.Code != "FESTIVE15" || svc.created.DiscountPercent != 15 {
		t.Fatalf("unexpected input %+v", svc.created)
	}
	var envelope struct {
		Data couponResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.ExpirationDate != "2026-11-01" {
		t.Fatalf("unexpected expiration date %q", envelope.Data.ExpirationDate)
	}
	if !envelope.Data.ExpiresAt.Equal(time.Date(2026, 11, 1, 23, 59, 59, 0, time.UTC)) {
		t.Fatalf("unexpected expiry %s", envelope.Data.ExpiresAt)
	}
}

func TestAdminCouponCreateRejectsPercentOver100(t *testing.T) {
	svc := &stubCouponService{}
	body := []byte(`{"code":"BIG","discountPercent":150,"expirationDate":"2026-11-01"}`)

	resp := httptest.NewRecorder()
	AdminCouponCreate(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.created != nil {
		t.Fatalf("service should not be called")
	}
}

func TestAdminCouponDelete(t *testing.T) {
	for _, tc := range []struct {
		code   string
		status int
	}{
		{code: "DIWALI10", status: http.StatusOK},
		{code: "MISSING", status: http.StatusNotFound},
	} {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("code", tc.code)
		req := httptest.NewRequest(http.MethodDelete, "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

		resp := httptest.NewRecorder()
		AdminCouponDelete(&stubCouponService{}, nil).ServeHTTP(resp, req)
		if resp.Code != tc.status {
			t.Fatalf("%s: expected %d got %d", tc.code, tc.status, resp.Code)
		}
	}
}
