package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wallcraft/storefront-backend/internal/wishlist"
	"github.com/wallcraft/storefront-backend/pkg/pagination"
)

type stubWishlistService struct {
	userID    uuid.UUID
	productID uuid.UUID
	params    pagination.Params
}

func (s *stubWishlistService) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (wishlist.Page, error) {
	s.userID = userID
	s.params = params
	return wishlist.Page{Items: []wishlist.Item{}}, nil
}

func (s *stubWishlistService) Add(ctx context.Context, userID, productID uuid.UUID) error {
	s.userID = userID
	s.productID = productID
	return nil
}

func (s *stubWishlistService) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	s.userID = userID
	s.productID = productID
	return nil
}

func TestWishlistRequiresSignedInUser(t *testing.T) {
	resp := httptest.NewRecorder()
	WishlistList(&stubWishlistService{}, nil).ServeHTTP(resp, guestRequest(http.MethodGet, "/api/wishlist", nil, uuid.NewString()))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestWishlistListPassesCursor(t *testing.T) {
	svc := &stubWishlistService{}
	userID := uuid.New()

	resp := httptest.NewRecorder()
	WishlistList(svc, nil).ServeHTTP(resp, userRequest(http.MethodGet, "/api/wishlist?limit=10&cursor=abc", nil, userID))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.userID != userID || svc.params.Limit != 10 || svc.params.Cursor != "abc" {
		t.Fatalf("unexpected call %s %+v", svc.userID, svc.params)
	}
}

func TestWishlistAdd(t *testing.T) {
	svc := &stubWishlistService{}
	productID := uuid.New()
	body := []byte(`{"productId":"` + productID.String() + `"}`)

	resp := httptest.NewRecorder()
	WishlistAdd(svc, nil).ServeHTTP(resp, userRequest(http.MethodPost, "/api/wishlist", body, uuid.New()))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.productID != productID {
		t.Fatalf("unexpected product %s", svc.productID)
	}
}

func TestWishlistRemove(t *testing.T) {
	svc := &stubWishlistService{}
	productID := uuid.New()
	req := userRequest(http.MethodDelete, "/", nil, uuid.New())
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("productId", productID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	resp := httptest.NewRecorder()
	WishlistRemove(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
	if svc.productID != productID {
		t.Fatalf("unexpected product %s", svc.productID)
	}
}
