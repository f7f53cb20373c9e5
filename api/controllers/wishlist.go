package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/wallcraft/storefront-backend/api/responses"
	"github.com/wallcraft/storefront-backend/api/validators"
	"github.com/wallcraft/storefront-backend/internal/wishlist"
	"github.com/wallcraft/storefront-backend/pkg/logger"
)

// wishlistHandler resolves the signed-in user before serve runs; every
// wishlist route is account scoped. Errors from serve are written as-is.
func wishlistHandler(svc wishlist.Service, logg *logger.Logger, serve func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := unavailable("wishlist service")
		if svc != nil {
			var userID uuid.UUID
			if userID, err = requireUserID(r.Context()); err == nil {
				err = serve(w, r, userID)
			}
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
		}
	}
}

// WishlistList pages through the user's saved products, newest first.
func WishlistList(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return wishlistHandler(svc, logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
		params, err := pageParams(r)
		if err != nil {
			return err
		}
		page, err := svc.List(r.Context(), userID, params)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, page)
		return nil
	})
}

// WishlistAdd is idempotent; saving a product twice still answers 201.
func WishlistAdd(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return wishlistHandler(svc, logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
		var body struct {
			ProductID uuid.UUID `json:"productId" validate:"required"`
		}
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return err
		}
		if err := svc.Add(r.Context(), userID, body.ProductID); err != nil {
			return err
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]uuid.UUID{"productId": body.ProductID})
		return nil
	})
}

func WishlistRemove(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return wishlistHandler(svc, logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
		productID, err := uuidParam(r, "productId")
		if err != nil {
			return err
		}
		if err := svc.Remove(r.Context(), userID, productID); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}
