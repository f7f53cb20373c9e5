package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/wallcraft/storefront-backend/api/middleware"
	"github.com/wallcraft/storefront-backend/api/responses"
	"github.com/wallcraft/storefront-backend/api/validators"
	"github.com/wallcraft/storefront-backend/internal/cart"
	pkgerrors "github.com/wallcraft/storefront-backend/pkg/errors"
	"github.com/wallcraft/storefront-backend/pkg/logger"
)

type addCartItemRequest struct {
	ProductID      *uuid.UUID `json:"productId"`
	FrameType      *uuid.UUID `json:"frameType"`
	SubFrameType   *uuid.UUID `json:"subFrameType"`
	Size           *uuid.UUID `json:"size"`
	Quantity       int        `json:"quantity" validate:"required,min=1"`
	IsCustom       bool       `json:"isCustom"`
	CustomImageURL string     `json:"customImageUrl"`
}

func (req addCartItemRequest) toItem() cart.Item {
	return cart.Item{
		ProductID:      req.ProductID,
		FrameType:      req.FrameType,
		SubFrameType:   req.SubFrameType,
		Size:           req.Size,
		Quantity:       req.Quantity,
		IsCustom:       req.IsCustom,
		CustomImageURL: req.CustomImageURL,
	}
}

// cartLineRequest addresses an existing line by index (guests) or by its
// compound key.
type cartLineRequest struct {
	Index          *int       `json:"index" validate:"omitempty,min=0"`
	ProductID      *uuid.UUID `json:"productId"`
	FrameType      *uuid.UUID `json:"frameType"`
	SubFrameType   *uuid.UUID `json:"subFrameType"`
	Size           *uuid.UUID `json:"size"`
	CustomImageURL string     `json:"customImageUrl"`
	Quantity       int        `json:"quantity"`
}

func (req cartLineRequest) locator() cart.Locator {
	return cart.Locator{
		Index: req.Index,
		Key: cart.Key{
			ProductID:      req.ProductID,
			FrameType:      req.FrameType,
			SubFrameType:   req.SubFrameType,
			Size:           req.Size,
			CustomImageURL: req.CustomImageURL,
		},
	}
}

// CartList returns the shopper's priced cart.
func CartList(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("cart service"))
			return
		}
		owner, err := shopperFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		view, err := svc.List(ctx, owner)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartAdd adds a line or increments the matching one.
func CartAdd(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("cart service"))
			return
		}
		owner, err := shopperFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		view, err := svc.Add(ctx, owner, payload.toItem())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// CartUpdate sets the quantity of one line. Quantities below one are ignored.
func CartUpdate(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("cart service"))
			return
		}
		owner, err := shopperFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload cartLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		view, err := svc.UpdateQuantity(ctx, owner, payload.locator(), payload.Quantity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CartRemove(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("cart service"))
			return
		}
		owner, err := shopperFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload cartLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		view, err := svc.Remove(ctx, owner, payload.locator())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CartClear(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("cart service"))
			return
		}
		owner, err := shopperFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.Clear(ctx, owner); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"cleared": true})
	}
}

// CartMerge folds the guest session cart into the signed-in user's cart and
// expires the guest cookie.
func CartMerge(svc cart.Service, secureCookie bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("cart service"))
			return
		}
		userID, err := requireUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		session := middleware.GuestSessionFromContext(ctx)
		if session == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "guest session cookie missing"))
			return
		}

		result, err := svc.MergeGuest(ctx, userID, session)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     middleware.GuestSessionCookie,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   secureCookie,
			SameSite: http.SameSiteLaxMode,
		})
		responses.WriteSuccess(w, result)
	}
}
