package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wallcraft/storefront-backend/api/responses"
	"github.com/wallcraft/storefront-backend/api/validators"
	"github.com/wallcraft/storefront-backend/internal/coupons"
	"github.com/wallcraft/storefront-backend/pkg/db/models"
	pkgerrors "github.com/wallcraft/storefront-backend/pkg/errors"
	"github.com/wallcraft/storefront-backend/pkg/logger"
)

const maxCouponCodeLen = 64

type createCouponRequest struct {
	Code            string `json:"code" validate:"required,max=64"`
	DiscountPercent int    `json:"discountPercent" validate:"min=0,max=100"`
	ExpirationDate  string `json:"expirationDate" validate:"required"`
	ExpirationTime  string `json:"expirationTime"`
}

type couponResponse struct {
	ID              uuid.UUID `json:"id"`
	Code            string    `json:"code"`
	DiscountPercent int       `json:"discountPercent"`
	ExpirationDate  string    `json:"expirationDate"`
	ExpirationTime  string    `json:"expirationTime"`
	ExpiresAt       time.Time `json:"expiresAt"`
	CreatedAt       time.Time `json:"createdAt"`
}

func newCouponResponse(c models.Coupon) couponResponse {
	return couponResponse{
		ID:              c.ID,
		Code:            c.Code,
		DiscountPercent: c.DiscountPercent,
		ExpirationDate:  c.ExpirationDate.UTC().Format("2006-01-02"),
		ExpirationTime:  c.ExpirationTime,
		ExpiresAt:       coupons.ExpiresAt(c),
		CreatedAt:       c.CreatedAt,
	}
}

// CouponValidate reports whether ?code= is a live coupon. Unknown and expired
// codes are a normal {valid:false} answer, not an error.
func CouponValidate(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("coupon service"))
			return
		}
		result, err := svc.Validate(ctx, validators.SanitizeString(r.URL.Query().Get("code"), maxCouponCodeLen), time.Now().UTC())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminCouponCreate(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("coupon service"))
			return
		}

		var payload createCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		coupon, err := svc.Create(ctx, coupons.CreateInput{
			Code:            payload.Code,
			DiscountPercent: payload.DiscountPercent,
			ExpirationDate:  payload.ExpirationDate,
			ExpirationTime:  payload.ExpirationTime,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCouponResponse(*coupon))
	}
}

func AdminCouponList(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("coupon service"))
			return
		}
		rows, err := svc.List(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		out := make([]couponResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, newCouponResponse(row))
		}
		responses.WriteSuccess(w, out)
	}
}

func AdminCouponDelete(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("coupon service"))
			return
		}
		code := validators.SanitizeString(chi.URLParam(r, "code"), maxCouponCodeLen)
		if code == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "code is required"))
			return
		}
		if err := svc.Delete(ctx, code); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"deleted": code})
	}
}
