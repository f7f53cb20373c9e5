package controllers

import (
	"net/http"
	"strings"

	"github.com/wallcraft/storefront-backend/api/responses"
	"github.com/wallcraft/storefront-backend/api/validators"
	"github.com/wallcraft/storefront-backend/internal/payments"
	"github.com/wallcraft/storefront-backend/pkg/logger"
)

type paymentOrderRequest struct {
	Amount   int64  `json:"amount" validate:"required,gt=0"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// PaymentCreateOrder opens a bare gateway order. Amount is in minor units.
func PaymentCreateOrder(gw payments.Gateway, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if gw == nil {
			responses.WriteError(ctx, logg, w, unavailable("payment gateway"))
			return
		}

		var payload paymentOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		currency := strings.ToUpper(strings.TrimSpace(payload.Currency))
		if currency == "" {
			currency = "INR"
		}

		order, err := gw.CreateOrder(ctx, payments.CreateOrderInput{
			Amount:   payload.Amount,
			Currency: currency,
			Receipt:  strings.TrimSpace(payload.Receipt),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, order)
	}
}
