package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/wallcraft/storefront-backend/api/responses"
	"github.com/wallcraft/storefront-backend/api/validators"
	"github.com/wallcraft/storefront-backend/internal/shipment"
	pkgerrors "github.com/wallcraft/storefront-backend/pkg/errors"
	"github.com/wallcraft/storefront-backend/pkg/logger"
)

// ShipmentGateway is the carrier surface exposed over HTTP.
type ShipmentGateway interface {
	Authenticate(ctx context.Context, email, password string) (string, error)
	CreateOrder(ctx context.Context, token string, payload map[string]any) (json.RawMessage, error)
	TrackOrder(ctx context.Context, orderID string) (json.RawMessage, error)
}

// TrackingNotifier is told when the carrier confirms an order.
type TrackingNotifier interface {
	TrackingConfirmed(ctx context.Context, tracking *shipment.Tracking)
}

type shiprocketAuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type shiprocketCreateOrderRequest struct {
	Token     string         `json:"token"`
	OrderData map[string]any `json:"orderData"`
}

type carrierResponse struct {
	Success       bool            `json:"success"`
	OrderResponse json.RawMessage `json:"orderResponse"`
}

// ShiprocketAuth exchanges credentials for a carrier token. Blank credentials
// fall back to the configured account.
func ShiprocketAuth(gw ShipmentGateway, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if gw == nil {
			responses.WriteError(ctx, logg, w, unavailable("shipment gateway"))
			return
		}

		var payload shiprocketAuthRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		token, err := gw.Authenticate(ctx, payload.Email, payload.Password)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

// ShiprocketCreateOrder forwards an adhoc order to the carrier.
func ShiprocketCreateOrder(gw ShipmentGateway, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if gw == nil {
			responses.WriteError(ctx, logg, w, unavailable("shipment gateway"))
			return
		}

		var payload shiprocketCreateOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if len(payload.OrderData) == 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "orderData is required"))
			return
		}

		raw, err := gw.CreateOrder(ctx, payload.Token, payload.OrderData)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, carrierResponse{Success: true, OrderResponse: raw})
	}
}

// ShiprocketTrackOrder returns the carrier's view of an order and notifies the
// customer once the carrier reports it confirmed.
func ShiprocketTrackOrder(gw ShipmentGateway, notifier TrackingNotifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if gw == nil {
			responses.WriteError(ctx, logg, w, unavailable("shipment gateway"))
			return
		}

		orderID := validators.SanitizeString(r.URL.Query().Get("order_id"), 64)
		if orderID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order_id is required"))
			return
		}

		raw, err := gw.TrackOrder(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		tracking, err := shipment.ParseTracking(raw)
		switch {
		case err != nil:
			if logg != nil {
				logg.Warn(logg.WithField(ctx, "order_id", orderID), "tracking response not understood")
			}
		case tracking.Confirmed() && notifier != nil:
			notifier.TrackingConfirmed(ctx, tracking)
		}

		responses.WriteJSON(w, http.StatusOK, carrierResponse{Success: true, OrderResponse: raw})
	}
}
