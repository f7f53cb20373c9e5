package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wallcraft/storefront-backend/api/middleware"
	"github.com/wallcraft/storefront-backend/api/responses"
	"github.com/wallcraft/storefront-backend/api/validators"
	"github.com/wallcraft/storefront-backend/internal/orders"
	"github.com/wallcraft/storefront-backend/pkg/db/models"
	"github.com/wallcraft/storefront-backend/pkg/enums"
	pkgerrors "github.com/wallcraft/storefront-backend/pkg/errors"
	"github.com/wallcraft/storefront-backend/pkg/logger"
)

// FulfillmentRetrier re-runs shipment creation for a captured payment.
type FulfillmentRetrier interface {
	Retry(ctx context.Context, paymentID string) (*models.Fulfillment, error)
}

type orderStatusRequest struct {
	Status        *string `json:"status"`
	PaymentStatus *string `json:"payment_status"`
}

type fulfillmentResponse struct {
	ID              uuid.UUID               `json:"id"`
	OrderID         uuid.UUID               `json:"order_id"`
	PaymentID       string                  `json:"payment_id"`
	Status          enums.FulfillmentStatus `json:"status"`
	Attempts        int                     `json:"attempts"`
	NextAttemptAt   *time.Time              `json:"next_attempt_at,omitempty"`
	LastError       *string                 `json:"last_error,omitempty"`
	ShipmentOrderID *string                 `json:"shipment_order_id,omitempty"`
	ShipmentID      *string                 `json:"shipment_id,omitempty"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// AdminOrderList pages through orders, newest first. Optional filters:
// status, payment_status, checkout_state, user_id.
func AdminOrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("order service"))
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		filters, err := orderFilters(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, err := svc.List(ctx, params, filters)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.NewListView(list))
	}
}

func AdminOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("order service"))
			return
		}
		orderID, err := uuidParam(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload orderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := orders.StatusUpdateInput{
			OrderID:     orderID,
			ActorUserID: actorUserID(ctx),
			ActorRole:   middleware.RoleFromContext(ctx),
		}
		if payload.Status != nil {
			status, err := enums.ParseOrderStatus(strings.TrimSpace(*payload.Status))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			input.Status = &status
		}
		if payload.PaymentStatus != nil {
			status, err := enums.ParsePaymentStatus(strings.TrimSpace(*payload.PaymentStatus))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_status"))
				return
			}
			input.PaymentStatus = &status
		}

		order, err := svc.UpdateStatus(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.NewOrderView(order))
	}
}

// AdminFulfillmentRetry re-arms a failed shipment for the given payment id.
func AdminFulfillmentRetry(retrier FulfillmentRetrier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if retrier == nil {
			responses.WriteError(ctx, logg, w, unavailable("fulfillment processor"))
			return
		}
		paymentID := strings.TrimSpace(chi.URLParam(r, "paymentId"))
		if paymentID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "paymentId is required"))
			return
		}
		if logg != nil {
			ctx = logg.WithPaymentID(ctx, paymentID)
		}

		row, err := retrier.Retry(ctx, paymentID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, fulfillmentResponse{
			ID:              row.ID,
			OrderID:         row.OrderID,
			PaymentID:       row.PaymentID,
			Status:          row.Status,
			Attempts:        row.Attempts,
			NextAttemptAt:   row.NextAttemptAt,
			LastError:       row.LastError,
			ShipmentOrderID: row.ShipmentOrderID,
			ShipmentID:      row.ShipmentID,
			UpdatedAt:       row.UpdatedAt,
		})
	}
}

func orderFilters(r *http.Request) (orders.ListFilters, error) {
	var filters orders.ListFilters
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(q.Get("payment_status")); raw != "" {
		status, err := enums.ParsePaymentStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_status filter")
		}
		filters.PaymentStatus = &status
	}
	if raw := strings.TrimSpace(q.Get("checkout_state")); raw != "" {
		state, err := enums.ParseCheckoutState(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid checkout_state filter")
		}
		filters.CheckoutState = &state
	}
	if raw := strings.TrimSpace(q.Get("user_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user_id filter")
		}
		filters.UserID = &id
	}
	return filters, nil
}
