package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/wallcraft/storefront-backend/internal/checkout"
	pkgerrors "github.com/wallcraft/storefront-backend/pkg/errors"
	"github.com/wallcraft/storefront-backend/pkg/logger"
)

// OrderMetadataKey is the PaymentIntent metadata entry naming our order.
const OrderMetadataKey = "order_id"

type paymentConfirmer interface {
	ConfirmCaptured(ctx context.Context, orderID uuid.UUID, gatewayOrderID, paymentID string) (*checkout.StatusView, error)
}

type ServiceParams struct {
	Checkout paymentConfirmer
	Logger   *logger.Logger
}

// Service applies Stripe payment events to checkouts.
type Service struct {
	checkout paymentConfirmer
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{checkout: params.Checkout, logg: params.Logger}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
		}
		return s.confirm(ctx, &intent)
	case stripe.EventTypePaymentIntentPaymentFailed, stripe.EventTypePaymentIntentCanceled:
		// the order stays in AwaitingUserPayment; checkout expiry closes it
		s.logg.Warn(s.logg.WithField(ctx, "stripe_event", string(event.Type)),
			fmt.Sprintf("payment intent %s did not succeed", event.GetObjectValue("id")))
		return nil
	default:
		return nil
	}
}

func (s *Service) confirm(ctx context.Context, intent *stripe.PaymentIntent) error {
	if intent.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	orderID, err := OrderIDFromMetadata(intent.Metadata)
	if err != nil {
		return err
	}
	ctx = s.logg.WithPaymentID(s.logg.WithOrderID(ctx, orderID.String()), intent.ID)

	view, err := s.checkout.ConfirmCaptured(ctx, orderID, intent.ID, intent.ID)
	if err != nil {
		return err
	}
	s.logg.Info(ctx, fmt.Sprintf("payment intent confirmed order %s", view.OrderNumber))
	return nil
}

// OrderIDFromMetadata reads the order id attached when the intent was created.
func OrderIDFromMetadata(metadata map[string]string) (uuid.UUID, error) {
	raw := strings.TrimSpace(metadata[OrderMetadataKey])
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent metadata missing order_id")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent metadata order_id is invalid").
			WithDetails(map[string]any{OrderMetadataKey: raw})
	}
	return id, nil
}
