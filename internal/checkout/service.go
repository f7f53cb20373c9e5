package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wallcraft/storefront-backend/internal/cart"
	"github.com/wallcraft/storefront-backend/internal/catalog"
	"github.com/wallcraft/storefront-backend/internal/coupons"
	"github.com/wallcraft/storefront-backend/internal/orders"
	"github.com/wallcraft/storefront-backend/internal/payments"
	"github.com/wallcraft/storefront-backend/internal/pricing"
	"github.com/wallcraft/storefront-backend/internal/shipment"
	checkoutpkg "github.com/wallcraft/storefront-backend/pkg/checkout"
	"github.com/wallcraft/storefront-backend/pkg/db/models"
	"github.com/wallcraft/storefront-backend/pkg/enums"
	pkgerrors "github.com/wallcraft/storefront-backend/pkg/errors"
	"github.com/wallcraft/storefront-backend/pkg/logger"
	"github.com/wallcraft/storefront-backend/pkg/metrics"
	"github.com/wallcraft/storefront-backend/pkg/outbox"
	"github.com/wallcraft/storefront-backend/pkg/outbox/payloads"
	"github.com/wallcraft/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartReader interface {
	Items(ctx context.Context, owner cart.Owner) ([]cart.Item, error)
}

type pricer interface {
	Price(ctx context.Context, selections []catalog.Selection) ([]catalog.PricedLine, error)
}

type couponValidator interface {
	Validate(ctx context.Context, code string, now time.Time) (coupons.Result, error)
}

type fulfillmentQueue interface {
	Enqueue(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, paymentID string) (*models.Fulfillment, bool, error)
}

type fulfillmentReader interface {
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Fulfillment, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service orchestrates an order from the checkout form to a queued shipment.
type Service interface {
	Start(ctx context.Context, owner cart.Owner, input StartInput) (*StartResult, error)
	Cancel(ctx context.Context, owner cart.Owner, orderID uuid.UUID) (*StatusView, error)
	Confirm(ctx context.Context, owner cart.Owner, orderID uuid.UUID, input ConfirmInput) (*StatusView, error)
	// ConfirmCaptured confirms a payment reported by a verified provider
	// callback rather than by the shopper's browser.
	ConfirmCaptured(ctx context.Context, orderID uuid.UUID, gatewayOrderID, paymentID string) (*StatusView, error)
	Status(ctx context.Context, owner cart.Owner, orderID uuid.UUID) (*StatusView, error)
}

type ServiceParams struct {
	Tx           txRunner
	Orders       *orders.Repository
	Cart         cartReader
	Pricer       pricer
	Coupons      couponValidator
	Gateway      payments.Gateway
	Fulfillments fulfillmentQueue
	Progress     fulfillmentReader
	Outbox       outboxPublisher
	Calculator   *pricing.Calculator
	Currency     string
	Metrics      *metrics.CheckoutMetrics
	Logger       *logger.Logger
	Now          func() time.Time
}

type service struct {
	tx           txRunner
	orders       *orders.Repository
	cart         cartReader
	pricer       pricer
	coupons      couponValidator
	gateway      payments.Gateway
	fulfillments fulfillmentQueue
	progress     fulfillmentReader
	outbox       outboxPublisher
	calc         *pricing.Calculator
	currency     string
	metrics      *metrics.CheckoutMetrics
	logg         *logger.Logger
	now          func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Tx == nil:
		return nil, fmt.Errorf("tx runner required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Cart == nil:
		return nil, fmt.Errorf("cart service required")
	case params.Pricer == nil:
		return nil, fmt.Errorf("catalog pricer required")
	case params.Coupons == nil:
		return nil, fmt.Errorf("coupon validator required")
	case params.Gateway == nil:
		return nil, fmt.Errorf("payment gateway required")
	case params.Fulfillments == nil:
		return nil, fmt.Errorf("fulfillment queue required")
	case params.Progress == nil:
		return nil, fmt.Errorf("fulfillment reader required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	calc := params.Calculator
	if calc == nil {
		calc = pricing.DefaultCalculator()
	}
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "INR"
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:           params.Tx,
		orders:       params.Orders,
		cart:         params.Cart,
		pricer:       params.Pricer,
		coupons:      params.Coupons,
		gateway:      params.Gateway,
		fulfillments: params.Fulfillments,
		progress:     params.Progress,
		outbox:       params.Outbox,
		calc:         calc,
		currency:     currency,
		metrics:      params.Metrics,
		logg:         params.Logger,
		now:          now,
	}, nil
}

func (s *service) Start(ctx context.Context, owner cart.Owner, input StartInput) (*StartResult, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart owner required")
	}
	details, err := checkoutpkg.ValidateShippingDetails(input.Details)
	if err != nil {
		return nil, err
	}

	items, err := s.cart.Items(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if err := checkVariants(items); err != nil {
		return nil, err
	}

	priced, err := s.pricer.Price(ctx, cart.Selections(items))
	if err != nil {
		return nil, err
	}
	if err := checkAvailable(priced); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	discountPercent := 0
	var couponCode *string
	if code := strings.TrimSpace(input.CouponCode); code != "" {
		result, err := s.coupons.Validate(ctx, code, now)
		if err != nil {
			return nil, err
		}
		if !result.Valid {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is invalid or expired").
				WithDetails(map[string]any{"coupon_code": code})
		}
		discountPercent = result.DiscountPercent
		couponCode = &result.Code
	}
	totals := s.calc.OrderTotals(catalog.Lines(priced), discountPercent)

	order := &models.Order{
		OrderNumber:     orders.NewOrderNumber(now),
		UserID:          owner.UserID,
		CustomerName:    details.Name,
		Email:           details.Email,
		Phone:           details.Phone,
		ShippingAddress: details.ShippingAddress,
		BillingAddress:  details.BillingAddress,
		City:            details.City,
		State:           details.State,
		Pincode:         details.Pincode,
		Country:         details.Country,
		Items:           orderLines(priced),
		SubtotalMinor:   totals.Subtotal.MinorUnits(),
		ShippingMinor:   totals.Shipping.MinorUnits(),
		TaxMinor:        totals.Tax.MinorUnits(),
		DiscountMinor:   totals.Discount.MinorUnits(),
		TotalMinor:      totals.Total.MinorUnits(),
		CouponCode:      couponCode,
		DiscountPercent: totals.DiscountPercent,
		Currency:        s.currency,
		CheckoutState:   enums.CheckoutStateAwaitingPaymentGatewayOrder,
		Status:          enums.OrderStatusProcessing,
		PaymentStatus:   enums.PaymentStatusPending,
		PaymentProvider: s.gateway.Provider(),
	}
	if owner.IsGuest() {
		guest := owner.GuestSessionID
		order.GuestSessionID = &guest
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	gatewayOrder, err := s.gateway.CreateOrder(ctx, payments.CreateOrderInput{
		Amount:   order.TotalMinor,
		Currency: order.Currency,
		Receipt:  order.OrderNumber,
		OrderID:  order.ID.String(),
	})
	if err != nil {
		s.markGatewayFailure(ctx, order.ID, err)
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "create payment order")
	}

	ok, err := s.orders.TransitionCheckout(ctx, order.ID,
		[]enums.CheckoutState{enums.CheckoutStateAwaitingPaymentGatewayOrder},
		map[string]any{
			"checkout_state":   enums.CheckoutStateAwaitingUserPayment,
			"gateway_order_id": gatewayOrder.ID,
		},
	)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment order")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order changed while creating payment order")
	}

	s.metrics.CheckoutStarted(s.gateway.Provider())
	s.logg.Info(s.logg.WithField(ctx, "gateway_order_id", gatewayOrder.ID), "checkout awaiting payment")

	return &StartResult{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		GatewayOrderID: gatewayOrder.ID,
		Provider:       s.gateway.Provider(),
		Amount:         order.TotalMinor,
		Currency:       order.Currency,
		KeyID:          s.gateway.PublicKey(),
		ClientSecret:   gatewayOrder.ClientSecret,
		Totals:         totals,
	}, nil
}

func (s *service) markGatewayFailure(ctx context.Context, orderID uuid.UUID, cause error) {
	_, err := s.orders.TransitionCheckout(ctx, orderID,
		[]enums.CheckoutState{enums.CheckoutStateAwaitingPaymentGatewayOrder},
		map[string]any{
			"checkout_state": enums.CheckoutStatePaymentOrderCreationFailed,
			"payment_status": enums.PaymentStatusFailed,
			"last_error":     cause.Error(),
		},
	)
	if err != nil {
		s.logg.Error(ctx, "failed to record payment order failure", err)
	}
	s.logg.Error(ctx, "payment order creation failed", cause)
}

func (s *service) Cancel(ctx context.Context, owner cart.Owner, orderID uuid.UUID) (*StatusView, error) {
	order, err := s.ownedOrder(ctx, owner, orderID)
	if err != nil {
		return nil, err
	}
	switch order.CheckoutState {
	case enums.CheckoutStatePaymentCancelled:
		return s.view(ctx, order)
	case enums.CheckoutStateAwaitingUserPayment:
	default:
		return nil, stateConflict(order.CheckoutState, enums.CheckoutStatePaymentCancelled)
	}

	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.orders.WithTx(tx).TransitionCheckout(ctx, order.ID,
			[]enums.CheckoutState{enums.CheckoutStateAwaitingUserPayment},
			map[string]any{
				"checkout_state": enums.CheckoutStatePaymentCancelled,
				"payment_status": enums.PaymentStatusFailed,
			},
		)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed while cancelling")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaymentCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorFor(owner),
			Version:       1,
			OccurredAt:    now,
			Data: payloads.PaymentCancelledEvent{
				OrderID:     order.ID,
				Reason:      "cancelled by shopper",
				CancelledAt: now,
			},
		})
	})
	if err != nil {
		return nil, asDependency(err, "cancel checkout")
	}
	s.metrics.PaymentResult(order.PaymentProvider, "cancelled")
	return s.reload(ctx, order.ID)
}

func (s *service) Confirm(ctx context.Context, owner cart.Owner, orderID uuid.UUID, input ConfirmInput) (*StatusView, error) {
	input.GatewayOrderID = strings.TrimSpace(input.GatewayOrderID)
	input.PaymentID = strings.TrimSpace(input.PaymentID)
	input.Signature = strings.TrimSpace(input.Signature)

	order, err := s.ownedOrder(ctx, owner, orderID)
	if err != nil {
		return nil, err
	}
	if alreadyPaid(order, input.PaymentID) {
		return s.view(ctx, order)
	}
	if !payable(order.CheckoutState) {
		return nil, stateConflict(order.CheckoutState, enums.CheckoutStatePaymentConfirmed)
	}
	if order.GatewayOrderID == nil || *order.GatewayOrderID != input.GatewayOrderID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order does not match this order")
	}

	if err := s.gateway.VerifyPayment(ctx, payments.Confirmation{
		GatewayOrderID: input.GatewayOrderID,
		PaymentID:      input.PaymentID,
		Signature:      input.Signature,
	}); err != nil {
		s.metrics.PaymentResult(order.PaymentProvider, "rejected")
		s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), fmt.Sprintf("payment verification failed: %v", err))
		return nil, err
	}
	return s.markPaid(ctx, order, input.PaymentID, actorFor(owner))
}

func (s *service) ConfirmCaptured(ctx context.Context, orderID uuid.UUID, gatewayOrderID, paymentID string) (*StatusView, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, orders.MapLookupError(err)
	}
	if alreadyPaid(order, paymentID) {
		return s.view(ctx, order)
	}
	if order.GatewayOrderID == nil || *order.GatewayOrderID != gatewayOrderID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order does not match this order")
	}
	if !payable(order.CheckoutState) {
		return nil, stateConflict(order.CheckoutState, enums.CheckoutStatePaymentConfirmed)
	}
	return s.markPaid(ctx, order, paymentID, nil)
}

// markPaid records the payment, queues fulfillment and hands the order to the
// shipment worker in one transaction. A cancelled or expired checkout still
// confirms, since its gateway order stays payable.
func (s *service) markPaid(ctx context.Context, order *models.Order, paymentID string, actor *outbox.ActorRef) (*StatusView, error) {
	now := s.now().UTC()
	ctx = s.logg.WithPaymentID(s.logg.WithOrderID(ctx, order.ID.String()), paymentID)
	late := order.CheckoutState == enums.CheckoutStatePaymentCancelled

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		ok, err := repo.TransitionCheckout(ctx, order.ID,
			payableStates,
			map[string]any{
				"checkout_state": enums.CheckoutStatePaymentConfirmed,
				"payment_status": enums.PaymentStatusPaid,
				"payment_id":     paymentID,
				"last_error":     nil,
			},
		)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed while confirming payment")
		}

		_, created, err := s.fulfillments.Enqueue(ctx, tx, order.ID, paymentID)
		if err != nil {
			return err
		}
		if created {
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderPaid,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actor,
				Version:       1,
				OccurredAt:    now,
				Data: payloads.OrderPaidEvent{
					OrderID:         order.ID,
					UserID:          order.UserID,
					PaymentID:       paymentID,
					PaymentProvider: order.PaymentProvider,
					TotalMinor:      order.TotalMinor,
					Currency:        order.Currency,
					PaidAt:          now,
				},
			}); err != nil {
				return err
			}
		}

		_, err = repo.TransitionCheckout(ctx, order.ID,
			[]enums.CheckoutState{enums.CheckoutStatePaymentConfirmed},
			map[string]any{"checkout_state": enums.CheckoutStateCreatingShipment},
		)
		return err
	})
	if err != nil {
		return nil, asDependency(err, "confirm payment")
	}

	if late {
		s.metrics.PaymentResult(order.PaymentProvider, "late_capture")
		s.logg.Warn(ctx, "payment captured after checkout was cancelled; shipment queued")
	} else {
		s.metrics.PaymentResult(order.PaymentProvider, "confirmed")
		s.logg.Info(ctx, "payment confirmed; shipment queued")
	}
	return s.reload(ctx, order.ID)
}

func (s *service) Status(ctx context.Context, owner cart.Owner, orderID uuid.UUID) (*StatusView, error) {
	order, err := s.ownedOrder(ctx, owner, orderID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, order)
}

func (s *service) ownedOrder(ctx context.Context, owner cart.Owner, orderID uuid.UUID) (*models.Order, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart owner required")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, orders.MapLookupError(err)
	}
	// other shoppers' orders are reported as missing
	if !order.OwnerMatches(owner.UserID, owner.GuestSessionID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) reload(ctx context.Context, orderID uuid.UUID) (*StatusView, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, orders.MapLookupError(err)
	}
	return s.view(ctx, order)
}

func (s *service) view(ctx context.Context, order *models.Order) (*StatusView, error) {
	view := &StatusView{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CheckoutState: order.CheckoutState,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Order:         orders.NewOrderView(order),
	}
	f, err := s.progress.FindByOrderID(ctx, order.ID)
	switch {
	case err == nil:
		view.Fulfillment = summarize(f)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fulfillment")
	}
	return view, nil
}

var payableStates = []enums.CheckoutState{
	enums.CheckoutStateAwaitingUserPayment,
	enums.CheckoutStatePaymentCancelled,
}

func payable(state enums.CheckoutState) bool {
	return state == enums.CheckoutStateAwaitingUserPayment || state == enums.CheckoutStatePaymentCancelled
}

func alreadyPaid(order *models.Order, paymentID string) bool {
	if order.PaymentStatus != enums.PaymentStatusPaid || order.PaymentID == nil {
		return false
	}
	return paymentID != "" && *order.PaymentID == paymentID
}

func checkVariants(items []cart.Item) error {
	incomplete := map[string][]string{}
	for idx, item := range items {
		if missing := item.MissingVariants(); len(missing) > 0 {
			incomplete[fmt.Sprintf("%d", idx)] = missing
		}
	}
	if len(incomplete) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "cart items are missing variant selections").
		WithDetails(map[string]any{"items": incomplete})
}

func checkAvailable(priced []catalog.PricedLine) error {
	unavailable := map[string][]string{}
	for idx, line := range priced {
		if len(line.Unknown) > 0 {
			unavailable[fmt.Sprintf("%d", idx)] = line.Unknown
		}
	}
	if len(unavailable) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "cart references items that are no longer available").
		WithDetails(map[string]any{"items": unavailable})
}

func orderLines(priced []catalog.PricedLine) types.OrderLines {
	lines := make(types.OrderLines, len(priced))
	for idx, p := range priced {
		lines[idx] = types.OrderLine{
			SKU:            shipment.SKU(p.Selection.ProductID, p.Selection.IsCustom, idx),
			ProductID:      p.Selection.ProductID,
			Name:           p.Name,
			Image:          p.Image,
			IsCustom:       p.Selection.IsCustom,
			Quantity:       p.Selection.Quantity,
			UnitPriceMinor: p.UnitPrice.MinorUnits(),
			LineTotalMinor: p.Total.MinorUnits(),
			Frame:          p.Frame,
			SubFrame:       p.SubFrame,
			Size:           p.Size,
		}
	}
	return lines
}

func actorFor(owner cart.Owner) *outbox.ActorRef {
	if owner.UserID == nil {
		return &outbox.ActorRef{Role: "guest"}
	}
	id := *owner.UserID
	return &outbox.ActorRef{UserID: &id, Role: "customer"}
}

func stateConflict(from, to enums.CheckoutState) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot move to the requested checkout state").
		WithDetails(map[string]any{"from": from, "to": to})
}

func asDependency(err error, msg string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
