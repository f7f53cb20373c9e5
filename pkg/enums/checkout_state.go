package enums

// CheckoutState records where an order sits in the checkout flow.
type CheckoutState string

const (
	CheckoutStateCollectingDetails           CheckoutState = "collecting_details"
	CheckoutStateAwaitingPaymentGatewayOrder CheckoutState = "awaiting_payment_gateway_order"
	CheckoutStateAwaitingUserPayment         CheckoutState = "awaiting_user_payment"
	CheckoutStatePaymentConfirmed            CheckoutState = "payment_confirmed"
	CheckoutStateCreatingShipment            CheckoutState = "creating_shipment"
	CheckoutStateCompleted                   CheckoutState = "completed"

	CheckoutStateValidationFailed           CheckoutState = "validation_failed"
	CheckoutStatePaymentOrderCreationFailed CheckoutState = "payment_order_creation_failed"
	CheckoutStatePaymentCancelled           CheckoutState = "payment_cancelled"
	CheckoutStateShipmentCreationFailed     CheckoutState = "shipment_creation_failed"
)

var checkoutStates = members[CheckoutState]{
	CheckoutStateCollectingDetails, CheckoutStateAwaitingPaymentGatewayOrder,
	CheckoutStateAwaitingUserPayment, CheckoutStatePaymentConfirmed,
	CheckoutStateCreatingShipment, CheckoutStateCompleted,
	CheckoutStateValidationFailed, CheckoutStatePaymentOrderCreationFailed,
	CheckoutStatePaymentCancelled, CheckoutStateShipmentCreationFailed,
}

// ShipmentCreationFailed is not terminal: the fulfillment worker retries and
// may move the order back to CreatingShipment and then Completed. A cancelled
// checkout still confirms when the provider reports a capture after the
// cancel.
var checkoutFlow = edges[CheckoutState]{
	CheckoutStateCollectingDetails:           {CheckoutStateAwaitingPaymentGatewayOrder, CheckoutStateValidationFailed},
	CheckoutStateAwaitingPaymentGatewayOrder: {CheckoutStateAwaitingUserPayment, CheckoutStatePaymentOrderCreationFailed},
	CheckoutStateAwaitingUserPayment:         {CheckoutStatePaymentConfirmed, CheckoutStatePaymentCancelled},
	CheckoutStatePaymentCancelled:            {CheckoutStatePaymentConfirmed},
	CheckoutStatePaymentConfirmed:            {CheckoutStateCreatingShipment},
	CheckoutStateCreatingShipment:            {CheckoutStateCompleted, CheckoutStateShipmentCreationFailed},
	CheckoutStateShipmentCreationFailed:      {CheckoutStateCreatingShipment, CheckoutStateCompleted},
}

func (c CheckoutState) String() string { return string(c) }

func (c CheckoutState) IsValid() bool { return checkoutStates.has(c) }

func (c CheckoutState) CanTransitionTo(next CheckoutState) bool {
	return checkoutFlow.allows(c, next)
}

func ParseCheckoutState(value string) (CheckoutState, error) {
	return checkoutStates.parse("checkout state", value)
}
