package enums

// FulfillmentStatus tracks shipment creation after payment capture.
type FulfillmentStatus string

const (
	FulfillmentStatusPaymentCaptured FulfillmentStatus = "payment_captured"
	FulfillmentStatusShipmentPending FulfillmentStatus = "shipment_pending"
	FulfillmentStatusShipmentCreated FulfillmentStatus = "shipment_created"
	FulfillmentStatusShipmentFailed  FulfillmentStatus = "shipment_failed"
)

var fulfillmentStatuses = members[FulfillmentStatus]{
	FulfillmentStatusPaymentCaptured, FulfillmentStatusShipmentPending,
	FulfillmentStatusShipmentCreated, FulfillmentStatusShipmentFailed,
}

func (f FulfillmentStatus) String() string { return string(f) }

func (f FulfillmentStatus) IsValid() bool { return fulfillmentStatuses.has(f) }

// Claimable reports whether a worker may start a shipment attempt.
func (f FulfillmentStatus) Claimable() bool {
	return f == FulfillmentStatusPaymentCaptured || f == FulfillmentStatusShipmentFailed
}

func ParseFulfillmentStatus(value string) (FulfillmentStatus, error) {
	return fulfillmentStatuses.parse("fulfillment status", value)
}
