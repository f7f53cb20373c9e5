package enums

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder       OutboxAggregateType = "order"
	AggregateFulfillment OutboxAggregateType = "fulfillment"
)

var aggregateTypes = members[OutboxAggregateType]{AggregateOrder, AggregateFulfillment}

func (a OutboxAggregateType) IsValid() bool { return aggregateTypes.has(a) }

// OutboxEventType names a domain event published through the outbox. The
// value doubles as the event_type message attribute.
type OutboxEventType string

const (
	EventOrderPaid             OutboxEventType = "order_paid"
	EventOrderStatusChanged    OutboxEventType = "order_status_changed"
	EventOrderPaymentCancelled OutboxEventType = "order_payment_cancelled"
	EventShipmentCreated       OutboxEventType = "shipment_created"
	EventShipmentFailed        OutboxEventType = "shipment_failed"
)

var eventTypes = members[OutboxEventType]{
	EventOrderPaid, EventOrderStatusChanged, EventOrderPaymentCancelled,
	EventShipmentCreated, EventShipmentFailed,
}

func (e OutboxEventType) IsValid() bool { return eventTypes.has(e) }

// OutboxDLQErrorReason says why a row left the outbox for the dead letter table.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
