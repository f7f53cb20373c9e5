package enums

// OrderStatus is the admin-facing lifecycle of a persisted order.
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderStatuses = members[OrderStatus]{
	OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled,
}

var orderFlow = edges[OrderStatus]{
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
}

func (o OrderStatus) String() string { return string(o) }

func (o OrderStatus) IsValid() bool { return orderStatuses.has(o) }

// IsTerminal reports whether no further transitions are allowed.
func (o OrderStatus) IsTerminal() bool { return len(orderFlow[o]) == 0 }

func (o OrderStatus) CanTransitionTo(next OrderStatus) bool { return orderFlow.allows(o, next) }

func ParseOrderStatus(value string) (OrderStatus, error) {
	return orderStatuses.parse("order status", value)
}
