package enums

// PaymentStatus tracks the payment side of an order.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

var paymentStatuses = members[PaymentStatus]{PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed}

var paymentFlow = edges[PaymentStatus]{
	PaymentStatusPending: {PaymentStatusPaid, PaymentStatusFailed},
	// capture reported after a cancel or expiry
	PaymentStatusFailed:  {PaymentStatusPaid},
	// chargebacks and disputes
	PaymentStatusPaid:    {PaymentStatusFailed},
}

func (p PaymentStatus) String() string { return string(p) }

func (p PaymentStatus) IsValid() bool { return paymentStatuses.has(p) }

func (p PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return paymentFlow.allows(p, next)
}

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return paymentStatuses.parse("payment status", value)
}
