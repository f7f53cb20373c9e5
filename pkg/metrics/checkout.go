package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics counts the payment and shipment outcomes of the checkout flow.
type CheckoutMetrics struct {
	started   *prometheus.CounterVec
	payments  *prometheus.CounterVec
	shipments *prometheus.CounterVec
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	started := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkout_started_total",
		Help: "Checkouts that reached the payment step.",
	}, []string{"provider"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_payments_total",
		Help: "Payment confirmations by outcome.",
	}, []string{"provider", "result"})
	shipments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_shipments_total",
		Help: "Shipment creation attempts by outcome.",
	}, []string{"result"})
	reg.MustRegister(started, payments, shipments)
	return &CheckoutMetrics{started: started, payments: payments, shipments: shipments}
}

func (m *CheckoutMetrics) CheckoutStarted(provider string) {
	if m == nil || m.started == nil {
		return
	}
	m.started.WithLabelValues(normalizeLabel(provider)).Inc()
}

// PaymentResult records "confirmed", "rejected" or "cancelled" outcomes.
func (m *CheckoutMetrics) PaymentResult(provider, result string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(provider), normalizeLabel(result)).Inc()
}

func (m *CheckoutMetrics) ShipmentResult(result string) {
	if m == nil || m.shipments == nil {
		return
	}
	m.shipments.WithLabelValues(normalizeLabel(result)).Inc()
}

// normalizeLabel keeps label cardinality stable across casing and blanks.
func normalizeLabel(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "unknown"
	}
	return v
}
