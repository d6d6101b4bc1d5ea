package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CommerceMetrics counts the order-core operations worth watching.
type CommerceMetrics struct {
	checkouts   *prometheus.CounterVec
	transitions *prometheus.CounterVec
	refunds     *prometheus.CounterVec
}

// NewCommerceMetrics registers the commerce counters on the provided registerer.
func NewCommerceMetrics(reg prometheus.Registerer) *CommerceMetrics {
	if reg == nil {
		return &CommerceMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkouts_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Order status transitions by target status.",
	}, []string{"to_status"})
	refunds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refunds_total",
		Help: "Refund requests by status.",
	}, []string{"status"})
	reg.MustRegister(checkouts, transitions, refunds)
	return &CommerceMetrics{
		checkouts:   checkouts,
		transitions: transitions,
		refunds:     refunds,
	}
}

// IncCheckout increments the checkout counter for the given outcome.
func (m *CommerceMetrics) IncCheckout(outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncTransition increments the transition counter for the target status.
func (m *CommerceMetrics) IncTransition(toStatus string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(toStatus)).Inc()
}

// IncRefund increments the refund counter for the given status.
func (m *CommerceMetrics) IncRefund(status string) {
	if m == nil || m.refunds == nil {
		return
	}
	m.refunds.WithLabelValues(normalizeLabel(status)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
