package application

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultSuccess = "success"
	resultError   = "error"
)

// Metrics holds the Prometheus collectors of the cashier service.
type Metrics struct {
	// CheckoutSessions counts the checkout sessions requests by mode and result.
	CheckoutSessions *prometheus.CounterVec

	// CustomersCreated counts the customers created in the local store.
	CustomersCreated prometheus.Counter
}

// NewMetrics initializes the service collectors and registers them in reg. If reg is nil, collectors are not
// registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CheckoutSessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cashier",
				Name:      "checkout_sessions_total",
				Help:      "Total number of checkout sessions requested",
			},
			[]string{"mode", "result"},
		),
		CustomersCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cashier",
				Name:      "customers_created_total",
				Help:      "Total number of customers created",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.CheckoutSessions, m.CustomersCreated)
	}
	return m
}

func (m *Metrics) observeCheckout(mode string, err error) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	m.CheckoutSessions.WithLabelValues(mode, result).Inc()
}
