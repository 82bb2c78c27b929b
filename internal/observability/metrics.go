package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service-level counters exposed on /metrics.
type Metrics struct {
	Registry *prometheus.Registry

	CreditsConsumed  *prometheus.CounterVec
	GateDenials      *prometheus.CounterVec
	PaymentCallbacks *prometheus.CounterVec
	PlansApplied     prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		CreditsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "creditgate",
			Name:      "credits_consumed_total",
			Help:      "Credits deducted from usage ledgers, by feature.",
		}, []string{"feature"}),
		GateDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "creditgate",
			Name:      "gate_denials_total",
			Help:      "Requests rejected by the billing enforcement gate, by reason.",
		}, []string{"reason"}),
		PaymentCallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "creditgate",
			Name:      "payment_callbacks_total",
			Help:      "Gateway callbacks processed, by normalized status.",
		}, []string{"status", "source"}),
		PlansApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "creditgate",
			Name:      "plans_applied_total",
			Help:      "Successful plan activations applied from payment callbacks.",
		}),
	}

	m.Registry.MustRegister(
		m.CreditsConsumed,
		m.GateDenials,
		m.PaymentCallbacks,
		m.PlansApplied,
	)
	return m
}
