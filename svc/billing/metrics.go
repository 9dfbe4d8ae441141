package billing

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the billing collectors.
type Metrics struct {
	webhookEvents    *prometheus.CounterVec
	webhookDuration  *prometheus.HistogramVec
	checkoutSessions *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "webhook_events_total",
			Help:      "Webhook deliveries by provider, normalized event type and outcome.",
		}, []string{"provider", "type", "outcome"}),
		webhookDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "billing",
			Name:      "webhook_duration_seconds",
			Help:      "Time spent verifying and reconciling a webhook delivery.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		checkoutSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "checkout_sessions_total",
			Help:      "Checkout session requests by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.webhookEvents, m.webhookDuration, m.checkoutSessions)
	}
	return m
}

func (m *Metrics) observeWebhook(provider, eventType, outcome string, d time.Duration) {
	m.webhookEvents.WithLabelValues(provider, eventType, outcome).Inc()
	m.webhookDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func (m *Metrics) observeCheckout(outcome string) {
	m.checkoutSessions.WithLabelValues(outcome).Inc()
}

// WebhookEvents returns the counter for one label combination.
func (m *Metrics) WebhookEvents(provider, eventType, outcome string) prometheus.Counter {
	return m.webhookEvents.WithLabelValues(provider, eventType, outcome)
}

// CheckoutSessions returns the counter for outcome.
func (m *Metrics) CheckoutSessions(outcome string) prometheus.Counter {
	return m.checkoutSessions.WithLabelValues(outcome)
}
