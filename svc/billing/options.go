package billing

import (
	"log/slog"
	"strings"
)

// Option configures Handlers.
type Option func(*Handlers)

// WithLogger sets the logger used by the error handler.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handlers) {
		if log != nil {
			h.log = log
		}
	}
}

// WithMetrics records checkout and webhook outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(h *Handlers) { h.metrics = m }
}

// WithProvider sets the processor name used in metric labels and selects
// the header the webhook signature is read from.
func WithProvider(name string) Option {
	return func(h *Handlers) {
		h.provider = strings.ToLower(name)
		h.signatureHeader = SignatureHeader(h.provider)
	}
}

// WithMaxWebhookBytes caps the size of a webhook body.
func WithMaxWebhookBytes(n int64) Option {
	return func(h *Handlers) {
		if n > 0 {
			h.maxWebhookBytes = n
		}
	}
}

// SignatureHeader returns the header a processor signs webhooks in.
func SignatureHeader(provider string) string {
	if strings.EqualFold(provider, "paddle") {
		return "Paddle-Signature"
	}
	return "Stripe-Signature"
}
