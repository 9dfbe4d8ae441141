// Package billing serves the billing HTTP routes: plan listing, checkout,
// customer portal, payment history, account state and processor webhooks.
//
// Handlers wrap pkg/billing.Service and translate its errors into HTTP
// statuses. Webhook deliveries answer 2xx only when the event was applied,
// was a duplicate, or is not acted on, so processors redeliver everything else.
//
// Metrics are registered on the supplied prometheus.Registerer:
//
//	billing_webhook_events_total{provider,type,outcome}
//	billing_webhook_duration_seconds{provider}
//	billing_checkout_sessions_total{outcome}
//
// ReceiptNotifier implements billing.Notifier and emails a receipt through
// an email.EmailSender after a purchase commits.
package billing
