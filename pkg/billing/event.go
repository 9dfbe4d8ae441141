package billing

import "time"

// EventType is the normalized webhook event type.
// Providers map their own event names onto these.
type EventType string

// EventPaymentFailed is final for the transaction. EventPaymentRetrying is a
// failed attempt the processor may still collect on the same transaction ID.
const (
	EventCheckoutCompleted   EventType = "checkout_completed"
	EventCheckoutPending     EventType = "checkout_pending"
	EventPaymentFailed       EventType = "payment_failed"
	EventPaymentRetrying     EventType = "payment_retrying"
	EventInvoicePaid         EventType = "invoice_paid"
	EventSubscriptionUpdated EventType = "subscription_updated"
	EventSubscriptionDeleted EventType = "subscription_deleted"

	// EventIgnored covers anything the service does not act on.
	EventIgnored EventType = "ignored"
)

// Event is a verified, provider-independent webhook notification.
type Event struct {
	ID            string
	Type          EventType
	ProviderEvent string // original event name, e.g. checkout.session.completed
	PaymentMethod PaymentMethod

	TransactionID string
	CustomerID    string // processor-side customer
	UserID        string // from checkout metadata, may be empty

	PlanID          string // from checkout metadata, may be empty
	ProcessorPlanID string // price ID, may be empty

	Amount   int64
	Currency string

	SubscriptionStatus SubscriptionStatus
	OccurredAt         time.Time
}

// Outcome is what reconciliation did with an event.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

// WebhookResult is returned for every acknowledged event.
type WebhookResult struct {
	EventID string
	Type    EventType
	Outcome Outcome
}

// Metadata keys attached to checkout sessions so webhooks can resolve user and plan.
const (
	MetadataUserID = "user_id"
	MetadataPlanID = "plan_id"
)
