package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

// StripeConfig holds configuration for the Stripe provider.
type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY,required"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required"`
}

// StripeOption configures a StripeProvider.
type StripeOption func(*StripeProvider)

// WithStripeBackends routes SDK calls through custom backends, e.g. a test server.
func WithStripeBackends(b *stripe.Backends) StripeOption {
	return func(p *StripeProvider) {
		p.backends = b
	}
}

// WithStripeWebhookTolerance overrides how old a signed payload may be.
func WithStripeWebhookTolerance(d time.Duration) StripeOption {
	return func(p *StripeProvider) {
		if d > 0 {
			p.tolerance = d
		}
	}
}

// StripeProvider implements Provider on top of stripe-go.
type StripeProvider struct {
	client        *client.API
	backends      *stripe.Backends
	webhookSecret string
	tolerance     time.Duration
}

// NewStripeProvider creates a Stripe provider.
func NewStripeProvider(cfg StripeConfig, opts ...StripeOption) (*StripeProvider, error) {
	if cfg.SecretKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	p := &StripeProvider{
		webhookSecret: cfg.WebhookSecret,
		tolerance:     webhook.DefaultTolerance,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.client = &client.API{}
	p.client.Init(cfg.SecretKey, p.backends)

	return p, nil
}

// EnsureCustomer finds a customer tagged with the user ID or creates one.
func (p *StripeProvider) EnsureCustomer(ctx context.Context, req CustomerRequest) (string, error) {
	if req.UserID == "" {
		return "", errors.New("stripe: user ID is required")
	}

	if req.Email != "" {
		params := &stripe.CustomerListParams{Email: stripe.String(req.Email)}
		params.Context = ctx
		params.Limit = stripe.Int64(10)

		it := p.client.Customers.List(params)
		for it.Next() {
			c := it.Customer()
			if !c.Deleted && c.Metadata[MetadataUserID] == req.UserID {
				return c.ID, nil
			}
		}
		if err := it.Err(); err != nil {
			return "", fmt.Errorf("stripe: list customers: %w", err)
		}
	}

	params := &stripe.CustomerParams{
		Metadata: map[string]string{MetadataUserID: req.UserID},
	}
	if req.Email != "" {
		params.Email = stripe.String(req.Email)
	}
	if req.Name != "" {
		params.Name = stripe.String(req.Name)
	}
	params.Context = ctx

	c, err := p.client.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create customer: %w", err)
	}
	return c.ID, nil
}

// CreateCheckoutSession starts a Stripe Checkout Session.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.ProcessorPlanID == "" {
		return nil, errors.New("stripe: price ID is required")
	}

	mode := stripe.CheckoutSessionModePayment
	if req.Mode == CheckoutModeSubscription {
		mode = stripe.CheckoutSessionModeSubscription
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(mode)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.ProcessorPlanID),
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(req.UserID),
		Metadata:          req.Metadata(),
	}
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	}
	if req.SuccessURL != "" {
		params.SuccessURL = stripe.String(req.SuccessURL)
	}
	if req.CancelURL != "" {
		params.CancelURL = stripe.String(req.CancelURL)
	}
	// Metadata is copied onto the object that later webhooks describe.
	if mode == stripe.CheckoutSessionModeSubscription {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{Metadata: req.Metadata()}
	} else {
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{Metadata: req.Metadata()}
	}
	params.Context = ctx

	sess, err := p.client.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	if sess.URL == "" {
		return nil, ErrNoCheckoutURL
	}

	return &CheckoutSession{SessionID: sess.ID, SessionURL: sess.URL}, nil
}

// CustomerPortalURL creates a billing portal session.
func (p *StripeProvider) CustomerPortalURL(ctx context.Context, customerID, returnURL string) (string, error) {
	if customerID == "" {
		return "", ErrNoProcessorCustomer
	}

	params := &stripe.BillingPortalSessionParams{Customer: stripe.String(customerID)}
	if returnURL != "" {
		params.ReturnURL = stripe.String(returnURL)
	}
	params.Context = ctx

	sess, err := p.client.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create portal session: %w", err)
	}
	if sess.URL == "" {
		return "", ErrNoPortalURL
	}
	return sess.URL, nil
}

// ParseEvent verifies the Stripe-Signature header and normalizes the event.
func (p *StripeProvider) ParseEvent(_ context.Context, payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                p.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		switch {
		case errors.Is(err, webhook.ErrNotSigned),
			errors.Is(err, webhook.ErrInvalidHeader),
			errors.Is(err, webhook.ErrNoValidSignature),
			errors.Is(err, webhook.ErrTooOld):
			return nil, errors.Join(ErrInvalidSignature, err)
		}
		return nil, errors.Join(ErrInvalidPayload, err)
	}

	return decodeStripeEvent(&event)
}

// decodeStripeEvent maps a verified Stripe event onto Event.
func decodeStripeEvent(event *stripe.Event) (*Event, error) {
	out := &Event{
		ID:            event.ID,
		Type:          EventIgnored,
		ProviderEvent: string(event.Type),
		PaymentMethod: PaymentMethodStripe,
		OccurredAt:    unixTime(event.Created),
	}
	if event.Data == nil {
		return nil, fmt.Errorf("%w: event %s has no data", ErrInvalidPayload, event.ID)
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded,
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, errors.Join(ErrInvalidPayload, err)
		}
		applyCheckoutSession(out, &sess)

		switch {
		case event.Type == stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
			out.Type = EventPaymentFailed
		case event.Type == stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded,
			sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
			sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
			out.Type = EventCheckoutCompleted
		default:
			out.Type = EventCheckoutPending
		}

	case stripe.EventTypeCustomerSubscriptionUpdated, stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, errors.Join(ErrInvalidPayload, err)
		}
		applySubscription(out, &sub)

		out.Type = EventSubscriptionUpdated
		if event.Type == stripe.EventTypeCustomerSubscriptionDeleted || out.SubscriptionStatus == SubscriptionDeleted {
			out.Type = EventSubscriptionDeleted
		}

	case stripe.EventTypeInvoicePaid, stripe.EventTypeInvoicePaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, errors.Join(ErrInvalidPayload, err)
		}
		// One-off invoices and the first subscription invoice are covered by checkout events.
		if inv.Subscription == nil || inv.BillingReason == stripe.InvoiceBillingReasonSubscriptionCreate {
			return out, nil
		}
		applyInvoice(out, &inv)

		out.Type = EventInvoicePaid
		// Stripe retries failed invoices and sends invoice.paid for the same ID.
		if event.Type == stripe.EventTypeInvoicePaymentFailed {
			out.Type = EventPaymentRetrying
		}
	}

	return out, nil
}

func applyCheckoutSession(out *Event, sess *stripe.CheckoutSession) {
	// The session ID is stable across completed and async events of one checkout.
	out.TransactionID = sess.ID
	out.Amount = sess.AmountTotal
	out.Currency = string(sess.Currency)
	out.UserID = sess.Metadata[MetadataUserID]
	if out.UserID == "" {
		out.UserID = sess.ClientReferenceID
	}
	out.PlanID = sess.Metadata[MetadataPlanID]
	if sess.Customer != nil {
		out.CustomerID = sess.Customer.ID
	}
}

func applySubscription(out *Event, sub *stripe.Subscription) {
	out.UserID = sub.Metadata[MetadataUserID]
	out.PlanID = sub.Metadata[MetadataPlanID]
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		out.ProcessorPlanID = sub.Items.Data[0].Price.ID
	}
	out.SubscriptionStatus = stripeSubscriptionStatus(sub)
}

func applyInvoice(out *Event, inv *stripe.Invoice) {
	out.TransactionID = inv.ID
	out.Amount = inv.AmountPaid
	out.Currency = string(inv.Currency)
	if inv.Customer != nil {
		out.CustomerID = inv.Customer.ID
	}
	if inv.SubscriptionDetails != nil {
		out.UserID = inv.SubscriptionDetails.Metadata[MetadataUserID]
		out.PlanID = inv.SubscriptionDetails.Metadata[MetadataPlanID]
	}
	if inv.Lines != nil && len(inv.Lines.Data) > 0 && inv.Lines.Data[0].Price != nil {
		out.ProcessorPlanID = inv.Lines.Data[0].Price.ID
	}
}

func stripeSubscriptionStatus(sub *stripe.Subscription) SubscriptionStatus {
	switch sub.Status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		if sub.CancelAtPeriodEnd {
			return SubscriptionCancelAtPeriodEnd
		}
		return SubscriptionActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return SubscriptionPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return SubscriptionDeleted
	}
	return SubscriptionNone
}

func unixTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
