package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for the Paddle provider.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY,required"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
	// CheckoutURL is the page hosting Paddle.js; empty uses the default payment link.
	CheckoutURL string `env:"PADDLE_CHECKOUT_URL"`
}

// PaddleProvider implements Provider for Paddle Billing.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
	config   PaddleConfig
}

// NewPaddleProvider creates a new Paddle provider.
func NewPaddleProvider(cfg PaddleConfig) (*PaddleProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	var (
		client *paddle.SDK
		err    error
	)
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidEnvironment, cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &PaddleProvider{
		client:   client,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
		config:   cfg,
	}, nil
}

// EnsureCustomer returns the Paddle customer registered under the user's email, creating it if absent.
func (p *PaddleProvider) EnsureCustomer(ctx context.Context, req CustomerRequest) (string, error) {
	if req.Email == "" {
		return "", errors.New("paddle: customer email is required")
	}

	list, err := p.client.CustomersClient.ListCustomers(ctx, &paddle.ListCustomersRequest{
		Email: []string{req.Email},
	})
	if err != nil {
		return "", fmt.Errorf("paddle: list customers: %w", err)
	}

	var found string
	if err := list.Iter(ctx, func(c *paddle.Customer) (bool, error) {
		found = c.ID
		return false, nil
	}); err != nil {
		return "", fmt.Errorf("paddle: iterate customers: %w", err)
	}
	if found != "" {
		return found, nil
	}

	createReq := &paddle.CreateCustomerRequest{
		Email:      req.Email,
		CustomData: paddle.CustomData{MetadataUserID: req.UserID},
	}
	if req.Name != "" {
		createReq.Name = paddle.PtrTo(req.Name)
	}

	c, err := p.client.CustomersClient.CreateCustomer(ctx, createReq)
	if err != nil {
		return "", fmt.Errorf("paddle: create customer: %w", err)
	}
	return c.ID, nil
}

// CreateCheckoutSession creates a transaction whose checkout URL is returned to the user.
func (p *PaddleProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.ProcessorPlanID == "" {
		return nil, errors.New("paddle: price ID is required")
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.ProcessorPlanID,
		Quantity: 1,
	})

	customData := paddle.CustomData{}
	for k, v := range req.Metadata() {
		customData[k] = v
	}

	txReq := &paddle.CreateTransactionRequest{
		Items:      []paddle.CreateTransactionItems{*item},
		CustomData: customData,
	}
	if req.CustomerID != "" {
		txReq.CustomerID = paddle.PtrTo(req.CustomerID)
	}
	if p.config.CheckoutURL != "" {
		txReq.Checkout = &paddle.TransactionCheckout{URL: paddle.PtrTo(p.config.CheckoutURL)}
	}

	tx, err := p.client.TransactionsClient.CreateTransaction(ctx, txReq)
	if err != nil {
		return nil, fmt.Errorf("paddle: create transaction: %w", err)
	}
	if tx.Checkout == nil || tx.Checkout.URL == nil || *tx.Checkout.URL == "" {
		return nil, ErrNoCheckoutURL
	}

	return &CheckoutSession{SessionID: tx.ID, SessionURL: *tx.Checkout.URL}, nil
}

// CustomerPortalURL returns the overview page of Paddle's customer portal.
// Paddle does not support a return URL, so returnURL is unused.
func (p *PaddleProvider) CustomerPortalURL(ctx context.Context, customerID, _ string) (string, error) {
	if customerID == "" {
		return "", ErrNoProcessorCustomer
	}

	sess, err := p.client.CustomerPortalSessionsClient.CreateCustomerPortalSession(ctx, &paddle.CreateCustomerPortalSessionRequest{
		CustomerID: customerID,
	})
	if err != nil {
		return "", fmt.Errorf("paddle: create portal session: %w", err)
	}
	if sess.URLs.General.Overview == "" {
		return "", ErrNoPortalURL
	}
	return sess.URLs.General.Overview, nil
}

// ParseEvent verifies the Paddle-Signature header and normalizes the event.
func (p *PaddleProvider) ParseEvent(ctx context.Context, payload []byte, signature string) (*Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request for verification: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}
	if !valid {
		return nil, ErrInvalidSignature
	}

	return decodePaddleEvent(payload)
}

type paddleNotification struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

type paddleItem struct {
	PriceID string `json:"price_id"`
	Price   *struct {
		ID string `json:"id"`
	} `json:"price"`
}

type paddleTransaction struct {
	ID           string         `json:"id"`
	Status       string         `json:"status"`
	CustomerID   string         `json:"customer_id"`
	CurrencyCode string         `json:"currency_code"`
	CustomData   map[string]any `json:"custom_data"`
	Items        []paddleItem   `json:"items"`
	Details      *struct {
		Totals struct {
			GrandTotal string `json:"grand_total"`
		} `json:"totals"`
	} `json:"details"`
}

type paddleSubscription struct {
	ID              string         `json:"id"`
	Status          string         `json:"status"`
	CustomerID      string         `json:"customer_id"`
	CustomData      map[string]any `json:"custom_data"`
	Items           []paddleItem   `json:"items"`
	ScheduledChange *struct {
		Action string `json:"action"`
	} `json:"scheduled_change"`
}

// decodePaddleEvent maps a verified Paddle notification onto Event.
func decodePaddleEvent(payload []byte) (*Event, error) {
	var n paddleNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, errors.Join(ErrInvalidPayload, err)
	}

	out := &Event{
		ID:            n.EventID,
		Type:          EventIgnored,
		ProviderEvent: n.EventType,
		PaymentMethod: PaymentMethodPaddle,
		OccurredAt:    n.OccurredAt,
	}

	switch {
	case strings.HasPrefix(n.EventType, "transaction."):
		var tx paddleTransaction
		if err := json.Unmarshal(n.Data, &tx); err != nil {
			return nil, errors.Join(ErrInvalidPayload, err)
		}
		out.TransactionID = tx.ID
		out.CustomerID = tx.CustomerID
		out.Currency = strings.ToLower(tx.CurrencyCode)
		out.UserID = customString(tx.CustomData, MetadataUserID)
		out.PlanID = customString(tx.CustomData, MetadataPlanID)
		out.ProcessorPlanID = firstPriceID(tx.Items)
		if tx.Details != nil && tx.Details.Totals.GrandTotal != "" {
			amount, err := strconv.ParseInt(tx.Details.Totals.GrandTotal, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: grand total %q", ErrInvalidPayload, tx.Details.Totals.GrandTotal)
			}
			out.Amount = amount
		}

		switch n.EventType {
		case "transaction.completed":
			out.Type = EventCheckoutCompleted
		case "transaction.paid":
			out.Type = EventCheckoutPending
		case "transaction.payment_failed":
			// The transaction stays open and the customer can retry it.
			out.Type = EventPaymentRetrying
		case "transaction.canceled":
			out.Type = EventPaymentFailed
		}

	case strings.HasPrefix(n.EventType, "subscription."):
		var sub paddleSubscription
		if err := json.Unmarshal(n.Data, &sub); err != nil {
			return nil, errors.Join(ErrInvalidPayload, err)
		}
		out.CustomerID = sub.CustomerID
		out.UserID = customString(sub.CustomData, MetadataUserID)
		out.PlanID = customString(sub.CustomData, MetadataPlanID)
		out.ProcessorPlanID = firstPriceID(sub.Items)
		out.SubscriptionStatus = paddleSubscriptionStatus(&sub)

		switch n.EventType {
		case "subscription.activated", "subscription.updated", "subscription.past_due", "subscription.resumed":
			out.Type = EventSubscriptionUpdated
			if out.SubscriptionStatus == SubscriptionDeleted {
				out.Type = EventSubscriptionDeleted
			}
		case "subscription.canceled":
			out.Type = EventSubscriptionDeleted
		}
	}

	return out, nil
}

func paddleSubscriptionStatus(sub *paddleSubscription) SubscriptionStatus {
	switch strings.ToLower(sub.Status) {
	case "active", "trialing":
		if sub.ScheduledChange != nil && sub.ScheduledChange.Action == "cancel" {
			return SubscriptionCancelAtPeriodEnd
		}
		return SubscriptionActive
	case "past_due":
		return SubscriptionPastDue
	case "canceled", "cancelled":
		return SubscriptionDeleted
	}
	return SubscriptionNone
}

func customString(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func firstPriceID(items []paddleItem) string {
	if len(items) == 0 {
		return ""
	}
	if items[0].PriceID != "" {
		return items[0].PriceID
	}
	if items[0].Price != nil {
		return items[0].Price.ID
	}
	return ""
}
