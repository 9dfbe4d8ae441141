package billing

import "context"

// Provider is the narrow surface of a payment processor used by the service.
// Implementations use the official SDKs and keep processor quirks internal.
type Provider interface {
	// EnsureCustomer returns the processor customer for the user, creating one if needed.
	EnsureCustomer(ctx context.Context, req CustomerRequest) (string, error)

	// CreateCheckoutSession requests a hosted checkout page.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// CustomerPortalURL returns a short-lived link where the customer manages billing.
	CustomerPortalURL(ctx context.Context, customerID, returnURL string) (string, error)

	// ParseEvent verifies the signature against the raw payload before decoding anything.
	// Returns ErrInvalidSignature or ErrInvalidPayload.
	ParseEvent(ctx context.Context, payload []byte, signature string) (*Event, error)
}

// CheckoutMode selects one-time or recurring checkout.
type CheckoutMode string

const (
	CheckoutModePayment      CheckoutMode = "payment"
	CheckoutModeSubscription CheckoutMode = "subscription"
)

// CustomerRequest identifies the user a processor customer belongs to.
type CustomerRequest struct {
	UserID string
	Email  string
	Name   string
}

// CheckoutRequest contains everything a provider needs to open a hosted checkout.
type CheckoutRequest struct {
	ProcessorPlanID string
	Mode            CheckoutMode
	CustomerID      string
	UserID          string
	PlanID          PlanID
	SuccessURL      string
	CancelURL       string
}

// Metadata returns the key/value pairs every checkout carries back in its webhooks.
func (r CheckoutRequest) Metadata() map[string]string {
	return map[string]string{
		MetadataUserID: r.UserID,
		MetadataPlanID: string(r.PlanID),
	}
}
