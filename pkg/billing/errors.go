package billing

import "errors"

var (
	ErrInvalidPlanID            = errors.New("invalid plan ID")
	ErrMissingConfiguration     = errors.New("billing configuration is missing")
	ErrInvalidPlanConfiguration = errors.New("invalid plan configuration")

	ErrProcessorUnavailable = errors.New("payment processor unavailable")
	ErrNoCheckoutURL        = errors.New("no checkout URL returned from processor")
	ErrNoPortalURL          = errors.New("no portal URL returned from processor")
	ErrNoProcessorCustomer  = errors.New("user has no payment processor customer")
	ErrTooManyCheckouts     = errors.New("too many checkout attempts")

	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrInvalidPayload   = errors.New("invalid webhook payload")

	// ErrDuplicateEvent marks an already applied transaction. It is an outcome, not a failure.
	ErrDuplicateEvent     = errors.New("duplicate webhook event")
	ErrPersistenceFailure = errors.New("failed to persist billing state")
	ErrUserNotFound       = errors.New("user not found")

	ErrMissingAPIKey        = errors.New("billing provider API key is required")
	ErrMissingWebhookSecret = errors.New("billing provider webhook secret is required")
	ErrInvalidEnvironment   = errors.New("invalid billing provider environment")
)
