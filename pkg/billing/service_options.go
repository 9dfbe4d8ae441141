package billing

import (
	"context"
	"log/slog"
	"time"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// Limiter caps how often a key may perform an action.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Notifier is told about purchases after they are committed.
type Notifier interface {
	PaymentCompleted(ctx context.Context, receipt Receipt) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, receipt Receipt) error

func (f NotifierFunc) PaymentCompleted(ctx context.Context, receipt Receipt) error {
	return f(ctx, receipt)
}

// WithLogger sets the service logger. Nil is ignored.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCheckoutURLs sets where the processor redirects after checkout.
func WithCheckoutURLs(successURL, cancelURL string) ServiceOption {
	return func(s *Service) {
		s.successURL = successURL
		s.cancelURL = cancelURL
	}
}

// WithPortalReturnURL sets where the customer portal sends users back to.
func WithPortalReturnURL(url string) ServiceOption {
	return func(s *Service) {
		s.portalReturnURL = url
	}
}

// WithCheckoutLimiter caps checkout session creation per user.
func WithCheckoutLimiter(l Limiter) ServiceOption {
	return func(s *Service) {
		s.limiter = l
	}
}

// WithNotifier registers a receiver for completed purchases.
// Notification failures are logged and never undo reconciliation.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
