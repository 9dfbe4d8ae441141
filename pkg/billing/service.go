package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/scrapekit/pkg/logger"
)

// Service runs checkout requests and webhook reconciliation for one processor.
type Service struct {
	catalog  *Catalog
	provider Provider
	store    Store
	limiter  Limiter
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time

	successURL      string
	cancelURL       string
	portalReturnURL string
}

// NewService creates a Service with the given dependencies.
// Panics if a required dependency is nil so misconfiguration surfaces at startup.
func NewService(catalog *Catalog, provider Provider, store Store, opts ...ServiceOption) *Service {
	if catalog == nil {
		panic("billing: catalog is required")
	}
	if provider == nil {
		panic("billing: provider is required")
	}
	if store == nil {
		panic("billing: store is required")
	}

	s := &Service{
		catalog:  catalog,
		provider: provider,
		store:    store,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("billing"))

	return s
}

// Catalog returns the plan catalog the service was built with.
func (s *Service) Catalog() *Catalog { return s.catalog }

// CreateCheckoutSession obtains a hosted checkout URL for the user and plan.
// It never mutates local state; account changes wait for the webhook.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID uuid.UUID, planID string) (*CheckoutSession, error) {
	plan, err := s.catalog.LookupString(planID)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, "checkout:"+userID.String())
		switch {
		case err != nil:
			s.log.WarnContext(ctx, "checkout limiter unavailable, allowing request",
				logger.UserID(userID), logger.Error(err))
		case !allowed:
			return nil, ErrTooManyCheckouts
		}
	}

	customerID := ""
	if user.PaymentProcessorUserID != nil {
		customerID = *user.PaymentProcessorUserID
	}
	if customerID == "" {
		customerID, err = s.provider.EnsureCustomer(ctx, CustomerRequest{
			UserID: user.ID.String(),
			Email:  user.Email,
			Name:   user.Username,
		})
		if err != nil {
			s.log.ErrorContext(ctx, "failed to resolve processor customer",
				logger.UserID(userID), logger.Error(err))
			return nil, processorError(err)
		}
	}

	sess, err := s.provider.CreateCheckoutSession(ctx, CheckoutRequest{
		ProcessorPlanID: plan.ProcessorPlanID,
		Mode:            plan.CheckoutMode(),
		CustomerID:      customerID,
		UserID:          user.ID.String(),
		PlanID:          plan.ID,
		SuccessURL:      s.successURL,
		CancelURL:       s.cancelURL,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "failed to create checkout session",
			logger.UserID(userID), logger.PlanID(string(plan.ID)), logger.Error(err))
		return nil, processorError(err)
	}
	if sess == nil || sess.SessionURL == "" {
		return nil, errors.Join(ErrProcessorUnavailable, ErrNoCheckoutURL)
	}

	s.log.InfoContext(ctx, "checkout session created",
		logger.UserID(userID), logger.PlanID(string(plan.ID)), logger.SessionID(sess.SessionID))

	return sess, nil
}

// CustomerPortalURL returns a portal link for users that already have a processor customer.
func (s *Service) CustomerPortalURL(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return "", storeError(err)
	}
	if user.PaymentProcessorUserID == nil || *user.PaymentProcessorUserID == "" {
		return "", ErrNoProcessorCustomer
	}

	url, err := s.provider.CustomerPortalURL(ctx, *user.PaymentProcessorUserID, s.portalReturnURL)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to create customer portal session",
			logger.UserID(userID), logger.Error(err))
		return "", processorError(err)
	}
	if url == "" {
		return "", errors.Join(ErrProcessorUnavailable, ErrNoPortalURL)
	}
	return url, nil
}

// Account returns the billing view of the user.
func (s *Service) Account(ctx context.Context, userID uuid.UUID) (*User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	return user, nil
}

// PaymentHistory lists the user's payment records, newest first.
func (s *Service) PaymentHistory(ctx context.Context, userID uuid.UUID) ([]PaymentRecord, error) {
	records, err := s.store.ListPaymentRecords(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	return records, nil
}

// storeError keeps ErrUserNotFound recognizable and classifies everything else as transient.
func storeError(err error) error {
	if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrPersistenceFailure) {
		return err
	}
	return errors.Join(ErrPersistenceFailure, err)
}

func processorError(err error) error {
	if errors.Is(err, ErrProcessorUnavailable) {
		return err
	}
	return errors.Join(ErrProcessorUnavailable, fmt.Errorf("processor call: %w", err))
}
