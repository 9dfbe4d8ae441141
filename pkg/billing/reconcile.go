package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrymomot/scrapekit/pkg/logger"
)

// HandleWebhook verifies and applies a processor notification.
// A nil error means the event may be acknowledged: it was applied, was a duplicate,
// or is not something the service acts on. ErrInvalidSignature and ErrInvalidPayload
// are permanent rejections; any other error must withhold the acknowledgment.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := s.provider.ParseEvent(ctx, payload, signature)
	if err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			s.log.WarnContext(ctx, "rejected webhook with invalid signature", logger.Error(err))
		} else {
			s.log.WarnContext(ctx, "rejected malformed webhook", logger.Error(err))
		}
		return nil, err
	}

	attrs := []any{
		logger.EventID(event.ID),
		logger.EventType(event.ProviderEvent),
		logger.TransactionID(event.TransactionID),
	}

	outcome, err := s.reconcile(ctx, event)
	if err != nil {
		s.log.ErrorContext(ctx, "webhook reconciliation failed", append(attrs, logger.Error(err))...)
		return nil, err
	}

	s.log.InfoContext(ctx, "webhook processed", append(attrs, logger.Outcome(string(outcome)))...)

	return &WebhookResult{EventID: event.ID, Type: event.Type, Outcome: outcome}, nil
}

func (s *Service) reconcile(ctx context.Context, e *Event) (Outcome, error) {
	switch e.Type {
	case EventCheckoutCompleted, EventInvoicePaid:
		return s.applyPayment(ctx, e)
	case EventCheckoutPending, EventPaymentRetrying:
		return s.recordPayment(ctx, e, PaymentPending)
	case EventPaymentFailed:
		return s.recordPayment(ctx, e, PaymentFailed)
	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		return s.applySubscriptionChange(ctx, e)
	default:
		s.log.InfoContext(ctx, "ignoring unhandled webhook event",
			logger.EventID(e.ID), logger.EventType(e.ProviderEvent))
		return OutcomeIgnored, nil
	}
}

// applyPayment completes the transaction and applies the plan effect in one unit.
func (s *Service) applyPayment(ctx context.Context, e *Event) (Outcome, error) {
	plan, ok := s.resolvePlan(e)
	if !ok {
		s.log.WarnContext(ctx, "webhook references a plan outside the catalog",
			logger.EventID(e.ID), logger.PlanID(e.PlanID), logger.ProcessorPlanID(e.ProcessorPlanID))
		return OutcomeIgnored, nil
	}
	if e.TransactionID == "" {
		return "", fmt.Errorf("%w: %s event %s has no transaction ID", ErrInvalidPayload, e.ProviderEvent, e.ID)
	}

	user, err := s.resolveUser(ctx, e)
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	var balance int64

	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		applied, err := tx.UpsertPaymentRecord(ctx, PaymentRecord{
			ID:            uuid.New(),
			UserID:        user.ID,
			Amount:        e.Amount,
			Currency:      e.Currency,
			Credits:       plan.Credits(),
			PaymentMethod: e.PaymentMethod,
			TransactionID: e.TransactionID,
			Status:        PaymentCompleted,
			CreatedAt:     now,
			CompletedAt:   &now,
		})
		if err != nil {
			return err
		}
		if !applied {
			return ErrDuplicateEvent
		}

		if e.CustomerID != "" {
			if err := tx.LinkProcessorCustomer(ctx, user.ID, e.CustomerID); err != nil {
				return err
			}
		}

		switch plan.Effect.Kind {
		case EffectCredits:
			balance, err = tx.IncrementCredits(ctx, user.ID, plan.Effect.Amount)
			if err != nil {
				return err
			}
		case EffectSubscription:
			if err := tx.SetSubscriptionFields(ctx, user.ID, SubscriptionUpdate{
				Status:   SubscriptionActive,
				Plan:     &plan.ID,
				DatePaid: &now,
			}); err != nil {
				return err
			}
		}

		if e.Amount > 0 {
			return tx.AddTotalSpent(ctx, user.ID, e.Amount)
		}
		return nil
	})
	if errors.Is(err, ErrDuplicateEvent) {
		s.log.InfoContext(ctx, "duplicate payment event acknowledged",
			logger.EventID(e.ID), logger.TransactionID(e.TransactionID))
		return OutcomeDuplicate, nil
	}
	if err != nil {
		return "", storeError(err)
	}

	if plan.Effect.IsCredits() {
		s.notify(ctx, Receipt{
			UserID:        user.ID,
			Email:         user.Email,
			Username:      user.Username,
			PlanID:        plan.ID,
			PlanName:      plan.Name,
			Credits:       plan.Effect.Amount,
			Balance:       balance,
			Amount:        e.Amount,
			Currency:      e.Currency,
			TransactionID: e.TransactionID,
			PaidAt:        now,
		})
	}

	return OutcomeApplied, nil
}

// recordPayment tracks a non-completing transaction state. No effect is applied.
func (s *Service) recordPayment(ctx context.Context, e *Event, status PaymentStatus) (Outcome, error) {
	if e.TransactionID == "" {
		return "", fmt.Errorf("%w: %s event %s has no transaction ID", ErrInvalidPayload, e.ProviderEvent, e.ID)
	}

	user, err := s.resolveUser(ctx, e)
	if err != nil {
		return "", err
	}

	var credits int64
	if plan, ok := s.resolvePlan(e); ok {
		credits = plan.Credits()
	}

	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		applied, err := tx.UpsertPaymentRecord(ctx, PaymentRecord{
			ID:            uuid.New(),
			UserID:        user.ID,
			Amount:        e.Amount,
			Currency:      e.Currency,
			Credits:       credits,
			PaymentMethod: e.PaymentMethod,
			TransactionID: e.TransactionID,
			Status:        status,
			CreatedAt:     s.now().UTC(),
		})
		if err != nil {
			return err
		}
		if !applied {
			return ErrDuplicateEvent
		}
		if e.CustomerID != "" {
			return tx.LinkProcessorCustomer(ctx, user.ID, e.CustomerID)
		}
		return nil
	})
	if errors.Is(err, ErrDuplicateEvent) {
		return OutcomeDuplicate, nil
	}
	if err != nil {
		return "", storeError(err)
	}
	return OutcomeApplied, nil
}

// applySubscriptionChange writes subscription status changes. They carry no
// transaction and are idempotent, so redelivery rewrites the same values.
func (s *Service) applySubscriptionChange(ctx context.Context, e *Event) (Outcome, error) {
	user, err := s.resolveUser(ctx, e)
	if err != nil {
		return "", err
	}

	upd := SubscriptionUpdate{Status: e.SubscriptionStatus}
	if e.Type == EventSubscriptionDeleted {
		upd = SubscriptionUpdate{Status: SubscriptionDeleted, ClearPlan: true}
	} else {
		switch e.SubscriptionStatus {
		case SubscriptionActive, SubscriptionPastDue, SubscriptionCancelAtPeriodEnd:
		default:
			s.log.InfoContext(ctx, "ignoring subscription status without account effect",
				logger.EventID(e.ID), logger.UserID(user.ID))
			return OutcomeIgnored, nil
		}
		// Only a new payment revives a deleted subscription.
		if user.SubscriptionStatus == SubscriptionDeleted {
			s.log.InfoContext(ctx, "ignoring update for deleted subscription",
				logger.EventID(e.ID), logger.UserID(user.ID))
			return OutcomeIgnored, nil
		}
		if plan, ok := s.resolvePlan(e); ok && plan.Effect.IsSubscription() {
			upd.Plan = &plan.ID
		}
		// A subscription returning to active was collected now.
		if upd.Status == SubscriptionActive && user.SubscriptionStatus != SubscriptionActive {
			now := s.now().UTC()
			upd.DatePaid = &now
		}
	}

	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if e.CustomerID != "" {
			if err := tx.LinkProcessorCustomer(ctx, user.ID, e.CustomerID); err != nil {
				return err
			}
		}
		return tx.SetSubscriptionFields(ctx, user.ID, upd)
	})
	if err != nil {
		return "", storeError(err)
	}
	return OutcomeApplied, nil
}

// resolveUser prefers the user ID from checkout metadata and falls back to the processor customer.
func (s *Service) resolveUser(ctx context.Context, e *Event) (*User, error) {
	if id, err := uuid.Parse(e.UserID); err == nil {
		user, err := s.store.GetUser(ctx, id)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, ErrUserNotFound) {
			return nil, storeError(err)
		}
	}

	if e.CustomerID != "" {
		user, err := s.store.GetUserByProcessorID(ctx, e.CustomerID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, ErrUserNotFound) {
			return nil, storeError(err)
		}
	}

	return nil, fmt.Errorf("%w: event %s", ErrUserNotFound, e.ID)
}

func (s *Service) resolvePlan(e *Event) (Plan, bool) {
	if e.PlanID != "" {
		if p, err := s.catalog.LookupString(e.PlanID); err == nil {
			return p, true
		}
	}
	if e.ProcessorPlanID != "" {
		if p, err := s.catalog.ByProcessorPlanID(e.ProcessorPlanID); err == nil {
			return p, true
		}
	}
	return Plan{}, false
}

func (s *Service) notify(ctx context.Context, r Receipt) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PaymentCompleted(ctx, r); err != nil {
		s.log.WarnContext(ctx, "payment notification failed",
			logger.UserID(r.UserID), logger.TransactionID(r.TransactionID), logger.Error(err))
	}
}
