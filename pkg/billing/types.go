package billing

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus mirrors the processor subscription lifecycle on the user record.
// The zero value means the user never subscribed.
type SubscriptionStatus string

const (
	SubscriptionNone              SubscriptionStatus = ""
	SubscriptionActive            SubscriptionStatus = "active"
	SubscriptionPastDue           SubscriptionStatus = "past_due"
	SubscriptionCancelAtPeriodEnd SubscriptionStatus = "cancel_at_period_end"
	SubscriptionDeleted           SubscriptionStatus = "deleted"
)

// Valid reports whether s is one of the known statuses.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionNone, SubscriptionActive, SubscriptionPastDue, SubscriptionCancelAtPeriodEnd, SubscriptionDeleted:
		return true
	}
	return false
}

// User is the billing view of an account. The account subsystem owns the row;
// billing only applies deltas to it.
type User struct {
	ID                     uuid.UUID
	Email                  string
	Username               string
	Credits                int64
	TotalSpent             int64
	SubscriptionStatus     SubscriptionStatus
	SubscriptionPlan       *PlanID
	PaymentProcessorUserID *string
	DatePaid               *time.Time
	CreatedAt              time.Time
}

// HasActiveSubscription reports whether the user still has access to a paid subscription.
func (u *User) HasActiveSubscription() bool {
	switch u.SubscriptionStatus {
	case SubscriptionActive, SubscriptionCancelAtPeriodEnd:
		return true
	}
	return false
}

// PaymentMethod names the processor a payment went through.
type PaymentMethod string

const (
	PaymentMethodStripe PaymentMethod = "stripe"
	PaymentMethodPaddle PaymentMethod = "paddle"
)

// PaymentStatus is the per-transaction state.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// paymentTransitions lists allowed moves; a missing source means the record does not exist yet.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	"":             {PaymentPending, PaymentCompleted, PaymentFailed},
	PaymentPending: {PaymentCompleted, PaymentFailed},
}

// CanTransition reports whether a record in state from may move to state to.
// Completed and Failed are terminal.
func CanTransition(from, to PaymentStatus) bool {
	for _, s := range paymentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentCompleted || s == PaymentFailed
}

// PaymentRecord is an append-only ledger entry, unique per processor transaction.
type PaymentRecord struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Amount        int64 // minor currency units
	Currency      string
	Credits       int64
	PaymentMethod PaymentMethod
	TransactionID string
	Status        PaymentStatus
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// SubscriptionUpdate describes the subscription fields to write on a user.
type SubscriptionUpdate struct {
	Status    SubscriptionStatus
	Plan      *PlanID // nil leaves the plan unchanged unless ClearPlan is set
	ClearPlan bool
	DatePaid  *time.Time // nil leaves it unchanged
}

// CheckoutSession is the result of a checkout request.
type CheckoutSession struct {
	SessionID  string
	SessionURL string
}

// Receipt describes a completed purchase for notification purposes.
type Receipt struct {
	UserID        uuid.UUID
	Email         string
	Username      string
	PlanID        PlanID
	PlanName      string
	Credits       int64
	Balance       int64
	Amount        int64
	Currency      string
	TransactionID string
	PaidAt        time.Time
}
