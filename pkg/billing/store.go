package billing

import (
	"context"

	"github.com/google/uuid"
)

// Store is the account store consumed by billing.
// GetUser and GetUserByProcessorID return ErrUserNotFound when there is no match.
type Store interface {
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByProcessorID(ctx context.Context, processorUserID string) (*User, error)
	ListPaymentRecords(ctx context.Context, userID uuid.UUID) ([]PaymentRecord, error)

	// InTx runs fn in a single all-or-nothing unit. Any error from fn rolls it back.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of writes reconciliation performs atomically.
type Tx interface {
	// UpsertPaymentRecord inserts rec, or moves an existing record for the same
	// transaction ID to rec.Status when CanTransition allows it.
	// It reports false when the stored record was left untouched.
	UpsertPaymentRecord(ctx context.Context, rec PaymentRecord) (bool, error)

	// IncrementCredits adds amount without reading the balance first and returns the new balance.
	IncrementCredits(ctx context.Context, userID uuid.UUID, amount int64) (int64, error)

	AddTotalSpent(ctx context.Context, userID uuid.UUID, amount int64) error
	SetSubscriptionFields(ctx context.Context, userID uuid.UUID, upd SubscriptionUpdate) error

	// LinkProcessorCustomer stores the processor customer ID if the user has none yet.
	LinkProcessorCustomer(ctx context.Context, userID uuid.UUID, processorUserID string) error
}
