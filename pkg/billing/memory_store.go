package billing

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for tests and local development.
// Transactions are serialized and applied to a staged copy that is swapped in on success.
type MemoryStore struct {
	mu      sync.Mutex
	users   map[uuid.UUID]User
	records map[string]PaymentRecord // keyed by transaction ID
}

// NewMemoryStore returns a store seeded with copies of the given users.
func NewMemoryStore(users ...User) *MemoryStore {
	s := &MemoryStore{
		users:   make(map[uuid.UUID]User, len(users)),
		records: make(map[string]PaymentRecord),
	}
	for _, u := range users {
		s.users[u.ID] = cloneUser(u)
	}
	return s
}

// PutUser inserts or replaces a user.
func (s *MemoryStore) PutUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = cloneUser(u)
}

// GetUser implements Store.
func (s *MemoryStore) GetUser(_ context.Context, id uuid.UUID) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	c := cloneUser(u)
	return &c, nil
}

// GetUserByProcessorID implements Store.
func (s *MemoryStore) GetUserByProcessorID(_ context.Context, processorUserID string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.PaymentProcessorUserID != nil && *u.PaymentProcessorUserID == processorUserID {
			c := cloneUser(u)
			return &c, nil
		}
	}
	return nil, ErrUserNotFound
}

// ListPaymentRecords implements Store. Newest records come first.
func (s *MemoryStore) ListPaymentRecords(_ context.Context, userID uuid.UUID) ([]PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []PaymentRecord
	for _, r := range s.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b PaymentRecord) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.TransactionID, b.TransactionID))
	})
	return out, nil
}

// InTx implements Store.
func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{
		users:   make(map[uuid.UUID]User, len(s.users)),
		records: maps.Clone(s.records),
	}
	for id, u := range s.users {
		tx.users[id] = cloneUser(u)
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.users = tx.users
	s.records = tx.records
	return nil
}

type memoryTx struct {
	users   map[uuid.UUID]User
	records map[string]PaymentRecord
}

func (tx *memoryTx) UpsertPaymentRecord(_ context.Context, rec PaymentRecord) (bool, error) {
	if _, ok := tx.users[rec.UserID]; !ok {
		return false, ErrUserNotFound
	}

	existing, ok := tx.records[rec.TransactionID]
	if !ok {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now().UTC()
		}
		tx.records[rec.TransactionID] = rec
		return true, nil
	}

	if !CanTransition(existing.Status, rec.Status) {
		return false, nil
	}
	existing.Status = rec.Status
	existing.CompletedAt = rec.CompletedAt
	if rec.Amount != 0 {
		existing.Amount = rec.Amount
		existing.Currency = rec.Currency
	}
	tx.records[rec.TransactionID] = existing
	return true, nil
}

func (tx *memoryTx) IncrementCredits(_ context.Context, userID uuid.UUID, amount int64) (int64, error) {
	u, ok := tx.users[userID]
	if !ok {
		return 0, ErrUserNotFound
	}
	u.Credits += amount
	tx.users[userID] = u
	return u.Credits, nil
}

func (tx *memoryTx) AddTotalSpent(_ context.Context, userID uuid.UUID, amount int64) error {
	u, ok := tx.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.TotalSpent += amount
	tx.users[userID] = u
	return nil
}

func (tx *memoryTx) SetSubscriptionFields(_ context.Context, userID uuid.UUID, upd SubscriptionUpdate) error {
	u, ok := tx.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.SubscriptionStatus = upd.Status
	switch {
	case upd.ClearPlan:
		u.SubscriptionPlan = nil
	case upd.Plan != nil:
		p := *upd.Plan
		u.SubscriptionPlan = &p
	}
	if upd.DatePaid != nil {
		t := *upd.DatePaid
		u.DatePaid = &t
	}
	tx.users[userID] = u
	return nil
}

func (tx *memoryTx) LinkProcessorCustomer(_ context.Context, userID uuid.UUID, processorUserID string) error {
	u, ok := tx.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	if u.PaymentProcessorUserID != nil {
		return nil
	}
	for _, other := range tx.users {
		if other.PaymentProcessorUserID != nil && *other.PaymentProcessorUserID == processorUserID {
			return nil
		}
	}
	id := processorUserID
	u.PaymentProcessorUserID = &id
	tx.users[userID] = u
	return nil
}

func cloneUser(u User) User {
	if u.SubscriptionPlan != nil {
		p := *u.SubscriptionPlan
		u.SubscriptionPlan = &p
	}
	if u.PaymentProcessorUserID != nil {
		id := *u.PaymentProcessorUserID
		u.PaymentProcessorUserID = &id
	}
	if u.DatePaid != nil {
		t := *u.DatePaid
		u.DatePaid = &t
	}
	return u
}
