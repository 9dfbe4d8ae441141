package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/scrapekit/pkg/billing"
	"github.com/dmitrymomot/scrapekit/pkg/pg"
)

// Querier is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is a Querier that can open transactions.
type DB interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var userColumns = []string{
	"id",
	"email",
	"username",
	"credits",
	"total_spent",
	"subscription_status",
	"subscription_plan",
	"payment_processor_user_id",
	"date_paid",
	"created_at",
}

// Store is the Postgres account store. It serves billing and API key persistence.
type Store struct {
	db DB
}

// NewStore creates a Store. Panics on a nil db.
func NewStore(db DB) *Store {
	if db == nil {
		panic("account: db is required")
	}
	return &Store{db: db}
}

// GetUser implements billing.Store.
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*billing.User, error) {
	return getUser(ctx, s.db, squirrel.Eq{"id": id})
}

// GetUserByProcessorID implements billing.Store.
func (s *Store) GetUserByProcessorID(ctx context.Context, processorUserID string) (*billing.User, error) {
	return getUser(ctx, s.db, squirrel.Eq{"payment_processor_user_id": processorUserID})
}

func getUser(ctx context.Context, q Querier, where squirrel.Sqlizer) (*billing.User, error) {
	query, args, err := psql.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user query: %w", err)
	}

	u, err := scanUser(q.QueryRow(ctx, query, args...))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, billing.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*billing.User, error) {
	var (
		u           billing.User
		status      string
		plan        *string
		processorID *string
		datePaid    *time.Time
	)
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.Credits,
		&u.TotalSpent,
		&status,
		&plan,
		&processorID,
		&datePaid,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}

	u.SubscriptionStatus = billing.SubscriptionStatus(status)
	if plan != nil {
		id := billing.PlanID(*plan)
		u.SubscriptionPlan = &id
	}
	u.PaymentProcessorUserID = processorID
	u.DatePaid = datePaid
	return &u, nil
}

// CreateUser inserts a user row. Used by the seeder and by account provisioning.
func (s *Store) CreateUser(ctx context.Context, u billing.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	var plan *string
	if u.SubscriptionPlan != nil {
		p := u.SubscriptionPlan.String()
		plan = &p
	}

	query, args, err := psql.Insert("users").
		Columns(userColumns...).
		Values(
			u.ID,
			u.Email,
			u.Username,
			u.Credits,
			u.TotalSpent,
			string(u.SubscriptionStatus),
			plan,
			u.PaymentProcessorUserID,
			u.DatePaid,
			u.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user: %w", err)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		if pg.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrUserExists, u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// ListPaymentRecords implements billing.Store. Newest records come first.
func (s *Store) ListPaymentRecords(ctx context.Context, userID uuid.UUID) ([]billing.PaymentRecord, error) {
	query, args, err := psql.Select(paymentColumns...).
		From("payment_records").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "transaction_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build payment records query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payment records: %w", err)
	}
	defer rows.Close()

	var out []billing.PaymentRecord
	for rows.Next() {
		rec, err := scanPaymentRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list payment records: %w", err)
	}
	return out, nil
}

// InTx implements billing.Store.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx billing.Tx) error) error {
	return s.withTx(ctx, func(q Querier) error {
		return fn(ctx, &txStore{q: q})
	})
}

func (s *Store) withTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
