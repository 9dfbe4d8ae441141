package account

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/scrapekit/pkg/billing"
	"github.com/dmitrymomot/scrapekit/pkg/pg"
)

var paymentColumns = []string{
	"id",
	"user_id",
	"amount",
	"currency",
	"credits",
	"payment_method",
	"transaction_id",
	"status",
	"created_at",
	"completed_at",
}

// upsertPaymentSuffix moves a pending record forward and leaves terminal ones alone.
// No returned row means the stored record was not touched.
const upsertPaymentSuffix = `ON CONFLICT (transaction_id) DO UPDATE SET
	status = EXCLUDED.status,
	completed_at = EXCLUDED.completed_at,
	amount = CASE WHEN EXCLUDED.amount <> 0 THEN EXCLUDED.amount ELSE payment_records.amount END,
	currency = CASE WHEN EXCLUDED.amount <> 0 THEN EXCLUDED.currency ELSE payment_records.currency END
WHERE payment_records.status = 'pending' AND EXCLUDED.status IN ('completed', 'failed')
RETURNING id`

func scanPaymentRecord(row pgx.Row) (billing.PaymentRecord, error) {
	var (
		rec    billing.PaymentRecord
		method string
		status string
	)
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Amount,
		&rec.Currency,
		&rec.Credits,
		&method,
		&rec.TransactionID,
		&status,
		&rec.CreatedAt,
		&rec.CompletedAt,
	)
	rec.PaymentMethod = billing.PaymentMethod(method)
	rec.Status = billing.PaymentStatus(status)
	return rec, err
}

// txStore runs billing writes inside one pgx transaction.
type txStore struct {
	q Querier
}

func (t *txStore) UpsertPaymentRecord(ctx context.Context, rec billing.PaymentRecord) (bool, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query, args, err := psql.Insert("payment_records").
		Columns(paymentColumns...).
		Values(
			rec.ID,
			rec.UserID,
			rec.Amount,
			rec.Currency,
			rec.Credits,
			string(rec.PaymentMethod),
			rec.TransactionID,
			string(rec.Status),
			rec.CreatedAt,
			rec.CompletedAt,
		).
		Suffix(upsertPaymentSuffix).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build upsert payment record: %w", err)
	}

	var id uuid.UUID
	if err := t.q.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		switch {
		case pg.IsNotFoundError(err):
			return false, nil
		case pg.IsForeignKeyViolationError(err):
			return false, billing.ErrUserNotFound
		}
		return false, fmt.Errorf("upsert payment record: %w", err)
	}
	return true, nil
}

func (t *txStore) IncrementCredits(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	query, args, err := psql.Update("users").
		Set("credits", squirrel.Expr("credits + ?", amount)).
		Where(squirrel.Eq{"id": userID}).
		Suffix("RETURNING credits").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build increment credits: %w", err)
	}

	var balance int64
	if err := t.q.QueryRow(ctx, query, args...).Scan(&balance); err != nil {
		if pg.IsNotFoundError(err) {
			return 0, billing.ErrUserNotFound
		}
		return 0, fmt.Errorf("increment credits: %w", err)
	}
	return balance, nil
}

func (t *txStore) AddTotalSpent(ctx context.Context, userID uuid.UUID, amount int64) error {
	return t.update(ctx, "add total spent", psql.Update("users").
		Set("total_spent", squirrel.Expr("total_spent + ?", amount)).
		Where(squirrel.Eq{"id": userID}))
}

func (t *txStore) SetSubscriptionFields(ctx context.Context, userID uuid.UUID, upd billing.SubscriptionUpdate) error {
	b := psql.Update("users").
		Set("subscription_status", string(upd.Status)).
		Where(squirrel.Eq{"id": userID})
	switch {
	case upd.ClearPlan:
		b = b.Set("subscription_plan", nil)
	case upd.Plan != nil:
		b = b.Set("subscription_plan", upd.Plan.String())
	}
	if upd.DatePaid != nil {
		b = b.Set("date_paid", *upd.DatePaid)
	}
	return t.update(ctx, "set subscription fields", b)
}

func (t *txStore) LinkProcessorCustomer(ctx context.Context, userID uuid.UUID, processorUserID string) error {
	query, args, err := psql.Update("users").
		Set("payment_processor_user_id", processorUserID).
		Where(squirrel.Eq{"id": userID}).
		Where("payment_processor_user_id IS NULL").
		Where("NOT EXISTS (SELECT 1 FROM users o WHERE o.payment_processor_user_id = ?)", processorUserID).
		ToSql()
	if err != nil {
		return fmt.Errorf("build link processor customer: %w", err)
	}
	// Zero rows is fine here: the user already has a customer ID or another user owns this one.
	if _, err := t.q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("link processor customer: %w", err)
	}
	return nil
}

func (t *txStore) update(ctx context.Context, op string, b squirrel.UpdateBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build %s: %w", op, err)
	}
	tag, err := t.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return billing.ErrUserNotFound
	}
	return nil
}
