package account_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/scrapekit/pkg/billing"
	"github.com/dmitrymomot/scrapekit/svc/account"
)

var (
	createdAt  = time.Date(2026, time.February, 1, 8, 0, 0, 0, time.UTC)
	userCols   = []string{"id", "email", "username", "credits", "total_spent", "subscription_status", "subscription_plan", "payment_processor_user_id", "date_paid", "created_at"}
	paymentCol = []string{"id", "user_id", "amount", "currency", "credits", "payment_method", "transaction_id", "status", "created_at", "completed_at"}
)

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *account.Store) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, account.NewStore(mock)
}

func q(sql string) string { return regexp.QuoteMeta(sql) }

func TestNewStorePanicsWithoutDB(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { account.NewStore(nil) })
}

func TestGetUser(t *testing.T) {
	t.Parallel()
	mock, store := newMock(t)
	id := uuid.New()
	plan := "credits20000"
	processorID := "cus_abc"
	paid := createdAt.Add(time.Hour)

	mock.ExpectQuery(q("SELECT id, email, username, credits, total_spent, subscription_status, subscription_plan, payment_processor_user_id, date_paid, created_at FROM users WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(
			id, "ann@example.com", "ann", int64(10), int64(6900), "active", &plan, &processorID, &paid, createdAt,
		))

	u, err := store.GetUser(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, int64(10), u.Credits)
	assert.Equal(t, billing.SubscriptionActive, u.SubscriptionStatus)
	require.NotNil(t, u.SubscriptionPlan)
	assert.Equal(t, billing.PlanCredits20000, *u.SubscriptionPlan)
	assert.Equal(t, "cus_abc", *u.PaymentProcessorUserID)
	assert.Equal(t, paid, *u.DatePaid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserNotFound(t *testing.T) {
	t.Parallel()
	mock, store := newMock(t)

	mock.ExpectQuery(q("FROM users WHERE payment_processor_user_id = $1")).
		WithArgs("cus_missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetUserByProcessorID(context.Background(), "cus_missing")
	assert.ErrorIs(t, err, billing.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserNullableColumns(t *testing.T) {
	t.Parallel()
	mock, store := newMock(t)
	id := uuid.New()

	mock.ExpectQuery(q("FROM users WHERE id = $1")).
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(
			id, "bob@example.com", "", int64(0), int64(0), "", (*string)(nil), (*string)(nil), (*time.Time)(nil), createdAt,
		))

	u, err := store.GetUser(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, billing.SubscriptionNone, u.SubscriptionStatus)
	assert.Nil(t, u.SubscriptionPlan)
	assert.Nil(t, u.PaymentProcessorUserID)
	assert.Nil(t, u.DatePaid)
}

func TestCreateUserDuplicate(t *testing.T) {
	t.Parallel()
	mock, store := newMock(t)

	mock.ExpectExec(q("INSERT INTO users (id,email,username,credits,total_spent,subscription_status,subscription_plan,payment_processor_user_id,date_paid,created_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)")).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := store.CreateUser(context.Background(), billing.User{Email: "ann@example.com"})
	assert.ErrorIs(t, err, account.ErrUserExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPaymentRecords(t *testing.T) {
	t.Parallel()
	mock, store := newMock(t)
	userID := uuid.New()
	completed := createdAt.Add(time.Minute)

	mock.ExpectQuery(q("FROM payment_records WHERE user_id = $1 ORDER BY created_at DESC, transaction_id")).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(paymentCol).
			AddRow(uuid.New(), userID, int64(6900), "cny", int64(10000), "stripe", "cs_2", "completed", createdAt.Add(time.Hour), &completed).
			AddRow(uuid.New(), userID, int64(3900), "cny", int64(5000), "paddle", "txn_1", "pending", createdAt, (*time.Time)(nil)))

	records, err := store.ListPaymentRecords(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "cs_2", records[0].TransactionID)
	assert.Equal(t, billing.PaymentCompleted, records[0].Status)
	assert.Equal(t, billing.PaymentMethodStripe, records[0].PaymentMethod)
	assert.Equal(t, completed, *records[0].CompletedAt)
	assert.Equal(t, billing.PaymentPending, records[1].Status)
	assert.Nil(t, records[1].CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxAppliesPurchase(t *testing.T) {
	t.Parallel()
	mock, store := newMock(t)
	userID := uuid.New()
	now := createdAt

	mock.ExpectBegin()
	mock.ExpectQuery("(?s)"+q("INSERT INTO payment_records")+".*"+q("ON CONFLICT (transaction_id) DO UPDATE")+".*"+q("RETURNING id")).
		WithArgs(pgxmock.AnyArg(), userID, int64(3900), "cny", int64(5000), "stripe", "cs_1", "completed", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectQuery(q("UPDATE users SET credits = credits + $1 WHERE id = $2 RETURNING credits")).
		WithArgs(int64(5000), userID).
		WillReturnRows(pgxmock.NewRows([]string{"credits"}).AddRow(int64(5010)))
	mock.ExpectExec(q("UPDATE users SET total_spent = total_spent + $1 WHERE id = $2")).
		WithArgs(int64(3900), userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(q(linkCustomerSQL)).
		WithArgs("cus_abc", userID, "cus_abc").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectCommit()

	var balance int64
	err := store.InTx(context.Background(), func(ctx context.Context, tx billing.Tx) error {
		applied, err := tx.UpsertPaymentRecord(ctx, billing.PaymentRecord{
			UserID:        userID,
			Amount:        3900,
			Currency:      "cny",
			Credits:       5000,
			PaymentMethod: billing.PaymentMethodStripe,
			TransactionID: "cs_1",
			Status:        billing.PaymentCompleted,
			CompletedAt:   &now,
		})
		require.NoError(t, err)
		require.True(t, applied)

		if balance, err = tx.IncrementCredits(ctx, userID, 5000); err != nil {
			return err
		}
		if err := tx.AddTotalSpent(ctx, userID, 3900); err != nil {
			return err
		}
		return tx.LinkProcessorCustomer(ctx, userID, "cus_abc")
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5010), balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

const linkCustomerSQL = "UPDATE users SET payment_processor_user_id = $1 WHERE id = $2 AND payment_processor_user_id IS NULL " +
	"AND NOT EXISTS (SELECT 1 FROM users o WHERE o.payment_processor_user_id = $3)"

func TestLinkProcessorCustomerOwnedByAnotherUser(t *testing.T) {
	t.Parallel()
	mock, store := newMock(t)
	userID := uuid.New()

	// The guard matches no row, so the unique constraint is never hit and the transaction commits.
	mock.ExpectBegin()
	mock.ExpectExec(q(linkCustomerSQL)).
		WithArgs("cus_taken", userID, "cus_taken").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectCommit()

	err := store.InTx(context.Background(), func(ctx context.Context, tx billing.Tx) error {
		return tx.LinkProcessorCustomer(ctx, userID, "cus_taken")
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxDuplicateRollsBack(t *testing.T) {
	t.Parallel()
	mock, store := newMock(t)
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(q("INSERT INTO payment_records")).WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(ctx context.Context, tx billing.Tx) error {
		applied, err := tx.UpsertPaymentRecord(ctx, billing.PaymentRecord{UserID: userID, TransactionID: "cs_1", Status: billing.PaymentCompleted})
		require.NoError(t, err)
		assert.False(t, applied)
		return billing.ErrDuplicateEvent
	})
	assert.ErrorIs(t, err, billing.ErrDuplicateEvent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing user on insert", func(t *testing.T) {
		mock, store := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q("INSERT INTO payment_records")).WillReturnError(&pgconn.PgError{Code: "23503"})
		mock.ExpectRollback()

		err := store.InTx(context.Background(), func(ctx context.Context, tx billing.Tx) error {
			_, err := tx.UpsertPaymentRecord(ctx, billing.PaymentRecord{UserID: uuid.New(), TransactionID: "cs_1"})
			return err
		})
		assert.ErrorIs(t, err, billing.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing user on update", func(t *testing.T) {
		mock, store := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(q("UPDATE users SET total_spent")).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(q("UPDATE users SET credits")).WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		err := store.InTx(context.Background(), func(ctx context.Context, tx billing.Tx) error {
			err := tx.AddTotalSpent(ctx, uuid.New(), 100)
			assert.ErrorIs(t, err, billing.ErrUserNotFound)
			_, err = tx.IncrementCredits(ctx, uuid.New(), 100)
			return err
		})
		assert.ErrorIs(t, err, billing.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin fails", func(t *testing.T) {
		mock, store := newMock(t)
		boom := errors.New("connection reset")
		mock.ExpectBegin().WillReturnError(boom)

		called := false
		err := store.InTx(context.Background(), func(context.Context, billing.Tx) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, boom)
		assert.False(t, called)
	})

	t.Run("commit fails", func(t *testing.T) {
		mock, store := newMock(t)
		boom := errors.New("commit failed")
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(boom)

		err := store.InTx(context.Background(), func(context.Context, billing.Tx) error { return nil })
		assert.ErrorIs(t, err, boom)
	})
}

func TestSetSubscriptionFields(t *testing.T) {
	t.Parallel()
	userID := uuid.New()
	plan := billing.PlanCredits20000
	paid := createdAt

	tests := []struct {
		name string
		upd  billing.SubscriptionUpdate
		sql  string
	}{
		{
			name: "status only",
			upd:  billing.SubscriptionUpdate{Status: billing.SubscriptionPastDue},
			sql:  "UPDATE users SET subscription_status = $1 WHERE id = $2",
		},
		{
			name: "activate with plan and payment date",
			upd:  billing.SubscriptionUpdate{Status: billing.SubscriptionActive, Plan: &plan, DatePaid: &paid},
			sql:  "UPDATE users SET subscription_status = $1, subscription_plan = $2, date_paid = $3 WHERE id = $4",
		},
		{
			name: "clear plan",
			upd:  billing.SubscriptionUpdate{Status: billing.SubscriptionDeleted, ClearPlan: true},
			sql:  "UPDATE users SET subscription_status = $1, subscription_plan = $2 WHERE id = $3",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, store := newMock(t)
			mock.ExpectBegin()
			mock.ExpectExec("^" + q(tt.sql) + "$").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			mock.ExpectCommit()

			err := store.InTx(context.Background(), func(ctx context.Context, tx billing.Tx) error {
				return tx.SetSubscriptionFields(ctx, userID, tt.upd)
			})
			require.NoError(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
