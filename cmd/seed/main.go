// Command seed fills a development database with mock users and payment history.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/google/uuid"

	"github.com/dmitrymomot/scrapekit/migrations"
	"github.com/dmitrymomot/scrapekit/pkg/billing"
	"github.com/dmitrymomot/scrapekit/pkg/config"
	"github.com/dmitrymomot/scrapekit/pkg/logger"
	"github.com/dmitrymomot/scrapekit/pkg/pg"
	"github.com/dmitrymomot/scrapekit/svc/account"
)

// seedPlan pairs a credit tier with the price charged for it, in minor units.
type seedPlan struct {
	credits int64
	amount  int64
}

var seedPlans = []seedPlan{
	{credits: 5000, amount: 5000},
	{credits: 10000, amount: 9500},
	{credits: 20000, amount: 18900},
}

func main() {
	users := flag.Int("users", 50, "number of users to create")
	paying := flag.Int("paying", 20, "number of users that get payment records")
	flag.Parse()

	log := logger.New(logger.WithEnvironment("development", "scrapekit-seed"))
	if err := run(context.Background(), log, *users, *paying); err != nil {
		log.Error("seed failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, users, paying int) error {
	var cfg pg.Config
	if err := config.Load(&cfg); err != nil {
		return err
	}

	pool, err := pg.Connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, migrations.FS, cfg, log); err != nil {
		return err
	}

	store := account.NewStore(pool)
	now := time.Now().UTC()

	for i := range users {
		u := mockUser(now)
		if err := store.CreateUser(ctx, u); err != nil {
			return fmt.Errorf("create user %d: %w", i, err)
		}
		if i >= paying {
			continue
		}
		if err := seedPayments(ctx, store, u.ID, 1+rand.IntN(3)); err != nil {
			return fmt.Errorf("seed payments for %s: %w", u.ID, err)
		}
	}

	log.Info("database seeded", slog.Int("users", users), slog.Int("paying", min(users, paying)))
	return nil
}

func mockUser(now time.Time) billing.User {
	createdAt := now.Add(-randDuration(365 * 24 * time.Hour))
	credits := int64(10 + rand.IntN(41))

	u := billing.User{
		ID:        uuid.New(),
		Email:     faker.Email(),
		Username:  faker.Username(),
		Credits:   credits,
		CreatedAt: createdAt,
	}
	if credits > 10 {
		customer := "cus_test_" + faker.UUIDDigit()
		paid := createdAt.Add(randDuration(now.Sub(createdAt)))
		u.PaymentProcessorUserID = &customer
		u.DatePaid = &paid
	}
	return u
}

// seedPayments records count completed purchases and applies their effect,
// the same way a reconciled webhook would.
func seedPayments(ctx context.Context, store *account.Store, userID uuid.UUID, count int) error {
	return store.InTx(ctx, func(ctx context.Context, tx billing.Tx) error {
		for range count {
			plan := seedPlans[rand.IntN(len(seedPlans))]
			createdAt := time.Now().UTC().Add(-randDuration(365 * 24 * time.Hour))
			completedAt := createdAt.Add(randDuration(24 * time.Hour))

			if _, err := tx.UpsertPaymentRecord(ctx, billing.PaymentRecord{
				ID:            uuid.New(),
				UserID:        userID,
				Amount:        plan.amount,
				Currency:      "cny",
				Credits:       plan.credits,
				PaymentMethod: billing.PaymentMethodStripe,
				TransactionID: "pi_test_" + faker.UUIDDigit(),
				Status:        billing.PaymentCompleted,
				CreatedAt:     createdAt,
				CompletedAt:   &completedAt,
			}); err != nil {
				return err
			}
			if _, err := tx.IncrementCredits(ctx, userID, plan.credits); err != nil {
				return err
			}
			if err := tx.AddTotalSpent(ctx, userID, plan.amount); err != nil {
				return err
			}
		}
		return nil
	})
}

func randDuration(upTo time.Duration) time.Duration {
	if upTo <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(upTo)))
}
