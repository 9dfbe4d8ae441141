// Package account persists users, payment records and API keys in PostgreSQL.
//
// Store implements billing.Store, whose InTx wraps a single pgx transaction,
// and apikey.Store. Queries are built with squirrel using dollar placeholders.
//
//	pool, err := pg.Connect(ctx, cfg, log)
//	store := account.NewStore(pool)
//	svc := billing.NewService(catalog, provider, store)
package account
