// Package pg bootstraps the PostgreSQL layer on pgx/v5: a pool opened with
// retry, goose migrations read from an fs.FS, a readiness probe, and helpers
// that classify *pgconn.PgError values.
//
//	pool, err := pg.Connect(ctx, cfg, log)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, migrations.FS, cfg, log); err != nil {
//		return err
//	}
package pg
