// Package pg wraps pgx pool setup for the service: connection with retry,
// goose migrations from an embedded filesystem, a transaction helper, a
// health probe and predicates for common PostgreSQL error codes.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, store.Migrations, "migrations", cfg.MigrationsTable, log); err != nil {
//		return err
//	}
package pg
