// Package store is the PostgreSQL repository of the service. One Store
// implements usage.Store, reconcile.Store and admin.Store over the users,
// subscription_events and payment_ledger tables.
//
// Writes to subscription facts always lock the user row (SELECT ... FOR
// UPDATE) inside a transaction, so webhook reconciliation and admin edits for
// the same user serialize. Database errors are mapped to
// entitlement.ErrNotFound and entitlement.ErrStorage.
//
// The schema lives in Migrations and is applied with pg.Migrate:
//
//	err := pg.Migrate(ctx, pool, store.Migrations, store.MigrationsDir, cfg.MigrationsTable, log)
package store
