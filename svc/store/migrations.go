package store

import "embed"

// MigrationsDir is the directory of Migrations holding the goose files.
const MigrationsDir = "migrations"

// Migrations holds the SQL schema, applied with pg.Migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS
