package postgres

import "embed"

// Migrations holds the goose SQL migrations for the queue schema.
// Apply them with pg.Migrate(ctx, pool, postgres.Migrations, "migrations", cfg, log).
//
//go:embed migrations/*.sql
var Migrations embed.FS
