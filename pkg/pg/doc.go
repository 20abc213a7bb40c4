// Package pg bootstraps the PostgreSQL layer: a pgx/v5 connection pool with
// startup retries, goose migrations from an embedded filesystem, a ping-based
// health probe, and error classification helpers for common SQLSTATE codes.
//
// Typical startup sequence:
//
//	var cfg pg.Config
//	if err := env.Parse(&cfg); err != nil {
//		panic(err)
//	}
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		panic(err)
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, postgres.Migrations, "migrations", cfg, slog.Default()); err != nil {
//		panic(err)
//	}
//
// Configuration comes from environment variables; see the field tags on
// [Config] for names and defaults.
package pg
