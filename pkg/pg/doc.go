// Package pg bootstraps the PostgreSQL layer used by the notification
// storage: a pgxpool connection pool, goose schema migrations, a
// health-check probe, and error classification helpers.
//
// # Building blocks
//
//   - Config holds pool sizing, retry cadence, and the migrations path.
//     Fields carry env tags so the struct can be populated straight from
//     the environment.
//
//   - Connect opens a *pgxpool.Pool from Config, retrying with a linear
//     backoff until the database answers or the context is cancelled.
//
//   - Migrate applies the goose migrations found under
//     Config.MigrationsPath, bringing the schema (including the
//     notifications table and its collapse-key indexes) up to date
//     before the service starts.
//
// # Usage
//
//	var cfg pg.Config
//	if err := env.Parse(&cfg); err != nil {
//	    panic(err)
//	}
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    panic(err)
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//	    panic(err)
//	}
//
// # Error handling
//
// Helpers such as [IsDuplicateKeyError] and [IsForeignKeyViolationError]
// unwrap *pgconn.PgError values so callers can branch on constraint
// violations without touching SQLSTATE codes directly. The notification
// storage relies on [IsDuplicateKeyError] to detect collapse-key
// conflicts raised by the partial unique indexes.
package pg
