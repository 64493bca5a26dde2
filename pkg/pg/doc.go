// Package pg bootstraps PostgreSQL access on jackc/pgx/v5: pool creation with
// connection retries, goose/v3 migrations from an fs.FS, a readiness check and
// error classification helpers.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, profile.Migrations, cfg, log); err != nil {
//		return err
//	}
package pg
