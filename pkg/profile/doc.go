// Package profile stores the per-user billing profile: the billing
// provider's customer id plus the locally mirrored subscription state.
//
// PostgresStore is the production implementation on pgx; MemoryStore backs
// tests and local development. The schema ships as embedded goose migrations
// in Migrations and is applied with pg.Migrate.
package profile
