package domain

import "context"

// Database defines lifecycle operations for the underlying database.
// Each implementation (SQLite, Postgres) owns its own migration files and
// strategy, so the whole store is swappable from main.
type Database interface {
	Migrate(ctx context.Context) error
	Users() UserRepository
	Close() error
}
