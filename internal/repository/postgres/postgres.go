// Package postgres is the PostgreSQL user store. It talks to the database
// through database/sql with the pgx driver and migrates with goose.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/msomdec/userdesk/internal/domain"
	"github.com/msomdec/userdesk/internal/repository/postgres/migrations"
)

// DB wraps the Postgres connection pool and vends repositories bound to it.
type DB struct {
	SqlDB *sql.DB
}

// New opens a connection pool for dsn and verifies it with a ping.
func New(ctx context.Context, dsn string) (*DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{SqlDB: db}, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded goose migrations.
func (d *DB) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, d.SqlDB, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Users returns the Postgres-backed user repository.
func (d *DB) Users() domain.UserRepository {
	return NewUserRepository(d.SqlDB)
}

// Close closes the connection pool.
func (d *DB) Close() error {
	return d.SqlDB.Close()
}
