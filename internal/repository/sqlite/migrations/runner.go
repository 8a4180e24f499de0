// Package migrations applies the SQLite schema. Applied files are recorded in
// schema_migrations so each one runs exactly once.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
)

// Run applies all unapplied migrations from the embedded FS to the database.
func Run(ctx context.Context, db *sql.DB) error {
	_, err := Apply(ctx, db, FS)
	return err
}

// Apply runs every *.sql file in fsys that is not yet recorded, in lexical
// order, each inside its own transaction. It returns the applied filenames.
func Apply(ctx context.Context, db *sql.DB, fsys fs.FS) ([]string, error) {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return nil, fmt.Errorf("ensure migrations table: %w", err)
	}

	done, err := appliedSet(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("get applied migrations: %w", err)
	}

	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migration files: %w", err)
	}
	sort.Strings(files)

	var applied []string
	for _, name := range files {
		if done[name] {
			slog.Debug("migration already applied", "file", name)
			continue
		}
		if err := applyFile(ctx, db, fsys, name); err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", name, err)
		}
		slog.Info("migration applied", "file", path.Base(name))
		applied = append(applied, name)
	}
	return applied, nil
}

func appliedSet(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		set[name] = true
	}
	return set, rows.Err()
}

func applyFile(ctx context.Context, db *sql.DB, fsys fs.FS, name string) error {
	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("execute sql: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return tx.Commit()
}
