package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msomdec/userdesk/internal/domain"
	"github.com/msomdec/userdesk/internal/repository/sqlite"
)

// Verify that *sqlite.DB implements domain.Database at compile time.
var _ domain.Database = (*sqlite.DB)(nil)

func TestNew(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := sqlite.New(dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(dbPath)
	require.NoError(t, err, "database file was not created")

	var fkEnabled int
	require.NoError(t, db.SqlDB.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled))
	assert.Equal(t, 1, fkEnabled)

	var mode string
	require.NoError(t, db.SqlDB.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestMigrateIdempotent(t *testing.T) {
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx), "second Migrate must be a no-op")

	var count int
	require.NoError(t, db.SqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 2, count)
}
