package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msomdec/userdesk/internal/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// isolate points CONFIG_FILE at a path that does not exist so a developer's
// local config/config.env never leaks into tests.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("JWT_SECRET", testSecret)
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, int64(1000000), cfg.MaxFileUpload)
	assert.Equal(t, "./public/uploads/users", cfg.UploadPath)
	assert.Equal(t, "disk", cfg.PhotoStore)
	assert.Equal(t, 720*time.Hour, cfg.JWTExpire)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.True(t, cfg.CookieSecure)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("MAX_FILE_UPLOAD", "2500000")
	t.Setenv("FILE_USERUPLOAD_PATH", "/srv/photos")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("DATABASE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, int64(2500000), cfg.MaxFileUpload)
	assert.Equal(t, "/srv/photos", cfg.UploadPath)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
}

func TestLoad_ConfigFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.env")
	require.NoError(t, os.WriteFile(file, []byte(
		"JWT_SECRET="+testSecret+"\nMAX_FILE_UPLOAD=3000000\nPORT=7000\n",
	), 0o600))
	t.Setenv("CONFIG_FILE", file)
	t.Setenv("PORT", "9000")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, int64(3000000), cfg.MaxFileUpload)
	assert.Equal(t, "9000", cfg.Port, "environment wins over the file")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"short secret", map[string]string{"JWT_SECRET": "short"}},
		{"bcrypt cost", map[string]string{"BCRYPT_COST": "20"}},
		{"upload size", map[string]string{"MAX_FILE_UPLOAD": "0"}},
		{"bad duration", map[string]string{"JWT_EXPIRE": "30 days"}},
		{"bad level", map[string]string{"LOG_LEVEL": "loud"}},
		{"unknown driver", map[string]string{"DATABASE_DRIVER": "mongo"}},
		{"postgres without url", map[string]string{"DATABASE_DRIVER": "postgres"}},
		{"s3 without bucket", map[string]string{"PHOTO_STORE": "s3"}},
		{"admin half set", map[string]string{"ADMIN_EMAIL": "admin@example.com"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}
