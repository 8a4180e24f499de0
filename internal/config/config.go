// Package config loads runtime settings from the environment and an optional
// dotenv file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds runtime settings for the API server.
type Config struct {
	Port     string
	LogLevel slog.Level

	DatabaseDriver string // "sqlite" or "postgres"
	DatabasePath   string
	DatabaseURL    string

	JWTSecret    string
	JWTExpire    time.Duration
	BcryptCost   int
	CookieSecure bool

	// MaxFileUpload is the largest accepted photo in bytes.
	MaxFileUpload int64
	// UploadPath is the directory the disk photo store writes to.
	UploadPath string
	PhotoStore string // "disk" or "s3"

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Prefix    string

	AdminName     string
	AdminEmail    string
	AdminPassword string

	LoginRate  float64 // tokens per second
	LoginBurst float64
}

// DefaultConfigFile is read when CONFIG_FILE is unset. A missing file is fine.
const DefaultConfigFile = "config/config.env"

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "5000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_PATH", "userdesk.db")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRE", "720h")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("MAX_FILE_UPLOAD", 1000000)
	v.SetDefault("FILE_USERUPLOAD_PATH", "./public/uploads/users")
	v.SetDefault("PHOTO_STORE", "disk")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("S3_PREFIX", "users/")
	v.SetDefault("ADMIN_NAME", "Admin")
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("LOGIN_RATE", 0.2)
	v.SetDefault("LOGIN_BURST", 5)
}

// Load builds a Config from defaults, then the dotenv file named by
// CONFIG_FILE (default DefaultConfigFile), then environment variables.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	file := os.Getenv("CONFIG_FILE")
	if file == "" {
		file = DefaultConfigFile
	}
	v.SetConfigFile(file)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
		slog.Debug("no config file", "file", file)
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("LOG_LEVEL"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	expire, err := time.ParseDuration(v.GetString("JWT_EXPIRE"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRE: %w", err)
	}

	cfg := &Config{
		Port:           v.GetString("PORT"),
		LogLevel:       level,
		DatabaseDriver: strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabasePath:   v.GetString("DATABASE_PATH"),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		JWTExpire:      expire,
		BcryptCost:     v.GetInt("BCRYPT_COST"),
		CookieSecure:   v.GetBool("COOKIE_SECURE"),
		MaxFileUpload:  v.GetInt64("MAX_FILE_UPLOAD"),
		UploadPath:     v.GetString("FILE_USERUPLOAD_PATH"),
		PhotoStore:     strings.ToLower(v.GetString("PHOTO_STORE")),
		S3Bucket:       v.GetString("S3_BUCKET"),
		S3Region:       v.GetString("S3_REGION"),
		S3Endpoint:     v.GetString("S3_ENDPOINT"),
		S3AccessKey:    v.GetString("S3_ACCESS_KEY"),
		S3SecretKey:    v.GetString("S3_SECRET_KEY"),
		S3Prefix:       v.GetString("S3_PREFIX"),
		AdminName:      v.GetString("ADMIN_NAME"),
		AdminEmail:     v.GetString("ADMIN_EMAIL"),
		AdminPassword:  v.GetString("ADMIN_PASSWORD"),
		LoginRate:      v.GetFloat64("LOGIN_RATE"),
		LoginBurst:     v.GetFloat64("LOGIN_BURST"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.JWTSecret == "":
		return errors.New("JWT_SECRET environment variable is required")
	case len(c.JWTSecret) < 32:
		return errors.New("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security")
	case c.BcryptCost < 4 || c.BcryptCost > 14:
		return fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", c.BcryptCost)
	case c.MaxFileUpload <= 0:
		return fmt.Errorf("MAX_FILE_UPLOAD must be positive, got %d", c.MaxFileUpload)
	case c.JWTExpire <= 0:
		return errors.New("JWT_EXPIRE must be positive")
	case c.LoginRate <= 0 || c.LoginBurst < 1:
		return errors.New("LOGIN_RATE must be positive and LOGIN_BURST at least 1")
	}

	switch c.DatabaseDriver {
	case "sqlite":
		if c.DatabasePath == "" {
			return errors.New("DATABASE_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	switch c.PhotoStore {
	case "disk":
		if c.UploadPath == "" {
			return errors.New("FILE_USERUPLOAD_PATH is required for the disk photo store")
		}
	case "s3":
		if c.S3Bucket == "" {
			return errors.New("S3_BUCKET is required for the s3 photo store")
		}
	default:
		return fmt.Errorf("unknown PHOTO_STORE %q", c.PhotoStore)
	}

	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	return nil
}
