package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/msomdec/userdesk/internal/config"
	"github.com/msomdec/userdesk/internal/domain"
	"github.com/msomdec/userdesk/internal/handler"
	"github.com/msomdec/userdesk/internal/repository/postgres"
	"github.com/msomdec/userdesk/internal/repository/sqlite"
	"github.com/msomdec/userdesk/internal/service"
	"github.com/msomdec/userdesk/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logOpts := &slog.HandlerOptions{Level: cfg.LogLevel}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
	slog.SetDefault(logger)

	if err := run(cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied", "driver", cfg.DatabaseDriver)

	photos, uploadDir, err := openPhotoStore(ctx, cfg)
	if err != nil {
		return err
	}

	userService := service.NewUserService(db.Users(), photos, cfg.BcryptCost, cfg.MaxFileUpload)
	authService := service.NewAuthService(db.Users(), cfg.JWTSecret, cfg.JWTExpire)

	if cfg.AdminEmail != "" {
		created, err := userService.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		if created {
			slog.Info("admin account created", "email", cfg.AdminEmail)
		}
	}

	loginLimiter := service.NewTokenBucket(cfg.LoginRate, cfg.LoginBurst, 0)
	defer loginLimiter.Close()

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Deps{
		Users:         userService,
		Auth:          authService,
		LoginLimiter:  loginLimiter,
		Gatherer:      prometheus.DefaultGatherer,
		UploadDir:     uploadDir,
		MaxFileUpload: cfg.MaxFileUpload,
		CookieSecure:  cfg.CookieSecure,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Wrap(mux, handler.NewMetrics(prometheus.DefaultRegisterer)),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-sigCtx.Done():
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (domain.Database, error) {
	switch cfg.DatabaseDriver {
	case "postgres":
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return db, nil
	default:
		db, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return db, nil
	}
}

// openPhotoStore returns the configured store and, for the disk store, the
// directory to serve under /uploads/.
func openPhotoStore(ctx context.Context, cfg *config.Config) (domain.PhotoStore, string, error) {
	if cfg.PhotoStore == "s3" {
		s3, err := storage.NewS3(ctx, storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Prefix:    cfg.S3Prefix,
		})
		if err != nil {
			return nil, "", fmt.Errorf("open s3 photo store: %w", err)
		}
		slog.Info("photos stored in s3", "bucket", cfg.S3Bucket)
		return s3, "", nil
	}

	disk := storage.NewDisk(cfg.UploadPath)
	slog.Info("photos stored on disk", "dir", disk.Dir())
	return disk, disk.Dir(), nil
}
