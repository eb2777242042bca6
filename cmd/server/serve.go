package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"cityfix/internal/auth"
	"cityfix/internal/blob"
	"cityfix/internal/config"
	"cityfix/internal/db"
	grpcserver "cityfix/internal/grpc"
	"cityfix/internal/httpapi"
	"cityfix/internal/service"
	"cityfix/repository"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and gRPC APIs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		d, err := db.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer func() {
			if err := d.Close(); err != nil {
				logger.Error("close db", slog.Any("error", err))
			}
		}()
		return serve(cmd.Context(), cfg, d, logger)
	},
}

type app struct {
	users   *service.Users
	reports *service.Reports
	gate    *auth.Gate
	blobs   *blob.DiskStore
}

// newApp builds the service layer. It fails when the signing secret is empty.
func newApp(cfg *config.Config, d *sqlx.DB, logger *slog.Logger) (*app, error) {
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, err
	}
	blobs, err := blob.NewDiskStore(cfg.Uploads.Dir, cfg.Uploads.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("uploads dir: %w", err)
	}
	users := repository.NewUserRepository(d)
	return &app{
		users:   service.NewUsers(users, auth.NewHasher(), tokens, logger),
		reports: service.NewReports(repository.NewReportRepository(d), users, blobs, logger),
		gate:    auth.NewGate(tokens),
		blobs:   blobs,
	}, nil
}

func serve(ctx context.Context, cfg *config.Config, d *sqlx.DB, logger *slog.Logger) error {
	a, err := newApp(cfg, d, logger)
	if err != nil {
		return err
	}
	if _, err := a.users.EnsureBootstrapAdmin(ctx, service.BootstrapAdmin(cfg.Admin)); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	stopGRPC, err := grpcserver.StartGRPC(cfg, grpcserver.Deps{
		Users:         a.users,
		Reports:       a.reports,
		Gate:          a.gate,
		Logger:        logger,
		MaxPhotoBytes: a.blobs.MaxBytes(),
	})
	if err != nil {
		return fmt.Errorf("start grpc: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(httpapi.Deps{
		Users:      a.users,
		Reports:    a.reports,
		Gate:       a.gate,
		UploadsDir: a.blobs.Dir(),
		MaxUpload:  a.blobs.MaxBytes(),
		Logger:     logger,
	}, cfg.HTTP.AllowedOrigins)
	stopHTTP, err := httpapi.StartHTTP(cfg, router, logger)
	if err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = stopGRPC(shutdownCtx)
		return fmt.Errorf("start http: %w", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sigc:
		logger.Info("shutting down", slog.String("signal", s.String()))
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := stopHTTP(shutdownCtx); err != nil {
		logger.Error("http shutdown", slog.Any("error", err))
	}
	if err := stopGRPC(shutdownCtx); err != nil {
		logger.Error("grpc shutdown", slog.Any("error", err))
	}
	return nil
}
