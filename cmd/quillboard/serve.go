// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quillboard Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/quillboard/quillboard/internal/account"
	accountpg "github.com/quillboard/quillboard/internal/account/postgres"
	"github.com/quillboard/quillboard/internal/logging"
	"github.com/quillboard/quillboard/internal/mail"
	"github.com/quillboard/quillboard/internal/observability"
	"github.com/quillboard/quillboard/internal/post"
	postpg "github.com/quillboard/quillboard/internal/post/postgres"
	"github.com/quillboard/quillboard/internal/store"
)

// serveConfig holds configuration for the serve command.
type serveConfig struct {
	metricsAddr     string
	logFormat       string
	autoMigrate     bool
	cleanupInterval time.Duration

	smtpHost     string
	smtpPort     int
	smtpUsername string
	smtpPassword string
	mailFrom     string
}

// Validate checks that the configuration is valid.
func (cfg *serveConfig) Validate() error {
	if cfg.logFormat != "json" && cfg.logFormat != "text" {
		return fmt.Errorf("log-format must be 'json' or 'text', got %q", cfg.logFormat)
	}
	if cfg.smtpHost == "" {
		return fmt.Errorf("smtp-host is required")
	}
	if cfg.cleanupInterval <= 0 {
		return fmt.Errorf("cleanup-interval must be positive, got %s", cfg.cleanupInterval)
	}
	return nil
}

// Default values for serve command flags.
const (
	defaultMetricsAddr     = "127.0.0.1:9100"
	defaultLogFormat       = "json"
	defaultCleanupInterval = time.Hour
	defaultSMTPPort        = 587
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Quillboard server",
		Long: `Start the Quillboard server: account and post services,
observability endpoints, and the expired-row cleanup loop.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadServeConfig(cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd)
		},
	}

	cmd.Flags().String("metrics-addr", defaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log-format", defaultLogFormat, "log format (json or text)")
	cmd.Flags().Bool("auto-migrate", false, "run pending migrations before serving")
	cmd.Flags().Duration("cleanup-interval", defaultCleanupInterval, "interval between expired-row cleanup sweeps")
	cmd.Flags().String("smtp-host", "", "SMTP relay host")
	cmd.Flags().Int("smtp-port", defaultSMTPPort, "SMTP relay port")
	cmd.Flags().String("smtp-username", "", "SMTP username (empty = unauthenticated)")
	cmd.Flags().String("smtp-password", "", "SMTP password")
	cmd.Flags().String("mail-from", "", "From header for outbound mail")

	return cmd
}

// loadServeConfig merges the optional YAML config file with command-line
// flags. Flags take precedence over the file.
func loadServeConfig(flags *pflag.FlagSet) (*serveConfig, error) {
	k := koanf.New(".")

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configFile, err)
		}
	}

	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	return &serveConfig{
		metricsAddr:     k.String("metrics-addr"),
		logFormat:       k.String("log-format"),
		autoMigrate:     k.Bool("auto-migrate"),
		cleanupInterval: k.Duration("cleanup-interval"),
		smtpHost:        k.String("smtp-host"),
		smtpPort:        k.Int("smtp-port"),
		smtpUsername:    k.String("smtp-username"),
		smtpPassword:    k.String("smtp-password"),
		mailFrom:        k.String("mail-from"),
	}, nil
}

// runServe starts the server and blocks until shutdown.
func runServe(ctx context.Context, cfg *serveConfig, cmd *cobra.Command) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.SetDefault("quillboard", version, cfg.logFormat)

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if cfg.autoMigrate {
		migrator, err := store.NewMigrator(databaseURL)
		if err != nil {
			return fmt.Errorf("failed to create migrator: %w", err)
		}
		if err := migrator.Up(); err != nil {
			_ = migrator.Close() //nolint:errcheck // migration error takes precedence
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		if err := migrator.Close(); err != nil {
			return fmt.Errorf("failed to close migrator: %w", err)
		}
		slog.Info("migrations applied")
	}

	pool, err := store.NewPool(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	slog.Info("connected to database")

	mailer, err := mail.NewSMTPMailer(mail.Config{
		Host:     cfg.smtpHost,
		Port:     cfg.smtpPort,
		Username: cfg.smtpUsername,
		Password: cfg.smtpPassword,
		From:     cfg.mailFrom,
	})
	if err != nil {
		return fmt.Errorf("failed to create mailer: %w", err)
	}

	sessions := accountpg.NewSessionRepository(pool)
	verifications := accountpg.NewVerificationRepository(pool)

	// Build the full service graph now so bad wiring fails at startup
	// rather than on first request once transport handlers attach.
	if _, err := buildServices(pool, mailer); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start observability server if configured
	var obsServer *observability.Server
	var metrics *observability.Metrics
	if cfg.metricsAddr != "" {
		obsServer = observability.NewServer(cfg.metricsAddr, func() bool {
			return pool.Ping(ctx) == nil
		})
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		metrics = obsServer.Metrics()
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	// Periodically remove expired sessions and verification codes.
	go runCleanupLoop(ctx, cfg.cleanupInterval, sessions, verifications, metrics)

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Quillboard server started")
	slog.Info("server ready", "metrics_addr", cfg.metricsAddr)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// services bundles the wired application services for a transport layer.
type services struct {
	accounts   *account.Service
	posts      *post.Service
	authorizer *account.Authorizer
}

// buildServices wires repositories and services against the given pool.
func buildServices(pool *pgxpool.Pool, mailer account.Mailer) (*services, error) {
	accounts := accountpg.NewAccountRepository(pool)
	verifications := accountpg.NewVerificationRepository(pool)
	sessions := accountpg.NewSessionRepository(pool)
	posts := postpg.NewPostRepository(pool)

	verifier, err := account.NewVerificationService(verifications)
	if err != nil {
		return nil, fmt.Errorf("failed to create verification service: %w", err)
	}

	accountSvc, err := account.NewService(accounts, verifier, account.NewArgon2idHasher(), mailer)
	if err != nil {
		return nil, fmt.Errorf("failed to create account service: %w", err)
	}

	postSvc, err := post.NewService(posts)
	if err != nil {
		return nil, fmt.Errorf("failed to create post service: %w", err)
	}

	authorizer, err := account.NewAuthorizer(sessions)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorizer: %w", err)
	}

	return &services{
		accounts:   accountSvc,
		posts:      postSvc,
		authorizer: authorizer,
	}, nil
}

// runCleanupLoop sweeps expired sessions and verification codes until the
// context is cancelled.
func runCleanupLoop(ctx context.Context, interval time.Duration, sessions account.SessionStore, verifications account.VerificationRepository, metrics *observability.Metrics) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := sessions.DeleteExpired(ctx); err != nil {
				slog.Warn("session cleanup failed", "error", err)
			} else if n > 0 {
				if metrics != nil {
					metrics.CleanupDeletions.WithLabelValues("session").Add(float64(n))
				}
				slog.Info("expired sessions removed", "count", n)
			}

			if n, err := verifications.DeleteExpired(ctx); err != nil {
				slog.Warn("verification cleanup failed", "error", err)
			} else if n > 0 {
				if metrics != nil {
					metrics.CleanupDeletions.WithLabelValues("verification").Add(float64(n))
				}
				slog.Info("expired verifications removed", "count", n)
			}
		}
	}
}

// monitorServerErrors monitors a server's error channel and cancels the
// context on error so a failed component shuts the process down cleanly.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
		// Context cancelled, exit monitoring
	}
}
