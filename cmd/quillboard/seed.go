// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quillboard Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/quillboard/quillboard/internal/account"
	accountpg "github.com/quillboard/quillboard/internal/account/postgres"
	"github.com/quillboard/quillboard/internal/store"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	email   string
	timeout time.Duration
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the initial admin account",
		Long: `Creates the initial admin account. The password is read from the
QUILLBOARD_ADMIN_PASSWORD environment variable so it never appears in shell
history. This command is idempotent - it will not create a duplicate if run
multiple times.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.email, "email", "", "admin account email (required)")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")
	_ = cmd.MarkFlagRequired("email") //nolint:errcheck // flag is registered above

	return cmd
}

func runSeed(cmd *cobra.Command, _ []string, cfg *seedConfig) error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}
	password := os.Getenv("QUILLBOARD_ADMIN_PASSWORD")
	if password == "" {
		return oops.Code("CONFIG_INVALID").Errorf("QUILLBOARD_ADMIN_PASSWORD environment variable is required")
	}

	if err := account.ValidateEmail(cfg.email); err != nil {
		return err
	}
	if err := account.ValidateChangedPassword(password); err != nil {
		return err
	}

	// Add timeout to prevent indefinite hangs
	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	pool, err := store.NewPool(ctx, databaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	hash, err := account.NewArgon2idHasher().Hash(password)
	if err != nil {
		return oops.Code("SEED_FAILED").With("operation", "hash password").Wrap(err)
	}

	admin, err := account.NewAccount(cfg.email, hash, true, nil, account.RoleAdmin)
	if err != nil {
		return oops.Code("SEED_FAILED").With("operation", "build admin account").Wrap(err)
	}

	accounts := accountpg.NewAccountRepository(pool)
	if err := accounts.Create(ctx, admin); err != nil {
		if errors.Is(err, account.ErrAlreadyExists) {
			cmd.Println("Admin account already exists, skipping seed")
			slog.Info("admin already seeded", "email", cfg.email)
			return nil
		}
		return oops.Code("SEED_FAILED").With("operation", "create admin account").Wrap(err)
	}

	cmd.Println("Created admin account:", cfg.email)
	slog.Info("created admin account", "account_id", admin.ID.String())

	return nil
}
