package main

// Apply or inspect the leads/diagnoses schema:
//   go run ./cmd/migrate              # up
//   go run ./cmd/migrate status
//   go run ./cmd/migrate down-to 2

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"tdm-diagnostic/internal/shared/config"
	"tdm-diagnostic/internal/shared/storage/db"
	"tdm-diagnostic/internal/shared/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config.Load(), os.Args[1:]); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, args []string) error {
	command, rest := parseArgs(args)
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return db.ErrNoDatabaseURL
	}

	sqlDB, err := db.Open(ctx, cfg.DatabaseURL, db.ProfileMigrate)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer sqlDB.Close()

	if err := db.Migrate(ctx, sqlDB, command, rest...); err != nil {
		return err
	}
	telemetry.Info("migrate.done", map[string]any{"command": command, "env": cfg.Env})
	return nil
}

func parseArgs(args []string) (string, []string) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "up", nil
	}
	return args[0], args[1:]
}
