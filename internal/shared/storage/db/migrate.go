package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"slices"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationsDir = "migrations"

var (
	gooseSetup sync.Once
	gooseErr   error
)

// MigrateCommands lists the goose commands cmd/migrate accepts.
var MigrateCommands = []string{"up", "up-by-one", "up-to", "down", "down-to", "redo", "status", "version"}

func setupGoose() error {
	gooseSetup.Do(func() {
		goose.SetBaseFS(migrationFiles)
		gooseErr = goose.SetDialect("postgres")
	})
	return gooseErr
}

// RunMigrations applies every pending migration for leads and diagnoses. A
// nil database is a no-op so memory-backed builds can call it unconditionally.
func RunMigrations(ctx context.Context, database *sql.DB) error {
	if database == nil {
		return nil
	}
	return Migrate(ctx, database, "up")
}

// Migrate runs one goose command against the embedded migrations.
func Migrate(ctx context.Context, database *sql.DB, command string, args ...string) error {
	if !slices.Contains(MigrateCommands, command) {
		return fmt.Errorf("unknown migrate command %q", command)
	}
	if err := setupGoose(); err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, database, migrationsDir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
