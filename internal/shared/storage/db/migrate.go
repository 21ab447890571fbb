package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationsDir = "migrations"

// MigrationCommands lists the goose commands cmd/migrate accepts.
var MigrationCommands = []string{"up", "up-by-one", "down", "status", "version", "redo"}

// RunMigrations applies embedded SQL migrations via goose. If database is nil, it's a no-op.
func RunMigrations(ctx context.Context, database *sql.DB) error {
	return RunMigrationCommand(ctx, database, "up")
}

// RunMigrationCommand runs one goose command against the embedded jobs and
// applications schema.
func RunMigrationCommand(ctx context.Context, database *sql.DB, command string) error {
	if database == nil {
		return nil
	}
	if !validCommand(command) {
		return fmt.Errorf("unknown migration command %q", command)
	}
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.RunContext(ctx, command, database, migrationsDir)
}

func validCommand(command string) bool {
	for _, c := range MigrationCommands {
		if c == command {
			return true
		}
	}
	return false
}

// MigrationNames lists the embedded migration files in apply order.
func MigrationNames() ([]string, error) {
	entries, err := fs.ReadDir(migrationFiles, migrationsDir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
