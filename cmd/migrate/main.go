package main

// Run database migrations:
//   go run ./cmd/migrate            # up
//   go run ./cmd/migrate status
//   go run ./cmd/migrate down

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"recruit-backend/internal/shared/config"
	"recruit-backend/internal/shared/storage/db"
	"recruit-backend/internal/shared/telemetry"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: migrate [%s]\n", strings.Join(db.MigrationCommands, "|"))
	}
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg := config.Load()
	ctx := context.Background()

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFor(db.ProfileMigrate))
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrationCommand(ctx, sqlDB, command); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"command": command, "error": err.Error()})
		os.Exit(1)
	}
	telemetry.Info("migrate.done", map[string]any{"command": command})
}
