// Command migrate runs schema operations for the API database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"onebatch/internal/config"
	"onebatch/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|down|status|version>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.MigrateUp(ctx, sqlDB, "postgres"); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		log.Println("migrations applied")
	case "down":
		if err := database.MigrateDown(ctx, sqlDB, "postgres"); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		log.Println("rolled back one migration")
	case "status":
		if err := database.MigrationStatus(ctx, sqlDB, "postgres"); err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
	case "version":
		version, err := database.MigrationVersion(ctx, sqlDB, "postgres")
		if err != nil {
			return fmt.Errorf("migration version: %w", err)
		}
		log.Printf("schema version %d", version)
	default:
		return usage()
	}
	return nil
}
