package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"onebatch/internal/middleware"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const migrationDir = "migrations"

type gooseLogger struct{}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	middleware.Logger.Error(fmt.Sprintf(format, v...))
}

func (gooseLogger) Printf(format string, v ...interface{}) {
	middleware.Logger.Info(fmt.Sprintf(format, v...))
}

func prepareGoose(dialect string) error {
	goose.SetBaseFS(migrationFS)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	return nil
}

// MigrateUp applies every pending embedded migration.
func MigrateUp(ctx context.Context, db *sql.DB, dialect string) error {
	if err := prepareGoose(dialect); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, migrationDir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recent migration.
func MigrateDown(ctx context.Context, db *sql.DB, dialect string) error {
	if err := prepareGoose(dialect); err != nil {
		return err
	}
	if err := goose.DownContext(ctx, db, migrationDir); err != nil {
		return fmt.Errorf("roll back migration: %w", err)
	}
	return nil
}

// MigrationStatus logs the applied state of each embedded migration.
func MigrationStatus(ctx context.Context, db *sql.DB, dialect string) error {
	if err := prepareGoose(dialect); err != nil {
		return err
	}
	return goose.StatusContext(ctx, db, migrationDir)
}

// MigrationVersion returns the current schema version.
func MigrationVersion(ctx context.Context, db *sql.DB, dialect string) (int64, error) {
	if err := prepareGoose(dialect); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, db)
}
