package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

var gooseDialects = map[Dialect]goose.Dialect{
	DialectPostgres: goose.DialectPostgres,
	DialectSQLite:   goose.DialectSQLite3,
}

// Migrate applies every pending migration for the dialect. It does not close db.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	gd, ok := gooseDialects[dialect]
	if !ok {
		return fmt.Errorf("%s: %q", ErrMsgUnsupportedDialect, dialect)
	}

	fsys, err := fs.Sub(migrationFS, "migrations/"+string(dialect))
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToLoadMigrations, err)
	}

	provider, err := goose.NewProvider(gd, db, fsys)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToLoadMigrations, err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToApplyMigrations, err)
	}
	if len(results) == 0 {
		slog.Default().Debug(LogMsgMigrationsUpToDate, "dialect", dialect)
	}
	for _, r := range results {
		slog.Default().Info(LogMsgMigrationApplied, "dialect", dialect, "migration", r.Source.Path, "duration", r.Duration)
	}
	return nil
}

// MigrationVersion reports the highest applied migration version
func MigrationVersion(ctx context.Context, db *sql.DB, dialect Dialect) (int64, error) {
	gd, ok := gooseDialects[dialect]
	if !ok {
		return 0, fmt.Errorf("%s: %q", ErrMsgUnsupportedDialect, dialect)
	}
	fsys, err := fs.Sub(migrationFS, "migrations/"+string(dialect))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ErrMsgFailedToLoadMigrations, err)
	}
	provider, err := goose.NewProvider(gd, db, fsys)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ErrMsgFailedToLoadMigrations, err)
	}
	return provider.GetDBVersion(ctx)
}
