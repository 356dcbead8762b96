package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// PoolOptions sizes a PostgreSQL connection pool
type PoolOptions struct {
	MaxConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// NewPool connects to PostgreSQL and verifies the connection
func NewPool(ctx context.Context, connString string, opts PoolOptions) (*pgxpool.Pool, error) {
	pgCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToParseConnString, err)
	}

	if opts.MaxConns > 0 {
		pgCfg.MaxConns = int32(min(opts.MaxConns, math.MaxInt32))
	}
	pgCfg.MinConns = min(DefaultMinConnections, pgCfg.MaxConns)
	if opts.MaxLifetime > 0 {
		pgCfg.MaxConnLifetime = opts.MaxLifetime
	}
	if opts.MaxIdleTime > 0 {
		pgCfg.MaxConnIdleTime = opts.MaxIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgCfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToCreatePool, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToPingDatabase, err)
	}

	slog.Info(LogMsgSuccessfullyConnectedToDatabase, "dialect", DialectPostgres, "max_conns", pgCfg.MaxConns)
	return pool, nil
}

// MigratePool brings a PostgreSQL pool's schema up to date
func MigratePool(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	return Migrate(ctx, db, DialectPostgres)
}

// OpenSQLite opens (creating if needed) a SQLite database file and applies migrations.
// path may be ":memory:" for a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToOpenDatabase, err)
	}
	db.SetMaxOpenConns(SQLiteMaxOpenConns)
	// keep the single connection alive so ":memory:" databases survive idle periods
	db.SetConnMaxIdleTime(0)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", SQLiteBusyTimeout.Milliseconds()),
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %s: %w", ErrMsgFailedToConfigureSQLite, p, err)
		}
	}

	if err := Migrate(ctx, db, DialectSQLite); err != nil {
		db.Close()
		return nil, err
	}

	slog.Info(LogMsgSuccessfullyConnectedToDatabase, "dialect", DialectSQLite, "path", path)
	return db, nil
}
