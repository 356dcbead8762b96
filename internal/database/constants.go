package database

import "time"

// Database Connection Pool Constants
const (
	// DefaultMinConnections is the minimum number of connections to maintain in the pool
	DefaultMinConnections = 2
	// PingTimeout bounds the connectivity check after the pool is created
	PingTimeout = 10 * time.Second

	// SQLiteMaxOpenConns serialises writers; SQLite allows one writer at a time
	SQLiteMaxOpenConns = 1
	// SQLiteBusyTimeout is how long a statement waits on a locked database
	SQLiteBusyTimeout = 5 * time.Second
)

// Dialect names a supported SQL backend
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Error Messages - Database Operations
const (
	ErrMsgFailedToParseConnString  = "failed to parse connection string"
	ErrMsgFailedToCreatePool       = "failed to create connection pool"
	ErrMsgFailedToPingDatabase     = "failed to ping database"
	ErrMsgFailedToOpenDatabase     = "failed to open database"
	ErrMsgFailedToConfigureSQLite  = "failed to configure sqlite"
	ErrMsgFailedToLoadMigrations   = "failed to load migrations"
	ErrMsgFailedToApplyMigrations  = "failed to apply migrations"
	ErrMsgUnsupportedDialect       = "unsupported database dialect"
	ErrMsgFailedToBeginTransaction = "failed to begin transaction"
)

// Log Messages
const (
	LogMsgSuccessfullyConnectedToDatabase = "Successfully connected to the database"
	LogMsgMigrationApplied                = "Migration applied"
	LogMsgMigrationsUpToDate              = "Database schema is up to date"
)
