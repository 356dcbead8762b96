package config

import "time"

// Defaults applied when the environment leaves a setting unset
const (
	DefaultEnvironment     = "dev"
	DefaultServiceName     = "brandish-duels"
	DefaultPort            = "8080"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultLogDir          = "logs"
	DefaultLogMaxSizeMB    = 50
	DefaultLogMaxBackups   = 9
	DefaultLogMaxAgeDays   = 28
	DefaultDBDialect       = DialectPostgres
	DefaultDBName          = "brandishduels"
	DefaultDBMaxConns      = 20
	DefaultDBMaxConnIdle   = 5 * time.Minute
	DefaultDBMaxConnLife   = time.Hour
	DefaultSQLitePath      = "data/duels.db"
	DefaultShutdownTimeout = 10 * time.Second
)

// Storage dialects
const (
	DialectMemory   = "memory"
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

const ErrMsgInvalidConfig = "invalid configuration"
