package bootstrap

import "time"

// =============================================================================
// File System Permissions
// =============================================================================

const (
	// DirPermission is the standard permission for creating directories
	DirPermission = 0755
)

// =============================================================================
// Logger Configuration
// =============================================================================

const (
	// LogFileName is the active log file; rotated siblings get a timestamp suffix
	LogFileName = "duels.log"
)

// Log messages for logger initialization
const (
	LogMsgLoggingInitialized  = "Logging initialized"
	LogMsgStartingService     = "Starting Brandish Duels"
	LogMsgConfigurationLoaded = "Configuration loaded"
	LogMsgFailedCreateLogsDir = "failed to create logs directory"
)

// =============================================================================
// Event System Configuration
// =============================================================================

const (
	// EventDefaultMaxRetries is the default number of retry attempts for failed event publishing
	EventDefaultMaxRetries = 5

	// EventDefaultRetryDelay is the default base delay between retry attempts (exponential backoff)
	EventDefaultRetryDelay = 2 * time.Second

	// EventDefaultDeadLetterPath is the default file path for dead-letter event logging
	EventDefaultDeadLetterPath = "logs/event_deadletter.jsonl"
)

// Log messages for event system initialization
const (
	LogMsgEventSystemInitialized         = "Event system initialized"
	LogMsgFailedCreateDeadLetterDir      = "failed to create dead-letter directory"
	LogMsgFailedCreateResilientPublisher = "failed to create resilient publisher"
)

// =============================================================================
// Catalog and Storage
// =============================================================================

const (
	LogMsgCatalogLoaded     = "Duel catalog loaded"
	LogMsgStorageReady      = "Storage backend ready"
	ErrMsgFailedLoadCatalog = "failed to load duel catalog"
	ErrMsgFailedOpenStorage = "failed to open storage backend"
	ErrMsgFailedMigrate     = "failed to migrate database"
	ErrMsgUnknownDialect    = "unknown storage dialect"
	CatalogSourceEmbedded   = "embedded"
)

// =============================================================================
// Event Handler Configuration
// =============================================================================

const (
	LogMsgMetricsCollectorRegistered = "Metrics collector registered"
	LogMsgSSESubscriberRegistered    = "SSE subscriber registered"
	ErrMsgFailedRegisterGauges       = "failed to register session gauges"
)

// =============================================================================
// Shutdown Messages
// =============================================================================

const (
	LogMsgShuttingDownServer         = "Shutting down server..."
	LogMsgShuttingDownDuels          = "Waiting for running matches to stop..."
	LogMsgShuttingDownEventPublisher = "Shutting down event publisher..."
	LogMsgServerStopped              = "Server stopped"
	LogMsgServerForcedShutdown       = "Server forced to shutdown"
	LogMsgResilientPublisherFailed   = "Resilient publisher shutdown failed"
	LogMsgDuelShutdownFailed         = "Duel service shutdown failed"
	LogMsgStorageClosed              = "Storage closed"
)
