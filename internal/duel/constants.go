package duel

import "time"

// Timing defaults
const (
	DefaultChallengeTimeout       = 5 * time.Minute
	DefaultTurnTimeout            = 30 * time.Second
	DefaultMaxConsecutiveTimeouts = 3
	DefaultFinalizeTimeout        = 10 * time.Second
)

// Cache defaults
const (
	DefaultRecordCacheSize   = 1000
	DefaultRecordCacheTTL    = 10 * time.Minute
	DefaultHistoryCacheSize  = 1000
	DefaultHistoryCacheTTL   = 30 * time.Minute
	DefaultLeaderboardLimit  = 10
	MaxLeaderboardLimit      = 100
	recordCacheSchemaVersion = "1.0"
)

// Log messages
const (
	LogMsgChallengeCreated  = "Duel challenge created"
	LogMsgChallengeResolved = "Duel challenge resolved"
	LogMsgChallengeExpired  = "Duel challenge expired"
	LogMsgMatchStarted      = "Duel match started"
	LogMsgMatchEnded        = "Duel match ended"
	LogMsgMatchAborted      = "Duel match aborted by shutdown"
	LogMsgTurnTimeout       = "Turn timed out, auto-playing basic attack"
	LogMsgTimeoutForfeit    = "Consecutive turn timeouts, forfeiting match"
	LogMsgFinalizeFailed    = "Failed to finalize match"
	LogMsgPublishFailed     = "Failed to publish duel event"
	LogMsgBuildRejected     = "Hero build rejected at acceptance, cancelling challenge"
	LogMsgShutdownWaiting   = "Waiting for duel matches to stop"
)

// Error context prefixes
const (
	ErrContextLoadBuild      = "failed to load hero build"
	ErrContextLoadRating     = "failed to load rating"
	ErrContextLoadAchieve    = "failed to load achievements"
	ErrContextSaveSettlement = "failed to save match settlement"
	ErrContextLoadMatch      = "failed to load match"
	ErrContextLeaderboard    = "failed to load leaderboard"
)
