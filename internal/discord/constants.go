package discord

import "time"

// API client configuration
const (
	apiMaxRetries     = 3
	apiInitialBackoff = 500 * time.Millisecond
	apiRequestTimeout = 10 * time.Second
	apiErrorBodyLimit = 4096
	commandTimeout    = 30 * time.Second
)

// SSE client configuration
const (
	sseInitialBackoff    = 1 * time.Second
	sseMaxBackoff        = 30 * time.Second
	sseBackoffMultiplier = 2.0
	sseBufferSize        = 64 * 1024
)

// Notification delivery
const (
	notifyWorkers     = 2
	notifyQueueSize   = 128
	notifySendTimeout = 10 * time.Second
)

// Discord limits
const (
	maxAutocompleteChoices = 25
	maxEmbedFieldLength    = 1024
	leaderboardDefaultSize = 10
	leaderboardMaxSize     = 25
	hpBarWidth             = 10
)

// Embed colors
const (
	ColorPrimary = 0x5865F2
	ColorSuccess = 0x57F287
	ColorWarning = 0xFEE75C
	ColorDanger  = 0xED4245
	ColorGold    = 0xF1C40F
)

// Footer text
const (
	FooterDuels       = "BrandishDuels"
	FooterLeaderboard = "BrandishDuels · Ladder"
)

// User-facing messages
const (
	MsgNoPendingChallenge = "You have no pending challenge to answer."
	MsgNoOwnChallenge     = "You have no open challenge to cancel."
	MsgNotInMatch         = "You are not in a duel right now."
	MsgNotEngaged         = "You are not in a duel and have no pending challenge."
	MsgNoBuild            = "You have no hero build yet. Use /duel-build first."
	MsgNoRating           = "No rated duels yet."
	MsgEmptyLeaderboard   = "The ladder is empty. Be the first to duel!"
	MsgAPIUnavailable     = "The duel service is unavailable. Please try again shortly."
	MsgGenericError       = "Something went wrong. Please try again."
	MsgPong               = "Pong!"
)

// Log messages
const (
	LogMsgCommandReceived  = "Command received"
	LogMsgCommandFailed    = "Command failed"
	LogMsgUnknownCommand   = "Unknown command"
	LogMsgRespondFailed    = "Failed to respond to interaction"
	LogMsgEditFailed       = "Failed to edit interaction response"
	LogMsgCommandsSynced   = "Application commands synced"
	LogMsgCommandsUpToDate = "Application commands already up to date"
	LogMsgBotReady         = "Bot is ready"
	LogMsgAPIRetry         = "Retrying API request"
	LogMsgDigestSent       = "Ladder digest posted"
	LogMsgDigestScheduled  = "Ladder digest scheduled"
	LogMsgRankLookupFailed = "Leaderboard rank lookup failed"

	sseLogMsgClientConnected  = "SSE client connected"
	sseLogMsgClientStopped    = "SSE client stopped"
	sseLogMsgConnectionFailed = "SSE connection failed"
	sseLogMsgParseError       = "Failed to parse SSE event"
	sseLogMsgHandlerError     = "SSE event handler error"
	sseLogMsgNotificationSent = "Discord notification sent"
	sseLogMsgNotificationDrop = "Notification queue full, dropping message"
)
