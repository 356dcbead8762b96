package handler

// Generic HTTP error messages for client responses.
// These messages intentionally do not expose internal error details.
// Both handlers and tests should reference these constants to maintain consistency.
const (
	// HTTP status messages
	ErrMsgInvalidRequest        = "Invalid request body"
	ErrMsgInvalidRequestSummary = "Invalid request"

	// Path and query parameter error messages
	ErrMsgMissingQueryParam = "Missing %s query parameter"
	ErrMsgInvalidID         = "Invalid %s"
	ErrMsgInvalidLimit      = "Invalid limit parameter"
	ErrMsgInvalidCategory   = "Invalid leaderboard category"
)

// User-facing messages for service errors
const (
	// Generic messages
	ErrMsgGenericServerError = "Something went wrong"
	ErrMsgUnknownError       = "Unknown error"

	// Engagement messages
	ErrMsgAlreadyEngagedError = "That player is already in a duel or has a pending challenge"
	ErrMsgSelfChallengeError  = "You cannot challenge yourself"
	ErrMsgNotParticipantError = "You are not part of that duel"

	// Build messages
	ErrMsgInvalidBuildError  = "That hero build is not valid"
	ErrMsgBuildNotFoundError = "No hero build saved. Set one up first"

	// Challenge messages
	ErrMsgChallengeNotFoundError = "Challenge not found"
	ErrMsgChallengeExpiredError  = "That challenge is no longer open"

	// Match messages
	ErrMsgMatchNotFoundError = "Match not found"
	ErrMsgIllegalActionError = "That action is not allowed right now"

	// Input messages
	ErrMsgInvalidInputError = "Invalid request. Please check your inputs."
)

// Success and status messages
const (
	MsgChallengeCreated  = "Challenge sent"
	MsgChallengeAccepted = "Challenge accepted, the duel begins"
	MsgChallengeDeclined = "Challenge declined"
	MsgChallengeCanceled = "Challenge cancelled"
	MsgActionAccepted    = "Action accepted"
	MsgMatchForfeited    = "Match forfeited"
	MsgBuildSaved        = "Hero build saved"
	MsgNotEngaged        = "Not in a duel"
	MsgNoRatingYet       = "No rated duels yet"
)

// Log messages
const (
	LogMsgDecodeFailed   = "Failed to decode request"
	LogMsgRequestDecoded = "Request decoded"
	LogMsgServiceError   = "Service call failed"
	LogMsgEncodeFailed   = "Failed to encode JSON response"
	LogMsgWriteFailed    = "Failed to write response buffer"
	LogMsgReadinessFail  = "Readiness check failed"
)
