package domain

import "errors"

// Error message string constants - single source of truth for error messages
// Use these in assert.Contains() checks when testing error messages
const (
	// Engagement errors
	ErrMsgAlreadyEngaged = "user is already engaged in a duel"
	ErrMsgSelfChallenge  = "cannot challenge yourself"
	ErrMsgNotParticipant = "user is not a participant"

	// Build errors
	ErrMsgInvalidBuild  = "invalid hero build"
	ErrMsgBuildNotFound = "hero build not found"

	// Challenge errors
	ErrMsgChallengeNotFound = "challenge not found"
	ErrMsgChallengeExpired  = "challenge has expired"

	// Match errors
	ErrMsgMatchNotFound  = "match not found"
	ErrMsgIllegalAction  = "illegal action"
	ErrMsgMatchFinished  = "match has already finished"
	ErrMsgNotYourTurn    = "not your turn"
	ErrMsgDuplicateID    = "duplicate action id"
	ErrMsgSkillCooldown  = "skill is on cooldown"
	ErrMsgSkillLocked    = "skill is not unlocked"
	ErrMsgSkillNotActive = "skill has no active effect"

	// Catalog errors
	ErrMsgInvalidCatalog = "invalid duel catalog"

	// Database/System errors
	ErrMsgConnectionTimeout = "connection timeout"
	ErrMsgDatabaseError     = "database error"
	ErrMsgTxClosed          = "tx is closed"

	// Input errors
	ErrMsgInvalidInput = "invalid input"
)

// Common domain errors
// These errors should be used consistently across all layers of the application.
// Wrap these errors with fmt.Errorf("%w: %s", domain.ErrXxx, details) for additional context.
var (
	// Engagement errors
	ErrAlreadyEngaged = errors.New(ErrMsgAlreadyEngaged)
	ErrSelfChallenge  = errors.New(ErrMsgSelfChallenge)
	ErrNotParticipant = errors.New(ErrMsgNotParticipant)

	// Build errors
	ErrInvalidBuild  = errors.New(ErrMsgInvalidBuild)
	ErrBuildNotFound = errors.New(ErrMsgBuildNotFound)

	// Challenge errors
	ErrChallengeNotFound = errors.New(ErrMsgChallengeNotFound)
	ErrChallengeExpired  = errors.New(ErrMsgChallengeExpired)

	// Match errors
	ErrMatchNotFound = errors.New(ErrMsgMatchNotFound)
	ErrIllegalAction = errors.New(ErrMsgIllegalAction)

	// Catalog errors
	ErrInvalidCatalog = errors.New(ErrMsgInvalidCatalog)

	// Database errors
	ErrDatabase = errors.New(ErrMsgDatabaseError)

	// Validation errors
	ErrInvalidInput = errors.New(ErrMsgInvalidInput)
)
