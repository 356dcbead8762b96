package postgres

// PostgreSQL Error Codes
const (
	// PgErrorCodeUniqueViolation is the PostgreSQL error code for unique constraint violations
	PgErrorCodeUniqueViolation = "23505"
)

// Error Messages - Transaction Operations
const (
	ErrMsgFailedToBeginTransaction = "failed to begin transaction"
	ErrMsgFailedToCommit           = "failed to commit transaction"
)

// Error Messages - Duel Records
const (
	ErrMsgFailedToGetBuild        = "failed to get hero build"
	ErrMsgFailedToSaveBuild       = "failed to save hero build"
	ErrMsgFailedToGetRating       = "failed to get rating record"
	ErrMsgFailedToSaveRating      = "failed to save rating record"
	ErrMsgFailedToGetAchievements = "failed to get achievement record"
	ErrMsgFailedToSaveAchieve     = "failed to save achievement record"
	ErrMsgFailedToGetGrants       = "failed to get reward grants"
	ErrMsgFailedToInsertGrants    = "failed to insert reward grants"
	ErrMsgFailedToGetLeaderboard  = "failed to get leaderboard"
	ErrMsgFailedToGetRank         = "failed to get leaderboard rank"
	ErrMsgFailedToSaveMatch       = "failed to save match"
	ErrMsgFailedToGetMatch        = "failed to get match"
	ErrMsgFailedToDecode          = "failed to decode stored record"
)
