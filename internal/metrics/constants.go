package metrics

// Metric namespace shared by every collector
const Namespace = "duels"

// HTTP metric names
const (
	MetricNameHTTPRequestsTotal    = "http_requests_total"
	MetricNameHTTPRequestDuration  = "http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight = "http_requests_in_flight"
)

// Event metric names
const (
	MetricNameEventsPublished    = "events_published_total"
	MetricNameEventHandlerErrors = "event_handler_errors_total"
)

// Duel metric names
const (
	MetricNameChallenges         = "challenges_total"
	MetricNameMatchesCompleted   = "matches_completed_total"
	MetricNameMatchTurns         = "match_turns"
	MetricNameTurnTimeouts       = "turn_timeouts_total"
	MetricNameTierChanges        = "tier_changes_total"
	MetricNameAchievementsUnlock = "achievements_unlocked_total"
	MetricNameRewardsGranted     = "rewards_granted_total"
	MetricNamePendingChallenges  = "pending_challenges"
	MetricNameActiveMatches      = "active_matches"
	MetricNameRatingChange       = "rating_change_magnitude"
)

// HTTP metric help text
const (
	HelpTextHTTPRequestsTotal     = "Total number of HTTP requests"
	HelpTextHTTPRequestDuration   = "HTTP request latency in seconds"
	HelpTextHTTPRequestsInFlight  = "Current number of HTTP requests being served"
	HelpTextEventsPublished       = "Total number of duel events observed on the bus"
	HelpTextEventHandlerErrors    = "Total number of event handler errors"
	HelpTextChallenges            = "Challenges by lifecycle state"
	HelpTextMatchesCompleted      = "Finalized matches by end reason"
	HelpTextMatchTurns            = "Turns played per finalized match"
	HelpTextTurnTimeouts          = "Turns auto-played or forfeited after the deadline"
	HelpTextTierChanges           = "Tier promotions and demotions"
	HelpTextAchievementsUnlock    = "Achievement unlocks by achievement id"
	HelpTextRewardsGranted        = "Resource amounts granted by achievements"
	HelpTextPendingChallenges     = "Challenges currently awaiting a response"
	HelpTextActiveMatches         = "Matches currently in progress"
	HelpTextRatingChangeMagnitude = "Absolute rating movement per player per match"
)

// Label names
const (
	LabelMethod      = "method"
	LabelPath        = "path"
	LabelStatus      = "status"
	LabelType        = "type"
	LabelState       = "state"
	LabelReason      = "reason"
	LabelForfeited   = "forfeited"
	LabelDirection   = "direction"
	LabelAchievement = "achievement"
	LabelResource    = "resource"
)

// Tier change directions
const (
	DirectionPromoted = "promoted"
	DirectionDemoted  = "demoted"
)

// HTTPLatencyBuckets range from 1ms to 10s
var HTTPLatencyBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// MatchTurnBuckets cover a knockout on turn one up to the turn limit
var MatchTurnBuckets = []float64{2, 4, 6, 8, 10, 15, 20, 25, 30}

// RatingChangeBuckets cover the K-factor range
var RatingChangeBuckets = []float64{1, 2.5, 5, 10, 15, 20, 30, 40}

// Log messages
const (
	LogMsgPayloadDecodeFailed = "Event payload could not be decoded"
	LogMsgMetricsRecorded     = "Metrics recorded for event"
)

// Middleware label values
const (
	unmatchedRoute         = "unmatched"
	contentTypeEventStream = "text/event-stream"
)
