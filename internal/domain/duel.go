package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChallengeState represents the state of a challenge
type ChallengeState string

const (
	ChallengeStatePending   ChallengeState = "pending"
	ChallengeStateAccepted  ChallengeState = "accepted"
	ChallengeStateDeclined  ChallengeState = "declined"
	ChallengeStateExpired   ChallengeState = "expired"
	ChallengeStateCancelled ChallengeState = "cancelled"
)

// Terminal reports whether no further transition is possible
func (s ChallengeState) Terminal() bool {
	return s != ChallengeStatePending
}

// Challenge is a pending invitation from one player to another
type Challenge struct {
	ID           uuid.UUID      `json:"id"`
	ChallengerID string         `json:"challenger_id"`
	OpponentID   string         `json:"opponent_id"`
	State        ChallengeState `json:"state"`
	CreatedAt    time.Time      `json:"created_at"`
	ExpiresAt    time.Time      `json:"expires_at"`
	ResolvedAt   *time.Time     `json:"resolved_at,omitempty"`
	MatchID      *uuid.UUID     `json:"match_id,omitempty"`
}

// Involves reports whether the user is either party of the challenge
func (c Challenge) Involves(userID string) bool {
	return c.ChallengerID == userID || c.OpponentID == userID
}

// Side identifies a participant slot in a match
type Side int

const (
	SideChallenger Side = 0
	SideOpponent   Side = 1
)

// Other returns the opposing side
func (s Side) Other() Side {
	return 1 - s
}

func (s Side) String() string {
	if s == SideOpponent {
		return "opponent"
	}
	return "challenger"
}

// MarshalText encodes the side by name
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a side name
func (s *Side) UnmarshalText(text []byte) error {
	switch string(text) {
	case "challenger":
		*s = SideChallenger
	case "opponent":
		*s = SideOpponent
	default:
		return fmt.Errorf("%w: unknown side %q", ErrInvalidInput, string(text))
	}
	return nil
}

// ActionKind is the kind of action a side may take on its turn
type ActionKind string

const (
	ActionBasicAttack ActionKind = "basic_attack"
	ActionDefend      ActionKind = "defend"
	ActionSkill       ActionKind = "skill"
)

// Action is a single turn's choice. ID makes submissions idempotent.
type Action struct {
	ID      string     `json:"id"`
	Kind    ActionKind `json:"kind"`
	SkillID string     `json:"skill_id,omitempty"`
}

// MatchState is the lifecycle state of a match session
type MatchState string

const (
	MatchStateAwaitingAction MatchState = "awaiting_action"
	MatchStateResolving      MatchState = "resolving"
	MatchStateCompleted      MatchState = "completed"
	MatchStateForfeited      MatchState = "forfeited"
)

// EndReason records why a match ended
type EndReason string

const (
	EndReasonKnockout       EndReason = "knockout"
	EndReasonTurnLimit      EndReason = "turn_limit"
	EndReasonForfeit        EndReason = "forfeit"
	EndReasonTimeoutForfeit EndReason = "timeout_forfeit"
)

// Forfeited reports whether the reason is a forfeit of either kind
func (r EndReason) Forfeited() bool {
	return r == EndReasonForfeit || r == EndReasonTimeoutForfeit
}

// LogEvent distinguishes entries in the action log
type LogEvent string

const (
	LogEventAction     LogEvent = "action"
	LogEventStatusTick LogEvent = "status_tick"
	LogEventRegen      LogEvent = "regen"
	LogEventForfeit    LogEvent = "forfeit"
)

// ActionLogEntry is one line of the match log
type ActionLogEntry struct {
	Turn     int        `json:"turn"`
	Side     Side       `json:"side"`
	Event    LogEvent   `json:"event"`
	Action   *Action    `json:"action,omitempty"`
	Auto     bool       `json:"auto,omitempty"`
	Evaded   bool       `json:"evaded,omitempty"`
	Critical bool       `json:"critical,omitempty"`
	Guarded  bool       `json:"guarded,omitempty"`
	Damage   int        `json:"damage,omitempty"`
	Healed   int        `json:"healed,omitempty"`
	Effect   EffectKind `json:"effect,omitempty"`
	HP       [2]int     `json:"hp"`
}

// MatchResult is the immutable outcome of a finished match
type MatchResult struct {
	MatchID        uuid.UUID        `json:"match_id"`
	Draw           bool             `json:"draw"`
	Winner         Side             `json:"winner"`
	Reason         EndReason        `json:"reason"`
	FinalHPPercent [2]float64       `json:"final_hp_percent"`
	DamageDealt    [2]int           `json:"damage_dealt"`
	Turns          int              `json:"turns"`
	Margin         float64          `json:"margin"`
	Log            []ActionLogEntry `json:"log"`
}

// Won reports whether side won the match
func (r MatchResult) Won(side Side) bool {
	return !r.Draw && r.Winner == side
}

// Score is the Elo score for side: 1 for a win, 0.5 for a draw, 0 for a loss
func (r MatchResult) Score(side Side) float64 {
	switch {
	case r.Draw:
		return 0.5
	case r.Winner == side:
		return 1
	default:
		return 0
	}
}

// Outcome returns "win", "loss" or "draw" from side's perspective
func (r MatchResult) Outcome(side Side) string {
	switch {
	case r.Draw:
		return OutcomeDraw
	case r.Winner == side:
		return OutcomeWin
	default:
		return OutcomeLoss
	}
}

const (
	OutcomeWin  = "win"
	OutcomeLoss = "loss"
	OutcomeDraw = "draw"
)

// MatchSnapshot is the readable state of a live or finished match; it is the resume point for clients
type MatchSnapshot struct {
	ID           uuid.UUID         `json:"id"`
	ChallengeID  uuid.UUID         `json:"challenge_id"`
	Participants [2]string         `json:"participants"`
	Elements     [2]Element        `json:"elements"`
	Stats        [2]ResolvedStats  `json:"stats"`
	HP           [2]int            `json:"hp"`
	Turn         int               `json:"turn"`
	MaxTurns     int               `json:"max_turns"`
	Order        [2]Side           `json:"order"`
	Active       Side              `json:"active"`
	State        MatchState        `json:"state"`
	Deadline     *time.Time        `json:"deadline,omitempty"`
	Cooldowns    [2]map[string]int `json:"cooldowns"`
	Log          []ActionLogEntry  `json:"log"`
	Result       *MatchResult      `json:"result,omitempty"`
	StartedAt    time.Time         `json:"started_at"`
}

// SideOf returns the side a user plays in the match
func (s MatchSnapshot) SideOf(userID string) (Side, bool) {
	for i, p := range s.Participants {
		if p == userID {
			return Side(i), true
		}
	}
	return 0, false
}

// TurnOutcome is returned to the submitter of an accepted action
type TurnOutcome struct {
	MatchID  uuid.UUID        `json:"match_id"`
	Entries  []ActionLogEntry `json:"entries"`
	HP       [2]int           `json:"hp"`
	Next     Side             `json:"next"`
	Finished bool             `json:"finished"`
	Result   *MatchResult     `json:"result,omitempty"`
}

// MatchRecord is the persisted history row of a finished match
type MatchRecord struct {
	ID           uuid.UUID   `json:"id"`
	ChallengeID  uuid.UUID   `json:"challenge_id"`
	ChallengerID string      `json:"challenger_id"`
	OpponentID   string      `json:"opponent_id"`
	WinnerID     *string     `json:"winner_id,omitempty"`
	Setup        MatchSetup  `json:"setup"`
	Result       MatchResult `json:"result"`
	StartedAt    time.Time   `json:"started_at"`
	CompletedAt  time.Time   `json:"completed_at"`
}

// MatchSetup is what each side brought into a match, indexed by Side
type MatchSetup struct {
	Elements [2]Element       `json:"elements"`
	Stats    [2]ResolvedStats `json:"stats"`
	MaxTurns int              `json:"max_turns"`
}

// EngagementKind tells whether a user is waiting on a challenge or playing a match
type EngagementKind string

const (
	EngagementChallenge EngagementKind = "challenge"
	EngagementMatch     EngagementKind = "match"
)

// Engagement is a user's single active registry entry
type Engagement struct {
	UserID string         `json:"user_id"`
	Kind   EngagementKind `json:"kind"`
	ID     uuid.UUID      `json:"id"`
}
