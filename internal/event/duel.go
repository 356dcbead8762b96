package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/osse101/BrandishDuels_Go/internal/domain"
)

// Duel event types
const (
	DuelChallengeCreated   Type = "duel.challenge.created"
	DuelChallengeAccepted  Type = "duel.challenge.accepted"
	DuelChallengeDeclined  Type = "duel.challenge.declined"
	DuelChallengeExpired   Type = "duel.challenge.expired"
	DuelChallengeCancelled Type = "duel.challenge.cancelled"
	DuelTurnPrompt         Type = "duel.match.turn_prompt"
	DuelTurnTimeout        Type = "duel.match.turn_timeout"
	DuelMatchCompleted     Type = "duel.match.completed"
	DuelTierChanged        Type = "duel.rating.tier_changed"
	DuelAchievementUnlock  Type = "duel.achievement.unlocked"
)

// DuelTypes lists every duel event type, in lifecycle order
var DuelTypes = []Type{
	DuelChallengeCreated,
	DuelChallengeAccepted,
	DuelChallengeDeclined,
	DuelChallengeExpired,
	DuelChallengeCancelled,
	DuelTurnPrompt,
	DuelTurnTimeout,
	DuelMatchCompleted,
	DuelTierChanged,
	DuelAchievementUnlock,
}

// ChallengeTypeFor maps a terminal or created challenge state to its event type
func ChallengeTypeFor(state domain.ChallengeState) Type {
	switch state {
	case domain.ChallengeStateAccepted:
		return DuelChallengeAccepted
	case domain.ChallengeStateDeclined:
		return DuelChallengeDeclined
	case domain.ChallengeStateExpired:
		return DuelChallengeExpired
	case domain.ChallengeStateCancelled:
		return DuelChallengeCancelled
	default:
		return DuelChallengeCreated
	}
}

// ChallengePayloadV1 is the typed payload for every challenge lifecycle event
type ChallengePayloadV1 struct {
	ChallengeID  uuid.UUID             `json:"challenge_id"`
	ChallengerID string                `json:"challenger_id"`
	OpponentID   string                `json:"opponent_id"`
	State        domain.ChallengeState `json:"state"`
	ExpiresAt    time.Time             `json:"expires_at"`
	MatchID      *uuid.UUID            `json:"match_id,omitempty"`
}

// TurnPromptPayloadV1 asks a player to act before the deadline
type TurnPromptPayloadV1 struct {
	MatchID  uuid.UUID   `json:"match_id"`
	UserID   string      `json:"user_id"`
	Side     domain.Side `json:"side"`
	Turn     int         `json:"turn"`
	HP       [2]int      `json:"hp"`
	MaxHP    [2]int      `json:"max_hp"`
	Deadline time.Time   `json:"deadline"`
}

// TurnTimeoutPayloadV1 reports an auto-played turn
type TurnTimeoutPayloadV1 struct {
	MatchID     uuid.UUID `json:"match_id"`
	UserID      string    `json:"user_id"`
	Consecutive int       `json:"consecutive"`
	Forfeited   bool      `json:"forfeited"`
}

// RatingChangeV1 is one player's rating movement in a completed match
type RatingChangeV1 struct {
	UserID string      `json:"user_id"`
	Before float64     `json:"before"`
	After  float64     `json:"after"`
	Tier   domain.Tier `json:"tier"`
}

// MatchCompletedPayloadV1 is published once a match has been finalized and persisted
type MatchCompletedPayloadV1 struct {
	MatchID        uuid.UUID        `json:"match_id"`
	ChallengerID   string           `json:"challenger_id"`
	OpponentID     string           `json:"opponent_id"`
	WinnerID       string           `json:"winner_id,omitempty"`
	Draw           bool             `json:"draw"`
	Reason         domain.EndReason `json:"reason"`
	Turns          int              `json:"turns"`
	FinalHPPercent [2]float64       `json:"final_hp_percent"`
	RatingChanges  []RatingChangeV1 `json:"rating_changes"`
}

// TierChangedPayloadV1 is published when a player crosses a tier boundary
type TierChangedPayloadV1 struct {
	UserID   string      `json:"user_id"`
	From     domain.Tier `json:"from"`
	To       domain.Tier `json:"to"`
	Rating   float64     `json:"rating"`
	Promoted bool        `json:"promoted"`
}

// RewardV1 is a granted resource amount
type RewardV1 struct {
	Resource string `json:"resource"`
	Amount   int    `json:"amount"`
}

// AchievementUnlockedPayloadV1 is published for each newly unlocked achievement
type AchievementUnlockedPayloadV1 struct {
	UserID        string     `json:"user_id"`
	AchievementID string     `json:"achievement_id"`
	Name          string     `json:"name"`
	Rewards       []RewardV1 `json:"rewards"`
}

// NewChallengeEvent creates a challenge lifecycle event for the challenge's current state
func NewChallengeEvent(c domain.Challenge, created bool) Event {
	t := ChallengeTypeFor(c.State)
	if created {
		t = DuelChallengeCreated
	}
	return Event{
		Version: EventSchemaVersion,
		Type:    t,
		Payload: ChallengePayloadV1{
			ChallengeID:  c.ID,
			ChallengerID: c.ChallengerID,
			OpponentID:   c.OpponentID,
			State:        c.State,
			ExpiresAt:    c.ExpiresAt,
			MatchID:      c.MatchID,
		},
		Metadata: Metadata{"challenge_id": c.ID.String()},
	}
}

// NewTurnPromptEvent creates a turn prompt event
func NewTurnPromptEvent(p TurnPromptPayloadV1) Event {
	return Event{
		Version:  EventSchemaVersion,
		Type:     DuelTurnPrompt,
		Payload:  p,
		Metadata: Metadata{"match_id": p.MatchID.String()},
	}
}

// NewTurnTimeoutEvent creates a turn timeout event
func NewTurnTimeoutEvent(matchID uuid.UUID, userID string, consecutive int, forfeited bool) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    DuelTurnTimeout,
		Payload: TurnTimeoutPayloadV1{
			MatchID:     matchID,
			UserID:      userID,
			Consecutive: consecutive,
			Forfeited:   forfeited,
		},
		Metadata: Metadata{"match_id": matchID.String()},
	}
}

// NewMatchCompletedEvent creates a match completed event
func NewMatchCompletedEvent(p MatchCompletedPayloadV1) Event {
	return Event{
		Version:  EventSchemaVersion,
		Type:     DuelMatchCompleted,
		Payload:  p,
		Metadata: Metadata{"match_id": p.MatchID.String()},
	}
}

// NewTierChangedEvent creates a tier changed event
func NewTierChangedEvent(c domain.TierChange) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    DuelTierChanged,
		Payload: TierChangedPayloadV1{
			UserID:   c.UserID,
			From:     c.From,
			To:       c.To,
			Rating:   c.Rating,
			Promoted: c.Promoted,
		},
	}
}

// NewAchievementUnlockedEvent creates an achievement unlocked event
func NewAchievementUnlockedEvent(u domain.AchievementUnlock) Event {
	rewards := make([]RewardV1, 0, len(u.Rewards))
	for _, r := range u.Rewards {
		rewards = append(rewards, RewardV1{Resource: r.Resource, Amount: r.Amount})
	}
	return Event{
		Version: EventSchemaVersion,
		Type:    DuelAchievementUnlock,
		Payload: AchievementUnlockedPayloadV1{
			UserID:        u.UserID,
			AchievementID: u.AchievementID,
			Name:          u.Name,
			Rewards:       rewards,
		},
	}
}
