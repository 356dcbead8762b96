package domain

import (
	"time"

	"github.com/google/uuid"
)

// AchievementProgress tracks a single achievement for a player
type AchievementProgress struct {
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
	Progress   int        `json:"progress"`
	Target     int        `json:"target"`
}

// AchievementRecord holds all achievement progress for a player. Unlocking is monotonic.
type AchievementRecord struct {
	UserID       string                         `json:"user_id"`
	Achievements map[string]AchievementProgress `json:"achievements"`
}

// NewAchievementRecord returns an empty record
func NewAchievementRecord(userID string) *AchievementRecord {
	return &AchievementRecord{UserID: userID, Achievements: make(map[string]AchievementProgress)}
}

// Clone returns a deep copy
func (r AchievementRecord) Clone() AchievementRecord {
	out := AchievementRecord{UserID: r.UserID, Achievements: make(map[string]AchievementProgress, len(r.Achievements))}
	for k, v := range r.Achievements {
		out.Achievements[k] = v
	}
	return out
}

// Unlocked reports whether the achievement is unlocked
func (r AchievementRecord) Unlocked(id string) bool {
	return r.Achievements[id].Unlocked
}

// Reward sources
const (
	RewardSourceMatch       = "match"
	RewardSourceAchievement = "achievement"
)

// RewardGrant is an instruction to credit a player's resources
type RewardGrant struct {
	UserID   string    `json:"user_id"`
	Source   string    `json:"source"`
	SourceID string    `json:"source_id"`
	MatchID  uuid.UUID `json:"match_id"`
	Resource string    `json:"resource"`
	Amount   int       `json:"amount"`
}

// AchievementUnlock is emitted the first time a player meets an achievement's rule
type AchievementUnlock struct {
	UserID        string        `json:"user_id"`
	AchievementID string        `json:"achievement_id"`
	Name          string        `json:"name"`
	Rewards       []RewardGrant `json:"rewards"`
}

// RecordUpdate is everything persisted atomically for one player after a match
type RecordUpdate struct {
	UserID       string
	Rating       RatingRecord
	Achievements AchievementRecord
	Grants       []RewardGrant
}
