package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Tier is a named rating band
type Tier string

const (
	TierBronze      Tier = "bronze"
	TierSilver      Tier = "silver"
	TierGold        Tier = "gold"
	TierPlatinum    Tier = "platinum"
	TierDiamond     Tier = "diamond"
	TierMaster      Tier = "master"
	TierGrandmaster Tier = "grandmaster"
)

const (
	// DefaultRating is the seed rating for a player with no games
	DefaultRating = 1000.0
	// RecentMatchesLimit caps the recent match ring kept on a rating record
	RecentMatchesLimit = 10
)

// MatchSummary is a compact entry in a player's recent match history
type MatchSummary struct {
	MatchID         uuid.UUID `json:"match_id"`
	OpponentID      string    `json:"opponent_id"`
	Outcome         string    `json:"outcome"`
	Reason          EndReason `json:"reason"`
	Element         Element   `json:"element"`
	OpponentElement Element   `json:"opponent_element"`
	RatingBefore    float64   `json:"rating_before"`
	RatingAfter     float64   `json:"rating_after"`
	DamageDealt     int       `json:"damage_dealt"`
	DamageTaken     int       `json:"damage_taken"`
	Turns           int       `json:"turns"`
	PlayedAt        time.Time `json:"played_at"`
}

// RatingRecord is a player's persistent ladder profile
type RatingRecord struct {
	UserID        string          `json:"user_id"`
	Rating        float64         `json:"rating"`
	Tier          Tier            `json:"tier"`
	PeakRating    float64         `json:"peak_rating"`
	GamesPlayed   int             `json:"games_played"`
	Wins          int             `json:"wins"`
	Losses        int             `json:"losses"`
	Draws         int             `json:"draws"`
	CurrentStreak int             `json:"current_streak"`
	BestStreak    int             `json:"best_streak"`
	DamageDealt   int             `json:"damage_dealt"`
	DamageTaken   int             `json:"damage_taken"`
	ElementWins   map[Element]int `json:"element_wins"`
	Recent        []MatchSummary  `json:"recent"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewRatingRecord seeds a record for a player with no games
func NewRatingRecord(userID string) *RatingRecord {
	return &RatingRecord{
		UserID:      userID,
		Rating:      DefaultRating,
		Tier:        TierBronze,
		PeakRating:  DefaultRating,
		ElementWins: make(map[Element]int),
	}
}

// Clone returns a deep copy
func (r RatingRecord) Clone() RatingRecord {
	out := r
	out.ElementWins = make(map[Element]int, len(r.ElementWins))
	for k, v := range r.ElementWins {
		out.ElementWins[k] = v
	}
	out.Recent = append([]MatchSummary(nil), r.Recent...)
	return out
}

// WinRate returns wins over games played, or 0 with no games
func (r RatingRecord) WinRate() float64 {
	if r.GamesPlayed == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.GamesPlayed)
}

// TierChange is emitted when a rating update moves a player across a tier boundary
type TierChange struct {
	UserID   string  `json:"user_id"`
	From     Tier    `json:"from"`
	To       Tier    `json:"to"`
	Rating   float64 `json:"rating"`
	Promoted bool    `json:"promoted"`
}

// LeaderboardCategory is the statistic the ladder is ranked by
type LeaderboardCategory string

const (
	LeaderboardRating  LeaderboardCategory = "rating"
	LeaderboardWins    LeaderboardCategory = "wins"
	LeaderboardWinRate LeaderboardCategory = "win_rate"
	LeaderboardStreak  LeaderboardCategory = "streak"
)

// LeaderboardCategories lists every category in display order
var LeaderboardCategories = []LeaderboardCategory{LeaderboardRating, LeaderboardWins, LeaderboardWinRate, LeaderboardStreak}

// Valid reports whether c is a known category
func (c LeaderboardCategory) Valid() bool {
	switch c {
	case LeaderboardRating, LeaderboardWins, LeaderboardWinRate, LeaderboardStreak:
		return true
	}
	return false
}

// ParseLeaderboardCategory maps an empty value to LeaderboardRating and rejects unknown ones
func ParseLeaderboardCategory(s string) (LeaderboardCategory, error) {
	if s == "" {
		return LeaderboardRating, nil
	}
	c := LeaderboardCategory(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown leaderboard category '%s'", ErrInvalidInput, s)
	}
	return c, nil
}

// LeaderboardEntry is one row of the ladder. Only players with at least one game are ranked.
//
// Ordering per category, each ending with user id ascending:
//   - rating: rating, then games played
//   - wins: wins, then rating
//   - win_rate: wins over games played, then games played
//   - streak: best streak, then rating
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	UserID      string  `json:"user_id"`
	Rating      float64 `json:"rating"`
	Tier        Tier    `json:"tier"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Draws       int     `json:"draws"`
	GamesPlayed int     `json:"games_played"`
	WinRate     float64 `json:"win_rate"` // wins over games played, 0..1
	BestStreak  int     `json:"best_streak"`
}

// LeaderboardRank is a single player's position in one category; Rank is 0 when unranked
type LeaderboardRank struct {
	UserID   string              `json:"user_id"`
	Category LeaderboardCategory `json:"category"`
	Rank     int                 `json:"rank"`
}
