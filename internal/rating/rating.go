// Package rating implements the Elo ladder: expected score, K-factor schedule,
// tier table and the per-match profile update.
package rating

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/osse101/BrandishDuels_Go/internal/catalog"
	"github.com/osse101/BrandishDuels_Go/internal/domain"
)

// Game is one finished match from a single player's perspective
type Game struct {
	MatchID         uuid.UUID
	OpponentID      string
	Score           float64
	Reason          domain.EndReason
	Element         domain.Element
	OpponentElement domain.Element
	DamageDealt     int
	DamageTaken     int
	Turns           int
	PlayedAt        time.Time
}

// System applies the rating schedule from the catalog. It holds no mutable state.
type System struct {
	cfg catalog.RatingConfig
}

// NewSystem creates a rating system
func NewSystem(cfg catalog.RatingConfig) *System {
	return &System{cfg: cfg}
}

// Expected is the Elo expected score of a against b
func Expected(a, b float64) float64 {
	return 1 / (1 + math.Pow(10, (b-a)/400))
}

// KFactor returns the K used for a player with gamesPlayed games before this match
func (s *System) KFactor(gamesPlayed int) float64 {
	if gamesPlayed < s.cfg.ProvisionalGames {
		return s.cfg.ProvisionalK
	}
	return s.cfg.EstablishedK
}

// Provisional reports whether a player's rating is still settling
func (s *System) Provisional(gamesPlayed int) bool {
	return gamesPlayed < s.cfg.ProvisionalGames
}

// Initial returns the seed rating for new players
func (s *System) Initial() float64 {
	return s.cfg.InitialRating
}

// Update returns both new ratings for a result where scoreA is 1, 0.5 or 0
func (s *System) Update(scoreA, ratingA, ratingB float64, gamesA, gamesB int) (float64, float64) {
	newA := s.next(ratingA, ratingB, scoreA, gamesA)
	newB := s.next(ratingB, ratingA, 1-scoreA, gamesB)
	return newA, newB
}

func (s *System) next(rating, opponent, score float64, games int) float64 {
	updated := rating + s.KFactor(games)*(score-Expected(rating, opponent))
	return math.Max(s.cfg.Floor, updated)
}

// TierFor maps a rating to its tier
func (s *System) TierFor(r float64) domain.Tier {
	tier := s.cfg.Tiers[0].Tier
	for _, t := range s.cfg.Tiers {
		if r >= t.MinRating {
			tier = t.Tier
		}
	}
	return tier
}

// NextTier returns the next tier above r and the rating it starts at.
// ok is false at the top tier.
func (s *System) NextTier(r float64) (tier domain.Tier, minRating float64, ok bool) {
	for _, t := range s.cfg.Tiers {
		if t.MinRating > r {
			return t.Tier, t.MinRating, true
		}
	}
	return "", 0, false
}

// Apply folds one game into prior and returns the new record plus a tier change if one happened.
// opponentRating must be the opponent's rating before the match.
func (s *System) Apply(prior domain.RatingRecord, opponentRating float64, g Game) (domain.RatingRecord, *domain.TierChange) {
	rec := prior.Clone()
	if rec.ElementWins == nil {
		rec.ElementWins = make(map[domain.Element]int)
	}
	before := prior.Rating
	priorTier := s.TierFor(before)

	rec.Rating = s.next(before, opponentRating, g.Score, prior.GamesPlayed)
	rec.Tier = s.TierFor(rec.Rating)
	rec.PeakRating = math.Max(math.Max(prior.PeakRating, before), rec.Rating)
	rec.GamesPlayed++
	rec.DamageDealt += g.DamageDealt
	rec.DamageTaken += g.DamageTaken
	rec.UpdatedAt = g.PlayedAt

	outcome := domain.OutcomeDraw
	switch g.Score {
	case 1:
		outcome = domain.OutcomeWin
		rec.Wins++
		rec.ElementWins[g.Element]++
		if rec.CurrentStreak < 0 {
			rec.CurrentStreak = 0
		}
		rec.CurrentStreak++
		if rec.CurrentStreak > rec.BestStreak {
			rec.BestStreak = rec.CurrentStreak
		}
	case 0:
		outcome = domain.OutcomeLoss
		rec.Losses++
		if rec.CurrentStreak > 0 {
			rec.CurrentStreak = 0
		}
		rec.CurrentStreak--
	default:
		rec.Draws++
		rec.CurrentStreak = 0
	}

	summary := domain.MatchSummary{
		MatchID:         g.MatchID,
		OpponentID:      g.OpponentID,
		Outcome:         outcome,
		Reason:          g.Reason,
		Element:         g.Element,
		OpponentElement: g.OpponentElement,
		RatingBefore:    before,
		RatingAfter:     rec.Rating,
		DamageDealt:     g.DamageDealt,
		DamageTaken:     g.DamageTaken,
		Turns:           g.Turns,
		PlayedAt:        g.PlayedAt,
	}
	rec.Recent = append([]domain.MatchSummary{summary}, rec.Recent...)
	if len(rec.Recent) > domain.RecentMatchesLimit {
		rec.Recent = rec.Recent[:domain.RecentMatchesLimit]
	}

	if rec.Tier == priorTier {
		return rec, nil
	}
	return rec, &domain.TierChange{
		UserID:   rec.UserID,
		From:     priorTier,
		To:       rec.Tier,
		Rating:   rec.Rating,
		Promoted: rec.Rating > before,
	}
}
