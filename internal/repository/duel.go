package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/osse101/BrandishDuels_Go/internal/domain"
)

// Duel defines data access for hero builds, ladder records and match history
type Duel interface {
	// GetBuild returns domain.ErrBuildNotFound when the user has no saved build
	GetBuild(ctx context.Context, userID string) (*domain.HeroBuild, error)
	SaveBuild(ctx context.Context, build domain.HeroBuild) error

	// GetRating and GetAchievements return (nil, nil) for players without history
	GetRating(ctx context.Context, userID string) (*domain.RatingRecord, error)
	GetAchievements(ctx context.Context, userID string) (*domain.AchievementRecord, error)
	GetRewardGrants(ctx context.Context, userID string, limit int) ([]domain.RewardGrant, error)
	// GetLeaderboard ranks only players with at least one game
	GetLeaderboard(ctx context.Context, category domain.LeaderboardCategory, limit int) ([]domain.LeaderboardEntry, error)
	// GetLeaderboardRank returns the user's 1-based position, or 0 when unranked
	GetLeaderboardRank(ctx context.Context, userID string, category domain.LeaderboardCategory) (int, error)

	SaveMatch(ctx context.Context, record domain.MatchRecord) error
	// GetMatch returns domain.ErrMatchNotFound for unknown ids
	GetMatch(ctx context.Context, id uuid.UUID) (*domain.MatchRecord, error)

	// Transaction support
	BeginDuelTx(ctx context.Context) (DuelTx, error)
}

// DuelTx persists a finished match and both players' outcomes atomically
type DuelTx interface {
	Tx // Commit, Rollback

	// SaveMatch is a no-op when the match row already exists
	SaveMatch(ctx context.Context, record domain.MatchRecord) error
	SaveRating(ctx context.Context, record domain.RatingRecord) error
	SaveAchievements(ctx context.Context, record domain.AchievementRecord) error
	InsertRewardGrants(ctx context.Context, grants []domain.RewardGrant) error
}

// SaveSettlement writes the match row and every player's RecordUpdate in a single
// transaction, so a failure leaves no partial history behind.
func SaveSettlement(ctx context.Context, repo Duel, record domain.MatchRecord, updates []domain.RecordUpdate) error {
	tx, err := repo.BeginDuelTx(ctx)
	if err != nil {
		return err
	}
	defer SafeRollback(ctx, tx)

	if err := tx.SaveMatch(ctx, record); err != nil {
		return err
	}
	for _, u := range updates {
		if err := tx.SaveRating(ctx, u.Rating); err != nil {
			return fmt.Errorf("%s: %w", u.UserID, err)
		}
		if err := tx.SaveAchievements(ctx, u.Achievements); err != nil {
			return fmt.Errorf("%s: %w", u.UserID, err)
		}
		if err := tx.InsertRewardGrants(ctx, u.Grants); err != nil {
			return fmt.Errorf("%s: %w", u.UserID, err)
		}
	}
	return tx.Commit(ctx)
}
