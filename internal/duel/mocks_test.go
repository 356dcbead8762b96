package duel

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/osse101/BrandishDuels_Go/internal/domain"
	"github.com/osse101/BrandishDuels_Go/internal/repository"
)

// MockDuelRepository is a testify mock of repository.Duel
type MockDuelRepository struct {
	mock.Mock
}

func (m *MockDuelRepository) GetBuild(ctx context.Context, userID string) (*domain.HeroBuild, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HeroBuild), args.Error(1)
}

func (m *MockDuelRepository) SaveBuild(ctx context.Context, build domain.HeroBuild) error {
	return m.Called(ctx, build).Error(0)
}

func (m *MockDuelRepository) GetRating(ctx context.Context, userID string) (*domain.RatingRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RatingRecord), args.Error(1)
}

func (m *MockDuelRepository) GetAchievements(ctx context.Context, userID string) (*domain.AchievementRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AchievementRecord), args.Error(1)
}

func (m *MockDuelRepository) GetRewardGrants(ctx context.Context, userID string, limit int) ([]domain.RewardGrant, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RewardGrant), args.Error(1)
}

func (m *MockDuelRepository) GetLeaderboard(ctx context.Context, category domain.LeaderboardCategory, limit int) ([]domain.LeaderboardEntry, error) {
	args := m.Called(ctx, category, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LeaderboardEntry), args.Error(1)
}

func (m *MockDuelRepository) GetLeaderboardRank(ctx context.Context, userID string, category domain.LeaderboardCategory) (int, error) {
	args := m.Called(ctx, userID, category)
	return args.Int(0), args.Error(1)
}

func (m *MockDuelRepository) SaveMatch(ctx context.Context, record domain.MatchRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *MockDuelRepository) GetMatch(ctx context.Context, id uuid.UUID) (*domain.MatchRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchRecord), args.Error(1)
}

func (m *MockDuelRepository) BeginDuelTx(ctx context.Context) (repository.DuelTx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(repository.DuelTx), args.Error(1)
}
