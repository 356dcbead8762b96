package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/osse101/BrandishDuels_Go/internal/domain"
	"github.com/osse101/BrandishDuels_Go/internal/duel"
)

// MockDuelService is a testify mock of duel.Service
type MockDuelService struct {
	mock.Mock
}

var _ duel.Service = (*MockDuelService)(nil)

func NewMockDuelService(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockDuelService {
	m := &MockDuelService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockDuelService) CreateChallenge(ctx context.Context, challengerID, opponentID string) (*domain.Challenge, error) {
	args := m.Called(ctx, challengerID, opponentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Challenge), args.Error(1)
}

func (m *MockDuelService) RespondToChallenge(ctx context.Context, challengeID uuid.UUID, userID string, accept bool) (*domain.Challenge, *domain.MatchSnapshot, error) {
	args := m.Called(ctx, challengeID, userID, accept)
	var (
		c    *domain.Challenge
		snap *domain.MatchSnapshot
	)
	if args.Get(0) != nil {
		c = args.Get(0).(*domain.Challenge)
	}
	if args.Get(1) != nil {
		snap = args.Get(1).(*domain.MatchSnapshot)
	}
	return c, snap, args.Error(2)
}

func (m *MockDuelService) CancelChallenge(ctx context.Context, challengeID uuid.UUID, userID string) (*domain.Challenge, error) {
	args := m.Called(ctx, challengeID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Challenge), args.Error(1)
}

func (m *MockDuelService) GetChallenge(ctx context.Context, challengeID uuid.UUID) (*domain.Challenge, error) {
	args := m.Called(ctx, challengeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Challenge), args.Error(1)
}

func (m *MockDuelService) SubmitAction(ctx context.Context, matchID uuid.UUID, userID string, action domain.Action) (*domain.TurnOutcome, error) {
	args := m.Called(ctx, matchID, userID, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TurnOutcome), args.Error(1)
}

func (m *MockDuelService) Forfeit(ctx context.Context, matchID uuid.UUID, userID string) (*domain.MatchResult, error) {
	args := m.Called(ctx, matchID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchResult), args.Error(1)
}

func (m *MockDuelService) GetMatch(ctx context.Context, matchID uuid.UUID) (*domain.MatchSnapshot, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchSnapshot), args.Error(1)
}

func (m *MockDuelService) ActiveFor(ctx context.Context, userID string) (*domain.Engagement, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Engagement), args.Error(1)
}

func (m *MockDuelService) Counts() (challenges, matches int) {
	args := m.Called()
	return args.Int(0), args.Int(1)
}

func (m *MockDuelService) GetBuild(ctx context.Context, userID string) (*domain.HeroBuild, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HeroBuild), args.Error(1)
}

func (m *MockDuelService) SaveBuild(ctx context.Context, build domain.HeroBuild) (*domain.ResolvedStats, error) {
	args := m.Called(ctx, build)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResolvedStats), args.Error(1)
}

func (m *MockDuelService) GetRating(ctx context.Context, userID string) (*domain.RatingRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RatingRecord), args.Error(1)
}

func (m *MockDuelService) GetAchievements(ctx context.Context, userID string) (*domain.AchievementRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AchievementRecord), args.Error(1)
}

func (m *MockDuelService) GetRewardGrants(ctx context.Context, userID string, limit int) ([]domain.RewardGrant, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RewardGrant), args.Error(1)
}

func (m *MockDuelService) GetLeaderboard(ctx context.Context, category domain.LeaderboardCategory, limit int) ([]domain.LeaderboardEntry, error) {
	args := m.Called(ctx, category, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LeaderboardEntry), args.Error(1)
}

func (m *MockDuelService) GetLeaderboardRank(ctx context.Context, userID string, category domain.LeaderboardCategory) (*domain.LeaderboardRank, error) {
	args := m.Called(ctx, userID, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LeaderboardRank), args.Error(1)
}

func (m *MockDuelService) Shutdown(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
