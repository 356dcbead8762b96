// Package memory is a process-local duel repository for development and tests.
package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/osse101/BrandishDuels_Go/internal/domain"
	"github.com/osse101/BrandishDuels_Go/internal/repository"
)

var errTxClosed = errors.New(domain.ErrMsgTxClosed)

// DuelRepository keeps every record in maps guarded by one mutex
type DuelRepository struct {
	mu           sync.RWMutex
	builds       map[string]domain.HeroBuild
	ratings      map[string]domain.RatingRecord
	achievements map[string]domain.AchievementRecord
	grants       map[string][]domain.RewardGrant
	matches      map[uuid.UUID]domain.MatchRecord
}

var _ repository.Duel = (*DuelRepository)(nil)

// NewDuelRepository creates an empty repository
func NewDuelRepository() *DuelRepository {
	return &DuelRepository{
		builds:       make(map[string]domain.HeroBuild),
		ratings:      make(map[string]domain.RatingRecord),
		achievements: make(map[string]domain.AchievementRecord),
		grants:       make(map[string][]domain.RewardGrant),
		matches:      make(map[uuid.UUID]domain.MatchRecord),
	}
}

// GetBuild returns a copy of the user's build
func (r *DuelRepository) GetBuild(_ context.Context, userID string) (*domain.HeroBuild, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.builds[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrBuildNotFound, userID)
	}
	b.Skills = append([]string(nil), b.Skills...)
	return &b, nil
}

// SaveBuild upserts the user's build
func (r *DuelRepository) SaveBuild(_ context.Context, build domain.HeroBuild) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	build.Skills = append([]string(nil), build.Skills...)
	r.builds[build.UserID] = build
	return nil
}

// GetRating returns nil when the user has no record
func (r *DuelRepository) GetRating(_ context.Context, userID string) (*domain.RatingRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.ratings[userID]
	if !ok {
		return nil, nil
	}
	out := rec.Clone()
	return &out, nil
}

// GetAchievements returns nil when the user has no record
func (r *DuelRepository) GetAchievements(_ context.Context, userID string) (*domain.AchievementRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.achievements[userID]
	if !ok {
		return nil, nil
	}
	out := rec.Clone()
	return &out, nil
}

// GetRewardGrants returns the newest grants first
func (r *DuelRepository) GetRewardGrants(_ context.Context, userID string, limit int) ([]domain.RewardGrant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.grants[userID]
	out := make([]domain.RewardGrant, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// GetLeaderboard ranks players with at least one game in the given category
func (r *DuelRepository) GetLeaderboard(_ context.Context, category domain.LeaderboardCategory, limit int) ([]domain.LeaderboardEntry, error) {
	recs, err := r.ranked(category)
	if err != nil {
		return nil, err
	}
	if len(recs) > limit {
		recs = recs[:limit]
	}

	out := make([]domain.LeaderboardEntry, 0, len(recs))
	for i, rec := range recs {
		out = append(out, domain.LeaderboardEntry{
			Rank:        i + 1,
			UserID:      rec.UserID,
			Rating:      rec.Rating,
			Tier:        rec.Tier,
			Wins:        rec.Wins,
			Losses:      rec.Losses,
			Draws:       rec.Draws,
			GamesPlayed: rec.GamesPlayed,
			WinRate:     rec.WinRate(),
			BestStreak:  rec.BestStreak,
		})
	}
	return out, nil
}

// GetLeaderboardRank returns 0 for users without games
func (r *DuelRepository) GetLeaderboardRank(_ context.Context, userID string, category domain.LeaderboardCategory) (int, error) {
	recs, err := r.ranked(category)
	if err != nil {
		return 0, err
	}
	for i, rec := range recs {
		if rec.UserID == userID {
			return i + 1, nil
		}
	}
	return 0, nil
}

func (r *DuelRepository) ranked(category domain.LeaderboardCategory) ([]domain.RatingRecord, error) {
	before, ok := ladderOrder[category]
	if !ok {
		return nil, fmt.Errorf("%w: unknown leaderboard category '%s'", domain.ErrInvalidInput, category)
	}

	r.mu.RLock()
	recs := make([]domain.RatingRecord, 0, len(r.ratings))
	for _, rec := range r.ratings {
		if rec.GamesPlayed > 0 {
			recs = append(recs, rec)
		}
	}
	r.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool {
		if c := before(recs[i], recs[j]); c != 0 {
			return c < 0
		}
		return recs[i].UserID < recs[j].UserID
	})
	return recs, nil
}

// ladderOrder compares two records per category; negative means a ranks above b
var ladderOrder = map[domain.LeaderboardCategory]func(a, b domain.RatingRecord) int{
	domain.LeaderboardRating: func(a, b domain.RatingRecord) int {
		return cmp.Or(cmp.Compare(b.Rating, a.Rating), cmp.Compare(b.GamesPlayed, a.GamesPlayed))
	},
	domain.LeaderboardWins: func(a, b domain.RatingRecord) int {
		return cmp.Or(cmp.Compare(b.Wins, a.Wins), cmp.Compare(b.Rating, a.Rating))
	},
	domain.LeaderboardWinRate: func(a, b domain.RatingRecord) int {
		return cmp.Or(cmp.Compare(b.WinRate(), a.WinRate()), cmp.Compare(b.GamesPlayed, a.GamesPlayed))
	},
	domain.LeaderboardStreak: func(a, b domain.RatingRecord) int {
		return cmp.Or(cmp.Compare(b.BestStreak, a.BestStreak), cmp.Compare(b.Rating, a.Rating))
	},
}

// SaveMatch stores a finished match. Saving the same match twice is a no-op.
func (r *DuelRepository) SaveMatch(_ context.Context, record domain.MatchRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.matches[record.ID]; !ok {
		r.matches[record.ID] = record
	}
	return nil
}

// GetMatch returns a finished match
func (r *DuelRepository) GetMatch(_ context.Context, id uuid.UUID) (*domain.MatchRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.matches[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrMatchNotFound, id)
	}
	return &rec, nil
}

// BeginDuelTx stages writes until Commit
func (r *DuelRepository) BeginDuelTx(_ context.Context) (repository.DuelTx, error) {
	return &duelTx{repo: r}, nil
}

type duelTx struct {
	repo         *DuelRepository
	matches      []domain.MatchRecord
	ratings      []domain.RatingRecord
	achievements []domain.AchievementRecord
	grants       []domain.RewardGrant
	closed       bool
}

func (t *duelTx) SaveMatch(_ context.Context, record domain.MatchRecord) error {
	if t.closed {
		return errTxClosed
	}
	t.matches = append(t.matches, record)
	return nil
}

func (t *duelTx) SaveRating(_ context.Context, record domain.RatingRecord) error {
	if t.closed {
		return errTxClosed
	}
	t.ratings = append(t.ratings, record.Clone())
	return nil
}

func (t *duelTx) SaveAchievements(_ context.Context, record domain.AchievementRecord) error {
	if t.closed {
		return errTxClosed
	}
	t.achievements = append(t.achievements, record.Clone())
	return nil
}

func (t *duelTx) InsertRewardGrants(_ context.Context, grants []domain.RewardGrant) error {
	if t.closed {
		return errTxClosed
	}
	t.grants = append(t.grants, grants...)
	return nil
}

func (t *duelTx) Commit(_ context.Context) error {
	if t.closed {
		return errTxClosed
	}
	t.closed = true

	r := t.repo
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range t.matches {
		if _, ok := r.matches[m.ID]; !ok {
			r.matches[m.ID] = m
		}
	}
	for _, rec := range t.ratings {
		r.ratings[rec.UserID] = rec
	}
	for _, rec := range t.achievements {
		r.achievements[rec.UserID] = rec
	}
	for _, g := range t.grants {
		r.grants[g.UserID] = append(r.grants[g.UserID], g)
	}
	return nil
}

func (t *duelTx) Rollback(_ context.Context) error {
	if t.closed {
		return errTxClosed
	}
	t.closed = true
	return nil
}
