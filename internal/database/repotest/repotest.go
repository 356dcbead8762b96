// Package repotest holds the behaviour every repository.Duel backend must share.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/BrandishDuels_Go/internal/domain"
	"github.com/osse101/BrandishDuels_Go/internal/repository"
)

// Factory returns an empty repository for a single subtest
type Factory func(t *testing.T) repository.Duel

var base = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// RunDuelSuite exercises a repository.Duel implementation
func RunDuelSuite(t *testing.T, newRepo Factory) {
	t.Run("Builds", func(t *testing.T) { testBuilds(t, newRepo(t)) })
	t.Run("EmptyRecords", func(t *testing.T) { testEmptyRecords(t, newRepo(t)) })
	t.Run("SaveSettlement", func(t *testing.T) { testSaveSettlement(t, newRepo(t)) })
	t.Run("RollbackDiscards", func(t *testing.T) { testRollback(t, newRepo(t)) })
	t.Run("Leaderboard", func(t *testing.T) { testLeaderboard(t, newRepo(t)) })
	t.Run("LeaderboardRank", func(t *testing.T) { testLeaderboardRank(t, newRepo(t)) })
	t.Run("Matches", func(t *testing.T) { testMatches(t, newRepo(t)) })
}

func testBuilds(t *testing.T, repo repository.Duel) {
	ctx := context.Background()

	_, err := repo.GetBuild(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrBuildNotFound)

	build := domain.HeroBuild{
		UserID:    "alice",
		Element:   domain.ElementFire,
		Rarity:    domain.RarityEpic,
		Stars:     2,
		Skills:    []string{"flame_strike", "fire_wall"},
		UpdatedAt: base,
	}
	require.NoError(t, repo.SaveBuild(ctx, build))

	got, err := repo.GetBuild(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, build.Element, got.Element)
	assert.Equal(t, build.Rarity, got.Rarity)
	assert.Equal(t, build.Stars, got.Stars)
	assert.Equal(t, build.Skills, got.Skills)
	assert.True(t, build.UpdatedAt.Equal(got.UpdatedAt))

	build.Stars = 3
	build.Skills = nil
	require.NoError(t, repo.SaveBuild(ctx, build))
	got, err = repo.GetBuild(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stars)
	assert.Empty(t, got.Skills)
}

func testEmptyRecords(t *testing.T, repo repository.Duel) {
	ctx := context.Background()

	rating, err := repo.GetRating(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, rating)

	ach, err := repo.GetAchievements(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, ach)

	grants, err := repo.GetRewardGrants(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, grants)

	for _, c := range domain.LeaderboardCategories {
		board, err := repo.GetLeaderboard(ctx, c, 10)
		require.NoError(t, err)
		assert.Empty(t, board, c)
	}
}

func outcome(userID string, rating float64, games int, matchID uuid.UUID) domain.RecordUpdate {
	rec := domain.NewRatingRecord(userID)
	rec.Rating = rating
	rec.PeakRating = rating
	rec.GamesPlayed = games
	rec.Wins = games
	rec.ElementWins = map[domain.Element]int{domain.ElementWater: games}
	rec.Recent = []domain.MatchSummary{{MatchID: matchID, OpponentID: "rival", Outcome: domain.OutcomeWin, PlayedAt: base}}
	rec.UpdatedAt = base

	ach := domain.NewAchievementRecord(userID)
	unlockedAt := base
	ach.Achievements["first_blood"] = domain.AchievementProgress{Unlocked: true, UnlockedAt: &unlockedAt, Progress: 1, Target: 1}

	return domain.RecordUpdate{
		UserID:       userID,
		Rating:       *rec,
		Achievements: *ach,
		Grants: []domain.RewardGrant{
			{UserID: userID, Source: domain.RewardSourceMatch, SourceID: "win", MatchID: matchID, Resource: "duel_tokens", Amount: 3},
			{UserID: userID, Source: domain.RewardSourceAchievement, SourceID: "first_blood", MatchID: matchID, Resource: "basic_hero_shards", Amount: 5},
		},
	}
}

func matchFor(id uuid.UUID, challenger, opponent string) domain.MatchRecord {
	return domain.MatchRecord{
		ID:           id,
		ChallengeID:  uuid.New(),
		ChallengerID: challenger,
		OpponentID:   opponent,
		WinnerID:     &challenger,
		Result:       domain.MatchResult{MatchID: id, Reason: domain.EndReasonKnockout, Turns: 6},
		StartedAt:    base,
		CompletedAt:  base.Add(2 * time.Minute),
	}
}

func testSaveSettlement(t *testing.T, repo repository.Duel) {
	ctx := context.Background()
	first, second := uuid.New(), uuid.New()

	require.NoError(t, repository.SaveSettlement(ctx, repo, matchFor(first, "bob", "rival"),
		[]domain.RecordUpdate{outcome("bob", 1020, 1, first)}))
	update := outcome("bob", 1041.5, 2, second)
	update.Grants = update.Grants[:1]
	require.NoError(t, repository.SaveSettlement(ctx, repo, matchFor(second, "bob", "rival"),
		[]domain.RecordUpdate{update, outcome("rival", 980, 2, second)}))

	for _, id := range []uuid.UUID{first, second} {
		m, err := repo.GetMatch(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "bob", m.ChallengerID)
	}

	rating, err := repo.GetRating(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, rating)
	assert.InDelta(t, 1041.5, rating.Rating, 1e-9)
	assert.Equal(t, 2, rating.GamesPlayed)
	assert.Equal(t, 2, rating.ElementWins[domain.ElementWater])
	require.Len(t, rating.Recent, 1)
	assert.Equal(t, second, rating.Recent[0].MatchID)

	rival, err := repo.GetRating(ctx, "rival")
	require.NoError(t, err)
	require.NotNil(t, rival)
	assert.InDelta(t, 980, rival.Rating, 1e-9)

	ach, err := repo.GetAchievements(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, ach)
	assert.True(t, ach.Unlocked("first_blood"))

	grants, err := repo.GetRewardGrants(ctx, "bob", 10)
	require.NoError(t, err)
	require.Len(t, grants, 3)
	assert.Equal(t, second, grants[0].MatchID, "newest first")
	assert.Equal(t, "basic_hero_shards", grants[1].Resource)
	assert.Equal(t, first, grants[2].MatchID)

	limited, err := repo.GetRewardGrants(ctx, "bob", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	// replaying a settled match keeps the original row
	replay := matchFor(second, "someone", "else")
	require.NoError(t, repository.SaveSettlement(ctx, repo, replay, nil))
	m, err := repo.GetMatch(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "bob", m.ChallengerID)
}

func testRollback(t *testing.T, repo repository.Duel) {
	ctx := context.Background()

	tx, err := repo.BeginDuelTx(ctx)
	require.NoError(t, err)
	matchID := uuid.New()
	update := outcome("carol", 1100, 1, matchID)
	require.NoError(t, tx.SaveMatch(ctx, matchFor(matchID, "carol", "dave")))
	require.NoError(t, tx.SaveRating(ctx, update.Rating))
	require.NoError(t, tx.InsertRewardGrants(ctx, update.Grants))
	require.NoError(t, tx.Rollback(ctx))

	// a second rollback is tolerated
	repository.SafeRollback(ctx, tx)

	rating, err := repo.GetRating(ctx, "carol")
	require.NoError(t, err)
	assert.Nil(t, rating)
	grants, err := repo.GetRewardGrants(ctx, "carol", 10)
	require.NoError(t, err)
	assert.Empty(t, grants)
	_, err = repo.GetMatch(ctx, matchID)
	assert.ErrorIs(t, err, domain.ErrMatchNotFound)
}

// ladderRecord is a player with the given rating, results and best streak
func ladderRecord(userID string, rating float64, wins, losses, best int) domain.RecordUpdate {
	u := outcome(userID, rating, wins+losses, uuid.New())
	u.Rating.Wins = wins
	u.Rating.Losses = losses
	u.Rating.BestStreak = best
	u.Grants = nil
	return u
}

func seedLadder(t *testing.T, repo repository.Duel) {
	t.Helper()
	updates := []domain.RecordUpdate{
		ladderRecord("dave", 1000, 3, 0, 3),
		ladderRecord("erin", 1200, 2, 2, 1),
		ladderRecord("frank", 1000, 4, 1, 4),
		ladderRecord("alex", 1000, 1, 2, 1),
		ladderRecord("gina", 1000, 0, 0, 0),
	}
	id := uuid.New()
	require.NoError(t, repository.SaveSettlement(context.Background(), repo, matchFor(id, "dave", "erin"), updates))
}

func testLeaderboard(t *testing.T, repo repository.Duel) {
	ctx := context.Background()
	seedLadder(t, repo)

	tests := []struct {
		category domain.LeaderboardCategory
		want     []string
	}{
		{domain.LeaderboardRating, []string{"erin", "frank", "alex", "dave"}},
		{domain.LeaderboardWins, []string{"frank", "dave", "erin", "alex"}},
		{domain.LeaderboardWinRate, []string{"dave", "frank", "erin", "alex"}},
		{domain.LeaderboardStreak, []string{"frank", "dave", "erin", "alex"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			board, err := repo.GetLeaderboard(ctx, tt.category, 10)
			require.NoError(t, err)

			var order []string
			for i, e := range board {
				assert.Equal(t, i+1, e.Rank)
				order = append(order, e.UserID)
			}
			assert.Equal(t, tt.want, order, "players without games are not ranked")
		})
	}

	board, err := repo.GetLeaderboard(ctx, domain.LeaderboardRating, 10)
	require.NoError(t, err)
	require.Len(t, board, 4)
	assert.Equal(t, 5, board[1].GamesPlayed)
	assert.InDelta(t, 0.8, board[1].WinRate, 1e-9)
	assert.Equal(t, 4, board[1].BestStreak)

	top, err := repo.GetLeaderboard(ctx, domain.LeaderboardWins, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)

	_, err = repo.GetLeaderboard(ctx, "elo", 10)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func testLeaderboardRank(t *testing.T, repo repository.Duel) {
	ctx := context.Background()
	seedLadder(t, repo)

	tests := []struct {
		user     string
		category domain.LeaderboardCategory
		want     int
	}{
		{"erin", domain.LeaderboardRating, 1},
		{"alex", domain.LeaderboardRating, 3},
		{"alex", domain.LeaderboardWinRate, 4},
		{"dave", domain.LeaderboardWinRate, 1},
		{"erin", domain.LeaderboardStreak, 3},
		{"gina", domain.LeaderboardRating, 0},
		{"nobody", domain.LeaderboardWins, 0},
	}
	for _, tt := range tests {
		rank, err := repo.GetLeaderboardRank(ctx, tt.user, tt.category)
		require.NoError(t, err)
		assert.Equal(t, tt.want, rank, "%s by %s", tt.user, tt.category)
	}

	_, err := repo.GetLeaderboardRank(ctx, "erin", "elo")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func testMatches(t *testing.T, repo repository.Duel) {
	ctx := context.Background()

	_, err := repo.GetMatch(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrMatchNotFound)

	id := uuid.New()
	winner := "bob"
	rec := domain.MatchRecord{
		ID:           id,
		ChallengeID:  uuid.New(),
		ChallengerID: "alice",
		OpponentID:   "bob",
		WinnerID:     &winner,
		Setup: domain.MatchSetup{
			Elements: [2]domain.Element{domain.ElementFire, domain.ElementWater},
			Stats: [2]domain.ResolvedStats{
				{ATK: 120, DEF: 40, HP: 700, Speed: 18},
				{ATK: 95, DEF: 55, HP: 1000, Speed: 12},
			},
			MaxTurns: 50,
		},
		Result: domain.MatchResult{
			MatchID:        id,
			Winner:         domain.SideOpponent,
			Reason:         domain.EndReasonKnockout,
			FinalHPPercent: [2]float64{0, 42.5},
			DamageDealt:    [2]int{300, 396},
			Turns:          9,
			Log:            []domain.ActionLogEntry{{Turn: 1, Side: domain.SideChallenger, Event: domain.LogEventAction, Damage: 66, HP: [2]int{396, 606}}},
		},
		StartedAt:   base,
		CompletedAt: base.Add(3 * time.Minute),
	}
	require.NoError(t, repo.SaveMatch(ctx, rec))
	require.NoError(t, repo.SaveMatch(ctx, rec), "saving twice is a no-op")

	got, err := repo.GetMatch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, rec.ChallengeID, got.ChallengeID)
	require.NotNil(t, got.WinnerID)
	assert.Equal(t, "bob", *got.WinnerID)
	assert.Equal(t, 9, got.Result.Turns)
	assert.Equal(t, domain.SideOpponent, got.Result.Winner)
	require.Len(t, got.Result.Log, 1)
	assert.Equal(t, 66, got.Result.Log[0].Damage)
	assert.True(t, rec.CompletedAt.Equal(got.CompletedAt))
	assert.Equal(t, rec.Setup, got.Setup)

	draw := rec
	draw.ID = uuid.New()
	draw.WinnerID = nil
	draw.Result.Draw = true
	require.NoError(t, repo.SaveMatch(ctx, draw))
	got, err = repo.GetMatch(ctx, draw.ID)
	require.NoError(t, err)
	assert.Nil(t, got.WinnerID)
	assert.True(t, got.Result.Draw)
}
