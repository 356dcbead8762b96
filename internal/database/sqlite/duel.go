// Package sqlite stores duel records in a single-file SQLite database for small deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/osse101/BrandishDuels_Go/internal/domain"
	"github.com/osse101/BrandishDuels_Go/internal/repository"
)

// DuelRepository implements repository.Duel on database/sql with the sqlite3 driver
type DuelRepository struct {
	db *sql.DB
}

var _ repository.Duel = (*DuelRepository)(nil)

// NewDuelRepository wraps a database opened with database.OpenSQLite
func NewDuelRepository(db *sql.DB) *DuelRepository {
	return &DuelRepository{db: db}
}

// GetBuild returns the user's saved hero build
func (r *DuelRepository) GetBuild(ctx context.Context, userID string) (*domain.HeroBuild, error) {
	var (
		b      domain.HeroBuild
		skills string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, element, rarity, stars, skills, updated_at FROM duel_hero_builds WHERE user_id = ?`,
		userID).Scan(&b.UserID, &b.Element, &b.Rarity, &b.Stars, &skills, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrBuildNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hero build: %w", err)
	}
	if err := json.Unmarshal([]byte(skills), &b.Skills); err != nil {
		return nil, fmt.Errorf("failed to decode skills: %w", err)
	}
	return &b, nil
}

// SaveBuild upserts the user's hero build
func (r *DuelRepository) SaveBuild(ctx context.Context, build domain.HeroBuild) error {
	skills := build.Skills
	if skills == nil {
		skills = []string{}
	}
	data, err := json.Marshal(skills)
	if err != nil {
		return fmt.Errorf("failed to encode skills: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO duel_hero_builds (user_id, element, rarity, stars, skills, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE
		SET element = excluded.element, rarity = excluded.rarity, stars = excluded.stars,
		    skills = excluded.skills, updated_at = excluded.updated_at`,
		build.UserID, string(build.Element), string(build.Rarity), build.Stars, string(data), stamp(build.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save hero build: %w", err)
	}
	return nil
}

// GetRating returns nil when the user has never finished a match
func (r *DuelRepository) GetRating(ctx context.Context, userID string) (*domain.RatingRecord, error) {
	var rec domain.RatingRecord
	found, err := r.getDocument(ctx, `SELECT record FROM duel_ratings WHERE user_id = ?`, userID, &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

// GetAchievements returns nil when the user has no achievement progress
func (r *DuelRepository) GetAchievements(ctx context.Context, userID string) (*domain.AchievementRecord, error) {
	rec := domain.NewAchievementRecord(userID)
	found, err := r.getDocument(ctx, `SELECT record FROM duel_achievements WHERE user_id = ?`, userID, rec)
	if err != nil || !found {
		return nil, err
	}
	return rec, nil
}

func (r *DuelRepository) getDocument(ctx context.Context, query, userID string, into any) (bool, error) {
	var data string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read record for %s: %w", userID, err)
	}
	if err := json.Unmarshal([]byte(data), into); err != nil {
		return false, fmt.Errorf("failed to decode record for %s: %w", userID, err)
	}
	return true, nil
}

// GetRewardGrants returns the user's most recent grants, newest first
func (r *DuelRepository) GetRewardGrants(ctx context.Context, userID string, limit int) ([]domain.RewardGrant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, source, source_id, match_id, resource, amount
		FROM duel_reward_grants
		WHERE user_id = ?
		ORDER BY grant_id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get reward grants: %w", err)
	}
	defer rows.Close()

	grants := make([]domain.RewardGrant, 0)
	for rows.Next() {
		var g domain.RewardGrant
		if err := rows.Scan(&g.UserID, &g.Source, &g.SourceID, &g.MatchID, &g.Resource, &g.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan reward grant: %w", err)
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// ladderOrder is the ORDER BY clause for each leaderboard category
var ladderOrder = map[domain.LeaderboardCategory]string{
	domain.LeaderboardRating:  "rating DESC, games_played DESC, user_id ASC",
	domain.LeaderboardWins:    "wins DESC, rating DESC, user_id ASC",
	domain.LeaderboardWinRate: "CAST(wins AS REAL) / games_played DESC, games_played DESC, user_id ASC",
	domain.LeaderboardStreak:  "best_streak DESC, rating DESC, user_id ASC",
}

func orderFor(category domain.LeaderboardCategory) (string, error) {
	order, ok := ladderOrder[category]
	if !ok {
		return "", fmt.Errorf("%w: unknown leaderboard category '%s'", domain.ErrInvalidInput, category)
	}
	return order, nil
}

// GetLeaderboard ranks players with at least one game in the given category
func (r *DuelRepository) GetLeaderboard(ctx context.Context, category domain.LeaderboardCategory, limit int) ([]domain.LeaderboardEntry, error) {
	order, err := orderFor(category)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, rating, tier, wins, losses, draws, games_played, best_streak
		FROM duel_ratings
		WHERE games_played > 0
		ORDER BY `+order+`
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.LeaderboardEntry, 0, limit)
	for rows.Next() {
		e := domain.LeaderboardEntry{Rank: len(entries) + 1}
		if err := rows.Scan(&e.UserID, &e.Rating, &e.Tier, &e.Wins, &e.Losses, &e.Draws, &e.GamesPlayed, &e.BestStreak); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		e.WinRate = float64(e.Wins) / float64(e.GamesPlayed)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetLeaderboardRank returns the user's position in the category, or 0 when unranked
func (r *DuelRepository) GetLeaderboardRank(ctx context.Context, userID string, category domain.LeaderboardCategory) (int, error) {
	order, err := orderFor(category)
	if err != nil {
		return 0, err
	}
	var rank int
	err = r.db.QueryRowContext(ctx, `
		SELECT position FROM (
			SELECT user_id, ROW_NUMBER() OVER (ORDER BY `+order+`) AS position
			FROM duel_ratings
			WHERE games_played > 0
		)
		WHERE user_id = ?`, userID).Scan(&rank)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get leaderboard rank: %w", err)
	}
	return rank, nil
}

// SaveMatch stores a finished match. Saving the same match twice is a no-op.
func (r *DuelRepository) SaveMatch(ctx context.Context, record domain.MatchRecord) error {
	return insertMatch(ctx, r.db, record)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertMatch(ctx context.Context, db execer, record domain.MatchRecord) error {
	setup, err := json.Marshal(record.Setup)
	if err != nil {
		return fmt.Errorf("failed to encode match setup: %w", err)
	}
	result, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("failed to encode match result: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO duel_matches (match_id, challenge_id, challenger_id, opponent_id, winner_id,
		                          reason, turns, setup, result, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (match_id) DO NOTHING`,
		record.ID.String(), record.ChallengeID.String(), record.ChallengerID, record.OpponentID, record.WinnerID,
		string(record.Result.Reason), record.Result.Turns, string(setup), string(result),
		stamp(record.StartedAt), stamp(record.CompletedAt))
	if err != nil {
		return fmt.Errorf("failed to save match: %w", err)
	}
	return nil
}

// GetMatch returns a finished match by id
func (r *DuelRepository) GetMatch(ctx context.Context, id uuid.UUID) (*domain.MatchRecord, error) {
	var (
		rec    domain.MatchRecord
		winner sql.NullString
		setup  string
		result string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT match_id, challenge_id, challenger_id, opponent_id, winner_id, setup, result, started_at, completed_at
		FROM duel_matches WHERE match_id = ?`, id.String()).
		Scan(&rec.ID, &rec.ChallengeID, &rec.ChallengerID, &rec.OpponentID, &winner, &setup, &result, &rec.StartedAt, &rec.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrMatchNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if winner.Valid {
		rec.WinnerID = &winner.String
	}
	if err := json.Unmarshal([]byte(setup), &rec.Setup); err != nil {
		return nil, fmt.Errorf("failed to decode match setup: %w", err)
	}
	if err := json.Unmarshal([]byte(result), &rec.Result); err != nil {
		return nil, fmt.Errorf("failed to decode match result: %w", err)
	}
	return &rec, nil
}

// BeginDuelTx starts a transaction for one player's post-match writes
func (r *DuelRepository) BeginDuelTx(ctx context.Context) (repository.DuelTx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &duelTx{tx: tx}, nil
}

type duelTx struct {
	tx *sql.Tx
}

func (t *duelTx) Commit(context.Context) error   { return t.tx.Commit() }
func (t *duelTx) Rollback(context.Context) error { return t.tx.Rollback() }

func (t *duelTx) SaveMatch(ctx context.Context, record domain.MatchRecord) error {
	return insertMatch(ctx, t.tx, record)
}

func (t *duelTx) SaveRating(ctx context.Context, rec domain.RatingRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode rating record: %w", err)
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO duel_ratings (user_id, rating, tier, games_played, wins, losses, draws, best_streak, record, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE
		SET rating = excluded.rating, tier = excluded.tier, games_played = excluded.games_played,
		    wins = excluded.wins, losses = excluded.losses, draws = excluded.draws,
		    best_streak = excluded.best_streak, record = excluded.record, updated_at = excluded.updated_at`,
		rec.UserID, rec.Rating, string(rec.Tier), rec.GamesPlayed, rec.Wins, rec.Losses, rec.Draws, rec.BestStreak,
		string(data), stamp(rec.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save rating record: %w", err)
	}
	return nil
}

func (t *duelTx) SaveAchievements(ctx context.Context, rec domain.AchievementRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode achievement record: %w", err)
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO duel_achievements (user_id, record, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE
		SET record = excluded.record, updated_at = excluded.updated_at`,
		rec.UserID, string(data), stamp(time.Time{}))
	if err != nil {
		return fmt.Errorf("failed to save achievement record: %w", err)
	}
	return nil
}

func (t *duelTx) InsertRewardGrants(ctx context.Context, grants []domain.RewardGrant) error {
	if len(grants) == 0 {
		return nil
	}
	stmt, err := t.tx.PrepareContext(ctx, `
		INSERT INTO duel_reward_grants (user_id, source, source_id, match_id, resource, amount, granted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare reward grant insert: %w", err)
	}
	defer stmt.Close()

	now := stamp(time.Time{})
	for _, g := range grants {
		if _, err := stmt.ExecContext(ctx, g.UserID, g.Source, g.SourceID, g.MatchID.String(), g.Resource, g.Amount, now); err != nil {
			return fmt.Errorf("failed to insert reward grant: %w", err)
		}
	}
	return nil
}

// stamp normalises timestamps to UTC, substituting now for the zero time
func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
