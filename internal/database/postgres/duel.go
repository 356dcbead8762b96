package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osse101/BrandishDuels_Go/internal/domain"
	"github.com/osse101/BrandishDuels_Go/internal/repository"
)

// DuelRepository implements repository.Duel for PostgreSQL
type DuelRepository struct {
	db *pgxpool.Pool
}

var _ repository.Duel = (*DuelRepository)(nil)

// NewDuelRepository creates a new DuelRepository
func NewDuelRepository(db *pgxpool.Pool) *DuelRepository {
	return &DuelRepository{db: db}
}

// GetBuild returns the user's saved hero build
func (r *DuelRepository) GetBuild(ctx context.Context, userID string) (*domain.HeroBuild, error) {
	query := `
		SELECT user_id, element, rarity, stars, skills, updated_at
		FROM duel_hero_builds
		WHERE user_id = $1
	`
	var (
		b      domain.HeroBuild
		skills []byte
	)
	err := r.db.QueryRow(ctx, query, userID).Scan(&b.UserID, &b.Element, &b.Rarity, &b.Stars, &skills, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrBuildNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToGetBuild, err)
	}
	if err := decodeJSON(skills, &b.Skills); err != nil {
		return nil, err
	}
	return &b, nil
}

// SaveBuild upserts the user's hero build
func (r *DuelRepository) SaveBuild(ctx context.Context, build domain.HeroBuild) error {
	skills := build.Skills
	if skills == nil {
		skills = []string{}
	}
	data, err := encodeJSON(skills)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO duel_hero_builds (user_id, element, rarity, stars, skills, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET element = EXCLUDED.element, rarity = EXCLUDED.rarity, stars = EXCLUDED.stars,
		    skills = EXCLUDED.skills, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.Exec(ctx, query, build.UserID, build.Element, build.Rarity, build.Stars, data, nonZero(build.UpdatedAt)); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToSaveBuild, err)
	}
	return nil
}

// GetRating returns nil when the user has never finished a match
func (r *DuelRepository) GetRating(ctx context.Context, userID string) (*domain.RatingRecord, error) {
	var data []byte
	err := r.db.QueryRow(ctx, `SELECT record FROM duel_ratings WHERE user_id = $1`, userID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToGetRating, err)
	}
	var rec domain.RatingRecord
	if err := decodeJSON(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetAchievements returns nil when the user has no achievement progress
func (r *DuelRepository) GetAchievements(ctx context.Context, userID string) (*domain.AchievementRecord, error) {
	var data []byte
	err := r.db.QueryRow(ctx, `SELECT record FROM duel_achievements WHERE user_id = $1`, userID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToGetAchievements, err)
	}
	rec := domain.NewAchievementRecord(userID)
	if err := decodeJSON(data, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetRewardGrants returns the user's most recent grants, newest first
func (r *DuelRepository) GetRewardGrants(ctx context.Context, userID string, limit int) ([]domain.RewardGrant, error) {
	query := `
		SELECT user_id, source, source_id, match_id, resource, amount
		FROM duel_reward_grants
		WHERE user_id = $1
		ORDER BY grant_id DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToGetGrants, err)
	}
	defer rows.Close()

	grants := make([]domain.RewardGrant, 0)
	for rows.Next() {
		var g domain.RewardGrant
		if err := rows.Scan(&g.UserID, &g.Source, &g.SourceID, &g.MatchID, &g.Resource, &g.Amount); err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedToGetGrants, err)
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToGetGrants, err)
	}
	return grants, nil
}

// ladderOrder is the ORDER BY clause for each leaderboard category
var ladderOrder = map[domain.LeaderboardCategory]string{
	domain.LeaderboardRating:  "rating DESC, games_played DESC, user_id ASC",
	domain.LeaderboardWins:    "wins DESC, rating DESC, user_id ASC",
	domain.LeaderboardWinRate: "wins::DOUBLE PRECISION / games_played DESC, games_played DESC, user_id ASC",
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
	query := `
		SELECT user_id, rating, tier, wins, losses, draws, games_played, best_streak
		FROM duel_ratings
		WHERE games_played > 0
		ORDER BY ` + order + `
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToGetLeaderboard, err)
	}
	defer rows.Close()

	entries := make([]domain.LeaderboardEntry, 0, limit)
	for rows.Next() {
		e := domain.LeaderboardEntry{Rank: len(entries) + 1}
		if err := rows.Scan(&e.UserID, &e.Rating, &e.Tier, &e.Wins, &e.Losses, &e.Draws, &e.GamesPlayed, &e.BestStreak); err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedToGetLeaderboard, err)
		}
		e.WinRate = float64(e.Wins) / float64(e.GamesPlayed)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToGetLeaderboard, err)
	}
	return entries, nil
}

// GetLeaderboardRank returns the user's position in the category, or 0 when unranked
func (r *DuelRepository) GetLeaderboardRank(ctx context.Context, userID string, category domain.LeaderboardCategory) (int, error) {
	order, err := orderFor(category)
	if err != nil {
		return 0, err
	}
	query := `
		SELECT position FROM (
			SELECT user_id, ROW_NUMBER() OVER (ORDER BY ` + order + `) AS position
			FROM duel_ratings
			WHERE games_played > 0
		) ladder
		WHERE user_id = $1
	`
	var rank int
	err = r.db.QueryRow(ctx, query, userID).Scan(&rank)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ErrMsgFailedToGetRank, err)
	}
	return rank, nil
}

// SaveMatch stores a finished match. Saving the same match twice is a no-op.
func (r *DuelRepository) SaveMatch(ctx context.Context, record domain.MatchRecord) error {
	args, err := matchArgs(record)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, insertMatchQuery, args...)
	if isUniqueViolation(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToSaveMatch, err)
	}
	return nil
}

const insertMatchQuery = `
	INSERT INTO duel_matches (match_id, challenge_id, challenger_id, opponent_id, winner_id,
	                          reason, turns, setup, result, started_at, completed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

func matchArgs(record domain.MatchRecord) ([]any, error) {
	setup, err := encodeJSON(record.Setup)
	if err != nil {
		return nil, err
	}
	result, err := encodeJSON(record.Result)
	if err != nil {
		return nil, err
	}
	return []any{record.ID, record.ChallengeID, record.ChallengerID, record.OpponentID, record.WinnerID,
		record.Result.Reason, record.Result.Turns, setup, result, record.StartedAt, record.CompletedAt}, nil
}

// GetMatch returns a finished match by id
func (r *DuelRepository) GetMatch(ctx context.Context, id uuid.UUID) (*domain.MatchRecord, error) {
	query := `
		SELECT match_id, challenge_id, challenger_id, opponent_id, winner_id, setup, result, started_at, completed_at
		FROM duel_matches
		WHERE match_id = $1
	`
	var (
		rec    domain.MatchRecord
		setup  []byte
		result []byte
	)
	err := r.db.QueryRow(ctx, query, id).Scan(&rec.ID, &rec.ChallengeID, &rec.ChallengerID, &rec.OpponentID,
		&rec.WinnerID, &setup, &result, &rec.StartedAt, &rec.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrMatchNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToGetMatch, err)
	}
	if err := decodeJSON(setup, &rec.Setup); err != nil {
		return nil, err
	}
	if err := decodeJSON(result, &rec.Result); err != nil {
		return nil, err
	}
	return &rec, nil
}

// BeginDuelTx starts a transaction for one player's post-match writes
func (r *DuelRepository) BeginDuelTx(ctx context.Context) (repository.DuelTx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToBeginTransaction, err)
	}
	return &duelTx{tx: tx}, nil
}

type duelTx struct {
	tx pgx.Tx
}

func (t *duelTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *duelTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// SaveMatch inserts the match row inside the transaction; an existing row is kept
func (t *duelTx) SaveMatch(ctx context.Context, record domain.MatchRecord) error {
	args, err := matchArgs(record)
	if err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx, insertMatchQuery+" ON CONFLICT (match_id) DO NOTHING", args...); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToSaveMatch, err)
	}
	return nil
}

func (t *duelTx) SaveRating(ctx context.Context, rec domain.RatingRecord) error {
	data, err := encodeJSON(rec)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO duel_ratings (user_id, rating, tier, games_played, wins, losses, draws, best_streak, record, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE
		SET rating = EXCLUDED.rating, tier = EXCLUDED.tier, games_played = EXCLUDED.games_played,
		    wins = EXCLUDED.wins, losses = EXCLUDED.losses, draws = EXCLUDED.draws,
		    best_streak = EXCLUDED.best_streak, record = EXCLUDED.record, updated_at = EXCLUDED.updated_at
	`
	_, err = t.tx.Exec(ctx, query, rec.UserID, rec.Rating, rec.Tier, rec.GamesPlayed,
		rec.Wins, rec.Losses, rec.Draws, rec.BestStreak, data, nonZero(rec.UpdatedAt))
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToSaveRating, err)
	}
	return nil
}

func (t *duelTx) SaveAchievements(ctx context.Context, rec domain.AchievementRecord) error {
	data, err := encodeJSON(rec)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO duel_achievements (user_id, record, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET record = EXCLUDED.record, updated_at = EXCLUDED.updated_at
	`
	if _, err := t.tx.Exec(ctx, query, rec.UserID, data); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToSaveAchieve, err)
	}
	return nil
}

func (t *duelTx) InsertRewardGrants(ctx context.Context, grants []domain.RewardGrant) error {
	if len(grants) == 0 {
		return nil
	}
	query := `
		INSERT INTO duel_reward_grants (user_id, source, source_id, match_id, resource, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	batch := &pgx.Batch{}
	for _, g := range grants {
		batch.Queue(query, g.UserID, g.Source, g.SourceID, g.MatchID, g.Resource, g.Amount)
	}
	results := t.tx.SendBatch(ctx, batch)
	for range grants {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("%s: %w", ErrMsgFailedToInsertGrants, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToInsertGrants, err)
	}
	return nil
}

func nonZero(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
