package duel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/osse101/BrandishDuels_Go/internal/achievement"
	"github.com/osse101/BrandishDuels_Go/internal/catalog"
	"github.com/osse101/BrandishDuels_Go/internal/combat"
	"github.com/osse101/BrandishDuels_Go/internal/concurrency"
	"github.com/osse101/BrandishDuels_Go/internal/domain"
	"github.com/osse101/BrandishDuels_Go/internal/event"
	"github.com/osse101/BrandishDuels_Go/internal/hero"
	"github.com/osse101/BrandishDuels_Go/internal/logger"
	"github.com/osse101/BrandishDuels_Go/internal/rating"
	"github.com/osse101/BrandishDuels_Go/internal/repository"
)

// Service defines the interface for duel operations
type Service interface {
	CreateChallenge(ctx context.Context, challengerID, opponentID string) (*domain.Challenge, error)
	// RespondToChallenge accepts or declines. On accept the started match is returned too.
	RespondToChallenge(ctx context.Context, challengeID uuid.UUID, userID string, accept bool) (*domain.Challenge, *domain.MatchSnapshot, error)
	CancelChallenge(ctx context.Context, challengeID uuid.UUID, userID string) (*domain.Challenge, error)
	GetChallenge(ctx context.Context, challengeID uuid.UUID) (*domain.Challenge, error)

	SubmitAction(ctx context.Context, matchID uuid.UUID, userID string, action domain.Action) (*domain.TurnOutcome, error)
	Forfeit(ctx context.Context, matchID uuid.UUID, userID string) (*domain.MatchResult, error)
	GetMatch(ctx context.Context, matchID uuid.UUID) (*domain.MatchSnapshot, error)
	// ActiveFor returns nil when the user has no pending challenge or running match
	ActiveFor(ctx context.Context, userID string) (*domain.Engagement, error)
	// Counts reports pending challenges and running matches
	Counts() (challenges, matches int)

	GetBuild(ctx context.Context, userID string) (*domain.HeroBuild, error)
	SaveBuild(ctx context.Context, build domain.HeroBuild) (*domain.ResolvedStats, error)
	GetRating(ctx context.Context, userID string) (*domain.RatingRecord, error)
	GetAchievements(ctx context.Context, userID string) (*domain.AchievementRecord, error)
	GetRewardGrants(ctx context.Context, userID string, limit int) ([]domain.RewardGrant, error)
	// GetLeaderboard treats an empty category as rating
	GetLeaderboard(ctx context.Context, category domain.LeaderboardCategory, limit int) ([]domain.LeaderboardEntry, error)
	GetLeaderboardRank(ctx context.Context, userID string, category domain.LeaderboardCategory) (*domain.LeaderboardRank, error)

	// Shutdown stops running matches without recording them
	Shutdown(ctx context.Context) error
}

// Config holds the timing and cache settings of the duel service
type Config struct {
	ChallengeTimeout       time.Duration
	TurnTimeout            time.Duration
	MaxConsecutiveTimeouts int
	FinalizeTimeout        time.Duration
	RecordCacheSize        int
	RecordCacheTTL         time.Duration
	HistoryCacheSize       int
	HistoryCacheTTL        time.Duration
}

// DefaultConfig returns production defaults
func DefaultConfig() Config {
	return Config{
		ChallengeTimeout:       DefaultChallengeTimeout,
		TurnTimeout:            DefaultTurnTimeout,
		MaxConsecutiveTimeouts: DefaultMaxConsecutiveTimeouts,
		FinalizeTimeout:        DefaultFinalizeTimeout,
		RecordCacheSize:        DefaultRecordCacheSize,
		RecordCacheTTL:         DefaultRecordCacheTTL,
		HistoryCacheSize:       DefaultHistoryCacheSize,
		HistoryCacheTTL:        DefaultHistoryCacheTTL,
	}
}

// Option customizes the service
type Option func(*service)

// WithClock replaces the wall clock used for challenge and turn deadlines
func WithClock(c clockwork.Clock) Option {
	return func(s *service) { s.clock = c }
}

// WithRNG replaces the per-match random source factory
func WithRNG(newRNG func() combat.RNG) Option {
	return func(s *service) { s.newRNG = newRNG }
}

type service struct {
	cat       *catalog.Catalog
	repo      repository.Duel
	bus       event.Bus
	cfg       Config
	clock     clockwork.Clock
	newRNG    func() combat.RNG
	registry  *Registry
	ratings   *rating.System
	evaluator *achievement.Evaluator
	locks     *concurrency.LockManager
	records   *ratingCache
	finished  *expirable.LRU[uuid.UUID, domain.MatchSnapshot]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a new duel service
func NewService(cat *catalog.Catalog, repo repository.Duel, bus event.Bus, cfg Config, opts ...Option) Service {
	s := &service{
		cat:       cat,
		repo:      repo,
		bus:       bus,
		cfg:       withDefaults(cfg),
		clock:     clockwork.NewRealClock(),
		ratings:   rating.NewSystem(cat.Rating()),
		evaluator: achievement.NewEvaluator(cat),
		locks:     concurrency.NewLockManager(),
	}
	s.newRNG = func() combat.RNG { return combat.NewRNG(time.Now().UnixNano()) }
	for _, opt := range opts {
		opt(s)
	}
	s.registry = NewRegistry(s.clock, s.cfg.HistoryCacheSize, s.cfg.HistoryCacheTTL)
	s.records = newRatingCache(s.cfg.RecordCacheSize, s.cfg.RecordCacheTTL)
	s.finished = expirable.NewLRU[uuid.UUID, domain.MatchSnapshot](s.cfg.HistoryCacheSize, nil, s.cfg.HistoryCacheTTL)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.ChallengeTimeout <= 0 {
		cfg.ChallengeTimeout = def.ChallengeTimeout
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = def.TurnTimeout
	}
	if cfg.MaxConsecutiveTimeouts <= 0 {
		cfg.MaxConsecutiveTimeouts = def.MaxConsecutiveTimeouts
	}
	if cfg.FinalizeTimeout <= 0 {
		cfg.FinalizeTimeout = def.FinalizeTimeout
	}
	if cfg.RecordCacheSize <= 0 {
		cfg.RecordCacheSize = def.RecordCacheSize
	}
	if cfg.RecordCacheTTL <= 0 {
		cfg.RecordCacheTTL = def.RecordCacheTTL
	}
	if cfg.HistoryCacheSize <= 0 {
		cfg.HistoryCacheSize = def.HistoryCacheSize
	}
	if cfg.HistoryCacheTTL <= 0 {
		cfg.HistoryCacheTTL = def.HistoryCacheTTL
	}
	return cfg
}

// CreateChallenge registers a pending challenge that expires after ChallengeTimeout
func (s *service) CreateChallenge(ctx context.Context, challengerID, opponentID string) (*domain.Challenge, error) {
	if challengerID == "" || opponentID == "" {
		return nil, fmt.Errorf("%w: challenger and opponent are required", domain.ErrInvalidInput)
	}
	if challengerID == opponentID {
		return nil, domain.ErrSelfChallenge
	}

	now := s.clock.Now()
	c := domain.Challenge{
		ID:           uuid.New(),
		ChallengerID: challengerID,
		OpponentID:   opponentID,
		State:        domain.ChallengeStatePending,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.cfg.ChallengeTimeout),
	}
	if err := s.registry.Reserve(c, s.expireChallenge); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info(LogMsgChallengeCreated, "challenge_id", c.ID, "challenger", challengerID, "opponent", opponentID)
	s.publish(ctx, event.NewChallengeEvent(c, true))
	return &c, nil
}

func (s *service) expireChallenge(id uuid.UUID) {
	c, ok := s.registry.Expire(id)
	if !ok {
		return
	}
	ctx := context.Background()
	logger.FromContext(ctx).Info(LogMsgChallengeExpired, "challenge_id", id)
	s.publish(ctx, event.NewChallengeEvent(c, false))
}

// RespondToChallenge accepts or declines a pending challenge as its opponent
func (s *service) RespondToChallenge(ctx context.Context, challengeID uuid.UUID, userID string, accept bool) (*domain.Challenge, *domain.MatchSnapshot, error) {
	if !accept {
		c, err := s.registry.Resolve(challengeID, userID, domain.ChallengeStateDeclined)
		if err != nil {
			return nil, nil, err
		}
		s.logResolved(ctx, c)
		s.publish(ctx, event.NewChallengeEvent(c, false))
		return &c, nil, nil
	}

	pending, err := s.registry.BeginAccept(challengeID, userID)
	if err != nil {
		return nil, nil, err
	}

	combatants, err := s.prepareCombatants(ctx, pending)
	if err != nil {
		logger.FromContext(ctx).Warn(LogMsgBuildRejected, "challenge_id", challengeID, "error", err)
		if c, ok := s.registry.AbortAccept(challengeID); ok {
			s.publish(ctx, event.NewChallengeEvent(c, false))
		}
		return nil, nil, err
	}

	engine := combat.NewEngine(uuid.New(), s.cat, combatants[0], combatants[1], s.newRNG())
	a := newArbiter(pending.ID, engine, combatants, arbiterConfig{
		clock:       s.clock,
		turnTimeout: s.cfg.TurnTimeout,
		maxTimeouts: s.cfg.MaxConsecutiveTimeouts,
		maxTurns:    s.cat.Combat().MaxTurns,
		bus:         s.bus,
		onEnd:       s.onMatchEnd,
	})

	c, err := s.registry.Promote(challengeID, a)
	if err != nil {
		return nil, nil, err
	}
	s.logResolved(ctx, c)
	s.publish(ctx, event.NewChallengeEvent(c, false))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		a.run(s.ctx)
	}()

	snap := a.Snapshot()
	return &c, &snap, nil
}

// prepareCombatants loads and resolves both builds. Any failure is reported as ErrInvalidBuild.
func (s *service) prepareCombatants(ctx context.Context, c domain.Challenge) ([2]combat.Combatant, error) {
	var out [2]combat.Combatant
	users := [2]string{c.ChallengerID, c.OpponentID}

	g, gctx := errgroup.WithContext(ctx)
	for i, user := range users {
		g.Go(func() error {
			build, err := s.repo.GetBuild(gctx, user)
			if err != nil {
				if errors.Is(err, domain.ErrBuildNotFound) {
					return fmt.Errorf("%w: %s: %w", domain.ErrInvalidBuild, user, err)
				}
				return fmt.Errorf("%s: %w", ErrContextLoadBuild, err)
			}
			stats, err := hero.Resolve(s.cat, *build)
			if err != nil {
				return fmt.Errorf("%s: %w", user, err)
			}
			rec, err := s.loadRating(gctx, user)
			if err != nil {
				return err
			}
			out[i] = combat.Combatant{
				UserID:  user,
				Element: build.Element,
				Stats:   stats,
				Rating:  rec.Rating,
				Skills:  append([]string(nil), build.Skills...),
			}
			return nil
		})
	}
	return out, g.Wait()
}

// CancelChallenge withdraws a pending challenge; only its challenger may do so
func (s *service) CancelChallenge(ctx context.Context, challengeID uuid.UUID, userID string) (*domain.Challenge, error) {
	c, err := s.registry.Resolve(challengeID, userID, domain.ChallengeStateCancelled)
	if err != nil {
		return nil, err
	}
	s.logResolved(ctx, c)
	s.publish(ctx, event.NewChallengeEvent(c, false))
	return &c, nil
}

// GetChallenge returns a pending or recently resolved challenge
func (s *service) GetChallenge(_ context.Context, challengeID uuid.UUID) (*domain.Challenge, error) {
	c, ok := s.registry.Challenge(challengeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrChallengeNotFound, challengeID)
	}
	return &c, nil
}

// SubmitAction plays the user's action for the current turn
func (s *service) SubmitAction(ctx context.Context, matchID uuid.UUID, userID string, action domain.Action) (*domain.TurnOutcome, error) {
	a, err := s.liveMatch(matchID)
	if err != nil {
		return nil, err
	}
	return a.submit(ctx, userID, action)
}

// Forfeit concedes the match; the other participant wins
func (s *service) Forfeit(ctx context.Context, matchID uuid.UUID, userID string) (*domain.MatchResult, error) {
	a, err := s.liveMatch(matchID)
	if err != nil {
		return nil, err
	}
	out, err := a.forfeit(ctx, userID)
	if err != nil {
		return nil, err
	}
	return out.Result, nil
}

func (s *service) liveMatch(matchID uuid.UUID) (*arbiter, error) {
	if a, ok := s.registry.Match(matchID); ok {
		return a, nil
	}
	if _, ok := s.finished.Get(matchID); ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrIllegalAction, domain.ErrMsgMatchFinished)
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrMatchNotFound, matchID)
}

// GetMatch returns a live snapshot, a recently finished one, or one rebuilt from history
func (s *service) GetMatch(ctx context.Context, matchID uuid.UUID) (*domain.MatchSnapshot, error) {
	if a, ok := s.registry.Match(matchID); ok {
		snap := a.Snapshot()
		return &snap, nil
	}
	if snap, ok := s.finished.Get(matchID); ok {
		return &snap, nil
	}

	rec, err := s.repo.GetMatch(ctx, matchID)
	if err != nil {
		if errors.Is(err, domain.ErrMatchNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", ErrContextLoadMatch, err)
	}
	snap := snapshotFromRecord(*rec)
	return &snap, nil
}

func snapshotFromRecord(rec domain.MatchRecord) domain.MatchSnapshot {
	state := domain.MatchStateCompleted
	if rec.Result.Reason.Forfeited() {
		state = domain.MatchStateForfeited
	}
	result := rec.Result
	snap := domain.MatchSnapshot{
		ID:           rec.ID,
		ChallengeID:  rec.ChallengeID,
		Participants: [2]string{rec.ChallengerID, rec.OpponentID},
		Elements:     rec.Setup.Elements,
		Stats:        rec.Setup.Stats,
		Turn:         rec.Result.Turns,
		MaxTurns:     rec.Setup.MaxTurns,
		State:        state,
		Log:          rec.Result.Log,
		Result:       &result,
		StartedAt:    rec.StartedAt,
	}
	if len(result.Log) > 0 {
		snap.HP = result.Log[len(result.Log)-1].HP
	}
	return snap
}

// ActiveFor returns the user's current engagement
func (s *service) ActiveFor(_ context.Context, userID string) (*domain.Engagement, error) {
	e, ok := s.registry.Active(userID)
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// Counts reports pending challenges and running matches
func (s *service) Counts() (challenges, matches int) {
	return s.registry.Counts()
}

// GetBuild returns the user's saved hero build
func (s *service) GetBuild(ctx context.Context, userID string) (*domain.HeroBuild, error) {
	return s.repo.GetBuild(ctx, userID)
}

// SaveBuild validates and stores a build, returning the stats it resolves to
func (s *service) SaveBuild(ctx context.Context, build domain.HeroBuild) (*domain.ResolvedStats, error) {
	stats, err := hero.Resolve(s.cat, build)
	if err != nil {
		return nil, err
	}
	build.UpdatedAt = s.clock.Now()
	if err := s.repo.SaveBuild(ctx, build); err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetRating returns the user's ladder record, seeded for players without games
func (s *service) GetRating(ctx context.Context, userID string) (*domain.RatingRecord, error) {
	rec, err := s.loadRating(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetAchievements returns the user's achievement progress
func (s *service) GetAchievements(ctx context.Context, userID string) (*domain.AchievementRecord, error) {
	rec, err := s.loadAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetRewardGrants returns the user's most recent reward grants
func (s *service) GetRewardGrants(ctx context.Context, userID string, limit int) ([]domain.RewardGrant, error) {
	return s.repo.GetRewardGrants(ctx, userID, clampLimit(limit))
}

// GetLeaderboard returns the top of the ladder in one category
func (s *service) GetLeaderboard(ctx context.Context, category domain.LeaderboardCategory, limit int) ([]domain.LeaderboardEntry, error) {
	category, err := domain.ParseLeaderboardCategory(string(category))
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.GetLeaderboard(ctx, category, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrContextLeaderboard, err)
	}
	return entries, nil
}

// GetLeaderboardRank returns the user's position in one category; Rank is 0 when unranked
func (s *service) GetLeaderboardRank(ctx context.Context, userID string, category domain.LeaderboardCategory) (*domain.LeaderboardRank, error) {
	category, err := domain.ParseLeaderboardCategory(string(category))
	if err != nil {
		return nil, err
	}
	rank, err := s.repo.GetLeaderboardRank(ctx, userID, category)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrContextLeaderboard, err)
	}
	return &domain.LeaderboardRank{UserID: userID, Category: category, Rank: rank}, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLeaderboardLimit
	case limit > MaxLeaderboardLimit:
		return MaxLeaderboardLimit
	default:
		return limit
	}
}

// Shutdown cancels running matches and waits for their goroutines to exit
func (s *service) Shutdown(ctx context.Context) error {
	s.registry.Close()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		logger.FromContext(ctx).Warn(LogMsgShutdownWaiting)
		return ctx.Err()
	}
}

func (s *service) loadRating(ctx context.Context, userID string) (domain.RatingRecord, error) {
	if rec, ok := s.records.Get(userID); ok {
		return rec, nil
	}
	rec, err := s.repo.GetRating(ctx, userID)
	if err != nil {
		return domain.RatingRecord{}, fmt.Errorf("%s: %w", ErrContextLoadRating, err)
	}
	if rec == nil {
		fresh := domain.NewRatingRecord(userID)
		fresh.Rating = s.ratings.Initial()
		fresh.PeakRating = fresh.Rating
		fresh.Tier = s.ratings.TierFor(fresh.Rating)
		return *fresh, nil
	}
	s.records.Set(*rec)
	return *rec, nil
}

func (s *service) loadAchievements(ctx context.Context, userID string) (domain.AchievementRecord, error) {
	rec, err := s.repo.GetAchievements(ctx, userID)
	if err != nil {
		return domain.AchievementRecord{}, fmt.Errorf("%s: %w", ErrContextLoadAchieve, err)
	}
	if rec == nil {
		return *domain.NewAchievementRecord(userID), nil
	}
	return *rec, nil
}

func (s *service) logResolved(ctx context.Context, c domain.Challenge) {
	logger.FromContext(ctx).Info(LogMsgChallengeResolved, "challenge_id", c.ID, "state", c.State)
}

func (s *service) publish(ctx context.Context, evt event.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, evt); err != nil {
		logger.FromContext(ctx).Warn(LogMsgPublishFailed, "event_type", evt.Type, "error", err)
	}
}
