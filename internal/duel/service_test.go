package duel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/osse101/BrandishDuels_Go/internal/catalog"
	"github.com/osse101/BrandishDuels_Go/internal/combat"
	"github.com/osse101/BrandishDuels_Go/internal/database/memory"
	"github.com/osse101/BrandishDuels_Go/internal/domain"
	"github.com/osse101/BrandishDuels_Go/internal/event"
	"github.com/osse101/BrandishDuels_Go/internal/repository"
	"github.com/osse101/BrandishDuels_Go/internal/testing/leaktest"
)

var epoch = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// alice is faster than bob, so she always acts first
var (
	aliceBuild = domain.HeroBuild{UserID: "alice", Element: domain.ElementAir, Rarity: domain.RarityRare, Stars: 2, Skills: []string{"wind_slash"}}
	bobBuild   = domain.HeroBuild{UserID: "bob", Element: domain.ElementWater, Rarity: domain.RarityEpic, Stars: 3}
)

type eventRecorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *eventRecorder) handle(_ context.Context, e event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) count(t event.Type) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func (r *eventRecorder) last(t event.Type) (event.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == t {
			return r.events[i], true
		}
	}
	return event.Event{}, false
}

type harness struct {
	svc    *service
	repo   *memory.DuelRepository
	clock  *clockwork.FakeClock
	events *eventRecorder
}

func newHarness(t *testing.T, repo repository.Duel) *harness {
	t.Helper()

	clock := clockwork.NewFakeClockAt(epoch)
	bus := event.NewMemoryBus()
	rec := &eventRecorder{}
	event.SubscribeAll(bus, event.DuelTypes, rec.handle)

	h := &harness{clock: clock, events: rec}
	if repo == nil {
		mem := memory.NewDuelRepository()
		require.NoError(t, mem.SaveBuild(context.Background(), aliceBuild))
		require.NoError(t, mem.SaveBuild(context.Background(), bobBuild))
		h.repo = mem
		repo = mem
	}

	svc := NewService(catalog.MustDefault(), repo, bus, Config{
		ChallengeTimeout: time.Minute,
		TurnTimeout:      30 * time.Second,
	}, WithClock(clock), WithRNG(func() combat.RNG { return combat.NewRNG(7) }))
	h.svc = svc.(*service)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = h.svc.Shutdown(ctx)
	})
	return h
}

// startMatch runs a challenge from alice to bob through acceptance
func (h *harness) startMatch(t *testing.T) *domain.MatchSnapshot {
	t.Helper()
	ctx := context.Background()

	c, err := h.svc.CreateChallenge(ctx, "alice", "bob")
	require.NoError(t, err)
	accepted, snap, err := h.svc.RespondToChallenge(ctx, c.ID, "bob", true)
	require.NoError(t, err)
	require.Equal(t, domain.ChallengeStateAccepted, accepted.State)
	require.NotNil(t, snap)
	require.Equal(t, snap.ID, *accepted.MatchID)
	return snap
}

func (h *harness) waitReleased(t *testing.T, users ...string) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, u := range users {
			if e, _ := h.svc.ActiveFor(context.Background(), u); e != nil {
				return false
			}
		}
		return true
	}, 2*time.Second, 5*time.Millisecond)
}

func basic(id string) domain.Action {
	return domain.Action{ID: id, Kind: domain.ActionBasicAttack}
}

func TestCreateChallenge_Validation(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.svc.CreateChallenge(ctx, "alice", "alice")
	assert.ErrorIs(t, err, domain.ErrSelfChallenge)

	_, err = h.svc.CreateChallenge(ctx, "", "bob")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateChallenge_AlreadyEngaged(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	c, err := h.svc.CreateChallenge(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.ChallengeStatePending, c.State)
	assert.Equal(t, epoch.Add(time.Minute), c.ExpiresAt)

	_, err = h.svc.CreateChallenge(ctx, "alice", "carol")
	assert.ErrorIs(t, err, domain.ErrAlreadyEngaged)
	_, err = h.svc.CreateChallenge(ctx, "carol", "bob")
	assert.ErrorIs(t, err, domain.ErrAlreadyEngaged)

	e, err := h.svc.ActiveFor(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, domain.EngagementChallenge, e.Kind)
	assert.Equal(t, c.ID, e.ID)
	assert.Equal(t, 1, h.events.count(event.DuelChallengeCreated))
}

func TestChallenge_DeclineAndCancelPermissions(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	c, err := h.svc.CreateChallenge(ctx, "alice", "bob")
	require.NoError(t, err)

	_, _, err = h.svc.RespondToChallenge(ctx, c.ID, "alice", false)
	assert.ErrorIs(t, err, domain.ErrNotParticipant)
	_, err = h.svc.CancelChallenge(ctx, c.ID, "bob")
	assert.ErrorIs(t, err, domain.ErrNotParticipant)
	_, _, err = h.svc.RespondToChallenge(ctx, c.ID, "mallory", true)
	assert.ErrorIs(t, err, domain.ErrNotParticipant)

	declined, _, err := h.svc.RespondToChallenge(ctx, c.ID, "bob", false)
	require.NoError(t, err)
	assert.Equal(t, domain.ChallengeStateDeclined, declined.State)
	assert.Equal(t, 1, h.events.count(event.DuelChallengeDeclined))

	// terminal challenges take no further transitions
	_, err = h.svc.CancelChallenge(ctx, c.ID, "alice")
	assert.ErrorIs(t, err, domain.ErrChallengeNotFound)

	got, err := h.svc.GetChallenge(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChallengeStateDeclined, got.State)

	// both users are free again
	again, err := h.svc.CreateChallenge(ctx, "bob", "alice")
	require.NoError(t, err)
	cancelled, err := h.svc.CancelChallenge(ctx, again.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.ChallengeStateCancelled, cancelled.State)
}

func TestChallenge_Expires(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	c, err := h.svc.CreateChallenge(ctx, "alice", "bob")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, h.clock.BlockUntilContext(waitCtx, 1))
	h.clock.Advance(time.Minute)

	require.Eventually(t, func() bool {
		got, err := h.svc.GetChallenge(ctx, c.ID)
		return err == nil && got.State == domain.ChallengeStateExpired
	}, 2*time.Second, 5*time.Millisecond)

	_, _, err = h.svc.RespondToChallenge(ctx, c.ID, "bob", true)
	assert.ErrorIs(t, err, domain.ErrChallengeExpired)
	assert.Equal(t, 1, h.events.count(event.DuelChallengeExpired))
	h.waitReleased(t, "alice", "bob")
}

func TestGetChallenge_Unknown(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.svc.GetChallenge(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrChallengeNotFound)
}

func TestAccept_MissingBuildCancelsChallenge(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	c, err := h.svc.CreateChallenge(ctx, "alice", "carol")
	require.NoError(t, err)

	_, _, err = h.svc.RespondToChallenge(ctx, c.ID, "carol", true)
	assert.ErrorIs(t, err, domain.ErrInvalidBuild)
	assert.ErrorIs(t, err, domain.ErrBuildNotFound)

	got, err := h.svc.GetChallenge(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChallengeStateCancelled, got.State)
	assert.Nil(t, got.MatchID)
	assert.Equal(t, 1, h.events.count(event.DuelChallengeCancelled))
	h.waitReleased(t, "alice", "carol")
}

func TestAccept_InvalidBuildCancelsChallenge(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.repo.SaveBuild(ctx, domain.HeroBuild{UserID: "carol", Element: domain.ElementFire, Rarity: domain.RarityRare, Stars: 9}))

	c, err := h.svc.CreateChallenge(ctx, "carol", "bob")
	require.NoError(t, err)
	_, _, err = h.svc.RespondToChallenge(ctx, c.ID, "bob", true)
	assert.ErrorIs(t, err, domain.ErrInvalidBuild)
	h.waitReleased(t, "carol", "bob")
}

func TestMatch_StartsWithFasterSide(t *testing.T) {
	h := newHarness(t, nil)
	snap := h.startMatch(t)

	assert.Equal(t, [2]string{"alice", "bob"}, snap.Participants)
	assert.Equal(t, domain.SideChallenger, snap.Active)
	assert.Equal(t, [2]int{396, 672}, snap.HP)
	assert.Equal(t, 30, snap.MaxTurns)

	e, err := h.svc.ActiveFor(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, domain.EngagementMatch, e.Kind)
	assert.Equal(t, snap.ID, e.ID)

	_, err = h.svc.CreateChallenge(context.Background(), "carol", "alice")
	assert.ErrorIs(t, err, domain.ErrAlreadyEngaged)

	require.Eventually(t, func() bool { return h.events.count(event.DuelTurnPrompt) == 1 }, time.Second, 5*time.Millisecond)
	prompt, _ := h.events.last(event.DuelTurnPrompt)
	payload := prompt.Payload.(event.TurnPromptPayloadV1)
	assert.Equal(t, "alice", payload.UserID)
	assert.Equal(t, 1, payload.Turn)
	assert.Equal(t, epoch.Add(30*time.Second), payload.Deadline)
}

func TestSubmitAction_RejectsIllegalAndDuplicate(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	snap := h.startMatch(t)

	_, err := h.svc.SubmitAction(ctx, snap.ID, "bob", basic("b1"))
	assert.ErrorIs(t, err, domain.ErrIllegalAction, "out of turn")

	_, err = h.svc.SubmitAction(ctx, snap.ID, "mallory", basic("m1"))
	assert.ErrorIs(t, err, domain.ErrNotParticipant)

	_, err = h.svc.SubmitAction(ctx, snap.ID, "alice", domain.Action{ID: "a0", Kind: domain.ActionSkill, SkillID: "tsunami"})
	assert.ErrorIs(t, err, domain.ErrIllegalAction, "locked skill")

	out, err := h.svc.SubmitAction(ctx, snap.ID, "alice", basic("a1"))
	require.NoError(t, err)
	assert.False(t, out.Finished)
	assert.Equal(t, domain.SideOpponent, out.Next)
	require.NotEmpty(t, out.Entries)
	assert.Equal(t, 1, out.Entries[0].Turn)

	_, err = h.svc.SubmitAction(ctx, snap.ID, "bob", basic("b1"))
	require.NoError(t, err)

	_, err = h.svc.SubmitAction(ctx, snap.ID, "alice", basic("a1"))
	require.ErrorIs(t, err, domain.ErrIllegalAction)
	assert.Contains(t, err.Error(), domain.ErrMsgDuplicateID)

	// the rejected submission did not consume the turn
	current, err := h.svc.GetMatch(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, current.Turn)
	assert.Equal(t, domain.SideChallenger, current.Active)

	_, err = h.svc.SubmitAction(ctx, snap.ID, "alice", domain.Action{ID: "a2", Kind: domain.ActionSkill, SkillID: "wind_slash"})
	require.NoError(t, err)
}

func TestSubmitAction_UnknownMatch(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.svc.SubmitAction(context.Background(), uuid.New(), "alice", basic("x"))
	assert.ErrorIs(t, err, domain.ErrMatchNotFound)
	_, err = h.svc.GetMatch(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrMatchNotFound)
}

func TestMatch_PlayedToCompletionIsRecorded(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	snap := h.startMatch(t)

	next := snap.Active
	var result *domain.MatchResult
	for i := 0; i < 30 && result == nil; i++ {
		out, err := h.svc.SubmitAction(ctx, snap.ID, snap.Participants[next], basic(uuid.NewString()))
		require.NoError(t, err)
		if out.Finished {
			result = out.Result
		}
		next = out.Next
	}
	require.NotNil(t, result, "match should end within the turn limit")
	h.waitReleased(t, "alice", "bob")

	winner := snap.Participants[result.Winner]
	loser := snap.Participants[result.Winner.Other()]
	if !result.Draw {
		won, err := h.svc.GetRating(ctx, winner)
		require.NoError(t, err)
		assert.Equal(t, 1, won.Wins)
		assert.Greater(t, won.Rating, 1000.0)

		lost, err := h.svc.GetRating(ctx, loser)
		require.NoError(t, err)
		assert.Equal(t, 1, lost.Losses)
		assert.Less(t, lost.Rating, 1000.0)
		require.Len(t, lost.Recent, 1)
		assert.Equal(t, snap.ID, lost.Recent[0].MatchID)

		ach, err := h.svc.GetAchievements(ctx, winner)
		require.NoError(t, err)
		assert.True(t, ach.Unlocked("first_blood"))

		grants, err := h.svc.GetRewardGrants(ctx, winner, 50)
		require.NoError(t, err)
		assert.NotEmpty(t, grants)
		assert.Contains(t, unlocksFor(h, winner), "first_blood")
		assert.NotContains(t, unlocksFor(h, loser), "first_blood")
	}

	assert.Equal(t, 1, h.events.count(event.DuelMatchCompleted))
	completed, _ := h.events.last(event.DuelMatchCompleted)
	payload := completed.Payload.(event.MatchCompletedPayloadV1)
	assert.Len(t, payload.RatingChanges, 2)

	finished, err := h.svc.GetMatch(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MatchStateCompleted, finished.State)
	require.NotNil(t, finished.Result)

	_, err = h.svc.SubmitAction(ctx, snap.ID, "alice", basic(uuid.NewString()))
	assert.ErrorIs(t, err, domain.ErrIllegalAction)

	rec, err := h.repo.GetMatch(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Turns, rec.Result.Turns)
	assert.Equal(t, snap.Elements, rec.Setup.Elements)

	// once the recent-history cache drops it, the snapshot is rebuilt from the stored row
	h.svc.finished.Remove(snap.ID)
	rebuilt, err := h.svc.GetMatch(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.Elements, rebuilt.Elements)
	assert.Equal(t, snap.Stats, rebuilt.Stats)
	assert.Equal(t, snap.MaxTurns, rebuilt.MaxTurns)
	assert.Positive(t, rebuilt.MaxTurns)
	assert.Equal(t, result.Turns, rebuilt.Turn)

	board, err := h.svc.GetLeaderboard(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, 1, board[0].Rank)

	if !result.Draw {
		byWins, err := h.svc.GetLeaderboard(ctx, domain.LeaderboardWins, 0)
		require.NoError(t, err)
		assert.Equal(t, winner, byWins[0].UserID)

		rank, err := h.svc.GetLeaderboardRank(ctx, loser, domain.LeaderboardStreak)
		require.NoError(t, err)
		assert.Equal(t, 2, rank.Rank)
	}
}

func unlocksFor(h *harness, user string) []string {
	h.events.mu.Lock()
	defer h.events.mu.Unlock()
	var ids []string
	for _, e := range h.events.events {
		if p, ok := e.Payload.(event.AchievementUnlockedPayloadV1); ok && p.UserID == user {
			ids = append(ids, p.AchievementID)
		}
	}
	return ids
}

func TestForfeit(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	snap := h.startMatch(t)

	_, err := h.svc.Forfeit(ctx, snap.ID, "mallory")
	assert.ErrorIs(t, err, domain.ErrNotParticipant)

	// forfeiting is allowed out of turn
	result, err := h.svc.Forfeit(ctx, snap.ID, "bob")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Draw)
	assert.Equal(t, domain.SideChallenger, result.Winner)
	assert.Equal(t, domain.EndReasonForfeit, result.Reason)

	h.waitReleased(t, "alice", "bob")
	finished, err := h.svc.GetMatch(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MatchStateForfeited, finished.State)

	_, err = h.svc.Forfeit(ctx, snap.ID, "alice")
	assert.ErrorIs(t, err, domain.ErrIllegalAction)
}

func TestThreeTimeoutsForfeit(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap := h.startMatch(t)

	// alice acts on odd turns; her third straight timeout comes on turn five
	for turn := 1; turn <= 5; turn++ {
		require.NoError(t, h.clock.BlockUntilContext(ctx, 1), "turn %d", turn)
		h.clock.Advance(30 * time.Second)
	}
	h.waitReleased(t, "alice", "bob")

	finished, err := h.svc.GetMatch(ctx, snap.ID)
	require.NoError(t, err)
	require.NotNil(t, finished.Result)
	assert.Equal(t, domain.MatchStateForfeited, finished.State)
	assert.Equal(t, domain.EndReasonTimeoutForfeit, finished.Result.Reason)
	assert.Equal(t, domain.SideOpponent, finished.Result.Winner)
	assert.Equal(t, 4, finished.Result.Turns)

	autos := 0
	for _, entry := range finished.Log {
		if entry.Event == domain.LogEventAction {
			assert.True(t, entry.Auto)
			autos++
		}
	}
	assert.Equal(t, 4, autos)
	assert.Equal(t, 5, h.events.count(event.DuelTurnTimeout))

	last, _ := h.events.last(event.DuelTurnTimeout)
	payload := last.Payload.(event.TurnTimeoutPayloadV1)
	assert.True(t, payload.Forfeited)
	assert.Equal(t, "alice", payload.UserID)
	assert.Equal(t, 3, payload.Consecutive)
}

func TestTimeoutCounterResetsOnAction(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap := h.startMatch(t)

	// alice: timeout, timeout, act, timeout, timeout; bob always times out too
	advance := func() {
		require.NoError(t, h.clock.BlockUntilContext(ctx, 1))
		h.clock.Advance(30 * time.Second)
	}
	advance() // alice 1
	advance() // bob 1
	advance() // alice 2
	advance() // bob 2
	require.NoError(t, h.clock.BlockUntilContext(ctx, 1))
	_, err := h.svc.SubmitAction(ctx, snap.ID, "alice", domain.Action{ID: "manual", Kind: domain.ActionDefend})
	require.NoError(t, err)
	advance() // bob 3: forfeits

	h.waitReleased(t, "alice", "bob")
	finished, err := h.svc.GetMatch(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SideChallenger, finished.Result.Winner)
	assert.Equal(t, domain.EndReasonTimeoutForfeit, finished.Result.Reason)
}

func TestFinalizeFailureStillReleasesPlayers(t *testing.T) {
	repo := new(MockDuelRepository)
	a, b := aliceBuild, bobBuild
	repo.On("GetBuild", mock.Anything, "alice").Return(&a, nil)
	repo.On("GetBuild", mock.Anything, "bob").Return(&b, nil)
	repo.On("GetRating", mock.Anything, mock.Anything).Return(nil, nil)
	repo.On("GetAchievements", mock.Anything, mock.Anything).Return(nil, nil)
	repo.On("BeginDuelTx", mock.Anything).Return(nil, errors.New("connection refused"))

	h := newHarness(t, repo)
	snap := h.startMatch(t)

	_, err := h.svc.Forfeit(context.Background(), snap.ID, "alice")
	require.NoError(t, err)
	h.waitReleased(t, "alice", "bob")

	assert.Zero(t, h.events.count(event.DuelMatchCompleted))
	repo.AssertNotCalled(t, "SaveMatch", mock.Anything, mock.Anything)
}

// failingSettlementRepo fails the rating write for one user inside the settlement transaction
type failingSettlementRepo struct {
	*memory.DuelRepository
	failFor string
}

func (r *failingSettlementRepo) BeginDuelTx(ctx context.Context) (repository.DuelTx, error) {
	tx, err := r.DuelRepository.BeginDuelTx(ctx)
	if err != nil {
		return nil, err
	}
	return &failingSettlementTx{DuelTx: tx, failFor: r.failFor}, nil
}

type failingSettlementTx struct {
	repository.DuelTx
	failFor string
}

func (t *failingSettlementTx) SaveRating(ctx context.Context, rec domain.RatingRecord) error {
	if rec.UserID == t.failFor {
		return errors.New("disk full")
	}
	return t.DuelTx.SaveRating(ctx, rec)
}

func TestFinalize_SettlementIsAllOrNothing(t *testing.T) {
	mem := memory.NewDuelRepository()
	ctx := context.Background()
	require.NoError(t, mem.SaveBuild(ctx, aliceBuild))
	require.NoError(t, mem.SaveBuild(ctx, bobBuild))

	h := newHarness(t, &failingSettlementRepo{DuelRepository: mem, failFor: "bob"})
	snap := h.startMatch(t)

	_, err := h.svc.Forfeit(ctx, snap.ID, "bob")
	require.NoError(t, err)
	h.waitReleased(t, "alice", "bob")

	_, err = mem.GetMatch(ctx, snap.ID)
	assert.ErrorIs(t, err, domain.ErrMatchNotFound, "match row is rolled back with the ratings")
	alice, err := mem.GetRating(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, alice, "the first player's outcome is rolled back too")
	grants, err := mem.GetRewardGrants(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Empty(t, grants)
	assert.Zero(t, h.events.count(event.DuelMatchCompleted))
}

func TestGetLeaderboard_RejectsUnknownCategory(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.svc.GetLeaderboard(ctx, "elo", 10)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = h.svc.GetLeaderboardRank(ctx, "alice", "elo")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	rank, err := h.svc.GetLeaderboardRank(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, domain.LeaderboardRating, rank.Category)
	assert.Zero(t, rank.Rank, "players without games are unranked")
}

func TestShutdownStopsMatches(t *testing.T) {
	checker := leaktest.NewGoroutineChecker(t)

	h := newHarness(t, nil)
	snap := h.startMatch(t)
	require.Eventually(t, func() bool { return h.events.count(event.DuelTurnPrompt) == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.svc.Shutdown(ctx))

	_, err := h.repo.GetMatch(ctx, snap.ID)
	assert.ErrorIs(t, err, domain.ErrMatchNotFound, "aborted matches are not recorded")
	// the three expirable caches each keep a cleanup goroutine for the service's lifetime
	checker.Check(3, 2*time.Second)
}

func TestSaveBuild(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	stats, err := h.svc.SaveBuild(ctx, domain.HeroBuild{UserID: "dave", Element: domain.ElementFire, Rarity: domain.RarityRare, Stars: 1})
	require.NoError(t, err)
	assert.Equal(t, 100, stats.ATK)

	saved, err := h.svc.GetBuild(ctx, "dave")
	require.NoError(t, err)
	assert.Equal(t, epoch, saved.UpdatedAt)

	_, err = h.svc.SaveBuild(ctx, domain.HeroBuild{UserID: "dave", Element: "plasma", Rarity: domain.RarityRare, Stars: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidBuild)
}

func TestGetRating_NewPlayer(t *testing.T) {
	h := newHarness(t, nil)
	rec, err := h.svc.GetRating(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, rec.Rating)
	assert.Equal(t, domain.TierBronze, rec.Tier)
	assert.Zero(t, rec.GamesPlayed)
}
