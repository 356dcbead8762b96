package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/BrandishDuels_Go/internal/domain"
	"github.com/osse101/BrandishDuels_Go/internal/event"
)

func TestEventMetricsCollector(t *testing.T) {
	bus := event.NewMemoryBus()
	NewEventMetricsCollector().Register(bus)
	ctx := context.Background()

	declinedBefore := testutil.ToFloat64(Challenges.WithLabelValues(string(domain.ChallengeStateDeclined)))
	koBefore := testutil.ToFloat64(MatchesCompleted.WithLabelValues(string(domain.EndReasonKnockout)))
	forfeitBefore := testutil.ToFloat64(TurnTimeouts.WithLabelValues("true"))
	promotedBefore := testutil.ToFloat64(TierChanges.WithLabelValues(DirectionPromoted))
	shardsBefore := testutil.ToFloat64(RewardsGranted.WithLabelValues("basic_hero_shards"))

	c := domain.Challenge{ID: uuid.New(), ChallengerID: "alice", OpponentID: "bob", State: domain.ChallengeStateDeclined}
	require.NoError(t, bus.Publish(ctx, event.NewChallengeEvent(c, false)))
	require.NoError(t, bus.Publish(ctx, event.NewTurnTimeoutEvent(uuid.New(), "alice", 3, true)))
	require.NoError(t, bus.Publish(ctx, event.NewMatchCompletedEvent(event.MatchCompletedPayloadV1{
		MatchID: uuid.New(),
		Reason:  domain.EndReasonKnockout,
		Turns:   9,
		RatingChanges: []event.RatingChangeV1{
			{UserID: "alice", Before: 1000, After: 980},
			{UserID: "bob", Before: 1000, After: 1020},
		},
	})))
	require.NoError(t, bus.Publish(ctx, event.NewTierChangedEvent(domain.TierChange{UserID: "bob", From: domain.TierBronze, To: domain.TierSilver, Rating: 1201, Promoted: true})))
	require.NoError(t, bus.Publish(ctx, event.NewAchievementUnlockedEvent(domain.AchievementUnlock{
		UserID:        "bob",
		AchievementID: "first_blood",
		Rewards:       []domain.RewardGrant{{Resource: "basic_hero_shards", Amount: 5}},
	})))

	assert.Equal(t, declinedBefore+1, testutil.ToFloat64(Challenges.WithLabelValues(string(domain.ChallengeStateDeclined))))
	assert.Equal(t, koBefore+1, testutil.ToFloat64(MatchesCompleted.WithLabelValues(string(domain.EndReasonKnockout))))
	assert.Equal(t, forfeitBefore+1, testutil.ToFloat64(TurnTimeouts.WithLabelValues("true")))
	assert.Equal(t, promotedBefore+1, testutil.ToFloat64(TierChanges.WithLabelValues(DirectionPromoted)))
	assert.Equal(t, shardsBefore+5, testutil.ToFloat64(RewardsGranted.WithLabelValues("basic_hero_shards")))
}

func TestEventMetricsCollector_GenericPayload(t *testing.T) {
	before := testutil.ToFloat64(TurnTimeouts.WithLabelValues("false"))

	// payloads replayed from JSON arrive as maps
	evt := event.Event{Type: event.DuelTurnTimeout, Payload: map[string]interface{}{"user_id": "bob", "consecutive": 1, "forfeited": false}}
	require.NoError(t, NewEventMetricsCollector().HandleEvent(context.Background(), evt))

	assert.Equal(t, before+1, testutil.ToFloat64(TurnTimeouts.WithLabelValues("false")))
}

func TestInstrumentHandler(t *testing.T) {
	before := testutil.ToFloat64(EventHandlerErrors.WithLabelValues(string(event.DuelTurnPrompt)))
	failing := InstrumentHandler(func(context.Context, event.Event) error { return errors.New("boom") })

	err := failing(context.Background(), event.Event{Type: event.DuelTurnPrompt})
	assert.Error(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(EventHandlerErrors.WithLabelValues(string(event.DuelTurnPrompt))))
}

type fixedCounts struct{ challenges, matches int }

func (f fixedCounts) Counts() (int, int) { return f.challenges, f.matches }

func TestRegisterSessionGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterSessionGauges(reg, fixedCounts{challenges: 2, matches: 5}))
	require.NoError(t, RegisterSessionGauges(reg, fixedCounts{}), "registering twice is tolerated")

	n, err := testutil.GatherAndCount(reg, "duels_pending_challenges", "duels_active_matches")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/matches/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/matches/{id}", "418"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/matches/abc", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/matches/{id}", "418")))
}
