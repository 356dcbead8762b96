package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/BrandishDuels_Go/internal/catalog"
	"github.com/osse101/BrandishDuels_Go/internal/database/memory"
	"github.com/osse101/BrandishDuels_Go/internal/domain"
	"github.com/osse101/BrandishDuels_Go/internal/duel"
	"github.com/osse101/BrandishDuels_Go/internal/event"
	"github.com/osse101/BrandishDuels_Go/internal/handler"
	"github.com/osse101/BrandishDuels_Go/internal/sse"
)

const testAPIKey = "test-key"

type apiClient struct {
	t    *testing.T
	base string
}

func (c apiClient) do(method, path string, body interface{}, out interface{}) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set(HeaderAPIKey, testAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func newTestServer(t *testing.T) apiClient {
	t.Helper()

	bus := event.NewMemoryBus()
	hub := sse.NewHub()
	hub.Start()
	sse.NewSubscriber(hub, bus).Subscribe()

	svc := duel.NewService(catalog.MustDefault(), memory.NewDuelRepository(), bus, duel.DefaultConfig())
	srv := NewServer(Options{
		APIKey:      testAPIKey,
		CORSOrigins: []string{"https://duels.example"},
		Backend:     "memory",
		Health:      handler.HealthCheckFunc(func(context.Context) error { return nil }),
		Gatherer:    prometheus.NewRegistry(),
	}, svc, hub)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		hub.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})
	return apiClient{t: t, base: ts.URL}
}

func TestServer_PublicAndProtectedRoutes(t *testing.T) {
	api := newTestServer(t)

	resp, err := http.Get(api.base + PathHealthz)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, HeaderValueNoSniff, resp.Header.Get(HeaderContentType))

	resp, err = http.Get(api.base + PathReadyz)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(api.base + "/api/v1/duels/leaderboard")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodOptions, api.base+"/api/v1/duels/challenges", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://duels.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode, "preflight needs no API key")
	assert.Equal(t, "https://duels.example", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_DuelLifecycle(t *testing.T) {
	api := newTestServer(t)

	require.Equal(t, http.StatusOK, api.do(http.MethodPut, "/api/v1/duels/players/alice/build",
		handler.SaveBuildRequest{Element: "air", Rarity: "rare", Stars: 2, Skills: []string{"wind_slash"}}, nil))
	require.Equal(t, http.StatusOK, api.do(http.MethodPut, "/api/v1/duels/players/bob/build",
		handler.SaveBuildRequest{Element: "water", Rarity: "epic", Stars: 3}, nil))

	var created handler.ChallengeResponse
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/duels/challenges",
		handler.CreateChallengeRequest{ChallengerID: "alice", OpponentID: "bob"}, &created))
	require.NotNil(t, created.Challenge)

	var errResp handler.ErrorResponse
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, "/api/v1/duels/challenges",
		handler.CreateChallengeRequest{ChallengerID: "bob", OpponentID: "carol"}, &errResp))
	assert.Equal(t, handler.ErrMsgAlreadyEngagedError, errResp.Error)

	accept := true
	var accepted handler.ChallengeResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v1/duels/challenges/"+created.Challenge.ID.String()+"/respond",
		handler.RespondChallengeRequest{UserID: "bob", Accept: &accept}, &accepted))
	require.NotNil(t, accepted.Match)
	matchID := accepted.Match.ID.String()
	assert.Equal(t, [2]int{396, 672}, accepted.Match.HP)

	var snap domain.MatchSnapshot
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/duels/matches/"+matchID, nil, &snap))
	assert.Equal(t, 1, snap.Turn)

	var active handler.ActiveResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/duels/players/bob/active", nil, &active))
	assert.True(t, active.Engaged)
	assert.Equal(t, domain.EngagementMatch, active.Engagement.Kind)

	// alice is faster, so bob acting first is out of turn
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, "/api/v1/duels/matches/"+matchID+"/actions",
		handler.SubmitActionRequest{UserID: "bob", Kind: "defend"}, nil))

	var acted handler.ActionResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v1/duels/matches/"+matchID+"/actions",
		handler.SubmitActionRequest{UserID: "alice", Kind: "basic_attack"}, &acted))
	assert.Equal(t, domain.SideOpponent, acted.Outcome.Next)

	var forfeit handler.ForfeitResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v1/duels/matches/"+matchID+"/forfeit",
		handler.ParticipantRequest{UserID: "bob"}, &forfeit))
	assert.Equal(t, domain.SideChallenger, forfeit.Result.Winner)
	assert.Equal(t, domain.EndReasonForfeit, forfeit.Result.Reason)

	require.Eventually(t, func() bool {
		var rating domain.RatingRecord
		if api.do(http.MethodGet, "/api/v1/duels/players/alice/rating", nil, &rating) != http.StatusOK {
			return false
		}
		return rating.Wins == 1
	}, 2*time.Second, 10*time.Millisecond)

	var board handler.DataResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/duels/leaderboard?limit=5", nil, &board))
	entries, ok := board.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, entries, 2)

	require.Eventually(t, func() bool {
		var active handler.ActiveResponse
		api.do(http.MethodGet, "/api/v1/duels/players/bob/active", nil, &active)
		return !active.Engaged
	}, 2*time.Second, 10*time.Millisecond)

	var status handler.AdminStatusResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/admin/status", nil, &status))
	assert.Equal(t, 0, status.Sessions.ActiveMatches)
}
