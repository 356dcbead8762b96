package discord

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/osse101/BrandishDuels_Go/internal/catalog"
	"github.com/osse101/BrandishDuels_Go/internal/database/memory"
	"github.com/osse101/BrandishDuels_Go/internal/duel"
	"github.com/osse101/BrandishDuels_Go/internal/event"
	"github.com/osse101/BrandishDuels_Go/internal/handler"
	"github.com/osse101/BrandishDuels_Go/internal/server"
	"github.com/osse101/BrandishDuels_Go/internal/sse"
)

const testAPIKey = "test-key"

// MockRoundTripper stands in for Discord's REST API
type MockRoundTripper struct {
	RoundTripFunc func(req *http.Request) (*http.Response, error)
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.RoundTripFunc(req)
}

// capturedEmbed is the part of an embed the tests inspect
type capturedEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Fields      []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"fields"`
}

// capturedEdit is an edit of the original interaction response
type capturedEdit struct {
	Content *string         `json:"content"`
	Embeds  []capturedEmbed `json:"embeds"`
}

// capturedChoices is an autocomplete answer
type capturedChoices struct {
	Type int `json:"type"`
	Data struct {
		Choices []struct {
			Name  string      `json:"name"`
			Value interface{} `json:"value"`
		} `json:"choices"`
	} `json:"data"`
}

// TestContext wires a Discord session with a mocked transport to a live in-process duel API
type TestContext struct {
	Session *discordgo.Session
	Client  *APIClient
	Hub     *sse.Hub
	Service duel.Service
	URL     string

	mu        sync.Mutex
	edits     []capturedEdit
	callbacks []capturedChoices
}

func SetupTestContext(t *testing.T) *TestContext {
	t.Helper()

	bus := event.NewMemoryBus()
	hub := sse.NewHub()
	hub.Start()
	sse.NewSubscriber(hub, bus).Subscribe()

	svc := duel.NewService(catalog.MustDefault(), memory.NewDuelRepository(), bus, duel.DefaultConfig())
	srv := server.NewServer(server.Options{
		APIKey:   testAPIKey,
		Backend:  "memory",
		Health:   handler.HealthCheckFunc(func(context.Context) error { return nil }),
		Gatherer: prometheus.NewRegistry(),
	}, svc, hub)
	ts := httptest.NewServer(srv.Handler())

	session, err := discordgo.New("Bot test-token")
	require.NoError(t, err)

	client := NewAPIClient(ts.URL, testAPIKey)
	client.backoff = time.Millisecond

	tc := &TestContext{Session: session, Client: client, Hub: hub, Service: svc, URL: ts.URL}
	session.Client = &http.Client{Transport: &MockRoundTripper{RoundTripFunc: tc.discordRoundTrip}}

	t.Cleanup(func() {
		ts.CloseClientConnections()
		ts.Close()
		hub.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})
	return tc
}

func (tc *TestContext) discordRoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}

	tc.mu.Lock()
	switch {
	case req.Method == http.MethodPatch && strings.HasSuffix(req.URL.Path, "/messages/@original"):
		var edit capturedEdit
		if json.Unmarshal(body, &edit) == nil {
			tc.edits = append(tc.edits, edit)
		}
	case req.Method == http.MethodPost && strings.HasSuffix(req.URL.Path, "/callback"):
		var cb capturedChoices
		if json.Unmarshal(body, &cb) == nil && cb.Type == int(discordgo.InteractionApplicationCommandAutocompleteResult) {
			tc.callbacks = append(tc.callbacks, cb)
		}
	}
	tc.mu.Unlock()

	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader("{}")),
		Request:    req,
	}, nil
}

// LastEdit returns the most recent response edit
func (tc *TestContext) LastEdit(t *testing.T) capturedEdit {
	t.Helper()
	tc.mu.Lock()
	defer tc.mu.Unlock()
	require.NotEmpty(t, tc.edits, "no interaction response was sent")
	return tc.edits[len(tc.edits)-1]
}

// LastEmbed returns the single embed of the most recent response edit
func (tc *TestContext) LastEmbed(t *testing.T) capturedEmbed {
	t.Helper()
	edit := tc.LastEdit(t)
	require.Len(t, edit.Embeds, 1, "expected an embed, got content %v", edit.Content)
	return edit.Embeds[0]
}

// LastContent returns the plain text of the most recent response edit
func (tc *TestContext) LastContent(t *testing.T) string {
	t.Helper()
	edit := tc.LastEdit(t)
	require.NotNil(t, edit.Content, "expected plain content")
	return *edit.Content
}

// LastChoices returns the most recent autocomplete answer
func (tc *TestContext) LastChoices(t *testing.T) capturedChoices {
	t.Helper()
	tc.mu.Lock()
	defer tc.mu.Unlock()
	require.NotEmpty(t, tc.callbacks, "no autocomplete response was sent")
	return tc.callbacks[len(tc.callbacks)-1]
}

func interaction(userID, command string, kind discordgo.InteractionType, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:     "interaction-" + command,
		AppID:  "app",
		Token:  "token",
		Type:   kind,
		Member: &discordgo.Member{User: &discordgo.User{ID: userID, Username: userID}},
		Data: discordgo.ApplicationCommandInteractionData{
			Name:    command,
			Options: opts,
		},
	}}
}

func commandInteraction(userID, command string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return interaction(userID, command, discordgo.InteractionApplicationCommand, opts...)
}

func userOpt(name, userID string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionUser, Value: userID}
}

func stringOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func intOpt(name string, value int) *discordgo.ApplicationCommandInteractionDataOption {
	// option values arrive as JSON numbers
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(value)}
}

// saveTestBuilds gives alice a fast air hero and bob a sturdy water hero
func saveTestBuilds(t *testing.T, client *APIClient) {
	t.Helper()
	ctx := context.Background()
	_, err := client.SaveBuild(ctx, "alice", handler.SaveBuildRequest{Element: "air", Rarity: "rare", Stars: 2, Skills: []string{"wind_slash"}})
	require.NoError(t, err)
	_, err = client.SaveBuild(ctx, "bob", handler.SaveBuildRequest{Element: "water", Rarity: "epic", Stars: 3, Skills: []string{}})
	require.NoError(t, err)
}
