package discord

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/BrandishDuels_Go/internal/catalog"
	"github.com/osse101/BrandishDuels_Go/internal/domain"
	"github.com/osse101/BrandishDuels_Go/internal/event"
	"github.com/osse101/BrandishDuels_Go/internal/worker"
)

type fakeSender struct {
	mu       sync.Mutex
	channels []string
	messages []*discordgo.MessageSend
	err      error
}

func (f *fakeSender) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.channels = append(f.channels, channelID)
	f.messages = append(f.messages, data)
	return &discordgo.Message{ChannelID: channelID}, nil
}

func (f *fakeSender) sent() []*discordgo.MessageSend {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*discordgo.MessageSend(nil), f.messages...)
}

func sseEvent(t *testing.T, typ event.Type, payload interface{}) SSEEvent {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return SSEEvent{ID: uuid.NewString(), Type: string(typ), Payload: raw}
}

func newTestNotifier(t *testing.T, channelID string) (*DuelNotifier, *fakeSender) {
	t.Helper()
	sender := &fakeSender{}
	pool := worker.NewPool(1, 16, time.Second)
	pool.Start()
	t.Cleanup(pool.Stop)
	return NewDuelNotifier(sender, channelID, pool, catalog.MustDefault()), sender
}

func waitForMessages(t *testing.T, sender *fakeSender, n int) []*discordgo.MessageSend {
	t.Helper()
	require.Eventually(t, func() bool { return len(sender.sent()) >= n }, 2*time.Second, 5*time.Millisecond)
	return sender.sent()
}

func TestDuelNotifier_RegisterHandlers(t *testing.T) {
	n, _ := newTestNotifier(t, "duels")
	c := NewSSEClient("http://api", "", event.DuelTypes)
	n.RegisterHandlers(c)

	for _, typ := range []event.Type{
		event.DuelChallengeCreated, event.DuelChallengeExpired, event.DuelTurnPrompt, event.DuelTurnTimeout,
		event.DuelMatchCompleted, event.DuelTierChanged, event.DuelAchievementUnlock,
	} {
		assert.Len(t, c.handlers[string(typ)], 1, typ)
	}
	assert.Empty(t, c.handlers[string(event.DuelChallengeAccepted)])
}

func TestDuelNotifier_Messages(t *testing.T) {
	ctx := context.Background()
	n, sender := newTestNotifier(t, "duels")

	require.NoError(t, n.handleChallengeCreated(ctx, sseEvent(t, event.DuelChallengeCreated, event.ChallengePayloadV1{
		ChallengerID: "alice", OpponentID: "bob", State: domain.ChallengeStatePending, ExpiresAt: time.Now().Add(time.Minute),
	})))
	msgs := waitForMessages(t, sender, 1)
	assert.Equal(t, "<@bob>", msgs[0].Content)
	assert.Equal(t, "⚔️ Duel Challenge", msgs[0].Embeds[0].Title)

	require.NoError(t, n.handleTurnPrompt(ctx, sseEvent(t, event.DuelTurnPrompt, event.TurnPromptPayloadV1{
		UserID: "bob", Side: domain.SideOpponent, Turn: 2, HP: [2]int{396, 336}, MaxHP: [2]int{396, 672}, Deadline: time.Now(),
	})))
	msgs = waitForMessages(t, sender, 2)
	assert.Equal(t, "<@bob>", msgs[1].Content)
	assert.Contains(t, msgs[1].Embeds[0].Description, "`█████░░░░░` 336/672")

	require.NoError(t, n.handleTurnTimeout(ctx, sseEvent(t, event.DuelTurnTimeout, event.TurnTimeoutPayloadV1{
		UserID: "bob", Consecutive: 3, Forfeited: true,
	})))
	msgs = waitForMessages(t, sender, 3)
	assert.Contains(t, msgs[2].Embeds[0].Description, "forfeits the match")
	assert.Equal(t, ColorDanger, msgs[2].Embeds[0].Color)

	require.NoError(t, n.handleTierChanged(ctx, sseEvent(t, event.DuelTierChanged, event.TierChangedPayloadV1{
		UserID: "alice", From: domain.TierBronze, To: domain.TierSilver, Rating: 1200, Promoted: true,
	})))
	msgs = waitForMessages(t, sender, 4)
	assert.Equal(t, "📈 Promotion", msgs[3].Embeds[0].Title)
	assert.Contains(t, msgs[3].Embeds[0].Description, "**🥈 Silver**")

	first := catalog.MustDefault().Achievements()[0]
	require.NoError(t, n.handleAchievementUnlocked(ctx, sseEvent(t, event.DuelAchievementUnlock, event.AchievementUnlockedPayloadV1{
		UserID: "alice", AchievementID: first.ID, Name: first.Name, Rewards: []event.RewardV1{{Resource: "money", Amount: 250}},
	})))
	msgs = waitForMessages(t, sender, 5)
	assert.Contains(t, msgs[4].Embeds[0].Description, first.Name)
	assert.Contains(t, msgs[4].Embeds[0].Description, "Rewards: 250 Money")

	for _, ch := range sender.channels {
		assert.Equal(t, "duels", ch)
	}
}

func TestDuelNotifier_RejectsBadPayload(t *testing.T) {
	n, sender := newTestNotifier(t, "duels")
	err := n.handleMatchCompleted(context.Background(), SSEEvent{Type: string(event.DuelMatchCompleted), Payload: json.RawMessage(`[1,2]`)})
	assert.Error(t, err)
	assert.Empty(t, sender.sent())
}

func TestDuelNotifier_NoChannelDisablesDelivery(t *testing.T) {
	n, sender := newTestNotifier(t, "")
	require.NoError(t, n.handleTierChanged(context.Background(), sseEvent(t, event.DuelTierChanged, event.TierChangedPayloadV1{UserID: "alice"})))

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, sender.sent())
	assert.Error(t, n.Send(context.Background(), &discordgo.MessageSend{Content: "hi"}))
}

func TestDuelNotifier_DropsWhenQueueFull(t *testing.T) {
	sender := &fakeSender{}
	pool := worker.NewPool(1, 1, time.Second)
	n := NewDuelNotifier(sender, "duels", pool, nil)

	evt := sseEvent(t, event.DuelChallengeExpired, event.ChallengePayloadV1{ChallengerID: "alice", OpponentID: "bob"})
	require.NoError(t, n.handleChallengeExpired(context.Background(), evt))
	require.NoError(t, n.handleChallengeExpired(context.Background(), evt))

	pool.Start()
	pool.Stop()
	assert.Len(t, sender.sent(), 1)
}

func TestDuelNotifier_SendError(t *testing.T) {
	n, sender := newTestNotifier(t, "duels")
	sender.err = errors.New("missing access")
	assert.EqualError(t, n.Send(context.Background(), &discordgo.MessageSend{Content: "hi"}), "missing access")
}

func TestLadderDigest(t *testing.T) {
	tc := SetupTestContext(t)
	n, sender := newTestNotifier(t, "chan-1")
	ctx := context.Background()
	digest := n.LadderDigest(tc.Client, 5)

	require.NoError(t, digest.Process(ctx))
	assert.Empty(t, sender.sent(), "empty ladder posts nothing")

	saveTestBuilds(t, tc.Client)
	created, err := tc.Client.CreateChallenge(ctx, "alice", "bob")
	require.NoError(t, err)
	accepted, err := tc.Client.RespondChallenge(ctx, created.Challenge.ID, "bob", true)
	require.NoError(t, err)
	_, err = tc.Client.Forfeit(ctx, accepted.Match.ID, "bob")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		board, err := tc.Client.GetLeaderboard(ctx, domain.LeaderboardRating, 5)
		return err == nil && len(board) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, digest.Process(ctx))
	msgs := sender.sent()
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].Embeds, 1)
	assert.Equal(t, "🏆 Duel Ladder", msgs[0].Embeds[0].Title)
	assert.Contains(t, msgs[0].Embeds[0].Description, "🥇 <@alice>")
}

func TestLadderDigest_SendFailure(t *testing.T) {
	tc := SetupTestContext(t)
	n, sender := newTestNotifier(t, "chan-1")
	ctx := context.Background()
	saveTestBuilds(t, tc.Client)
	created, err := tc.Client.CreateChallenge(ctx, "alice", "bob")
	require.NoError(t, err)
	accepted, err := tc.Client.RespondChallenge(ctx, created.Challenge.ID, "bob", true)
	require.NoError(t, err)
	_, err = tc.Client.Forfeit(ctx, accepted.Match.ID, "alice")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		board, err := tc.Client.GetLeaderboard(ctx, domain.LeaderboardRating, 5)
		return err == nil && len(board) == 2
	}, 2*time.Second, 10*time.Millisecond)

	sender.mu.Lock()
	sender.err = errors.New("missing access")
	sender.mu.Unlock()

	err = n.LadderDigest(tc.Client, 5).Process(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send ladder digest")
}
