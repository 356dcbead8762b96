package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/osse101/BrandishDuels_Go/internal/catalog"
	"github.com/osse101/BrandishDuels_Go/internal/domain"
	"github.com/osse101/BrandishDuels_Go/internal/event"
	"github.com/osse101/BrandishDuels_Go/internal/worker"
)

// ChannelSender posts messages to a channel. *discordgo.Session satisfies it.
type ChannelSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DuelNotifier turns duel events from the API stream into channel messages.
// Delivery happens on a worker pool so slow Discord calls never stall the stream.
type DuelNotifier struct {
	sender    ChannelSender
	channelID string
	pool      *worker.Pool
	catalog   *catalog.Catalog
}

// NewDuelNotifier creates a notifier. An empty channelID disables delivery.
func NewDuelNotifier(sender ChannelSender, channelID string, pool *worker.Pool, cat *catalog.Catalog) *DuelNotifier {
	return &DuelNotifier{sender: sender, channelID: channelID, pool: pool, catalog: cat}
}

// RegisterHandlers subscribes the notifier to the events it announces
func (n *DuelNotifier) RegisterHandlers(client *SSEClient) {
	client.OnEvent(event.DuelChallengeCreated, n.handleChallengeCreated)
	client.OnEvent(event.DuelChallengeExpired, n.handleChallengeExpired)
	client.OnEvent(event.DuelTurnPrompt, n.handleTurnPrompt)
	client.OnEvent(event.DuelTurnTimeout, n.handleTurnTimeout)
	client.OnEvent(event.DuelMatchCompleted, n.handleMatchCompleted)
	client.OnEvent(event.DuelTierChanged, n.handleTierChanged)
	client.OnEvent(event.DuelAchievementUnlock, n.handleAchievementUnlocked)
}

func decode[T any](evt SSEEvent) (T, error) {
	var p T
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return p, fmt.Errorf("decode %s payload: %w", evt.Type, err)
	}
	return p, nil
}

func (n *DuelNotifier) handleChallengeCreated(_ context.Context, evt SSEEvent) error {
	p, err := decode[event.ChallengePayloadV1](evt)
	if err != nil {
		return err
	}
	desc := fmt.Sprintf("%s challenged %s to a duel!\nUse `/duel-accept` or `/duel-decline` %s.",
		mention(p.ChallengerID), mention(p.OpponentID), relativeTime(p.ExpiresAt))
	n.enqueue(evt, mention(p.OpponentID), createEmbed("⚔️ Duel Challenge", desc, ColorPrimary, ""))
	return nil
}

func (n *DuelNotifier) handleChallengeExpired(_ context.Context, evt SSEEvent) error {
	p, err := decode[event.ChallengePayloadV1](evt)
	if err != nil {
		return err
	}
	desc := fmt.Sprintf("%s's challenge to %s expired unanswered.", mention(p.ChallengerID), mention(p.OpponentID))
	n.enqueue(evt, "", createEmbed("⌛ Challenge Expired", desc, ColorWarning, ""))
	return nil
}

func (n *DuelNotifier) handleTurnPrompt(_ context.Context, evt SSEEvent) error {
	p, err := decode[event.TurnPromptPayloadV1](evt)
	if err != nil {
		return err
	}
	desc := fmt.Sprintf("Turn %d · HP `%s` %d/%d\nChoose `/duel-attack`, `/duel-defend` or `/duel-skill` %s.",
		p.Turn, hpBar(p.HP[p.Side], p.MaxHP[p.Side]), max0(p.HP[p.Side]), p.MaxHP[p.Side], relativeTime(p.Deadline))
	n.enqueue(evt, mention(p.UserID), createEmbed("🎯 Your Turn", desc, ColorPrimary, ""))
	return nil
}

func (n *DuelNotifier) handleTurnTimeout(_ context.Context, evt SSEEvent) error {
	p, err := decode[event.TurnTimeoutPayloadV1](evt)
	if err != nil {
		return err
	}
	desc := fmt.Sprintf("%s ran out of time, a basic attack was played for them (%d in a row).", mention(p.UserID), p.Consecutive)
	color := ColorWarning
	if p.Forfeited {
		desc = fmt.Sprintf("%s timed out %d turns in a row and forfeits the match.", mention(p.UserID), p.Consecutive)
		color = ColorDanger
	}
	n.enqueue(evt, "", createEmbed("⏰ Turn Timeout", desc, color, ""))
	return nil
}

func (n *DuelNotifier) handleMatchCompleted(_ context.Context, evt SSEEvent) error {
	p, err := decode[event.MatchCompletedPayloadV1](evt)
	if err != nil {
		return err
	}
	n.enqueue(evt, "", createEmbed("🏁 Duel Finished", formatCompleted(p), ColorSuccess, ""))
	return nil
}

func (n *DuelNotifier) handleTierChanged(_ context.Context, evt SSEEvent) error {
	p, err := decode[event.TierChangedPayloadV1](evt)
	if err != nil {
		return err
	}
	title, verb, color := "📈 Promotion", "was promoted", ColorGold
	if !p.Promoted {
		title, verb, color = "📉 Demotion", "dropped", ColorWarning
	}
	desc := fmt.Sprintf("%s %s from %s to **%s** at %s rating.",
		mention(p.UserID), verb, formatTier(p.From), formatTier(p.To), formatRating(p.Rating))
	n.enqueue(evt, "", createEmbed(title, desc, color, ""))
	return nil
}

func (n *DuelNotifier) handleAchievementUnlocked(_ context.Context, evt SSEEvent) error {
	p, err := decode[event.AchievementUnlockedPayloadV1](evt)
	if err != nil {
		return err
	}
	name := p.Name
	if name == "" {
		name = titleCase(p.AchievementID)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s unlocked **%s**!", mention(p.UserID), name)
	if n.catalog != nil {
		for _, def := range n.catalog.Achievements() {
			if def.ID == p.AchievementID && def.Description != "" {
				fmt.Fprintf(&b, "\n*%s*", def.Description)
			}
		}
	}
	if rewards := formatRewards(p.Rewards); rewards != "" {
		fmt.Fprintf(&b, "\nRewards: %s", rewards)
	}
	n.enqueue(evt, "", createEmbed("🏅 Achievement Unlocked", b.String(), ColorGold, ""))
	return nil
}

// enqueue schedules delivery of one message. A full queue drops the message.
func (n *DuelNotifier) enqueue(evt SSEEvent, content string, embed *discordgo.MessageEmbed) {
	if n.channelID == "" {
		return
	}
	embed.Timestamp = time.Now().Format(time.RFC3339)
	msg := &discordgo.MessageSend{Content: content, Embeds: []*discordgo.MessageEmbed{embed}}

	job := worker.JobFunc(func(ctx context.Context) error {
		if err := n.Send(ctx, msg); err != nil {
			return fmt.Errorf("send %s notification %s: %w", evt.Type, evt.ID, err)
		}
		slog.Debug(sseLogMsgNotificationSent, "event_type", evt.Type, "event_id", evt.ID)
		return nil
	})
	if !n.pool.Enqueue(job) {
		slog.Warn(sseLogMsgNotificationDrop, "event_type", evt.Type, "event_id", evt.ID)
	}
}

// Send posts a message to the notification channel immediately
func (n *DuelNotifier) Send(ctx context.Context, msg *discordgo.MessageSend) error {
	if n.channelID == "" {
		return fmt.Errorf("no notification channel configured")
	}
	_, err := n.sender.ChannelMessageSendComplex(n.channelID, msg, discordgo.WithContext(ctx))
	return err
}

// LadderDigest returns a job that posts the top of the ladder to the notification channel.
// An empty ladder posts nothing.
func (n *DuelNotifier) LadderDigest(client *APIClient, size int) worker.Job {
	return worker.JobFunc(func(ctx context.Context) error {
		entries, err := client.GetLeaderboard(ctx, domain.LeaderboardRating, size)
		if err != nil {
			return fmt.Errorf("fetch ladder digest: %w", err)
		}
		if len(entries) == 0 {
			return nil
		}
		embed := createEmbed(leaderboardTitle(domain.LeaderboardRating), formatLeaderboard(entries, domain.LeaderboardRating), ColorGold, FooterLeaderboard)
		embed.Timestamp = time.Now().Format(time.RFC3339)
		if err := n.Send(ctx, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}); err != nil {
			return fmt.Errorf("send ladder digest: %w", err)
		}
		slog.Debug(LogMsgDigestSent, "entries", len(entries))
		return nil
	})
}
