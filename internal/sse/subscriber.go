package sse

import (
	"context"
	"log/slog"

	"github.com/osse101/BrandishDuels_Go/internal/event"
)

// Subscriber bridges the internal event bus to the SSE hub
type Subscriber struct {
	hub *Hub
	bus event.Bus
}

// NewSubscriber creates a new SSE subscriber
func NewSubscriber(hub *Hub, bus event.Bus) *Subscriber {
	return &Subscriber{hub: hub, bus: bus}
}

// Subscribe forwards every duel event type to the hub. Each wrap is applied to the
// handler in order, outermost last.
func (s *Subscriber) Subscribe(wrap ...func(event.Handler) event.Handler) {
	var h event.Handler = s.handle
	for _, w := range wrap {
		h = w(h)
	}
	event.SubscribeAll(s.bus, event.DuelTypes, h)
	slog.Info(LogMsgSubscribed, "types", event.DuelTypes)
}

func (s *Subscriber) handle(_ context.Context, evt event.Event) error {
	users, err := audience(evt)
	if err != nil {
		slog.Warn(LogMsgPayloadUnreadable, "event_type", evt.Type, "error", err)
		return nil
	}
	s.hub.Broadcast(string(evt.Type), evt.Payload, users...)
	slog.Debug(LogMsgEventBroadcast, "event_type", evt.Type, "users", users)
	return nil
}

// audience lists the players an event concerns. Match results and tier changes are public.
func audience(evt event.Event) ([]string, error) {
	switch evt.Type {
	case event.DuelChallengeCreated, event.DuelChallengeAccepted, event.DuelChallengeDeclined,
		event.DuelChallengeExpired, event.DuelChallengeCancelled:
		p, err := event.DecodePayload[event.ChallengePayloadV1](evt.Payload)
		return []string{p.ChallengerID, p.OpponentID}, err

	case event.DuelTurnPrompt:
		p, err := event.DecodePayload[event.TurnPromptPayloadV1](evt.Payload)
		return []string{p.UserID}, err

	case event.DuelTurnTimeout:
		p, err := event.DecodePayload[event.TurnTimeoutPayloadV1](evt.Payload)
		return []string{p.UserID}, err

	case event.DuelAchievementUnlock:
		p, err := event.DecodePayload[event.AchievementUnlockedPayloadV1](evt.Payload)
		return []string{p.UserID}, err

	default:
		return nil, nil
	}
}
