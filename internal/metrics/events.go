package metrics

import (
	"context"
	"math"
	"strconv"

	"github.com/osse101/BrandishDuels_Go/internal/event"
	"github.com/osse101/BrandishDuels_Go/internal/logger"
)

// EventMetricsCollector subscribes to duel events and records metrics
type EventMetricsCollector struct{}

// NewEventMetricsCollector creates a new event metrics collector
func NewEventMetricsCollector() *EventMetricsCollector {
	return &EventMetricsCollector{}
}

// Register subscribes to every duel event type
func (e *EventMetricsCollector) Register(bus event.Bus) {
	event.SubscribeAll(bus, event.DuelTypes, e.HandleEvent)
}

// HandleEvent updates the counters for one event. Undecodable payloads are logged and skipped.
func (e *EventMetricsCollector) HandleEvent(ctx context.Context, evt event.Event) error {
	log := logger.FromContext(ctx)
	EventsPublished.WithLabelValues(string(evt.Type)).Inc()

	var err error
	switch evt.Type {
	case event.DuelChallengeCreated, event.DuelChallengeAccepted, event.DuelChallengeDeclined,
		event.DuelChallengeExpired, event.DuelChallengeCancelled:
		var p event.ChallengePayloadV1
		if p, err = event.DecodePayload[event.ChallengePayloadV1](evt.Payload); err == nil {
			Challenges.WithLabelValues(string(p.State)).Inc()
		}

	case event.DuelTurnTimeout:
		var p event.TurnTimeoutPayloadV1
		if p, err = event.DecodePayload[event.TurnTimeoutPayloadV1](evt.Payload); err == nil {
			TurnTimeouts.WithLabelValues(strconv.FormatBool(p.Forfeited)).Inc()
		}

	case event.DuelMatchCompleted:
		var p event.MatchCompletedPayloadV1
		if p, err = event.DecodePayload[event.MatchCompletedPayloadV1](evt.Payload); err == nil {
			MatchesCompleted.WithLabelValues(string(p.Reason)).Inc()
			MatchTurns.Observe(float64(p.Turns))
			for _, rc := range p.RatingChanges {
				RatingChangeMagnitude.Observe(math.Abs(rc.After - rc.Before))
			}
		}

	case event.DuelTierChanged:
		var p event.TierChangedPayloadV1
		if p, err = event.DecodePayload[event.TierChangedPayloadV1](evt.Payload); err == nil {
			direction := DirectionDemoted
			if p.Promoted {
				direction = DirectionPromoted
			}
			TierChanges.WithLabelValues(direction).Inc()
		}

	case event.DuelAchievementUnlock:
		var p event.AchievementUnlockedPayloadV1
		if p, err = event.DecodePayload[event.AchievementUnlockedPayloadV1](evt.Payload); err == nil {
			AchievementsUnlocked.WithLabelValues(p.AchievementID).Inc()
			for _, r := range p.Rewards {
				RewardsGranted.WithLabelValues(r.Resource).Add(float64(r.Amount))
			}
		}
	}

	if err != nil {
		log.Debug(LogMsgPayloadDecodeFailed, "type", evt.Type, "error", err)
		return nil
	}
	log.Debug(LogMsgMetricsRecorded, "type", evt.Type)
	return nil
}

// InstrumentHandler counts the errors a subscriber returns
func InstrumentHandler(h event.Handler) event.Handler {
	return func(ctx context.Context, evt event.Event) error {
		err := h(ctx, evt)
		if err != nil {
			EventHandlerErrors.WithLabelValues(string(evt.Type)).Inc()
		}
		return err
	}
}
