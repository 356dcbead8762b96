package duel

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/osse101/BrandishDuels_Go/internal/achievement"
	"github.com/osse101/BrandishDuels_Go/internal/domain"
	"github.com/osse101/BrandishDuels_Go/internal/event"
	"github.com/osse101/BrandishDuels_Go/internal/logger"
	"github.com/osse101/BrandishDuels_Go/internal/rating"
	"github.com/osse101/BrandishDuels_Go/internal/repository"
)

// settlement is everything a finished match changes, computed before anything is written
type settlement struct {
	updates     [2]domain.RecordUpdate
	tierChanges []domain.TierChange
	unlocks     []domain.AchievementUnlock
	changes     []event.RatingChangeV1
}

// onMatchEnd records the match and frees both players. The match has already ended,
// so finalization runs detached from the service's cancellation.
func (s *service) onMatchEnd(ctx context.Context, a *arbiter, result domain.MatchResult) {
	defer func() {
		s.finished.Add(a.id, a.Snapshot())
		s.registry.ReleaseMatch(a.id)
	}()

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.FinalizeTimeout)
	defer cancel()

	if err := s.finalize(fctx, a, result); err != nil {
		logger.FromContext(ctx).Error(LogMsgFinalizeFailed, "error", err)
	}
}

func (s *service) finalize(ctx context.Context, a *arbiter, result domain.MatchResult) error {
	unlock := s.locks.LockAll(a.players[0], a.players[1])
	defer unlock()

	var (
		priors       [2]domain.RatingRecord
		achievements [2]domain.AchievementRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	for i, user := range a.players {
		g.Go(func() error {
			rec, err := s.loadRating(gctx, user)
			priors[i] = rec
			return err
		})
		g.Go(func() error {
			rec, err := s.loadAchievements(gctx, user)
			achievements[i] = rec
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	st := s.settle(a, result, priors, achievements)

	record := domain.MatchRecord{
		ID:           a.id,
		ChallengeID:  a.challengeID,
		ChallengerID: a.players[domain.SideChallenger],
		OpponentID:   a.players[domain.SideOpponent],
		Setup:        a.setup(),
		Result:       result,
		StartedAt:    a.startedAt,
		CompletedAt:  s.clock.Now(),
	}
	if !result.Draw {
		winner := a.players[result.Winner]
		record.WinnerID = &winner
	}
	if err := repository.SaveSettlement(ctx, s.repo, record, st.updates[:]); err != nil {
		return fmt.Errorf("%s: %w", ErrContextSaveSettlement, err)
	}
	for _, u := range st.updates {
		s.records.Set(u.Rating)
	}

	completed := event.MatchCompletedPayloadV1{
		MatchID:        a.id,
		ChallengerID:   record.ChallengerID,
		OpponentID:     record.OpponentID,
		Draw:           result.Draw,
		Reason:         result.Reason,
		Turns:          result.Turns,
		FinalHPPercent: result.FinalHPPercent,
		RatingChanges:  st.changes,
	}
	if record.WinnerID != nil {
		completed.WinnerID = *record.WinnerID
	}
	s.publish(ctx, event.NewMatchCompletedEvent(completed))
	for _, tc := range st.tierChanges {
		s.publish(ctx, event.NewTierChangedEvent(tc))
	}
	for _, u := range st.unlocks {
		s.publish(ctx, event.NewAchievementUnlockedEvent(u))
	}
	return nil
}

// settle applies the rating update and achievement rules for both sides.
// Both sides read only pre-match priors so the order of evaluation does not matter.
func (s *service) settle(a *arbiter, result domain.MatchResult, priors [2]domain.RatingRecord, achievements [2]domain.AchievementRecord) settlement {
	var st settlement
	playedAt := s.clock.Now()

	for _, side := range []domain.Side{domain.SideChallenger, domain.SideOpponent} {
		other := side.Other()
		rec, tc := s.ratings.Apply(priors[side], priors[other].Rating, rating.Game{
			MatchID:         a.id,
			OpponentID:      a.players[other],
			Score:           result.Score(side),
			Reason:          result.Reason,
			Element:         a.combatants[side].Element,
			OpponentElement: a.combatants[other].Element,
			DamageDealt:     result.DamageDealt[side],
			DamageTaken:     result.DamageDealt[other],
			Turns:           result.Turns,
			PlayedAt:        playedAt,
		})
		if tc != nil {
			st.tierChanges = append(st.tierChanges, *tc)
		}

		mc := achievement.MatchContext{
			UserID:            a.players[side],
			MatchID:           a.id,
			Side:              side,
			Result:            result,
			Element:           a.combatants[side].Element,
			PreRating:         priors[side].Rating,
			OpponentPreRating: priors[other].Rating,
			Rating:            rec,
			PlayedAt:          playedAt,
		}
		achieved, unlocks := s.evaluator.Evaluate(mc, achievements[side])
		grants := s.evaluator.MatchRewards(mc)
		for _, u := range unlocks {
			grants = append(grants, u.Rewards...)
		}
		st.unlocks = append(st.unlocks, unlocks...)

		st.updates[side] = domain.RecordUpdate{
			UserID:       a.players[side],
			Rating:       rec,
			Achievements: achieved,
			Grants:       grants,
		}
		st.changes = append(st.changes, event.RatingChangeV1{
			UserID: a.players[side],
			Before: priors[side].Rating,
			After:  rec.Rating,
			Tier:   rec.Tier,
		})
	}
	return st
}
