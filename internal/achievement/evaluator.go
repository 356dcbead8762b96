// Package achievement evaluates post-match achievement rules and produces reward grants.
package achievement

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/osse101/BrandishDuels_Go/internal/catalog"
	"github.com/osse101/BrandishDuels_Go/internal/domain"
)

// MatchContext is what a rule can see about a finished match for one player.
// Rating is the record after the rating update has been applied.
type MatchContext struct {
	UserID            string
	MatchID           uuid.UUID
	Side              domain.Side
	Result            domain.MatchResult
	Element           domain.Element
	PreRating         float64
	OpponentPreRating float64
	Rating            domain.RatingRecord
	PlayedAt          time.Time
}

// Evaluator applies the catalog's achievement rules. It holds no mutable state.
type Evaluator struct {
	rules   []catalog.AchievementDef
	rewards catalog.MatchRewardsDef
}

// NewEvaluator creates an evaluator from the catalog
func NewEvaluator(cat *catalog.Catalog) *Evaluator {
	return &Evaluator{rules: cat.Achievements(), rewards: cat.MatchRewards()}
}

// Evaluate updates progress for every rule not yet unlocked and returns the new record
// plus one unlock per rule crossed by this match. prior is not modified.
func (e *Evaluator) Evaluate(mc MatchContext, prior domain.AchievementRecord) (domain.AchievementRecord, []domain.AchievementUnlock) {
	rec := prior.Clone()
	if rec.UserID == "" {
		rec.UserID = mc.UserID
	}

	var unlocks []domain.AchievementUnlock
	for _, rule := range e.rules {
		current := rec.Achievements[rule.ID]
		if current.Unlocked {
			continue
		}

		progress, target := measure(rule, mc)
		if progress < current.Progress {
			progress = current.Progress
		}
		if progress > target {
			progress = target
		}
		next := domain.AchievementProgress{Progress: progress, Target: target}

		if progress >= target {
			at := mc.PlayedAt
			next.Unlocked = true
			next.UnlockedAt = &at
			unlocks = append(unlocks, domain.AchievementUnlock{
				UserID:        mc.UserID,
				AchievementID: rule.ID,
				Name:          rule.Name,
				Rewards:       grants(mc, domain.RewardSourceAchievement, rule.ID, rule.Rewards),
			})
		}
		rec.Achievements[rule.ID] = next
	}
	return rec, unlocks
}

// MatchRewards returns the participation grants for the player's outcome
func (e *Evaluator) MatchRewards(mc MatchContext) []domain.RewardGrant {
	var defs []catalog.RewardDef
	switch mc.Result.Outcome(mc.Side) {
	case domain.OutcomeWin:
		defs = e.rewards.Win
	case domain.OutcomeLoss:
		defs = e.rewards.Loss
	default:
		defs = e.rewards.Draw
	}
	return grants(mc, domain.RewardSourceMatch, mc.MatchID.String(), defs)
}

// measure returns (progress, target) for a rule. Boolean rules use a target of 1.
func measure(rule catalog.AchievementDef, mc MatchContext) (int, int) {
	won := mc.Result.Won(mc.Side)
	switch rule.Kind {
	case catalog.RuleFirstWin:
		return min(mc.Rating.Wins, 1), 1
	case catalog.RuleWinStreak:
		return max(mc.Rating.CurrentStreak, 0), rule.Threshold
	case catalog.RuleUnderdog:
		if won && mc.OpponentPreRating-mc.PreRating >= float64(rule.Threshold) {
			return 1, 1
		}
		return 0, 1
	case catalog.RulePerfectGame:
		// damage taken this match, so healing back to full does not count
		if won && mc.Result.DamageDealt[mc.Side.Other()] == 0 {
			return 1, 1
		}
		return 0, 1
	case catalog.RuleDamageDealt:
		return mc.Rating.DamageDealt, rule.Threshold
	case catalog.RuleElementWin:
		return min(mc.Rating.ElementWins[rule.Element], 1), 1
	case catalog.RuleAllElements:
		n := 0
		for _, el := range domain.Elements {
			if mc.Rating.ElementWins[el] > 0 {
				n++
			}
		}
		return n, len(domain.Elements)
	case catalog.RuleGamesPlayed:
		return mc.Rating.GamesPlayed, rule.Threshold
	case catalog.RuleRatingReached:
		peak := math.Max(mc.Rating.PeakRating, mc.Rating.Rating)
		return int(math.Floor(peak)), rule.Threshold
	default:
		return 0, math.MaxInt32
	}
}

func grants(mc MatchContext, source, sourceID string, defs []catalog.RewardDef) []domain.RewardGrant {
	out := make([]domain.RewardGrant, 0, len(defs))
	for _, d := range defs {
		out = append(out, domain.RewardGrant{
			UserID:   mc.UserID,
			Source:   source,
			SourceID: sourceID,
			MatchID:  mc.MatchID,
			Resource: d.Resource,
			Amount:   d.Amount,
		})
	}
	return out
}
