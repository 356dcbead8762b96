package combat

import (
	"github.com/osse101/BrandishDuels_Go/internal/domain"
)

// ActionSource picks the action for the side whose turn it is
type ActionSource interface {
	Next(side domain.Side, e *Engine) domain.Action
}

// ScriptedSource replays a fixed list of actions per side, then falls back to BasicAttack
type ScriptedSource struct {
	scripts [2][]domain.Action
}

// NewScriptedSource creates a source from per-side action scripts
func NewScriptedSource(challenger, opponent []domain.Action) *ScriptedSource {
	return &ScriptedSource{scripts: [2][]domain.Action{challenger, opponent}}
}

// Next pops the side's next scripted action
func (s *ScriptedSource) Next(side domain.Side, _ *Engine) domain.Action {
	if len(s.scripts[side]) == 0 {
		return domain.Action{Kind: domain.ActionBasicAttack}
	}
	a := s.scripts[side][0]
	s.scripts[side] = s.scripts[side][1:]
	return a
}

// Simulate drives e to completion. An illegal scripted action is replaced by BasicAttack.
func Simulate(e *Engine, src ActionSource) *domain.MatchResult {
	for !e.Finished() {
		e.BeginTurn()
		if e.Finished() {
			break
		}
		side := e.Active()
		action := src.Next(side, e)
		if _, err := e.Apply(side, action, false); err != nil {
			_, _ = e.Apply(side, domain.Action{Kind: domain.ActionBasicAttack}, true)
		}
	}
	return e.Result()
}
