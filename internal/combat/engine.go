// Package combat implements the turn-based duel state machine. It performs no I/O;
// randomness comes from an injected RNG so matches can be replayed in tests.
package combat

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/osse101/BrandishDuels_Go/internal/catalog"
	"github.com/osse101/BrandishDuels_Go/internal/domain"
)

// Phase is the engine's position in the turn cycle
type Phase int

const (
	PhaseTurnStart Phase = iota
	PhaseActionPending
	PhaseActionResolved
	PhaseMatchEnd
)

func (p Phase) String() string {
	switch p {
	case PhaseTurnStart:
		return "turn_start"
	case PhaseActionPending:
		return "action_pending"
	case PhaseActionResolved:
		return "action_resolved"
	default:
		return "match_end"
	}
}

// Combatant is one side's fixed input to a match
type Combatant struct {
	UserID  string
	Element domain.Element
	Stats   domain.ResolvedStats
	Rating  float64
	Skills  []string
}

type sideState struct {
	element   domain.Element
	stats     domain.ResolvedStats
	skills    map[string]bool
	hp        int
	guarding  bool
	cooldowns map[string]int
	effects   []*activeEffect
}

// Engine is a single match. It is not safe for concurrent use; the arbiter owns it.
type Engine struct {
	id      uuid.UUID
	cat     *catalog.Catalog
	cfg     catalog.CombatConfig
	players [2]Combatant
	sides   [2]sideState
	order   [2]domain.Side
	cursor  int
	turns   int
	phase   Phase
	log     []domain.ActionLogEntry
	dealt   [2]int
	result  *domain.MatchResult
	rng     RNG
}

// NewEngine starts a match between challenger and opponent. Turn order is fixed here.
func NewEngine(id uuid.UUID, cat *catalog.Catalog, challenger, opponent Combatant, rng RNG) *Engine {
	e := &Engine{
		id:      id,
		cat:     cat,
		cfg:     cat.Combat(),
		players: [2]Combatant{challenger, opponent},
		rng:     rng,
		phase:   PhaseTurnStart,
	}
	for i, p := range e.players {
		skills := make(map[string]bool, len(p.Skills))
		for _, s := range p.Skills {
			skills[s] = true
		}
		e.sides[i] = sideState{
			element:   p.Element,
			stats:     p.Stats,
			skills:    skills,
			hp:        p.Stats.HP,
			cooldowns: make(map[string]int),
		}
	}
	e.order = DetermineOrder(challenger, opponent, rng)
	return e
}

// ID returns the match id
func (e *Engine) ID() uuid.UUID { return e.id }

// Phase returns the current phase
func (e *Engine) Phase() Phase { return e.phase }

// Order returns the fixed turn order
func (e *Engine) Order() [2]domain.Side { return e.order }

// Active returns the side whose turn it is
func (e *Engine) Active() domain.Side { return e.order[e.cursor] }

// Turns returns the number of resolved actions
func (e *Engine) Turns() int { return e.turns }

// HP returns both sides' current HP
func (e *Engine) HP() [2]int { return [2]int{e.sides[0].hp, e.sides[1].hp} }

// Finished reports whether the match has ended
func (e *Engine) Finished() bool { return e.phase == PhaseMatchEnd }

// Result returns the final result, or nil while the match is running
func (e *Engine) Result() *domain.MatchResult { return e.result }

// Log returns a copy of the action log
func (e *Engine) Log() []domain.ActionLogEntry {
	return append([]domain.ActionLogEntry(nil), e.log...)
}

// Cooldowns returns a copy of a side's remaining skill cooldowns
func (e *Engine) Cooldowns(side domain.Side) map[string]int {
	out := make(map[string]int, len(e.sides[side].cooldowns))
	for k, v := range e.sides[side].cooldowns {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}

// BeginTurn moves from TurnStart to ActionPending for the active side. Guard
// expires and status effects tick first; a tick can end the match.
func (e *Engine) BeginTurn() []domain.ActionLogEntry {
	if e.phase != PhaseTurnStart {
		return nil
	}
	side := e.Active()
	s := &e.sides[side]
	s.guarding = false

	start := len(e.log)
	e.tickEffects(side)
	e.tickRegen(side)

	if s.hp <= 0 {
		e.finish(domain.EndReasonKnockout, side.Other(), false)
	} else {
		e.phase = PhaseActionPending
	}
	return append([]domain.ActionLogEntry(nil), e.log[start:]...)
}

// Validate checks an action without applying it
func (e *Engine) Validate(side domain.Side, action domain.Action) error {
	if e.phase == PhaseMatchEnd {
		return fmt.Errorf("%w: %s", domain.ErrIllegalAction, domain.ErrMsgMatchFinished)
	}
	if e.phase != PhaseActionPending {
		return fmt.Errorf("%w: match is not awaiting an action", domain.ErrIllegalAction)
	}
	if side != e.Active() {
		return fmt.Errorf("%w: %s", domain.ErrIllegalAction, domain.ErrMsgNotYourTurn)
	}

	switch action.Kind {
	case domain.ActionBasicAttack, domain.ActionDefend:
		return nil
	case domain.ActionSkill:
		skill, ok := e.cat.Skill(action.SkillID)
		if !ok {
			return fmt.Errorf("%w: unknown skill '%s'", domain.ErrIllegalAction, action.SkillID)
		}
		if !e.sides[side].skills[skill.ID] {
			return fmt.Errorf("%w: %s: %s", domain.ErrIllegalAction, domain.ErrMsgSkillLocked, skill.ID)
		}
		if skill.Active == nil {
			return fmt.Errorf("%w: %s: %s", domain.ErrIllegalAction, domain.ErrMsgSkillNotActive, skill.ID)
		}
		if cd := e.sides[side].cooldowns[skill.ID]; cd > 0 {
			return fmt.Errorf("%w: %s: %s (%d turns)", domain.ErrIllegalAction, domain.ErrMsgSkillCooldown, skill.ID, cd)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown action kind '%s'", domain.ErrIllegalAction, action.Kind)
	}
}

// Apply resolves the active side's action and advances to the next turn or MatchEnd.
// An invalid action leaves the engine unchanged.
func (e *Engine) Apply(side domain.Side, action domain.Action, auto bool) ([]domain.ActionLogEntry, error) {
	if err := e.Validate(side, action); err != nil {
		return nil, err
	}

	start := len(e.log)
	e.turns++
	act := action
	entry := domain.ActionLogEntry{Turn: e.turns, Side: side, Event: domain.LogEventAction, Action: &act, Auto: auto}
	target := side.Other()

	switch action.Kind {
	case domain.ActionBasicAttack:
		e.resolveHit(&entry, side, target, 1.0, 0)
	case domain.ActionDefend:
		e.sides[side].guarding = true
	case domain.ActionSkill:
		skill, _ := e.cat.Skill(action.SkillID)
		e.resolveSkill(&entry, side, target, skill)
	}
	e.tickCooldowns(side)

	entry.HP = e.HP()
	e.log = append(e.log, entry)
	e.phase = PhaseActionResolved
	e.expireEffects(side)

	switch {
	case e.sides[target].hp <= 0:
		e.finish(domain.EndReasonKnockout, side, false)
	case e.turns >= e.cfg.MaxTurns:
		e.finishOnTurnLimit()
	default:
		e.cursor = (e.cursor + 1) % len(e.order)
		e.phase = PhaseTurnStart
	}
	return append([]domain.ActionLogEntry(nil), e.log[start:]...), nil
}

// Forfeit ends the match with the other side as winner. It is a no-op once the match has ended.
func (e *Engine) Forfeit(side domain.Side, reason domain.EndReason) *domain.MatchResult {
	if e.phase == PhaseMatchEnd {
		return e.result
	}
	e.log = append(e.log, domain.ActionLogEntry{
		Turn:  e.turns,
		Side:  side,
		Event: domain.LogEventForfeit,
		HP:    e.HP(),
	})
	e.finish(reason, side.Other(), false)
	return e.result
}

func (e *Engine) resolveHit(entry *domain.ActionLogEntry, attacker, defender domain.Side, power, critBonus float64) bool {
	h := e.strike(attacker, defender, power, critBonus)
	entry.Evaded = h.evaded
	entry.Critical = h.critical
	entry.Guarded = h.guarded
	if h.evaded {
		return false
	}
	entry.Damage = e.damage(defender, attacker, h.damage)
	return true
}

func (e *Engine) resolveSkill(entry *domain.ActionLogEntry, side, target domain.Side, skill *catalog.SkillDef) {
	active := skill.Active
	landed := true
	if active.Power > 0 {
		landed = e.resolveHit(entry, side, target, active.Power, active.CritBonus)
	}
	if active.HealPercent > 0 {
		entry.Healed = e.heal(side, active.HealPercent)
	}
	if eff := active.Effect; eff != nil {
		recipient := target
		if eff.Target == catalog.TargetSelf {
			recipient = side
		}
		if recipient == side || landed {
			e.addEffect(recipient, side, eff)
			entry.Effect = eff.Kind
		}
	}
	e.sides[side].cooldowns[skill.ID] = active.Cooldown + 1
}

// tickCooldowns counts down cooldowns at the end of the acting side's turn. A skill
// used this turn was set to cooldown+1 so it is unavailable for exactly cooldown own turns.
func (e *Engine) tickCooldowns(side domain.Side) {
	for id, cd := range e.sides[side].cooldowns {
		if cd <= 1 {
			delete(e.sides[side].cooldowns, id)
			continue
		}
		e.sides[side].cooldowns[id] = cd - 1
	}
}

// damage subtracts hp from victim, credits source, and returns the amount applied
func (e *Engine) damage(victim, source domain.Side, amount int) int {
	s := &e.sides[victim]
	if amount > s.hp {
		amount = s.hp
	}
	s.hp -= amount
	e.dealt[source] += amount
	return amount
}

func (e *Engine) heal(side domain.Side, percent float64) int {
	s := &e.sides[side]
	amount := int(float64(s.stats.HP) * percent)
	if amount < 1 {
		amount = 1
	}
	if missing := s.stats.HP - s.hp; amount > missing {
		amount = missing
	}
	s.hp += amount
	return amount
}

func (e *Engine) tickRegen(side domain.Side) {
	s := &e.sides[side]
	if s.stats.Modifiers.RegenPercent <= 0 || s.hp <= 0 || s.hp >= s.stats.HP {
		return
	}
	healed := e.heal(side, s.stats.Modifiers.RegenPercent)
	e.log = append(e.log, domain.ActionLogEntry{
		Turn:   e.turns,
		Side:   side,
		Event:  domain.LogEventRegen,
		Healed: healed,
		HP:     e.HP(),
	})
}

func (e *Engine) finishOnTurnLimit() {
	a, b := e.sides[0], e.sides[1]
	// Compare hp_a/max_a with hp_b/max_b without float rounding
	left := int64(a.hp) * int64(b.stats.HP)
	right := int64(b.hp) * int64(a.stats.HP)
	switch {
	case left > right:
		e.finish(domain.EndReasonTurnLimit, domain.SideChallenger, false)
	case right > left:
		e.finish(domain.EndReasonTurnLimit, domain.SideOpponent, false)
	default:
		e.finish(domain.EndReasonTurnLimit, 0, true)
	}
}

func (e *Engine) finish(reason domain.EndReason, winner domain.Side, draw bool) {
	var pct [2]float64
	for i := range e.sides {
		pct[i] = hpPercent(e.sides[i].hp, e.sides[i].stats.HP)
	}
	margin := 0.0
	if !draw {
		margin = pct[winner] - pct[winner.Other()]
	}
	e.result = &domain.MatchResult{
		MatchID:        e.id,
		Draw:           draw,
		Winner:         winner,
		Reason:         reason,
		FinalHPPercent: pct,
		DamageDealt:    e.dealt,
		Turns:          e.turns,
		Margin:         margin,
		Log:            e.Log(),
	}
	e.phase = PhaseMatchEnd
}

func hpPercent(hp, maxHP int) float64 {
	if hp <= 0 || maxHP <= 0 {
		return 0
	}
	return float64(hp) * 100 / float64(maxHP)
}
