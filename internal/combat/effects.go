package combat

import (
	"math"

	"github.com/osse101/BrandishDuels_Go/internal/catalog"
	"github.com/osse101/BrandishDuels_Go/internal/domain"
)

type activeEffect struct {
	kind      domain.EffectKind
	magnitude float64
	remaining int
	source    domain.Side
}

// addEffect applies a status effect. Reapplying the same kind from the same source
// refreshes duration and keeps the stronger magnitude instead of stacking.
func (e *Engine) addEffect(recipient, source domain.Side, def *catalog.EffectDef) {
	s := &e.sides[recipient]
	for _, eff := range s.effects {
		if eff.kind == def.Kind && eff.source == source {
			eff.remaining = def.Duration
			eff.magnitude = math.Max(eff.magnitude, def.Magnitude)
			return
		}
	}
	s.effects = append(s.effects, &activeEffect{
		kind:      def.Kind,
		magnitude: def.Magnitude,
		remaining: def.Duration,
		source:    source,
	})
}

// tickEffects runs at the start of side's turn: damage and healing effects fire,
// and every effect spends one turn of its duration.
func (e *Engine) tickEffects(side domain.Side) {
	s := &e.sides[side]
	for _, eff := range s.effects {
		if eff.remaining <= 0 {
			continue
		}
		entry := domain.ActionLogEntry{Turn: e.turns, Side: side, Event: domain.LogEventStatusTick, Effect: eff.kind}
		switch eff.kind {
		case domain.EffectBurn, domain.EffectPoison:
			amount := int(float64(s.stats.HP) * eff.magnitude)
			if amount < 1 {
				amount = 1
			}
			entry.Damage = e.damage(side, eff.source, amount)
		case domain.EffectRegen:
			if s.hp < s.stats.HP {
				entry.Healed = e.heal(side, eff.magnitude)
			}
		}
		eff.remaining--
		entry.HP = e.HP()
		e.log = append(e.log, entry)
		if s.hp <= 0 {
			return
		}
	}
}

// expireEffects drops effects whose duration ran out. It runs after the side acts
// so a weaken with one turn left still applies to that turn's attack.
func (e *Engine) expireEffects(side domain.Side) {
	s := &e.sides[side]
	kept := s.effects[:0]
	for _, eff := range s.effects {
		if eff.remaining > 0 {
			kept = append(kept, eff)
		}
	}
	s.effects = kept
}

// weakenFactor is the multiplier on this side's ATK from weaken effects
func (s *sideState) weakenFactor(floor float64) float64 {
	factor := 1.0
	for _, eff := range s.effects {
		if eff.kind == domain.EffectWeaken {
			factor -= eff.magnitude
		}
	}
	return math.Max(floor, factor)
}

// ActiveEffects summarises a side's effects as kind to remaining turns
func (e *Engine) ActiveEffects(side domain.Side) map[domain.EffectKind]int {
	out := make(map[domain.EffectKind]int)
	for _, eff := range e.sides[side].effects {
		if eff.remaining > out[eff.kind] {
			out[eff.kind] = eff.remaining
		}
	}
	return out
}
