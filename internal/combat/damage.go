package combat

import (
	"math"

	"github.com/osse101/BrandishDuels_Go/internal/catalog"
	"github.com/osse101/BrandishDuels_Go/internal/domain"
)

// RNG is the randomness the engine draws from. Float64 returns a value in [0, 1).
type RNG interface {
	Float64() float64
}

// ElementMultiplier returns the damage multiplier for attacker hitting defender
func ElementMultiplier(cfg catalog.CombatConfig, attacker, defender domain.Element) float64 {
	switch {
	case attacker.Beats(defender):
		return cfg.AdvantageMultiplier
	case defender.Beats(attacker):
		return cfg.DisadvantageMultiplier
	default:
		return 1.0
	}
}

// RawDamage is max(1, floor(atk*multiplier - def))
func RawDamage(atk float64, def int, multiplier float64) int {
	raw := int(math.Floor(atk*multiplier - float64(def)))
	if raw < 1 {
		return 1
	}
	return raw
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

type hit struct {
	evaded   bool
	critical bool
	guarded  bool
	damage   int
}

// strike resolves one attack. Evasion is rolled first; crit is rolled only on a hit.
func (e *Engine) strike(attacker, defender domain.Side, power, critBonus float64) hit {
	atk := &e.sides[attacker]
	def := &e.sides[defender]

	evasion := clamp(e.cfg.BaseEvasionChance+def.stats.Modifiers.EvasionChance, 0, e.cfg.MaxChance)
	if e.rng.Float64() < evasion {
		return hit{evaded: true}
	}

	attack := float64(atk.stats.ATK) * power * atk.weakenFactor(e.cfg.MinWeakenFactor)
	dmg := float64(RawDamage(attack, def.stats.DEF, ElementMultiplier(e.cfg, atk.element, def.element)))

	var h hit
	crit := clamp(e.cfg.BaseCritChance+atk.stats.Modifiers.CritChance+critBonus, 0, e.cfg.MaxChance)
	if e.rng.Float64() < crit {
		h.critical = true
		dmg *= e.cfg.CritMultiplier
	}
	if def.guarding {
		h.guarded = true
		dmg *= e.cfg.DefendMultiplier
	}
	dmg *= 1 - clamp(def.stats.Modifiers.DamageReduction, 0, e.cfg.MaxDamageReduction)

	h.damage = int(math.Floor(dmg))
	if h.damage < 1 {
		h.damage = 1
	}
	return h
}
