// Package hero turns a persistent HeroBuild into the ResolvedStats used in combat.
package hero

import (
	"fmt"
	"math"
	"sort"

	"github.com/osse101/BrandishDuels_Go/internal/catalog"
	"github.com/osse101/BrandishDuels_Go/internal/domain"
)

type statBonus struct {
	add  float64
	mult float64
}

func newStatBonus() statBonus {
	return statBonus{mult: 1}
}

func (b *statBonus) apply(mode catalog.BonusMode, value float64) {
	if mode == catalog.BonusMultiplicative {
		b.mult *= 1 + value
		return
	}
	b.add += value
}

func (b statBonus) scale(base float64) int {
	v := int(math.Floor(base * (1 + b.add) * b.mult))
	if v < 1 {
		return 1
	}
	return v
}

// Resolve computes the combat stats of a build. It is a pure function of the
// catalog and the build: the same inputs always produce the same stats.
func Resolve(cat *catalog.Catalog, build domain.HeroBuild) (domain.ResolvedStats, error) {
	element, ok := cat.Element(build.Element)
	if !ok {
		return domain.ResolvedStats{}, invalid("unknown element '%s'", build.Element)
	}
	rarity, ok := cat.Rarity(build.Rarity)
	if !ok {
		return domain.ResolvedStats{}, invalid("unknown rarity '%s'", build.Rarity)
	}
	if build.Stars < 1 || build.Stars > rarity.MaxStars {
		return domain.ResolvedStats{}, invalid("%s heroes have 1 to %d stars, got %d", build.Rarity, rarity.MaxStars, build.Stars)
	}

	skills, err := unlockedSkills(cat, build.Skills)
	if err != nil {
		return domain.ResolvedStats{}, err
	}

	atk, def, hp, speed := newStatBonus(), newStatBonus(), newStatBonus(), newStatBonus()
	var mods domain.StatModifiers

	// Sorted so float accumulation order never depends on the caller's slice order
	for _, skill := range skills {
		mode := cat.TierMode(skill.Tier)
		for _, bonus := range skill.Bonuses {
			switch bonus.Stat {
			case catalog.StatATK:
				atk.apply(mode, bonus.Value)
			case catalog.StatDEF:
				def.apply(mode, bonus.Value)
			case catalog.StatHP:
				hp.apply(mode, bonus.Value)
			case catalog.StatAll:
				atk.apply(mode, bonus.Value)
				def.apply(mode, bonus.Value)
				hp.apply(mode, bonus.Value)
			case catalog.StatSpeed:
				speed.apply(mode, bonus.Value)
			case catalog.StatCrit:
				mods.CritChance += bonus.Value
			case catalog.StatEvasion:
				mods.EvasionChance += bonus.Value
			case catalog.StatRegen:
				mods.RegenPercent += bonus.Value
			case catalog.StatDamageReduction:
				mods.DamageReduction += bonus.Value
			}
		}
	}

	row := rarity.Stats[build.Stars-1]
	return domain.ResolvedStats{
		ATK:       atk.scale(float64(row.ATK) * element.ATK),
		DEF:       scaleDefense(def, float64(row.DEF)*element.DEF),
		HP:        hp.scale(float64(row.HP) * element.HP),
		Speed:     speed.scale(float64(cat.BaseSpeed())),
		Modifiers: mods,
	}, nil
}

// Validate reports whether a build would resolve, without computing stats
func Validate(cat *catalog.Catalog, build domain.HeroBuild) error {
	_, err := Resolve(cat, build)
	return err
}

// scaleDefense allows a zero-defense row to stay at zero
func scaleDefense(b statBonus, base float64) int {
	if base <= 0 {
		return 0
	}
	return b.scale(base)
}

func unlockedSkills(cat *catalog.Catalog, ids []string) ([]*catalog.SkillDef, error) {
	unlocked := make(map[string]bool, len(ids))
	for _, id := range ids {
		if unlocked[id] {
			return nil, invalid("skill '%s' listed twice", id)
		}
		unlocked[id] = true
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	skills := make([]*catalog.SkillDef, 0, len(sorted))
	for _, id := range sorted {
		skill, ok := cat.Skill(id)
		if !ok {
			return nil, invalid("unknown skill '%s'", id)
		}
		if skill.Prerequisite != "" && !unlocked[skill.Prerequisite] {
			return nil, invalid("skill '%s' requires '%s'", id, skill.Prerequisite)
		}
		skills = append(skills, skill)
	}
	return skills, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidBuild, fmt.Sprintf(format, args...))
}
