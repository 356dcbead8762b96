package domain

import "time"

// Element is a hero's elemental affinity
type Element string

const (
	ElementFire  Element = "fire"
	ElementWater Element = "water"
	ElementEarth Element = "earth"
	ElementAir   Element = "air"
)

// Elements lists every element in advantage-cycle order: each element beats the next one.
var Elements = []Element{ElementFire, ElementAir, ElementEarth, ElementWater}

// Valid reports whether e is a known element
func (e Element) Valid() bool {
	for _, el := range Elements {
		if el == e {
			return true
		}
	}
	return false
}

// Beats reports whether e has the elemental advantage over other
func (e Element) Beats(other Element) bool {
	for i, el := range Elements {
		if el == e {
			return Elements[(i+1)%len(Elements)] == other
		}
	}
	return false
}

// Rarity is the rarity of a hero, which caps its star level
type Rarity string

const (
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// SkillTier groups skills by depth in the skill tree
type SkillTier string

const (
	SkillTierBasic    SkillTier = "basic"
	SkillTierAdvanced SkillTier = "advanced"
	SkillTierMaster   SkillTier = "master"
	SkillTierUltimate SkillTier = "ultimate"
)

// HeroBuild is a player's persistent character configuration
type HeroBuild struct {
	UserID    string    `json:"user_id"`
	Element   Element   `json:"element"`
	Rarity    Rarity    `json:"rarity"`
	Stars     int       `json:"stars"`
	Skills    []string  `json:"skills"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasSkill reports whether the build has unlocked the skill
func (b HeroBuild) HasSkill(id string) bool {
	for _, s := range b.Skills {
		if s == id {
			return true
		}
	}
	return false
}

// StatModifiers are skill-derived secondary stats. Chances and percents are fractions (0.05 = 5%).
type StatModifiers struct {
	CritChance      float64 `json:"crit_chance"`
	EvasionChance   float64 `json:"evasion_chance"`
	RegenPercent    float64 `json:"regen_percent"`
	DamageReduction float64 `json:"damage_reduction"`
}

// ResolvedStats is the combat snapshot of a build, computed once at match start
type ResolvedStats struct {
	ATK       int           `json:"atk"`
	DEF       int           `json:"def"`
	HP        int           `json:"hp"`
	Speed     int           `json:"speed"`
	Modifiers StatModifiers `json:"modifiers"`
}

// EffectKind identifies a status effect
type EffectKind string

const (
	EffectBurn   EffectKind = "burn"
	EffectPoison EffectKind = "poison"
	EffectWeaken EffectKind = "weaken"
	EffectRegen  EffectKind = "regen"
)
