// Package catalog holds the immutable game data for duels: base stats, element
// multipliers, skills, combat constants, rating schedule and achievement rules.
package catalog

import (
	"sort"

	"github.com/osse101/BrandishDuels_Go/internal/domain"
)

// BonusMode declares how a skill tier's stat bonuses stack
type BonusMode string

const (
	BonusAdditive       BonusMode = "additive"
	BonusMultiplicative BonusMode = "multiplicative"
)

// StatKey names the stat a bonus applies to
type StatKey string

const (
	StatATK             StatKey = "atk"
	StatDEF             StatKey = "def"
	StatHP              StatKey = "hp"
	StatSpeed           StatKey = "speed"
	StatAll             StatKey = "all"
	StatCrit            StatKey = "crit"
	StatEvasion         StatKey = "evasion"
	StatRegen           StatKey = "regen"
	StatDamageReduction StatKey = "damage_reduction"
)

// EffectTarget is who a skill's status effect lands on
type EffectTarget string

const (
	TargetSelf     EffectTarget = "self"
	TargetOpponent EffectTarget = "opponent"
)

// RuleKind is an achievement rule type
type RuleKind string

const (
	RuleFirstWin      RuleKind = "first_win"
	RuleWinStreak     RuleKind = "win_streak"
	RuleUnderdog      RuleKind = "underdog"
	RulePerfectGame   RuleKind = "perfect_game"
	RuleDamageDealt   RuleKind = "damage_dealt"
	RuleElementWin    RuleKind = "element_win"
	RuleAllElements   RuleKind = "all_elements"
	RuleGamesPlayed   RuleKind = "games_played"
	RuleRatingReached RuleKind = "rating_reached"
)

// Config is the JSON document shape of a catalog
type Config struct {
	Version      string           `json:"version" validate:"required"`
	BaseSpeed    int              `json:"base_speed" validate:"gt=0"`
	Combat       CombatConfig     `json:"combat"`
	Rating       RatingConfig     `json:"rating"`
	Elements     []ElementDef     `json:"elements" validate:"len=4,dive"`
	Rarities     []RarityDef      `json:"rarities" validate:"min=1,dive"`
	SkillTiers   []SkillTierDef   `json:"skill_tiers" validate:"len=4,dive"`
	Skills       []SkillDef       `json:"skills" validate:"dive"`
	Achievements []AchievementDef `json:"achievements" validate:"dive"`
	MatchRewards MatchRewardsDef  `json:"match_rewards"`
}

// CombatConfig holds the combat engine constants
type CombatConfig struct {
	MaxTurns               int     `json:"max_turns" validate:"gt=0"`
	BaseCritChance         float64 `json:"base_crit_chance" validate:"gte=0,lte=1"`
	BaseEvasionChance      float64 `json:"base_evasion_chance" validate:"gte=0,lte=1"`
	MaxChance              float64 `json:"max_chance" validate:"gt=0,lte=1"`
	CritMultiplier         float64 `json:"crit_multiplier" validate:"gte=1"`
	DefendMultiplier       float64 `json:"defend_multiplier" validate:"gt=0,lte=1"`
	AdvantageMultiplier    float64 `json:"advantage_multiplier" validate:"gt=0"`
	DisadvantageMultiplier float64 `json:"disadvantage_multiplier" validate:"gt=0"`
	MaxDamageReduction     float64 `json:"max_damage_reduction" validate:"gte=0,lt=1"`
	MinWeakenFactor        float64 `json:"min_weaken_factor" validate:"gt=0,lte=1"`
}

// RatingConfig holds the Elo schedule and tier table
type RatingConfig struct {
	InitialRating    float64   `json:"initial_rating" validate:"gte=0"`
	Floor            float64   `json:"floor" validate:"gte=0"`
	ProvisionalGames int       `json:"provisional_games" validate:"gte=0"`
	ProvisionalK     float64   `json:"provisional_k" validate:"gt=0"`
	EstablishedK     float64   `json:"established_k" validate:"gt=0"`
	Tiers            []TierDef `json:"tiers" validate:"min=1,dive"`
}

// TierDef is the lower bound of a rating tier
type TierDef struct {
	Tier      domain.Tier `json:"tier" validate:"required"`
	MinRating float64     `json:"min_rating" validate:"gte=0"`
}

// ElementDef is an element's base stat multipliers
type ElementDef struct {
	ID  domain.Element `json:"id" validate:"oneof=fire water earth air"`
	ATK float64        `json:"atk" validate:"gt=0"`
	DEF float64        `json:"def" validate:"gt=0"`
	HP  float64        `json:"hp" validate:"gt=0"`
}

// RarityDef is a rarity's star cap and per-star base stats
type RarityDef struct {
	ID       domain.Rarity `json:"id" validate:"required"`
	MaxStars int           `json:"max_stars" validate:"gte=1,lte=6"`
	Stats    []StatRow     `json:"stats" validate:"dive"`
}

// StatRow is the base ATK/DEF/HP for one star level
type StatRow struct {
	ATK int `json:"atk" validate:"gt=0"`
	DEF int `json:"def" validate:"gte=0"`
	HP  int `json:"hp" validate:"gt=0"`
}

// SkillTierDef declares the bonus mode of a tier
type SkillTierDef struct {
	ID   domain.SkillTier `json:"id" validate:"oneof=basic advanced master ultimate"`
	Mode BonusMode        `json:"mode" validate:"oneof=additive multiplicative"`
}

// SkillDef is a node of an element's skill tree
type SkillDef struct {
	ID           string           `json:"id" validate:"required"`
	Name         string           `json:"name" validate:"required"`
	Element      domain.Element   `json:"element" validate:"oneof=fire water earth air"`
	Tier         domain.SkillTier `json:"tier" validate:"oneof=basic advanced master ultimate"`
	Prerequisite string           `json:"prerequisite,omitempty"`
	Bonuses      []BonusDef       `json:"bonuses" validate:"dive"`
	Active       *ActiveDef       `json:"active,omitempty"`
}

// BonusDef is a passive stat bonus; Value is a fraction (0.1 = +10%)
type BonusDef struct {
	Stat  StatKey `json:"stat" validate:"oneof=atk def hp speed all crit evasion regen damage_reduction"`
	Value float64 `json:"value"`
}

// ActiveDef makes a skill usable as a combat action
type ActiveDef struct {
	Power       float64    `json:"power" validate:"gte=0"`
	Cooldown    int        `json:"cooldown" validate:"gte=0"`
	CritBonus   float64    `json:"crit_bonus" validate:"gte=0,lte=1"`
	HealPercent float64    `json:"heal_percent" validate:"gte=0,lte=1"`
	Effect      *EffectDef `json:"effect,omitempty"`
}

// EffectDef is a status effect a skill applies
type EffectDef struct {
	Kind      domain.EffectKind `json:"kind" validate:"oneof=burn poison weaken regen"`
	Target    EffectTarget      `json:"target" validate:"oneof=self opponent"`
	Duration  int               `json:"duration" validate:"gte=1"`
	Magnitude float64           `json:"magnitude" validate:"gt=0,lte=1"`
}

// AchievementDef is a rule evaluated after every match
type AchievementDef struct {
	ID          string         `json:"id" validate:"required"`
	Name        string         `json:"name" validate:"required"`
	Description string         `json:"description"`
	Kind        RuleKind       `json:"kind" validate:"oneof=first_win win_streak underdog perfect_game damage_dealt element_win all_elements games_played rating_reached"`
	Threshold   int            `json:"threshold" validate:"gte=0"`
	Element     domain.Element `json:"element,omitempty"`
	Rewards     []RewardDef    `json:"rewards" validate:"dive"`
}

// RewardDef is a resource amount granted to a player
type RewardDef struct {
	Resource string `json:"resource" validate:"required"`
	Amount   int    `json:"amount" validate:"gt=0"`
}

// MatchRewardsDef are the participation rewards for each outcome
type MatchRewardsDef struct {
	Win  []RewardDef `json:"win" validate:"dive"`
	Loss []RewardDef `json:"loss" validate:"dive"`
	Draw []RewardDef `json:"draw" validate:"dive"`
}

// Catalog is the validated, indexed, read-only form of a Config.
// It is safe for concurrent use.
type Catalog struct {
	version      string
	baseSpeed    int
	combat       CombatConfig
	rating       RatingConfig
	elements     map[domain.Element]ElementDef
	rarities     map[domain.Rarity]RarityDef
	tierModes    map[domain.SkillTier]BonusMode
	skills       []SkillDef
	skillIndex   map[string]int
	achievements []AchievementDef
	matchRewards MatchRewardsDef
}

func newCatalog(cfg *Config) *Catalog {
	c := &Catalog{
		version:      cfg.Version,
		baseSpeed:    cfg.BaseSpeed,
		combat:       cfg.Combat,
		rating:       cfg.Rating,
		elements:     make(map[domain.Element]ElementDef, len(cfg.Elements)),
		rarities:     make(map[domain.Rarity]RarityDef, len(cfg.Rarities)),
		tierModes:    make(map[domain.SkillTier]BonusMode, len(cfg.SkillTiers)),
		skills:       append([]SkillDef(nil), cfg.Skills...),
		skillIndex:   make(map[string]int, len(cfg.Skills)),
		achievements: append([]AchievementDef(nil), cfg.Achievements...),
		matchRewards: cfg.MatchRewards,
	}
	for _, e := range cfg.Elements {
		c.elements[e.ID] = e
	}
	for _, r := range cfg.Rarities {
		c.rarities[r.ID] = r
	}
	for _, t := range cfg.SkillTiers {
		c.tierModes[t.ID] = t.Mode
	}
	for i, s := range c.skills {
		c.skillIndex[s.ID] = i
	}
	c.rating.Tiers = append([]TierDef(nil), cfg.Rating.Tiers...)
	sort.Slice(c.rating.Tiers, func(i, j int) bool {
		return c.rating.Tiers[i].MinRating < c.rating.Tiers[j].MinRating
	})
	return c
}

// Version returns the catalog document version
func (c *Catalog) Version() string { return c.version }

// BaseSpeed returns the speed every hero starts from
func (c *Catalog) BaseSpeed() int { return c.baseSpeed }

// Combat returns the combat constants
func (c *Catalog) Combat() CombatConfig { return c.combat }

// Rating returns the rating schedule. The tier table is sorted by MinRating ascending.
func (c *Catalog) Rating() RatingConfig {
	out := c.rating
	out.Tiers = append([]TierDef(nil), c.rating.Tiers...)
	return out
}

// Element looks up an element's multipliers
func (c *Catalog) Element(id domain.Element) (ElementDef, bool) {
	e, ok := c.elements[id]
	return e, ok
}

// Rarity looks up a rarity's star table
func (c *Catalog) Rarity(id domain.Rarity) (RarityDef, bool) {
	r, ok := c.rarities[id]
	return r, ok
}

// TierMode returns the bonus mode of a skill tier
func (c *Catalog) TierMode(tier domain.SkillTier) BonusMode {
	if m, ok := c.tierModes[tier]; ok {
		return m
	}
	return BonusAdditive
}

// Skill looks up a skill by id. The returned pointer must not be modified.
func (c *Catalog) Skill(id string) (*SkillDef, bool) {
	i, ok := c.skillIndex[id]
	if !ok {
		return nil, false
	}
	return &c.skills[i], true
}

// Skills returns every skill in document order
func (c *Catalog) Skills() []SkillDef {
	return append([]SkillDef(nil), c.skills...)
}

// Achievements returns every achievement rule in document order
func (c *Catalog) Achievements() []AchievementDef {
	return append([]AchievementDef(nil), c.achievements...)
}

// MatchRewards returns the participation rewards
func (c *Catalog) MatchRewards() MatchRewardsDef { return c.matchRewards }
