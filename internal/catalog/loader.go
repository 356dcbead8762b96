package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/osse101/BrandishDuels_Go/internal/domain"
	"github.com/osse101/BrandishDuels_Go/internal/validation"
)

//go:embed data/catalog.json
var defaultCatalogJSON []byte

//go:embed data/catalog.schema.json
var catalogSchemaJSON []byte

var (
	schemaOnce      sync.Once
	schemaValidator validation.SchemaValidator
	schemaErr       error

	structValidator = validator.New()
)

func schemas() (validation.SchemaValidator, error) {
	schemaOnce.Do(func() {
		schemaValidator = validation.NewSchemaValidator()
		schemaErr = schemaValidator.Register(SchemaName, catalogSchemaJSON)
	})
	return schemaValidator, schemaErr
}

// Default returns the catalog compiled into the binary
func Default() (*Catalog, error) {
	return Parse(defaultCatalogJSON)
}

// MustDefault is Default for tests and tools; it panics on error
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads a catalog from path, or returns the built-in catalog when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse validates a JSON catalog document against the schema, its struct tags and
// its cross references, then indexes it
func Parse(data []byte) (*Catalog, error) {
	sv, err := schemas()
	if err != nil {
		return nil, err
	}
	if err := sv.ValidateBytes(SchemaName, data); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCatalog, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse: %v", domain.ErrInvalidCatalog, err)
	}
	return New(&cfg)
}

// New validates and indexes an in-memory config
func New(cfg *Config) (*Catalog, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", domain.ErrInvalidCatalog)
	}
	if err := structValidator.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCatalog, err)
	}
	if err := validateReferences(cfg); err != nil {
		return nil, err
	}
	return newCatalog(cfg), nil
}

func validateReferences(cfg *Config) error {
	seenElements := make(map[domain.Element]bool, len(cfg.Elements))
	for _, e := range cfg.Elements {
		if seenElements[e.ID] {
			return invalid("duplicate element '%s'", e.ID)
		}
		seenElements[e.ID] = true
	}

	seenRarities := make(map[domain.Rarity]bool, len(cfg.Rarities))
	for _, r := range cfg.Rarities {
		if seenRarities[r.ID] {
			return invalid("duplicate rarity '%s'", r.ID)
		}
		seenRarities[r.ID] = true
		if len(r.Stats) != r.MaxStars {
			return invalid("rarity '%s' has %d stat rows for %d stars", r.ID, len(r.Stats), r.MaxStars)
		}
	}

	seenTiers := make(map[domain.SkillTier]bool, len(cfg.SkillTiers))
	for _, t := range cfg.SkillTiers {
		if seenTiers[t.ID] {
			return invalid("duplicate skill tier '%s'", t.ID)
		}
		seenTiers[t.ID] = true
	}

	skillsByID := make(map[string]*SkillDef, len(cfg.Skills))
	for i := range cfg.Skills {
		s := &cfg.Skills[i]
		if _, exists := skillsByID[s.ID]; exists {
			return invalid("duplicate skill '%s'", s.ID)
		}
		skillsByID[s.ID] = s
	}
	for _, s := range cfg.Skills {
		if s.Prerequisite == "" {
			continue
		}
		if _, ok := skillsByID[s.Prerequisite]; !ok {
			return invalid("skill '%s' references unknown prerequisite '%s'", s.ID, s.Prerequisite)
		}
	}
	if err := detectCycles(cfg.Skills, skillsByID); err != nil {
		return err
	}

	if len(cfg.Rating.Tiers) == 0 {
		return invalid("rating tiers are empty")
	}
	lowest := cfg.Rating.Tiers[0].MinRating
	for _, t := range cfg.Rating.Tiers {
		if t.MinRating < lowest {
			lowest = t.MinRating
		}
	}
	if lowest != 0 {
		return invalid("lowest rating tier must start at 0")
	}

	seenAchievements := make(map[string]bool, len(cfg.Achievements))
	for _, a := range cfg.Achievements {
		if seenAchievements[a.ID] {
			return invalid("duplicate achievement '%s'", a.ID)
		}
		seenAchievements[a.ID] = true
		if a.Kind == RuleElementWin && !a.Element.Valid() {
			return invalid("achievement '%s' needs a valid element", a.ID)
		}
	}

	return nil
}

// detectCycles walks prerequisite chains; state 0 = unvisited, 1 = visiting, 2 = visited
func detectCycles(skills []SkillDef, skillsByID map[string]*SkillDef) error {
	state := make(map[string]int, len(skills))

	var dfs func(id string) error
	dfs = func(id string) error {
		switch state[id] {
		case 1:
			return invalid("prerequisite cycle at skill '%s'", id)
		case 2:
			return nil
		}
		state[id] = 1
		if pre := skillsByID[id].Prerequisite; pre != "" {
			if err := dfs(pre); err != nil {
				return err
			}
		}
		state[id] = 2
		return nil
	}

	for _, s := range skills {
		if err := dfs(s.ID); err != nil {
			return err
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidCatalog, fmt.Sprintf(format, args...))
}
