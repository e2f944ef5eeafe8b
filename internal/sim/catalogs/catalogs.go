package catalogs

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed activities.yaml
var defaultActivities []byte

type Catalogs struct {
	Activities ActivityCatalog
}

type ActivityCatalog struct {
	// Modes maps a game mode id ("NORMAL", "SWIM", ...) to its ordered activity defs.
	Modes  map[string][]ActivityDef `yaml:"modes"`
	Digest string                   `yaml:"-"`
}

type ActivityDef struct {
	Type                    string     `yaml:"type"`
	Baseline                bool       `yaml:"baseline"`
	Unlocked                bool       `yaml:"unlocked"`
	SkipApprenticeshipLevel int        `yaml:"skip_apprenticeship_level"`
	Levels                  []LevelDef `yaml:"levels"`
}

type LevelDef struct {
	Name         string             `yaml:"name"`
	Description  string             `yaml:"description"`
	Consequence  string             `yaml:"consequence"`
	Requirements map[string]float64 `yaml:"requirements"`
}

// Default returns the activity tables compiled into the binary.
func Default() (*Catalogs, error) {
	return parse(defaultActivities, "activities.yaml")
}

// Load reads an activity table override from path.
func Load(path string) (*Catalogs, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(raw, path)
}

func parse(raw []byte, name string) (*Catalogs, error) {
	var c Catalogs
	if err := yaml.Unmarshal(raw, &c.Activities); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := c.Activities.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	c.Activities.Digest = sha256Hex(raw)
	return &c, nil
}

// Mode returns the defs for a mode id, in table order.
func (c *ActivityCatalog) Mode(id string) ([]ActivityDef, bool) {
	defs, ok := c.Modes[id]
	return defs, ok
}

// ModeIDs returns the mode ids in sorted order.
func (c *ActivityCatalog) ModeIDs() []string {
	ids := make([]string, 0, len(c.Modes))
	for id := range c.Modes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *ActivityCatalog) validate() error {
	if len(c.Modes) == 0 {
		return fmt.Errorf("no modes")
	}
	for _, mode := range c.ModeIDs() {
		defs := c.Modes[mode]
		if len(defs) == 0 {
			return fmt.Errorf("mode %s: no activities", mode)
		}
		seen := map[string]bool{}
		for _, d := range defs {
			if d.Type == "" {
				return fmt.Errorf("mode %s: empty type", mode)
			}
			if seen[d.Type] {
				return fmt.Errorf("mode %s: duplicate type %s", mode, d.Type)
			}
			seen[d.Type] = true
			if len(d.Levels) == 0 {
				return fmt.Errorf("mode %s: %s has no levels", mode, d.Type)
			}
			if d.SkipApprenticeshipLevel < 0 || d.SkipApprenticeshipLevel >= len(d.Levels) {
				return fmt.Errorf("mode %s: %s skip_apprenticeship_level %d out of range", mode, d.Type, d.SkipApprenticeshipLevel)
			}
			for i, l := range d.Levels {
				if l.Name == "" {
					return fmt.Errorf("mode %s: %s level %d has no name", mode, d.Type, i)
				}
			}
		}
	}
	return nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
