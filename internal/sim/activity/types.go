package activity

import (
	"errors"
	"fmt"
	"strings"
)

// Type is the stable identifier of an activity. It is persisted in saves.
type Type string

const (
	OddJobs         Type = "ODD_JOBS"
	Resting         Type = "RESTING"
	Begging         Type = "BEGGING"
	Blacksmithing   Type = "BLACKSMITHING"
	GatherHerbs     Type = "GATHER_HERBS"
	Alchemy         Type = "ALCHEMY"
	ChopWood        Type = "CHOP_WOOD"
	Woodworking     Type = "WOODWORKING"
	Leatherworking  Type = "LEATHERWORKING"
	Farming         Type = "FARMING"
	Mining          Type = "MINING"
	Smelting        Type = "SMELTING"
	Hunting         Type = "HUNTING"
	Fishing         Type = "FISHING"
	Burning         Type = "BURNING"
	BodyCultivation Type = "BODY_CULTIVATION"
	MindCultivation Type = "MIND_CULTIVATION"
	CoreCultivation Type = "CORE_CULTIVATION"
	Recruiting      Type = "RECRUITING"

	// Challenge-mode activities.
	Swim         Type = "SWIM"
	ForgeChains  Type = "FORGE_CHAINS"
	AttachChains Type = "ATTACH_CHAINS"
)

// Mode selects which activity rule set is active.
type Mode string

const (
	ModeNormal      Mode = "NORMAL"
	ModeSwim        Mode = "SWIM"
	ModeRaiseIsland Mode = "RAISE_ISLAND"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToUpper(strings.TrimSpace(s))); m {
	case ModeNormal, ModeSwim, ModeRaiseIsland:
		return m, nil
	case "":
		return ModeNormal, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// Attribute identifies a character attribute used in requirements.
type Attribute string

const (
	Strength       Attribute = "strength"
	Toughness      Attribute = "toughness"
	Speed          Attribute = "speed"
	Intelligence   Attribute = "intelligence"
	Charisma       Attribute = "charisma"
	Spirituality   Attribute = "spirituality"
	EarthLore      Attribute = "earthLore"
	MetalLore      Attribute = "metalLore"
	WoodLore       Attribute = "woodLore"
	WaterLore      Attribute = "waterLore"
	FireLore       Attribute = "fireLore"
	AnimalHandling Attribute = "animalHandling"
)

// Attributes lists every attribute in display order. The first five are the
// physical and mental basics.
var Attributes = []Attribute{
	Strength, Toughness, Speed, Intelligence, Charisma,
	Spirituality, EarthLore, MetalLore, WoodLore, WaterLore, FireLore, AnimalHandling,
}

func knownAttribute(a Attribute) bool {
	for _, x := range Attributes {
		if x == a {
			return true
		}
	}
	return false
}

// Requirements maps attributes to thresholds. Attributes absent from the map are unconstrained.
type Requirements map[Attribute]float64

type Level struct {
	Name                   string
	Description            string
	ConsequenceDescription string
	Requirements           Requirements
	Effect                 Effect
}

// Activity is a leveled, selectable action. Level never decreases within a lifetime.
type Activity struct {
	Type   Type
	Level  int
	Levels []Level

	Unlocked bool
	// Baseline activities are unlocked on every reincarnation regardless of requirements.
	Baseline bool
	// SkipApprenticeshipLevel is the grade at which the apprenticeship gate stops
	// applying. 0 means the trade never needed an apprenticeship.
	SkipApprenticeshipLevel int
}

var ErrUnknownActivity = errors.New("unknown activity")

func (a *Activity) Current() Level { return a.Levels[a.Level] }

func (a *Activity) Name() string { return a.Levels[a.Level].Name }

func (a *Activity) HasNextLevel() bool { return a.Level+1 < len(a.Levels) }

// InTraining reports whether the activity is still below its apprenticeship skip level.
func (a *Activity) InTraining() bool { return a.Level < a.SkipApprenticeshipLevel }

// Find looks up an activity by type. A miss means the caller holds a reference
// from another catalog and is reported as ErrUnknownActivity.
func Find(acts []*Activity, t Type) (*Activity, error) {
	for _, a := range acts {
		if a.Type == t {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownActivity, t)
}
