package activity

import "math/rand"

// Bar is a depletable character resource.
type Bar string

const (
	Stamina Bar = "stamina"
	Health  Bar = "health"
	Mana    Bar = "mana"
)

type AttributeReader interface {
	Attribute(a Attribute) float64
}

type Character interface {
	AttributeReader
	// IncreaseAttribute raises a by amount scaled by aptitude and returns the applied gain.
	IncreaseAttribute(a Attribute, amount float64) float64
	AddAptitude(a Attribute, amount float64)

	Bar(b Bar) (value, max float64)
	AdjustBar(b Bar, delta float64)
	FillBar(b Bar)
	RaiseBarMax(b Bar, delta float64)
	// CheckOverage clamps every bar to its maximum.
	CheckOverage()

	Money() float64
	AdjustMoney(delta float64)

	ManaUnlocked() bool
	Dead() bool
}

type Inventory interface {
	AddItem(id string)
	// Consume removes the best item of kind and returns its grade, or 0 if none was found.
	Consume(kind string) float64
	OpenSlots() int

	GenerateHerb()
	AddWeapon(grade float64, material string)
	AddArmor(grade float64, material string)
	GeneratePotion(grade float64, pill bool)
	AddWood()
	AddOre()
	AddBar(grade float64)
}

type Home interface {
	Workbench() string
	WorkFields(power int)
}

type Battle interface {
	AddEnemy(id string)
}

type Followers interface {
	Unlocked() bool
	Generate()
}

// Trial identifies an impossible task.
type Trial string

const (
	TrialSwim        Trial = "SWIM"
	TrialRaiseIsland Trial = "RAISE_ISLAND"
)

type Trials interface {
	// AddProgress records one unit of progress and reports whether the trial is now complete.
	AddProgress(t Trial) bool
}

type LogKind string

const (
	LogStandard LogKind = "STANDARD"
	LogInjury   LogKind = "INJURY"
)

type LogCategory string

const (
	LogStory LogCategory = "STORY"
	LogEvent LogCategory = "EVENT"
)

type Log interface {
	AddMessage(text string, kind LogKind, category LogCategory)
}

// Progress is the engine surface effects may call back into.
type Progress interface {
	ClaimApprenticeship(t Type)
	AddOddJobDay()
	AddBeggingDay()
}

// Env bundles the collaborators an effect may touch.
type Env struct {
	Character Character
	Inventory Inventory
	Home      Home
	Battle    Battle
	Followers Followers
	Trials    Trials
	Log       Log
	Progress  Progress

	// Rand returns a uniform draw in [0, 1). Nil uses math/rand.
	Rand func() float64
}

type Effect func(env Env)

func (e Env) roll() float64 {
	if e.Rand != nil {
		return e.Rand()
	}
	return rand.Float64()
}

func (e Env) workbench() string {
	if e.Home == nil {
		return ""
	}
	return e.Home.Workbench()
}
