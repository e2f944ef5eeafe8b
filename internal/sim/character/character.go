// Package character is a minimal attribute and resource model for the headless
// runtime. The progression engine only sees it through activity.Character.
package character

import (
	"math"

	"immortal.idle/internal/sim/activity"
)

const (
	defaultStamina  = 100
	defaultHealth   = 30
	defaultLifespan = 70 * 365
)

type AttributeState struct {
	Value    float64 `json:"value"`
	Aptitude float64 `json:"aptitude"`
}

type BarState struct {
	Value float64 `json:"value"`
	Max   float64 `json:"max"`
}

type State struct {
	Attributes   map[activity.Attribute]AttributeState `json:"attributes"`
	Bars         map[activity.Bar]BarState             `json:"bars"`
	Money        float64                               `json:"money"`
	ManaUnlocked bool                                  `json:"mana_unlocked"`
	AgeDays      int                                   `json:"age_days"`
	LifespanDays int                                   `json:"lifespan_days"`
}

type Character struct {
	st State
}

func New() *Character {
	c := &Character{st: State{
		Attributes: map[activity.Attribute]AttributeState{},
	}}
	for _, a := range activity.Attributes {
		c.st.Attributes[a] = AttributeState{Aptitude: 1}
	}
	c.resetLife()
	return c
}

// FromState rebuilds a character from saved state, filling gaps with defaults.
func FromState(st State) *Character {
	c := New()
	for a, v := range st.Attributes {
		c.st.Attributes[a] = v
	}
	for b, v := range st.Bars {
		c.st.Bars[b] = v
	}
	c.st.Money = st.Money
	c.st.ManaUnlocked = st.ManaUnlocked
	c.st.AgeDays = st.AgeDays
	if st.LifespanDays > 0 {
		c.st.LifespanDays = st.LifespanDays
	}
	return c
}

// State returns a copy safe to serialize.
func (c *Character) State() State {
	out := c.st
	out.Attributes = make(map[activity.Attribute]AttributeState, len(c.st.Attributes))
	for k, v := range c.st.Attributes {
		out.Attributes[k] = v
	}
	out.Bars = make(map[activity.Bar]BarState, len(c.st.Bars))
	for k, v := range c.st.Bars {
		out.Bars[k] = v
	}
	return out
}

func (c *Character) resetLife() {
	for _, a := range activity.Attributes[:5] {
		st := c.st.Attributes[a]
		st.Value = 1
		c.st.Attributes[a] = st
	}
	for _, a := range activity.Attributes[5:] {
		st := c.st.Attributes[a]
		st.Value = 0
		c.st.Attributes[a] = st
	}
	c.st.Bars = map[activity.Bar]BarState{
		activity.Stamina: {Value: defaultStamina, Max: defaultStamina},
		activity.Health:  {Value: defaultHealth, Max: defaultHealth},
		activity.Mana:    {},
	}
	c.st.Money = 0
	c.st.AgeDays = 0
	c.st.LifespanDays = defaultLifespan
}

// Reincarnate starts a new life. Part of each attribute carries over as aptitude.
func (c *Character) Reincarnate() {
	for a, st := range c.st.Attributes {
		st.Aptitude += st.Value / 100
		c.st.Attributes[a] = st
	}
	c.resetLife()
}

func (c *Character) Attribute(a activity.Attribute) float64 {
	return c.st.Attributes[a].Value
}

func (c *Character) SetAttribute(a activity.Attribute, v float64) {
	st := c.st.Attributes[a]
	st.Value = v
	c.st.Attributes[a] = st
}

func (c *Character) IncreaseAttribute(a activity.Attribute, amount float64) float64 {
	st := c.st.Attributes[a]
	gain := amount * aptitudeMultiplier(st.Aptitude)
	st.Value += gain
	c.st.Attributes[a] = st
	return gain
}

func (c *Character) AddAptitude(a activity.Attribute, amount float64) {
	st := c.st.Attributes[a]
	st.Aptitude += amount
	c.st.Attributes[a] = st
}

func aptitudeMultiplier(apt float64) float64 {
	switch {
	case apt <= 0:
		return 0
	case apt < 100:
		return apt
	default:
		return 100 + math.Sqrt(apt-100)
	}
}

func (c *Character) Bar(b activity.Bar) (value, max float64) {
	st := c.st.Bars[b]
	return st.Value, st.Max
}

func (c *Character) AdjustBar(b activity.Bar, delta float64) {
	st := c.st.Bars[b]
	st.Value += delta
	c.st.Bars[b] = st
}

func (c *Character) FillBar(b activity.Bar) {
	st := c.st.Bars[b]
	st.Value = st.Max
	c.st.Bars[b] = st
}

func (c *Character) RaiseBarMax(b activity.Bar, delta float64) {
	st := c.st.Bars[b]
	st.Max += delta
	st.Value += delta
	c.st.Bars[b] = st
}

func (c *Character) CheckOverage() {
	for b, st := range c.st.Bars {
		if st.Value > st.Max {
			st.Value = st.Max
			c.st.Bars[b] = st
		}
	}
}

func (c *Character) Money() float64 { return c.st.Money }

func (c *Character) AdjustMoney(delta float64) { c.st.Money += delta }

func (c *Character) ManaUnlocked() bool { return c.st.ManaUnlocked }

func (c *Character) UnlockMana() {
	c.st.ManaUnlocked = true
	if st := c.st.Bars[activity.Mana]; st.Max < 1 {
		c.st.Bars[activity.Mana] = BarState{Value: 1, Max: 1}
	}
}

// AgeDay advances the character by one day of life.
func (c *Character) AgeDay() { c.st.AgeDays++ }

func (c *Character) Dead() bool {
	hp, _ := c.Bar(activity.Health)
	return hp <= 0 || c.st.AgeDays >= c.st.LifespanDays
}
