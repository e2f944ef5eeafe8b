// Package collab holds small in-memory implementations of the systems that
// activity effects reach into: inventory, home, battle, followers, trials and
// the player log. They back the headless runtime and the tests.
package collab

import (
	"fmt"
	"math/rand"

	"immortal.idle/internal/sim/activity"
)

type Item struct {
	ID    string  `json:"id"`
	Kind  string  `json:"kind"`
	Grade float64 `json:"grade"`
}

// itemKinds maps fixed item ids to their consumable kind.
var itemKinds = map[string]string{
	"junk":             "junk",
	"meat":             "food",
	"carp":             "food",
	"hide":             "hide",
	"unbreakableChain": "chain",
}

type Inventory struct {
	Capacity int
	Items    []Item
}

func NewInventory(capacity int) *Inventory {
	if capacity <= 0 {
		capacity = 10
	}
	return &Inventory{Capacity: capacity}
}

func (inv *Inventory) add(it Item) {
	if len(inv.Items) >= inv.Capacity {
		return
	}
	inv.Items = append(inv.Items, it)
}

func (inv *Inventory) AddItem(id string) {
	kind, ok := itemKinds[id]
	if !ok {
		kind = id
	}
	inv.add(Item{ID: id, Kind: kind, Grade: 1})
}

// Consume removes the highest-grade item of kind.
func (inv *Inventory) Consume(kind string) float64 {
	best := -1
	for i, it := range inv.Items {
		if it.Kind != kind {
			continue
		}
		if best < 0 || it.Grade > inv.Items[best].Grade {
			best = i
		}
	}
	if best < 0 {
		return 0
	}
	grade := inv.Items[best].Grade
	inv.Items = append(inv.Items[:best], inv.Items[best+1:]...)
	return grade
}

func (inv *Inventory) OpenSlots() int { return inv.Capacity - len(inv.Items) }

func (inv *Inventory) Count(kind string) int {
	n := 0
	for _, it := range inv.Items {
		if it.Kind == kind {
			n++
		}
	}
	return n
}

func (inv *Inventory) GenerateHerb() {
	inv.add(Item{ID: "herb", Kind: "ingredient", Grade: 1 + float64(rand.Intn(5))})
}

func (inv *Inventory) AddWeapon(grade float64, material string) {
	inv.add(Item{ID: fmt.Sprintf("%s_weapon", material), Kind: "weapon", Grade: grade})
}

func (inv *Inventory) AddArmor(grade float64, material string) {
	slots := []string{"head", "body", "legs", "feet"}
	inv.add(Item{ID: fmt.Sprintf("%s_%s_armor", material, slots[rand.Intn(len(slots))]), Kind: "armor", Grade: grade})
}

func (inv *Inventory) GeneratePotion(grade float64, pill bool) {
	id := "potion"
	if pill {
		id = "pill"
	}
	inv.add(Item{ID: id, Kind: id, Grade: grade})
}

func (inv *Inventory) AddWood() { inv.add(Item{ID: "log", Kind: "wood", Grade: 1}) }

func (inv *Inventory) AddOre() { inv.add(Item{ID: "ore", Kind: "ore", Grade: 1}) }

func (inv *Inventory) AddBar(grade float64) {
	inv.add(Item{ID: "metal_bar", Kind: "metal", Grade: grade * 10})
}

type Home struct {
	Bench      string
	Fields     int
	FieldYield int
}

func (h *Home) Workbench() string { return h.Bench }

func (h *Home) WorkFields(power int) {
	if h.Fields <= 0 {
		return
	}
	h.FieldYield += power * h.Fields
}

type Battle struct {
	Enemies []string
}

func (b *Battle) AddEnemy(id string) { b.Enemies = append(b.Enemies, id) }

type Followers struct {
	Enabled bool
	Count   int
}

func (f *Followers) Unlocked() bool { return f.Enabled }

func (f *Followers) Generate() { f.Count++ }

// Trials tracks impossible-task progress against fixed goals.
type Trials struct {
	Goals    map[activity.Trial]int
	Progress map[activity.Trial]int
}

func NewTrials() *Trials {
	return &Trials{
		Goals: map[activity.Trial]int{
			activity.TrialSwim:        10000,
			activity.TrialRaiseIsland: 100,
		},
		Progress: map[activity.Trial]int{},
	}
}

func (t *Trials) AddProgress(trial activity.Trial) bool {
	t.Progress[trial]++
	return t.Complete(trial)
}

func (t *Trials) Complete(trial activity.Trial) bool {
	goal, ok := t.Goals[trial]
	return ok && t.Progress[trial] >= goal
}

type Message struct {
	Text     string               `json:"text"`
	Kind     activity.LogKind     `json:"kind"`
	Category activity.LogCategory `json:"category"`
}

// Log keeps the most recent player-facing messages.
type Log struct {
	Limit    int
	Messages []Message
	// Forward, when set, receives every message as it is added.
	Forward func(Message)
}

func (l *Log) AddMessage(text string, kind activity.LogKind, category activity.LogCategory) {
	m := Message{Text: text, Kind: kind, Category: category}
	l.Messages = append(l.Messages, m)
	limit := l.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(l.Messages) > limit {
		l.Messages = l.Messages[len(l.Messages)-limit:]
	}
	if l.Forward != nil {
		l.Forward(m)
	}
}

// Set is a complete collaborator set for a character.
type Set struct {
	Inventory *Inventory
	Home      *Home
	Battle    *Battle
	Followers *Followers
	Trials    *Trials
	Log       *Log
}

func NewSet() *Set {
	return &Set{
		Inventory: NewInventory(10),
		Home:      &Home{},
		Battle:    &Battle{},
		Followers: &Followers{},
		Trials:    NewTrials(),
		Log:       &Log{},
	}
}

// Env wires the set and a character into an effect environment. Progress is
// filled in by the engine.
func (s *Set) Env(c activity.Character) activity.Env {
	return activity.Env{
		Character: c,
		Inventory: s.Inventory,
		Home:      s.Home,
		Battle:    s.Battle,
		Followers: s.Followers,
		Trials:    s.Trials,
		Log:       s.Log,
	}
}

