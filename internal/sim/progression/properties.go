package progression

import (
	"slices"

	"immortal.idle/internal/sim/activity"
)

// Properties is the persisted progression record. A nil UnlockedActivities
// means the field was absent from the save.
type Properties struct {
	AutoRestart              bool            `json:"autoRestart"`
	PauseOnDeath             bool            `json:"pauseOnDeath"`
	ActivityLoop             []LoopEntry     `json:"activityLoop"`
	UnlockedActivities       []activity.Type `json:"unlockedActivities"`
	OpenApprenticeships      int             `json:"openApprenticeships"`
	SpiritActivity           *activity.Type  `json:"spiritActivity"`
	CompletedApprenticeships []activity.Type `json:"completedApprenticeships"`
}

func (e *Engine) Properties() Properties {
	unlocked := []activity.Type{}
	for _, a := range e.acts {
		if a.Unlocked {
			unlocked = append(unlocked, a.Type)
		}
	}
	st := e.st.clone()
	p := Properties{
		AutoRestart:              st.AutoRestart,
		PauseOnDeath:             st.PauseOnDeath,
		ActivityLoop:             st.Loop,
		UnlockedActivities:       unlocked,
		OpenApprenticeships:      st.OpenApprenticeships,
		SpiritActivity:           st.SpiritActivity,
		CompletedApprenticeships: st.CompletedApprenticeships,
	}
	if p.ActivityLoop == nil {
		p.ActivityLoop = []LoopEntry{}
	}
	if p.CompletedApprenticeships == nil {
		p.CompletedApprenticeships = []activity.Type{}
	}
	return p
}

// Restore applies saved properties to the current catalog. Missing fields take
// their defaults; nothing is validated or pruned, so callers that may have a
// different catalog than the save should call PruneLoop afterwards.
func (e *Engine) Restore(p Properties) {
	e.st.CompletedApprenticeships = slices.Clone(p.CompletedApprenticeships)
	if e.st.CompletedApprenticeships == nil {
		e.st.CompletedApprenticeships = []activity.Type{}
	}
	for _, a := range e.acts {
		if p.UnlockedActivities == nil {
			a.Unlocked = a.Baseline
			continue
		}
		a.Unlocked = slices.Contains(p.UnlockedActivities, a.Type)
	}
	e.st.AutoRestart = p.AutoRestart
	e.st.PauseOnDeath = p.PauseOnDeath
	e.st.Loop = slices.Clone(p.ActivityLoop)
	e.st.SpiritActivity = nil
	if p.SpiritActivity != nil && *p.SpiritActivity != "" {
		t := *p.SpiritActivity
		e.st.SpiritActivity = &t
	}
	e.st.OpenApprenticeships = max(p.OpenApprenticeships, 0)
}

// Resume continues a saved life: the lifetime id and the long-tick counter are
// taken from the save so audit entries keep lining up with earlier ones.
func (e *Engine) Resume(lifetime string, longTick uint64) {
	if lifetime != "" {
		e.lifetime = lifetime
	}
	e.longTick = longTick
}
