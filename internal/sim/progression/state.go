package progression

import (
	"slices"

	"immortal.idle/internal/sim/activity"
)

// LoopEntry is one step of the player's repeating plan. RepeatTimes belongs to
// the scheduler; the engine only looks at Activity.
type LoopEntry struct {
	Activity    activity.Type `json:"activity"`
	RepeatTimes int           `json:"repeatTimes"`
}

// State is the progression state of one engine. Counters and slots are reset
// per lifetime; CompletedApprenticeships and the flags survive reincarnation.
type State struct {
	OpenApprenticeships      int
	CompletedApprenticeships []activity.Type
	OddJobDays               int
	BeggingDays              int

	Loop           []LoopEntry
	SpiritActivity *activity.Type

	AutoRestart  bool
	PauseOnDeath bool
}

func (s *State) completed(t activity.Type) bool {
	return slices.Contains(s.CompletedApprenticeships, t)
}

// markCompleted records t once and reports whether it was new.
func (s *State) markCompleted(t activity.Type) bool {
	if s.completed(t) {
		return false
	}
	s.CompletedApprenticeships = append(s.CompletedApprenticeships, t)
	return true
}

func (s *State) clone() State {
	out := *s
	out.CompletedApprenticeships = slices.Clone(s.CompletedApprenticeships)
	out.Loop = slices.Clone(s.Loop)
	if s.SpiritActivity != nil {
		t := *s.SpiritActivity
		out.SpiritActivity = &t
	}
	return out
}
