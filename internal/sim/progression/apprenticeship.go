package progression

import "immortal.idle/internal/sim/activity"

// ClaimApprenticeship is called by the effect of a gated grade of t. Every
// call with a free slot consumes one and relocks every other trade still in
// training, dropping it from the loop.
func (e *Engine) ClaimApprenticeship(t activity.Type) {
	if e.st.OpenApprenticeships <= 0 {
		return
	}
	e.st.OpenApprenticeships--
	e.audit(ActionApprenticeshipClaimed, e.find(t), "", map[string]any{"open": e.st.OpenApprenticeships})

	for _, a := range e.acts {
		if a.Type == t || !a.InTraining() {
			continue
		}
		wasUnlocked := a.Unlocked
		a.Unlocked = false
		removed := e.removeLoopType(a.Type)
		if wasUnlocked || removed > 0 {
			e.audit(ActionRelocked, a, "apprenticeship claimed by "+string(t), map[string]any{"loop_removed": removed})
		}
	}
}

// find is Lookup without the error, for audit labelling only.
func (e *Engine) find(t activity.Type) *activity.Activity {
	a, err := e.Lookup(t)
	if err != nil {
		return &activity.Activity{Type: t}
	}
	return a
}
