package progression

import "immortal.idle/internal/sim/activity"

// meetsRequirementsForUnlock is the level predicate plus the apprenticeship
// gate: with no open slots, a locked trade fails only while it is below its
// skip level and was never completed in any life. The predicate is evaluated
// on the activity's current level, which is level 0 unless a fast-forward or
// a locked advancement already raised it; a trade that has grown past its
// first grade has to meet that grade's thresholds to come back.
func (e *Engine) meetsRequirementsForUnlock(a *activity.Activity) bool {
	if !a.Unlocked && e.st.OpenApprenticeships <= 0 && a.SkipApprenticeshipLevel > 0 {
		if a.Level < a.SkipApprenticeshipLevel && !e.st.completed(a.Type) {
			return false
		}
	}
	return activity.MeetsLevelRequirement(e.env.Character, a.Current().Requirements)
}

// unlockPass unlocks every locked activity that passes the unlock gate.
func (e *Engine) unlockPass() {
	for _, a := range e.acts {
		if a.Unlocked || !e.meetsRequirementsForUnlock(a) {
			continue
		}
		a.Unlocked = true
		e.audit(ActionUnlocked, a, "", nil)
	}
}

// Advance raises each activity by at most one level when the next level's
// requirements are met. Reaching the skip level while unlocked completes the
// apprenticeship for good.
func (e *Engine) Advance() {
	for _, a := range e.acts {
		if !a.HasNextLevel() {
			continue
		}
		if !activity.MeetsLevelRequirement(e.env.Character, a.Levels[a.Level+1].Requirements) {
			continue
		}
		a.Level++
		e.audit(ActionLevelUp, a, "", nil)
		if a.Unlocked && a.SkipApprenticeshipLevel > 0 && a.Level == a.SkipApprenticeshipLevel {
			if e.st.markCompleted(a.Type) {
				e.audit(ActionApprenticeshipCompleted, a, "", nil)
			}
		}
	}
}

// OnLongTick runs the unlock pass, one advancement pass and loop pruning. The
// only error is a catalog inconsistency found while pruning.
func (e *Engine) OnLongTick() error {
	e.longTick++
	e.unlockPass()
	e.Advance()
	return e.PruneLoop()
}

// FastForward runs the configured number of advancement passes. Levels are
// not persisted, so it is also used after restoring a save.
func (e *Engine) FastForward() {
	for i := 0; i < e.cfg.ResetFastForwardPasses; i++ {
		e.Advance()
	}
}
