package progression

import (
	"fmt"

	"github.com/google/uuid"

	"immortal.idle/internal/sim/activity"
)

// Reincarnate resets progression for a new life. The character model is
// expected to have been reincarnated first so the fast-forward passes see the
// attributes carried into the new life. Completed apprenticeships are kept.
func (e *Engine) Reincarnate() error {
	prev := e.lifetime
	e.lifetime = uuid.NewString()
	e.dead = false

	e.st.OpenApprenticeships = e.cfg.StartingApprenticeships
	e.st.OddJobDays = 0
	e.st.BeggingDays = 0
	for _, a := range e.acts {
		a.Level = 0
		a.Unlocked = false
	}
	e.FastForward()
	for _, a := range e.acts {
		if a.Baseline {
			a.Unlocked = true
		}
	}

	var err error
	if e.st.AutoRestart {
		e.unlockPass()
		err = e.PruneLoop()
		if e.st.PauseOnDeath && e.pauser != nil {
			e.pauser.RequestPause()
		}
	} else {
		e.ClearLoop()
	}
	e.audit(ActionReincarnated, nil, "", map[string]any{"previous": prev, "mode": string(e.mode), "loop_len": len(e.st.Loop)})
	return err
}

// SwitchMode replaces the catalog with the one for mode. The loop and the
// spirit activity are cleared. On a build error the engine is unchanged.
func (e *Engine) SwitchMode(mode activity.Mode) error {
	acts, err := activity.Build(mode, e.cats)
	if err != nil {
		return fmt.Errorf("switch mode: %w", err)
	}
	prev := e.mode
	e.ClearLoop()
	e.st.SpiritActivity = nil
	e.acts = acts
	e.mode = mode
	e.audit(ActionModeSwitched, nil, "", map[string]any{"from": string(prev), "to": string(mode)})
	return nil
}
