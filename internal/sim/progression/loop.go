package progression

import (
	"fmt"
	"slices"

	"immortal.idle/internal/sim/activity"
)

// Loop returns a copy of the activity loop.
func (e *Engine) Loop() []LoopEntry { return slices.Clone(e.st.Loop) }

// AppendLoop adds an entry for an unlocked activity. RepeatTimes below 1 is
// stored as 1.
func (e *Engine) AppendLoop(entry LoopEntry) error {
	a, err := e.Lookup(entry.Activity)
	if err != nil {
		return err
	}
	if !a.Unlocked {
		return fmt.Errorf("%w: %s", ErrActivityLocked, entry.Activity)
	}
	if entry.RepeatTimes < 1 {
		entry.RepeatTimes = 1
	}
	e.st.Loop = append(e.st.Loop, entry)
	return nil
}

// MoveLoopEntry moves the entry at from so it ends up at index to.
func (e *Engine) MoveLoopEntry(from, to int) error {
	if err := e.checkLoopIndex(from); err != nil {
		return err
	}
	if err := e.checkLoopIndex(to); err != nil {
		return err
	}
	entry := e.st.Loop[from]
	e.st.Loop = slices.Delete(e.st.Loop, from, from+1)
	e.st.Loop = slices.Insert(e.st.Loop, to, entry)
	return nil
}

func (e *Engine) RemoveLoopEntry(i int) error {
	if err := e.checkLoopIndex(i); err != nil {
		return err
	}
	e.st.Loop = slices.Delete(e.st.Loop, i, i+1)
	return nil
}

func (e *Engine) SetLoopRepeat(i, n int) error {
	if err := e.checkLoopIndex(i); err != nil {
		return err
	}
	if n < 1 {
		n = 1
	}
	e.st.Loop[i].RepeatTimes = n
	return nil
}

func (e *Engine) ClearLoop() { e.st.Loop = nil }

func (e *Engine) checkLoopIndex(i int) error {
	if i < 0 || i >= len(e.st.Loop) {
		return fmt.Errorf("%w: %d (len %d)", ErrLoopIndex, i, len(e.st.Loop))
	}
	return nil
}

// PruneLoop removes, from the end toward the start, every entry whose activity
// is locked. Survivors keep their order. An entry naming an activity missing
// from the catalog is a catalog inconsistency and is returned as an error with
// the loop left as it was.
func (e *Engine) PruneLoop() error {
	loop := slices.Clone(e.st.Loop)
	for i := len(loop) - 1; i >= 0; i-- {
		a, err := e.Lookup(loop[i].Activity)
		if err != nil {
			return fmt.Errorf("prune loop entry %d: %w", i, err)
		}
		if a.Unlocked {
			continue
		}
		loop = slices.Delete(loop, i, i+1)
		e.audit(ActionLoopPruned, a, "", map[string]any{"index": i})
	}
	e.st.Loop = loop
	return nil
}

// removeLoopType deletes every entry for t and returns how many were removed.
func (e *Engine) removeLoopType(t activity.Type) int {
	n := len(e.st.Loop)
	e.st.Loop = slices.DeleteFunc(e.st.Loop, func(le LoopEntry) bool { return le.Activity == t })
	return n - len(e.st.Loop)
}
