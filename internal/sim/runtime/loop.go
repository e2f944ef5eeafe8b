package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"immortal.idle/internal/sim/progression"
)

// Run drives the simulation until ctx is done, Stop is called, or the engine
// reports a catalog inconsistency.
func (r *Runtime) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(r.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingControl []controlReq

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stop:
			return nil
		case req := <-r.observerJoin:
			r.handleObserverJoin(req)
		case id := <-r.observerLeave:
			delete(r.observers, id)
		case req := <-r.control:
			pendingControl = append(pendingControl, req)
		case <-ticker.C:
			err := r.Step()
			for _, c := range pendingControl {
				c.resp <- c.fn()
			}
			pendingControl = pendingControl[:0]
			if err != nil {
				return err
			}
		}
	}
}

// Step advances one fine tick. It is exported for tests and offline replays;
// while Run is active only the loop goroutine may call it.
func (r *Runtime) Step() error {
	tick := r.tick.Add(1)
	if r.paused {
		return nil
	}

	r.eng.OnTick()
	if r.eng.Dead() {
		return r.die()
	}
	if err := r.performLoop(); err != nil {
		return err
	}
	r.performSpirit()
	r.char.CheckOverage()
	if r.char.Dead() {
		return r.die()
	}

	if tick%uint64(r.cfg.LongTickEvery) == 0 {
		return r.longTick()
	}
	return nil
}

func (r *Runtime) longTick() error {
	r.char.AgeDay()
	if err := r.eng.OnLongTick(); err != nil {
		return fmt.Errorf("long tick %d: %w", r.eng.LongTicks(), err)
	}
	if r.loopIndex >= len(r.eng.Loop()) {
		r.resetLoopCursor()
	}
	if r.char.Dead() {
		return r.die()
	}
	if n := uint64(r.cfg.SaveEveryLongTicks); n > 0 && r.saveSink != nil && r.eng.LongTicks()%n == 0 {
		if err := r.enqueueSave(); err != nil && r.log != nil {
			r.log.Printf("save skipped: %v", err)
		}
	}
	r.publish()
	return nil
}

// performLoop runs one activation of the current loop entry. Entries whose
// activity is locked are skipped until the next prune removes them.
func (r *Runtime) performLoop() error {
	loop := r.eng.Loop()
	if len(loop) == 0 {
		return nil
	}
	for tries := 0; tries < len(loop); tries++ {
		if r.loopIndex >= len(loop) {
			r.resetLoopCursor()
		}
		entry := loop[r.loopIndex]
		err := r.eng.Perform(entry.Activity)
		if err == nil && len(r.eng.Loop()) != len(loop) {
			// A claim relocked trades and dropped their entries.
			r.resetLoopCursor()
			return nil
		}
		switch {
		case err == nil:
			r.repeatDone++
			if r.repeatDone >= entry.RepeatTimes {
				r.nextLoopEntry(len(loop))
			}
			return nil
		case errors.Is(err, progression.ErrActivityLocked):
			r.nextLoopEntry(len(loop))
		case errors.Is(err, progression.ErrCharacterDead):
			return nil
		default:
			return fmt.Errorf("perform %s: %w", entry.Activity, err)
		}
	}
	return nil
}

func (r *Runtime) performSpirit() {
	t, ok := r.eng.SpiritActivity()
	if !ok || !r.char.ManaUnlocked() {
		return
	}
	err := r.eng.Perform(t)
	switch {
	case err == nil, errors.Is(err, progression.ErrCharacterDead):
	case errors.Is(err, progression.ErrActivityLocked):
		_ = r.eng.SetSpiritActivity("")
		if r.log != nil {
			r.log.Printf("spirit activity %s locked, cleared", t)
		}
	default:
		if r.log != nil {
			r.log.Printf("spirit activity %s: %v", t, err)
		}
	}
}

func (r *Runtime) nextLoopEntry(n int) {
	r.repeatDone = 0
	r.loopIndex++
	if r.loopIndex >= n {
		r.loopIndex = 0
	}
}

func (r *Runtime) resetLoopCursor() {
	r.loopIndex = 0
	r.repeatDone = 0
}

func (r *Runtime) die() error {
	if r.log != nil {
		r.log.Printf("character died at tick %d (lifetime %s)", r.tick.Load(), r.eng.LifetimeID())
	}
	return r.reincarnate()
}

func (r *Runtime) reincarnate() error {
	r.char.Reincarnate()
	r.set.Inventory.Items = nil
	if err := r.eng.Reincarnate(); err != nil {
		return fmt.Errorf("reincarnate: %w", err)
	}
	r.resetLoopCursor()
	r.publish()
	return nil
}
