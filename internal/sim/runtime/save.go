package runtime

import (
	"context"
	"log"

	"immortal.idle/internal/persistence/archive"
	"immortal.idle/internal/persistence/snapshot"
	"immortal.idle/internal/sim/activity"
	"immortal.idle/internal/sim/character"
	"immortal.idle/internal/sim/collab"
)

// Snapshot captures the current state as a save. Loop goroutine only.
func (r *Runtime) Snapshot() snapshot.SaveV1 {
	tick := r.tick.Load()
	sv := snapshot.SaveV1{
		Header: snapshot.Header{
			Version:  snapshot.Version,
			Lifetime: r.eng.LifetimeID(),
			Tick:     tick,
		},
		Mode:       r.eng.Mode(),
		LongTick:   r.eng.LongTicks(),
		Properties: r.eng.Properties(),
		Character:  r.char.State(),
		Inventory:  append([]collab.Item(nil), r.set.Inventory.Items...),
	}
	if len(r.set.Trials.Progress) > 0 {
		sv.Trials = map[activity.Trial]int{}
		for k, v := range r.set.Trials.Progress {
			sv.Trials[k] = v
		}
	}
	return sv
}

// Restore loads a save before Run starts. Levels are not persisted, so the
// engine fast-forwards against the restored character.
func (r *Runtime) Restore(sv snapshot.SaveV1) error {
	if sv.Mode != "" && sv.Mode != r.eng.Mode() {
		if err := r.eng.SwitchMode(sv.Mode); err != nil {
			return err
		}
	}
	*r.char = *character.FromState(sv.Character)
	r.set.Inventory.Items = append([]collab.Item(nil), sv.Inventory...)
	for k, v := range sv.Trials {
		r.set.Trials.Progress[k] = v
	}
	r.eng.Restore(sv.Properties)
	r.eng.Resume(sv.Header.Lifetime, sv.LongTick)
	r.eng.FastForward()
	r.tick.Store(sv.Header.Tick)
	r.resetLoopCursor()
	r.publish()
	return nil
}

// SaveRecorder is told about every save written to disk.
type SaveRecorder interface {
	RecordSave(path string, save snapshot.SaveV1)
}

// SaveWriter persists saves produced by the runtime. It runs on its own
// goroutine so file I/O never stalls the tick loop.
type SaveWriter struct {
	Dir  string
	Keep int
	// ArchiveDir, when set, receives the last save of every life that ends
	// while the writer runs.
	ArchiveDir string

	Recorder SaveRecorder
	Log      *log.Logger

	prevPath string
	prev     snapshot.SaveV1
}

func (w *SaveWriter) Run(ctx context.Context, in <-chan snapshot.SaveV1) {
	for {
		select {
		case <-ctx.Done():
			return
		case sv, ok := <-in:
			if !ok {
				return
			}
			w.write(sv)
		}
	}
}

func (w *SaveWriter) write(sv snapshot.SaveV1) {
	path := snapshot.SavePath(w.Dir, sv.Header.Tick)
	if err := snapshot.WriteSave(path, sv); err != nil {
		if w.Log != nil {
			w.Log.Printf("save write: %v", err)
		}
		return
	}
	if w.Recorder != nil {
		w.Recorder.RecordSave(path, sv)
	}
	if w.ArchiveDir != "" && w.prevPath != "" && w.prev.Header.Lifetime != sv.Header.Lifetime {
		if _, err := archive.ArchiveLifetime(w.ArchiveDir, w.prevPath, w.prev); err != nil && w.Log != nil {
			w.Log.Printf("archive lifetime %s: %v", w.prev.Header.Lifetime, err)
		}
	}
	w.prevPath, w.prev = path, sv
	if w.Keep > 0 {
		if err := snapshot.PruneSaves(w.Dir, w.Keep); err != nil && w.Log != nil {
			w.Log.Printf("save prune: %v", err)
		}
	}
}
