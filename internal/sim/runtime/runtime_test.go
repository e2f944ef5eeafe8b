package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"immortal.idle/internal/persistence/archive"
	"immortal.idle/internal/persistence/snapshot"
	"immortal.idle/internal/protocol"
	"immortal.idle/internal/sim/activity"
	"immortal.idle/internal/sim/catalogs"
	"immortal.idle/internal/sim/character"
	"immortal.idle/internal/sim/collab"
	"immortal.idle/internal/sim/progression"
	"immortal.idle/internal/sim/simtest"
)

func newTestRuntime(t *testing.T, cfg Config, pcfg progression.Config) *Runtime {
	t.Helper()
	cats, err := catalogs.Default()
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	c := character.New()
	set := collab.NewSet()
	env := set.Env(c)
	env.Rand = simtest.Rolls(0.99)
	eng, err := progression.New(pcfg, cats, env)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return New(cfg, eng, c, set, nil)
}

func mustStep(t *testing.T, r *Runtime, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := r.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}

func TestStep_LongTickCadenceAndRepeatTimes(t *testing.T) {
	r := newTestRuntime(t, Config{LongTickEvery: 3}, progression.Config{})
	if err := r.eng.AppendLoop(progression.LoopEntry{Activity: activity.OddJobs, RepeatTimes: 2}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := r.eng.AppendLoop(progression.LoopEntry{Activity: activity.Resting, RepeatTimes: 1}); err != nil {
		t.Fatalf("append: %v", err)
	}

	mustStep(t, r, 6)

	if got := r.eng.LongTicks(); got != 2 {
		t.Fatalf("long ticks: got %d want 2", got)
	}
	if got := r.eng.State().OddJobDays; got != 4 {
		t.Fatalf("odd job days: got %d want 4", got)
	}
	if got := r.char.State().AgeDays; got != 2 {
		t.Fatalf("age: got %d want 2", got)
	}
	st := r.Status()
	if st.Tick != 6 || st.LongTick != 2 || len(st.Loop) != 2 || st.LoopIndex != 0 {
		t.Fatalf("status: tick=%d long=%d loop=%d idx=%d", st.Tick, st.LongTick, len(st.Loop), st.LoopIndex)
	}
}

func TestStep_SkipsLockedEntriesUntilPruned(t *testing.T) {
	r := newTestRuntime(t, Config{LongTickEvery: 1}, progression.Config{})
	r.eng.Restore(progression.Properties{
		UnlockedActivities: []activity.Type{activity.OddJobs, activity.Resting},
		ActivityLoop: []progression.LoopEntry{
			{Activity: activity.Blacksmithing, RepeatTimes: 1},
			{Activity: activity.OddJobs, RepeatTimes: 1},
		},
	})

	mustStep(t, r, 1)

	if got := r.eng.State().OddJobDays; got != 1 {
		t.Fatalf("odd job days: got %d want 1", got)
	}
	loop := r.eng.Loop()
	if len(loop) != 1 || loop[0].Activity != activity.OddJobs {
		t.Fatalf("loop after prune: %+v", loop)
	}
}

func TestStep_ClaimThatShrinksLoopResetsCursor(t *testing.T) {
	r := newTestRuntime(t, Config{LongTickEvery: 10}, progression.Config{})
	r.eng.Restore(progression.Properties{
		UnlockedActivities: []activity.Type{activity.OddJobs, activity.Resting, activity.Alchemy, activity.Blacksmithing},
		ActivityLoop: []progression.LoopEntry{
			{Activity: activity.Alchemy, RepeatTimes: 1},
			{Activity: activity.Blacksmithing, RepeatTimes: 2},
			{Activity: activity.OddJobs, RepeatTimes: 1},
		},
		OpenApprenticeships: 1,
	})
	r.loopIndex = 1

	mustStep(t, r, 1)

	loop := r.eng.Loop()
	if len(loop) != 2 || loop[0].Activity != activity.Blacksmithing {
		t.Fatalf("loop after claim: %+v", loop)
	}
	if r.loopIndex != 0 || r.repeatDone != 0 {
		t.Fatalf("cursor: got idx=%d done=%d want 0/0", r.loopIndex, r.repeatDone)
	}

	mustStep(t, r, 1)
	if got := r.eng.State().OddJobDays; got != 0 {
		t.Fatalf("odd jobs ran early: got %d want 0", got)
	}
}

func TestStep_LockedSpiritActivityIsCleared(t *testing.T) {
	r := newTestRuntime(t, Config{LongTickEvery: 10}, progression.Config{})
	r.char.UnlockMana()
	// The save still names a trade the new life has not unlocked.
	r.eng.Restore(progression.Properties{
		UnlockedActivities: []activity.Type{activity.OddJobs, activity.Resting},
		SpiritActivity:     ptr(activity.Blacksmithing),
	})

	mustStep(t, r, 1)

	if got, ok := r.eng.SpiritActivity(); ok {
		t.Fatalf("spirit activity: got %s want cleared", got)
	}
}

func ptr[T any](v T) *T { return &v }

func TestStep_UnknownLoopActivityIsFatal(t *testing.T) {
	r := newTestRuntime(t, Config{}, progression.Config{})
	r.eng.Restore(progression.Properties{
		ActivityLoop: []progression.LoopEntry{{Activity: "NOPE", RepeatTimes: 1}},
	})
	err := r.Step()
	if !errors.Is(err, activity.ErrUnknownActivity) {
		t.Fatalf("got %v want ErrUnknownActivity", err)
	}
}

func TestStep_DeathReincarnates(t *testing.T) {
	r := newTestRuntime(t, Config{}, progression.Config{})
	if err := r.eng.AppendLoop(progression.LoopEntry{Activity: activity.OddJobs, RepeatTimes: 1}); err != nil {
		t.Fatalf("append: %v", err)
	}
	r.set.Inventory.AddItem("meat")
	before := r.eng.LifetimeID()
	r.char.AdjustBar(activity.Health, -1000)

	mustStep(t, r, 1)

	if r.eng.LifetimeID() == before {
		t.Fatalf("expected a new lifetime")
	}
	if r.char.Dead() {
		t.Fatalf("character should be alive after reincarnation")
	}
	if len(r.eng.Loop()) != 0 {
		t.Fatalf("loop should be cleared without auto-restart")
	}
	if len(r.set.Inventory.Items) != 0 {
		t.Fatalf("inventory should be emptied")
	}
	if r.Status().Lifetime != r.eng.LifetimeID() {
		t.Fatalf("status not republished")
	}
}

func TestStep_PauseOnDeathStopsActivities(t *testing.T) {
	r := newTestRuntime(t, Config{}, progression.Config{AutoRestart: true, PauseOnDeath: true})
	if err := r.eng.AppendLoop(progression.LoopEntry{Activity: activity.OddJobs, RepeatTimes: 1}); err != nil {
		t.Fatalf("append: %v", err)
	}
	r.char.AdjustBar(activity.Health, -1000)

	mustStep(t, r, 3)

	if !r.Status().Paused {
		t.Fatalf("expected paused status")
	}
	if got := r.eng.State().OddJobDays; got != 0 {
		t.Fatalf("odd job days while paused: got %d want 0", got)
	}
	if len(r.eng.Loop()) != 1 {
		t.Fatalf("auto-restart should keep the loop")
	}
	if r.CurrentTick() != 3 {
		t.Fatalf("ticks keep counting while paused, got %d", r.CurrentTick())
	}
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	r := newTestRuntime(t, Config{LongTickEvery: 2}, progression.Config{})
	if err := r.eng.AppendLoop(progression.LoopEntry{Activity: activity.OddJobs, RepeatTimes: 3}); err != nil {
		t.Fatalf("append: %v", err)
	}
	r.set.Trials.AddProgress(activity.TrialSwim)
	mustStep(t, r, 4)

	path := snapshot.SavePath(t.TempDir(), r.CurrentTick())
	if err := snapshot.WriteSave(path, r.Snapshot()); err != nil {
		t.Fatalf("write: %v", err)
	}
	sv, err := snapshot.ReadSave(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	r2 := newTestRuntime(t, Config{LongTickEvery: 2}, progression.Config{})
	if err := r2.Restore(sv); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if r2.CurrentTick() != 4 || r2.eng.LongTicks() != 2 {
		t.Fatalf("clock: tick=%d long=%d", r2.CurrentTick(), r2.eng.LongTicks())
	}
	if r2.eng.LifetimeID() != r.eng.LifetimeID() {
		t.Fatalf("lifetime: got %s want %s", r2.eng.LifetimeID(), r.eng.LifetimeID())
	}
	if r2.char.Money() != r.char.Money() {
		t.Fatalf("money: got %v want %v", r2.char.Money(), r.char.Money())
	}
	if got := r2.set.Trials.Progress[activity.TrialSwim]; got != 1 {
		t.Fatalf("trial progress: got %d want 1", got)
	}
	loop := r2.eng.Loop()
	if len(loop) != 1 || loop[0].RepeatTimes != 3 {
		t.Fatalf("loop: %+v", loop)
	}
}

func TestRestore_SwitchesMode(t *testing.T) {
	r := newTestRuntime(t, Config{}, progression.Config{})
	sv := snapshot.SaveV1{
		Header: snapshot.Header{Version: snapshot.Version, Tick: 7},
		Mode:   activity.ModeSwim,
		Properties: progression.Properties{
			ActivityLoop: []progression.LoopEntry{{Activity: activity.Swim, RepeatTimes: 1}},
		},
		Character: character.New().State(),
	}
	if err := r.Restore(sv); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if r.eng.Mode() != activity.ModeSwim {
		t.Fatalf("mode: got %s", r.eng.Mode())
	}
	if a, err := r.eng.Lookup(activity.Swim); err != nil || !a.Unlocked {
		t.Fatalf("swim should be unlocked as a baseline activity: %v", err)
	}
}

func TestObservers_ReceiveLatestStatus(t *testing.T) {
	r := newTestRuntime(t, Config{LongTickEvery: 1}, progression.Config{})
	out := make(chan []byte, 1)
	all := make(chan []byte, 1)
	r.handleObserverJoin(ObserverJoinRequest{SessionID: "O1", Out: out})
	r.handleObserverJoin(ObserverJoinRequest{SessionID: "O2", Out: all, IncludeLocked: true})

	mustStep(t, r, 2)

	var st protocol.StatusMsg
	if err := json.Unmarshal(<-out, &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Type != protocol.TypeStatus || st.LongTick != 2 {
		t.Fatalf("status: type=%s long=%d", st.Type, st.LongTick)
	}
	if len(st.Activities) != 2 {
		t.Fatalf("unlocked activities: got %d want 2", len(st.Activities))
	}

	var full protocol.StatusMsg
	if err := json.Unmarshal(<-all, &full); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(full.Activities) != 19 {
		t.Fatalf("all activities: got %d want 19", len(full.Activities))
	}
}

func TestRun_ControlRequests(t *testing.T) {
	r := newTestRuntime(t, Config{TickRateHz: 200}, progression.Config{})
	saves := make(chan snapshot.SaveV1, 1)
	r.SetSaveSink(saves)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	if err := r.Edit(ctx, func(e *progression.Engine) error {
		return e.AppendLoop(progression.LoopEntry{Activity: activity.Resting, RepeatTimes: 1})
	}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	err := r.Edit(ctx, func(e *progression.Engine) error {
		return e.AppendLoop(progression.LoopEntry{Activity: activity.Alchemy, RepeatTimes: 1})
	})
	if !errors.Is(err, progression.ErrActivityLocked) {
		t.Fatalf("locked edit: got %v", err)
	}

	tick, err := r.RequestSave(ctx)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	sv := <-saves
	if sv.Header.Tick != tick || len(sv.Properties.ActivityLoop) != 1 {
		t.Fatalf("save: tick=%d want %d loop=%d", sv.Header.Tick, tick, len(sv.Properties.ActivityLoop))
	}

	if err := r.SetPaused(ctx, true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if !r.Status().Paused {
		t.Fatalf("expected paused")
	}
	if err := r.RequestSwitchMode(ctx, "raise_island"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if st := r.Status(); st.Mode != string(activity.ModeRaiseIsland) || len(st.Loop) != 0 {
		t.Fatalf("after switch: mode=%s loop=%d", st.Mode, len(st.Loop))
	}
	if err := r.RequestSwitchMode(ctx, "fly"); err == nil {
		t.Fatalf("expected unknown mode error")
	}
	before := r.Status().Lifetime
	if err := r.RequestReincarnate(ctx); err != nil {
		t.Fatalf("reincarnate: %v", err)
	}
	if r.Status().Lifetime == before {
		t.Fatalf("lifetime unchanged")
	}

	r.Stop()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := r.SetPaused(ctx, false); !errors.Is(err, ErrStopped) {
		t.Fatalf("after stop: got %v want ErrStopped", err)
	}
}

type saveRecorder struct{ paths []string }

func (s *saveRecorder) RecordSave(path string, _ snapshot.SaveV1) { s.paths = append(s.paths, path) }

func TestSaveWriter_WritesAndPrunes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "saves")
	rec := &saveRecorder{}
	w := &SaveWriter{Dir: dir, Keep: 2, Recorder: rec}

	in := make(chan snapshot.SaveV1, 3)
	for _, tick := range []uint64{10, 20, 30} {
		in <- snapshot.SaveV1{Header: snapshot.Header{Tick: tick}, Mode: activity.ModeNormal}
	}
	close(in)
	w.Run(context.Background(), in)

	if len(rec.paths) != 3 {
		t.Fatalf("recorded: got %d want 3", len(rec.paths))
	}
	files, err := snapshot.ListSaves(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 || files[1] != snapshot.SavePath(dir, 30) {
		t.Fatalf("files: %v", files)
	}
}

func TestSaveWriter_ArchivesFinishedLives(t *testing.T) {
	dir := t.TempDir()
	w := &SaveWriter{Dir: filepath.Join(dir, "saves"), Keep: 1, ArchiveDir: filepath.Join(dir, "archives")}

	in := make(chan snapshot.SaveV1, 3)
	in <- snapshot.SaveV1{Header: snapshot.Header{Tick: 10, Lifetime: "a"}}
	in <- snapshot.SaveV1{Header: snapshot.Header{Tick: 20, Lifetime: "a"}}
	in <- snapshot.SaveV1{Header: snapshot.Header{Tick: 30, Lifetime: "b"}}
	close(in)
	w.Run(context.Background(), in)

	meta, err := archive.ReadMeta(w.ArchiveDir, "a")
	if err != nil {
		t.Fatalf("meta: %v", err)
	}
	if meta.EndTick != 20 {
		t.Fatalf("archived end tick: got %d want 20", meta.EndTick)
	}
	if _, err := archive.ReadMeta(w.ArchiveDir, "b"); err == nil {
		t.Fatalf("life b is still running and should not be archived")
	}
}
