// Package runtime drives a progression engine and its character in real time.
// One goroutine (Run) owns all simulation state; everything else talks to it
// through request channels.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"immortal.idle/internal/persistence/snapshot"
	"immortal.idle/internal/protocol"
	"immortal.idle/internal/sim/activity"
	"immortal.idle/internal/sim/character"
	"immortal.idle/internal/sim/collab"
	"immortal.idle/internal/sim/progression"
)

var ErrStopped = errors.New("runtime stopped")

type Config struct {
	TickRateHz int
	// LongTickEvery is the number of fine ticks per long tick (one game day).
	LongTickEvery int
	// SaveEveryLongTicks controls periodic saves; 0 disables them.
	SaveEveryLongTicks int
}

func (c *Config) applyDefaults() {
	if c.TickRateHz <= 0 {
		c.TickRateHz = 10
	}
	if c.LongTickEvery <= 0 {
		c.LongTickEvery = 10
	}
	if c.SaveEveryLongTicks < 0 {
		c.SaveEveryLongTicks = 0
	}
}

// ObserverJoinRequest registers a status subscriber. Out receives encoded
// STATUS messages; only the newest is kept when the reader falls behind.
type ObserverJoinRequest struct {
	SessionID     string
	Out           chan []byte
	IncludeLocked bool
}

type observerClient struct {
	id            string
	out           chan []byte
	includeLocked bool
}

type controlReq struct {
	fn   func() error
	resp chan error
}

type Runtime struct {
	cfg Config
	log *log.Logger

	eng  *progression.Engine
	char *character.Character
	set  *collab.Set

	tick       atomic.Uint64
	paused     bool
	loopIndex  int
	repeatDone int

	observers     map[string]*observerClient
	observerJoin  chan ObserverJoinRequest
	observerLeave chan string
	control       chan controlReq
	stop          chan struct{}
	stopped       atomic.Bool

	saveSink chan<- snapshot.SaveV1

	status atomic.Pointer[protocol.StatusMsg]
}

// New wires a runtime around an engine built on char and set. The runtime
// becomes the engine's pauser.
func New(cfg Config, eng *progression.Engine, char *character.Character, set *collab.Set, logger *log.Logger) *Runtime {
	cfg.applyDefaults()
	r := &Runtime{
		cfg:           cfg,
		log:           logger,
		eng:           eng,
		char:          char,
		set:           set,
		observers:     map[string]*observerClient{},
		observerJoin:  make(chan ObserverJoinRequest, 16),
		observerLeave: make(chan string, 16),
		control:       make(chan controlReq, 16),
		stop:          make(chan struct{}),
	}
	eng.SetPauser(r)
	r.publish()
	return r
}

func (r *Runtime) Config() Config { return r.cfg }

func (r *Runtime) ObserverJoin() chan<- ObserverJoinRequest { return r.observerJoin }

func (r *Runtime) ObserverLeave() chan<- string { return r.observerLeave }

// SetSaveSink sets where periodic and requested saves are sent. Must be called
// before Run.
func (r *Runtime) SetSaveSink(ch chan<- snapshot.SaveV1) { r.saveSink = ch }

// CurrentTick is safe to call from any goroutine.
func (r *Runtime) CurrentTick() uint64 { return r.tick.Load() }

// Status returns the last published status. Safe from any goroutine.
func (r *Runtime) Status() protocol.StatusMsg {
	if s := r.status.Load(); s != nil {
		return *s
	}
	return protocol.StatusMsg{}
}

// RequestPause implements progression.Pauser. It runs on the loop goroutine.
func (r *Runtime) RequestPause() {
	r.paused = true
	if r.log != nil {
		r.log.Printf("paused at tick %d", r.tick.Load())
	}
}

func (r *Runtime) Stop() {
	if r.stopped.CompareAndSwap(false, true) {
		close(r.stop)
	}
}

// do runs fn on the loop goroutine and waits for its result.
func (r *Runtime) do(ctx context.Context, fn func() error) error {
	resp := make(chan error, 1)
	select {
	case r.control <- controlReq{fn: fn, resp: resp}:
	case <-r.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-resp:
		return err
	case <-r.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runtime) SetPaused(ctx context.Context, paused bool) error {
	return r.do(ctx, func() error {
		r.paused = paused
		r.publish()
		return nil
	})
}

// RequestReincarnate ends the current life immediately.
func (r *Runtime) RequestReincarnate(ctx context.Context) error {
	return r.do(ctx, r.reincarnate)
}

func (r *Runtime) RequestSwitchMode(ctx context.Context, mode string) error {
	return r.do(ctx, func() error {
		m, err := activity.ParseMode(mode)
		if err != nil {
			return err
		}
		if err := r.eng.SwitchMode(m); err != nil {
			return err
		}
		r.resetLoopCursor()
		r.publish()
		return nil
	})
}

// RequestSave queues a save of the current state and returns its tick.
func (r *Runtime) RequestSave(ctx context.Context) (uint64, error) {
	var tick uint64
	err := r.do(ctx, func() error {
		tick = r.tick.Load()
		return r.enqueueSave()
	})
	return tick, err
}

// Edit runs fn against the engine on the loop goroutine, then republishes the
// status. Loop and spirit edits from other goroutines go through here.
func (r *Runtime) Edit(ctx context.Context, fn func(*progression.Engine) error) error {
	return r.do(ctx, func() error {
		if err := fn(r.eng); err != nil {
			return err
		}
		if r.loopIndex >= len(r.eng.Loop()) {
			r.resetLoopCursor()
		}
		r.publish()
		return nil
	})
}

func (r *Runtime) enqueueSave() error {
	if r.saveSink == nil {
		return fmt.Errorf("save sink not configured")
	}
	select {
	case r.saveSink <- r.Snapshot():
		return nil
	default:
		return fmt.Errorf("save sink backpressure")
	}
}
