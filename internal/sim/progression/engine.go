// Package progression owns activity unlocking, leveling, the apprenticeship
// slots and the activity loop. Engine methods are not safe for concurrent use;
// one goroutine (the runtime loop) drives an engine.
package progression

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"immortal.idle/internal/sim/activity"
	"immortal.idle/internal/sim/catalogs"
)

var (
	ErrLoopIndex      = errors.New("loop index out of range")
	ErrActivityLocked = errors.New("activity locked")
	ErrCharacterDead  = errors.New("character dead")
)

type Config struct {
	Mode activity.Mode

	// StartingApprenticeships is the slot count at the start of every lifetime.
	StartingApprenticeships int
	// ResetFastForwardPasses is how many advancement passes run after a
	// reincarnation reset. It is a heuristic, not a saturation bound.
	ResetFastForwardPasses int

	AutoRestart  bool
	PauseOnDeath bool
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = activity.ModeNormal
	}
	if c.StartingApprenticeships <= 0 {
		c.StartingApprenticeships = 1
	}
	if c.ResetFastForwardPasses <= 0 {
		c.ResetFastForwardPasses = 5
	}
}

// Pauser is the scheduler hook used by pause-on-death.
type Pauser interface {
	RequestPause()
}

type Engine struct {
	cfg  Config
	cats *catalogs.Catalogs
	env  activity.Env

	mode     activity.Mode
	acts     []*activity.Activity
	st       State
	lifetime string
	longTick uint64
	dead     bool

	pauser Pauser
	sink   AuditSink
}

// New builds the catalog for cfg.Mode and wires env.Progress back to the
// engine. env.Character is required.
func New(cfg Config, cats *catalogs.Catalogs, env activity.Env) (*Engine, error) {
	cfg.applyDefaults()
	if env.Character == nil {
		return nil, fmt.Errorf("progression: nil character")
	}
	acts, err := activity.Build(cfg.Mode, cats)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:      cfg,
		cats:     cats,
		mode:     cfg.Mode,
		acts:     acts,
		lifetime: uuid.NewString(),
		st: State{
			OpenApprenticeships: cfg.StartingApprenticeships,
			AutoRestart:         cfg.AutoRestart,
			PauseOnDeath:        cfg.PauseOnDeath,
		},
	}
	env.Progress = e
	e.env = env
	return e, nil
}

func (e *Engine) SetPauser(p Pauser) { e.pauser = p }

func (e *Engine) SetAuditSink(s AuditSink) { e.sink = s }

func (e *Engine) Mode() activity.Mode { return e.mode }

// LifetimeID identifies the current life; it changes on every reincarnation.
func (e *Engine) LifetimeID() string { return e.lifetime }

func (e *Engine) LongTicks() uint64 { return e.longTick }

// Activities returns the live catalog. Callers must not mutate it.
func (e *Engine) Activities() []*activity.Activity { return e.acts }

// State returns a copy of the progression state.
func (e *Engine) State() State { return e.st.clone() }

func (e *Engine) OpenApprenticeships() int { return e.st.OpenApprenticeships }

// SetOpenApprenticeships is the hook for external progression (home upgrades)
// that grants extra slots.
func (e *Engine) SetOpenApprenticeships(n int) {
	if n < 0 {
		n = 0
	}
	e.st.OpenApprenticeships = n
}

// Lookup returns the activity of type t in the current catalog. A miss is a
// catalog inconsistency and wraps activity.ErrUnknownActivity.
func (e *Engine) Lookup(t activity.Type) (*activity.Activity, error) {
	return activity.Find(e.acts, t)
}

// OnTick handles a fine tick. It only tracks the death kill-switch.
func (e *Engine) OnTick() {
	e.dead = e.env.Character.Dead()
}

// Dead reports the kill-switch state as of the last fine tick or Perform.
func (e *Engine) Dead() bool { return e.dead }

// Perform runs the effect of t's current level to completion.
func (e *Engine) Perform(t activity.Type) error {
	if e.env.Character.Dead() {
		e.dead = true
		return ErrCharacterDead
	}
	a, err := e.Lookup(t)
	if err != nil {
		return err
	}
	if !a.Unlocked {
		return fmt.Errorf("%w: %s", ErrActivityLocked, t)
	}
	a.Current().Effect(e.env)
	return nil
}

func (e *Engine) SpiritActivity() (activity.Type, bool) {
	if e.st.SpiritActivity == nil {
		return "", false
	}
	return *e.st.SpiritActivity, true
}

// SetSpiritActivity selects the activity performed by the character's spirit.
// An empty type clears the selection.
func (e *Engine) SetSpiritActivity(t activity.Type) error {
	if t == "" {
		e.st.SpiritActivity = nil
		return nil
	}
	a, err := e.Lookup(t)
	if err != nil {
		return err
	}
	if !a.Unlocked {
		return fmt.Errorf("%w: %s", ErrActivityLocked, t)
	}
	e.st.SpiritActivity = &t
	return nil
}

func (e *Engine) AutoRestart() bool { return e.st.AutoRestart }

func (e *Engine) SetAutoRestart(v bool) { e.st.AutoRestart = v }

func (e *Engine) PauseOnDeath() bool { return e.st.PauseOnDeath }

func (e *Engine) SetPauseOnDeath(v bool) { e.st.PauseOnDeath = v }

func (e *Engine) AddOddJobDay() { e.st.OddJobDays++ }

func (e *Engine) AddBeggingDay() { e.st.BeggingDays++ }
