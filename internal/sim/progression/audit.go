package progression

import "immortal.idle/internal/sim/activity"

// Audit actions.
const (
	ActionUnlocked                = "UNLOCKED"
	ActionLevelUp                 = "LEVEL_UP"
	ActionApprenticeshipClaimed   = "APPRENTICESHIP_CLAIMED"
	ActionApprenticeshipCompleted = "APPRENTICESHIP_COMPLETED"
	ActionRelocked                = "RELOCKED"
	ActionLoopPruned              = "LOOP_PRUNED"
	ActionReincarnated            = "REINCARNATED"
	ActionModeSwitched            = "MODE_SWITCHED"
)

type AuditEntry struct {
	Tick     uint64         `json:"tick"` // long tick
	Lifetime string         `json:"lifetime"`
	Action   string         `json:"action"`
	Activity activity.Type  `json:"activity,omitempty"`
	Level    int            `json:"level"`
	Reason   string         `json:"reason,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

type AuditSink interface {
	WriteAudit(e AuditEntry) error
}

// Sinks fans an entry out to several sinks. The first error wins; every sink
// still receives the entry.
type Sinks []AuditSink

func (s Sinks) WriteAudit(e AuditEntry) error {
	var first error
	for _, sink := range s {
		if sink == nil {
			continue
		}
		if err := sink.WriteAudit(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (e *Engine) audit(action string, a *activity.Activity, reason string, details map[string]any) {
	if e.sink == nil {
		return
	}
	entry := AuditEntry{
		Tick:     e.longTick,
		Lifetime: e.lifetime,
		Action:   action,
		Reason:   reason,
		Details:  details,
	}
	if a != nil {
		entry.Activity = a.Type
		entry.Level = a.Level
	}
	_ = e.sink.WriteAudit(entry)
}
