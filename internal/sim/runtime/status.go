package runtime

import (
	"encoding/json"

	"immortal.idle/internal/protocol"
)

func (r *Runtime) buildStatus(includeLocked bool) protocol.StatusMsg {
	st := r.eng.State()
	msg := protocol.StatusMsg{
		Type:                     protocol.TypeStatus,
		ProtocolVersion:          protocol.Version,
		Lifetime:                 r.eng.LifetimeID(),
		Mode:                     string(r.eng.Mode()),
		Tick:                     r.tick.Load(),
		LongTick:                 r.eng.LongTicks(),
		Paused:                   r.paused,
		Dead:                     r.eng.Dead(),
		OpenApprenticeships:      st.OpenApprenticeships,
		CompletedApprenticeships: make([]string, 0, len(st.CompletedApprenticeships)),
		OddJobDays:               st.OddJobDays,
		BeggingDays:              st.BeggingDays,
		Activities:               []protocol.ActivityState{},
		Loop:                     make([]protocol.LoopEntryState, 0, len(st.Loop)),
		LoopIndex:                r.loopIndex,
		Money:                    r.char.Money(),
	}
	for _, t := range st.CompletedApprenticeships {
		msg.CompletedApprenticeships = append(msg.CompletedApprenticeships, string(t))
	}
	for _, a := range r.eng.Activities() {
		if !a.Unlocked && !includeLocked {
			continue
		}
		msg.Activities = append(msg.Activities, protocol.ActivityState{
			Type:     string(a.Type),
			Name:     a.Name(),
			Level:    a.Level,
			Levels:   len(a.Levels),
			Unlocked: a.Unlocked,
		})
	}
	for _, e := range st.Loop {
		msg.Loop = append(msg.Loop, protocol.LoopEntryState{Activity: string(e.Activity), RepeatTimes: e.RepeatTimes})
	}
	if t, ok := r.eng.SpiritActivity(); ok {
		msg.SpiritActivity = string(t)
	}
	return msg
}

// publish stores the full status and pushes it to every observer.
func (r *Runtime) publish() {
	full := r.buildStatus(true)
	r.status.Store(&full)
	if len(r.observers) == 0 {
		return
	}

	var fullB, unlockedB []byte
	for _, o := range r.observers {
		if o.includeLocked {
			if fullB == nil {
				fullB, _ = json.Marshal(full)
			}
			sendLatest(o.out, fullB)
			continue
		}
		if unlockedB == nil {
			unlockedB, _ = json.Marshal(r.buildStatus(false))
		}
		sendLatest(o.out, unlockedB)
	}
}

func (r *Runtime) handleObserverJoin(req ObserverJoinRequest) {
	if req.SessionID == "" || req.Out == nil {
		return
	}
	o := &observerClient{id: req.SessionID, out: req.Out, includeLocked: req.IncludeLocked}
	r.observers[o.id] = o
	b, _ := json.Marshal(r.buildStatus(o.includeLocked))
	sendLatest(o.out, b)
}

// sendLatest never blocks: when ch is full the oldest message is dropped.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
