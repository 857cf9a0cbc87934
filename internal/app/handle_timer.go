package app

import (
	"time"

	"github.com/studyhub-app/studyhub/internal/domain"
)

// handleTimerCommand applies a host's start/pause/reset. The broadcast of
// the resulting state happens in the same loop turn as the mutation, so
// no member can observe a stale remaining-seconds value.
func (h *Hub) handleTimerCommand(ev Event) {
	if _, ok := h.requireUser(ev); !ok {
		return
	}
	var p roomPayload
	if !h.decode(ev, &p) {
		return
	}
	room, err := h.router.ValidateMembership(ev.Conn, domain.RoomID(p.RoomID))
	if err != nil {
		h.rejectRoomAction(ev.Conn, p.RoomID, err)
		return
	}
	if room.Timer == nil {
		h.router.SendToConn(ev.Conn, EvError, errorPayload{Error: "room has no timer"})
		return
	}
	if room.Host() != ev.Conn {
		h.unauthorized(ev.Conn, domain.ErrNotHost.Error())
		return
	}

	var changed bool
	var state = room.Timer.State()
	switch ev.Type {
	case EvStartTimer:
		if state, changed = room.Timer.Start(); changed {
			roomID := room.ID()
			h.tasks.Ticker(tickKey(roomID), time.Second, func() {
				h.inject(Event{Type: evTimerTick, Room: roomID, At: time.Now()})
			})
		}
	case EvPauseTimer:
		if state, changed = room.Timer.Pause(); changed {
			h.tasks.Stop(tickKey(room.ID()))
		}
	case EvResetTimer:
		state, changed = room.Timer.Reset()
		h.tasks.Stop(tickKey(room.ID()))
	}
	if changed {
		h.router.RoomBroadcast(room, EvTimerState, timerStatePayload{RoomID: room.ID(), TimerState: state}, "")
	}
}

// handleTimerTick advances the server-driven countdown by one second.
// Every participant sees the identical remaining value regardless of
// local clock drift.
func (h *Hub) handleTimerTick(ev Event) {
	room, ok := h.rooms.Get(ev.Room)
	if !ok || room.Timer == nil {
		// Room evicted between tick and dispatch.
		h.tasks.Stop(tickKey(ev.Room))
		return
	}
	state, changed := room.Timer.Tick()
	if !changed {
		return
	}
	if !state.Running {
		// Cycle target reached; the countdown task must not outlive it.
		h.tasks.Stop(tickKey(ev.Room))
	}
	h.router.RoomBroadcast(room, EvTimerState, timerStatePayload{RoomID: room.ID(), TimerState: state}, "")
}
