package app

import (
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/studyhub-app/studyhub/internal/core"
	"github.com/studyhub-app/studyhub/internal/domain"
)

func (h *Hub) handleJoinRoom(ev Event) {
	user, ok := h.requireUser(ev)
	if !ok {
		return
	}
	var p joinRoomPayload
	if !h.decode(ev, &p) {
		return
	}
	kind, ok := domain.ParseRoomKind(p.RoomKind)
	if !ok || p.RoomID == "" {
		h.router.SendToConn(ev.Conn, EvError, errorPayload{Error: "invalid room id or kind"})
		return
	}
	sig, ok := h.presence.Conn(ev.Conn)
	if !ok {
		return // disconnect race
	}

	// Re-joining the room already held in this kind slot is idempotent:
	// refresh the caller's snapshot without announcing a phantom arrival.
	if cur, ok := h.rooms.RoomOf(ev.Conn, kind); ok && cur == domain.RoomID(p.RoomID) {
		if room, ok := h.rooms.Get(cur); ok {
			h.router.SendToConn(ev.Conn, EvRoomState, h.roomState(room))
			return
		}
	}

	member := core.MemberDTO{ConnID: ev.Conn, UserID: user.ID, Name: user.Name}
	room, implicit, err := h.rooms.Join(ev.Conn, sig, member, domain.RoomID(p.RoomID), kind)
	if err != nil {
		h.router.SendToConn(ev.Conn, EvError, errorPayload{Error: err.Error()})
		return
	}

	// Single-room-per-kind: the implicit leave notifies the old room the
	// same way an explicit one would.
	if implicit != nil {
		h.notifyLeft(implicit)
	}

	h.router.RoomBroadcast(room, EvUserJoinedRoom, roomUserPayload{
		RoomID: room.ID(), UserID: user.ID, DisplayName: user.Name,
	}, ev.Conn)
	h.router.SendToConn(ev.Conn, EvRoomState, h.roomState(room))
}

func (h *Hub) handleLeaveRoom(ev Event) {
	if _, ok := h.requireUser(ev); !ok {
		return
	}
	var p roomPayload
	if !h.decode(ev, &p) {
		return
	}
	res, err := h.rooms.Leave(ev.Conn, domain.RoomID(p.RoomID))
	switch {
	case errors.Is(err, domain.ErrNotRoomMember):
		h.unauthorized(ev.Conn, err.Error())
		return
	case err != nil:
		log.Debug().Err(err).Str("module", "app.hub").Str("conn", string(ev.Conn)).Str("room", p.RoomID).Msg("leave ignored")
		return
	}
	h.notifyLeft(res)
}

func (h *Hub) handleSendMessage(ev Event) {
	user, ok := h.requireUser(ev)
	if !ok {
		return
	}
	var p sendMessagePayload
	if !h.decode(ev, &p) {
		return
	}
	room, err := h.router.ValidateMembership(ev.Conn, domain.RoomID(p.RoomID))
	if err != nil {
		h.rejectRoomAction(ev.Conn, p.RoomID, err)
		return
	}
	msg := domain.ChatMessage{
		ID:         uuid.NewString(),
		RoomID:     room.ID(),
		SenderID:   user.ID,
		SenderName: user.Name,
		Content:    p.Content,
		Type:       p.Type,
		Timestamp:  ev.At,
	}
	h.router.RoomBroadcast(room, EvNewMessage, msg, "")
}

// notifyLeft fans out the departure side effects of one membership
// removal: the left notification, host succession, and eviction policy.
func (h *Hub) notifyLeft(res *LeaveResult) {
	room := res.Room
	h.router.RoomBroadcast(room, EvUserLeftRoom, roomUserPayload{
		RoomID: room.ID(), UserID: res.Member.UserID, DisplayName: res.Member.Name,
	}, "")
	if res.NewHost != "" {
		if next, ok := h.presence.UserOf(res.NewHost); ok {
			h.router.RoomBroadcast(room, EvHostChanged, roomUserPayload{
				RoomID: room.ID(), UserID: next.ID, DisplayName: next.Name,
			}, "")
		}
	}
	if res.Empty && room.Kind().Ephemeral() {
		h.evictRoom(room.ID())
	}
}

// evictRoom drops the room and cancels any timer tasks still keyed to it,
// so no periodic task outlives the state it references.
func (h *Hub) evictRoom(id domain.RoomID) {
	h.tasks.Stop(tickKey(id))
	h.tasks.Stop(qtKey(id))
	h.rooms.Evict(id)
}

func (h *Hub) handleSweep(ev Event) {
	for _, id := range h.rooms.IdleQuizRooms(ev.At) {
		h.evictRoom(id)
	}
}

// rejectRoomAction maps membership failures: non-members get an explicit
// unauthorized (a stale tab must be able to react), vanished rooms are a
// logged no-op.
func (h *Hub) rejectRoomAction(conn domain.ConnID, roomID string, err error) {
	if errors.Is(err, domain.ErrNotRoomMember) {
		h.unauthorized(conn, err.Error())
		return
	}
	log.Debug().Err(err).Str("module", "app.hub").Str("conn", string(conn)).Str("room", roomID).Msg("room action on stale reference")
}

func (h *Hub) roomState(room *core.Room) roomStatePayload {
	state := roomStatePayload{
		RoomID:  room.ID(),
		Kind:    room.Kind(),
		Members: room.MembersSnapshot(),
	}
	if host, ok := h.presence.UserOf(room.Host()); ok {
		state.HostID = host.ID
	}
	if room.Timer != nil {
		s := room.Timer.State()
		state.Timer = &s
	}
	if room.Quiz != nil {
		s := room.Quiz.State()
		state.Quiz = &s
	}
	return state
}
