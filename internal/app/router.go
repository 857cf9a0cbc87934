package app

import (
	"github.com/rs/zerolog/log"

	"github.com/studyhub-app/studyhub/internal/core"
	"github.com/studyhub-app/studyhub/internal/domain"
)

// Router fans events out to the correct recipient set. Delivery is
// best-effort per recipient: a closed or backpressured connection is
// skipped, never aborting the rest of a broadcast. Per-recipient order is
// preserved because every connection has a single FIFO send queue and
// broadcasts enqueue serially.
type Router struct {
	presence *core.Presence
	rooms    *RoomTable
}

func NewRouter(presence *core.Presence, rooms *RoomTable) *Router {
	return &Router{presence: presence, rooms: rooms}
}

// RoomBroadcast delivers to every current member of the room, read fresh
// at call time, optionally excluding one connection.
func (r *Router) RoomBroadcast(room *core.Room, typ string, payload any, exclude domain.ConnID) {
	f, err := Encode(typ, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Str("event", typ).Msg("encode failed")
		return
	}
	res := room.Broadcast(exclude, f)
	if len(res.Dropped) > 0 {
		log.Warn().Str("module", "app.router").Str("room", string(room.ID())).Str("event", typ).Int("dropped", len(res.Dropped)).Msg("partial fan-out")
	}
}

// SendToUser delivers to every live connection of the user (multi-tab
// fan-out) and reports how many connections accepted the frame.
func (r *Router) SendToUser(uid domain.UserID, typ string, payload any) int {
	f, err := Encode(typ, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Str("event", typ).Msg("encode failed")
		return 0
	}
	sent := 0
	for _, id := range r.presence.ConnsOfUser(uid) {
		if conn, ok := r.presence.Conn(id); ok {
			if conn.TrySend(f) == nil {
				sent++
			}
		}
	}
	return sent
}

// SendToConn delivers to one connection. A missing or closed connection
// is a disconnect race and treated as a no-op.
func (r *Router) SendToConn(id domain.ConnID, typ string, payload any) {
	conn, ok := r.presence.Conn(id)
	if !ok {
		log.Debug().Str("module", "app.router").Str("conn", string(id)).Str("event", typ).Msg("send to unknown connection")
		return
	}
	f, err := Encode(typ, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Str("event", typ).Msg("encode failed")
		return
	}
	if err := conn.TrySend(f); err != nil {
		log.Debug().Err(err).Str("module", "app.router").Str("conn", string(id)).Str("event", typ).Msg("send failed")
	}
}

// BroadcastAll delivers to every authenticated connection except those of
// one user. Used for user_online/user_offline presence changes.
func (r *Router) BroadcastAll(typ string, payload any, excludeUser domain.UserID) {
	f, err := Encode(typ, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Str("event", typ).Msg("encode failed")
		return
	}
	for _, id := range r.presence.AllAuthed(excludeUser) {
		if conn, ok := r.presence.Conn(id); ok {
			_ = conn.TrySend(f)
		}
	}
}

// ValidateMembership checks that an event claiming to act within a room
// comes from a current member. Rejections surface as unauthorized, not a
// silent drop, so a stale tab can react.
func (r *Router) ValidateMembership(conn domain.ConnID, id domain.RoomID) (*core.Room, error) {
	room, ok := r.rooms.Get(id)
	if !ok {
		return nil, domain.ErrStaleConnection
	}
	if !room.IsMember(conn) {
		return nil, domain.ErrNotRoomMember
	}
	return room, nil
}
