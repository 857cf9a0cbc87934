package app

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/studyhub-app/studyhub/internal/domain"
)

// handleAuthenticate attaches identity to a registered connection. The
// caller alone receives the presence snapshot; a user_online broadcast
// goes out only for the user's first live connection, so multi-tab users
// are announced once.
func (h *Hub) handleAuthenticate(ev Event) {
	var p authPayload
	if !h.decode(ev, &p) {
		return
	}

	// With a verifier wired in, a token is the only accepted credential.
	// The raw identity pair is for tokenless deployments only; honoring it
	// alongside a verifier would let anyone claim any user id.
	var user *domain.User
	switch {
	case h.verifier != nil && p.Token == "":
		h.unauthorized(ev.Conn, "token required")
		return
	case h.verifier != nil:
		u, err := h.verifier.Verify(p.Token)
		if err != nil {
			log.Warn().Err(err).Str("module", "app.hub").Str("conn", string(ev.Conn)).Msg("token rejected")
			h.unauthorized(ev.Conn, "invalid token")
			return
		}
		user = u
	case p.UserID != "" && p.DisplayName != "":
		user = &domain.User{ID: domain.UserID(p.UserID), Name: p.DisplayName}
	default:
		h.router.SendToConn(ev.Conn, EvError, errorPayload{Error: "missing credentials"})
		return
	}

	snapshot, first, err := h.presence.Authenticate(ev.Conn, user)
	switch {
	case errors.Is(err, domain.ErrAlreadyAuthenticated):
		h.unauthorized(ev.Conn, err.Error())
		return
	case err != nil:
		// Disconnect race; the connection is already gone.
		return
	}
	h.router.SendToConn(ev.Conn, EvOnlineUsers, onlineUsersPayload{Users: snapshot})
	if first {
		h.router.BroadcastAll(EvUserOnline, presencePayload{UserID: user.ID, DisplayName: user.Name}, user.ID)
	}
}

// handleDisconnect is the reconciler for a closed transport. Membership
// cleanup runs before presence cleanup: the left notifications read the
// registry, and a sibling tab of the same user may be mid-join elsewhere.
func (h *Hub) handleDisconnect(ev Event) {
	user, _ := h.presence.UserOf(ev.Conn)

	for _, room := range h.rooms.RoomsOf(ev.Conn) {
		res, err := h.rooms.Leave(ev.Conn, room.ID())
		if err != nil {
			if !errors.Is(err, domain.ErrStaleConnection) {
				log.Warn().Err(err).Str("module", "app.hub").Str("conn", string(ev.Conn)).Str("room", string(room.ID())).Msg("disconnect leave failed")
			}
			continue
		}
		h.notifyLeft(res)
	}

	var uid domain.UserID
	if user != nil {
		uid = user.ID
	}
	left, offline := h.presence.Unregister(ev.Conn)
	for _, callID := range h.relay.DropConn(ev.Conn, uid, offline) {
		h.tasks.Stop(ringKey(callID))
	}
	if offline && left != nil {
		h.router.BroadcastAll(EvUserOffline, presencePayload{UserID: left.ID}, left.ID)
	}
}
