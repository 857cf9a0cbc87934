package core

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/studyhub-app/studyhub/internal/domain"
)

// Room is a threadsafe in-memory coordination scope. It owns the member
// set and the per-kind session state but never closes adapter-owned
// transport resources. Members are kept in join order so host succession
// can pick the next-oldest participant.
type Room struct {
	id   domain.RoomID
	kind domain.RoomKind

	mu      sync.RWMutex
	members map[domain.ConnID]MemberDTO
	order   []domain.ConnID
	host    domain.ConnID
	conns   map[domain.ConnID]SignalConnection

	// Per-kind session state; nil when the kind does not use it.
	Timer *Timer
	Quiz  *Quiz

	emptySince time.Time
}

func NewRoom(id domain.RoomID, kind domain.RoomKind) *Room {
	return &Room{
		id:      id,
		kind:    kind,
		members: make(map[domain.ConnID]MemberDTO),
		conns:   make(map[domain.ConnID]SignalConnection),
	}
}

func (r *Room) ID() domain.RoomID     { return r.id }
func (r *Room) Kind() domain.RoomKind { return r.kind }

func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *Room) IsMember(id domain.ConnID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[id]
	return ok
}

// Host returns the connection currently authorized to mutate shared state.
func (r *Room) Host() domain.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.host
}

// AddMember joins a connection. The first member becomes host.
func (r *Room) AddMember(id domain.ConnID, conn SignalConnection, m MemberDTO) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; ok {
		return
	}
	r.members[id] = m
	r.conns[id] = conn
	r.order = append(r.order, id)
	if r.host == "" {
		r.host = id
	}
	r.emptySince = time.Time{}
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("conn", string(id)).Str("user", string(m.UserID)).Msg("member added")
}

// RemoveMember leaves a connection. When the host leaves, the role passes
// to the next-oldest remaining member; newHost is non-empty only when the
// role actually moved. empty reports whether the member set drained.
func (r *Room) RemoveMember(id domain.ConnID) (newHost domain.ConnID, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; !ok {
		return "", len(r.members) == 0
	}
	delete(r.members, id)
	delete(r.conns, id)
	for i, c := range r.order {
		if c == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.host == id {
		r.host = ""
		if len(r.order) > 0 {
			r.host = r.order[0]
			newHost = r.host
		}
	}
	if len(r.members) == 0 {
		r.emptySince = time.Now()
	}
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("conn", string(id)).Msg("member removed")
	return newHost, len(r.members) == 0
}

// Broadcast fans a frame out to the live member set, read at call time.
// Failed sends are isolated: a slow or half-closed recipient never aborts
// delivery to the rest.
func (r *Room) Broadcast(exclude domain.ConnID, f Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for id, conn := range r.conns {
		if id == exclude {
			continue
		}
		if err := conn.TrySend(f); err != nil {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

// MembersSnapshot returns a read-only member view in join order.
func (r *Room) MembersSnapshot() []MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberDTO, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.members[id])
	}
	return out
}

// MemberConns lists member connection ids, fresh at call time.
func (r *Room) MemberConns() []domain.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ConnID, len(r.order))
	copy(out, r.order)
	return out
}

// EmptySince reports when the member set drained; zero while occupied.
func (r *Room) EmptySince() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.emptySince
}
