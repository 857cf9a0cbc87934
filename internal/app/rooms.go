package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/studyhub-app/studyhub/internal/core"
	"github.com/studyhub-app/studyhub/internal/domain"
)

// RoomTable is the room membership table. It owns the forward map
// (room → members, inside each core.Room) and the reverse index
// (connection → one room per kind); every mutation updates both under the
// same lock so the two structures can never disagree.
type RoomTable struct {
	opts Options

	mu    sync.RWMutex
	rooms map[domain.RoomID]*core.Room
	slots map[domain.ConnID]map[domain.RoomKind]domain.RoomID
}

// LeaveResult reports the side effects of one membership removal so the
// hub can fan out the matching notifications.
type LeaveResult struct {
	Room    *core.Room
	Member  core.MemberDTO
	NewHost domain.ConnID
	Empty   bool
}

type RoomInfo struct {
	ID          domain.RoomID   `json:"id"`
	Kind        domain.RoomKind `json:"kind"`
	MemberCount int             `json:"memberCount"`
}

func NewRoomTable(opts Options) *RoomTable {
	return &RoomTable{
		opts:  opts.withDefaults(),
		rooms: make(map[domain.RoomID]*core.Room),
		slots: make(map[domain.ConnID]map[domain.RoomKind]domain.RoomID),
	}
}

// GetOrCreate returns the room, creating it with kind-appropriate default
// state on first reference: study rooms get a Pomodoro timer, quiz rooms a
// quiz machine in Lobby.
func (t *RoomTable) GetOrCreate(id domain.RoomID, kind domain.RoomKind) *core.Room {
	t.mu.RLock()
	room, ok := t.rooms[id]
	t.mu.RUnlock()
	if ok {
		return room
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if room, ok = t.rooms[id]; ok {
		return room
	}
	room = core.NewRoom(id, kind)
	switch kind {
	case domain.KindStudy:
		room.Timer = core.NewTimer(t.opts.FocusSecs, t.opts.BreakSecs, t.opts.CycleTarget)
	case domain.KindQuiz:
		room.Quiz = core.NewQuiz()
	}
	t.rooms[id] = room
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("kind", string(kind)).Msg("room created")
	return room
}

func (t *RoomTable) Get(id domain.RoomID) (*core.Room, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	room, ok := t.rooms[id]
	return room, ok
}

// Join adds the connection to the room and records the reverse mapping.
// A connection holds at most one room per kind: joining while another
// same-kind room is occupied removes that membership first, and the
// returned LeaveResult lets the hub emit the un-suppressed left
// notification to the old room. A room id that already exists under a
// different kind is rejected; it would desync the two structures.
func (t *RoomTable) Join(conn domain.ConnID, sig core.SignalConnection, m core.MemberDTO, id domain.RoomID, kind domain.RoomKind) (*core.Room, *LeaveResult, error) {
	room := t.GetOrCreate(id, kind)
	if room.Kind() != kind {
		return nil, nil, domain.ErrRoomKindMismatch
	}

	t.mu.Lock()
	kinds, ok := t.slots[conn]
	if !ok {
		kinds = make(map[domain.RoomKind]domain.RoomID)
		t.slots[conn] = kinds
	}
	var implicit *LeaveResult
	if prevID, ok := kinds[kind]; ok && prevID != id {
		if prev, ok := t.rooms[prevID]; ok {
			implicit = t.leaveLocked(prev, conn)
			// leaveLocked drops an emptied slot map; re-anchor before
			// writing the new entry or the reverse index loses the conn.
			if kinds, ok = t.slots[conn]; !ok {
				kinds = make(map[domain.RoomKind]domain.RoomID)
				t.slots[conn] = kinds
			}
		}
	}
	kinds[kind] = id
	t.mu.Unlock()

	room.AddMember(conn, sig, m)
	return room, implicit, nil
}

// Leave removes the membership. The caller applies the eviction policy
// using the returned Empty flag.
func (t *RoomTable) Leave(conn domain.ConnID, id domain.RoomID) (*LeaveResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	room, ok := t.rooms[id]
	if !ok {
		return nil, domain.ErrStaleConnection
	}
	res := t.leaveLocked(room, conn)
	if res == nil {
		return nil, domain.ErrNotRoomMember
	}
	return res, nil
}

// leaveLocked mutates the forward map and the matching slot entry.
// Callers hold t.mu.
func (t *RoomTable) leaveLocked(room *core.Room, conn domain.ConnID) *LeaveResult {
	if !room.IsMember(conn) {
		return nil
	}
	var member core.MemberDTO
	for _, m := range room.MembersSnapshot() {
		if m.ConnID == conn {
			member = m
			break
		}
	}
	newHost, empty := room.RemoveMember(conn)
	if kinds, ok := t.slots[conn]; ok {
		// Drop every slot pointing at this room, whatever kind it was
		// filed under, so no stale entry can survive a membership churn.
		for k, rid := range kinds {
			if rid == room.ID() {
				delete(kinds, k)
			}
		}
		if len(kinds) == 0 {
			delete(t.slots, conn)
		}
	}
	return &LeaveResult{Room: room, Member: member, NewHost: newHost, Empty: empty}
}

// RoomOf resolves the reverse index for one kind slot.
func (t *RoomTable) RoomOf(conn domain.ConnID, kind domain.RoomKind) (domain.RoomID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	kinds, ok := t.slots[conn]
	if !ok {
		return "", false
	}
	id, ok := kinds[kind]
	return id, ok
}

// RoomsOf returns every room the connection currently occupies. The
// disconnect reconciler reads this before removing anything.
func (t *RoomTable) RoomsOf(conn domain.ConnID) []*core.Room {
	t.mu.RLock()
	defer t.mu.RUnlock()
	kinds := t.slots[conn]
	out := make([]*core.Room, 0, len(kinds))
	for _, id := range kinds {
		if room, ok := t.rooms[id]; ok {
			out = append(out, room)
		}
	}
	return out
}

// Evict drops the room from the table. Ephemeral kinds are evicted the
// moment they empty; quiz rooms wait for the idle sweep so scoreboards
// survive a mass reconnect.
func (t *RoomTable) Evict(id domain.RoomID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.rooms, id)
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room evicted")
}

// IdleQuizRooms lists empty quiz rooms whose retention window has passed.
func (t *RoomTable) IdleQuizRooms(now time.Time) []domain.RoomID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []domain.RoomID
	for id, room := range t.rooms {
		if room.Kind() != domain.KindQuiz {
			continue
		}
		since := room.EmptySince()
		if !since.IsZero() && now.Sub(since) >= t.opts.QuizIdleEvict {
			out = append(out, id)
		}
	}
	return out
}

func (t *RoomTable) List() []RoomInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]RoomInfo, 0, len(t.rooms))
	for id, room := range t.rooms {
		out = append(out, RoomInfo{ID: id, Kind: room.Kind(), MemberCount: room.MemberCount()})
	}
	return out
}
