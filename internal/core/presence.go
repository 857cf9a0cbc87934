package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/studyhub-app/studyhub/internal/domain"
)

type connEntry struct {
	conn SignalConnection
	user *domain.User // nil until the connection authenticates
}

// Presence is the connection registry: it owns the conn→identity mapping
// and reconciles user-level presence over many-to-one connections.
// Liveness is a property of the connection; presence is a property of the
// user, and goes offline only when the user's last connection unregisters.
type Presence struct {
	mu     sync.RWMutex
	conns  map[domain.ConnID]*connEntry
	byUser map[domain.UserID]map[domain.ConnID]struct{}
}

func NewPresence() *Presence {
	return &Presence{
		conns:  make(map[domain.ConnID]*connEntry),
		byUser: make(map[domain.UserID]map[domain.ConnID]struct{}),
	}
}

// Register records a new connection with no associated identity.
func (p *Presence) Register(id domain.ConnID, conn SignalConnection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[id] = &connEntry{conn: conn}
	log.Info().Str("module", "core.presence").Str("conn", string(id)).Msg("connection registered")
}

// Authenticate attaches identity to an existing connection. It returns the
// current presence snapshot (for the caller only) and whether this is the
// user's first live connection, i.e. whether a user_online broadcast is due.
// A race with disconnect leaves the registry untouched and reports
// ErrStaleConnection. A connection already bound to a different user keeps
// its binding and reports ErrAlreadyAuthenticated; rebinding in place would
// leave the old identity stranded in the per-user index. Re-authenticating
// as the same user just refreshes the display name.
func (p *Presence) Authenticate(id domain.ConnID, user *domain.User) ([]domain.PresenceEntry, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.conns[id]
	if !ok {
		log.Warn().Str("module", "core.presence").Str("conn", string(id)).Msg("authenticate on unknown connection")
		return nil, false, domain.ErrStaleConnection
	}
	if e.user != nil && e.user.ID != user.ID {
		log.Warn().Str("module", "core.presence").Str("conn", string(id)).Str("bound", string(e.user.ID)).Str("claimed", string(user.ID)).Msg("identity rebind rejected")
		return nil, false, domain.ErrAlreadyAuthenticated
	}
	first := len(p.byUser[user.ID]) == 0
	e.user = user
	set, ok := p.byUser[user.ID]
	if !ok {
		set = make(map[domain.ConnID]struct{})
		p.byUser[user.ID] = set
	}
	set[id] = struct{}{}
	log.Info().Str("module", "core.presence").Str("conn", string(id)).Str("user", string(user.ID)).Bool("first", first).Msg("connection authenticated")
	return p.snapshotLocked(), first, nil
}

// Unregister removes the connection. The returned user is non-nil when the
// connection was authenticated; wentOffline reports whether it was the
// user's last live connection.
func (p *Presence) Unregister(id domain.ConnID) (user *domain.User, wentOffline bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.conns[id]
	if !ok {
		return nil, false
	}
	delete(p.conns, id)
	if e.user == nil {
		return nil, false
	}
	set := p.byUser[e.user.ID]
	delete(set, id)
	if len(set) == 0 {
		delete(p.byUser, e.user.ID)
		wentOffline = true
	}
	log.Info().Str("module", "core.presence").Str("conn", string(id)).Str("user", string(e.user.ID)).Bool("offline", wentOffline).Msg("connection unregistered")
	return e.user, wentOffline
}

// UserOf resolves the identity attached to a connection, if any.
func (p *Presence) UserOf(id domain.ConnID) (*domain.User, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.conns[id]
	if !ok || e.user == nil {
		return nil, false
	}
	return e.user, true
}

// Conn returns the transport endpoint for a connection id.
func (p *Presence) Conn(id domain.ConnID) (SignalConnection, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.conns[id]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

// ConnsOfUser returns every live connection for a user (multi-tab fan-out).
func (p *Presence) ConnsOfUser(uid domain.UserID) []domain.ConnID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	set := p.byUser[uid]
	out := make([]domain.ConnID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

func (p *Presence) IsOnline(uid domain.UserID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byUser[uid]) > 0
}

func (p *Presence) ListOnline() []domain.PresenceEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

// AllAuthed lists every authenticated connection, optionally excluding one
// user's connections (used for user_online/user_offline fan-out).
func (p *Presence) AllAuthed(exclude domain.UserID) []domain.ConnID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.ConnID, 0, len(p.conns))
	for id, e := range p.conns {
		if e.user == nil || e.user.ID == exclude {
			continue
		}
		out = append(out, id)
	}
	return out
}

func (p *Presence) snapshotLocked() []domain.PresenceEntry {
	out := make([]domain.PresenceEntry, 0, len(p.byUser))
	for uid, set := range p.byUser {
		for id := range set {
			if e, ok := p.conns[id]; ok && e.user != nil {
				out = append(out, domain.PresenceEntry{UserID: uid, Name: e.user.Name})
				break
			}
		}
	}
	return out
}
