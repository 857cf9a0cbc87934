package domain

type (
	RoomID string
	CallID string
)

// RoomKind selects the per-kind default state a room is created with and
// its eviction policy. A connection holds at most one room per kind.
type RoomKind string

const (
	KindChat     RoomKind = "chat"
	KindQuiz     RoomKind = "quiz"
	KindStudy    RoomKind = "study"
	KindDocument RoomKind = "document"
	KindCall     RoomKind = "call"
)

// ParseRoomKind maps a wire string to a RoomKind, rejecting unknowns.
func ParseRoomKind(s string) (RoomKind, bool) {
	switch RoomKind(s) {
	case KindChat, KindQuiz, KindStudy, KindDocument, KindCall:
		return RoomKind(s), true
	default:
		return "", false
	}
}

// Ephemeral kinds are evicted the moment their member set empties.
// Quiz rooms keep their scoreboard and are reaped on end or idle timeout.
func (k RoomKind) Ephemeral() bool {
	return k != KindQuiz
}
