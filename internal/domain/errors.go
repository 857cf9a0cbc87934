package domain

import "errors"

// Shared error taxonomy for the realtime hub. All of these are recoverable
// at single-event granularity; none aborts processing for other clients.
var (
	// ErrNotRoomMember rejects an action claiming a room the connection
	// has not joined. Surfaced to the acting client as "unauthorized".
	ErrNotRoomMember = errors.New("connection is not a member of the room")

	// ErrNotHost rejects timer/quiz mutations from a non-host member.
	ErrNotHost = errors.New("action requires the room host")

	// ErrTargetUnavailable means the signaling target has no live
	// connection. Surfaced to the caller immediately; calls are not queued.
	ErrTargetUnavailable = errors.New("target user has no live connection")

	// ErrStaleConnection marks operations referencing a connection or
	// room that no longer exists (disconnect race). Logged, not surfaced.
	ErrStaleConnection = errors.New("stale connection or room reference")

	// ErrDuplicateAnswer rejects a second answer for the same question
	// index from the same participant. The first answer stands.
	ErrDuplicateAnswer = errors.New("answer already submitted for this question")

	ErrNotAuthenticated = errors.New("connection has no associated user")

	// ErrAlreadyAuthenticated rejects an attempt to rebind a live
	// connection to a different user. The client must reconnect instead.
	ErrAlreadyAuthenticated = errors.New("connection is already bound to a user")

	// ErrRoomKindMismatch rejects joining an existing room under a kind
	// other than the one it was created with.
	ErrRoomKindMismatch = errors.New("room exists with a different kind")
)
