package core

import (
	"time"

	"github.com/studyhub-app/studyhub/internal/domain"
)

// CallState is the per-attempt signaling machine. Ringing → Connected and
// Ringing/Connected → Ended are the only transitions; there is no
// renegotiation or reconnect handling.
type CallState string

const (
	CallRinging   CallState = "ringing"
	CallConnected CallState = "connected"
	CallEnded     CallState = "ended"
)

// Call tracks one point-to-point call attempt. Calls are deliberately not
// rooms: the exchange is short-lived offer → answer → trickled candidates
// → end between exactly two parties.
type Call struct {
	ID         domain.CallID
	Kind       string // "voice" | "video"
	CallerConn domain.ConnID
	CallerUser domain.UserID
	TargetUser domain.UserID
	State      CallState
	Deadline   time.Time // ring timeout while State == CallRinging
}

// Answer moves Ringing to Connected on the first answer; later answers
// (second tab picking up) report false and are not relayed.
func (c *Call) Answer() bool {
	if c.State != CallRinging {
		return false
	}
	c.State = CallConnected
	c.Deadline = time.Time{}
	return true
}

// End is terminal from any state; it reports whether the call was still
// live so the hub notifies peers exactly once.
func (c *Call) End() bool {
	if c.State == CallEnded {
		return false
	}
	c.State = CallEnded
	return true
}

// Involves reports whether a user is a party to this call.
func (c *Call) Involves(uid domain.UserID) bool {
	return c.CallerUser == uid || c.TargetUser == uid
}
