package core

import "github.com/studyhub-app/studyhub/internal/domain"

// Frame is an encoded outbound event, ready for the transport.
type Frame []byte

// SignalConnection abstracts the per-connection messaging transport.
// Owned by the adapter; the adapter must Close() it. TrySend never blocks:
// a full send buffer returns an error and the frame is dropped for that
// recipient only.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// PublishResult reports delivery stats and backpressure to the caller.
type PublishResult struct {
	SentTo  int
	Dropped []domain.ConnID
}

// MemberDTO is a read-only member view for snapshots and APIs.
type MemberDTO struct {
	ConnID domain.ConnID `json:"-"`
	UserID domain.UserID `json:"userId"`
	Name   string        `json:"displayName"`
}
