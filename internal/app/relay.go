package app

import (
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/studyhub-app/studyhub/internal/core"
	"github.com/studyhub-app/studyhub/internal/domain"
)

// Relay routes call-setup signaling point-to-point between two users.
// It is deliberately not room-scoped: a call attempt is a short-lived
// offer → answer → trickled candidates → end exchange, tracked by a small
// state machine per attempt. State is owned by the hub loop; no locking.
type Relay struct {
	presence *core.Presence
	router   *Router
	ring     time.Duration

	calls map[domain.CallID]*core.Call
}

func NewRelay(presence *core.Presence, router *Router, ringTimeout time.Duration) *Relay {
	return &Relay{
		presence: presence,
		router:   router,
		ring:     ringTimeout,
		calls:    make(map[domain.CallID]*core.Call),
	}
}

// Offer starts a call attempt. A target with no live connection fails
// fast with ErrTargetUnavailable; missed calls are not queued.
func (r *Relay) Offer(conn domain.ConnID, caller *domain.User, target domain.UserID, offer webrtc.SessionDescription, kind string, now time.Time) (*core.Call, error) {
	if !r.presence.IsOnline(target) {
		return nil, domain.ErrTargetUnavailable
	}
	call := &core.Call{
		ID:         domain.CallID(uuid.NewString()),
		Kind:       kind,
		CallerConn: conn,
		CallerUser: caller.ID,
		TargetUser: target,
		State:      core.CallRinging,
		Deadline:   now.Add(r.ring),
	}
	r.calls[call.ID] = call
	delivered := r.router.SendToUser(target, EvIncomingCall, incomingCallPayload{
		CallID:     call.ID,
		FromUserID: caller.ID,
		FromName:   caller.Name,
		CallKind:   kind,
		Offer:      offer,
	})
	if delivered == 0 {
		// Every target connection died between the presence check and the
		// send; same outcome as an offline target.
		delete(r.calls, call.ID)
		return nil, domain.ErrTargetUnavailable
	}
	log.Info().Str("module", "app.relay").Str("call", string(call.ID)).Str("caller", string(caller.ID)).Str("target", string(target)).Msg("call ringing")
	return call, nil
}

// Answer relays the callee's answer back to the caller and connects the
// call. Only the first answer wins; a second tab picking up is dropped.
func (r *Relay) Answer(answerer *domain.User, callID domain.CallID, answer webrtc.SessionDescription) (*core.Call, error) {
	call, ok := r.calls[callID]
	if !ok || call.TargetUser != answerer.ID {
		return nil, domain.ErrStaleConnection
	}
	if !call.Answer() {
		return nil, domain.ErrStaleConnection
	}
	payload := callAnsweredPayload{CallID: call.ID, FromUserID: answerer.ID, Answer: answer}
	if _, ok := r.presence.Conn(call.CallerConn); ok {
		r.router.SendToConn(call.CallerConn, EvCallAnswered, payload)
	} else {
		// Caller's originating tab is gone; fall back to any remaining tab.
		r.router.SendToUser(call.CallerUser, EvCallAnswered, payload)
	}
	log.Info().Str("module", "app.relay").Str("call", string(call.ID)).Msg("call connected")
	return call, nil
}

// Candidate routes a trickled ICE candidate, unordered and best-effort.
// Content is not validated, only routed.
func (r *Relay) Candidate(from domain.UserID, target domain.UserID, cand webrtc.ICECandidateInit) {
	r.router.SendToUser(target, EvIceCandidate, iceRelayPayload{FromUserID: from, Candidate: cand})
}

// End terminates any live call between the two users and notifies the
// peer once. The relay does not deduplicate on behalf of clients.
func (r *Relay) End(from domain.UserID, target domain.UserID) []domain.CallID {
	var ended []domain.CallID
	for id, call := range r.calls {
		if !call.Involves(from) || !call.Involves(target) {
			continue
		}
		if call.End() {
			r.router.SendToUser(target, EvCallEnded, callEndedPayload{CallID: call.ID, FromUserID: from, Reason: "ended"})
		}
		delete(r.calls, id)
		ended = append(ended, id)
	}
	return ended
}

// RingTimeout fires when an attempt was never answered: the caller is
// told the target was unavailable after the fact, the callee's ringing
// UI is cleared.
func (r *Relay) RingTimeout(callID domain.CallID) {
	call, ok := r.calls[callID]
	if !ok || call.State != core.CallRinging {
		return
	}
	call.End()
	delete(r.calls, callID)
	r.router.SendToConn(call.CallerConn, EvCallEnded, callEndedPayload{CallID: call.ID, Reason: "unavailable"})
	r.router.SendToUser(call.TargetUser, EvCallEnded, callEndedPayload{CallID: call.ID, Reason: "timeout"})
	log.Info().Str("module", "app.relay").Str("call", string(callID)).Msg("ring timeout")
}

// DropConn ends attempts tied to a closing connection: calls this tab
// originated, and, when the user's presence fully lapsed, every call the
// user was party to.
func (r *Relay) DropConn(conn domain.ConnID, uid domain.UserID, offline bool) []domain.CallID {
	var ended []domain.CallID
	for id, call := range r.calls {
		tied := call.CallerConn == conn || (offline && uid != "" && call.Involves(uid))
		if !tied {
			continue
		}
		if call.End() {
			peer := call.TargetUser
			if peer == uid {
				peer = call.CallerUser
			}
			r.router.SendToUser(peer, EvCallEnded, callEndedPayload{CallID: call.ID, Reason: "peer_disconnected"})
		}
		delete(r.calls, id)
		ended = append(ended, id)
	}
	return ended
}
