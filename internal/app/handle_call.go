package app

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/studyhub-app/studyhub/internal/domain"
)

func (h *Hub) handleCallUser(ev Event) {
	user, ok := h.requireUser(ev)
	if !ok {
		return
	}
	var p callUserPayload
	if !h.decode(ev, &p) {
		return
	}
	target := domain.UserID(p.TargetUserID)
	call, err := h.relay.Offer(ev.Conn, user, target, p.Offer, p.CallKind, ev.At)
	if errors.Is(err, domain.ErrTargetUnavailable) {
		// Fail fast within the same turn; no queueing of missed calls.
		h.router.SendToConn(ev.Conn, EvCallUnavailable, callUnavailablePayload{TargetUserID: target})
		return
	}
	if err != nil {
		log.Debug().Err(err).Str("module", "app.hub").Str("conn", string(ev.Conn)).Msg("call offer dropped")
		return
	}
	callID := call.ID
	h.tasks.After(ringKey(callID), time.Until(call.Deadline), func() {
		h.inject(Event{Type: evRingTimeout, Call: callID, At: time.Now()})
	})
}

func (h *Hub) handleAnswerCall(ev Event) {
	user, ok := h.requireUser(ev)
	if !ok {
		return
	}
	var p answerCallPayload
	if !h.decode(ev, &p) {
		return
	}
	call, err := h.relay.Answer(user, domain.CallID(p.CallID), p.Answer)
	if err != nil {
		// Stale answer (timed out, ended, or another tab won); expected
		// under concurrency, not a client-facing error.
		log.Debug().Err(err).Str("module", "app.hub").Str("conn", string(ev.Conn)).Str("call", p.CallID).Msg("answer ignored")
		return
	}
	h.tasks.Stop(ringKey(call.ID))
}

func (h *Hub) handleIceCandidate(ev Event) {
	user, ok := h.requireUser(ev)
	if !ok {
		return
	}
	var p icePayload
	if !h.decode(ev, &p) {
		return
	}
	// Unordered, best-effort, zero or more per negotiation; routed, not
	// validated.
	h.relay.Candidate(user.ID, domain.UserID(p.TargetUserID), p.Candidate)
}

func (h *Hub) handleEndCall(ev Event) {
	user, ok := h.requireUser(ev)
	if !ok {
		return
	}
	var p endCallPayload
	if !h.decode(ev, &p) {
		return
	}
	for _, id := range h.relay.End(user.ID, domain.UserID(p.TargetUserID)) {
		h.tasks.Stop(ringKey(id))
	}
}
