package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/studyhub-app/studyhub/internal/core"
	"github.com/studyhub-app/studyhub/internal/domain"
)

// handleAdvanceQuestion moves the quiz to its next question. The first
// advance on a fresh room triggers an asynchronous definition load; the
// result re-enters the loop as an event and the advance resumes there.
func (h *Hub) handleAdvanceQuestion(ctx context.Context, ev Event) {
	room, ok := h.requireQuizHost(ev)
	if !ok {
		return
	}
	if !room.Quiz.HasDef() {
		if h.quizzes == nil {
			h.router.SendToConn(ev.Conn, EvError, errorPayload{Error: "no quiz definition available"})
			return
		}
		roomID, conn := room.ID(), ev.Conn
		go func() {
			def, err := h.quizzes.QuizDef(ctx, roomID)
			h.inject(Event{Conn: conn, Type: evQuizLoaded, Room: roomID, QuizDef: def, Err: err, At: time.Now()})
		}()
		return
	}
	h.advance(room, ev.Conn, ev.At)
}

func (h *Hub) handleQuizLoaded(ev Event) {
	room, ok := h.rooms.Get(ev.Room)
	if !ok || room.Quiz == nil {
		return // room reaped while loading
	}
	if ev.Err != nil {
		log.Warn().Err(ev.Err).Str("module", "app.hub").Str("room", string(ev.Room)).Msg("quiz definition load failed")
		h.router.SendToConn(ev.Conn, EvError, errorPayload{Error: "quiz definition not found"})
		return
	}
	if !room.Quiz.HasDef() {
		room.Quiz.SetDef(ev.QuizDef)
	}
	h.advance(room, ev.Conn, ev.At)
}

func (h *Hub) advance(room *core.Room, conn domain.ConnID, now time.Time) {
	question, deadline, err := room.Quiz.Advance(now, h.opts.QuestionLimit)
	switch {
	case errors.Is(err, core.ErrQuizExhausted):
		h.finishQuiz(room)
		return
	case err != nil:
		h.router.SendToConn(conn, EvError, errorPayload{Error: err.Error()})
		return
	}
	index := room.Quiz.Index()
	h.router.RoomBroadcast(room, EvQuizQuestion, quizQuestionPayload{
		RoomID:   room.ID(),
		Index:    index,
		Prompt:   question.Prompt,
		Choices:  question.Choices,
		Deadline: deadline,
	}, "")
	h.broadcastQuizState(room)

	roomID := room.ID()
	h.tasks.After(qtKey(roomID), time.Until(deadline), func() {
		h.inject(Event{Type: evQuestionTimeout, Room: roomID, Index: index, At: time.Now()})
	})
}

// handleQuestionTimeout closes the question when its limit elapses,
// whether or not every participant answered. A late timeout for a
// question that already advanced is stale and ignored.
func (h *Hub) handleQuestionTimeout(ev Event) {
	room, ok := h.rooms.Get(ev.Room)
	if !ok || room.Quiz == nil {
		return
	}
	if room.Quiz.CloseQuestion(ev.Index) {
		h.broadcastQuizState(room)
	}
}

func (h *Hub) handleSubmitAnswer(ev Event) {
	user, ok := h.requireUser(ev)
	if !ok {
		return
	}
	var p submitAnswerPayload
	if !h.decode(ev, &p) {
		return
	}
	room, err := h.router.ValidateMembership(ev.Conn, domain.RoomID(p.RoomID))
	if err != nil {
		h.rejectRoomAction(ev.Conn, p.RoomID, err)
		return
	}
	if room.Quiz == nil {
		h.router.SendToConn(ev.Conn, EvError, errorPayload{Error: "room has no quiz"})
		return
	}
	correct, err := room.Quiz.Submit(user.ID, user.Name, p.QuestionIndex, p.Answer)
	ack := answerAckPayload{RoomID: room.ID(), Index: p.QuestionIndex, Accepted: err == nil, Correct: correct}
	switch {
	case errors.Is(err, domain.ErrDuplicateAnswer):
		// First answer wins; resubmission after reconnect is rejected,
		// never overwritten.
		ack.Reason = "duplicate"
	case errors.Is(err, core.ErrNotAcceptingAnswers):
		ack.Reason = "closed"
	case errors.Is(err, core.ErrWrongQuestionIndex):
		ack.Reason = "wrong_question"
	case err != nil:
		ack.Reason = err.Error()
	}
	h.router.SendToConn(ev.Conn, EvAnswerAck, ack)
}

func (h *Hub) handleEndQuiz(ev Event) {
	room, ok := h.requireQuizHost(ev)
	if !ok {
		return
	}
	h.finishQuiz(room)
}

func (h *Hub) finishQuiz(room *core.Room) {
	room.Quiz.End()
	h.tasks.Stop(qtKey(room.ID()))
	h.broadcastQuizState(room)
}

func (h *Hub) broadcastQuizState(room *core.Room) {
	h.router.RoomBroadcast(room, EvQuizState, quizStatePayload{RoomID: room.ID(), QuizState: room.Quiz.State()}, "")
}

// requireQuizHost gates host-only quiz commands: membership first, then
// quiz presence, then the host check.
func (h *Hub) requireQuizHost(ev Event) (*core.Room, bool) {
	if _, ok := h.requireUser(ev); !ok {
		return nil, false
	}
	var p roomPayload
	if !h.decode(ev, &p) {
		return nil, false
	}
	room, err := h.router.ValidateMembership(ev.Conn, domain.RoomID(p.RoomID))
	if err != nil {
		h.rejectRoomAction(ev.Conn, p.RoomID, err)
		return nil, false
	}
	if room.Quiz == nil {
		h.router.SendToConn(ev.Conn, EvError, errorPayload{Error: "room has no quiz"})
		return nil, false
	}
	if room.Host() != ev.Conn {
		h.unauthorized(ev.Conn, domain.ErrNotHost.Error())
		return nil, false
	}
	return room, true
}
