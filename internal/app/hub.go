package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/studyhub-app/studyhub/internal/core"
	"github.com/studyhub-app/studyhub/internal/domain"
)

// TokenVerifier resolves a socket token to the logged-in user it was
// issued for. Optional; without it the hub trusts the announced identity.
type TokenVerifier interface {
	Verify(token string) (*domain.User, error)
}

// QuizSource loads quiz definitions. Calls happen off the hub goroutine
// and re-enter the loop as events, so storage latency never stalls
// dispatch.
type QuizSource interface {
	QuizDef(ctx context.Context, id domain.RoomID) (*domain.QuizDef, error)
}

// Hub serializes every state mutation (registry, membership, session
// state) through one dispatch goroutine. Handlers run to completion
// before the next event, which is what makes the per-room invariants hold
// without fine-grained coordination. Blocking I/O is forbidden inside a
// handler; collaborator results are re-injected as events.
type Hub struct {
	opts     Options
	presence *core.Presence
	rooms    *RoomTable
	router   *Router
	relay    *Relay
	tasks    *TaskArena
	quizzes  QuizSource
	verifier TokenVerifier

	events   chan Event
	shutdown chan struct{}

	mu      sync.RWMutex
	running bool
}

func NewHub(opts Options, quizzes QuizSource, verifier TokenVerifier) *Hub {
	opts = opts.withDefaults()
	presence := core.NewPresence()
	rooms := NewRoomTable(opts)
	router := NewRouter(presence, rooms)
	return &Hub{
		opts:     opts,
		presence: presence,
		rooms:    rooms,
		router:   router,
		relay:    NewRelay(presence, router, opts.RingTimeout),
		tasks:    NewTaskArena(),
		quizzes:  quizzes,
		verifier: verifier,
		events:   make(chan Event, opts.EventBuffer),
		shutdown: make(chan struct{}),
	}
}

// Presence exposes the connection registry to adapters (registration and
// REST presence reads are safe outside the loop).
func (h *Hub) Presence() *core.Presence { return h.presence }

// Rooms exposes read-only room listings to the REST layer.
func (h *Hub) Rooms() *RoomTable { return h.rooms }

func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return ErrHubAlreadyRunning
	}
	h.running = true
	h.mu.Unlock()

	log.Info().Str("module", "app.hub").Msg("hub started")
	h.tasks.Ticker("sweep", h.opts.SweepInterval, func() {
		h.inject(Event{Type: evSweep, At: time.Now()})
	})
	go h.run(ctx)
	return nil
}

func (h *Hub) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return ErrHubNotRunning
	}
	h.running = false
	select {
	case <-h.shutdown:
	default:
		close(h.shutdown)
	}
	h.tasks.StopAll()
	log.Info().Str("module", "app.hub").Msg("hub stopped")
	return nil
}

// Connect records a fresh transport connection. Identity arrives later
// over the channel via an authenticate event.
func (h *Hub) Connect(id domain.ConnID, conn core.SignalConnection) {
	h.presence.Register(id, conn)
}

// Disconnect schedules the reconciler for a closed connection. It blocks
// rather than drops: cleanup must not be lost under burst load.
func (h *Hub) Disconnect(id domain.ConnID) {
	h.inject(Event{Conn: id, Type: evDisconnect, At: time.Now()})
}

// HandleFrame decodes one inbound wire frame and queues it. A full queue
// is reported to the transport, which surfaces an error to the client.
func (h *Hub) HandleFrame(conn domain.ConnID, data []byte) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ErrBadPayload
	}
	return h.Enqueue(Event{Conn: conn, Type: env.Type, Payload: env.Payload, At: time.Now()})
}

// Enqueue queues an event without blocking the caller's read loop.
func (h *Hub) Enqueue(ev Event) error {
	h.mu.RLock()
	if !h.running {
		h.mu.RUnlock()
		return ErrHubNotRunning
	}
	h.mu.RUnlock()
	select {
	case h.events <- ev:
		return nil
	default:
		return ErrEventQueueFull
	}
}

// inject queues internally produced events (ticks, timeouts, disconnects,
// collaborator results). These must not be lost, so it blocks until the
// loop drains or the hub shuts down.
func (h *Hub) inject(ev Event) {
	select {
	case h.events <- ev:
	case <-h.shutdown:
	}
}

func (h *Hub) run(ctx context.Context) {
	defer log.Info().Str("module", "app.hub").Msg("dispatch loop exited")
	for {
		select {
		case ev := <-h.events:
			h.dispatch(ctx, ev)
		case <-h.shutdown:
			return
		case <-ctx.Done():
			return
		}
	}
}

// dispatch runs one event to completion. Errors are scoped to the
// originating client; nothing here is fatal to the process.
func (h *Hub) dispatch(ctx context.Context, ev Event) {
	switch ev.Type {
	case EvAuthenticate:
		h.handleAuthenticate(ev)
	case EvJoinRoom:
		h.handleJoinRoom(ev)
	case EvLeaveRoom:
		h.handleLeaveRoom(ev)
	case EvSendMessage:
		h.handleSendMessage(ev)
	case EvCallUser:
		h.handleCallUser(ev)
	case EvAnswerCall:
		h.handleAnswerCall(ev)
	case EvIceCandidate:
		h.handleIceCandidate(ev)
	case EvEndCall:
		h.handleEndCall(ev)
	case EvStartTimer, EvPauseTimer, EvResetTimer:
		h.handleTimerCommand(ev)
	case EvAdvanceQuestion:
		h.handleAdvanceQuestion(ctx, ev)
	case EvEndQuiz:
		h.handleEndQuiz(ev)
	case EvSubmitAnswer:
		h.handleSubmitAnswer(ev)
	case evDisconnect:
		h.handleDisconnect(ev)
	case evTimerTick:
		h.handleTimerTick(ev)
	case evQuestionTimeout:
		h.handleQuestionTimeout(ev)
	case evRingTimeout:
		h.relay.RingTimeout(ev.Call)
	case evQuizLoaded:
		h.handleQuizLoaded(ev)
	case evSweep:
		h.handleSweep(ev)
	default:
		log.Warn().Str("module", "app.hub").Str("event", ev.Type).Str("conn", string(ev.Conn)).Msg("unknown event")
		h.router.SendToConn(ev.Conn, EvError, errorPayload{Error: ErrUnknownEvent.Error()})
	}
}

// requireUser gates every room/call event behind authentication.
func (h *Hub) requireUser(ev Event) (*domain.User, bool) {
	user, ok := h.presence.UserOf(ev.Conn)
	if !ok {
		h.unauthorized(ev.Conn, domain.ErrNotAuthenticated.Error())
		return nil, false
	}
	return user, true
}

func (h *Hub) unauthorized(conn domain.ConnID, reason string) {
	h.router.SendToConn(conn, EvUnauthorized, unauthorizedPayload{Reason: reason})
}

func (h *Hub) decode(ev Event, into any) bool {
	if err := json.Unmarshal(ev.Payload, into); err != nil {
		log.Debug().Err(err).Str("module", "app.hub").Str("event", ev.Type).Str("conn", string(ev.Conn)).Msg("bad payload")
		h.router.SendToConn(ev.Conn, EvError, errorPayload{Error: ErrBadPayload.Error()})
		return false
	}
	return true
}

func tickKey(id domain.RoomID) string { return "tick:" + string(id) }
func qtKey(id domain.RoomID) string   { return "qt:" + string(id) }
func ringKey(id domain.CallID) string { return "ring:" + string(id) }
