package app

import (
	"encoding/json"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/studyhub-app/studyhub/internal/core"
	"github.com/studyhub-app/studyhub/internal/domain"
)

// Client→server event names. Internal events injected by timer tasks use
// the ev* constants below and never arrive over the wire.
const (
	EvAuthenticate    = "authenticate"
	EvJoinRoom        = "join_room"
	EvLeaveRoom       = "leave_room"
	EvSendMessage     = "send_message"
	EvCallUser        = "call_user"
	EvAnswerCall      = "answer_call"
	EvIceCandidate    = "ice_candidate"
	EvEndCall         = "end_call"
	EvStartTimer      = "start_timer"
	EvPauseTimer      = "pause_timer"
	EvResetTimer      = "reset_timer"
	EvAdvanceQuestion = "advance_question"
	EvEndQuiz         = "end_quiz"
	EvSubmitAnswer    = "submit_answer"
)

// Server→client event names.
const (
	EvOnlineUsers     = "online_users"
	EvUserOnline      = "user_online"
	EvUserOffline     = "user_offline"
	EvRoomState       = "room_state"
	EvUserJoinedRoom  = "user_joined_room"
	EvUserLeftRoom    = "user_left_room"
	EvHostChanged     = "host_changed"
	EvNewMessage      = "new_message"
	EvIncomingCall    = "incoming_call"
	EvCallAnswered    = "call_answered"
	EvCallEnded       = "call_ended"
	EvCallUnavailable = "call_unavailable"
	EvTimerState      = "timer_state"
	EvQuizState       = "quiz_state"
	EvQuizQuestion    = "quiz_question"
	EvAnswerAck       = "answer_ack"
	EvUnauthorized    = "unauthorized"
	EvError           = "error"
)

// Internal event types, produced by timer tasks and the transport layer
// and re-injected through the hub queue so every mutation runs inside the
// dispatch loop.
const (
	evDisconnect      = "__disconnect"
	evTimerTick       = "__timer_tick"
	evQuestionTimeout = "__question_timeout"
	evRingTimeout     = "__ring_timeout"
	evQuizLoaded      = "__quiz_loaded"
	evSweep           = "__sweep"
)

// Envelope is the wire form in both directions: an event name plus an
// event-specific payload object.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event is one unit of hub work. Wire events carry Conn and Payload;
// injected events use the typed fields instead.
type Event struct {
	Conn    domain.ConnID
	Type    string
	Payload json.RawMessage
	At      time.Time

	// Internal-event fields.
	Room    domain.RoomID
	Index   int
	Call    domain.CallID
	QuizDef *domain.QuizDef
	Err     error
}

// Inbound payloads.

type authPayload struct {
	Token       string `json:"token"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type joinRoomPayload struct {
	RoomID   string `json:"roomId"`
	RoomKind string `json:"roomKind"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type sendMessagePayload struct {
	RoomID  string `json:"roomId"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

type callUserPayload struct {
	TargetUserID string                    `json:"targetUserId"`
	Offer        webrtc.SessionDescription `json:"offer"`
	CallKind     string                    `json:"callKind"`
}

type answerCallPayload struct {
	CallID string                    `json:"callId"`
	Answer webrtc.SessionDescription `json:"answer"`
}

type icePayload struct {
	TargetUserID string                  `json:"targetUserId"`
	Candidate    webrtc.ICECandidateInit `json:"candidate"`
}

type endCallPayload struct {
	TargetUserID string `json:"targetUserId"`
}

type submitAnswerPayload struct {
	RoomID        string `json:"roomId"`
	QuestionIndex int    `json:"questionIndex"`
	Answer        int    `json:"answer"`
}

// Outbound payloads.

type onlineUsersPayload struct {
	Users []domain.PresenceEntry `json:"users"`
}

type presencePayload struct {
	UserID      domain.UserID `json:"userId"`
	DisplayName string        `json:"displayName,omitempty"`
}

type roomStatePayload struct {
	RoomID  domain.RoomID    `json:"roomId"`
	Kind    domain.RoomKind  `json:"roomKind"`
	Members []core.MemberDTO `json:"members"`
	HostID  domain.UserID    `json:"hostUserId,omitempty"`
	Timer   *core.TimerState `json:"timer,omitempty"`
	Quiz    *core.QuizState  `json:"quiz,omitempty"`
}

type roomUserPayload struct {
	RoomID      domain.RoomID `json:"roomId"`
	UserID      domain.UserID `json:"userId"`
	DisplayName string        `json:"displayName"`
}

type incomingCallPayload struct {
	CallID     domain.CallID             `json:"callId"`
	FromUserID domain.UserID             `json:"fromUserId"`
	FromName   string                    `json:"fromName"`
	CallKind   string                    `json:"callKind"`
	Offer      webrtc.SessionDescription `json:"offer"`
}

type callAnsweredPayload struct {
	CallID     domain.CallID             `json:"callId"`
	FromUserID domain.UserID             `json:"fromUserId"`
	Answer     webrtc.SessionDescription `json:"answer"`
}

type iceRelayPayload struct {
	FromUserID domain.UserID           `json:"fromUserId"`
	Candidate  webrtc.ICECandidateInit `json:"candidate"`
}

type callEndedPayload struct {
	CallID     domain.CallID `json:"callId,omitempty"`
	FromUserID domain.UserID `json:"fromUserId,omitempty"`
	Reason     string        `json:"reason"`
}

type callUnavailablePayload struct {
	TargetUserID domain.UserID `json:"targetUserId"`
}

type timerStatePayload struct {
	RoomID domain.RoomID `json:"roomId"`
	core.TimerState
}

type quizStatePayload struct {
	RoomID domain.RoomID `json:"roomId"`
	core.QuizState
}

type quizQuestionPayload struct {
	RoomID   domain.RoomID `json:"roomId"`
	Index    int           `json:"questionIndex"`
	Prompt   string        `json:"prompt"`
	Choices  []string      `json:"choices"`
	Deadline time.Time     `json:"deadline"`
}

type answerAckPayload struct {
	RoomID   domain.RoomID `json:"roomId"`
	Index    int           `json:"questionIndex"`
	Accepted bool          `json:"accepted"`
	Correct  bool          `json:"correct"`
	Reason   string        `json:"reason,omitempty"`
}

type unauthorizedPayload struct {
	Reason string `json:"reason"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// Encode builds the wire frame for a server→client event.
func Encode(typ string, payload any) (core.Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(Envelope{Type: typ, Payload: raw})
	if err != nil {
		return nil, err
	}
	return core.Frame(b), nil
}
