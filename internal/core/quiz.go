package core

import (
	"errors"
	"sort"
	"time"

	"github.com/studyhub-app/studyhub/internal/domain"
)

// QuizPhase is the progression state of a quiz room:
// Lobby → QuestionActive(i) → QuestionClosed(i) → ... → Finished.
type QuizPhase string

const (
	QuizLobby          QuizPhase = "lobby"
	QuizQuestionActive QuizPhase = "question_active"
	QuizQuestionClosed QuizPhase = "question_closed"
	QuizFinished       QuizPhase = "finished"
)

var (
	// ErrQuestionStillActive rejects advancing past a question that has
	// not closed yet, so scoring cannot be skipped.
	ErrQuestionStillActive = errors.New("current question is still active")

	// ErrNotAcceptingAnswers rejects submissions outside QuestionActive.
	ErrNotAcceptingAnswers = errors.New("question is not accepting answers")

	ErrWrongQuestionIndex = errors.New("answer references a different question")
	ErrQuizOver           = errors.New("quiz is finished")
	ErrQuizExhausted      = errors.New("no questions remain")
	ErrQuizNotLoaded      = errors.New("quiz definition not loaded")
)

// Quiz is the per-room quiz progression machine. The hub owns all calls;
// participants submit at most one answer per question (first answer wins,
// which guards against client resends on reconnect), and points are
// awarded at submission time so scoreboards at question close are final.
type Quiz struct {
	def      *domain.QuizDef
	phase    QuizPhase
	index    int
	deadline time.Time

	answers map[domain.UserID]int
	scores  map[domain.UserID]int
	names   map[domain.UserID]string
}

type ScoreEntry struct {
	UserID domain.UserID `json:"userId"`
	Name   string        `json:"displayName"`
	Score  int           `json:"score"`
}

// QuizState is the broadcast form.
type QuizState struct {
	Phase      QuizPhase    `json:"phase"`
	Index      int          `json:"questionIndex"`
	Deadline   time.Time    `json:"deadline,omitzero"`
	Scoreboard []ScoreEntry `json:"scoreboard"`
}

func NewQuiz() *Quiz {
	return &Quiz{
		phase:   QuizLobby,
		index:   -1,
		answers: make(map[domain.UserID]int),
		scores:  make(map[domain.UserID]int),
		names:   make(map[domain.UserID]string),
	}
}

func (q *Quiz) SetDef(def *domain.QuizDef) { q.def = def }
func (q *Quiz) HasDef() bool               { return q.def != nil }
func (q *Quiz) Phase() QuizPhase           { return q.phase }
func (q *Quiz) Index() int                 { return q.index }

// Advance moves Lobby/QuestionClosed to the next QuestionActive. The
// returned deadline is when the hub must close the question.
func (q *Quiz) Advance(now time.Time, defaultLimit time.Duration) (domain.Question, time.Time, error) {
	if q.def == nil {
		return domain.Question{}, time.Time{}, ErrQuizNotLoaded
	}
	switch q.phase {
	case QuizQuestionActive:
		return domain.Question{}, time.Time{}, ErrQuestionStillActive
	case QuizFinished:
		return domain.Question{}, time.Time{}, ErrQuizOver
	}
	if q.index+1 >= len(q.def.Questions) {
		return domain.Question{}, time.Time{}, ErrQuizExhausted
	}
	q.index++
	q.phase = QuizQuestionActive
	clear(q.answers)
	limit := defaultLimit
	question := q.def.Questions[q.index]
	if question.TimeLimit > 0 {
		limit = time.Duration(question.TimeLimit) * time.Second
	}
	q.deadline = now.Add(limit)
	return question, q.deadline, nil
}

// Submit records a participant's answer for the current question. The
// second submission from the same participant for the same index is
// rejected, never overwritten. Correct answers score immediately.
func (q *Quiz) Submit(uid domain.UserID, name string, index, answer int) (bool, error) {
	if q.phase != QuizQuestionActive {
		return false, ErrNotAcceptingAnswers
	}
	if index != q.index {
		return false, ErrWrongQuestionIndex
	}
	if _, dup := q.answers[uid]; dup {
		return false, domain.ErrDuplicateAnswer
	}
	q.answers[uid] = answer
	q.names[uid] = name
	correct := answer == q.def.Questions[q.index].Correct
	if correct {
		q.scores[uid]++
	} else if _, ok := q.scores[uid]; !ok {
		q.scores[uid] = 0
	}
	return correct, nil
}

// CloseQuestion moves QuestionActive(index) to QuestionClosed(index).
// A timeout firing for an older question is stale and does nothing.
func (q *Quiz) CloseQuestion(index int) bool {
	if q.phase != QuizQuestionActive || q.index != index {
		return false
	}
	q.phase = QuizQuestionClosed
	q.deadline = time.Time{}
	return true
}

// End finishes the quiz from any state and returns the final scoreboard.
func (q *Quiz) End() []ScoreEntry {
	q.phase = QuizFinished
	q.deadline = time.Time{}
	return q.Scoreboard()
}

// Scoreboard is sorted by score descending, name ascending for ties.
func (q *Quiz) Scoreboard() []ScoreEntry {
	out := make([]ScoreEntry, 0, len(q.scores))
	for uid, s := range q.scores {
		out = append(out, ScoreEntry{UserID: uid, Name: q.names[uid], Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (q *Quiz) State() QuizState {
	return QuizState{
		Phase:      q.phase,
		Index:      q.index,
		Deadline:   q.deadline,
		Scoreboard: q.Scoreboard(),
	}
}
