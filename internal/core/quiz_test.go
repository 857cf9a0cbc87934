package core

import (
	"errors"
	"testing"
	"time"

	"github.com/studyhub-app/studyhub/internal/domain"
)

func twoQuestionDef() *domain.QuizDef {
	return &domain.QuizDef{
		ID:    "quiz-1",
		Title: "Capitals",
		Questions: []domain.Question{
			{Prompt: "Capital of France?", Choices: []string{"Paris", "Lyon"}, Correct: 0},
			{Prompt: "Capital of Japan?", Choices: []string{"Osaka", "Tokyo"}, Correct: 1, TimeLimit: 10},
		},
	}
}

func TestQuizAdvanceRequiresDefinition(t *testing.T) {
	q := NewQuiz()
	if _, _, err := q.Advance(time.Now(), 30*time.Second); !errors.Is(err, ErrQuizNotLoaded) {
		t.Fatalf("expected ErrQuizNotLoaded, got %v", err)
	}
}

func TestQuizAdvanceAndDeadlines(t *testing.T) {
	q := NewQuiz()
	q.SetDef(twoQuestionDef())
	now := time.Now()

	question, deadline, err := q.Advance(now, 30*time.Second)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if question.Prompt != "Capital of France?" {
		t.Errorf("unexpected first question: %s", question.Prompt)
	}
	if got := deadline.Sub(now); got != 30*time.Second {
		t.Errorf("expected default 30s limit, got %v", got)
	}
	if q.Phase() != QuizQuestionActive {
		t.Fatalf("expected question_active, got %s", q.Phase())
	}

	// Advancing past an open question is rejected.
	if _, _, err := q.Advance(now, 30*time.Second); !errors.Is(err, ErrQuestionStillActive) {
		t.Fatalf("expected ErrQuestionStillActive, got %v", err)
	}

	q.CloseQuestion(0)
	_, deadline, err = q.Advance(now, 30*time.Second)
	if err != nil {
		t.Fatalf("advance to second question: %v", err)
	}
	// Per-question limit overrides the default.
	if got := deadline.Sub(now); got != 10*time.Second {
		t.Errorf("expected per-question 10s limit, got %v", got)
	}

	q.CloseQuestion(1)
	if _, _, err := q.Advance(now, 30*time.Second); !errors.Is(err, ErrQuizExhausted) {
		t.Fatalf("expected ErrQuizExhausted, got %v", err)
	}
}

func TestQuizFirstAnswerWins(t *testing.T) {
	q := NewQuiz()
	q.SetDef(twoQuestionDef())
	q.Advance(time.Now(), 30*time.Second)

	correct, err := q.Submit("u1", "Ada", 0, 0)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if !correct {
		t.Error("expected first answer to be scored correct")
	}

	// Resubmission never overwrites, even with a different answer.
	if _, err := q.Submit("u1", "Ada", 0, 1); !errors.Is(err, domain.ErrDuplicateAnswer) {
		t.Fatalf("expected ErrDuplicateAnswer, got %v", err)
	}

	board := q.Scoreboard()
	if len(board) != 1 || board[0].Score != 1 {
		t.Fatalf("duplicate submit altered the score: %+v", board)
	}
}

func TestQuizSubmitOutsideActiveWindow(t *testing.T) {
	q := NewQuiz()
	q.SetDef(twoQuestionDef())

	if _, err := q.Submit("u1", "Ada", 0, 0); !errors.Is(err, ErrNotAcceptingAnswers) {
		t.Fatalf("lobby submit: expected ErrNotAcceptingAnswers, got %v", err)
	}

	q.Advance(time.Now(), 30*time.Second)
	if _, err := q.Submit("u1", "Ada", 1, 0); !errors.Is(err, ErrWrongQuestionIndex) {
		t.Fatalf("expected ErrWrongQuestionIndex, got %v", err)
	}

	q.CloseQuestion(0)
	if _, err := q.Submit("u1", "Ada", 0, 0); !errors.Is(err, ErrNotAcceptingAnswers) {
		t.Fatalf("closed submit: expected ErrNotAcceptingAnswers, got %v", err)
	}
}

func TestQuizStaleCloseIsIgnored(t *testing.T) {
	q := NewQuiz()
	q.SetDef(twoQuestionDef())
	q.Advance(time.Now(), 30*time.Second)
	q.CloseQuestion(0)
	q.Advance(time.Now(), 30*time.Second)

	// A late timeout for the already-closed first question.
	if q.CloseQuestion(0) {
		t.Error("stale close for an old index must be ignored")
	}
	if q.Phase() != QuizQuestionActive || q.Index() != 1 {
		t.Errorf("stale close disturbed the machine: phase=%s index=%d", q.Phase(), q.Index())
	}
}

func TestQuizScoreboardOrdering(t *testing.T) {
	q := NewQuiz()
	q.SetDef(twoQuestionDef())
	q.Advance(time.Now(), 30*time.Second)

	q.Submit("u1", "Ada", 0, 0) // correct
	q.Submit("u2", "Ben", 0, 1) // wrong
	q.Submit("u3", "Abe", 0, 1) // wrong

	board := q.End()
	if q.Phase() != QuizFinished {
		t.Fatalf("expected finished, got %s", q.Phase())
	}
	if len(board) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(board))
	}
	if board[0].UserID != "u1" {
		t.Errorf("expected top scorer u1, got %s", board[0].UserID)
	}
	// Ties break on name.
	if board[1].Name != "Abe" || board[2].Name != "Ben" {
		t.Errorf("tie order wrong: %s then %s", board[1].Name, board[2].Name)
	}
}
