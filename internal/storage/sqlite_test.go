package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/studyhub-app/studyhub/internal/domain"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUserRegistrationAndLogin(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "ada", "hunter2")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.ID == "" {
		t.Fatal("created user has no id")
	}

	if _, err := s.CreateUser(ctx, "ada", "other"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	got, err := s.AuthUser(ctx, "ada", "hunter2")
	if err != nil {
		t.Fatalf("auth: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("auth resolved wrong user: %s vs %s", got.ID, user.ID)
	}

	if _, err := s.AuthUser(ctx, "ada", "wrong"); !errors.Is(err, ErrBadCredential) {
		t.Errorf("wrong password: expected ErrBadCredential, got %v", err)
	}
	if _, err := s.AuthUser(ctx, "nobody", "x"); !errors.Is(err, ErrBadCredential) {
		t.Errorf("unknown user: expected ErrBadCredential, got %v", err)
	}
}

func TestNotesCRUDisOwnerScoped(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n := &domain.Note{OwnerID: "u1", Title: "algebra", Body: "x+1"}
	if err := s.CreateNote(ctx, n); err != nil {
		t.Fatalf("create: %v", err)
	}
	if n.ID == 0 {
		t.Fatal("insert did not backfill the id")
	}

	list, err := s.ListNotes(ctx, "u1")
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v, %d entries", err, len(list))
	}
	if other, _ := s.ListNotes(ctx, "u2"); len(other) != 0 {
		t.Error("notes leaked across owners")
	}

	n.Body = "x+2"
	if err := s.UpdateNote(ctx, n); err != nil {
		t.Fatalf("update: %v", err)
	}
	// Another owner cannot touch the row.
	stolen := &domain.Note{ID: n.ID, OwnerID: "u2", Title: "x", Body: "y"}
	if err := s.UpdateNote(ctx, stolen); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-owner update: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteNote(ctx, "u2", n.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-owner delete: expected ErrNotFound, got %v", err)
	}

	if err := s.DeleteNote(ctx, "u1", n.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if list, _ := s.ListNotes(ctx, "u1"); len(list) != 0 {
		t.Error("note survived its deletion")
	}
}

func TestFlashcardsFilterByDeck(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, f := range []*domain.Flashcard{
		{OwnerID: "u1", Deck: "bio", Front: "ATP", Back: "energy carrier"},
		{OwnerID: "u1", Deck: "bio", Front: "DNA", Back: "genetic code"},
		{OwnerID: "u1", Deck: "math", Front: "e", Back: "2.718"},
	} {
		if err := s.CreateFlashcard(ctx, f); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	all, err := s.ListFlashcards(ctx, "u1", "")
	if err != nil || len(all) != 3 {
		t.Fatalf("list all: %v, %d entries", err, len(all))
	}
	bio, err := s.ListFlashcards(ctx, "u1", "bio")
	if err != nil || len(bio) != 2 {
		t.Fatalf("list deck: %v, %d entries", err, len(bio))
	}
}

func TestHomeworkSummaryLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	hw := &domain.Homework{OwnerID: "u1", Subject: "history", Text: "The revolution began. It ended."}
	if err := s.CreateHomework(ctx, hw); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.SetHomeworkSummary(ctx, "u1", hw.ID, "short version"); err != nil {
		t.Fatalf("set summary: %v", err)
	}

	got, err := s.GetHomework(ctx, "u1", hw.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Summary != "short version" {
		t.Errorf("summary not persisted: %q", got.Summary)
	}
	if _, err := s.GetHomework(ctx, "u2", hw.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-owner get: expected ErrNotFound, got %v", err)
	}
}

func TestQuizDefRoundTripAndUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	def := &domain.QuizDef{
		OwnerID: "u1",
		Title:   "Capitals",
		Questions: []domain.Question{
			{Prompt: "Capital of France?", Choices: []string{"Paris", "Lyon"}, Correct: 0, TimeLimit: 20},
		},
	}
	if err := s.SaveQuizDef(ctx, def); err != nil {
		t.Fatalf("save: %v", err)
	}
	if def.ID == "" {
		t.Fatal("save did not assign an id")
	}

	got, err := s.QuizDef(ctx, def.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Title != "Capitals" || len(got.Questions) != 1 {
		t.Fatalf("definition mangled: %+v", got)
	}
	if got.Questions[0].Correct != 0 || got.Questions[0].TimeLimit != 20 {
		t.Errorf("question fields lost in round trip: %+v", got.Questions[0])
	}

	def.Title = "Capitals v2"
	def.Questions = append(def.Questions, domain.Question{Prompt: "Capital of Japan?", Choices: []string{"Osaka", "Tokyo"}, Correct: 1})
	if err := s.SaveQuizDef(ctx, def); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err = s.QuizDef(ctx, def.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Title != "Capitals v2" || len(got.Questions) != 2 {
		t.Errorf("upsert did not replace the definition: %+v", got)
	}

	if _, err := s.QuizDef(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
