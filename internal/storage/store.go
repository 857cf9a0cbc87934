// Package storage is the CRUD collaborator behind the realtime hub. It
// is consulted from REST handlers and from asynchronous quiz-definition
// loads, never from inside the hub's dispatch loop.
package storage

import (
	"context"
	"errors"

	"github.com/studyhub-app/studyhub/internal/domain"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrUserExists    = errors.New("username already taken")
	ErrBadCredential = errors.New("unknown user or wrong password")
)

type Store interface {
	// Accounts.
	CreateUser(ctx context.Context, name, password string) (*domain.User, error)
	AuthUser(ctx context.Context, name, password string) (*domain.User, error)

	// Notes.
	CreateNote(ctx context.Context, n *domain.Note) error
	ListNotes(ctx context.Context, owner domain.UserID) ([]domain.Note, error)
	UpdateNote(ctx context.Context, n *domain.Note) error
	DeleteNote(ctx context.Context, owner domain.UserID, id int64) error

	// Flashcards.
	CreateFlashcard(ctx context.Context, f *domain.Flashcard) error
	ListFlashcards(ctx context.Context, owner domain.UserID, deck string) ([]domain.Flashcard, error)
	DeleteFlashcard(ctx context.Context, owner domain.UserID, id int64) error

	// Homework.
	CreateHomework(ctx context.Context, hw *domain.Homework) error
	GetHomework(ctx context.Context, owner domain.UserID, id int64) (*domain.Homework, error)
	ListHomework(ctx context.Context, owner domain.UserID) ([]domain.Homework, error)
	SetHomeworkSummary(ctx context.Context, owner domain.UserID, id int64, summary string) error

	// Quiz definitions; QuizDef also serves the hub's app.QuizSource.
	SaveQuizDef(ctx context.Context, def *domain.QuizDef) error
	QuizDef(ctx context.Context, id domain.RoomID) (*domain.QuizDef, error)

	Close() error
}
