package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/studyhub-app/studyhub/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	pass_hash  TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS notes (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id   TEXT NOT NULL,
	title      TEXT NOT NULL,
	body       TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notes_owner ON notes(owner_id);
CREATE TABLE IF NOT EXISTS flashcards (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id TEXT NOT NULL,
	deck     TEXT NOT NULL DEFAULT '',
	front    TEXT NOT NULL,
	back     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_flashcards_owner ON flashcards(owner_id, deck);
CREATE TABLE IF NOT EXISTS homework (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id   TEXT NOT NULL,
	subject    TEXT NOT NULL DEFAULT '',
	text       TEXT NOT NULL,
	summary    TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_homework_owner ON homework(owner_id);
CREATE TABLE IF NOT EXISTS quiz_defs (
	id        TEXT PRIMARY KEY,
	owner_id  TEXT NOT NULL,
	title     TEXT NOT NULL,
	questions TEXT NOT NULL
);
`

// SQLite implements Store on an embedded database. A single process owns
// the file, matching the one-server-owns-all-rooms deployment model.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	log.Info().Str("module", "storage").Str("path", path).Msg("sqlite opened")
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) CreateUser(ctx context.Context, name, password string) (*domain.User, error) {
	user, err := domain.NewUser(name)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, pass_hash, created_at) VALUES (?, ?, ?, ?)`,
		string(user.ID), name, string(hash), time.Now().UTC())
	if err != nil {
		// UNIQUE violation on name.
		return nil, ErrUserExists
	}
	return user, nil
}

func (s *SQLite) AuthUser(ctx context.Context, name, password string) (*domain.User, error) {
	var id, hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, pass_hash FROM users WHERE name = ?`, name).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBadCredential
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrBadCredential
	}
	return &domain.User{ID: domain.UserID(id), Name: name}, nil
}

func (s *SQLite) CreateNote(ctx context.Context, n *domain.Note) error {
	n.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (owner_id, title, body, updated_at) VALUES (?, ?, ?, ?)`,
		string(n.OwnerID), n.Title, n.Body, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	n.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLite) ListNotes(ctx context.Context, owner domain.UserID) ([]domain.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, body, updated_at FROM notes WHERE owner_id = ? ORDER BY updated_at DESC`,
		string(owner))
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()
	var out []domain.Note
	for rows.Next() {
		n := domain.Note{OwnerID: owner}
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *SQLite) UpdateNote(ctx context.Context, n *domain.Note) error {
	n.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE notes SET title = ?, body = ?, updated_at = ? WHERE id = ? AND owner_id = ?`,
		n.Title, n.Body, n.UpdatedAt, n.ID, string(n.OwnerID))
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return affectedOrNotFound(res)
}

func (s *SQLite) DeleteNote(ctx context.Context, owner domain.UserID, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM notes WHERE id = ? AND owner_id = ?`, id, string(owner))
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return affectedOrNotFound(res)
}

func (s *SQLite) CreateFlashcard(ctx context.Context, f *domain.Flashcard) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO flashcards (owner_id, deck, front, back) VALUES (?, ?, ?, ?)`,
		string(f.OwnerID), f.Deck, f.Front, f.Back)
	if err != nil {
		return fmt.Errorf("insert flashcard: %w", err)
	}
	f.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLite) ListFlashcards(ctx context.Context, owner domain.UserID, deck string) ([]domain.Flashcard, error) {
	q := `SELECT id, deck, front, back FROM flashcards WHERE owner_id = ?`
	args := []any{string(owner)}
	if deck != "" {
		q += ` AND deck = ?`
		args = append(args, deck)
	}
	rows, err := s.db.QueryContext(ctx, q+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list flashcards: %w", err)
	}
	defer rows.Close()
	var out []domain.Flashcard
	for rows.Next() {
		f := domain.Flashcard{OwnerID: owner}
		if err := rows.Scan(&f.ID, &f.Deck, &f.Front, &f.Back); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLite) DeleteFlashcard(ctx context.Context, owner domain.UserID, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM flashcards WHERE id = ? AND owner_id = ?`, id, string(owner))
	if err != nil {
		return fmt.Errorf("delete flashcard: %w", err)
	}
	return affectedOrNotFound(res)
}

func (s *SQLite) CreateHomework(ctx context.Context, hw *domain.Homework) error {
	hw.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO homework (owner_id, subject, text, summary, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(hw.OwnerID), hw.Subject, hw.Text, hw.Summary, hw.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert homework: %w", err)
	}
	hw.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLite) GetHomework(ctx context.Context, owner domain.UserID, id int64) (*domain.Homework, error) {
	hw := domain.Homework{ID: id, OwnerID: owner}
	err := s.db.QueryRowContext(ctx,
		`SELECT subject, text, summary, created_at FROM homework WHERE id = ? AND owner_id = ?`,
		id, string(owner)).Scan(&hw.Subject, &hw.Text, &hw.Summary, &hw.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load homework: %w", err)
	}
	return &hw, nil
}

func (s *SQLite) ListHomework(ctx context.Context, owner domain.UserID) ([]domain.Homework, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subject, text, summary, created_at FROM homework WHERE owner_id = ? ORDER BY created_at DESC`,
		string(owner))
	if err != nil {
		return nil, fmt.Errorf("list homework: %w", err)
	}
	defer rows.Close()
	var out []domain.Homework
	for rows.Next() {
		hw := domain.Homework{OwnerID: owner}
		if err := rows.Scan(&hw.ID, &hw.Subject, &hw.Text, &hw.Summary, &hw.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, hw)
	}
	return out, rows.Err()
}

func (s *SQLite) SetHomeworkSummary(ctx context.Context, owner domain.UserID, id int64, summary string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE homework SET summary = ? WHERE id = ? AND owner_id = ?`,
		summary, id, string(owner))
	if err != nil {
		return fmt.Errorf("set summary: %w", err)
	}
	return affectedOrNotFound(res)
}

func (s *SQLite) SaveQuizDef(ctx context.Context, def *domain.QuizDef) error {
	if def.ID == "" {
		def.ID = domain.RoomID(uuid.NewString())
	}
	questions, err := json.Marshal(def.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quiz_defs (id, owner_id, title, questions) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, questions = excluded.questions`,
		string(def.ID), string(def.OwnerID), def.Title, string(questions))
	if err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}

func (s *SQLite) QuizDef(ctx context.Context, id domain.RoomID) (*domain.QuizDef, error) {
	def := domain.QuizDef{ID: id}
	var questions string
	err := s.db.QueryRowContext(ctx,
		`SELECT owner_id, title, questions FROM quiz_defs WHERE id = ?`,
		string(id)).Scan(&def.OwnerID, &def.Title, &questions)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load quiz: %w", err)
	}
	if err := json.Unmarshal([]byte(questions), &def.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return &def, nil
}

func affectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
