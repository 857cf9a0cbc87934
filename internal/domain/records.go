package domain

import "time"

// Persisted study records. These live behind the storage collaborator and
// never enter the realtime hub; the hub only loads quiz definitions.

type Note struct {
	ID        int64     `json:"id"`
	OwnerID   UserID    `json:"ownerId"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Flashcard struct {
	ID      int64  `json:"id"`
	OwnerID UserID `json:"ownerId"`
	Deck    string `json:"deck"`
	Front   string `json:"front"`
	Back    string `json:"back"`
}

type Homework struct {
	ID        int64     `json:"id"`
	OwnerID   UserID    `json:"ownerId"`
	Subject   string    `json:"subject"`
	Text      string    `json:"text"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"createdAt"`
}

// QuizDef is the stored definition a quiz room plays through.
type QuizDef struct {
	ID        RoomID     `json:"id"`
	OwnerID   UserID     `json:"ownerId"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Question's correct index is persisted but never enters a broadcast
// payload; the hub copies only prompt and choices onto the wire.
type Question struct {
	Prompt    string   `json:"prompt"`
	Choices   []string `json:"choices"`
	Correct   int      `json:"correct"`
	TimeLimit int      `json:"timeLimit"` // seconds; 0 means the configured default
}
