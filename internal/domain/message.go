package domain

import "time"

// ChatMessage is the server-stamped form of a room message as fanned out
// to members. The server assigns ID and Timestamp so every recipient sees
// identical metadata.
type ChatMessage struct {
	ID         string    `json:"id"`
	RoomID     RoomID    `json:"roomId"`
	SenderID   UserID    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Content    string    `json:"content"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
}
