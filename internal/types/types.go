package types

import (
	"encoding/json"
	"time"
)

// Identity is the user object supplied by the client at join time. It is
// not authenticated by the room core; it lives in the connection registry
// for the duration of a room membership.
type Identity struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Online bool   `json:"online"`
}

// Sender is the subset of Identity embedded in chat messages.
type Sender struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	RoomID    string    `json:"roomId"`
}

// RoomSnapshot is the full shared state of a room as sent to a joining
// connection. Cursor positions are deliberately absent: they are transient
// and meaningless after a reconnect.
type RoomSnapshot struct {
	DocumentContent string `json:"documentContent"`
	Code            string `json:"code"`
	Language        string `json:"language"`
	Input           string `json:"input"`
	Output          string `json:"output"`
}

// CursorPosition is relayed opaquely between editors and never stored.
type CursorPosition = json.RawMessage
