package server

import "github.com/codepair/go-collab/internal/types"

// MessageLog keeps the per-room chat history replayed to late joiners.
// Ordering is hub-arrival order. History is unbounded: it lives exactly as
// long as the room does and is dropped wholesale on teardown.
type MessageLog struct {
	messages map[string][]types.ChatMessage
}

func NewMessageLog() *MessageLog {
	return &MessageLog{messages: make(map[string][]types.ChatMessage)}
}

func (l *MessageLog) Append(roomID string, msg types.ChatMessage) {
	l.messages[roomID] = append(l.messages[roomID], msg)
}

// History returns the room's messages in append order. The slice is always
// non-nil so it serializes as a JSON array.
func (l *MessageLog) History(roomID string) []types.ChatMessage {
	history := l.messages[roomID]
	out := make([]types.ChatMessage, len(history))
	copy(out, history)
	return out
}

func (l *MessageLog) Clear(roomID string) {
	delete(l.messages, roomID)
}
