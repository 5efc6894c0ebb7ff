package server

import (
	"time"

	"github.com/codepair/go-collab/internal/types"
)

// DefaultLanguage is the language tag a fresh room starts with.
const DefaultLanguage = "javascript"

// RoomField names a mutable field of the shared room state. The set is
// closed: Apply rejects anything else.
type RoomField string

const (
	FieldCode            RoomField = "code"
	FieldLanguage        RoomField = "language"
	FieldInput           RoomField = "input"
	FieldOutput          RoomField = "output"
	FieldDocumentContent RoomField = "documentContent"
)

// Room is the authoritative shared state of one room. Fields are mutated
// only through the StateStore, from the hub's event loop.
type Room struct {
	Code            string
	Language        string
	Input           string
	Output          string
	DocumentContent string
	LastActive      time.Time
}

// Snapshot captures the room's current contents for a load-state unicast.
func (r *Room) Snapshot() types.RoomSnapshot {
	return types.RoomSnapshot{
		DocumentContent: r.DocumentContent,
		Code:            r.Code,
		Language:        r.Language,
		Input:           r.Input,
		Output:          r.Output,
	}
}

// StateStore holds per-room shared state. Rooms are created lazily on first
// join and destroyed synchronously when the last member leaves; the store
// is only ever touched from the hub's event loop.
type StateStore struct {
	rooms map[string]*Room
}

func NewStateStore() *StateStore {
	return &StateStore{rooms: make(map[string]*Room)}
}

// Ensure returns the room's state, creating empty state with a fresh
// lastActive timestamp if the room is new.
func (s *StateStore) Ensure(roomID string) *Room {
	room, ok := s.rooms[roomID]
	if !ok {
		room = &Room{
			Language:   DefaultLanguage,
			LastActive: Now(),
		}
		s.rooms[roomID] = room
	}
	return room
}

func (s *StateStore) Get(roomID string) (*Room, bool) {
	room, ok := s.rooms[roomID]
	return room, ok
}

// Apply sets a single field of the room's state and refreshes lastActive.
// The write policy is last-write-wins: whatever value arrives at the hub
// last replaces the field wholesale. Unknown fields are rejected so a
// mistagged event can never scribble on room state.
func (s *StateStore) Apply(roomID string, field RoomField, value string) bool {
	room := s.Ensure(roomID)

	switch field {
	case FieldCode:
		room.Code = value
	case FieldLanguage:
		room.Language = value
	case FieldInput:
		room.Input = value
	case FieldOutput:
		room.Output = value
	case FieldDocumentContent:
		room.DocumentContent = value
	default:
		return false
	}

	room.LastActive = Now()
	return true
}

// Touch refreshes lastActive without changing any field. Used for events
// that mutate room-owned data outside the field set, such as chat.
func (s *StateStore) Touch(roomID string) {
	if room, ok := s.rooms[roomID]; ok {
		room.LastActive = Now()
	}
}

func (s *StateStore) Destroy(roomID string) {
	delete(s.rooms, roomID)
}
