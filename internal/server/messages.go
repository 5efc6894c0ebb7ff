package server

import (
	"encoding/json"
	"time"

	"github.com/codepair/go-collab/internal/types"
)

// EventType tags an inbound client envelope. The set is closed; the hub
// dispatches through a single exhaustive switch and anything outside it is
// answered with an error unicast.
type EventType string

const (
	EventJoinRoom       EventType = "join-room"
	EventLeaveRoom      EventType = "leave-room"
	EventSendMessage    EventType = "send-message"
	EventCodeChange     EventType = "code-change"
	EventCursorMove     EventType = "cursor-move"
	EventLanguageChange EventType = "language-change"
	EventInputChange    EventType = "input-change"
	EventOutputChange   EventType = "output-change"
	EventDocumentChange EventType = "document-change"
	EventGetRoom        EventType = "get-room"
)

// MessageType tags an outbound server envelope.
type MessageType string

const (
	MsgLoadState      MessageType = "load-state"
	MsgChatHistory    MessageType = "chat-history"
	MsgRoomUsers      MessageType = "room-users"
	MsgUserJoined     MessageType = "user-joined"
	MsgUserLeft       MessageType = "user-left"
	MsgReceiveMessage MessageType = "receive-message"
	MsgCodeChange     MessageType = "code-change"
	MsgCursorMove     MessageType = "cursor-move"
	MsgLanguageChange MessageType = "language-change"
	MsgInputChange    MessageType = "input-change"
	MsgOutputChange   MessageType = "output-change"
	MsgDocumentChange MessageType = "document-change"
	MsgRoomMetadata   MessageType = "room-metadata"
	MsgError          MessageType = "error"
)

// ClientMessage is the inbound wire envelope. The payload is decoded per
// tag by the hub so a malformed body is an error on one event, never a
// dead connection.
type ClientMessage struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServerMessage is the outbound wire envelope.
type ServerMessage struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload,omitempty"`
}

type JoinRoom struct {
	RoomID string         `json:"roomId"`
	User   types.Identity `json:"user"`
}

type LeaveRoom struct {
	RoomID string         `json:"roomId"`
	User   types.Identity `json:"user"`
}

type CodeChange struct {
	RoomID string `json:"roomId,omitempty"`
	Code   string `json:"code"`
	UserID string `json:"userId"`
}

type CursorMove struct {
	RoomID   string               `json:"roomId,omitempty"`
	UserID   string               `json:"userId"`
	Position types.CursorPosition `json:"position"`
}

type LanguageChange struct {
	RoomID   string `json:"roomId,omitempty"`
	Language string `json:"language"`
	UserID   string `json:"userId"`
}

type InputChange struct {
	RoomID string `json:"roomId,omitempty"`
	Input  string `json:"input"`
	UserID string `json:"userId"`
}

type OutputChange struct {
	RoomID string `json:"roomId,omitempty"`
	Output string `json:"output"`
	UserID string `json:"userId"`
}

type DocumentChange struct {
	RoomID  string `json:"roomId,omitempty"`
	Content string `json:"content"`
	UserID  string `json:"userId"`
}

type GetRoom struct {
	RoomID string `json:"roomId"`
}

// UnmarshalJSON accepts both {"roomId": "r1"} and a bare "r1"; older
// clients emit the room id as a plain string.
func (g *GetRoom) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		g.RoomID = bare
		return nil
	}

	type getRoom GetRoom
	var obj getRoom
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*g = GetRoom(obj)
	return nil
}

// RoomMetadata is broadcast after every state mutation and unicast on
// get-room, so a room browser can show liveness without joining. The
// snapshot fields are populated only for get-room responses.
type RoomMetadata struct {
	RoomID          string    `json:"roomId,omitempty"`
	UserCount       int       `json:"userCount"`
	LastActive      time.Time `json:"lastActive"`
	Code            string    `json:"code,omitempty"`
	Language        string    `json:"language,omitempty"`
	Input           string    `json:"input,omitempty"`
	Output          string    `json:"output,omitempty"`
	DocumentContent string    `json:"documentContent,omitempty"`
}

type MetadataError struct {
	Error string `json:"error"`
}

func LoadStateMsg(snapshot types.RoomSnapshot) *ServerMessage {
	return &ServerMessage{Type: MsgLoadState, Payload: snapshot}
}

func ChatHistoryMsg(history []types.ChatMessage) *ServerMessage {
	return &ServerMessage{Type: MsgChatHistory, Payload: history}
}

func RoomUsersMsg(users []types.Identity) *ServerMessage {
	return &ServerMessage{Type: MsgRoomUsers, Payload: users}
}

func UserJoinedMsg(user types.Identity) *ServerMessage {
	return &ServerMessage{Type: MsgUserJoined, Payload: user}
}

func UserLeftMsg(user types.Identity) *ServerMessage {
	return &ServerMessage{Type: MsgUserLeft, Payload: user}
}

func ReceiveMessageMsg(msg types.ChatMessage) *ServerMessage {
	return &ServerMessage{Type: MsgReceiveMessage, Payload: msg}
}

func RoomMetadataMsg(meta RoomMetadata) *ServerMessage {
	return &ServerMessage{Type: MsgRoomMetadata, Payload: meta}
}

func ErrRoomNotFound() *ServerMessage {
	return &ServerMessage{Type: MsgRoomMetadata, Payload: MetadataError{Error: "Room not found."}}
}

func ErrInvalidJoin() *ServerMessage {
	return &ServerMessage{Type: MsgError, Payload: "Invalid join-room data"}
}

func ErrUserAlreadyConnected() *ServerMessage {
	return &ServerMessage{Type: MsgError, Payload: "User already connected in this room."}
}

func ErrInvalidMessage() *ServerMessage {
	return &ServerMessage{Type: MsgError, Payload: "invalid message format"}
}

func ErrServerBusy() *ServerMessage {
	return &ServerMessage{Type: MsgError, Payload: "server busy, event dropped"}
}

func ErrUnknownEvent(tag EventType) *ServerMessage {
	return &ServerMessage{Type: MsgError, Payload: "unknown event type: " + string(tag)}
}

// Now returns the current time truncated to millisecond precision, which is
// all the wire format carries.
func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
