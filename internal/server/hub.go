package server

import (
	"context"
	"encoding/json"
	"log"

	"github.com/codepair/go-collab/internal/stats"
	"github.com/codepair/go-collab/internal/types"
	"github.com/teris-io/shortid"
)

const (
	metricActiveConnections = "ActiveConnections"
	metricActiveRooms       = "ActiveRooms"
	metricChatMessages      = "TotalChatMessages"
	metricEvents            = "TotalEvents"
)

type clientEvent struct {
	client *Client
	msg    ClientMessage
}

// Hub owns all mutable room state: the connection registry, the state
// store, the message log and the per-room set of live connections used for
// fan-out. Every mutation happens inside the single Run goroutine,
// run-to-completion per event, so none of the owned structures carry locks.
type Hub struct {
	log      *log.Logger
	stats    stats.StatsProvider
	registry *Registry
	state    *StateStore
	messages *MessageLog

	clients map[*Client]struct{}
	conns   map[string]map[*Client]struct{}

	events         chan *clientEvent
	RegisterChan   chan *Client
	DeregisterChan chan *Client
	stop           chan struct{}
	done           chan struct{}

	generateID func() (string, error)
}

func NewHub(logger *log.Logger, sp stats.StatsProvider) *Hub {
	h := &Hub{
		log:            logger,
		stats:          sp,
		registry:       NewRegistry(),
		state:          NewStateStore(),
		messages:       NewMessageLog(),
		clients:        make(map[*Client]struct{}),
		conns:          make(map[string]map[*Client]struct{}),
		events:         make(chan *clientEvent, 256),
		RegisterChan:   make(chan *Client),
		DeregisterChan: make(chan *Client),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
		generateID:     shortid.Generate,
	}

	sp.RegisterMetric(metricActiveConnections)
	sp.RegisterMetric(metricActiveRooms)
	sp.RegisterMetric(metricChatMessages)
	sp.RegisterMetric(metricEvents)

	return h
}

func (h *Hub) Run() {
	for {
		select {
		case ev := <-h.events:
			h.dispatch(ev)
		case c := <-h.RegisterChan:
			h.log.Printf("client %s connected", c.sessionID)
			h.clients[c] = struct{}{}
			h.stats.Incr(metricActiveConnections)
		case c := <-h.DeregisterChan:
			h.log.Printf("client %s disconnected", c.sessionID)
			h.handleDisconnect(c)
			delete(h.clients, c)
			h.stats.Decr(metricActiveConnections)
		case <-h.stop:
			h.log.Println("stopping hub")
			for c := range h.clients {
				c.stopClient()
			}
			close(h.done)
			return
		}
	}
}

// Shutdown stops the event loop and closes every connected client. It
// returns once the loop has drained or the context expires.
func (h *Hub) Shutdown(ctx context.Context) error {
	close(h.stop)

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatch routes one inbound event to its handler. The event tags form a
// closed set; unknown tags are answered with an error unicast. A panicking
// handler is confined to its own event so one malformed message can never
// take the loop down.
func (h *Hub) dispatch(ev *clientEvent) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Printf("panic handling %q: %v", ev.msg.Type, r)
		}
	}()

	h.stats.Incr(metricEvents)

	switch ev.msg.Type {
	case EventJoinRoom:
		h.handleJoin(ev)
	case EventLeaveRoom:
		h.handleLeave(ev)
	case EventSendMessage:
		h.handleSendMessage(ev)
	case EventCodeChange:
		h.handleCodeChange(ev)
	case EventCursorMove:
		h.handleCursorMove(ev)
	case EventLanguageChange:
		h.handleLanguageChange(ev)
	case EventInputChange:
		h.handleInputChange(ev)
	case EventOutputChange:
		h.handleOutputChange(ev)
	case EventDocumentChange:
		h.handleDocumentChange(ev)
	case EventGetRoom:
		h.handleGetRoom(ev)
	default:
		ev.client.queueMessage(ErrUnknownEvent(ev.msg.Type))
	}
}

// handleJoin runs the join transition: ensure room state, unicast the
// snapshot and chat history, then register the identity. The snapshot goes
// out before the duplicate-membership check; a rejected joiner still sees
// the room but never becomes a member.
func (h *Hub) handleJoin(ev *clientEvent) {
	var req JoinRoom
	if err := json.Unmarshal(ev.msg.Payload, &req); err != nil || req.RoomID == "" || req.User.ID == "" {
		ev.client.queueMessage(ErrInvalidJoin())
		return
	}

	room := h.state.Ensure(req.RoomID)
	ev.client.queueMessage(LoadStateMsg(room.Snapshot()))
	ev.client.queueMessage(ChatHistoryMsg(h.messages.History(req.RoomID)))

	if err := h.registry.Register(req.RoomID, req.User); err != nil {
		h.log.Printf("join rejected for user %q in room %q: %v", req.User.ID, req.RoomID, err)
		ev.client.queueMessage(ErrUserAlreadyConnected())
		return
	}

	c := ev.client
	c.roomID = req.RoomID
	c.identity = req.User

	if h.conns[req.RoomID] == nil {
		h.conns[req.RoomID] = make(map[*Client]struct{})
		h.stats.Incr(metricActiveRooms)
	}
	h.conns[req.RoomID][c] = struct{}{}

	joined := req.User
	joined.Online = true

	h.broadcast(req.RoomID, RoomUsersMsg(h.registry.Members(req.RoomID)), nil)
	h.broadcast(req.RoomID, UserJoinedMsg(joined), c)
	h.broadcastMetadata(req.RoomID)

	h.log.Printf("user %q (%s) joined room %q", req.User.Name, req.User.ID, req.RoomID)
}

func (h *Hub) handleLeave(ev *clientEvent) {
	var req LeaveRoom
	if err := json.Unmarshal(ev.msg.Payload, &req); err != nil || req.RoomID == "" || req.User.ID == "" {
		return
	}

	h.removeMember(ev.client, req.RoomID, req.User)
}

// handleDisconnect runs the abrupt-disconnect transition, keyed off the
// association recorded at join time. A connection that never joined has no
// room-side effect.
func (h *Hub) handleDisconnect(c *Client) {
	if c.roomID == "" || c.identity.ID == "" {
		h.log.Printf("client %s disconnected without room context", c.sessionID)
		return
	}

	h.removeMember(c, c.roomID, c.identity)
}

// removeMember is the shared tail of the leave and disconnect transitions:
// unregister, tear the room down if it emptied, otherwise notify the
// remaining members.
func (h *Hub) removeMember(c *Client, roomID string, user types.Identity) {
	if set, ok := h.conns[roomID]; ok {
		delete(set, c)
	}

	identity, ok := h.registry.Unregister(roomID, user.ID)
	if !ok {
		identity = user
	}

	if c.roomID == roomID {
		c.roomID = ""
		c.identity = types.Identity{}
	}

	if h.registry.Count(roomID) == 0 {
		h.teardownRoom(roomID)
		return
	}

	h.broadcast(roomID, RoomUsersMsg(h.registry.Members(roomID)), nil)
	h.broadcast(roomID, UserLeftMsg(identity), c)
	h.broadcastMetadata(roomID)
}

// teardownRoom drops everything the room owned. Runs only when membership
// reaches zero; a later join starts from blank state.
func (h *Hub) teardownRoom(roomID string) {
	h.state.Destroy(roomID)
	h.messages.Clear(roomID)
	if _, ok := h.conns[roomID]; ok {
		delete(h.conns, roomID)
		h.stats.Decr(metricActiveRooms)
	}
	h.log.Printf("room %q fully cleared", roomID)
}

func (h *Hub) handleSendMessage(ev *clientEvent) {
	var msg types.ChatMessage
	if err := json.Unmarshal(ev.msg.Payload, &msg); err != nil {
		ev.client.queueMessage(ErrInvalidMessage())
		return
	}

	if msg.RoomID == "" || !h.joined(ev.client, msg.RoomID) {
		return
	}

	if msg.ID == "" {
		id, err := h.generateID()
		if err != nil {
			h.log.Println("generate message id:", err)
			return
		}
		msg.ID = id
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = Now()
	}

	h.messages.Append(msg.RoomID, msg)
	h.state.Touch(msg.RoomID)
	h.stats.Incr(metricChatMessages)

	h.broadcast(msg.RoomID, ReceiveMessageMsg(msg), ev.client)
	h.broadcastMetadata(msg.RoomID)
}

func (h *Hub) handleCodeChange(ev *clientEvent) {
	var req CodeChange
	if err := json.Unmarshal(ev.msg.Payload, &req); err != nil {
		ev.client.queueMessage(ErrInvalidMessage())
		return
	}

	h.applyChange(ev.client, req.RoomID, FieldCode, req.Code,
		&ServerMessage{Type: MsgCodeChange, Payload: CodeChange{Code: req.Code, UserID: req.UserID}})
}

func (h *Hub) handleLanguageChange(ev *clientEvent) {
	var req LanguageChange
	if err := json.Unmarshal(ev.msg.Payload, &req); err != nil {
		ev.client.queueMessage(ErrInvalidMessage())
		return
	}

	h.applyChange(ev.client, req.RoomID, FieldLanguage, req.Language,
		&ServerMessage{Type: MsgLanguageChange, Payload: LanguageChange{Language: req.Language, UserID: req.UserID}})
}

func (h *Hub) handleInputChange(ev *clientEvent) {
	var req InputChange
	if err := json.Unmarshal(ev.msg.Payload, &req); err != nil {
		ev.client.queueMessage(ErrInvalidMessage())
		return
	}

	h.applyChange(ev.client, req.RoomID, FieldInput, req.Input,
		&ServerMessage{Type: MsgInputChange, Payload: InputChange{Input: req.Input, UserID: req.UserID}})
}

func (h *Hub) handleOutputChange(ev *clientEvent) {
	var req OutputChange
	if err := json.Unmarshal(ev.msg.Payload, &req); err != nil {
		ev.client.queueMessage(ErrInvalidMessage())
		return
	}

	h.applyChange(ev.client, req.RoomID, FieldOutput, req.Output,
		&ServerMessage{Type: MsgOutputChange, Payload: OutputChange{Output: req.Output, UserID: req.UserID}})
}

func (h *Hub) handleDocumentChange(ev *clientEvent) {
	var req DocumentChange
	if err := json.Unmarshal(ev.msg.Payload, &req); err != nil {
		ev.client.queueMessage(ErrInvalidMessage())
		return
	}

	h.applyChange(ev.client, req.RoomID, FieldDocumentContent, req.Content,
		&ServerMessage{Type: MsgDocumentChange, Payload: DocumentChange{Content: req.Content, UserID: req.UserID}})
}

// applyChange is the shared body of every field-edit handler: overwrite the
// field (last write wins), rebroadcast to everyone but the sender, then
// push fresh metadata to the whole room. Edits from connections not joined
// to the room are tolerated no-ops.
func (h *Hub) applyChange(c *Client, roomID string, field RoomField, value string, out *ServerMessage) {
	if roomID == "" || !h.joined(c, roomID) {
		return
	}

	if !h.state.Apply(roomID, field, value) {
		h.log.Printf("rejected mutation of unknown field %q in room %q", field, roomID)
		return
	}

	h.broadcast(roomID, out, c)
	h.broadcastMetadata(roomID)
}

// handleCursorMove relays the position without touching room state; cursors
// are transient and never replayed to late joiners.
func (h *Hub) handleCursorMove(ev *clientEvent) {
	var req CursorMove
	if err := json.Unmarshal(ev.msg.Payload, &req); err != nil {
		ev.client.queueMessage(ErrInvalidMessage())
		return
	}

	if req.RoomID == "" || !h.joined(ev.client, req.RoomID) {
		return
	}

	h.broadcast(req.RoomID, &ServerMessage{
		Type:    MsgCursorMove,
		Payload: CursorMove{UserID: req.UserID, Position: req.Position},
	}, ev.client)
}

// handleGetRoom answers a metadata query from any connection, joined or
// not; room browsers poll this without ever entering the room.
func (h *Hub) handleGetRoom(ev *clientEvent) {
	var req GetRoom
	if err := json.Unmarshal(ev.msg.Payload, &req); err != nil || req.RoomID == "" {
		ev.client.queueMessage(ErrRoomNotFound())
		return
	}

	room, ok := h.state.Get(req.RoomID)
	if !ok {
		ev.client.queueMessage(ErrRoomNotFound())
		return
	}

	ev.client.queueMessage(RoomMetadataMsg(RoomMetadata{
		RoomID:          req.RoomID,
		UserCount:       h.registry.Count(req.RoomID),
		LastActive:      room.LastActive,
		Code:            room.Code,
		Language:        room.Language,
		Input:           room.Input,
		Output:          room.Output,
		DocumentContent: room.DocumentContent,
	}))
}

func (h *Hub) joined(c *Client, roomID string) bool {
	_, ok := h.conns[roomID][c]
	return ok
}

func (h *Hub) broadcast(roomID string, msg *ServerMessage, skip *Client) {
	for c := range h.conns[roomID] {
		if c == skip {
			continue
		}
		c.queueMessage(msg)
	}
}

func (h *Hub) broadcastMetadata(roomID string) {
	lastActive := Now()
	if room, ok := h.state.Get(roomID); ok {
		lastActive = room.LastActive
	}

	h.broadcast(roomID, RoomMetadataMsg(RoomMetadata{
		RoomID:     roomID,
		UserCount:  h.registry.Count(roomID),
		LastActive: lastActive,
	}), nil)
}
