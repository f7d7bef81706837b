package realtime

import (
	"encoding/json"
	"net/http"
	"sync"

	"chatwave/logger"
	"chatwave/tools/ids"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Gateway accepts websocket connections, registers identified ones in the
// presence registry and relays realtime events. It is the sole writer of the
// Presence and Rooms state. Construct one per process and tear it down with
// Close at shutdown.
type Gateway struct {
	presence *Presence
	rooms    *Rooms

	mu    sync.RWMutex
	conns map[string]*Conn // connID -> conn, identified and anonymous alike
}

func NewGateway() *Gateway {
	return &Gateway{
		presence: NewPresence(),
		rooms:    NewRooms(),
		conns:    make(map[string]*Conn),
	}
}

func (g *Gateway) Presence() *Presence { return g.presence }
func (g *Gateway) Rooms() *Rooms       { return g.rooms }

// HandleWS upgrades the request and serves the connection until it drops.
// Identity comes from the `userId` query parameter; the literal string
// "undefined" (a client without a loaded session) counts as no identity.
func (g *Gateway) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade failed: %v", err)
		return
	}

	userID := c.Query("userId")
	if userID == "undefined" {
		userID = ""
	}

	conn := newConn(ids.GenerateString(), userID, ws)
	go conn.writeLoop()

	g.mu.Lock()
	g.conns[conn.ID] = conn
	g.mu.Unlock()

	if conn.UserID != "" {
		g.presence.Register(conn.UserID, conn.ID)
		// own-user room enables direct addressing by user ID
		g.rooms.Join(conn.ID, conn.UserID)
		logger.Infof("[ws] user %s connected conn=%s", conn.UserID, conn.ID)
	} else {
		logger.Infof("[ws] anonymous connection conn=%s", conn.ID)
	}
	g.broadcastPresence()

	g.readLoop(conn)

	g.mu.Lock()
	delete(g.conns, conn.ID)
	g.mu.Unlock()

	if conn.UserID != "" {
		g.presence.Unregister(conn.UserID)
	}
	g.rooms.LeaveAll(conn.ID)
	conn.Close(websocket.CloseNormalClosure, "")
	g.broadcastPresence()
	logger.Infof("[ws] disconnected conn=%s user=%s", conn.ID, conn.UserID)
}

func (g *Gateway) readLoop(conn *Conn) {
	for {
		mt, data, err := conn.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] read err conn=%s: %v", conn.ID, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, err := ParseFrame(data)
		if err != nil {
			logger.Infof("[ws] bad frame conn=%s: %v", conn.ID, err)
			continue
		}
		g.dispatch(conn, frame)
	}
}

// dispatch routes one inbound frame. Payloads are relayed as received: the
// gateway validates nothing, clients filter on exact chatId match.
func (g *Gateway) dispatch(conn *Conn, frame *Frame) {
	switch frame.Event {
	case EvTyping:
		g.relayRoomScoped(conn, EvUserTyping, frame.Data)
	case EvStopTyping:
		g.relayRoomScoped(conn, EvUserStopTyping, frame.Data)
	case EvJoinChat:
		g.rooms.Join(conn.ID, chatID(frame.Data))
	case EvLeaveChat:
		g.rooms.Leave(conn.ID, chatID(frame.Data))
	case EvNewMessage:
		// global fan-out: recipients without the conversation open still
		// need to reorder their chat list
		g.broadcastAll(EvMessageReceived, frame.Data, conn.ID)
	default:
		logger.Infof("[ws] unknown event %q conn=%s", frame.Event, conn.ID)
	}
}

// relayRoomScoped delivers the payload to the members of its chatId room,
// excluding the sender. Typing signals only matter to peers currently
// viewing the conversation.
func (g *Gateway) relayRoomScoped(conn *Conn, event string, data json.RawMessage) {
	var p TypingPayload
	_ = json.Unmarshal(data, &p)
	g.broadcastRoom(p.ChatID, event, data, conn.ID)
}

// EmitToRoom lets collaborators in the same process (the message REST layer)
// push an event to a conversation room. No sender to exclude.
func (g *Gateway) EmitToRoom(roomID, event string, data any) {
	payload, err := EncodeFrame(event, data)
	if err != nil {
		logger.Errorf("[ws] encode %s: %v", event, err)
		return
	}
	g.deliver(g.rooms.Members(roomID), payload, "")
}

// EmitToUser pushes an event to a user's own-identity room.
func (g *Gateway) EmitToUser(userID, event string, data any) {
	g.EmitToRoom(userID, event, data)
}

func (g *Gateway) broadcastRoom(roomID, event string, data json.RawMessage, excludeConnID string) {
	if roomID == "" {
		return
	}
	payload, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		logger.Errorf("[ws] encode %s: %v", event, err)
		return
	}
	g.deliver(g.rooms.Members(roomID), payload, excludeConnID)
}

func (g *Gateway) broadcastAll(event string, data json.RawMessage, excludeConnID string) {
	payload, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		logger.Errorf("[ws] encode %s: %v", event, err)
		return
	}
	g.mu.RLock()
	targets := make([]*Conn, 0, len(g.conns))
	for _, c := range g.conns {
		if c.ID != excludeConnID {
			targets = append(targets, c)
		}
	}
	g.mu.RUnlock()

	for _, c := range targets {
		_ = c.Send(payload) // best-effort
	}
}

// broadcastPresence pushes a fresh snapshot to every connection, anonymous
// ones included, after each register/unregister transition.
func (g *Gateway) broadcastPresence() {
	payload, err := EncodeFrame(EvOnlineUsers, g.presence.Snapshot())
	if err != nil {
		logger.Errorf("[ws] encode presence: %v", err)
		return
	}
	g.mu.RLock()
	targets := make([]*Conn, 0, len(g.conns))
	for _, c := range g.conns {
		targets = append(targets, c)
	}
	g.mu.RUnlock()

	for _, c := range targets {
		_ = c.Send(payload)
	}
}

func (g *Gateway) deliver(connIDs []string, payload []byte, excludeConnID string) {
	if len(connIDs) == 0 {
		return
	}
	g.mu.RLock()
	targets := make([]*Conn, 0, len(connIDs))
	for _, id := range connIDs {
		if id == excludeConnID {
			continue
		}
		if c, ok := g.conns[id]; ok {
			targets = append(targets, c)
		}
	}
	g.mu.RUnlock()

	for _, c := range targets {
		_ = c.Send(payload)
	}
}

// Close drops every connection and clears all state.
func (g *Gateway) Close() {
	g.mu.Lock()
	conns := make([]*Conn, 0, len(g.conns))
	for _, c := range g.conns {
		conns = append(conns, c)
	}
	g.conns = make(map[string]*Conn)
	g.mu.Unlock()

	for _, c := range conns {
		if c.UserID != "" {
			g.presence.Unregister(c.UserID)
		}
		g.rooms.LeaveAll(c.ID)
		c.Close(websocket.CloseGoingAway, "gateway shutdown")
	}
}

// chatID decodes a joinChat/leaveChat payload, which is a bare JSON string.
func chatID(data json.RawMessage) string {
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return ""
	}
	return id
}
