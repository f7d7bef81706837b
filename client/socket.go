// Package client is a headless realtime chat client: it keeps a websocket to
// the gateway and funnels every inbound event into a state.Store.
package client

import (
	"encoding/json"
	"net/url"
	"sync"

	"chatwave/client/state"
	"chatwave/logger"
	"chatwave/service/realtime"

	"github.com/gorilla/websocket"
)

type Socket struct {
	store *state.Store

	writeMu sync.Mutex
	ws      *websocket.Conn

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to the gateway at wsURL (e.g. ws://host:5002/ws), identifying
// as the store's user, and starts the read loop.
func Dial(wsURL string, store *state.Store) (*Socket, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("userId", store.Self())
	u.RawQuery = q.Encode()

	ws, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	s := &Socket{store: store, ws: ws, done: make(chan struct{})}
	go s.readLoop()
	return s, nil
}

func (s *Socket) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.ws.Close()
	})
}

// Done closes when the connection drops.
func (s *Socket) Done() <-chan struct{} { return s.done }

// OpenChat switches the active conversation: leaves the previous room, joins
// the new one. The caller fetches history over REST and feeds ApplyHistory.
func (s *Socket) OpenChat(chatID string) error {
	prev := s.store.SetActive(chatID)
	if prev != "" && prev != chatID {
		if err := s.emit(realtime.EvLeaveChat, prev); err != nil {
			return err
		}
	}
	if chatID == "" {
		return nil
	}
	return s.emit(realtime.EvJoinChat, chatID)
}

// SendMessage applies the optimistic local append and pushes the message to
// the gateway. Persistence happened already via the REST send endpoint.
func (s *Socket) SendMessage(msg state.Message) error {
	s.store.AppendLocal(msg)
	return s.emit(realtime.EvNewMessage, msg)
}

func (s *Socket) Typing(chatID string) error {
	return s.emit(realtime.EvTyping, realtime.TypingPayload{ChatID: chatID, UserID: s.store.Self()})
}

func (s *Socket) StopTyping(chatID string) error {
	return s.emit(realtime.EvStopTyping, realtime.TypingPayload{ChatID: chatID, UserID: s.store.Self()})
}

func (s *Socket) emit(event string, data any) error {
	payload, err := realtime.EncodeFrame(event, data)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.ws.WriteMessage(websocket.TextMessage, payload)
}

func (s *Socket) readLoop() {
	defer s.Close()
	for {
		_, raw, err := s.ws.ReadMessage()
		if err != nil {
			return
		}
		frame, err := realtime.ParseFrame(raw)
		if err != nil {
			logger.Infof("[client] bad frame: %v", err)
			continue
		}
		s.handle(frame)
	}
}

func (s *Socket) handle(frame *realtime.Frame) {
	switch frame.Event {
	case realtime.EvOnlineUsers:
		var users []string
		if err := json.Unmarshal(frame.Data, &users); err == nil {
			s.store.SetOnline(users)
		}
	case realtime.EvUserTyping:
		var p realtime.TypingPayload
		if err := json.Unmarshal(frame.Data, &p); err == nil {
			s.store.ApplyTyping(p.ChatID, p.UserID)
		}
	case realtime.EvUserStopTyping:
		var p realtime.TypingPayload
		if err := json.Unmarshal(frame.Data, &p); err == nil {
			s.store.ApplyStopTyping(p.ChatID, p.UserID)
		}
	case realtime.EvMessageReceived:
		var m state.Message
		if err := json.Unmarshal(frame.Data, &m); err == nil {
			s.store.ApplyReceived(m)
		}
	case realtime.EvMessageDeleted:
		var p realtime.DeletePayload
		if err := json.Unmarshal(frame.Data, &p); err == nil {
			s.store.ApplyDeleted(p.ChatID, p.MessageID)
		}
	default:
		// unknown events are ignored; the gateway may grow new ones
	}
}
