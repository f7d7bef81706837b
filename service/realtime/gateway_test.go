package realtime

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T) (*Gateway, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	g := NewGateway()
	r := gin.New()
	r.GET("/ws", g.HandleWS)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		g.Close()
		srv.Close()
	})
	return g, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url, userID string) *websocket.Conn {
	t.Helper()
	if userID != "" {
		url += "?userId=" + userID
	}
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

// readEvent reads frames until one matches the wanted event, skipping
// interleaved presence snapshots and other traffic.
func readEvent(t *testing.T, ws *websocket.Conn, event string) *Frame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		require.NoError(t, ws.SetReadDeadline(deadline))
		_, raw, err := ws.ReadMessage()
		require.NoError(t, err, "waiting for %s", event)
		f, err := ParseFrame(raw)
		require.NoError(t, err)
		if f.Event == event {
			return f
		}
	}
}

// expectNoEvent asserts that no frame with the given event arrives within
// the window. Other frames are drained and ignored.
func expectNoEvent(t *testing.T, ws *websocket.Conn, event string, window time.Duration) {
	t.Helper()
	deadline := time.Now().Add(window)
	for {
		if err := ws.SetReadDeadline(deadline); err != nil {
			return
		}
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return // timeout: nothing arrived
		}
		f, perr := ParseFrame(raw)
		if perr == nil && f.Event == event {
			t.Fatalf("unexpected %s frame: %s", event, string(f.Data))
		}
	}
}

func onlineUsers(t *testing.T, f *Frame) []string {
	t.Helper()
	var users []string
	require.NoError(t, json.Unmarshal(f.Data, &users))
	return users
}

func waitMembers(t *testing.T, g *Gateway, roomID string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(g.Rooms().Members(roomID)) == n
	}, 2*time.Second, 10*time.Millisecond, "room %s never reached %d members", roomID, n)
}

func TestPresenceSnapshotBroadcast(t *testing.T) {
	g, url := newTestGateway(t)

	wsA := dial(t, url, "user1")
	assert.ElementsMatch(t, []string{"user1"}, onlineUsers(t, readEvent(t, wsA, EvOnlineUsers)))

	wsB := dial(t, url, "user2")
	assert.ElementsMatch(t, []string{"user1", "user2"}, onlineUsers(t, readEvent(t, wsB, EvOnlineUsers)))

	// the snapshot goes to every connection, not just the new one
	require.Eventually(t, func() bool {
		return len(g.Presence().Snapshot()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{"user1", "user2"}, onlineUsers(t, readEvent(t, wsA, EvOnlineUsers)))

	wsB.Close()
	f := readEvent(t, wsA, EvOnlineUsers)
	for len(onlineUsers(t, f)) != 1 {
		f = readEvent(t, wsA, EvOnlineUsers)
	}
	assert.ElementsMatch(t, []string{"user1"}, onlineUsers(t, f))
}

func TestAnonymousConnectionSkipsPresence(t *testing.T) {
	g, url := newTestGateway(t)

	anon := dial(t, url, "undefined")
	assert.Empty(t, onlineUsers(t, readEvent(t, anon, EvOnlineUsers)))
	assert.Empty(t, g.Presence().Snapshot())

	// anonymous connections still receive presence updates
	dial(t, url, "user1")
	assert.ElementsMatch(t, []string{"user1"}, onlineUsers(t, readEvent(t, anon, EvOnlineUsers)))
}

func TestTypingRelayIsRoomScoped(t *testing.T) {
	g, url := newTestGateway(t)

	wsA := dial(t, url, "user1")
	wsB := dial(t, url, "user2")
	wsC := dial(t, url, "user3")
	waitMembers(t, g, "user3", 1) // all three identified

	require.NoError(t, wsA.WriteJSON(Frame{Event: EvJoinChat, Data: json.RawMessage(`"c1"`)}))
	waitMembers(t, g, "c1", 1)

	require.NoError(t, wsB.WriteJSON(Frame{Event: EvTyping, Data: json.RawMessage(`{"chatId":"c1","userId":"user2"}`)}))

	f := readEvent(t, wsA, EvUserTyping)
	var p TypingPayload
	require.NoError(t, json.Unmarshal(f.Data, &p))
	assert.Equal(t, "c1", p.ChatID)
	assert.Equal(t, "user2", p.UserID)

	// user3 never joined c1: the room-scoped relay must not reach it
	expectNoEvent(t, wsC, EvUserTyping, 300*time.Millisecond)
}

func TestTypingSenderGetsNoEcho(t *testing.T) {
	g, url := newTestGateway(t)

	wsA := dial(t, url, "user1")
	wsB := dial(t, url, "user2")
	waitMembers(t, g, "user2", 1)

	require.NoError(t, wsA.WriteJSON(Frame{Event: EvJoinChat, Data: json.RawMessage(`"c1"`)}))
	require.NoError(t, wsB.WriteJSON(Frame{Event: EvJoinChat, Data: json.RawMessage(`"c1"`)}))
	waitMembers(t, g, "c1", 2)

	require.NoError(t, wsB.WriteJSON(Frame{Event: EvTyping, Data: json.RawMessage(`{"chatId":"c1","userId":"user2"}`)}))

	readEvent(t, wsA, EvUserTyping)
	expectNoEvent(t, wsB, EvUserTyping, 300*time.Millisecond)
}

func TestNewMessageBroadcastsToAllExceptSender(t *testing.T) {
	g, url := newTestGateway(t)

	wsA := dial(t, url, "user1")
	wsB := dial(t, url, "user2")
	waitMembers(t, g, "user2", 1)

	// user2 never joins room c1 but must still learn about the message
	msg := `{"_id":"m1","chatId":"c1","sender":"user1","text":"hi"}`
	require.NoError(t, wsA.WriteJSON(Frame{Event: EvNewMessage, Data: json.RawMessage(msg)}))

	f := readEvent(t, wsB, EvMessageReceived)
	var got map[string]any
	require.NoError(t, json.Unmarshal(f.Data, &got))
	assert.Equal(t, "m1", got["_id"])
	assert.Equal(t, "c1", got["chatId"])
	assert.Equal(t, "hi", got["text"])

	expectNoEvent(t, wsA, EvMessageReceived, 300*time.Millisecond)
}

func TestEmitToRoomReachesMembers(t *testing.T) {
	g, url := newTestGateway(t)

	wsA := dial(t, url, "user1")
	waitMembers(t, g, "user1", 1)
	require.NoError(t, wsA.WriteJSON(Frame{Event: EvJoinChat, Data: json.RawMessage(`"c1"`)}))
	waitMembers(t, g, "c1", 1)

	g.EmitToRoom("c1", EvMessageDeleted, DeletePayload{ChatID: "c1", MessageID: "m9"})

	f := readEvent(t, wsA, EvMessageDeleted)
	var p DeletePayload
	require.NoError(t, json.Unmarshal(f.Data, &p))
	assert.Equal(t, "m9", p.MessageID)
}

func TestDisconnectCleansUpRoomsAndPresence(t *testing.T) {
	g, url := newTestGateway(t)

	wsA := dial(t, url, "user1")
	waitMembers(t, g, "user1", 1)
	require.NoError(t, wsA.WriteJSON(Frame{Event: EvJoinChat, Data: json.RawMessage(`"c1"`)}))
	waitMembers(t, g, "c1", 1)

	wsA.Close()

	require.Eventually(t, func() bool {
		return len(g.Presence().Snapshot()) == 0 && g.Rooms().Members("c1") == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLeaveChatStopsRelay(t *testing.T) {
	g, url := newTestGateway(t)

	wsA := dial(t, url, "user1")
	wsB := dial(t, url, "user2")
	waitMembers(t, g, "user2", 1)

	require.NoError(t, wsA.WriteJSON(Frame{Event: EvJoinChat, Data: json.RawMessage(`"c1"`)}))
	waitMembers(t, g, "c1", 1)
	require.NoError(t, wsA.WriteJSON(Frame{Event: EvLeaveChat, Data: json.RawMessage(`"c1"`)}))
	waitMembers(t, g, "c1", 0)

	require.NoError(t, wsB.WriteJSON(Frame{Event: EvTyping, Data: json.RawMessage(`{"chatId":"c1","userId":"user2"}`)}))
	expectNoEvent(t, wsA, EvUserTyping, 300*time.Millisecond)
}

func TestMalformedFrameIsIgnored(t *testing.T) {
	g, url := newTestGateway(t)

	wsA := dial(t, url, "user1")
	waitMembers(t, g, "user1", 1)

	require.NoError(t, wsA.WriteMessage(websocket.TextMessage, []byte("not json")))
	// connection survives and keeps working
	require.NoError(t, wsA.WriteJSON(Frame{Event: EvJoinChat, Data: json.RawMessage(`"c1"`)}))
	waitMembers(t, g, "c1", 1)
}
