package realtime

import "encoding/json"

// Event names on the wire. Client-to-gateway events are relayed under the
// corresponding gateway-to-client name.
const (
	EvTyping     = "typing"
	EvStopTyping = "stopTyping"
	EvJoinChat   = "joinChat"
	EvLeaveChat  = "leaveChat"
	EvNewMessage = "newMessage"

	EvOnlineUsers     = "getOnlineUser"
	EvUserTyping      = "userTyping"
	EvUserStopTyping  = "userStopTyping"
	EvMessageReceived = "messageReceived"
	EvMessageDeleted  = "messageDeleted"
)

// Frame is the JSON envelope for every realtime event.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// TypingPayload rides on typing/stopTyping and their relayed forms. The
// gateway does not validate it; a missing chatId simply produces a relay
// that no client matches.
type TypingPayload struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

// DeletePayload rides on messageDeleted.
type DeletePayload struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
}

func ParseFrame(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, err
	}
	return f, nil
}

// EncodeFrame builds the wire bytes for event/data.
func EncodeFrame(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}
