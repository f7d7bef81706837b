package model

import "time"

const (
	ChatCollection    = "chats"
	MessageCollection = "messages"
)

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
)

type LatestMessage struct {
	Text      string    `bson:"text" json:"text"`
	Sender    string    `bson:"sender" json:"sender"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// Chat is a two-user conversation. Latest caches the newest message preview
// so the sidebar renders without a message query.
type Chat struct {
	ID        string        `bson:"_id" json:"_id"`
	Users     []string      `bson:"users" json:"users"`
	Latest    LatestMessage `bson:"latest_message" json:"latestMessage"`
	CreatedAt time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time     `bson:"updated_at" json:"updatedAt"`
}

type Image struct {
	URL      string `bson:"url" json:"url"`
	PublicID string `bson:"public_id" json:"publicId"`
}

type ReplyRef struct {
	MessageID string `bson:"message_id" json:"messageId"`
	Sender    string `bson:"sender" json:"sender"`
	Text      string `bson:"text,omitempty" json:"text,omitempty"`
}

type Message struct {
	ID          string      `bson:"_id" json:"_id"`
	ChatID      string      `bson:"chat_id" json:"chatId"`
	Sender      string      `bson:"sender" json:"sender"`
	Text        string      `bson:"text,omitempty" json:"text,omitempty"`
	Image       *Image      `bson:"image,omitempty" json:"image,omitempty"`
	MessageType MessageType `bson:"message_type" json:"messageType"`
	Seen        bool        `bson:"seen" json:"seen"`
	SeenAt      *time.Time  `bson:"seen_at,omitempty" json:"seenAt,omitempty"`
	ReplyTo     *ReplyRef   `bson:"reply_to,omitempty" json:"replyTo,omitempty"`
	CreatedAt   time.Time   `bson:"created_at" json:"createdAt"`
}

// Preview derives the sidebar text for a message.
func (m *Message) Preview() string {
	if m.Text != "" {
		return m.Text
	}
	if m.MessageType == MessageImage {
		return "\U0001F4F8 Image"
	}
	return ""
}
