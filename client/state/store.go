package state

import (
	"sort"
	"sync"
	"time"
)

// DefaultTypingTTL is how long a typing indicator survives without a
// stop event.
const DefaultTypingTTL = 3 * time.Second

// ImagePlaceholder is the preview text for a captionless image message.
const ImagePlaceholder = "\U0001F4F8 Image"

type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

type ReplyRef struct {
	MessageID string `json:"messageId"`
	Sender    string `json:"sender"`
	Text      string `json:"text,omitempty"`
}

// Message is the client-side view of one conversation message. ID is
// globally unique and is the sole deduplication key across every ingestion
// path.
type Message struct {
	ID          string     `json:"_id"`
	ChatID      string     `json:"chatId"`
	Sender      string     `json:"sender"`
	Text        string     `json:"text,omitempty"`
	Image       *Image     `json:"image,omitempty"`
	MessageType string     `json:"messageType"`
	Seen        bool       `json:"seen"`
	SeenAt      *time.Time `json:"seenAt,omitempty"`
	ReplyTo     *ReplyRef  `json:"replyTo,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type LatestMessage struct {
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	CreatedAt time.Time `json:"createdAt"`
}

type ChatSummary struct {
	ID        string        `json:"_id"`
	Users     []string      `json:"users"`
	Latest    LatestMessage `json:"latestMessage"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Unseen    int           `json:"unseenCount"`
}

// Store merges the three message sources (history fetch, optimistic local
// append, realtime push) into one deduplicated, time-ordered view, keeps the
// conversation list ordered by latest activity, and derives the typing
// indicator from realtime events. All mutation funnels through its methods.
type Store struct {
	mu   sync.Mutex
	self string

	typingTTL time.Duration
	now       func() time.Time

	active   string
	messages []Message
	chats    []ChatSummary
	online   map[string]struct{}

	typing      bool
	typingGen   int
	typingTimer *time.Timer

	prefs Prefs
}

type Option func(*Store)

// WithTypingTTL overrides the typing-indicator countdown.
func WithTypingTTL(d time.Duration) Option {
	return func(s *Store) { s.typingTTL = d }
}

// WithClock injects a clock for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithPrefs attaches a device-local preference store. The Store consults it
// for pinned/hidden conversation sets but does not own it.
func WithPrefs(p Prefs) Option {
	return func(s *Store) { s.prefs = p }
}

func NewStore(selfUserID string, opts ...Option) *Store {
	s := &Store{
		self:      selfUserID,
		typingTTL: DefaultTypingTTL,
		now:       time.Now,
		online:    make(map[string]struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Self() string { return s.self }

// SetActive switches the open conversation, clearing the message list and
// the typing indicator (a stale countdown must never leak across a switch).
// It returns the previously active conversation so the caller can leave its
// room.
func (s *Store) SetActive(chatID string) (previous string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous = s.active
	s.active = chatID
	s.messages = nil
	s.clearTypingLocked()
	return previous
}

func (s *Store) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// ApplyHistory folds a REST-fetched batch for chatID into the active list.
// Batches for a conversation that is no longer open are discarded. The
// result is deduplicated and re-sorted by creation time ascending.
func (s *Store) ApplyHistory(chatID string, msgs []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if chatID != s.active {
		return
	}
	for _, m := range msgs {
		if !s.containsLocked(m.ID) {
			s.messages = append(s.messages, m)
		}
	}
	s.sortLocked()
}

// AppendLocal records an optimistically sent message and promotes its
// conversation. Idempotent on message ID.
func (s *Store) AppendLocal(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ChatID == s.active {
		s.appendLocked(msg)
	}
	s.promoteLocked(msg)
}

// ApplyReceived folds a pushed message in. The active list only changes on
// an exact chatId match; the conversation list reorders either way, because
// a recipient without the conversation open must still see it move up.
func (s *Store) ApplyReceived(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ChatID == s.active {
		s.appendLocked(msg)
	}
	s.promoteLocked(msg)
}

// ApplyDeleted removes a message from the active list on exact chatId match.
func (s *Store) ApplyDeleted(chatID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if chatID != s.active {
		return
	}
	for i, m := range s.messages {
		if m.ID == messageID {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return
		}
	}
}

// Messages returns a copy of the active conversation's messages.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// SetChats replaces the conversation list (REST fetch).
func (s *Store) SetChats(chats []ChatSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = make([]ChatSummary, len(chats))
	copy(s.chats, chats)
}

// Chats returns a copy of the conversation list, newest activity first.
func (s *Store) Chats() []ChatSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatSummary, len(s.chats))
	copy(out, s.chats)
	return out
}

// SetOnline replaces the presence snapshot.
func (s *Store) SetOnline(users []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online = make(map[string]struct{}, len(users))
	for _, u := range users {
		s.online[u] = struct{}{}
	}
}

func (s *Store) IsOnline(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.online[userID]
	return ok
}

// ApplyTyping handles a userTyping event: only the active conversation and
// only non-self senders light the indicator. Each event restarts the
// countdown.
func (s *Store) ApplyTyping(chatID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if chatID != s.active || userID == s.self || chatID == "" {
		return
	}
	s.typing = true
	s.typingGen++
	gen := s.typingGen
	if s.typingTimer != nil {
		s.typingTimer.Stop()
	}
	s.typingTimer = time.AfterFunc(s.typingTTL, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		// a newer event or a conversation switch supersedes this countdown
		if s.typingGen == gen {
			s.typing = false
			s.typingTimer = nil
		}
	})
}

// ApplyStopTyping clears the indicator immediately and cancels the pending
// countdown.
func (s *Store) ApplyStopTyping(chatID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if chatID != s.active || userID == s.self {
		return
	}
	s.clearTypingLocked()
}

func (s *Store) TypingActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing
}

func (s *Store) clearTypingLocked() {
	s.typing = false
	s.typingGen++
	if s.typingTimer != nil {
		s.typingTimer.Stop()
		s.typingTimer = nil
	}
}

func (s *Store) containsLocked(id string) bool {
	for _, m := range s.messages {
		if m.ID == id {
			return true
		}
	}
	return false
}

// appendLocked adds one message to the tail; out-of-order arrivals fall back
// to a full re-sort.
func (s *Store) appendLocked(msg Message) {
	if s.containsLocked(msg.ID) {
		return
	}
	outOfOrder := len(s.messages) > 0 &&
		msg.CreatedAt.Before(s.messages[len(s.messages)-1].CreatedAt)
	s.messages = append(s.messages, msg)
	if outOfOrder {
		s.sortLocked()
	}
}

func (s *Store) sortLocked() {
	sort.SliceStable(s.messages, func(i, j int) bool {
		return s.messages[i].CreatedAt.Before(s.messages[j].CreatedAt)
	})
}

// promoteLocked moves msg's conversation to the head of the list and
// overwrites its preview. Unknown conversations are left alone; the next
// full chat fetch picks them up.
func (s *Store) promoteLocked(msg Message) {
	idx := -1
	for i := range s.chats {
		if s.chats[i].ID == msg.ChatID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}
	chat := s.chats[idx]
	chat.Latest = LatestMessage{
		Text:      PreviewText(msg),
		Sender:    msg.Sender,
		CreatedAt: msg.CreatedAt,
	}
	chat.UpdatedAt = s.now()
	s.chats = append(s.chats[:idx], s.chats[idx+1:]...)
	s.chats = append([]ChatSummary{chat}, s.chats...)
}

// PreviewText derives the sidebar preview for a message: its text, or a
// placeholder when an image carries no caption.
func PreviewText(msg Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	if msg.Image != nil || msg.MessageType == "image" {
		return ImagePlaceholder
	}
	return ""
}
