package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"chatwave/logger"
	"chatwave/middleware"
	"chatwave/module/chat/model"
	"chatwave/module/chat/service"
	"chatwave/service/realtime"
	"chatwave/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// Store is the slice of the chat service the handlers need.
type Store interface {
	CreateOrGet(ctx context.Context, userID, otherUserID string) (*model.Chat, bool, error)
	ListForUser(ctx context.Context, userID string) ([]model.Chat, error)
	GetChat(ctx context.Context, chatID, userID string) (*model.Chat, error)
	SaveMessage(ctx context.Context, msg *model.Message) error
	MessagesByChat(ctx context.Context, chatID string) ([]model.Message, error)
	MarkSeen(ctx context.Context, chatID, readerID string) error
	UnseenCount(ctx context.Context, chatID, readerID string) (int64, error)
	GetMessage(ctx context.Context, messageID string) (*model.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error
}

// Emitter pushes realtime events produced by the REST layer. The gateway in
// the same process implements it.
type Emitter interface {
	EmitToRoom(roomID, event string, data any)
}

type Handler struct {
	svc      Store
	users    Directory
	uploader Uploader
	emitter  Emitter
	jwt      security.Options
}

var _ Store = (*service.Service)(nil)
var _ Emitter = (*realtime.Gateway)(nil)

func NewHandler(svc Store, users Directory, uploader Uploader, emitter Emitter, jwt security.Options) *Handler {
	return &Handler{svc: svc, users: users, uploader: uploader, emitter: emitter, jwt: jwt}
}

// Register mounts the chat routes under /api/v1.
func (h *Handler) Register(r *gin.Engine) {
	auth := middleware.Auth(h.jwt)
	v1 := r.Group("/api/v1", auth)
	v1.POST("/chat/new", h.CreateChat)
	v1.GET("/chat/all", h.AllChats)
	v1.POST("/message", h.SendMessage)
	v1.GET("/message/:chatId", h.MessagesByChat)
	v1.DELETE("/message/:messageId", h.DeleteMessage)
}

type createChatReq struct {
	OtherUserID string `json:"otherUserId"`
}

func (h *Handler) CreateChat(c *gin.Context) {
	var req createChatReq
	if err := c.ShouldBindJSON(&req); err != nil || req.OtherUserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "otherUserId required"})
		return
	}
	userID := middleware.UserID(c)
	if req.OtherUserID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"message": "cannot chat with yourself"})
		return
	}

	chat, created, err := h.svc.CreateOrGet(c.Request.Context(), userID, req.OtherUserID)
	if err != nil {
		logger.Errorf("[chat] create: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to create chat"})
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"chatId": chat.ID})
}

// chatEntry is one sidebar row: the chat, the other participant, and how
// many messages await the caller.
type chatEntry struct {
	Chat        model.Chat `json:"chat"`
	User        *Profile   `json:"user"`
	UnseenCount int64      `json:"unseenCount"`
}

func (h *Handler) AllChats(c *gin.Context) {
	userID := middleware.UserID(c)
	chats, err := h.svc.ListForUser(c.Request.Context(), userID)
	if err != nil {
		logger.Errorf("[chat] list: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to list chats"})
		return
	}

	entries := make([]chatEntry, 0, len(chats))
	for _, chat := range chats {
		entry := chatEntry{Chat: chat}
		if other := otherUser(chat.Users, userID); other != "" {
			p, err := h.users.Lookup(c.Request.Context(), other)
			if err != nil {
				// sidebar still renders without the profile
				logger.Warnf("[chat] lookup user %s: %v", other, err)
			} else {
				entry.User = p
			}
		}
		if n, err := h.svc.UnseenCount(c.Request.Context(), chat.ID, userID); err == nil {
			entry.UnseenCount = n
		}
		entries = append(entries, entry)
	}
	c.JSON(http.StatusOK, gin.H{"chats": entries})
}

func (h *Handler) SendMessage(c *gin.Context) {
	userID := middleware.UserID(c)
	chatID := c.PostForm("chatId")
	text := strings.TrimSpace(c.PostForm("text"))

	if chatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "chatId required"})
		return
	}
	if _, err := h.svc.GetChat(c.Request.Context(), chatID, userID); err != nil {
		h.chatError(c, err)
		return
	}

	msg := &model.Message{
		ChatID:      chatID,
		Sender:      userID,
		Text:        text,
		MessageType: model.MessageText,
	}

	if raw := c.PostForm("replyTo"); raw != "" {
		var ref model.ReplyRef
		if err := json.Unmarshal([]byte(raw), &ref); err == nil {
			msg.ReplyTo = &ref
		}
	}

	if file, err := c.FormFile("image"); err == nil && file != nil {
		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "unreadable image"})
			return
		}
		defer src.Close()
		img, err := h.uploader.Upload(c.Request.Context(), file.Filename, src)
		if err != nil {
			logger.Errorf("[chat] upload: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to store image"})
			return
		}
		msg.Image = &img
		msg.MessageType = model.MessageImage
	}

	if text == "" && msg.Image == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "text or image required"})
		return
	}

	if err := h.svc.SaveMessage(c.Request.Context(), msg); err != nil {
		logger.Errorf("[chat] save message: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to save message"})
		return
	}

	// the client emits newMessage over its socket after this returns;
	// persistence stays out-of-band of the gateway
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

func (h *Handler) MessagesByChat(c *gin.Context) {
	userID := middleware.UserID(c)
	chatID := c.Param("chatId")

	chat, err := h.svc.GetChat(c.Request.Context(), chatID, userID)
	if err != nil {
		h.chatError(c, err)
		return
	}

	if err := h.svc.MarkSeen(c.Request.Context(), chatID, userID); err != nil {
		logger.Warnf("[chat] mark seen: %v", err)
	}

	msgs, err := h.svc.MessagesByChat(c.Request.Context(), chatID)
	if err != nil {
		logger.Errorf("[chat] fetch messages: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to fetch messages"})
		return
	}

	var other *Profile
	if id := otherUser(chat.Users, userID); id != "" {
		if p, err := h.users.Lookup(c.Request.Context(), id); err == nil {
			other = p
		}
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs, "user": other})
}

func (h *Handler) DeleteMessage(c *gin.Context) {
	userID := middleware.UserID(c)
	messageID := c.Param("messageId")

	msg, err := h.svc.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		h.chatError(c, err)
		return
	}
	if msg.Sender != userID {
		c.JSON(http.StatusForbidden, gin.H{"message": "only the sender can delete a message"})
		return
	}

	if err := h.svc.DeleteMessage(c.Request.Context(), messageID); err != nil {
		h.chatError(c, err)
		return
	}

	if h.emitter != nil {
		h.emitter.EmitToRoom(msg.ChatID, realtime.EvMessageDeleted, realtime.DeletePayload{
			ChatID:    msg.ChatID,
			MessageID: messageID,
		})
	}
	c.JSON(http.StatusOK, gin.H{"message": "message deleted"})
}

func (h *Handler) chatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	case errors.Is(err, service.ErrNotMember):
		c.JSON(http.StatusForbidden, gin.H{"message": "not a chat member"})
	default:
		logger.Errorf("[chat] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}

func otherUser(users []string, selfID string) string {
	for _, u := range users {
		if u != selfID {
			return u
		}
	}
	return ""
}
