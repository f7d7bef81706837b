package service

import (
	"context"
	"time"

	"chatwave/module/chat/model"
	"chatwave/tools/ids"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrNotMember = errors.New("not a chat member")
)

type Service struct {
	chats *mongo.Collection
	msgs  *mongo.Collection
}

func New(db *mongo.Database) *Service {
	return &Service{
		chats: db.Collection(model.ChatCollection),
		msgs:  db.Collection(model.MessageCollection),
	}
}

// EnsureIndexes creates the query indexes. Call once at startup.
func (s *Service) EnsureIndexes(ctx context.Context) error {
	_, err := s.chats.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "users", Value: 1}},
	})
	if err != nil {
		return errors.Wrap(err, "create chats index")
	}
	_, err = s.msgs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	return errors.Wrap(err, "create messages index")
}

// CreateOrGet returns the two-user chat for the pair, creating it on first
// contact.
func (s *Service) CreateOrGet(ctx context.Context, userID, otherUserID string) (*model.Chat, bool, error) {
	filter := bson.M{"users": bson.M{"$all": []string{userID, otherUserID}, "$size": 2}}
	var chat model.Chat
	err := s.chats.FindOne(ctx, filter).Decode(&chat)
	if err == nil {
		return &chat, false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, errors.Wrap(err, "find chat")
	}

	now := time.Now()
	chat = model.Chat{
		ID:        ids.GenerateString(),
		Users:     []string{userID, otherUserID},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.chats.InsertOne(ctx, chat); err != nil {
		return nil, false, errors.Wrap(err, "insert chat")
	}
	return &chat, true, nil
}

// ListForUser returns the user's chats, newest activity first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]model.Chat, error) {
	cur, err := s.chats.Find(ctx,
		bson.M{"users": userID},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "list chats")
	}
	defer cur.Close(ctx)

	var chats []model.Chat
	if err := cur.All(ctx, &chats); err != nil {
		return nil, errors.Wrap(err, "decode chats")
	}
	return chats, nil
}

// GetChat loads one chat and checks membership.
func (s *Service) GetChat(ctx context.Context, chatID, userID string) (*model.Chat, error) {
	var chat model.Chat
	err := s.chats.FindOne(ctx, bson.M{"_id": chatID}).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find chat")
	}
	for _, u := range chat.Users {
		if u == userID {
			return &chat, nil
		}
	}
	return nil, ErrNotMember
}

// SaveMessage persists the message and refreshes the chat's preview and
// activity timestamp.
func (s *Service) SaveMessage(ctx context.Context, msg *model.Message) error {
	if msg.ID == "" {
		msg.ID = ids.GenerateString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if _, err := s.msgs.InsertOne(ctx, msg); err != nil {
		return errors.Wrap(err, "insert message")
	}

	_, err := s.chats.UpdateOne(ctx,
		bson.M{"_id": msg.ChatID},
		bson.M{"$set": bson.M{
			"latest_message": model.LatestMessage{
				Text:      msg.Preview(),
				Sender:    msg.Sender,
				CreatedAt: msg.CreatedAt,
			},
			"updated_at": time.Now(),
		}},
	)
	return errors.Wrap(err, "update chat preview")
}

// MessagesByChat returns the conversation ascending by creation time.
func (s *Service) MessagesByChat(ctx context.Context, chatID string) ([]model.Message, error) {
	cur, err := s.msgs.Find(ctx,
		bson.M{"chat_id": chatID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "list messages")
	}
	defer cur.Close(ctx)

	var msgs []model.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, errors.Wrap(err, "decode messages")
	}
	return msgs, nil
}

// MarkSeen flags every unseen message addressed to readerID in the chat.
func (s *Service) MarkSeen(ctx context.Context, chatID, readerID string) error {
	now := time.Now()
	_, err := s.msgs.UpdateMany(ctx,
		bson.M{"chat_id": chatID, "sender": bson.M{"$ne": readerID}, "seen": false},
		bson.M{"$set": bson.M{"seen": true, "seen_at": now}},
	)
	return errors.Wrap(err, "mark seen")
}

// UnseenCount counts messages in the chat not yet seen by readerID.
func (s *Service) UnseenCount(ctx context.Context, chatID, readerID string) (int64, error) {
	n, err := s.msgs.CountDocuments(ctx,
		bson.M{"chat_id": chatID, "sender": bson.M{"$ne": readerID}, "seen": false},
	)
	return n, errors.Wrap(err, "count unseen")
}

func (s *Service) GetMessage(ctx context.Context, messageID string) (*model.Message, error) {
	var msg model.Message
	err := s.msgs.FindOne(ctx, bson.M{"_id": messageID}).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find message")
	}
	return &msg, nil
}

func (s *Service) DeleteMessage(ctx context.Context, messageID string) error {
	res, err := s.msgs.DeleteOne(ctx, bson.M{"_id": messageID})
	if err != nil {
		return errors.Wrap(err, "delete message")
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
