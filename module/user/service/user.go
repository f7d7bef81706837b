package service

import (
	"context"
	"time"

	"chatwave/module/user/model"
	"chatwave/tools/ids"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("user not found")

type Service struct {
	col *mongo.Collection
}

func New(db *mongo.Database) *Service {
	return &Service{col: db.Collection(model.UserCollection)}
}

// EnsureIndexes creates the unique email index. Call once at startup.
func (s *Service) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return errors.Wrap(err, "create email index")
}

// FindOrCreate returns the user for email, creating one with a name derived
// from the address on first login.
func (s *Service) FindOrCreate(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := s.col.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Wrap(err, "find user by email")
	}

	name := email
	if len(name) > 8 {
		name = name[:8]
	}
	now := time.Now()
	u = model.User{
		ID:        ids.GenerateString(),
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.col.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// lost a race with a concurrent first login
			if ferr := s.col.FindOne(ctx, bson.M{"email": email}).Decode(&u); ferr == nil {
				return &u, nil
			}
		}
		return nil, errors.Wrap(err, "insert user")
	}
	return &u, nil
}

func (s *Service) FindByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find user by id")
	}
	return &u, nil
}

func (s *Service) All(ctx context.Context) ([]model.User, error) {
	cur, err := s.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	defer cur.Close(ctx)

	var users []model.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, errors.Wrap(err, "decode users")
	}
	return users, nil
}

func (s *Service) UpdateName(ctx context.Context, id, name string) (*model.User, error) {
	res := s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"name": name, "updated_at": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var u model.User
	err := res.Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "update user name")
	}
	return &u, nil
}
