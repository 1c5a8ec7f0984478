// Package persistence provides the MongoDB-backed implementations of the
// account and message stores.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jokkie98/fullstack-chat-app/pkg/chat"
)

const (
	usersCollection    = "users"
	messagesCollection = "messages"
	connectTimeout     = 10 * time.Second
)

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri string, logger zerolog.Logger) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	logger.Info().Msg("Connected to MongoDB")
	return client, nil
}

// MongoAccountStore implements chat.AccountStore on a users collection.
type MongoAccountStore struct {
	coll   *mongo.Collection
	logger zerolog.Logger
}

// NewMongoAccountStore creates the store and ensures the unique email index.
func NewMongoAccountStore(ctx context.Context, db *mongo.Database, logger zerolog.Logger) (*MongoAccountStore, error) {
	coll := db.Collection(usersCollection)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create email index: %w", err)
	}
	return &MongoAccountStore{
		coll:   coll,
		logger: logger.With().Str("component", "MongoAccountStore").Logger(),
	}, nil
}

func (s *MongoAccountStore) CreateUser(ctx context.Context, user *chat.User) error {
	if _, err := s.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return chat.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *MongoAccountStore) UserByID(ctx context.Context, id chat.UserID) (*chat.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoAccountStore) UserByEmail(ctx context.Context, email string) (*chat.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoAccountStore) findOne(ctx context.Context, filter bson.M) (*chat.User, error) {
	var user chat.User
	err := s.coll.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, chat.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}

func (s *MongoAccountStore) UpdateUser(ctx context.Context, user *chat.User) error {
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return chat.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return chat.ErrUserNotFound
	}
	return nil
}

func (s *MongoAccountStore) DeleteUser(ctx context.Context, id chat.UserID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return chat.ErrUserNotFound
	}
	return nil
}

func (s *MongoAccountStore) ListOthers(ctx context.Context, id chat.UserID) ([]*chat.User, error) {
	cursor, err := s.coll.Find(ctx,
		bson.M{"_id": bson.M{"$ne": id}},
		options.Find().SetSort(bson.D{{Key: "fullName", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	var users []*chat.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

var _ chat.AccountStore = (*MongoAccountStore)(nil)

// MongoMessageStore implements chat.MessageStore on a messages collection.
type MongoMessageStore struct {
	coll   *mongo.Collection
	logger zerolog.Logger
}

// NewMongoMessageStore creates the store and an index over the conversation
// key so history fetches stay cheap.
func NewMongoMessageStore(ctx context.Context, db *mongo.Database, logger zerolog.Logger) (*MongoMessageStore, error) {
	coll := db.Collection(messagesCollection)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "senderId", Value: 1},
			{Key: "receiverId", Value: 1},
			{Key: "createdAt", Value: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation index: %w", err)
	}
	return &MongoMessageStore{
		coll:   coll,
		logger: logger.With().Str("component", "MongoMessageStore").Logger(),
	}, nil
}

func (s *MongoMessageStore) SaveMessage(ctx context.Context, msg *chat.Message) error {
	if _, err := s.coll.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *MongoMessageStore) MessagesBetween(ctx context.Context, a, b chat.UserID) ([]*chat.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"senderId": a, "receiverId": b},
		bson.M{"senderId": b, "receiverId": a},
	}}
	cursor, err := s.coll.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch conversation: %w", err)
	}
	var msgs []*chat.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return msgs, nil
}

var _ chat.MessageStore = (*MongoMessageStore)(nil)
