// Package mongodb stores users and posts in MongoDB. Documents keep the
// field names the frontend already reads (_id, createdAt, user.nickname).
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/frontyard/backend/internal/config"
	"github.com/frontyard/backend/internal/model"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	usersCollection = "users"
	postsCollection = "posts"
)

type Store struct {
	client *mongo.Client
	users  *mongo.Collection
	posts  *mongo.Collection
}

func Connect(ctx context.Context, cfg config.MongoConfig) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(cfg.Database)
	return &Store{
		client: client,
		users:  db.Collection(usersCollection),
		posts:  db.Collection(postsCollection),
	}, nil
}

// EnsureIndexes creates the unique email index and the post listing indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}

	_, err = s.posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "user._id", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create posts indexes: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func objectID(hex string) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(hex)
	if err != nil {
		return bson.NilObjectID, model.ErrInvalidID
	}
	return id, nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.ErrNotFound
	}
	return err
}
