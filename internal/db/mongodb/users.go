package mongodb

import (
	"context"
	"time"

	"github.com/frontyard/backend/internal/model"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type userDocument struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	Email        string        `bson:"email"`
	Nickname     string        `bson:"nickname"`
	PasswordHash string        `bson:"password"`
	RefreshToken string        `bson:"refreshToken"`
	RegisteredAt time.Time     `bson:"registeredAt"`
	UpdatedAt    *time.Time    `bson:"updatedAt"`
}

func newUserDocument(u *model.User) userDocument {
	return userDocument{
		Email:        u.Email,
		Nickname:     u.Nickname,
		PasswordHash: u.PasswordHash,
		RefreshToken: u.RefreshToken,
		RegisteredAt: u.RegisteredAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (d userDocument) toModel() *model.User {
	return &model.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		Nickname:     d.Nickname,
		PasswordHash: d.PasswordHash,
		RefreshToken: d.RefreshToken,
		RegisteredAt: d.RegisteredAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	doc := newUserDocument(user)
	doc.ID = bson.NewObjectID()
	if doc.RegisteredAt.IsZero() {
		doc.RegisteredAt = time.Now().UTC()
	}

	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, model.ErrDuplicate
		}
		return nil, err
	}
	return doc.toModel(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var doc userDocument
	if err := s.users.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.toModel(), nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc userDocument
	if err := s.users.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.toModel(), nil
}

func (s *Store) SetRefreshToken(ctx context.Context, id, refreshToken string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "refreshToken", Value: refreshToken}}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}
