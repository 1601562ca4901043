package mongodb

import (
	"context"
	"time"

	"github.com/frontyard/backend/internal/model"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type imageDocument struct {
	Filename string `bson:"filename"`
	ImageURL string `bson:"imageUrl"`
}

type authorDocument struct {
	ID       bson.ObjectID `bson:"_id"`
	Nickname string        `bson:"nickname"`
}

type postDocument struct {
	ID        bson.ObjectID   `bson:"_id,omitempty"`
	Title     string          `bson:"title"`
	Body      string          `bson:"body"`
	Images    []imageDocument `bson:"images"`
	CreatedAt time.Time       `bson:"createdAt"`
	UpdatedAt *time.Time      `bson:"updatedAt"`
	User      authorDocument  `bson:"user"`
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

func imageDocuments(images []model.Image) []imageDocument {
	out := make([]imageDocument, 0, len(images))
	for _, img := range images {
		out = append(out, imageDocument{Filename: img.Filename, ImageURL: img.ImageURL})
	}
	return out
}

func (d postDocument) toModel() model.Post {
	images := make([]model.Image, 0, len(d.Images))
	for _, img := range d.Images {
		images = append(images, model.Image{Filename: img.Filename, ImageURL: img.ImageURL})
	}
	return model.Post{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		Body:      d.Body,
		Images:    images,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		User:      model.PostAuthor{ID: d.User.ID.Hex(), Nickname: d.User.Nickname},
	}
}

func (s *Store) CreatePost(ctx context.Context, post *model.Post) (*model.Post, error) {
	authorID, err := objectID(post.User.ID)
	if err != nil {
		return nil, err
	}
	doc := postDocument{
		ID:        bson.NewObjectID(),
		Title:     post.Title,
		Body:      post.Body,
		Images:    imageDocuments(post.Images),
		CreatedAt: post.CreatedAt,
		User:      authorDocument{ID: authorID, Nickname: post.User.Nickname},
	}
	if _, err := s.posts.InsertOne(ctx, doc); err != nil {
		return nil, err
	}
	out := doc.toModel()
	return &out, nil
}

func (s *Store) GetPost(ctx context.Context, id string) (*model.Post, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc postDocument
	if err := s.posts.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	out := doc.toModel()
	return &out, nil
}

func (s *Store) ListPosts(ctx context.Context, offset, limit int64) ([]model.Post, error) {
	if offset < 0 || limit < 0 {
		return nil, model.ErrInvalidRange
	}
	opts := options.Find().SetSort(newestFirst).SetSkip(offset).SetLimit(limit)
	return s.findPosts(ctx, bson.D{}, opts)
}

func (s *Store) CountPosts(ctx context.Context) (int64, error) {
	return s.posts.CountDocuments(ctx, bson.D{})
}

func (s *Store) ListPostsByUser(ctx context.Context, userID string) ([]model.Post, error) {
	oid, err := objectID(userID)
	if err != nil {
		return nil, err
	}
	return s.findPosts(ctx, bson.D{{Key: "user._id", Value: oid}}, options.Find().SetSort(newestFirst))
}

func (s *Store) CountPostsByUser(ctx context.Context, userID string) (int64, error) {
	oid, err := objectID(userID)
	if err != nil {
		return 0, err
	}
	return s.posts.CountDocuments(ctx, bson.D{{Key: "user._id", Value: oid}})
}

func (s *Store) UpdatePost(ctx context.Context, id string, patch model.PostPatch) (*model.Post, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc postDocument
	err = s.posts.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, patchUpdate(patch), opts).Decode(&doc)
	if err != nil {
		return nil, notFound(err)
	}
	out := doc.toModel()
	return &out, nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.posts.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *Store) findPosts(ctx context.Context, filter bson.D, opts *options.FindOptionsBuilder) ([]model.Post, error) {
	cursor, err := s.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []postDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	posts := make([]model.Post, 0, len(docs))
	for _, d := range docs {
		posts = append(posts, d.toModel())
	}
	return posts, nil
}

// patchUpdate builds the $set document for the fields present in patch.
func patchUpdate(patch model.PostPatch) bson.D {
	set := bson.D{{Key: "updatedAt", Value: patch.UpdatedAt}}
	if patch.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *patch.Title})
	}
	if patch.Body != nil {
		set = append(set, bson.E{Key: "body", Value: *patch.Body})
	}
	if patch.Images != nil {
		set = append(set, bson.E{Key: "images", Value: imageDocuments(*patch.Images)})
	}
	return bson.D{{Key: "$set", Value: set}}
}
