package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/frontyard/backend/internal/model"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	previewLength   = 200
)

type PostRepository interface {
	CreatePost(ctx context.Context, post *model.Post) (*model.Post, error)
	GetPost(ctx context.Context, id string) (*model.Post, error)
	ListPosts(ctx context.Context, offset, limit int64) ([]model.Post, error)
	CountPosts(ctx context.Context) (int64, error)
	ListPostsByUser(ctx context.Context, userID string) ([]model.Post, error)
	CountPostsByUser(ctx context.Context, userID string) (int64, error)
	UpdatePost(ctx context.Context, id string, patch model.PostPatch) (*model.Post, error)
	DeletePost(ctx context.Context, id string) error
}

type PostPage struct {
	Posts    []model.Post
	Total    int64
	LastPage int64
}

type PostService struct {
	repo PostRepository
	now  func() time.Time
	log  *zap.Logger
}

func NewPostService(repo PostRepository, log *zap.Logger) *PostService {
	return &PostService{repo: repo, now: time.Now, log: log}
}

// List returns one page of posts, newest first, with bodies cut down to a
// preview.
func (s *PostService) List(ctx context.Context, page, limit int64) (*PostPage, error) {
	if page < 1 || limit < 1 || limit > MaxPageSize {
		return nil, ErrInvalidInput
	}
	// (page-1)*limit must fit in int64
	if page-1 > math.MaxInt64/limit {
		return nil, fmt.Errorf("%w: page out of range", ErrInvalidInput)
	}

	posts, err := s.repo.ListPosts(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	total, err := s.repo.CountPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}

	for i := range posts {
		posts[i].Title = norm.NFC.String(posts[i].Title)
		posts[i].Body = preview(norm.NFC.String(posts[i].Body))
	}

	return &PostPage{
		Posts:    nonNilPosts(posts),
		Total:    total,
		LastPage: (total + limit - 1) / limit,
	}, nil
}

func (s *PostService) Get(ctx context.Context, id string) (*model.Post, error) {
	post, err := s.repo.GetPost(ctx, id)
	if err != nil {
		return nil, mapPostErr(err)
	}
	return post, nil
}

func (s *PostService) Create(ctx context.Context, author *model.AuthUser, req model.CreatePostRequest) (*model.Post, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Body) == "" {
		return nil, ErrInvalidInput
	}

	images := req.Images
	if images == nil {
		images = []model.Image{}
	}

	post, err := s.repo.CreatePost(ctx, &model.Post{
		Title:     req.Title,
		Body:      req.Body,
		Images:    images,
		CreatedAt: s.now().UTC(),
		User:      model.PostAuthor{ID: author.ID, Nickname: author.Nickname},
	})
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.log.Info("post created", zap.String("post_id", post.ID), zap.String("user_id", author.ID))
	return post, nil
}

// Update applies a partial update. Empty title or body count as absent.
func (s *PostService) Update(ctx context.Context, author *model.AuthUser, id string, req model.UpdatePostRequest) (*model.Post, error) {
	patch := model.PostPatch{Images: req.Images, UpdatedAt: s.now().UTC()}
	if req.Title != nil && *req.Title != "" {
		patch.Title = req.Title
	}
	if req.Body != nil && *req.Body != "" {
		patch.Body = req.Body
	}
	if patch.Title == nil && patch.Body == nil && patch.Images == nil {
		return nil, ErrInvalidInput
	}

	if _, err := s.ownedPost(ctx, author, id); err != nil {
		return nil, err
	}

	post, err := s.repo.UpdatePost(ctx, id, patch)
	if err != nil {
		return nil, mapPostErr(err)
	}
	return post, nil
}

func (s *PostService) Delete(ctx context.Context, author *model.AuthUser, id string) error {
	if _, err := s.ownedPost(ctx, author, id); err != nil {
		return err
	}
	if err := s.repo.DeletePost(ctx, id); err != nil {
		return mapPostErr(err)
	}
	s.log.Info("post deleted", zap.String("post_id", id), zap.String("user_id", author.ID))
	return nil
}

func (s *PostService) ListByUser(ctx context.Context, author *model.AuthUser, userID string) (*PostPage, error) {
	if author.ID != userID {
		return nil, ErrForbidden
	}

	posts, err := s.repo.ListPostsByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrInvalidID) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("list posts by user: %w", err)
	}
	total, err := s.repo.CountPostsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count posts by user: %w", err)
	}
	return &PostPage{Posts: nonNilPosts(posts), Total: total}, nil
}

func (s *PostService) ownedPost(ctx context.Context, author *model.AuthUser, id string) (*model.Post, error) {
	post, err := s.repo.GetPost(ctx, id)
	if err != nil {
		return nil, mapPostErr(err)
	}
	if post.User.ID != author.ID {
		return nil, ErrForbidden
	}
	return post, nil
}

func mapPostErr(err error) error {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return ErrPostNotFound
	case errors.Is(err, model.ErrInvalidID):
		return fmt.Errorf("%w: malformed post id", ErrInvalidInput)
	default:
		return err
	}
}

// preview keeps bodies shorter than previewLength and cuts the rest.
func preview(body string) string {
	if utf8.RuneCountInString(body) < previewLength {
		return body
	}
	runes := []rune(body)
	return string(runes[:previewLength]) + "..."
}

func nonNilPosts(posts []model.Post) []model.Post {
	if posts == nil {
		return []model.Post{}
	}
	return posts
}
