// Package memory is a process-local implementation of the user and post
// repositories, used for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/frontyard/backend/internal/model"
	"github.com/google/uuid"
)

type Store struct {
	mu      sync.RWMutex
	users   map[string]model.User
	byEmail map[string]string
	posts   map[string]model.Post
}

func New() *Store {
	return &Store{
		users:   make(map[string]model.User),
		byEmail: make(map[string]string),
		posts:   make(map[string]model.Post),
	}
}

func (s *Store) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[user.Email]; ok {
		return nil, model.ErrDuplicate
	}
	u := *user
	u.ID = uuid.NewString()
	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, model.ErrNotFound
	}
	u := s.users[id]
	return &u, nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &u, nil
}

func (s *Store) SetRefreshToken(_ context.Context, id, refreshToken string) error {
	if err := checkID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return model.ErrNotFound
	}
	u.RefreshToken = refreshToken
	s.users[id] = u
	return nil
}

func (s *Store) CreatePost(_ context.Context, post *model.Post) (*model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := clonePost(*post)
	p.ID = uuid.NewString()
	s.posts[p.ID] = p
	out := clonePost(p)
	return &out, nil
}

func (s *Store) GetPost(_ context.Context, id string) (*model.Post, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := clonePost(p)
	return &out, nil
}

func (s *Store) ListPosts(_ context.Context, offset, limit int64) ([]model.Post, error) {
	if offset < 0 || limit < 0 {
		return nil, model.ErrInvalidRange
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sorted(func(model.Post) bool { return true })
	if offset >= int64(len(all)) {
		return []model.Post{}, nil
	}
	end := offset + limit
	if end > int64(len(all)) || end < offset {
		end = int64(len(all))
	}
	return all[offset:end], nil
}

func (s *Store) CountPosts(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.posts)), nil
}

func (s *Store) ListPostsByUser(_ context.Context, userID string) ([]model.Post, error) {
	if err := checkID(userID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(p model.Post) bool { return p.User.ID == userID }), nil
}

func (s *Store) CountPostsByUser(_ context.Context, userID string) (int64, error) {
	if err := checkID(userID); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, p := range s.posts {
		if p.User.ID == userID {
			n++
		}
	}
	return n, nil
}

func (s *Store) UpdatePost(_ context.Context, id string, patch model.PostPatch) (*model.Post, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Body != nil {
		p.Body = *patch.Body
	}
	if patch.Images != nil {
		p.Images = append([]model.Image{}, (*patch.Images)...)
	}
	updatedAt := patch.UpdatedAt
	p.UpdatedAt = &updatedAt
	s.posts[id] = p

	out := clonePost(p)
	return &out, nil
}

func (s *Store) DeletePost(_ context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.posts, id)
	return nil
}

// sorted returns matching posts newest first. Callers hold the read lock.
func (s *Store) sorted(keep func(model.Post) bool) []model.Post {
	out := make([]model.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if keep(p) {
			out = append(out, clonePost(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func clonePost(p model.Post) model.Post {
	p.Images = append([]model.Image{}, p.Images...)
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		p.UpdatedAt = &t
	}
	return p
}

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return model.ErrInvalidID
	}
	return nil
}
