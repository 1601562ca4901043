package memory

import (
	"context"
	"testing"
	"time"

	"github.com/frontyard/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := New()

	u, err := s.CreateUser(ctx, &model.User{Email: "a@x.com", Nickname: "a", PasswordHash: "h"})
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)

	_, err = s.CreateUser(ctx, &model.User{Email: "a@x.com"})
	assert.ErrorIs(t, err, model.ErrDuplicate)

	_, err = s.GetUserByEmail(ctx, "A@x.com")
	assert.ErrorIs(t, err, model.ErrNotFound, "email match is case-sensitive")

	require.NoError(t, s.SetRefreshToken(ctx, u.ID, "rt"))
	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "rt", got.RefreshToken)

	_, err = s.GetUserByID(ctx, "nope")
	assert.ErrorIs(t, err, model.ErrInvalidID)
}

func TestPostsPagingAndPatch(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	author := model.PostAuthor{ID: "6f1c2a8e-7d7b-4c55-9d8a-2f5b1e0c9a11", Nickname: "a"}

	var ids []string
	for i := 0; i < 5; i++ {
		p, err := s.CreatePost(ctx, &model.Post{Title: "t", Body: "b", CreatedAt: base.Add(time.Duration(i) * time.Hour), User: author})
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	page, err := s.ListPosts(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)

	page, err = s.ListPosts(ctx, 4, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)

	n, err := s.CountPostsByUser(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	title := "new"
	updated, err := s.UpdatePost(ctx, ids[0], model.PostPatch{Title: &title, UpdatedAt: base})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Title)
	assert.Equal(t, "b", updated.Body)
	require.NotNil(t, updated.UpdatedAt)

	require.NoError(t, s.DeletePost(ctx, ids[0]))
	assert.ErrorIs(t, s.DeletePost(ctx, ids[0]), model.ErrNotFound)
}

func TestListPostsRejectsNegativeRange(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.ListPosts(ctx, -4, 4)
	assert.ErrorIs(t, err, model.ErrInvalidRange)

	_, err = s.ListPosts(ctx, 0, -1)
	assert.ErrorIs(t, err, model.ErrInvalidRange)

	posts, err := s.ListPosts(ctx, 1<<62, 4)
	require.NoError(t, err)
	assert.Empty(t, posts)
}
