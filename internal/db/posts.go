package db

import (
	"context"

	"github.com/frontyard/backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const postColumns = `id::text, title, body, images, created_at, updated_at, user_id::text, user_nickname`

func (db *Postgres) CreatePost(ctx context.Context, post *model.Post) (*model.Post, error) {
	images := post.Images
	if images == nil {
		images = []model.Image{}
	}
	query := `
		INSERT INTO posts (id, title, body, images, user_id, user_nickname, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + postColumns
	return scanPost(db.Pool.QueryRow(ctx, query,
		uuid.NewString(),
		post.Title,
		post.Body,
		images,
		post.User.ID,
		post.User.Nickname,
		post.CreatedAt,
	))
}

func (db *Postgres) GetPost(ctx context.Context, id string) (*model.Post, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	post, err := scanPost(db.Pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return post, nil
}

func (db *Postgres) ListPosts(ctx context.Context, offset, limit int64) ([]model.Post, error) {
	if offset < 0 || limit < 0 {
		return nil, model.ErrInvalidRange
	}
	query := `
		SELECT ` + postColumns + `
		FROM posts
		ORDER BY created_at DESC, id DESC
		OFFSET $1 LIMIT $2
	`
	rows, err := db.Pool.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, err
	}
	return collectPosts(rows)
}

func (db *Postgres) CountPosts(ctx context.Context) (int64, error) {
	var total int64
	err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts`).Scan(&total)
	return total, err
}

func (db *Postgres) ListPostsByUser(ctx context.Context, userID string) ([]model.Post, error) {
	if err := checkID(userID); err != nil {
		return nil, err
	}
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return collectPosts(rows)
}

func (db *Postgres) CountPostsByUser(ctx context.Context, userID string) (int64, error) {
	if err := checkID(userID); err != nil {
		return 0, err
	}
	var total int64
	err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts WHERE user_id = $1`, userID).Scan(&total)
	return total, err
}

// UpdatePost는 nil이 아닌 필드만 덮어쓰고 updated_at을 갱신한다.
func (db *Postgres) UpdatePost(ctx context.Context, id string, patch model.PostPatch) (*model.Post, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var images any
	if patch.Images != nil {
		imgs := *patch.Images
		if imgs == nil {
			imgs = []model.Image{}
		}
		images = imgs
	}
	query := `
		UPDATE posts
		SET title = COALESCE($2, title),
			body = COALESCE($3, body),
			images = COALESCE($4::jsonb, images),
			updated_at = $5
		WHERE id = $1
		RETURNING ` + postColumns
	post, err := scanPost(db.Pool.QueryRow(ctx, query, id, patch.Title, patch.Body, images, patch.UpdatedAt))
	if err != nil {
		return nil, notFound(err)
	}
	return post, nil
}

func (db *Postgres) DeletePost(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	tag, err := db.Pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func scanPost(row rowScanner) (*model.Post, error) {
	var post model.Post
	err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Body,
		&post.Images,
		&post.CreatedAt,
		&post.UpdatedAt,
		&post.User.ID,
		&post.User.Nickname,
	)
	if err != nil {
		return nil, err
	}
	if post.Images == nil {
		post.Images = []model.Image{}
	}
	return &post, nil
}

func collectPosts(rows pgx.Rows) ([]model.Post, error) {
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}
