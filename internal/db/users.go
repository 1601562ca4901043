package db

import (
	"context"

	"github.com/frontyard/backend/internal/model"
	"github.com/google/uuid"
)

const userColumns = `id::text, email, nickname, password_hash, refresh_token, registered_at, updated_at`

func (db *Postgres) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	query := `
		INSERT INTO users (id, email, nickname, password_hash, refresh_token, registered_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING ` + userColumns
	row := db.Pool.QueryRow(ctx, query,
		uuid.NewString(),
		user.Email,
		user.Nickname,
		user.PasswordHash,
		user.RefreshToken,
	)
	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, model.ErrDuplicate
		}
		return nil, err
	}
	return created, nil
}

func (db *Postgres) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(db.Pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (db *Postgres) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

// SetRefreshToken은 사용자당 하나뿐인 refresh token을 덮어쓴다. 빈 문자열이면 로그아웃 상태.
func (db *Postgres) SetRefreshToken(ctx context.Context, id, refreshToken string) error {
	if err := checkID(id); err != nil {
		return err
	}
	tag, err := db.Pool.Exec(ctx, `UPDATE users SET refresh_token = $2 WHERE id = $1`, id, refreshToken)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Nickname,
		&user.PasswordHash,
		&user.RefreshToken,
		&user.RegisteredAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return model.ErrInvalidID
	}
	return nil
}

func notFound(err error) error {
	if IsNoRows(err) {
		return model.ErrNotFound
	}
	return err
}
