package model

import (
	"strings"
	"time"
)

type RegisterRequest struct {
	Email    string  `json:"email" binding:"required,email"`
	Nickname *string `json:"nickname"`
	Password string  `json:"password" binding:"required"`
}

// LoginRequest fields are deliberately not bound as required: empty
// credentials are answered with 401, not 400.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User AuthSession `json:"user"`
}

type AuthSession struct {
	Info         UserInfo `json:"info"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
}

type ReissueResponse struct {
	AccessToken string `json:"access_token"`
}

type AuthMeResponse struct {
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
}

// AuthUser is the identity the access guard attaches to a request.
type AuthUser struct {
	ID       string
	Nickname string
}

type User struct {
	ID           string
	Email        string
	Nickname     string
	PasswordHash string
	RefreshToken string
	RegisteredAt time.Time
	UpdatedAt    *time.Time
}

// UserInfo is the public view of a user; it never carries the password
// hash or the stored refresh token.
type UserInfo struct {
	ID           string     `json:"_id"`
	Email        string     `json:"email"`
	Nickname     string     `json:"nickname"`
	RegisteredAt time.Time  `json:"registeredAt"`
	UpdatedAt    *time.Time `json:"updatedAt"`
}

func (u *User) Info() UserInfo {
	return UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		Nickname:     u.Nickname,
		RegisteredAt: u.RegisteredAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// DefaultNickname returns the local part of an email address.
func DefaultNickname(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
