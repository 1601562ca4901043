// Package token issues and verifies the signed access and refresh tokens
// handed out by the session endpoints.
package token

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	// ErrExpired means the token was well formed and correctly signed but
	// its validity window has passed.
	ErrExpired = errors.New("token expired")
	// ErrInvalid covers everything else: bad signature, wrong algorithm,
	// malformed structure, missing claims or the wrong token kind.
	ErrInvalid = errors.New("invalid token")
)

type Claims struct {
	UserID   string `json:"_id"`
	Nickname string `json:"nickname"`
	Email    string `json:"email,omitempty"`
	// PasswordFingerprint is a digest of the password hash the refresh token
	// was minted against, never the hash itself.
	PasswordFingerprint string `json:"pwd,omitempty"`
	Kind                Kind   `json:"typ"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewManager(secret string, accessTTL, refreshTTL time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, fmt.Errorf("token ttl must be positive (access=%s refresh=%s)", accessTTL, refreshTTL)
	}
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// WithClock replaces the time source used for issuing and verifying.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) AccessTTL() time.Duration {
	return m.accessTTL
}

func (m *Manager) IssueAccessToken(userID, nickname string) (string, error) {
	return m.sign(Claims{
		UserID:   userID,
		Nickname: nickname,
		Kind:     KindAccess,
	}, m.accessTTL)
}

func (m *Manager) IssueRefreshToken(userID, nickname, email, passwordHash string) (string, error) {
	return m.sign(Claims{
		UserID:              userID,
		Nickname:            nickname,
		Email:               email,
		PasswordFingerprint: PasswordFingerprint(passwordHash),
		Kind:                KindRefresh,
	}, m.refreshTTL)
}

// Verify checks signature, algorithm, expiry and kind. The returned error
// is always ErrExpired or ErrInvalid (possibly wrapped).
func (m *Manager) Verify(raw string, kind Kind) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !tok.Valid || claims.UserID == "" {
		return nil, ErrInvalid
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrInvalid, kind, claims.Kind)
	}
	return claims, nil
}

func (m *Manager) sign(claims Claims, ttl time.Duration) (string, error) {
	now := m.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   claims.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", claims.Kind, err)
	}
	return signed, nil
}

func PasswordFingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
