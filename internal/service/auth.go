package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/frontyard/backend/internal/config"
	"github.com/frontyard/backend/internal/model"
	"github.com/frontyard/backend/internal/token"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// SetRefreshToken overwrites the stored refresh token; "" clears it.
	SetRefreshToken(ctx context.Context, id, refreshToken string) error
}

type TokenIssuer interface {
	IssueAccessToken(userID, nickname string) (string, error)
	IssueRefreshToken(userID, nickname, email, passwordHash string) (string, error)
	Verify(raw string, kind token.Kind) (*token.Claims, error)
}

type Session struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
}

// AuthService owns the session lifecycle: register, login, logout and
// access-token reissue. Each user has at most one live refresh token.
type AuthService struct {
	users      UserRepository
	tokens     TokenIssuer
	bcryptCost int
	now        func() time.Time
	log        *zap.Logger
}

func NewAuthService(users UserRepository, tokens TokenIssuer, cfg config.AuthConfig, log *zap.Logger) (*AuthService, error) {
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: invalid BCRYPT_COST %d", ErrMisconfigured, cost)
	}
	return &AuthService{
		users:      users,
		tokens:     tokens,
		bcryptCost: cost,
		now:        time.Now,
		log:        log,
	}, nil
}

func (s *AuthService) Register(ctx context.Context, email string, nickname *string, password string) (*Session, error) {
	const op = "AuthService.Register"
	log := s.log.With(zap.String("op", op))

	if email == "" || password == "" {
		return nil, ErrInvalidInput
	}

	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrConflict
	case !errors.Is(err, model.ErrNotFound):
		return nil, fmt.Errorf("%s: lookup email: %w", op, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%s: hash password: %w", op, err)
	}

	name := model.DefaultNickname(email)
	if nickname != nil && strings.TrimSpace(*nickname) != "" {
		name = strings.TrimSpace(*nickname)
	}

	user, err := s.users.CreateUser(ctx, &model.User{
		Email:        email,
		Nickname:     name,
		PasswordHash: string(hash),
		RegisteredAt: s.now().UTC(),
	})
	if err != nil {
		// 동시에 같은 이메일로 가입한 경우 unique 제약에서 걸린다
		if errors.Is(err, model.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("%s: create user: %w", op, err)
	}

	session, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", zap.String("user_id", user.ID))
	return session, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	const op = "AuthService.Login"

	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%s: lookup email: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	session, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("user logged in", zap.String("op", op), zap.String("user_id", user.ID))
	return session, nil
}

// Logout clears the stored refresh token. The presented token must be the
// one currently on file for its user.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	const op = "AuthService.Logout"

	claims, err := s.tokens.Verify(refreshToken, token.KindRefresh)
	if err != nil {
		return ErrUnauthorized
	}

	user, err := s.currentHolder(ctx, claims, refreshToken)
	if err != nil {
		return err
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, ""); err != nil {
		return fmt.Errorf("%s: clear refresh token: %w", op, err)
	}

	s.log.Info("user logged out", zap.String("op", op), zap.String("user_id", user.ID))
	return nil
}

// Reissue mints a new access token from a live refresh token. The refresh
// token and its expiry are left untouched.
func (s *AuthService) Reissue(ctx context.Context, refreshToken string) (string, error) {
	const op = "AuthService.Reissue"

	claims, err := s.tokens.Verify(refreshToken, token.KindRefresh)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}

	user, err := s.currentHolder(ctx, claims, refreshToken)
	if err != nil {
		return "", err
	}

	accessToken, err := s.tokens.IssueAccessToken(user.ID, user.Nickname)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return accessToken, nil
}

// Authenticate verifies an access token for the request guard.
func (s *AuthService) Authenticate(accessToken string) (*model.AuthUser, error) {
	claims, err := s.tokens.Verify(accessToken, token.KindAccess)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrUnauthorized
	}
	return &model.AuthUser{ID: claims.UserID, Nickname: claims.Nickname}, nil
}

// currentHolder loads the token's user and checks that the presented token
// is still the one on file and was minted against the current password.
func (s *AuthService) currentHolder(ctx context.Context, claims *token.Claims, presented string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrInvalidID) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user.RefreshToken == "" || user.RefreshToken != presented {
		return nil, ErrUnauthorized
	}
	if claims.PasswordFingerprint != token.PasswordFingerprint(user.PasswordHash) {
		return nil, ErrUnauthorized
	}
	return user, nil
}

func (s *AuthService) issueSession(ctx context.Context, user *model.User) (*Session, error) {
	accessToken, err := s.tokens.IssueAccessToken(user.ID, user.Nickname)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.tokens.IssueRefreshToken(user.ID, user.Nickname, user.Email, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	user.RefreshToken = refreshToken
	return &Session{User: user, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
