package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/frontyard/backend/internal/config"
	"github.com/frontyard/backend/internal/db/memory"
	"github.com/frontyard/backend/internal/model"
	"github.com/frontyard/backend/internal/service"
	"github.com/frontyard/backend/internal/token"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "handler-test-secret"

type fakeObjectStore struct{}

func (fakeObjectStore) PutObject(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	return "https://bucket.example/" + key, nil
}

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:     testSecret,
			JWTAccessTTL:  30 * time.Minute,
			JWTRefreshTTL: 14 * 24 * time.Hour,
			BcryptCost:    bcrypt.MinCost,
		},
		RateLimit: config.RateLimitConfig{RPS: 1000, Burst: 1000, CacheSize: 16, TTL: time.Minute},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}, AllowCredentials: true},
	}
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	store := memory.New()
	tokens, err := token.NewManager(testSecret, cfg.Auth.JWTAccessTTL, cfg.Auth.JWTRefreshTTL)
	require.NoError(t, err)

	authService, err := service.NewAuthService(store, tokens, cfg.Auth, zap.NewNop())
	require.NoError(t, err)

	return NewRouter(Handlers{
		Auth:   NewAuthHandler(authService),
		Posts:  NewPostHandler(service.NewPostService(store, zap.NewNop())),
		Images: NewImageHandler(service.NewImageService(fakeObjectStore{}, 1024, zap.NewNop())),
	}, AuthMiddleware(authService), cfg, zap.NewNop())
}

func doJSON(t *testing.T, r http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func register(t *testing.T, r http.Handler, email string) model.AuthSession {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/auth/register", "", map[string]any{"email": email, "password": "pw1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[model.AuthResponse](t, w).User
}

func TestGuardRejectsBadCredentials(t *testing.T) {
	r := newTestRouter(t)

	past, err := token.NewManager(testSecret, 30*time.Minute, time.Hour)
	require.NoError(t, err)
	past.WithClock(func() time.Time { return time.Now().Add(-time.Hour) })
	expired, err := past.IssueAccessToken("0f8fad5b-d9cb-469f-a165-70867728950e", "kim")
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		message string
	}{
		{"missing header", "", msgMalformedToken},
		{"wrong scheme", "Basic abc", msgMalformedToken},
		{"scheme only", "Bearer", msgMalformedToken},
		{"empty credential", "Bearer ", msgMalformedToken},
		{"extra part", "Bearer a b", msgMalformedToken},
		{"garbage token", "Bearer not.a.jwt", msgUnauthorized},
		{"expired token", "Bearer " + expired, msgTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/posts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.message, decode[model.ErrorResponse](t, w).Message)
		})
	}
}

func TestGuardRejectsRefreshTokenAsAccess(t *testing.T) {
	r := newTestRouter(t)
	session := register(t, r, "a@x.com")

	w := doJSON(t, r, http.MethodGet, "/posts", session.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionLifecycle(t *testing.T) {
	r := newTestRouter(t)

	session := register(t, r, "a@x.com")
	assert.Equal(t, "a", session.Info.Nickname)
	assert.Equal(t, "a@x.com", session.Info.Email)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)

	w := doJSON(t, r, http.MethodPost, "/auth/register", "", map[string]any{"email": "a@x.com", "password": "other"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPost, "/auth/login", "", map[string]any{"email": "a@x.com", "password": "pw1"})
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[model.AuthResponse](t, w).User

	w = doJSON(t, r, http.MethodPost, "/auth/refresh", login.RefreshToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[model.ReissueResponse](t, w).AccessToken)

	// the registration session was replaced by the login
	w = doJSON(t, r, http.MethodPost, "/auth/refresh", session.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodPost, "/auth/logout", login.RefreshToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/auth/refresh", login.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodPost, "/auth/logout", login.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginFailures(t *testing.T) {
	r := newTestRouter(t)
	register(t, r, "a@x.com")

	tests := []struct {
		name    string
		body    any
		message string
	}{
		{"no body", nil, service.ErrMissingCredentials.Error()},
		{"empty password", map[string]any{"email": "a@x.com"}, service.ErrMissingCredentials.Error()},
		{"unknown email", map[string]any{"email": "b@x.com", "password": "pw1"}, service.ErrInvalidCredentials.Error()},
		{"wrong password", map[string]any{"email": "a@x.com", "password": "nope"}, service.ErrInvalidCredentials.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/auth/login", "", tt.body)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.message, decode[model.ErrorResponse](t, w).Message)
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/auth/register", "", map[string]any{"email": "not-an-email", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[model.ErrorResponse](t, w).Message, "Email")

	w = doJSON(t, r, http.MethodPost, "/auth/register", "", map[string]any{"email": "a@x.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[model.ErrorResponse](t, w).Message, "Password")
}

func TestRefreshWithInvalidToken(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/auth/refresh", "not.a.jwt", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/auth/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe(t *testing.T) {
	r := newTestRouter(t)
	session := register(t, r, "kim@x.com")

	w := doJSON(t, r, http.MethodGet, "/auth/me", session.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[model.AuthMeResponse](t, w)
	assert.Equal(t, session.Info.ID, me.UserID)
	assert.Equal(t, "kim", me.Nickname)
}

func TestPostsFlow(t *testing.T) {
	r := newTestRouter(t)
	alice := register(t, r, "alice@x.com")
	bob := register(t, r, "bob@x.com")

	w := doJSON(t, r, http.MethodPost, "/posts", alice.AccessToken, map[string]any{"title": "first", "body": "hello"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	post := decode[model.Post](t, w)
	assert.Equal(t, alice.Info.ID, post.User.ID)
	assert.Equal(t, "alice", post.User.Nickname)
	assert.NotNil(t, post.Images)

	w = doJSON(t, r, http.MethodPost, "/posts", alice.AccessToken, map[string]any{"title": "no body"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/posts?page=1&limit=10", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("Last-Page"))
	list := decode[model.PostListResponse](t, w)
	assert.Equal(t, int64(1), list.TotalCount)
	require.Len(t, list.Data, 1)

	w = doJSON(t, r, http.MethodGet, "/posts?page=zero", bob.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/posts/"+post.ID, bob.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/posts/not-an-id", bob.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPatch, "/posts/"+post.ID, bob.AccessToken, map[string]any{"title": "mine now"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPatch, "/posts/"+post.ID, alice.AccessToken, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPatch, "/posts/"+post.ID, alice.AccessToken, map[string]any{"title": "edited"})
	require.Equal(t, http.StatusOK, w.Code)
	edited := decode[model.Post](t, w)
	assert.Equal(t, "edited", edited.Title)
	assert.Equal(t, "hello", edited.Body)
	assert.NotNil(t, edited.UpdatedAt)

	w = doJSON(t, r, http.MethodGet, "/posts/user/"+alice.Info.ID, bob.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodGet, "/posts/user/"+alice.Info.ID, alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[model.PostListResponse](t, w).TotalCount)

	w = doJSON(t, r, http.MethodDelete, "/posts/"+post.ID, bob.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/posts/"+post.ID, alice.AccessToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet, "/posts/"+post.ID, alice.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpload(t *testing.T) {
	r := newTestRouter(t)
	session := register(t, r, "a@x.com")

	upload := func(t *testing.T, field string, content []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile(field, "cat.png")
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/files/upload", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+session.AccessToken)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := upload(t, "files", []byte("png"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	files := decode[[]model.UploadedFile](t, w)
	require.Len(t, files, 1)
	assert.Equal(t, "cat.png", files[0].Name)
	assert.Contains(t, files[0].Location, "https://bucket.example/images/")

	w = upload(t, "other", []byte("png"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = upload(t, "files", bytes.Repeat([]byte("x"), 2048))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/files/upload", session.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimitPerIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitPerIP(config.RateLimitConfig{RPS: 0.001, Burst: 1, CacheSize: 8, TTL: time.Minute}))
	r.GET("/ping", Ping)

	hit := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, hit("10.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1:1235"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.2:1234"))
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/posts", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/posts", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", decode[model.PingResponse](t, w).Message)

	w = doJSON(t, r, http.MethodGet, "/openapi.json", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Contains(t, doc, "paths")
}

func TestListPostsPagingBounds(t *testing.T) {
	r := newTestRouter(t)
	session := register(t, r, "a@x.com")

	w := doJSON(t, r, http.MethodPost, "/posts", session.AccessToken, map[string]any{"title": "t", "body": "b"})
	require.Equal(t, http.StatusCreated, w.Code)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"defaults", "", http.StatusOK},
		{"max limit", "?limit=100", http.StatusOK},
		{"zero limit", "?limit=0", http.StatusBadRequest},
		{"limit over max", "?limit=101", http.StatusBadRequest},
		{"negative page", "?page=-1", http.StatusBadRequest},
		{"offset overflows", "?page=4611686018427387904&limit=4", http.StatusBadRequest},
		{"max int page", "?page=9223372036854775807", http.StatusBadRequest},
		{"page beyond int64", "?page=9223372036854775808", http.StatusBadRequest},
		{"far but valid page", "?page=1000&limit=100", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodGet, "/posts"+tt.query, session.AccessToken, nil)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}
