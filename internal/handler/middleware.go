package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/frontyard/backend/internal/config"
	"github.com/frontyard/backend/internal/model"
	"github.com/frontyard/backend/internal/service"
	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const authUserKey = "auth_user"

const (
	msgMalformedToken = "missing or malformed token"
	msgTokenExpired   = "token expired"
	msgUnauthorized   = "unauthorized"
)

// AuthMiddleware는 Bearer access token을 검증하고 요청 컨텍스트에 사용자 정보를 남긴다.
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			respond(c, http.StatusUnauthorized, msgMalformedToken)
			return
		}

		user, err := authService.Authenticate(token)
		if err != nil {
			if errors.Is(err, service.ErrTokenExpired) {
				respond(c, http.StatusUnauthorized, msgTokenExpired)
				return
			}
			respond(c, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		c.Set(authUserKey, user)
		c.Next()
	}
}

// bearerToken accepts exactly "Bearer <credential>" with a non-empty credential.
func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.Split(c.GetHeader("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func GetAuthUser(c *gin.Context) *model.AuthUser {
	if value, ok := c.Get(authUserKey); ok {
		if user, ok := value.(*model.AuthUser); ok {
			return user
		}
	}
	return nil
}

func CORSMiddleware(allowedOrigins []string, allowCredentials bool) gin.HandlerFunc {
	originMap := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		originMap[trimmed] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := originMap[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
				if allowCredentials {
					c.Header("Access-Control-Allow-Credentials", "true")
				}
				c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
				c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
				c.Header("Access-Control-Expose-Headers", "Last-Page")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestLogger writes one access log line per request. Header values are
// never logged, so tokens and cookies stay out of the logs.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// RateLimitPerIP throttles each client IP with its own token bucket. Idle
// buckets expire from the LRU after cfg.TTL.
func RateLimitPerIP(cfg config.RateLimitConfig) gin.HandlerFunc {
	visitors := lru.NewLRU[string, *rate.Limiter](cfg.CacheSize, nil, cfg.TTL)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		lim, found := visitors.Get(ip)
		if !found {
			lim = rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)
			visitors.Add(ip, lim)
		}

		if !lim.Allow() {
			respond(c, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		c.Next()
	}
}
