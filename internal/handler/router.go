package handler

import (
	"github.com/frontyard/backend/internal/config"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth   *AuthHandler
	Posts  *PostHandler
	Images *ImageHandler
}

// NewRouter wires middleware and routes onto a fresh gin engine.
func NewRouter(h Handlers, authMW gin.HandlerFunc, cfg config.Config, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))
	router.Use(CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowCredentials))

	router.GET("/ping", Ping)
	router.GET("/", Root)
	router.GET("/openapi.json", OpenAPIDoc)

	auth := router.Group("/auth")
	auth.Use(RateLimitPerIP(cfg.RateLimit))
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/logout", h.Auth.Logout)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.GET("/me", authMW, h.Auth.Me)
	}

	posts := router.Group("/posts", authMW)
	{
		posts.GET("", h.Posts.ListPosts)
		posts.POST("", h.Posts.CreatePost)
		posts.GET("/user/:userId", h.Posts.ListUserPosts)
		posts.GET("/:postId", h.Posts.GetPost)
		posts.PATCH("/:postId", h.Posts.UpdatePost)
		posts.DELETE("/:postId", h.Posts.DeletePost)
	}

	router.POST("/files/upload", authMW, h.Images.Upload)

	return router
}
