package handler

import (
	"net/http"
	"strconv"

	"github.com/frontyard/backend/internal/model"
	"github.com/frontyard/backend/internal/service"
	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	svc *service.PostService
}

func NewPostHandler(svc *service.PostService) *PostHandler {
	return &PostHandler{svc: svc}
}

// ListPosts godoc
// @Summary List posts
// @Description Newest first. Bodies are cut to a 200 character preview. The Last-Page header carries the page count.
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (default 10, max 100)"
// @Success 200 {object} model.PostListResponse
// @Header 200 {integer} Last-Page "Number of pages"
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /posts [get]
func (h *PostHandler) ListPosts(c *gin.Context) {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", service.DefaultPageSize)
	if !ok {
		return
	}

	result, err := h.svc.List(c.Request.Context(), page, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Last-Page", strconv.FormatInt(result.LastPage, 10))
	c.JSON(http.StatusOK, model.PostListResponse{Data: result.Posts, TotalCount: result.Total})
}

// GetPost godoc
// @Summary Get post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param postId path string true "Post ID"
// @Success 200 {object} model.Post
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /posts/{postId} [get]
func (h *PostHandler) GetPost(c *gin.Context) {
	post, err := h.svc.Get(c.Request.Context(), c.Param("postId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// CreatePost godoc
// @Summary Create post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.CreatePostRequest true "Post"
// @Success 201 {object} model.Post
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /posts [post]
func (h *PostHandler) CreatePost(c *gin.Context) {
	var req model.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	post, err := h.svc.Create(c.Request.Context(), GetAuthUser(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// UpdatePost godoc
// @Summary Update post
// @Description Partial update; only the author may edit.
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param postId path string true "Post ID"
// @Param request body model.UpdatePostRequest true "Fields to change"
// @Success 200 {object} model.Post
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /posts/{postId} [patch]
func (h *PostHandler) UpdatePost(c *gin.Context) {
	var req model.UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	post, err := h.svc.Update(c.Request.Context(), GetAuthUser(c), c.Param("postId"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// DeletePost godoc
// @Summary Delete post
// @Tags posts
// @Security BearerAuth
// @Param postId path string true "Post ID"
// @Success 204
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /posts/{postId} [delete]
func (h *PostHandler) DeletePost(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), GetAuthUser(c), c.Param("postId")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListUserPosts godoc
// @Summary List the caller's posts
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID (must be the caller)"
// @Success 200 {object} model.PostListResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /posts/user/{userId} [get]
func (h *PostHandler) ListUserPosts(c *gin.Context) {
	result, err := h.svc.ListByUser(c.Request.Context(), GetAuthUser(c), c.Param("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.PostListResponse{Data: result.Posts, TotalCount: result.Total})
}

func queryInt(c *gin.Context, key string, def int64) (int64, bool) {
	raw, ok := c.GetQuery(key)
	if !ok {
		return def, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 1 {
		respond(c, http.StatusBadRequest, "invalid "+key)
		return 0, false
	}
	return v, true
}
