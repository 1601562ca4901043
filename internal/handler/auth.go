package handler

import (
	"net/http"

	"github.com/frontyard/backend/internal/model"
	"github.com/frontyard/backend/internal/service"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register godoc
// @Summary Register a new user
// @Description Nickname defaults to the local part of the email.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.RegisterRequest true "Email, optional nickname and password"
// @Success 201 {object} model.AuthResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	session, err := h.svc.Register(c.Request.Context(), req.Email, req.Nickname, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sessionResponse(session))
}

// Login godoc
// @Summary Login
// @Description Issues a new token pair and replaces any previous session.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Email and password"
// @Success 200 {object} model.AuthResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		writeBindError(c, err)
		return
	}

	session, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessionResponse(session))
}

// Logout godoc
// @Summary Logout
// @Description Clears the stored refresh token. Send the refresh token as the Bearer credential.
// @Tags auth
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken, ok := bearerToken(c)
	if !ok {
		respond(c, http.StatusUnauthorized, msgMalformedToken)
		return
	}

	if err := h.svc.Logout(c.Request.Context(), refreshToken); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Refresh godoc
// @Summary Reissue access token
// @Description Mints a new access token from the refresh token sent as the Bearer credential.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.ReissueResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, ok := bearerToken(c)
	if !ok {
		respond(c, http.StatusUnauthorized, msgMalformedToken)
		return
	}

	accessToken, err := h.svc.Reissue(c.Request.Context(), refreshToken)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.ReissueResponse{AccessToken: accessToken})
}

// Me godoc
// @Summary Get current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.AuthMeResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		respond(c, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	c.JSON(http.StatusOK, model.AuthMeResponse{
		UserID:   user.ID,
		Nickname: user.Nickname,
	})
}

func sessionResponse(s *service.Session) model.AuthResponse {
	return model.AuthResponse{
		User: model.AuthSession{
			Info:         s.User.Info(),
			AccessToken:  s.AccessToken,
			RefreshToken: s.RefreshToken,
		},
	}
}
