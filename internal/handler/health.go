package handler

import (
	"net/http"

	"github.com/frontyard/backend/internal/model"
	"github.com/gin-gonic/gin"
)

// Ping godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} model.PingResponse
// @Router /ping [get]
func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, model.PingResponse{Message: "pong"})
}

// 루트 엔드포인트
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, model.RootResponse{
		Status:  "ok",
		Message: "frontyard blog API is running",
	})
}
