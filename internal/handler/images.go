package handler

import (
	"errors"
	"net/http"

	"github.com/frontyard/backend/internal/service"
	"github.com/gin-gonic/gin"
)

const uploadField = "files"

type ImageHandler struct {
	svc *service.ImageService
}

func NewImageHandler(svc *service.ImageService) *ImageHandler {
	return &ImageHandler{svc: svc}
}

// Upload godoc
// @Summary Upload images
// @Description Uploads every part of the "files" field to object storage.
// @Tags files
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param files formData file true "One or more files"
// @Success 200 {array} model.UploadedFile
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /files/upload [post]
func (h *ImageHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			writeError(c, service.ErrNoFiles)
			return
		}
		respond(c, http.StatusBadRequest, "invalid multipart form")
		return
	}

	uploaded, err := h.svc.Upload(c.Request.Context(), form.File[uploadField])
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, uploaded)
}
