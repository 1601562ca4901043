package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/frontyard/backend/internal/model"
	"github.com/frontyard/backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// writeError maps service errors to a status code and a {"message"} body.
// Anything unmapped is recorded on the context for the request logger and
// answered with a generic 500.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrNoFiles),
		errors.Is(err, service.ErrFileTooLarge):
		respond(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrMissingCredentials),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrUnauthorized):
		respond(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrForbidden):
		respond(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrConflict):
		respond(c, http.StatusConflict, "email already registered")
	case errors.Is(err, service.ErrNotFound):
		respond(c, http.StatusNotFound, err.Error())
	default:
		_ = c.Error(err)
		respond(c, http.StatusInternalServerError, "server error")
	}
}

// writeBindError reports request body problems as 400, naming the fields
// that failed validation.
func writeBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		respond(c, http.StatusBadRequest, "invalid fields: "+strings.Join(fields, ", "))
		return
	}
	respond(c, http.StatusBadRequest, "invalid request body")
}

// bindOptionalJSON treats an empty body as an empty request.
func bindOptionalJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func respond(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, model.ErrorResponse{Message: message})
}
