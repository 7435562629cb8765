package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/nibsworks/tms-scheduler/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// Error writes the HTTP translation of an application error.
func Error(c *gin.Context, err error) {
	c.JSON(StatusOf(err), NewErrorResponse(err.Error()))
}

// StatusOf maps application error codes to HTTP statuses. Storage failures
// are 503 so callers know the operation is retryable.
func StatusOf(err error) int {
	switch apperrors.CodeOf(err) {
	case apperrors.ErrNotFound:
		return http.StatusNotFound
	case apperrors.ErrBadRequest:
		return http.StatusBadRequest
	case apperrors.ErrConflict:
		return http.StatusConflict
	case apperrors.ErrUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
