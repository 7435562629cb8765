package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/nibsworks/tms-scheduler/pkg/errors"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorHandler converts errors attached to the gin context into JSON
// responses with the right status code.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		rid := c.GetString(ContextRequestID)

		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("request_id", rid).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Str("client_ip", c.ClientIP()).
				Msg("Request error")
		}

		lastErr := c.Errors.Last()
		status := statusFor(lastErr.Err)

		c.JSON(status, ErrorResponse{
			Code:      status,
			Message:   lastErr.Error(),
			RequestID: rid,
		})
	}
}

func statusFor(err error) int {
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
