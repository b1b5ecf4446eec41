package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/rto-dispatch-api/services"
)

// StatusFor maps a service error kind to its HTTP status
func StatusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrProfileIncomplete), errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidTransition), errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// RespondError writes the standard error envelope for err
func RespondError(c *gin.Context, err error) {
	code := "INTERNAL_ERROR"
	message := "Internal Server Error"
	if se, ok := services.AsServiceError(err); ok {
		code = se.Code
		message = se.Message
	}
	Fail(c, StatusFor(err), code, message)
}

// Fail writes an error envelope with an explicit status and code
func Fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// Succeed writes the success envelope
func Succeed(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}
