// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"errors"
	"net/http"

	"sales_leads_backend/platform/apperr"
	"sales_leads_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error string `json:"error"`
}

const msgInternal = "Internal server error"

// JSON sends a JSON response with the given status code.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Error sends an error response with the given status code and message.
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// OK sends a 200 OK response with the given payload.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// NoContent sends an empty 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// HandleError maps domain errors to HTTP responses. This is the only place
// where error kinds become status codes. Errors outside the taxonomy are
// logged and answered with a generic 500 so their text never reaches clients.
// Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, log *logger.Logger, err error) bool {
	if err == nil {
		return false
	}

	var domainErr *apperr.Error
	if !errors.As(err, &domainErr) {
		if log != nil {
			log.WithContext(c.Request.Context()).
				HTTPError(c.Request.Method, c.Request.URL.Path, http.StatusInternalServerError, err, c.ClientIP())
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgInternal})
		return true
	}

	status := domainErr.HTTPStatus()
	if status >= http.StatusInternalServerError && log != nil {
		log.WithContext(c.Request.Context()).
			HTTPError(c.Request.Method, c.Request.URL.Path, status, err, c.ClientIP())
	}
	c.JSON(status, ErrorResponse{Error: domainErr.Message})
	return true
}
