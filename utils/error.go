package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	Details   string `json:"details,omitempty"`
}

// ErrorHandler is a middleware to catch panics and return structured errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				Logger := GetLogger()
				Logger.Error("Unhandled panic", zap.Any("error", err), zap.String("path", c.Request.URL.Path))

				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Internal Server Error",
					Details: "An unexpected error occurred. Please try again later.",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// JSONError sends a standardized JSON error response
func JSONError(c *gin.Context, status int, message string, details string) {
	Logger := GetLogger()
	Logger.Warn(message, zap.String("details", details))
	c.JSON(status, ErrorResponse{Message: message, Details: details})
}

// StatusFor maps an error kind onto the HTTP status a caller sees.
func StatusFor(kind ErrorKind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindCapacityConflict, KindStateConflict:
		return http.StatusConflict
	case KindExternalGateway:
		return http.StatusBadGateway
	case KindTransient:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// RespondError writes err as an ErrorResponse. Errors that are not an
// *AppError are logged and hidden behind a 500.
func RespondError(c *gin.Context, err error) {
	ae, ok := AsAppError(err)
	if !ok {
		GetLogger().Error("unclassified error", zap.Error(err), zap.String("path", c.Request.URL.Path))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal Server Error"})
		return
	}
	status := StatusFor(ae.Kind)
	if status >= http.StatusInternalServerError {
		GetLogger().Error(ae.Message, zap.String("code", ae.Code), zap.Error(ae.Err))
	} else {
		GetLogger().Debug(ae.Message, zap.String("code", ae.Code))
	}
	c.JSON(status, ErrorResponse{Message: ae.Message, Code: ae.Code, Retryable: ae.Retryable()})
}
