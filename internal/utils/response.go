package utils

import (
	"errors"
	"net/http"

	"medbot-server/internal/accounts"
	"medbot-server/internal/appointments"
	"medbot-server/internal/conversation"
	"medbot-server/internal/directory"

	"github.com/gin-gonic/gin"
)

// ResponseData represents the structure of a standard API response.
type ResponseData struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success sends a standard success response.
func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, ResponseData{
		Status:  http.StatusOK,
		Message: message,
		Data:    data,
	})
}

// Created sends a standard resource created response.
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, ResponseData{
		Status:  http.StatusCreated,
		Message: message,
		Data:    data,
	})
}

// Error sends a standard error response.
func Error(c *gin.Context, statusCode int, errorMessage string) {
	c.JSON(statusCode, ResponseData{
		Status:  statusCode,
		Message: "An error occurred",
		Error:   errorMessage,
	})
}

// BadRequest sends a 400 Bad Request error response.
func BadRequest(c *gin.Context, errorMessage string) {
	Error(c, http.StatusBadRequest, errorMessage)
}

// Unauthorized sends a 401 Unauthorized error response.
func Unauthorized(c *gin.Context, errorMessage string) {
	Error(c, http.StatusUnauthorized, errorMessage)
}

// Forbidden sends a 403 Forbidden error response.
func Forbidden(c *gin.Context, errorMessage string) {
	Error(c, http.StatusForbidden, errorMessage)
}

// NotFound sends a 404 Not Found error response.
func NotFound(c *gin.Context, errorMessage string) {
	Error(c, http.StatusNotFound, errorMessage)
}

// Conflict sends a 409 Conflict error response.
func Conflict(c *gin.Context, errorMessage string) {
	Error(c, http.StatusConflict, errorMessage)
}

// InternalServerError sends a 500 Internal Server Error response.
func InternalServerError(c *gin.Context, errorMessage string) {
	Error(c, http.StatusInternalServerError, errorMessage)
}

// RespondError maps a domain error to its HTTP status. Unknown errors are
// reported as 500 with fallback as the message.
func RespondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, appointments.ErrNotFound),
		errors.Is(err, directory.ErrIndexOutOfRange):
		NotFound(c, err.Error())
	case errors.Is(err, appointments.ErrForbidden):
		Forbidden(c, err.Error())
	case errors.Is(err, appointments.ErrInvalidTransition),
		errors.Is(err, directory.ErrDuplicateUsername),
		errors.Is(err, conversation.ErrConversationInProgress),
		errors.Is(err, conversation.ErrNotAwaiting):
		Conflict(c, err.Error())
	case errors.Is(err, appointments.ErrInvalidRequest),
		errors.Is(err, directory.ErrInvalidDoctor),
		errors.Is(err, conversation.ErrBlankUtterance),
		errors.Is(err, conversation.ErrBlankAnswer),
		errors.Is(err, accounts.ErrBlankUsername):
		BadRequest(c, err.Error())
	case errors.Is(err, accounts.ErrInvalidCredentials):
		Unauthorized(c, err.Error())
	default:
		InternalServerError(c, fallback)
	}
}
