package types

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/sttclient/internal/services/catalog"
	"github.com/killallgit/sttclient/internal/services/history"
	"github.com/killallgit/sttclient/internal/services/tasks"
	"github.com/killallgit/sttclient/internal/store"
	apperrors "github.com/killallgit/sttclient/pkg/errors"
)

// Handler utility functions to reduce duplication across handlers

// ParseIntQuery reads an integer query parameter, falling back to def when
// absent. Sends an error response if the value is not a number.
func ParseIntQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Status:  StatusError,
			Message: "Invalid " + name,
		})
		return 0, false
	}
	return value, true
}

// BindJSONOrError attempts to bind JSON request body to target struct
// Returns false and sends error response if binding fails
func BindJSONOrError(c *gin.Context, target interface{}) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Status:  StatusError,
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return false
	}
	return true
}

// StatusFor maps a service error onto an HTTP status code
func StatusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, store.ErrFileNotFound),
		errors.Is(err, store.ErrModelNotFound),
		errors.Is(err, store.ErrUploadNotFound),
		errors.Is(err, history.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, tasks.ErrTaskActive),
		errors.Is(err, tasks.ErrTaskNotFinished),
		errors.Is(err, tasks.ErrNoResult),
		errors.Is(err, catalog.ErrModelSelected):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrNoBackend):
		return http.StatusServiceUnavailable
	default:
		return apperrors.HTTPStatus(err)
	}
}

// SendError sends an error response with the status derived from err
func SendError(c *gin.Context, err error) {
	resp := ErrorResponse{
		Status:  StatusError,
		Message: apperrors.Message(err),
		Error:   string(apperrors.KindOf(err)),
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && len(appErr.Details) > 0 {
		resp.Details = appErr.Details
	}
	c.JSON(StatusFor(err), resp)
}

// SendBadRequest sends a standardized bad request response
func SendBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Status: StatusError, Message: message})
}

// SendServiceUnavailable reports a component that is not configured
func SendServiceUnavailable(c *gin.Context, message string) {
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{Status: StatusError, Message: message})
}

// SendSuccess sends a standardized success response with data
func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// SendCreated sends a standardized created response with data
func SendCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// SendAccepted reports work that continues in the background
func SendAccepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, data)
}
