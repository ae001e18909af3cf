package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "envelope/internal/errors"
	"envelope/internal/logger"
	"envelope/internal/middleware"
)

// ErrorDetail represents the inner error object in an error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// Calendar resolves request dates in the budget's time zone.
type Calendar struct {
	Location *time.Location
	Now      func() time.Time
}

func (c Calendar) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func (c Calendar) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// today returns midnight of the current day.
func (c Calendar) today() time.Time {
	n := c.now().In(c.location())
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, c.location())
}

// parseDate accepts YYYY-MM-DD, read as midnight in the budget's zone, or
// RFC 3339.
func (c Calendar) parseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.ParseInLocation(time.DateOnly, value, c.location()); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid "+field+" format")
}

// parseOptionalDate returns nil for an empty value.
func (c Calendar) parseOptionalDate(field, value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := c.parseDate(field, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// getScope extracts the budget scope set by the auth middleware.
// Returns ErrUnauthorized if not present.
func getScope(c *gin.Context) (string, error) {
	scope := c.GetString(middleware.ScopeKey)
	if scope == "" {
		return "", apperrors.ErrUnauthorized
	}
	return scope, nil
}

// bindJSON binds the request body and reports binding failures as
// INVALID_INPUT.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return false
	}
	return true
}

// respondWithError writes a consistent JSON error response. If the error is an
// *AppError it uses the error's status code, code, and message. Otherwise it
// logs the unexpected error and returns a generic internal server error.
func respondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			logger.Named("http").Errorw("app error",
				"code", appErr.Code,
				"internal", appErr.Internal.Error(),
				"path", c.Request.URL.Path,
			)
		}
		c.JSON(appErr.StatusCode, ErrorResponse{Error: ErrorDetail{Code: appErr.Code, Message: appErr.Message}})
		return
	}

	logger.Named("http").Errorw("unexpected error",
		"error", err.Error(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)
	c.JSON(apperrors.ErrInternalServer.StatusCode, ErrorResponse{Error: ErrorDetail{
		Code:    apperrors.ErrInternalServer.Code,
		Message: apperrors.ErrInternalServer.Message,
	}})
}

// errorDetail renders err for embedding in a success response.
func errorDetail(err error) *ErrorDetail {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return &ErrorDetail{Code: appErr.Code, Message: appErr.Message}
	}
	return &ErrorDetail{Code: apperrors.ErrInternalServer.Code, Message: apperrors.ErrInternalServer.Message}
}
