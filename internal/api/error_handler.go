package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hitpoints/hitpoints-service/internal/core/domain"
	"github.com/hitpoints/hitpoints-service/internal/infrastructure/queue"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler maps domain errors to status codes and renders
// {"error": "<message>"}. Unexpected errors are logged and reported as a bare 500.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrCharacterNotFound):
		return http.StatusNotFound, "character not found"
	case errors.Is(err, domain.ErrInvalidCommand):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrPersistenceFailure):
		log.Error().Err(err).Str("path", c.Path()).Msg("character store unavailable")
		return http.StatusServiceUnavailable, "character store unavailable, retry later"
	case errors.Is(err, queue.ErrDispatcherClosed):
		return http.StatusServiceUnavailable, "service is shutting down"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request abandoned"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
