package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/adrecipro/adquiz/internal/core/domain"
)

// retryAfterSeconds is advertised when a balance update kept conflicting.
const retryAfterSeconds = "1"

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if code == http.StatusServiceUnavailable {
			c.Response().Header().Set("Retry-After", retryAfterSeconds)
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
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
	case errors.Is(err, domain.ErrInsufficientCredits):
		return http.StatusPaymentRequired, "insufficient credits"
	case errors.Is(err, domain.ErrNotOwner):
		return http.StatusForbidden, "access forbidden"
	case errors.Is(err, domain.ErrAdNotFound):
		return http.StatusNotFound, "advertisement not found"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, domain.ErrNoCardAvailable):
		return http.StatusNotFound, "no card available"
	case errors.Is(err, domain.ErrAlreadyResolved):
		return http.StatusConflict, "advertisement already resolved"
	case errors.Is(err, domain.ErrInvalidQuiz),
		errors.Is(err, domain.ErrContentTooLong),
		errors.Is(err, domain.ErrEmptyContent),
		errors.Is(err, domain.ErrInvalidLanguage),
		errors.Is(err, domain.ErrInvalidAnswer),
		errors.Is(err, domain.ErrInvalidLink),
		errors.Is(err, domain.ErrInvalidProfile),
		errors.Is(err, domain.ErrInvalidPlan):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrConflictRetryExhausted):
		return http.StatusServiceUnavailable, "balance is busy, retry shortly"
	case errors.Is(err, domain.ErrStorageFailure):
		return http.StatusBadGateway, "image upload failed"
	case errors.Is(err, domain.ErrQuizGenerator):
		return http.StatusBadGateway, "quiz generation failed"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
