package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-reviews/internal/repository"
)

// Machine-readable error codes returned next to the message.
const (
	CodeInvalidInput    = "INVALID_INPUT"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeUpstream        = "UPSTREAM_ERROR"
	CodeInternal        = "INTERNAL"
)

type errorKind struct {
	err    error
	status int
	code   string
}

// kinds is checked in order; the first match wins.
var kinds = []errorKind{
	{repository.ErrInvalidInput, http.StatusBadRequest, CodeInvalidInput},
	{repository.ErrUnauthenticated, http.StatusUnauthorized, CodeUnauthenticated},
	{repository.ErrForbidden, http.StatusForbidden, CodeForbidden},
	{repository.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{repository.ErrConflict, http.StatusConflict, CodeConflict},
	{repository.ErrUpstream, http.StatusBadGateway, CodeUpstream},
}

// writeError maps err to its status and code. Upstream and unknown failures
// are logged and answered with a generic message.
func writeError(c echo.Context, logger *slog.Logger, err error) error {
	for _, k := range kinds {
		if !errors.Is(err, k.err) {
			continue
		}
		msg := clientMessage(err, k.err)
		if k.code == CodeUpstream {
			logger.Error("upstream failure",
				slog.String("method", c.Request().Method),
				slog.String("path", c.Path()),
				slog.Any("error", err))
			msg = "upstream service unavailable, try again later"
		}
		return c.JSON(k.status, echo.Map{"error": msg, "code": k.code})
	}
	logger.Error("unhandled error",
		slog.String("method", c.Request().Method),
		slog.String("path", c.Path()),
		slog.Any("error", err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error", "code": CodeInternal})
}

// clientMessage drops the "<kind>: " prefix added when the kind was wrapped.
func clientMessage(err, kind error) string {
	msg := err.Error()
	if msg == kind.Error() {
		switch kind {
		case repository.ErrUnauthenticated:
			return "authentication required"
		case repository.ErrNotFound:
			return "review not found"
		}
		return msg
	}
	return strings.TrimPrefix(msg, kind.Error()+": ")
}
