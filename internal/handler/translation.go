package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-reviews/internal/translation"
)

// TranslationHandler serves translated reviews.
type TranslationHandler struct {
	Service *translation.Service
	Logger  *slog.Logger
	Timeout time.Duration
}

// NewTranslationHandler constructs a TranslationHandler and panics if svc is nil.
func NewTranslationHandler(svc *translation.Service, logger *slog.Logger, timeout time.Duration) *TranslationHandler {
	if svc == nil {
		panic("nil translation service passed to NewTranslationHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &TranslationHandler{Service: svc, Logger: logger, Timeout: timeout}
}

// Translate handles GET /reviews/:reviewId/:movieId/translation?language=xx.
func (h *TranslationHandler) Translate(c echo.Context) error {
	var req translateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, h.Logger, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()

	res, err := h.Service.Translate(ctx, req.MovieID, req.ReviewID, req.Language)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, res)
}
