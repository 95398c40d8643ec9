package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-reviews/internal/middleware"
	"github.com/iliyamo/movie-reviews/internal/model"
	"github.com/iliyamo/movie-reviews/internal/queue"
	"github.com/iliyamo/movie-reviews/internal/repository"
	"github.com/iliyamo/movie-reviews/internal/service"
)

// CacheInvalidator drops cached responses for a request path.
type CacheInvalidator interface {
	InvalidatePath(ctx context.Context, path string) error
}

// ReviewHandler serves listing, creation and editing of reviews. When
// ListCache is set, writes drop the cached listing of the movie.
type ReviewHandler struct {
	Repo      *repository.ReviewRepo
	Events    service.Publisher
	ListCache CacheInvalidator
	Logger    *slog.Logger
	Timeout   time.Duration
}

// NewReviewHandler constructs a ReviewHandler and panics if repo is nil. A
// nil publisher drops events.
func NewReviewHandler(repo *repository.ReviewRepo, events service.Publisher, logger *slog.Logger, timeout time.Duration) *ReviewHandler {
	if repo == nil {
		panic("nil repository passed to NewReviewHandler")
	}
	if events == nil {
		events = service.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ReviewHandler{Repo: repo, Events: events, Logger: logger, Timeout: timeout}
}

// List handles GET /movies/reviews/:movieId and returns the movie's reviews,
// optionally narrowed by ?reviewId= and ?reviewerId=.
func (h *ReviewHandler) List(c echo.Context) error {
	var req listReviewsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, h.Logger, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()

	reviews, err := h.Repo.Get(ctx, req.MovieID, model.ReviewFilter{
		ReviewID:   req.ReviewID,
		ReviewerID: req.reviewer(),
	})
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reviews": reviews})
}

// Create handles POST /movies/reviews. The reviewer is the authenticated
// principal, never a body field.
func (h *ReviewHandler) Create(c echo.Context) error {
	var req createReviewRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, h.Logger, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()

	review, err := h.Repo.Create(ctx, repository.CreateReviewInput{
		MovieID:    req.MovieID,
		ReviewerID: middleware.PrincipalID(c),
		Content:    req.Content,
	})
	if err != nil {
		return writeError(c, h.Logger, err)
	}

	h.dropListCache(ctx, review.MovieID)
	h.publish(c.Request().Context(), queue.EventReviewCreated, review)
	return c.JSON(http.StatusCreated, echo.Map{
		"message":  "Review added successfully",
		"reviewId": review.ReviewID,
	})
}

// Update handles PUT /movies/:movieId/reviews/:reviewId. Only the review's
// author may change its content.
func (h *ReviewHandler) Update(c echo.Context) error {
	var req updateReviewRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, h.Logger, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()

	review, err := h.Repo.Update(ctx, repository.UpdateReviewInput{
		MovieID:  req.MovieID,
		ReviewID: req.ReviewID,
		CallerID: middleware.PrincipalID(c),
		Content:  req.Content,
	})
	if err != nil {
		return writeError(c, h.Logger, err)
	}

	h.dropListCache(ctx, review.MovieID)
	h.publish(c.Request().Context(), queue.EventReviewUpdated, review)
	return c.JSON(http.StatusOK, echo.Map{
		"message":        "Review updated successfully",
		"updatedContent": review.Content,
		"review":         review,
	})
}

// publish sends the event after a successful write. Failures are only
// logged; the write has already happened.
func (h *ReviewHandler) publish(ctx context.Context, typ string, r model.Review) {
	ev := queue.NewReviewEvent(typ, r, time.Now())
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.Timeout)
	defer cancel()
	if err := h.Events.PublishReviewEvent(ctx, ev); err != nil {
		h.Logger.Warn("publish review event failed",
			slog.String("type", typ),
			slog.String("review_id", r.ReviewID),
			slog.Any("error", err))
	}
}

// dropListCache forgets cached GET /movies/reviews/:movieId responses.
func (h *ReviewHandler) dropListCache(ctx context.Context, movieID string) {
	if h.ListCache == nil {
		return
	}
	if err := h.ListCache.InvalidatePath(ctx, "/movies/reviews/"+movieID); err != nil {
		h.Logger.Warn("drop cached review list failed",
			slog.String("movie_id", movieID),
			slog.Any("error", err))
	}
}

// bindAndValidate fills req from path, query and body, then runs the
// registered validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return invalidBody
		}
		return err
	}
	return c.Validate(req)
}

var invalidBody = fmt.Errorf("%w: invalid request body", repository.ErrInvalidInput)
