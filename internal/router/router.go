// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-reviews/internal/handler"
	"github.com/iliyamo/movie-reviews/internal/middleware"
)

// RegisterRoutes registers routes that do not belong to a resource. At the
// moment it only exposes a health check for load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterReviews registers the review endpoints. Listing is public and may
// sit behind a response cache; writes require a valid access token.
func RegisterReviews(e *echo.Echo, h *handler.ReviewHandler, jwtSecret string, listMW ...echo.MiddlewareFunc) {
	e.GET("/movies/reviews/:movieId", h.List, listMW...)

	auth := middleware.JWTAuth(jwtSecret)
	e.POST("/movies/reviews", h.Create, auth)
	e.PUT("/movies/:movieId/reviews/:reviewId", h.Update, auth)
}

// RegisterTranslations registers the public translation endpoint. Each call
// can reach the paid translation oracle, so callers pass a rate limiter.
func RegisterTranslations(e *echo.Echo, h *handler.TranslationHandler, mw ...echo.MiddlewareFunc) {
	e.GET("/reviews/:reviewId/:movieId/translation", h.Translate, mw...)
}
