// Package store holds the Record Store: durable keyed storage of reviews and
// their cached translations.  Reviews are addressed by (movieID, reviewID);
// translations are looked up through a secondary index on
// (reviewID, targetLanguage).  Backends share the RecordStore contract so the
// repository and translation layers never see the storage engine.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/movie-reviews/internal/model"
)

// ErrNotFound is returned when a review or translation does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists is returned by InsertReview when the reviewer already has
// a review for the movie.
var ErrAlreadyExists = errors.New("record already exists")

// RecordStore is implemented by every storage backend.
type RecordStore interface {
	// InsertReview persists a new review.  The write is conditional on no
	// other review existing for (MovieID, ReviewerID).
	InsertReview(ctx context.Context, r model.Review) error
	GetReview(ctx context.Context, movieID, reviewID string) (model.Review, error)
	FindReviewByReviewer(ctx context.Context, movieID, reviewerID string) (model.Review, error)
	// ListReviews returns the reviews of a movie ordered by review id.  An
	// unknown movie yields an empty slice and no error.
	ListReviews(ctx context.Context, movieID string) ([]model.Review, error)
	// UpdateReviewContent overwrites content and updatedAt and drops every
	// cached translation of the review.
	UpdateReviewContent(ctx context.Context, movieID, reviewID, content string, updatedAt time.Time) (model.Review, error)
	FindTranslation(ctx context.Context, reviewID string, lang model.Language) (model.TranslationCacheEntry, error)
	PutTranslation(ctx context.Context, e model.TranslationCacheEntry) error
}
