package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/movie-reviews/internal/model"
	"github.com/iliyamo/movie-reviews/internal/store"
)

// CreateReviewInput carries a new review.  ReviewerID must come from an
// already verified principal.
type CreateReviewInput struct {
	MovieID    string
	ReviewerID string
	Content    string
}

// UpdateReviewInput carries an edit.  CallerID is the verified principal
// making the request.
type UpdateReviewInput struct {
	MovieID  string
	ReviewID string
	CallerID string
	Content  string
}

// ReviewRepo enforces one review per (movie, reviewer) and owner-only edits
// on top of a RecordStore.  It holds no state between calls.
type ReviewRepo struct {
	store store.RecordStore
	now   func() time.Time
	newID func() string
}

// Option configures a ReviewRepo.
type Option func(*ReviewRepo)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option { return func(r *ReviewRepo) { r.now = now } }

// WithIDGenerator replaces the random UUID generator.
func WithIDGenerator(gen func() string) Option { return func(r *ReviewRepo) { r.newID = gen } }

// NewReviewRepo returns a repository over s and panics if s is nil.
func NewReviewRepo(s store.RecordStore, opts ...Option) *ReviewRepo {
	if s == nil {
		panic("nil record store passed to NewReviewRepo")
	}
	r := &ReviewRepo{
		store: s,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create stores a new review and returns it with its generated id.  A second
// review by the same reviewer for the same movie fails with ErrConflict.
func (r *ReviewRepo) Create(ctx context.Context, in CreateReviewInput) (model.Review, error) {
	movieID := model.NormalizeID(in.MovieID)
	reviewerID := model.NormalizeID(in.ReviewerID)
	if reviewerID == "" {
		return model.Review{}, ErrUnauthenticated
	}
	if movieID == "" {
		return model.Review{}, fmt.Errorf("%w: movieId is required", ErrInvalidInput)
	}
	if model.IsBlank(in.Content) {
		return model.Review{}, fmt.Errorf("%w: review content cannot be empty", ErrInvalidInput)
	}

	_, err := r.store.FindReviewByReviewer(ctx, movieID, reviewerID)
	switch {
	case err == nil:
		return model.Review{}, fmt.Errorf("%w: reviewer already reviewed this movie", ErrConflict)
	case !errors.Is(err, store.ErrNotFound):
		return model.Review{}, upstream("check existing review", err)
	}

	now := r.now()
	review := model.Review{
		MovieID:    movieID,
		ReviewID:   r.newID(),
		ReviewerID: reviewerID,
		Content:    in.Content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	// The store write is conditional too, which closes the window between
	// the check above and this insert.
	if err := r.store.InsertReview(ctx, review); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return model.Review{}, fmt.Errorf("%w: reviewer already reviewed this movie", ErrConflict)
		}
		return model.Review{}, upstream("insert review", err)
	}
	return review, nil
}

// Get lists a movie's reviews narrowed by the filter.  An unknown movie
// yields an empty slice.
func (r *ReviewRepo) Get(ctx context.Context, movieID string, filter model.ReviewFilter) ([]model.Review, error) {
	movieID = model.NormalizeID(movieID)
	if movieID == "" {
		return nil, fmt.Errorf("%w: movieId is required", ErrInvalidInput)
	}
	filter.ReviewID = model.NormalizeID(filter.ReviewID)
	filter.ReviewerID = model.NormalizeID(filter.ReviewerID)

	all, err := r.store.ListReviews(ctx, movieID)
	if err != nil {
		return nil, upstream("list reviews", err)
	}
	out := make([]model.Review, 0, len(all))
	for _, rv := range all {
		if filter.Matches(rv) {
			out = append(out, rv)
		}
	}
	return out, nil
}

// Update replaces the content of a review owned by the caller.  reviewerId
// and createdAt are left untouched; cached translations of the review are
// dropped by the store.
func (r *ReviewRepo) Update(ctx context.Context, in UpdateReviewInput) (model.Review, error) {
	callerID := model.NormalizeID(in.CallerID)
	if callerID == "" {
		return model.Review{}, ErrUnauthenticated
	}
	movieID := model.NormalizeID(in.MovieID)
	reviewID := model.NormalizeID(in.ReviewID)
	if movieID == "" || reviewID == "" {
		return model.Review{}, fmt.Errorf("%w: movieId and reviewId are required", ErrInvalidInput)
	}

	existing, err := r.store.GetReview(ctx, movieID, reviewID)
	if errors.Is(err, store.ErrNotFound) {
		return model.Review{}, fmt.Errorf("%w: review not found", ErrNotFound)
	}
	if err != nil {
		return model.Review{}, upstream("load review", err)
	}
	if existing.ReviewerID != callerID {
		return model.Review{}, fmt.Errorf("%w: you are not authorized to update this review", ErrForbidden)
	}
	if model.IsBlank(in.Content) {
		return model.Review{}, fmt.Errorf("%w: review content cannot be empty", ErrInvalidInput)
	}

	updated, err := r.store.UpdateReviewContent(ctx, movieID, reviewID, in.Content, r.now())
	if errors.Is(err, store.ErrNotFound) {
		return model.Review{}, fmt.Errorf("%w: review not found", ErrNotFound)
	}
	if err != nil {
		return model.Review{}, upstream("update review", err)
	}
	return updated, nil
}

func upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstream, op, err)
}
