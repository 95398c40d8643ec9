// Package translation implements the cache-aside translation of reviews.
// A translation is looked up by (reviewId, language); on a miss the review
// is loaded, sent to the Oracle, and the result is written back before it is
// returned.
package translation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/movie-reviews/internal/model"
	"github.com/iliyamo/movie-reviews/internal/repository"
	"github.com/iliyamo/movie-reviews/internal/store"
)

// Result is a translated review and where it came from.
type Result struct {
	MovieID           string         `json:"movieId"`
	ReviewID          string         `json:"reviewId"`
	TargetLanguage    model.Language `json:"language"`
	TranslatedContent string         `json:"translatedContent"`
	Origin            model.Origin   `json:"origin"`
	ComputedAt        time.Time      `json:"computedAt"`
}

// Service is the translation cache.  It keeps no state of its own; two
// concurrent misses for the same pair may both call the oracle and both
// write, which is harmless because the last write wins.
type Service struct {
	store  store.RecordStore
	oracle Oracle
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for cache hit/miss and oracle failures.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithClock replaces time.Now for computedAt stamps.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService wires the cache to its store and oracle.
func NewService(s store.RecordStore, o Oracle, opts ...Option) *Service {
	if s == nil || o == nil {
		panic("nil dependency passed to translation.NewService")
	}
	svc := &Service{
		store:  s,
		oracle: o,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Translate returns the review translated into lang, from the cache when
// possible.  A fresh result is only returned once it has been cached.
func (s *Service) Translate(ctx context.Context, movieID, reviewID, lang string) (Result, error) {
	target, ok := model.ParseLanguage(lang)
	if !ok {
		return Result{}, fmt.Errorf("%w: unsupported language code %q", repository.ErrInvalidInput, lang)
	}
	movieID = model.NormalizeID(movieID)
	reviewID = model.NormalizeID(reviewID)
	if movieID == "" || reviewID == "" {
		return Result{}, fmt.Errorf("%w: movieId and reviewId are required", repository.ErrInvalidInput)
	}
	log := s.logger.With(slog.String("movie_id", movieID), slog.String("review_id", reviewID), slog.String("language", string(target)))

	cached, err := s.store.FindTranslation(ctx, reviewID, target)
	switch {
	case err == nil && cached.MovieID == movieID:
		log.DebugContext(ctx, "translation cache hit")
		return Result{
			MovieID:           movieID,
			ReviewID:          reviewID,
			TargetLanguage:    target,
			TranslatedContent: cached.TranslatedContent,
			Origin:            model.OriginCache,
			ComputedAt:        cached.ComputedAt,
		}, nil
	case err == nil:
		// Same review id cached under another movie: not this review.
		log.WarnContext(ctx, "translation cache entry belongs to another movie", slog.String("cached_movie_id", cached.MovieID))
	case !errors.Is(err, store.ErrNotFound):
		return Result{}, fmt.Errorf("%w: translation lookup: %w", repository.ErrUpstream, err)
	}

	review, err := s.store.GetReview(ctx, movieID, reviewID)
	if errors.Is(err, store.ErrNotFound) {
		return Result{}, fmt.Errorf("%w: review not found", repository.ErrNotFound)
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: load review: %w", repository.ErrUpstream, err)
	}
	if model.IsBlank(review.Content) {
		return Result{}, fmt.Errorf("%w: review has no content", repository.ErrNotFound)
	}

	log.InfoContext(ctx, "translation cache miss, calling oracle")
	translated, err := s.oracle.Translate(ctx, review.Content, model.SourceLanguage, target)
	if err != nil {
		log.ErrorContext(ctx, "translation oracle failed", slog.String("error", err.Error()))
		return Result{}, fmt.Errorf("%w: translate: %w", repository.ErrUpstream, err)
	}

	entry := model.TranslationCacheEntry{
		MovieID:           movieID,
		ReviewID:          reviewID,
		TargetLanguage:    target,
		TranslatedContent: translated,
		ComputedAt:        s.now(),
	}
	if err := s.store.PutTranslation(ctx, entry); err != nil {
		log.ErrorContext(ctx, "translation cache write failed", slog.String("error", err.Error()))
		return Result{}, fmt.Errorf("%w: cache translation: %w", repository.ErrUpstream, err)
	}
	return Result{
		MovieID:           movieID,
		ReviewID:          reviewID,
		TargetLanguage:    target,
		TranslatedContent: translated,
		Origin:            model.OriginFresh,
		ComputedAt:        entry.ComputedAt,
	}, nil
}
