package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/movie-reviews/internal/model"
)

// Key layout, each id escaped with keyPart:
//
//	review:{movie}:{review}                hash, the review record
//	movie:{movie}:reviews                  zset of review ids, score 0 (lexical order)
//	movie:{movie}:reviewer:{reviewer}      string -> review id, uniqueness claim
//	translation:{review}:{lang}            hash, the (reviewId, targetLanguage) index
//	review:{movie}:{review}:translations   set of cached languages
func reviewKey(movieID, reviewID string) string {
	return "review:" + keyPart(movieID) + ":" + keyPart(reviewID)
}
func movieIndexKey(movieID string) string { return "movie:" + keyPart(movieID) + ":reviews" }
func reviewerKey(movieID, reviewerID string) string {
	return "movie:" + keyPart(movieID) + ":reviewer:" + keyPart(reviewerID)
}
func translationPrefix(reviewID string) string { return "translation:" + keyPart(reviewID) + ":" }
func translationKeyFor(reviewID string, lang model.Language) string {
	return translationPrefix(reviewID) + keyPart(string(lang))
}
func translationSetKey(movieID, reviewID string) string {
	return reviewKey(movieID, reviewID) + ":translations"
}

// Ids are opaque, so ':' inside one must not read as a separator.
var keyEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

func keyPart(id string) string { return keyEscaper.Replace(id) }

// insertReviewScript claims the reviewer slot and writes the review in one
// step, so two concurrent creates for the same reviewer cannot both succeed.
// Scripts do not roll back, so the claim is written last and the ZADD
// first: a failing write leaves neither a claim nor a review hash.
var insertReviewScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 1 then
		return 0
	end
	redis.call('ZADD', KEYS[3], 0, ARGV[1])
	redis.call('HSET', KEYS[2],
		'movie_id', ARGV[2], 'review_id', ARGV[1], 'reviewer_id', ARGV[3],
		'content', ARGV[4], 'created_at', ARGV[5], 'updated_at', ARGV[6])
	redis.call('SET', KEYS[1], ARGV[1])
	return 1
`)

// updateReviewScript rewrites content and drops cached translations.
var updateReviewScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 0 then
		return 0
	end
	redis.call('HSET', KEYS[1], 'content', ARGV[1], 'updated_at', ARGV[2])
	local langs = redis.call('SMEMBERS', KEYS[2])
	for _, l in ipairs(langs) do
		redis.call('DEL', ARGV[3] .. l)
	end
	redis.call('DEL', KEYS[2])
	return 1
`)

// RedisStore keeps reviews and translations in Redis.
type RedisStore struct {
	rdb redis.UniversalClient
}

// NewRedisStore wraps an already connected client.
func NewRedisStore(rdb redis.UniversalClient) *RedisStore { return &RedisStore{rdb: rdb} }

func (s *RedisStore) InsertReview(ctx context.Context, r model.Review) error {
	keys := []string{reviewerKey(r.MovieID, r.ReviewerID), reviewKey(r.MovieID, r.ReviewID), movieIndexKey(r.MovieID)}
	res, err := insertReviewScript.Run(ctx, s.rdb, keys,
		r.ReviewID, r.MovieID, r.ReviewerID, r.Content, formatTime(r.CreatedAt), formatTime(r.UpdatedAt)).Int()
	if err != nil {
		return fmt.Errorf("redis insert review: %w", err)
	}
	if res == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (s *RedisStore) GetReview(ctx context.Context, movieID, reviewID string) (model.Review, error) {
	fields, err := s.rdb.HGetAll(ctx, reviewKey(movieID, reviewID)).Result()
	if err != nil {
		return model.Review{}, fmt.Errorf("redis get review: %w", err)
	}
	if len(fields) == 0 {
		return model.Review{}, ErrNotFound
	}
	return reviewFromHash(fields)
}

func (s *RedisStore) FindReviewByReviewer(ctx context.Context, movieID, reviewerID string) (model.Review, error) {
	reviewID, err := s.rdb.Get(ctx, reviewerKey(movieID, reviewerID)).Result()
	if errors.Is(err, redis.Nil) {
		return model.Review{}, ErrNotFound
	}
	if err != nil {
		return model.Review{}, fmt.Errorf("redis find reviewer: %w", err)
	}
	return s.GetReview(ctx, movieID, reviewID)
}

func (s *RedisStore) ListReviews(ctx context.Context, movieID string) ([]model.Review, error) {
	ids, err := s.rdb.ZRange(ctx, movieIndexKey(movieID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list review ids: %w", err)
	}
	out := make([]model.Review, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, reviewKey(movieID, id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis list reviews: %w", err)
	}
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		r, err := reviewFromHash(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *RedisStore) UpdateReviewContent(ctx context.Context, movieID, reviewID, content string, updatedAt time.Time) (model.Review, error) {
	keys := []string{reviewKey(movieID, reviewID), translationSetKey(movieID, reviewID)}
	res, err := updateReviewScript.Run(ctx, s.rdb, keys, content, formatTime(updatedAt), translationPrefix(reviewID)).Int()
	if err != nil {
		return model.Review{}, fmt.Errorf("redis update review: %w", err)
	}
	if res == 0 {
		return model.Review{}, ErrNotFound
	}
	return s.GetReview(ctx, movieID, reviewID)
}

func (s *RedisStore) FindTranslation(ctx context.Context, reviewID string, lang model.Language) (model.TranslationCacheEntry, error) {
	fields, err := s.rdb.HGetAll(ctx, translationKeyFor(reviewID, lang)).Result()
	if err != nil {
		return model.TranslationCacheEntry{}, fmt.Errorf("redis get translation: %w", err)
	}
	if len(fields) == 0 {
		return model.TranslationCacheEntry{}, ErrNotFound
	}
	computed, err := parseTime(fields["computed_at"])
	if err != nil {
		return model.TranslationCacheEntry{}, err
	}
	return model.TranslationCacheEntry{
		MovieID:           fields["movie_id"],
		ReviewID:          fields["review_id"],
		TargetLanguage:    model.Language(fields["target_language"]),
		TranslatedContent: fields["translated_content"],
		ComputedAt:        computed,
	}, nil
}

func (s *RedisStore) PutTranslation(ctx context.Context, e model.TranslationCacheEntry) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, translationKeyFor(e.ReviewID, e.TargetLanguage), map[string]interface{}{
			"movie_id":           e.MovieID,
			"review_id":          e.ReviewID,
			"target_language":    string(e.TargetLanguage),
			"translated_content": e.TranslatedContent,
			"computed_at":        formatTime(e.ComputedAt),
		})
		pipe.SAdd(ctx, translationSetKey(e.MovieID, e.ReviewID), keyPart(string(e.TargetLanguage)))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put translation: %w", err)
	}
	return nil
}

func reviewFromHash(fields map[string]string) (model.Review, error) {
	created, err := parseTime(fields["created_at"])
	if err != nil {
		return model.Review{}, err
	}
	updated, err := parseTime(fields["updated_at"])
	if err != nil {
		return model.Review{}, err
	}
	return model.Review{
		MovieID:    fields["movie_id"],
		ReviewID:   fields["review_id"],
		ReviewerID: fields["reviewer_id"],
		Content:    fields["content"],
		CreatedAt:  created,
		UpdatedAt:  updated,
	}, nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}
