package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/movie-reviews/internal/model"
)

// MySQLSchema creates the two tables used by MySQLStore.  The unique key on
// (movie_id, reviewer_id) enforces one review per reviewer and movie; the
// primary key of review_translations is the (review_id, target_language)
// lookup path.
const MySQLSchema = `
CREATE TABLE IF NOT EXISTS movie_reviews (
	movie_id    VARCHAR(191) NOT NULL,
	review_id   VARCHAR(64)  NOT NULL,
	reviewer_id VARCHAR(191) NOT NULL,
	content     TEXT         NOT NULL,
	created_at  DATETIME(6)  NOT NULL,
	updated_at  DATETIME(6)  NOT NULL,
	PRIMARY KEY (movie_id, review_id),
	UNIQUE KEY uq_movie_reviewer (movie_id, reviewer_id)
);
CREATE TABLE IF NOT EXISTS review_translations (
	review_id          VARCHAR(64)  NOT NULL,
	target_language    VARCHAR(8)   NOT NULL,
	movie_id           VARCHAR(191) NOT NULL,
	translated_content TEXT         NOT NULL,
	computed_at        DATETIME(6)  NOT NULL,
	PRIMARY KEY (review_id, target_language),
	KEY idx_movie_review (movie_id, review_id)
);`

const reviewColumns = "movie_id, review_id, reviewer_id, content, created_at, updated_at"

// MySQLStore keeps records in MySQL through sqlx.
type MySQLStore struct {
	db *sqlx.DB
}

// NewMySQLStore wraps an open *sql.DB using the mysql driver.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: sqlx.NewDb(db, "mysql")}
}

// EnsureSchema creates missing tables.  The DSN must allow multiStatements.
func (s *MySQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, MySQLSchema); err != nil {
		return fmt.Errorf("mysql ensure schema: %w", err)
	}
	return nil
}

func (s *MySQLStore) InsertReview(ctx context.Context, r model.Review) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO movie_reviews ("+reviewColumns+") VALUES (?,?,?,?,?,?)",
		r.MovieID, r.ReviewID, r.ReviewerID, r.Content, r.CreatedAt.UTC(), r.UpdatedAt.UTC())
	if isDuplicateKey(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("mysql insert review: %w", err)
	}
	return nil
}

func (s *MySQLStore) GetReview(ctx context.Context, movieID, reviewID string) (model.Review, error) {
	var r model.Review
	err := s.db.GetContext(ctx, &r,
		"SELECT "+reviewColumns+" FROM movie_reviews WHERE movie_id=? AND review_id=? LIMIT 1",
		movieID, reviewID)
	return r, mapNoRows(err, "mysql get review")
}

func (s *MySQLStore) FindReviewByReviewer(ctx context.Context, movieID, reviewerID string) (model.Review, error) {
	var r model.Review
	err := s.db.GetContext(ctx, &r,
		"SELECT "+reviewColumns+" FROM movie_reviews WHERE movie_id=? AND reviewer_id=? LIMIT 1",
		movieID, reviewerID)
	return r, mapNoRows(err, "mysql find reviewer")
}

func (s *MySQLStore) ListReviews(ctx context.Context, movieID string) ([]model.Review, error) {
	out := []model.Review{}
	if err := s.db.SelectContext(ctx, &out,
		"SELECT "+reviewColumns+" FROM movie_reviews WHERE movie_id=? ORDER BY review_id",
		movieID); err != nil {
		return nil, fmt.Errorf("mysql list reviews: %w", err)
	}
	return out, nil
}

func (s *MySQLStore) UpdateReviewContent(ctx context.Context, movieID, reviewID, content string, updatedAt time.Time) (model.Review, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Review{}, fmt.Errorf("mysql begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var r model.Review
	err = tx.GetContext(ctx, &r,
		"SELECT "+reviewColumns+" FROM movie_reviews WHERE movie_id=? AND review_id=? FOR UPDATE",
		movieID, reviewID)
	if err := mapNoRows(err, "mysql lock review"); err != nil {
		return model.Review{}, err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE movie_reviews SET content=?, updated_at=? WHERE movie_id=? AND review_id=?",
		content, updatedAt.UTC(), movieID, reviewID); err != nil {
		return model.Review{}, fmt.Errorf("mysql update review: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM review_translations WHERE movie_id=? AND review_id=?",
		movieID, reviewID); err != nil {
		return model.Review{}, fmt.Errorf("mysql drop translations: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Review{}, fmt.Errorf("mysql commit: %w", err)
	}
	committed = true
	r.Content = content
	r.UpdatedAt = updatedAt.UTC()
	return r, nil
}

func (s *MySQLStore) FindTranslation(ctx context.Context, reviewID string, lang model.Language) (model.TranslationCacheEntry, error) {
	var e model.TranslationCacheEntry
	err := s.db.GetContext(ctx, &e,
		"SELECT movie_id, review_id, target_language, translated_content, computed_at FROM review_translations WHERE review_id=? AND target_language=? LIMIT 1",
		reviewID, string(lang))
	return e, mapNoRows(err, "mysql find translation")
}

func (s *MySQLStore) PutTranslation(ctx context.Context, e model.TranslationCacheEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO review_translations (review_id, target_language, movie_id, translated_content, computed_at)
		 VALUES (?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE movie_id=VALUES(movie_id), translated_content=VALUES(translated_content), computed_at=VALUES(computed_at)`,
		e.ReviewID, string(e.TargetLanguage), e.MovieID, e.TranslatedContent, e.ComputedAt.UTC())
	if err != nil {
		return fmt.Errorf("mysql put translation: %w", err)
	}
	return nil
}

func mapNoRows(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
