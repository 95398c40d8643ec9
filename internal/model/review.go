package model

import (
	"strings"
	"time"
)

// Review is one user's review of one movie.  A movie holds at most one
// review per reviewer; the reviewer is fixed at creation and only that
// reviewer may change the content afterwards.
//
// Fields:
//
//	MovieID    – partition key, the movie being reviewed.
//	ReviewID   – sort key, unique within the movie (random UUID).
//	ReviewerID – principal that authored the review; immutable.
//	Content    – review text, never blank.
//	CreatedAt  – creation timestamp.
//	UpdatedAt  – refreshed on every edit.
type Review struct {
	MovieID    string    `json:"movieId" db:"movie_id"`
	ReviewID   string    `json:"reviewId" db:"review_id"`
	ReviewerID string    `json:"reviewerId" db:"reviewer_id"`
	Content    string    `json:"content" db:"content"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// ReviewFilter narrows a movie's reviews by exact id and/or reviewer.  Empty
// fields do not filter.
type ReviewFilter struct {
	ReviewID   string
	ReviewerID string
}

// Matches reports whether r passes every non-empty field of the filter.
func (f ReviewFilter) Matches(r Review) bool {
	if f.ReviewID != "" && r.ReviewID != f.ReviewID {
		return false
	}
	if f.ReviewerID != "" && r.ReviewerID != f.ReviewerID {
		return false
	}
	return true
}

// NormalizeID trims surrounding whitespace from identifiers taken from paths,
// query strings and bodies.
func NormalizeID(s string) string { return strings.TrimSpace(s) }

// IsBlank reports whether content is empty once whitespace is trimmed.
func IsBlank(content string) bool { return strings.TrimSpace(content) == "" }
