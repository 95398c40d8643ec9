// Package queue defines review event payloads exchanged over the message
// broker and the consumer that records them.
package queue

import (
	"time"

	"github.com/iliyamo/movie-reviews/internal/model"
)

// Event types published after a successful review write.
const (
	EventReviewCreated = "review.created"
	EventReviewUpdated = "review.updated"
)

// ReviewEvent carries enough of the review for consumers to log or notify
// without reading the record store.
type ReviewEvent struct {
	Type       string `json:"type"`
	MovieID    string `json:"movie_id"`
	ReviewID   string `json:"review_id"`
	ReviewerID string `json:"reviewer_id"`
	Content    string `json:"content"`
	OccurredAt string `json:"occurred_at"`
}

// NewReviewEvent builds an event of kind typ for r.
func NewReviewEvent(typ string, r model.Review, at time.Time) ReviewEvent {
	return ReviewEvent{
		Type:       typ,
		MovieID:    r.MovieID,
		ReviewID:   r.ReviewID,
		ReviewerID: r.ReviewerID,
		Content:    r.Content,
		OccurredAt: at.UTC().Format(time.RFC3339),
	}
}
