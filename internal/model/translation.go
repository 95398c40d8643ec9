package model

import "time"

// Origin tells callers whether a translation was served from the cache or
// computed by the oracle during this request.
type Origin string

const (
	OriginCache Origin = "cache"
	OriginFresh Origin = "fresh"
)

// TranslationCacheEntry is a memoized translation of one review into one
// target language.  Entries are written once per (ReviewID, TargetLanguage)
// and looked up through that pair; MovieID ties the entry back to the review.
type TranslationCacheEntry struct {
	MovieID           string    `json:"movieId" db:"movie_id"`
	ReviewID          string    `json:"reviewId" db:"review_id"`
	TargetLanguage    Language  `json:"targetLanguage" db:"target_language"`
	TranslatedContent string    `json:"translatedContent" db:"translated_content"`
	ComputedAt        time.Time `json:"computedAt" db:"computed_at"`
}
