package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/movie-reviews/internal/model"
)

type translationKey struct {
	reviewID string
	lang     model.Language
}

// MemoryStore keeps records in process memory.  It backs tests and local runs
// with STORE_BACKEND=memory; state is lost on restart.
type MemoryStore struct {
	mu           sync.RWMutex
	reviews      map[string]map[string]model.Review // movieID -> reviewID -> review
	translations map[translationKey]model.TranslationCacheEntry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reviews:      make(map[string]map[string]model.Review),
		translations: make(map[translationKey]model.TranslationCacheEntry),
	}
}

func (m *MemoryStore) InsertReview(_ context.Context, r model.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byID := m.reviews[r.MovieID]
	for _, existing := range byID {
		if existing.ReviewerID == r.ReviewerID {
			return ErrAlreadyExists
		}
	}
	if byID == nil {
		byID = make(map[string]model.Review)
		m.reviews[r.MovieID] = byID
	}
	byID[r.ReviewID] = r
	return nil
}

func (m *MemoryStore) GetReview(_ context.Context, movieID, reviewID string) (model.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reviews[movieID][reviewID]
	if !ok {
		return model.Review{}, ErrNotFound
	}
	return r, nil
}

func (m *MemoryStore) FindReviewByReviewer(_ context.Context, movieID, reviewerID string) (model.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.reviews[movieID] {
		if r.ReviewerID == reviewerID {
			return r, nil
		}
	}
	return model.Review{}, ErrNotFound
}

func (m *MemoryStore) ListReviews(_ context.Context, movieID string) ([]model.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Review, 0, len(m.reviews[movieID]))
	for _, r := range m.reviews[movieID] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReviewID < out[j].ReviewID })
	return out, nil
}

func (m *MemoryStore) UpdateReviewContent(_ context.Context, movieID, reviewID, content string, updatedAt time.Time) (model.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[movieID][reviewID]
	if !ok {
		return model.Review{}, ErrNotFound
	}
	r.Content = content
	r.UpdatedAt = updatedAt
	m.reviews[movieID][reviewID] = r
	for k, e := range m.translations {
		if k.reviewID == reviewID && e.MovieID == movieID {
			delete(m.translations, k)
		}
	}
	return r, nil
}

func (m *MemoryStore) FindTranslation(_ context.Context, reviewID string, lang model.Language) (model.TranslationCacheEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.translations[translationKey{reviewID: reviewID, lang: lang}]
	if !ok {
		return model.TranslationCacheEntry{}, ErrNotFound
	}
	return e, nil
}

func (m *MemoryStore) PutTranslation(_ context.Context, e model.TranslationCacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.translations[translationKey{reviewID: e.ReviewID, lang: e.TargetLanguage}] = e
	return nil
}
