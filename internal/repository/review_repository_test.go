package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/iliyamo/movie-reviews/internal/model"
	"github.com/iliyamo/movie-reviews/internal/store"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRepo(s store.RecordStore) *ReviewRepo {
	n := 0
	return NewReviewRepo(s,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("rev-%d", n) }),
	)
}

func TestCreateThenGetByReviewer(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(store.NewMemoryStore())

	created, err := repo.Create(ctx, CreateReviewInput{MovieID: "m1", ReviewerID: "u1", Content: "Great film"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ReviewID == "" {
		t.Fatal("expected generated review id")
	}
	if !created.CreatedAt.Equal(fixedNow) || !created.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected timestamps: %+v", created)
	}

	got, err := repo.Get(ctx, "m1", model.ReviewFilter{ReviewerID: "u1"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 || got[0].Content != "Great film" || got[0].ReviewID != created.ReviewID {
		t.Fatalf("unexpected reviews: %+v", got)
	}
}

func TestCreateDuplicateConflicts(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(store.NewMemoryStore())
	if _, err := repo.Create(ctx, CreateReviewInput{MovieID: "m1", ReviewerID: "u1", Content: "one"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := repo.Create(ctx, CreateReviewInput{MovieID: "m1", ReviewerID: "u1", Content: "two"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(store.NewMemoryStore())
	cases := []struct {
		name string
		in   CreateReviewInput
		want error
	}{
		{"no reviewer", CreateReviewInput{MovieID: "m1", Content: "x"}, ErrUnauthenticated},
		{"blank movie", CreateReviewInput{MovieID: "  ", ReviewerID: "u1", Content: "x"}, ErrInvalidInput},
		{"blank content", CreateReviewInput{MovieID: "m1", ReviewerID: "u1", Content: " \t "}, ErrInvalidInput},
	}
	for _, tc := range cases {
		if _, err := repo.Create(ctx, tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

// raceStore reports no existing review on the pre-check, like a concurrent
// request that has not committed yet, and then refuses the insert.
type raceStore struct{ *store.MemoryStore }

func (raceStore) FindReviewByReviewer(context.Context, string, string) (model.Review, error) {
	return model.Review{}, store.ErrNotFound
}

func (raceStore) InsertReview(context.Context, model.Review) error { return store.ErrAlreadyExists }

func TestCreateConditionalWriteLosesRace(t *testing.T) {
	repo := newTestRepo(raceStore{store.NewMemoryStore()})
	_, err := repo.Create(context.Background(), CreateReviewInput{MovieID: "m1", ReviewerID: "u1", Content: "x"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestGetFilters(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(store.NewMemoryStore())
	a, _ := repo.Create(ctx, CreateReviewInput{MovieID: "m1", ReviewerID: "u1", Content: "a"})
	b, _ := repo.Create(ctx, CreateReviewInput{MovieID: "m1", ReviewerID: "u2", Content: "b"})

	all, err := repo.Get(ctx, "m1", model.ReviewFilter{})
	if err != nil || len(all) != 2 {
		t.Fatalf("expected two reviews, got %d (%v)", len(all), err)
	}
	byID, _ := repo.Get(ctx, "m1", model.ReviewFilter{ReviewID: b.ReviewID})
	if len(byID) != 1 || byID[0].ReviewerID != "u2" {
		t.Fatalf("unexpected filter by id: %+v", byID)
	}
	mismatch, _ := repo.Get(ctx, "m1", model.ReviewFilter{ReviewID: a.ReviewID, ReviewerID: "u2"})
	if len(mismatch) != 0 {
		t.Fatalf("expected no match, got %+v", mismatch)
	}
	none, err := repo.Get(ctx, "unknown", model.ReviewFilter{})
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty result for unknown movie, got %v (%v)", none, err)
	}
	if _, err := repo.Get(ctx, "", model.ReviewFilter{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdateOwnership(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(store.NewMemoryStore())
	created, err := repo.Create(ctx, CreateReviewInput{MovieID: "m1", ReviewerID: "u1", Content: "old"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = repo.Update(ctx, UpdateReviewInput{MovieID: "m1", ReviewID: created.ReviewID, CallerID: "u2", Content: "hijack"})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	repo.now = func() time.Time { return fixedNow.Add(time.Hour) }
	updated, err := repo.Update(ctx, UpdateReviewInput{MovieID: "m1", ReviewID: created.ReviewID, CallerID: "u1", Content: "new"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Content != "new" || updated.ReviewerID != "u1" || !updated.CreatedAt.Equal(fixedNow) || !updated.UpdatedAt.Equal(fixedNow.Add(time.Hour)) {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	got, _ := repo.Get(ctx, "m1", model.ReviewFilter{ReviewID: created.ReviewID})
	if len(got) != 1 || got[0].Content != "new" {
		t.Fatalf("update not visible: %+v", got)
	}
}

func TestUpdateBlankContentLeavesStoredContent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(store.NewMemoryStore())
	created, _ := repo.Create(ctx, CreateReviewInput{MovieID: "m1", ReviewerID: "u1", Content: "keep me"})

	_, err := repo.Update(ctx, UpdateReviewInput{MovieID: "m1", ReviewID: created.ReviewID, CallerID: "u1", Content: "   "})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	got, _ := repo.Get(ctx, "m1", model.ReviewFilter{})
	if got[0].Content != "keep me" {
		t.Fatalf("content changed: %q", got[0].Content)
	}
}

func TestUpdateErrors(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(store.NewMemoryStore())
	if _, err := repo.Update(ctx, UpdateReviewInput{MovieID: "m1", ReviewID: "r1", CallerID: "u1", Content: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.Update(ctx, UpdateReviewInput{MovieID: "m1", ReviewID: "r1", Content: "x"}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

type brokenStore struct{ store.RecordStore }

var errBroken = errors.New("connection refused")

func (brokenStore) FindReviewByReviewer(context.Context, string, string) (model.Review, error) {
	return model.Review{}, errBroken
}

func (brokenStore) ListReviews(context.Context, string) ([]model.Review, error) {
	return nil, errBroken
}

func (brokenStore) GetReview(context.Context, string, string) (model.Review, error) {
	return model.Review{}, errBroken
}

func TestStoreFailuresAreUpstream(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(brokenStore{})

	_, err := repo.Create(ctx, CreateReviewInput{MovieID: "m1", ReviewerID: "u1", Content: "x"})
	if !errors.Is(err, ErrUpstream) || !errors.Is(err, errBroken) {
		t.Fatalf("expected upstream wrapping the cause, got %v", err)
	}
	if _, err := repo.Get(ctx, "m1", model.ReviewFilter{}); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if _, err := repo.Update(ctx, UpdateReviewInput{MovieID: "m1", ReviewID: "r1", CallerID: "u1", Content: "x"}); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}
