package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/movie-reviews/internal/model"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb), mr
}

func TestRedisStoreContract(t *testing.T) {
	runRecordStoreContract(t, func(t *testing.T) RecordStore {
		s, _ := newTestRedisStore(t)
		return s
	})
}

func TestRedisStoreKeyLayout(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()
	if err := s.InsertReview(ctx, sampleReview("m1", "r1", "u1", "Great film")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if got := mr.HGet("review:m1:r1", "content"); got != "Great film" {
		t.Fatalf("expected review hash content, got %q", got)
	}
	if got, err := mr.Get("movie:m1:reviewer:u1"); err != nil || got != "r1" {
		t.Fatalf("expected reviewer claim r1, got %q (%v)", got, err)
	}
	members, err := mr.ZMembers("movie:m1:reviews")
	if err != nil || len(members) != 1 || members[0] != "r1" {
		t.Fatalf("unexpected movie index: %v (%v)", members, err)
	}
}

func TestRedisStoreConcurrentInsertSingleWinner(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := sampleReview("m1", "r"+string(rune('a'+i)), "u1", "dup")
			if err := s.InsertReview(ctx, r); err == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("expected exactly one insert to win, got %d", wins.Load())
	}
	list, err := s.ListReviews(ctx, "m1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one stored review, got %d", len(list))
	}
}

func TestRedisStoreIDsWithSeparators(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	// unescaped, movie "a:reviewer:u"'s index would be reviewer "u:reviews"'s claim on movie "a"
	first := sampleReview("a", "r1", "u:reviews", "first")
	second := sampleReview("a:reviewer:u", "r2", "u2", "second")
	for _, r := range []model.Review{first, second} {
		if err := s.InsertReview(ctx, r); err != nil {
			t.Fatalf("insert %s/%s: %v", r.MovieID, r.ReviewerID, err)
		}
	}

	for _, want := range []model.Review{first, second} {
		list, err := s.ListReviews(ctx, want.MovieID)
		if err != nil {
			t.Fatalf("list %s: %v", want.MovieID, err)
		}
		if len(list) != 1 || list[0].ReviewID != want.ReviewID {
			t.Fatalf("movie %s: expected only %s, got %+v", want.MovieID, want.ReviewID, list)
		}
		got, err := s.FindReviewByReviewer(ctx, want.MovieID, want.ReviewerID)
		if err != nil || got.ReviewID != want.ReviewID {
			t.Fatalf("reviewer lookup %s/%s: %+v (%v)", want.MovieID, want.ReviewerID, got, err)
		}
	}
	if !mr.Exists("movie:a:reviewer:u%3Areviews") || !mr.Exists("movie:a%3Areviewer%3Au:reviews") {
		t.Fatalf("expected escaped keys, have %v", mr.Keys())
	}
}

func TestRedisStoreFailedInsertLeavesNothing(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	// a string where the movie index should be makes the ZADD fail
	if err := mr.Set(movieIndexKey("m1"), "junk"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := s.InsertReview(ctx, sampleReview("m1", "r1", "u1", "Great film")); err == nil {
		t.Fatal("expected insert to fail on a wrongly typed index key")
	}
	if mr.Exists(reviewerKey("m1", "u1")) || mr.Exists(reviewKey("m1", "r1")) {
		t.Fatalf("failed insert left state behind: %v", mr.Keys())
	}
	if _, err := s.FindReviewByReviewer(ctx, "m1", "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("reviewer must stay free after a failed insert, got %v", err)
	}
}
