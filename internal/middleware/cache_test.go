package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/movie-reviews/internal/config"
)

func TestRedisCacheHitAndMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.CacheConfig{Enabled: true, Methods: []string{"GET"}, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 1024}
	calls := 0
	e := echo.New()
	e.GET("/movies/reviews/:movieId", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"movie": c.Param("movieId")})
	}, NewResponseCache(cfg, rdb, quietLogger).Middleware())

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	first := get("/movies/reviews/m1")
	if first.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("expected MISS, got %q", first.Header().Get("X-Cache"))
	}
	second := get("/movies/reviews/m1")
	if second.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("expected HIT, got %q", second.Header().Get("X-Cache"))
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("cached body differs: %q vs %q", second.Body.String(), first.Body.String())
	}
	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}

	if other := get("/movies/reviews/m2"); other.Header().Get("X-Cache") != "MISS" {
		t.Fatal("a different movie must not share the cache entry")
	}
}

func TestRedisCacheSkipsErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.CacheConfig{Enabled: true, Methods: []string{"GET"}, TTL: time.Minute, Prefix: "cache"}
	e := echo.New()
	e.GET("/missing", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "nope"})
	}, NewResponseCache(cfg, rdb, quietLogger).Middleware())

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("non-200 responses must not be cached, found %v", keys)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	status, got, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || got.Get("Content-Type") != "application/json" || string(body) != `{"a":1}` {
		t.Fatalf("unexpected decode: ok=%v status=%d hdr=%v body=%q", ok, status, got, body)
	}
	if _, _, _, ok := decodePayload([]byte{1, 2}); ok {
		t.Fatal("short payload must not decode")
	}
}

func TestInvalidatePathDropsAllVariants(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.CacheConfig{Enabled: true, Methods: []string{"GET"}, TTL: time.Minute, Prefix: "cache"}
	rc := NewResponseCache(cfg, rdb, quietLogger)
	e := echo.New()
	e.GET("/movies/reviews/:movieId", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"movie": c.Param("movieId")})
	}, rc.Middleware())

	get := func(path string) string {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Header().Get("X-Cache")
	}
	for _, p := range []string{"/movies/reviews/m1", "/movies/reviews/m1?reviewerId=u1", "/movies/reviews/m2"} {
		get(p)
	}

	if err := rc.InvalidatePath(context.Background(), "/movies/reviews/m1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if got := get("/movies/reviews/m1"); got != "MISS" {
		t.Fatalf("m1 should be recomputed, got %s", got)
	}
	if got := get("/movies/reviews/m1?reviewerId=u1"); got != "MISS" {
		t.Fatalf("m1 query variant should be recomputed, got %s", got)
	}
	if got := get("/movies/reviews/m2"); got != "HIT" {
		t.Fatalf("m2 must stay cached, got %s", got)
	}
}

func TestInvalidatePathWhenDisabled(t *testing.T) {
	rc := NewResponseCache(config.CacheConfig{}, nil, quietLogger)
	if err := rc.InvalidatePath(context.Background(), "/movies/reviews/m1"); err != nil {
		t.Fatalf("disabled cache should ignore invalidation, got %v", err)
	}
}
