package ratelimiter_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/scrapekit/pkg/ratelimiter"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()
	l, _ := newLimiter(t, 2)

	h := ratelimiter.Middleware(l, func(r *http.Request) string {
		return r.Header.Get("X-User")
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if user != "" {
			req.Header.Set("X-User", user)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := do("a")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, do("a").Code)

	rec = do("a")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	for range 5 {
		rec = do("")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestMiddlewareFailsOpen(t *testing.T) {
	t.Parallel()
	l, err := ratelimiter.NewFixedWindow(failingStore{}, ratelimiter.Config{Limit: 1, Window: time.Second})
	require.NoError(t, err)

	h := ratelimiter.Middleware(l, func(*http.Request) string { return "k" })(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestComposite(t *testing.T) {
	t.Parallel()
	static := func(v string) ratelimiter.KeyFunc { return func(*http.Request) string { return v } }
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	assert.Equal(t, "", ratelimiter.Composite(static(""), static(""))(req))
	assert.Equal(t, "a", ratelimiter.Composite(static("a"), static(""))(req))
	assert.Equal(t, "a:b", ratelimiter.Composite(static("a"), static("b"))(req))

	long := ratelimiter.Composite(static(strings.Repeat("x", 40)), static(strings.Repeat("y", 40)))(req)
	assert.LessOrEqual(t, len(long), 64)
	assert.NotContains(t, long, ":")
}
