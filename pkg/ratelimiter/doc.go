// Package ratelimiter implements fixed window rate limiting.
//
// A FixedWindow allows Config.Limit hits per key in each Config.Window. The
// first hit for a key opens its window; counts reset when it ends. Counters
// live in a Store: MemoryStore for a single instance and tests, RedisStore
// when several instances must share limits.
//
//	store := ratelimiter.NewRedisStore(redisClient)
//	limiter, err := ratelimiter.NewFixedWindow(store, ratelimiter.Config{
//		Limit:  5,
//		Window: time.Minute,
//	}, ratelimiter.WithKeyPrefix("checkout:"))
//
//	res, err := limiter.Allow(ctx, userID.String())
//	if err == nil && !res.Allowed() {
//		// retry after res.RetryAfter()
//	}
//
// Gate adapts a limiter to a plain yes or no check. Middleware applies a
// limiter to HTTP requests and sets the X-RateLimit-* headers.
package ratelimiter
