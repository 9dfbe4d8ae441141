package ratelimiter

import (
	"context"
	"time"
)

// Store counts hits per key in fixed windows.
type Store interface {
	// Increment adds n hits to key. The first hit of a window starts it.
	// Returns the hit count in the current window and when the window ends.
	Increment(ctx context.Context, key string, n int, window time.Duration) (count int, resetAt time.Time, err error)

	// Reset clears the rate limit state for the given key.
	Reset(ctx context.Context, key string) error
}
