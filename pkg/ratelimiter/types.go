package ratelimiter

import "time"

// Result contains the result of a rate limit check.
type Result struct {
	Limit     int       // Maximum hits per window
	Remaining int       // Hits left in the current window; negative once exceeded
	ResetAt   time.Time // When the current window ends
}

// Allowed reports whether the hit fit into the window.
func (r *Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter returns how long to wait before the next request.
// Returns 0 if the request was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	return max(0, time.Until(r.ResetAt))
}

// Config defines a fixed window.
type Config struct {
	Limit  int           `env:"LIMIT" envDefault:"10"`  // Hits allowed per window
	Window time.Duration `env:"WINDOW" envDefault:"1m"` // Window length
}
