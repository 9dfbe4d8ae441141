package redis

import "errors"

var (
	ErrEmptyConnectionURL   = errors.New("redis: REDIS_URL is empty")
	ErrInvalidConnectionURL = errors.New("redis: invalid connection URL")
	ErrNotReady             = errors.New("redis: server did not answer within the connect timeout")

	// ErrHealthcheckFailed means the checkout limiter cannot reach its counters.
	ErrHealthcheckFailed = errors.New("redis: limiter store unreachable")
)
