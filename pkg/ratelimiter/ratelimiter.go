package ratelimiter

import (
	"context"
	"errors"
	"fmt"
)

// RateLimiter defines the interface for rate limiting implementations.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
	AllowN(ctx context.Context, key string, n int) (*Result, error)
}

// FixedWindow allows Limit hits per key in each Window.
type FixedWindow struct {
	store  Store
	config Config
	prefix string
}

// Option configures a FixedWindow.
type Option func(*FixedWindow)

// WithKeyPrefix namespaces keys, e.g. "checkout:".
func WithKeyPrefix(prefix string) Option {
	return func(fw *FixedWindow) {
		fw.prefix = prefix
	}
}

// NewFixedWindow creates a fixed window rate limiter.
func NewFixedWindow(store Store, config Config, opts ...Option) (*FixedWindow, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	fw := &FixedWindow{store: store, config: config}
	for _, opt := range opts {
		opt(fw)
	}
	return fw, nil
}

func (fw *FixedWindow) Allow(ctx context.Context, key string) (*Result, error) {
	return fw.AllowN(ctx, key, 1)
}

func (fw *FixedWindow) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: must be positive, got %d", ErrInvalidTokenCount, n)
	}

	count, resetAt, err := fw.store.Increment(ctx, fw.prefix+key, n, fw.config.Window)
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	return &Result{
		Limit:     fw.config.Limit,
		Remaining: fw.config.Limit - count,
		ResetAt:   resetAt,
	}, nil
}

// Reset clears key's current window.
func (fw *FixedWindow) Reset(ctx context.Context, key string) error {
	return fw.store.Reset(ctx, fw.prefix+key)
}

// Gate adapts a RateLimiter to callers that only need a yes or no.
type Gate struct {
	limiter RateLimiter
}

// NewGate wraps l.
func NewGate(l RateLimiter) Gate {
	return Gate{limiter: l}
}

// Allow reports whether key may proceed.
func (g Gate) Allow(ctx context.Context, key string) (bool, error) {
	res, err := g.limiter.Allow(ctx, key)
	if err != nil {
		return false, err
	}
	return res.Allowed(), nil
}

func (c Config) validate() error {
	if c.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidConfig, c.Limit)
	}
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %v", ErrInvalidConfig, c.Window)
	}
	return nil
}
