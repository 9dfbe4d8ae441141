package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/scrapekit/handler"
)

// TokenParser verifies a bearer token and returns the user it belongs to.
type TokenParser interface {
	Parse(token string) (uuid.UUID, error)
}

// KeyResolver resolves an API key to its owner.
type KeyResolver func(ctx context.Context, key string) (uuid.UUID, error)

// APIKeyPrefix marks bearer values that are API keys rather than access tokens.
const APIKeyPrefix = "sk_live_"

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middleware)

// WithKeyResolver accepts API keys as bearer credentials.
func WithKeyResolver(r KeyResolver) MiddlewareOption {
	return func(m *middleware) { m.keys = r }
}

type middleware struct {
	tokens TokenParser
	keys   KeyResolver
}

// Middleware rejects requests without valid credentials with 401 and stores
// the user ID in the request context otherwise.
func Middleware(tokens TokenParser, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	if tokens == nil {
		panic("auth: token parser is required")
	}
	m := &middleware{tokens: tokens}
	for _, opt := range opts {
		opt(m)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := m.authenticate(r)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				_ = handler.JSONError(handler.ErrUnauthorized).Render(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
		})
	}
}

func (m *middleware) authenticate(r *http.Request) (uuid.UUID, error) {
	token, err := BearerToken(r)
	if err != nil {
		return uuid.Nil, err
	}
	if strings.HasPrefix(token, APIKeyPrefix) {
		if m.keys == nil {
			return uuid.Nil, ErrInvalidToken
		}
		return m.keys(r.Context(), token)
	}
	return m.tokens.Parse(token)
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}
