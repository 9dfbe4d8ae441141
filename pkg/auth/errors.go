package auth

import "errors"

var (
	ErrMissingSecret   = errors.New("auth: signing secret is required")
	ErrMissingToken    = errors.New("auth: missing bearer token")
	ErrInvalidToken    = errors.New("auth: invalid token")
	ErrUnauthenticated = errors.New("auth: request is not authenticated")
)
