package apikey

import "errors"

var (
	ErrKeyNotFound    = errors.New("api key not found")
	ErrInvalidKey     = errors.New("invalid api key")
	ErrTooManyKeys    = errors.New("api key limit reached")
	ErrStoreFailure   = errors.New("api key store failure")
	ErrGenerateFailed = errors.New("failed to generate api key")
)
