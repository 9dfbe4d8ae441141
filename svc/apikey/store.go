package apikey

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists API keys.
type Store interface {
	// CreateAPIKey stores key unless its owner already holds limit active keys,
	// in which case it returns ErrTooManyKeys. The check and insert are atomic.
	CreateAPIKey(ctx context.Context, key Key, limit int) error
	ListAPIKeys(ctx context.Context, userID uuid.UUID) ([]Key, error)
	// RevokeAPIKey marks an active key of userID revoked. It returns ErrKeyNotFound
	// when no such active key exists.
	RevokeAPIKey(ctx context.Context, userID, keyID uuid.UUID, at time.Time) error
	// FindActiveAPIKey returns the active key with the given hash or ErrKeyNotFound.
	FindActiveAPIKey(ctx context.Context, hash string) (*Key, error)
	TouchAPIKey(ctx context.Context, keyID uuid.UUID, at time.Time) error
}
