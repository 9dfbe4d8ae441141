package apikey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dmitrymomot/scrapekit/handler"
	"github.com/dmitrymomot/scrapekit/pkg/auth"
	"github.com/dmitrymomot/scrapekit/pkg/logger"
)

const (
	maxNameLength  = 64
	defaultMaxKeys = 10
)

// Created is returned once, right after creation. Secret is never retrievable again.
type Created struct {
	Key    Key    `json:"key"`
	Secret string `json:"secret"`
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMaxKeys sets how many active keys a user may hold.
func WithMaxKeys(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxKeys = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service manages API keys for the scraping API.
type Service struct {
	store   Store
	log     *slog.Logger
	maxKeys int
	now     func() time.Time
}

// NewService creates a Service. Panics on a nil store.
func NewService(store Store, opts ...Option) *Service {
	if store == nil {
		panic("apikey: store is required")
	}
	s := &Service{
		store:   store,
		log:     slog.Default(),
		maxKeys: defaultMaxKeys,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("apikey"))
	return s
}

// Create issues a new key named name for userID.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, name string) (*Created, error) {
	name = strings.TrimSpace(name)
	if verr := validateName(name); verr != nil {
		return nil, verr
	}

	plaintext, err := generate()
	if err != nil {
		return nil, errors.Join(ErrGenerateFailed, err)
	}
	key := newKey(userID, name, plaintext, s.now().UTC())
	if err := s.store.CreateAPIKey(ctx, key, s.maxKeys); err != nil {
		if errors.Is(err, ErrTooManyKeys) {
			return nil, ErrTooManyKeys
		}
		return nil, errors.Join(ErrStoreFailure, err)
	}

	s.log.InfoContext(ctx, "api key created", logger.UserID(userID), slog.String("key_id", key.ID.String()))
	return &Created{Key: key, Secret: plaintext}, nil
}

// List returns userID's keys, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Key, error) {
	keys, err := s.store.ListAPIKeys(ctx, userID)
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return keys, nil
}

// Revoke disables a key owned by userID.
func (s *Service) Revoke(ctx context.Context, userID, keyID uuid.UUID) error {
	if err := s.store.RevokeAPIKey(ctx, userID, keyID, s.now().UTC()); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return err
		}
		return errors.Join(ErrStoreFailure, err)
	}
	s.log.InfoContext(ctx, "api key revoked", logger.UserID(userID), slog.String("key_id", keyID.String()))
	return nil
}

// Authenticate resolves the owner of an active plaintext key and records its use.
// It has the shape of auth.KeyResolver.
func (s *Service) Authenticate(ctx context.Context, plaintext string) (uuid.UUID, error) {
	if !strings.HasPrefix(plaintext, auth.APIKeyPrefix) || len(plaintext) <= prefixLen {
		return uuid.Nil, ErrInvalidKey
	}

	key, err := s.store.FindActiveAPIKey(ctx, hashKey(plaintext))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return uuid.Nil, ErrInvalidKey
		}
		return uuid.Nil, errors.Join(ErrStoreFailure, err)
	}

	if err := s.store.TouchAPIKey(ctx, key.ID, s.now().UTC()); err != nil {
		s.log.WarnContext(ctx, "failed to record api key use",
			slog.String("key_id", key.ID.String()), logger.Error(err))
	}
	return key.UserID, nil
}

func validateName(name string) error {
	v := handler.NewValidationError()
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		v.Add("name", "is required")
	case n > maxNameLength:
		v.Add("name", fmt.Sprintf("must be at most %d characters", maxNameLength))
	}
	return v.OrNil()
}
