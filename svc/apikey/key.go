package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/scrapekit/pkg/auth"
)

const (
	secretBytes   = 24 // 32 base64url characters
	prefixLen     = 12
	maskedBullets = 8
)

// Key is a stored API key. The plaintext secret is never persisted.
type Key struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"-"`
	Name       string     `json:"name"`
	Prefix     string     `json:"-"`
	Last4      string     `json:"-"`
	Hash       string     `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// Masked renders the key as shown in listings: prefix, bullets, last four characters.
func (k Key) Masked() string {
	return k.Prefix + strings.Repeat("•", maskedBullets) + k.Last4
}

// Active reports whether the key can still authenticate.
func (k Key) Active() bool { return k.RevokedAt == nil }

// generate returns a new plaintext key: the auth.APIKeyPrefix followed by 32 url-safe characters.
func generate() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return auth.APIKeyPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}

// hashKey is the lookup value stored for a plaintext key.
func hashKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

func newKey(userID uuid.UUID, name, plaintext string, now time.Time) Key {
	return Key{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		Prefix:    plaintext[:prefixLen],
		Last4:     plaintext[len(plaintext)-4:],
		Hash:      hashKey(plaintext),
		CreatedAt: now,
	}
}
