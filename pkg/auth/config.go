package auth

import "time"

// Config holds bearer token verification settings.
type Config struct {
	Secret   string        `env:"AUTH_JWT_SECRET,required"`
	Issuer   string        `env:"AUTH_JWT_ISSUER"`
	TokenTTL time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"24h"`
}
