package main

import "github.com/dmitrymomot/scrapekit/pkg/ratelimiter"

type appConfig struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	Name     string `env:"APP_NAME" envDefault:"scrapekit"`
	URL      string `env:"APP_URL,required"`
	Provider string `env:"BILLING_PROVIDER" envDefault:"stripe"`

	MaxAPIKeys       int      `env:"MAX_API_KEYS" envDefault:"10"`
	TrustedIPHeaders []string `env:"TRUSTED_IP_HEADERS" envSeparator:","`

	Checkout ratelimiter.Config `envPrefix:"CHECKOUT_RATE_"`
	Public   ratelimiter.Config `envPrefix:"PUBLIC_RATE_"`
}
