package config_test

import (
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/scrapekit/pkg/config"
)

type plansConfig struct {
	Basic    string `env:"TEST_PLAN_BASIC,required"`
	Standard string `env:"TEST_PLAN_STANDARD" envDefault:"price_standard"`
}

type rateConfig struct {
	Limit int `env:"TEST_RATE_LIMIT" envDefault:"10"`
}

type cachedConfig struct {
	Value string `env:"TEST_CACHED_VALUE"`
}

func TestLoad(t *testing.T) {
	t.Run("parses values and defaults", func(t *testing.T) {
		config.Reset()
		t.Setenv("TEST_PLAN_BASIC", "price_basic")

		var cfg plansConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "price_basic", cfg.Basic)
		assert.Equal(t, "price_standard", cfg.Standard)
	})

	t.Run("missing required value", func(t *testing.T) {
		config.Reset()
		os.Unsetenv("TEST_PLAN_BASIC")

		var cfg plansConfig
		err := config.Load(&cfg)
		require.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("failure is not cached", func(t *testing.T) {
		config.Reset()
		os.Unsetenv("TEST_PLAN_BASIC")

		var cfg plansConfig
		require.Error(t, config.Load(&cfg))

		t.Setenv("TEST_PLAN_BASIC", "price_later")
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "price_later", cfg.Basic)
	})

	t.Run("nil pointer", func(t *testing.T) {
		var cfg *rateConfig
		assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	})
}

func TestLoadCachesPerType(t *testing.T) {
	config.Reset()
	t.Setenv("TEST_CACHED_VALUE", "first")

	var a cachedConfig
	require.NoError(t, config.Load(&a))

	t.Setenv("TEST_CACHED_VALUE", "second")
	var b cachedConfig
	require.NoError(t, config.Load(&b))
	assert.Equal(t, "first", b.Value)

	var r rateConfig
	require.NoError(t, config.Load(&r))
	assert.Equal(t, 10, r.Limit)
}

func TestLoadConcurrent(t *testing.T) {
	config.Reset()
	t.Setenv("TEST_RATE_LIMIT", "25")

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var cfg rateConfig
			assert.NoError(t, config.Load(&cfg))
			assert.Equal(t, 25, cfg.Limit)
		}()
	}
	wg.Wait()
}

func TestMustLoad(t *testing.T) {
	config.Reset()
	os.Unsetenv("TEST_PLAN_BASIC")

	assert.Panics(t, func() {
		var cfg plansConfig
		config.MustLoad(&cfg)
	})
}
