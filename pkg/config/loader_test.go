package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/resumekit/pkg/config"
)

type replayConfig struct {
	Schedule string        `env:"TEST_REPLAY_SCHEDULE" envDefault:"@every 5m"`
	Batch    int           `env:"TEST_REPLAY_BATCH" envDefault:"50"`
	Timeout  time.Duration `env:"TEST_REPLAY_TIMEOUT" envDefault:"30s"`
}

type priceConfig struct {
	PriceIDs []string `env:"TEST_PRICE_IDS" envSeparator:","`
}

type requiredConfig struct {
	Secret string `env:"TEST_REQUIRED_SECRET,required"`
}

type cachedConfig struct {
	Value string `env:"TEST_CACHED_VALUE"`
}

func TestParse(t *testing.T) {
	t.Parallel()

	cfg, err := config.Parse[replayConfig](map[string]string{"TEST_REPLAY_BATCH": "10"})
	require.NoError(t, err)
	assert.Equal(t, "@every 5m", cfg.Schedule)
	assert.Equal(t, 10, cfg.Batch)
	assert.Equal(t, 30*time.Second, cfg.Timeout)

	prices, err := config.Parse[priceConfig](map[string]string{"TEST_PRICE_IDS": "price_a,price_b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"price_a", "price_b"}, prices.PriceIDs)

	_, err = config.Parse[requiredConfig](map[string]string{})
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoad_Cached(t *testing.T) {
	t.Setenv("TEST_CACHED_VALUE", "first")

	cfg, err := config.Load[cachedConfig]()
	require.NoError(t, err)
	assert.Equal(t, "first", cfg.Value)

	t.Setenv("TEST_CACHED_VALUE", "second")
	cfg, err = config.Load[cachedConfig]()
	require.NoError(t, err)
	assert.Equal(t, "first", cfg.Value)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() {
		config.MustLoad[requiredConfig]()
	})
}
