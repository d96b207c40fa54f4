package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("TMDB_BEARER_TOKEN", "token")
	t.Setenv("DATABASE_URL", "postgres://localhost/movielist")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.themoviedb.org/3", cfg.TMDB.BaseURL)
	assert.Equal(t, "https://image.tmdb.org/t/p", cfg.TMDB.ImageBaseURL)
	assert.Equal(t, 3, cfg.TMDB.MaxRetries)
	assert.Equal(t, time.Second, cfg.TMDB.RetryBaseDelay)
	assert.Equal(t, 2*time.Second, cfg.Browse.MinLoadInterval)
	assert.Equal(t, 300*time.Millisecond, cfg.Browse.FilterDebounce)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
	assert.Equal(t, ":4000", cfg.Server.Addr)
	assert.Equal(t, 100, cfg.Server.RateLimit)
	assert.Equal(t, time.Minute, cfg.Server.RateLimitWindow)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("TMDB_MAX_RETRIES", "5")
	t.Setenv("TMDB_RETRY_BASE_DELAY", "250ms")
	t.Setenv("REDIS_TLS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 5, cfg.TMDB.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.TMDB.RetryBaseDelay)
	assert.True(t, cfg.Redis.TLS)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("TMDB_BEARER_TOKEN", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/movielist")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "TMDB_BEARER_TOKEN")
}

func TestLoad_InvalidValues(t *testing.T) {
	testCases := map[string]string{
		"TMDB_MAX_RETRIES":         "three",
		"TMDB_RETRY_BASE_DELAY":    "soon",
		"TMDB_REQUESTS_PER_SECOND": "0",
		"BROWSE_MIN_LOAD_INTERVAL": "2",
	}

	for key, value := range testCases {
		t.Run(key, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(key, value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
