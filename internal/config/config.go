package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	TMDB      TMDBConfig
	Browse    BrowseConfig
	Storage   StorageConfig
	Recommend RecommendConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

type AppConfig struct {
	Env     string
	DataDir string
}

// ServerConfig configures the HTTP server that serves stored blobs
type ServerConfig struct {
	Addr            string
	RateLimit       int
	RateLimitWindow time.Duration
}

type DatabaseConfig struct {
	URL string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	TLS      bool
}

type TMDBConfig struct {
	BearerToken       string
	BaseURL           string
	ImageBaseURL      string
	MaxRetries        int
	RetryBaseDelay    time.Duration
	RequestsPerSecond float64
}

type BrowseConfig struct {
	MinLoadInterval time.Duration
	FilterDebounce  time.Duration
	SearchDebounce  time.Duration
}

type StorageConfig struct {
	PublicBaseURL string
}

type RecommendConfig struct {
	APIKey   string
	Endpoint string
}

type LogConfig struct {
	Level  string
	Format string
}

type MetricsConfig struct {
	Addr string
}

// Load reads environment variables and returns a Config struct
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Env:     getEnv("APP_ENV", "local"),
			DataDir: getEnv("DATA_DIR", "./data"),
		},
		Server: ServerConfig{
			Addr: getEnv("SERVER_ADDR", ":4000"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			TLS:      getEnv("REDIS_TLS", "false") == "true",
		},
		TMDB: TMDBConfig{
			BearerToken:  getEnv("TMDB_BEARER_TOKEN", ""),
			BaseURL:      getEnv("TMDB_URL", "https://api.themoviedb.org/3"),
			ImageBaseURL: getEnv("TMDB_IMAGE_URL", "https://image.tmdb.org/t/p"),
		},
		Storage: StorageConfig{
			PublicBaseURL: getEnv("STORAGE_PUBLIC_URL", "http://localhost:4000/blobs"),
		},
		Recommend: RecommendConfig{
			APIKey:   getEnv("DEEPSEEK_API_KEY", ""),
			Endpoint: getEnv("DEEPSEEK_URL", "https://api.deepseek.com/v1/chat/completions"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Addr: getEnv("METRICS_ADDR", ""),
		},
	}

	var err error
	if cfg.TMDB.MaxRetries, err = getEnvInt("TMDB_MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.TMDB.RetryBaseDelay, err = getEnvDuration("TMDB_RETRY_BASE_DELAY", time.Second); err != nil {
		return nil, err
	}
	if cfg.TMDB.RequestsPerSecond, err = getEnvFloat("TMDB_REQUESTS_PER_SECOND", 40); err != nil {
		return nil, err
	}
	if cfg.Server.RateLimit, err = getEnvInt("SERVER_RATE_LIMIT", 100); err != nil {
		return nil, err
	}
	if cfg.Server.RateLimitWindow, err = getEnvDuration("SERVER_RATE_LIMIT_WINDOW", time.Minute); err != nil {
		return nil, err
	}
	if cfg.Browse.MinLoadInterval, err = getEnvDuration("BROWSE_MIN_LOAD_INTERVAL", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.Browse.FilterDebounce, err = getEnvDuration("BROWSE_FILTER_DEBOUNCE", 300*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.Browse.SearchDebounce, err = getEnvDuration("BROWSE_SEARCH_DEBOUNCE", 500*time.Millisecond); err != nil {
		return nil, err
	}

	// Validate required fields
	if cfg.TMDB.BearerToken == "" {
		return nil, fmt.Errorf("TMDB_BEARER_TOKEN is required")
	}
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.TMDB.MaxRetries < 0 {
		return nil, fmt.Errorf("TMDB_MAX_RETRIES must not be negative")
	}
	if cfg.TMDB.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("TMDB_REQUESTS_PER_SECOND must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// IsDevelopment returns true if running in development/local mode
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "local" || c.App.Env == "development"
}

// RedisAddr returns the Redis address in host:port format
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}
