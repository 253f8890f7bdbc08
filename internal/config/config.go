package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultTokenTTLMillis is ten days.
	DefaultTokenTTLMillis = 864_000_000

	// MaxTokenTTLMillis is the largest TTL representable as a time.Duration.
	MaxTokenTTLMillis = math.MaxInt64 / int64(time.Millisecond)

	// MinSecretBytes is the recommended signing secret length (256 bits).
	MinSecretBytes = 32
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Metrics  MetricsConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr                string
	Password            string
	DB                  int
	UserCacheTTLSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters. Every secret here must come
// from the environment; none of them has a default.
type AuthConfig struct {
	AdminUsername   string
	AdminPassword   string
	JWTSecret       string
	TokenTTLMillis  int64
	ChallengeScheme string
	Realm           string
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	ttlMillis, err := strconv.ParseInt(getEnv("AUTH_TOKEN_TTL_MS", strconv.Itoa(DefaultTokenTTLMillis)), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_TOKEN_TTL_MS: %w", err)
	}
	if ttlMillis <= 0 || ttlMillis > MaxTokenTTLMillis {
		return nil, fmt.Errorf("invalid AUTH_TOKEN_TTL_MS %d: must be between 1 and %d", ttlMillis, MaxTokenTTLMillis)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "user-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:                getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:            os.Getenv("REDIS_PASSWORD"),
			DB:                  redisDB,
			UserCacheTTLSeconds: getEnvAsInt("REDIS_USER_CACHE_TTL_SECONDS", 300),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			AdminUsername:   os.Getenv("AUTH_ADMIN_USERNAME"),
			AdminPassword:   os.Getenv("AUTH_ADMIN_PASSWORD"),
			JWTSecret:       os.Getenv("AUTH_JWT_SECRET"),
			TokenTTLMillis:  ttlMillis,
			ChallengeScheme: getEnv("AUTH_CHALLENGE_SCHEME", "Bearer"),
			Realm:           getEnv("AUTH_REALM", "MyApp"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	if err := cfg.Auth.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *AuthConfig) validate() error {
	required := []struct {
		key string
		val string
	}{
		{"AUTH_ADMIN_USERNAME", a.AdminUsername},
		{"AUTH_ADMIN_PASSWORD", a.AdminPassword},
		{"AUTH_JWT_SECRET", a.JWTSecret},
	}
	for _, r := range required {
		if r.val == "" {
			return fmt.Errorf("%s is required", r.key)
		}
	}

	switch {
	case strings.EqualFold(a.ChallengeScheme, "Bearer"):
		a.ChallengeScheme = "Bearer"
	case strings.EqualFold(a.ChallengeScheme, "Basic"):
		a.ChallengeScheme = "Basic"
	default:
		return fmt.Errorf("invalid AUTH_CHALLENGE_SCHEME %q: want Bearer or Basic", a.ChallengeScheme)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// UserCacheTTL returns how long user lookups stay cached; zero disables caching.
func (r RedisConfig) UserCacheTTL() time.Duration {
	if r.UserCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(r.UserCacheTTLSeconds) * time.Second
}

// TokenTTL returns the token lifetime.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLMillis) * time.Millisecond
}

// WeakSecret reports whether the signing secret is shorter than recommended.
func (a AuthConfig) WeakSecret() bool {
	return len(a.JWTSecret) < MinSecretBytes
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
