package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AuthModeJWT      = "jwt"
	AuthModeFirebase = "firebase"

	devJWTSecret = "supersecretjwtkey"
)

type Config struct {
	Port string
	Env  string

	DatabaseURL   string
	MongoURI      string
	MongoDatabase string
	RedisURL      string
	RabbitMQURL   string

	JWTSecret               string
	AuthMode                string
	FirebaseCredentialsPath string

	PushSweepSchedule string
	PushQuietPeriod   time.Duration
	PushMaxAttempts   int
	RealtimeBacklog   int
	SettingsCacheTTL  time.Duration
}

// Load reads the configuration from the environment, after merging a .env
// file when one exists.
func Load() (*Config, error) {
	// Existing variables win over .env entries
	_ = godotenv.Load()

	cfg := &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		DatabaseURL:             getEnv("DATABASE_URL", "atlas.db"),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "atlas"),
		RedisURL:                getEnv("REDIS_URL", ""),
		RabbitMQURL:             getEnv("RABBITMQ_URL", ""),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		AuthMode:                strings.ToLower(getEnv("AUTH_MODE", AuthModeJWT)),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		PushSweepSchedule:       getEnv("PUSH_SWEEP_SCHEDULE", "@every 5m"),
	}

	var err error
	if cfg.PushQuietPeriod, err = getDuration("PUSH_QUIET_PERIOD", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.SettingsCacheTTL, err = getDuration("SETTINGS_CACHE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.PushMaxAttempts, err = getInt("PUSH_MAX_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.RealtimeBacklog, err = getInt("REALTIME_BACKLOG", 100); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// UsesPostgres reports whether DATABASE_URL is a Postgres DSN rather than a SQLite file.
func (c *Config) UsesPostgres() bool {
	u := strings.ToLower(c.DatabaseURL)
	return strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://") || strings.Contains(u, "host=")
}

func (c *Config) validate() error {
	switch c.AuthMode {
	case AuthModeJWT, AuthModeFirebase:
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeJWT, AuthModeFirebase, c.AuthMode)
	}
	if c.AuthMode == AuthModeFirebase && c.FirebaseCredentialsPath == "" {
		return fmt.Errorf("AUTH_MODE=firebase requires FIREBASE_CREDENTIALS_PATH")
	}
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		c.JWTSecret = devJWTSecret
	}
	if c.PushQuietPeriod <= 0 {
		return fmt.Errorf("PUSH_QUIET_PERIOD must be positive")
	}
	if c.PushMaxAttempts < 1 {
		return fmt.Errorf("PUSH_MAX_ATTEMPTS must be at least 1")
	}
	if c.RealtimeBacklog < 1 {
		return fmt.Errorf("REALTIME_BACKLOG must be at least 1")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, raw, err)
	}
	return n, nil
}
