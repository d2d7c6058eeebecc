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
	defaultAppName        = "SACCO"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultSessionTTL     = 5 * time.Minute
	defaultSweepInterval  = time.Minute
	defaultReplayTTL      = 10 * time.Minute
	defaultRateLimitMax   = 30
	defaultRateWindow     = time.Minute
	defaultMigrationsDir  = "migrations"
	shutdownSecondsEnvVar = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurEnvVar     = "SHUTDOWN_TIMEOUT"
	sessionSecondsEnvVar  = "SESSION_TTL_SECONDS"
	sessionDurEnvVar      = "SESSION_TTL"
	replaySecondsEnvVar   = "REPLAY_TTL_SECONDS"
	replayDurEnvVar       = "REPLAY_TTL"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	SessionTTL     time.Duration
	SweepInterval  time.Duration
	ReplayTTL      time.Duration
	RateLimitMax   int
	RateWindow     time.Duration
	MigrationsDir  string
	MigrateOnStart bool
	BcryptCost     int
	SMS            SMSConfig
}

// SMSConfig holds credentials for the outbound SMS gateway.
type SMSConfig struct {
	APIURL   string
	Username string
	APIKey   string
	SenderID string
}

// Enabled reports whether enough settings are present to talk to the gateway.
func (s SMSConfig) Enabled() bool {
	return s.APIURL != "" && s.Username != "" && s.APIKey != ""
}

// Load reads configuration values from the environment and populates a Config instance.
// A .env file in the working directory is applied first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:       getEnv("APP_NAME", defaultAppName),
		AppEnv:        strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:          getEnv("PORT", defaultPort),
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		MigrationsDir: getEnv("MIGRATIONS_DIR", defaultMigrationsDir),
		SMS: SMSConfig{
			APIURL:   os.Getenv("SMS_API_URL"),
			Username: os.Getenv("SMS_USERNAME"),
			APIKey:   os.Getenv("SMS_API_KEY"),
			SenderID: os.Getenv("SMS_SENDER_ID"),
		},
	}

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = durationFromEnv(sessionSecondsEnvVar, sessionDurEnvVar, defaultSessionTTL); err != nil {
		return Config{}, err
	}
	if cfg.ReplayTTL, err = durationFromEnv(replaySecondsEnvVar, replayDurEnvVar, defaultReplayTTL); err != nil {
		return Config{}, err
	}
	if cfg.SweepInterval, err = durationFromEnv("", "SESSION_SWEEP_INTERVAL", defaultSweepInterval); err != nil {
		return Config{}, err
	}
	if cfg.RateWindow, err = durationFromEnv("", "RATE_LIMIT_WINDOW", defaultRateWindow); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitMax, err = intFromEnv("RATE_LIMIT_MAX", defaultRateLimitMax); err != nil {
		return Config{}, err
	}
	if cfg.BcryptCost, err = intFromEnv("BCRYPT_COST", 0); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("MIGRATE_ON_START"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MIGRATE_ON_START: %w", err)
		}
		cfg.MigrateOnStart = b
	}

	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("session ttl must be positive")
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the app runs in a local/development environment where
// in-memory backends are acceptable.
func (c Config) IsDev() bool {
	switch c.AppEnv {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// durationFromEnv accepts either an integer seconds variable or a Go duration
// variable, seconds taking precedence.
func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if v := os.Getenv(secondsKey); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
