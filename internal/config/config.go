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
	defaultAppName         = "SignedSend"
	defaultAppEnv          = "development"
	defaultPort            = "3042"
	defaultLogLevel        = "info"
	defaultLedgerURL       = "http://localhost:3042"
	defaultLedgerTimeout   = 10 * time.Second
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultWelcomeCredit   = 100
	defaultSendRateLimit   = 30
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	ledgerTimeoutEnvVar    = "LEDGER_TIMEOUT"
	welcomeCreditEnvVar    = "WELCOME_CREDIT"
	sendRateLimitEnvVar    = "SEND_RATE_LIMIT"
)

// Config captures runtime configuration for both the ledger daemon and the
// wallet client, loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
	WelcomeCredit  int64
	SendRateLimit  int

	LedgerURL     string
	LedgerTimeout time.Duration
	PrivateKey    string
}

// Load reads an optional .env file, then configuration values from the
// environment, and populates a Config instance.
func Load() (Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
		WelcomeCredit:  defaultWelcomeCredit,
		SendRateLimit:  defaultSendRateLimit,
		LedgerURL:      strings.TrimRight(getEnv("LEDGER_URL", defaultLedgerURL), "/"),
		LedgerTimeout:  defaultLedgerTimeout,
		PrivateKey:     os.Getenv("WALLET_PRIVATE_KEY"),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}

	if v := os.Getenv(ledgerTimeoutEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", ledgerTimeoutEnvVar, err)
		}
		cfg.LedgerTimeout = d
	}

	if v := os.Getenv(welcomeCreditEnvVar); v != "" {
		credit, err := strconv.ParseInt(v, 10, 64)
		if err != nil || credit < 0 {
			return Config{}, fmt.Errorf("invalid %s: %q", welcomeCreditEnvVar, v)
		}
		cfg.WelcomeCredit = credit
	}

	if v := os.Getenv(sendRateLimitEnvVar); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", sendRateLimitEnvVar, err)
		}
		cfg.SendRateLimit = limit
	}

	return cfg, nil
}

// ValidateServer checks the settings the ledger daemon depends on. Postgres and
// Redis are optional only in development environments.
func (c Config) ValidateServer() error {
	if c.IsDev() {
		return nil
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", c.AppEnv)
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", c.AppEnv)
	}
	return nil
}

// IsDev reports whether the configured environment is a development one.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// durationFromEnv prefers the whole-seconds variable, then the Go duration one.
func durationFromEnv(secondsVar, durationVar string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsVar, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(durationVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationVar, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
