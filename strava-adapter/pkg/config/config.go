package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"

	pkgconfig "github.com/Checker-Finance/activity-adapters/pkg/config"
)

const (
	CredentialsFromEnv = "env"
	CredentialsFromAWS = "aws"

	TokenBackendFile  = "file"
	TokenBackendRedis = "redis"
)

// Config holds the runtime configuration for the strava-adapter.
type Config struct {
	ServiceName      string
	Env              string
	LogLevel         string
	Port             int
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// Application credentials. With CredentialsSource "aws" they are resolved
	// from Secrets Manager under {env}/{athlete}/strava instead.
	ClientID          string
	ClientSecret      string
	RedirectURI       string
	CredentialsSource string
	Athlete           string
	AWSRegion         string
	CacheTTL          time.Duration
	CleanupFreq       time.Duration

	APIBaseURL   string
	OAuthBaseURL string
	HTTPTimeout  time.Duration
	HTTPRetryMax int
	RateRequests int
	RateWindow   time.Duration
	RateBurst    int

	ActivityLimit int

	TokenBackend  string
	TokenFile     string
	TokenRedisKey string

	RedisAddr string
	RedisDB   int
	RedisPass string

	DatabaseURL         string
	PGMaxConns          int
	PGMinConns          int
	PGMaxConnLifetime   time.Duration
	PGMaxConnIdleTime   time.Duration
	PGHealthCheckPeriod time.Duration

	NATSURL      string
	SyncInterval time.Duration
	SyncSubject  string
}

// Load loads configuration from environment variables and optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServiceName:      pkgconfig.GetEnv("SERVICE_NAME", "strava-adapter"),
		Env:              pkgconfig.GetEnv("ENV", "dev"),
		LogLevel:         pkgconfig.GetEnv("LOG_LEVEL", "info"),
		Port:             pkgconfig.GetEnvInt("STRAVA_PORT", 9040),
		HTTPReadTimeout:  pkgconfig.GetEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
		HTTPWriteTimeout: pkgconfig.GetEnvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
		HTTPIdleTimeout:  pkgconfig.GetEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),

		ClientID:          pkgconfig.GetEnv("STRAVA_CLIENT_ID", ""),
		ClientSecret:      pkgconfig.GetEnv("STRAVA_CLIENT_SECRET", ""),
		RedirectURI:       pkgconfig.GetEnv("STRAVA_REDIRECT_URI", "http://localhost"),
		CredentialsSource: strings.ToLower(pkgconfig.GetEnv("STRAVA_CREDENTIALS_SOURCE", CredentialsFromEnv)),
		Athlete:           pkgconfig.GetEnv("STRAVA_ATHLETE", "default"),
		AWSRegion:         pkgconfig.GetEnv("AWS_REGION", "us-east-2"),
		CacheTTL:          pkgconfig.GetEnvDuration("CACHE_TTL", 24*time.Hour),
		CleanupFreq:       pkgconfig.GetEnvDuration("CACHE_CLEANUP_FREQ", 10*time.Minute),

		APIBaseURL:    pkgconfig.GetEnv("STRAVA_API_BASE_URL", "https://www.strava.com/api/v3"),
		OAuthBaseURL:  pkgconfig.GetEnv("STRAVA_OAUTH_BASE_URL", "https://www.strava.com"),
		HTTPTimeout:   pkgconfig.GetEnvDuration("STRAVA_HTTP_TIMEOUT", 15*time.Second),
		HTTPRetryMax:  pkgconfig.GetEnvInt("STRAVA_HTTP_RETRY_MAX", 0),
		RateRequests:  pkgconfig.GetEnvInt("STRAVA_RATE_REQUESTS", 100),
		RateWindow:    pkgconfig.GetEnvDuration("STRAVA_RATE_WINDOW", 15*time.Minute),
		RateBurst:     pkgconfig.GetEnvInt("STRAVA_RATE_BURST", 10),
		ActivityLimit: pkgconfig.GetEnvInt("ACTIVITY_LIMIT", 30),

		TokenBackend:  strings.ToLower(pkgconfig.GetEnv("TOKEN_BACKEND", TokenBackendFile)),
		TokenFile:     pkgconfig.GetEnv("TOKEN_FILE", "strava_tokens.json"),
		TokenRedisKey: pkgconfig.GetEnv("TOKEN_REDIS_KEY", "strava:tokens"),

		RedisAddr: pkgconfig.GetEnv("REDIS_ADDR", ""),
		RedisDB:   pkgconfig.GetEnvInt("REDIS_DB", 0),
		RedisPass: pkgconfig.GetEnv("REDIS_PASS", ""),

		DatabaseURL:         pkgconfig.GetEnv("DATABASE_URL", ""),
		PGMaxConns:          pkgconfig.GetEnvInt("PG_MAX_CONNS", 10),
		PGMinConns:          pkgconfig.GetEnvInt("PG_MIN_CONNS", 2),
		PGMaxConnLifetime:   pkgconfig.GetEnvDuration("PG_MAX_CONN_LIFETIME", 30*time.Minute),
		PGMaxConnIdleTime:   pkgconfig.GetEnvDuration("PG_MAX_CONN_IDLE_TIME", 5*time.Minute),
		PGHealthCheckPeriod: pkgconfig.GetEnvDuration("PG_HEALTH_CHECK_PERIOD", 1*time.Minute),

		NATSURL:      pkgconfig.GetEnv("NATS_URL", ""),
		SyncInterval: pkgconfig.GetEnvDuration("SYNC_INTERVAL", 0),
		SyncSubject:  pkgconfig.GetEnv("SYNC_SUBJECT", "evt.activity.synced.v1"),
	}
}

// Validate reports every setting that would stop the adapter from serving.
func (c *Config) Validate() error {
	var errs []error

	switch c.CredentialsSource {
	case CredentialsFromEnv:
		if c.ClientID == "" {
			errs = append(errs, errors.New("STRAVA_CLIENT_ID is required"))
		}
		if c.ClientSecret == "" {
			errs = append(errs, errors.New("STRAVA_CLIENT_SECRET is required"))
		}
	case CredentialsFromAWS:
		if c.AWSRegion == "" {
			errs = append(errs, errors.New("AWS_REGION is required when STRAVA_CREDENTIALS_SOURCE=aws"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STRAVA_CREDENTIALS_SOURCE %q", c.CredentialsSource))
	}

	switch c.TokenBackend {
	case TokenBackendFile:
		if c.TokenFile == "" {
			errs = append(errs, errors.New("TOKEN_FILE is required when TOKEN_BACKEND=file"))
		}
	case TokenBackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when TOKEN_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown TOKEN_BACKEND %q", c.TokenBackend))
	}

	if c.ActivityLimit <= 0 {
		errs = append(errs, fmt.Errorf("ACTIVITY_LIMIT must be positive, got %d", c.ActivityLimit))
	}
	if c.RateRequests <= 0 || c.RateWindow <= 0 {
		errs = append(errs, errors.New("STRAVA_RATE_REQUESTS and STRAVA_RATE_WINDOW must be positive"))
	}
	if c.SyncInterval < 0 {
		errs = append(errs, errors.New("SYNC_INTERVAL must not be negative"))
	}

	return errors.Join(errs...)
}

// PGEnabled reports whether a Postgres snapshot store is configured.
func (c *Config) PGEnabled() bool { return c.DatabaseURL != "" }

// StoreEnabled reports whether the shared Redis/Postgres store is needed.
func (c *Config) StoreEnabled() bool {
	return c.RedisAddr != "" || c.DatabaseURL != ""
}
