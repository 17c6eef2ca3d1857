package config

import (
	"fmt"
	"github.com/joho/godotenv"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App struct {
		Name string
		Env  string
	}

	Log struct {
		Level  string
		Format string
	}

	// API is the local control API (toggle, state, journal).
	API struct {
		Host string
		Port string
	}

	// Backend is the REST API that owns the pending SMS queue.
	Backend struct {
		BaseURL string
		Timeout time.Duration
	}

	Reverb struct {
		Enabled      bool
		AppKey       string
		Host         string
		Port         int
		Scheme       string
		QueuedEvent  string
		DialAttempts int
	}

	Device struct {
		ID     string
		Name   string
		IDFile string
	}

	Token struct {
		File   string
		Secret string
	}

	Forwarding struct {
		PollInterval    time.Duration
		PassTimeout     time.Duration
		AutoStart       bool
		PoisonThreshold int
	}

	DB struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string
		SSLMode  string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	SMS struct {
		ProviderURL string
		ProviderKey string
		Timeout     time.Duration
	}
}

func New() *Config {
	_ = godotenv.Load()

	cfg := &Config{}

	// App
	cfg.App.Name = getEnv("APP_NAME", "sms-forwarder")
	cfg.App.Env = getEnv("APP_ENV", "development")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "console")

	// API
	cfg.API.Host = getEnv("API_HOST", "0.0.0.0")
	cfg.API.Port = getEnv("API_PORT", "8080")

	// Backend
	cfg.Backend.BaseURL = strings.TrimRight(getEnv("BACKEND_BASE_URL", "http://localhost:8000/api"), "/")
	cfg.Backend.Timeout = getDuration("BACKEND_TIMEOUT", 10*time.Second)

	// Realtime (Laravel Reverb speaks the Pusher protocol)
	cfg.Reverb.Enabled = getBool("REVERB_ENABLED", true)
	cfg.Reverb.AppKey = getEnv("REVERB_APP_KEY", "")
	cfg.Reverb.Host = getEnv("REVERB_HOST", "localhost")
	cfg.Reverb.Port = getInt("REVERB_PORT", 8080)
	cfg.Reverb.Scheme = getEnv("REVERB_SCHEME", "http")
	cfg.Reverb.QueuedEvent = getEnv("REVERB_QUEUED_EVENT", "sms.queued")
	cfg.Reverb.DialAttempts = getInt("REVERB_DIAL_ATTEMPTS", 3)

	// Device
	cfg.Device.ID = getEnv("DEVICE_ID", "")
	cfg.Device.Name = getEnv("DEVICE_NAME", "")
	cfg.Device.IDFile = getEnv("DEVICE_ID_FILE", ".device_id")

	// Token store
	cfg.Token.File = getEnv("TOKEN_FILE", ".forwarder_token")
	cfg.Token.Secret = getEnv("TOKEN_SECRET", "")

	// Forwarding
	cfg.Forwarding.PollInterval = getDuration("FORWARDING_POLL_INTERVAL", 10*time.Second)
	cfg.Forwarding.PassTimeout = getDuration("FORWARDING_PASS_TIMEOUT", 30*time.Second)
	cfg.Forwarding.AutoStart = getBool("FORWARDING_AUTO_START", false)
	cfg.Forwarding.PoisonThreshold = getInt("FORWARDING_POISON_THRESHOLD", 5)

	// DB (delivery journal; disabled when DB_HOST is empty)
	cfg.DB.Host = getEnv("DB_HOST", "")
	cfg.DB.Port = getInt("DB_PORT", 5432)
	cfg.DB.User = getEnv("DB_USER", "root")
	cfg.DB.Password = getEnv("DB_PASSWORD", "123456")
	cfg.DB.Name = getEnv("DB_NAME", "db_sms_forwarder")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")

	// Redis (disabled when REDIS_ADDR is empty)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getInt("REDIS_DB", 0)

	// SMS gateway
	cfg.SMS.ProviderURL = getEnv("SMS_PROVIDER_URL", "")
	cfg.SMS.ProviderKey = getEnv("SMS_PROVIDER_KEY", "")
	cfg.SMS.Timeout = getDuration("SMS_TIMEOUT", 10*time.Second)

	return cfg
}

func getEnv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func getBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return isTruthy(v)
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// JournalEnabled reports whether a Postgres journal is configured.
func (c *Config) JournalEnabled() bool {
	return c.DB.Host != ""
}

// CacheEnabled reports whether a Redis cache is configured.
func (c *Config) CacheEnabled() bool {
	return c.Redis.Addr != ""
}

// RealtimeEnabled reports whether the Reverb channel can be used at all.
func (c *Config) RealtimeEnabled() bool {
	return c.Reverb.Enabled && c.Reverb.AppKey != ""
}

// TokenSecret returns the secret used to derive the token encryption key.
// It falls back to the app name so a fresh install still encrypts at rest.
func (c *Config) TokenSecret() string {
	if c.Token.Secret != "" {
		return c.Token.Secret
	}
	return c.App.Name
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}
