package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Backend selects where properties, leads and roles live.
type Backend string

const (
	BackendAuto     Backend = "auto"
	BackendSupabase Backend = "supabase"
	BackendMongo    Backend = "mongo"
	BackendLocal    Backend = "local"
)

const minJWTSecretLen = 32

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Data backend
	DataBackend  Backend       `env:"DATA_BACKEND" envDefault:"auto"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`

	// Supabase
	SupabaseURL        string `env:"SUPABASE_URL"`
	SupabaseAnonKey    string `env:"SUPABASE_ANON_KEY"`
	SupabaseServiceKey string `env:"SUPABASE_SERVICE_ROLE_KEY"`

	// MongoDB
	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"phuket"`

	// HTTP client
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`

	// Resilience
	MaxRetries     int           `env:"MAX_RETRIES" envDefault:"3"`
	InitialBackoff time.Duration `env:"INITIAL_BACKOFF" envDefault:"100ms"`
	MaxConcurrency int           `env:"MAX_CONCURRENCY" envDefault:"50"`

	// Cache
	CacheTTL        time.Duration `env:"CACHE_TTL" envDefault:"10m"`
	CacheMaxEntries int           `env:"CACHE_MAX_ENTRIES" envDefault:"4096"`

	// Local durable cache: SQLite file, or Redis when an address is set
	KVPath        string `env:"KV_PATH" envDefault:"phuket-cache.db"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Lead notifications
	RabbitMQURL string `env:"RABBITMQ_URL"`
	LeadQueue   string `env:"LEAD_QUEUE" envDefault:"lead.submitted"`

	// Observability
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// Sessions
	JWTSecret  string        `env:"JWT_SECRET"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"12h"`

	// Landing page
	THBPerEUR    float64 `env:"THB_PER_EUR" envDefault:"36.2"`
	ContactPhone string  `env:"CONTACT_PHONE_E164" envDefault:"4369917738276"`

	// Self-contained admin account
	AdminEmail        string `env:"ADMIN_EMAIL"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`
	AdminRole         string `env:"ADMIN_ROLE" envDefault:"admin"`
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.DataBackend = Backend(strings.ToLower(string(cfg.DataBackend)))
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DataBackend {
	case BackendAuto, BackendLocal:
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			return fmt.Errorf("DATA_BACKEND=supabase requires SUPABASE_URL and SUPABASE_ANON_KEY")
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("DATA_BACKEND=mongo requires MONGO_URI")
		}
	default:
		return fmt.Errorf("unknown DATA_BACKEND %q", c.DataBackend)
	}
	if c.THBPerEUR <= 0 {
		return fmt.Errorf("THB_PER_EUR must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if c.AdminLoginEnabled() && len(c.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("JWT_SECRET of at least %d bytes is required when admin login is enabled", minJWTSecretLen)
	}
	return nil
}

// AdminLoginEnabled reports whether anyone can sign in: a remote backend with
// its own identity provider, or a configured self-contained admin.
func (c *Config) AdminLoginEnabled() bool {
	return c.AdminEmail != "" || c.ResolveBackend() != BackendLocal
}

// RemoteConfigured reports whether an external document store is configured.
func (c *Config) RemoteConfigured() bool {
	return c.SupabaseURL != "" || c.MongoURI != ""
}

// ResolveBackend picks the backend for "auto": Supabase when configured,
// then MongoDB, otherwise self-contained mode.
func (c *Config) ResolveBackend() Backend {
	if c.DataBackend != BackendAuto {
		return c.DataBackend
	}
	switch {
	case c.SupabaseURL != "":
		return BackendSupabase
	case c.MongoURI != "":
		return BackendMongo
	default:
		return BackendLocal
	}
}
