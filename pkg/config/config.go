package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"

	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

type Config struct {
	Database Database
	Provider Provider
	Breaker  Breaker
	Cache    Cache
	Server   Server
	Log      Log
}

type Database struct {
	Driver          string
	User            string
	Password        string
	Host            string
	Port            string
	Name            string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the data source name for the configured driver.
func (d Database) DSN() string {
	if d.Driver == DriverSQLite {
		return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", d.Path)
	}
	dsn := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	return dsn.String()
}

type Provider struct {
	Name          string
	APIKey        string
	BaseURL       string
	Model         string
	Temperature   float32
	MaxTokens     int
	Timeout       time.Duration
	RatePerMinute int
}

type Breaker struct {
	Failures    uint32
	OpenTimeout time.Duration
}

type Cache struct {
	Enabled bool
	TTL     time.Duration
	MaxCost int64
}

type Server struct {
	Host string
	Port string
}

// Addr is the listen address of the HTTP server.
func (s Server) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

type Log struct {
	Level  string
	Format string
}

var defaultModels = map[string]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-5-sonnet-20240620",
	ProviderGemini:    "gemini-2.0-flash",
}

// SetDefaults registers default values and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db.driver", DriverPostgres)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.name", "multilingual_translator")
	v.SetDefault("db.path", "transcache.db")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", time.Hour)

	v.SetDefault("provider.name", ProviderOpenAI)
	v.SetDefault("provider.base_url", "")
	v.SetDefault("provider.model", "")
	v.SetDefault("provider.temperature", 0.3)
	v.SetDefault("provider.max_tokens", 1000)
	v.SetDefault("provider.timeout", 60*time.Second)
	v.SetDefault("provider.rate_per_minute", 0)

	v.SetDefault("breaker.failures", 5)
	v.SetDefault("breaker.open_timeout", 30*time.Second)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", 15*time.Minute)
	v.SetDefault("cache.max_cost", int64(1e7))

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "8000")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	envs := map[string]string{
		"db.driver":                  "DB_DRIVER",
		"db.user":                    "DB_USER",
		"db.password":                "DB_PASSWORD",
		"db.host":                    "DB_HOST",
		"db.port":                    "DB_PORT",
		"db.name":                    "DB_NAME",
		"db.path":                    "DB_PATH",
		"db.max_open_conns":          "DB_MAX_OPEN_CONNS",
		"db.max_idle_conns":          "DB_MAX_IDLE_CONNS",
		"db.conn_max_lifetime":       "DB_CONN_MAX_LIFETIME",
		"provider.name":              "PROVIDER",
		"provider.openai_api_key":    "OPENAI_API_KEY",
		"provider.anthropic_api_key": "ANTHROPIC_KEY",
		"provider.google_api_key":    "GOOGLE_AI_API_KEY",
		"provider.base_url":          "OPENAI_BASE_URL",
		"provider.model":             "MODEL",
		"provider.timeout":           "PROVIDER_TIMEOUT",
		"provider.rate_per_minute":   "PROVIDER_RATE_PER_MINUTE",
		"breaker.failures":           "BREAKER_FAILURES",
		"breaker.open_timeout":       "BREAKER_OPEN_TIMEOUT",
		"cache.enabled":              "CACHE_ENABLED",
		"cache.ttl":                  "CACHE_TTL",
		"cache.max_cost":             "CACHE_MAX_COST",
		"server.host":                "HOST",
		"server.port":                "PORT",
		"log.level":                  "LOG_LEVEL",
		"log.format":                 "LOG_FORMAT",
	}
	for key, env := range envs {
		_ = v.BindEnv(key, env)
	}
}

// Load reads the configuration out of v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Database: Database{
			Driver:          strings.ToLower(v.GetString("db.driver")),
			User:            v.GetString("db.user"),
			Password:        v.GetString("db.password"),
			Host:            v.GetString("db.host"),
			Port:            v.GetString("db.port"),
			Name:            v.GetString("db.name"),
			Path:            v.GetString("db.path"),
			MaxOpenConns:    v.GetInt("db.max_open_conns"),
			MaxIdleConns:    v.GetInt("db.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("db.conn_max_lifetime"),
		},
		Provider: Provider{
			Name:          strings.ToLower(v.GetString("provider.name")),
			BaseURL:       v.GetString("provider.base_url"),
			Model:         v.GetString("provider.model"),
			Temperature:   float32(v.GetFloat64("provider.temperature")),
			MaxTokens:     v.GetInt("provider.max_tokens"),
			Timeout:       v.GetDuration("provider.timeout"),
			RatePerMinute: v.GetInt("provider.rate_per_minute"),
		},
		Breaker: Breaker{
			Failures:    v.GetUint32("breaker.failures"),
			OpenTimeout: v.GetDuration("breaker.open_timeout"),
		},
		Cache: Cache{
			Enabled: v.GetBool("cache.enabled"),
			TTL:     v.GetDuration("cache.ttl"),
			MaxCost: v.GetInt64("cache.max_cost"),
		},
		Server: Server{
			Host: v.GetString("server.host"),
			Port: v.GetString("server.port"),
		},
		Log: Log{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}

	switch cfg.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	switch cfg.Provider.Name {
	case ProviderOpenAI:
		cfg.Provider.APIKey = v.GetString("provider.openai_api_key")
	case ProviderAnthropic:
		cfg.Provider.APIKey = v.GetString("provider.anthropic_api_key")
	case ProviderGemini:
		cfg.Provider.APIKey = v.GetString("provider.google_api_key")
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider.Name)
	}
	if key := v.GetString("provider.api_key"); key != "" {
		cfg.Provider.APIKey = key
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = defaultModels[cfg.Provider.Name]
	}

	if cfg.Cache.Enabled && cfg.Cache.MaxCost <= 0 {
		return nil, errors.New("cache.max_cost must be positive when the cache is enabled")
	}

	return cfg, nil
}

// RequireAPIKey fails when no key is configured for the selected provider.
func (p Provider) RequireAPIKey() error {
	if p.APIKey != "" {
		return nil
	}
	switch p.Name {
	case ProviderAnthropic:
		return errors.New("missing ANTHROPIC_KEY")
	case ProviderGemini:
		return errors.New("missing GOOGLE_AI_API_KEY")
	default:
		return errors.New("missing OPENAI_API_KEY")
	}
}
