package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/simaogato/timedeposit-backend/internal/adapter/repository/document"
	"gopkg.in/yaml.v3"
)

// Store drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Rate sources
const (
	SourceFeed     = "feed"
	SourceBankPage = "bankpage"
)

// Config represents the complete server configuration
type Config struct {
	Server ServerConfig `json:"server" yaml:"server"`
	Store  StoreConfig  `json:"store" yaml:"store"`
	Rates  RatesConfig  `json:"rates" yaml:"rates"`
}

// ServerConfig contains gRPC listener parameters
type ServerConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	APIToken string `json:"api_token" yaml:"api_token"`
}

// StoreConfig selects and locates the document collection
type StoreConfig struct {
	Driver     string `json:"driver" yaml:"driver"` // "postgres" or "sqlite"
	Collection string `json:"collection" yaml:"collection"`
	ConnStr    string `json:"conn_str,omitempty" yaml:"conn_str,omitempty"`
	Host       string `json:"host" yaml:"host"`
	Port       string `json:"port" yaml:"port"`
	User       string `json:"user" yaml:"user"`
	Password   string `json:"password" yaml:"password"`
	Name       string `json:"name" yaml:"name"`
	Path       string `json:"path,omitempty" yaml:"path,omitempty"` // sqlite database file
}

// RatesConfig contains the rate service parameters
type RatesConfig struct {
	Source     string   `json:"source" yaml:"source"` // "feed" or "bankpage"
	URL        string   `json:"url" yaml:"url"`
	Currencies []string `json:"currencies,omitempty" yaml:"currencies,omitempty"`
	Timeout    string   `json:"timeout" yaml:"timeout"`     // e.g. "10s"
	CacheTTL   string   `json:"cache_ttl" yaml:"cache_ttl"` // feed responses only, "0s" disables
}

// Default returns a configuration that runs against a local Postgres and the public rate board
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:     ":8080",
			APIToken: "dev-token",
		},
		Store: StoreConfig{
			Driver:     DriverPostgres,
			Collection: document.DefaultCollection,
			Host:       "localhost",
			Port:       "5432",
			User:       "postgres",
			Password:   "postgres",
			Name:       "timedeposit",
			Path:       "timedeposit.db",
		},
		Rates: RatesConfig{
			Source:     SourceBankPage,
			URL:        "https://rate.bot.com.tw/xrt?Lang=en-US",
			Currencies: []string{"USD", "AUD", "NZD", "CNY"},
			Timeout:    "10s",
			CacheTTL:   "5m",
		},
	}
}

// Load builds the configuration from defaults, an optional file and the environment
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.merge(path); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON) over the defaults
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.merge(path); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) merge(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, c); err != nil {
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from environment variables; empty values are ignored
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	set(&c.Server.Addr, "GRPC_ADDR")
	set(&c.Server.APIToken, "API_TOKEN")

	set(&c.Store.Driver, "STORE_DRIVER")
	set(&c.Store.Collection, "COLLECTION_ID")
	set(&c.Store.ConnStr, "DB_CONN_STR")
	set(&c.Store.Host, "DB_HOST")
	set(&c.Store.Port, "DB_PORT")
	set(&c.Store.User, "DB_USER")
	set(&c.Store.Password, "DB_PASSWORD")
	set(&c.Store.Name, "DB_NAME")
	set(&c.Store.Path, "SQLITE_PATH")

	set(&c.Rates.URL, "RATES_URL")
	set(&c.Rates.Source, "RATES_SOURCE")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.APIToken == "" {
		return fmt.Errorf("server.api_token is required")
	}

	switch c.Store.Driver {
	case DriverPostgres:
		if c.Store.ConnStr == "" && c.Store.Host == "" {
			return fmt.Errorf("store.host or store.conn_str is required for postgres")
		}
	case DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for sqlite")
		}
	default:
		return fmt.Errorf("store.driver must be '%s' or '%s'", DriverPostgres, DriverSQLite)
	}
	if c.Store.Collection == "" {
		return fmt.Errorf("store.collection is required")
	}

	if c.Rates.Source != SourceFeed && c.Rates.Source != SourceBankPage {
		return fmt.Errorf("rates.source must be '%s' or '%s'", SourceFeed, SourceBankPage)
	}
	if c.Rates.URL == "" {
		return fmt.Errorf("rates.url is required")
	}
	if _, err := c.RatesTimeout(); err != nil {
		return fmt.Errorf("rates.timeout: %w", err)
	}
	if _, err := c.RatesCacheTTL(); err != nil {
		return fmt.Errorf("rates.cache_ttl: %w", err)
	}

	return nil
}

// PostgresConnString returns the explicit connection string or builds one from the parts
func (c *Config) PostgresConnString() string {
	if c.Store.ConnStr != "" {
		return c.Store.ConnStr
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Store.Host, c.Store.Port, c.Store.User, c.Store.Password, c.Store.Name)
}

// RatesTimeout parses the rate request timeout
func (c *Config) RatesTimeout() (time.Duration, error) {
	return parseDuration(c.Rates.Timeout, 10*time.Second)
}

// RatesCacheTTL parses the feed response cache lifetime
func (c *Config) RatesCacheTTL() (time.Duration, error) {
	return parseDuration(c.Rates.CacheTTL, 0)
}

func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative, got %s", s)
	}
	return d, nil
}
