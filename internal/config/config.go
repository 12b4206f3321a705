package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
		Format string `yaml:"format" validate:"omitempty,oneof=text json"`
	} `yaml:"log"`
	Storage struct {
		Driver     string `yaml:"driver" validate:"omitempty,oneof=memory redis sqlite"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"gte=0"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" validate:"omitempty,url"`
	} `yaml:"postgres"`
	Provider struct {
		BaseURL     string `yaml:"base_url" validate:"omitempty,url"`
		Amount      int    `yaml:"amount" validate:"gte=0,lte=50"`
		Type        string `yaml:"type"`
		Timeout     string `yaml:"timeout"`
		MaxRetries  *int   `yaml:"max_retries" validate:"omitempty,gte=0,lte=10"`
		BackoffUnit string `yaml:"backoff_unit"`
	} `yaml:"provider"`
	Quiz struct {
		Duration string `yaml:"duration"`
		CacheTTL string `yaml:"cache_ttl"`
		Tick     string `yaml:"tick"`
	} `yaml:"quiz"`
}

// Load reads YAML config from path after loading a .env file if present.
// A missing file yields the zero config so defaults apply.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks enumerations and ranges.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Storage.Driver == "redis" && c.Redis.Addr == "" {
		return errors.New("invalid config: storage driver redis requires redis.addr")
	}
	return nil
}

// StorageDriver returns the configured driver, inferring redis when an address is set.
func (c Config) StorageDriver() string {
	if c.Storage.Driver != "" {
		return c.Storage.Driver
	}
	if c.Redis.Addr != "" {
		return "redis"
	}
	return "memory"
}

// MaxRetries returns the configured retry cap or fallback when unset.
func (c Config) MaxRetries(fallback int) int {
	if c.Provider.MaxRetries == nil {
		return fallback
	}
	return *c.Provider.MaxRetries
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
